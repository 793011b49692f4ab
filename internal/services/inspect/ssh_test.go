package inspect

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fgeck/dbprobe/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

type mockSSHSession struct {
	combinedOutputFunc func(cmd string) ([]byte, error)
	closeFunc          func() error
}

func (m *mockSSHSession) CombinedOutput(cmd string) ([]byte, error) {
	if m.combinedOutputFunc != nil {
		return m.combinedOutputFunc(cmd)
	}
	return []byte(""), nil
}

func (m *mockSSHSession) Close() error {
	if m.closeFunc != nil {
		return m.closeFunc()
	}
	return nil
}

type mockSSHClient struct {
	newSessionFunc func() (SSHSession, error)
	closeFunc      func() error
}

func (m *mockSSHClient) NewSession() (SSHSession, error) {
	if m.newSessionFunc != nil {
		return m.newSessionFunc()
	}
	return &mockSSHSession{}, nil
}

func (m *mockSSHClient) Close() error {
	if m.closeFunc != nil {
		return m.closeFunc()
	}
	return nil
}

type mockClientFactory struct {
	newClientFunc func(network, addr string, config *ssh.ClientConfig) (SSHClient, error)
}

func (m *mockClientFactory) NewClient(network, addr string, config *ssh.ClientConfig) (SSHClient, error) {
	if m.newClientFunc != nil {
		return m.newClientFunc(network, addr, config)
	}
	return &mockSSHClient{}, nil
}

func generateTestKey(t *testing.T) []byte {
	t.Helper()

	_, privateKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	pemBlock, err := ssh.MarshalPrivateKey(privateKey, "")
	require.NoError(t, err)

	return pem.EncodeToMemory(pemBlock)
}

func testSSHConfig(t *testing.T) *models.SSHConfig {
	return &models.SSHConfig{
		Host:       "docker-host",
		Port:       22,
		Username:   "root",
		PrivateKey: generateTestKey(t),
	}
}

func TestRemoteRunner_Success(t *testing.T) {
	var closed, sessionClosed bool
	var gotUser string

	factory := &mockClientFactory{
		newClientFunc: func(network, addr string, config *ssh.ClientConfig) (SSHClient, error) {
			gotUser = config.User
			return &mockSSHClient{
				newSessionFunc: func() (SSHSession, error) {
					return &mockSSHSession{
						combinedOutputFunc: func(cmd string) ([]byte, error) {
							return []byte("OK"), nil
						},
						closeFunc: func() error {
							sessionClosed = true
							return nil
						},
					}, nil
				},
				closeFunc: func() error {
					closed = true
					return nil
				},
			}, nil
		},
	}

	out, err := NewRemoteRunner(factory).Run(context.Background(), *testSSHConfig(t), "echo OK")

	require.NoError(t, err)
	assert.Equal(t, "OK", string(out))
	assert.Equal(t, "root", gotUser)
	assert.True(t, closed)
	assert.True(t, sessionClosed)
}

func TestRemoteRunner_SessionFailed(t *testing.T) {
	factory := &mockClientFactory{
		newClientFunc: func(network, addr string, config *ssh.ClientConfig) (SSHClient, error) {
			return &mockSSHClient{
				newSessionFunc: func() (SSHSession, error) {
					return nil, errors.New("session limit")
				},
			}, nil
		},
	}

	_, err := NewRemoteRunner(factory).Run(context.Background(), *testSSHConfig(t), "echo OK")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create session")
}

func TestRemoteRunner_ContextCancelled(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	factory := &mockClientFactory{
		newClientFunc: func(network, addr string, config *ssh.ClientConfig) (SSHClient, error) {
			<-block
			return nil, errors.New("unreachable")
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewRemoteRunner(factory).Run(ctx, *testSSHConfig(t), "echo OK")

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBuildConfig_NoPrivateKey(t *testing.T) {
	_, err := buildConfig(models.SSHConfig{Host: "h", Port: 22, Username: "root"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no private key provided")
}

func TestBuildConfig_InvalidPrivateKey(t *testing.T) {
	_, err := buildConfig(models.SSHConfig{Username: "root", PrivateKey: []byte("not a key")})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse private key")
}

func TestBuildConfig_WithKeyPath(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "id_ed25519")
	require.NoError(t, os.WriteFile(keyPath, generateTestKey(t), 0o600))

	config, err := buildConfig(models.SSHConfig{Username: "deploy", KeyPath: keyPath})

	require.NoError(t, err)
	assert.Equal(t, "deploy", config.User)
	assert.Len(t, config.Auth, 1)
}

func TestBuildConfig_KeyPathNotFound(t *testing.T) {
	_, err := buildConfig(models.SSHConfig{Username: "root", KeyPath: "/nonexistent/key"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read private key")
}
