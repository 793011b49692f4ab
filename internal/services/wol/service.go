// Package wol wakes the database host with a Wake-on-LAN packet before probing.
package wol

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/fgeck/dbprobe/internal/models"
	"github.com/mdlayher/wol"
	"github.com/rs/zerolog"
)

// Service wakes a sleeping database host.
type Service interface {
	Wake(ctx context.Context, cfg models.WOLConfig) (*models.WOLResult, error)
}

// Client sends magic packets.
type Client interface {
	Wake(broadcastIP string, mac net.HardwareAddr) error
}

// Dialer opens the TCP connections used to detect a host that finished booting.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// DefaultClient sends magic packets over UDP port 9 with mdlayher/wol.
type DefaultClient struct{}

// Wake broadcasts a magic packet for mac on broadcastIP.
func (c *DefaultClient) Wake(broadcastIP string, mac net.HardwareAddr) error {
	client, err := wol.NewClient()
	if err != nil {
		return fmt.Errorf("opening magic packet socket: %w", err)
	}
	defer func() { _ = client.Close() }()

	ip := net.ParseIP(broadcastIP)
	if ip == nil {
		return fmt.Errorf("broadcast address %q is not an IP", broadcastIP)
	}

	if err := client.Wake(net.JoinHostPort(ip.String(), "9"), mac); err != nil {
		return fmt.Errorf("sending magic packet: %w", err)
	}

	return nil
}

// Impl wakes the host, then waits for its database port.
type Impl struct {
	wolClient Client
	dialer    Dialer
	logger    zerolog.Logger
}

// New returns a waker that broadcasts real packets and dials with a 5s timeout.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		wolClient: &DefaultClient{},
		dialer:    &net.Dialer{Timeout: 5 * time.Second},
		logger:    logger,
	}
}

// NewWithClients returns a waker using the given packet sender and dialer.
func NewWithClients(logger zerolog.Logger, wolClient Client, dialer Dialer) *Impl {
	return &Impl{
		wolClient: wolClient,
		dialer:    dialer,
		logger:    logger,
	}
}

// Wake sends the magic packet and, when WaitAddr is set, blocks until the
// database port accepts connections and StabilizeWait has elapsed.
func (s *Impl) Wake(ctx context.Context, cfg models.WOLConfig) (*models.WOLResult, error) {
	result := &models.WOLResult{}
	start := time.Now()

	mac, err := net.ParseMAC(cfg.MACAddress)
	if err != nil {
		result.Error = fmt.Errorf("wol.mac_address %q: %w", cfg.MACAddress, err)
		return result, nil
	}

	s.logger.Info().
		Str("mac", cfg.MACAddress).
		Str("broadcast", cfg.BroadcastIP).
		Msg("waking database host")

	if err := s.wolClient.Wake(cfg.BroadcastIP, mac); err != nil {
		result.Error = err
		return result, nil //nolint:nilerr // error is stored in result struct by design
	}

	result.PacketSent = true

	if cfg.WaitAddr == "" {
		result.WaitDuration = time.Since(start)
		result.TargetReady = true
		return result, nil
	}

	s.logger.Info().
		Str("addr", cfg.WaitAddr).
		Dur("timeout", cfg.Timeout).
		Msg("waiting for database port")

	if err := s.waitForPort(ctx, cfg); err != nil {
		result.WaitDuration = time.Since(start)
		result.Error = err
		return result, nil //nolint:nilerr // error is stored in result struct by design
	}

	if cfg.StabilizeWait > 0 {
		s.logger.Debug().Dur("wait", cfg.StabilizeWait).Msg("database port open, letting services settle")
		select {
		case <-ctx.Done():
			result.WaitDuration = time.Since(start)
			result.Error = ctx.Err()
			return result, nil
		case <-time.After(cfg.StabilizeWait):
		}
	}

	result.TargetReady = true
	result.WaitDuration = time.Since(start)

	s.logger.Info().
		Dur("duration", result.WaitDuration).
		Msg("database host awake")

	return result, nil
}

// waitForPort dials WaitAddr every PollInterval until it connects or
// Timeout elapses.
func (s *Impl) waitForPort(ctx context.Context, cfg models.WOLConfig) error {
	waitCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	for attempt := 1; ; attempt++ {
		conn, err := s.dialer.DialContext(waitCtx, "tcp", cfg.WaitAddr)
		if err == nil {
			_ = conn.Close()
			return nil
		}

		s.logger.Debug().
			Err(err).
			Str("addr", cfg.WaitAddr).
			Int("attempt", attempt).
			Msg("database port still closed")

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("timeout: %s still closed after %s", cfg.WaitAddr, cfg.Timeout)
		case <-time.After(cfg.PollInterval):
		}
	}
}
