package models

// InspectConfig enables live container inspection for failed backends.
type InspectConfig struct {
	Enabled bool
	SSH     *SSHConfig // nil means docker is queried on the local machine
}

// SSHConfig holds the remote Docker host used for inspection.
type SSHConfig struct {
	Host       string
	Port       int
	Username   string
	KeyPath    string
	PrivateKey []byte // loaded from KeyPath when empty
}

// InspectResult holds the output of a container inspection.
type InspectResult struct {
	Backend    Backend
	Command    string
	Output     string
	CommandRun bool
	Error      error
}
