package models

import "time"

// WOLConfig holds Wake-on-LAN configuration for the database host.
type WOLConfig struct {
	MACAddress    string
	BroadcastIP   string
	WaitAddr      string        // host:port polled until it accepts TCP connections
	Timeout       time.Duration // max time to wait for WaitAddr
	PollInterval  time.Duration // how often to dial WaitAddr
	StabilizeWait time.Duration // wait after WaitAddr responds
}

// WOLResult holds the result of a Wake-on-LAN operation.
type WOLResult struct {
	PacketSent   bool
	TargetReady  bool
	WaitDuration time.Duration
	Error        error
}
