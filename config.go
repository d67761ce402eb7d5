package provider

import (
	"fmt"
	"net"
	"os"
	"strconv"
)

// Config holds the connection parameters a provider reads from its process
// environment at startup.
type Config struct {
	Host string
	Port int
	PID  string
}

// ConfigFromEnv reads and validates THINKNODE_HOST, THINKNODE_PORT, and
// THINKNODE_PID. All three are required; THINKNODE_PID must be exactly
// PIDLen bytes, matching the Register body the connection sends once
// connected. A missing or invalid value is reported as *ErrEnvMissing.
func ConfigFromEnv() (Config, error) {
	host, err := requireEnv("THINKNODE_HOST")
	if err != nil {
		return Config{}, err
	}
	portStr, err := requireEnv("THINKNODE_PORT")
	if err != nil {
		return Config{}, err
	}
	pid, err := requireEnv("THINKNODE_PID")
	if err != nil {
		return Config{}, err
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return Config{}, &ErrEnvMissing{Var: "THINKNODE_PORT", Reason: fmt.Sprintf("not a decimal integer: %v", err)}
	}
	if len(pid) != PIDLen {
		return Config{}, &ErrEnvMissing{
			Var:    "THINKNODE_PID",
			Reason: fmt.Sprintf("want exactly %d bytes, got %d", PIDLen, len(pid)),
		}
	}
	return Config{Host: host, Port: port, PID: pid}, nil
}

func requireEnv(name string) (string, error) {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return "", &ErrEnvMissing{Var: name, Reason: "not set"}
	}
	return v, nil
}

// Address renders c's host and port as a dial address for net.Dial.
func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
