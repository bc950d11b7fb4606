package cli

import (
	"os"
	"path/filepath"
	"strings"
)

// Config holds CLI configuration
type Config struct {
	ServerURL      string
	CredentialFile string
	Output         string
	Verbose        bool
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL:      getEnvOrDefault("LOBBYCTL_SERVER", "http://localhost:8080"),
		CredentialFile: getEnvOrDefault("LOBBYCTL_CREDENTIAL_FILE", defaultCredentialFile()),
		Output:         getEnvOrDefault("LOBBYCTL_OUTPUT", "text"),
		Verbose:        false,
	}
}

// LoadCredential reads the credential saved by the last join, or "" if none
func (c *Config) LoadCredential() (string, error) {
	data, err := os.ReadFile(c.CredentialFile)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// SaveCredential saves a credential to the credential file
func (c *Config) SaveCredential(credential string) error {
	dir := filepath.Dir(c.CredentialFile)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	return os.WriteFile(c.CredentialFile, []byte(credential), 0600)
}

func defaultCredentialFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".lobbyctl/credential"
	}
	return filepath.Join(home, ".lobbyctl", "credential")
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
