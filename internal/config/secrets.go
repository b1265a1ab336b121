package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SecretsDir is where Docker secrets are mounted.
var SecretsDir = "/run/secrets"

// ReadSecret reads a required secret file from dir.
func ReadSecret(dir, name string) (string, error) {
	path := filepath.Join(dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file %s: %w", path, err)
	}
	secret := strings.TrimSpace(string(data))
	if secret == "" {
		return "", fmt.Errorf("secret file %s is empty", path)
	}
	return secret, nil
}

// ReadOptionalSecret returns the secret when its file exists and is not empty,
// fallback otherwise.
func ReadOptionalSecret(dir, name, fallback string) string {
	secret, err := ReadSecret(dir, name)
	if err != nil {
		return fallback
	}
	return secret
}

// legacyAPIKeyFromEnv supports the key name used by local .env files.
func legacyAPIKeyFromEnv() string {
	return strings.TrimSpace(os.Getenv("MISTRAL_API_KEY"))
}
