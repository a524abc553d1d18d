package secrets

import (
	"fmt"
	"os"
	"strings"
)

// GetSecret resolves a credential such as a feed DSN or webhook URL.
// KEY_FILE (the Docker secrets convention) wins over KEY; defaultValue is
// used when neither is set.
func GetSecret(envKey string, defaultValue string) (string, error) {
	if filePath := os.Getenv(envKey + "_FILE"); filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return "", fmt.Errorf("read secret file %s: %w", filePath, err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	if value := os.Getenv(envKey); value != "" {
		return value, nil
	}

	return defaultValue, nil
}

// GetOptionalSecret is GetSecret that falls back to defaultValue on read errors
func GetOptionalSecret(envKey string, defaultValue string) string {
	value, err := GetSecret(envKey, defaultValue)
	if err != nil {
		return defaultValue
	}
	return value
}
