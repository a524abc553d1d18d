package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSecretPrefersFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dsn")
	require.NoError(t, os.WriteFile(path, []byte("user:pw@tcp(db:3306)/odds\n"), 0o600))

	t.Setenv("ARBSCAN_TEST_DSN", "from-env")
	t.Setenv("ARBSCAN_TEST_DSN_FILE", path)

	got, err := GetSecret("ARBSCAN_TEST_DSN", "default")
	require.NoError(t, err)
	assert.Equal(t, "user:pw@tcp(db:3306)/odds", got)
}

func TestGetSecretFallbacks(t *testing.T) {
	t.Setenv("ARBSCAN_TEST_TOKEN", "from-env")
	got, err := GetSecret("ARBSCAN_TEST_TOKEN", "default")
	require.NoError(t, err)
	assert.Equal(t, "from-env", got)

	got, err = GetSecret("ARBSCAN_TEST_UNSET", "default")
	require.NoError(t, err)
	assert.Equal(t, "default", got)
}

func TestGetOptionalSecretMissingFile(t *testing.T) {
	t.Setenv("ARBSCAN_TEST_PW_FILE", filepath.Join(t.TempDir(), "nope"))

	_, err := GetSecret("ARBSCAN_TEST_PW", "")
	assert.Error(t, err)
	assert.Equal(t, "fallback", GetOptionalSecret("ARBSCAN_TEST_PW", "fallback"))
}
