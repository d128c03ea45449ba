package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolvePathPrecedence(t *testing.T) {
	explicit := "/tmp/custom.jsonc"
	resolved, err := ResolvePath(explicit)
	require.NoError(t, err)
	require.Equal(t, explicit, resolved)

	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	resolved, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(xdg, "socialbridge", "config.jsonc"), resolved)

	t.Setenv("XDG_CONFIG_HOME", "")
	home := t.TempDir()
	t.Setenv("HOME", home)
	resolved, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".config", "socialbridge", "config.jsonc"), resolved)
}

func TestLoadMissingConfigUsesDefaultsWithWarning(t *testing.T) {
	t.Setenv(EnvApplicationID, "")
	path := filepath.Join(t.TempDir(), "missing.jsonc")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, path, loaded.Path)
	require.False(t, loaded.Exists)
	require.Equal(t, Default(), loaded.Config)
	require.NotEmpty(t, loaded.Warnings)
	require.Contains(t, loaded.Warnings[0].Message, "not found")
}

func TestLoadExistingJSONCParsesAndValidates(t *testing.T) {
	t.Setenv(EnvApplicationID, "")
	path := filepath.Join(t.TempDir(), "config.jsonc")
	contents := `
{
  "sdk": { "application_id": 99 },
  "events": { "capacity": 8 }, // small ring for tests
}
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.True(t, loaded.Exists)
	require.Equal(t, path, loaded.Path)
	require.Equal(t, uint64(99), loaded.Config.SDK.ApplicationID)
	require.Equal(t, 8, loaded.Config.Events.Capacity)
}

func TestLoadEnvOverridesApplicationID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(`{"sdk":{"application_id":99}}`), 0o600))
	t.Setenv(EnvApplicationID, "12345")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, uint64(12345), loaded.Config.SDK.ApplicationID)

	missing, err := Load(filepath.Join(t.TempDir(), "missing.jsonc"))
	require.NoError(t, err)
	require.Equal(t, uint64(12345), missing.Config.SDK.ApplicationID)
}

func TestLoadRejectsInvalidEnvApplicationID(t *testing.T) {
	t.Setenv(EnvApplicationID, "not-a-number")

	_, err := Load(filepath.Join(t.TempDir(), "missing.jsonc"))
	require.Error(t, err)
	require.Contains(t, err.Error(), EnvApplicationID)
}

func TestLoadInvalidConfigReturnsPathInError(t *testing.T) {
	t.Setenv(EnvApplicationID, "")
	path := filepath.Join(t.TempDir(), "config.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(`{"log":{"level":"loud"}}`), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), path)
	require.Contains(t, err.Error(), "log.level")
}
