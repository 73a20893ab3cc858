package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FirstRunWritesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "local", cfg.Actor)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, filepath.Join(dir, "nested", "agenda.db"), cfg.Store.Path)
	assert.Equal(t, "0 0 * * *", cfg.PruneSchedule)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// Second load reads the file back.
	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoad_Normalizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("actor: ana\nstore:\n  driver: memory\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ana", cfg.Actor)
	assert.Equal(t, "BRL", cfg.Currency)
	assert.Equal(t, "pt-BR", cfg.Locale)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Empty(t, cfg.Store.Path)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown key", "actor: ana\ncolour: red\n"},
		{"unknown driver", "store:\n  driver: postgres\n"},
		{"sqlite without path", "store:\n  driver: sqlite\n"},
		{"firestore without project", "store:\n  driver: firestore\n"},
		{"bad currency", "currency: reais\nstore:\n  driver: memory\n"},
		{"bad log level", "log_level: loud\nstore:\n  driver: memory\n"},
		{"actor with slash", "actor: a/b\nstore:\n  driver: memory\n"},
		{"unknown timezone", "timezone: Mars/Olympus\nstore:\n  driver: memory\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o600))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestValidate_Drivers(t *testing.T) {
	cfg := Default()
	cfg.Store = StoreConfig{Driver: DriverFirestore, ProjectID: "my-project"}
	assert.NoError(t, cfg.Validate())

	cfg.Store = StoreConfig{Driver: DriverDir, Path: "/tmp/agenda"}
	assert.NoError(t, cfg.Validate())
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, "local", cfg.Actor)
}

func TestLocation(t *testing.T) {
	cfg := Default()
	cfg.Timezone = "America/Sao_Paulo"
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/Sao_Paulo", loc.String())
}

func TestDefaultPath_Env(t *testing.T) {
	t.Setenv(EnvPath, "/etc/agenda.yaml")
	p, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, "/etc/agenda.yaml", p)
}

func TestSave_RejectsNil(t *testing.T) {
	assert.Error(t, Save(filepath.Join(t.TempDir(), "c.yaml"), nil))
	assert.Error(t, Save("", Default()))
}
