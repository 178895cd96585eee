package config

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, path string, env map[string]string) (*Manager, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	mgr := NewManagerWithFs(fs, path)
	mgr.getenv = func(key string) string { return env[key] }
	return mgr, fs
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	mgr, _ := newTestManager(t, "/etc/reelstream/settings.json", nil)

	settings, err := mgr.Load()
	require.NoError(t, err)
	require.Equal(t, DefaultSettings(), settings)
	require.Equal(t, 500, settings.Search.DebounceMillis)
	require.Equal(t, 500, settings.Feed.MaxPage)
}

func TestLoadJSONFillsDefaults(t *testing.T) {
	mgr, fs := newTestManager(t, "/cfg/settings.json", nil)
	require.NoError(t, afero.WriteFile(fs, "/cfg/settings.json", []byte(`{"catalog":{"apiKey":"abc","language":"fr-FR"}}`), 0o644))

	settings, err := mgr.Load()
	require.NoError(t, err)
	require.Equal(t, "abc", settings.Catalog.APIKey)
	require.Equal(t, "fr-FR", settings.Catalog.Language)
	require.Equal(t, "https://api.themoviedb.org/3", settings.Catalog.BaseURL)
	require.Equal(t, ":7777", settings.Server.Listen)
	require.Equal(t, 2, settings.Search.MinQueryLength)
}

func TestLoadYAML(t *testing.T) {
	mgr, fs := newTestManager(t, "/cfg/settings.yaml", nil)
	body := "server:\n  listen: \":9000\"\nsearch:\n  debounceMillis: 250\n"
	require.NoError(t, afero.WriteFile(fs, "/cfg/settings.yaml", []byte(body), 0o644))

	settings, err := mgr.Load()
	require.NoError(t, err)
	require.Equal(t, ":9000", settings.Server.Listen)
	require.Equal(t, 250, settings.Search.DebounceMillis)
	require.Equal(t, 100.0, settings.Feed.EdgeThreshold)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	mgr, fs := newTestManager(t, "/cfg/settings.json", nil)
	require.NoError(t, afero.WriteFile(fs, "/cfg/settings.json", []byte(`{"server":`), 0o644))

	_, err := mgr.Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse settings")
}

func TestEnvironmentOverrides(t *testing.T) {
	mgr, _ := newTestManager(t, "/cfg/settings.json", map[string]string{
		envTMDBAPIKey:  " from-env ",
		envListen:      "127.0.0.1:8080",
		envAccessToken: "s3cret",
	})

	settings, err := mgr.Load()
	require.NoError(t, err)
	require.Equal(t, "from-env", settings.Catalog.APIKey)
	require.Equal(t, "127.0.0.1:8080", settings.Server.Listen)
	require.Equal(t, "s3cret", settings.Server.AccessToken)
	require.Equal(t, 30*time.Minute, settings.Server.SessionIdle())
}

func TestLoadFileSkipsEnvironment(t *testing.T) {
	mgr, fs := newTestManager(t, "/cfg/settings.yaml", map[string]string{
		envTMDBAPIKey:    "env-key",
		envTMDBReadToken: "env-read-token",
		envAccessToken:   "env-access",
	})
	require.NoError(t, afero.WriteFile(fs, "/cfg/settings.yaml", []byte("catalog:\n  apiKey: file-key\n"), 0o600))

	fileOnly, err := mgr.LoadFile()
	require.NoError(t, err)
	require.Equal(t, "file-key", fileOnly.Catalog.APIKey)
	require.Empty(t, fileOnly.Catalog.ReadToken)
	require.Empty(t, fileOnly.Server.AccessToken)

	require.NoError(t, mgr.Save(fileOnly))
	data, err := afero.ReadFile(fs, "/cfg/settings.yaml")
	require.NoError(t, err)
	for _, secret := range []string{"env-key", "env-read-token", "env-access"} {
		require.NotContains(t, string(data), secret)
	}

	effective, err := mgr.Load()
	require.NoError(t, err)
	require.Equal(t, "env-key", effective.Catalog.APIKey)
	require.Equal(t, "env-access", effective.Server.AccessToken)
}

func TestSaveRoundTrip(t *testing.T) {
	for _, path := range []string{"/data/settings.json", "/data/settings.yml"} {
		t.Run(path, func(t *testing.T) {
			mgr, fs := newTestManager(t, path, nil)
			settings := DefaultSettings()
			settings.Catalog.APIKey = "saved-key"
			settings.Search.DebounceMillis = 300

			require.NoError(t, mgr.Save(settings))
			exists, err := afero.Exists(fs, path+".tmp")
			require.NoError(t, err)
			require.False(t, exists, "temp file should be renamed away")

			loaded, err := mgr.Load()
			require.NoError(t, err)
			require.Equal(t, "saved-key", loaded.Catalog.APIKey)
			require.Equal(t, 300, loaded.Search.DebounceMillis)
		})
	}
}
