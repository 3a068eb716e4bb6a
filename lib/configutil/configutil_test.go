package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	URL      string   `json:"url"`
	Attempts int      `json:"attempts"`
	Tags     []string `json:"tags"`
}

func write(t *testing.T, path, contents string) {
	err := os.WriteFile(path, []byte(contents), 0644)
	if err != nil {
		t.Fatal(err)
	}
}

func TestLocalName(t *testing.T) {
	require.Equal(t, "config.local.json5", LocalName("config.json5"))
	require.Equal(t, "dir/telemetry.local.json5", LocalName("dir/telemetry.json5"))
}

func TestReadConfigMergesLocal(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "config.json5")
	write(t, name, `{
		// comments and trailing commas are fine in json5
		url: "https://schedule.example/",
		attempts: 3,
	}`)
	write(t, filepath.Join(dir, "config.local.json5"), `{attempts: 5}`)

	cfg, err := ReadConfig[testConfig](name)
	require.NoError(t, err)
	require.Equal(t, testConfig{URL: "https://schedule.example/", Attempts: 5}, cfg)
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "config.json5"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadWithDefaults(t *testing.T) {
	dir := t.TempDir()
	defaults := testConfig{URL: "https://default.example/", Attempts: 3}

	cfg, err := ReadWithDefaults(filepath.Join(dir, "config.json5"), defaults)
	require.NoError(t, err)
	require.Equal(t, defaults, cfg)

	write(t, filepath.Join(dir, "config.json5"), `{tags: ["a"]}`)
	cfg, err = ReadWithDefaults(filepath.Join(dir, "config.json5"), defaults)
	require.NoError(t, err)
	require.Equal(t, testConfig{URL: "https://default.example/", Attempts: 3, Tags: []string{"a"}}, cfg)
}

func TestReadRecursively(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	write(t, filepath.Join(root, "telemetry.json5"), `{url: "found"}`)

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(nested))
	t.Cleanup(func() {
		os.Chdir(wd)
	})

	cfg, err := ReadRecursively[testConfig]("telemetry.json5")
	require.NoError(t, err)
	require.Equal(t, "found", cfg.URL)
}
