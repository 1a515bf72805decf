package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConfigLoad はデフォルト設定の読み込みをテストする
func TestConfigLoad(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "", cfg.Server.Host, "既定では全インターフェースで待ち受ける")
	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Zero(t, cfg.Server.ReadTimeout)

	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, wd, cfg.Preview.Root)
	assert.True(t, filepath.IsAbs(cfg.Preview.Root))
	assert.True(t, cfg.Preview.OpenBrowser)
	assert.Equal(t, time.Second, cfg.Preview.BrowserDelay)
	assert.True(t, cfg.Preview.ListDirectories)
	assert.False(t, cfg.Preview.LiveReload)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

// TestConfigValidation は設定の検証をテストする
func TestConfigValidation(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:  ServerConfig{Port: 3000, ShutdownTimeout: time.Second},
			Preview: PreviewConfig{Root: "/srv/www"},
			Log:     LogConfig{Level: "info", Format: "console"},
		}
	}

	testCases := []struct {
		name      string
		mutate    func(c *Config)
		expectErr bool
	}{
		{"正常な設定", func(c *Config) {}, false},
		{"ランダムポート", func(c *Config) { c.Server.Port = 0 }, false},
		{"無効なポート番号", func(c *Config) { c.Server.Port = 99999 }, true},
		{"負のポート番号", func(c *Config) { c.Server.Port = -1 }, true},
		{"ルートなし", func(c *Config) { c.Preview.Root = "" }, true},
		{"シャットダウンタイムアウトなし", func(c *Config) { c.Server.ShutdownTimeout = 0 }, true},
		{"未知のログレベル", func(c *Config) { c.Log.Level = "trace" }, true},
		{"未知のログ形式", func(c *Config) { c.Log.Format = "xml" }, true},
		{"空のCORSオリジン", func(c *Config) { c.Preview.CORSOrigins = []string{""} }, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// TestServerAddress はサーバーアドレスの生成をテストする
func TestServerAddress(t *testing.T) {
	testCases := []struct {
		host     string
		port     int
		expected string
	}{
		{"192.168.1.100", 9090, "192.168.1.100:9090"},
		{"", 3000, ":3000"},
		{"::1", 8080, "[::1]:8080"},
	}

	for _, tc := range testCases {
		cfg := &Config{Server: ServerConfig{Host: tc.host, Port: tc.port}}
		assert.Equal(t, tc.expected, cfg.ServerAddress())
	}
}

// TestEnvironmentVariables は環境変数の処理をテストする
func TestEnvironmentVariables(t *testing.T) {
	root := t.TempDir()
	t.Setenv("SERVER_HOST", "127.0.0.1")
	t.Setenv("PORT", "9999")
	t.Setenv("PREVIEW_PREVIEW_ROOT", root)
	t.Setenv("PREVIEW_PREVIEW_LIVE_RELOAD", "true")
	t.Setenv("PREVIEW_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, root, cfg.Preview.Root)
	assert.True(t, cfg.Preview.LiveReload)
	assert.Equal(t, "debug", cfg.Log.Level)
}

// TestConfigFile は設定ファイルからの読み込みをテストする
func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "preview.yaml")
	content := `server:
  port: 4000
  shutdown_timeout: 2s
preview:
  root: ` + dir + `
  open_browser: false
  list_directories: false
  cors_origins:
    - http://localhost:5173
log:
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("PREVIEW_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 4000, cfg.Server.Port)
	assert.Equal(t, 2*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, dir, cfg.Preview.Root)
	assert.False(t, cfg.Preview.OpenBrowser)
	assert.False(t, cfg.Preview.ListDirectories)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.Preview.CORSOrigins)
	assert.Equal(t, "json", cfg.Log.Format)
}

// TestConfigFileMissing は存在しない設定ファイルを指定した場合をテストする
func TestConfigFileMissing(t *testing.T) {
	t.Setenv("PREVIEW_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

// TestInvalidRoot はドキュメントルートの検証をテストする
func TestInvalidRoot(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "index.html")
	require.NoError(t, os.WriteFile(file, []byte("<html></html>"), 0o644))

	testCases := []struct {
		name string
		root string
	}{
		{"存在しないディレクトリ", filepath.Join(dir, "missing")},
		{"ファイルを指定", file},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("PREVIEW_PREVIEW_ROOT", tc.root)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

// TestFlagsOverride はフラグが環境変数より優先されることをテストする
func TestFlagsOverride(t *testing.T) {
	t.Setenv("PORT", "9999")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("port", 0, "")
	require.NoError(t, fs.Parse([]string{"--port=8123"}))

	v := viper.New()
	require.NoError(t, v.BindPFlag("server.port", fs.Lookup("port")))

	cfg, err := LoadFrom(v)
	require.NoError(t, err)
	assert.Equal(t, 8123, cfg.Server.Port)
}
