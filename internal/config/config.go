package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config はアプリケーション全体の設定を保持する構造体
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Preview PreviewConfig `mapstructure:"preview"`
	Log     LogConfig     `mapstructure:"log"`
}

// ServerConfig はHTTPサーバーの設定
type ServerConfig struct {
	Host string `mapstructure:"host"`                             // リッスンするホスト (空なら全インターフェース)
	Port int    `mapstructure:"port" validate:"gte=0,lte=65535"` // リッスンするポート番号 (0 はランダム)

	// タイムアウト設定 (0 は無制限)
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gte=0"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// PreviewConfig は静的ファイル配信の設定
type PreviewConfig struct {
	Root            string        `mapstructure:"root" validate:"required"` // ドキュメントルート
	OpenBrowser     bool          `mapstructure:"open_browser"`
	BrowserDelay    time.Duration `mapstructure:"browser_delay" validate:"gte=0"`
	ListDirectories bool          `mapstructure:"list_directories"`
	LiveReload      bool          `mapstructure:"live_reload"`
	NoCache         bool          `mapstructure:"no_cache"`
	CORSOrigins     []string      `mapstructure:"cors_origins" validate:"dive,required"`
}

// LogConfig はログ出力の設定
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=console json"`
}

// DefaultPort はプレビューサーバーの既定ポート
const DefaultPort = 3000

var validate = validator.New()

// Load は設定を読み込む
// デフォルト値、設定ファイル、環境変数の順に上書きされる
func Load() (*Config, error) {
	return LoadFrom(viper.New())
}

// LoadFrom は渡されたviperインスタンスから設定を読み込む
// フラグをバインド済みのインスタンスを渡すとフラグが最優先になる
func LoadFrom(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	bindEnv(v)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("設定の解析に失敗: %w", err)
	}

	// ドキュメントルートは起動時に一度だけ解決する
	root, err := resolveRoot(cfg.Preview.Root)
	if err != nil {
		return nil, err
	}
	cfg.Preview.Root = root

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return &cfg, nil
}

// setDefaults はデフォルト値を設定する
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.read_timeout", "0s")
	v.SetDefault("server.write_timeout", "0s")
	v.SetDefault("server.idle_timeout", "0s")
	v.SetDefault("server.shutdown_timeout", "5s")

	v.SetDefault("preview.root", ".")
	v.SetDefault("preview.open_browser", true)
	v.SetDefault("preview.browser_delay", "1s")
	v.SetDefault("preview.list_directories", true)
	v.SetDefault("preview.live_reload", false)
	v.SetDefault("preview.no_cache", true)
	v.SetDefault("preview.cors_origins", []string{})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// bindEnv は環境変数をバインドする
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("PREVIEW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 短縮名も受け付ける
	_ = v.BindEnv("server.port", "PREVIEW_SERVER_PORT", "PORT")
	_ = v.BindEnv("server.host", "PREVIEW_SERVER_HOST", "SERVER_HOST")
	_ = v.BindEnv("config", "PREVIEW_CONFIG")
}

// readConfigFile は設定ファイルを読み込む
// 明示指定がなければカレントディレクトリの preview.* を探し、無ければ何もしない
func readConfigFile(v *viper.Viper) error {
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("設定ファイルの読み込みに失敗: %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigName("preview")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
	}
	return nil
}

// resolveRoot はドキュメントルートを絶対パスに解決し、ディレクトリであることを確認する
func resolveRoot(root string) (string, error) {
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("ドキュメントルートの解決に失敗: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("ドキュメントルートにアクセスできません: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("ドキュメントルートがディレクトリではありません: %s", abs)
	}
	return abs, nil
}

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	return validate.Struct(c)
}

// ServerAddress はサーバーのリッスンアドレスを返す
func (c *Config) ServerAddress() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}
