// Package main はプレビューサーバーコマンドの実装です
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"preview/internal/config"
	"preview/internal/logger"
	"preview/internal/server"
)

func main() {
	// コマンドラインオプション
	fs := pflag.NewFlagSet("server", pflag.ExitOnError)
	fs.String("host", "", "サーバーのホスト (デフォルト: 全インターフェース)")
	fs.Int("port", config.DefaultPort, "サーバーのポート")
	fs.String("root", ".", "配信するディレクトリ")
	fs.String("config", "", "設定ファイル (yaml/toml/json)")
	fs.Bool("no-browser", false, "起動時にブラウザを開かない")
	fs.Bool("live-reload", false, "ファイル変更時にページを再読み込みする")
	fs.Bool("no-listing", false, "ディレクトリ一覧を表示しない")
	fs.String("log-level", "info", "ログレベル (debug, info, warn, error)")
	help := fs.BoolP("help", "h", false, "ヘルプを表示")

	_ = fs.Parse(os.Args[1:])

	// ヘルプ表示
	if *help {
		fmt.Println("Static preview server")
		fmt.Println()
		fmt.Println("使用方法:")
		fmt.Println("  server [オプション]")
		fmt.Println()
		fmt.Println("オプション:")
		fs.PrintDefaults()
		os.Exit(0)
	}

	// 指定されたフラグだけが設定を上書きする
	v := viper.New()
	bindings := map[string]string{
		"server.host":         "host",
		"server.port":         "port",
		"preview.root":        "root",
		"preview.live_reload": "live-reload",
		"config":              "config",
		"log.level":           "log-level",
	}
	for key, flag := range bindings {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			log.Fatalf("フラグのバインドに失敗しました: %v", err)
		}
	}
	if noBrowser, _ := fs.GetBool("no-browser"); noBrowser {
		v.Set("preview.open_browser", false)
	}
	if noListing, _ := fs.GetBool("no-listing"); noListing {
		v.Set("preview.list_directories", false)
	}

	// 設定を読み込む
	cfg, err := config.LoadFrom(v)
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	logg, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("ロガーの作成に失敗しました: %v", err)
	}
	defer func() { _ = logg.Sync() }()

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := server.New(cfg, logg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logg.Debugw("設定を読み込みました", "address", cfg.ServerAddress(), "config", v.ConfigFileUsed())
	if err := srv.Listen(); err != nil {
		logg.Fatalw("サーバーの起動に失敗しました", "error", err)
	}

	if err := srv.Start(ctx); err != nil {
		logg.Fatalw("サーバーが異常終了しました", "error", err)
	}
}
