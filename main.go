package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"preview/internal/config"
	"preview/internal/logger"
	"preview/internal/server"
)

func main() {
	// 設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	// ロガーを作成
	logg, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("ロガーの作成に失敗しました: %v", err)
	}
	defer func() { _ = logg.Sync() }()

	gin.SetMode(gin.ReleaseMode)

	// サーバーを作成
	srv := server.New(cfg, logg)

	// 割り込みでキャンセルされるコンテキスト
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ポートを確保できなければここで終了する
	if err := srv.Listen(); err != nil {
		logg.Fatalw("サーバーの起動に失敗しました", "error", err)
	}

	if err := srv.Start(ctx); err != nil {
		logg.Fatalw("サーバーが異常終了しました", "error", err)
	}
}
