package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"preview/internal/browser"
	"preview/internal/config"
	"preview/internal/livereload"
)

// ErrAlreadyListening は同じインスタンスで二度 Listen した場合に返される
var ErrAlreadyListening = errors.New("サーバーは既にリッスンしています")

// Server はプレビューサーバーを管理する構造体
type Server struct {
	config     *config.Config
	log        *zap.SugaredLogger
	engine     *gin.Engine
	httpServer *http.Server
	files      http.Handler
	fs         http.FileSystem
	opener     browser.Opener
	hub        *livereload.Hub

	mu        sync.Mutex
	listener  net.Listener
	startedAt time.Time
}

// Option はServerの生成オプション
type Option func(*Server)

// WithOpener はブラウザを開く実装を差し替える
func WithOpener(o browser.Opener) Option {
	return func(s *Server) {
		s.opener = o
	}
}

// New は新しいServerインスタンスを作成する
// この時点ではポートを確保しない
func New(cfg *config.Config, log *zap.SugaredLogger, opts ...Option) *Server {
	s := &Server{
		config: cfg,
		log:    log,
		engine: gin.New(),
		fs:     gin.Dir(cfg.Preview.Root, cfg.Preview.ListDirectories),
		opener: browser.System{},
	}
	s.files = http.FileServer(s.fs)
	if cfg.Preview.LiveReload {
		s.hub = livereload.NewHub(log)
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         cfg.ServerAddress(),
		Handler:      s.engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s
}

// Handler はルーターを返す
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Listen はポートを確保する
// ポートが使用中の場合はすぐにエラーを返す
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return ErrAlreadyListening
	}

	ln, err := net.Listen("tcp", s.config.ServerAddress())
	if err != nil {
		return fmt.Errorf("%s のリッスンに失敗: %w", s.config.ServerAddress(), err)
	}
	s.listener = ln
	return nil
}

// Addr は確保したアドレスを返す
// Listen前はnil
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// URL はブラウザで開くURLを返す
func (s *Server) URL() string {
	host := s.config.Server.Host
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "localhost"
	}

	return "http://" + net.JoinHostPort(host, strconv.Itoa(s.port())) + "/"
}

// port は実際に確保したポート番号を返す
func (s *Server) port() int {
	if addr, ok := s.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return s.config.Server.Port
}

// Start はサーバーを起動する
// ctxがキャンセルされるまでブロックし、その後グレースフルにシャットダウンする
func (s *Server) Start(ctx context.Context) error {
	if s.Addr() == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	ln := s.listener
	s.startedAt = time.Now()
	s.mu.Unlock()

	// シャットダウン用のチャンネル
	serveErrCh := make(chan error, 1)

	// サーバーを別ゴルーチンで起動
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- fmt.Errorf("サーバーの実行に失敗: %w", err)
		}
	}()

	s.log.Infow("プレビューサーバーを起動しました", "url", s.URL(), "root", s.config.Preview.Root)
	s.log.Info("Ctrl+C で停止します")

	runCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup

	watcher := s.startWatcher(runCtx, &wg)

	if s.config.Preview.OpenBrowser {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.openBrowser(runCtx)
		}()
	}

	var err error
	select {
	case <-ctx.Done():
		s.log.Info("停止要求を受け付けました")
	case err = <-serveErrCh:
		s.log.Errorw("サーバーが異常終了しました", "error", err)
	}

	cancel()
	if watcher != nil {
		_ = watcher.Close()
	}
	wg.Wait()

	if shutdownErr := s.Shutdown(); shutdownErr != nil && err == nil {
		err = shutdownErr
	}
	return err
}

// Shutdown はサーバーをグレースフルにシャットダウンする
func (s *Server) Shutdown() error {
	s.log.Info("サーバーをシャットダウンしています...")

	// ハイジャック済みのWebSocket接続はhttp.Serverでは閉じられない
	if s.hub != nil {
		s.hub.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("サーバーのシャットダウンに失敗: %w", err)
	}

	// Serve前に呼ばれた場合もポートを解放する
	s.mu.Lock()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.mu.Unlock()

	s.log.Info("サーバーが正常にシャットダウンされました")
	return nil
}

// startWatcher はライブリロード用のファイル監視を開始する
// 監視を開始できなくても配信は続ける
func (s *Server) startWatcher(ctx context.Context, wg *sync.WaitGroup) *livereload.Watcher {
	if s.hub == nil {
		return nil
	}

	watcher, err := livereload.NewWatcher(s.config.Preview.Root, livereload.DefaultDelay, func() {
		n := s.hub.Broadcast()
		s.log.Debugw("再読み込みを通知しました", "clients", n)
	}, s.log)
	if err != nil {
		s.log.Warnw("ファイル監視を開始できません。ライブリロードは無効です", "error", err)
		return nil
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		watcher.Run(ctx)
	}()
	return watcher
}

// openBrowser は待機時間の後に一度だけブラウザを開く
func (s *Server) openBrowser(ctx context.Context) {
	timer := time.NewTimer(s.config.Preview.BrowserDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	url := s.URL()
	if err := s.opener.Open(url); err != nil {
		s.log.Warnw("ブラウザを開けませんでした。手動でアクセスしてください", "url", url, "error", err)
		return
	}
	s.log.Infow("ブラウザを開きました", "url", url)
}

// uptime は起動からの経過時間を返す
func (s *Server) uptime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.startedAt.IsZero() {
		return 0
	}
	return time.Since(s.startedAt)
}
