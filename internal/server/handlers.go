package server

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// InternalPrefix は内部エンドポイント用に予約されたパス
const InternalPrefix = "/__preview"

// setupRoutes はHTTPルートを設定する
func (s *Server) setupRoutes() {
	s.engine.Use(RequestID(), AccessLog(s.log), Recovery(s.log))
	if len(s.config.Preview.CORSOrigins) > 0 {
		s.engine.Use(CORS(s.config.Preview.CORSOrigins))
	}

	internal := s.engine.Group(InternalPrefix)
	{
		internal.GET("/health", s.handleHealth)
		internal.GET("/status", s.handleStatus)

		if s.hub != nil {
			internal.GET("/livereload.js", s.handleLiveReloadScript)
			internal.GET("/livereload", gin.WrapF(s.hub.ServeWS))
		}
	}

	// それ以外は全てドキュメントルートから配信する
	s.engine.NoRoute(NoCache(s.config.Preview.NoCache), s.handleStatic)
}

// handleHealth はヘルスチェックエンドポイント
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// handleStatus はステータス確認エンドポイント
func (s *Server) handleStatus(c *gin.Context) {
	clients := 0
	if s.hub != nil {
		clients = s.hub.ClientCount()
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "running",
		"server": gin.H{
			"host": s.config.Server.Host,
			"port": s.port(),
			"url":  s.URL(),
		},
		"root":              s.config.Preview.Root,
		"list_directories":  s.config.Preview.ListDirectories,
		"live_reload":       s.hub != nil,
		"live_reload_peers": clients,
		"uptime":            s.uptime().Round(time.Second).String(),
		"timestamp":         time.Now().Format(time.RFC3339),
	})
}

// handleLiveReloadScript はライブリロード用のクライアントスクリプトを返す
func (s *Server) handleLiveReloadScript(c *gin.Context) {
	c.Data(http.StatusOK, "text/javascript; charset=utf-8", liveReloadScript)
}

// handleStatic はドキュメントルートのファイルを配信する
func (s *Server) handleStatic(c *gin.Context) {
	r := c.Request

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		c.Header("Allow", "GET, HEAD")
		c.AbortWithStatus(http.StatusMethodNotAllowed)
		return
	}

	// 予約パスはファイルとして扱わない
	if r.URL.Path == InternalPrefix || strings.HasPrefix(r.URL.Path, InternalPrefix+"/") {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}

	name, info, viaIndex, err := s.lookup(r.URL.Path)
	if err == nil {
		if info.IsDir() && !s.config.Preview.ListDirectories {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}

		// ディレクトリのスラッシュ補完と /index.html のリダイレクトはFileServerに任せる
		redirect := (viaIndex && !strings.HasSuffix(r.URL.Path, "/")) ||
			strings.HasSuffix(r.URL.Path, "/index.html")
		if s.hub != nil && !info.IsDir() && isHTML(name) && !redirect {
			s.serveInjected(c, name)
			return
		}
	}

	// NoRouteでは404が既定値になっている
	// ディレクトリ一覧はWriteHeaderを呼ばないため200に戻しておく
	c.Status(http.StatusOK)
	s.files.ServeHTTP(c.Writer, r)
}

// lookup はURLパスをドキュメントルート上のファイルに解決する
// ディレクトリに index.html があればそちらを返す
func (s *Server) lookup(urlPath string) (string, fs.FileInfo, bool, error) {
	name := path.Clean("/" + urlPath)

	info, err := s.stat(name)
	if err != nil || !info.IsDir() {
		return name, info, false, err
	}

	index := path.Join(name, "index.html")
	if indexInfo, err := s.stat(index); err == nil && !indexInfo.IsDir() {
		return index, indexInfo, true, nil
	}
	return name, info, false, nil
}

func (s *Server) stat(name string) (fs.FileInfo, error) {
	f, err := s.fs.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.Stat()
}

// serveInjected はライブリロード用スクリプトを挿入したHTMLを返す
// ディスク上のファイルは変更しない
func (s *Server) serveInjected(c *gin.Context, name string) {
	f, err := s.fs.Open(name)
	if err != nil {
		c.AbortWithStatus(statusForError(err))
		return
	}
	defer f.Close()

	body, err := io.ReadAll(f)
	if err != nil {
		s.log.Errorw("ファイルの読み込みに失敗", "path", name, "error", err)
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	// 更新日時は付けない (再読み込み時に304を返さない)
	http.ServeContent(c.Writer, c.Request, name, time.Time{}, bytes.NewReader(injectLiveReload(body)))
}

func isHTML(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	return ext == ".html" || ext == ".htm"
}

// statusForError はファイルアクセスのエラーをHTTPステータスに変換する
func statusForError(err error) int {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, fs.ErrPermission):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
