package livereload

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// DefaultDelay は変更通知をまとめる既定の待ち時間
const DefaultDelay = 100 * time.Millisecond

// 監視しないディレクトリ名
var skipDirs = []string{".git", "node_modules"}

// Watcher はドキュメントルート配下の変更を監視する
type Watcher struct {
	root      string
	log       *zap.SugaredLogger
	fsw       *fsnotify.Watcher
	debounced func(f func())
	onChange  func()
}

// NewWatcher はroot配下を再帰的に監視するWatcherを作成する
// 変更はdelayの間まとめられ、onChangeが一度だけ呼ばれる
func NewWatcher(root string, delay time.Duration, onChange func(), log *zap.SugaredLogger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("ファイル監視の作成に失敗: %w", err)
	}

	w := &Watcher{
		root:      root,
		log:       log,
		fsw:       fsw,
		debounced: debounce.New(delay),
		onChange:  onChange,
	}

	if err := w.addTree(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run はイベントループを実行する
// ctxがキャンセルされるかCloseされるまでブロックする
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warnw("ファイル監視でエラーが発生しました", "error", err)
		}
	}
}

// Close は監視を終了する
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// handle は1件のイベントを処理する
func (w *Watcher) handle(ev fsnotify.Event) {
	if ev.Op == fsnotify.Chmod || w.skipped(ev.Name) {
		return
	}

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addTree(ev.Name); err != nil {
				w.log.Warnw("ディレクトリの監視追加に失敗", "path", ev.Name, "error", err)
			}
		}
	}

	w.log.Debugw("変更を検知しました", "path", ev.Name, "op", ev.Op.String())
	w.debounced(w.onChange)
}

// addTree はdir以下の全ディレクトリを監視対象に追加する
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return fmt.Errorf("ディレクトリの走査に失敗: %w", err)
			}
			// 読めないサブディレクトリは無視する
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && lo.Contains(skipDirs, d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("監視の追加に失敗: %s: %w", path, err)
		}
		return nil
	})
}

// skipped はpathが監視対象外のディレクトリ配下かどうかを返す
func (w *Watcher) skipped(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	return lo.SomeBy(parts, func(p string) bool {
		return lo.Contains(skipDirs, p)
	})
}
