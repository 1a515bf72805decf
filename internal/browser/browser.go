// Package browser は既定のブラウザでURLを開きます。
package browser

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"
)

// ErrUnsupported はブラウザ起動方法が分からないOSで返される
var ErrUnsupported = errors.New("ブラウザの起動に対応していないOSです")

// Opener はURLを開くインターフェース
type Opener interface {
	Open(url string) error
}

// Func は関数をOpenerとして扱うアダプタ
type Func func(url string) error

// Open はURLを開く
func (f Func) Open(url string) error {
	return f(url)
}

// System はOS標準のコマンドでブラウザを開く
type System struct{}

// Open はブラウザ起動コマンドを開始する
// コマンドの終了は待たない
func (System) Open(url string) error {
	name, args, err := command(runtime.GOOS, url)
	if err != nil {
		return err
	}

	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ブラウザの起動に失敗: %w", err)
	}

	// 子プロセスの回収
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}

// command はOSごとの起動コマンドを返す
func command(goos, url string) (string, []string, error) {
	switch goos {
	case "darwin":
		return "open", []string{url}, nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return "xdg-open", []string{url}, nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}, nil
	default:
		return "", nil, fmt.Errorf("%w: %s", ErrUnsupported, goos)
	}
}
