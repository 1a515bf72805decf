package server

import (
	"bytes"
	_ "embed"
)

//go:embed assets/livereload.js
var liveReloadScript []byte

// liveReloadTag はHTMLに挿入するスクリプトタグ
var liveReloadTag = []byte(`<script src="` + InternalPrefix + `/livereload.js"></script>`)

// injectLiveReload はHTMLの </body> 直前にライブリロード用スクリプトを挿入する
// </body> が無ければ末尾に追加する
func injectLiveReload(html []byte) []byte {
	out := make([]byte, 0, len(html)+len(liveReloadTag)+1)

	idx := bytes.LastIndex(bytes.ToLower(html), []byte("</body>"))
	if idx < 0 {
		out = append(out, html...)
		if len(html) > 0 && html[len(html)-1] != '\n' {
			out = append(out, '\n')
		}
		return append(out, liveReloadTag...)
	}

	out = append(out, html[:idx]...)
	out = append(out, liveReloadTag...)
	return append(out, html[idx:]...)
}
