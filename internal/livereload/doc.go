// Package livereload は、ドキュメントルートの変更を検知して
// 開いているページに再読み込みを通知します。
//
// 責務:
//   - fsnotifyによるドキュメントルート配下の再帰的な監視
//   - 連続するイベントのまとめ込み（debounce）
//   - WebSocketクライアントの管理と reload メッセージの配信
//
// 仕様:
//   - .git と node_modules は監視しない
//   - 新しく作成されたディレクトリは自動的に監視対象に追加する
//   - ファイルの内容は一切変更しない
package livereload
