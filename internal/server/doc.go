// Package server は、ローカルプレビュー用の静的ファイルHTTPサーバーを管理します。
//
// このパッケージは、リスナーの確保、ルーティング、静的ファイルの配信、
// ブラウザの起動、グレースフルシャットダウンを担当します。
//
// 責務:
//   - ポートの確保（確保できなければ起動しない）
//   - ドキュメントルート配下のファイル配信（GET/HEAD のみ）
//   - index.html の解決とディレクトリ一覧
//   - 起動後に一度だけブラウザを開く（失敗してもサーバーは継続）
//   - ライブリロード用スクリプトの挿入とWebSocket配信（有効時）
//
// 仕様:
//   - ルーターはgin、ファイル配信はnet/httpのFileServerを使用
//   - /__preview/ 以下は内部エンドポイント用に予約
//   - ドキュメントルート配下のファイルは一切変更しない
//   - コンテキストのキャンセルでグレースフルシャットダウン
package server
