package asset

import (
	"fmt"
	"path"
	"path/filepath"
	"regexp"

	"github.com/shouni/go-utils/urlpath"
)

// PageFileRegex は保存済みのページ画像 (page_1.png 等) に一致します。
var PageFileRegex = regexp.MustCompile(`^` + regexp.QuoteMeta(pageFileBase) + `_\d+\.(png|jpg|webp|gif|svg)$`)

// ResolveOutputPath は、ベースとなるディレクトリパスと要素から、
// gs:// などのスキームとローカルを考慮した最終的な出力パスを生成します。
func ResolveOutputPath(baseDir string, elems ...string) (string, error) {
	out := baseDir
	for _, e := range elems {
		if e == "" {
			continue
		}
		var err error
		out, err = urlpath.ResolvePath(out, e)
		if err != nil {
			return "", fmt.Errorf("出力パスの解決に失敗しました (%s): %w", e, err)
		}
	}
	return out, nil
}

// IsRemotePath はローカルファイルシステム以外の保存先かどうかを返します。
func IsRemotePath(p string) bool {
	return urlpath.IsRemoteURI(p)
}

// RelativeImagePath は Markdown から参照する画像の相対パスを返します。例: "images/page_1.png"
func RelativeImagePath(fullPath string) string {
	return path.Join(DefaultImageDir, path.Base(filepath.ToSlash(fullPath)))
}
