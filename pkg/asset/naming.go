package asset

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultImageDir は保存する画像のディレクトリ名です。
	DefaultImageDir = "images"
	// DefaultAudioDir は朗読音声のディレクトリ名です。
	DefaultAudioDir = "audio"
	// DefaultStoryJSON は物語データの JSON ファイル名です。
	DefaultStoryJSON = "story.json"
	// DefaultStoryMarkdown は物語の Markdown ファイル名です。
	DefaultStoryMarkdown = "story.md"
	// DefaultMetadataName はレビュー用メタデータのファイル名です。
	DefaultMetadataName = "metadata.json"

	pageFileBase    = "page"
	maxSlugLength   = 48
	fallbackSegment = "story"
)

var (
	nonSlugChars = regexp.MustCompile(`[^a-z0-9-]+`)
	multiHyphen  = regexp.MustCompile(`-{2,}`)
)

// PageFileName はページ番号と拡張子からファイル名を返します。例: 1, ".png" -> "page_1.png"
func PageFileName(pageNumber int, ext string) string {
	return fmt.Sprintf("%s_%d%s", pageFileBase, pageNumber, ext)
}

// StoryFolderName は物語のタイトルと子どもの名前から、ファイルシステムで安全なフォルダ名を作ります。
// 例: "Mia's Brave Day", "Mia" -> "mia_mia-s-brave-day"
func StoryFolderName(title, childName string) string {
	return slugify(childName) + "_" + slugify(title)
}

// slugify は Unicode 文字列をアクセントを除いた ASCII のスラッグに変換します。
func slugify(s string) string {
	t := transform.Chain(norm.NFD, transform.RemoveFunc(isMn))
	result, _, err := transform.String(t, s)
	if err != nil {
		result = s
	}
	result = strings.ToLower(result)
	result = nonSlugChars.ReplaceAllString(result, "-")
	result = multiHyphen.ReplaceAllString(result, "-")
	result = strings.Trim(result, "-")

	if len(result) > maxSlugLength {
		result = strings.TrimRight(result[:maxSlugLength], "-")
	}
	if result == "" {
		return fallbackSegment
	}
	return result
}

func isMn(r rune) bool {
	return unicode.Is(unicode.Mn, r)
}
