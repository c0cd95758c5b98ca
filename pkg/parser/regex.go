package parser

import "regexp"

var (
	// PageRegex は "PAGE 1:" 形式のページ区切りを大文字小文字を区別せずにキャプチャします。
	PageRegex = regexp.MustCompile(`(?i)^PAGE\s*(\d+):`)
)

const (
	// TitlePrefix はタイトル行の接頭辞です。
	TitlePrefix = "TITLE:"
	// DefaultTitle はタイトル行がない場合のタイトルです。
	DefaultTitle = "A Magical Adventure"
	// FillerText はページが足りない場合に補うテキストです。
	FillerText = "The End."
)
