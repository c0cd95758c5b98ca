package domain

// PlaceholderImage は画像の生成やダウンロードに失敗したページに使われる代替画像です。
const PlaceholderImage = "/placeholder-illustration.svg"

// GenerationRequest は物語生成の1回分の要求です。
type GenerationRequest struct {
	Child         ChildProfile
	MoralID       string
	CustomSetting string
	CustomTheme   string
	// PageCount が 0 の場合は年齢帯の既定値を使います。
	PageCount int
}

// ParsedPage はテキストモデルの応答から取り出した1ページ分の本文です。
type ParsedPage struct {
	PageNumber int
	Text       string
}

// ParsedStory はパース済みの物語です。Pages の長さは要求ページ数と一致します。
type ParsedStory struct {
	Title string
	Pages []ParsedPage
}

// StoryPage は呼び出し元に返す完成したページです。
type StoryPage struct {
	PageNumber int    `json:"page_number"`
	Text       string `json:"text"`
	// ImageURL はモデルが返した参照、または PlaceholderImage。
	ImageURL string `json:"image_url"`
	// ImageBase64 は埋め込み可能な data URI。ダウンロードに失敗した場合は空です。
	ImageBase64 string `json:"image_base64,omitempty"`
}

// HasImage はプレースホルダーではない画像を持つかどうかを返します。
func (p StoryPage) HasImage() bool {
	return p.ImageURL != "" && p.ImageURL != PlaceholderImage
}

// DisplayImage は表示に使う画像を、埋め込み > 元の参照 > プレースホルダーの順で返します。
func (p StoryPage) DisplayImage() string {
	if p.ImageBase64 != "" {
		return p.ImageBase64
	}
	if p.ImageURL != "" {
		return p.ImageURL
	}
	return PlaceholderImage
}

// GeneratedStory は1回の生成で得られる最終結果です。
type GeneratedStory struct {
	Title string      `json:"title"`
	Pages []StoryPage `json:"pages"`
}

// Stage は生成処理の進捗段階です。
type Stage string

const (
	StagePrompt       Stage = "prompt"
	StageText         Stage = "text"
	StageParsed       Stage = "parsed"
	StageIllustrating Stage = "illustrating"
	StageDone         Stage = "done"
)

// Progress は進捗通知の内容です。Current/Total はページ単位の進み具合を表します。
type Progress struct {
	Stage   Stage
	Current int
	Total   int
}
