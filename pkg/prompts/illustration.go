package prompts

import (
	"fmt"
	"strings"

	"github.com/shouni/go-storybook-kit/pkg/domain"
)

// SceneExcerptLimit はイラストプロンプトに埋め込む本文の最大文字数です。
const SceneExcerptLimit = 250

// NoTextRule は画像内に文字を描かせないための指示です。
const NoTextRule = `CRITICAL REQUIREMENTS:
- ABSOLUTELY NO TEXT, letters, words, numbers, signs, labels, captions, titles, or any written content anywhere in the image
- No speech bubbles, no banners, no signs with writing
- Pure illustration only - let the visuals tell the story without any text elements`

// ムードはページの位置で決まります。
const (
	MoodOpening = "warm, welcoming, full of wonder"
	MoodFinale  = "triumphant, heartwarming, satisfying"
	MoodPivotal = "magical, pivotal"
	MoodDefault = "cheerful, engaging"
)

// PageMood はページ位置に応じたムードを返します。
// 1ページ目と最終ページの判定が中間ページより優先されます。
func PageMood(pageNumber, totalPages int) string {
	switch {
	case pageNumber == 1:
		return MoodOpening
	case pageNumber == totalPages:
		return MoodFinale
	case pageNumber == totalPages/2:
		return MoodPivotal
	default:
		return MoodDefault
	}
}

// IllustrationInput は1ページ分のイラストプロンプトの入力です。
type IllustrationInput struct {
	CharacterRef string
	StyleRef     string
	Page         domain.ParsedPage
	TotalPages   int
	ChildName    string
}

// BuildIllustrationPrompt はページごとのイラストプロンプトを構築します。
// 画風とキャラクターのブロックは毎回そのまま埋め込みます。
func BuildIllustrationPrompt(in IllustrationInput) string {
	var sb strings.Builder
	sb.WriteString(in.StyleRef)
	sb.WriteString("\n\n")
	sb.WriteString(in.CharacterRef)
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "PAGE %d of %d:\n", in.Page.PageNumber, in.TotalPages)
	fmt.Fprintf(&sb, "Scene: %s\n\n", excerpt(in.Page.Text, SceneExcerptLimit))
	fmt.Fprintf(&sb, "Mood: %s\n\n", PageMood(in.Page.PageNumber, in.TotalPages))

	name := in.ChildName
	if name == "" {
		name = "the child"
	}
	fmt.Fprintf(&sb, "REMEMBER: This is part of a %d-page story. The main character %s MUST look exactly the same in this image as in all other pages with the exact same clothes.\n\n", in.TotalPages, name)
	sb.WriteString(NoTextRule)
	return sb.String()
}

// excerpt はルーン単位で最大 limit 文字に切り詰めます。
func excerpt(text string, limit int) string {
	r := []rune(text)
	if len(r) <= limit {
		return text
	}
	return string(r[:limit])
}
