package prompts

import (
	_ "embed"
	"fmt"
	"math/rand/v2"
	"strings"
	"text/template"

	"github.com/shouni/go-storybook-kit/pkg/domain"
)

// DefaultSetting はカスタム設定がない場合の舞台です。
const DefaultSetting = "a magical world"

//go:embed story.md
var storyPromptTemplate string

var storyTemplate = template.Must(template.New("story").Parse(storyPromptTemplate))

// ThemePicker はテーマ候補から1つを選ぶ関数です。テストでは固定値を返すものに差し替えます。
type ThemePicker func(pool []string) string

// RandomTheme はテーマ候補から疑似乱数で1つ選びます。
func RandomTheme(pool []string) string {
	if len(pool) == 0 {
		return ""
	}
	return pool[rand.IntN(len(pool))]
}

// StoryInput は BuildStoryPrompt に渡す構造化された入力です。
type StoryInput struct {
	Child         domain.ChildProfile
	Moral         domain.Moral
	Settings      domain.AgeSettings
	CustomSetting string
	CustomTheme   string
	PageCount     int
}

// storyTemplateData は story.md に渡すデータです。
type storyTemplateData struct {
	Age                  int
	Name                 string
	CharacterDescription string
	PageCount            int
	WordsMin             int
	WordsMax             int
	Vocabulary           string
	SentenceStructure    string
	MoralLabel           string
	MoralLower           string
	MoralDescription     string
	Setting              string
	Theme                string
	Interests            string
}

// StoryPromptBuilder はストーリー本文生成用のプロンプトを組み立てます。
type StoryPromptBuilder struct {
	pickTheme ThemePicker
}

// NewStoryPromptBuilder は StoryPromptBuilder を生成します。picker が nil の場合は RandomTheme を使います。
func NewStoryPromptBuilder(picker ThemePicker) *StoryPromptBuilder {
	if picker == nil {
		picker = RandomTheme
	}
	return &StoryPromptBuilder{pickTheme: picker}
}

// Build は入力から `TITLE:` と `PAGE n:` の出力形式を指定したプロンプトを生成します。
// PageCount が 0 以下の場合は年齢帯の既定値を使います。
func (b *StoryPromptBuilder) Build(in StoryInput) (string, error) {
	setting := in.CustomSetting
	if strings.TrimSpace(setting) == "" {
		setting = DefaultSetting
	}
	theme := in.CustomTheme
	if strings.TrimSpace(theme) == "" {
		theme = b.pickTheme(in.Settings.Themes)
	}
	pageCount := in.PageCount
	if pageCount <= 0 {
		pageCount = in.Settings.PageCount
	}

	data := storyTemplateData{
		Age:                  in.Child.Age,
		Name:                 in.Child.Name,
		CharacterDescription: BuildCharacterDescription(in.Child),
		PageCount:            pageCount,
		WordsMin:             in.Settings.WordsPerPage.Min,
		WordsMax:             in.Settings.WordsPerPage.Max,
		Vocabulary:           in.Settings.Vocabulary,
		SentenceStructure:    in.Settings.SentenceStructure,
		MoralLabel:           in.Moral.Label,
		MoralLower:           strings.ToLower(in.Moral.Label),
		MoralDescription:     in.Moral.Description,
		Setting:              setting,
		Theme:                theme,
		Interests:            strings.Join(in.Child.Interests, ", "),
	}

	var sb strings.Builder
	if err := storyTemplate.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("プロンプトテンプレートの実行に失敗しました: %w", err)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// BuildStoryPrompt はランダムなテーマ選択で StoryPromptBuilder.Build を呼ぶ簡易関数です。
func BuildStoryPrompt(in StoryInput) (string, error) {
	return NewStoryPromptBuilder(nil).Build(in)
}
