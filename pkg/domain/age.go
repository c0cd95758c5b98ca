package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidPageCount は許容範囲外のページ数が指定された場合に返されます。
var ErrInvalidPageCount = errors.New("invalid page count")

const (
	// MinPageCount と MaxPageCount は明示的に指定できるページ数の範囲です。
	MinPageCount = 4
	MaxPageCount = 16
)

// WordRange は1ページあたりの目標単語数です。
type WordRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// AgeSettings は年齢帯ごとの物語の設定です。
type AgeSettings struct {
	Group             string    `json:"group"`
	PageCount         int       `json:"page_count"`
	WordsPerPage      WordRange `json:"words_per_page"`
	Vocabulary        string    `json:"vocabulary"`
	Themes            []string  `json:"themes"`
	SentenceStructure string    `json:"sentence_structure"`
}

// ageBracket は上限年齢と設定の組です。maxAge が 0 の場合は上限なし。
type ageBracket struct {
	maxAge   int
	settings AgeSettings
}

// 上限の昇順に並べること。
var ageBrackets = []ageBracket{
	{maxAge: 3, settings: AgeSettings{
		Group:             "2-3",
		PageCount:         4,
		WordsPerPage:      WordRange{Min: 20, Max: 30},
		Vocabulary:        "simple",
		Themes:            []string{"colors", "animals", "family", "bedtime"},
		SentenceStructure: "very short, repetitive sentences with familiar words",
	}},
	{maxAge: 5, settings: AgeSettings{
		Group:             "4-5",
		PageCount:         4,
		WordsPerPage:      WordRange{Min: 40, Max: 50},
		Vocabulary:        "basic",
		Themes:            []string{"friendship", "sharing", "bravery", "helping"},
		SentenceStructure: "short sentences with some simple dialogue",
	}},
	{maxAge: 7, settings: AgeSettings{
		Group:             "6-7",
		PageCount:         6,
		WordsPerPage:      WordRange{Min: 60, Max: 80},
		Vocabulary:        "intermediate",
		Themes:            []string{"adventure", "problem-solving", "kindness", "curiosity"},
		SentenceStructure: "varied sentence lengths with engaging dialogue",
	}},
	{maxAge: 0, settings: AgeSettings{
		Group:             "8-10",
		PageCount:         6,
		WordsPerPage:      WordRange{Min: 100, Max: 120},
		Vocabulary:        "advanced",
		Themes:            []string{"perseverance", "honesty", "empathy", "responsibility"},
		SentenceStructure: "complex sentences with rich descriptions and dialogue",
	}},
}

// SettingsForAge は年齢に対応する年齢帯の設定を返します。
// テーマのスライスは呼び出し元が変更しても影響しないようにコピーします。
func SettingsForAge(age int) AgeSettings {
	for _, b := range ageBrackets {
		if b.maxAge == 0 || age <= b.maxAge {
			s := b.settings
			s.Themes = append([]string(nil), b.settings.Themes...)
			return s
		}
	}
	// ageBrackets の末尾は上限なしなので到達しない
	return AgeSettings{}
}

// AgeGroup は年齢帯のラベル（"4-5" など）を返します。
func AgeGroup(age int) string {
	return SettingsForAge(age).Group
}

// AllAgeSettings は全年齢帯の設定を若い順に返します。
func AllAgeSettings() []AgeSettings {
	out := make([]AgeSettings, 0, len(ageBrackets))
	for _, b := range ageBrackets {
		s := b.settings
		s.Themes = append([]string(nil), b.settings.Themes...)
		out = append(out, s)
	}
	return out
}

// ValidatePageCount は明示的なページ数が許容範囲内か確認します。
func ValidatePageCount(n int) error {
	if n < MinPageCount || n > MaxPageCount {
		return fmt.Errorf("%w: %d is out of range [%d, %d]", ErrInvalidPageCount, n, MinPageCount, MaxPageCount)
	}
	return nil
}
