package parser

import (
	"fmt"
	"strings"
	"testing"

	"github.com/shouni/go-storybook-kit/pkg/domain"

	"github.com/stretchr/testify/assert"
)

func TestParse_HappyPath(t *testing.T) {
	got := Parse("TITLE: Cat\nPAGE 1:\nHello.\nPAGE 2:\nBye.", 2)

	assert.Equal(t, domain.ParsedStory{
		Title: "Cat",
		Pages: []domain.ParsedPage{
			{PageNumber: 1, Text: "Hello."},
			{PageNumber: 2, Text: "Bye."},
		},
	}, got)
}

func TestParse_Padding(t *testing.T) {
	got := Parse("TITLE: X", 3)

	assert.Equal(t, "X", got.Title)
	if assert.Len(t, got.Pages, 3) {
		for i, p := range got.Pages {
			assert.Equal(t, i+1, p.PageNumber)
			assert.Equal(t, FillerText, p.Text)
		}
	}
}

func TestParse_Truncation(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("TITLE: Long\n")
	for i := 1; i <= 6; i++ {
		fmt.Fprintf(&sb, "PAGE %d: text %d\n", i, i)
	}

	got := Parse(sb.String(), 4)
	assert.Len(t, got.Pages, 4)
	assert.Equal(t, "text 4", got.Pages[3].Text)
}

func TestParse_EdgeCases(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected int
		title    string
		texts    []string
	}{
		{
			name:     "空の入力",
			raw:      "",
			expected: 2,
			title:    DefaultTitle,
			texts:    []string{FillerText, FillerText},
		},
		{
			name:     "同じ行の本文と複数行の本文を連結すること",
			raw:      "TITLE:  Spaced Title  \nPAGE 1: First line\nsecond line\n\n  third line  \npage 2:Next",
			expected: 2,
			title:    "Spaced Title",
			texts:    []string{"First line second line third line", "Next"},
		},
		{
			name:     "空のページは捨てられて補完されること",
			raw:      "TITLE: T\nPAGE 1:\nPAGE 2:\nOnly two.",
			expected: 2,
			title:    "T",
			texts:    []string{"Only two.", FillerText},
		},
		{
			name:     "本文のないPAGEだけの入力",
			raw:      "PAGE 1:",
			expected: 1,
			title:    DefaultTitle,
			texts:    []string{FillerText},
		},
		{
			name:     "最初のPAGEより前の行は無視すること",
			raw:      "Here is your story!\nTITLE: Pre\nPAGE 1: a",
			expected: 1,
			title:    "Pre",
			texts:    []string{"a"},
		},
		{
			name:     "ページ内のTITLE行は本文に含めないこと",
			raw:      "PAGE 1: a\nTITLE: Late\nb",
			expected: 1,
			title:    "Late",
			texts:    []string{"a b"},
		},
		{
			name:     "出現順を維持し番号で並べ替えないこと",
			raw:      "PAGE 2: second\nPAGE 1: first",
			expected: 2,
			title:    DefaultTitle,
			texts:    []string{"second", "first"},
		},
		{
			name:     "PAGEと数字の間に空白がなくてもよいこと",
			raw:      "PAGE1: tight\nPage   2: loose",
			expected: 2,
			title:    DefaultTitle,
			texts:    []string{"tight", "loose"},
		},
		{
			name:     "ゼロページ",
			raw:      "TITLE: None\nPAGE 1: a",
			expected: 0,
			title:    "None",
			texts:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.raw, tt.expected)
			assert.Equal(t, tt.title, got.Title)

			texts := make([]string, 0, len(got.Pages))
			for i, p := range got.Pages {
				assert.Equal(t, i+1, p.PageNumber)
				texts = append(texts, p.Text)
			}
			assert.Equal(t, tt.texts, texts)
		})
	}
}

func TestParse_PageCountInvariant(t *testing.T) {
	inputs := []string{
		"",
		"TITLE: X",
		"PAGE 1: a\nPAGE 2: b\nPAGE 3: c",
		"garbage\nmore garbage",
		"PAGE 99999999999999999999: overflow",
	}
	for _, raw := range inputs {
		for n := 0; n <= 8; n++ {
			assert.Len(t, Parse(raw, n).Pages, n, "raw=%q n=%d", raw, n)
		}
	}
	assert.Empty(t, Parse("PAGE 1: a", -1).Pages)
}
