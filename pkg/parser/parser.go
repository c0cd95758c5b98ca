package parser

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/shouni/go-storybook-kit/pkg/domain"
)

// Parse はテキストモデルの応答をタイトルとページのリストに変換します。
// 結果のページ数は常に expectedPageCount と一致し、ページ番号は 1 から位置順に振り直されます。
// ページは出現順に並び、番号順のソートはしません。本文が空のページは捨てられ、補完の対象になります。
func Parse(raw string, expectedPageCount int) domain.ParsedStory {
	if expectedPageCount < 0 {
		expectedPageCount = 0
	}

	story := domain.ParsedStory{Title: DefaultTitle}
	titleFound := false

	var (
		current *domain.ParsedPage
		buf     []string
		dropped int
	)

	// 前のページを確定して追加するヘルパー関数
	addPreviousPage := func() {
		if current == nil {
			return
		}
		text := strings.TrimSpace(strings.Join(buf, " "))
		if text == "" {
			dropped++
		} else {
			current.Text = text
			story.Pages = append(story.Pages, *current)
		}
		current, buf = nil, nil
	}

	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if strings.HasPrefix(trimmed, TitlePrefix) {
			if !titleFound {
				if title := strings.TrimSpace(strings.TrimPrefix(trimmed, TitlePrefix)); title != "" {
					story.Title = title
				}
				titleFound = true
			}
			continue
		}

		if loc := PageRegex.FindStringSubmatchIndex(trimmed); loc != nil {
			addPreviousPage()
			n, err := strconv.Atoi(trimmed[loc[2]:loc[3]])
			if err != nil {
				// 桁あふれ。位置で振り直されるので 0 で保持しておく
				n = 0
			}
			current = &domain.ParsedPage{PageNumber: n}
			if rest := strings.TrimSpace(trimmed[loc[1]:]); rest != "" {
				buf = append(buf, rest)
			}
			continue
		}

		// 最初の PAGE より前の行は無視する
		if current != nil {
			buf = append(buf, trimmed)
		}
	}
	addPreviousPage()

	parsed := len(story.Pages)
	for len(story.Pages) < expectedPageCount {
		story.Pages = append(story.Pages, domain.ParsedPage{Text: FillerText})
	}
	story.Pages = story.Pages[:expectedPageCount]

	for i := range story.Pages {
		story.Pages[i].PageNumber = i + 1
	}

	if parsed != expectedPageCount || dropped > 0 {
		slog.Debug("ページ数を補正しました",
			"parsed", parsed,
			"expected", expectedPageCount,
			"dropped_empty", dropped)
	}
	return story
}
