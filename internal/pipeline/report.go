package pipeline

import (
	"fmt"
	"strings"

	"github.com/shouni/go-storybook-kit/internal/runner"
	"github.com/shouni/go-storybook-kit/pkg/domain"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

func newTable(title string, header table.Row) table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	if title != "" {
		tw.SetTitle("%s", title)
	}
	tw.AppendHeader(header)
	return tw
}

// RenderMorals は教訓の一覧を表にするのだ。
func RenderMorals() string {
	tw := newTable("Morals", table.Row{"ID", "Label", "Description"})
	for _, m := range domain.Morals() {
		tw.AppendRow(table.Row{m.ID, m.Label, m.Description})
	}
	return tw.Render()
}

// RenderAges は年齢帯ごとの設定を表にするのだ。
func RenderAges() string {
	tw := newTable("Age groups", table.Row{"Group", "Pages", "Words/page", "Vocabulary", "Themes"})
	for _, s := range domain.AllAgeSettings() {
		tw.AppendRow(table.Row{
			s.Group,
			s.PageCount,
			fmt.Sprintf("%d-%d", s.WordsPerPage.Min, s.WordsPerPage.Max),
			s.Vocabulary,
			strings.Join(s.Themes, ", "),
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 5, WidthMax: 48},
	})
	return tw.Render()
}

// RenderSummary は生成結果をページごとの表にするのだ。
func RenderSummary(runID string, story domain.GeneratedStory, result runner.PublishResult) string {
	tw := newTable(story.Title, table.Row{"Page", "Words", "Image", "Audio"})
	illustrated := 0
	for i, page := range story.Pages {
		audio := "-"
		if i < len(result.AudioPaths) && result.AudioPaths[i] != "" {
			audio = "ok"
		}
		if page.HasImage() {
			illustrated++
		}
		tw.AppendRow(table.Row{page.PageNumber, len(strings.Fields(page.Text)), imageStatus(page), audio})
	}
	tw.AppendFooter(table.Row{"", "", fmt.Sprintf("%d/%d", illustrated, len(story.Pages)), ""})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 2, Align: text.AlignRight},
	})
	tw.SetCaption("run %s -> %s", runID, result.Dir)
	return tw.Render()
}

func imageStatus(page domain.StoryPage) string {
	switch {
	case page.ImageBase64 != "":
		return "embedded"
	case page.HasImage():
		return "remote"
	default:
		return "placeholder"
	}
}
