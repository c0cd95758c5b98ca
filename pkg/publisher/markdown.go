package publisher

import (
	"fmt"
	"strings"

	"github.com/shouni/go-storybook-kit/pkg/domain"
)

// BuildMarkdown は物語を1ページ1セクションの Markdown に変換します。
// imagePaths はページと同じ順序で、空の要素はページの参照（またはプレースホルダー）で補います。
func BuildMarkdown(story domain.GeneratedStory, meta Metadata, imagePaths []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", story.Title)
	if meta.ChildName != "" {
		fmt.Fprintf(&sb, "_A story for %s about %s._\n\n", meta.ChildName, strings.ToLower(meta.MoralLabel))
	}

	for i, page := range story.Pages {
		img := ""
		if i < len(imagePaths) {
			img = imagePaths[i]
		}
		if img == "" {
			img = linkableImage(page)
		}

		fmt.Fprintf(&sb, "## Page %d\n\n", page.PageNumber)
		fmt.Fprintf(&sb, "![Page %d](%s)\n\n", page.PageNumber, img)
		sb.WriteString(strings.TrimSpace(page.Text))
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// linkableImage は Markdown に埋め込める画像参照を返します。data URI は長すぎるため使いません。
func linkableImage(page domain.StoryPage) string {
	if page.ImageURL != "" {
		return page.ImageURL
	}
	return domain.PlaceholderImage
}
