package prompts

import (
	"fmt"
	"strings"

	"github.com/shouni/go-storybook-kit/pkg/domain"
)

// StorySystemPrompt はテキストモデルに渡すシステム指示です。
const StorySystemPrompt = "You are a children's book author who writes engaging, age-appropriate stories with moral lessons. Your stories are vivid, imaginative, and always have happy endings."

// styleReference は全ページ・全物語で共通の画風指示です。
const styleReference = `ART STYLE FOR ALL PAGES (MUST BE CONSISTENT):
- Technique: Watercolor with soft brushstrokes, translucent washes
- Colors: Soft pastel palette - sky blues, soft pinks, mint greens, gentle lavenders
- Background: Light, airy watercolor washes (same style in all pages)
- Mood: Whimsical, gentle, dreamy

CONSISTENCY RULES (VERY IMPORTANT):
- SAME character design in every image (same face, same hair, same body)
- SAME outfit in every image (same clothes, same colors, same design)
- SAME watercolor style in every image
- SAME color palette in every image
- SAME background treatment in every image
- SAME lighting style in every image`

// BuildStyleReference は固定の画風ブロックを返します。
func BuildStyleReference() string {
	return styleReference
}

// BuildCharacterReference は、全ページで主人公の外見を揃えるためのキャラクター指示を構築します。
// 画像モデルは呼び出し間の記憶を持たないため、この文字列を毎回そのまま埋め込みます。
func BuildCharacterReference(child domain.ChildProfile) string {
	genderTerm, outfit := "boy", "shirt and pants"
	if child.IsFemale() {
		genderTerm, outfit = "girl", "dress"
	}

	var sb strings.Builder
	sb.WriteString("CHARACTER CONSISTENCY - MUST FOLLOW EXACTLY IN ALL PAGES:\n")
	fmt.Fprintf(&sb, "Main Character: %s, a %d-year-old %s\n", child.Name, child.Age, genderTerm)
	fmt.Fprintf(&sb, "- Face: %s skin, %s eyes, button nose, warm friendly smile\n", child.SkinTone, child.EyeColor)
	fmt.Fprintf(&sb, "- Hair: %s (exact same style and color in EVERY image)\n", hairDescription(child))
	sb.WriteString("- Body: Same proportions in every image\n")
	fmt.Fprintf(&sb, "- Outfit: %s (exact same outfit in every image - SAME colors, SAME design)\n", outfit)
	sb.WriteString("- Expression: Always happy and engaged, same expression style\n\n")
	sb.WriteString("CRITICAL: The character MUST look like the same person in every single page with the exact same clothes.")
	return sb.String()
}

// BuildCharacterDescription はストーリープロンプト用の主人公の紹介文を返します。
func BuildCharacterDescription(child domain.ChildProfile) string {
	pronoun := "He"
	if child.IsFemale() {
		pronoun = "She"
	}
	hair := child.HairStyle
	if hair == "" {
		hair = "hair"
	}
	return fmt.Sprintf("A %d-year-old %s child named %s with %s skin, %s eyes, and %s %s. %s loves %s.",
		child.Age, child.Gender, child.Name, child.SkinTone, child.EyeColor, child.HairColor, hair,
		pronoun, strings.Join(child.Interests, ", "))
}

func hairDescription(child domain.ChildProfile) string {
	if child.HairStyle != "" {
		return fmt.Sprintf("%s %s hair", child.HairColor, child.HairStyle)
	}
	return fmt.Sprintf("%s hair", child.HairColor)
}
