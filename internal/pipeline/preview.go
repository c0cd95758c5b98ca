package pipeline

import (
	"fmt"
	"io"

	"github.com/shouni/go-storybook-kit/internal/config"
	"github.com/shouni/go-storybook-kit/internal/runner"
	"github.com/shouni/go-storybook-kit/pkg/generator"
	"github.com/shouni/go-storybook-kit/pkg/prompts"
)

// Preview はモデルを呼び出さずに、生成に使うプロンプトと参照テキストを out に書き出すのだ。
func Preview(opts config.GenerateOptions, out io.Writer) error {
	req, err := runner.BuildRequest(opts)
	if err != nil {
		return err
	}

	plan, err := generator.NewStoryGenerator(nil, nil).Plan(req)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "# %s / %s / %d pages (ages %s)\n\n", req.Child, plan.Moral.Label, plan.PageCount, plan.Settings.Group)
	fmt.Fprintln(out, "## System")
	fmt.Fprintln(out, prompts.StorySystemPrompt)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "## Story prompt")
	fmt.Fprintln(out, plan.Prompt)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "## Character reference")
	fmt.Fprintln(out, prompts.BuildCharacterReference(req.Child))
	fmt.Fprintln(out)
	fmt.Fprintln(out, "## Style reference")
	fmt.Fprintln(out, prompts.BuildStyleReference())
	return nil
}
