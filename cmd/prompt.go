package cmd

import (
	"github.com/shouni/go-storybook-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// newPromptCommand はモデルを呼ばずにプロンプトだけを確認するコマンドなのだ。
func newPromptCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "prompt",
		Short:   "生成に使うプロンプトを表示するのだ（APIは呼ばないのだ）。",
		Example: "  storybook prompt --child examples/child.yaml --moral bravery",
		RunE: func(cmd *cobra.Command, args []string) error {
			return pipeline.Preview(opts, cmd.OutOrStdout())
		},
	}
	addStoryFlags(cmd)
	return cmd
}
