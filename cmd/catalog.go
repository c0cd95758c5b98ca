package cmd

import (
	"fmt"

	"github.com/shouni/go-storybook-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

func newMoralsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "morals",
		Short: "選べる教訓の一覧を表示するのだ。",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), pipeline.RenderMorals())
			return err
		},
	}
}

func newAgesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ages",
		Short: "年齢帯ごとのページ数や語彙の設定を表示するのだ。",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), pipeline.RenderAges())
			return err
		},
	}
}
