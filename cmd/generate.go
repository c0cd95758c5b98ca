package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-storybook-kit/internal/config"
	"github.com/shouni/go-storybook-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// newGenerateCommand は、本文と挿絵の生成から保存までを実行するコマンドなのだ。
func newGenerateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "プロフィールと教訓から挿絵付きの絵本を生成するのだ。",
		Long: `子どものプロフィール（YAML/JSON）と教訓を受け取り、本文をテキストモデルで、
各ページの挿絵を画像モデルで生成するのだ。結果は story.json / story.md / images/ に保存されるのだよ。`,
		Example: "  storybook generate --child examples/child.yaml --moral kindness --pages 6 --narrate",
		RunE:    generateCommand,
	}

	addStoryFlags(cmd)
	cmd.Flags().StringVarP(&opts.OutputDir, "output", "o", config.DefaultOutputDir, "保存先のディレクトリなのだ。")
	cmd.Flags().BoolVar(&opts.Narrate, "narrate", false, "ページごとの朗読音声 (mp3) も生成するのだ。")
	cmd.Flags().BoolVar(&opts.NoReview, "no-review", false, "レビュー用の画像アーカイブを保存しないのだ。")
	return cmd
}

// addStoryFlags は generate と prompt で共通のフラグを定義するのだ。
func addStoryFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&opts.ChildFile, "child", "c", "", "子どものプロフィールファイル (YAML/JSON) なのだ。")
	cmd.Flags().StringVarP(&opts.MoralID, "moral", "m", "", "教訓のID (storybook morals で一覧できるのだ)。")
	cmd.Flags().StringVar(&opts.Setting, "setting", "", "物語の舞台なのだ。省略すると魔法の世界になるのだ。")
	cmd.Flags().StringVar(&opts.Theme, "theme", "", "物語のテーマなのだ。省略すると年齢帯の候補から選ぶのだ。")
	cmd.Flags().IntVarP(&opts.PageCount, "pages", "p", 0, "ページ数 (4-16) なのだ。0 なら年齢帯の既定値なのだ。")
	_ = cmd.MarkFlagRequired("child")
	_ = cmd.MarkFlagRequired("moral")
}

func generateCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg := config.LoadConfig()
	cfg.Options = opts

	slog.Info("絵本生成パイプラインを起動するのだ！",
		"provider", cfg.Provider,
		"child", opts.ChildFile,
		"moral", opts.MoralID,
		"output", opts.OutputDir)

	if err := pipeline.Execute(ctx, cfg, cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("パイプライン実行中にエラーが発生したのだ: %w", err)
	}
	return nil
}
