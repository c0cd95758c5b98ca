package cmd

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shouni/go-storybook-kit/internal/config"

	clibase "github.com/shouni/go-cli-base"
	"github.com/spf13/cobra"
)

const appName = "storybook"

// opts は各サブコマンドのフラグを受け取る実行時パラメータなのだ。
var opts config.GenerateOptions

// addAppFlags は、ルートコマンドの見た目を整えるのだ。
// 物語のフラグはサブコマンドごとに持つので、ここではグローバルなフラグを増やさないのだ。
func addAppFlags(rootCmd *cobra.Command) {
	rootCmd.Short = "子どもに合わせた挿絵付きの絵本を生成するのだ。"
	rootCmd.SilenceUsage = true
}

// preRunAppE は、ロガーの準備と Ctrl+C で止められるコンテキストの設定をするのだ。
func preRunAppE(cmd *cobra.Command, args []string) error {
	setupLogger(cmd)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	cobra.OnFinalize(stop)
	cmd.SetContext(ctx)
	return nil
}

// setupLogger は stderr にテキスト形式のハンドラを設定するのだ。
// --verbose が付いていれば LOG_LEVEL より優先して debug にするのだ。
func setupLogger(cmd *cobra.Command) {
	cfg := config.LoadConfig()
	level := cfg.SlogLevel()
	if clibase.Flags.Verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// subcommands はルートに登録するサブコマンドの一覧なのだ。
func subcommands() []*cobra.Command {
	return []*cobra.Command{
		newGenerateCommand(),
		newPromptCommand(),
		newMoralsCommand(),
		newAgesCommand(),
	}
}

// newRootCommand は clibase のルートにすべてのサブコマンドを束ねるのだ。
func newRootCommand() *cobra.Command {
	rootCmd := clibase.NewRootCmd(appName, addAppFlags, preRunAppE)
	rootCmd.AddCommand(subcommands()...)
	return rootCmd
}

// Execute は、アプリケーションのメインエントリポイントなのだ。
// main.go から呼び出されて、cobra のコマンドライン解析を開始するのだよ。
func Execute() {
	clibase.Execute(
		appName,
		addAppFlags,
		preRunAppE,
		subcommands()...,
	)
}
