package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はWebサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandWorker はワーカーモードで起動することを示す。
	CommandWorker Command = "worker"
	// CommandMigrate はデータベースマイグレーションを実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// runners はサブコマンドの実処理。
type runners struct {
	serve       func(ctx context.Context, w io.Writer) error
	worker      func(ctx context.Context, w io.Writer) error
	migrate     func(ctx context.Context, w io.Writer, direction MigrateDirection, steps int) error
	healthcheck func(ctx context.Context, port string) error
}

func defaultRunners() runners {
	return runners{
		serve: func(ctx context.Context, w io.Writer) error {
			cfg, err := Init(w)
			if err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}
			return runServe(ctx, cfg)
		},
		worker: func(ctx context.Context, w io.Writer) error {
			cfg, err := Init(w)
			if err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}
			return runWorker(ctx, cfg)
		},
		migrate: func(ctx context.Context, w io.Writer, direction MigrateDirection, steps int) error {
			cfg, err := Init(w)
			if err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}
			return runMigrate(w, cfg, direction, steps)
		},
		healthcheck: runHealthcheck,
	}
}

// NewRootCommand はdiabetesコマンドを構築する。
// サブコマンドを省略した場合はserveとして起動する。wにはログとコマンド出力を書き込む。
func NewRootCommand(w io.Writer) *cobra.Command {
	return newRootCommand(w, defaultRunners())
}

func newRootCommand(w io.Writer, run runners) *cobra.Command {
	serve := func(cmd *cobra.Command, args []string) error {
		return run.serve(cmd.Context(), w)
	}

	rootCmd := &cobra.Command{
		Use:           "diabetes",
		Short:         "Diabetes tracking web service",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          serve,
	}
	rootCmd.SetOut(w)
	rootCmd.SetErr(w)

	serveCmd := &cobra.Command{
		Use:   string(CommandServe),
		Short: "Start the web server",
		Args:  cobra.NoArgs,
		RunE:  serve,
	}

	workerCmd := &cobra.Command{
		Use:   string(CommandWorker),
		Short: "Run the expired-session cleanup worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run.worker(cmd.Context(), w)
		},
	}

	var steps int
	migrateCmd := &cobra.Command{
		Use:       string(CommandMigrate) + " [up|down|version]",
		Short:     "Apply, roll back or inspect database migrations",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{string(MigrateUp), string(MigrateDown), string(MigrateVersion)},
		RunE: func(cmd *cobra.Command, args []string) error {
			direction := MigrateUp
			if len(args) > 0 {
				direction = MigrateDirection(args[0])
			}
			return run.migrate(cmd.Context(), w, direction, steps)
		},
	}
	migrateCmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back (down only)")

	var port string
	healthcheckCmd := &cobra.Command{
		Use:   string(CommandHealthcheck),
		Short: "Check the /health endpoint of a running server",
		Args:  cobra.NoArgs,
		// 軽量サブコマンドのため、設定の読み込みをスキップする
		RunE: func(cmd *cobra.Command, args []string) error {
			return run.healthcheck(cmd.Context(), port)
		},
	}
	healthcheckCmd.Flags().StringVar(&port, "port", envOr("SERVER_PORT", "8080"), "server port to check")

	rootCmd.AddCommand(serveCmd, workerCmd, migrateCmd, healthcheckCmd)
	return rootCmd
}

// Run はアプリケーションのメインエントリーポイント。
// argsにはos.Args[1:]を渡す。
func Run(ctx context.Context, w io.Writer, args []string) error {
	cmd := NewRootCommand(w)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

func envOr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
