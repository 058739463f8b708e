package app

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hitoshi/agencytime/internal/model"
)

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はAPIサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandWorker はワーカーモードで起動することを示す。
	CommandWorker Command = "worker"
	// CommandMigrate はデータベースマイグレーションを実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
	// CommandToken は開発用のBearerトークンを発行することを示す。
	CommandToken Command = "token"
)

// tokenOptions はtokenサブコマンドのフラグ。
type tokenOptions struct {
	userID   int64
	username string
	role     string
	ttl      time.Duration
}

// NewRootCommand はagencytimeのルートコマンドを生成する。
// サブコマンドを省略した場合はserveとして動作する。ログはwに出力する。
func NewRootCommand(w io.Writer) *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "agencytime",
		Short:         "Time tracking API for agency teams.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithConfig(w, envFile, CommandServe)
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file loaded before reading environment variables")

	root.AddCommand(
		&cobra.Command{
			Use:   string(CommandServe),
			Short: "Start the HTTP API server",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runWithConfig(w, envFile, CommandServe)
			},
		},
		&cobra.Command{
			Use:   string(CommandWorker),
			Short: "Start the stale session watcher",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runWithConfig(w, envFile, CommandWorker)
			},
		},
		newMigrateCommand(w, &envFile),
		newHealthcheckCommand(),
		newTokenCommand(w, &envFile),
	)

	return root
}

// newMigrateCommand はマイグレーションを適用するコマンドを返す。--downを指定した場合はその件数を取り消す。
func newMigrateCommand(w io.Writer, envFile *string) *cobra.Command {
	var down int
	cmd := &cobra.Command{
		Use:   string(CommandMigrate),
		Short: "Apply all pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if down < 0 {
				return fmt.Errorf("--down must not be negative")
			}
			cfg, err := Init(w, *envFile)
			if err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}
			return runMigrate(cfg, down)
		},
	}
	cmd.Flags().IntVar(&down, "down", 0, "roll back this many migrations instead of applying")
	return cmd
}

// newHealthcheckCommand は/healthを叩くだけの軽量コマンドを返す。設定の読み込みは行わない。
func newHealthcheckCommand() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   string(CommandHealthcheck),
		Short: "Probe the local /health endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			if port == "" {
				port = os.Getenv("SERVER_PORT")
			}
			if port == "" {
				port = "8080"
			}
			return runHealthcheck(port)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "port to probe (defaults to SERVER_PORT or 8080)")
	return cmd
}

// newTokenCommand はJWT_SECRETで署名した開発用トークンを標準出力に書き出すコマンドを返す。
func newTokenCommand(w io.Writer, envFile *string) *cobra.Command {
	opts := tokenOptions{}
	cmd := &cobra.Command{
		Use:   string(CommandToken),
		Short: "Mint a bearer token for a user (development only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.userID <= 0 {
				return fmt.Errorf("--user-id must be a positive integer")
			}
			if opts.role != string(model.RoleAdmin) && opts.role != string(model.RoleUser) {
				return fmt.Errorf("--role must be %q or %q", model.RoleAdmin, model.RoleUser)
			}
			cfg, err := Init(w, *envFile)
			if err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}
			return runToken(cmd.OutOrStdout(), cfg, opts)
		},
	}
	cmd.Flags().Int64Var(&opts.userID, "user-id", 0, "user id carried in the token")
	cmd.Flags().StringVar(&opts.username, "username", "", "username carried in the token")
	cmd.Flags().StringVar(&opts.role, "role", string(model.RoleUser), "role carried in the token (admin or user)")
	cmd.Flags().DurationVar(&opts.ttl, "ttl", 24*time.Hour, "token lifetime; 0 disables expiry")
	return cmd
}
