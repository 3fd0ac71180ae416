// Package cli implements the membership admin command line.
package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"

	"github.com/admbtski/miglee-sub001/internal/app"
	"github.com/admbtski/miglee-sub001/internal/config"
	internaldb "github.com/admbtski/miglee-sub001/internal/db"
)

var (
	version = "dev"
	commit  = "none"
)

// Execute runs the CLI with os.Args and returns the process exit code.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		if getOutputFormat(rootCmd) == "json" {
			_ = printJSON(os.Stdout, errorJSON(err))
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

// runtime holds the database handles and wired application for one command.
type runtime struct {
	cfg     *config.Config
	writeDB *sql.DB
	readDB  *sql.DB
	app     *app.App
}

func (r *runtime) Close() {
	if r.app != nil {
		_ = r.app.Close()
	}
	_ = r.readDB.Close()
	_ = r.writeDB.Close()
}

type rootOptions struct {
	dbPath   string
	output   string
	verbose  bool
	loadedDB string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "miglee",
		Short:         "Group membership admin CLI",
		Long:          "Administrative command line for group membership: migrations, groups, members and the notification outbox.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOutputFormat(opts.output)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.dbPath, "db", "", "SQLite database path (default: $DB_PATH or membership.sqlite)")
	rootCmd.PersistentFlags().StringVarP(&opts.output, "output", "o", "table", "Output format: table|json")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log at debug level to stderr")

	rootCmd.AddCommand(
		newMigrateCmd(opts),
		newGroupCmd(opts),
		newMembersCmd(opts),
		newRelayCmd(opts),
		newSeedCmd(opts),
		newVersionCmd(),
	)
	return rootCmd
}

func (o *rootOptions) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// open loads configuration, opens and migrates the database and wires the
// application. Callers must Close the runtime.
func (o *rootOptions) open(ctx context.Context, cmd *cobra.Command) (*runtime, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if o.dbPath != "" {
		cfg.DBPath = o.dbPath
	}
	o.loadedDB = cfg.DBPath

	writeDB, readDB, err := internaldb.OpenSQLitePair(cfg.DBPath, internaldb.Options{})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	rt := &runtime{cfg: cfg, writeDB: writeDB, readDB: readDB}

	if err := internaldb.RunMigrations(ctx, writeDB); err != nil {
		rt.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	a, err := app.New(ctx, app.Deps{
		Cfg:     cfg,
		WriteDB: writeDB,
		ReadDB:  readDB,
		Logger:  o.logger(cmd.ErrOrStderr()),
	})
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.app = a
	return rt, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the CLI version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]string{
					"version": version,
					"commit":  commit,
				})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "miglee version %s (commit: %s)\n", version, commit)
			return nil
		},
	}
}
