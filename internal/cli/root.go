package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gameforge/internal/config"
	"gameforge/internal/generator"
	"gameforge/internal/logger"
	"gameforge/internal/repository"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	defaultDBPath = "gameforge.db"
	defaultUserID = "local"
)

// app holds the state shared by the subcommands.
type app struct {
	out      io.Writer
	dbPath   string
	userID   string
	logLevel string
	logger   *zap.Logger
}

// NewRootCommand builds the gameforge command tree writing results to out.
func NewRootCommand(out io.Writer) *cobra.Command {
	a := &app{out: out, logger: zap.NewNop()}

	root := &cobra.Command{
		Use:           "gameforge",
		Short:         "Generate video game concepts from a genre, a mood and keywords",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log, err := logger.New(logger.Config{Level: a.logLevel, Encoding: "console", OutputPath: "stderr"}, "")
			if err != nil {
				return err
			}
			a.logger = log
			return nil
		},
	}
	root.SetOut(out)

	root.PersistentFlags().StringVar(&a.dbPath, "db", defaultDBPath, "SQLite file holding the generation history (empty disables history)")
	root.PersistentFlags().StringVarP(&a.userID, "user", "u", defaultUserID, "user the concepts belong to")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(
		newGenerateCommand(a),
		newRandomCommand(a),
		newHistoryCommand(a),
		newShowCommand(a),
		newDeleteCommand(a),
	)
	return root
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	root := NewRootCommand(os.Stdout)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (a *app) openHistory() (*repository.SQLiteConceptRepository, error) {
	if a.dbPath == "" {
		return nil, nil
	}
	return repository.NewSQLiteConceptRepository(a.dbPath, a.logger)
}

func (a *app) newGenerator() (*generator.Service, error) {
	cfg, err := config.LoadAIConfig()
	if err != nil {
		return nil, err
	}
	gen, mode, err := generator.NewFromConfig(*cfg, a.logger)
	if err != nil {
		return nil, err
	}
	a.logger.Info("Generator ready", zap.Stringer("mode", mode), zap.String("model", cfg.Model))
	return gen, nil
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
