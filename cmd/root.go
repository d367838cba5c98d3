package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/Fid-Deen/fiddeen-kiosk/internal/config"
	"github.com/Fid-Deen/fiddeen-kiosk/internal/log"
	"github.com/spf13/cobra"
)

var verbose bool

func newRootCmd(version string, buildTime string, gitCommit string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fiddeen-kiosk",
		Short: "fiddeen-kiosk renders custom tote bag artwork.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")

	cmd.AddCommand(newVersionCmd(version, buildTime, gitCommit))
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newLambdaCmd())
	cmd.AddCommand(newPromptCmd())
	return cmd
}

func Execute(version string, buildTime string, gitCommit string) error {
	if err := newRootCmd(version, buildTime, gitCommit).Execute(); err != nil {
		return fmt.Errorf("error executing root command: %w", err)
	}

	return nil
}

// setup loads configuration and returns a context carrying the logger.
func setup(keepTime bool) (context.Context, config.Config, *slog.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, config.Config{}, nil, err
	}
	if verbose {
		cfg.Log.Level = "debug"
	}

	logger := log.New(os.Stderr, log.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, KeepTime: keepTime})
	return log.NewContext(context.Background(), logger), cfg, logger, nil
}
