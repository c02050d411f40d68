// Package cli implements the linkstash command-line client.
//
// Every command opens the same SQLite database the server uses, runs one
// service call and prints the result, either as a table or with --json.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sakif/linkstash/internal/app"
	"github.com/sakif/linkstash/internal/config"
)

// runtime carries state shared by the commands of one invocation.
type runtime struct {
	cfgFile string
	verbose bool
	asJSON  bool
	app     *app.App
}

// NewRootCommand builds the command tree. A fresh tree per invocation keeps
// flag state from leaking between runs, which tests rely on.
func NewRootCommand() *cobra.Command {
	rt := &runtime{}

	root := &cobra.Command{
		Use:   "linkstash",
		Short: "Save, tag and browse links",
		Long: `linkstash manages your saved links from the terminal.

Example usage:
  linkstash add https://go.dev/blog --tag go --tag reading
  linkstash list --favorite
  linkstash done <id>
  linkstash tags prune`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Commands that need no database skip opening it.
			if cmd.Annotations["offline"] == "true" {
				return nil
			}
			return rt.open(cmd)
		},
	}

	root.PersistentFlags().StringVar(&rt.cfgFile, "config", "", "config file (default ./configs/config.yaml or ./config.yaml)")
	root.PersistentFlags().BoolVarP(&rt.verbose, "verbose", "v", false, "verbose logging to stderr")
	root.PersistentFlags().BoolVar(&rt.asJSON, "json", false, "print JSON instead of tables")

	root.AddCommand(
		newAddCommand(rt),
		newListCommand(rt),
		newShowCommand(rt),
		newToggleCommand(rt, "fav", "Toggle a link's favorite flag", rt.toggleFavorite),
		newToggleCommand(rt, "archive", "Toggle a link's archived flag", rt.toggleArchive),
		newToggleCommand(rt, "done", "Toggle a link's completion", rt.toggleStatus),
		newRemoveCommand(rt),
		newTagCommand(rt),
		newTagsCommand(rt),
		newProfileCommand(rt),
		newHashPassphraseCommand(),
	)
	return root
}

// Execute runs the CLI with os.Args.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

func (rt *runtime) open(cmd *cobra.Command) error {
	cfg, err := config.Load(rt.cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if rt.verbose {
		cfg.Log.Level = "debug"
	} else if cfg.Log.Level == "info" {
		// Routine service logs would drown command output.
		cfg.Log.Level = "warn"
	}

	logger, err := app.NewLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	// The CLI exits before a background job could finish, so saved links
	// are left for the server's startup backfill.
	a, err := app.Build(cfg, logger, app.WithoutBackgroundEnrichment())
	if err != nil {
		return err
	}
	rt.app = a
	return nil
}

// printJSON writes v indented.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// run wraps a command body so the database is closed however it returns.
func (rt *runtime) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		defer func() {
			if rt.app != nil {
				rt.app.Close()
				rt.app = nil
			}
		}()
		return fn(cmd, args)
	}
}
