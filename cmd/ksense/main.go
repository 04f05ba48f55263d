// Command ksense is a terminal editor with pluggable code completion. Its
// complete command runs the same providers headless, for scripts and other
// editors.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newCommand().Run(ctx, os.Args)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "ksense",
		Usage:   "Terminal editor with pluggable code completion",
		Version: version + " (" + commit + ")",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Configuration file (.toml, .yaml or .json)",
				Sources: cli.EnvVars("KSENSE_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (trace, debug, info, warn, error)",
				Sources: cli.EnvVars("KSENSE_LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Log format (text or json)",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Append logs to this file; the editor discards them otherwise",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "edit",
				Usage:     "Edit a file with completion",
				ArgsUsage: "FILE",
				Action:    runEdit,
			},
			{
				Name:      "complete",
				Usage:     "Print the completions at a position in a file",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "offset",
						Usage: "Rune offset of the cursor",
					},
					&cli.IntFlag{
						Name:  "line",
						Usage: "1-based line of the cursor",
					},
					&cli.IntFlag{
						Name:  "col",
						Usage: "1-based column of the cursor, in characters",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print JSON",
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Value: defaultTimeout,
						Usage: "How long to wait for slow providers",
					},
				},
				Action: runComplete,
			},
			{
				Name:  "config",
				Usage: "Show or check the configuration",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "dump",
						Usage: "Print the effective configuration as TOML (the default)",
					},
					&cli.StringFlag{
						Name:  "validate",
						Usage: "Check a configuration file and report every problem",
					},
					&cli.BoolFlag{
						Name:  "schema",
						Usage: "Print the JSON Schema for configuration files",
					},
				},
				Action: runConfig,
			},
		},
	}
}
