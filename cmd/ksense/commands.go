package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/dshills/ksense/internal/app"
	"github.com/dshills/ksense/internal/config"
	"github.com/dshills/ksense/internal/logging"
)

const defaultTimeout = app.DefaultCompleteTimeout

// env is what every command that runs providers needs.
type env struct {
	cfg     *config.Config
	log     *logrus.Logger
	app     *app.App
	logFile io.Closer
}

func (e *env) close() {
	if e.app != nil {
		if err := e.app.Close(); err != nil {
			e.log.WithError(err).Warn("shutdown")
		}
	}
	if e.logFile != nil {
		_ = e.logFile.Close()
	}
}

// configPath is --config, or the default location when that exists.
func configPath(cmd *cli.Command) string {
	if path := cmd.Root().String("config"); path != "" {
		return path
	}
	return config.DefaultPath()
}

// loadConfig reads the configuration and applies the logging flags on top.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	root := cmd.Root()
	cfg, err := config.Load(configPath(cmd))
	if err != nil {
		return nil, err
	}
	if root.IsSet("log-level") {
		cfg.Logging.Level = root.String("log-level")
	}
	if root.IsSet("log-format") {
		cfg.Logging.Format = root.String("log-format")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setup loads the configuration, opens the log and starts the providers.
// Interactive sessions own the terminal, so their logs go to --log-file or
// nowhere.
func setup(ctx context.Context, cmd *cli.Command, interactive bool, workspace string) (*env, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg}

	var out io.Writer = errWriter(cmd)
	if path := cmd.Root().String("log-file"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		out, e.logFile = f, f
	} else if interactive {
		out = io.Discard
	}
	e.log = logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: out,
	})
	logging.SetDefault(e.log)

	e.app, err = app.New(ctx, cfg,
		app.WithLogger(e.log),
		app.WithConfigPath(configPath(cmd)),
		app.WithRoot(workspace),
	)
	if err != nil {
		e.close()
		return nil, err
	}
	return e, nil
}

func fileArg(cmd *cli.Command) (string, error) {
	if cmd.Args().Len() != 1 {
		return "", fmt.Errorf("%s: exactly one FILE is required", cmd.Name)
	}
	return cmd.Args().First(), nil
}

// workspaceOf is the directory language servers are rooted at.
func workspaceOf(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "."
	}
	return filepath.Dir(abs)
}

func runEdit(ctx context.Context, cmd *cli.Command) error {
	path, err := fileArg(cmd)
	if err != nil {
		return err
	}
	e, err := setup(ctx, cmd, true, workspaceOf(path))
	if err != nil {
		return err
	}
	defer e.close()

	w, err := e.app.Watch()
	if err != nil {
		e.log.WithError(err).Warn("configuration changes will need a restart")
	} else if w != nil {
		defer w.Close()
	}
	return e.app.Edit(ctx, path)
}

func runComplete(ctx context.Context, cmd *cli.Command) error {
	path, err := fileArg(cmd)
	if err != nil {
		return err
	}
	req := app.Request{
		Path:    path,
		Offset:  cmd.Int("offset"),
		Line:    cmd.Int("line"),
		Column:  cmd.Int("col"),
		Timeout: cmd.Duration("timeout"),
	}
	switch {
	case cmd.IsSet("line") && !cmd.IsSet("col"):
		return errors.New("complete: --line needs --col")
	case !cmd.IsSet("offset") && !cmd.IsSet("line"):
		return errors.New("complete: give --offset or --line and --col")
	}

	e, err := setup(ctx, cmd, false, workspaceOf(path))
	if err != nil {
		return err
	}
	defer e.close()

	res, err := e.app.Complete(ctx, req)
	if err != nil {
		return err
	}

	out := outWriter(cmd)
	if cmd.Bool("json") {
		data, err := renderJSON(res)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, data)
		return err
	}

	if isTerminal(out) {
		fmt.Fprint(out, renderTable(res))
	} else {
		fmt.Fprint(out, renderPlain(res))
	}
	reportProblems(errWriter(cmd), res)
	return nil
}

func runConfig(_ context.Context, cmd *cli.Command) error {
	out := outWriter(cmd)

	if cmd.Bool("schema") {
		_, err := fmt.Fprintln(out, config.Schema())
		return err
	}

	if path := cmd.String("validate"); path != "" {
		if _, err := config.Load(path); err != nil {
			var verr *config.ValidationError
			if errors.As(err, &verr) {
				w := errWriter(cmd)
				for _, p := range verr.Problems {
					fmt.Fprintf(w, "  %s\n", p)
				}
				return fmt.Errorf("%s: %d problem(s)", path, len(verr.Problems))
			}
			return err
		}
		_, err := fmt.Fprintf(out, "%s: ok\n", path)
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	data, err := cfg.TOML()
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}

func outWriter(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func errWriter(cmd *cli.Command) io.Writer {
	if w := cmd.Root().ErrWriter; w != nil {
		return w
	}
	return os.Stderr
}
