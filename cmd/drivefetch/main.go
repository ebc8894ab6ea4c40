package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ligustah/drivefetch/internal/config"
	"github.com/ligustah/drivefetch/internal/downloader"
	"github.com/ligustah/drivefetch/internal/drive"
	dfhttp "github.com/ligustah/drivefetch/internal/http"
	"github.com/ligustah/drivefetch/internal/logging"
	"github.com/ligustah/drivefetch/internal/session"
	"github.com/ligustah/drivefetch/internal/storage"
)

// Exit codes
const (
	ExitSuccess         = 0
	ExitGeneralError    = 1
	ExitInvalidArgs     = 2
	ExitSourceNotAccess = 3
	ExitStorageError    = 4
	ExitPartialFailure  = 5
)

// errPartial is returned when some files of a folder failed.
var errPartial = errors.New("some files failed to download")

type usageError struct{ error }

func (e usageError) Unwrap() error { return e.error }

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a := &app{stdout: stdout, stderr: stderr}
	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCode(err)
	}
	return ExitSuccess
}

func exitCode(err error) int {
	var (
		usage    usageError
		writeErr *storage.WriteError
	)
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &usage),
		errors.Is(err, storage.ErrInvalidDestination),
		errors.Is(err, drive.ErrInvalidFolder):
		return ExitInvalidArgs
	case errors.Is(err, errPartial):
		return ExitPartialFailure
	case errors.As(err, &writeErr):
		return ExitStorageError
	case errors.Is(err, session.ErrNoSession),
		errors.Is(err, dfhttp.ErrUnauthorized),
		errors.Is(err, dfhttp.ErrForbidden),
		errors.Is(err, dfhttp.ErrNotFound):
		return ExitSourceNotAccess
	default:
		return ExitGeneralError
	}
}

// app holds state shared by the subcommands.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath string
	envFile    string
	flags      config.Config

	cfg config.Config
	log zerolog.Logger
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drivefetch",
		Short: "Download Google Drive files in concurrent byte-range partitions",
		Long: `drivefetch downloads files and folders from Google Drive.

Large files are split into byte ranges fetched concurrently and reassembled
in memory before they are written. Destinations are local paths or bucket
URLs with the object key in the fragment, e.g. s3://bucket?region=eu-west-1#videos/a.mkv.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Annotations:   map[string]string{annotationAnonymous: "true"},
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return usageError{fmt.Errorf("unknown command %q for %q", args[0], cmd.CommandPath())}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd.Annotations[annotationAnonymous] == "true")
		},
	}

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	f := cmd.PersistentFlags()
	f.StringVar(&a.configPath, "config", "", "YAML config file")
	f.StringVar(&a.envFile, "env-file", "", "dotenv file with DRIVEFETCH_ variables (default ./.env if present)")
	f.StringVar(&a.flags.Token, "token", "", "OAuth access token (or DRIVEFETCH_TOKEN)")
	f.StringVar(&a.flags.APIBase, "api-base", "", "Drive API root URL")
	f.StringVar(&a.flags.LogLevel, "log-level", "", "Log level: trace, debug, info, warn, error, off")
	f.DurationVar(&a.flags.Timeout, "timeout", 0, "Overall timeout (0 = none)")

	cmd.AddCommand(
		newFileCmd(a),
		newFolderCmd(a),
		newListCmd(a),
		newURLCmd(a),
	)

	return cmd
}

// annotationAnonymous marks commands that never send the Drive token.
const annotationAnonymous = "anonymous"

// load resolves the configuration: defaults, then the config file, then the
// environment (including a dotenv file), then flags.
func (a *app) load(anonymous bool) error {
	cfg := config.Default()
	if a.configPath != "" {
		var err error
		if cfg, err = config.LoadFromFile(a.configPath); err != nil {
			return usageError{err}
		}
	}
	if err := config.LoadDotEnv(a.envFile); err != nil {
		return usageError{err}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return usageError{err}
	}
	cfg = cfg.Merge(a.flags)

	a.log = logging.New(cfg.LogLevel, a.stderr)

	if cfg.Token == "" && !anonymous {
		return session.ErrNoSession
	}
	if err := cfg.Validate(); err != nil {
		return usageError{err}
	}

	a.cfg = cfg
	return nil
}

// withTimeout applies the configured overall timeout to ctx.
func (a *app) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, a.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}

func (a *app) httpClient() *dfhttp.Client {
	opts := dfhttp.DefaultOptions()
	opts.MaxIdleConnsPerHost = a.cfg.MaxIdleConns
	opts.ReadSize = int(a.cfg.ReadSize)
	opts.Logger = &a.log
	return dfhttp.NewClient(opts)
}

// services wires the Drive clients for one command invocation.
func (a *app) services() (*drive.Client, *downloader.Downloader, *storage.Store, error) {
	sess, err := session.New(a.cfg.Token)
	if err != nil {
		return nil, nil, nil, err
	}
	tokens := session.NewHolder(sess)
	client := a.httpClient()

	dc := drive.NewClient(client, tokens, drive.Options{
		BaseURL: a.cfg.APIBase,
		Logger:  &a.log,
	})

	store := storage.NewStore()
	dl := downloader.New(client, tokens, store, downloader.Options{
		URLFor: dc.ContentURL,
		Logger: &a.log,
	})

	return dc, dl, store, nil
}

func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}
