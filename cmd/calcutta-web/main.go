package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/mattn/go-colorable"
	"github.com/spf13/cobra"

	"github.com/lucke/calcutta-web/internal/admin"
	"github.com/lucke/calcutta-web/internal/betting"
	"github.com/lucke/calcutta-web/internal/calcapi"
	"github.com/lucke/calcutta-web/internal/database"
	"github.com/lucke/calcutta-web/internal/journal"
	"github.com/lucke/calcutta-web/internal/session"
	"github.com/lucke/calcutta-web/internal/util/signal"
	"github.com/lucke/calcutta-web/internal/util/slogx"
	"github.com/lucke/calcutta-web/internal/util/style"
	"github.com/lucke/calcutta-web/internal/webui"
)

var version = "devel"

var rootCmd = &cobra.Command{
	Use:     "calcutta-web",
	Args:    cobra.ExactArgs(0),
	Version: version,
	Short:   "Start Calcutta web server",
	Long: `Calcutta is a betting pool where participants buy contestants in an auction and the pot
is paid out to the owners of the winners.

This command runs the web front-end. All the auction data lives in the Calcutta API server, whose
address is taken from the options file or from the ` + apiURLEnv + ` environment variable.
`,
}

func readSecrets(path string) (*Secrets, error) {
	rawSecrets, err := os.ReadFile(path)
	if err != nil {
		rawSecrets = nil
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read secrets: %w", err)
		}
	}
	var secrets Secrets
	if err := toml.Unmarshal(rawSecrets, &secrets); err != nil {
		return nil, fmt.Errorf("unmarshal secrets: %w", err)
	}
	secretsChanged, err := secrets.GenerateMissing()
	if err != nil {
		return nil, fmt.Errorf("generate secrets: %w", err)
	}
	if secretsChanged {
		newRawSecrets, err := toml.Marshal(&secrets)
		if err != nil {
			return nil, fmt.Errorf("marshal secrets: %w", err)
		}
		if err := os.WriteFile(path, newRawSecrets, 0600); err != nil {
			return nil, fmt.Errorf("write secrets: %w", err)
		}
	}
	return &secrets, nil
}

func readOptions(path string) (*Options, error) {
	var opts Options
	if path != "" {
		rawOpts, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read options: %w", err)
		}
		if err := toml.Unmarshal(rawOpts, &opts); err != nil {
			return nil, fmt.Errorf("unmarshal options: %w", err)
		}
	}
	return &opts, nil
}

func newLogger(o LogOptions) *slog.Logger {
	var w io.Writer = os.Stderr
	switch o.Format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: o.Level}))
	case "text":
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: o.Level}))
	default:
		color := style.StderrSupportsColor()
		if color {
			w = colorable.NewColorableStderr()
		}
		return slog.New(slogx.NewConsoleHandler(w, o.Level, color))
	}
}

func main() {
	p := rootCmd.Flags()
	optsPath := p.StringP(
		"options", "o", "",
		"options file",
	)
	secretsPath := p.StringP(
		"secrets", "s", "",
		"secrets file, created if missing",
	)
	envPath := p.String(
		"env", ".env",
		"file with environment variables, ignored if missing",
	)
	if err := rootCmd.MarkFlagRequired("secrets"); err != nil {
		panic(err)
	}

	rootCmd.RunE = func(cmd *cobra.Command, _args []string) error {
		if err := godotenv.Load(*envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load env: %w", err)
		}
		secrets, err := readSecrets(*secretsPath)
		if err != nil {
			return err
		}
		opts, err := readOptions(*optsPath)
		if err != nil {
			return err
		}
		opts.MixEnv()
		if err := opts.MixSecrets(secrets); err != nil {
			return fmt.Errorf("mix secrets into options: %w", err)
		}
		opts.FillDefaults()
		if err := opts.Validate(); err != nil {
			return fmt.Errorf("bad options: %w", err)
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer cancel()

		log := newLogger(opts.Log)
		log.Info("starting calcutta-web",
			slog.String("version", version),
			slog.String("api", opts.API.Endpoint),
		)

		db, err := database.New(log, opts.DB)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer db.Close()
		j := journal.New(log, db, opts.Journal)
		defer j.Close()

		// Requests are bounded only by the contexts of the browser requests.
		client, err := calcapi.NewClient(log, opts.API, nil)
		if err != nil {
			return fmt.Errorf("create api client: %w", err)
		}

		mux := http.NewServeMux()
		if err := webui.Handle(ctx, log, mux, opts.Prefix, webui.Config{
			Session:             session.NewService(log, client),
			Admin:               admin.NewService(log, client),
			Betting:             betting.NewService(log, client),
			Events:              client,
			Journal:             j,
			SessionStoreFactory: db,
		}, opts.WebUI); err != nil {
			return fmt.Errorf("handle webui: %w", err)
		}

		if err := newServers(log, opts, mux).Run(ctx); err != nil {
			return fmt.Errorf("run servers: %w", err)
		}
		log.Info("server stopped")
		return nil
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
