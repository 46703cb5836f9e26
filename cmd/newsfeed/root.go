package main

import (
	"context"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jrsteele09/newsfeed-auth/apiclient"
	"github.com/jrsteele09/newsfeed-auth/auth"
	"github.com/jrsteele09/newsfeed-auth/internal/config"
	"github.com/jrsteele09/newsfeed-auth/internal/logging"
	"github.com/jrsteele09/newsfeed-auth/pkce"
	"github.com/jrsteele09/newsfeed-auth/provider"
	"github.com/jrsteele09/newsfeed-auth/sessions"
	"github.com/jrsteele09/newsfeed-auth/storage"
	"github.com/jrsteele09/newsfeed-auth/storage/sqlite"
)

var (
	verbose      = false
	loadedConfig config.Config
)

var rootCmd = &cobra.Command{
	Use:           "newsfeed",
	Short:         "NewsFeed account and session management",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return err
		}
		loadedConfig = cfg
		configureLogging(cfg, verbose, os.Stderr)
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// configureLogging follows ENV and LOG_LEVEL like the server does; --verbose
// forces debug.
func configureLogging(cfg config.EnvConfig, verbose bool, out io.Writer) {
	level := cfg.GetLogLevel()
	if verbose {
		level = "debug"
	}
	logging.Setup(cfg.GetEnv(), level, out)
}

// app owns the session for one CLI invocation.
type app struct {
	cfg     config.Config
	db      *sqlite.Store
	store   *sessions.KVStore
	api     *apiclient.Client
	gateway *auth.Gateway
}

func newApp(ctx context.Context) (*app, error) {
	cfg := loadedConfig
	if cfg == nil {
		var err error
		if cfg, err = config.New(); err != nil {
			return nil, err
		}
	}

	db, err := sqlite.Open(cfg.GetSessionDBPath())
	if err != nil {
		return nil, errors.Wrap(err, "open session store")
	}
	a := &app{cfg: cfg, db: db, store: sessions.NewStore(db)}

	if a.api, err = apiclient.New(cfg.GetAPIBaseURL()); err != nil {
		a.Close()
		return nil, err
	}

	strategy := auth.Strategy(cfg.GetLoginStrategy())
	deps := auth.Deps{
		Sessions:    a.store,
		Credentials: a.api,
		Revoker:     a.api,
	}
	if strategy == auth.StrategyRedirect {
		idp, err := provider.New(ctx, provider.ConfigFromOAuth(cfg))
		if err != nil {
			a.Close()
			return nil, err
		}
		deps.Exchanger = idp
		deps.Revoker = idp
		// PKCE state lives only as long as this process.
		deps.Flows = pkce.NewStore(storage.NewMemory(), cfg.GetPKCEFlowTTL())
	}

	if a.gateway, err = auth.New(strategy, deps); err != nil {
		a.Close()
		return nil, err
	}
	if _, err := a.gateway.Restore(ctx); err != nil {
		a.Close()
		return nil, err
	}
	log.Debug().Str("strategy", string(strategy)).Str("state", a.gateway.State().String()).Msg("session restored")
	return a, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		log.Err(err).Msg("failed to close session store")
	}
}

// withApp runs fn with an app bound to the command's context.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}
