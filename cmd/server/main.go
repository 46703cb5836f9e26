package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/newsfeed-auth/internal/config"
	"github.com/jrsteele09/newsfeed-auth/internal/logging"
	"github.com/jrsteele09/newsfeed-auth/provider"
	"github.com/jrsteele09/newsfeed-auth/server"
	"github.com/jrsteele09/newsfeed-auth/server/loginsession"
	"github.com/jrsteele09/newsfeed-auth/token"
)

const cleanupInterval = 5 * time.Minute

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("error running server")
	}
	log.Info().Msg("server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.New()
	if err != nil {
		return err
	}
	logging.Setup(c.GetEnv(), c.GetLogLevel(), os.Stderr)
	displayAppname(c.GetAppName())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	idp, err := provider.New(ctx, provider.ConfigFromOAuth(c))
	if err != nil {
		return errors.Wrap(err, "provider")
	}

	tokens, closeTokens, err := newTokenManager(ctx, c)
	if err != nil {
		return err
	}
	defer closeTokens()

	handler, err := server.New(c, server.Deps{
		Provider:      idp,
		Tokens:        tokens,
		LoginSessions: loginsession.NewInMemoryLoginSessionRepo(),
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- listenAndServe(httpServer) }()
	go runCleanup(ctx, handler)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	return shutdown(httpServer)
}

// newTokenManager builds the application token manager, with a shared
// revocation cache when REDIS_URL is set.
func newTokenManager(ctx context.Context, c config.Config) (*token.Manager, func(), error) {
	secret := c.GetAppTokenSecret()
	if secret == "" {
		if c.GetEnv() != "DEV" {
			return nil, nil, errors.New("APP_TOKEN_SECRET is required outside DEV")
		}
		secret = randomSecret()
		log.Warn().Msg("APP_TOKEN_SECRET not set, using a random secret; tokens will not survive a restart")
	}

	signer, err := token.NewHMACSigner(secret)
	if err != nil {
		return nil, nil, err
	}

	options := []token.ManagerOption{
		token.WithIssuer(c.GetAppTokenIssuer()),
		token.WithAudience(c.GetAppTokenAudience()),
		token.WithTokenExpiry(c.GetAppTokenExpiry()),
	}
	closer := func() {}
	if url := c.GetRedisURL(); url != "" {
		client, err := token.ConnectRedis(ctx, url)
		if err != nil {
			return nil, nil, err
		}
		options = append(options, token.WithRevokedTokenCache(token.NewRedisRevokedTokenCache(client)))
		closer = func() {
			if err := client.Close(); err != nil {
				log.Err(err).Msg("failed to close redis client")
			}
		}
		log.Info().Msg("using redis revoked token cache")
	}
	return token.New(signer, options...), closer, nil
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}

func runCleanup(ctx context.Context, s *server.Server) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Cleanup(ctx)
		}
	}
}

func listenAndServe(server *http.Server) error {
	log.Info().Msgf("Server listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
