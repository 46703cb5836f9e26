package auth

import (
	"context"
	"fmt"
	"html"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	autherrors "github.com/jrsteele09/newsfeed-auth/internal/errors"
	"github.com/jrsteele09/newsfeed-auth/sessions"
)

// CallbackParamsFromQuery reads the redirect parameters from a callback URL query.
func CallbackParamsFromQuery(query url.Values) CallbackParams {
	return CallbackParams{
		Code:             query.Get("code"),
		State:            query.Get("state"),
		Error:            query.Get("error"),
		ErrorDescription: query.Get("error_description"),
	}
}

// CallbackHandler completes a redirect login from the callback parameters.
type CallbackHandler func(ctx context.Context, params CallbackParams) (*sessions.Session, error)

type callbackResult struct {
	session *sessions.Session
	err     error
}

// LoopbackReceiver listens on the redirect URI's host and port and passes the
// first callback to a CallbackHandler.
type LoopbackReceiver struct {
	listener net.Listener
	path     string
	server   *http.Server
	results  chan callbackResult
	once     sync.Once
}

// NewLoopbackReceiver starts listening on the redirect URI. Port 0 picks a free port.
func NewLoopbackReceiver(redirectURL string) (*LoopbackReceiver, error) {
	u, err := url.Parse(redirectURL)
	if err != nil || u.Host == "" {
		return nil, &autherrors.ValidationError{Field: "redirect_url", Message: "redirect URL must be absolute"}
	}
	if u.Scheme != "http" {
		return nil, &autherrors.ValidationError{Field: "redirect_url", Message: "loopback redirect URL must use http"}
	}

	listener, err := net.Listen("tcp", u.Host)
	if err != nil {
		return nil, errors.Wrapf(err, "[NewLoopbackReceiver] listen on %s", u.Host)
	}

	path := u.Path
	if path == "" {
		path = "/"
	}
	return &LoopbackReceiver{
		listener: listener,
		path:     path,
		results:  make(chan callbackResult, 1),
	}, nil
}

// URL is the redirect URI the receiver is reachable on.
func (r *LoopbackReceiver) URL() string {
	return "http://" + r.listener.Addr().String() + r.path
}

// Wait serves callbacks until one completes the login or ctx ends, then shuts
// the listener down.
func (r *LoopbackReceiver) Wait(ctx context.Context, handle CallbackHandler) (*sessions.Session, error) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+r.path, func(w http.ResponseWriter, req *http.Request) {
		session, err := handle(req.Context(), CallbackParamsFromQuery(req.URL.Query()))
		writeCallbackPage(w, err)
		r.once.Do(func() { r.results <- callbackResult{session: session, err: err} })
	})
	r.server = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := r.server.Serve(r.listener); err != nil && err != http.ErrServerClosed {
			log.Err(err).Msg("callback listener stopped")
		}
	}()
	defer r.shutdown()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result := <-r.results:
		return result.session, result.err
	}
}

func (r *LoopbackReceiver) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if r.server != nil {
		_ = r.server.Shutdown(ctx)
		return
	}
	_ = r.listener.Close()
}

// Close releases the listener when Wait was never called.
func (r *LoopbackReceiver) Close() error {
	if r.server != nil {
		return nil
	}
	return r.listener.Close()
}

func writeCallbackPage(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")

	title, message := "Login complete", "You can close this window and return to the terminal."
	status := http.StatusOK
	if err != nil {
		title, message = "Login failed", autherrors.UserMessage(err)
		status = http.StatusBadRequest
	}
	w.WriteHeader(status)
	fmt.Fprintf(w, "<!doctype html><html><head><title>%s</title></head><body><h1>%s</h1><p>%s</p></body></html>",
		html.EscapeString(title), html.EscapeString(title), html.EscapeString(message))
}
