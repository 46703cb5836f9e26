package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jrsteele09/newsfeed-auth/auth"
	autherrors "github.com/jrsteele09/newsfeed-auth/internal/errors"
	"github.com/jrsteele09/newsfeed-auth/sessions"
)

var (
	loginUsername      string
	loginPasswordStdin bool
)

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "Username (password strategy)")
	loginCmd.Flags().BoolVar(&loginPasswordStdin, "password-stdin", false, "Read the password from stdin")
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in with the configured strategy",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			var (
				session *sessions.Session
				err     error
			)
			switch a.gateway.Strategy() {
			case auth.StrategyRedirect:
				session, err = redirectLogin(ctx, cmd.OutOrStdout(), a)
			default:
				session, err = passwordLogin(ctx, cmd, a)
			}
			if err != nil {
				return errors.New(autherrors.UserMessage(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", session.User.DisplayName())
			return nil
		})
	},
}

func passwordLogin(ctx context.Context, cmd *cobra.Command, a *app) (*sessions.Session, error) {
	in := bufio.NewReader(cmd.InOrStdin())
	username := loginUsername
	if username == "" {
		fmt.Fprint(cmd.OutOrStdout(), "Username: ")
		username = readLine(in)
	}
	var password string
	if loginPasswordStdin {
		password = readLine(in)
	} else {
		password = readSecret(cmd, in, cmd.OutOrStdout(), "Password: ")
	}
	return a.gateway.Login(ctx, username, password)
}

func redirectLogin(ctx context.Context, out io.Writer, a *app) (*sessions.Session, error) {
	receiver, err := auth.NewLoopbackReceiver(a.cfg.GetRedirectURL())
	if err != nil {
		return nil, err
	}

	authURL, err := a.gateway.BeginLogin(ctx)
	if err != nil {
		_ = receiver.Close()
		return nil, err
	}
	fmt.Fprintf(out, "Open this URL in your browser to log in:\n\n  %s\n\n", authURL)
	a.gateway.MarkRedirected()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	return receiver.Wait(ctx, a.gateway.HandleCallback)
}
