package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jrsteele09/newsfeed-auth/apiclient"
	autherrors "github.com/jrsteele09/newsfeed-auth/internal/errors"
)

var whoamiRemote bool

func init() {
	rootCmd.AddCommand(whoamiCmd)
	whoamiCmd.Flags().BoolVar(&whoamiRemote, "remote", false, "Ask the backend which user the stored token belongs to")
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			session, err := a.gateway.Session(ctx)
			if err != nil {
				return err
			}
			if session == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
				return nil
			}

			profile := session.User
			if whoamiRemote {
				// The transport attaches the stored token.
				client, err := apiclient.New(a.cfg.GetAPIBaseURL(), apiclient.WithHTTPClient(apiclient.NewAuthenticatedHTTPClient(a.store)))
				if err != nil {
					return err
				}
				remote, err := client.FetchUserInfo(ctx, "")
				if err != nil {
					return errors.New(autherrors.UserMessage(err))
				}
				profile = *remote
			}

			data, err := json.MarshalIndent(profile, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		})
	},
}
