package main

import (
	"bufio"
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	autherrors "github.com/jrsteele09/newsfeed-auth/internal/errors"
	"github.com/jrsteele09/newsfeed-auth/users"
)

var (
	signupUsername string
	signupEmail    string
)

func init() {
	rootCmd.AddCommand(signupCmd)
	signupCmd.Flags().StringVarP(&signupUsername, "username", "u", "", "Username (lowercase letters and numbers)")
	signupCmd.Flags().StringVarP(&signupEmail, "email", "e", "", "Email address")
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			in := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()

			creds := users.Credentials{Username: signupUsername, Email: signupEmail}
			if creds.Username == "" {
				fmt.Fprint(out, "Username: ")
				creds.Username = readLine(in)
				if normalized := users.NormalizeUsername(creds.Username); normalized != creds.Username {
					fmt.Fprintf(out, "Usernames may only contain lowercase letters and numbers, try %q\n", normalized)
				}
			}
			if creds.Email == "" {
				fmt.Fprint(out, "Email: ")
				creds.Email = readLine(in)
			}
			creds.Password = readSecret(cmd, in, out, "Password: ")
			creds.PasswordConfirm = readSecret(cmd, in, out, "Repeat password: ")

			result, err := a.gateway.Signup(ctx, creds)
			if err != nil {
				return errors.New(autherrors.UserMessage(err))
			}
			fmt.Fprintln(out, result.Message)
			return nil
		})
	},
}
