package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to Adoptify",
		Long:  "Sign in and store the session in the local session database. The password is read from stdin when --password is omitted.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				printf(cmd.OutOrStdout(), "Password: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
				printf(cmd.OutOrStdout(), "\n")
			}

			ctx := cmd.Context()
			target, err := opts.env.sessions.Login(ctx, opts.env.store, strings.TrimSpace(username), password)
			if err != nil {
				return explain(err)
			}

			summary, err := opts.env.sessions.Summary(ctx, opts.env.store)
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Logged in as %s (%s). Home: %s\n", summary.Username, summary.Role, target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Adoptify username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Adoptify password (prompted if omitted)")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := opts.env.sessions.Logout(cmd.Context(), opts.env.store); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Logged out.\n")
			return nil
		},
	}
}

func newWhoamiCmd(opts *rootOptions) *cobra.Command {
	var remote bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if remote {
				profile, err := opts.env.sessions.Profile(ctx, opts.env.store)
				if err != nil {
					return explain(err)
				}
				printf(out, "%s (%s)\n", profile.Username, profile.Role)
				printf(out, "Name:  %s %s\n", profile.FirstName, profile.LastName)
				printf(out, "Email: %s\n", profile.Email)
				if profile.PhoneNumber != "" {
					printf(out, "Phone: %s\n", profile.PhoneNumber)
				}
				return nil
			}

			summary, err := opts.env.sessions.Summary(ctx, opts.env.store)
			if err != nil {
				return err
			}
			if !summary.Authenticated {
				printf(out, "Not logged in.\n")
				return nil
			}
			printf(out, "%s (%s)\n", summary.Username, summary.Role)
			return nil
		},
	}

	cmd.Flags().BoolVar(&remote, "remote", false, "Fetch the full profile from the API")
	return cmd
}
