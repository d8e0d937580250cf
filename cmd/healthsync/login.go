package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/viiraa/healthsync/internal/client/supabase"
	"github.com/viiraa/healthsync/internal/oauth"
	"github.com/viiraa/healthsync/internal/session"
	"github.com/viiraa/healthsync/internal/xslog"
)

func loginCmd() *cobra.Command {
	var (
		email    string
		password string
		google   bool
		signup   bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and link this machine",
		Long:  "Signs in with email/password or Google, stores the session locally, and links the account to the health-data aggregator.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, cleanup, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			var current *session.Session
			switch {
			case google:
				flow, err := oauth.NewFlow(a.supabase, "google")
				if err != nil {
					return fmt.Errorf("starting oauth flow: %w", err)
				}
				wire, err := flow.Run(ctx)
				if err != nil {
					return fmt.Errorf("google sign-in failed: %w", err)
				}
				current = a.sessions.AdoptWireSession(ctx, wire, "google")

			case signup:
				current, err = a.sessions.SignUp(ctx, email, password)
				if errors.Is(err, supabase.ErrConfirmationRequired) {
					fmt.Println("Check your inbox to confirm the account, then run login again.")
					return nil
				}
				if err != nil {
					return fmt.Errorf("sign-up failed: %w", err)
				}

			default:
				if email == "" || password == "" {
					return errors.New("provide --email and --password, or use --google")
				}
				current, err = a.sessions.SignInWithPassword(ctx, email, password)
				if err != nil {
					return fmt.Errorf("sign-in failed: %w", err)
				}
			}

			fmt.Printf("Signed in as %s\n", current.User.Email)

			// Linking is best effort at login; `connect` retries it.
			if a.cfg.Vital.APIKey == "" {
				fmt.Println("VITAL_API_KEY not set; run connect once it is configured.")
				return nil
			}
			if err := a.connector.Connect(ctx, current.User.ID); err != nil {
				a.logger.Warn("account link failed", xslog.Error(err))
				fmt.Println("Signed in, but linking failed; run connect to retry.")
				return nil
			}
			fmt.Println("Account linked.")
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.Flags().BoolVar(&google, "google", false, "sign in with Google in the browser")
	cmd.Flags().BoolVar(&signup, "signup", false, "create a new account")
	return cmd
}
