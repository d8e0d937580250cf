package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/viiraa/healthsync/internal/session"
)

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and disconnect the aggregator link",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, cleanup, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if _, err := a.restoreSession(ctx); err != nil && !errors.Is(err, session.ErrNoSession) {
				return err
			}

			a.connector.Disconnect(ctx)
			if err := a.sessions.SignOut(ctx); err != nil {
				return fmt.Errorf("signing out: %w", err)
			}

			fmt.Println("Signed out.")
			return nil
		},
	}
}
