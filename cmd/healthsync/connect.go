package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func connectCmd() *cobra.Command {
	var skipPermissions bool

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Link the signed-in user to the health-data aggregator",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, cleanup, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if a.cfg.Vital.APIKey == "" {
				return errors.New("VITAL_API_KEY is not set")
			}

			current, err := a.restoreSession(ctx)
			if err != nil {
				return err
			}

			if err := a.connector.Connect(ctx, current.User.ID); err != nil {
				return fmt.Errorf("connecting: %w", err)
			}
			if !skipPermissions {
				if err := a.connector.RequestPermissions(ctx); err != nil {
					return fmt.Errorf("granting health-store access: %w", err)
				}
			}

			status := a.connector.Status()
			fmt.Printf("Connected as %s (aggregator user %s, %s)\n",
				current.User.Email, status.RemoteUserID, status.Environment)
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipPermissions, "skip-permissions", false, "do not request health-store access")
	return cmd
}
