package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/viiraa/healthsync/internal/connector"
	"github.com/viiraa/healthsync/internal/session"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session and connection state",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, cleanup, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			var b strings.Builder
			b.WriteString(styleTitle.Render("healthsync status") + "\n\n")

			current, err := a.restoreSession(ctx)
			switch {
			case errors.Is(err, session.ErrNoSession):
				b.WriteString(styleLabel.Render("session  ") + styleBad.Render("signed out") + "\n")
			case err != nil:
				return err
			default:
				b.WriteString(styleLabel.Render("session  ") + styleGood.Render(current.User.Email) + "\n")
				b.WriteString(styleLabel.Render("expires  ") + current.ExpiresAt().Format("2006-01-02 15:04:05") + "\n")
			}

			status := a.connector.Status()
			b.WriteString(styleLabel.Render("link     ") + renderState(status.State) + "\n")
			if status.RemoteUserID != "" {
				b.WriteString(styleLabel.Render("remote   ") + status.RemoteUserID + "\n")
				env := string(status.Environment)
				if status.Environment.IsSandbox() {
					env = styleWarn.Render(env)
				}
				b.WriteString(styleLabel.Render("env      ") + env + "\n")
			}
			if len(status.Providers) > 0 {
				names := make([]string, len(status.Providers))
				for i, p := range status.Providers {
					names[i] = string(p)
				}
				b.WriteString(styleLabel.Render("providers ") + strings.Join(names, ", ") + "\n")
			}

			b.WriteString(styleLabel.Render("sync     ") + renderSync(status.Sync) + "\n")

			fmt.Println(b.String())
			return nil
		},
	}
}

func renderState(s connector.State) string {
	switch s {
	case connector.StateConnected:
		return styleGood.Render(string(s))
	case connector.StatePermissionsPending, connector.StateLinking:
		return styleWarn.Render(string(s))
	default:
		return styleBad.Render(string(s))
	}
}

func renderSync(s connector.SyncState) string {
	switch s.Status {
	case connector.SyncSuccess:
		return styleGood.Render(fmt.Sprintf("success at %s", s.LastSyncAt.Format("15:04:05")))
	case connector.SyncFailed:
		return styleBad.Render(fmt.Sprintf("failed: %v", s.LastError))
	case connector.SyncRunning:
		return styleWarn.Render("syncing")
	default:
		return styleLabel.Render("idle")
	}
}
