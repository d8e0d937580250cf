package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/viiraa/healthsync/internal/session"
)

func diagnoseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diagnose",
		Short: "Run a read-only health check of the data pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, cleanup, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			signedIn := true
			if _, err := a.restoreSession(ctx); err != nil {
				if !errors.Is(err, session.ErrNoSession) {
					return err
				}
				signedIn = false
			}

			report := a.connector.RunDiagnostic(ctx)

			var b strings.Builder
			b.WriteString(styleTitle.Render("diagnostic report") + "  " +
				styleLabel.Render(report.GeneratedAt.Format("2006-01-02 15:04:05")) + "\n\n")

			b.WriteString(styleLabel.Render("app session     ") + okBad(signedIn, "signed in", "signed out") + "\n")
			b.WriteString(styleLabel.Render("device sign-in  ") + okBad(report.DeviceSignedIn, "yes", "no") + "\n")
			if report.RemoteUserID != "" {
				b.WriteString(styleLabel.Render("remote user     ") + report.RemoteUserID + "\n")
			}
			b.WriteString(styleLabel.Render("permissions     ") + okBad(report.LocalAuthorized, "granted", "missing") + "\n")
			b.WriteString(styleLabel.Render("local readings  ") + fmt.Sprintf("%d", report.LocalReadingCount) + "\n")

			switch {
			case report.VerifyError != "":
				b.WriteString(styleLabel.Render("remote readings ") + styleBad.Render(report.VerifyError) + "\n")
			case report.RemoteVerified:
				b.WriteString(styleLabel.Render("remote readings ") + styleGood.Render("present") + "\n")
			default:
				b.WriteString(styleLabel.Render("remote readings ") + styleWarn.Render("absent (inconclusive)") + "\n")
			}

			if len(report.Remediation) > 0 {
				b.WriteString("\n" + styleTitle.Render("next steps") + "\n")
				for _, step := range report.Remediation {
					b.WriteString("  - " + step + "\n")
				}
			}

			fmt.Println(b.String())
			return nil
		},
	}
}
