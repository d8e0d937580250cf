package main

import (
	"context"
	"os"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/viiraa/healthsync/internal/version"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:     "healthsync",
		Short:   "Link your health data to the cloud dashboard",
		Version: version.Get(),
	}

	rootCmd.AddCommand(
		loginCmd(),
		logoutCmd(),
		connectCmd(),
		syncCmd(),
		statusCmd(),
		diagnoseCmd(),
		serveCmd(),
	)
	addDevCommands(rootCmd)

	if err := fang.Execute(context.Background(), rootCmd, fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM)); err != nil {
		os.Exit(1)
	}
}
