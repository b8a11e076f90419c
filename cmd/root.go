package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/khrees2412/applytrack/internal/app"
	"github.com/khrees2412/applytrack/internal/config"
	"github.com/spf13/cobra"
)

// skipApp marks commands that only need the configuration
const skipApp = "skip-app"

// application is closed by Execute once the command returns
var application *app.App

var rootCmd = &cobra.Command{
	Use:   "applytrack",
	Short: "Track job applications, CVs and cover letters",
	Long: `applytrack keeps your job applications, CV files, master profiles and cover
letters in one place, shows where your pipeline stands, and asks a language
model to analyze postings and draft letters for you.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configOnly(cmd) {
			if err := config.Initialize(); err != nil {
				return fmt.Errorf("failed to initialize config: %w", err)
			}
			return nil
		}

		// Initialize app with all dependencies
		a, err := app.NewApp(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to initialize app: %w", err)
		}
		application = a

		// Store app in command context
		cmd.SetContext(app.SetAppInContext(cmd.Context(), a))
		return nil
	},
}

// configOnly reports whether cmd or a parent is marked skipApp
func configOnly(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[skipApp] != "" {
			return true
		}
	}
	return false
}

// Execute runs the root command
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := rootCmd.ExecuteContext(ctx)

	// Cleanup: close app resources
	if application != nil {
		application.Close()
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error:"), userMessage(err))
		cancel()
		os.Exit(1)
	}
}
