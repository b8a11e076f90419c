package cmd

import (
	"fmt"
	"strings"

	"github.com/khrees2412/applytrack/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:         "config",
	Short:       "Manage configuration",
	Long:        "View and update configuration settings",
	Annotations: map[string]string{skipApp: "true"},
}

var showConfigCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.AppConfig
		fmt.Println(titleStyle.Render("Configuration"))
		fmt.Printf("%s %s\n", labelStyle.Render("Config File:"), config.GetConfigPath())
		fmt.Printf("%s %s\n", labelStyle.Render("Data Directory:"), cfg.DataDir)
		fmt.Printf("%s %s\n", labelStyle.Render("AI Provider:"), cfg.AIProvider)
		fmt.Printf("%s %s\n", labelStyle.Render("Default Model:"), orNone(cfg.DefaultModel))
		fmt.Printf("%s %s\n", labelStyle.Render("Store:"), cfg.StoreDriver)

		// Show if secrets are configured (but don't show the actual values)
		for _, s := range []struct{ label, value string }{
			{"Gemini Key:", cfg.GeminiKey},
			{"OpenAI Key:", cfg.OpenAIKey},
			{"Anthropic Key:", cfg.AnthropicKey},
			{"Database URL:", cfg.DatabaseURL},
			{"Auth Secret:", cfg.AuthSecret},
		} {
			if s.value != "" {
				fmt.Printf("%s %s\n", labelStyle.Render(s.label), "✓ Configured")
			} else {
				fmt.Printf("%s %s\n", labelStyle.Render(s.label), "✗ Not configured")
			}
		}

		fmt.Printf("%s %s\n", labelStyle.Render("Allowed Emails:"), orNone(strings.Join(cfg.AllowedEmails, ", ")))
		fmt.Printf("%s %s/%s\n", labelStyle.Render("Logging:"), cfg.LogLevel, cfg.LogFormat)
	},
}

var setConfigCmd = &cobra.Command{
	Use:   "set",
	Short: "Update a configuration value",
	Example: `  applytrack config set --key gemini_key --value AIza...
  applytrack config set --key ai_provider --value anthropic
  applytrack config set --key allowed_emails --value "ada@example.com,grace@example.com"
  applytrack config set --key store_driver --value postgres`,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, _ := cmd.Flags().GetString("key")
		value, _ := cmd.Flags().GetString("value")

		if key == "" {
			return fmt.Errorf("--key is required")
		}
		if err := config.Set(key, value); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		fmt.Printf("✓ Updated %s\n", key)
		return nil
	},
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func init() {
	setConfigCmd.Flags().String("key", "", "Configuration key")
	setConfigCmd.Flags().String("value", "", "Configuration value")

	configCmd.AddCommand(showConfigCmd, setConfigCmd)
	rootCmd.AddCommand(configCmd)
}
