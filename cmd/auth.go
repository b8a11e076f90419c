package cmd

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/khrees2412/applytrack/internal/app"
	"github.com/khrees2412/applytrack/internal/auth"
	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with an identity token",
	Long: `Sign in with a token signed with auth_secret. Without --token a token is
issued locally for --email, which only works on a machine that holds the secret.
Only addresses listed in allowed_emails may sign in.`,
	Example: `  applytrack login --token eyJhbGciOi...
  applytrack login --email ada@example.com --name "Ada Lovelace"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.FromContext(cmd.Context())
		if err != nil {
			return err
		}
		token, _ := cmd.Flags().GetString("token")
		email, _ := cmd.Flags().GetString("email")
		name, _ := cmd.Flags().GetString("name")
		photo, _ := cmd.Flags().GetString("photo")
		ttl, _ := cmd.Flags().GetDuration("ttl")

		if token == "" {
			if email == "" {
				return fmt.Errorf("either --token or --email is required")
			}
			token, err = a.Tokens.Issue(auth.Identity{
				ID:          uuid.NewSHA1(uuid.NameSpaceURL, []byte("mailto:"+email)).String(),
				DisplayName: name,
				Email:       email,
				PhotoURL:    photo,
			}, ttl)
			if err != nil {
				return err
			}
		}

		if _, err := a.Tokens.Store(token); err != nil {
			return err
		}
		id, err := a.Session.SignIn(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Println(successStyle.Render("✓ Signed in as " + displayName(id)))
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.FromContext(cmd.Context())
		if err != nil {
			return err
		}
		if err := a.Session.SignOut(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Signed out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := signedIn(cmd)
		if err != nil {
			return err
		}
		id := a.Session.Current()
		fmt.Printf("%s %s\n", labelStyle.Render("Name:"), valueStyle.Render(displayName(id)))
		fmt.Printf("%s %s\n", labelStyle.Render("Email:"), valueStyle.Render(id.Email))
		fmt.Printf("%s %s\n", labelStyle.Render("User ID:"), valueStyle.Render(id.ID))
		if id.PhotoURL != "" {
			fmt.Printf("%s %s\n", labelStyle.Render("Photo:"), valueStyle.Render(id.PhotoURL))
		}
		return nil
	},
}

func displayName(id *auth.Identity) string {
	if id.DisplayName != "" {
		return id.DisplayName
	}
	return id.Email
}

func init() {
	loginCmd.Flags().String("token", "", "Identity token")
	loginCmd.Flags().String("email", "", "Email to issue a local token for")
	loginCmd.Flags().String("name", "", "Display name for a locally issued token")
	loginCmd.Flags().String("photo", "", "Photo URL for a locally issued token")
	loginCmd.Flags().Duration("ttl", 30*24*time.Hour, "Lifetime of a locally issued token")

	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)
}
