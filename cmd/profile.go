package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/khrees2412/applytrack/internal/app"
	"github.com/khrees2412/applytrack/internal/editor"
	"github.com/khrees2412/applytrack/pkg/models"
	"github.com/spf13/cobra"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			MarginTop(1).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("7"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)
)

var statusColors = map[models.Status]lipgloss.Color{
	models.StatusDraft:     "8",
	models.StatusApplied:   "12",
	models.StatusInterview: "11",
	models.StatusOffer:     "10",
	models.StatusRejected:  "9",
}

func statusStyle(s models.Status) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(statusColors[s]).Bold(true)
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage master profiles",
	Long:  "Create reusable candidate profiles, either as structured fields or as free text, for cover letters and matching",
}

var profileAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a master profile",
	Example: `  applytrack profile add --name Backend --full-name "Ada Lovelace" --skills "Go, PostgreSQL, Kafka"
  applytrack profile add --name "Free text" --mode text --file ./profile.md`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := signedIn(cmd)
		if err != nil {
			return err
		}
		mode, _ := cmd.Flags().GetString("mode")

		e := editor.NewProfileEditor(a.Profiles)
		e.New(models.InputMode(mode))
		if err := applyProfileFlags(cmd, &e.Draft); err != nil {
			return err
		}
		saved, err := e.Save(cmd.Context())
		if err != nil {
			return err
		}
		if !saved {
			return fmt.Errorf("--name is required")
		}
		fmt.Println(successStyle.Render("✓ Profile saved"))
		return nil
	},
}

var profileEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change a master profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := signedIn(cmd)
		if err != nil {
			return err
		}
		profiles, err := load(cmd.Context(), a.Profiles)
		if err != nil {
			return err
		}
		p, err := findByID(profiles, profileID, args[0])
		if err != nil {
			return err
		}

		e := editor.NewProfileEditor(a.Profiles)
		e.Edit(p)
		if cmd.Flags().Changed("mode") {
			mode, _ := cmd.Flags().GetString("mode")
			e.Draft.InputMode = models.InputMode(mode)
		}
		if err := applyProfileFlags(cmd, &e.Draft); err != nil {
			return err
		}
		saved, err := e.Save(cmd.Context())
		if err != nil {
			return err
		}
		if !saved {
			return fmt.Errorf("name cannot be empty")
		}
		fmt.Println(successStyle.Render("✓ Profile updated"))
		return nil
	},
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List master profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := signedIn(cmd)
		if err != nil {
			return err
		}
		profiles, err := load(cmd.Context(), a.Profiles)
		if err != nil {
			return err
		}
		if len(profiles) == 0 {
			fmt.Println("No profiles yet. Create one with 'applytrack profile add --name <name>'")
			return nil
		}

		fmt.Println(titleStyle.Render(fmt.Sprintf("Master Profiles (%d)", len(profiles))))
		for _, p := range profiles {
			fmt.Printf("%s  %s  [%s]", labelStyle.Render(shortID(p.ID)), valueStyle.Render(p.Name), p.InputMode)
			if p.UpdatedAt != "" {
				fmt.Printf("  updated %s", p.UpdatedAt)
			}
			fmt.Println()
		}
		return nil
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Display a master profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := signedIn(cmd)
		if err != nil {
			return err
		}
		profiles, err := load(cmd.Context(), a.Profiles)
		if err != nil {
			return err
		}
		p, err := findByID(profiles, profileID, args[0])
		if err != nil {
			return err
		}

		fmt.Println(titleStyle.Render(p.Name))
		if p.InputMode == models.InputModeText {
			fmt.Println(p.RawText)
			return nil
		}
		printField("Name", p.PersonalInfo.FullName)
		printField("Email", p.PersonalInfo.Email)
		printField("Phone", p.PersonalInfo.Phone)
		printField("Location", p.PersonalInfo.Location)
		printField("Summary", p.Summary)
		printField("Skills", strings.Join(p.Skills, ", "))
		printField("Experience", p.Experience)
		printField("Education", p.Education)
		printField("Languages", strings.Join(p.Languages, ", "))
		printField("Certifications", strings.Join(p.Certifications, ", "))
		return nil
	},
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a master profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := signedIn(cmd)
		if err != nil {
			return err
		}
		profiles, err := load(cmd.Context(), a.Profiles)
		if err != nil {
			return err
		}
		p, err := findByID(profiles, profileID, args[0])
		if err != nil {
			return err
		}
		if !confirm(cmd, fmt.Sprintf("Delete profile %q?", p.Name)) {
			fmt.Println("Cancelled.")
			return nil
		}
		if err := a.Profiles.Delete(cmd.Context(), p.ID); err != nil {
			return err
		}
		fmt.Println("✓ Profile deleted")
		return nil
	},
}

var profileRawCmd = &cobra.Command{
	Use:   "raw",
	Short: "The free-text master profile kept on this machine",
}

var profileRawShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the raw master profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.FromContext(cmd.Context())
		if err != nil {
			return err
		}
		text, err := a.RawProfile.Load()
		if err != nil {
			return err
		}
		if text == "" {
			fmt.Println("No raw profile saved. Set one with 'applytrack profile raw set --file <path>'")
			return nil
		}
		fmt.Println(text)
		return nil
	},
}

var profileRawSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Replace the raw master profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.FromContext(cmd.Context())
		if err != nil {
			return err
		}
		text, _ := cmd.Flags().GetString("text")
		file, _ := cmd.Flags().GetString("file")
		if text == "" && file == "" {
			return fmt.Errorf("either --text or --file is required")
		}
		body, err := readInput(cmd, text, file)
		if err != nil {
			return err
		}
		if err := a.RawProfile.Save(body); err != nil {
			return err
		}
		fmt.Printf("✓ Saved to %s\n", a.RawProfile.Path())
		return nil
	},
}

// applyProfileFlags copies every flag the user set onto the draft
func applyProfileFlags(cmd *cobra.Command, d *editor.ProfileDraft) error {
	f := cmd.Flags()
	str := func(name string, dst *string) {
		if f.Changed(name) {
			*dst, _ = f.GetString(name)
		}
	}
	str("name", &d.Name)
	str("full-name", &d.PersonalInfo.FullName)
	str("email", &d.PersonalInfo.Email)
	str("phone", &d.PersonalInfo.Phone)
	str("location", &d.PersonalInfo.Location)
	str("summary", &d.Summary)
	str("skills", &d.Skills)
	str("experience", &d.Experience)
	str("education", &d.Education)
	str("languages", &d.Languages)
	str("certifications", &d.Certifications)

	if f.Changed("text") || f.Changed("file") {
		text, _ := f.GetString("text")
		file, _ := f.GetString("file")
		body, err := readInput(cmd, text, file)
		if err != nil {
			return err
		}
		d.RawText = body
	}
	return nil
}

func addProfileFlags(cmd *cobra.Command) {
	cmd.Flags().String("name", "", "Profile name")
	cmd.Flags().String("mode", string(models.InputModeForm), "form or text")
	cmd.Flags().String("full-name", "", "Full name")
	cmd.Flags().String("email", "", "Email")
	cmd.Flags().String("phone", "", "Phone")
	cmd.Flags().String("location", "", "Location")
	cmd.Flags().String("summary", "", "Professional summary")
	cmd.Flags().String("skills", "", "Comma separated skills")
	cmd.Flags().String("experience", "", "Experience")
	cmd.Flags().String("education", "", "Education")
	cmd.Flags().String("languages", "", "Comma separated languages")
	cmd.Flags().String("certifications", "", "Comma separated certifications")
	cmd.Flags().String("text", "", "Profile text (text mode)")
	cmd.Flags().StringP("file", "f", "", "Read the profile text from a file (text mode, - for stdin)")
}

func init() {
	addProfileFlags(profileAddCmd)
	addProfileFlags(profileEditCmd)
	profileDeleteCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	profileRawSetCmd.Flags().String("text", "", "Profile text")
	profileRawSetCmd.Flags().StringP("file", "f", "", "Read the profile text from a file (- for stdin)")

	profileRawCmd.AddCommand(profileRawShowCmd, profileRawSetCmd)
	profileCmd.AddCommand(profileAddCmd, profileEditCmd, profileListCmd, profileShowCmd, profileDeleteCmd, profileRawCmd)
	rootCmd.AddCommand(profileCmd)
}
