package cmd

import (
	"fmt"
	"time"

	"github.com/khrees2412/applytrack/internal/editor"
	"github.com/khrees2412/applytrack/pkg/models"
	"github.com/spf13/cobra"
)

var letterCmd = &cobra.Command{
	Use:     "letter",
	Aliases: []string{"letters", "cover-letter"},
	Short:   "Manage saved cover letters",
}

var letterAddCmd = &cobra.Command{
	Use:     "add",
	Short:   "Save a cover letter",
	Example: `  applytrack letter add --company Acme --position "Backend Engineer" --file ./letter.txt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := signedIn(cmd)
		if err != nil {
			return err
		}
		e := editor.NewCoverLetterEditor(a.Letters)
		e.New()
		if err := applyLetterFlags(cmd, &e.Draft); err != nil {
			return err
		}
		saved, err := e.Save(cmd.Context())
		if err != nil {
			return err
		}
		if !saved {
			return fmt.Errorf("letter content is required (--content or --file)")
		}
		fmt.Println(successStyle.Render("✓ Cover letter saved"))
		return nil
	},
}

var letterEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change a saved cover letter",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := signedIn(cmd)
		if err != nil {
			return err
		}
		letters, err := load(cmd.Context(), a.Letters)
		if err != nil {
			return err
		}
		l, err := findByID(letters, letterID, args[0])
		if err != nil {
			return err
		}
		e := editor.NewCoverLetterEditor(a.Letters)
		e.Edit(l)
		if err := applyLetterFlags(cmd, &e.Draft); err != nil {
			return err
		}
		saved, err := e.Save(cmd.Context())
		if err != nil {
			return err
		}
		if !saved {
			return fmt.Errorf("letter content cannot be empty")
		}
		fmt.Println(successStyle.Render("✓ Cover letter updated"))
		return nil
	},
}

var letterListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved cover letters",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := signedIn(cmd)
		if err != nil {
			return err
		}
		letters, err := load(cmd.Context(), a.Letters)
		if err != nil {
			return err
		}
		if len(letters) == 0 {
			fmt.Println("No cover letters yet. Draft one with 'applytrack ai cover-letter' or save one with 'applytrack letter add'")
			return nil
		}
		fmt.Println(titleStyle.Render(fmt.Sprintf("Cover Letters (%d)", len(letters))))
		for _, l := range letters {
			fmt.Printf("%s  %s  %s\n", labelStyle.Render(shortID(l.ID)), valueStyle.Render(l.Title), truncate(l.Content, 60))
		}
		return nil
	},
}

var letterShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a saved cover letter",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := signedIn(cmd)
		if err != nil {
			return err
		}
		letters, err := load(cmd.Context(), a.Letters)
		if err != nil {
			return err
		}
		l, err := findByID(letters, letterID, args[0])
		if err != nil {
			return err
		}
		fmt.Println(titleStyle.Render(l.Title))
		printField("Application", l.ApplicationID)
		printField("Updated", l.UpdatedAt)
		fmt.Println()
		fmt.Println(l.Content)
		return nil
	},
}

var letterDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a saved cover letter",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := signedIn(cmd)
		if err != nil {
			return err
		}
		letters, err := load(cmd.Context(), a.Letters)
		if err != nil {
			return err
		}
		l, err := findByID(letters, letterID, args[0])
		if err != nil {
			return err
		}
		if !confirm(cmd, fmt.Sprintf("Delete %q?", l.Title)) {
			fmt.Println("Cancelled.")
			return nil
		}
		if err := a.Letters.Delete(cmd.Context(), l.ID); err != nil {
			return err
		}
		fmt.Println("✓ Cover letter deleted")
		return nil
	},
}

var letterRefineCmd = &cobra.Command{
	Use:     "refine <id> <instruction>",
	Short:   "Ask the model to rework a saved letter",
	Args:    cobra.ExactArgs(2),
	Example: `  applytrack letter refine 7c1e "Make it shorter and mention Kafka" --apply`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := signedIn(cmd)
		if err != nil {
			return err
		}
		assistant, err := a.Assistant()
		if err != nil {
			return err
		}
		letters, err := load(cmd.Context(), a.Letters)
		if err != nil {
			return err
		}
		l, err := findByID(letters, letterID, args[0])
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.ErrOrStderr(), "⏳ Asking the model...")
		reply, err := assistant.Chat(cmd.Context(), args[1], l.Content)
		if err != nil {
			return err
		}
		fmt.Println(reply)

		if apply, _ := cmd.Flags().GetBool("apply"); apply {
			e := editor.NewCoverLetterEditor(a.Letters)
			e.Edit(l)
			e.Draft.Content = reply
			if _, err := e.Save(cmd.Context()); err != nil {
				return err
			}
			fmt.Println(successStyle.Render("✓ Letter updated"))
		}
		return nil
	},
}

var letterLinkCmd = &cobra.Command{
	Use:   "link <id> <application-id>",
	Short: "Attach a saved letter to an application as an AI output",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := signedIn(cmd)
		if err != nil {
			return err
		}
		letters, err := load(cmd.Context(), a.Letters)
		if err != nil {
			return err
		}
		l, err := findByID(letters, letterID, args[0])
		if err != nil {
			return err
		}
		apps, err := load(cmd.Context(), a.Applications)
		if err != nil {
			return err
		}
		app, err := findByID(apps, applicationID, args[1])
		if err != nil {
			return err
		}
		if _, err := editor.LinkToApplication(cmd.Context(), a.Outputs, l, app.ID, time.Now()); err != nil {
			return err
		}
		fmt.Printf("✓ Linked %q to %s\n", l.Title, app.Company)
		return nil
	},
}

// applyLetterFlags copies every flag the user set onto the draft
func applyLetterFlags(cmd *cobra.Command, d *editor.CoverLetterDraft) error {
	f := cmd.Flags()
	str := func(name string, dst *string) {
		if f.Changed(name) {
			*dst, _ = f.GetString(name)
		}
	}
	str("title", &d.Title)
	str("company", &d.Company)
	str("position", &d.Position)
	str("profile", &d.ProfileID)
	str("application", &d.ApplicationID)

	if f.Changed("content") || f.Changed("file") {
		content, _ := f.GetString("content")
		file, _ := f.GetString("file")
		body, err := readInput(cmd, content, file)
		if err != nil {
			return err
		}
		d.Content = body
	}
	if f.Changed("jd-file") {
		path, _ := f.GetString("jd-file")
		body, err := readInput(cmd, "", path)
		if err != nil {
			return err
		}
		d.JobDescription = body
	}
	return nil
}

func addLetterFlags(cmd *cobra.Command) {
	cmd.Flags().String("title", "", "Title (default: Position at Company)")
	cmd.Flags().String("company", "", "Company")
	cmd.Flags().String("position", "", "Position")
	cmd.Flags().String("profile", "", "Profile id the letter was written from")
	cmd.Flags().String("application", "", "Application id")
	cmd.Flags().String("content", "", "Letter text")
	cmd.Flags().StringP("file", "f", "", "Read the letter from a file (- for stdin)")
	cmd.Flags().String("jd-file", "", "Read the job description from a file")
}

// letterFromResult builds a letter draft from a generated text
func letterFromResult(content, jobDescription, profile string, app *models.Application) editor.CoverLetterDraft {
	d := editor.CoverLetterDraft{Content: content, JobDescription: jobDescription, ProfileID: profile}
	if app != nil {
		d.Company, d.Position, d.ApplicationID = app.Company, app.Position, app.ID
	}
	return d
}

func init() {
	addLetterFlags(letterAddCmd)
	addLetterFlags(letterEditCmd)
	letterDeleteCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	letterRefineCmd.Flags().Bool("apply", false, "Replace the letter with the reply")

	letterCmd.AddCommand(letterAddCmd, letterListCmd, letterShowCmd, letterEditCmd, letterDeleteCmd, letterRefineCmd, letterLinkCmd)
	rootCmd.AddCommand(letterCmd)
}
