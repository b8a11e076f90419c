package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/khrees2412/applytrack/internal/apperr"
	"github.com/khrees2412/applytrack/internal/editor"
	"github.com/khrees2412/applytrack/internal/scraper"
	"github.com/khrees2412/applytrack/pkg/models"
	"github.com/spf13/cobra"
)

var appCmd = &cobra.Command{
	Use:     "app",
	Aliases: []string{"application", "applications"},
	Short:   "Manage job applications",
}

var appAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a new application",
	Example: `  applytrack app add --company Acme --position "Backend Engineer" --status applied
  applytrack app add --company Acme --url https://jobs.acme.io/42 --fetch`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := signedIn(cmd)
		if err != nil {
			return err
		}

		e := editor.NewApplicationEditor(a.Applications)
		e.New()
		if err := applyDraftFlags(cmd, &e.Draft); err != nil {
			return err
		}

		if fetch, _ := cmd.Flags().GetBool("fetch"); fetch && e.Draft.URL != "" && e.Draft.JobDescription == "" {
			fmt.Fprintln(os.Stderr, "⏳ Fetching posting...")
			p, err := scraper.FetchPostingText(cmd.Context(), e.Draft.URL, a.Logger)
			if err != nil {
				return err
			}
			e.Draft.JobDescription = p.Text
		}

		saved, err := e.Save(cmd.Context())
		if err != nil {
			return err
		}
		if !saved {
			return fmt.Errorf("--company is required")
		}
		fmt.Println(successStyle.Render("✓ Application saved"))
		return nil
	},
}

var appListCmd = &cobra.Command{
	Use:   "list",
	Short: "List applications, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := signedIn(cmd)
		if err != nil {
			return err
		}
		apps, err := load(cmd.Context(), a.Applications)
		if err != nil {
			return err
		}

		visible := filterFromFlags(cmd).Apply(apps)
		if len(visible) == 0 {
			fmt.Println("No applications found. Add one with 'applytrack app add --company <name>'")
			return nil
		}

		fmt.Println(titleStyle.Render(fmt.Sprintf("Applications (%d)", len(visible))))
		for _, app := range visible {
			fmt.Printf("%s  %-10s %s",
				labelStyle.Render(shortID(app.ID)),
				statusStyle(app.Status).Render(string(app.Status)),
				valueStyle.Render(app.Company))
			if app.Position != "" {
				fmt.Printf(" · %s", app.Position)
			}
			if app.Date != "" {
				fmt.Printf("  (%s)", app.Date)
			}
			fmt.Println()
		}
		return nil
	},
}

var appShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one application with its history, tasks and documents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := signedIn(cmd)
		if err != nil {
			return err
		}
		apps, err := load(cmd.Context(), a.Applications)
		if err != nil {
			return err
		}
		app, err := findByID(apps, applicationID, args[0])
		if err != nil {
			return err
		}

		fmt.Println(titleStyle.Render(fmt.Sprintf("%s · %s", app.Company, app.Position)))
		printField("ID", app.ID)
		printField("Status", string(app.Status))
		printField("Date", app.Date)
		printField("Location", app.Location)
		printField("Salary", app.Salary)
		printField("URL", app.URL)
		printField("Profile", app.ProfileID)
		printField("Notes", app.Notes)
		if app.JobDescription != "" {
			printField("Job Description", truncate(app.JobDescription, 160))
		}

		if len(app.History) > 0 {
			fmt.Printf("\n%s\n", labelStyle.Render("History"))
			for _, h := range app.History {
				fmt.Printf("  %s  %s", h.Date, statusStyle(h.Status).Render(string(h.Status)))
				if h.Note != "" {
					fmt.Printf("  %s", h.Note)
				}
				fmt.Println()
			}
		}
		if len(app.Tasks) > 0 {
			fmt.Printf("\n%s\n", labelStyle.Render("Tasks"))
			for _, t := range app.Tasks {
				box := "[ ]"
				if t.Completed {
					box = "[x]"
				}
				fmt.Printf("  %s %s  %s\n", box, t.Text, labelStyle.Render(shortID(t.ID)))
			}
		}
		if len(app.Documents) > 0 {
			fmt.Printf("\n%s\n", labelStyle.Render("Documents"))
			for _, d := range app.Documents {
				fmt.Printf("  %s (%s) %s  %s\n", d.Name, d.Type, d.URL, labelStyle.Render(shortID(d.ID)))
			}
		}
		return nil
	},
}

var appEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change fields of an application",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := signedIn(cmd)
		if err != nil {
			return err
		}
		apps, err := load(cmd.Context(), a.Applications)
		if err != nil {
			return err
		}
		app, err := findByID(apps, applicationID, args[0])
		if err != nil {
			return err
		}

		e := editor.NewApplicationEditor(a.Applications)
		e.Edit(app)
		if err := applyDraftFlags(cmd, &e.Draft); err != nil {
			return err
		}
		saved, err := e.Save(cmd.Context())
		if err != nil {
			return err
		}
		if !saved {
			return fmt.Errorf("company cannot be empty")
		}
		fmt.Println(successStyle.Render("✓ Application updated"))
		return nil
	},
}

var appStatusCmd = &cobra.Command{
	Use:   "status <id> <status>",
	Short: "Move an application to another status",
	Args:  cobra.ExactArgs(2),
	Example: `  applytrack app status 3f2a interview --note "Phone screen booked"
  applytrack app status 3f2a rejected`,
	RunE: func(cmd *cobra.Command, args []string) error {
		status, ok := models.ParseStatus(args[1])
		if !ok {
			return fmt.Errorf("invalid status %q. Must be one of: %v", args[1], models.Statuses)
		}
		a, err := signedIn(cmd)
		if err != nil {
			return err
		}
		apps, err := load(cmd.Context(), a.Applications)
		if err != nil {
			return err
		}
		app, err := findByID(apps, applicationID, args[0])
		if err != nil {
			return err
		}

		note, _ := cmd.Flags().GetString("note")
		if err := editor.NewApplicationEditor(a.Applications).SetStatus(cmd.Context(), app, status, note); err != nil {
			return err
		}
		fmt.Printf("✓ %s is now %s\n", app.Company, statusStyle(status).Render(string(status)))
		return nil
	},
}

var appDeleteCmd = &cobra.Command{
	Use:   "delete [id...]",
	Short: "Delete the given applications, or every application matching the filter",
	Example: `  applytrack app delete 3f2a 9bc1
  applytrack app delete --status rejected --yes`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := signedIn(cmd)
		if err != nil {
			return err
		}
		apps, err := load(cmd.Context(), a.Applications)
		if err != nil {
			return err
		}

		visible := filterFromFlags(cmd).Apply(apps)
		sel := editor.NewSelection()
		for _, ref := range args {
			app, err := findByID(visible, applicationID, ref)
			if err != nil {
				return err
			}
			sel.Toggle(app.ID)
		}

		targets := editor.Targets(visible, sel, applicationID)
		if len(targets) == 0 {
			fmt.Println("Nothing to delete.")
			return nil
		}
		if !confirm(cmd, fmt.Sprintf("Delete %d application(s)?", len(targets))) {
			fmt.Println("Cancelled.")
			return nil
		}

		n, err := editor.DeleteAll(cmd.Context(), a.Applications, targets, applicationID)
		fmt.Printf("Deleted %d of %d application(s).\n", n, len(targets))
		return err
	},
}

var appExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the visible applications as CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := signedIn(cmd)
		if err != nil {
			return err
		}
		apps, err := load(cmd.Context(), a.Applications)
		if err != nil {
			return err
		}

		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			out = editor.ExportFileName(time.Now())
		}
		visible := filterFromFlags(cmd).Apply(apps)

		if out == "-" {
			return editor.WriteApplicationsCSV(os.Stdout, visible)
		}
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", out, err)
		}
		if err := editor.WriteApplicationsCSV(f, visible); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Printf("✓ Exported %d application(s) to %s\n", len(visible), out)
		return nil
	},
}

// applyDraftFlags copies every flag the user set onto the draft
func applyDraftFlags(cmd *cobra.Command, d *editor.ApplicationDraft) error {
	f := cmd.Flags()
	str := func(name string, dst *string) {
		if f.Changed(name) {
			*dst, _ = f.GetString(name)
		}
	}
	str("company", &d.Company)
	str("position", &d.Position)
	str("location", &d.Location)
	str("salary", &d.Salary)
	str("url", &d.URL)
	str("notes", &d.Notes)
	str("profile", &d.ProfileID)
	str("date", &d.Date)
	str("note", &d.Note)

	if f.Changed("status") {
		s, _ := f.GetString("status")
		status, ok := models.ParseStatus(s)
		if !ok {
			return apperr.New(apperr.ErrInvalidArgument, "status", fmt.Sprintf("invalid status %q. Must be one of: %v", s, models.Statuses))
		}
		d.Status = status
	}
	if d.Date != "" {
		if _, err := time.Parse(models.DateLayout, d.Date); err != nil {
			return apperr.New(apperr.ErrInvalidArgument, "date", "date must look like 2024-06-15")
		}
	}
	if f.Changed("jd-file") {
		path, _ := f.GetString("jd-file")
		text, err := readInput(cmd, "", path)
		if err != nil {
			return err
		}
		d.JobDescription = text
	}
	return nil
}

func addDraftFlags(cmd *cobra.Command) {
	cmd.Flags().String("company", "", "Company name")
	cmd.Flags().String("position", "", "Position title")
	cmd.Flags().String("status", "", "Draft, Applied, Interview, Offer or Rejected")
	cmd.Flags().String("location", "", "Location")
	cmd.Flags().String("salary", "", "Salary")
	cmd.Flags().String("url", "", "Posting URL")
	cmd.Flags().String("notes", "", "Notes")
	cmd.Flags().String("profile", "", "Linked CV or profile id")
	cmd.Flags().String("date", "", "Application date (YYYY-MM-DD)")
	cmd.Flags().String("note", "", "Note for the status history")
	cmd.Flags().String("jd-file", "", "Read the job description from a file (- for stdin)")
}

func filterFromFlags(cmd *cobra.Command) editor.Filter {
	var f editor.Filter
	if s, _ := cmd.Flags().GetString("status"); s != "" {
		if status, ok := models.ParseStatus(s); ok {
			f.Status = status
		} else {
			f.Status = models.Status(s)
		}
	}
	f.Query, _ = cmd.Flags().GetString("query")
	return f
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("status", "", "Only applications with this status")
	cmd.Flags().StringP("query", "q", "", "Only applications whose company, position, location or notes contain this text")
}

func printField(label, value string) {
	if value == "" {
		return
	}
	fmt.Printf("%s %s\n", labelStyle.Render(label+":"), valueStyle.Render(value))
}

func init() {
	addDraftFlags(appAddCmd)
	appAddCmd.Flags().Bool("fetch", false, "Fetch the job description from --url")
	addDraftFlags(appEditCmd)
	appStatusCmd.Flags().String("note", "", "Note for the status history")

	addFilterFlags(appListCmd)
	addFilterFlags(appDeleteCmd)
	appDeleteCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	addFilterFlags(appExportCmd)
	appExportCmd.Flags().StringP("out", "o", "", "Output file (default applications_<date>.csv, - for stdout)")

	appCmd.AddCommand(appAddCmd, appListCmd, appShowCmd, appEditCmd, appStatusCmd, appDeleteCmd, appExportCmd)
	rootCmd.AddCommand(appCmd)
}
