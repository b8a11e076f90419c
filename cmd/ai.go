package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/khrees2412/applytrack/internal/ai"
	"github.com/khrees2412/applytrack/internal/app"
	"github.com/khrees2412/applytrack/internal/editor"
	"github.com/khrees2412/applytrack/internal/matcher"
	"github.com/khrees2412/applytrack/pkg/models"
	"github.com/spf13/cobra"
)

var aiCmd = &cobra.Command{
	Use:   "ai",
	Short: "Analyze postings and draft text with the configured language model",
	Long: `Analyze postings and draft text with the configured language model.
Results are printed only; pass --save <application-id> to keep one.`,
}

var aiAnalyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Extract company, position, skills and requirements from a posting",
	Example: `  applytrack ai analyze --file posting.txt
  applytrack ai analyze --url https://boards.greenhouse.io/acme/jobs/42 --profile 1a2b`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, assistant, err := assistantFor(cmd)
		if err != nil {
			return err
		}
		text, err := jobTextOrApplication(cmd, a)
		if err != nil {
			return err
		}

		fmt.Fprintln(os.Stderr, "⏳ Analyzing...")
		analysis, err := assistant.Analyze(cmd.Context(), text)
		if err != nil {
			return err
		}

		fmt.Println(titleStyle.Render("Job Analysis"))
		printField("Company", analysis.Company)
		printField("Position", analysis.Position)
		printField("Summary", analysis.Summary)
		printList("Key Skills", analysis.KeySkills)
		printList("Requirements", analysis.Requirements)
		printList("Responsibilities", analysis.Responsibilities)

		if ref, _ := cmd.Flags().GetString("profile"); ref != "" {
			profiles, err := load(cmd.Context(), a.Profiles)
			if err != nil {
				return err
			}
			p, err := findByID(profiles, profileID, ref)
			if err != nil {
				return err
			}
			report := matcher.Match(matcher.Posting{
				Position:  analysis.Position,
				KeySkills: analysis.KeySkills,
			}, p)
			fmt.Printf("\n%s %.0f%%\n", labelStyle.Render("Match with "+p.Name+":"), report.Score*100)
			printList("Covered", report.Matched)
			printList("Missing", report.Missing)
		}

		return saveResult(cmd, a, assistant, models.OutputAnalysis)
	},
}

var aiCoverLetterCmd = &cobra.Command{
	Use:   "cover-letter",
	Short: "Draft a cover letter from a posting and a profile or CV",
	Example: `  applytrack ai cover-letter --application 3f2a --profile 1a2b --keep
  applytrack ai cover-letter --file posting.txt --raw`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, assistant, err := assistantFor(cmd)
		if err != nil {
			return err
		}
		text, err := jobTextOrApplication(cmd, a)
		if err != nil {
			return err
		}
		source, sourceID, err := letterSource(cmd, a)
		if err != nil {
			return err
		}

		fmt.Fprintln(os.Stderr, "⏳ Writing...")
		letter, err := assistant.GenerateCoverLetter(cmd.Context(), text, source)
		if err != nil {
			return err
		}
		fmt.Println(letter)

		if keep, _ := cmd.Flags().GetBool("keep"); keep {
			linked, err := linkedApplication(cmd, a)
			if err != nil {
				return err
			}
			e := editor.NewCoverLetterEditor(a.Letters)
			e.New()
			e.Draft = letterFromResult(letter, text, sourceID, linked)
			if _, err := e.Save(cmd.Context()); err != nil {
				return err
			}
			fmt.Println(successStyle.Render("✓ Saved to your cover letters"))
		}
		return saveResult(cmd, a, assistant, models.OutputCoverLetter)
	},
}

var aiImproveCmd = &cobra.Command{
	Use:     "improve",
	Short:   "Suggest CV improvements for a posting",
	Example: `  applytrack ai improve --cv-file cv.txt --file posting.txt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, assistant, err := assistantFor(cmd)
		if err != nil {
			return err
		}
		cvFile, _ := cmd.Flags().GetString("cv-file")
		cvText, err := readInput(cmd, "", cvFile)
		if err != nil {
			return err
		}
		if cvText == "" {
			if cvText, err = a.RawProfile.Load(); err != nil {
				return err
			}
		}
		text, err := jobTextOrApplication(cmd, a)
		if err != nil {
			return err
		}

		fmt.Fprintln(os.Stderr, "⏳ Reviewing...")
		suggestions, err := assistant.SuggestImprovements(cmd.Context(), cvText, text)
		if err != nil {
			return err
		}
		fmt.Println(suggestions)
		return saveResult(cmd, a, assistant, models.OutputCVOptimization)
	},
}

var aiChatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the model about a document",
	Long: `Start a conversation grounded in a document (--context-file, default the raw
master profile). Commands: /save <application-id> <analysis|coverLetter|cvOptimization>,
/reset, /quit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, assistant, err := assistantFor(cmd)
		if err != nil {
			return err
		}
		contextFile, _ := cmd.Flags().GetString("context-file")
		docContext, err := readInput(cmd, "", contextFile)
		if err != nil {
			return err
		}
		if docContext == "" {
			if docContext, err = a.RawProfile.Load(); err != nil {
				return err
			}
		}
		return chatLoop(cmd.Context(), a, assistant, docContext)
	},
}

func chatLoop(ctx context.Context, a *app.App, assistant *ai.Facade, docContext string) error {
	fmt.Println(titleStyle.Render("Chat (type /quit to leave)"))
	in := bufio.NewScanner(os.Stdin)
	in.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		fmt.Print(labelStyle.Render("you> "))
		if !in.Scan() {
			return in.Err()
		}
		line := strings.TrimSpace(in.Text())
		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/exit":
			return nil
		case line == "/reset":
			assistant.Reset()
			fmt.Println("Conversation cleared.")
			continue
		case strings.HasPrefix(line, "/save"):
			fields := strings.Fields(line)
			if len(fields) != 3 {
				fmt.Println("usage: /save <application-id> <analysis|coverLetter|cvOptimization>")
				continue
			}
			if err := saveTo(ctx, a, assistant, fields[1], models.OutputType(fields[2])); err != nil {
				fmt.Println(errorStyle.Render("Error:"), userMessage(err))
			}
			continue
		}

		reply, err := assistant.Chat(ctx, line, docContext)
		if err != nil {
			fmt.Println(errorStyle.Render("Error:"), userMessage(err))
			continue
		}
		fmt.Printf("%s %s\n", labelStyle.Render("model>"), reply)
	}
}

// assistantFor returns the signed-in App and its AI facade
func assistantFor(cmd *cobra.Command) (*app.App, *ai.Facade, error) {
	a, err := signedIn(cmd)
	if err != nil {
		return nil, nil, err
	}
	assistant, err := a.Assistant()
	if err != nil {
		return nil, nil, err
	}
	return a, assistant, nil
}

// jobTextOrApplication falls back to the job description of --application
func jobTextOrApplication(cmd *cobra.Command, a *app.App) (string, error) {
	text, err := jobText(cmd, a)
	if err != nil || strings.TrimSpace(text) != "" {
		return text, err
	}
	linked, err := linkedApplication(cmd, a)
	if err != nil {
		return "", err
	}
	if linked == nil || linked.JobDescription == "" {
		return "", fmt.Errorf("provide a job description with --text, --file, --url or --application")
	}
	return linked.JobDescription, nil
}

func linkedApplication(cmd *cobra.Command, a *app.App) (*models.Application, error) {
	ref, _ := cmd.Flags().GetString("application")
	if ref == "" {
		return nil, nil
	}
	apps, err := load(cmd.Context(), a.Applications)
	if err != nil {
		return nil, err
	}
	found, err := findByID(apps, applicationID, ref)
	if err != nil {
		return nil, err
	}
	return &found, nil
}

// letterSource picks the profile or CV the letter is written from
func letterSource(cmd *cobra.Command, a *app.App) (any, string, error) {
	if ref, _ := cmd.Flags().GetString("profile"); ref != "" {
		profiles, err := load(cmd.Context(), a.Profiles)
		if err != nil {
			return nil, "", err
		}
		p, err := findByID(profiles, profileID, ref)
		if err != nil {
			return nil, "", err
		}
		return p, p.ID, nil
	}
	if ref, _ := cmd.Flags().GetString("cv"); ref != "" {
		cvs, err := load(cmd.Context(), a.CVs)
		if err != nil {
			return nil, "", err
		}
		cv, err := findByID(cvs, cvID, ref)
		if err != nil {
			return nil, "", err
		}
		return cv, cv.ID, nil
	}
	if raw, _ := cmd.Flags().GetBool("raw"); raw {
		text, err := a.RawProfile.Load()
		if err != nil {
			return nil, "", err
		}
		return map[string]string{"profile": text}, "", nil
	}
	return nil, "", nil
}

// saveResult keeps the last result when --save names an application
func saveResult(cmd *cobra.Command, a *app.App, assistant *ai.Facade, typ models.OutputType) error {
	ref, _ := cmd.Flags().GetString("save")
	if ref == "" {
		return nil
	}
	return saveTo(cmd.Context(), a, assistant, ref, typ)
}

func saveTo(ctx context.Context, a *app.App, assistant *ai.Facade, ref string, typ models.OutputType) error {
	apps, err := load(ctx, a.Applications)
	if err != nil {
		return err
	}
	target, err := findByID(apps, applicationID, ref)
	if err != nil {
		return err
	}
	if _, err := assistant.SaveResult(ctx, a.Outputs, target.ID, typ); err != nil {
		return err
	}
	fmt.Println(successStyle.Render(fmt.Sprintf("✓ Saved %s to %s", typ, target.Company)))
	return nil
}

func printList(label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Printf("%s\n", labelStyle.Render(label+":"))
	for _, item := range items {
		fmt.Printf("  • %s\n", item)
	}
}

func init() {
	for _, c := range []*cobra.Command{aiAnalyzeCmd, aiCoverLetterCmd, aiImproveCmd} {
		addJobFlags(c)
		c.Flags().String("application", "", "Use the job description of this application")
		c.Flags().String("save", "", "Save the result to this application")
	}
	aiAnalyzeCmd.Flags().String("profile", "", "Score the posting against this master profile")

	aiCoverLetterCmd.Flags().String("profile", "", "Write from this master profile")
	aiCoverLetterCmd.Flags().String("cv", "", "Write from this CV")
	aiCoverLetterCmd.Flags().Bool("raw", false, "Write from the raw master profile")
	aiCoverLetterCmd.Flags().Bool("keep", false, "Also save the letter to your cover letters")

	aiImproveCmd.Flags().String("cv-file", "", "CV text file (default: the raw master profile)")

	aiChatCmd.Flags().String("context-file", "", "Document to talk about (default: the raw master profile)")

	aiCmd.AddCommand(aiAnalyzeCmd, aiCoverLetterCmd, aiImproveCmd, aiChatCmd)
	rootCmd.AddCommand(aiCmd)
}
