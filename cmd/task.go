package cmd

import (
	"context"
	"fmt"

	"github.com/khrees2412/applytrack/internal/editor"
	"github.com/khrees2412/applytrack/pkg/models"
	"github.com/spf13/cobra"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage the sub-tasks of an application",
}

var docCmd = &cobra.Command{
	Use:   "doc",
	Short: "Manage documents attached to an application",
}

// withApplication resolves the application named by ref and hands it to fn
func withApplication(cmd *cobra.Command, ref string, fn func(ctx context.Context, e *editor.ApplicationEditor, app models.Application) error) error {
	a, err := signedIn(cmd)
	if err != nil {
		return err
	}
	apps, err := load(cmd.Context(), a.Applications)
	if err != nil {
		return err
	}
	app, err := findByID(apps, applicationID, ref)
	if err != nil {
		return err
	}
	return fn(cmd.Context(), editor.NewApplicationEditor(a.Applications), app)
}

func taskID(t models.Task) string      { return t.ID }
func docID(d models.Attachment) string { return d.ID }

var taskAddCmd = &cobra.Command{
	Use:   "add <application-id> <text>",
	Short: "Add a sub-task",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApplication(cmd, args[0], func(ctx context.Context, e *editor.ApplicationEditor, app models.Application) error {
			task, err := e.AddTask(ctx, app, args[1])
			if err != nil {
				return err
			}
			fmt.Printf("✓ Task %s added to %s\n", shortID(task.ID), app.Company)
			return nil
		})
	},
}

var taskToggleCmd = &cobra.Command{
	Use:     "toggle <application-id> <task-id>",
	Aliases: []string{"done"},
	Short:   "Mark a sub-task done, or not done again",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApplication(cmd, args[0], func(ctx context.Context, e *editor.ApplicationEditor, app models.Application) error {
			task, err := findByID(app.Tasks, taskID, args[1])
			if err != nil {
				return err
			}
			if err := e.ToggleTask(ctx, app, task.ID); err != nil {
				return err
			}
			state := "done"
			if task.Completed {
				state = "open"
			}
			fmt.Printf("✓ %q is %s\n", task.Text, state)
			return nil
		})
	},
}

var taskRemoveCmd = &cobra.Command{
	Use:     "rm <application-id> <task-id>",
	Aliases: []string{"remove"},
	Short:   "Remove a sub-task",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApplication(cmd, args[0], func(ctx context.Context, e *editor.ApplicationEditor, app models.Application) error {
			task, err := findByID(app.Tasks, taskID, args[1])
			if err != nil {
				return err
			}
			if err := e.RemoveTask(ctx, app, task.ID); err != nil {
				return err
			}
			fmt.Println("✓ Task removed")
			return nil
		})
	},
}

var docAddCmd = &cobra.Command{
	Use:   "add <application-id>",
	Short: "Attach a document link",
	Args:  cobra.ExactArgs(1),
	Example: `  applytrack app doc add 3f2a --name "Take-home brief" --url https://acme.io/brief.pdf --type pdf`,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		url, _ := cmd.Flags().GetString("url")
		docType, _ := cmd.Flags().GetString("type")
		return withApplication(cmd, args[0], func(ctx context.Context, e *editor.ApplicationEditor, app models.Application) error {
			doc, err := e.AttachDocument(ctx, app, name, url, docType)
			if err != nil {
				return err
			}
			fmt.Printf("✓ Document %s attached to %s\n", shortID(doc.ID), app.Company)
			return nil
		})
	},
}

var docRemoveCmd = &cobra.Command{
	Use:     "rm <application-id> <document-id>",
	Aliases: []string{"remove"},
	Short:   "Remove an attached document",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApplication(cmd, args[0], func(ctx context.Context, e *editor.ApplicationEditor, app models.Application) error {
			doc, err := findByID(app.Documents, docID, args[1])
			if err != nil {
				return err
			}
			if err := e.RemoveDocument(ctx, app, doc.ID); err != nil {
				return err
			}
			fmt.Println("✓ Document removed")
			return nil
		})
	},
}

func init() {
	docAddCmd.Flags().String("name", "", "Document name")
	docAddCmd.Flags().String("url", "", "Document URL")
	docAddCmd.Flags().String("type", "link", "Document type")

	taskCmd.AddCommand(taskAddCmd, taskToggleCmd, taskRemoveCmd)
	docCmd.AddCommand(docAddCmd, docRemoveCmd)
	appCmd.AddCommand(taskCmd, docCmd)
}
