package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/khrees2412/applytrack/internal/blob"
	"github.com/khrees2412/applytrack/internal/editor"
	"github.com/spf13/cobra"
)

var cvCmd = &cobra.Command{
	Use:   "cv",
	Short: "Manage CV files",
}

var cvUploadCmd = &cobra.Command{
	Use:     "upload <file>",
	Short:   "Upload a CV file as the next version of its role and language",
	Args:    cobra.ExactArgs(1),
	Example: `  applytrack cv upload ./cv.pdf --role Backend --lang EN`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := signedIn(cmd)
		if err != nil {
			return err
		}
		role, _ := cmd.Flags().GetString("role")
		lang, _ := cmd.Flags().GetString("lang")

		existing, err := load(cmd.Context(), a.CVs)
		if err != nil {
			return err
		}

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", args[0], err)
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			return err
		}

		e := editor.NewCVEditor(a.CVs, a.Blobs, a.Session.UserID())
		e.New(role, lang)
		e.Draft.File = &editor.CVFile{Name: filepath.Base(args[0]), Size: info.Size(), Body: f}

		saved, err := e.Save(cmd.Context(), existing, func(p blob.Progress) {
			fmt.Fprintf(os.Stderr, "\r\033[K⏳ Uploading... %.0f%%", p.Percent())
		})
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return err
		}
		if saved == nil {
			return fmt.Errorf("select a file to upload")
		}
		fmt.Println(successStyle.Render(fmt.Sprintf("✓ Uploaded %s as %s v%d", saved.Name, saved.BaseName, saved.Version)))
		return nil
	},
}

var cvListCmd = &cobra.Command{
	Use:   "list",
	Short: "List uploaded CVs",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := signedIn(cmd)
		if err != nil {
			return err
		}
		cvs, err := load(cmd.Context(), a.CVs)
		if err != nil {
			return err
		}
		if len(cvs) == 0 {
			fmt.Println("No CVs yet. Upload one with 'applytrack cv upload <file> --role <role> --lang <lang>'")
			return nil
		}

		fmt.Println(titleStyle.Render(fmt.Sprintf("CVs (%d)", len(cvs))))
		for _, cv := range cvs {
			fmt.Printf("%s  %s v%d  %s  %s\n",
				labelStyle.Render(shortID(cv.ID)),
				valueStyle.Render(cv.BaseName),
				cv.Version,
				cv.Name,
				cv.Date)
			fmt.Printf("          %s\n", cv.DownloadURL)
		}
		return nil
	},
}

var cvDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a CV and its stored file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := signedIn(cmd)
		if err != nil {
			return err
		}
		cvs, err := load(cmd.Context(), a.CVs)
		if err != nil {
			return err
		}
		cv, err := findByID(cvs, cvID, args[0])
		if err != nil {
			return err
		}
		if !confirm(cmd, fmt.Sprintf("Delete %s v%d (%s)?", cv.BaseName, cv.Version, cv.Name)) {
			fmt.Println("Cancelled.")
			return nil
		}
		if err := editor.NewCVEditor(a.CVs, a.Blobs, a.Session.UserID()).Delete(cmd.Context(), cv); err != nil {
			return err
		}
		fmt.Println("✓ CV deleted")
		return nil
	},
}

func init() {
	cvUploadCmd.Flags().String("role", "", "Role this CV targets, e.g. Backend")
	cvUploadCmd.Flags().String("lang", "EN", "Language of the CV")
	cvUploadCmd.MarkFlagRequired("role")
	cvDeleteCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")

	cvCmd.AddCommand(cvUploadCmd, cvListCmd, cvDeleteCmd)
	rootCmd.AddCommand(cvCmd)
}
