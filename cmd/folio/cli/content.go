package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/folio-cms/folio/internal/content"
	"github.com/folio-cms/folio/internal/model"
)

// contentImporter is the slice of the store used to load documents.
type contentImporter interface {
	ContentEmpty(ctx context.Context) (bool, error)
	Import(ctx context.Context, snap *model.ContentSnapshot) error
}

func newContentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "content",
		Short: "Export, import and seed portfolio content",
		Long: `Move portfolio content in and out of the store as YAML documents.

A document has the same shape as GET /api/content/all: personal_info,
projects, skills, certifications, experience, education and settings.`,
	}

	cmd.AddCommand(newContentExportCmd())
	cmd.AddCommand(newContentImportCmd())
	cmd.AddCommand(newContentSeedCmd())

	return cmd
}

// ---------- content export ----------

func newContentExportCmd() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all content as a YAML document",
		Example: `  folio content export                 # to stdout
  folio content export -o backup.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runContentExport(cmd.OutOrStdout(), outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write to file instead of stdout")

	return cmd
}

func runContentExport(stdout io.Writer, outputFile string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	snap, err := st.Snapshot(ctx)
	if err != nil {
		return err
	}

	if outputFile == "" {
		return content.Encode(stdout, snap)
	}
	f, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("create %s: %w", outputFile, err)
	}
	if err := content.Encode(f, snap); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Exported content to %s\n", outputFile)
	return nil
}

// ---------- content import ----------

func newContentImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace all content with a YAML document",
		Long: `Replace every content collection with the records in the document.
Collections missing from the document are emptied. personal_info and settings
are left untouched when the document omits them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runContentImport(cmd.OutOrStdout(), args[0])
		},
	}

	return cmd
}

func runContentImport(stdout io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	snap, err := content.Decode(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Import(ctx, snap); err != nil {
		return err
	}
	printSummary(stdout, "Imported", snap)
	return nil
}

// ---------- content seed ----------

func newContentSeedCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the bundled sample portfolio",
		Long: `Load the bundled sample portfolio into the store. Without --force the
store must not hold any content yet.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runContentSeed(cmd.OutOrStdout(), force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Replace existing content")

	return cmd
}

func runContentSeed(stdout io.Writer, force bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	return seedContent(ctx, stdout, st, force)
}

func seedContent(ctx context.Context, stdout io.Writer, st contentImporter, force bool) error {
	if !force {
		empty, err := st.ContentEmpty(ctx)
		if err != nil {
			return err
		}
		if !empty {
			return fmt.Errorf("store already holds content (use --force to replace it)")
		}
	}
	snap, err := content.Sample()
	if err != nil {
		return err
	}
	if err := st.Import(ctx, snap); err != nil {
		return err
	}
	printSummary(stdout, "Seeded", snap)
	return nil
}

func printSummary(w io.Writer, verb string, snap *model.ContentSnapshot) {
	fmt.Fprintf(w, "%s content:\n", verb)
	fmt.Fprintf(w, "  projects:       %d\n", len(snap.Projects))
	fmt.Fprintf(w, "  skills:         %d\n", len(snap.Skills))
	fmt.Fprintf(w, "  certifications: %d\n", len(snap.Certifications))
	fmt.Fprintf(w, "  experience:     %d\n", len(snap.Experience))
	fmt.Fprintf(w, "  education:      %d\n", len(snap.Education))
}
