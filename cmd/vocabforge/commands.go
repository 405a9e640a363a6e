package main

import (
	"fmt"
	"strings"

	"github.com/lamim/vocabforge/internal/api"
	"github.com/lamim/vocabforge/internal/checkpoint"
	"github.com/lamim/vocabforge/internal/corpus"
	"github.com/lamim/vocabforge/internal/writer"
	"github.com/spf13/cobra"
)

func newImportCmd() *cobra.Command {
	var batchSize int

	cmd := &cobra.Command{
		Use:   "import <csv-file>",
		Short: "Import the word frequency corpus",
		Long:  "Import a COCA-style frequency CSV (25 columns, header row) into the database. Existing (lemma, pos) pairs are kept.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, true)
			if err != nil {
				return err
			}
			defer a.close()

			stats, err := corpus.NewImporter(a.store, batchSize, a.logger).ImportFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Rows: %d, inserted: %d, skipped: %d, invalid: %d\n",
				stats.Rows, stats.Inserted, stats.Existing, stats.Invalid)
			return nil
		},
	}
	cmd.Flags().IntVar(&batchSize, "batch-size", corpus.DefaultBatchSize, "Rows per insert transaction")
	return cmd
}

func newExportCmd() *cobra.Command {
	var theme, format, output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export words with their sentences for a theme",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := writer.ParseFormat(format)
			if err != nil {
				return err
			}

			a, err := newApp(cmd, true)
			if err != nil {
				return err
			}
			defer a.close()

			if _, ok := a.cfg.Theme(theme); !ok {
				return fmt.Errorf("unknown theme %q (available: %v)", theme, a.cfg.ThemeKeys())
			}
			if output == "" {
				output = fmt.Sprintf("export_%s.%s", theme, f)
			}

			n, err := writer.ExportFile(cmd.Context(), a.store, theme, f, output, a.logger)
			if err != nil {
				return err
			}
			fmt.Printf("Exported %d words to %s\n", n, output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&theme, "theme", "t", "qa_manager", "Theme key")
	cmd.Flags().StringVarP(&format, "format", "f", string(writer.FormatJSONL), "Output format: jsonl or csv")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path (default export_<theme>.<format>)")
	return cmd
}

func newCheckpointCmd() *cobra.Command {
	checkpointCmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Manage checkpoints",
		Long:  "Manage per-theme generation checkpoints used to resume interrupted runs",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all saved checkpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, false)
			if err != nil {
				return err
			}
			defer a.close()

			cps, err := a.checkpoints.List()
			if err != nil {
				return err
			}
			if len(cps) == 0 {
				fmt.Println("No checkpoints found.")
				return nil
			}

			fmt.Printf("%-20s %-18s %-8s %-10s %-8s %s\n", "THEME", "MODEL", "BATCH", "PROCESSED", "ERRORS", "SAVED")
			fmt.Println(strings.Repeat("-", 90))
			for _, cp := range cps {
				fmt.Printf("%-20s %-18s %-8d %-10d %-8d %s\n",
					cp.Theme, cp.Model, cp.LastBatchIndex, cp.ProcessedCount, len(cp.Errors),
					cp.LastSavedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}

	inspectCmd := &cobra.Command{
		Use:   "inspect <theme>",
		Short: "Inspect a checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, true)
			if err != nil {
				return err
			}
			defer a.close()

			theme := args[0]
			cp, err := a.checkpoints.Load(theme)
			if err != nil {
				return err
			}
			if cp == nil {
				fmt.Printf("No checkpoint for theme %s.\n", theme)
				return nil
			}

			total, scope := cp.TotalWords, "selected"
			if total == 0 {
				stats, err := a.store.Stats(cmd.Context(), theme)
				if err != nil {
					return err
				}
				total, scope = stats.TotalWords, "in corpus"
			}

			fmt.Printf("Checkpoint Information for: %s\n", theme)
			fmt.Println(strings.Repeat("=", 80))
			fmt.Printf("Model:               %s\n", cp.Model)
			fmt.Printf("Created At:          %s\n", cp.CreatedAt.Format("2006-01-02 15:04:05"))
			fmt.Printf("Last Saved At:       %s\n", cp.LastSavedAt.Format("2006-01-02 15:04:05"))
			fmt.Printf("Last Batch:          %d\n", cp.LastBatchIndex)
			fmt.Printf("Last Word ID:        %d\n", cp.LastProcessedWordID)
			fmt.Printf("Processed:           %d / %d words %s (%.1f%%)\n",
				cp.ProcessedCount, total, scope, checkpoint.GetProgressPercentage(cp, total))
			fmt.Println()

			if len(cp.Errors) > 0 {
				fmt.Println("Failed batches:")
				for _, e := range cp.Errors {
					fmt.Printf("  #%-5d %s  %s\n", e.BatchIndex, e.Timestamp.Format("15:04:05"), e.Message)
				}
				fmt.Println()
			}

			fmt.Println("To resume this run:")
			fmt.Printf("  vocabforge generate --theme %s --resume\n", theme)
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear <theme>",
		Short: "Delete a checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, false)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.checkpoints.Delete(args[0]); err != nil {
				return err
			}
			fmt.Printf("Checkpoint for %s cleared.\n", args[0])
			return nil
		},
	}

	checkpointCmd.AddCommand(listCmd, inspectCmd, clearCmd)
	return checkpointCmd
}

func newOllamaCmd() *cobra.Command {
	ollamaCmd := &cobra.Command{
		Use:   "ollama",
		Short: "Inspect the Ollama endpoint",
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show connection status and installed models",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, false)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			fmt.Printf("Host:   %s\n", a.gen.Host())
			if !a.gen.CheckConnection(ctx) {
				fmt.Println("Status: disconnected")
				return fmt.Errorf("cannot connect to Ollama at %s", a.gen.Host())
			}
			fmt.Println("Status: connected")

			installed, err := a.gen.ListModels(ctx)
			if err != nil {
				return err
			}
			available := "no"
			if api.ModelAvailable(installed, a.gen.Model()) {
				available = "yes"
			}
			fmt.Printf("Model:  %s (installed: %s)\n", a.gen.Model(), available)
			fmt.Println("Installed models:")
			for _, m := range installed {
				fmt.Printf("  - %s\n", m)
			}
			return nil
		},
	}

	ollamaCmd.AddCommand(statusCmd)
	return ollamaCmd
}
