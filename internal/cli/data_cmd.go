package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"evalreport-go/internal/dataset"
	"evalreport-go/internal/export"
	"evalreport-go/internal/report"
	"evalreport-go/internal/types"
)

func newExportCmd(app *App) *cobra.Command {
	var trainingID, kind, out string
	var superadmin bool
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a training report as .xlsx or .csv",
		RunE: func(cmd *cobra.Command, args []string) error {
			k := types.ResponseType(kind)
			if !k.Valid() {
				return fmt.Errorf("unknown kind %q (want facilitator or process)", kind)
			}
			ctx := cmd.Context()
			t, err := app.Store.GetTraining(ctx, trainingID)
			if err != nil {
				return err
			}
			responses, err := app.Store.ListResponses(ctx, trainingID)
			if err != nil {
				return err
			}
			role := types.RoleAdmin
			if superadmin {
				role = types.RoleSuperAdmin
			}
			rep := report.Build(t, responses, k, role)

			if out == "" {
				out = fmt.Sprintf("%s-%s.xlsx", trainingID, kind)
			}
			if err := writeReport(out, rep); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d groups, %d responses)\n", out, len(rep.Sections), rep.TotalResponses)
			return nil
		},
	}
	cmd.Flags().StringVar(&trainingID, "training", "", "training id")
	cmd.Flags().StringVar(&kind, "kind", string(types.ResponseFacilitator), "facilitator or process")
	cmd.Flags().StringVar(&out, "out", "", "output file (.xlsx or .csv)")
	cmd.Flags().BoolVar(&superadmin, "include-hidden", false, "include hidden sessions")
	_ = cmd.MarkFlagRequired("training")
	return cmd
}

func writeReport(path string, rep report.Report) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		data, err := export.SummaryCSV(rep)
		if err != nil {
			return err
		}
		return os.WriteFile(path, data, 0644)
	case ".xlsx":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := export.WriteXLSX(f, rep); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	default:
		return fmt.Errorf("unsupported export format %q", filepath.Ext(path))
	}
}

func newBackupCmd(app *App) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Dump every training, response and the settings as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := app.Store.ExportBackup(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			if err := enc.Encode(b); err != nil {
				return fmt.Errorf("writing backup: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output file (default stdout)")
	return cmd
}

func newImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Restore a JSON backup; the file is applied completely or not at all",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			data, err := io.ReadAll(r)
			if err != nil {
				return err
			}
			if err := app.Store.ImportBackup(cmd.Context(), data); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Import complete")
			return nil
		},
	}
}

func newImportSheetCmd(app *App) *cobra.Command {
	var trainingID, kind string
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "import-xlsx FILE",
		Short: "Load historical responses of one training from a spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k := types.ResponseType(kind)
			if !k.Valid() {
				return fmt.Errorf("unknown kind %q (want facilitator or process)", kind)
			}
			ctx := cmd.Context()
			t, err := app.Store.GetTraining(ctx, trainingID)
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			res, err := dataset.Load(f, t, k, app.Log)
			if err != nil {
				return err
			}
			sum := dataset.Summarize(t, res)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(sum); err != nil {
				return err
			}
			if dryRun || len(res.Responses) == 0 {
				return nil
			}
			if err := app.Store.SaveResponses(ctx, res.Responses); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d responses\n", len(res.Responses))
			return nil
		},
	}
	cmd.Flags().StringVar(&trainingID, "training", "", "training id")
	cmd.Flags().StringVar(&kind, "kind", string(types.ResponseFacilitator), "type used for rows without a type column")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "only print the summary")
	_ = cmd.MarkFlagRequired("training")
	return cmd
}
