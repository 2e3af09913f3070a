// Package cli wires the evalreport commands.
package cli

import (
	"github.com/spf13/cobra"

	"evalreport-go/internal/config"
	"evalreport-go/internal/logger"
	"evalreport-go/internal/store"
)

// App holds what every command needs.
type App struct {
	Config *config.AppConfig
	Store  *store.Store
	Log    *logger.Logger
}

// NewRootCmd creates the top-level "evalreport" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "evalreport",
		Short:         "Training evaluation reports and threshold notifications",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCmd(app),
		newExportCmd(app),
		newBackupCmd(app),
		newImportCmd(app),
		newImportSheetCmd(app),
	)

	return root
}
