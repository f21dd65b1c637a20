package cmd

import (
	"github.com/arlindoconceicao/vertex-sub000/cmds/archive"
	"github.com/spf13/cobra"
)

// archiveCmd represents the archive command
var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Parent command for the presentation archive",
	Long: `
Parent command for the presentation archive
	`,
	Run: func(cmd *cobra.Command, args []string) {
		SubCmdNeeded(cmd)
	},
}

var archiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "Command for listing archived presentations",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		return run(cmd, archive.ListCmd{Cmd: walletFlags})
	},
}

var archiveStoreCmd = &cobra.Command{
	Use:   "store",
	Short: "Command for archiving a presentation with its request",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		storeArchiveCmd.Cmd = walletFlags
		return run(cmd, storeArchiveCmd)
	},
}

var storeArchiveCmd = archive.StoreCmd{}

var archiveExportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Command for exporting an archived presentation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		exportArchiveCmd.Cmd = walletFlags
		exportArchiveCmd.ID = args[0]
		return run(cmd, exportArchiveCmd)
	},
}

var exportArchiveCmd = archive.ExportCmd{}

var archiveImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Command for importing a presentation package",
	Long: `
Imports a presentation package. Without --id the package's own id is used.

Example
	ssi-agent archive import --file pres.pkg.json --id copy-1
	`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		importArchiveCmd.Cmd = walletFlags
		return run(cmd, importArchiveCmd)
	},
}

var importArchiveCmd = archive.ImportCmd{}

var archiveDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Command for deleting an archived presentation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		return run(cmd, archive.DeleteCmd{Cmd: walletFlags, ID: args[0]})
	},
}

func init() {
	f := archiveStoreCmd.Flags()
	f.StringVar(&storeArchiveCmd.ID, "id", "", "local id, new when empty")
	f.StringVar(&storeArchiveCmd.PresentationFile, "presentation", "", "presentation file")
	f.StringVar(&storeArchiveCmd.RequestFile, "request", "", "proof request file")
	f.StringVar(&storeArchiveCmd.MetaFile, "meta", "", "meta JSON object file")

	archiveExportCmd.Flags().StringVar(&exportArchiveCmd.Filename, "file", "", "package file, stdout when empty")

	f = archiveImportCmd.Flags()
	f.StringVar(&importArchiveCmd.Filename, "file", "", "package file, stdin when empty")
	f.StringVar(&importArchiveCmd.ID, "id", "", "new local id")
	f.BoolVar(&importArchiveCmd.Overwrite, "overwrite", false, "replace an existing record")

	archiveCmd.AddCommand(archiveListCmd, archiveStoreCmd, archiveExportCmd,
		archiveImportCmd, archiveDeleteCmd)
	rootCmd.AddCommand(archiveCmd)
}
