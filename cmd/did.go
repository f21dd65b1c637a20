package cmd

import (
	"log"

	"github.com/arlindoconceicao/vertex-sub000/agent/ssi"
	"github.com/arlindoconceicao/vertex-sub000/cmds/did"
	"github.com/lainio/err2"
	"github.com/spf13/cobra"
)

// didCmd represents the did command
var didCmd = &cobra.Command{
	Use:   "did",
	Short: "Parent command for the wallet's DIDs",
	Long: `
Parent command for the wallet's DIDs
	`,
	Run: func(cmd *cobra.Command, args []string) {
		SubCmdNeeded(cmd)
	},
}

var didCreateEnvs = map[string]string{
	"seed":    "SEED",
	"alias":   "ALIAS",
	"primary": "PRIMARY",
}

var didCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Command for creating an own DID",
	Long: `
Creates an own DID from a random seed, or from --seed.

Example
	ssi-agent did create --alias issuer --primary
	`,
	PreRunE: func(cmd *cobra.Command, args []string) (err error) {
		return BindEnvs(didCreateEnvs, "DID")
	},
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		createDidCmd.Cmd = walletFlags
		return run(cmd, createDidCmd)
	},
}

var createDidCmd = did.CreateCmd{}

var didImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Command for storing their DID",
	Long: `
Stores their DID with its verkey.

Example
	ssi-agent did import --did Th7MpTaRZVRYnPiabds81Y \
		--verkey FYmoFw55GeQH7SRFa37dkx1d2dZ3zUF8ckg7wmL7ofN4
	`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		addDidCmd.Cmd = walletFlags
		return run(cmd, addDidCmd)
	},
}

var addDidCmd = did.AddCmd{}

var didListCmd = &cobra.Command{
	Use:   "list",
	Short: "Command for listing DIDs",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		listDidCmd.Cmd = walletFlags
		return run(cmd, listDidCmd)
	},
}

var listDidCmd = did.ListCmd{}

var didPrimaryCmd = &cobra.Command{
	Use:   "primary [DID]",
	Short: "Command for showing or setting the primary DID",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		c := did.PrimaryCmd{Cmd: walletFlags}
		if len(args) == 1 {
			c.Did = args[0]
		}
		return run(cmd, c)
	},
}

var didExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Command for exporting DIDs as a batch",
	Long: `
Exports the public part of the selected DIDs. Seeds are never exported.

Example
	ssi-agent did export --type own --file dids.json
	`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		exportDidCmd.Cmd = walletFlags
		exportDidCmd.SearchFilter = listDidCmd.SearchFilter
		return run(cmd, exportDidCmd)
	},
}

var exportDidCmd = did.ExportCmd{}

var didImportBatchCmd = &cobra.Command{
	Use:   "import-batch",
	Short: "Command for importing a DID batch",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		importBatchCmd.Cmd = walletFlags
		return run(cmd, importBatchCmd)
	},
}

var importBatchCmd = did.ImportCmd{}

func filterFlags(c *cobra.Command) {
	f := c.Flags()
	f.StringVar((*string)(&listDidCmd.Type), "type", "", "own or external")
	f.StringVar(&listDidCmd.Query, "query", "", "substring of DID, verkey or alias")
	f.IntVar(&listDidCmd.Limit, "limit", 0, "max results, 0 is all")
	f.IntVar(&listDidCmd.Offset, "offset", 0, "results to skip")
}

func init() {
	defer err2.Catch(err2.Err(func(err error) {
		log.Println(err)
	}))

	f := didCreateCmd.Flags()
	f.StringVar(&createDidCmd.Seed, "seed", "", flagInfo("DID seed", "DID", didCreateEnvs["seed"]))
	f.StringVar(&createDidCmd.Alias, "alias", "", flagInfo("DID alias", "DID", didCreateEnvs["alias"]))
	f.BoolVar(&createDidCmd.Primary, "primary", false, flagInfo("make the DID primary", "DID", didCreateEnvs["primary"]))

	f = didImportCmd.Flags()
	f.StringVar(&addDidCmd.Did, "did", "", "their DID")
	f.StringVar(&addDidCmd.Verkey, "verkey", "", "their verkey")
	f.StringVar(&addDidCmd.Alias, "alias", "", "their alias")

	filterFlags(didListCmd)
	filterFlags(didExportCmd)
	didExportCmd.Flags().StringVar(&exportDidCmd.Filename, "file", "", "batch file, stdout when empty")

	f = didImportBatchCmd.Flags()
	f.StringVar(&importBatchCmd.Filename, "file", "", "batch file, stdin when empty")
	f.StringVar((*string)(&importBatchCmd.Mode), "mode", string(ssi.ImportPreserve), "preserve or external")

	didCmd.AddCommand(didCreateCmd, didImportCmd, didListCmd, didPrimaryCmd,
		didExportCmd, didImportBatchCmd)
	rootCmd.AddCommand(didCmd)
}
