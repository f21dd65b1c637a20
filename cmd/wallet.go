package cmd

import (
	"log"

	"github.com/arlindoconceicao/vertex-sub000/cmds/wallet"
	"github.com/lainio/err2"
	"github.com/spf13/cobra"
)

// walletCmd represents the wallet command
var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Parent command for wallet actions",
	Long: `
Parent command for wallet actions
	`,
	Run: func(cmd *cobra.Command, args []string) {
		SubCmdNeeded(cmd)
	},
}

var walletCreateEnvs = map[string]string{
	"seed":  "SEED",
	"alias": "ALIAS",
}

var walletCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Command for creating a new wallet",
	Long: `
Creates a new wallet. A seed imports the seed's DID and makes it primary.

Example
	ssi-agent wallet create \
		--wallet-name trustee \
		--wallet-key 9C5qFG3grXfU9LodHdMop7CNVb3HtKddjgRc7oK5KhWY \
		--seed 000000000000000000000000Trustee1
	`,
	PreRunE: func(cmd *cobra.Command, args []string) (err error) {
		return BindEnvs(walletCreateEnvs, "CREATE")
	},
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		createWalletCmd.Cmd = walletFlags
		return run(cmd, createWalletCmd)
	},
}

var createWalletCmd = wallet.CreateCmd{}

var walletChpwdEnvs = map[string]string{
	"new-key": "NEW_KEY",
}

var walletChpwdCmd = &cobra.Command{
	Use:   "chpwd",
	Short: "Command for changing the wallet key",
	Long: `
Changes the wallet key. The records are kept as they are, only the data key
is wrapped again.

Example
	ssi-agent wallet chpwd \
		--wallet-name trustee \
		--wallet-key 9C5qFG3grXfU9LodHdMop7CNVb3HtKddjgRc7oK5KhWY \
		--new-key 6cih1cVgRH8yHD54nEYyPKLmdv67o8QbufxaTHot3Qxp
	`,
	PreRunE: func(cmd *cobra.Command, args []string) (err error) {
		return BindEnvs(walletChpwdEnvs, "CHPWD")
	},
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		chpwdCmd.Cmd = walletFlags
		return run(cmd, chpwdCmd)
	},
}

var chpwdCmd = wallet.ChangeKeyCmd{}

var walletBackupEnvs = map[string]string{
	"file":  "FILE",
	"key":   "KEY",
	"every": "EVERY",
	"at":    "AT",
}

var walletBackupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Command for backing up the wallet",
	Long: `
Writes an encrypted backup of the wallet. With --every or --at the backup is
repeated until the process is stopped.

Example
	ssi-agent wallet backup \
		--wallet-name trustee \
		--wallet-key 9C5qFG3grXfU9LodHdMop7CNVb3HtKddjgRc7oK5KhWY \
		--file trustee.backup.json \
		--key backupKey \
		--every 1h
	`,
	PreRunE: func(cmd *cobra.Command, args []string) (err error) {
		return BindEnvs(walletBackupEnvs, "BACKUP")
	},
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		backupCmd.Cmd = walletFlags
		return run(cmd, backupCmd)
	},
}

var backupCmd = wallet.BackupCmd{}

var walletRecoverEnvs = map[string]string{
	"file": "FILE",
	"key":  "KEY",
}

var walletRecoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Command for recovering a wallet from a backup",
	Long: `
Creates the wallet from a backup file. The wallet key protects the new
wallet, the backup key opens the backup.

Example
	ssi-agent wallet recover \
		--wallet-name trustee2 \
		--wallet-key 6cih1cVgRH8yHD54nEYyPKLmdv67o8QbufxaTHot3Qxp \
		--file trustee.backup.json \
		--key backupKey
	`,
	PreRunE: func(cmd *cobra.Command, args []string) (err error) {
		return BindEnvs(walletRecoverEnvs, "RECOVER")
	},
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		recoverCmd.Cmd = walletFlags
		return run(cmd, recoverCmd)
	},
}

var recoverCmd = wallet.RecoverCmd{}

func init() {
	defer err2.Catch(err2.Err(func(err error) {
		log.Println(err)
	}))

	f := walletCreateCmd.Flags()
	f.StringVar(&createWalletCmd.Seed, "seed", "", flagInfo("seed of the primary DID", "CREATE", walletCreateEnvs["seed"]))
	f.StringVar(&createWalletCmd.Alias, "alias", "", flagInfo("alias of the primary DID", "CREATE", walletCreateEnvs["alias"]))

	f = walletChpwdCmd.Flags()
	f.StringVar(&chpwdCmd.NewKey, "new-key", "", flagInfo("new wallet key", "CHPWD", walletChpwdEnvs["new-key"]))

	f = walletBackupCmd.Flags()
	f.StringVar(&backupCmd.Filename, "file", "", flagInfo("backup file", "BACKUP", walletBackupEnvs["file"]))
	f.StringVar(&backupCmd.BackupKey, "key", "", flagInfo("backup key", "BACKUP", walletBackupEnvs["key"]))
	f.DurationVar(&backupCmd.Every, "every", 0, flagInfo("backup interval, e.g. 1h", "BACKUP", walletBackupEnvs["every"]))
	f.StringVar(&backupCmd.At, "at", "", flagInfo("daily backup time hh:mm", "BACKUP", walletBackupEnvs["at"]))

	f = walletRecoverCmd.Flags()
	f.StringVar(&recoverCmd.Filename, "file", "", flagInfo("backup file", "RECOVER", walletRecoverEnvs["file"]))
	f.StringVar(&recoverCmd.BackupKey, "key", "", flagInfo("backup key", "RECOVER", walletRecoverEnvs["key"]))

	walletCmd.AddCommand(walletCreateCmd, walletChpwdCmd, walletBackupCmd, walletRecoverCmd)
	rootCmd.AddCommand(walletCmd)
}
