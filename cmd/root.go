package cmd

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/arlindoconceicao/vertex-sub000/agent/utils"
	"github.com/arlindoconceicao/vertex-sub000/cmds"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "SSICLI"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Version: utils.Version,
	Use:     "ssi-agent",
	Short:   "Local wallet and credential exchange tool",
	Long: `
Local wallet and credential exchange tool.

Every flag can be given in an environment variable too, e.g. --wallet-name
as SSICLI_WALLET_NAME, or in a config file given with --config.
	`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cmds.ParseLoggingArgs(rootFlags.logging)
		handleViperFlags(cmd)
		return applySettings()
	},
}

// Execute root
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// RootCmd returns a current root command which can be used for adding own
// commands in an own repo.
func RootCmd() *cobra.Command {
	return rootCmd
}

// DryRun returns a value of a dry run flag.
func DryRun() bool {
	return rootFlags.dryRun
}

// RootFlags are the common flags
type RootFlags struct {
	cfgFile     string
	dryRun      bool
	logging     string
	walletDir   string
	envelopeTTL string
}

var rootFlags = RootFlags{}

// walletFlags are shared by every command that opens a wallet.
var walletFlags = cmds.Cmd{}

var rootEnvs = map[string]string{
	"config":       "CONFIG",
	"logging":      "LOGGING",
	"dry-run":      "DRY_RUN",
	"wallet-dir":   "WALLET_DIR",
	"wallet-name":  "WALLET_NAME",
	"wallet-key":   "WALLET_KEY",
	"envelope-ttl": "ENVELOPE_TTL",
}

func init() {
	defer err2.Catch(err2.Err(func(err error) {
		log.Println(err)
	}))

	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&rootFlags.cfgFile, "config", "", flagInfo("configuration file", "", rootEnvs["config"]))
	flags.StringVar(&rootFlags.logging, "logging", "-logtostderr=true -v=1", flagInfo("logging startup arguments", "", rootEnvs["logging"]))
	flags.BoolVarP(&rootFlags.dryRun, "dry-run", "n", false, flagInfo("perform a trial run with no changes made", "", rootEnvs["dry-run"]))
	flags.StringVar(&rootFlags.walletDir, "wallet-dir", "", flagInfo("wallet directory", "", rootEnvs["wallet-dir"]))
	flags.StringVar(&walletFlags.WalletName, "wallet-name", "", flagInfo("wallet name", "", rootEnvs["wallet-name"]))
	flags.StringVar(&walletFlags.WalletKey, "wallet-key", "", flagInfo("wallet key", "", rootEnvs["wallet-key"]))
	flags.StringVar(&rootFlags.envelopeTTL, "envelope-ttl", "", flagInfo("default envelope lifetime, e.g. 10m", "", rootEnvs["envelope-ttl"]))

	for key := range rootEnvs {
		if key == "config" {
			continue
		}
		try.To(viper.BindPFlag(key, flags.Lookup(key)))
	}
	try.To(BindEnvs(rootEnvs, ""))
}

func initConfig() {
	viper.SetEnvPrefix(envPrefix)
	replacer := strings.NewReplacer("-", "_")
	viper.SetEnvKeyReplacer(replacer)
	readConfigFile()
	readBoundRootFlags()
}

func readBoundRootFlags() {
	rootFlags.logging = viper.GetString("logging")
	rootFlags.dryRun = viper.GetBool("dry-run")
	rootFlags.walletDir = viper.GetString("wallet-dir")
	rootFlags.envelopeTTL = viper.GetString("envelope-ttl")
	walletFlags.WalletName = viper.GetString("wallet-name")
	walletFlags.WalletKey = viper.GetString("wallet-key")
}

// applySettings moves the root flags to the runtime settings.
func applySettings() (err error) {
	defer err2.Handle(&err, "settings")

	if rootFlags.walletDir != "" {
		utils.Settings.SetWalletDir(rootFlags.walletDir)
	}
	walletFlags.WalletDir = utils.Settings.WalletDir()
	if rootFlags.envelopeTTL != "" {
		ttl := try.To1(time.ParseDuration(rootFlags.envelopeTTL))
		utils.Settings.SetEnvelopeTTL(ttl)
	}
	return nil
}

func readConfigFile() {
	cfgEnv := os.Getenv(getEnvName("", "config"))
	if rootFlags.cfgFile != "" || cfgEnv != "" {
		printInfo := true
		if rootFlags.cfgFile == "" {
			rootFlags.cfgFile = cfgEnv
			printInfo = false
		}
		viper.SetConfigFile(rootFlags.cfgFile)
		// If a config file is found, read it in.
		if err := viper.ReadInConfig(); err == nil && printInfo {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

// BindEnvs calls viper.BindEnv with envMap and cmdName which can be empty if
// flag is general.
func BindEnvs(envMap map[string]string, cmdName string) (err error) {
	defer err2.Handle(&err)
	for flagKey, envName := range envMap {
		finalEnvName := getEnvName(cmdName, envName)
		try.To(viper.BindEnv(flagKey, finalEnvName))
	}
	return nil
}

func flagInfo(info, cmdPrefix, envName string) string {
	return info + ", " + getEnvName(cmdPrefix, envName)
}

func getEnvName(cmdName, envName string) string {
	if cmdName == "" {
		return envPrefix + "_" + strings.ToUpper(envName)
	}
	return envPrefix + "_" + strings.ToUpper(cmdName) + "_" + envName
}

func handleViperFlags(cmd *cobra.Command) {
	setRequiredStringFlags(cmd)
	if cmd.HasParent() {
		handleViperFlags(cmd.Parent())
	}
}

func setRequiredStringFlags(cmd *cobra.Command) {
	defer err2.Catch(err2.Err(func(err error) {
		log.Println(err)
	}))

	try.To(viper.BindPFlags(cmd.LocalFlags()))
	if cmd.PreRunE != nil {
		try.To(cmd.PreRunE(cmd, nil))
	}
	cmd.LocalFlags().VisitAll(func(f *pflag.Flag) {
		if viper.GetString(f.Name) != "" {
			try.To(cmd.LocalFlags().Set(f.Name, viper.GetString(f.Name)))
		}
	})
}

// SubCmdNeeded prints the help and error messages because the cmd is abstract.
func SubCmdNeeded(cmd *cobra.Command) {
	fmt.Println("Subcommand needed!")
	_ = cmd.Help()
	os.Exit(1)
}

// run validates c and, unless this is a dry run, executes it.
func run(cmd *cobra.Command, c cmds.Command) (err error) {
	defer err2.Handle(&err)

	try.To(c.Validate())
	if !rootFlags.dryRun {
		cmd.SilenceUsage = true
		try.To1(c.Exec(os.Stdout))
	}
	return nil
}
