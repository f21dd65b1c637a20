package cmd

import (
	"github.com/arlindoconceicao/vertex-sub000/agent/sec"
	"github.com/arlindoconceicao/vertex-sub000/cmds/envelope"
	"github.com/spf13/cobra"
)

// envelopeCmd represents the envelope command
var envelopeCmd = &cobra.Command{
	Use:   "envelope",
	Short: "Parent command for secure envelopes",
	Long: `
Parent command for secure envelopes
	`,
	Run: func(cmd *cobra.Command, args []string) {
		SubCmdNeeded(cmd)
	},
}

var envelopePackCmd = &cobra.Command{
	Use:   "pack",
	Short: "Command for packing an artifact",
	Long: `
Packs a protocol artifact for a recipient verkey.

Example
	ssi-agent envelope pack \
		--mode authcrypt \
		--sender Th7MpTaRZVRYnPiabds81Y \
		--recipient FYmoFw55GeQH7SRFa37dkx1d2dZ3zUF8ckg7wmL7ofN4 \
		--kind offer \
		--file offer.json
	`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		packCmd.Cmd = walletFlags
		return run(cmd, packCmd)
	},
}

var packCmd = envelope.PackCmd{}

var envelopeUnpackCmd = &cobra.Command{
	Use:   "unpack",
	Short: "Command for unpacking an envelope",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		unpackCmd.Cmd = walletFlags
		return run(cmd, unpackCmd)
	},
}

var unpackCmd = envelope.UnpackCmd{}

func init() {
	f := envelopePackCmd.Flags()
	f.StringVar(&packCmd.Mode, "mode", string(sec.ModeAuthcrypt), "authcrypt, anoncrypt or none")
	f.StringVar(&packCmd.SenderDid, "sender", "", "own sender DID for authcrypt")
	f.StringVar(&packCmd.RecipientVerkey, "recipient", "", "recipient verkey")
	f.StringVar(&packCmd.Kind, "kind", "", "artifact kind, e.g. offer or proof")
	f.StringVar(&packCmd.ThreadID, "thid", "", "thread id, new when empty")
	f.DurationVar(&packCmd.TTL, "ttl", 0, "envelope lifetime")
	f.StringVar(&packCmd.Filename, "file", "", "artifact file, stdin when empty")
	f.StringVar(&packCmd.Output, "out", "", "envelope file, stdout when empty")

	f = envelopeUnpackCmd.Flags()
	f.StringVar(&unpackCmd.ReceiverDid, "receiver", "", "own receiver DID")
	f.StringVar(&unpackCmd.Filename, "file", "", "envelope file, stdin when empty")

	envelopeCmd.AddCommand(envelopePackCmd, envelopeUnpackCmd)
	rootCmd.AddCommand(envelopeCmd)
}
