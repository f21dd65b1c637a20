package wallet

import (
	"errors"
	"io"

	"github.com/arlindoconceicao/vertex-sub000/cmds"
	"github.com/arlindoconceicao/vertex-sub000/enclave"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

// RecoverCmd creates WalletName from a backup file. The new wallet is
// protected with WalletKey.
type RecoverCmd struct {
	cmds.Cmd
	Filename  string
	BackupKey string
}

func (c RecoverCmd) Validate() error {
	if err := c.Cmd.Validate(); err != nil {
		return err
	}
	if err := c.Cmd.ValidateWalletExistence(false); err != nil {
		return err
	}
	if c.Filename == "" {
		return errors.New("backup file cannot be empty")
	}
	return cmds.ValidateKey(c.BackupKey, "backup")
}

func (c RecoverCmd) Exec(w io.Writer) (r cmds.Result, err error) {
	defer err2.Handle(&err, "recover wallet cmd")

	try.To(enclave.Recover(c.Dir(), c.WalletName, c.WalletKey, c.Filename, c.BackupKey))
	cmds.Fprintln(w, "wallet recovered:", c.WalletName)
	return nil, nil
}
