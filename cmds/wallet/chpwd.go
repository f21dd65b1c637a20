package wallet

import (
	"io"

	"github.com/arlindoconceicao/vertex-sub000/cmds"
	"github.com/arlindoconceicao/vertex-sub000/enclave"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

// ChangeKeyCmd changes the wallet password. The records aren't touched.
type ChangeKeyCmd struct {
	cmds.Cmd
	NewKey string
}

func (c ChangeKeyCmd) Validate() error {
	if err := c.Cmd.Validate(); err != nil {
		return err
	}
	if err := c.Cmd.ValidateWalletExistence(true); err != nil {
		return err
	}
	return cmds.ValidateKey(c.NewKey, "new wallet")
}

func (c ChangeKeyCmd) Exec(w io.Writer) (r cmds.Result, err error) {
	defer err2.Handle(&err, "change wallet key cmd")

	try.To1(c.Cmd.Exec(func(s *enclave.Store) (cmds.Result, error) {
		return nil, s.ChangePassword(c.WalletKey, c.NewKey)
	}))
	cmds.Fprintln(w, "wallet key changed:", c.WalletName)
	return nil, nil
}
