package wallet

import (
	"io"

	"github.com/arlindoconceicao/vertex-sub000/agent/ssi"
	"github.com/arlindoconceicao/vertex-sub000/cmds"
	"github.com/arlindoconceicao/vertex-sub000/enclave"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

// CreateCmd creates a new wallet. With a seed the seed's DID is imported and
// made primary, e.g. for a trustee.
type CreateCmd struct {
	cmds.Cmd
	Seed  string
	Alias string
}

type CreateResult struct {
	Wallet string `json:"wallet"`
	Did    string `json:"did,omitempty"`
	Verkey string `json:"verkey,omitempty"`
}

func (c CreateCmd) Validate() error {
	if err := c.Cmd.Validate(); err != nil {
		return err
	}
	if err := c.Cmd.ValidateWalletExistence(false); err != nil {
		return err
	}
	return cmds.ValidateSeed(c.Seed)
}

func (c CreateCmd) Exec(w io.Writer) (r cmds.Result, err error) {
	defer err2.Handle(&err, "create wallet cmd")

	try.To(enclave.Create(c.Dir(), c.WalletName, c.WalletKey))
	res := CreateResult{Wallet: c.WalletName}
	if c.Seed != "" {
		try.To1(c.Cmd.Exec(func(s *enclave.Store) (cmds.Result, error) {
			wallet := ssi.NewWallet(s)
			did, err := wallet.ImportDidFromSeed(c.Seed, c.Alias)
			if err != nil {
				return nil, err
			}
			res.Did, res.Verkey = did.Did, did.Verkey
			return nil, wallet.SetPrimary(did.Did)
		}))
	}
	r = cmds.JSONResult{V: res}
	try.To(cmds.PrintJSON(w, r))
	return r, nil
}
