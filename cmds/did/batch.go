package did

import (
	"errors"
	"io"
	"os"

	"github.com/arlindoconceicao/vertex-sub000/agent/ssi"
	"github.com/arlindoconceicao/vertex-sub000/cmds"
	"github.com/arlindoconceicao/vertex-sub000/enclave"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

// ExportCmd writes a DID batch of the filtered DIDs. Seeds are never
// exported.
type ExportCmd struct {
	cmds.Cmd
	ssi.SearchFilter
	Filename string
}

func (c ExportCmd) Validate() error {
	if err := c.Cmd.Validate(); err != nil {
		return err
	}
	return validType(c.Type)
}

func (c ExportCmd) Exec(w io.Writer) (r cmds.Result, err error) {
	defer err2.Handle(&err, "export DIDs cmd")

	var data []byte
	try.To1(c.Cmd.Exec(func(s *enclave.Store) (_ cmds.Result, err error) {
		b, err := ssi.NewWallet(s).ExportBatch(c.SearchFilter)
		if err != nil {
			return nil, err
		}
		data, err = ssi.MarshalBatch(b)
		return nil, err
	}))
	try.To(cmds.WriteOutput(c.Filename, w, data))
	return nil, nil
}

// ImportCmd reads a DID batch into the wallet.
type ImportCmd struct {
	cmds.Cmd
	Filename string
	Mode     ssi.ImportMode
}

func (c ImportCmd) Validate() error {
	if err := c.Cmd.Validate(); err != nil {
		return err
	}
	switch c.Mode {
	case "", ssi.ImportPreserve, ssi.ImportExternal:
	default:
		return errors.New("import mode must be preserve or external")
	}
	return nil
}

func (c ImportCmd) Exec(w io.Writer) (r cmds.Result, err error) {
	defer err2.Handle(&err, "import DIDs cmd")

	data := try.To1(cmds.ReadInput(c.Filename, os.Stdin))
	b := try.To1(ssi.UnmarshalBatch(data))
	mode := c.Mode
	if mode == "" {
		mode = ssi.ImportPreserve
	}
	r = try.To1(c.Cmd.Exec(func(s *enclave.Store) (cmds.Result, error) {
		res, err := ssi.NewWallet(s).ImportBatch(b, mode)
		if err != nil {
			return nil, err
		}
		return cmds.JSONResult{V: res}, nil
	}))
	try.To(cmds.PrintJSON(w, r))
	return r, nil
}
