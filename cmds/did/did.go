// Package did has the commands for the wallet's DIDs.
package did

import (
	"errors"
	"io"

	"github.com/arlindoconceicao/vertex-sub000/agent/ssi"
	"github.com/arlindoconceicao/vertex-sub000/cmds"
	"github.com/arlindoconceicao/vertex-sub000/enclave"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

// CreateCmd makes a new own DID, from Seed when given.
type CreateCmd struct {
	cmds.Cmd
	Seed    string
	Alias   string
	Primary bool
}

func (c CreateCmd) Validate() error {
	if err := c.Cmd.Validate(); err != nil {
		return err
	}
	if err := c.Cmd.ValidateWalletExistence(true); err != nil {
		return err
	}
	return cmds.ValidateSeed(c.Seed)
}

func (c CreateCmd) Exec(w io.Writer) (r cmds.Result, err error) {
	defer err2.Handle(&err, "create DID cmd")

	r = try.To1(c.Cmd.Exec(func(s *enclave.Store) (cmds.Result, error) {
		wallet := ssi.NewWallet(s)
		var rec *ssi.DidRecord
		var err error
		if c.Seed != "" {
			rec, err = wallet.ImportDidFromSeed(c.Seed, c.Alias)
		} else {
			rec, err = wallet.GenerateDid(ssi.DidOptions{Alias: c.Alias})
		}
		if err != nil {
			return nil, err
		}
		if c.Primary {
			if err := wallet.SetPrimary(rec.Did); err != nil {
				return nil, err
			}
		}
		return cmds.JSONResult{V: rec}, nil
	}))
	try.To(cmds.PrintJSON(w, r))
	return r, nil
}

// AddCmd stores their DID and verkey.
type AddCmd struct {
	cmds.Cmd
	Did    string
	Verkey string
	Alias  string
}

func (c AddCmd) Validate() error {
	if err := c.Cmd.Validate(); err != nil {
		return err
	}
	if c.Did == "" || c.Verkey == "" {
		return errors.New("DID and verkey are needed")
	}
	return ssi.CheckDid(c.Did, c.Verkey)
}

func (c AddCmd) Exec(w io.Writer) (r cmds.Result, err error) {
	defer err2.Handle(&err, "add DID cmd")

	r = try.To1(c.Cmd.Exec(func(s *enclave.Store) (cmds.Result, error) {
		rec, err := ssi.NewWallet(s).AddExternal(c.Did, c.Verkey, c.Alias)
		if err != nil {
			return nil, err
		}
		return cmds.JSONResult{V: rec}, nil
	}))
	try.To(cmds.PrintJSON(w, r))
	return r, nil
}

// ListCmd prints the DIDs matching the filter.
type ListCmd struct {
	cmds.Cmd
	ssi.SearchFilter
}

func (c ListCmd) Validate() error {
	if err := c.Cmd.Validate(); err != nil {
		return err
	}
	if c.Limit < 0 || c.Offset < 0 {
		return errors.New("limit and offset cannot be negative")
	}
	return validType(c.Type)
}

func validType(t ssi.DidType) error {
	switch t {
	case "", ssi.DidOwn, ssi.DidExternal:
		return nil
	}
	return errors.New("DID type must be own or external")
}

func (c ListCmd) Exec(w io.Writer) (r cmds.Result, err error) {
	defer err2.Handle(&err, "list DIDs cmd")

	r = try.To1(c.Cmd.Exec(func(s *enclave.Store) (cmds.Result, error) {
		recs, err := ssi.NewWallet(s).Search(c.SearchFilter)
		if err != nil {
			return nil, err
		}
		return cmds.JSONResult{V: recs}, nil
	}))
	try.To(cmds.PrintJSON(w, r))
	return r, nil
}

// PrimaryCmd shows the primary DID, or sets it when Did is given.
type PrimaryCmd struct {
	cmds.Cmd
	Did string
}

func (c PrimaryCmd) Validate() error {
	return c.Cmd.Validate()
}

func (c PrimaryCmd) Exec(w io.Writer) (r cmds.Result, err error) {
	defer err2.Handle(&err, "primary DID cmd")

	r = try.To1(c.Cmd.Exec(func(s *enclave.Store) (cmds.Result, error) {
		wallet := ssi.NewWallet(s)
		if c.Did != "" {
			if err := wallet.SetPrimary(c.Did); err != nil {
				return nil, err
			}
		}
		p, _, err := wallet.GetPrimary()
		if err != nil {
			return nil, err
		}
		return cmds.JSONResult{V: p}, nil
	}))
	try.To(cmds.PrintJSON(w, r))
	return r, nil
}
