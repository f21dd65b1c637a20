// Package archive has the commands for the verifier's presentation archive.
package archive

import (
	"errors"
	"io"
	"os"

	"github.com/arlindoconceicao/vertex-sub000/cmds"
	"github.com/arlindoconceicao/vertex-sub000/enclave"
	"github.com/arlindoconceicao/vertex-sub000/protocol/presentproof/archive"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

type ListCmd struct {
	cmds.Cmd
}

func (c ListCmd) Validate() error {
	return c.Cmd.Validate()
}

func (c ListCmd) Exec(w io.Writer) (r cmds.Result, err error) {
	defer err2.Handle(&err, "list presentations cmd")

	r = try.To1(c.Cmd.Exec(func(s *enclave.Store) (cmds.Result, error) {
		list, err := archive.New(s).List()
		if err != nil {
			return nil, err
		}
		return cmds.JSONResult{V: list}, nil
	}))
	try.To(cmds.PrintJSON(w, r))
	return r, nil
}

// StoreCmd archives a presentation with its request.
type StoreCmd struct {
	cmds.Cmd
	ID               string
	PresentationFile string
	RequestFile      string
	MetaFile         string
}

func (c StoreCmd) Validate() error {
	if err := c.Cmd.Validate(); err != nil {
		return err
	}
	if c.PresentationFile == "" || c.RequestFile == "" {
		return errors.New("presentation and request files are needed")
	}
	return nil
}

func (c StoreCmd) Exec(w io.Writer) (r cmds.Result, err error) {
	defer err2.Handle(&err, "store presentation cmd")

	pres := try.To1(os.ReadFile(c.PresentationFile))
	req := try.To1(os.ReadFile(c.RequestFile))
	var meta []byte
	if c.MetaFile != "" {
		meta = try.To1(os.ReadFile(c.MetaFile))
	}
	var id string
	try.To1(c.Cmd.Exec(func(s *enclave.Store) (_ cmds.Result, err error) {
		id, err = archive.New(s).Store(c.ID, pres, req, meta)
		return nil, err
	}))
	cmds.Fprintln(w, id)
	return cmds.JSONResult{V: id}, nil
}

type ExportCmd struct {
	cmds.Cmd
	ID       string
	Filename string
}

func (c ExportCmd) Validate() error {
	if err := c.Cmd.Validate(); err != nil {
		return err
	}
	if c.ID == "" {
		return errors.New("presentation id cannot be empty")
	}
	return nil
}

func (c ExportCmd) Exec(w io.Writer) (r cmds.Result, err error) {
	defer err2.Handle(&err, "export presentation cmd")

	var data []byte
	try.To1(c.Cmd.Exec(func(s *enclave.Store) (_ cmds.Result, err error) {
		data, err = archive.New(s).Export(c.ID)
		return nil, err
	}))
	try.To(cmds.WriteOutput(c.Filename, w, data))
	return nil, nil
}

// ImportCmd reads an exported presentation package. An empty ID keeps the
// package's own id.
type ImportCmd struct {
	cmds.Cmd
	ID        string
	Filename  string
	Overwrite bool
}

func (c ImportCmd) Validate() error {
	return c.Cmd.Validate()
}

func (c ImportCmd) Exec(w io.Writer) (r cmds.Result, err error) {
	defer err2.Handle(&err, "import presentation cmd")

	data := try.To1(cmds.ReadInput(c.Filename, os.Stdin))
	var id string
	try.To1(c.Cmd.Exec(func(s *enclave.Store) (_ cmds.Result, err error) {
		id, err = archive.New(s).Import(data, c.Overwrite, c.ID)
		return nil, err
	}))
	cmds.Fprintln(w, id)
	return cmds.JSONResult{V: id}, nil
}

type DeleteCmd struct {
	cmds.Cmd
	ID string
}

func (c DeleteCmd) Validate() error {
	if err := c.Cmd.Validate(); err != nil {
		return err
	}
	if c.ID == "" {
		return errors.New("presentation id cannot be empty")
	}
	return nil
}

func (c DeleteCmd) Exec(w io.Writer) (r cmds.Result, err error) {
	defer err2.Handle(&err, "delete presentation cmd")

	try.To1(c.Cmd.Exec(func(s *enclave.Store) (cmds.Result, error) {
		return nil, archive.New(s).Delete(c.ID)
	}))
	cmds.Fprintln(w, "presentation deleted:", c.ID)
	return nil, nil
}
