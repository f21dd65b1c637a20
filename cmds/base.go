// Package cmds holds the command objects of the CLI. A command is validated
// first and then executed against a local wallet, so the cobra layer only
// fills in the fields.
package cmds

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/arlindoconceicao/vertex-sub000/agent/ssi"
	"github.com/arlindoconceicao/vertex-sub000/agent/utils"
	"github.com/arlindoconceicao/vertex-sub000/enclave"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

var ErrInvalid = errors.New("invalid command, check arguments")

// Cmd names the wallet a command works on. An empty WalletDir means the
// directory of utils.Settings.
type Cmd struct {
	WalletDir  string
	WalletName string `cmd_usage:"wallet name is required"`
	WalletKey  string `cmd_usage:"wallet key is required"`
}

func (c Cmd) Dir() string {
	if c.WalletDir != "" {
		return c.WalletDir
	}
	return utils.Settings.WalletDir()
}

func (c Cmd) Validate() error {
	if c.WalletName == "" {
		return errors.New("wallet name cannot be empty")
	}
	if strings.ContainsAny(c.WalletName, `/\`) {
		return errors.New("wallet name cannot contain path separators")
	}
	return ValidateKey(c.WalletKey, "wallet")
}

func (c Cmd) ValidateWalletExistence(should bool) error {
	exists := enclave.Exists(c.Dir(), c.WalletName)
	if exists != should {
		return fmt.Errorf("wallet exists: %v", exists)
	}
	return nil
}

func ValidateKey(k, name string) error {
	if k == "" {
		return fmt.Errorf("%s key cannot be empty", name)
	}
	return nil
}

func ValidateSeed(seed string) error {
	if seed == "" {
		return nil
	}
	if _, err := ssi.DecodeSeed(seed); err != nil {
		return errors.New("seed must be 32 bytes as raw, hex or base64")
	}
	return nil
}

// ValidateTime accepts a time of day as hh:mm or hh:mm:ss.
func ValidateTime(s string) error {
	for _, layout := range []string{"15:04", "15:04:05"} {
		if _, err := time.Parse(layout, s); err == nil {
			return nil
		}
	}
	return fmt.Errorf("time %q is not hh:mm[:ss]", s)
}

type Result interface {
	JSON() ([]byte, error)
}

type Command interface {
	Validate() error
	Exec(w io.Writer) (r Result, err error)
}

// JSONResult wraps any marshalable value as a Result.
type JSONResult struct {
	V any
}

func (r JSONResult) JSON() ([]byte, error) {
	return json.MarshalIndent(r.V, "", "  ")
}

// Exec opens the wallet for f and closes it when f returns.
func (c Cmd) Exec(f func(s *enclave.Store) (Result, error)) (r Result, err error) {
	defer err2.Handle(&err, "wallet %s", c.WalletName)

	s := try.To1(enclave.Open(c.Dir(), c.WalletName, c.WalletKey))
	defer func() {
		if cerr := s.Close(); err == nil {
			err = cerr
		}
	}()
	return f(s)
}

// PrintJSON writes the result to w as indented JSON.
func PrintJSON(w io.Writer, r Result) (err error) {
	defer err2.Handle(&err)

	d := try.To1(r.JSON())
	Fprintln(w, string(d))
	return nil
}

// ReadInput reads filename, or r when filename is "-" or empty.
func ReadInput(filename string, r io.Reader) ([]byte, error) {
	if filename == "" || filename == "-" {
		return io.ReadAll(r)
	}
	return os.ReadFile(filename)
}

// WriteOutput writes data to filename, or to w when filename is "-" or
// empty.
func WriteOutput(filename string, w io.Writer, data []byte) (err error) {
	defer err2.Handle(&err)

	if filename == "" || filename == "-" {
		Fprintln(w, string(data))
		return nil
	}
	return os.WriteFile(filename, data, 0600)
}

// ParseLoggingArgs feeds a "-logtostderr=true -v=2" style string to the
// glog flags.
func ParseLoggingArgs(s string) {
	args := make([]string, 1, 12)
	args[0] = os.Args[0]
	args = append(args, strings.Fields(s)...)
	orgArgs := os.Args
	os.Args = args
	flag.Parse()
	os.Args = orgArgs
}

// Fprintln is fmt.Fprintln but it allows writer to be nil. Note! it throws an
// error.
func Fprintln(w io.Writer, a ...any) {
	if w != nil {
		try.To1(fmt.Fprintln(w, a...))
	}
}

// Fprintf is fmt.Fprintf but it allows writer to be nil. Note! it throws an
// error.
func Fprintf(w io.Writer, format string, a ...any) {
	if w != nil {
		try.To1(fmt.Fprintf(w, format, a...))
	}
}

// InterruptContext is done when the process gets an interrupt.
func InterruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
