package wallet

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/arlindoconceicao/vertex-sub000/agent/utils"
	"github.com/arlindoconceicao/vertex-sub000/cmds"
	"github.com/arlindoconceicao/vertex-sub000/enclave"
	"github.com/go-co-op/gocron"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

// BackupCmd writes an encrypted backup of the wallet. With Every or At set
// the backup is repeated until the context given to Run is done.
type BackupCmd struct {
	cmds.Cmd
	Filename  string
	BackupKey string

	Every time.Duration // repeat interval
	At    string        // daily at hh:mm[:ss], wins over Every
}

func (c BackupCmd) file() string {
	if c.Filename != "" {
		return c.Filename
	}
	return utils.Settings.WalletBackupPath()
}

func (c BackupCmd) every() time.Duration {
	if c.Every != 0 {
		return c.Every
	}
	return utils.Settings.WalletBackupInterval()
}

func (c BackupCmd) scheduled() bool {
	return c.At != "" || c.every() > 0
}

func (c BackupCmd) Validate() error {
	if err := c.Cmd.Validate(); err != nil {
		return err
	}
	if err := c.Cmd.ValidateWalletExistence(true); err != nil {
		return err
	}
	if c.file() == "" {
		return errors.New("backup file cannot be empty")
	}
	if c.At != "" {
		if err := cmds.ValidateTime(c.At); err != nil {
			return err
		}
	}
	if c.every() < 0 {
		return errors.New("backup interval cannot be negative")
	}
	return cmds.ValidateKey(c.BackupKey, "backup")
}

// Exec makes one backup, or when scheduled, repeats backups until the
// process is interrupted.
func (c BackupCmd) Exec(w io.Writer) (r cmds.Result, err error) {
	if !c.scheduled() {
		return nil, c.backup(w)
	}
	ctx, stop := cmds.InterruptContext()
	defer stop()
	return nil, c.Run(ctx, w)
}

func (c BackupCmd) backup(w io.Writer) (err error) {
	defer err2.Handle(&err, "backup wallet cmd")

	try.To1(c.Cmd.Exec(func(s *enclave.Store) (cmds.Result, error) {
		return nil, s.Backup(c.file(), c.BackupKey)
	}))
	cmds.Fprintln(w, "wallet backup:", c.file())
	return nil
}

// Run starts the backup schedule and blocks until ctx is done. The first
// backup is taken at once when an interval is used.
func (c BackupCmd) Run(ctx context.Context, w io.Writer) (err error) {
	defer err2.Handle(&err, "scheduled backup")

	s := try.To1(c.Start(w))
	<-ctx.Done()
	s.Stop()
	return nil
}

// Start schedules the backups and returns the running scheduler.
func (c BackupCmd) Start(w io.Writer) (s *gocron.Scheduler, err error) {
	defer err2.Handle(&err)

	job := func() {
		if err := c.backup(w); err != nil {
			glog.Warningln("wallet backup:", err)
		}
	}
	s = gocron.NewScheduler(time.Now().Location())
	if c.At != "" {
		glog.V(1).Infoln("wallet backup time:", c.At)
		try.To1(s.Every(1).Day().At(c.At).Do(job))
	} else {
		glog.V(1).Infoln("wallet backup interval:", c.every())
		try.To1(s.Every(c.every()).Do(job))
	}
	s.StartAsync()
	return s, nil
}
