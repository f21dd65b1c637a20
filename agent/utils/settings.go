package utils

import (
	"sync"
	"time"

	"github.com/golang/glog"
)

// Version is the version string of the agent and its CLI.
const Version = "0.1.0"

// Settings is the process wide runtime configuration.
var Settings = &Hub{
	retryAttempts: 12,
	retryStep:     time.Second,
	retryMaxDelay: 8 * time.Second,
}

// Hub holds the runtime tunables. The CLI fills it from flags, environment
// and config file, tests tune it directly.
type Hub struct {
	l sync.RWMutex

	walletDir string

	retryAttempts uint          // ledger read attempts before giving up
	retryStep     time.Duration // linear backoff step
	retryMaxDelay time.Duration // backoff cap

	envelopeTTL time.Duration // default lifetime of packed envelopes, 0 = none

	walletBackupPath     string
	walletBackupInterval time.Duration
}

func (h *Hub) WalletDir() string {
	h.l.RLock()
	defer h.l.RUnlock()
	if h.walletDir == "" {
		return DefaultWalletDir()
	}
	return h.walletDir
}

func (h *Hub) SetWalletDir(dir string) {
	h.l.Lock()
	defer h.l.Unlock()
	glog.V(3).Infoln("wallet dir:", dir)
	h.walletDir = dir
}

func (h *Hub) RetryAttempts() uint {
	h.l.RLock()
	defer h.l.RUnlock()
	return h.retryAttempts
}

func (h *Hub) SetRetryAttempts(n uint) {
	h.l.Lock()
	defer h.l.Unlock()
	h.retryAttempts = n
}

func (h *Hub) RetryStep() time.Duration {
	h.l.RLock()
	defer h.l.RUnlock()
	return h.retryStep
}

func (h *Hub) SetRetryStep(d time.Duration) {
	h.l.Lock()
	defer h.l.Unlock()
	h.retryStep = d
}

func (h *Hub) RetryMaxDelay() time.Duration {
	h.l.RLock()
	defer h.l.RUnlock()
	return h.retryMaxDelay
}

func (h *Hub) SetRetryMaxDelay(d time.Duration) {
	h.l.Lock()
	defer h.l.Unlock()
	h.retryMaxDelay = d
}

// EnvelopeTTL is added to the pack time when the caller gives no expiry.
func (h *Hub) EnvelopeTTL() time.Duration {
	h.l.RLock()
	defer h.l.RUnlock()
	return h.envelopeTTL
}

func (h *Hub) SetEnvelopeTTL(d time.Duration) {
	h.l.Lock()
	defer h.l.Unlock()
	h.envelopeTTL = d
}

func (h *Hub) WalletBackupPath() string {
	h.l.RLock()
	defer h.l.RUnlock()
	return h.walletBackupPath
}

func (h *Hub) SetWalletBackupPath(path string) {
	h.l.Lock()
	defer h.l.Unlock()
	h.walletBackupPath = path
}

func (h *Hub) WalletBackupInterval() time.Duration {
	h.l.RLock()
	defer h.l.RUnlock()
	return h.walletBackupInterval
}

func (h *Hub) SetWalletBackupInterval(d time.Duration) {
	h.l.Lock()
	defer h.l.Unlock()
	h.walletBackupInterval = d
}
