package utils

import (
	"os"
	"os/user"
	"path/filepath"
)

// HomeDir returns the user's home directory, $HOME first.
func HomeDir() string {
	if v := os.Getenv("HOME"); v != "" {
		return v
	}
	currentUser, err := user.Current()
	if err != nil {
		panic(err)
	}
	return currentUser.HomeDir
}

// DefaultWalletDir is where wallets live when nothing else is configured.
func DefaultWalletDir() string {
	return filepath.Join(HomeDir(), ".ssi_agent", "wallet")
}
