package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lainio/err2/assert"
)

func TestIs(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	err := New(MissingRequestMetadata, "nonce %s", "123")
	wrapped := fmt.Errorf("store credential: %w", err)

	assert.That(Is(wrapped, MissingRequestMetadata))
	assert.ThatNot(Is(wrapped, WalletAuthFailed))
	assert.That(errors.Is(wrapped, ErrMissingRequestMetadata))
	assert.ThatNot(errors.Is(wrapped, ErrNotFound))
	assert.Equal(CodeOf(wrapped), MissingRequestMetadata)
	assert.Equal(CodeOf(errors.New("plain")), Code(""))
}

func TestWrap(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	assert.That(Wrap(NotFound, nil, "nothing") == nil)

	cause := errors.New("disk")
	err := Wrap(WalletNotFound, cause, "open")
	assert.That(errors.Is(err, cause))
	assert.That(Is(err, WalletNotFound))
	assert.Equal(err.Error(), "WalletNotFound: open: disk")
}
