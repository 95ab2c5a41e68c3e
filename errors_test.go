package capsule_test

import (
	"errors"
	"testing"

	"github.com/Webictbyleo/capsule"
	"github.com/stretchr/testify/assert"
)

func TestErrorCode(t *testing.T) {
	t.Parallel()

	t.Run("nil error has no code", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "", capsule.ErrorCode(nil))
	})

	t.Run("application error returns its code", func(t *testing.T) {
		t.Parallel()
		err := capsule.Errorf(capsule.ENOTFOUND, "asset not found")
		assert.Equal(t, capsule.ENOTFOUND, capsule.ErrorCode(err))
	})

	t.Run("wrapped application error returns its code", func(t *testing.T) {
		t.Parallel()
		err := capsule.Errorf(capsule.EMISMATCH, "content rejected")
		assert.Equal(t, capsule.EMISMATCH, capsule.ErrorCode(wrap(err)))
	})

	t.Run("plain error is internal", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, capsule.EINTERNAL, capsule.ErrorCode(errors.New("boom")))
	})
}

func TestErrorMessage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", capsule.ErrorMessage(nil))
	assert.Equal(t, "asset not found", capsule.ErrorMessage(capsule.Errorf(capsule.ENOTFOUND, "asset not found")))
	assert.Equal(t, "Internal error", capsule.ErrorMessage(errors.New("boom")))
}

func wrap(err error) error {
	return &wrapped{err: err}
}

type wrapped struct{ err error }

func (w *wrapped) Error() string { return "wrapped: " + w.err.Error() }
func (w *wrapped) Unwrap() error { return w.err }
