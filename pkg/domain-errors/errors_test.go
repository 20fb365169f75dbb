package derrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"nearhelp/pkg/platform/sentinel"
)

func TestHasCode(t *testing.T) {
	t.Run("direct code", func(t *testing.T) {
		err := New(CodeNotFound, "help request missing")
		assert.True(t, HasCode(err, CodeNotFound))
		assert.False(t, HasCode(err, CodeConflict))
	})

	t.Run("nested code", func(t *testing.T) {
		inner := New(CodeConflict, "stale version")
		outer := Wrap(inner, CodeInternal, "save failed")
		assert.True(t, HasCode(outer, CodeInternal))
		assert.True(t, HasCode(outer, CodeConflict))
	})

	t.Run("plain error has no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
	})
}

func TestWrap(t *testing.T) {
	t.Run("nil cause returns nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, CodeInternal, "ignored"))
	})

	t.Run("sentinel survives wrapping", func(t *testing.T) {
		err := Wrap(sentinel.ErrNotFound, CodeNotFound, "user missing")
		assert.True(t, errors.Is(err, sentinel.ErrNotFound))
		assert.Equal(t, CodeNotFound, CodeOf(err))
	})
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("uncoded")))
	assert.Equal(t, CodeBadRequest, CodeOf(New(CodeBadRequest, "bad lat")))
}
