package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errBase = stderrors.New("base")

func TestWrapKeepsCode(t *testing.T) {
	cause := ConfigInvalid("bad value")
	wrapped := Wrapf(fmt.Errorf("loading: %w", cause), "stage %d", 2)

	assert.Equal(t, CodeConfigInvalid, GetCode(wrapped))
	assert.Equal(t, "stage 2: loading: bad value", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)
}

func TestWrapPlainError(t *testing.T) {
	wrapped := Wrap(errBase, "context")
	assert.Equal(t, CodeInternalError, GetCode(wrapped))
	assert.ErrorIs(t, wrapped, errBase)

	assert.Nil(t, Wrap(nil, "context"))
	assert.Nil(t, Wrapf(nil, "context %d", 1))
}

func TestWithCode(t *testing.T) {
	err := WithCode(CodeCapabilityUnavailable, errBase)
	assert.True(t, IsAppError(err))
	assert.Equal(t, CodeCapabilityUnavailable, GetCode(err))
	assert.Equal(t, "base", err.Error())
	assert.ErrorIs(t, err, errBase)
	assert.Nil(t, WithCode(CodeCapabilityUnavailable, nil))

	chained := WithCode(CodeCapabilityUnavailable, fmt.Errorf("sampler: %w", errBase))
	assert.Equal(t, "sampler: base", chained.Error(), "cause text appears once")
	outer := Wrap(chained, "run aborted")
	assert.Equal(t, "run aborted: sampler: base", outer.Error())
	assert.Equal(t, CodeCapabilityUnavailable, GetCode(outer))
}

func TestConstructors(t *testing.T) {
	assert.Equal(t, CodeInternalError, InternalError("x").Code)
	assert.Equal(t, CodeInvalidInput, InvalidInput("x").Code)

	out := OutputError("cannot write", errBase)
	assert.Equal(t, CodeOutputError, GetCode(out))
	assert.Equal(t, "cannot write: base", out.Error())
	assert.Equal(t, "UNKNOWN", GetCode(errBase))
	assert.False(t, IsAppError(errBase))
}
