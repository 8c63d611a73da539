package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsInnerCode(t *testing.T) {
	inner := FileNotFound("data/raw.csv", nil)
	wrapped := Wrap(inner, "load stage failed")

	assert.Equal(t, CodeFileNotFound, GetCode(wrapped))
	assert.Contains(t, wrapped.Error(), "load stage failed")
	assert.Contains(t, wrapped.Error(), "data/raw.csv")
}

func TestWrapPlainErrorIsInternal(t *testing.T) {
	wrapped := Wrap(stderrors.New("boom"), "unexpected")
	assert.Equal(t, CodeInternalError, GetCode(wrapped))
	assert.Nil(t, Wrap(nil, "nothing"))
}

func TestGetCodeThroughFmtWrap(t *testing.T) {
	err := fmt.Errorf("outer: %w", MissingColumn("lead_time"))
	assert.True(t, IsAppError(err))
	assert.True(t, HasCode(err, CodeMissingColumn))
	assert.Equal(t, "UNKNOWN", GetCode(stderrors.New("plain")))
}

func TestWithCode(t *testing.T) {
	cause := stderrors.New("bad row")
	err := WithCode(CodeMalformedInput, cause)
	assert.Equal(t, CodeMalformedInput, GetCode(err))
	assert.Equal(t, "bad row", err.Error())
	assert.ErrorIs(t, err, cause)

	wrapped := WithCode(CodeConfigInvalid, Wrap(MalformedInput("bad row", nil), "reading input"))
	assert.Equal(t, CodeConfigInvalid, GetCode(wrapped))
	assert.Equal(t, "reading input: bad row", wrapped.Error())
}

func TestDimensionMismatchMessage(t *testing.T) {
	err := DimensionMismatch("label count", 10, 9)
	assert.Equal(t, "label count: expected 10, got 9", err.Error())
}
