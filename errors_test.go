package flowgraph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorMessageFormatting(t *testing.T) {
	err := NewError("Connect", ErrCodePortAlreadyConnected, "input already wired")
	require.Equal(t, "flowgraph: Connect: input already wired", err.Error())

	blockErr := NewBlockError("Start", "source", ErrCodeRateMismatch, "inputs disagree")
	require.Equal(t, "flowgraph: Start: inputs disagree (block=source)", blockErr.Error())

	portErr := NewPortError("validate", "sink", "sink.input[0]", ErrCodeInputPortUnconnected, "unconnected")
	require.Equal(t, "flowgraph: validate: unconnected (block=sink port=sink.input[0])", portErr.Error())
}

func TestErrorIsMatchesByCode(t *testing.T) {
	a := NewError("Connect", ErrCodeCyclicDependency, "")
	b := NewError("Start", ErrCodeCyclicDependency, "different message, same code")
	require.True(t, errors.Is(a, b))

	c := NewError("Connect", ErrCodeDataTypeMismatch, "")
	require.False(t, errors.Is(a, c))
}

func TestIsCode(t *testing.T) {
	err := NewBlockError("Start", "b", ErrCodeAlreadyRunning, "already running")
	require.True(t, IsCode(err, ErrCodeAlreadyRunning))
	require.False(t, IsCode(err, ErrCodeNotRunning))
	require.False(t, IsCode(errors.New("plain"), ErrCodeAlreadyRunning))
}

func TestWrapErrorPreservesCode(t *testing.T) {
	inner := NewPortError("Get", "sink", "sink.input[0]", ErrCodeTimeout, "no data")
	wrapped := WrapError("Process", inner)
	require.Equal(t, ErrCodeTimeout, wrapped.Code)
	require.Equal(t, "sink", wrapped.Block)
	require.ErrorIs(t, wrapped, inner)
}

func TestWrapErrorNilIsNil(t *testing.T) {
	require.Nil(t, WrapError("Process", nil))
}

func TestWrapErrorFallsBackForUnknownErrors(t *testing.T) {
	wrapped := WrapError("Process", errors.New("boom"))
	require.Equal(t, ErrCodeIOErrorFallback, wrapped.Code)
	require.Equal(t, "boom", wrapped.Inner.Error())
}

func TestBufferLevelErrorsReexported(t *testing.T) {
	require.NotNil(t, ErrEndOfStream)
	require.NotNil(t, ErrBrokenStream)
	require.NotNil(t, ErrTimeout)
}
