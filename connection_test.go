package flowgraph

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddBlockRejectsDuplicateOwner(t *testing.T) {
	g := New(DefaultOptions())
	b := NewRecordingBlock(Signature{})
	require.NoError(t, g.AddBlock("b", b))

	err := g.AddBlock("b-again", b)
	require.True(t, IsCode(err, ErrCodePortAlreadyConnected))
}

func TestAddBlockRejectsAfterStart(t *testing.T) {
	src := NewRecordingBlock(Signature{Outputs: []DataType{Uint8Type()}})
	sink := NewRecordingBlock(Signature{Inputs: []DataType{Uint8Type()}})
	g := New(DefaultOptions())
	require.NoError(t, g.AddBlock("src", src))
	require.NoError(t, g.AddBlock("sink", sink))
	require.NoError(t, g.Connect(
		Port{Owner: src, Dir: Output, Index: 0},
		Port{Owner: sink, Dir: Input, Index: 0}))
	require.NoError(t, g.Start())
	defer g.Stop()

	err := g.AddBlock("late", NewRecordingBlock(Signature{}))
	require.True(t, IsCode(err, ErrCodeAlreadyRunning))
}

func TestConnectRejectsWrongDirection(t *testing.T) {
	a := NewRecordingBlock(Signature{Outputs: []DataType{Uint8Type()}})
	b := NewRecordingBlock(Signature{Inputs: []DataType{Uint8Type()}})
	g := New(DefaultOptions())
	require.NoError(t, g.AddBlock("a", a))
	require.NoError(t, g.AddBlock("b", b))

	err := g.Connect(
		Port{Owner: a, Dir: Input, Index: 0},
		Port{Owner: b, Dir: Input, Index: 0})
	require.True(t, IsCode(err, ErrCodePortNotFound))

	err = g.Connect(
		Port{Owner: a, Dir: Output, Index: 0},
		Port{Owner: b, Dir: Output, Index: 0})
	require.True(t, IsCode(err, ErrCodePortNotFound))
}

func TestConnectRejectsInputConnectedTwice(t *testing.T) {
	a := NewRecordingBlock(Signature{Outputs: []DataType{Uint8Type()}})
	b := NewRecordingBlock(Signature{Outputs: []DataType{Uint8Type()}})
	sink := NewRecordingBlock(Signature{Inputs: []DataType{Uint8Type()}})
	g := New(DefaultOptions())
	require.NoError(t, g.AddBlock("a", a))
	require.NoError(t, g.AddBlock("b", b))
	require.NoError(t, g.AddBlock("sink", sink))
	require.NoError(t, g.Connect(
		Port{Owner: a, Dir: Output, Index: 0},
		Port{Owner: sink, Dir: Input, Index: 0}))

	err := g.Connect(
		Port{Owner: b, Dir: Output, Index: 0},
		Port{Owner: sink, Dir: Input, Index: 0})
	require.True(t, IsCode(err, ErrCodePortAlreadyConnected))
}

func TestConnectFansOneOutputToMultipleInputs(t *testing.T) {
	src := NewRecordingBlock(Signature{Outputs: []DataType{Uint8Type()}})
	s1 := NewRecordingBlock(Signature{Inputs: []DataType{Uint8Type()}})
	s2 := NewRecordingBlock(Signature{Inputs: []DataType{Uint8Type()}})
	g := New(DefaultOptions())
	require.NoError(t, g.AddBlock("src", src))
	require.NoError(t, g.AddBlock("s1", s1))
	require.NoError(t, g.AddBlock("s2", s2))
	require.NoError(t, g.Connect(
		Port{Owner: src, Dir: Output, Index: 0},
		Port{Owner: s1, Dir: Input, Index: 0}))
	require.NoError(t, g.Connect(
		Port{Owner: src, Dir: Output, Index: 0},
		Port{Owner: s2, Dir: Input, Index: 0}))

	require.Len(t, g.connections, 1)
	require.Len(t, g.connections[0].To, 2)
}

func TestConnectRejectsAfterStart(t *testing.T) {
	src := NewRecordingBlock(Signature{Outputs: []DataType{Uint8Type()}})
	sink := NewRecordingBlock(Signature{Inputs: []DataType{Uint8Type()}})
	other := NewRecordingBlock(Signature{})
	g := New(DefaultOptions())
	require.NoError(t, g.AddBlock("src", src))
	require.NoError(t, g.AddBlock("sink", sink))
	require.NoError(t, g.AddBlock("other", other))
	require.NoError(t, g.Connect(
		Port{Owner: src, Dir: Output, Index: 0},
		Port{Owner: sink, Dir: Input, Index: 0}))
	require.NoError(t, g.Start())
	defer g.Stop()

	err := g.Connect(
		Port{Owner: src, Dir: Output, Index: 0},
		Port{Owner: other, Dir: Input, Index: 0})
	require.True(t, IsCode(err, ErrCodeAlreadyRunning))
}
