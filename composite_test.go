package flowgraph

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAliasOutputResolvesToLeafPort(t *testing.T) {
	inner := NewRecordingBlock(Signature{Outputs: []DataType{Uint8Type()}})
	c := NewCompositeBlock("c", Signature{Outputs: []DataType{Uint8Type()}})
	require.NoError(t, c.AliasOutput(0, Port{Owner: inner, Dir: Output, Index: 0}))

	leaf, err := resolveOutput(c.Port(Output, 0))
	require.NoError(t, err)
	require.Equal(t, Port{Owner: inner, Dir: Output, Index: 0}, leaf)
}

func TestAliasOutputRejectsOutOfRangeIndex(t *testing.T) {
	c := NewCompositeBlock("c", Signature{Outputs: []DataType{Uint8Type()}})
	err := c.AliasOutput(1, Port{})
	require.True(t, IsCode(err, ErrCodeInvalidPortCount))
}

func TestAliasOutputRejectsDoubleAlias(t *testing.T) {
	inner := NewRecordingBlock(Signature{Outputs: []DataType{Uint8Type()}})
	c := NewCompositeBlock("c", Signature{Outputs: []DataType{Uint8Type()}})
	require.NoError(t, c.AliasOutput(0, Port{Owner: inner, Dir: Output, Index: 0}))

	err := c.AliasOutput(0, Port{Owner: inner, Dir: Output, Index: 0})
	require.True(t, IsCode(err, ErrCodePortAlreadyConnected))
}

func TestResolveOutputFailsWithoutAlias(t *testing.T) {
	c := NewCompositeBlock("c", Signature{Outputs: []DataType{Uint8Type()}})
	_, err := resolveOutput(c.Port(Output, 0))
	require.True(t, IsCode(err, ErrCodeUnderlyingPortNotFound))
}

func TestAliasInputFansOutToEveryInnerPort(t *testing.T) {
	b1 := NewRecordingBlock(Signature{Inputs: []DataType{Uint8Type()}})
	b2 := NewRecordingBlock(Signature{Inputs: []DataType{Uint8Type()}})
	c := NewCompositeBlock("c", Signature{Inputs: []DataType{Uint8Type()}})
	require.NoError(t, c.AliasInput(0,
		Port{Owner: b1, Dir: Input, Index: 0},
		Port{Owner: b2, Dir: Input, Index: 0}))

	leaves, err := resolveInput(c.Port(Input, 0))
	require.NoError(t, err)
	require.ElementsMatch(t, []Port{
		{Owner: b1, Dir: Input, Index: 0},
		{Owner: b2, Dir: Input, Index: 0},
	}, leaves)
}

func TestAliasInputRejectsEmptyTargetList(t *testing.T) {
	c := NewCompositeBlock("c", Signature{Inputs: []DataType{Uint8Type()}})
	err := c.AliasInput(0)
	require.True(t, IsCode(err, ErrCodeInvalidPortCount))
}

func TestResolveInputFlattensNestedComposites(t *testing.T) {
	leaf := NewRecordingBlock(Signature{Inputs: []DataType{Uint8Type()}})
	inner := NewCompositeBlock("inner", Signature{Inputs: []DataType{Uint8Type()}})
	require.NoError(t, inner.AliasInput(0, Port{Owner: leaf, Dir: Input, Index: 0}))

	outer := NewCompositeBlock("outer", Signature{Inputs: []DataType{Uint8Type()}})
	require.NoError(t, outer.AliasInput(0, inner.Port(Input, 0)))

	leaves, err := resolveInput(outer.Port(Input, 0))
	require.NoError(t, err)
	require.Equal(t, []Port{{Owner: leaf, Dir: Input, Index: 0}}, leaves)
}

func TestResolveInputPassesThroughLeafPorts(t *testing.T) {
	leaf := NewRecordingBlock(Signature{Inputs: []DataType{Uint8Type()}})
	p := Port{Owner: leaf, Dir: Input, Index: 0}
	leaves, err := resolveInput(p)
	require.NoError(t, err)
	require.Equal(t, []Port{p}, leaves)
}

func TestConnectWiresCompositeLazilyOnFirstUse(t *testing.T) {
	inner := NewRecordingBlock(Signature{
		Inputs:  []DataType{Uint8Type()},
		Outputs: []DataType{Uint8Type()},
	})
	c := NewCompositeBlock("c", Signature{
		Inputs:  []DataType{Uint8Type()},
		Outputs: []DataType{Uint8Type()},
	})
	wireCalls := 0
	c.SetWire(func(g *Flowgraph) error {
		wireCalls++
		if err := g.AddBlock("inner", inner); err != nil {
			return err
		}
		if err := c.AliasInput(0, Port{Owner: inner, Dir: Input, Index: 0}); err != nil {
			return err
		}
		return c.AliasOutput(0, Port{Owner: inner, Dir: Output, Index: 0})
	})

	src := NewRecordingBlock(Signature{Outputs: []DataType{Uint8Type()}})
	sink := NewRecordingBlock(Signature{Inputs: []DataType{Uint8Type()}})

	g := New(DefaultOptions())
	require.NoError(t, g.AddBlock("src", src))
	require.NoError(t, g.AddBlock("sink", sink))
	require.NoError(t, g.Connect(Port{Owner: src, Dir: Output, Index: 0}, c.Port(Input, 0)))
	require.NoError(t, g.Connect(c.Port(Output, 0), Port{Owner: sink, Dir: Input, Index: 0}))

	require.Equal(t, 1, wireCalls)
	require.NoError(t, g.Start())
	require.NoError(t, g.Stop())
	require.NoError(t, g.Wait())
}

func TestCompositeCallDispatchesToEveryInnerBlock(t *testing.T) {
	b1 := NewRecordingBlock(Signature{Inputs: []DataType{Uint8Type()}, Outputs: []DataType{Uint8Type()}})
	b2 := NewRecordingBlock(Signature{Inputs: []DataType{Uint8Type()}, Outputs: []DataType{Uint8Type()}})
	c := NewCompositeBlock("c", Signature{Inputs: []DataType{Uint8Type()}, Outputs: []DataType{Uint8Type()}})
	require.NoError(t, c.AliasInput(0,
		Port{Owner: b1, Dir: Input, Index: 0},
		Port{Owner: b2, Dir: Input, Index: 0}))
	require.NoError(t, c.AliasOutput(0, Port{Owner: b1, Dir: Output, Index: 0}))

	src := NewRecordingBlock(Signature{Outputs: []DataType{Uint8Type()}})
	sink := NewRecordingBlock(Signature{Inputs: []DataType{Uint8Type()}})

	g := New(DefaultOptions())
	require.NoError(t, g.AddBlock("src", src))
	require.NoError(t, g.AddBlock("b1", b1))
	require.NoError(t, g.AddBlock("b2", b2))
	require.NoError(t, g.AddBlock("sink", sink))
	require.NoError(t, g.Connect(Port{Owner: src, Dir: Output, Index: 0}, c.Port(Input, 0)))
	require.NoError(t, g.Connect(c.Port(Output, 0), Port{Owner: sink, Dir: Input, Index: 0}))
	require.NoError(t, g.Start())
	defer func() {
		require.NoError(t, g.Stop())
		require.NoError(t, g.Wait())
	}()

	calls := 0
	require.NoError(t, g.Call(c, func() { calls++ }))
	require.Equal(t, 2, calls)
}
