package flowgraph

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPortEqualComparesOwnerDirIndex(t *testing.T) {
	b := NewRecordingBlock(Signature{})
	a := Port{Owner: b, Dir: Input, Index: 0}
	same := Port{Owner: b, Dir: Input, Index: 0}
	diffIndex := Port{Owner: b, Dir: Input, Index: 1}
	diffDir := Port{Owner: b, Dir: Output, Index: 0}

	require.True(t, a.Equal(same))
	require.False(t, a.Equal(diffIndex))
	require.False(t, a.Equal(diffDir))
}

func TestDirectionString(t *testing.T) {
	require.Equal(t, "input", Input.String())
	require.Equal(t, "output", Output.String())
}

func TestPortStringIncludesDirAndIndex(t *testing.T) {
	b := NewRecordingBlock(Signature{})
	p := Port{Owner: b, Dir: Output, Index: 2}
	require.Contains(t, p.String(), "output[2]")
}
