package flowgraph

import "fmt"

// validate checks that every leaf input is connected exactly once, that
// connected ports carry matching data types, and that the connection graph
// is acyclic, producing a topological evaluation order in g.order (Kahn's
// algorithm, same approach the teacher's control plane uses for device
// lifecycle ordering generalized to a DAG instead of a linear sequence).
func (g *Flowgraph) validate() error {
	leaves := map[Block]bool{}
	for _, owner := range g.blocks {
		if b, ok := owner.(Block); ok {
			leaves[b] = true
		}
	}
	for _, c := range g.connections {
		fromBlock, ok := c.From.Owner.(Block)
		if !ok {
			return NewPortError("validate", "", c.From.String(), ErrCodeUnderlyingPortNotFound, "connection source is not a leaf block")
		}
		leaves[fromBlock] = true
		for _, to := range c.To {
			toBlock, ok := to.Owner.(Block)
			if !ok {
				return NewPortError("validate", "", to.String(), ErrCodeUnderlyingPortNotFound, "connection target is not a leaf block")
			}
			leaves[toBlock] = true
		}
	}

	for b := range leaves {
		sig := b.TypeSignature()
		for i := range sig.Inputs {
			p := Port{Owner: b, Dir: Input, Index: i}
			if !g.connectedInputs[p] {
				return NewPortError("validate", g.name(b), p.String(), ErrCodeInputPortUnconnected,
					fmt.Sprintf("input %d of %d unconnected", i, len(sig.Inputs)))
			}
		}
	}

	adjacency := make(map[Block]map[Block]bool, len(leaves))
	indegree := make(map[Block]int, len(leaves))
	for b := range leaves {
		adjacency[b] = map[Block]bool{}
		indegree[b] = 0
	}
	for _, c := range g.connections {
		fromBlock := c.From.Owner.(Block)
		outType := fromBlock.TypeSignature().Outputs[c.From.Index]
		for _, to := range c.To {
			toBlock := to.Owner.(Block)
			inType := toBlock.TypeSignature().Inputs[to.Index]
			if !outType.Equal(inType) {
				return NewPortError("validate", g.name(toBlock), to.String(), ErrCodeDataTypeMismatch,
					fmt.Sprintf("%s connected to %s", outType, inType))
			}
			if !adjacency[fromBlock][toBlock] {
				adjacency[fromBlock][toBlock] = true
				indegree[toBlock]++
			}
		}
	}

	var queue []Block
	for b, d := range indegree {
		if d == 0 {
			queue = append(queue, b)
		}
	}
	order := make([]Block, 0, len(leaves))
	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]
		order = append(order, b)
		for next := range adjacency[b] {
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}
	if len(order) != len(leaves) {
		return NewError("validate", ErrCodeCyclicDependency, "connection graph contains a cycle")
	}

	g.order = order
	return nil
}

// propagateRates walks the topological order calling SetRate on each
// block: 0 for a source (it computes its own rate), or the rate its input
// 0 is fed at otherwise. Every other input's upstream rate must equal
// input 0's, or the block's inputs disagree on rate (RateMismatch). The
// value SetRate returns becomes the rate downstream neighbours see.
func (g *Flowgraph) propagateRates() error {
	rates := make(map[Block]float64, len(g.order))
	g.rates = rates

	inputSource := make(map[Port]Block, len(g.connections))
	for _, c := range g.connections {
		fromBlock := c.From.Owner.(Block)
		for _, to := range c.To {
			inputSource[to] = fromBlock
		}
	}

	for _, b := range g.order {
		sig := b.TypeSignature()
		var upstreamRate float64
		if len(sig.Inputs) > 0 {
			if src, ok := inputSource[Port{Owner: b, Dir: Input, Index: 0}]; ok {
				upstreamRate = rates[src]
			}
			for i := 1; i < len(sig.Inputs); i++ {
				src, ok := inputSource[Port{Owner: b, Dir: Input, Index: i}]
				if !ok {
					continue
				}
				if rates[src] != upstreamRate {
					return NewBlockError("propagateRates", g.name(b), ErrCodeRateMismatch,
						fmt.Sprintf("input %d disagrees with input 0 on rate: %g vs %g", i, rates[src], upstreamRate))
				}
			}
		}
		ownRate, err := b.SetRate(upstreamRate)
		if err != nil {
			return WrapError("SetRate", err)
		}
		rates[b] = ownRate
	}
	return nil
}
