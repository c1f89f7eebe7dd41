package flowgraph

import (
	"fmt"
	"sync"
)

// CompositeBlock groups a subgraph of child blocks behind one outer
// Signature, the way a hierarchical block in the original design composes
// smaller blocks without the engine ever seeing them as anything but more
// ports to resolve. Composites nest arbitrarily: a CompositeBlock's alias
// targets may themselves be ports of another CompositeBlock.
//
// Output aliasing is 1:1 — an outer output is exactly one inner output.
// Input aliasing is 1:many — an outer input fans out to every inner port
// it's aliased to, since data flowing into a composite may feed several
// children at once.
type CompositeBlock struct {
	name      string
	signature Signature

	inputAliases  map[int][]Port
	outputAliases map[int]Port

	// Wire, if set, lazily builds this composite's inner subgraph: adding
	// its child blocks to g and aliasing its ports, exactly once, the
	// first time the composite appears as a Connect endpoint. A composite
	// built by hand via AliasInput/AliasOutput before it's ever connected
	// leaves Wire nil and connectOnce is a no-op.
	Wire   func(g *Flowgraph) error
	wired  bool
	wireMu sync.Mutex
}

// NewCompositeBlock creates an empty composite with the given outer
// signature. Callers must alias every input and output before the
// composite is connected into a graph, either by hand (AliasInput/
// AliasOutput) or by setting Wire to do so lazily on first connection.
func NewCompositeBlock(name string, sig Signature) *CompositeBlock {
	return &CompositeBlock{
		name:          name,
		signature:     sig,
		inputAliases:  make(map[int][]Port),
		outputAliases: make(map[int]Port),
	}
}

func (c *CompositeBlock) String() string { return c.name }

// SetWire installs the composite's self-wiring callback, invoked at most
// once, the first time the composite is used as a Connect endpoint in a
// graph.
func (c *CompositeBlock) SetWire(wire func(g *Flowgraph) error) {
	c.Wire = wire
}

// connectOnce runs Wire exactly once for this composite. It must be called
// without g.mu held, since Wire typically calls back into g.AddBlock and
// g.Connect to build the inner subgraph.
func (c *CompositeBlock) connectOnce(g *Flowgraph) error {
	c.wireMu.Lock()
	defer c.wireMu.Unlock()
	if c.wired || c.Wire == nil {
		return nil
	}
	if err := c.Wire(g); err != nil {
		return WrapError("connect", err)
	}
	c.wired = true
	return nil
}

// innerBlocks returns every leaf block this composite ultimately aliases,
// across all of its ports, flattening nested composites along the way.
func (c *CompositeBlock) innerBlocks() ([]Block, error) {
	seen := make(map[Block]bool)
	var leaves []Block
	add := func(p Port) error {
		b, ok := p.Owner.(Block)
		if !ok {
			return nil
		}
		if !seen[b] {
			seen[b] = true
			leaves = append(leaves, b)
		}
		return nil
	}
	for i := range c.signature.Outputs {
		p, err := resolveOutput(c.Port(Output, i))
		if err != nil {
			return nil, err
		}
		if err := add(p); err != nil {
			return nil, err
		}
	}
	for i := range c.signature.Inputs {
		ps, err := resolveInput(c.Port(Input, i))
		if err != nil {
			return nil, err
		}
		for _, p := range ps {
			if err := add(p); err != nil {
				return nil, err
			}
		}
	}
	return leaves, nil
}

// Call dispatches fn to every inner leaf block this composite resolves to,
// re-entering the graph's own Call for each so the call runs on each leaf's
// own runner goroutine, the way spec's call dispatch for composites works:
// "call the composite's method directly", which in turn calls back into
// the graph for its inner blocks.
func (c *CompositeBlock) Call(g *Flowgraph, fn func()) error {
	leaves, err := c.innerBlocks()
	if err != nil {
		return err
	}
	for _, b := range leaves {
		if err := g.Call(b, fn); err != nil {
			return err
		}
	}
	return nil
}

// Port returns the outer Port identifying one of this composite's own
// ports, suitable for use in Flowgraph.Connect or as an alias target of an
// enclosing composite.
func (c *CompositeBlock) Port(dir Direction, index int) Port {
	return Port{Owner: c, Dir: dir, Index: index}
}

// AliasInput fans outer input index out to one or more inner ports.
func (c *CompositeBlock) AliasInput(index int, inner ...Port) error {
	if index < 0 || index >= len(c.signature.Inputs) {
		return NewBlockError("AliasInput", c.name, ErrCodeInvalidPortCount,
			fmt.Sprintf("input index %d out of range [0,%d)", index, len(c.signature.Inputs)))
	}
	if len(inner) == 0 {
		return NewBlockError("AliasInput", c.name, ErrCodeInvalidPortCount, "at least one inner port required")
	}
	c.inputAliases[index] = append(c.inputAliases[index], inner...)
	return nil
}

// AliasOutput maps outer output index to exactly one inner port.
func (c *CompositeBlock) AliasOutput(index int, inner Port) error {
	if index < 0 || index >= len(c.signature.Outputs) {
		return NewBlockError("AliasOutput", c.name, ErrCodeInvalidPortCount,
			fmt.Sprintf("output index %d out of range [0,%d)", index, len(c.signature.Outputs)))
	}
	if _, exists := c.outputAliases[index]; exists {
		return NewBlockError("AliasOutput", c.name, ErrCodePortAlreadyConnected,
			fmt.Sprintf("output %d already aliased", index))
	}
	c.outputAliases[index] = inner
	return nil
}

// resolveOutput walks an output port down through any chain of composite
// aliases until it reaches a leaf block's output port.
func resolveOutput(p Port) (Port, error) {
	for {
		cb, ok := p.Owner.(*CompositeBlock)
		if !ok {
			return p, nil
		}
		inner, exists := cb.outputAliases[p.Index]
		if !exists {
			return Port{}, NewPortError("resolveOutput", cb.name, p.String(),
				ErrCodeUnderlyingPortNotFound, "output not aliased to an inner port")
		}
		p = inner
	}
}

// resolveInput flattens an input port into the full set of leaf block
// input ports it ultimately fans out to.
func resolveInput(p Port) ([]Port, error) {
	cb, ok := p.Owner.(*CompositeBlock)
	if !ok {
		return []Port{p}, nil
	}
	inners, exists := cb.inputAliases[p.Index]
	if !exists {
		return nil, NewPortError("resolveInput", cb.name, p.String(),
			ErrCodeUnderlyingPortNotFound, "input not aliased to any inner port")
	}
	var leaves []Port
	for _, inner := range inners {
		resolved, err := resolveInput(inner)
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, resolved...)
	}
	return leaves, nil
}
