package flowgraph

import "fmt"

// connection is one physical ring buffer: written by From, read by every
// port in To. Fan-out (To having more than one entry) comes either from an
// input alias fan-out or from the same output being wired to several
// independent downstream inputs.
type connection struct {
	From Port
	To   []Port
}

// AddBlock registers a leaf or composite block under a name unique within
// the graph. Names are used only for diagnostics (errors, Dump); ports
// remain identified by Go-native Owner equality.
func (g *Flowgraph) AddBlock(name string, owner interface{}) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != StateUnstarted {
		return NewError("AddBlock", ErrCodeAlreadyRunning, "cannot add blocks after the graph has started")
	}
	if _, exists := g.blockNames[owner]; exists {
		return NewBlockError("AddBlock", name, ErrCodePortAlreadyConnected, "block already registered")
	}
	g.blocks = append(g.blocks, owner)
	g.blockNames[owner] = name
	return nil
}

// Connect wires an output port to an input port. Both ports may belong to
// a leaf Block or a *CompositeBlock; composite aliases are flattened to
// leaf-to-leaf edges immediately.
func (g *Flowgraph) Connect(out, in Port) error {
	// Composite self-wiring runs before the lock is taken: Wire typically
	// calls back into g.AddBlock/g.Connect to build the inner subgraph,
	// both of which also acquire g.mu.
	if cb, ok := out.Owner.(*CompositeBlock); ok {
		if err := cb.connectOnce(g); err != nil {
			return err
		}
	}
	if cb, ok := in.Owner.(*CompositeBlock); ok {
		if err := cb.connectOnce(g); err != nil {
			return err
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != StateUnstarted {
		return NewError("Connect", ErrCodeAlreadyRunning, "cannot connect ports after the graph has started")
	}
	if out.Dir != Output {
		return NewPortError("Connect", g.name(out.Owner), out.String(), ErrCodePortNotFound, "expected an output port")
	}
	if in.Dir != Input {
		return NewPortError("Connect", g.name(in.Owner), in.String(), ErrCodePortNotFound, "expected an input port")
	}

	leafOut, err := resolveOutput(out)
	if err != nil {
		return err
	}
	leafIns, err := resolveInput(in)
	if err != nil {
		return err
	}

	for _, leafIn := range leafIns {
		if g.connectedInputs[leafIn] {
			return NewPortError("Connect", g.name(leafIn.Owner), leafIn.String(),
				ErrCodePortAlreadyConnected, "input port already connected")
		}
	}

	idx := -1
	for i, c := range g.connections {
		if c.From.Equal(leafOut) {
			idx = i
			break
		}
	}
	if idx == -1 {
		g.connections = append(g.connections, connection{From: leafOut, To: append([]Port{}, leafIns...)})
	} else {
		g.connections[idx].To = append(g.connections[idx].To, leafIns...)
	}
	for _, leafIn := range leafIns {
		g.connectedInputs[leafIn] = true
	}
	return nil
}

func (g *Flowgraph) name(owner interface{}) string {
	if n, ok := g.blockNames[owner]; ok {
		return n
	}
	return fmt.Sprintf("%v", owner)
}
