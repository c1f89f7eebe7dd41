package ringbuf

// copiedStore is the portable fallback backing (spec §4.2 "Copied"): a
// plain 2*capacity byte slice kept mirror-consistent by copying whichever
// bytes a commit touched into their partner half.
type copiedStore struct {
	mem      []byte
	capacity uint32
}

func newCopiedStore(capacity uint32) (*copiedStore, error) {
	return &copiedStore{mem: make([]byte, 2*capacity), capacity: capacity}, nil
}

func (s *copiedStore) Bytes() []byte { return s.mem }

func (s *copiedStore) Close() error { return nil }

// Mirror re-syncs the second half after a write of n bytes landing at
// physIdx (always < capacity, since physIdx is the write cursor modulo
// capacity). A write that crosses the capacity seam gets split: the
// pre-wrap tail is mirrored into the second region, and the wrapped prefix
// is mirrored into the first — matching spec §4.2 verbatim.
func (s *copiedStore) Mirror(physIdx, n int) {
	if n <= 0 {
		return
	}
	c := int(s.capacity)
	end := physIdx + n
	if end <= c {
		copy(s.mem[physIdx+c:end+c], s.mem[physIdx:end])
		return
	}
	// Straddles the seam: [physIdx, c) is the pre-wrap tail, [c, end) is
	// the wrapped prefix.
	copy(s.mem[physIdx+c:2*c], s.mem[physIdx:c])
	copy(s.mem[0:end-c], s.mem[c:end])
}
