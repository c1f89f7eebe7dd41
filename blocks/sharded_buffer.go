// Package blocks provides concrete reference Block implementations:
// sources, sinks and simple transforms useful for wiring tests and as
// worked examples of the Block contract.
package blocks

import "sync"

// shardSize is the granularity at which ShardedBuffer locks its backing
// store, grounded on the teacher's memory backend: lock only the shards an
// access actually touches instead of the whole buffer, so concurrent
// Process calls on independent regions don't serialize on one mutex.
const shardSize = 64 * 1024

// ShardedBuffer is an append-only byte store guarded by per-shard locks. A
// CollectorSink uses one to accumulate everything written to its input
// port without the whole collected stream serializing through a single
// mutex as it grows.
type ShardedBuffer struct {
	mu     sync.Mutex // guards data/shards growth only, not individual shard access
	data   []byte
	shards []sync.RWMutex
	cursor int64
}

// NewShardedBuffer creates an empty buffer that grows on demand.
func NewShardedBuffer() *ShardedBuffer {
	return &ShardedBuffer{}
}

func (b *ShardedBuffer) shardRange(off, length int64) (start, end int) {
	start = int(off / shardSize)
	end = int((off + length - 1) / shardSize)
	return start, end
}

// grow extends data and the shard lock slice to cover up to off+length
// bytes. Called with b.mu held.
func (b *ShardedBuffer) grow(off, length int64) {
	need := off + length
	if int64(len(b.data)) >= need {
		return
	}
	grown := make([]byte, need)
	copy(grown, b.data)
	b.data = grown

	neededShards := int((need + shardSize - 1) / shardSize)
	for len(b.shards) < neededShards {
		b.shards = append(b.shards, sync.RWMutex{})
	}
}

// Write appends p at the buffer's current cursor, advancing it, and
// returns the number of bytes written (always len(p)).
func (b *ShardedBuffer) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	b.mu.Lock()
	off := b.cursor
	b.cursor += int64(len(p))
	b.grow(off, int64(len(p)))
	startShard, endShard := b.shardRange(off, int64(len(p)))
	data := b.data
	shards := b.shards
	b.mu.Unlock()

	for i := startShard; i <= endShard; i++ {
		shards[i].Lock()
	}
	n := copy(data[off:off+int64(len(p))], p)
	for i := startShard; i <= endShard; i++ {
		shards[i].Unlock()
	}
	return n, nil
}

// Bytes returns a copy of everything written so far.
func (b *ShardedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]byte, b.cursor)
	copy(out, b.data[:b.cursor])
	return out
}

// Len returns the number of bytes written so far.
func (b *ShardedBuffer) Len() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cursor
}
