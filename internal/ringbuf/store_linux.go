//go:build linux

package ringbuf

import (
	"fmt"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// mappedStore is the true bipartite mapping (spec §4.2 "Mapped"): a single
// anonymous memfd of capacity bytes, mapped twice back-to-back so that
// virtual offsets [0,capacity) and [capacity,2*capacity) alias the same
// physical pages. Mirror is then a no-op — the kernel keeps both views
// coherent for free.
//
// The placement dance (reserve address space, then MAP_FIXED the same fd
// twice into it) mirrors the teacher's mmapQueues, which maps the ublk
// descriptor array at a queue-specific fixed offset using the same raw
// syscall.Syscall6(SYS_MMAP, ...) approach rather than the higher-level
// unix.Mmap helper, because only the raw call lets us pick the address.
type mappedStore struct {
	mem []byte
	fd  int
}

func newMappedStore(capacity uint32) (*mappedStore, error) {
	fd, err := unix.MemfdCreate("flowgraph-ringbuf", 0)
	if err != nil {
		return nil, fmt.Errorf("ringbuf: memfd_create: %w", err)
	}
	if err := unix.Ftruncate(fd, int64(capacity)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("ringbuf: ftruncate: %w", err)
	}

	// Reserve 2*capacity of contiguous address space with a throwaway
	// anonymous mapping, then overlay it twice with MAP_FIXED so both
	// halves point at the same physical pages.
	reserved, err := unix.Mmap(-1, 0, int(2*capacity), unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("ringbuf: reserve address space: %w", err)
	}
	base := uintptr(unsafe.Pointer(&reserved[0]))

	for _, off := range []uintptr{0, uintptr(capacity)} {
		_, _, errno := syscall.Syscall6(
			syscall.SYS_MMAP,
			base+off,
			uintptr(capacity),
			unix.PROT_READ|unix.PROT_WRITE,
			unix.MAP_SHARED|unix.MAP_FIXED,
			uintptr(fd),
			0,
		)
		if errno != 0 {
			unix.Munmap(reserved)
			unix.Close(fd)
			return nil, fmt.Errorf("ringbuf: fixed mmap at offset %d: %w", off, errno)
		}
	}

	return &mappedStore{mem: reserved, fd: fd}, nil
}

func (s *mappedStore) Bytes() []byte { return s.mem }

// Mirror is a no-op: both halves are the same physical memory.
func (s *mappedStore) Mirror(physIdx, n int) {}

func (s *mappedStore) Close() error {
	err := unix.Munmap(s.mem)
	if cerr := unix.Close(s.fd); err == nil {
		err = cerr
	}
	return err
}

// newStore prefers the true mapping on Linux, falling back to the copied
// store if the platform refuses anonymous memfds (e.g. a locked-down
// seccomp profile) or double MAP_FIXED.
func newStore(capacity uint32) (store, error) {
	if s, err := newMappedStore(capacity); err == nil {
		return s, nil
	}
	return newCopiedStore(capacity)
}
