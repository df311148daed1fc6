package alloc

import (
	"github.com/joshuapare/kmemcore/internal/format"
	"github.com/joshuapare/kmemcore/mem/addr"
)

// Memory reads and writes words of the mapped heap. *machine.Machine
// implements it through the page tables.
type Memory interface {
	LoadU64(v addr.VirtAddr) uint64
	StoreU64(v addr.VirtAddr, w uint64)
}

// node is a Free Region Node header living at its own address.
type node struct {
	mem  Memory
	addr addr.VirtAddr
}

func (n node) size() uint64 { return n.mem.LoadU64(n.addr + format.NodeSizeOffset) }
func (n node) next() addr.VirtAddr {
	return addr.VirtAddr(n.mem.LoadU64(n.addr + format.NodeNextOffset))
}

func (n node) setNext(next addr.VirtAddr) {
	n.mem.StoreU64(n.addr+format.NodeNextOffset, uint64(next))
}

func (n node) write(size uint64, next addr.VirtAddr) {
	n.mem.StoreU64(n.addr+format.NodeSizeOffset, size)
	n.mem.StoreU64(n.addr+format.NodeNextOffset, uint64(next))
}
