package alloc

import (
	"testing"

	"github.com/joshuapare/kmemcore/mem/addr"
)

// BenchmarkAllocDealloc measures the alloc-then-free round trip of one word,
// the pattern of short-lived boxes.
func BenchmarkAllocDealloc(b *testing.B) {
	for _, kind := range Kinds {
		b.Run(kind.String(), func(b *testing.B) {
			s, _ := newStrategy(b, kind)
			l := word()

			b.ResetTimer()
			b.ReportAllocs()

			for range b.N {
				p, err := s.Alloc(l)
				if err != nil {
					b.Fatal(err)
				}
				s.Dealloc(p, l)
			}
		})
	}
}

// BenchmarkFragmentedAlloc allocates from a heap whose free chain holds many
// small holes ahead of the large remainder, so first fit has to walk.
func BenchmarkFragmentedAlloc(b *testing.B) {
	for _, kind := range []Kind{KindLinkedList, KindFixedSize} {
		b.Run(kind.String(), func(b *testing.B) {
			s, _ := newStrategy(b, kind)
			small := MustLayout(32, 8)
			var ptrs []addr.VirtAddr
			for range 512 {
				p, err := s.Alloc(small)
				if err != nil {
					b.Fatal(err)
				}
				ptrs = append(ptrs, p)
			}
			for i := 0; i < len(ptrs); i += 2 {
				s.Dealloc(ptrs[i], small)
			}
			big := MustLayout(256, 8)

			b.ResetTimer()
			b.ReportAllocs()

			for range b.N {
				p, err := s.Alloc(big)
				if err != nil {
					b.Fatal(err)
				}
				s.Dealloc(p, big)
			}
		})
	}
}
