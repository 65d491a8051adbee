package policy

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
)

const (
	entropyMask  = 0xFFFF
	entropyShift = 16
)

// Source supplies 64-bit entropy words. *rand.PCG and *rand.ChaCha8 from
// math/rand/v2 satisfy it.
type Source interface {
	Uint64() uint64
}

// NewBootSource returns a ChaCha8 source seeded from the operating system's
// cryptographic random generator.
func NewBootSource() Source {
	var seed [32]byte
	if _, err := crand.Read(seed[:]); err != nil {
		// crypto/rand never fails on supported platforms.
		panic(err)
	}
	return rand.NewChaCha8(seed)
}

// NewSeededSource returns a deterministic source for tests and reproducible
// plans.
func NewSeededSource(seed uint64) Source {
	var s [32]byte
	binary.LittleEndian.PutUint64(s[:], seed)
	binary.LittleEndian.PutUint64(s[8:], ^seed)
	return rand.NewChaCha8(s)
}

// Drawer hands out small random numbers from a Source, 16 bits at a time.
type Drawer struct {
	src  Source
	word uint64
}

// NewDrawer returns a Drawer over src.
func NewDrawer(src Source) *Drawer {
	return &Drawer{src: src}
}

// Draw returns a number in [0, upper].
func (d *Drawer) Draw(upper uint16) uint16 {
	if d.word == 0 {
		d.word = d.src.Uint64()
	}
	r := uint16(d.word & entropyMask)
	d.word >>= entropyShift
	return r % (upper + 1)
}

// Shuffle returns a random permutation of 0..count-1.
func (d *Drawer) Shuffle(count int) []int {
	buf := make([]int, count)
	for i := 0; i < count; i++ {
		j := int(d.Draw(uint16(i)))
		if j != i {
			buf[i] = buf[j]
		}
		buf[j] = i
	}
	return buf
}
