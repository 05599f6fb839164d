package detector

import (
	"fmt"
	"math/bits"
	"math/rand"
	"strings"
)

const wordBits = 64

// Pattern is a fixed-length binary sequence packed into 64-bit words.
// Bits past Len in the last word are always zero.
type Pattern struct {
	words []uint64
	n     int
}

func NewPattern(length int) Pattern {
	return Pattern{words: make([]uint64, numWords(length)), n: length}
}

// RandomPattern draws length independent fair bits from rng.
func RandomPattern(rng *rand.Rand, length int) Pattern {
	p := NewPattern(length)
	for i := range p.words {
		p.words[i] = rng.Uint64()
	}
	p.clearPadding()
	return p
}

// FromBits builds a pattern from a 0/1 slice; any non-zero entry is a set bit.
func FromBits(values []uint8) Pattern {
	p := NewPattern(len(values))
	for i, v := range values {
		if v != 0 {
			p.words[i/wordBits] |= 1 << uint(i%wordBits)
		}
	}
	return p
}

// ParsePattern reads a string of '0' and '1' characters.
func ParsePattern(s string) (Pattern, error) {
	p := NewPattern(len(s))
	for i, c := range s {
		switch c {
		case '0':
		case '1':
			p.words[i/wordBits] |= 1 << uint(i%wordBits)
		default:
			return Pattern{}, fmt.Errorf("invalid bit %q at position %d", c, i)
		}
	}
	return p, nil
}

func (p Pattern) Len() int { return p.n }

func (p Pattern) Bit(i int) uint8 {
	p.checkIndex(i)
	return uint8(p.words[i/wordBits] >> uint(i%wordBits) & 1)
}

func (p Pattern) Set(i int, v uint8) {
	p.checkIndex(i)
	mask := uint64(1) << uint(i%wordBits)
	if v != 0 {
		p.words[i/wordBits] |= mask
	} else {
		p.words[i/wordBits] &^= mask
	}
}

func (p Pattern) Flip(i int) {
	p.checkIndex(i)
	p.words[i/wordBits] ^= 1 << uint(i%wordBits)
}

func (p Pattern) Clone() Pattern {
	return Pattern{words: append([]uint64(nil), p.words...), n: p.n}
}

func (p Pattern) Equal(other Pattern) bool {
	if p.n != other.n {
		return false
	}
	for i, w := range p.words {
		if w != other.words[i] {
			return false
		}
	}
	return true
}

// Distance returns the Hamming distance between p and other. Both patterns
// must have the same length.
func (p Pattern) Distance(other Pattern) int {
	if p.n != other.n {
		panic(fmt.Sprintf("detector: pattern length mismatch %d != %d", p.n, other.n))
	}
	diff := 0
	for i, w := range p.words {
		diff += bits.OnesCount64(w ^ other.words[i])
	}
	return diff
}

// OnesCount returns the number of set bits.
func (p Pattern) OnesCount() int {
	count := 0
	for _, w := range p.words {
		count += bits.OnesCount64(w)
	}
	return count
}

func (p Pattern) String() string {
	var b strings.Builder
	b.Grow(p.n)
	for i := 0; i < p.n; i++ {
		if p.Bit(i) == 1 {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

func (p Pattern) checkIndex(i int) {
	if i < 0 || i >= p.n {
		panic(fmt.Sprintf("detector: bit index %d out of range [0,%d)", i, p.n))
	}
}

func (p Pattern) clearPadding() {
	if rem := p.n % wordBits; rem != 0 && len(p.words) > 0 {
		p.words[len(p.words)-1] &= (uint64(1) << uint(rem)) - 1
	}
}

func numWords(length int) int {
	if length <= 0 {
		return 0
	}
	return (length + wordBits - 1) / wordBits
}
