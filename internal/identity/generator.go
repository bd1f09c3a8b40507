package identity

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"strings"
	"sync"
)

const (
	// IDLength is the length of every guest identifier
	IDLength = 16
	// MinDigits is the number of digit positions reserved at generation
	MinDigits = 3

	digits   = "0123456789"
	alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Generator produces guest identifiers
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator returns a Generator seeded from crypto/rand
func NewGenerator() *Generator {
	var seed [32]byte
	_, _ = cryptorand.Read(seed[:])
	return &Generator{rng: rand.New(rand.NewChaCha8(seed))}
}

// NewSeededGenerator returns a deterministic Generator for tests
func NewSeededGenerator(seed uint64) *Generator {
	var s [32]byte
	binary.LittleEndian.PutUint64(s[:], seed)
	return &Generator{rng: rand.New(rand.NewChaCha8(s))}
}

// NewID returns a 16 character identifier over A-Z0-9 with at least three
// digits. Three digit positions are drawn first, the rest from the full
// alphabet, then the whole sequence is shuffled so the digits do not
// cluster at the front.
func (g *Generator) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	buf := make([]byte, 0, IDLength)
	for i := 0; i < MinDigits; i++ {
		buf = append(buf, digits[g.rng.IntN(len(digits))])
	}
	for i := MinDigits; i < IDLength; i++ {
		buf = append(buf, alphabet[g.rng.IntN(len(alphabet))])
	}

	g.rng.Shuffle(len(buf), func(i, j int) {
		buf[i], buf[j] = buf[j], buf[i]
	})

	return strings.ToUpper(string(buf))
}

// Valid reports whether id has the shape NewID produces
func Valid(id string) bool {
	if len(id) != IDLength {
		return false
	}
	n := 0
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= '0' && c <= '9':
			n++
		case c >= 'A' && c <= 'Z':
		default:
			return false
		}
	}
	return n >= MinDigits
}
