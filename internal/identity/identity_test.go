package identity

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodstand/guestkit/internal/auth"
	"github.com/foodstand/guestkit/internal/storage"
)

// brokenStorage fails every operation, like localStorage in a locked-down
// private window
type brokenStorage struct{}

func (brokenStorage) Get(string) (string, bool, error) {
	return "", false, storage.ErrUnavailable
}

func (brokenStorage) Set(string, string) error {
	return errors.New("quota exceeded")
}

// writeOnlyFails reads fine but rejects writes
type writeOnlyFails struct {
	*storage.Memory
}

func (writeOnlyFails) Set(string, string) error {
	return errors.New("quota exceeded")
}

func countDigits(s string) int {
	n := 0
	for _, c := range s {
		if c >= '0' && c <= '9' {
			n++
		}
	}
	return n
}

func TestNewID_shape(t *testing.T) {
	gen := NewGenerator()
	for i := 0; i < 2000; i++ {
		id := gen.NewID()
		require.Len(t, id, IDLength)
		require.Equal(t, strings.ToUpper(id), id)
		for _, c := range id {
			require.True(t, (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9'), "unexpected char %q in %s", c, id)
		}
		require.GreaterOrEqual(t, countDigits(id), MinDigits, "id %s", id)
		require.True(t, Valid(id))
	}
}

func TestNewID_digitsNotClustered(t *testing.T) {
	gen := NewSeededGenerator(7)
	leadingDigits := 0
	const n = 500
	for i := 0; i < n; i++ {
		id := gen.NewID()
		if countDigits(id[:MinDigits]) == MinDigits {
			leadingDigits++
		}
	}
	// Without the shuffle every id would start with three digits.
	assert.Less(t, leadingDigits, n/4)
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("AB1CD2EF3GHIJKLM"))
	assert.False(t, Valid("ABCDEFGHIJKLMN12"), "two digits only")
	assert.False(t, Valid("ab1cd2ef3ghijklm"), "lowercase")
	assert.False(t, Valid("AB1CD2EF3GHIJKL"), "15 chars")
	assert.False(t, Valid("AB1CD2EF3GHIJK-M"))
}

func TestGetOrCreate_idempotent(t *testing.T) {
	mem := storage.NewMemory()
	s := NewStore(mem)

	first := s.GetOrCreate()
	second := s.GetOrCreate()
	assert.Equal(t, first, second)

	stored, ok, err := mem.Get(GuestIDKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, first, stored)

	assert.Equal(t, first, NewStore(mem).GetOrCreate(), "a new store over the same storage must see the same id")
	assert.False(t, s.Loading())
}

func TestGetOrCreate_keepsExistingValue(t *testing.T) {
	mem := storage.NewMemory()
	require.NoError(t, mem.Set(GuestIDKey, "LEGACY123ID00000"))

	assert.Equal(t, "LEGACY123ID00000", NewStore(mem).GetOrCreate())
}

func TestRegenerate(t *testing.T) {
	mem := storage.NewMemory()
	require.NoError(t, mem.Set("visitor_tracked_OLD", "true"))
	s := NewStore(mem)

	before := s.GetOrCreate()
	after := s.Regenerate()
	assert.NotEqual(t, before, after)
	assert.Equal(t, after, s.GetOrCreate())

	v, ok, _ := mem.Get("visitor_tracked_OLD")
	assert.True(t, ok, "regenerate must not clear other keys")
	assert.Equal(t, "true", v)
}

func TestGetOrCreate_storageUnavailable(t *testing.T) {
	s := NewStore(brokenStorage{})

	id := s.GetOrCreate()
	assert.True(t, Valid(id), "degraded mode must still return an id")

	assert.True(t, Valid(s.Regenerate()))
}

func TestGetOrCreate_writeFailureNotPersisted(t *testing.T) {
	st := writeOnlyFails{storage.NewMemory()}
	s := NewStore(st)

	id := s.GetOrCreate()
	assert.True(t, Valid(id))

	_, ok, _ := st.Get(GuestIDKey)
	assert.False(t, ok)
}

func TestResolve(t *testing.T) {
	token, err := auth.NewTokenService("secret").SignAccessToken("user-99")
	require.NoError(t, err)

	p := Resolve("AB1CD2EF3GHIJKLM", "Bearer "+token)
	assert.True(t, p.Authenticated())
	assert.Equal(t, "user-99", p.UserID)
	assert.Equal(t, token, p.Token)
	assert.Equal(t, "AB1CD2EF3GHIJKLM", p.GuestID)

	anon := Resolve("AB1CD2EF3GHIJKLM", "")
	assert.False(t, anon.Authenticated())
	assert.Equal(t, "AB1CD2EF3GHIJKLM", anon.GuestID)

	garbage := Resolve("AB1CD2EF3GHIJKLM", "garbage")
	assert.False(t, garbage.Authenticated())
	assert.Empty(t, garbage.Token)
}
