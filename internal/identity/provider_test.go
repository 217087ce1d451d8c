package identity_test

import (
	"math/rand"
	"net"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"elastic-sentinel/internal/identity"
)

func TestProvider_UUIDIsVersion4(t *testing.T) {
	p := identity.NewProvider(rand.New(rand.NewSource(1)))

	seen := make(map[string]struct{})
	for i := 0; i < 500; i++ {
		raw := p.UUID()
		id, err := uuid.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, uuid.Version(4), id.Version())
		assert.Equal(t, uuid.RFC4122, id.Variant())
		seen[raw] = struct{}{}
	}
	assert.Len(t, seen, 500)
}

func TestProvider_IPv4(t *testing.T) {
	p := identity.NewProvider(rand.New(rand.NewSource(2)))

	for i := 0; i < 500; i++ {
		ip := net.ParseIP(p.IPv4())
		require.NotNil(t, ip)
		v4 := ip.To4()
		require.NotNil(t, v4)
		assert.GreaterOrEqual(t, int(v4[0]), 1)
		assert.LessOrEqual(t, int(v4[0]), 223)
	}
}

func TestProvider_SameSeedSameValues(t *testing.T) {
	a := identity.NewProvider(rand.New(rand.NewSource(7)))
	b := identity.NewProvider(rand.New(rand.NewSource(7)))

	for i := 0; i < 10; i++ {
		assert.Equal(t, a.UUID(), b.UUID())
		assert.Equal(t, a.IPv4(), b.IPv4())
	}
}
