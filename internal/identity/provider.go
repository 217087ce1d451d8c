package identity

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"
)

// Provider hands out realistic identifiers drawn from a single RNG stream,
// so a fixed seed reproduces the same ids.
type Provider struct {
	rng *rand.Rand
}

func NewProvider(rng *rand.Rand) *Provider {
	return &Provider{rng: rng}
}

// UUID returns a random (version 4) UUID string.
func (p *Provider) UUID() string {
	id, err := uuid.NewRandomFromReader(p.rng)
	if err != nil {
		// rand.Rand.Read never fails
		return uuid.NewString()
	}
	return id.String()
}

// IPv4 returns a unicast dotted quad (first octet 1-223). Private and loopback
// ranges are not excluded.
func (p *Provider) IPv4() string {
	return fmt.Sprintf("%d.%d.%d.%d",
		1+p.rng.Intn(223),
		p.rng.Intn(256),
		p.rng.Intn(256),
		p.rng.Intn(256),
	)
}
