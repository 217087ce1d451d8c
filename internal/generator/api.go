package generator

import (
	"fmt"
	"math/rand"
	"time"

	"elastic-sentinel/internal/identity"
	"elastic-sentinel/internal/model"
)

var (
	Services    = []string{"user-service", "order-service", "payment-service", "auth-service"}
	HTTPMethods = []string{"GET", "POST", "PUT", "DELETE"}
	Endpoints   = []string{"/api/users", "/api/orders", "/api/products", "/api/auth", "/api/payments"}

	BaselineStatuses = Table[int]{{200, 70}, {201, 10}, {400, 10}, {404, 8}, {500, 2}}
	IncidentStatuses = Table[int]{{500, 50}, {503, 20}, {502, 15}, {504, 15}}
)

const (
	// incidentErrorChance is the share of incident-minute requests drawn from IncidentStatuses.
	incidentErrorChance = 0.6

	fastLatencyMin, fastLatencyMax = 10, 200
	slowLatencyMin, slowLatencyMax = 800, 3000
)

type APIGenerator struct {
	rng *rand.Rand
	ids *identity.Provider
}

func NewAPIGenerator(rng *rand.Rand, ids *identity.Provider) *APIGenerator {
	return &APIGenerator{rng: rng, ids: ids}
}

func (g *APIGenerator) Generate(ts time.Time, inIncident bool) model.APILogEntry {
	var status int
	if inIncident && g.rng.Float64() < incidentErrorChance {
		status = IncidentStatuses.Pick(g.rng)
	} else {
		status = BaselineStatuses.Pick(g.rng)
	}

	isError := status >= 500

	var latency int
	if inIncident && isError {
		latency = uniformInt(g.rng, slowLatencyMin, slowLatencyMax)
	} else {
		latency = uniformInt(g.rng, fastLatencyMin, fastLatencyMax)
	}

	message := fmt.Sprintf("HTTP %d — OK", status)
	if isError {
		message = fmt.Sprintf("HTTP %d — upstream timeout", status)
	}

	return model.APILogEntry{
		Timestamp:  model.NewTimestamp(ts),
		Type:       model.SourceAPI,
		Service:    choose(g.rng, Services),
		Method:     choose(g.rng, HTTPMethods),
		Endpoint:   choose(g.rng, Endpoints),
		StatusCode: status,
		LatencyMs:  latency,
		UserID:     g.ids.UUID(),
		RequestID:  g.ids.UUID(),
		IP:         g.ids.IPv4(),
		IsError:    isError,
		Message:    message,
	}
}
