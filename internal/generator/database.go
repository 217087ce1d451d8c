package generator

import (
	"math/rand"
	"time"

	"elastic-sentinel/internal/model"
)

var (
	DBOperations = []string{"SELECT", "INSERT", "UPDATE", "DELETE"}
	DBTables     = []string{"users", "orders", "products", "sessions", "payments"}
)

const (
	incidentSlowQueryChance = 0.7

	// QueryTimeoutMs is the threshold above which a query counts as timed out.
	QueryTimeoutMs = 3000

	fastQueryMin, fastQueryMax = 1, 30
	slowQueryMin, slowQueryMax = 500, 5000

	maxRowsAffected          = 1000
	minPoolSize, maxPoolSize = 5, 50

	messageQueryTimeout = "Query timeout — possible schema lock"
	messageQueryOK      = "Query executed successfully"
)

type DBGenerator struct {
	rng *rand.Rand
}

func NewDBGenerator(rng *rand.Rand) *DBGenerator {
	return &DBGenerator{rng: rng}
}

func (g *DBGenerator) Generate(ts time.Time, inIncident bool) model.DBLogEntry {
	var queryTime int
	if inIncident && g.rng.Float64() < incidentSlowQueryChance {
		queryTime = uniformInt(g.rng, slowQueryMin, slowQueryMax)
	} else {
		queryTime = uniformInt(g.rng, fastQueryMin, fastQueryMax)
	}
	isTimeout := queryTime > QueryTimeoutMs

	message := messageQueryOK
	if isTimeout {
		message = messageQueryTimeout
	}

	return model.DBLogEntry{
		Timestamp:          model.NewTimestamp(ts),
		Type:               model.SourceDatabase,
		Operation:          choose(g.rng, DBOperations),
		Table:              choose(g.rng, DBTables),
		QueryTimeMs:        queryTime,
		RowsAffected:       uniformInt(g.rng, 0, maxRowsAffected),
		IsTimeout:          isTimeout,
		IsError:            isTimeout,
		ConnectionPoolSize: uniformInt(g.rng, minPoolSize, maxPoolSize),
		Message:            message,
	}
}
