package timeline

import (
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"elastic-sentinel/config"
	"elastic-sentinel/internal/generator"
	"elastic-sentinel/internal/identity"
	"elastic-sentinel/internal/model"
)

const (
	// deploymentLead is how long before the incident the bad deployment starts.
	deploymentLead = 2 * time.Minute
	// deploymentDuration separates the STARTED and COMPLETED events.
	deploymentDuration = time.Minute

	maxJitterSeconds = 59

	noteDeployStarted   = "Schema migration v3 included"
	noteDeployCompleted = "migration_v3_schema.sql applied"
)

// Window holds the boundaries of one simulation run.
type Window struct {
	Base           time.Time
	End            time.Time
	IncidentStart  time.Time
	IncidentEnd    time.Time
	DeploymentTime time.Time
	DeploymentID   string
}

// InIncident reports whether a minute bucket falls inside the incident.
// Both ends are inclusive, so a duration of N minutes yields N+1 incident buckets.
func (w Window) InIncident(minute time.Time) bool {
	return !minute.Before(w.IncidentStart) && !minute.After(w.IncidentEnd)
}

// Result is everything a run produced, in generation order.
type Result struct {
	Window      Window
	API         []model.APILogEntry
	DB          []model.DBLogEntry
	Deployments []model.DeploymentEvent
}

// Records flattens every generated record in source order: deployments, api, db.
func (r *Result) Records() []model.LogRecord {
	out := make([]model.LogRecord, 0, len(r.Deployments)+len(r.API)+len(r.DB))
	for _, d := range r.Deployments {
		out = append(out, d)
	}
	for _, a := range r.API {
		out = append(out, a)
	}
	for _, d := range r.DB {
		out = append(out, d)
	}
	return out
}

type Controller struct {
	cfg     config.SimulationConfig
	rng     *rand.Rand
	api     *generator.APIGenerator
	db      *generator.DBGenerator
	deploys *generator.DeploymentGenerator
}

// NewController builds a controller whose generators all share one RNG seeded with seed.
func NewController(cfg config.SimulationConfig, seed int64) *Controller {
	rng := rand.New(rand.NewSource(seed))
	return &Controller{
		cfg:     cfg,
		rng:     rng,
		api:     generator.NewAPIGenerator(rng, identity.NewProvider(rng)),
		db:      generator.NewDBGenerator(rng),
		deploys: generator.NewDeploymentGenerator(cfg.DeploymentID),
	}
}

// Plan computes the window for a run that ends at now.
func (c *Controller) Plan(now time.Time) Window {
	base := now.UTC().Add(-minutes(c.cfg.WindowMinutes))
	incidentStart := base.Add(minutes(c.cfg.IncidentOffsetMinutes))
	return Window{
		Base:           base,
		End:            base.Add(minutes(c.cfg.WindowMinutes)),
		IncidentStart:  incidentStart,
		IncidentEnd:    incidentStart.Add(minutes(c.cfg.IncidentDurationMinutes)),
		DeploymentTime: incidentStart.Add(-deploymentLead),
		DeploymentID:   c.cfg.DeploymentID,
	}
}

// Run generates the full dataset for the window ending at now.
func (c *Controller) Run(now time.Time) *Result {
	w := c.Plan(now)
	res := &Result{Window: w}

	res.Deployments = append(res.Deployments,
		c.deploys.Generate(w.DeploymentTime, w.DeploymentID, model.DeploymentStarted, noteDeployStarted),
		c.deploys.Generate(w.DeploymentTime.Add(deploymentDuration), w.DeploymentID, model.DeploymentCompleted, noteDeployCompleted),
	)

	incidentMinutes := 0
	for minute := 0; minute < c.cfg.WindowMinutes; minute++ {
		ts := w.Base.Add(minutes(minute))
		inIncident := w.InIncident(ts)

		count := c.cfg.LogsPerMinute
		if inIncident {
			count *= c.cfg.BurstMultiplier
			incidentMinutes++
		}

		for i := 0; i < count; i++ {
			at := ts.Add(time.Duration(c.rng.Intn(maxJitterSeconds+1)) * time.Second)
			res.API = append(res.API, c.api.Generate(at, inIncident))
			res.DB = append(res.DB, c.db.Generate(at, inIncident))
		}
	}

	log.Debug().
		Int("incident_minutes", incidentMinutes).
		Int("api_records", len(res.API)).
		Int("db_records", len(res.DB)).
		Int("deploy_records", len(res.Deployments)).
		Msg("Generated simulation records")
	return res
}

func minutes(n int) time.Duration {
	return time.Duration(n) * time.Minute
}
