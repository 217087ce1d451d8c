package generator

import (
	"fmt"
	"strings"
	"time"

	"elastic-sentinel/internal/model"
)

const (
	IncidentVersion = "v3.2.1"
	StableVersion   = "v3.2.0"

	deployTriggeredBy = "ci-pipeline"
	deployEnvironment = "production"
)

// DeploymentGenerator builds deployment events. Events for the incident deployment
// carry IncidentVersion, every other deployment StableVersion.
type DeploymentGenerator struct {
	incidentDeploymentID string
}

func NewDeploymentGenerator(incidentDeploymentID string) *DeploymentGenerator {
	return &DeploymentGenerator{incidentDeploymentID: incidentDeploymentID}
}

func (g *DeploymentGenerator) Generate(ts time.Time, deploymentID string, status model.DeploymentStatus, note string) model.DeploymentEvent {
	version := StableVersion
	if deploymentID == g.incidentDeploymentID {
		version = IncidentVersion
	}

	return model.DeploymentEvent{
		Timestamp:    model.NewTimestamp(ts),
		Type:         model.SourceDeployment,
		DeploymentID: deploymentID,
		Status:       status,
		Version:      version,
		TriggeredBy:  deployTriggeredBy,
		Environment:  deployEnvironment,
		Note:         note,
		IsError:      status.IsError(),
		Message:      strings.TrimSpace(fmt.Sprintf("Deployment %s %s. %s", deploymentID, strings.ToLower(string(status)), note)),
	}
}
