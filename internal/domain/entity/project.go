package entity

import (
	"time"

	"github.com/google/uuid"
)

type Plan string

const (
	PlanFree       Plan = "free"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

var observationWindows = map[Plan]int{
	PlanFree:       3,
	PlanPro:        5,
	PlanEnterprise: 10,
}

var analysisDelays = map[Plan]time.Duration{
	PlanFree:       5 * time.Minute,
	PlanPro:        7 * time.Minute,
	PlanEnterprise: 12 * time.Minute,
}

// ObservationWindow returns how many post-release samples the plan buys.
func (p Plan) ObservationWindow() int {
	if w, ok := observationWindows[p]; ok {
		return w
	}
	return 5
}

// AnalysisDelay returns how long after release finish the analysis job runs.
// It always covers the observation window with headroom for retries.
func (p Plan) AnalysisDelay() time.Duration {
	if d, ok := analysisDelays[p]; ok {
		return d
	}
	return 5 * time.Minute
}

// Project is the owning collaborator of releases. Account and API-key
// administration live outside this service; only the fields the analysis
// pipeline reads are modeled here.
type Project struct {
	ID             uuid.UUID
	Name           string
	Plan           Plan
	SigningEnabled bool
	SigningSecret  string
	AllowedEnvs    []string
}

func (p *Project) AllowsEnv(env string) bool {
	for _, allowed := range p.AllowedEnvs {
		if allowed == env {
			return true
		}
	}
	return false
}
