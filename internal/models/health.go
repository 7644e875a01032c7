package models

import (
	"encoding/json"
	"time"
)

// DatabaseHealth is the database section of the full health report.
type DatabaseHealth struct {
	Connected bool            `json:"connected"`
	Pool      json.RawMessage `json:"pool,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status      string         `json:"status"`
	Timestamp   time.Time      `json:"timestamp"`
	Uptime      float64        `json:"uptime"`
	Environment string         `json:"environment,omitempty"`
	Version     string         `json:"version,omitempty"`
	Database    DatabaseHealth `json:"database"`
}

// Healthy reports whether the backend considers itself fully healthy.
func (h HealthResponse) Healthy() bool {
	return h.Status == "ok" && h.Database.Connected
}

// CheckResponse is the loosely typed body of /health/ready and /health/live.
type CheckResponse map[string]any
