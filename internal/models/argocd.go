package models

import "time"

// ArgoCDStatusData reports whether the backend can reach ArgoCD.
type ArgoCDStatusData struct {
	Connected bool      `json:"connected"`
	Timestamp time.Time `json:"timestamp"`
}

// ArgoCD application.status.sync.status values.
const (
	ArgoSyncSynced    = "Synced"
	ArgoSyncOutOfSync = "OutOfSync"
	ArgoSyncUnknown   = "Unknown"
)

// ArgoCD application.status.health.status values.
const (
	ArgoHealthHealthy     = "Healthy"
	ArgoHealthProgressing = "Progressing"
	ArgoHealthDegraded    = "Degraded"
	ArgoHealthSuspended   = "Suspended"
	ArgoHealthMissing     = "Missing"
	ArgoHealthUnknown     = "Unknown"
)

// ArgoApplication is an ArgoCD application as summarized by the backend.
type ArgoApplication struct {
	Name         string `json:"name"`
	Namespace    string `json:"namespace"`
	SyncStatus   string `json:"syncStatus"`
	HealthStatus string `json:"healthStatus"`
	Revision     string `json:"revision,omitempty"`
	Message      string `json:"message,omitempty"`
}
