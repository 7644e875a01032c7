package unifiedresources

import (
	"strings"

	"github.com/rcourtman/mission-control/internal/models"
)

func statusFromProxmoxNode(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "online":
		return StatusOnline
	case "offline":
		return StatusOffline
	default:
		return StatusUnknown
	}
}

func statusFromProxmoxGuest(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "running":
		return StatusRunning
	case "stopped":
		return StatusStopped
	case "paused":
		return StatusPaused
	default:
		return StatusUnknown
	}
}

func statusFromArgoSync(syncStatus string) string {
	switch syncStatus {
	case models.ArgoSyncSynced:
		return StatusRunning
	case models.ArgoSyncOutOfSync:
		return StatusPending
	default:
		return StatusUnknown
	}
}

// StatusSeverity ranks a status for sorting; lower is worse.
func StatusSeverity(status string) int {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "failed", "error", "offline", "down", "crashloopbackoff":
		return 0
	case "degraded", "warning", "pending", "paused", "progressing":
		return 1
	case "unknown", "":
		return 2
	case "stopped", "succeeded":
		return 3
	default: // online, running, healthy
		return 4
	}
}
