package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	mcerrors "github.com/rcourtman/mission-control/internal/errors"
)

func TestRecordFetchSuccess(t *testing.T) {
	before := testutil.ToFloat64(FetchTotal.WithLabelValues("hosts", "success"))
	RecordFetch("hosts", nil, 20*time.Millisecond)
	after := testutil.ToFloat64(FetchTotal.WithLabelValues("hosts", "success"))
	if after != before+1 {
		t.Fatalf("expected success counter to increase by 1, got %v -> %v", before, after)
	}
}

func TestRecordFetchError(t *testing.T) {
	before := testutil.ToFloat64(FetchTotal.WithLabelValues("workloads", "error"))
	RecordFetch("workloads", errors.New("boom"), time.Second)
	after := testutil.ToFloat64(FetchTotal.WithLabelValues("workloads", "error"))
	if after != before+1 {
		t.Fatalf("expected error counter to increase by 1, got %v -> %v", before, after)
	}
}

func TestRecordFetchRetryableError(t *testing.T) {
	unavailable := mcerrors.NewHTTPStatusError("GET", "/api/v1/argocd/applications", 503, "503 Service Unavailable", "")
	before := testutil.ToFloat64(FetchTotal.WithLabelValues("argocd_applications", "retryable_error"))
	RecordFetch("argocd_applications", unavailable, time.Second)
	if got := testutil.ToFloat64(FetchTotal.WithLabelValues("argocd_applications", "retryable_error")); got != before+1 {
		t.Fatalf("expected retryable counter to increase by 1, got %v -> %v", before, got)
	}

	forbidden := mcerrors.NewHTTPStatusError("GET", "/api/v1/inventory/hosts", 403, "", "")
	before = testutil.ToFloat64(FetchTotal.WithLabelValues("hosts", "error"))
	RecordFetch("hosts", forbidden, time.Second)
	if got := testutil.ToFloat64(FetchTotal.WithLabelValues("hosts", "error")); got != before+1 {
		t.Fatalf("expected auth failures counted as error, got %v -> %v", before, got)
	}
}

func TestRecordStaleDiscarded(t *testing.T) {
	// Should not panic
	RecordStaleDiscarded("argocd-applications")
}

func TestSetCacheEntries(t *testing.T) {
	SetCacheEntries(7)
	if got := testutil.ToFloat64(CacheEntries); got != 7 {
		t.Fatalf("expected 7 cache entries, got %v", got)
	}
}

func TestRecordSync(t *testing.T) {
	before := testutil.ToFloat64(SyncTotal.WithLabelValues("success"))
	RecordSync("success")
	if got := testutil.ToFloat64(SyncTotal.WithLabelValues("success")); got != before+1 {
		t.Fatalf("expected sync counter to increase, got %v", got)
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	// Should not panic
	RecordHTTPRequest("/api/resources", "200")
}
