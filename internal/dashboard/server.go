// Package dashboard serves read-only JSON views of the unified inventory,
// backed by the same fetch hooks the CLI uses.
package dashboard

import (
	"context"
	"errors"
	"net/http"
	"time"

	mcerrors "github.com/rcourtman/mission-control/internal/errors"
	"github.com/rcourtman/mission-control/internal/identity"
	"github.com/rcourtman/mission-control/internal/inventory"
	"github.com/rcourtman/mission-control/internal/inventorysync"
	"github.com/rcourtman/mission-control/internal/logging"
	"github.com/rcourtman/mission-control/internal/models"
	"github.com/rcourtman/mission-control/internal/swr"
	"github.com/rcourtman/mission-control/internal/unifiedresources"
	"github.com/rcourtman/mission-control/internal/utils"
	"github.com/rs/zerolog"
)

// DefaultDetailTimeout bounds how long a detail view waits for its first
// fetch.
const DefaultDetailTimeout = 10 * time.Second

// Deps are the collaborators a Server reads from.
type Deps struct {
	Hooks    *inventory.Hooks
	Trigger  *inventorysync.Trigger
	Identity *identity.Resolver
	Logger   zerolog.Logger
	// DetailTimeout defaults to DefaultDetailTimeout.
	DetailTimeout time.Duration
}

// Server owns the long-lived feeds behind the view routes.
type Server struct {
	hooks         *inventory.Hooks
	cache         *swr.Cache
	resources     *inventory.ResourceFeed
	status        *inventory.StatusFeed
	trigger       *inventorysync.Trigger
	identity      *identity.Resolver
	logger        zerolog.Logger
	detailTimeout time.Duration
	mux           *http.ServeMux
}

// ResourcesResponse is the body of GET /api/resources.
type ResourcesResponse struct {
	IsLoading bool                           `json:"isLoading"`
	Resources []unifiedresources.Resource    `json:"resources"`
	Errors    []unifiedresources.SourceError `json:"errors,omitempty"`
	Counts    unifiedresources.Counts        `json:"counts"`
}

// SyncResponse is the body of the sync routes.
type SyncResponse struct {
	Outcome *inventorysync.Outcome `json:"outcome,omitempty"`
	Status  inventorysync.Status   `json:"status"`
}

// NewServer subscribes the resource and status feeds and registers routes.
func NewServer(deps Deps) *Server {
	s := &Server{
		hooks:         deps.Hooks,
		cache:         deps.Hooks.Cache(),
		resources:     inventory.NewResourceFeed(deps.Hooks),
		status:        inventory.NewStatusFeed(deps.Hooks),
		trigger:       deps.Trigger,
		identity:      deps.Identity,
		logger:        deps.Logger,
		detailTimeout: deps.DetailTimeout,
		mux:           http.NewServeMux(),
	}
	if s.detailTimeout <= 0 {
		s.detailTimeout = DefaultDetailTimeout
	}
	if s.identity == nil {
		s.identity = identity.NewResolver()
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/resources", s.focused(s.handleResources))
	s.mux.HandleFunc("GET /api/summary", s.focused(s.handleSummary))
	s.mux.HandleFunc("GET /api/hosts/{id}", s.focused(s.handleHost))
	s.mux.HandleFunc("GET /api/workloads/{id}", s.focused(s.handleWorkload))
	s.mux.HandleFunc("GET /api/health", s.focused(s.handleHealth))
	s.mux.HandleFunc("POST /api/sync", s.handleSyncStart)
	s.mux.HandleFunc("GET /api/sync", s.handleSyncStatus)
	s.mux.HandleFunc("GET /api/me", s.handleMe)
	s.mux.HandleFunc("DELETE /api/me", s.handleForgetMe)
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
}

// Handler returns the instrumented router.
func (s *Server) Handler() http.Handler {
	return requestMiddleware(s.logger, s.mux)
}

// Close unsubscribes the feeds.
func (s *Server) Close() {
	s.resources.Close()
	s.status.Close()
}

// focused treats a view request like a window regaining focus: hooks that
// opted in revalidate outside their dedupe window.
func (s *Server) focused(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.cache.Focus()
		h(w, r)
	}
}

func (s *Server) handleResources(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		writeErrorResponse(w, r, http.StatusBadRequest, "invalid_filter", err.Error())
		return
	}
	if utils.ParseBool(r.URL.Query().Get("refresh")) {
		s.resources.Refresh()
	}

	view := s.resources.View().Filtered(filter).Settled()
	resp := ResourcesResponse{
		IsLoading: view.IsLoading,
		Resources: view.Resources,
		Errors:    view.Errors,
		Counts:    view.Counts(),
	}
	if resp.Resources == nil {
		resp.Resources = []unifiedresources.Resource{}
	}
	s.writeJSON(w, r, http.StatusOK, resp)
}

func parseFilter(r *http.Request) (unifiedresources.Filter, error) {
	q := r.URL.Query()
	source, err := unifiedresources.ParseSource(q.Get("source"))
	if err != nil {
		return unifiedresources.Filter{}, err
	}
	sortBy, err := unifiedresources.ParseSortBy(q.Get("sort"))
	if err != nil {
		return unifiedresources.Filter{}, err
	}
	return unifiedresources.Filter{
		Search:            q.Get("search"),
		Source:            source,
		Namespaces:        utils.SplitList(q["namespace"]...),
		ExcludeNamespaces: utils.SplitList(q["exclude-namespace"]...),
		SortBy:            sortBy,
	}, nil
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.status.Summary())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.status.Health())
}

func (s *Server) handleHost(w http.ResponseWriter, r *http.Request) {
	sub := s.hooks.HostByID(r.PathValue("id"))
	defer sub.Close()
	serveDetail(s, w, r, sub)
}

func (s *Server) handleWorkload(w http.ResponseWriter, r *http.Request) {
	sub := s.hooks.WorkloadByID(r.PathValue("id"))
	defer sub.Close()
	serveDetail(s, w, r, sub)
}

func serveDetail[T any](s *Server, w http.ResponseWriter, r *http.Request, sub *swr.Subscription[*models.Response[T]]) {
	ctx, cancel := context.WithTimeout(r.Context(), s.detailTimeout)
	defer cancel()

	st, err := sub.Wait(ctx)
	if err != nil {
		writeErrorResponse(w, r, http.StatusGatewayTimeout, "backend_timeout", "Backend did not answer in time")
		return
	}
	if st.Err != nil {
		s.writeBackendError(w, r, st.Err)
		return
	}
	if st.Data == nil {
		writeErrorResponse(w, r, http.StatusNotFound, "not_found", "Resource not found")
		return
	}
	s.writeJSON(w, r, http.StatusOK, st.Data.Data)
}

func (s *Server) writeBackendError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case mcerrors.IsNotFound(err):
		writeErrorResponse(w, r, http.StatusNotFound, "not_found", err.Error())
	case mcerrors.IsAuthError(err):
		writeErrorResponse(w, r, http.StatusBadGateway, "backend_auth", err.Error())
	default:
		writeErrorResponse(w, r, http.StatusBadGateway, "backend_error", err.Error())
	}
}

func (s *Server) handleSyncStart(w http.ResponseWriter, r *http.Request) {
	if s.trigger == nil {
		writeErrorResponse(w, r, http.StatusNotImplemented, "sync_disabled", "Manual sync is not available")
		return
	}

	outcome, err := s.trigger.Sync(r.Context())
	switch {
	case errors.Is(err, inventorysync.ErrSyncInProgress):
		s.writeJSON(w, r, http.StatusConflict, SyncResponse{Status: s.trigger.Status()})
	case err != nil:
		logger := logging.FromContext(r.Context())
		logger.Warn().Err(err).Msg("Manual sync failed")
		s.writeJSON(w, r, http.StatusBadGateway, SyncResponse{Outcome: &outcome, Status: s.trigger.Status()})
	default:
		s.writeJSON(w, r, http.StatusOK, SyncResponse{Outcome: &outcome, Status: s.trigger.Status()})
	}
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	if s.trigger == nil {
		writeErrorResponse(w, r, http.StatusNotImplemented, "sync_disabled", "Manual sync is not available")
		return
	}
	s.writeJSON(w, r, http.StatusOK, SyncResponse{Status: s.trigger.Status()})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.identity.Resolve(w, r))
}

// handleForgetMe drops the identity remembered for this browser. The page
// calls it before following the Access logout link.
func (s *Server) handleForgetMe(w http.ResponseWriter, r *http.Request) {
	s.identity.Forget(r)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := utils.WriteJSONResponse(w, map[string]string{"status": "ok"}); err != nil {
		logger := logging.FromContext(r.Context())
		logger.Error().Err(err).Msg("Failed to write liveness response")
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	if err := utils.WriteJSONStatus(w, status, data); err != nil {
		logger := logging.FromContext(r.Context())
		logger.Error().Err(err).Msg("Failed to encode view response")
		writeErrorResponse(w, r, http.StatusInternalServerError, "encode_error", "Failed to encode response")
	}
}
