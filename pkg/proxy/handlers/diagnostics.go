package handlers

import (
	"net/http"

	"mercator-hq/iptvrelay/pkg/limits"
	"mercator-hq/iptvrelay/pkg/proxy"
	"mercator-hq/iptvrelay/pkg/proxy/types"
	"mercator-hq/iptvrelay/pkg/session"
)

// StatsResponse is the body of the stats endpoint.
type StatsResponse struct {
	session.Stats
	Admission AdmissionStats `json:"admission"`
}

// AdmissionStats reports slot occupancy. A zero limit means unlimited.
type AdmissionStats struct {
	Active                int `json:"active"`
	Identities            int `json:"identities"`
	MaxStreams            int `json:"max_streams"`
	MaxStreamsPerIdentity int `json:"max_streams_per_identity"`
}

// SessionsResponse is the body of the sessions endpoint.
type SessionsResponse struct {
	Count    int            `json:"count"`
	Sessions []session.View `json:"sessions"`
}

// StatsHandler serves the aggregate session snapshot as JSON.
type StatsHandler struct {
	registry  *session.Registry
	admission *limits.Controller
}

// NewStatsHandler creates a stats handler. admission may be nil.
func NewStatsHandler(registry *session.Registry, admission *limits.Controller) *StatsHandler {
	return &StatsHandler{registry: registry, admission: admission}
}

// ServeHTTP implements http.Handler.
func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	resp := StatsResponse{Stats: h.registry.Snapshot()}
	if h.admission != nil {
		global, perIdentity := h.admission.Limits()
		resp.Admission = AdmissionStats{
			Active:                h.admission.Active(),
			Identities:            h.admission.Identities(),
			MaxStreams:            global,
			MaxStreamsPerIdentity: perIdentity,
		}
	}
	w.Header().Set("Cache-Control", "no-store")
	_ = proxy.WriteJSONResponse(w, http.StatusOK, resp)
}

// SessionsHandler serves the most recent active sessions as JSON.
type SessionsHandler struct {
	registry  *session.Registry
	maxListed int
}

// NewSessionsHandler creates a sessions handler listing at most maxListed
// sessions.
func NewSessionsHandler(registry *session.Registry, maxListed int) *SessionsHandler {
	return &SessionsHandler{registry: registry, maxListed: maxListed}
}

// ServeHTTP implements http.Handler.
func (h *SessionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	views := h.registry.Active(h.maxListed)
	w.Header().Set("Cache-Control", "no-store")
	_ = proxy.WriteJSONResponse(w, http.StatusOK, SessionsResponse{
		Count:    len(views),
		Sessions: views,
	})
}

func allowGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return true
	}
	w.Header().Set("Allow", "GET, HEAD")
	_ = proxy.WriteErrorResponse(w, types.NewMethodNotAllowedError("method not allowed"))
	return false
}
