package api

import (
	"net/http"

	"github.com/coppebars/rslauncher/core/state/launcher"
	"github.com/coppebars/rslauncher/internal/launch"
	"github.com/coppebars/rslauncher/internal/runtime"
	"github.com/coppebars/rslauncher/internal/versions"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// VersionsResponse lists the versions of each source. A failed source has its error
// message set instead of a list.
type VersionsResponse struct {
	Local       []launcher.Version `json:"local"`
	Mojang      []launcher.Version `json:"mojang"`
	LocalError  string             `json:"local_error,omitempty"`
	MojangError string             `json:"mojang_error,omitempty"`
}

type LookupVersionsRoute struct {
	versions *versions.Service
}

func NewLookupVersionsRoute(v *versions.Service) *LookupVersionsRoute {
	return &LookupVersionsRoute{versions: v}
}

func (h *LookupVersionsRoute) Pattern() string {
	return "/versions"
}

func (h *LookupVersionsRoute) Method() string {
	return http.MethodGet
}

func (h *LookupVersionsRoute) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	res, _ := h.versions.Lookup(r.Context())

	body := VersionsResponse{
		Local:  res.Local,
		Mojang: res.Mojang,
	}
	if res.LocalErr != nil {
		body.LocalError = res.LocalErr.Error()
	}
	if res.MojangErr != nil {
		body.MojangError = res.MojangErr.Error()
	}
	writeJSON(w, http.StatusOK, body)
}

type LaunchResponse struct {
	LogbackID string `json:"logback_id"`
}

// LaunchRoute starts the selected instance. The launch continues after the response.
type LaunchRoute struct {
	launcher *launch.Launcher
}

func NewLaunchRoute(l *launch.Launcher) *LaunchRoute {
	return &LaunchRoute{launcher: l}
}

func (h *LaunchRoute) Pattern() string {
	return "/launch"
}

func (h *LaunchRoute) Method() string {
	return http.MethodPost
}

func (h *LaunchRoute) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := h.launcher.LaunchSelected(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, LaunchResponse{LogbackID: id})
}

type CancelLaunchRoute struct {
	orchestrator *launch.Orchestrator
}

func NewCancelLaunchRoute(o *launch.Orchestrator) *CancelLaunchRoute {
	return &CancelLaunchRoute{orchestrator: o}
}

func (h *CancelLaunchRoute) Pattern() string {
	return "/instances/{id}/cancel"
}

func (h *CancelLaunchRoute) Method() string {
	return http.MethodPost
}

func (h *CancelLaunchRoute) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.orchestrator.Cancel(mux.Vars(r)["id"]) {
		http.Error(w, "no launch in flight", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type StatusRoute struct {
	tracker *runtime.Tracker
}

func NewStatusRoute(t *runtime.Tracker) *StatusRoute {
	return &StatusRoute{tracker: t}
}

func (h *StatusRoute) Pattern() string {
	return "/status"
}

func (h *StatusRoute) Method() string {
	return http.MethodGet
}

func (h *StatusRoute) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.tracker.Snapshot())
}

type MetricsRoute struct {
	http.Handler
}

func NewMetricsRoute(gatherer prometheus.Gatherer) *MetricsRoute {
	return &MetricsRoute{Handler: promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})}
}

func (h *MetricsRoute) Pattern() string {
	return "/metrics"
}

func (h *MetricsRoute) Method() string {
	return http.MethodGet
}
