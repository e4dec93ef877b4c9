package api

import (
	"github.com/coppebars/rslauncher/internal/launch"
	"github.com/coppebars/rslauncher/internal/registry"
	"github.com/coppebars/rslauncher/internal/runtime"
	"github.com/coppebars/rslauncher/internal/settings"
	"github.com/coppebars/rslauncher/internal/versions"
	"github.com/prometheus/client_golang/prometheus"
)

// Components are the launcher services exposed over HTTP.
type Components struct {
	Registry     *registry.Registry
	Settings     *settings.Store
	Versions     *versions.Service
	Launcher     *launch.Launcher
	Orchestrator *launch.Orchestrator
	Tracker      *runtime.Tracker
	Stream       *Stream
	Gatherer     prometheus.Gatherer
}

func Routes(c *Components) []Route {
	return []Route{
		NewListInstancesRoute(c.Registry),
		NewAddInstanceRoute(c.Registry),
		NewSelectInstanceRoute(c.Registry),
		NewSelectedInstanceRoute(c.Registry),
		NewUpdateInstanceRoute(c.Registry),
		NewRemoveInstanceRoute(c.Registry),
		NewCancelLaunchRoute(c.Orchestrator),
		NewGetSettingsRoute(c.Settings),
		NewPutSettingsRoute(c.Settings),
		NewGetProfileRoute(c.Settings),
		NewPutProfileRoute(c.Settings),
		NewLookupVersionsRoute(c.Versions),
		NewLaunchRoute(c.Launcher),
		NewStatusRoute(c.Tracker),
		NewEventsRoute(c.Stream),
		NewMetricsRoute(c.Gatherer),
	}
}
