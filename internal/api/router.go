package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/coppebars/rslauncher/core/state/launcher"
	"github.com/coppebars/rslauncher/internal/launch"
	"github.com/coppebars/rslauncher/internal/registry"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

type Route interface {
	http.Handler

	// Pattern reports the path at which this is registered.
	Pattern() string
	Method() string
}

func NewRouter(routes []Route, logger *zerolog.Logger) *mux.Router {
	router := mux.NewRouter()
	for _, route := range routes {
		logger.Debug().Msgf("Registering route: %s %s", route.Method(), route.Pattern())
		router.Handle(route.Pattern(), route).Methods(route.Method())
	}
	router.Use(func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Debug().Msgf("%s %s", r.Method, r.URL.Path)
			h.ServeHTTP(w, r)
		})
	})
	return router
}

func NewServer(addr string, router *mux.Router) *http.Server {
	return &http.Server{Addr: addr, Handler: router}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// writeError maps domain errors to status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case launcher.IsValidationError(err):
		status = http.StatusBadRequest
	case errors.Is(err, registry.ErrInstanceNotFound):
		status = http.StatusNotFound
	case errors.Is(err, launch.ErrNotReady), errors.Is(err, launch.ErrAlreadyRunning):
		status = http.StatusConflict
	}
	http.Error(w, err.Error(), status)
}

func decode(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}
