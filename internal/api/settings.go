package api

import (
	"net/http"

	"github.com/coppebars/rslauncher/core/state/launcher"
	"github.com/coppebars/rslauncher/internal/settings"
)

type GetSettingsRoute struct {
	settings *settings.Store
}

func NewGetSettingsRoute(s *settings.Store) *GetSettingsRoute {
	return &GetSettingsRoute{settings: s}
}

func (h *GetSettingsRoute) Pattern() string {
	return "/settings"
}

func (h *GetSettingsRoute) Method() string {
	return http.MethodGet
}

func (h *GetSettingsRoute) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s, err := h.settings.Settings()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

type PutSettingsRoute struct {
	settings *settings.Store
}

func NewPutSettingsRoute(s *settings.Store) *PutSettingsRoute {
	return &PutSettingsRoute{settings: s}
}

func (h *PutSettingsRoute) Pattern() string {
	return "/settings"
}

func (h *PutSettingsRoute) Method() string {
	return http.MethodPut
}

func (h *PutSettingsRoute) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req launcher.Settings
	if !decode(w, r, &req) {
		return
	}
	if err := h.settings.ChangeRootPath(req.RootPath); err != nil {
		writeError(w, err)
		return
	}
	s, err := h.settings.Settings()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

type Profile struct {
	Nickname string `json:"nickname"`
}

type GetProfileRoute struct {
	settings *settings.Store
}

func NewGetProfileRoute(s *settings.Store) *GetProfileRoute {
	return &GetProfileRoute{settings: s}
}

func (h *GetProfileRoute) Pattern() string {
	return "/profile"
}

func (h *GetProfileRoute) Method() string {
	return http.MethodGet
}

func (h *GetProfileRoute) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	nickname, err := h.settings.Nickname()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Profile{Nickname: nickname})
}

type PutProfileRoute struct {
	settings *settings.Store
}

func NewPutProfileRoute(s *settings.Store) *PutProfileRoute {
	return &PutProfileRoute{settings: s}
}

func (h *PutProfileRoute) Pattern() string {
	return "/profile"
}

func (h *PutProfileRoute) Method() string {
	return http.MethodPut
}

func (h *PutProfileRoute) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req Profile
	if !decode(w, r, &req) {
		return
	}
	if err := h.settings.SetNickname(req.Nickname); err != nil {
		writeError(w, err)
		return
	}
	nickname, err := h.settings.Nickname()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Profile{Nickname: nickname})
}
