package api

import (
	"net/http"

	"github.com/coppebars/rslauncher/core/state/launcher"
	"github.com/coppebars/rslauncher/internal/registry"
	"github.com/gorilla/mux"
)

type ListInstancesRoute struct {
	registry *registry.Registry
}

func NewListInstancesRoute(r *registry.Registry) *ListInstancesRoute {
	return &ListInstancesRoute{registry: r}
}

func (h *ListInstancesRoute) Pattern() string {
	return "/instances"
}

func (h *ListInstancesRoute) Method() string {
	return http.MethodGet
}

func (h *ListInstancesRoute) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	instances, err := h.registry.List()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, instances)
}

// AddInstanceRoute creates an instance from a draft and returns it with its id.
type AddInstanceRoute struct {
	registry *registry.Registry
}

func NewAddInstanceRoute(r *registry.Registry) *AddInstanceRoute {
	return &AddInstanceRoute{registry: r}
}

func (h *AddInstanceRoute) Pattern() string {
	return "/instances"
}

func (h *AddInstanceRoute) Method() string {
	return http.MethodPost
}

func (h *AddInstanceRoute) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var draft launcher.InstanceDraft
	if !decode(w, r, &draft) {
		return
	}
	inst, err := h.registry.Add(&draft)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, inst)
}

type UpdateInstanceRoute struct {
	registry *registry.Registry
}

func NewUpdateInstanceRoute(r *registry.Registry) *UpdateInstanceRoute {
	return &UpdateInstanceRoute{registry: r}
}

func (h *UpdateInstanceRoute) Pattern() string {
	return "/instances/{id}"
}

func (h *UpdateInstanceRoute) Method() string {
	return http.MethodPatch
}

func (h *UpdateInstanceRoute) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var patch launcher.InstancePatch
	if !decode(w, r, &patch) {
		return
	}
	if err := h.registry.Update(mux.Vars(r)["id"], &patch); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type RemoveInstanceRoute struct {
	registry *registry.Registry
}

func NewRemoveInstanceRoute(r *registry.Registry) *RemoveInstanceRoute {
	return &RemoveInstanceRoute{registry: r}
}

func (h *RemoveInstanceRoute) Pattern() string {
	return "/instances/{id}"
}

func (h *RemoveInstanceRoute) Method() string {
	return http.MethodDelete
}

func (h *RemoveInstanceRoute) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Remove(mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type SelectRequest struct {
	ID *string `json:"id"`
}

// SelectInstanceRoute sets the selection. The response carries the resulting
// selection, which is null when the id did not match an instance.
type SelectInstanceRoute struct {
	registry *registry.Registry
}

func NewSelectInstanceRoute(r *registry.Registry) *SelectInstanceRoute {
	return &SelectInstanceRoute{registry: r}
}

func (h *SelectInstanceRoute) Pattern() string {
	return "/instances/select"
}

func (h *SelectInstanceRoute) Method() string {
	return http.MethodPost
}

func (h *SelectInstanceRoute) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.registry.Select(req.ID); err != nil {
		writeError(w, err)
		return
	}
	selected, err := h.registry.Selected()
	if err != nil {
		writeError(w, err)
		return
	}
	res := SelectRequest{}
	if selected != nil {
		res.ID = &selected.ID
	}
	writeJSON(w, http.StatusOK, res)
}

type SelectedInstanceRoute struct {
	registry *registry.Registry
}

func NewSelectedInstanceRoute(r *registry.Registry) *SelectedInstanceRoute {
	return &SelectedInstanceRoute{registry: r}
}

func (h *SelectedInstanceRoute) Pattern() string {
	return "/instances/selected"
}

func (h *SelectedInstanceRoute) Method() string {
	return http.MethodGet
}

func (h *SelectedInstanceRoute) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	selected, err := h.registry.Selected()
	if err != nil {
		writeError(w, err)
		return
	}
	if selected == nil {
		http.Error(w, "no instance selected", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, selected)
}
