package registry

import (
	"errors"
	"fmt"

	"github.com/coppebars/rslauncher/core/state/launcher"
	"github.com/coppebars/rslauncher/internal/hdb"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// PathResolver derives the directory of a new instance from its name.
type PathResolver interface {
	InstancePath(name string) (string, error)
}

// Registry is the set of configured instances and the current selection. All reads
// return copies; mutations go through the launcher database.
type Registry struct {
	db    *hdb.Database
	paths PathResolver

	newID func() string
}

func NewRegistry(db *hdb.Database, paths PathResolver) *Registry {
	return &Registry{
		db:    db,
		paths: paths,
		newID: func() string {
			return uuid.New().String()
		},
	}
}

func (r *Registry) state() (*launcher.LauncherState, error) {
	return launcher.ReadState(r.db)
}

// Add validates the draft, assigns it a fresh id and appends it.
func (r *Registry) Add(draft *launcher.InstanceDraft) (*launcher.Instance, error) {
	if err := launcher.ValidateDraft(draft); err != nil {
		return nil, err
	}

	d := *draft
	if d.Path == "" && r.paths != nil {
		path, err := r.paths.InstancePath(d.Name)
		if err != nil {
			return nil, err
		}
		d.Path = path
	}

	inst := d.Instance(r.newID())
	_, err := r.db.ProposeTransitions([]hdb.Transition{
		&launcher.AddInstanceTransition{Instance: inst},
	})
	if err != nil {
		return nil, fmt.Errorf("error adding instance %s: %w", inst.Name, err)
	}

	log.Info().Msgf("Added instance %s (%s) with version %s", inst.Name, inst.ID, inst.Version)
	return inst.Copy(), nil
}

// Update merges the provided fields into the instance. Unknown ids are ignored.
func (r *Registry) Update(id string, patch *launcher.InstancePatch) error {
	if patch.Empty() {
		return nil
	}
	if err := launcher.ValidatePatch(patch); err != nil {
		return err
	}

	_, err := r.db.ProposeTransitions([]hdb.Transition{
		&launcher.UpdateInstanceTransition{ID: id, Changes: patch},
	})
	if err != nil {
		return fmt.Errorf("error updating instance %s: %w", id, err)
	}
	return nil
}

// Remove deletes the instance. Removing the selected instance clears the selection.
func (r *Registry) Remove(id string) error {
	_, err := r.db.ProposeTransitions([]hdb.Transition{
		&launcher.RemoveInstanceTransition{ID: id},
	})
	if err != nil {
		return fmt.Errorf("error removing instance %s: %w", id, err)
	}
	return nil
}

// Select sets the selection. A nil id, or one that matches no instance, clears it.
func (r *Registry) Select(id *string) error {
	_, err := r.db.ProposeTransitions([]hdb.Transition{
		&launcher.SelectInstanceTransition{ID: id},
	})
	return err
}

// Selected returns the selected instance, or nil when nothing valid is selected.
func (r *Registry) Selected() (*launcher.Instance, error) {
	state, err := r.state()
	if err != nil {
		return nil, err
	}
	return state.Selected().Copy(), nil
}

func (r *Registry) List() ([]*launcher.Instance, error) {
	state, err := r.state()
	if err != nil {
		return nil, err
	}
	res := make([]*launcher.Instance, 0, len(state.Instances))
	for _, inst := range state.Instances {
		res = append(res, inst.Copy())
	}
	return res, nil
}

var ErrInstanceNotFound = errors.New("instance not found")

func (r *Registry) Get(id string) (*launcher.Instance, error) {
	state, err := r.state()
	if err != nil {
		return nil, err
	}
	inst, ok := state.GetInstance(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInstanceNotFound, id)
	}
	return inst.Copy(), nil
}
