package launch

import (
	"context"
	"strconv"

	"github.com/coppebars/rslauncher/core/state/launcher"
)

// OfflineUUID is the player uuid passed to the game. Authentication is not handled.
const OfflineUUID = "bd983a9c-0622-42dc-a0c2-47c71bd4f21b"

type InstanceSource interface {
	Selected() (*launcher.Instance, error)
}

type ProfileSource interface {
	RootPath() (string, error)
	Nickname() (string, error)
}

// Launcher launches the selected instance with the current settings and profile.
type Launcher struct {
	orchestrator *Orchestrator
	instances    InstanceSource
	profile      ProfileSource
	// hosts overrides the minecraft_*_host service endpoints.
	hosts map[string]string
}

func NewLauncher(orchestrator *Orchestrator, instances InstanceSource, profile ProfileSource, hosts map[string]string) *Launcher {
	return &Launcher{
		orchestrator: orchestrator,
		instances:    instances,
		profile:      profile,
		hosts:        hosts,
	}
}

// Request builds the launch request of the selected instance. It returns ErrNotReady
// when nothing is selected.
func (l *Launcher) Request() (*Request, error) {
	inst, err := l.instances.Selected()
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, ErrNotReady
	}

	root, err := l.profile.RootPath()
	if err != nil {
		return nil, err
	}
	nickname, err := l.profile.Nickname()
	if err != nil {
		return nil, err
	}

	return &Request{
		Instance: inst,
		Root:     root,
		Vars:     Vars(inst, nickname, l.hosts),
	}, nil
}

// LaunchSelected starts the selected instance in the background and returns its
// logback id.
func (l *Launcher) LaunchSelected(ctx context.Context) (string, error) {
	req, err := l.Request()
	if err != nil {
		return "", err
	}
	return l.orchestrator.Start(ctx, req)
}

// Vars returns the substitution variables of a launch.
func Vars(inst *launcher.Instance, nickname string, hosts map[string]string) map[string]string {
	width, height := inst.Screen.Dimensions()
	vars := map[string]string{
		"auth_player_name":  nickname,
		"auth_uuid":         OfflineUUID,
		"auth_access_token": "null",
		"user_type":         "msa",
		"game_directory":    inst.Path,
		"width":             strconv.Itoa(width),
		"height":            strconv.Itoa(height),
		"resolution_width":  strconv.Itoa(width),
		"resolution_height": strconv.Itoa(height),
	}
	for k, v := range hosts {
		if v != "" {
			vars[k] = v
		}
	}
	return vars
}
