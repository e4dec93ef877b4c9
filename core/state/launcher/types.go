package launcher

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Provider string

const (
	ProviderMojang  Provider = "mojang"
	ProviderLocal   Provider = "local"
	ProviderUnknown Provider = "unknown"
)

func ParseProvider(s string) Provider {
	switch Provider(s) {
	case ProviderMojang, ProviderLocal:
		return Provider(s)
	default:
		return ProviderUnknown
	}
}

func (p *Provider) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*p = ParseProvider(s)
	return nil
}

// Version identifies a game build together with the source that provides it.
type Version struct {
	Provider Provider `json:"provider"`
	Vid      string   `json:"vid"`
	Mcv      string   `json:"mcv,omitempty"`
}

func (v Version) String() string {
	return fmt.Sprintf("%s:%s", v.Provider, v.Vid)
}

type ScreenKind string

const (
	ScreenFullscreen ScreenKind = "fullscreen"
	ScreenResolution ScreenKind = "resolution"
)

const (
	DefaultWidth  = 1280
	DefaultHeight = 720
)

// Screen is either fullscreen or a fixed window resolution. Width and Height are only
// meaningful for the resolution kind.
type Screen struct {
	Kind   ScreenKind `json:"kind"`
	Width  int        `json:"width,omitempty"`
	Height int        `json:"height,omitempty"`
}

func Fullscreen() Screen {
	return Screen{Kind: ScreenFullscreen}
}

func Resolution(width, height int) Screen {
	return Screen{Kind: ScreenResolution, Width: width, Height: height}
}

func (s Screen) IsFullscreen() bool {
	return s.Kind == ScreenFullscreen
}

// Dimensions returns the window size handed to the game. Fullscreen instances still
// need one, the default is used.
func (s Screen) Dimensions() (int, int) {
	if s.Kind != ScreenResolution {
		return DefaultWidth, DefaultHeight
	}
	return s.Width, s.Height
}

type Instance struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Version   Version  `json:"version"`
	Path      string   `json:"path"`
	Screen    Screen   `json:"screen"`
	Alloc     int      `json:"alloc"`
	ExtraArgs []string `json:"extra_args,omitempty"`
}

// Copy returns a deep copy of the instance.
func (i *Instance) Copy() *Instance {
	if i == nil {
		return nil
	}
	c := *i
	if i.ExtraArgs != nil {
		c.ExtraArgs = append([]string(nil), i.ExtraArgs...)
	}
	return &c
}

// InstanceDraft is an instance that has not been assigned an id yet.
type InstanceDraft struct {
	Name      string   `json:"name"`
	Version   Version  `json:"version"`
	Path      string   `json:"path"`
	Screen    Screen   `json:"screen"`
	Alloc     int      `json:"alloc"`
	ExtraArgs []string `json:"extra_args,omitempty"`
}

func (d *InstanceDraft) Instance(id string) *Instance {
	inst := &Instance{
		ID:      id,
		Name:    strings.TrimSpace(d.Name),
		Version: d.Version,
		Path:    d.Path,
		Screen:  d.Screen,
		Alloc:   d.Alloc,
	}
	if len(d.ExtraArgs) > 0 {
		inst.ExtraArgs = append([]string(nil), d.ExtraArgs...)
	}
	return inst
}

// InstancePatch is a partial update. Nil fields are left unchanged.
type InstancePatch struct {
	Name      *string   `json:"name,omitempty"`
	Version   *Version  `json:"version,omitempty"`
	Path      *string   `json:"path,omitempty"`
	Screen    *Screen   `json:"screen,omitempty"`
	Alloc     *int      `json:"alloc,omitempty"`
	ExtraArgs *[]string `json:"extra_args,omitempty"`
}

func (p *InstancePatch) Empty() bool {
	return p == nil || (p.Name == nil && p.Version == nil && p.Path == nil && p.Screen == nil && p.Alloc == nil && p.ExtraArgs == nil)
}

// Apply returns a copy of inst with the patch merged in. The id is never changed.
func (p *InstancePatch) Apply(inst *Instance) *Instance {
	merged := inst.Copy()
	if p == nil {
		return merged
	}
	if p.Name != nil {
		merged.Name = strings.TrimSpace(*p.Name)
	}
	if p.Version != nil {
		merged.Version = *p.Version
	}
	if p.Path != nil {
		merged.Path = *p.Path
	}
	if p.Screen != nil {
		merged.Screen = *p.Screen
	}
	if p.Alloc != nil {
		merged.Alloc = *p.Alloc
	}
	if p.ExtraArgs != nil {
		if len(*p.ExtraArgs) == 0 {
			merged.ExtraArgs = nil
		} else {
			merged.ExtraArgs = append([]string(nil), (*p.ExtraArgs)...)
		}
	}
	return merged
}

type Settings struct {
	RootPath string `json:"root_path"`
}
