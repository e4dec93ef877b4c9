package launcher

import (
	"encoding/json"

	"github.com/coppebars/rslauncher/internal/hdb"
)

const (
	SchemaName = "launcher"

	CurrentSchemaVersion = "v0.2.0"
	DefaultNickname      = "Player"
)

// Top-level fields of the state document, each persisted under its own key.
var Sections = []string{"schema_version", "instances", "selected_instance", "settings", "nickname"}

var launcherSchemaRaw = `
{
	"$defs": {
		"version": {
			"type": "object",
			"properties": {
				"provider": {
					"type": "string",
					"enum": [ "mojang", "local", "unknown" ]
				},
				"vid": { "type": "string" },
				"mcv": { "type": "string" }
			},
			"required": [ "provider", "vid" ]
		},
		"screen": {
			"type": "object",
			"properties": {
				"kind": {
					"type": "string",
					"enum": [ "fullscreen", "resolution" ]
				},
				"width": { "type": "integer" },
				"height": { "type": "integer" }
			},
			"required": [ "kind" ]
		},
		"instance": {
			"type": "object",
			"properties": {
				"id": { "type": "string", "minLength": 1 },
				"name": { "type": "string" },
				"version": { "$ref": "#/$defs/version" },
				"path": { "type": "string" },
				"screen": { "$ref": "#/$defs/screen" },
				"alloc": { "type": "integer" },
				"extra_args": {
					"type": "array",
					"items": { "type": "string" }
				}
			},
			"required": [ "id", "name", "version", "path", "screen", "alloc" ]
		}
	},
	"title": "Launcher State",
	"type": "object",
	"properties": {
		"schema_version": { "type": "string" },
		"instances": {
			"type": "array",
			"items": {
				"$ref": "#/$defs/instance"
			}
		},
		"selected_instance": {
			"type": [ "string", "null" ]
		},
		"settings": {
			"type": "object",
			"properties": {
				"root_path": { "type": "string" }
			},
			"required": [ "root_path" ]
		},
		"nickname": { "type": "string" }
	},
	"required": [ "schema_version", "instances", "selected_instance", "settings", "nickname" ]
}`

type LauncherState struct {
	SchemaVersion    string      `json:"schema_version"`
	Instances        []*Instance `json:"instances"`
	SelectedInstance *string     `json:"selected_instance"`
	Settings         Settings    `json:"settings"`
	Nickname         string      `json:"nickname"`
}

func (s LauncherState) Schema() []byte {
	return []byte(launcherSchemaRaw)
}

func (s LauncherState) Bytes() ([]byte, error) {
	if s.Instances == nil {
		s.Instances = make([]*Instance, 0)
	}
	return json.Marshal(s)
}

func (s *LauncherState) GetInstance(id string) (*Instance, bool) {
	for _, inst := range s.Instances {
		if inst.ID == id {
			return inst, true
		}
	}
	return nil, false
}

func (s *LauncherState) instanceIndex(id string) int {
	for i, inst := range s.Instances {
		if inst.ID == id {
			return i
		}
	}
	return -1
}

// Selected resolves the selection. A selection that no longer references an existing
// instance resolves to nil.
func (s *LauncherState) Selected() *Instance {
	if s.SelectedInstance == nil {
		return nil
	}
	inst, ok := s.GetInstance(*s.SelectedInstance)
	if !ok {
		return nil
	}
	return inst
}

type LauncherSchema struct {
}

func (s *LauncherSchema) Name() string {
	return SchemaName
}

func (s *LauncherSchema) Bytes() []byte {
	return []byte(launcherSchemaRaw)
}

// InitState returns an empty state with the given root path.
func (s *LauncherSchema) InitState(rootPath string) (hdb.State, error) {
	return &LauncherState{
		SchemaVersion: CurrentSchemaVersion,
		Instances:     make([]*Instance, 0),
		Settings: Settings{
			RootPath: rootPath,
		},
		Nickname: DefaultNickname,
	}, nil
}
