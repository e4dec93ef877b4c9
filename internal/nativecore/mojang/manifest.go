package mojang

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// VersionManifest is the index of every published version.
type VersionManifest struct {
	Latest struct {
		Release  string `json:"release"`
		Snapshot string `json:"snapshot"`
	} `json:"latest"`
	Versions []VersionEntry `json:"versions"`
}

type VersionEntry struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	URL  string `json:"url"`
	SHA1 string `json:"sha1"`
}

func (m *VersionManifest) Find(id string) (*VersionEntry, bool) {
	for i := range m.Versions {
		if m.Versions[i].ID == id {
			return &m.Versions[i], true
		}
	}
	return nil, false
}

type Resource struct {
	SHA1 string `json:"sha1"`
	Size int64  `json:"size"`
	URL  string `json:"url"`
}

type Downloads struct {
	Client *Resource `json:"client,omitempty"`
}

type AssetIndexResource struct {
	Resource
	ID        string `json:"id"`
	TotalSize int64  `json:"totalSize"`
}

type JavaVersion struct {
	Component    string `json:"component"`
	MajorVersion int    `json:"majorVersion"`
}

type Artifact struct {
	Path string `json:"path"`
	SHA1 string `json:"sha1"`
	Size int64  `json:"size"`
	URL  string `json:"url"`
}

type LibraryDownloads struct {
	Artifact    *Artifact            `json:"artifact,omitempty"`
	Classifiers map[string]*Artifact `json:"classifiers,omitempty"`
}

// Library is a classpath entry. Libraries without downloads are resolved from the
// maven repository at URL using the coordinates in Name.
type Library struct {
	Name      string            `json:"name"`
	URL       string            `json:"url,omitempty"`
	Downloads *LibraryDownloads `json:"downloads,omitempty"`
	Rules     []Rule            `json:"rules,omitempty"`
	Natives   map[string]string `json:"natives,omitempty"`
	Extract   *struct {
		Exclude []string `json:"exclude"`
	} `json:"extract,omitempty"`
}

type OSCondition struct {
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
	Arch    string `json:"arch,omitempty"`
}

type Rule struct {
	Action   string          `json:"action"`
	OS       *OSCondition    `json:"os,omitempty"`
	Features map[string]bool `json:"features,omitempty"`
}

// Argument is either a constant or a list of values guarded by rules.
type Argument struct {
	Rules  []Rule
	Values []string
}

func (a *Argument) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		a.Values = []string{s}
		return nil
	}

	var cond struct {
		Rules []Rule          `json:"rules"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &cond); err != nil {
		return err
	}
	a.Rules = cond.Rules

	value := bytes.TrimSpace(cond.Value)
	if len(value) > 0 && value[0] == '[' {
		return json.Unmarshal(value, &a.Values)
	}
	var s string
	if err := json.Unmarshal(value, &s); err != nil {
		return fmt.Errorf("invalid argument value: %w", err)
	}
	a.Values = []string{s}
	return nil
}

func (a Argument) MarshalJSON() ([]byte, error) {
	if len(a.Rules) == 0 && len(a.Values) == 1 {
		return json.Marshal(a.Values[0])
	}
	return json.Marshal(struct {
		Rules []Rule   `json:"rules"`
		Value []string `json:"value"`
	}{a.Rules, a.Values})
}

type Arguments struct {
	Game []Argument `json:"game,omitempty"`
	JVM  []Argument `json:"jvm,omitempty"`
}

// Manifest describes one version. Manifests with InheritsFrom are partial and are
// completed by merging them onto their parent.
type Manifest struct {
	ID                 string              `json:"id"`
	InheritsFrom       string              `json:"inheritsFrom,omitempty"`
	Type               string              `json:"type"`
	MainClass          string              `json:"mainClass"`
	Arguments          *Arguments          `json:"arguments,omitempty"`
	MinecraftArguments string              `json:"minecraftArguments,omitempty"`
	AssetIndex         *AssetIndexResource `json:"assetIndex,omitempty"`
	Assets             string              `json:"assets,omitempty"`
	Downloads          *Downloads          `json:"downloads,omitempty"`
	JavaVersion        *JavaVersion        `json:"javaVersion,omitempty"`
	Libraries          []Library           `json:"libraries"`
	ReleaseTime        string              `json:"releaseTime,omitempty"`
	Time               string              `json:"time,omitempty"`

	// jar is the version whose client jar is run. It differs from ID for inherited
	// manifests.
	jar string
}

// Jar returns the id of the version providing the client jar.
func (m *Manifest) Jar() string {
	if m.jar != "" {
		return m.jar
	}
	return m.ID
}

// GameArguments returns the game arguments, converting the legacy single-string form.
func (m *Manifest) GameArguments() []Argument {
	if m.Arguments != nil && len(m.Arguments.Game) > 0 {
		return m.Arguments.Game
	}
	var args []Argument
	for _, f := range strings.Fields(m.MinecraftArguments) {
		args = append(args, Argument{Values: []string{f}})
	}
	return args
}

// JVMArguments returns the jvm arguments. Legacy manifests have none, so the classic
// defaults are used.
func (m *Manifest) JVMArguments() []Argument {
	if m.Arguments != nil && len(m.Arguments.JVM) > 0 {
		return m.Arguments.JVM
	}
	return []Argument{
		{Values: []string{"-Djava.library.path=${natives_directory}"}},
		{Values: []string{"-cp"}},
		{Values: []string{"${classpath}"}},
	}
}

// Merge completes a partial manifest with its parent. The child wins for identity and
// entry point; arguments and libraries are concatenated with the child's first.
func (m *Manifest) Merge(parent *Manifest) *Manifest {
	merged := *parent
	merged.ID = m.ID
	merged.InheritsFrom = ""
	merged.jar = parent.Jar()
	if m.Type != "" {
		merged.Type = m.Type
	}
	if m.MainClass != "" {
		merged.MainClass = m.MainClass
	}
	if m.ReleaseTime != "" {
		merged.ReleaseTime = m.ReleaseTime
	}
	if m.Time != "" {
		merged.Time = m.Time
	}
	if m.AssetIndex != nil {
		merged.AssetIndex = m.AssetIndex
		merged.Assets = m.Assets
	}
	if m.JavaVersion != nil {
		merged.JavaVersion = m.JavaVersion
	}
	if m.Downloads != nil && m.Downloads.Client != nil {
		merged.Downloads = m.Downloads
		merged.jar = m.ID
	}

	if m.MinecraftArguments != "" {
		merged.MinecraftArguments = m.MinecraftArguments
	}
	if m.Arguments != nil {
		args := &Arguments{}
		if parent.Arguments != nil {
			args.Game = append(args.Game, parent.Arguments.Game...)
			args.JVM = append(args.JVM, parent.Arguments.JVM...)
		}
		args.Game = append(args.Game, m.Arguments.Game...)
		args.JVM = append(args.JVM, m.Arguments.JVM...)
		merged.Arguments = args
	}

	merged.Libraries = append(append([]Library(nil), m.Libraries...), parent.Libraries...)
	return &merged
}

type AssetObject struct {
	Hash string `json:"hash"`
	Size int64  `json:"size"`
}

type AssetIndex struct {
	Objects map[string]AssetObject `json:"objects"`
}
