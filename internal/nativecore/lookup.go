package nativecore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// VersionOverview is a version installed in a game tree.
type VersionOverview struct {
	ID   string  `json:"id"`
	Icon *string `json:"icon,omitempty"`
}

type profileEntry struct {
	LastVersionID string  `json:"lastVersionId"`
	Icon          *string `json:"icon"`
}

type launcherProfile struct {
	Profiles map[string]profileEntry `json:"profiles"`
}

func readProfile(root string) (*launcherProfile, error) {
	data, err := os.ReadFile(filepath.Join(root, "profile.json"))
	if errors.Is(err, fs.ErrNotExist) {
		return &launcherProfile{Profiles: map[string]profileEntry{}}, nil
	} else if err != nil {
		return nil, err
	}

	var profile launcherProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("malformed profile.json: %w", err)
	}
	return &profile, nil
}

// LookupVersions lists the versions installed under <root>/versions.
func (c *Core) LookupVersions(ctx context.Context, root string) ([]VersionOverview, error) {
	entries, err := os.ReadDir(filepath.Join(root, "versions"))
	if err != nil {
		return nil, err
	}

	profile, err := readProfile(root)
	if err != nil {
		return nil, err
	}

	versions := make([]VersionOverview, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.IsDir() {
			continue
		}
		v := VersionOverview{ID: entry.Name()}
		if p, ok := profile.Profiles[entry.Name()]; ok {
			v.Icon = p.Icon
		}
		versions = append(versions, v)
	}

	sort.Slice(versions, func(i, j int) bool {
		return versions[i].ID < versions[j].ID
	})
	return versions, nil
}
