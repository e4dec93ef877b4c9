package launcher

import (
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/wI2L/jsondiff"
	"golang.org/x/mod/semver"
)

// Documents written before versioning carry no schema_version.
const legacySchemaVersion = "v0.1.0"

// Migration upgrades a raw state document to Version.
type Migration struct {
	Version     string
	Description string
	Up          func(doc map[string]interface{}) error
}

var migrations = []*Migration{
	{
		Version:     "v0.2.0",
		Description: "replace fullscreen/width/height with the screen variant",
		Up:          migrateScreenVariant,
	},
}

func migrateScreenVariant(doc map[string]interface{}) error {
	instances, _ := doc["instances"].([]interface{})
	for _, raw := range instances {
		inst, ok := raw.(map[string]interface{})
		if !ok {
			return fmt.Errorf("instance is not an object: %v", raw)
		}
		if _, ok := inst["screen"]; ok {
			continue
		}

		fullscreen, _ := inst["fullscreen"].(bool)
		width, hasWidth := inst["width"].(float64)
		height, hasHeight := inst["height"].(float64)
		if fullscreen {
			inst["screen"] = map[string]interface{}{"kind": string(ScreenFullscreen)}
		} else {
			if !hasWidth {
				width = DefaultWidth
			}
			if !hasHeight {
				height = DefaultHeight
			}
			inst["screen"] = map[string]interface{}{
				"kind":   string(ScreenResolution),
				"width":  int(width),
				"height": int(height),
			}
		}
		delete(inst, "fullscreen")
		delete(inst, "width")
		delete(inst, "height")

		// extra args used to be stored as one string
		if args, ok := inst["extra_args"].(string); ok {
			parsed, err := ParseExtraArgs(args)
			if err != nil {
				return err
			}
			inst["extra_args"] = parsed
		}
	}
	return nil
}

func validateMigrations() error {
	prev := legacySchemaVersion
	for _, mig := range migrations {
		if !semver.IsValid(mig.Version) {
			return fmt.Errorf("migration version %s is not valid semver", mig.Version)
		}
		if semver.Compare(mig.Version, prev) <= 0 {
			return fmt.Errorf("migration %s is not newer than %s", mig.Version, prev)
		}
		prev = mig.Version
	}
	if prev != CurrentSchemaVersion {
		return fmt.Errorf("migrations end at %s, schema is at %s", prev, CurrentSchemaVersion)
	}
	return nil
}

// Migrate upgrades a stored state document to CurrentSchemaVersion. It returns the
// document unchanged when it is already current, and the versions it passed through.
func Migrate(state []byte) ([]byte, []string, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(state, &doc); err != nil {
		return nil, nil, fmt.Errorf("error decoding stored state: %w", err)
	}

	version, _ := doc["schema_version"].(string)
	if version == "" {
		version = legacySchemaVersion
	}
	if !semver.IsValid(version) {
		return nil, nil, fmt.Errorf("stored schema version %q is not valid semver", version)
	}
	if semver.Compare(version, CurrentSchemaVersion) > 0 {
		return nil, nil, fmt.Errorf("stored schema version %s is newer than %s", version, CurrentSchemaVersion)
	}

	applied := make([]string, 0)
	for _, mig := range migrations {
		if semver.Compare(mig.Version, version) <= 0 {
			continue
		}

		var next map[string]interface{}
		if err := json.Unmarshal(state, &next); err != nil {
			return nil, nil, err
		}
		if err := mig.Up(next); err != nil {
			return nil, nil, fmt.Errorf("migration %s failed: %w", mig.Version, err)
		}
		next["schema_version"] = mig.Version

		var prev map[string]interface{}
		if err := json.Unmarshal(state, &prev); err != nil {
			return nil, nil, err
		}
		diff, err := jsondiff.Compare(prev, next)
		if err != nil {
			return nil, nil, err
		}
		patchBytes, err := json.Marshal(diff)
		if err != nil {
			return nil, nil, err
		}
		patch, err := jsonpatch.DecodePatch(patchBytes)
		if err != nil {
			return nil, nil, err
		}
		state, err = patch.Apply(state)
		if err != nil {
			return nil, nil, fmt.Errorf("error applying migration %s: %w", mig.Version, err)
		}

		applied = append(applied, mig.Version)
	}

	return state, applied, nil
}
