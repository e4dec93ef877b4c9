package launcher

import (
	"fmt"

	"github.com/coppebars/rslauncher/internal/hdb"
	"github.com/coppebars/rslauncher/internal/pubsub"
	"github.com/rs/zerolog/log"
)

// NewDatabase restores the launcher state from the store, migrating it when it was
// written by an older schema version. An empty store is initialized with defaults.
func NewDatabase(store hdb.KeyValueStore, defaultRootPath string, publisher pubsub.Publisher[hdb.StateUpdate]) (*hdb.Database, error) {
	schema := &LauncherSchema{}
	initState, err := schema.InitState(defaultRootPath)
	if err != nil {
		return nil, err
	}
	defaults, err := initState.Bytes()
	if err != nil {
		return nil, err
	}

	// Sections stored without a schema_version were written before versioning.
	legacyDefaults := *initState.(*LauncherState)
	legacyDefaults.SchemaVersion = legacySchemaVersion
	loadDefaults, err := legacyDefaults.Bytes()
	if err != nil {
		return nil, err
	}

	persister := hdb.NewSectionPersister(store, Sections)
	doc, found, err := persister.Load(loadDefaults)
	if err != nil {
		return nil, err
	}

	if !found {
		db, err := hdb.NewDatabase(SchemaName, schema.Bytes(), defaults, persister, publisher)
		if err != nil {
			return nil, err
		}
		_, err = db.ProposeTransitions([]hdb.Transition{
			&InitializationTransition{InitState: initState.(*LauncherState)},
		})
		if err != nil {
			return nil, fmt.Errorf("error initializing launcher state: %w", err)
		}
		log.Info().Msgf("Initialized launcher state with root path %s", defaultRootPath)
		return db, nil
	}

	migrated, applied, err := Migrate(doc)
	if err != nil {
		return nil, err
	}

	db, err := hdb.NewDatabase(SchemaName, schema.Bytes(), migrated, persister, publisher)
	if err != nil {
		return nil, fmt.Errorf("stored launcher state is invalid: %w", err)
	}

	if len(applied) > 0 {
		if err := persister.Persist(migrated); err != nil {
			return nil, fmt.Errorf("error persisting migrated state: %w", err)
		}
		log.Info().Msgf("Migrated launcher state through %v", applied)
	}
	return db, nil
}

// ReadState decodes the current state of a launcher database.
func ReadState(db *hdb.Database) (*LauncherState, error) {
	var state LauncherState
	if err := db.Unmarshal(&state); err != nil {
		return nil, err
	}
	return &state, nil
}
