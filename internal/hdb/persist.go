package hdb

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
)

// KeyValueStore is the storage a SectionPersister writes to. PutAll writes every entry
// or none of them.
type KeyValueStore interface {
	Get(key string) ([]byte, bool, error)
	PutAll(entries map[string][]byte) error
}

// SectionPersister stores each listed top-level field of the state document under its
// own key. Sections whose content did not change since the last write are skipped.
type SectionPersister struct {
	store    KeyValueStore
	sections []string

	mu      sync.Mutex
	written map[string][]byte
}

func NewSectionPersister(store KeyValueStore, sections []string) *SectionPersister {
	return &SectionPersister{
		store:    store,
		sections: sections,
		written:  make(map[string][]byte),
	}
}

func (p *SectionPersister) Persist(state []byte) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(state, &doc); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	changed := make(map[string][]byte)
	for _, section := range p.sections {
		value, ok := doc[section]
		if !ok {
			value = json.RawMessage("null")
		}
		if prev, ok := p.written[section]; ok && bytes.Equal(prev, value) {
			continue
		}
		changed[section] = append([]byte(nil), value...)
	}
	if len(changed) == 0 {
		return nil
	}

	if err := p.store.PutAll(changed); err != nil {
		return fmt.Errorf("error writing sections: %w", err)
	}
	for section, value := range changed {
		p.written[section] = value
	}
	return nil
}

// Load assembles a state document from the stored sections, starting from defaults.
// The boolean reports whether any section was found in the store.
func (p *SectionPersister) Load(defaults []byte) ([]byte, bool, error) {
	doc := make(map[string]json.RawMessage)
	if err := json.Unmarshal(defaults, &doc); err != nil {
		return nil, false, fmt.Errorf("invalid default state: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	found := false
	for _, section := range p.sections {
		value, ok, err := p.store.Get(section)
		if err != nil {
			return nil, false, fmt.Errorf("error reading section %s: %w", section, err)
		}
		if !ok {
			continue
		}
		found = true
		doc[section] = value
		p.written[section] = append([]byte(nil), value...)
	}

	assembled, err := json.Marshal(doc)
	if err != nil {
		return nil, false, err
	}
	return assembled, found, nil
}
