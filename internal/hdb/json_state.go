package hdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/qri-io/jsonschema"
)

func keyError(errs []jsonschema.KeyError) error {
	s := strings.Builder{}
	for i, e := range errs {
		if i > 0 {
			s.WriteString("; ")
		}
		s.WriteString(e.Error())
	}
	return fmt.Errorf("%w: %s", ErrSchemaViolation, s.String())
}

// JSONState is a JSON document that always satisfies its schema. Patches are applied
// to a copy of the document and only committed when the result still validates.
type JSONState struct {
	schema *jsonschema.Schema
	raw    []byte
	state  []byte

	*sync.RWMutex
}

func NewJSONState(jsonSchema []byte, initState []byte) (*JSONState, error) {
	rs := &jsonschema.Schema{}
	err := json.Unmarshal(jsonSchema, rs)
	if err != nil {
		return nil, fmt.Errorf("invalid JSON schema: %w", err)
	}
	if err := validate(rs, initState); err != nil {
		return nil, fmt.Errorf("error validating initial state: %w", err)
	}

	return &JSONState{
		schema:  rs,
		raw:     jsonSchema,
		state:   initState,
		RWMutex: &sync.RWMutex{},
	}, nil
}

func validate(schema *jsonschema.Schema, doc []byte) error {
	keyErrs, err := schema.ValidateBytes(context.Background(), doc)
	if err != nil {
		return err
	}
	if len(keyErrs) != 0 {
		return keyError(keyErrs)
	}
	return nil
}

// ApplyPatch applies the patch and replaces the document. The previous byte slice is
// never written to, so snapshots handed out by Bytes stay valid.
func (s *JSONState) ApplyPatch(patchJSON []byte) error {
	updated, err := s.ValidatePatch(patchJSON)
	if err != nil {
		return err
	}

	s.Lock()
	defer s.Unlock()
	s.state = updated
	return nil
}

// ValidatePatch returns the document that would result from applying the patch,
// without modifying the state.
func (s *JSONState) ValidatePatch(patchJSON []byte) ([]byte, error) {
	patch, err := jsonpatch.DecodePatch(patchJSON)
	if err != nil {
		return nil, fmt.Errorf("invalid JSON patch: %w", err)
	}

	updated, err := patch.Apply(s.Bytes())
	if err != nil {
		return nil, fmt.Errorf("error applying patch to current state: %w", err)
	}

	if err := validate(s.schema, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *JSONState) Unmarshal(dest interface{}) error {
	return json.Unmarshal(s.Bytes(), dest)
}

func (s *JSONState) Bytes() []byte {
	s.RLock()
	defer s.RUnlock()
	return s.state
}

func (s *JSONState) Copy() (*JSONState, error) {
	return NewJSONState(s.raw, s.Bytes())
}

var ErrSchemaViolation = errors.New("state does not satisfy schema")
