package hdb

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/coppebars/rslauncher/internal/pubsub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type incrementTransition struct {
	By int `json:"by"`
}

func (t *incrementTransition) Type() string { return "increment" }

func (t *incrementTransition) Validate(old []byte) error {
	if t.By == 0 {
		return errors.New("increment must not be zero")
	}
	return nil
}

func (t *incrementTransition) Patch(old []byte) ([]byte, error) {
	var doc struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(old, &doc); err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf(`[{"op":"replace","path":"/count","value":%d}]`, doc.Count+t.By)), nil
}

type fakePersister struct {
	states [][]byte
	err    error
}

func (p *fakePersister) Persist(state []byte) error {
	if p.err != nil {
		return p.err
	}
	p.states = append(p.states, state)
	return nil
}

type memoryKV map[string][]byte

func (m memoryKV) Get(key string) ([]byte, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

func (m memoryKV) PutAll(entries map[string][]byte) error {
	for k, v := range entries {
		m[k] = v
	}
	return nil
}

func newTestDatabase(t *testing.T, persister Persister) (*Database, *[]*StateUpdate) {
	publisher := pubsub.NewSimplePublisher[StateUpdate]()
	updates := make([]*StateUpdate, 0)
	publisher.AddSubscriber(pubsub.Func(func(u *StateUpdate) error {
		updates = append(updates, u)
		return nil
	}))

	db, err := NewDatabase("test", testSchema, []byte(`{"name":"a","count":0}`), persister, publisher)
	require.NoError(t, err)
	return db, &updates
}

func TestProposeTransitions(t *testing.T) {
	persister := &fakePersister{}
	db, updates := newTestDatabase(t, persister)

	state, err := db.ProposeTransitions([]Transition{
		&incrementTransition{By: 2},
		&incrementTransition{By: 3},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"a","count":5}`, string(state.Bytes()))
	assert.JSONEq(t, `{"name":"a","count":5}`, string(db.Bytes()))

	require.Len(t, persister.states, 1)
	require.Len(t, *updates, 2)
	assert.Equal(t, uint64(1), (*updates)[0].Index)
	assert.Equal(t, uint64(2), (*updates)[1].Index)
	assert.Equal(t, "increment", (*updates)[1].TransitionType())
	assert.JSONEq(t, `{"by":3}`, string((*updates)[1].Transition))
}

func TestProposeTransitionsIsAtomic(t *testing.T) {
	persister := &fakePersister{}
	db, updates := newTestDatabase(t, persister)

	_, err := db.ProposeTransitions([]Transition{
		&incrementTransition{By: 2},
		&incrementTransition{By: -10},
	})
	var terr *TransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "increment", terr.TransitionType)
	assert.ErrorIs(t, err, ErrSchemaViolation)

	assert.JSONEq(t, `{"name":"a","count":0}`, string(db.Bytes()))
	assert.Len(t, persister.states, 0)
	assert.Len(t, *updates, 0)

	_, err = db.ProposeTransitions([]Transition{&incrementTransition{By: 0}})
	require.Error(t, err)

	_, err = db.ProposeTransitions(nil)
	require.ErrorIs(t, err, ErrNoTransitions)
}

func TestPersistFailureKeepsState(t *testing.T) {
	persister := &fakePersister{err: errors.New("disk full")}
	db, updates := newTestDatabase(t, persister)

	_, err := db.ProposeTransitions([]Transition{&incrementTransition{By: 1}})
	require.Error(t, err)
	assert.JSONEq(t, `{"name":"a","count":0}`, string(db.Bytes()))
	assert.Len(t, *updates, 0)
}

func TestRestorePublishes(t *testing.T) {
	db, updates := newTestDatabase(t, nil)
	db.Restore()

	require.Len(t, *updates, 1)
	assert.True(t, (*updates)[0].Restore)
	assert.Equal(t, "", (*updates)[0].TransitionType())
}

func TestSectionPersister(t *testing.T) {
	kv := memoryKV{}
	p := NewSectionPersister(kv, []string{"name", "count", "missing"})

	require.NoError(t, p.Persist([]byte(`{"name":"a","count":1}`)))
	assert.Equal(t, `"a"`, string(kv["name"]))
	assert.Equal(t, `1`, string(kv["count"]))
	assert.Equal(t, `null`, string(kv["missing"]))

	// unchanged sections are not rewritten
	kv["name"] = []byte(`"tampered"`)
	require.NoError(t, p.Persist([]byte(`{"name":"a","count":2}`)))
	assert.Equal(t, `"tampered"`, string(kv["name"]))
	assert.Equal(t, `2`, string(kv["count"]))

	loader := NewSectionPersister(memoryKV{"count": []byte(`7`)}, []string{"name", "count"})
	doc, found, err := loader.Load([]byte(`{"name":"default","count":0}`))
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `{"name":"default","count":7}`, string(doc))

	empty := NewSectionPersister(memoryKV{}, []string{"name"})
	_, found, err = empty.Load([]byte(`{"name":"default","count":0}`))
	require.NoError(t, err)
	assert.False(t, found)
}

type flakyKV struct {
	memoryKV
	fail bool
}

func (f *flakyKV) PutAll(entries map[string][]byte) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.memoryKV.PutAll(entries)
}

func TestSectionPersisterRetriesFailedCommit(t *testing.T) {
	kv := &flakyKV{memoryKV: memoryKV{}}
	p := NewSectionPersister(kv, []string{"name", "count"})
	require.NoError(t, p.Persist([]byte(`{"name":"a","count":1}`)))

	kv.fail = true
	require.Error(t, p.Persist([]byte(`{"name":"b","count":2}`)))
	assert.Equal(t, `"a"`, string(kv.memoryKV["name"]))
	assert.Equal(t, `1`, string(kv.memoryKV["count"]))

	// nothing from the failed commit counts as written
	kv.fail = false
	require.NoError(t, p.Persist([]byte(`{"name":"b","count":2}`)))
	assert.Equal(t, `"b"`, string(kv.memoryKV["name"]))
	assert.Equal(t, `2`, string(kv.memoryKV["count"]))
}

type countingExecutor struct {
	calls int
}

func (e *countingExecutor) TransitionType() string { return "increment" }

func (e *countingExecutor) Execute(*StateUpdate) error {
	e.calls++
	return nil
}

func TestExecutorSubscriber(t *testing.T) {
	executor := &countingExecutor{}
	sub, err := NewExecutorSubscriber("counter", "test", []StateUpdateExecutor{executor}, nil)
	require.NoError(t, err)

	_, err = NewExecutorSubscriber("dup", "test", []StateUpdateExecutor{executor, executor}, nil)
	require.Error(t, err)

	db, _ := newTestDatabase(t, nil)
	db.publisher.AddSubscriber(sub)

	_, err = db.ProposeTransitions([]Transition{&incrementTransition{By: 1}})
	require.NoError(t, err)
	db.Restore()
	assert.Equal(t, 1, executor.calls)

	// other databases are ignored
	require.NoError(t, sub.ConsumeEvent(&StateUpdate{DatabaseName: "other", TransitionWrapper: &TransitionWrapper{Type: "increment"}}))
	assert.Equal(t, 1, executor.calls)
}
