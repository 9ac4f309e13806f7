package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"telegram-morning-bot/internal/model"
	"telegram-morning-bot/internal/repository"
)

// memRecordStore is an in-memory RecordStore. Records round-trip
// through JSON so tests exercise the same serialization the Postgres
// store uses, and callers never share pointers with the store.
type memRecordStore struct {
	mu      sync.Mutex
	recs    map[string][]byte
	failing bool
}

func newMemRecordStore() *memRecordStore {
	return &memRecordStore{recs: make(map[string][]byte)}
}

var errStoreDown = errors.New("store unavailable")

func (m *memRecordStore) Load(_ context.Context, groupID string) (*model.GroupRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return nil, errStoreDown
	}
	raw, ok := m.recs[groupID]
	if !ok {
		return nil, repository.ErrRecordNotFound
	}
	rec := model.NewGroupRecord()
	if err := json.Unmarshal(raw, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (m *memRecordStore) Save(_ context.Context, groupID string, rec *model.GroupRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return errStoreDown
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	m.recs[groupID] = raw
	return nil
}

func (m *memRecordStore) GroupIDs(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return nil, errStoreDown
	}
	ids := make([]string, 0, len(m.recs))
	for id := range m.recs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// memConfigStore is an in-memory ConfigStore with the same default-key
// fallback as the Postgres store.
type memConfigStore struct {
	mu   sync.Mutex
	cfgs map[string]*model.GroupConfig
}

func newMemConfigStore(def *model.GroupConfig) *memConfigStore {
	m := &memConfigStore{cfgs: make(map[string]*model.GroupConfig)}
	if def != nil {
		m.cfgs[model.DefaultGroupKey] = copyConfig(def)
	}
	return m
}

func copyConfig(cfg *model.GroupConfig) *model.GroupConfig {
	c := *cfg
	return &c
}

func (m *memConfigStore) Load(_ context.Context, groupID string) (*model.GroupConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.cfgs[groupID]
	if !ok {
		return nil, repository.ErrConfigNotFound
	}
	return copyConfig(cfg), nil
}

func (m *memConfigStore) Effective(_ context.Context, groupID string) (*model.GroupConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cfg, ok := m.cfgs[groupID]; ok {
		return copyConfig(cfg), nil
	}
	if cfg, ok := m.cfgs[model.DefaultGroupKey]; ok {
		return copyConfig(cfg), nil
	}
	return nil, repository.ErrConfigNotFound
}

func (m *memConfigStore) Save(_ context.Context, groupID string, cfg *model.GroupConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfgs[groupID] = copyConfig(cfg)
	return nil
}

// memJobRunStore is an in-memory JobRunStore.
type memJobRunStore struct {
	mu    sync.Mutex
	runs  map[string]time.Time
	marks int
}

func newMemJobRunStore() *memJobRunStore {
	return &memJobRunStore{runs: make(map[string]time.Time)}
}

func (m *memJobRunStore) LastRun(_ context.Context, groupID, kind string) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runs[groupID+"/"+kind], nil
}

func (m *memJobRunStore) MarkRun(_ context.Context, groupID, kind string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[groupID+"/"+kind] = at
	m.marks++
	return nil
}

// defaultTestConfig mirrors the shipped default rule set: morning
// window 6-12, night window 21-6, good_sleep on at 6h, the rest off.
func defaultTestConfig() *model.GroupConfig {
	return &model.GroupConfig{
		Morning: model.MorningConfig{
			Window:     model.WindowRule{Enable: true, EarlyHour: 6, LateHour: 12},
			MultiGetUp: model.IntervalRule{Enable: false, Interval: 6},
			SuperGetUp: model.IntervalRule{Enable: false, Interval: 3},
		},
		Night: model.NightConfig{
			Window:    model.WindowRule{Enable: true, EarlyHour: 21, LateHour: 6},
			GoodSleep: model.IntervalRule{Enable: true, Interval: 6},
			DeepSleep: model.IntervalRule{Enable: false, Interval: 3},
		},
	}
}
