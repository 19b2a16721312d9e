package fakes

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Activ8-AI/maosec/internal/store"
)

// FakeStore is a thread-safe in-memory store.Store for tests above the
// backend layer.
type FakeStore struct {
	mu sync.Mutex

	StoreName string
	StoreType string

	// Values maps canonical IDs to their payloads.
	Values map[string][]byte
	// VersionCounts tracks how many versions each ID has received.
	VersionCounts map[string]int
	// LabelSets records the labels passed on first Upsert per ID.
	LabelSets map[string]map[string]string
	// Errors maps IDs (or "list", "validate") to errors to return.
	Errors map[string]error

	// UpsertCalls records the order of Upsert invocations.
	UpsertCalls []string
	// DeleteCalls records the order of Delete invocations.
	DeleteCalls []string
}

// NewFakeStore creates an empty fake store.
func NewFakeStore(name string) *FakeStore {
	return &FakeStore{
		StoreName:     name,
		StoreType:     "fake",
		Values:        make(map[string][]byte),
		VersionCounts: make(map[string]int),
		LabelSets:     make(map[string]map[string]string),
		Errors:        make(map[string]error),
	}
}

// Seed stores a value directly, bypassing call recording.
func (f *FakeStore) Seed(id, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Values[id] = []byte(value)
	f.VersionCounts[id]++
}

// AddError configures an error for an ID, or "list"/"validate".
func (f *FakeStore) AddError(id string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Errors[id] = err
}

func (f *FakeStore) Name() string { return f.StoreName }
func (f *FakeStore) Type() string { return f.StoreType }

func (f *FakeStore) Get(ctx context.Context, id, version string) (store.Value, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, exists := f.Errors[id]; exists {
		return store.Value{}, err
	}
	data, exists := f.Values[id]
	if !exists {
		return store.Value{}, store.NotFoundError{Store: f.StoreName, ID: id}
	}
	return store.Value{
		Data:    append([]byte(nil), data...),
		Version: fmt.Sprintf("%d", f.VersionCounts[id]),
	}, nil
}

func (f *FakeStore) Describe(ctx context.Context, id string) (store.Info, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, exists := f.Errors[id]; exists {
		return store.Info{}, err
	}
	if _, exists := f.Values[id]; !exists {
		return store.Info{Exists: false}, nil
	}
	return store.Info{
		Exists:    true,
		ID:        id,
		Version:   fmt.Sprintf("%d", f.VersionCounts[id]),
		UpdatedAt: time.Now(),
		Labels:    f.LabelSets[id],
	}, nil
}

func (f *FakeStore) List(ctx context.Context, prefix string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, exists := f.Errors["list"]; exists {
		return nil, err
	}
	var ids []string
	for id := range f.Values {
		if prefix == "" || strings.HasPrefix(id, prefix) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *FakeStore) Upsert(ctx context.Context, id string, value []byte, labels map[string]string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, exists := f.Errors[id]; exists {
		return "", err
	}
	if _, exists := f.Values[id]; !exists {
		f.LabelSets[id] = labels
	}
	f.Values[id] = append([]byte(nil), value...)
	f.VersionCounts[id]++
	f.UpsertCalls = append(f.UpsertCalls, id)
	return fmt.Sprintf("%d", f.VersionCounts[id]), nil
}

func (f *FakeStore) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, exists := f.Errors[id]; exists {
		return err
	}
	if _, exists := f.Values[id]; !exists {
		return store.NotFoundError{Store: f.StoreName, ID: id}
	}
	delete(f.Values, id)
	f.DeleteCalls = append(f.DeleteCalls, id)
	return nil
}

func (f *FakeStore) Validate(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, exists := f.Errors["validate"]; exists {
		return err
	}
	return nil
}
