package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Memory is an in-memory Store. It is the system of record when the service
// runs without a database and the backing store for the core tests.
type Memory struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
	docs  map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		locks: make(map[string]*sync.Mutex),
		docs:  make(map[string][]byte),
	}
}

func (m *Memory) lockFor(key string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[key]
	if !ok {
		l = &sync.Mutex{}
		m.locks[key] = l
	}
	return l
}

// Get decodes the document under key into v.
func (m *Memory) Get(ctx context.Context, key string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l := m.lockFor(key)
	l.Lock()
	defer l.Unlock()

	doc, ok := m.docs[key]
	if !ok {
		return nil
	}
	return json.Unmarshal(doc, v)
}

// Update locks the keys in sorted order (stable order prevents deadlock
// between overlapping Update calls), runs fn, and applies staged writes only
// if fn succeeds. The key locks are held through the apply, so no reader
// sees a partial commit.
func (m *Memory) Update(ctx context.Context, keys []string, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ordered := append([]string(nil), keys...)
	sort.Strings(ordered)
	for _, key := range ordered {
		l := m.lockFor(key)
		l.Lock()
		defer l.Unlock()
	}

	tx := &memTx{store: m, allowed: make(map[string]bool, len(keys)), staged: make(map[string][]byte)}
	for _, key := range keys {
		tx.allowed[key] = true
	}

	if err := fn(tx); err != nil {
		return err
	}
	for key, doc := range tx.staged {
		m.docs[key] = doc
	}
	return nil
}

// Close implements Store.
func (m *Memory) Close() error { return nil }

type memTx struct {
	store   *Memory
	allowed map[string]bool
	staged  map[string][]byte
}

func (t *memTx) Get(key string, v any) error {
	if !t.allowed[key] {
		return fmt.Errorf("store: key %q not part of this transaction", key)
	}
	doc, ok := t.staged[key]
	if !ok {
		doc, ok = t.store.docs[key]
	}
	if !ok {
		return nil
	}
	return json.Unmarshal(doc, v)
}

func (t *memTx) Put(key string, v any) error {
	if !t.allowed[key] {
		return fmt.Errorf("store: key %q not part of this transaction", key)
	}
	doc, err := json.Marshal(v)
	if err != nil {
		return err
	}
	t.staged[key] = doc
	return nil
}
