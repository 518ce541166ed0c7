package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"supperclub/internal/domain"
)

const defaultMaxAttempts = 25

type memDoc struct {
	data    []byte
	version int64
	seq     int64
}

// MemoryStore is an in-process store with optimistic transactions: every
// document a transaction reads is version-checked at commit, and the
// transaction function is rerun when another commit got there first.
type MemoryStore struct {
	mu          sync.RWMutex
	docs        map[docKey]memDoc
	seq         int64
	maxAttempts int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:        make(map[docKey]memDoc),
		maxAttempts: defaultMaxAttempts,
	}
}

// WithMaxAttempts bounds how many times a conflicting transaction is retried.
func (s *MemoryStore) WithMaxAttempts(n int) *MemoryStore {
	if n > 0 {
		s.maxAttempts = n
	}
	return s
}

func (s *MemoryStore) Get(_ context.Context, collection, key string, dst any) error {
	k := docKey{collection, key}
	s.mu.RLock()
	doc, ok := s.docs[k]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%s: %w", k, domain.ErrDocNotFound)
	}
	return decodeDoc(doc.data, dst)
}

func (s *MemoryStore) List(_ context.Context, collection string) ([]json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found []memDoc
	for k, doc := range s.docs {
		if k.collection == collection {
			found = append(found, doc)
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].seq < found[j].seq })

	out := make([]json.RawMessage, 0, len(found))
	for _, doc := range found {
		out = append(out, json.RawMessage(doc.data))
	}
	return out, nil
}

func (s *MemoryStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx domain.Txn) error) error {
	ctx = context.WithoutCancel(ctx)

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		txn := &memoryTxn{store: s, reads: make(map[docKey]int64), writes: newWriteSet()}
		if err := fn(ctx, txn); err != nil {
			return err
		}

		err := s.commit(txn)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrCommitConflict) {
			return err
		}
	}
	return fmt.Errorf("gave up after %d attempts: %w", s.maxAttempts, domain.ErrCommitConflict)
}

func (s *MemoryStore) commit(txn *memoryTxn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, seen := range txn.reads {
		if s.docs[k].version != seen {
			return fmt.Errorf("%s changed: %w", k, domain.ErrCommitConflict)
		}
	}

	for _, k := range txn.writes.order {
		pw := txn.writes.writes[k]
		if pw.deleted {
			delete(s.docs, k)
			continue
		}
		current, exists := s.docs[k]
		seq := current.seq
		if !exists {
			s.seq++
			seq = s.seq
		}
		s.docs[k] = memDoc{data: pw.data, version: current.version + 1, seq: seq}
	}
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

type memoryTxn struct {
	store  *MemoryStore
	reads  map[docKey]int64 // version at first read, 0 when absent
	writes *writeSet
}

func (t *memoryTxn) load(k docKey) ([]byte, bool) {
	if pw, ok := t.writes.get(k); ok {
		return pw.data, !pw.deleted
	}

	t.store.mu.RLock()
	doc, ok := t.store.docs[k]
	t.store.mu.RUnlock()

	if _, seen := t.reads[k]; !seen {
		t.reads[k] = doc.version
	}
	return doc.data, ok
}

func (t *memoryTxn) Get(collection, key string, dst any) error {
	k := docKey{collection, key}
	data, ok := t.load(k)
	if !ok {
		return fmt.Errorf("%s: %w", k, domain.ErrDocNotFound)
	}
	return decodeDoc(data, dst)
}

func (t *memoryTxn) Create(collection, key string, doc any) error {
	k := docKey{collection, key}
	if _, exists := t.load(k); exists {
		return fmt.Errorf("%s: %w", k, domain.ErrDocExists)
	}
	return t.Set(collection, key, doc)
}

func (t *memoryTxn) Set(collection, key string, doc any) error {
	data, err := encodeDoc(doc)
	if err != nil {
		return err
	}
	t.writes.put(docKey{collection, key}, pendingWrite{data: data})
	return nil
}

func (t *memoryTxn) Update(collection, key string, fields map[string]any) error {
	k := docKey{collection, key}
	data, ok := t.load(k)
	if !ok {
		return fmt.Errorf("%s: %w", k, domain.ErrDocNotFound)
	}
	merged, err := mergeFields(data, fields)
	if err != nil {
		return err
	}
	t.writes.put(k, pendingWrite{data: merged})
	return nil
}

func (t *memoryTxn) Increment(collection, key, field string, delta int64) error {
	k := docKey{collection, key}
	data, ok := t.load(k)
	if !ok {
		return fmt.Errorf("%s: %w", k, domain.ErrDocNotFound)
	}
	updated, err := incrementField(data, field, delta)
	if err != nil {
		return err
	}
	t.writes.put(k, pendingWrite{data: updated})
	return nil
}

func (t *memoryTxn) Delete(collection, key string) error {
	t.writes.put(docKey{collection, key}, pendingWrite{deleted: true})
	return nil
}
