package document

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/ananduvinod04/hemohub/pkg/apperr"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore is an in-memory Store used by unit tests.
type MemoryStore[T any, PT Doc[T]] struct {
	mu    sync.RWMutex
	store map[primitive.ObjectID]T
	what  string
	now   func() time.Time
}

func NewMemoryStore[T any, PT Doc[T]](what string) *MemoryStore[T, PT] {
	return &MemoryStore[T, PT]{store: make(map[primitive.ObjectID]T), what: what, now: time.Now}
}

// SetClock replaces the clock used for createdAt/updatedAt stamps.
func (m *MemoryStore[T, PT]) SetClock(now func() time.Time) { m.now = now }

func toM(v interface{}) (bson.M, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out bson.M
	if err := bson.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// matches reports whether doc equals filter on every field. Filter values pass
// through bson first so typed strings compare equal to stored strings.
func matches(doc interface{}, filter bson.M) bool {
	if len(filter) == 0 {
		return true
	}
	want, err := toM(filter)
	if err != nil {
		return false
	}
	got, err := toM(doc)
	if err != nil {
		return false
	}
	for k, v := range want {
		if !reflect.DeepEqual(got[k], v) {
			return false
		}
	}
	return true
}

func (m *MemoryStore[T, PT]) Insert(ctx context.Context, doc *T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	PT(doc).Stamp(m.now().UTC())
	id := PT(doc).DocID()
	if _, ok := m.store[id]; ok {
		return apperr.Wrap(apperr.ErrConflict, "%s already exists", m.what)
	}
	m.store[id] = *doc
	return nil
}

func (m *MemoryStore[T, PT]) Get(ctx context.Context, id primitive.ObjectID) (*T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.store[id]
	if !ok {
		return nil, nil
	}
	return &doc, nil
}

func (m *MemoryStore[T, PT]) Find(ctx context.Context, filter bson.M) ([]T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []T{}
	for _, doc := range m.store {
		d := doc
		if matches(&d, filter) {
			out = append(out, d)
		}
	}
	// newest first; ObjectIDs break ties since they embed creation time
	sort.Slice(out, func(i, j int) bool {
		a, b := createdAt(&out[i]), createdAt(&out[j])
		if !a.Equal(b) {
			return a.After(b)
		}
		ai, bi := PT(&out[i]).DocID(), PT(&out[j]).DocID()
		return ai.Hex() > bi.Hex()
	})
	return out, nil
}

func createdAt(doc interface{}) time.Time {
	m, err := toM(doc)
	if err != nil {
		return time.Time{}
	}
	if dt, ok := m["createdAt"].(primitive.DateTime); ok {
		return dt.Time()
	}
	return time.Time{}
}

func (m *MemoryStore[T, PT]) Count(ctx context.Context, filter bson.M) (int64, error) {
	list, err := m.Find(ctx, filter)
	return int64(len(list)), err
}

func (m *MemoryStore[T, PT]) Replace(ctx context.Context, doc *T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := PT(doc).DocID()
	if _, ok := m.store[id]; !ok {
		return apperr.NotFound(m.what)
	}
	PT(doc).Stamp(m.now().UTC())
	m.store[id] = *doc
	return nil
}

func (m *MemoryStore[T, PT]) Delete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return false, nil
	}
	delete(m.store, id)
	return true, nil
}

func (m *MemoryStore[T, PT]) RestoreSnapshot(ctx context.Context, snapshot bson.M) error {
	raw, err := bson.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	var doc T
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := PT(&doc).DocID()
	if _, ok := m.store[id]; ok {
		return apperr.Wrap(apperr.ErrConflict, "cannot restore: %s id already in use", m.what)
	}
	m.store[id] = doc
	return nil
}

// Update calls fn on every document and stores the ones it reports changed.
// It returns how many changed.
func (m *MemoryStore[T, PT]) Update(fn func(doc PT) bool) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, doc := range m.store {
		d := doc
		if fn(PT(&d)) {
			m.store[id] = d
			n++
		}
	}
	return n
}
