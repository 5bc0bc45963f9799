package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Record is implemented by the pointer type of every stored entity.
type Record interface {
	GetID() string
	SetID(id string)
	Stamp(created bool, now time.Time)
}

type recordPtr[T any] interface {
	*T
	Record
}

// Cloner is implemented by records holding slices, maps or pointers, so that
// callers never alias stored state.
type Cloner[T any] interface {
	Clone() T
}

func clone[T any](v T) T {
	if c, ok := any(v).(Cloner[T]); ok {
		return c.Clone()
	}
	return v
}

type uniqueIndex[T any] struct {
	name string
	key  func(T) string
	ids  map[string]string // key -> record id
}

// Collection is an ordered, in-memory set of records of one entity type.
type Collection[T any, P recordPtr[T]] struct {
	name    string
	mu      sync.RWMutex
	order   []string
	records map[string]T
	indexes []*uniqueIndex[T]
	now     func() time.Time
	newID   func() string
}

// NewCollection creates an empty collection.
func NewCollection[T any, P recordPtr[T]](name string) *Collection[T, P] {
	return &Collection[T, P]{
		name:    name,
		records: make(map[string]T),
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// WithUnique adds a unique index. Records whose key is empty are not indexed.
// Must be called before the collection is used.
func (c *Collection[T, P]) WithUnique(name string, key func(T) string) *Collection[T, P] {
	c.indexes = append(c.indexes, &uniqueIndex[T]{name: name, key: key, ids: make(map[string]string)})
	return c
}

func (c *Collection[T, P]) Name() string {
	return c.name
}

// FindAll returns every record in insertion order.
func (c *Collection[T, P]) FindAll() []T {
	return c.Find(nil)
}

// Find returns the records matching pred in insertion order. A nil pred matches all.
func (c *Collection[T, P]) Find(pred func(T) bool) []T {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]T, 0, len(c.order))
	for _, id := range c.order {
		rec := c.records[id]
		if pred == nil || pred(rec) {
			result = append(result, clone(rec))
		}
	}
	return result
}

// FindOne returns the first record matching pred.
func (c *Collection[T, P]) FindOne(pred func(T) bool) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, id := range c.order {
		if rec := c.records[id]; pred(rec) {
			return clone(rec), true
		}
	}
	var zero T
	return zero, false
}

// FindByUnique looks a record up through a unique index.
func (c *Collection[T, P]) FindByUnique(index, key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var zero T
	for _, idx := range c.indexes {
		if idx.name != index {
			continue
		}
		id, ok := idx.ids[key]
		if !ok {
			return zero, false
		}
		return clone(c.records[id]), true
	}
	return zero, false
}

func (c *Collection[T, P]) FindByID(id string) (T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rec, ok := c.records[id]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s %s: %w", c.name, id, ErrNotFound)
	}
	return clone(rec), nil
}

// Count returns the number of records matching pred. A nil pred counts all.
func (c *Collection[T, P]) Count(pred func(T) bool) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if pred == nil {
		return len(c.order)
	}
	n := 0
	for _, id := range c.order {
		if pred(c.records[id]) {
			n++
		}
	}
	return n
}

// Insert stores rec, assigning an id if it has none and stamping timestamps.
func (c *Collection[T, P]) Insert(rec T) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec = clone(rec)
	p := P(&rec)
	if p.GetID() == "" {
		p.SetID(c.newID())
	}
	id := p.GetID()
	var zero T
	if _, exists := c.records[id]; exists {
		return zero, fmt.Errorf("%s %s: %w", c.name, id, ErrDuplicate)
	}
	if err := c.checkUnique(id, rec); err != nil {
		return zero, err
	}
	p.Stamp(true, c.now())

	c.records[id] = rec
	c.order = append(c.order, id)
	c.index(id, rec)
	return clone(rec), nil
}

// Update applies mutate to a copy of the record and commits it when mutate
// returns nil. The id is preserved whatever mutate does.
func (c *Collection[T, P]) Update(id string, mutate func(*T) error) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	current, ok := c.records[id]
	if !ok {
		return zero, fmt.Errorf("%s %s: %w", c.name, id, ErrNotFound)
	}

	next := clone(current)
	if err := mutate(&next); err != nil {
		return zero, err
	}
	p := P(&next)
	p.SetID(id)
	if err := c.checkUnique(id, next); err != nil {
		return zero, err
	}
	p.Stamp(false, c.now())

	c.unindex(current)
	c.records[id] = next
	c.index(id, next)
	return clone(next), nil
}

// Delete removes the record and returns it.
func (c *Collection[T, P]) Delete(id string) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.records[id]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s %s: %w", c.name, id, ErrNotFound)
	}
	delete(c.records, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.unindex(rec)
	return rec, nil
}

// DeleteWhere removes every record matching pred and returns how many were removed.
func (c *Collection[T, P]) DeleteWhere(pred func(T) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.order[:0]
	removed := 0
	for _, id := range c.order {
		rec := c.records[id]
		if pred(rec) {
			delete(c.records, id)
			c.unindex(rec)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	c.order = kept
	return removed
}

func (c *Collection[T, P]) checkUnique(id string, rec T) error {
	for _, idx := range c.indexes {
		key := idx.key(rec)
		if key == "" {
			continue
		}
		if owner, taken := idx.ids[key]; taken && owner != id {
			return fmt.Errorf("%s.%s %q: %w", c.name, idx.name, key, ErrDuplicate)
		}
	}
	return nil
}

func (c *Collection[T, P]) index(id string, rec T) {
	for _, idx := range c.indexes {
		if key := idx.key(rec); key != "" {
			idx.ids[key] = id
		}
	}
}

func (c *Collection[T, P]) unindex(rec T) {
	for _, idx := range c.indexes {
		if key := idx.key(rec); key != "" {
			delete(idx.ids, key)
		}
	}
}
