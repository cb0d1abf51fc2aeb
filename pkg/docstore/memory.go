package docstore

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

// MemoryStore is an in-process Store. It backs tests and the local
// development mode of the API.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
	watchers    map[string]map[*memWatcher]struct{}
	newID       func() string
}

type memCollection struct {
	docs  map[string]bson.Raw
	order []string
}

type memWatcher struct {
	mu     sync.Mutex
	latest bson.Raw
	signal chan struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: map[string]*memCollection{},
		watchers:    map[string]map[*memWatcher]struct{}{},
		newID:       uuid.NewString,
	}
}

func (s *MemoryStore) collection(name string) *memCollection {
	c, ok := s.collections[name]
	if !ok {
		c = &memCollection{docs: map[string]bson.Raw{}}
		s.collections[name] = c
	}
	return c
}

func (s *MemoryStore) FindByID(ctx context.Context, collection string, id string) (bson.Raw, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, ok := s.collection(collection).docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRaw(raw), nil
}

func (s *MemoryStore) Find(ctx context.Context, collection string, q Query) ([]bson.Raw, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	c := s.collection(collection)
	type match struct {
		raw bson.Raw
		doc bson.D
	}
	matches := []match{}
	for _, id := range c.order {
		raw := c.docs[id]
		doc, err := rawToD(raw)
		if err != nil {
			s.mu.RUnlock()
			return nil, err
		}
		ok, err := matchesAll(doc, q.Conditions)
		if err != nil {
			s.mu.RUnlock()
			return nil, err
		}
		if ok {
			matches = append(matches, match{raw: cloneRaw(raw), doc: doc})
		}
	}
	s.mu.RUnlock()

	if q.OrderBy != "" {
		sort.SliceStable(matches, func(i, j int) bool {
			a, _ := getPath(matches[i].doc, q.OrderBy)
			b, _ := getPath(matches[j].doc, q.OrderBy)
			cmp, ok := compareValues(a, b)
			if !ok {
				return false
			}
			if q.Direction == SORT_DESC {
				return cmp > 0
			}
			return cmp < 0
		})
	}

	out := make([]bson.Raw, len(matches))
	for i, m := range matches {
		out[i] = m.raw
	}
	return out, nil
}

func (s *MemoryStore) Insert(ctx context.Context, collection string, doc bson.D) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id, ok := idOf(doc)
	if !ok {
		id = s.newID()
		doc = append(bson.D{{Key: FIELD_ID, Value: id}}, doc...)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.collection(collection).docs[id]; exists {
		return "", errDuplicateID(id)
	}
	return id, s.put(collection, id, doc)
}

func (s *MemoryStore) Replace(ctx context.Context, collection string, id string, doc bson.D) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc = append(bson.D{{Key: FIELD_ID, Value: id}}, removeField(append(bson.D{}, doc...), FIELD_ID)...)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(collection, id, doc)
}

func (s *MemoryStore) Update(ctx context.Context, collection string, id string, set bson.D) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok := s.collection(collection).docs[id]
	if !ok {
		return ErrNotFound
	}
	doc, err := rawToD(raw)
	if err != nil {
		return err
	}
	for _, e := range set {
		doc = setPath(doc, e.Key, e.Value)
	}
	return s.put(collection, id, doc)
}

func (s *MemoryStore) Upsert(ctx context.Context, collection string, filter []Condition, set bson.D, setOnInsert bson.D) (bson.Raw, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collection(collection)
	for _, id := range c.order {
		doc, err := rawToD(c.docs[id])
		if err != nil {
			return nil, err
		}
		ok, err := matchesAll(doc, filter)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		for _, e := range set {
			doc = setPath(doc, e.Key, e.Value)
		}
		if err := s.put(collection, id, doc); err != nil {
			return nil, err
		}
		return cloneRaw(c.docs[id]), nil
	}

	doc := bson.D{}
	for _, cond := range filter {
		if cond.Operator == OP_EQUAL {
			doc = setPath(doc, cond.Field, cond.Value)
		}
	}
	for _, e := range setOnInsert {
		doc = setPath(doc, e.Key, e.Value)
	}
	for _, e := range set {
		doc = setPath(doc, e.Key, e.Value)
	}
	id, ok := idOf(doc)
	if !ok {
		id = s.newID()
	}
	doc = append(bson.D{{Key: FIELD_ID, Value: id}}, removeField(doc, FIELD_ID)...)
	if err := s.put(collection, id, doc); err != nil {
		return nil, err
	}
	return cloneRaw(c.docs[id]), nil
}

func (s *MemoryStore) Increment(ctx context.Context, collection string, id string, inc bson.D, set bson.D, setOnInsert bson.D, upsert bool) (bson.Raw, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collection(collection)
	var doc bson.D
	if raw, ok := c.docs[id]; ok {
		d, err := rawToD(raw)
		if err != nil {
			return nil, err
		}
		doc = d
	} else {
		if !upsert {
			return nil, ErrNotFound
		}
		doc = bson.D{{Key: FIELD_ID, Value: id}}
		for _, e := range setOnInsert {
			doc = setPath(doc, e.Key, e.Value)
		}
	}

	for _, e := range inc {
		current, _ := getPath(doc, e.Key)
		sum, err := addNumbers(current, e.Value)
		if err != nil {
			return nil, err
		}
		doc = setPath(doc, e.Key, sum)
	}
	for _, e := range set {
		doc = setPath(doc, e.Key, e.Value)
	}
	if err := s.put(collection, id, doc); err != nil {
		return nil, err
	}
	return cloneRaw(c.docs[id]), nil
}

func (s *MemoryStore) Watch(ctx context.Context, collection string, id string, fn func(doc bson.Raw)) error {
	w := &memWatcher{signal: make(chan struct{}, 1)}
	key := collection + "/" + id

	s.mu.Lock()
	if s.watchers[key] == nil {
		s.watchers[key] = map[*memWatcher]struct{}{}
	}
	s.watchers[key][w] = struct{}{}
	current := cloneRaw(s.collection(collection).docs[id])
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.watchers[key], w)
		if len(s.watchers[key]) == 0 {
			delete(s.watchers, key)
		}
		s.mu.Unlock()
	}()

	fn(current)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.signal:
			w.mu.Lock()
			latest := w.latest
			w.mu.Unlock()
			fn(latest)
		}
	}
}

// put stores doc and notifies watchers; callers hold s.mu.
func (s *MemoryStore) put(collection string, id string, doc bson.D) error {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return err
	}
	c := s.collection(collection)
	if _, exists := c.docs[id]; !exists {
		c.order = append(c.order, id)
	}
	c.docs[id] = raw

	for w := range s.watchers[collection+"/"+id] {
		w.mu.Lock()
		w.latest = cloneRaw(raw)
		w.mu.Unlock()
		select {
		case w.signal <- struct{}{}:
		default:
		}
	}
	return nil
}

func idOf(doc bson.D) (string, bool) {
	for _, e := range doc {
		if e.Key == FIELD_ID {
			if s, ok := e.Value.(string); ok && s != "" {
				return s, true
			}
		}
	}
	return "", false
}

func cloneRaw(raw bson.Raw) bson.Raw {
	if raw == nil {
		return nil
	}
	return append(bson.Raw{}, raw...)
}

func rawToD(raw bson.Raw) (bson.D, error) {
	d := bson.D{}
	if err := bson.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	return d, nil
}
