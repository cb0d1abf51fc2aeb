package docstore

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

const (
	FIELD_ID         = "_id"
	FIELD_CREATED_AT = "created_at"
	FIELD_UPDATED_AT = "updated_at"
)

// Gateway is the façade the survey code talks to. Every call reports through
// the shared loading/error pair and returns a Result instead of an error, so
// store failures never escape.
type Gateway struct {
	store Store
	now   func() time.Time

	mu        sync.Mutex
	inFlight  int
	lastError string
}

type GatewayOption func(*Gateway)

// WithClock replaces the clock used for created_at/updated_at stamps.
func WithClock(now func() time.Time) GatewayOption {
	return func(g *Gateway) {
		g.now = now
	}
}

func NewGateway(store Store, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Now returns the gateway clock in UTC, truncated to the precision BSON keeps.
func (g *Gateway) Now() time.Time {
	return g.now().UTC().Truncate(time.Millisecond)
}

func (g *Gateway) Loading() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inFlight > 0
}

// LastError is the message of the most recent failure, cleared when a new
// call starts.
func (g *Gateway) LastError() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastError
}

func (g *Gateway) begin() {
	g.mu.Lock()
	g.inFlight++
	g.lastError = ""
	g.mu.Unlock()
}

func (g *Gateway) end(err error, op string, collection string) {
	g.mu.Lock()
	g.inFlight--
	if err != nil {
		g.lastError = err.Error()
	}
	g.mu.Unlock()

	if err != nil {
		slog.Error("document store error", slog.String("op", op), slog.String("collection", collection), slog.String("error", err.Error()))
	}
}

func (g *Gateway) GetDocument(ctx context.Context, collection string, id string) Result[Document] {
	g.begin()
	raw, err := g.store.FindByID(ctx, collection, id)
	if errors.Is(err, ErrNotFound) {
		g.end(nil, "get", collection)
		return NotFound[Document]()
	}
	if err != nil {
		g.end(err, "get", collection)
		return Failed(Document{}, err)
	}
	doc, err := NewDocument(raw)
	g.end(err, "get", collection)
	if err != nil {
		return Failed(Document{}, err)
	}
	return Ok(doc)
}

// GetDocuments returns the documents matching all conditions, optionally
// ordered by one field. An empty list is returned on no match and on failure.
func (g *Gateway) GetDocuments(ctx context.Context, collection string, conditions []Condition, orderByField string, direction SortDirection) Result[[]Document] {
	if direction == "" {
		direction = SORT_ASC
	}
	g.begin()
	raws, err := g.store.Find(ctx, collection, Query{
		Conditions: conditions,
		OrderBy:    orderByField,
		Direction:  direction,
	})
	if err != nil {
		g.end(err, "list", collection)
		return Failed([]Document{}, err)
	}

	docs := make([]Document, 0, len(raws))
	for _, raw := range raws {
		doc, err := NewDocument(raw)
		if err != nil {
			g.end(err, "list", collection)
			return Failed([]Document{}, err)
		}
		docs = append(docs, doc)
	}
	g.end(nil, "list", collection)
	return Ok(docs)
}

// CreateDocument stores data with fresh timestamps. With a customID the
// document at that id is overwritten entirely; otherwise the store picks an id.
func (g *Gateway) CreateDocument(ctx context.Context, collection string, data interface{}, customID string) Result[Document] {
	g.begin()
	doc, err := toD(data)
	if err != nil {
		g.end(err, "create", collection)
		return Failed(Document{}, err)
	}
	now := g.Now()
	doc = removeField(doc, FIELD_ID)
	doc = setField(doc, FIELD_CREATED_AT, now)
	doc = setField(doc, FIELD_UPDATED_AT, now)

	id := customID
	if customID != "" {
		doc = append(bson.D{{Key: FIELD_ID, Value: customID}}, doc...)
		err = g.store.Replace(ctx, collection, customID, doc)
	} else {
		id, err = g.store.Insert(ctx, collection, doc)
		doc = append(bson.D{{Key: FIELD_ID, Value: id}}, doc...)
	}
	if err != nil {
		g.end(err, "create", collection)
		return Failed(Document{}, err)
	}

	raw, err := bson.Marshal(doc)
	g.end(err, "create", collection)
	if err != nil {
		return Failed(Document{}, err)
	}
	return Ok(Document{ID: id, Raw: raw})
}

// UpdateDocument merges fields into the document and refreshes updated_at.
// The value is false on any failure, including a missing document.
func (g *Gateway) UpdateDocument(ctx context.Context, collection string, id string, fields interface{}) Result[bool] {
	g.begin()
	set, err := toD(fields)
	if err != nil {
		g.end(err, "update", collection)
		return Failed(false, err)
	}
	set = removeField(set, FIELD_ID)
	set = removeField(set, FIELD_CREATED_AT)
	set = setField(set, FIELD_UPDATED_AT, g.Now())

	err = g.store.Update(ctx, collection, id, set)
	g.end(err, "update", collection)
	if err != nil {
		return Failed(false, err)
	}
	return Ok(true)
}

// UpsertDocument atomically updates the single document matching filter or
// creates it. set is applied in both cases, setOnInsert only on creation.
func (g *Gateway) UpsertDocument(ctx context.Context, collection string, filter []Condition, set interface{}, setOnInsert interface{}) Result[Document] {
	g.begin()
	setD, err := toD(set)
	if err != nil {
		g.end(err, "upsert", collection)
		return Failed(Document{}, err)
	}
	insertD, err := toD(setOnInsert)
	if err != nil {
		g.end(err, "upsert", collection)
		return Failed(Document{}, err)
	}
	now := g.Now()
	setD = setField(setD, FIELD_UPDATED_AT, now)
	insertD = removeField(insertD, FIELD_UPDATED_AT)
	insertD = setField(insertD, FIELD_CREATED_AT, now)

	raw, err := g.store.Upsert(ctx, collection, filter, setD, insertD)
	if err != nil {
		g.end(err, "upsert", collection)
		return Failed(Document{}, err)
	}
	doc, err := NewDocument(raw)
	g.end(err, "upsert", collection)
	if err != nil {
		return Failed(Document{}, err)
	}
	return Ok(doc)
}

// IncrementDocument atomically adds inc to the numeric fields of the document
// at id. Without upsert a missing document yields a not-found result.
func (g *Gateway) IncrementDocument(ctx context.Context, collection string, id string, inc bson.D, setOnInsert interface{}, upsert bool) Result[Document] {
	g.begin()
	insertD, err := toD(setOnInsert)
	if err != nil {
		g.end(err, "increment", collection)
		return Failed(Document{}, err)
	}
	now := g.Now()
	set := bson.D{{Key: FIELD_UPDATED_AT, Value: now}}
	insertD = removeField(insertD, FIELD_UPDATED_AT)
	insertD = setField(insertD, FIELD_CREATED_AT, now)

	raw, err := g.store.Increment(ctx, collection, id, inc, set, insertD, upsert)
	if errors.Is(err, ErrNotFound) {
		g.end(nil, "increment", collection)
		return NotFound[Document]()
	}
	if err != nil {
		g.end(err, "increment", collection)
		return Failed(Document{}, err)
	}
	doc, err := NewDocument(raw)
	g.end(err, "increment", collection)
	if err != nil {
		return Failed(Document{}, err)
	}
	return Ok(doc)
}

// SubscribeToDocument delivers the document at id, and every later version of
// it, to onChange (nil when absent). Errors go to onError. The returned
// function stops the subscription.
func (g *Gateway) SubscribeToDocument(ctx context.Context, collection string, id string, onChange func(doc *Document), onError func(err error)) (unsubscribe func()) {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		err := g.store.Watch(ctx, collection, id, func(raw bson.Raw) {
			if raw == nil {
				onChange(nil)
				return
			}
			doc, err := NewDocument(raw)
			if err != nil {
				g.reportSubscriptionError(collection, err, onError)
				return
			}
			onChange(&doc)
		})
		if err != nil && ctx.Err() == nil {
			g.reportSubscriptionError(collection, err, onError)
		}
	}()
	return cancel
}

func (g *Gateway) reportSubscriptionError(collection string, err error, onError func(error)) {
	g.mu.Lock()
	g.lastError = err.Error()
	g.mu.Unlock()
	slog.Error("document subscription error", slog.String("collection", collection), slog.String("error", err.Error()))
	if onError != nil {
		onError(err)
	}
}

func toD(data interface{}) (bson.D, error) {
	if data == nil {
		return bson.D{}, nil
	}
	if d, ok := data.(bson.D); ok {
		return append(bson.D{}, d...), nil
	}
	raw, err := bson.Marshal(data)
	if err != nil {
		return nil, err
	}
	d := bson.D{}
	if err := bson.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	return d, nil
}

func setField(d bson.D, key string, value interface{}) bson.D {
	for i := range d {
		if d[i].Key == key {
			d[i].Value = value
			return d
		}
	}
	return append(d, bson.E{Key: key, Value: value})
}

func removeField(d bson.D, key string) bson.D {
	out := d[:0]
	for _, e := range d {
		if e.Key != key {
			out = append(out, e)
		}
	}
	return out
}
