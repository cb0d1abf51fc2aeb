package docstore

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

type Status int

const (
	StatusOK Status = iota
	StatusNotFound
	StatusFailed
)

// Result is the outcome of a gateway call. Failed results carry the error and
// a safe default Value; not-found is not a failure.
type Result[T any] struct {
	Value  T
	Status Status
	Err    error
}

func Ok[T any](v T) Result[T] {
	return Result[T]{Value: v, Status: StatusOK}
}

func NotFound[T any]() Result[T] {
	return Result[T]{Status: StatusNotFound}
}

func Failed[T any](fallback T, err error) Result[T] {
	return Result[T]{Value: fallback, Status: StatusFailed, Err: err}
}

func (r Result[T]) OK() bool { return r.Status == StatusOK }
func (r Result[T]) NotFound() bool { return r.Status == StatusNotFound }
func (r Result[T]) Failed() bool { return r.Status == StatusFailed }

func (r Result[T]) Message() string {
	switch r.Status {
	case StatusNotFound:
		return ErrNotFound.Error()
	case StatusFailed:
		if r.Err != nil {
			return r.Err.Error()
		}
		return "an error occurred"
	}
	return ""
}

// Document is a stored document with its id.
type Document struct {
	ID  string
	Raw bson.Raw
}

func NewDocument(raw bson.Raw) (Document, error) {
	idVal, err := raw.LookupErr("_id")
	if err != nil {
		return Document{}, fmt.Errorf("document without _id: %w", err)
	}
	if s, ok := idVal.StringValueOK(); ok {
		return Document{ID: s, Raw: raw}, nil
	}
	if oid, ok := idVal.ObjectIDOK(); ok {
		return Document{ID: oid.Hex(), Raw: raw}, nil
	}
	return Document{}, fmt.Errorf("unsupported _id type %s", idVal.Type)
}

func (d Document) Decode(v interface{}) error {
	return bson.Unmarshal(d.Raw, v)
}

// Lookup returns the value at the given (nested) key, or an empty value.
func (d Document) Lookup(key ...string) bson.RawValue {
	v, err := d.Raw.LookupErr(key...)
	if err != nil {
		return bson.RawValue{}
	}
	return v
}

// Decode converts a document result into a typed result.
func Decode[T any](r Result[Document]) Result[T] {
	var v T
	switch r.Status {
	case StatusNotFound:
		return NotFound[T]()
	case StatusFailed:
		return Failed(v, r.Err)
	}
	if err := r.Value.Decode(&v); err != nil {
		return Failed(v, err)
	}
	return Ok(v)
}

// DecodeAll converts a list result into a typed list; the list is never nil.
func DecodeAll[T any](r Result[[]Document]) Result[[]T] {
	out := []T{}
	if r.Status == StatusFailed {
		return Failed(out, r.Err)
	}
	for _, doc := range r.Value {
		var v T
		if err := doc.Decode(&v); err != nil {
			return Failed([]T{}, err)
		}
		out = append(out, v)
	}
	return Ok(out)
}
