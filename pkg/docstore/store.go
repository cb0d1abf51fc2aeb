package docstore

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
)

var ErrNotFound = errors.New("document not found")

type Operator string

const (
	OP_EQUAL            Operator = "=="
	OP_NOT_EQUAL        Operator = "!="
	OP_LESS             Operator = "<"
	OP_LESS_OR_EQUAL    Operator = "<="
	OP_GREATER          Operator = ">"
	OP_GREATER_OR_EQUAL Operator = ">="
	OP_IN               Operator = "in"
)

type SortDirection string

const (
	SORT_ASC  SortDirection = "asc"
	SORT_DESC SortDirection = "desc"
)

// Condition is one filter term. All conditions of a query must hold.
type Condition struct {
	Field    string
	Operator Operator
	Value    interface{}
}

func Where(field string, op Operator, value interface{}) Condition {
	return Condition{Field: field, Operator: op, Value: value}
}

type Query struct {
	Conditions []Condition
	OrderBy    string
	Direction  SortDirection
}

// Store is the backing document database. Implementations return ErrNotFound
// for absent documents and raw errors for everything else; the Gateway turns
// those into results.
//
// Field names containing dots address nested fields in Update, Upsert and
// Increment.
type Store interface {
	FindByID(ctx context.Context, collection string, id string) (bson.Raw, error)
	Find(ctx context.Context, collection string, q Query) ([]bson.Raw, error)
	// Insert stores doc under a new id unless doc carries an _id.
	Insert(ctx context.Context, collection string, doc bson.D) (string, error)
	// Replace writes doc at id, overwriting any existing document.
	Replace(ctx context.Context, collection string, id string, doc bson.D) error
	Update(ctx context.Context, collection string, id string, set bson.D) error
	// Upsert applies set to the first document matching filter, or inserts a
	// document built from the equality terms of filter, setOnInsert and set.
	Upsert(ctx context.Context, collection string, filter []Condition, set bson.D, setOnInsert bson.D) (bson.Raw, error)
	// Increment adds inc to numeric fields of the document at id and returns
	// the updated document.
	Increment(ctx context.Context, collection string, id string, inc bson.D, set bson.D, setOnInsert bson.D, upsert bool) (bson.Raw, error)
	// Watch calls fn with the current document (nil when absent) and again on
	// every change, until ctx is done.
	Watch(ctx context.Context, collection string, id string, fn func(doc bson.Raw)) error
}
