package docstore

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func errDuplicateID(id string) error {
	return fmt.Errorf("duplicate document id %q", id)
}

func matchesAll(doc bson.D, conditions []Condition) (bool, error) {
	for _, c := range conditions {
		ok, err := matches(doc, c)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func matches(doc bson.D, c Condition) (bool, error) {
	value, present := getPath(doc, c.Field)

	switch c.Operator {
	case OP_EQUAL:
		return present && equalValues(value, c.Value), nil
	case OP_NOT_EQUAL:
		return !present || !equalValues(value, c.Value), nil
	case OP_IN:
		candidates := reflect.ValueOf(c.Value)
		if candidates.Kind() != reflect.Slice && candidates.Kind() != reflect.Array {
			return false, fmt.Errorf("operator %q needs a list value", c.Operator)
		}
		if !present {
			return false, nil
		}
		for i := 0; i < candidates.Len(); i++ {
			if equalValues(value, candidates.Index(i).Interface()) {
				return true, nil
			}
		}
		return false, nil
	case OP_LESS, OP_LESS_OR_EQUAL, OP_GREATER, OP_GREATER_OR_EQUAL:
		if !present {
			return false, nil
		}
		cmp, ok := compareValues(value, c.Value)
		if !ok {
			return false, nil
		}
		switch c.Operator {
		case OP_LESS:
			return cmp < 0, nil
		case OP_LESS_OR_EQUAL:
			return cmp <= 0, nil
		case OP_GREATER:
			return cmp > 0, nil
		default:
			return cmp >= 0, nil
		}
	}
	return false, fmt.Errorf("unsupported operator %q", c.Operator)
}

// normalize maps the value kinds found in decoded documents and in Go
// callers onto float64, string, time.Time, bool or nil.
func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case nil:
		return nil
	case int:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case float32:
		return float64(t)
	case float64:
		return t
	case string:
		return t
	case bool:
		return t
	case time.Time:
		return t.UTC().Truncate(time.Millisecond)
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.ObjectID:
		return t.Hex()
	case *string:
		if t == nil {
			return nil
		}
		return *t
	}
	return v
}

func equalValues(a, b interface{}) bool {
	na, nb := normalize(a), normalize(b)
	if ta, ok := na.(time.Time); ok {
		tb, ok := nb.(time.Time)
		return ok && ta.Equal(tb)
	}
	if cmp, ok := compareValues(na, nb); ok {
		return cmp == 0
	}
	return reflect.DeepEqual(na, nb)
}

// compareValues orders two values of the same normalized kind. ok is false
// for mismatched or unordered kinds.
func compareValues(a, b interface{}) (int, bool) {
	na, nb := normalize(a), normalize(b)
	switch ta := na.(type) {
	case float64:
		tb, ok := nb.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case ta < tb:
			return -1, true
		case ta > tb:
			return 1, true
		}
		return 0, true
	case string:
		tb, ok := nb.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(ta, tb), true
	case time.Time:
		tb, ok := nb.(time.Time)
		if !ok {
			return 0, false
		}
		return ta.Compare(tb), true
	case bool:
		tb, ok := nb.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case ta == tb:
			return 0, true
		case !ta:
			return -1, true
		}
		return 1, true
	}
	return 0, false
}

func getPath(doc bson.D, path string) (interface{}, bool) {
	head, rest, nested := strings.Cut(path, ".")
	for _, e := range doc {
		if e.Key != head {
			continue
		}
		if !nested {
			return e.Value, true
		}
		sub, ok := e.Value.(bson.D)
		if !ok {
			return nil, false
		}
		return getPath(sub, rest)
	}
	return nil, false
}

func setPath(doc bson.D, path string, value interface{}) bson.D {
	head, rest, nested := strings.Cut(path, ".")
	if !nested {
		return setField(doc, head, value)
	}
	for i := range doc {
		if doc[i].Key == head {
			sub, ok := doc[i].Value.(bson.D)
			if !ok {
				sub = bson.D{}
			}
			doc[i].Value = setPath(sub, rest, value)
			return doc
		}
	}
	return append(doc, bson.E{Key: head, Value: setPath(bson.D{}, rest, value)})
}

// addNumbers follows $inc: integers stay integers unless a float is involved.
func addNumbers(current interface{}, delta interface{}) (interface{}, error) {
	if current == nil {
		current = int64(0)
	}
	ci, cInt := asInt64(current)
	di, dInt := asInt64(delta)
	if cInt && dInt {
		return ci + di, nil
	}
	cf, cOk := normalize(current).(float64)
	df, dOk := normalize(delta).(float64)
	if !cOk || !dOk {
		return nil, fmt.Errorf("cannot increment non-numeric value %v by %v", current, delta)
	}
	return cf + df, nil
}

func asInt64(v interface{}) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	}
	return 0, false
}
