package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// LocalizedEntry is one language variant of a localized value.
type LocalizedEntry[T any] struct {
	Lang  string
	Value T
}

// Localized holds either a plain value or an ordered mapping from language code
// to value. The order of the mapping is the order in which the entries were
// stored, so "first available language" is stable across reads.
type Localized[T any] struct {
	plain   T
	isPlain bool
	entries []LocalizedEntry[T]
}

// LocalizedText is a plain string or a mapping language -> string.
type LocalizedText = Localized[string]

// LocalizedOptions is a plain option list or a mapping language -> option list.
type LocalizedOptions = Localized[[]string]

func Plain[T any](value T) Localized[T] {
	return Localized[T]{plain: value, isPlain: true}
}

func Translations[T any](entries ...LocalizedEntry[T]) Localized[T] {
	return Localized[T]{entries: entries}
}

// Text builds a LocalizedText from alternating language/text pairs:
// Text("en", "Hello", "es", "Hola").
func Text(pairs ...string) LocalizedText {
	entries := make([]LocalizedEntry[string], 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		entries = append(entries, LocalizedEntry[string]{Lang: pairs[i], Value: pairs[i+1]})
	}
	return LocalizedText{entries: entries}
}

func (l Localized[T]) IsPlain() bool {
	return l.isPlain
}

func (l Localized[T]) PlainValue() T {
	return l.plain
}

// IsZero reports whether the value carries neither a plain value nor any entry.
func (l Localized[T]) IsZero() bool {
	return !l.isPlain && len(l.entries) == 0
}

func (l Localized[T]) Entries() []LocalizedEntry[T] {
	return l.entries
}

func (l Localized[T]) Get(lang string) (T, bool) {
	for _, e := range l.entries {
		if e.Lang == lang {
			return e.Value, true
		}
	}
	var zero T
	return zero, false
}

func (l Localized[T]) MarshalJSON() ([]byte, error) {
	if l.isPlain {
		return json.Marshal(l.plain)
	}
	if l.entries == nil {
		return []byte("null"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range l.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(e.Lang)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(e.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (l *Localized[T]) UnmarshalJSON(data []byte) error {
	*l = Localized[T]{}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	if trimmed[0] != '{' {
		var v T
		if err := json.Unmarshal(trimmed, &v); err != nil {
			return err
		}
		l.plain = v
		l.isPlain = true
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	if _, err := dec.Token(); err != nil {
		return err
	}
	l.entries = []LocalizedEntry[T]{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected localized key %v", tok)
		}
		var v T
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("localized value for %q: %w", key, err)
		}
		l.entries = append(l.entries, LocalizedEntry[T]{Lang: key, Value: v})
	}
	_, err := dec.Token()
	return err
}

func (l Localized[T]) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if l.isPlain {
		return bson.MarshalValue(l.plain)
	}
	if l.entries == nil {
		return bson.TypeNull, nil, nil
	}
	doc := make(bson.D, 0, len(l.entries))
	for _, e := range l.entries {
		doc = append(doc, bson.E{Key: e.Lang, Value: e.Value})
	}
	return bson.MarshalValue(doc)
}

func (l *Localized[T]) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	*l = Localized[T]{}
	switch t {
	case bson.TypeNull, bson.TypeUndefined:
		return nil
	case bson.TypeEmbeddedDocument:
		elems, err := bson.Raw(data).Elements()
		if err != nil {
			return err
		}
		l.entries = make([]LocalizedEntry[T], 0, len(elems))
		for _, elem := range elems {
			var v T
			if err := elem.Value().Unmarshal(&v); err != nil {
				return fmt.Errorf("localized value for %q: %w", elem.Key(), err)
			}
			l.entries = append(l.entries, LocalizedEntry[T]{Lang: elem.Key(), Value: v})
		}
		return nil
	default:
		var v T
		if err := (bson.RawValue{Type: t, Value: data}).Unmarshal(&v); err != nil {
			return errors.Join(errors.New("unsupported localized value"), err)
		}
		l.plain = v
		l.isPlain = true
		return nil
	}
}
