package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestLocalizedTextKeepsEntryOrder(t *testing.T) {
	raw := []byte(`{"fr":"Bonjour","en":"Hello","es":"Hola"}`)

	var lt LocalizedText
	require.NoError(t, json.Unmarshal(raw, &lt))
	require.Len(t, lt.Entries(), 3)
	assert.Equal(t, "fr", lt.Entries()[0].Lang)

	bsonDoc, err := bson.Marshal(bson.D{{Key: "title", Value: lt}})
	require.NoError(t, err)

	var decoded struct {
		Title LocalizedText `bson:"title"`
	}
	require.NoError(t, bson.Unmarshal(bsonDoc, &decoded))
	langs := []string{}
	for _, e := range decoded.Title.Entries() {
		langs = append(langs, e.Lang)
	}
	assert.Equal(t, []string{"fr", "en", "es"}, langs)

	out, err := json.Marshal(decoded.Title)
	require.NoError(t, err)
	assert.JSONEq(t, string(raw), string(out))
}

func TestLocalizedPlainValues(t *testing.T) {
	t.Run("plain string", func(t *testing.T) {
		var lt LocalizedText
		require.NoError(t, json.Unmarshal([]byte(`"Just text"`), &lt))
		assert.True(t, lt.IsPlain())
		assert.Equal(t, "Just text", lt.PlainValue())
	})

	t.Run("plain option list through bson", func(t *testing.T) {
		doc, err := bson.Marshal(bson.D{{Key: "options", Value: Plain([]string{"a", "b"})}})
		require.NoError(t, err)
		var decoded struct {
			Options LocalizedOptions `bson:"options"`
		}
		require.NoError(t, bson.Unmarshal(doc, &decoded))
		assert.True(t, decoded.Options.IsPlain())
		assert.Equal(t, []string{"a", "b"}, decoded.Options.PlainValue())
	})

	t.Run("null is zero", func(t *testing.T) {
		var lt LocalizedText
		require.NoError(t, json.Unmarshal([]byte(`null`), &lt))
		assert.True(t, lt.IsZero())
	})

	t.Run("wrong value type", func(t *testing.T) {
		var lt LocalizedText
		assert.Error(t, json.Unmarshal([]byte(`{"en": 3}`), &lt))
	})
}

func TestAnswerValueJSON(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		isOptions bool
		text      string
		options   []string
	}{
		{name: "text", input: `"hello"`, text: "hello"},
		{name: "options", input: `["a","b"]`, isOptions: true, options: []string{"a", "b"}},
		{name: "number", input: `4`, text: "4"},
		{name: "null", input: `null`, text: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v AnswerValue
			require.NoError(t, json.Unmarshal([]byte(tt.input), &v))
			assert.Equal(t, tt.isOptions, v.IsOptions())
			if tt.isOptions {
				assert.Equal(t, tt.options, v.Options)
			} else {
				assert.Equal(t, tt.text, v.Text)
			}
		})
	}
}

func TestAnswerValueFromStoredAnswer(t *testing.T) {
	text := "hi"
	empty := ""

	v, ok := Answer{AnswerText: &text}.Value()
	assert.True(t, ok)
	assert.Equal(t, TextAnswer("hi"), v)

	v, ok = Answer{AnswerText: &empty, AnswerOptions: []string{"x"}}.Value()
	assert.True(t, ok)
	assert.True(t, v.IsOptions())

	_, ok = Answer{AnswerText: &empty}.Value()
	assert.False(t, ok)
}
