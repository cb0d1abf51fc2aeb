package documents

import (
	"testing"

	"github.com/case-framework/survey-engine/pkg/docstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestFilterFromConditions(t *testing.T) {
	tests := []struct {
		name       string
		conditions []docstore.Condition
		want       bson.M
	}{
		{name: "empty", conditions: nil, want: bson.M{}},
		{
			name:       "single equality",
			conditions: []docstore.Condition{docstore.Where("survey_id", docstore.OP_EQUAL, "s1")},
			want:       bson.M{"survey_id": "s1"},
		},
		{
			name: "combined",
			conditions: []docstore.Condition{
				docstore.Where("session_id", docstore.OP_EQUAL, "a"),
				docstore.Where("order_index", docstore.OP_GREATER_OR_EQUAL, 2),
				docstore.Where("language", docstore.OP_IN, []string{"en", "es"}),
			},
			want: bson.M{"$and": bson.A{
				bson.M{"session_id": "a"},
				bson.M{"order_index": bson.M{"$gte": 2}},
				bson.M{"language": bson.M{"$in": []string{"en", "es"}}},
			}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := filterFromConditions(tt.conditions)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := filterFromConditions([]docstore.Condition{{Field: "a", Operator: "~", Value: 1}})
	assert.Error(t, err)
}

func TestUpdateDocumentSkipsEmptyOperators(t *testing.T) {
	update := updateDocument(nil, bson.D{{Key: "a", Value: 1}}, bson.D{})
	assert.Equal(t, bson.D{{Key: "$set", Value: bson.D{{Key: "a", Value: 1}}}}, update)

	update = updateDocument(bson.D{{Key: "n", Value: 1}}, nil, bson.D{{Key: "c", Value: 2}})
	require.Len(t, update, 2)
	assert.Equal(t, "$inc", update[0].Key)
	assert.Equal(t, "$setOnInsert", update[1].Key)
}
