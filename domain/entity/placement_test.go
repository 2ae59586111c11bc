package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestAnswerID(t *testing.T) {
	ref := primitive.NewObjectID()

	tests := []struct {
		name   string
		value  interface{}
		wantID primitive.ObjectID
		wantOK bool
	}{
		{name: "object id", value: ref, wantID: ref, wantOK: true},
		{name: "hex string", value: ref.Hex(), wantID: ref, wantOK: true},
		{name: "empty string means unanswered", value: "", wantOK: false},
		{name: "malformed hex", value: "not-an-id", wantOK: false},
		{name: "zero object id", value: primitive.NilObjectID, wantOK: false},
		{name: "unrelated type", value: 42, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Placement{Answers: []Answer{{Field: AnswerFieldCompany, Value: tt.value}}}
			id, ok := p.AnswerID(AnswerFieldCompany)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantID, id)
			}
		})
	}

	p := &Placement{}
	_, ok := p.AnswerID(AnswerFieldCompany)
	assert.False(t, ok, "missing field")
}

func TestAnswerTime(t *testing.T) {
	when := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)

	p := &Placement{Answers: []Answer{{Field: AnswerFieldEmbarkationDate, Value: when}}}
	got, ok := p.EmbarkationDate()
	assert.True(t, ok)
	assert.Equal(t, when, got)

	p = &Placement{Answers: []Answer{{Field: AnswerFieldEmbarkationDate, Value: primitive.NewDateTimeFromTime(when)}}}
	got, ok = p.EmbarkationDate()
	assert.True(t, ok)
	assert.True(t, got.Equal(when))

	p = &Placement{Answers: []Answer{{Field: AnswerFieldEmbarkationDate, Value: "2024-03-05"}}}
	_, ok = p.EmbarkationDate()
	assert.False(t, ok)
}
