package validation

import (
	"testing"

	"conversation-core/internal/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Title  string `validate:"required,max=5"`
	Status string `validate:"omitempty,oneof=active archived"`
	Limit  int    `validate:"gte=0"`
}

func TestStruct(t *testing.T) {
	assert.NoError(t, Struct(sample{Title: "ok"}))

	tests := []struct {
		name   string
		in     sample
		field  string
		reason string
	}{
		{"required", sample{}, "title", "is required"},
		{"max", sample{Title: "too long"}, "title", "must be at most 5"},
		{"oneof", sample{Title: "a", Status: "gone"}, "status", "must be one of [active archived]"},
		{"gte", sample{Title: "a", Limit: -1}, "limit", "must be at least 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.in)
			require.ErrorIs(t, err, apperror.ErrValidation)
			var ve *apperror.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
			assert.Equal(t, tt.reason, ve.Reason)
		})
	}
}
