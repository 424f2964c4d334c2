package binder

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestISBNValidator(t *testing.T) {
	t.Parallel()

	validate := validator.New()
	require.NoError(t, validate.RegisterValidation("isbn", isbnValidator))

	type payload struct {
		ISBN string `validate:"isbn"`
	}

	tests := []struct {
		name  string
		value string
		valid bool
	}{
		{"empty", "", true},
		{"isbn-10", "0306406152", true},
		{"isbn-10 with X check digit", "097522980X", true},
		{"isbn-10 with hyphens", "0-306-40615-2", true},
		{"isbn-13", "9780306406157", true},
		{"isbn-13 with hyphens", "978-0-306-40615-7", true},
		{"isbn-13 with spaces", "978 0 306 40615 7", true},
		{"too short", "12345", false},
		{"too long", "97803064061579", false},
		{"letters", "97803064061ab", false},
		{"X in wrong position", "03064X6152", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.StructCtx(context.Background(), payload{ISBN: tt.value})
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
