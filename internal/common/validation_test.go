package common

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_Rules(t *testing.T) {
	tests := []struct {
		name    string
		value   interface{}
		rule    ValidationRule
		wantErr bool
	}{
		{name: "required blank", value: "  ", rule: Required, wantErr: true},
		{name: "required nil", value: nil, rule: Required, wantErr: true},
		{name: "required set", value: "x", rule: Required},
		{name: "one of hit", value: "sqlite", rule: OneOf(DriverPostgres, DriverSQLite)},
		{name: "one of miss", value: "mysql", rule: OneOf(DriverPostgres, DriverSQLite), wantErr: true},
		{name: "in range", value: 0.5, rule: InRange(0, 1)},
		{name: "out of range", value: 1.5, rule: InRange(0, 1), wantErr: true},
		{name: "not a number", value: "1", rule: InRange(0, 1), wantErr: true},
		{name: "max length runes", value: "éééé", rule: MaxLength(4)},
		{name: "too long", value: "abcde", rule: MaxLength(4), wantErr: true},
		{name: "uuid", value: "0b5f6c3e-8a1d-4f7e-9c2b-3d4e5f607182", rule: UUID},
		{name: "bad uuid", value: "not-a-uuid", rule: UUID, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator().Field("f", tt.value, tt.rule)
			assert.Equal(t, tt.wantErr, v.HasErrors())
			if tt.wantErr {
				require.Len(t, v.Errors(), 1)
				assert.Equal(t, "f", v.Errors()[0].Field)
			}
		})
	}
}

func TestValidateAndReturnError_ListsFields(t *testing.T) {
	v := NewValidator().
		Field("document", "", Required, MaxLength(255)).
		Field("id", "nope", UUID).
		Field("document", "", Required)

	err := ValidateAndReturnError(v)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)

	var app *AppError
	require.True(t, errors.As(err, &app))
	assert.Equal(t, "VALIDATION_ERROR", app.Code)
	assert.Contains(t, app.Message, "document")

	var invalid ValidationErrors
	require.True(t, errors.As(err, &invalid))
	assert.Len(t, invalid, 3)
	assert.Equal(t, []string{"document", "id"}, invalid.Fields())

	assert.NoError(t, ValidateAndReturnError(NewValidator().Field("id", "0b5f6c3e-8a1d-4f7e-9c2b-3d4e5f607182", UUID)))
}
