package core_test

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phoenixacademy/resultsportal/apps/shared"
	"github.com/phoenixacademy/resultsportal/core"
)

type dates struct {
	Name  string `json:"name" validate:"required,notblank"`
	Born  string `json:"born" validate:"omitempty,isodate,pastdate"`
	Exam  string `json:"exam" validate:"omitempty,isodate,notfuture"`
	Inner *inner `json:"inner" validate:"omitempty"`
}

type inner struct {
	Label string `json:"label" validate:"required"`
}

func TestValidators(t *testing.T) {
	translator := shared.NewTranslator()
	validate := shared.NewValidator(translator)

	core.NowFunc = func() time.Time { return time.Date(2024, 7, 15, 22, 0, 0, 0, time.UTC) }
	defer func() { core.NowFunc = time.Now }()

	tests := []struct {
		name string
		data dates
		want map[string]string
	}{
		{name: "valid", data: dates{Name: "x", Born: "2007-05-14", Exam: "2024-07-15"}},
		{name: "blank", data: dates{Name: "   "}, want: map[string]string{"name": "this field cannot be blank"}},
		{name: "required", data: dates{}, want: map[string]string{"name": "this field is required"}},
		{name: "bad format", data: dates{Name: "x", Born: "14/05/2007"}, want: map[string]string{"born": "date must be formatted as YYYY-MM-DD"}},
		{name: "born today", data: dates{Name: "x", Born: "2024-07-15"}, want: map[string]string{"born": "date must be in the past"}},
		{name: "exam tomorrow", data: dates{Name: "x", Exam: "2024-07-16"}, want: map[string]string{"exam": "date cannot be in the future"}},
		{name: "nested field", data: dates{Name: "x", Inner: &inner{}}, want: map[string]string{"inner.label": "this field is required"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.data)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			vErrs, ok := err.(validator.ValidationErrors)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, tt.want, core.TranslateErrors(vErrs, translator))
		})
	}
}

func TestValidationError(t *testing.T) {
	err := core.NewValidationError(nil, core.FieldError{Field: "email", Error: "taken"})
	assert.Equal(t, core.ErrInvalidData.Error(), err.Error())

	vErr, ok := err.(*core.ValidationError)
	require.True(t, ok)
	assert.Equal(t, map[string]string{"email": "taken"}, vErr.FieldsMap())
	assert.Nil(t, core.ValidationError{}.FieldsMap())
}

func TestShutdownError(t *testing.T) {
	assert.True(t, core.IsShutdown(core.NewShutdownError("integrity issue")))
	assert.False(t, core.IsShutdown(core.ErrInvalidData))
}
