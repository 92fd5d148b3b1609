package validator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shandysiswandi/mailbite/internal/pkg/validator"
)

type payload struct {
	Host     *string `json:"smtpHost" validate:"required"`
	Subject  *string `json:"subject,omitempty" validate:"required"`
	Port     int     `validate:"gte=0,lte=65535"`
	Internal string  `json:"-" validate:"omitempty,email"`
}

func ptr[T any](v T) *T { return &v }

func TestV10Validator_Validate(t *testing.T) {
	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	var _ validator.Validator = v

	t.Run("valid with empty but present subject", func(t *testing.T) {
		assert.NoError(t, v.Validate(payload{Host: ptr("smtp.test"), Subject: ptr("")}))
	})

	t.Run("nil pointers are missing", func(t *testing.T) {
		// Act
		err := v.Validate(payload{})

		// Assert
		var verr validator.V10ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, []string{"smtpHost", "subject"}, verr.Fields())
		assert.Equal(t, "smtpHost is a required field", verr.Values()["smtpHost"])
	})

	t.Run("field without json tag uses lower camel name", func(t *testing.T) {
		err := v.Validate(payload{Host: ptr("h"), Subject: ptr("s"), Port: 70000})

		var verr validator.V10ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, []string{"port"}, verr.Fields())
	})

	t.Run("non struct input", func(t *testing.T) {
		err := v.Validate("nope")

		assert.Error(t, err)
		assert.NotErrorAs(t, err, new(validator.V10ValidationError))
	})
}

func TestV10ValidationError_Error(t *testing.T) {
	assert.Equal(t, "validation error", validator.V10ValidationError{}.Error())
	assert.JSONEq(t, `{"to":"bad"}`, validator.V10ValidationError{"to": "bad"}.Error())
}
