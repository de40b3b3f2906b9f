package validation

import (
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloggera/bloggera/internal/domain"
)

type form struct {
	Name  string   `json:"name" validate:"required"`
	Code  string   `field:"secret" validate:"min=6"`
	Tags  []string `json:"tags" validate:"min=1"`
}

type shoutForm struct {
	Name  string `json:"name" validate:"required"`
	Shout string `json:"shout" validate:"omitempty,upper"`
}

func TestValidate_FirstFailingFieldInOrder(t *testing.T) {
	v := New()

	err := v.Validate(form{Code: "123"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, "name", domain.FieldOf(err))
	assert.Equal(t, "name is required", err.Error())

	err = v.Validate(form{Name: "x", Code: "123"})
	assert.Equal(t, "secret", domain.FieldOf(err))
	assert.Equal(t, "secret must be at least 6 characters long", err.Error())

	err = v.Validate(form{Name: "x", Code: "123456"})
	assert.Equal(t, "tags", domain.FieldOf(err))
	assert.Equal(t, "select at least 1 tags", err.Error())
}

func TestValidate_CustomRule(t *testing.T) {
	v := New()
	require.NoError(t, v.Register("upper", "{field} must be upper case", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == strings.ToUpper(s)
	}))

	err := v.Validate(shoutForm{Name: "x", Shout: "quiet"})
	assert.Equal(t, "shout", domain.FieldOf(err))
	assert.Equal(t, "shout must be upper case", err.Error())

	assert.NoError(t, v.Validate(shoutForm{Name: "x", Shout: "LOUD"}))
	assert.NoError(t, v.Validate(shoutForm{Name: "x"}))
}
