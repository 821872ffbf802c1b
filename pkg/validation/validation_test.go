package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "salesgate/pkg/domain-errors"
)

type loginBody struct {
	Code     string `json:"code" validate:"required,notblank,max=64"`
	Password string `json:"password" validate:"required,max=256"`
	Internal string `json:"-" validate:"max=1"`
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		body loginBody
		want string
	}{
		{"valid", loginBody{Code: "s-01", Password: "pw"}, ""},
		{"missing password", loginBody{Code: "s-01"}, "password is required"},
		{"blank code", loginBody{Code: "   ", Password: "pw"}, "code must not be blank"},
		{"long code", loginBody{Code: strings.Repeat("c", 65), Password: "pw"}, "code must be at most 64 characters"},
		{"every failure is listed", loginBody{}, "code is required; password is required"},
		{"untagged field uses struct name", loginBody{Code: "a", Password: "b", Internal: "xx"}, "Internal must be at most 1 characters"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(&tc.body)
			if tc.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
			assert.EqualError(t, err, tc.want)
		})
	}
}

func TestValidate_NonStruct(t *testing.T) {
	err := Validate("not a struct")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}
