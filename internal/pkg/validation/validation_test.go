package validation

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Username string `binding:"required,username"`
}

func TestUsernameTag(t *testing.T) {
	require.NoError(t, Register())
	require.NoError(t, Register())

	assert.NoError(t, binding.Validator.ValidateStruct(&sample{Username: "ada.l_2"}))
	assert.Error(t, binding.Validator.ValidateStruct(&sample{Username: "ada lovelace"}))
	assert.Error(t, binding.Validator.ValidateStruct(&sample{Username: "<b>"}))
}
