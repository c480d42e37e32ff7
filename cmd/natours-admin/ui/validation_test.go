package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidators(t *testing.T) {
	assert.EqualError(t, required("name")("  "), "name is required")
	assert.NoError(t, required("name")("Jonas"))

	assert.EqualError(t, validEmail(""), "email is required")
	assert.EqualError(t, validEmail("not-an-email"), "not a valid email address")
	assert.NoError(t, validEmail("admin@natours.io"))

	assert.Error(t, minLength(8)("short"))
	assert.NoError(t, minLength(8)("longenough"))
}

func TestAdminInputComplete(t *testing.T) {
	in := &AdminInput{Name: "Ada", Email: "ada@natours.io"}
	assert.False(t, in.Complete())
	in.Password = "supersecret"
	assert.True(t, in.Complete())
}
