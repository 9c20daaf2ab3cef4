package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptional(t *testing.T) {
	v, ok := Some("x").Get()
	assert.True(t, ok)
	assert.Equal(t, "x", v)

	v, ok = None[string]().Get()
	assert.False(t, ok)
	assert.Equal(t, "", v)
}

func TestOutcome(t *testing.T) {
	s := Success([]string{"a"})
	assert.True(t, s.OK())
	assert.Equal(t, StatusSuccess, s.Status)

	m := Missing[string]()
	assert.False(t, m.OK())
	assert.Equal(t, "missing", m.Status.String())

	err := errors.New("boom")
	f := Failed[int](err)
	assert.False(t, f.OK())
	assert.ErrorIs(t, f.Err, err)
	assert.Equal(t, "failed", f.Status.String())
	assert.Equal(t, "status(7)", Status(7).String())
}
