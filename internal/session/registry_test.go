package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_AddRemove(t *testing.T) {
	r := NewRegistry()
	r.Add("u1", "c2")
	r.Add("u1", "c1")
	r.Add("u2", "")

	assert.Equal(t, []string{"c1", "c2"}, r.Connections("u1"))
	assert.Equal(t, []string{"u1", "u2"}, r.Participants())
	assert.False(t, r.Connected("u2"))
	assert.Equal(t, 2, r.Len())

	r.Remove("u1", "c1")
	r.Remove("u1", "c2")
	r.Remove("nobody", "c9")

	assert.Equal(t, []string{"u1", "u2"}, r.Participants(), "participant must survive losing its last connection")
	assert.False(t, r.Connected("u1"))
	assert.Empty(t, r.Connections("u1"))
}

func TestRegistry_CarryKeepsOnlyConnected(t *testing.T) {
	r := NewRegistry()
	r.Add("online", "c1")
	r.Add("offline", "c2")
	r.Remove("offline", "c2")

	next := r.carry()
	assert.Equal(t, []string{"online"}, next.Participants())
	assert.Equal(t, []string{"c1"}, next.Connections("online"))

	next.Add("online", "c3")
	assert.Equal(t, []string{"c1"}, r.Connections("online"), "carry must not share sets")
}

func TestRegistry_Forget(t *testing.T) {
	r := NewRegistry()
	r.Add("u1", "c1")
	r.Add("u2", "c2")

	r.Forget("u1")
	r.Forget("nobody")

	assert.Equal(t, []string{"u2"}, r.Participants())
	assert.Empty(t, r.Connections("u1"))
	assert.Equal(t, 1, r.Len())
}
