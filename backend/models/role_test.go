package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" Instructor ")
	require.NoError(t, err)
	assert.Equal(t, RoleInstructor, r)

	_, err = ParseRole("owner")
	assert.Error(t, err)
}

func TestRoleSetHighest(t *testing.T) {
	s := NewRoleSet(RoleStudent, RoleInstructor, RoleStudent)
	top, ok := s.Highest()
	require.True(t, ok)
	assert.Equal(t, RoleInstructor, top)
	assert.Equal(t, []Role{RoleInstructor, RoleStudent}, s.Slice())

	_, ok = RoleSet(0).Highest()
	assert.False(t, ok)
	assert.False(t, NewRoleSet(Role(0)).HasAny(RoleAdmin, RoleStudent))
}

func TestRoleSetJSON(t *testing.T) {
	b, err := json.Marshal(NewRoleSet(RoleStudent, RoleAdmin))
	require.NoError(t, err)
	assert.JSONEq(t, `["admin","student"]`, string(b))
}

func TestLessonTypeScan(t *testing.T) {
	var lt LessonType
	require.NoError(t, lt.Scan("youtube"))
	assert.Equal(t, LessonYouTube, lt)
	require.NoError(t, lt.Scan(nil))
	assert.Equal(t, LessonVideo, lt)
	require.NoError(t, lt.Scan([]byte("slides")))
	assert.Equal(t, LessonYouTube, lt)
	assert.True(t, lt.Playable())
	require.NoError(t, lt.Scan(""))
	assert.Equal(t, LessonVideo, lt)
	require.NoError(t, lt.Scan("resource"))
	assert.Equal(t, LessonResource, lt)
}
