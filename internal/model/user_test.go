package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/usersvc/internal/apperror"
)

func TestUserRecommendationAccessors(t *testing.T) {
	var u User
	assert.NotNil(t, u.GetRecommendations(), "zero User must report an empty, non-nil list")
	assert.Empty(t, u.GetRecommendations())

	in := []string{"book1", "book2"}
	u.SetRecommendations(in)
	in[0] = "mutated"
	assert.Equal(t, []string{"book1", "book2"}, u.GetRecommendations(), "setter must copy its input")

	out := u.GetRecommendations()
	out[1] = "mutated"
	assert.Equal(t, []string{"book1", "book2"}, u.GetRecommendations(), "getter must return a copy")

	u.SetRecommendations(nil)
	assert.NotNil(t, u.GetRecommendations())
	assert.Empty(t, u.GetRecommendations())
}

func TestUserClone(t *testing.T) {
	age := int64(30)
	zip := "10001"
	u := &User{ID: 1, Name: "Ana", Email: "a@x.com", Age: &age, ZIP: &zip}
	u.SetRecommendations([]string{"book1"})

	c := u.Clone()
	*c.Age = 99
	*c.ZIP = "99999"
	c.SetRecommendations([]string{"other"})

	assert.Equal(t, int64(30), *u.Age)
	assert.Equal(t, "10001", *u.ZIP)
	assert.Equal(t, []string{"book1"}, u.GetRecommendations())
}

func TestUserPatch_PresenceTracking(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		check func(t *testing.T, p UserPatch)
	}{
		{
			name: "empty object",
			body: `{}`,
			check: func(t *testing.T, p UserPatch) {
				assert.True(t, p.Empty())
			},
		},
		{
			name: "omitted age stays unset",
			body: `{"user_name":"Bea"}`,
			check: func(t *testing.T, p UserPatch) {
				assert.True(t, p.Name.Set)
				assert.Equal(t, "Bea", p.Name.Value)
				assert.False(t, p.Age.Set)
			},
		},
		{
			name: "explicit empty list is set",
			body: `{"recommendations":[]}`,
			check: func(t *testing.T, p UserPatch) {
				require.True(t, p.Recommendations.Set)
				assert.False(t, p.Recommendations.Null)
				assert.NotNil(t, p.Recommendations.Value)
				assert.Empty(t, p.Recommendations.Value)
			},
		},
		{
			name: "list elements keep order",
			body: `{"recommendations":["b","a","b"]}`,
			check: func(t *testing.T, p UserPatch) {
				assert.Equal(t, Recommendations{"b", "a", "b"}, p.Recommendations.Value)
			},
		},
		{
			name: "null list is set and null",
			body: `{"recommendations":null}`,
			check: func(t *testing.T, p UserPatch) {
				assert.True(t, p.Recommendations.Set)
				assert.True(t, p.Recommendations.Null)
			},
		},
		{
			name: "explicit zero age is set",
			body: `{"age":0}`,
			check: func(t *testing.T, p UserPatch) {
				assert.True(t, p.Age.Set)
				assert.False(t, p.Age.Null)
				assert.Equal(t, int64(0), p.Age.Value)
			},
		},
		{
			name: "explicit null is set and null",
			body: `{"ZIP":null}`,
			check: func(t *testing.T, p UserPatch) {
				assert.True(t, p.ZIP.Set)
				assert.True(t, p.ZIP.Null)
			},
		},
		{
			name: "explicit empty string is set",
			body: `{"user_email":""}`,
			check: func(t *testing.T, p UserPatch) {
				assert.True(t, p.Email.Set)
				assert.Equal(t, "", p.Email.Value)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p UserPatch
			require.NoError(t, json.Unmarshal([]byte(tt.body), &p))
			tt.check(t, p)
		})
	}
}

func TestUserPatch_TypeMismatch(t *testing.T) {
	var p UserPatch
	assert.Error(t, json.Unmarshal([]byte(`{"age":"old"}`), &p))
}

func TestUserPatch_RecommendationElements(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"null first element", `{"recommendations":[null,"x"]}`},
		{"null last element", `{"recommendations":["book1",null]}`},
		{"number element", `{"recommendations":["book1",2]}`},
		{"not a list", `{"recommendations":"book1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p UserPatch
			err := json.Unmarshal([]byte(tt.body), &p)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperror.ErrValidation), "got %v", err)
		})
	}
}
