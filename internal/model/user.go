// Package model defines the data structures used throughout the application.
package model

// User is the service's only entity.
//
// ID is chosen by the caller and never generated here. Email is unique across
// all users; the storage layer enforces it. Age and ZIP are nullable, so they
// are pointers: nil means "no value" and serializes as JSON null.
//
// Recommendations are deliberately unexported. They are persisted as one
// encoded column (see EncodeRecommendations) and every read or write goes
// through GetRecommendations / SetRecommendations so the slice held here is
// never shared with a caller.
type User struct {
	ID    int64   `json:"user_id"`
	Name  string  `json:"user_name"`
	Email string  `json:"user_email"`
	Age   *int64  `json:"age"`
	ZIP   *string `json:"ZIP"`

	recommendations []string
}

// GetRecommendations returns a copy of the user's recommendations in
// insertion order. The result is never nil.
func (u *User) GetRecommendations() []string {
	out := make([]string, len(u.recommendations))
	copy(out, u.recommendations)
	return out
}

// SetRecommendations replaces the user's recommendations with a copy of recs.
// A nil slice is stored as an empty list.
func (u *User) SetRecommendations(recs []string) {
	u.recommendations = make([]string, len(recs))
	copy(u.recommendations, recs)
}

// Clone returns a deep copy of u.
func (u *User) Clone() *User {
	c := *u
	if u.Age != nil {
		age := *u.Age
		c.Age = &age
	}
	if u.ZIP != nil {
		zip := *u.ZIP
		c.ZIP = &zip
	}
	c.SetRecommendations(u.recommendations)
	return &c
}
