package model

import "encoding/json"

// Optional records whether a JSON field was present in a request body and,
// if so, whether it was null.
//
//	{}               → Set=false
//	{"age": null}    → Set=true, Null=true
//	{"age": 0}       → Set=true, Null=false, Value=0
//
// encoding/json invokes UnmarshalJSON for a present key even when its value is
// null, and never for an absent key. That is the whole mechanism.
type Optional[T any] struct {
	Value T
	Set   bool
	Null  bool
}

// Some returns an Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

// Null returns an Optional that was explicitly set to null.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true, Null: true}
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Null = true
		var zero T
		o.Value = zero
		return nil
	}
	o.Null = false
	return json.Unmarshal(data, &o.Value)
}

// UserPatch is a partial update. Only fields with Set == true are applied.
type UserPatch struct {
	Name            Optional[string]          `json:"user_name"`
	Email           Optional[string]          `json:"user_email"`
	Age             Optional[int64]           `json:"age"`
	Recommendations Optional[Recommendations] `json:"recommendations"`
	ZIP             Optional[string]          `json:"ZIP"`
}

// Empty reports whether no field is present.
func (p UserPatch) Empty() bool {
	return !p.Name.Set && !p.Email.Set && !p.Age.Set && !p.Recommendations.Set && !p.ZIP.Set
}
