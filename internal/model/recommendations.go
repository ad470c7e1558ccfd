package model

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/sakif/usersvc/internal/apperror"
)

// EncodeRecommendations turns a list of recommendations into the scalar
// stored in the recommendations column: a JSON array of strings.
// A nil slice encodes as "[]", never "null".
func EncodeRecommendations(recs []string) (string, error) {
	if recs == nil {
		recs = []string{}
	}
	b, err := json.Marshal(recs)
	if err != nil {
		return "", fmt.Errorf("model: encoding recommendations: %w", err)
	}
	return string(b), nil
}

// DecodeRecommendations is the inverse of EncodeRecommendations.
// An empty (or all-whitespace) column and a JSON null both decode to an
// empty, non-nil slice.
func DecodeRecommendations(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return []string{}, nil
	}
	var recs []string
	if err := json.Unmarshal([]byte(s), &recs); err != nil {
		return nil, fmt.Errorf("model: decoding recommendations: %w", err)
	}
	if recs == nil {
		recs = []string{}
	}
	return recs, nil
}

// Recommendations is the column type for the encoded list. It implements
// driver.Valuer and sql.Scanner on top of Encode/DecodeRecommendations, so a
// storage row can hold it directly.
type Recommendations []string

// Value implements driver.Valuer.
func (r Recommendations) Value() (driver.Value, error) {
	return EncodeRecommendations(r)
}

// Scan implements sql.Scanner. SQL NULL scans to an empty list.
func (r *Recommendations) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case nil:
		*r = Recommendations{}
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("model: scanning recommendations: expected string or []byte, got %T", src)
	}

	recs, err := DecodeRecommendations(raw)
	if err != nil {
		return err
	}
	*r = recs
	return nil
}

// UnmarshalJSON implements json.Unmarshaler for request bodies. Every element
// must be a string: a null element is rejected instead of becoming "". A null
// list leaves r nil so the caller can decide what null means.
func (r *Recommendations) UnmarshalJSON(data []byte) error {
	var items []*string
	if err := json.Unmarshal(data, &items); err != nil {
		return apperror.ValidationFailed("recommendations", "recommendations must be a list of strings")
	}
	if items == nil {
		*r = nil
		return nil
	}

	recs := make(Recommendations, len(items))
	for i, item := range items {
		if item == nil {
			return apperror.ValidationFailed("recommendations",
				fmt.Sprintf("recommendations[%d] must be a string, not null", i))
		}
		recs[i] = *item
	}
	*r = recs
	return nil
}
