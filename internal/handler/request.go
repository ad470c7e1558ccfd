package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/sakif/usersvc/internal/apperror"
)

// maxBodyBytes caps request bodies. A user record is a few hundred bytes.
const maxBodyBytes = 1 << 20

// decodeJSON decodes exactly one JSON object from the request body into dst,
// a pointer to a struct. Every failure is a *apperror.AppError wrapping
// ErrValidation.
//
// Keys must match a json tag of dst exactly; keys that differ only in case
// are dropped like any other unknown key. Request bodies go through
// encoding/json: model.Optional relies on its documented behavior of calling
// UnmarshalJSON for a present null.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))

	var fields map[string]json.RawMessage
	if err := dec.Decode(&fields); err != nil {
		return decodeError(err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return apperror.ValidationFailed("", "request body must contain a single JSON object")
	}
	if fields == nil {
		return apperror.ValidationFailed("", "request body must be a JSON object")
	}

	known := jsonFieldNames(dst)
	for key := range fields {
		if _, ok := known[key]; !ok {
			delete(fields, key)
		}
	}

	exact, err := json.Marshal(fields)
	if err != nil {
		return decodeError(err)
	}
	if err := json.Unmarshal(exact, dst); err != nil {
		return decodeError(err)
	}
	return nil
}

// jsonFieldNames returns the json tag names of the struct dst points to.
func jsonFieldNames(dst any) map[string]struct{} {
	t := reflect.TypeOf(dst)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	names := make(map[string]struct{}, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		names[name] = struct{}{}
	}
	return names
}

func decodeError(err error) error {
	var (
		typeErr   *json.UnmarshalTypeError
		syntaxErr *json.SyntaxError
		maxErr    *http.MaxBytesError
	)

	var appErr *apperror.AppError

	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.As(err, &typeErr) && typeErr.Field != "":
		return apperror.ValidationFailed(typeErr.Field,
			fmt.Sprintf("%s must be of type %s", typeErr.Field, typeErr.Type))
	case errors.As(err, &typeErr):
		return apperror.ValidationFailed("", "request body must be a JSON object")
	case errors.As(err, &syntaxErr):
		return apperror.ValidationFailed("",
			fmt.Sprintf("malformed JSON at offset %d", syntaxErr.Offset))
	case errors.As(err, &maxErr):
		return apperror.ValidationFailed("",
			fmt.Sprintf("request body must not exceed %d bytes", maxErr.Limit))
	case errors.Is(err, io.EOF):
		return apperror.ValidationFailed("", "request body must not be empty")
	case errors.Is(err, io.ErrUnexpectedEOF):
		return apperror.ValidationFailed("", "malformed JSON")
	default:
		return apperror.ValidationFailed("", "invalid request body")
	}
}
