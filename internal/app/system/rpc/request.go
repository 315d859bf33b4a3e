// internal/app/system/rpc/request.go
package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/dalemusser/cineshelf/internal/app/system/apperr"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxBodyBytes caps the size of an action request body.
const MaxBodyBytes = 1 << 20

// Request is one decoded action call: the selected action plus the raw JSON
// body, which each handler binds into its own input struct.
type Request struct {
	Action string
	Body   json.RawMessage
}

// envelopeIn picks the routing fields out of the body.
type envelopeIn struct {
	Action string `json:"action"`
	User   string `json:"user"`
}

// ReadRequest decodes r into a Request. The action comes from the body and
// falls back to the ?action= query parameter. legacyUser is the body's
// optional "user" field.
func ReadRequest(r *http.Request) (req Request, legacyUser string, err error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes+1))
	if err != nil {
		return Request{}, "", apperr.Validation("Invalid request body")
	}
	if len(body) > MaxBodyBytes {
		return Request{}, "", apperr.Validation("Request body too large")
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		body = []byte("{}")
	}

	var in envelopeIn
	if err := json.Unmarshal(body, &in); err != nil {
		return Request{}, "", apperr.Validation("Invalid request body")
	}
	action := strings.TrimSpace(in.Action)
	if action == "" {
		action = strings.TrimSpace(r.URL.Query().Get("action"))
	}
	return Request{Action: action, Body: body}, strings.TrimSpace(in.User), nil
}

// Bind decodes the request body into v.
func (r Request) Bind(v any) error {
	if len(r.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return apperr.Validation("Invalid request body")
	}
	return nil
}

// ObjectID parses a required id field. label names the field in the
// error message, e.g. "Copy ID".
func ObjectID(hex, label string) (primitive.ObjectID, error) {
	hex = strings.TrimSpace(hex)
	if hex == "" {
		return primitive.NilObjectID, apperr.Validation("%s required", label)
	}
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, apperr.Validation("Invalid %s", label)
	}
	return id, nil
}

// Flag is a boolean that also accepts the strings and numbers browsers and
// form-encoders tend to send ("true", "1", 1).
type Flag bool

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flag) UnmarshalJSON(b []byte) error {
	switch strings.ToLower(strings.Trim(string(b), `"`)) {
	case "true", "1", "yes", "on":
		*f = true
	default:
		*f = false
	}
	return nil
}

// Int is an integer that also accepts a numeric string. Anything else
// decodes to zero.
type Int int

// UnmarshalJSON implements json.Unmarshaler.
func (n *Int) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	if v, err := strconv.Atoi(s); err == nil {
		*n = Int(v)
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		*n = Int(int(f))
		return nil
	}
	*n = 0
	return nil
}

// String is a string that also accepts a bare number, so ids like 603 and
// "603" decode the same way.
type String string

// UnmarshalJSON implements json.Unmarshaler.
func (s *String) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = String(v)
		return nil
	}
	if string(b) == "null" {
		*s = ""
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return fmt.Errorf("expected string or number: %w", err)
	}
	*s = String(num.String())
	return nil
}
