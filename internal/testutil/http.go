package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/cineshelf/internal/app/system/auth"
	"github.com/dalemusser/cineshelf/internal/domain/models"
)

// Envelope mirrors the action response body for decoding in tests.
type Envelope struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error *string         `json:"error"`
	Kind  string          `json:"kind"`
}

// Message returns the error message or "".
func (e Envelope) Message() string {
	if e.Error == nil {
		return ""
	}
	return *e.Error
}

// Principal builds the principal for a fixture user.
func Principal(u models.User) *auth.Principal {
	return &auth.Principal{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.EmailAddress(),
		DisplayName: u.Name(),
		IsAdmin:     u.IsAdmin,
	}
}

// WithPrincipal adds p to the request context, bypassing token lookup.
func WithPrincipal(r *http.Request, p *auth.Principal) *http.Request {
	return r.WithContext(auth.WithPrincipal(r.Context(), p))
}

// PostAction sends {"action": action, ...body} to h as p (nil for an
// anonymous request) and decodes the envelope.
func PostAction(t *testing.T, h http.Handler, p *auth.Principal, action string, body map[string]any) (*httptest.ResponseRecorder, Envelope) {
	t.Helper()

	payload := map[string]any{}
	for k, v := range body {
		payload[k] = v
	}
	if action != "" {
		payload["action"] = action
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if p != nil {
		req = WithPrincipal(req, p)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env Envelope
	if rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode envelope: %v (body %q)", err, rec.Body.String())
		}
	}
	return rec, env
}

// DecodeData unmarshals env.Data into v.
func DecodeData(t *testing.T, env Envelope, v any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decode data: %v (data %s)", err, env.Data)
	}
}
