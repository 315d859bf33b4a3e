// internal/app/system/rpc/envelope.go
package rpc

import (
	"encoding/json"
	"net/http"

	"github.com/dalemusser/cineshelf/internal/app/system/apperr"
)

// serverErrorMessage is shown for anything that is not an *apperr.Error.
const serverErrorMessage = "Server error"

// Envelope is the uniform response body of every action.
type Envelope struct {
	OK    bool    `json:"ok"`
	Data  any     `json:"data"`
	Error *string `json:"error"`
	Kind  string  `json:"kind,omitempty"`
}

// Success wraps data in an ok envelope.
func Success(data any) Envelope {
	return Envelope{OK: true, Data: data}
}

// Failure renders err. Typed errors keep their message, kind and any
// payload; everything else becomes a generic server error. internal reports
// which case applied so the caller can log it.
func Failure(err error) (env Envelope, internal bool) {
	if ae, ok := apperr.As(err); ok {
		msg := ae.Message
		return Envelope{OK: false, Data: ae.Data, Error: &msg, Kind: string(ae.Kind)}, false
	}
	msg := serverErrorMessage
	return Envelope{OK: false, Error: &msg, Kind: string(apperr.KindInternal)}, true
}

// Write encodes env as the response. Envelopes are always sent with 200.
func Write(w http.ResponseWriter, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(env)
}
