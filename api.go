package weesql

import (
	"errors"
	"net/http"

	api "github.com/dracory/api"
)

// writeSuccess writes a success envelope with a message.
func writeSuccess(w http.ResponseWriter, r *http.Request, msg string) {
	api.Respond(w, r, api.Success(msg))
}

// writeSuccessWithData writes a success envelope with message and data.
func writeSuccessWithData(w http.ResponseWriter, r *http.Request, msg string, data map[string]any) {
	api.Respond(w, r, api.SuccessWithData(msg, data))
}

// writeError writes an error envelope. Dispatcher errors carry their raw
// message and get a status code that matches their kind.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	var e *Error
	if !errors.As(err, &e) {
		api.Respond(w, r, api.Error(err.Error()))
		return
	}
	api.RespondWithStatusCode(w, r, api.Error(e.Message), statusForKind(e.Kind))
}

// writeErrorMessage writes an error envelope with a plain message and status 200,
// the way request validation failures are reported.
func writeErrorMessage(w http.ResponseWriter, r *http.Request, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	api.Respond(w, r, api.Error(msg))
}

func statusForKind(k ErrorKind) int {
	switch k {
	case KindInvalid:
		return http.StatusBadRequest
	case KindNotConnected:
		return http.StatusPreconditionFailed
	case KindConnection:
		return http.StatusBadGateway
	case KindConstraint:
		return http.StatusConflict
	case KindUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusUnprocessableEntity
	}
}

// writeErrorStatus writes an error envelope with an explicit status code.
func writeErrorStatus(w http.ResponseWriter, r *http.Request, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	api.RespondWithStatusCode(w, r, api.Error(msg), status)
}
