package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "github.com/angelmondragon/tripcrew-backend/pkg/errors"
	"github.com/angelmondragon/tripcrew-backend/pkg/logger"
)

// ErrorBody is the JSON document of every non-2xx response.
type ErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// encodeFailure is sent when a success payload cannot be encoded.
var encodeFailure = []byte(`{"message":"internal server error","code":"INTERNAL_ERROR"}` + "\n")

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

// WriteSuccessStatus writes data as the bare JSON body with status.
func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		send(w, http.StatusInternalServerError, encodeFailure)
		return
	}
	send(w, status, append(body, '\n'))
}

// WriteError maps err onto a status and ErrorBody. Errors without a code are
// reported as INTERNAL_ERROR and their text stays in the logs.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())

	if logg != nil {
		logError(ctx, logg, err, meta.HTTPStatus)
	}

	body := ErrorBody{Message: meta.PublicMessage, Code: string(typed.Code())}
	if meta.ExposeMessage && typed.Message() != "" {
		body.Message = typed.Message()
	}
	if meta.DetailsAllowed {
		body.Details = typed.Details()
	}
	encoded, encErr := json.Marshal(body)
	if encErr != nil {
		send(w, http.StatusInternalServerError, encodeFailure)
		return
	}
	send(w, meta.HTTPStatus, append(encoded, '\n'))
}

func logError(ctx context.Context, logg *logger.Logger, err error, status int) {
	fields := pkgerrors.LogFields(err)
	fields["http_status"] = status
	ctx = logg.WithFields(ctx, fields)
	if status >= http.StatusInternalServerError {
		logg.Error(ctx, "request.error", err)
		return
	}
	logg.Warn(ctx, "request.error")
}

func send(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
