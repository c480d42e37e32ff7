package httputil

import (
	"net/http"

	"github.com/redmonkez12/natours-api/internal/apperror"
	"github.com/redmonkez12/natours-api/internal/logging"
)

const genericMessage = "Something went wrong"

// ErrorResponse is the body written for failed requests.
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Error   string `json:"error,omitempty"`
	Stack   string `json:"stack,omitempty"`
}

// ErrorWriter renders errors according to the deployment mode.
//
// In development every error is shown in full. In production only
// operational errors expose their message; the rest answer with a generic
// message and are logged with their cause and stack.
type ErrorWriter struct {
	production bool
}

func NewErrorWriter(isProduction bool) *ErrorWriter {
	return &ErrorWriter{production: isProduction}
}

// Write sends err to the client.
func (ew *ErrorWriter) Write(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperror.From(err)
	logger := logging.GetLoggerFromContext(r.Context())

	status := appErr.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}

	if !appErr.Operational || appErr.Kind == apperror.KindUpstream {
		logger.Error("request failed",
			"kind", appErr.Kind,
			"error", appErr.Error(),
			"stack", string(appErr.Stack),
		)
	}

	RespondJSON(w, ew.body(appErr, status), status)
}

func (ew *ErrorWriter) body(appErr *apperror.Error, status int) ErrorResponse {
	resp := ErrorResponse{
		Status: statusText(status),
		Field:  appErr.Field,
	}

	if !ew.production {
		resp.Message = appErr.Message
		if resp.Message == "" {
			resp.Message = appErr.Error()
		}
		resp.Kind = string(appErr.Kind)
		if appErr.Err != nil {
			resp.Error = appErr.Err.Error()
		}
		resp.Stack = string(appErr.Stack)
		return resp
	}

	if appErr.Operational {
		resp.Message = appErr.Message
		return resp
	}

	resp.Status = "error"
	resp.Field = ""
	resp.Message = genericMessage
	return resp
}

// NotFoundHandler answers unmatched routes through the error writer.
func (ew *ErrorWriter) NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ew.Write(w, r, apperror.NotFound("Can't find %s on this server", r.URL.Path))
	}
}

func statusText(status int) string {
	if status >= 400 && status < 500 {
		return "fail"
	}
	return "error"
}
