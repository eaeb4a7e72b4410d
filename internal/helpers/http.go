package helpers

import (
	"net/http"

	"github.com/isometry/linear-agent-app/internal/models"
)

// RespondHTTP writes the response to rw as plain text.
// When the response carries no body, the error (if any) is used as the body.
func RespondHTTP(response models.Response, err error, rw http.ResponseWriter) {
	body := response.Body
	if body == "" && err != nil {
		body = err.Error()
	}

	statusCode := response.StatusCode
	if statusCode == 0 {
		statusCode = http.StatusOK
	}
	for k, v := range response.Headers {
		rw.Header().Set(k, v)
	}
	if rw.Header().Get("Content-Type") == "" && body != "" {
		rw.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	rw.WriteHeader(statusCode)
	_, _ = rw.Write([]byte(body))
}
