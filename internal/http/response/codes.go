package response

import "net/http"

const (
	CodeOK                 = http.StatusOK
	CodeBadRequest         = http.StatusBadRequest
	CodeUnauthorized       = http.StatusUnauthorized
	CodeNotFound           = http.StatusNotFound
	CodeUnprocessable      = http.StatusUnprocessableEntity
	CodeTooManyRequests    = http.StatusTooManyRequests
	CodeInternal           = http.StatusInternalServerError
	CodeServiceUnavailable = http.StatusServiceUnavailable
)
