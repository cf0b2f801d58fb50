package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"wachat/internal/domain"
)

// StatusError is a non-2xx answer from the server. It unwraps to the
// matching domain sentinel so callers can use errors.Is.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusForbidden:
		return domain.ErrForbidden
	case http.StatusUnauthorized:
		return domain.ErrUnauthorized
	case http.StatusBadRequest:
		return domain.ErrInvalidInput
	case http.StatusConflict:
		return domain.ErrConflict
	}
	return nil
}

func newStatusError(resp *http.Response) *StatusError {
	e := &StatusError{Code: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	if err != nil {
		return e
	}
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		e.Message = body.Error
	}
	return e
}

func isStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
