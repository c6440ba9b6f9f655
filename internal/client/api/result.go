package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
)

// Result is the normalised outcome of every call.
type Result struct {
	Success bool
	// Data is the raw response body on success
	Data    json.RawMessage
	Status  int
	Headers http.Header
	Error   *Error

	// RequiresReauth is set on 401; the stored token is already gone
	RequiresReauth bool
}

var errNoData = errors.New("response has no data")

// Error describes a failed call. Status is 0 for transport failures.
type Error struct {
	Message string          `json:"message"`
	Code    string          `json:"code,omitempty"`
	Status  int             `json:"status,omitempty"`
	Details json.RawMessage `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// Decode unmarshals the payload into v. A {"success":..,"data":..} envelope is
// unwrapped first, any other body is decoded as is.
func (r Result) Decode(v any) error {
	if !r.Success {
		if r.Error == nil {
			return errNoData
		}
		return r.Error
	}
	if len(r.Data) == 0 {
		return errNoData
	}

	var env struct {
		Success *bool           `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(r.Data, &env); err == nil && env.Success != nil {
		if len(env.Data) == 0 || string(env.Data) == "null" {
			return errNoData
		}
		return json.Unmarshal(env.Data, v)
	}
	return json.Unmarshal(r.Data, v)
}

type requestOptions struct {
	headers http.Header
	query   url.Values
}

// RequestOption adjusts a single request
type RequestOption func(*requestOptions)

func WithQuery(q url.Values) RequestOption {
	return func(o *requestOptions) { o.query = q }
}

func WithHeader(key, value string) RequestOption {
	return func(o *requestOptions) { o.headers.Add(key, value) }
}
