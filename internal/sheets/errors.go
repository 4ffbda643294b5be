package sheets

import "errors"

var (
	// ErrNetwork covers transport failures, timeouts and non-2xx statuses.
	ErrNetwork = errors.New("table api request failed")
	// ErrMalformedResponse means the body was empty, not JSON, or had no success flag.
	ErrMalformedResponse = errors.New("table api response malformed")
	// ErrRejected means the API answered with success=false.
	ErrRejected = errors.New("table api rejected request")
)
