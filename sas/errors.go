package sas

import "fmt"

// InvalidRequestError is returned when the signing service rejects a token
// request outright (4xx): an unknown container, a bad subscription key, and
// so on. These failures are not retried.
type InvalidRequestError struct {
	Account    string
	Container  string
	StatusCode int
	Message    string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("signing request for %s/%s rejected (status %d): %s",
		e.Account, e.Container, e.StatusCode, e.Message)
}

// SigningServiceError is returned when the signing service is unreachable or
// failing (5xx, timeout, connection error) after the retry budget is
// exhausted.
type SigningServiceError struct {
	Account   string
	Container string
	Err       error
}

func (e *SigningServiceError) Error() string {
	return fmt.Sprintf("signing service failed for %s/%s: %v",
		e.Account, e.Container, e.Err)
}

func (e *SigningServiceError) Unwrap() error {
	return e.Err
}
