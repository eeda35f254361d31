package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/go-github/v73/github"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrMalformedResponse is returned when a 2xx body lacks the expected fields.
	ErrMalformedResponse = errors.New("malformed search response")

	// ErrRequestBlocked is returned when the rate limit tracker refuses a request.
	ErrRequestBlocked = errors.New("request blocked: rate limit exhausted")
)

// ErrorClass represents a classification of remote failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors other than rate limiting.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents short-lived throttling (429, secondary rate limit).
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassQuota represents an exhausted primary rate limit window.
	ErrorClassQuota ErrorClass = "quota"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassMalformed represents undecodable or incomplete payloads.
	ErrorClassMalformed ErrorClass = "malformed"
)

// FetchError is the failure outcome of a single page fetch.
type FetchError struct {
	Page       int
	StatusCode int
	ErrorClass ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("GitHub %s error on page %d (status %d): %s: %v",
			e.ErrorClass, e.Page, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("GitHub %s error on page %d (status %d): %s",
		e.ErrorClass, e.Page, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// RateLimited reports whether GitHub refused the request because of rate limiting.
func (e *FetchError) RateLimited() bool {
	return e.ErrorClass == ErrorClassRateLimit || e.ErrorClass == ErrorClassQuota
}

// Retryable reports whether the fetch may succeed when repeated.
func (e *FetchError) Retryable() bool {
	return shouldRetry(e.ErrorClass)
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassServer, ErrorClassRateLimit, ErrorClassNetwork:
		return true
	case ErrorClassClient, ErrorClassQuota, ErrorClassMalformed:
		// Repeating these only burns quota
		return false
	default:
		return false
	}
}

// classifyError maps errors returned by go-github to an ErrorClass and
// the HTTP status code, when one is known.
func classifyError(err error) (ErrorClass, int) {
	var (
		rateErr     *github.RateLimitError
		abuseErr    *github.AbuseRateLimitError
		acceptedErr *github.AcceptedError
		respErr     *github.ErrorResponse
		syntaxErr   *json.SyntaxError
		typeErr     *json.UnmarshalTypeError
	)

	switch {
	case errors.As(err, &rateErr):
		return ErrorClassQuota, statusOf(rateErr.Response)
	case errors.As(err, &abuseErr):
		return ErrorClassRateLimit, statusOf(abuseErr.Response)
	case errors.As(err, &acceptedErr):
		// 202: GitHub is still computing the result
		return ErrorClassServer, http.StatusAccepted
	case errors.As(err, &respErr):
		status := statusOf(respErr.Response)
		switch {
		case status == http.StatusTooManyRequests:
			return ErrorClassRateLimit, status
		case status >= 500:
			return ErrorClassServer, status
		case status >= 400:
			return ErrorClassClient, status
		default:
			return ErrorClassMalformed, status
		}
	case errors.As(err, &syntaxErr),
		errors.As(err, &typeErr),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, ErrMalformedResponse):
		return ErrorClassMalformed, http.StatusOK
	case errors.Is(err, ErrRequestBlocked):
		return ErrorClassQuota, 0
	default:
		return ErrorClassNetwork, 0
	}
}

func statusOf(resp *http.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}
