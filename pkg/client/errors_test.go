package client

import (
	"errors"
	"io"
	"testing"
)

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name       string
		errorClass ErrorClass
		expected   bool
	}{
		{
			name:       "client error should not retry",
			errorClass: ErrorClassClient,
			expected:   false,
		},
		{
			name:       "server error should retry",
			errorClass: ErrorClassServer,
			expected:   true,
		},
		{
			name:       "rate limit should retry",
			errorClass: ErrorClassRateLimit,
			expected:   true,
		},
		{
			name:       "network error should retry",
			errorClass: ErrorClassNetwork,
			expected:   true,
		},
		{
			name:       "decode error should not retry",
			errorClass: ErrorClassDecode,
			expected:   false,
		},
		{
			name:       "empty error class should not retry",
			errorClass: "",
			expected:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := shouldRetry(tt.errorClass)
			if result != tt.expected {
				t.Errorf("shouldRetry(%q) = %v, want %v", tt.errorClass, result, tt.expected)
			}
		})
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		expected   ErrorClass
	}{
		{name: "success 200", statusCode: 200, expected: ""},
		{name: "client error 404", statusCode: 404, expected: ErrorClassClient},
		{name: "client error 400", statusCode: 400, expected: ErrorClassClient},
		{name: "rate limit 429", statusCode: 429, expected: ErrorClassRateLimit},
		{name: "server error 500", statusCode: 500, expected: ErrorClassServer},
		{name: "server error 503", statusCode: 503, expected: ErrorClassServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := classifyStatus(tt.statusCode)
			if result != tt.expected {
				t.Errorf("classifyStatus(%d) = %q, want %q", tt.statusCode, result, tt.expected)
			}
		})
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorClass
	}{
		{name: "nil", err: nil, expected: ""},
		{name: "network error", err: io.EOF, expected: ErrorClassNetwork},
		{
			name:     "storefront error",
			err:      &StorefrontError{StatusCode: 429, ErrorClass: ErrorClassRateLimit},
			expected: ErrorClassRateLimit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := classifyError(tt.err)
			if result != tt.expected {
				t.Errorf("classifyError() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestStorefrontError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *StorefrontError
		expected string
	}{
		{
			name: "error with wrapped error",
			err: &StorefrontError{
				StatusCode: 200,
				ErrorClass: ErrorClassDecode,
				Message:    "invalid page body",
				Err:        errors.New("unexpected EOF"),
			},
			expected: "storefront decode error (status 200): invalid page body: unexpected EOF",
		},
		{
			name: "error without wrapped error",
			err: &StorefrontError{
				StatusCode: 404,
				ErrorClass: ErrorClassClient,
				Message:    "not found",
			},
			expected: "storefront client error (status 404): not found",
		},
		{
			name: "rate limit error",
			err: &StorefrontError{
				StatusCode: 429,
				ErrorClass: ErrorClassRateLimit,
				Message:    "429 Too Many Requests",
			},
			expected: "storefront rate_limit error (status 429): 429 Too Many Requests",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.err.Error()
			if result != tt.expected {
				t.Errorf("Error() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestStorefrontError_Unwrap(t *testing.T) {
	wrappedErr := errors.New("wrapped error")
	sfErr := &StorefrontError{
		StatusCode: 500,
		ErrorClass: ErrorClassServer,
		Message:    "server error",
		Err:        wrappedErr,
	}

	if sfErr.Unwrap() != wrappedErr {
		t.Errorf("Unwrap() = %v, want %v", sfErr.Unwrap(), wrappedErr)
	}
	if !errors.Is(sfErr, wrappedErr) {
		t.Error("errors.Is should work with wrapped error")
	}

	if (&StorefrontError{StatusCode: 404}).Unwrap() != nil {
		t.Error("Unwrap() should be nil without a wrapped error")
	}
}
