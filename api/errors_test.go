package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-rdstation/core"
)

func TestDecodeErrorBody_FallbackChain(t *testing.T) {
	cases := []struct {
		name        string
		body        string
		kind        ErrorKind
		message     string
		description string
	}{
		{
			name:        "error list",
			body:        `{"errors":[{"error_message":"a"},{"message":"b"}]}`,
			kind:        KindErrorList,
			message:     "a, b",
			description: DefaultErrorDescription,
		},
		{
			name:        "error list entry without message",
			body:        `{"errors":[{"error_message":"a"},{}]}`,
			kind:        KindErrorList,
			message:     "a, " + UnknownDetailMessage,
			description: DefaultErrorDescription,
		},
		{
			name:        "field keyed errors",
			body:        `{"errors":{"name":[{"error_type":"TOO_LONG","error_message":"name too long"}],"email":{"error_message":"email taken"}}}`,
			kind:        KindErrorList,
			message:     "email taken, name too long",
			description: DefaultErrorDescription,
		},
		{
			name:        "oauth description",
			body:        `{"error":"invalid_token","error_description":"token expired"}`,
			kind:        KindOAuthError,
			message:     "token expired",
			description: "token expired",
		},
		{
			name:        "oauth error code",
			body:        `{"error":"invalid_token"}`,
			kind:        KindOAuthError,
			message:     "invalid_token",
			description: DefaultErrorDescription,
		},
		{
			name:        "plain message",
			body:        `{"message":"server exploded"}`,
			kind:        KindUnknown,
			message:     "server exploded",
			description: DefaultErrorDescription,
		},
		{
			name:        "empty",
			body:        `{}`,
			kind:        KindUnknown,
			message:     UnknownErrorMessage,
			description: DefaultErrorDescription,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			apiErr := decodeErrorBody(http.StatusBadRequest, []byte(tc.body))
			if apiErr.Kind != tc.kind {
				t.Fatalf("expected kind %q, got %q", tc.kind, apiErr.Kind)
			}
			if apiErr.Message != tc.message {
				t.Fatalf("expected message %q, got %q", tc.message, apiErr.Message)
			}
			if apiErr.Description != tc.description {
				t.Fatalf("expected description %q, got %q", tc.description, apiErr.Description)
			}
		})
	}
}

func TestDecodeErrorBody_NonJSON(t *testing.T) {
	apiErr := decodeErrorBody(http.StatusBadGateway, []byte("<html>bad gateway</html>"))
	if apiErr.Kind != KindUnknown || apiErr.Message != UnknownErrorMessage {
		t.Fatalf("unexpected error %+v", apiErr)
	}
	if apiErr.Description != "RD Station Marketing API Error (502 Bad Gateway)" {
		t.Fatalf("unexpected description %q", apiErr.Description)
	}
}

func TestError_ToServiceError(t *testing.T) {
	mapped := (&Error{Kind: KindOAuthError, StatusCode: http.StatusUnauthorized, Message: "token expired"}).ToServiceError()
	if mapped.Category != goerrors.CategoryAuth || mapped.TextCode != core.ErrorUnauthorized {
		t.Fatalf("unexpected mapping %q %q", mapped.Category, mapped.TextCode)
	}
	mapped = (&Error{Kind: KindUnknown, StatusCode: http.StatusNotFound, Message: "missing"}).ToServiceError()
	if mapped.Category != goerrors.CategoryNotFound || mapped.TextCode != core.ErrorNotFound {
		t.Fatalf("unexpected mapping %q %q", mapped.Category, mapped.TextCode)
	}
	mapped = transportFailure(errors.New("dial tcp"), "GET", "/x").ToServiceError()
	if mapped.Category != goerrors.CategoryExternal || mapped.TextCode != core.ErrorTransportFailure {
		t.Fatalf("unexpected transport mapping %q %q", mapped.Category, mapped.TextCode)
	}
	if mapped.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 for transport failure, got %d", mapped.Code)
	}
}

func TestDescribeError(t *testing.T) {
	if DescribeError(nil) != "" {
		t.Fatalf("expected empty description for nil")
	}
	wrapped := fmt.Errorf("item 0: %w", &Error{Message: "email is invalid"})
	if got := DescribeError(wrapped); got != "email is invalid" {
		t.Fatalf("unexpected description %q", got)
	}
	rich := goerrors.New("Invalid email format provided", goerrors.CategoryValidation)
	if got := DescribeError(rich); got != "Invalid email format provided" {
		t.Fatalf("unexpected rich description %q", got)
	}
	if got := DescribeError(errors.New("plain")); got != "plain" {
		t.Fatalf("unexpected plain description %q", got)
	}
}
