package core

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

type convertibleError struct {
	status int
}

func (e convertibleError) Error() string { return fmt.Sprintf("upstream status %d", e.status) }

func (e convertibleError) ToServiceError() *goerrors.Error {
	return goerrors.New(e.Error(), CategoryForStatus(e.status)).WithCode(e.status)
}

func TestMapError_AssignsStableCodes(t *testing.T) {
	mapped := MapError(stderrors.New("node: operation \"contact/merge\" is not supported"))
	if mapped.TextCode != ErrorOperationNotFound {
		t.Fatalf("expected operation not found text code, got %q", mapped.TextCode)
	}
	if mapped.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", mapped.Code)
	}

	mapped = MapError(stderrors.New("credential: no access token available"))
	if mapped.Category != goerrors.CategoryAuth || mapped.TextCode != ErrorCredentialMissing {
		t.Fatalf("expected auth credential error, got %q %q", mapped.Category, mapped.TextCode)
	}

	mapped = MapError(stderrors.New("email is required"))
	if mapped.TextCode != ErrorBadInput {
		t.Fatalf("expected bad input, got %q", mapped.TextCode)
	}
}

func TestMapError_UsesServiceErrorConverter(t *testing.T) {
	wrapped := fmt.Errorf("execute: %w", convertibleError{status: http.StatusTooManyRequests})
	mapped := MapError(wrapped)
	if mapped.Category != goerrors.CategoryRateLimit {
		t.Fatalf("expected rate limit category, got %q", mapped.Category)
	}
	if mapped.TextCode != ErrorRateLimited {
		t.Fatalf("expected rate limited text code, got %q", mapped.TextCode)
	}
	if mapped.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", mapped.Code)
	}
}

func TestMapError_KeepsRichErrors(t *testing.T) {
	rich := goerrors.New("conflict", goerrors.CategoryConflict).WithTextCode("CUSTOM")
	mapped := MapError(rich)
	if mapped.TextCode != "CUSTOM" {
		t.Fatalf("expected text code preserved, got %q", mapped.TextCode)
	}
	if mapped.Code != http.StatusConflict {
		t.Fatalf("expected conflict status, got %d", mapped.Code)
	}
	if MapError(nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
}

func TestCategoryForStatus(t *testing.T) {
	cases := map[int]goerrors.Category{
		http.StatusUnauthorized:        goerrors.CategoryAuth,
		http.StatusForbidden:           goerrors.CategoryAuthz,
		http.StatusNotFound:            goerrors.CategoryNotFound,
		http.StatusTooManyRequests:     goerrors.CategoryRateLimit,
		http.StatusUnprocessableEntity: goerrors.CategoryBadInput,
		http.StatusInternalServerError: goerrors.CategoryExternal,
	}
	for status, want := range cases {
		if got := CategoryForStatus(status); got != want {
			t.Fatalf("status %d: expected %q, got %q", status, want, got)
		}
	}
}
