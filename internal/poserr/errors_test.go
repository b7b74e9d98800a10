package poserr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestFromStatusMapsCodes(t *testing.T) {
	cases := []struct {
		status int
		want   Code
	}{
		{http.StatusUnauthorized, CodeUnauthorized},
		{http.StatusNotFound, CodeNotFound},
		{http.StatusBadRequest, CodeAPI},
		{http.StatusInternalServerError, CodeAPI},
	}
	for _, tc := range cases {
		err := FromStatus(tc.status, "boom")
		if err.Code() != tc.want {
			t.Fatalf("status %d: expected %s, got %s", tc.status, tc.want, err.Code())
		}
		if err.Status() != tc.status {
			t.Fatalf("expected status %d, got %d", tc.status, err.Status())
		}
	}
}

func TestFromStatusFallsBackToHTTPMessage(t *testing.T) {
	err := FromStatus(http.StatusBadGateway, "")
	if err.Message() != "HTTP 502" {
		t.Fatalf("expected generic message, got %q", err.Message())
	}
}

func TestIsWalksWrappedChain(t *testing.T) {
	base := New(CodePrecondition, "stock not enough")
	wrapped := fmt.Errorf("add line: %w", base)
	if !Is(wrapped, CodePrecondition) {
		t.Fatalf("expected precondition code through wrap")
	}
	if Is(errors.New("plain"), CodePrecondition) {
		t.Fatalf("plain error must not match")
	}
	if UserMessage(wrapped) != "stock not enough" {
		t.Fatalf("unexpected user message %q", UserMessage(wrapped))
	}
}

func TestLocalCodesAreNotSent(t *testing.T) {
	if !MetadataFor(CodeValidation).Local || !MetadataFor(CodePrecondition).Local {
		t.Fatalf("validation and precondition errors are local")
	}
	if MetadataFor(CodeAPI).Local {
		t.Fatalf("api errors come from the backend")
	}
	if !MetadataFor(Code("unknown")).Retryable {
		t.Fatalf("unknown codes fall back to internal metadata")
	}
}
