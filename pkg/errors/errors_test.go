package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForUnknownCode(t *testing.T) {
	meta := MetadataFor(Code("NOT_A_REAL_CODE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("unknown code should map to internal metadata, got %d", meta.HTTPStatus)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("query timeout")
	err := Wrap(CodeDependency, cause, "load booking")

	if err.Unwrap() != cause {
		t.Fatalf("expected wrapped cause to be preserved")
	}
	if err.Code() != CodeDependency {
		t.Fatalf("unexpected code %s", err.Code())
	}
}

func TestAsUnwrapsNestedError(t *testing.T) {
	inner := New(CodeStateConflict, "vendor decision not allowed")
	outer := fmt.Errorf("handling accept: %w", inner)

	typed := As(outer)
	if typed == nil {
		t.Fatal("expected typed error from wrapped chain")
	}
	if typed.Code() != CodeStateConflict {
		t.Fatalf("unexpected code %s", typed.Code())
	}
}

func TestNewStateConflictDiagnostic(t *testing.T) {
	err := NewStateConflict("VISITED", "ACCEPTED")

	if err.Message() != "current status VISITED, expected ACCEPTED" {
		t.Fatalf("unexpected message %q", err.Message())
	}
	details, ok := err.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected details map, got %T", err.Details())
	}
	if details["current"] != "VISITED" || details["expected"] != "ACCEPTED" {
		t.Fatalf("unexpected details %v", details)
	}
	if !IsCode(err, CodeStateConflict) {
		t.Fatal("expected state conflict code")
	}
}
