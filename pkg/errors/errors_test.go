package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/lib/pq"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeInvalidTransition, status: http.StatusConflict, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodeInsufficientStock, status: http.StatusConflict, publicMsg: "insufficient stock", detailsOK: true},
		{code: CodeConversionNotFound, status: http.StatusUnprocessableEntity, publicMsg: "unit conversion not found", detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "foo"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeForbidden, "no entry")
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestIsCodeMatchesWrappedChain(t *testing.T) {
	inner := New(CodeInsufficientStock, "not enough flour")
	outer := fmt.Errorf("posting sale: %w", inner)

	if !IsCode(outer, CodeInsufficientStock) {
		t.Fatalf("expected IsCode to find insufficient stock in chain")
	}
	if IsCode(outer, CodeValidation) {
		t.Fatalf("IsCode matched the wrong code")
	}
	if IsCode(nil, CodeInternal) {
		t.Fatalf("IsCode(nil) should be false")
	}
}

func TestIsCodeLooksPastOuterTypedError(t *testing.T) {
	inner := New(CodeConversionNotFound, "no kg to pcs")
	outer := Wrap(CodeInternal, fmt.Errorf("costing: %w", inner), "cost recipe")

	if !IsCode(outer, CodeConversionNotFound) {
		t.Fatalf("expected inner code to be found")
	}
	if !IsCode(outer, CodeInternal) {
		t.Fatalf("expected outer code to be found")
	}
}

func TestIsRetryable(t *testing.T) {
	if IsRetryable(New(CodeInsufficientStock, "short")) {
		t.Fatalf("insufficient stock must not be retryable")
	}
	if !IsRetryable(New(CodeDependency, "db down")) {
		t.Fatalf("dependency errors are retryable")
	}
	if !IsRetryable(stdErrors.New("untyped")) {
		t.Fatalf("untyped errors are treated as internal and retryable")
	}
}

func TestErrorStringIncludesCause(t *testing.T) {
	err := Wrap(CodeDependency, stdErrors.New("connection refused"), "load stock")
	if got := err.Error(); got != "DEPENDENCY_ERROR: load stock: connection refused" {
		t.Fatalf("unexpected error string %q", got)
	}
	if got := Newf(CodeValidation, "line %d qty", 2).Error(); got != "VALIDATION_ERROR: line 2 qty" {
		t.Fatalf("unexpected error string %q", got)
	}
}

func TestDumpReadsPostgresDiagnostics(t *testing.T) {
	pgErr := &pq.Error{Code: PGUniqueViolation, Constraint: "ux_sales_orders_no", Table: "sales_orders"}
	err := Wrap(CodeConflict, fmt.Errorf("insert: %w", pgErr), "create sales order")

	d := Dump(err)
	if d.Code != CodeConflict || d.PGCode != PGUniqueViolation || d.PGConstraint != "ux_sales_orders_no" {
		t.Fatalf("unexpected dump %+v", d)
	}
	if len(d.Chain) != 3 {
		t.Fatalf("expected 3 chain entries, got %d", len(d.Chain))
	}

	code, constraint := PGCode(err)
	if code != PGUniqueViolation || constraint != "ux_sales_orders_no" {
		t.Fatalf("unexpected PGCode result %s %s", code, constraint)
	}
}
