package db

import (
	"strings"

	pkgerrors "github.com/angelmondragon/kitchenledger-backend/pkg/errors"
)

// IsUniqueViolation reports whether err is a unique constraint failure.
// Postgres errors are matched on SQLSTATE; sqlite only exposes message text.
// A non-empty constraintName narrows the match to that constraint.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	if code, constraint := pkgerrors.PGCode(err); code != "" {
		return code == pkgerrors.PGUniqueViolation && (constraintName == "" || constraint == constraintName)
	}
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") && !strings.Contains(msg, "duplicate key value") {
		return false
	}
	return constraintName == "" || strings.Contains(msg, constraintName)
}
