package db

import "strings"

// IsUniqueViolation reports whether the error references a unique constraint
// violation. When constraintName is provided, the helper looks for that
// constraint in the error text. Matches both the Postgres and the sqlite
// (test harness) phrasing.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
