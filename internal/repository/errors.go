package repository

import "fmt"

type CredentialNotFoundError struct {
	Account  string
	Category string
}

func (e *CredentialNotFoundError) Error() string {
	if e.Account != "" {
		return fmt.Sprintf("no credential for account %q", e.Account)
	}
	return fmt.Sprintf("no credential for category %q", e.Category)
}

type ParseError struct {
	RecordID string
	Field    string
	Value    string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("record %s: cannot parse %s %q: %v", e.RecordID, e.Field, e.Value, e.Err)
}
func (e *ParseError) Unwrap() error { return e.Err }
