package store

import "errors"

// Sentinel errors surfaced by Directory implementations. Handlers match
// these with errors.Is and map them to wire error codes.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrCompanyNotFound    = errors.New("company not found")
	ErrRecordNotFound     = errors.New("record not found")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrDuplicateCompany   = errors.New("company name already exists")
	ErrDuplicateForPeriod = errors.New("record already exists for this company and reporting period")
)
