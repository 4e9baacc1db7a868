package attrcache

import "errors"

// Sentinel errors. Returned errors wrap these so callers can match them with
// errors.Is.
var (
	ErrConfiguration         = errors.New("attrcache: invalid configuration")
	ErrTypeMismatch          = errors.New("attrcache: subject type mismatch")
	ErrSubjectTypeUnresolved = errors.New("attrcache: subject type unresolved")
	ErrNilSubject            = errors.New("attrcache: subject is nil")
	ErrUnknownField          = errors.New("attrcache: unknown subject field")
)
