// Package errs provides the error taxonomy of the dispatch service.
//
// Every error type follows one pattern: a sentinel (ErrObjectNotFound, ErrValueIsInvalid,
// ErrConflict, ...), a struct carrying the details, New... constructors with and without a
// cause, and an Unwrap that returns the sentinel. Inbound adapters classify failures with
// errors.Is against the sentinels only.
//
// Mapping to the delivery taxonomy:
//   - ObjectNotFoundError: order, session or partner absent
//   - ValueIsInvalidError, ValueIsOutOfRangeError, ValueIsRequiredError: validation,
//     illegal state transitions, terminal-state violations
//   - ConflictError: partner already busy, OTP already used, duplicate session
//   - ExpiredError: OTP past its expiry
//   - UnauthorizedError: missing or invalid credential
//   - PersistenceError: durable write failed
//   - VersionIsInvalidError: optimistic-lock mismatch on a stored document
package errs
