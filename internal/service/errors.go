package service

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by a workflow service wraps exactly one of these.
var (
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("conflict")
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("access denied")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

var (
	// ErrSubmissionNotFound indicates a submission could not be found.
	ErrSubmissionNotFound = fmt.Errorf("submission %w", ErrNotFound)
	// ErrBookingNotFound indicates a booking could not be found.
	ErrBookingNotFound = fmt.Errorf("booking %w", ErrNotFound)
	// ErrTestNotFound indicates the referenced test is not in the catalog.
	ErrTestNotFound = fmt.Errorf("test %w", ErrNotFound)
	// ErrFileNotFound indicates the file reference is unknown or was purged.
	ErrFileNotFound = fmt.Errorf("file %w", ErrNotFound)

	// ErrSubmissionConflict indicates another actor already moved the submission on.
	ErrSubmissionConflict = fmt.Errorf("submission was updated by someone else, refresh and retry: %w", ErrConflict)
	// ErrBookingConflict indicates the booking is no longer pending.
	ErrBookingConflict = fmt.Errorf("booking was updated by someone else, refresh and retry: %w", ErrConflict)

	// ErrRoleNotPermitted indicates the caller's role may not perform the operation.
	ErrRoleNotPermitted = fmt.Errorf("role not permitted: %w", ErrForbidden)

	// ErrStudentRequired indicates a submission was attempted without a student identity.
	ErrStudentRequired = fmt.Errorf("student id is required: %w", ErrValidation)

	// ErrInvalidMarks indicates the marks string is not of the form obtained/total.
	ErrInvalidMarks = fmt.Errorf("marks must look like <obtained>/<total> with obtained not above total: %w", ErrValidation)
	// ErrFileRequired indicates a multipart upload did not carry a file.
	ErrFileRequired = fmt.Errorf("file is required: %w", ErrValidation)
	// ErrUploadTooLarge indicates the payload exceeded the configured limit.
	ErrUploadTooLarge = fmt.Errorf("file exceeds maximum allowed size: %w", ErrValidation)
	// ErrUploadTypeNotAllowed indicates the MIME type is not permitted.
	ErrUploadTypeNotAllowed = fmt.Errorf("file type not allowed: %w", ErrValidation)

	// ErrSeedDisabled indicates catalog seeding is disabled by configuration.
	ErrSeedDisabled = fmt.Errorf("seeding is disabled: %w", ErrForbidden)
	// ErrSeedUnauthorized indicates the provided seed token is invalid.
	ErrSeedUnauthorized = fmt.Errorf("invalid seed token: %w", ErrForbidden)
)

func validationError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrValidation) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrValidation, err)
}

func storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}

// ErrUploadScanFailed indicates the archive inspection rejected the file.
var ErrUploadScanFailed = fmt.Errorf("file scanning failed: %w", ErrValidation)
