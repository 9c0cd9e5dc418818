package acquire

import (
	"errors"
	"fmt"
)

var (
	// ErrAcquisitionFailed wraps every acquisition failure.
	ErrAcquisitionFailed = errors.New("acquisition failed")
	// ErrDurationExceeded reports media longer than the configured ceiling.
	ErrDurationExceeded = errors.New("media exceeds maximum duration")
	// ErrUnsupportedUpload reports an upload with a disallowed extension.
	ErrUnsupportedUpload = errors.New("unsupported upload type")
	// ErrUploadTooLarge reports an upload over the size limit.
	ErrUploadTooLarge = errors.New("upload exceeds size limit")
)

func failed(err error) error {
	return fmt.Errorf("%w: %w", ErrAcquisitionFailed, err)
}
