package domain

import (
	"fmt"
)

type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError carrying the same code, so a sentinel still
// matches after WithError produced a copy of it.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Err:        err,
	}
}

// Pre-defined errors
var (
	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		StatusCode: 500,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: 400,
	}

	ErrUnauthorized = &AppError{
		Code:       "UNAUTHORIZED",
		Message:    "Invalid or missing API key",
		StatusCode: 401,
	}

	ErrRateLimitExceeded = &AppError{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "Too many requests, slow down",
		StatusCode: 429,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: 404,
	}

	ErrValidationFailed = &AppError{
		Code:       "VALIDATION_FAILED",
		Message:    "Request validation failed",
		StatusCode: 422,
	}

	ErrInvalidImage = &AppError{
		Code:       "INVALID_IMAGE",
		Message:    "Invalid image format or corrupted file",
		StatusCode: 422,
	}

	ErrNoFaceDetected = &AppError{
		Code:       "NO_FACE_DETECTED",
		Message:    "No face detected in the image",
		StatusCode: 422,
	}

	ErrMultipleFaces = &AppError{
		Code:       "MULTIPLE_FACES",
		Message:    "More than one face detected in the image",
		StatusCode: 422,
	}

	// Capture device errors
	ErrDeviceUnavailable = &AppError{
		Code:       "DEVICE_UNAVAILABLE",
		Message:    "Capture device is missing or already in use",
		StatusCode: 503,
	}

	ErrCaptureFailed = &AppError{
		Code:       "CAPTURE_FAILED",
		Message:    "Failed to read a frame from the capture device",
		StatusCode: 503,
	}

	// Recognition errors
	ErrExtractionFailed = &AppError{
		Code:       "EXTRACTION_FAILED",
		Message:    "Failed to extract a face embedding",
		StatusCode: 502,
	}

	ErrDimensionMismatch = &AppError{
		Code:       "DIMENSION_MISMATCH",
		Message:    "Embedding dimensions do not match",
		StatusCode: 422,
	}

	// Session errors
	ErrSessionTimedOut = &AppError{
		Code:       "SESSION_TIMED_OUT",
		Message:    "No face was recognized before the session deadline",
		StatusCode: 408,
	}

	ErrSessionNotFound = &AppError{
		Code:       "SESSION_NOT_FOUND",
		Message:    "Session not found or already consumed",
		StatusCode: 404,
	}

	ErrSessionNotTerminal = &AppError{
		Code:       "SESSION_NOT_TERMINAL",
		Message:    "Session has not reached a final state yet",
		StatusCode: 409,
	}

	ErrTooManySessions = &AppError{
		Code:       "TOO_MANY_SESSIONS",
		Message:    "Maximum number of concurrent sessions reached",
		StatusCode: 429,
	}

	// Enrollment errors
	ErrEmptyGallery = &AppError{
		Code:       "EMPTY_GALLERY",
		Message:    "No identities are enrolled",
		StatusCode: 409,
	}

	ErrIdentityNotFound = &AppError{
		Code:       "IDENTITY_NOT_FOUND",
		Message:    "Identity not found",
		StatusCode: 404,
	}

	ErrIdentityExists = &AppError{
		Code:       "IDENTITY_EXISTS",
		Message:    "An identity with this external ID already exists",
		StatusCode: 409,
	}

	ErrNotEnoughImages = &AppError{
		Code:       "NOT_ENOUGH_IMAGES",
		Message:    "Not enough face images to enroll the identity",
		StatusCode: 422,
	}
)
