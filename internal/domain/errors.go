package domain

import "errors"

var (
	ErrKeyNotFound = errors.New("key not found")

	ErrMalformedPayload = errors.New("malformed payload")
	ErrUnknownFormat    = errors.New("unknown payload format")
	ErrPayloadTooLarge  = errors.New("payload exceeds size budget")
	ErrOutOfRange       = errors.New("field out of range")
	ErrInconsistent     = errors.New("inconsistent payload")

	ErrHardwareUnavailable = errors.New("hardware facts unavailable")
	ErrCacheUnreadable     = errors.New("hardware cache unreadable")
)
