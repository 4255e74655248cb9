package services

import "errors"

// Sentinel errors returned across the service boundary. Controllers map
// them to the HTTP error envelope.
var (
	ErrNotFound                = errors.New("record not found")
	ErrInvalidStatus           = errors.New("invalid status")
	ErrInvalidCollectionStatus = errors.New("invalid collection status")
	ErrForbidden               = errors.New("forbidden")
)
