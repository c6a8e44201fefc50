package validation

import "errors"

// ErrPayloadTooLarge is returned when the request body exceeds size limits
var ErrPayloadTooLarge = errors.New("payload too large")

// ErrFileTooLarge is returned when a single file exceeds MaxFileSize
var ErrFileTooLarge = errors.New("file too large")

// ErrExtensionNotAllowed is returned when a file extension is not on the allow-list
var ErrExtensionNotAllowed = errors.New("file extension not allowed")

// ErrFilenameTooLong is returned when a filename exceeds MaxFilenameLength characters
var ErrFilenameTooLong = errors.New("filename too long")

// ErrMalformedID is returned when an identifier is not a 24-character lowercase hex string
var ErrMalformedID = errors.New("malformed identifier")
