package apperr

import (
	"errors"
	"strings"
)

var (
	ErrValidation = errors.New("invalid input")
	ErrConfig     = errors.New("configuration error")
	ErrProvider   = errors.New("provider error")
	ErrTransport  = errors.New("transport error")
)

// KeyNotFoundMarker is what the provider reports when the API key (or the
// entity it points at) no longer exists.
const KeyNotFoundMarker = "Requested entity was not found"

const keyInvalidMessage = "API Key not found or invalid. Please select a valid API key for video generation."

// IsKeyNotFound reports whether err means the credential must be re-selected.
func IsKeyNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), KeyNotFoundMarker)
}

// UserMessage converts err into the text shown inline to the user. The second
// return value is true when the credential should be flagged as unset.
func UserMessage(err error) (string, bool) {
	if err == nil {
		return "", false
	}
	if IsKeyNotFound(err) {
		return keyInvalidMessage, true
	}
	msg := err.Error()
	if msg == "" {
		return "An unknown error occurred.", false
	}
	return msg, false
}
