package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		wantMsg        string
		wantKeyInvalid bool
	}{
		{
			name:    "nilError",
			err:     nil,
			wantMsg: "",
		},
		{
			name:    "validation",
			err:     fmt.Errorf("%w: story is empty", ErrValidation),
			wantMsg: "invalid input: story is empty",
		},
		{
			name:           "keyNotFound",
			err:            fmt.Errorf("start video: %w", errors.New("Error 404, Message: Requested entity was not found., Status: NOT_FOUND")),
			wantMsg:        keyInvalidMessage,
			wantKeyInvalid: true,
		},
		{
			name:    "emptyMessage",
			err:     errors.New(""),
			wantMsg: "An unknown error occurred.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, keyInvalid := UserMessage(tt.err)
			if msg != tt.wantMsg {
				t.Errorf("UserMessage() msg = %q, want %q", msg, tt.wantMsg)
			}
			if keyInvalid != tt.wantKeyInvalid {
				t.Errorf("UserMessage() keyInvalid = %v, want %v", keyInvalid, tt.wantKeyInvalid)
			}
		})
	}
}

func TestSentinelsWrap(t *testing.T) {
	err := fmt.Errorf("download video: %w", fmt.Errorf("%w: status 500", ErrTransport))
	if !errors.Is(err, ErrTransport) {
		t.Error("expected wrapped error to match ErrTransport")
	}
	if errors.Is(err, ErrProvider) {
		t.Error("did not expect wrapped error to match ErrProvider")
	}
}
