package goAuthClient

import (
	"errors"
	"fmt"
	"testing"
)

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrInvalidCredentials, MessageInvalidCredentials},
		{fmt.Errorf("%w: 401", ErrInvalidCredentials), MessageInvalidCredentials},
		{ErrMalformedResponse, MessageInvalidCredentials},
		{ErrNetwork, MessageNetwork},
		{ErrLoginRateLimited, MessageRateLimited},
		{ErrLoginInFlight, ""},
		{ErrLoginSuperseded, ""},
		{ErrStorageCorrupt, ""},
		{ErrTransientInconsistency, ""},
		{ErrStorageUnavailable, MessageGeneric},
		{errors.New("boom"), MessageGeneric},
	}

	for _, tc := range tests {
		if got := UserMessage(tc.err); got != tc.want {
			t.Fatalf("UserMessage(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
