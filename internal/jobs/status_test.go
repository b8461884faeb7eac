package jobs

import (
	"errors"
	"testing"
)

func TestEnsureTransitionAllowed(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusReceived, StatusPreprocessed, true},
		{StatusReceived, StatusCancelled, true},
		{StatusReceived, StatusFailed, true},
		{StatusReceived, StatusRouted, false},
		{StatusPreprocessed, StatusRouted, true},
		{StatusRouted, StatusPlanned, true},
		{StatusPlanned, StatusExecuting, true},
		{StatusExecuting, StatusVerified, true},
		{StatusExecuting, StatusSucceeded, false},
		{StatusVerified, StatusActed, true},
		{StatusVerified, StatusNeedsReview, true},
		{StatusVerified, StatusCancelled, false},
		{StatusActed, StatusSucceeded, true},
		{StatusActed, StatusNeedsReview, true},
		{StatusNeedsReview, StatusExecuting, true},
		{StatusSucceeded, StatusFailed, false},
		{StatusFailed, StatusReceived, false},
		{StatusCancelled, StatusExecuting, false},
	}

	for _, tc := range cases {
		err := EnsureTransitionAllowed(tc.from, tc.to)
		if tc.ok && err != nil {
			t.Errorf("%s -> %s: unexpected error %v", tc.from, tc.to, err)
		}
		if !tc.ok {
			if err == nil {
				t.Errorf("%s -> %s: expected rejection", tc.from, tc.to)
				continue
			}
			var te *TransitionError
			if !errors.As(err, &te) {
				t.Errorf("%s -> %s: expected TransitionError, got %T", tc.from, tc.to, err)
			} else if te.From != tc.from || te.To != tc.to {
				t.Errorf("error carries wrong states: %+v", te)
			}
		}
	}
}

func TestTerminalStates(t *testing.T) {
	for _, s := range []Status{StatusSucceeded, StatusFailed, StatusCancelled} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []Status{StatusReceived, StatusExecuting, StatusNeedsReview} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestStatusOrderMonotone(t *testing.T) {
	path := []Status{
		StatusReceived, StatusPreprocessed, StatusRouted, StatusPlanned,
		StatusExecuting, StatusVerified, StatusActed, StatusSucceeded,
	}
	for i := 1; i < len(path); i++ {
		if path[i].Order() <= path[i-1].Order() {
			t.Errorf("order not increasing at %s", path[i])
		}
	}
	if Status("BOGUS").Order() != 999 {
		t.Errorf("unknown status should rank last")
	}
}
