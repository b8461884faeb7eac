package jobs

// Status represents the lifecycle state of a job.
type Status string

const (
	StatusReceived     Status = "RECEIVED"
	StatusPreprocessed Status = "PREPROCESSED"
	StatusRouted       Status = "ROUTED"
	StatusPlanned      Status = "PLANNED"
	StatusExecuting    Status = "EXECUTING"
	StatusVerified     Status = "VERIFIED"
	StatusActed        Status = "ACTED"
	StatusSucceeded    Status = "SUCCEEDED"
	StatusNeedsReview  Status = "NEEDS_REVIEW"
	StatusFailed       Status = "FAILED"
	StatusCancelled    Status = "CANCELLED"
)

// allowedTransitions is the legal lifecycle graph. Terminal states have no
// successors.
var allowedTransitions = map[Status]map[Status]bool{
	StatusReceived:     {StatusPreprocessed: true, StatusCancelled: true, StatusFailed: true},
	StatusPreprocessed: {StatusRouted: true, StatusCancelled: true, StatusFailed: true},
	StatusRouted:       {StatusPlanned: true, StatusCancelled: true, StatusFailed: true},
	StatusPlanned:      {StatusExecuting: true, StatusCancelled: true, StatusFailed: true},
	StatusExecuting:    {StatusVerified: true, StatusCancelled: true, StatusFailed: true},
	StatusVerified:     {StatusActed: true, StatusNeedsReview: true, StatusFailed: true},
	StatusActed:        {StatusSucceeded: true, StatusNeedsReview: true, StatusFailed: true},
	StatusNeedsReview:  {StatusExecuting: true, StatusCancelled: true, StatusFailed: true},
	StatusSucceeded:    {},
	StatusFailed:       {},
	StatusCancelled:    {},
}

// statusOrder ranks statuses along the canonical forward path. Used by the
// runner to make advancement monotone and idempotent.
var statusOrder = map[Status]int{
	StatusReceived:     10,
	StatusPreprocessed: 20,
	StatusRouted:       30,
	StatusPlanned:      40,
	StatusExecuting:    50,
	StatusVerified:     60,
	StatusActed:        70,
	StatusSucceeded:    80,
	StatusNeedsReview:  90,
	StatusFailed:       100,
}

// Valid reports whether s is a known lifecycle state.
func (s Status) Valid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// Terminal reports whether s has no outgoing transitions.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCancelled
}

// Order returns the monotone rank of s on the forward path. Unknown statuses
// rank above everything so they are never advanced past.
func (s Status) Order() int {
	if rank, ok := statusOrder[s]; ok {
		return rank
	}
	return 999
}

// TransitionError reports an illegal lifecycle move.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return "invalid transition: " + string(e.From) + " -> " + string(e.To)
}

// EnsureTransitionAllowed validates a lifecycle move against the legal graph.
func EnsureTransitionAllowed(from, to Status) error {
	if allowedTransitions[from][to] {
		return nil
	}
	return &TransitionError{From: from, To: to}
}
