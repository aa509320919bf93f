package sessions

import (
	"time"

	"github.com/pipedeck/console/internal/models"
)

type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseInitializing
	PhaseAuthenticated
	PhaseUnauthenticated
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseInitializing:
		return "initializing"
	case PhaseAuthenticated:
		return "authenticated"
	case PhaseUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// State is the reactive value handed to views.
type State struct {
	User      models.UserProfile `json:"user"`
	IsLoading bool               `json:"is_loading"`
	Phase     Phase              `json:"-"`
	UpdatedAt time.Time          `json:"updated_at"`
}

func (s State) IsAuthenticated() bool {
	return s.User != nil
}

// Outcome names how an operation settled.
type Outcome int

const (
	OutcomeAuthenticated Outcome = iota
	OutcomeNoCredential
	OutcomeInvalidated
	OutcomeTransportFailure
	OutcomeMalformedProfile
	OutcomeLoggedOut
	OutcomeStorageFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAuthenticated:
		return "authenticated"
	case OutcomeNoCredential:
		return "no_credential"
	case OutcomeInvalidated:
		return "invalidated"
	case OutcomeTransportFailure:
		return "transport_failure"
	case OutcomeMalformedProfile:
		return "malformed_profile"
	case OutcomeLoggedOut:
		return "logged_out"
	case OutcomeStorageFailure:
		return "storage_failure"
	default:
		return "unknown"
	}
}

// Result reports how an operation settled. Err carries the recovered
// failure, if any, for diagnostics; it never means the operation was
// abandoned.
type Result struct {
	Outcome Outcome
	State   State
	Err     error
}

func (r Result) Failed() bool {
	return r.Err != nil
}

// Failure is the last recovered error observed by a manager.
type Failure struct {
	Operation string
	Outcome   Outcome
	Err       error
	At        time.Time
}

func (f Failure) Error() string {
	return f.Operation + ": " + f.Err.Error()
}

func (f Failure) Unwrap() error {
	return f.Err
}
