package sessions

import "github.com/pipedeck/console/internal/metrics"

// LoginPath is where unauthenticated visitors of a protected view are sent.
const LoginPath = "/login"

type Action int

const (
	ActionLoading Action = iota
	ActionRedirect
	ActionRender
)

func (a Action) String() string {
	switch a {
	case ActionLoading:
		return "loading"
	case ActionRedirect:
		return "redirect"
	case ActionRender:
		return "render"
	default:
		return "unknown"
	}
}

// Decision tells the surrounding framework what a protected view should do.
// Location is only set for ActionRedirect.
type Decision struct {
	Action   Action
	Location string
}

// Gate decides how a protected view renders for state. A manager that has
// not started initializing is treated as loading.
func Gate(state State) Decision {

	var decision Decision

	switch {
	case state.IsLoading || state.Phase == PhaseUninitialized || state.Phase == PhaseInitializing:
		decision = Decision{Action: ActionLoading}
	case !state.IsAuthenticated():
		decision = Decision{Action: ActionRedirect, Location: LoginPath}
	default:
		decision = Decision{Action: ActionRender}
	}

	metrics.GateDecisionsTotal.WithLabelValues(decision.Action.String()).Inc()

	return decision
}

// Gate evaluates the current state. It is never cached, so a session
// invalidated between two calls redirects on the next one.
func (m *Manager) Gate() Decision {
	return Gate(m.State())
}
