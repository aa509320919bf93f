package models

type ErrorResponse struct {
	Code     int    `json:"code"`
	Title    string `json:"title"`
	Message  string `json:"message"`
	Location string `json:"location,omitempty"`
}

type HealthState string

const (
	HealthStatusHealthy HealthState = "healthy"
)

type HealthResponse struct {
	Status        HealthState `json:"status"`
	Timestamp     string      `json:"timestamp"`
	Version       string      `json:"version"`
	Uptime        string      `json:"uptime"`
	TotalRequests int64       `json:"total_requests"`
}

// SessionResponse describes the caller's session as seen by the dashboard.
type SessionResponse struct {
	Authenticated bool        `json:"authenticated"`
	Loading       bool        `json:"loading"`
	Phase         string      `json:"phase"`
	User          UserProfile `json:"user,omitempty"`
	Name          string      `json:"name,omitempty"`
	LastError     string      `json:"last_error,omitempty"`
}
