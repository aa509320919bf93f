package models

// Storage slots owned by the session manager. No other component may
// read or write these keys.
const (
	StorageKeyToken     = "auth_token"
	StorageKeySessionID = "session_id"
	StorageKeyUser      = "user"
)

// StorageKeys lists every slot cleared when a session is destroyed.
var StorageKeys = []string{
	StorageKeyToken,
	StorageKeySessionID,
	StorageKeyUser,
}

// Credential is the bearer pair issued by the identity service
type Credential struct {
	AccessToken string `json:"token" yaml:"token"`
	SessionID   string `json:"session_id" yaml:"session_id"`
}

func (c Credential) HasToken() bool {
	return len(c.AccessToken) > 0
}

// IdentityResponse is the body returned by the "who am I" endpoint.
type IdentityResponse struct {
	User UserProfile `json:"user"`
}

// LoginRequest is posted by the dashboard login form once the caller has
// obtained a credential from the identity service.
type LoginRequest struct {
	Token     string      `json:"token" form:"token" binding:"required"`
	SessionID string      `json:"session_id" form:"session_id"`
	User      UserProfile `json:"user" binding:"required"`
}

func (r LoginRequest) Credential() Credential {
	return Credential{
		AccessToken: r.Token,
		SessionID:   r.SessionID,
	}
}
