package domain

// UserIdentity is the authenticated user attached to the current session.
type UserIdentity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Session is the authenticated state handed out by the service on login: the
// identity plus an opaque bearer credential attached to every request.
type Session struct {
	User  UserIdentity `json:"user"`
	Token string       `json:"token"`
}
