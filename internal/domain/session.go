package domain

// Session identifies the current server and user. Every offline-repository
// call and every scoped cache-store query is filtered by it. Set at session
// start, cleared at logout; never ambient global state.
type Session struct {
	ServerID string
	UserID   string
}

// Valid reports whether the session is bound to a server
func (s Session) Valid() bool {
	return s.ServerID != ""
}
