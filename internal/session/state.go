package session

import (
	"encoding/gob"

	"github.com/lucke/calcutta-web/internal/calcapi"
	"github.com/lucke/calcutta-web/internal/util/clone"
)

// State is what the front-end knows about the current user. It is always replaced wholesale.
type State struct {
	Loading  bool
	LoggedIn bool
	Role     string
	User     *calcapi.User
}

func Loading() State {
	return State{Loading: true}
}

func LoggedOut() State {
	return State{}
}

func LoggedInAs(user *calcapi.User) State {
	if user == nil {
		return LoggedOut()
	}
	return State{
		LoggedIn: true,
		Role:     user.Role,
		User:     clone.TrivialPtr(user),
	}
}

func (s State) IsAdmin() bool {
	return s.LoggedIn && s.Role == calcapi.RoleAdmin
}

func (s State) Username() string {
	if s.User == nil {
		return ""
	}
	return s.User.Username
}

// Session is the per-browser session: the user state and the credentials of the remote API.
type Session struct {
	State State
	Creds calcapi.Credentials
}

func New() *Session {
	return &Session{State: Loading()}
}

func init() {
	gob.Register(State{})
	gob.Register(calcapi.Credentials{})
}
