package session

type Access int

const (
	AccessPublic Access = iota
	AccessLoggedIn
	AccessAdmin
)

type Verdict int

const (
	VerdictAllow Verdict = iota
	// The state is not resolved yet; a placeholder must be shown.
	VerdictWait
	// Not logged in; the user is sent to the login page.
	VerdictRedirectLogin
	// Not permitted; access denied is shown in place.
	VerdictDeny
)

func (v Verdict) String() string {
	switch v {
	case VerdictAllow:
		return "allow"
	case VerdictWait:
		return "wait"
	case VerdictRedirectLogin:
		return "redirect-login"
	case VerdictDeny:
		return "deny"
	default:
		panic("bad verdict")
	}
}

// Guard decides whether a view requiring the given access may be rendered. Unauthenticated users
// are redirected from logged-in views, while admin views deny in place.
func (s State) Guard(a Access) Verdict {
	if a == AccessPublic {
		return VerdictAllow
	}
	if s.Loading {
		return VerdictWait
	}
	switch a {
	case AccessLoggedIn:
		if !s.LoggedIn {
			return VerdictRedirectLogin
		}
		return VerdictAllow
	case AccessAdmin:
		if !s.IsAdmin() {
			return VerdictDeny
		}
		return VerdictAllow
	default:
		panic("bad access")
	}
}
