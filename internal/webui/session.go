package webui

import (
	"context"
	"encoding/gob"
	"time"

	"github.com/lucke/calcutta-web/internal/betting"
	"github.com/lucke/calcutta-web/internal/calcapi"
	"github.com/lucke/calcutta-web/internal/session"
	"github.com/lucke/calcutta-web/internal/util/slogx"
)

const (
	keyState     = "state"
	keyCreds     = "creds"
	keyCheckedAt = "checked_at"
	keyBetting   = "betting"
)

type flashKind string

const (
	flashInfo    flashKind = "info"
	flashSuccess flashKind = "success"
	flashError   flashKind = "error"
)

// flash is an alert shown once on the next rendered page.
type flash struct {
	Kind  flashKind
	Lines []string
}

func init() {
	gob.Register(flash{})
}

func loadSession(values map[any]any) *session.Session {
	sess := session.New()
	if st, ok := values[keyState].(session.State); ok {
		sess.State = st
	}
	if creds, ok := values[keyCreds].(calcapi.Credentials); ok {
		sess.Creds = creds
	}
	return sess
}

func (bc *builderCtx) save() {
	bc.store.Values[keyState] = bc.Sess.State
	bc.store.Values[keyCreds] = bc.Sess.Creds
	if err := bc.store.Save(bc.Req, bc.writer); err != nil {
		bc.Log.Error("could not save session", slogx.Err(err))
	}
}

// checkSession asks the API who the user is. This happens for new sessions and then periodically
// for logged in users.
func (bc *builderCtx) checkSession(ctx context.Context) {
	st := bc.Sess.State
	if !st.Loading {
		if !st.LoggedIn {
			return
		}
		checkedAt, _ := bc.store.Values[keyCheckedAt].(int64)
		if time.Since(time.Unix(checkedAt, 0)) < bc.Config.opts.Session.RecheckInterval {
			return
		}
	}
	prevUser := st.Username()
	bc.Config.Session.Check(ctx, bc.Sess)
	bc.store.Values[keyCheckedAt] = time.Now().Unix()
	if !bc.Sess.State.LoggedIn || bc.Sess.State.Username() != prevUser {
		bc.setBetting(betting.State{})
		return
	}
	// The balance of a fresh user record wins over the locally adjusted one.
	b := bc.betting()
	b.BalanceSet = false
	bc.setBetting(b)
}

// startSession replaces the user of the session after logging in.
func (bc *builderCtx) startSession() {
	bc.store.Values[keyCheckedAt] = time.Now().Unix()
	bc.setBetting(betting.State{})
}

// expireSession forgets the user after the API rejected the session.
func (bc *builderCtx) expireSession() {
	bc.Sess.State = session.LoggedOut()
	bc.Sess.Creds.Clear()
	bc.setBetting(betting.State{})
	bc.addFlash(flashInfo, "Your session has expired, please log in again.")
}

func (bc *builderCtx) betting() betting.State {
	if bc.store == nil {
		return betting.State{}
	}
	st, _ := bc.store.Values[keyBetting].(betting.State)
	return st
}

func (bc *builderCtx) setBetting(st betting.State) {
	bc.store.Values[keyBetting] = st
}

func (bc *builderCtx) addFlash(kind flashKind, lines ...string) {
	bc.store.AddFlash(flash{Kind: kind, Lines: lines})
}

func (bc *builderCtx) takeFlashes() []flash {
	var res []flash
	for _, f := range bc.store.Flashes() {
		if fl, ok := f.(flash); ok {
			res = append(res, fl)
		}
	}
	return res
}
