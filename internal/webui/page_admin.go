package webui

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/lucke/calcutta-web/internal/calcapi"
	"github.com/lucke/calcutta-web/internal/journal"
	"github.com/lucke/calcutta-web/internal/session"
	"github.com/lucke/calcutta-web/internal/util/slogx"
)

type adminData struct {
	Events []calcapi.Event
	Recent []journal.Entry
	Failed bool
}

type adminDataBuilder struct{}

func (adminDataBuilder) Build(ctx context.Context, bc *builderCtx) (any, error) {
	data := &adminData{}
	events, err := bc.Config.Admin.ListEvents(ctx, &bc.Sess.Creds)
	if err != nil {
		if calcapi.IsUnauthorized(err) {
			return nil, err
		}
		bc.Log.Warn("could not list events", slogx.Err(err))
		data.Failed = true
	}
	data.Events = events
	recent, err := bc.Config.Journal.Recent(ctx)
	if err != nil {
		bc.Log.Warn("could not list recent actions", slogx.Err(err))
	}
	data.Recent = recent
	return data, nil
}

func adminPage(log *slog.Logger, cfg *Config, templ *templator) (http.Handler, error) {
	return newPage(log, cfg, pageOptions{Access: session.AccessAdmin, Title: "Admin"}, templ, adminDataBuilder{}, "admin")
}

type adminAction int

const (
	actionCloseEvent adminAction = iota
	actionEventWinner
	actionCloseSubEvent
	actionSubEventWinner
)

func (a adminAction) String() string {
	switch a {
	case actionCloseEvent:
		return "close-event"
	case actionEventWinner:
		return "event-winner"
	case actionCloseSubEvent:
		return "close-sub-event"
	case actionSubEventWinner:
		return "sub-event-winner"
	default:
		panic("must not happen")
	}
}

func (a adminAction) what() string {
	switch a {
	case actionCloseEvent:
		return "Closing the event"
	case actionEventWinner:
		return "Declaring the winner"
	case actionCloseSubEvent:
		return "Closing the sub-event"
	case actionSubEventWinner:
		return "Declaring the sub-event winner"
	default:
		panic("must not happen")
	}
}

func (a adminAction) onSubEvent() bool {
	return a == actionCloseSubEvent || a == actionSubEventWinner
}

type adminActionDataBuilder struct {
	action adminAction
}

func (b adminActionDataBuilder) Build(ctx context.Context, bc *builderCtx) (any, error) {
	if err := bc.parseForm(); err != nil {
		return nil, err
	}
	eventID, err := bc.pathID("eventID")
	if err != nil {
		return nil, err
	}
	target := eventID
	var subEventID calcapi.ID
	if b.action.onSubEvent() {
		if subEventID, err = bc.pathID("subEventID"); err != nil {
			return nil, err
		}
		target = subEventID
	}
	contestantID := calcapi.ID(bc.formValue("contestant"))

	svc := bc.Config.Admin
	creds := &bc.Sess.Creds
	var lines []string
	err = bc.perform(ctx, b.action.String(), target, func(ctx context.Context) error {
		switch b.action {
		case actionCloseEvent:
			lines = []string{"Event closed"}
			return svc.CloseEvent(ctx, creds, eventID)
		case actionEventWinner:
			lines = []string{"Winner declared"}
			return svc.DeclareWinner(ctx, creds, eventID, contestantID)
		case actionCloseSubEvent:
			payout, err := svc.CloseSubEvent(ctx, creds, eventID, subEventID)
			if err != nil {
				return err
			}
			lines = payout.Text()
			return nil
		case actionSubEventWinner:
			lines = []string{"Sub-event winner declared"}
			return svc.DeclareSubWinner(ctx, creds, eventID, subEventID, contestantID)
		default:
			panic("must not happen")
		}
	})
	if err != nil {
		if err := bc.flashFailure(b.action.what(), err); err != nil {
			return nil, err
		}
		return nil, bc.Redirect("/admin")
	}
	bc.addFlash(flashSuccess, lines...)
	return nil, bc.Redirect("/admin")
}

func adminActionPage(log *slog.Logger, cfg *Config, templ *templator, action adminAction) (http.Handler, error) {
	return newPage(log, cfg, pageOptions{Access: session.AccessAdmin}, templ, adminActionDataBuilder{action: action}, "")
}
