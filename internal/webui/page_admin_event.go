package webui

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/lucke/calcutta-web/internal/calcapi"
	"github.com/lucke/calcutta-web/internal/draft"
	"github.com/lucke/calcutta-web/internal/session"
	"github.com/lucke/calcutta-web/internal/util/httputil"
	"github.com/lucke/calcutta-web/internal/util/slogx"
)

const resizedNotice = "The number of contestants has changed. Fill in the contestants and submit again."

type adminEventData struct {
	Draft    draft.Event
	Problems []string
}

func (d *adminEventData) Editing() bool   { return !d.Draft.ID.IsZero() }
func (d *adminEventData) CanSubmit() bool { return d.Draft.CanSubmit() }

// adminEventDataBuilder serves the event builder. The draft lives in the form, so every button
// posts the whole form back and the page is rendered again with the changed draft. Only the
// submit button talks to the API.
type adminEventDataBuilder struct {
	edit bool
}

func (b adminEventDataBuilder) Build(ctx context.Context, bc *builderCtx) (any, error) {
	var eventID calcapi.ID
	if b.edit {
		var err error
		if eventID, err = bc.pathID("eventID"); err != nil {
			return nil, err
		}
	}

	if bc.Req.Method == http.MethodGet {
		if !b.edit {
			return &adminEventData{Draft: draft.New().AddSubEvent()}, nil
		}
		d, err := bc.Config.Admin.EditDraft(ctx, &bc.Sess.Creds, eventID)
		if err != nil {
			if err := bc.flashFailure("Loading the event", err); err != nil {
				return nil, err
			}
			return nil, bc.Redirect("/admin")
		}
		return &adminEventData{Draft: d}, nil
	}

	if err := bc.parseForm(); err != nil {
		return nil, err
	}
	d, problems, err := draft.ParseForm(bc.Req.PostForm)
	if err != nil {
		bc.Log.Info("bad draft form", slogx.Err(err))
		return nil, httputil.MakeBadRequest("bad event form")
	}
	d.ID = eventID
	action, err := draft.ParseAction(bc.Req.PostFormValue("action"))
	if err != nil {
		return nil, httputil.MakeBadRequest("bad action")
	}
	data := &adminEventData{Draft: d, Problems: problems}
	if action.Kind != draft.ActionSubmit {
		if data.Draft, err = d.Apply(action); err != nil {
			return nil, httputil.MakeBadRequest("bad action")
		}
		return data, nil
	}
	if d.Resized(bc.Req.PostForm) {
		data.Problems = append(data.Problems, resizedNotice)
	}
	if len(data.Problems) != 0 {
		return data, nil
	}

	kind, what, done := "create-event", "Creating the event", "Event created"
	if b.edit {
		kind, what, done = "update-event", "Saving the event", "Event saved"
	}
	err = bc.perform(ctx, kind, eventID, func(ctx context.Context) error {
		if b.edit {
			return bc.Config.Admin.UpdateEvent(ctx, &bc.Sess.Creds, d)
		}
		return bc.Config.Admin.CreateEvent(ctx, &bc.Sess.Creds, d)
	})
	if err != nil {
		// Keep the draft, so the admin can fix it and try again.
		if err := bc.flashFailure(what, err); err != nil {
			return nil, err
		}
		return data, nil
	}
	bc.addFlash(flashSuccess, done)
	return nil, bc.Redirect("/admin")
}

func adminEventNewPage(log *slog.Logger, cfg *Config, templ *templator) (http.Handler, error) {
	return newPage(log, cfg, pageOptions{Access: session.AccessAdmin, Title: "New Event"}, templ, adminEventDataBuilder{}, "admin_event")
}

func adminEventEditPage(log *slog.Logger, cfg *Config, templ *templator) (http.Handler, error) {
	return newPage(log, cfg, pageOptions{Access: session.AccessAdmin, Title: "Edit Event"}, templ, adminEventDataBuilder{edit: true}, "admin_event")
}
