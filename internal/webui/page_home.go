package webui

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/lucke/calcutta-web/internal/calcapi"
	"github.com/lucke/calcutta-web/internal/eventlist"
	"github.com/lucke/calcutta-web/internal/util/slogx"
)

type homeData struct {
	Landing *eventlist.Landing
	// Set if the events could not be fetched.
	Failed bool
}

type homeDataBuilder struct{}

func (homeDataBuilder) Build(ctx context.Context, bc *builderCtx) (any, error) {
	landing, err := eventlist.LoadLanding(ctx, bc.Config.Events, &bc.Sess.Creds)
	if err != nil {
		// Anonymous visitors have no session to expire.
		if calcapi.IsUnauthorized(err) && bc.Sess.State.LoggedIn {
			return nil, err
		}
		bc.Log.Warn("could not load events", slogx.Err(err))
		return &homeData{Landing: &eventlist.Landing{}, Failed: true}, nil
	}
	return &homeData{Landing: landing}, nil
}

func homePage(log *slog.Logger, cfg *Config, templ *templator) (http.Handler, error) {
	return newPage(log, cfg, pageOptions{Title: "Calcutta"}, templ, homeDataBuilder{}, "home")
}
