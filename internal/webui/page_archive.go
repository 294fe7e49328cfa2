package webui

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/lucke/calcutta-web/internal/calcapi"
	"github.com/lucke/calcutta-web/internal/eventlist"
	"github.com/lucke/calcutta-web/internal/util/slogx"
)

type archiveData struct {
	Archive *eventlist.Archive
	Failed  bool
}

type archiveDataBuilder struct{}

func (archiveDataBuilder) Build(ctx context.Context, bc *builderCtx) (any, error) {
	archive, err := eventlist.LoadArchive(ctx, bc.Config.Events, &bc.Sess.Creds)
	if err != nil {
		// Anonymous visitors have no session to expire.
		if calcapi.IsUnauthorized(err) && bc.Sess.State.LoggedIn {
			return nil, err
		}
		bc.Log.Warn("could not load archive", slogx.Err(err))
		return &archiveData{Archive: &eventlist.Archive{}, Failed: true}, nil
	}
	return &archiveData{Archive: archive}, nil
}

func archivePage(log *slog.Logger, cfg *Config, templ *templator) (http.Handler, error) {
	return newPage(log, cfg, pageOptions{Title: "Archive"}, templ, archiveDataBuilder{}, "archive")
}
