package webui

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/lucke/calcutta-web/internal/session"
)

// Deposits and withdrawals are not supported by the API yet, so the pages are placeholders.
func fundsPage(log *slog.Logger, cfg *Config, templ *templator, title string) (http.Handler, error) {
	return newPage(log, cfg, pageOptions{Access: session.AccessLoggedIn, Title: title}, templ,
		dataBuilderFunc(func(context.Context, *builderCtx) (any, error) {
			return nil, nil
		}), "funds")
}
