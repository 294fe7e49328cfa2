package webui

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/lucke/calcutta-web/internal/util/httputil"
)

func e404Page(log *slog.Logger, cfg *Config, templ *templator) (http.Handler, error) {
	return newPage(log, cfg, pageOptions{NoCheck: true, Title: "Not Found"}, templ,
		dataBuilderFunc(func(context.Context, *builderCtx) (any, error) {
			return nil, httputil.MakeError(http.StatusNotFound, "page not found")
		}), "")
}
