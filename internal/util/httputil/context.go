package httputil

import (
	"context"
	"net/http"

	"github.com/lucke/calcutta-web/internal/util/idgen"
)

type reqIDKey struct{}

// WrapRequest attaches a fresh request id to the request context. An id already present is kept.
func WrapRequest(req *http.Request) *http.Request {
	if ExtractReqID(req.Context()) != "" {
		return req
	}
	return req.WithContext(context.WithValue(req.Context(), reqIDKey{}, idgen.ID()))
}

func ExtractReqID(ctx context.Context) string {
	s, _ := ctx.Value(reqIDKey{}).(string)
	return s
}
