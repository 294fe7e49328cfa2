package httputil

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRedirectError(t *testing.T) {
	err := MakeRedirectError(http.StatusSeeOther, "go", "/login").(*Error)
	if !err.IsRedirect() || err.Location() != "/login" {
		t.Errorf("bad redirect: %v %q", err.IsRedirect(), err.Location())
	}
	w := httptest.NewRecorder()
	if err := WriteErrorResponse(err, w); err != nil {
		t.Fatal(err)
	}
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/login" {
		t.Errorf("bad response: %v %v", w.Code, w.Header())
	}

	bad := MakeRedirectError(http.StatusBadRequest, "oops", "/x").(*Error)
	if bad.IsRedirect() || bad.Location() != "" {
		t.Errorf("non-redirect code must not redirect")
	}
}

func TestRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if ExtractReqID(req.Context()) != "" {
		t.Fatal("unexpected request id")
	}
	req = WrapRequest(req)
	id := ExtractReqID(req.Context())
	if id == "" {
		t.Fatal("no request id")
	}
	if got := ExtractReqID(WrapRequest(req).Context()); got != id {
		t.Errorf("request id changed: %q != %q", got, id)
	}
}
