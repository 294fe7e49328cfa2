package webui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/lucke/calcutta-web/internal/admin"
	"github.com/lucke/calcutta-web/internal/betting"
	"github.com/lucke/calcutta-web/internal/calcapi"
	"github.com/lucke/calcutta-web/internal/journal"
	"github.com/lucke/calcutta-web/internal/session"
	"github.com/lucke/calcutta-web/internal/util/httputil"
	"github.com/lucke/calcutta-web/internal/util/slogx"
)

const tokenField = "form-token"

func writeHTTPErr(log *slog.Logger, w http.ResponseWriter, err error) {
	if err = httputil.WriteErrorResponse(err, w); err != nil {
		log.Info("error writing error response", slogx.Err(err))
	}
}

func (bc *builderCtx) parseForm() error {
	if err := bc.Req.ParseForm(); err != nil {
		return httputil.MakeBadRequest("bad form data")
	}
	return nil
}

func (bc *builderCtx) formValue(name string) string {
	return strings.TrimSpace(bc.Req.PostFormValue(name))
}

func (bc *builderCtx) pathID(name string) (calcapi.ID, error) {
	id := calcapi.ID(bc.Req.PathValue(name))
	if id.IsZero() {
		return "", httputil.MakeBadRequest("bad " + name)
	}
	return id, nil
}

// perform runs a mutating action submitted by a form. The form token is claimed first, so the
// same form is never submitted to the API twice. The token also serves as the idempotency key of
// the API request.
func (bc *builderCtx) perform(ctx context.Context, kind string, target calcapi.ID, run func(ctx context.Context) error) error {
	token := bc.Req.PostFormValue(tokenField)
	err := bc.Config.Journal.Claim(ctx, token, kind, bc.Username(), target.String())
	switch {
	case errors.Is(err, journal.ErrBadToken):
		return httputil.MakeBadRequest("bad form token")
	case errors.Is(err, journal.ErrDuplicate):
		return err
	case err != nil:
		return fmt.Errorf("claim action: %w", err)
	}
	actionErr := run(calcapi.WithIdempotencyKey(ctx, token))
	bc.Config.Journal.Finish(ctx, token, actionErr)
	return actionErr
}

// Errors whose text is meant for the user.
var userErrors = []error{
	betting.ErrBadBid,
	betting.ErrUnavailable,
	betting.ErrNoEvent,
	admin.ErrEmptyDraft,
	admin.ErrNoContestant,
	session.ErrMissingFields,
}

func userMessage(err error, fallback string) string {
	if _, ok := calcapi.AsError(err); ok {
		return calcapi.UserMessage(err, fallback)
	}
	for _, e := range userErrors {
		if errors.Is(err, e) {
			return e.Error()
		}
	}
	return fallback
}

// flashFailure reports a failed action to the user. Errors which cannot be shown to the user are
// replaced with a generic message. Internal errors and redirects are passed through.
func (bc *builderCtx) flashFailure(what string, err error) error {
	if errors.Is(err, journal.ErrDuplicate) {
		bc.addFlash(flashInfo, "This form has already been submitted.")
		return nil
	}
	if calcapi.IsUnauthorized(err) {
		return err
	}
	if httpErr := (*httputil.Error)(nil); errors.As(err, &httpErr) {
		return err
	}
	bc.Log.Warn(what+" failed", slogx.Err(err))
	bc.addFlash(flashError, "Error: "+userMessage(err, what+" failed. Try again."))
	return nil
}
