package webui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/lucke/calcutta-web/internal/betting"
	"github.com/lucke/calcutta-web/internal/calcapi"
	"github.com/lucke/calcutta-web/internal/session"
	"github.com/lucke/calcutta-web/internal/util/slogx"
)

type bettingData struct {
	Console *betting.Console
	State   betting.State
	Failed  bool
}

func (d *bettingData) InYourEvents() bool {
	return d.Console.Event != nil && d.State.InYourEvents(d.Console.Event.ID)
}

// loadConsole fetches the bettor console. A selected event which no longer exists is deselected.
func loadConsole(ctx context.Context, bc *builderCtx) (*bettingData, error) {
	st := bc.betting()
	console, err := bc.Config.Betting.Load(ctx, &bc.Sess.Creds, st)
	if err != nil {
		if calcapi.IsUnauthorized(err) {
			return nil, err
		}
		bc.Log.Warn("could not load console", slogx.Err(err))
		return &bettingData{Console: &betting.Console{}, State: st, Failed: true}, nil
	}
	if console.Gone {
		bc.Log.Info("selected event is gone", slog.String("event_id", st.EventID.String()))
		st = st.SelectEvent("")
		bc.setBetting(st)
		bc.addFlash(flashInfo, "The selected event no longer exists.")
	}
	return &bettingData{Console: console, State: st}, nil
}

type bettingDataBuilder struct{}

func (bettingDataBuilder) Build(ctx context.Context, bc *builderCtx) (any, error) {
	return loadConsole(ctx, bc)
}

func bettingPage(log *slog.Logger, cfg *Config, templ *templator) (http.Handler, error) {
	return newPage(log, cfg, pageOptions{Access: session.AccessLoggedIn, Title: "Betting"}, templ, bettingDataBuilder{}, "betting")
}

type bettingSelectDataBuilder struct{}

func (bettingSelectDataBuilder) Build(_ context.Context, bc *builderCtx) (any, error) {
	if err := bc.parseForm(); err != nil {
		return nil, err
	}
	st := bc.betting()
	if eventID := calcapi.ID(bc.formValue("event")); eventID != st.EventID {
		st = st.SelectEvent(eventID)
	}
	if bc.Req.PostForm.Has("sub") {
		st = st.SelectSubEvent(calcapi.ID(bc.formValue("sub")))
	}
	bc.setBetting(st)
	return nil, bc.Redirect("/betting")
}

func bettingSelectPage(log *slog.Logger, cfg *Config, templ *templator) (http.Handler, error) {
	return newPage(log, cfg, pageOptions{Access: session.AccessLoggedIn}, templ, bettingSelectDataBuilder{}, "")
}

type bettingShortlistDataBuilder struct{}

func (bettingShortlistDataBuilder) Build(_ context.Context, bc *builderCtx) (any, error) {
	if err := bc.parseForm(); err != nil {
		return nil, err
	}
	st := bc.betting()
	if eventID := calcapi.ID(bc.formValue("event")); !eventID.IsZero() {
		name := bc.formValue("name")
		if name == "" {
			name = "Event " + eventID.String()
		}
		bc.setBetting(st.AddToYourEvents(eventID, name))
	}
	return nil, bc.Redirect("/betting")
}

func bettingShortlistPage(log *slog.Logger, cfg *Config, templ *templator) (http.Handler, error) {
	return newPage(log, cfg, pageOptions{Access: session.AccessLoggedIn}, templ, bettingShortlistDataBuilder{}, "")
}

type bettingBidDataBuilder struct{}

func (bettingBidDataBuilder) Build(ctx context.Context, bc *builderCtx) (any, error) {
	if err := bc.parseForm(); err != nil {
		return nil, err
	}
	contestantID, err := bc.pathID("contestantID")
	if err != nil {
		return nil, err
	}
	raw := bc.formValue("amount")
	st := bc.betting().WithBid(contestantID, raw)
	bc.setBetting(st)
	if _, err := betting.ParseBid(raw); err != nil {
		bc.addFlash(flashError, err.Error())
		return nil, bc.Redirect("/betting")
	}

	var res *betting.BidResult
	err = bc.perform(ctx, "bid", contestantID, func(ctx context.Context) error {
		var err error
		res, err = bc.Config.Betting.Bid(ctx, &bc.Sess.Creds, bc.Sess.State.User, st, contestantID, raw)
		return err
	})
	if err != nil {
		if err := bc.flashFailure("Bid", err); err != nil {
			return nil, err
		}
		return nil, bc.Redirect("/betting")
	}
	bc.setBetting(res.State)
	bc.addFlash(flashSuccess, fmt.Sprintf("Bid of $%v placed", res.Amount))
	return nil, bc.Redirect("/betting")
}

func bettingBidPage(log *slog.Logger, cfg *Config, templ *templator) (http.Handler, error) {
	return newPage(log, cfg, pageOptions{Access: session.AccessLoggedIn}, templ, bettingBidDataBuilder{}, "")
}

type bettingBuyData struct {
	Event      *calcapi.Event
	SubEvent   *calcapi.SubEvent
	Contestant calcapi.Contestant
}

type bettingBuyDataBuilder struct{}

func (bettingBuyDataBuilder) Build(ctx context.Context, bc *builderCtx) (any, error) {
	contestantID, err := bc.pathID("contestantID")
	if err != nil {
		return nil, err
	}

	if bc.Req.Method == http.MethodGet {
		data, err := loadConsole(ctx, bc)
		if err != nil {
			return nil, err
		}
		if data.Failed {
			bc.addFlash(flashError, "Error: Could not load the event. Try again.")
			return nil, bc.Redirect("/betting")
		}
		c, ok := data.Console.Table.Purchasable(contestantID)
		if !ok {
			bc.addFlash(flashError, "Error: "+betting.ErrUnavailable.Error())
			return nil, bc.Redirect("/betting")
		}
		bc.setBetting(data.State.SelectContestant(contestantID))
		return &bettingBuyData{
			Event:      data.Console.Table.Event,
			SubEvent:   data.Console.Table.SubEvent,
			Contestant: c,
		}, nil
	}

	if err := bc.parseForm(); err != nil {
		return nil, err
	}
	if bc.formValue("confirm") != "yes" {
		bc.setBetting(bc.betting().SelectContestant(""))
		return nil, bc.Redirect("/betting")
	}
	var res *betting.BuyResult
	err = bc.perform(ctx, "buy", contestantID, func(ctx context.Context) error {
		var err error
		res, err = bc.Config.Betting.Buy(ctx, &bc.Sess.Creds, bc.Sess.State.User, bc.betting(), contestantID)
		return err
	})
	if err != nil {
		if errors.Is(err, betting.ErrNoUser) {
			return nil, bc.Redirect("/login")
		}
		if err := bc.flashFailure("Purchase", err); err != nil {
			return nil, err
		}
		return nil, bc.Redirect("/betting")
	}
	bc.setBetting(res.State)
	bc.addFlash(flashSuccess, fmt.Sprintf("Purchased %v for $%v", res.Contestant.Name, res.Contestant.Price.Short()))
	return nil, bc.Redirect("/betting")
}

func bettingBuyPage(log *slog.Logger, cfg *Config, templ *templator) (http.Handler, error) {
	return newPage(log, cfg, pageOptions{Access: session.AccessLoggedIn, Title: "Confirm Purchase"}, templ, bettingBuyDataBuilder{}, "betting_buy")
}
