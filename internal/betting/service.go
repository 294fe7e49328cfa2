package betting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/lucke/calcutta-web/internal/calcapi"
	"github.com/lucke/calcutta-web/internal/eventlist"
	"github.com/lucke/calcutta-web/internal/util/slogx"
)

var (
	ErrNoEvent     = errors.New("no event selected")
	ErrUnavailable = errors.New("contestant is unavailable")
	ErrNoUser      = errors.New("not logged in")
)

type API interface {
	ListEvents(ctx context.Context, creds *calcapi.Credentials) ([]calcapi.Event, error)
	GetEvent(ctx context.Context, creds *calcapi.Credentials, eventID calcapi.ID) (*calcapi.Event, error)
	PlaceBet(ctx context.Context, creds *calcapi.Credentials, eventID calcapi.ID, req *calcapi.BetRequest) error
	PlaceBid(ctx context.Context, creds *calcapi.Credentials, eventID calcapi.ID, req *calcapi.BidRequest) error
}

type Service struct {
	api API
	log *slog.Logger
}

func NewService(log *slog.Logger, api API) *Service {
	return &Service{api: api, log: log}
}

type Console struct {
	// Open events only.
	Events []calcapi.Event
	// Selected event, nil if none is selected.
	Event *calcapi.Event
	Table Table
	// Set if the selected event no longer exists.
	Gone bool
}

func isNotFound(err error) bool {
	apiErr, ok := calcapi.AsError(err)
	return ok && apiErr.Status == http.StatusNotFound
}

// Load fetches the event list and the selected event concurrently.
func (s *Service) Load(ctx context.Context, creds *calcapi.Credentials, st State) (*Console, error) {
	// Cookie updates from concurrent requests must not race.
	base := creds.Clone()
	listCreds, eventCreds := base.Clone(), base.Clone()
	var (
		events []calcapi.Event
		ev     *calcapi.Event
		gone   bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		events, err = s.api.ListEvents(gctx, listCreds)
		if err != nil {
			return fmt.Errorf("list events: %w", err)
		}
		return nil
	})
	if !st.EventID.IsZero() {
		g.Go(func() error {
			var err error
			ev, err = s.api.GetEvent(gctx, eventCreds, st.EventID)
			if err != nil {
				if isNotFound(err) {
					gone = true
					return nil
				}
				return fmt.Errorf("get event: %w", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	creds.Merge(base, listCreds)
	creds.Merge(base, eventCreds)

	c := &Console{
		Events: eventlist.Filter(events, calcapi.StatusOpen),
		Event:  ev,
		Gone:   gone,
	}
	c.Table = st.Rows(ev, st.Resolve(ev))
	return c, nil
}

func (s *Service) refresh(ctx context.Context, creds *calcapi.Credentials, eventID calcapi.ID) *calcapi.Event {
	ev, err := s.api.GetEvent(ctx, creds, eventID)
	if err != nil {
		s.log.Warn("could not refresh event",
			slog.String("event_id", eventID.String()),
			slogx.Err(err),
		)
		return nil
	}
	return ev
}

type BuyResult struct {
	State      State
	Contestant calcapi.Contestant
	// Selected event as fetched after the purchase, nil if the fetch failed.
	Event *calcapi.Event
}

// Buy purchases the contestant at its current price in the selected event or sub-event. On
// success the price is subtracted from the displayed balance.
func (s *Service) Buy(ctx context.Context, creds *calcapi.Credentials, user *calcapi.User, st State, contestantID calcapi.ID) (*BuyResult, error) {
	if user == nil {
		return nil, ErrNoUser
	}
	if st.EventID.IsZero() {
		return nil, ErrNoEvent
	}
	ev, err := s.api.GetEvent(ctx, creds, st.EventID)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	sub := st.Resolve(ev)
	c, ok := st.Rows(ev, sub).Purchasable(contestantID)
	if !ok {
		return nil, ErrUnavailable
	}
	req := &calcapi.BetRequest{
		UserID:       user.ID,
		ContestantID: c.ID,
		Amount:       c.Price,
	}
	if sub != nil {
		req.SubEventID = sub.ID
	}
	if err := s.api.PlaceBet(ctx, creds, ev.ID, req); err != nil {
		return nil, fmt.Errorf("place bet: %w", err)
	}
	s.log.Info("placed bet",
		slog.String("event_id", ev.ID.String()),
		slog.String("contestant_id", c.ID.String()),
		slog.String("amount", c.Price.String()),
	)
	st = st.AfterPurchase(user, c.Price)
	return &BuyResult{
		State:      st,
		Contestant: c,
		Event:      s.refresh(ctx, creds, ev.ID),
	}, nil
}

type BidResult struct {
	State  State
	Amount calcapi.Money
	Event  *calcapi.Event
}

// Bid places a bid on a contestant of a bidding sub-event. The amount is validated before any
// request is made. The displayed balance is left as is.
func (s *Service) Bid(ctx context.Context, creds *calcapi.Credentials, user *calcapi.User, st State, contestantID calcapi.ID, rawAmount string) (*BidResult, error) {
	amount, err := ParseBid(rawAmount)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNoUser
	}
	if st.EventID.IsZero() {
		return nil, ErrNoEvent
	}
	ev, err := s.api.GetEvent(ctx, creds, st.EventID)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	sub := st.Resolve(ev)
	if !st.Rows(ev, sub).Biddable(contestantID) {
		return nil, ErrUnavailable
	}
	req := &calcapi.BidRequest{
		UserID:     user.ID,
		Individual: contestantID,
		Amount:     amount,
	}
	if sub != nil {
		req.SubEventID = sub.ID
	}
	if err := s.api.PlaceBid(ctx, creds, ev.ID, req); err != nil {
		return nil, fmt.Errorf("place bid: %w", err)
	}
	s.log.Info("placed bid",
		slog.String("event_id", ev.ID.String()),
		slog.String("contestant_id", contestantID.String()),
		slog.String("amount", amount.String()),
	)
	return &BidResult{
		State:  st.WithBid(contestantID, ""),
		Amount: amount,
		Event:  s.refresh(ctx, creds, ev.ID),
	}, nil
}
