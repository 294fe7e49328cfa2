package betting

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/lucke/calcutta-web/internal/calcapi"
	"github.com/lucke/calcutta-web/internal/util/slogx"
)

type fakeAPI struct {
	events  []calcapi.Event
	bets    []*calcapi.BetRequest
	bids    []*calcapi.BidRequest
	betErr  error
	fetches int
}

func (f *fakeAPI) ListEvents(context.Context, *calcapi.Credentials) ([]calcapi.Event, error) {
	return f.events, nil
}

func (f *fakeAPI) GetEvent(_ context.Context, _ *calcapi.Credentials, id calcapi.ID) (*calcapi.Event, error) {
	f.fetches++
	for _, e := range f.events {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, &calcapi.Error{Status: http.StatusNotFound, Message: "Event not found"}
}

func (f *fakeAPI) PlaceBet(_ context.Context, _ *calcapi.Credentials, _ calcapi.ID, req *calcapi.BetRequest) error {
	if f.betErr != nil {
		return f.betErr
	}
	f.bets = append(f.bets, req)
	return nil
}

func (f *fakeAPI) PlaceBid(_ context.Context, _ *calcapi.Credentials, _ calcapi.ID, req *calcapi.BidRequest) error {
	f.bids = append(f.bids, req)
	return nil
}

func testEvents() []calcapi.Event {
	return []calcapi.Event{
		{
			ID:     "1",
			Name:   "Derby",
			Status: calcapi.StatusOpen,
			Contestants: []calcapi.Contestant{
				{ID: "10", Name: "Main", Price: 5},
			},
			SubEvents: []calcapi.SubEvent{
				{
					ID: "20", Name: "Sprint", Status: calcapi.StatusOpen, GameType: calcapi.GameFixedPrice,
					Contestants: []calcapi.Contestant{{ID: "21", Name: "Fast", Price: 15}},
				},
				{
					ID: "30", Name: "Relay", Status: calcapi.StatusOpen, GameType: calcapi.GameFCFS,
					Contestants: []calcapi.Contestant{{ID: "31", Name: "Taken", Price: 7}, {ID: "32", Name: "Free", Price: 8}},
					Bets:        []calcapi.Bet{{ContestantID: "31", UserID: "9", Amount: 7}},
				},
				{
					ID: "40", Name: "Auction", Status: calcapi.StatusOpen, GameType: calcapi.GameBidding,
					Contestants: []calcapi.Contestant{{ID: "41", Name: "Lot", Price: 1}},
				},
				{
					ID: "50", Name: "Over", Status: calcapi.StatusClosed, GameType: calcapi.GameBidding,
					Contestants: []calcapi.Contestant{{ID: "51", Name: "Late", Price: 1}},
				},
			},
		},
		{ID: "2", Name: "Old", Status: calcapi.StatusClosed},
	}
}

func TestSelection(t *testing.T) {
	st := State{}.SelectEvent("1").SelectSubEvent("20").SelectContestant("21")
	st = st.WithBid("41", "3")
	next := st.SelectEvent("2")
	if next.EventID != "2" || next.SubEventID != "" || next.ContestantID != "" {
		t.Errorf("selection not reset: %+v", next)
	}
	if st.SubEventID != "20" || st.ContestantID != "21" {
		t.Errorf("previous state modified: %+v", st)
	}
	if next.Bids["41"] != "3" {
		t.Errorf("bid inputs lost: %+v", next.Bids)
	}
	sub := st.SelectSubEvent("30")
	if sub.ContestantID != "" || sub.EventID != "1" {
		t.Errorf("unexpected state: %+v", sub)
	}
}

func TestYourEvents(t *testing.T) {
	st := State{}.AddToYourEvents("1", "Derby").AddToYourEvents("2", "Old").AddToYourEvents("1", "Derby")
	if len(st.YourEvents) != 2 || !st.InYourEvents("2") || st.InYourEvents("3") {
		t.Errorf("unexpected shortlist: %+v", st.YourEvents)
	}
}

func TestRows(t *testing.T) {
	ev := &testEvents()[0]
	for _, tc := range []struct {
		sub  calcapi.ID
		want map[calcapi.ID]ActionKind
	}{
		{"", map[calcapi.ID]ActionKind{"10": ActionBuy}},
		{"20", map[calcapi.ID]ActionKind{"21": ActionBuy}},
		{"30", map[calcapi.ID]ActionKind{"31": ActionUnavailable, "32": ActionBuy}},
		{"40", map[calcapi.ID]ActionKind{"41": ActionBid}},
		{"50", map[calcapi.ID]ActionKind{"51": ActionUnavailable}},
	} {
		st := State{}.SelectEvent(ev.ID).SelectSubEvent(tc.sub)
		table := st.Rows(ev, st.Resolve(ev))
		if len(table.Rows) != len(tc.want) {
			t.Errorf("sub %q: got %v rows, want %v", tc.sub, len(table.Rows), len(tc.want))
			continue
		}
		for _, r := range table.Rows {
			if r.Action != tc.want[r.Contestant.ID] {
				t.Errorf("sub %q, contestant %q: got %v, want %v", tc.sub, r.Contestant.ID, r.Action, tc.want[r.Contestant.ID])
			}
		}
	}
}

func TestRowsTakenFCFSRegardlessOfStatus(t *testing.T) {
	ev := &testEvents()[0]
	ev.Status = calcapi.StatusClosed
	ev.SubEvents[1].Status = calcapi.StatusClosed
	st := State{}.SelectEvent(ev.ID).SelectSubEvent("30")
	table := st.Rows(ev, st.Resolve(ev))
	for _, r := range table.Rows {
		if r.Action != ActionUnavailable {
			t.Errorf("contestant %q: got %v", r.Contestant.ID, r.Action)
		}
	}
	if !table.Closed {
		t.Errorf("table must be closed")
	}

	// Closed main event disables main contestants.
	st = State{}.SelectEvent(ev.ID)
	table = st.Rows(ev, st.Resolve(ev))
	if table.Rows[0].Action != ActionUnavailable {
		t.Errorf("got %v", table.Rows[0].Action)
	}
}

func TestBuyUpdatesBalance(t *testing.T) {
	api := &fakeAPI{events: testEvents()}
	svc := NewService(slogx.DiscardLogger(), api)
	user := &calcapi.User{ID: "7", Username: "ann", Balance: 100}
	st := State{}.SelectEvent("1").SelectSubEvent("20")

	res, err := svc.Buy(context.Background(), &calcapi.Credentials{}, user, st, "21")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := res.State.DisplayBalance(user).String(); got != "85.00" {
		t.Errorf("got=%v want=85.00", got)
	}
	if len(api.bets) != 1 {
		t.Fatalf("expected one bet, got %v", len(api.bets))
	}
	bet := api.bets[0]
	if bet.UserID != "7" || bet.ContestantID != "21" || bet.Amount != 15 || bet.SubEventID != "20" {
		t.Errorf("unexpected bet: %+v", bet)
	}
	if res.Event == nil || api.fetches != 2 {
		t.Errorf("event not refreshed after purchase")
	}

	// The displayed balance keeps decreasing locally.
	res, err = svc.Buy(context.Background(), &calcapi.Credentials{}, user, res.State.SelectEvent("1"), "10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := res.State.DisplayBalance(user).String(); got != "80.00" {
		t.Errorf("got=%v want=80.00", got)
	}
	if api.bets[1].SubEventID != "" {
		t.Errorf("main event bet must not carry a sub-event: %+v", api.bets[1])
	}
}

func TestBuyFailures(t *testing.T) {
	api := &fakeAPI{events: testEvents()}
	svc := NewService(slogx.DiscardLogger(), api)
	user := &calcapi.User{ID: "7", Balance: 100}

	st := State{}.SelectEvent("1").SelectSubEvent("30")
	if _, err := svc.Buy(context.Background(), nil, user, st, "31"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("buying a taken contestant: %v", err)
	}
	if _, err := svc.Buy(context.Background(), nil, user, State{}, "31"); !errors.Is(err, ErrNoEvent) {
		t.Errorf("buying without event: %v", err)
	}

	api.betErr = &calcapi.Error{Status: http.StatusBadRequest, Message: "Insufficient balance"}
	_, err := svc.Buy(context.Background(), nil, user, st, "32")
	if calcapi.UserMessage(err, "") != "Insufficient balance" {
		t.Errorf("server message lost: %v", err)
	}
	if len(api.bets) != 0 {
		t.Errorf("unexpected bets: %+v", api.bets)
	}
}

func TestBid(t *testing.T) {
	api := &fakeAPI{events: testEvents()}
	svc := NewService(slogx.DiscardLogger(), api)
	user := &calcapi.User{ID: "7", Balance: 100}
	st := State{}.SelectEvent("1").SelectSubEvent("40").WithBid("41", "12.5")

	for _, bad := range []string{"", "abc", "0", "-3"} {
		if _, err := svc.Bid(context.Background(), nil, user, st, "41", bad); !errors.Is(err, ErrBadBid) {
			t.Errorf("amount %q: got %v", bad, err)
		}
	}
	if api.fetches != 0 {
		t.Errorf("invalid bids must not reach the api")
	}

	res, err := svc.Bid(context.Background(), nil, user, st, "41", "12.5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(api.bids) != 1 {
		t.Fatalf("expected one bid")
	}
	bid := api.bids[0]
	if bid.Individual != "41" || bid.Amount != 12.5 || bid.SubEventID != "40" || bid.UserID != "7" {
		t.Errorf("unexpected bid: %+v", bid)
	}
	if res.State.BalanceSet {
		t.Errorf("bidding must not change the balance")
	}
	if _, ok := res.State.Bids["41"]; ok {
		t.Errorf("bid input not cleared")
	}

	st = st.SelectSubEvent("50")
	if _, err := svc.Bid(context.Background(), nil, user, st, "51", "3"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("bid on closed sub-event: %v", err)
	}
}

func TestLoad(t *testing.T) {
	api := &fakeAPI{events: testEvents()}
	svc := NewService(slogx.DiscardLogger(), api)

	c, err := svc.Load(context.Background(), &calcapi.Credentials{}, State{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(c.Events) != 1 || c.Events[0].ID != "1" || c.Event != nil {
		t.Errorf("unexpected console: %+v", c)
	}

	c, err = svc.Load(context.Background(), &calcapi.Credentials{}, State{}.SelectEvent("1").SelectSubEvent("30"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Event == nil || c.Table.SubEvent == nil || c.Table.GameType != calcapi.GameFCFS || len(c.Table.Rows) != 2 {
		t.Errorf("unexpected console: %+v", c)
	}

	c, err = svc.Load(context.Background(), &calcapi.Credentials{}, State{}.SelectEvent("99"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.Gone || c.Event != nil {
		t.Errorf("missing event not reported: %+v", c)
	}
}
