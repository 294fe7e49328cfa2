package betting

import (
	"github.com/lucke/calcutta-web/internal/calcapi"
)

type ActionKind int

const (
	ActionUnavailable ActionKind = iota
	ActionBuy
	ActionBid
)

func (k ActionKind) String() string {
	switch k {
	case ActionUnavailable:
		return "Unavailable"
	case ActionBuy:
		return "Buy"
	case ActionBid:
		return "Bid"
	default:
		return "?"
	}
}

type Row struct {
	Contestant calcapi.Contestant
	Action     ActionKind
	// Bid amount typed earlier for this contestant, if any.
	BidInput string
	Selected bool
}

func (r Row) IsBuy() bool         { return r.Action == ActionBuy }
func (r Row) IsBid() bool         { return r.Action == ActionBid }
func (r Row) IsUnavailable() bool { return r.Action == ActionUnavailable }

// Table is the contestant table of the selected event or sub-event.
type Table struct {
	Event    *calcapi.Event
	SubEvent *calcapi.SubEvent
	GameType calcapi.GameType
	Closed   bool
	Rows     []Row
}

// Resolve finds the selected event and sub-event of the state in ev. The sub-event is nil if
// none is selected or it no longer exists.
func (s State) Resolve(ev *calcapi.Event) *calcapi.SubEvent {
	if ev == nil || s.SubEventID.IsZero() {
		return nil
	}
	sub, ok := ev.SubEvent(s.SubEventID)
	if !ok {
		return nil
	}
	return sub
}

func rowAction(g calcapi.GameType, closed bool, sub *calcapi.SubEvent, c calcapi.Contestant) ActionKind {
	// Taken FCFS contestants are unavailable even if the sub-event is still open.
	if sub != nil && g == calcapi.GameFCFS && sub.HasBet(c.ID) {
		return ActionUnavailable
	}
	if closed {
		return ActionUnavailable
	}
	if g == calcapi.GameBidding {
		return ActionBid
	}
	return ActionBuy
}

// Rows renders the contestants of the selected sub-event, or of the event itself if no sub-event
// is selected. Main event contestants are sold at a fixed price while the event is open.
func (s State) Rows(ev *calcapi.Event, sub *calcapi.SubEvent) Table {
	t := Table{Event: ev, SubEvent: sub}
	if ev == nil {
		return t
	}
	var contestants []calcapi.Contestant
	if sub != nil {
		t.GameType = sub.GameType
		if !t.GameType.Valid() {
			t.GameType = calcapi.GameFixedPrice
		}
		t.Closed = !sub.Status.IsOpen()
		contestants = sub.Contestants
	} else {
		t.GameType = calcapi.GameFixedPrice
		t.Closed = !ev.Status.IsOpen()
		contestants = ev.Contestants
	}
	t.Rows = make([]Row, len(contestants))
	for i, c := range contestants {
		t.Rows[i] = Row{
			Contestant: c,
			Action:     rowAction(t.GameType, t.Closed, sub, c),
			BidInput:   s.Bids[c.ID],
			Selected:   c.ID == s.ContestantID,
		}
	}
	return t
}

// Purchasable returns the contestant with the given id if it can be bought in the table.
func (t Table) Purchasable(id calcapi.ID) (calcapi.Contestant, bool) {
	for _, r := range t.Rows {
		if r.Contestant.ID == id {
			return r.Contestant, r.Action == ActionBuy
		}
	}
	return calcapi.Contestant{}, false
}

func (t Table) Biddable(id calcapi.ID) bool {
	for _, r := range t.Rows {
		if r.Contestant.ID == id {
			return r.Action == ActionBid
		}
	}
	return false
}
