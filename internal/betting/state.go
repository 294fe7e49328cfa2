package betting

import (
	"encoding/gob"
	"errors"
	"maps"
	"slices"
	"strings"

	"github.com/lucke/calcutta-web/internal/calcapi"
)

var ErrBadBid = errors.New("Please enter a valid bid amount.")

// ShortlistEntry is an event remembered in the "Your Events" list.
type ShortlistEntry struct {
	ID   calcapi.ID
	Name string
}

// State is the per-browser state of the bettor console. It is kept in the browser session and
// never sent to the API.
type State struct {
	EventID      calcapi.ID
	SubEventID   calcapi.ID
	ContestantID calcapi.ID
	YourEvents   []ShortlistEntry
	// In-progress bid amounts keyed by contestant id, as typed by the user.
	Bids map[calcapi.ID]string
	// Displayed balance. Valid only if BalanceSet is true, otherwise the balance of the session
	// user is shown.
	Balance    calcapi.Money
	BalanceSet bool
}

func init() {
	gob.Register(State{})
}

func (s State) Clone() State {
	s.YourEvents = slices.Clone(s.YourEvents)
	s.Bids = maps.Clone(s.Bids)
	return s
}

// SelectEvent changes the selected event, clearing the selected sub-event and contestant.
func (s State) SelectEvent(id calcapi.ID) State {
	s = s.Clone()
	s.EventID = id
	s.SubEventID = ""
	s.ContestantID = ""
	return s
}

func (s State) SelectSubEvent(id calcapi.ID) State {
	s = s.Clone()
	s.SubEventID = id
	s.ContestantID = ""
	return s
}

func (s State) SelectContestant(id calcapi.ID) State {
	s = s.Clone()
	s.ContestantID = id
	return s
}

func (s State) InYourEvents(id calcapi.ID) bool {
	return slices.ContainsFunc(s.YourEvents, func(e ShortlistEntry) bool { return e.ID == id })
}

// AddToYourEvents appends the event to the shortlist unless it is already there.
func (s State) AddToYourEvents(id calcapi.ID, name string) State {
	if s.InYourEvents(id) {
		return s
	}
	s = s.Clone()
	s.YourEvents = append(s.YourEvents, ShortlistEntry{ID: id, Name: name})
	return s
}

func (s State) WithBid(contestantID calcapi.ID, amount string) State {
	s = s.Clone()
	if s.Bids == nil {
		s.Bids = make(map[calcapi.ID]string)
	}
	if amount == "" {
		delete(s.Bids, contestantID)
	} else {
		s.Bids[contestantID] = amount
	}
	return s
}

// DisplayBalance returns the balance shown in the console header.
func (s State) DisplayBalance(user *calcapi.User) calcapi.Money {
	if s.BalanceSet {
		return s.Balance
	}
	if user == nil {
		return 0
	}
	return user.Balance
}

// AfterPurchase subtracts the price from the displayed balance. The result is not confirmed by
// the server.
func (s State) AfterPurchase(user *calcapi.User, price calcapi.Money) State {
	s = s.Clone()
	s.Balance = s.DisplayBalance(user).Sub(price)
	s.BalanceSet = true
	s.ContestantID = ""
	return s
}

// ParseBid validates a bid amount typed by the user.
func ParseBid(raw string) (calcapi.Money, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, ErrBadBid
	}
	amount, err := calcapi.ParseMoney(raw)
	if err != nil || amount <= 0 {
		return 0, ErrBadBid
	}
	return amount, nil
}
