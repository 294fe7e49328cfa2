package calcapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"
)

type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

func (s Status) IsOpen() bool { return s == StatusOpen }

type GameType string

const (
	GameFixedPrice GameType = "default"
	GameFCFS       GameType = "first-come-first-serve"
	GameBidding    GameType = "bidding"
)

var GameTypes = []GameType{GameFixedPrice, GameFCFS, GameBidding}

func (g GameType) Valid() bool {
	return slices.Contains(GameTypes, g)
}

func (g GameType) PrettyString() string {
	switch g {
	case GameFixedPrice:
		return "Default"
	case GameFCFS:
		return "First Come First Serve"
	case GameBidding:
		return "Bidding"
	default:
		return string(g)
	}
}

// PriceLabel is the caption of the contestant price for this game type.
func (g GameType) PriceLabel() string {
	if g == GameBidding {
		return "Starting Bid"
	}
	return "Price"
}

const RoleAdmin = "admin"

type User struct {
	ID       ID     `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role"`
	Balance  Money  `json:"balance"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

type Contestant struct {
	ID    ID     `json:"id"`
	Name  string `json:"name"`
	Price Money  `json:"price"`
}

type Bet struct {
	ContestantID ID    `json:"contestantId"`
	UserID       ID    `json:"userId"`
	Amount       Money `json:"amount"`
}

type SubEvent struct {
	ID                ID           `json:"id"`
	Name              string       `json:"name"`
	Status            Status       `json:"status"`
	GameType          GameType     `json:"gameType"`
	Contestants       []Contestant `json:"contestants"`
	Bets              []Bet        `json:"bets"`
	WinningContestant ID           `json:"winningContestant"`
}

// HasBet reports whether some bet in this sub-event is placed on the contestant.
func (s *SubEvent) HasBet(contestantID ID) bool {
	return slices.ContainsFunc(s.Bets, func(b Bet) bool {
		return b.ContestantID == contestantID
	})
}

func (s *SubEvent) Contestant(id ID) (Contestant, bool) {
	return findContestant(s.Contestants, id)
}

type Event struct {
	ID                ID           `json:"id"`
	Name              string       `json:"name"`
	Status            Status       `json:"status"`
	Contestants       []Contestant `json:"contestants"`
	SubEvents         []SubEvent   `json:"subEvents"`
	WinningContestant ID           `json:"winningContestant"`
}

func (e *Event) SubEvent(id ID) (*SubEvent, bool) {
	for i := range e.SubEvents {
		if e.SubEvents[i].ID == id {
			return &e.SubEvents[i], true
		}
	}
	return nil, false
}

func (e *Event) Contestant(id ID) (Contestant, bool) {
	return findContestant(e.Contestants, id)
}

// WinnerName returns the name of the winning contestant, or its id if the contestant is not
// listed. Empty if no winner is declared.
func (e Event) WinnerName() string {
	return winnerName(e.Contestants, e.WinningContestant)
}

func (s SubEvent) WinnerName() string {
	return winnerName(s.Contestants, s.WinningContestant)
}

func winnerName(cs []Contestant, id ID) string {
	if id.IsZero() {
		return ""
	}
	if c, ok := findContestant(cs, id); ok {
		return c.Name
	}
	return id.String()
}

func findContestant(cs []Contestant, id ID) (Contestant, bool) {
	for _, c := range cs {
		if c.ID == id {
			return c, true
		}
	}
	return Contestant{}, false
}

// EventList decodes either a bare array of events or an object of the form {"events": [...]}.
// Anything else decodes into an empty list.
type EventList []Event

func (l *EventList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var events []Event
		if err := json.Unmarshal(data, &events); err != nil {
			return fmt.Errorf("unmarshal event list: %w", err)
		}
		*l = events
		return nil
	}
	var wrapped struct {
		Events []Event `json:"events"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		*l = EventList{}
		return nil
	}
	*l = wrapped.Events
	return nil
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Message string `json:"message,omitempty"`
	User    *User  `json:"user"`
}

type NewContestant struct {
	Name  string `json:"name"`
	Price Money  `json:"price"`
}

type NewSubEvent struct {
	Name            string          `json:"name"`
	GameType        GameType        `json:"gameType"`
	ContestantCount int             `json:"contestantCount"`
	Contestants     []NewContestant `json:"contestants"`
}

type CreateEventRequest struct {
	Name        string          `json:"name"`
	Contestants []NewContestant `json:"contestants,omitempty"`
	SubEvents   []NewSubEvent   `json:"subEvents"`
}

type UpdateSubEvent struct {
	ID ID `json:"id,omitempty"`
	NewSubEvent
}

type UpdateEventRequest struct {
	Name      string           `json:"name"`
	SubEvents []UpdateSubEvent `json:"subEvents"`
}

type WinnerRequest struct {
	ContestantID ID `json:"contestantId"`
}

type BetRequest struct {
	UserID       ID    `json:"userId"`
	ContestantID ID    `json:"contestantId"`
	Amount       Money `json:"amount"`
	SubEventID   ID    `json:"subEventId,omitempty"`
}

type BidRequest struct {
	UserID     ID    `json:"userId"`
	Individual ID    `json:"individual"`
	Amount     Money `json:"amount"`
	SubEventID ID    `json:"subEventId,omitempty"`
}

// MessageResponse is the generic acknowledgement of mutating endpoints.
type MessageResponse struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

type Payout struct {
	UserID   ID     `json:"userId"`
	Username string `json:"username,omitempty"`
	Amount   Money  `json:"amount"`
}

// Distribution is the per-user payout of a closed sub-event. The server sends it either as an
// array of payouts or as an object mapping user ids to amounts.
type Distribution []Payout

func (d *Distribution) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*d = nil
		return nil
	case len(data) > 0 && data[0] == '[':
		var payouts []Payout
		if err := json.Unmarshal(data, &payouts); err != nil {
			return fmt.Errorf("unmarshal distribution: %w", err)
		}
		*d = payouts
		return nil
	default:
		var byUser map[string]Money
		if err := json.Unmarshal(data, &byUser); err != nil {
			return fmt.Errorf("unmarshal distribution: %w", err)
		}
		payouts := make([]Payout, 0, len(byUser))
		for user, amount := range byUser {
			payouts = append(payouts, Payout{UserID: ID(user), Amount: amount})
		}
		slices.SortFunc(payouts, func(a, b Payout) int {
			switch {
			case a.UserID < b.UserID:
				return -1
			case a.UserID > b.UserID:
				return 1
			default:
				return 0
			}
		})
		*d = payouts
		return nil
	}
}

type PayoutDebug struct {
	NetPot   Money `json:"netPot"`
	HouseCut Money `json:"houseCut"`
}

type CloseSubEventResponse struct {
	Message      string       `json:"message,omitempty"`
	Distribution Distribution `json:"distribution"`
	Debug        *PayoutDebug `json:"debug,omitempty"`
}

type API interface {
	CurrentUser(ctx context.Context, creds *Credentials) (*AuthResponse, error)
	Login(ctx context.Context, creds *Credentials, req *LoginRequest) (*AuthResponse, error)
	Signup(ctx context.Context, creds *Credentials, req *SignupRequest) (*AuthResponse, error)
	Logout(ctx context.Context, creds *Credentials) error

	ListEvents(ctx context.Context, creds *Credentials) ([]Event, error)
	GetEvent(ctx context.Context, creds *Credentials, eventID ID) (*Event, error)
	CreateEvent(ctx context.Context, creds *Credentials, req *CreateEventRequest) error
	UpdateEvent(ctx context.Context, creds *Credentials, eventID ID, req *UpdateEventRequest) error
	CloseEvent(ctx context.Context, creds *Credentials, eventID ID) error
	DeclareWinner(ctx context.Context, creds *Credentials, eventID ID, req *WinnerRequest) error
	CloseSubEvent(ctx context.Context, creds *Credentials, eventID, subEventID ID) (*CloseSubEventResponse, error)
	DeclareSubWinner(ctx context.Context, creds *Credentials, eventID, subEventID ID, req *WinnerRequest) error
	PlaceBet(ctx context.Context, creds *Credentials, eventID ID, req *BetRequest) error
	PlaceBid(ctx context.Context, creds *Credentials, eventID ID, req *BidRequest) error
}
