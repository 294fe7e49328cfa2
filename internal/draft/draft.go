// Package draft implements the event being composed in the admin console before it is sent to
// the API. Drafts are immutable values: every change returns a new draft. Sub-events and
// contestants are addressed by stable keys, so edits never depend on positions.
package draft

import (
	"errors"
	"fmt"
	"slices"

	"github.com/lucke/calcutta-web/internal/calcapi"
)

const MaxContestants = 512

var (
	ErrNoSuchSubEvent   = errors.New("no such sub-event")
	ErrNoSuchContestant = errors.New("no such contestant")
	ErrBadCount         = fmt.Errorf("number of contestants must be from 1 to %v", MaxContestants)
)

type Contestant struct {
	Key   int
	Name  string
	Price calcapi.Money
}

type SubEvent struct {
	Key int
	// Set only for sub-events of an existing event being edited.
	ID       calcapi.ID
	Name     string
	GameType calcapi.GameType
	// May differ from len(Contestants) while editing, see Event.Normalize.
	ContestantCount int
	Collapsed       bool
	Contestants     []Contestant
}

func (s SubEvent) clone() SubEvent {
	s.Contestants = slices.Clone(s.Contestants)
	return s
}

// Title is the caption of a collapsed sub-event.
func (s SubEvent) Title() string {
	if s.Name == "" {
		return "Unnamed Sub-Event"
	}
	return s.Name
}

type Event struct {
	// Set only when editing an existing event.
	ID        calcapi.ID
	Name      string
	SubEvents []SubEvent
	NextKey   int
}

func New() Event {
	return Event{NextKey: 1}
}

func (e Event) clone() Event {
	e.SubEvents = slices.Clone(e.SubEvents)
	return e
}

func (e Event) find(key int) (int, error) {
	idx := slices.IndexFunc(e.SubEvents, func(s SubEvent) bool { return s.Key == key })
	if idx < 0 {
		return -1, fmt.Errorf("%w: key %v", ErrNoSuchSubEvent, key)
	}
	return idx, nil
}

func (e Event) SubEvent(key int) (SubEvent, bool) {
	idx, err := e.find(key)
	if err != nil {
		return SubEvent{}, false
	}
	return e.SubEvents[idx].clone(), true
}

func (e Event) update(key int, f func(s *SubEvent) error) (Event, error) {
	idx, err := e.find(key)
	if err != nil {
		return e, err
	}
	sub := e.SubEvents[idx].clone()
	if err := f(&sub); err != nil {
		return e, err
	}
	e = e.clone()
	e.SubEvents[idx] = sub
	return e, nil
}

func blankContestants(n int) []Contestant {
	res := make([]Contestant, n)
	for i := range res {
		res[i] = Contestant{Key: i + 1}
	}
	return res
}

func (e Event) WithName(name string) Event {
	e.Name = name
	return e
}

// AddSubEvent appends an expanded sub-event with the default game type and one contestant.
func (e Event) AddSubEvent() Event {
	e = e.clone()
	if e.NextKey <= 0 {
		e.NextKey = 1
	}
	for _, s := range e.SubEvents {
		e.NextKey = max(e.NextKey, s.Key+1)
	}
	e.SubEvents = append(e.SubEvents, SubEvent{
		Key:             e.NextKey,
		GameType:        calcapi.GameFixedPrice,
		ContestantCount: 1,
		Contestants:     blankContestants(1),
	})
	e.NextKey++
	return e
}

func (e Event) RemoveSubEvent(key int) (Event, error) {
	idx, err := e.find(key)
	if err != nil {
		return e, err
	}
	e = e.clone()
	e.SubEvents = slices.Delete(e.SubEvents, idx, idx+1)
	return e, nil
}

func (e Event) WithSubEventName(key int, name string) (Event, error) {
	return e.update(key, func(s *SubEvent) error {
		s.Name = name
		return nil
	})
}

func (e Event) WithGameType(key int, g calcapi.GameType) (Event, error) {
	if !g.Valid() {
		return e, fmt.Errorf("bad game type %q", g)
	}
	return e.update(key, func(s *SubEvent) error {
		s.GameType = g
		return nil
	})
}

// WithContestantCount replaces the contestants of the sub-event with n blank ones keyed 1..n.
// Names and prices entered before are discarded.
func (e Event) WithContestantCount(key int, n int) (Event, error) {
	if n < 1 || n > MaxContestants {
		return e, ErrBadCount
	}
	return e.update(key, func(s *SubEvent) error {
		s.ContestantCount = n
		s.Contestants = blankContestants(n)
		return nil
	})
}

func (e Event) updateContestant(key, cKey int, f func(c *Contestant)) (Event, error) {
	return e.update(key, func(s *SubEvent) error {
		idx := slices.IndexFunc(s.Contestants, func(c Contestant) bool { return c.Key == cKey })
		if idx < 0 {
			return fmt.Errorf("%w: key %v", ErrNoSuchContestant, cKey)
		}
		f(&s.Contestants[idx])
		return nil
	})
}

func (e Event) WithContestantName(key, cKey int, name string) (Event, error) {
	return e.updateContestant(key, cKey, func(c *Contestant) { c.Name = name })
}

func (e Event) WithContestantPrice(key, cKey int, price calcapi.Money) (Event, error) {
	return e.updateContestant(key, cKey, func(c *Contestant) { c.Price = price })
}

// WithCollapsed only affects how the sub-event is displayed.
func (e Event) WithCollapsed(key int, collapsed bool) (Event, error) {
	return e.update(key, func(s *SubEvent) error {
		s.Collapsed = collapsed
		return nil
	})
}

// Normalize regenerates the contestants of every sub-event whose contestant count does not
// match its contestants. Invalid counts are reset to the actual number of contestants.
func (e Event) Normalize() Event {
	e = e.clone()
	for i := range e.SubEvents {
		s := &e.SubEvents[i]
		switch {
		case s.ContestantCount < 1 || s.ContestantCount > MaxContestants:
			s.ContestantCount = len(s.Contestants)
		case s.ContestantCount != len(s.Contestants):
			s.Contestants = blankContestants(s.ContestantCount)
		}
	}
	return e
}

// CanSubmit reports whether the draft is complete enough to be sent.
func (e Event) CanSubmit() bool {
	return len(e.SubEvents) > 0
}

func (s SubEvent) request() calcapi.NewSubEvent {
	contestants := make([]calcapi.NewContestant, len(s.Contestants))
	for i, c := range s.Contestants {
		contestants[i] = calcapi.NewContestant{Name: c.Name, Price: c.Price}
	}
	gameType := s.GameType
	if !gameType.Valid() {
		gameType = calcapi.GameFixedPrice
	}
	return calcapi.NewSubEvent{
		Name:            s.Name,
		GameType:        gameType,
		ContestantCount: len(contestants),
		Contestants:     contestants,
	}
}

// CreateRequest builds the creation request. Keys and display flags are not sent.
func (e Event) CreateRequest() *calcapi.CreateEventRequest {
	e = e.Normalize()
	req := &calcapi.CreateEventRequest{
		Name:      e.Name,
		SubEvents: make([]calcapi.NewSubEvent, len(e.SubEvents)),
	}
	for i, s := range e.SubEvents {
		req.SubEvents[i] = s.request()
	}
	return req
}

func (e Event) UpdateRequest() *calcapi.UpdateEventRequest {
	e = e.Normalize()
	req := &calcapi.UpdateEventRequest{
		Name:      e.Name,
		SubEvents: make([]calcapi.UpdateSubEvent, len(e.SubEvents)),
	}
	for i, s := range e.SubEvents {
		req.SubEvents[i] = calcapi.UpdateSubEvent{
			ID:          s.ID,
			NewSubEvent: s.request(),
		}
	}
	return req
}

// FromEvent builds a draft mirroring an existing event, for editing it in place.
func FromEvent(ev *calcapi.Event) Event {
	e := Event{
		ID:        ev.ID,
		Name:      ev.Name,
		SubEvents: make([]SubEvent, len(ev.SubEvents)),
	}
	for i, s := range ev.SubEvents {
		contestants := make([]Contestant, len(s.Contestants))
		for j, c := range s.Contestants {
			contestants[j] = Contestant{Key: j + 1, Name: c.Name, Price: c.Price}
		}
		gameType := s.GameType
		if !gameType.Valid() {
			gameType = calcapi.GameFixedPrice
		}
		e.SubEvents[i] = SubEvent{
			Key:             i + 1,
			ID:              s.ID,
			Name:            s.Name,
			GameType:        gameType,
			ContestantCount: len(contestants),
			Contestants:     contestants,
		}
	}
	e.NextKey = len(e.SubEvents) + 1
	return e
}
