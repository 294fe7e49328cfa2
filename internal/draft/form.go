package draft

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/lucke/calcutta-web/internal/calcapi"
)

// The draft is carried in the HTML form of the builder page and decoded again on every post.
// Field names are derived from the stable keys.

func (s SubEvent) Field(name string) string {
	return fmt.Sprintf("sub-%v-%v", s.Key, name)
}

func (s SubEvent) ContestantField(c Contestant, name string) string {
	return fmt.Sprintf("sub-%v-c-%v-%v", s.Key, c.Key, name)
}

// Values encodes the draft as form values, the inverse of ParseForm.
func (e Event) Values() url.Values {
	v := url.Values{}
	v.Set("name", e.Name)
	if !e.ID.IsZero() {
		v.Set("id", e.ID.String())
	}
	v.Set("next-key", strconv.Itoa(e.NextKey))
	for _, s := range e.SubEvents {
		v.Add("sub", strconv.Itoa(s.Key))
		if !s.ID.IsZero() {
			v.Set(s.Field("id"), s.ID.String())
		}
		v.Set(s.Field("name"), s.Name)
		v.Set(s.Field("game"), string(s.GameType))
		v.Set(s.Field("count"), strconv.Itoa(s.ContestantCount))
		if s.Collapsed {
			v.Set(s.Field("collapsed"), "1")
		}
		for _, c := range s.Contestants {
			v.Add(s.Field("c"), strconv.Itoa(c.Key))
			v.Set(s.ContestantField(c, "name"), c.Name)
			v.Set(s.ContestantField(c, "price"), c.Price.Short())
		}
	}
	return v
}

func parseKey(s string) (int, error) {
	k, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || k <= 0 {
		return 0, fmt.Errorf("bad key %q", s)
	}
	return k, nil
}

// ParseForm decodes a draft from the builder form. Malformed numbers entered by the user are
// reported as problems and replaced with zero values; malformed structure fails the whole parse.
// The result is normalized.
func ParseForm(v url.Values) (Event, []string, error) {
	var problems []string
	e := Event{
		ID:   calcapi.ID(v.Get("id")),
		Name: v.Get("name"),
	}
	if nk := v.Get("next-key"); nk != "" {
		k, err := parseKey(nk)
		if err != nil {
			return Event{}, nil, fmt.Errorf("next key: %w", err)
		}
		e.NextKey = k
	}
	seen := make(map[int]struct{})
	for _, rawKey := range v["sub"] {
		key, err := parseKey(rawKey)
		if err != nil {
			return Event{}, nil, fmt.Errorf("sub-event: %w", err)
		}
		if _, ok := seen[key]; ok {
			return Event{}, nil, fmt.Errorf("duplicate sub-event key %v", key)
		}
		seen[key] = struct{}{}
		e.NextKey = max(e.NextKey, key+1)

		s := SubEvent{Key: key}
		s.ID = calcapi.ID(v.Get(s.Field("id")))
		s.Name = v.Get(s.Field("name"))
		s.GameType = calcapi.GameType(v.Get(s.Field("game")))
		if !s.GameType.Valid() {
			s.GameType = calcapi.GameFixedPrice
		}
		s.Collapsed = v.Get(s.Field("collapsed")) == "1"
		seenC := make(map[int]struct{})
		for _, rawCKey := range v[s.Field("c")] {
			cKey, err := parseKey(rawCKey)
			if err != nil {
				return Event{}, nil, fmt.Errorf("contestant: %w", err)
			}
			if _, ok := seenC[cKey]; ok {
				return Event{}, nil, fmt.Errorf("duplicate contestant key %v in sub-event %v", cKey, key)
			}
			seenC[cKey] = struct{}{}
			c := Contestant{Key: cKey, Name: v.Get(s.ContestantField(Contestant{Key: cKey}, "name"))}
			if rawPrice := strings.TrimSpace(v.Get(s.ContestantField(c, "price"))); rawPrice != "" {
				price, err := calcapi.ParseMoney(rawPrice)
				if err != nil || price < 0 {
					problems = append(problems, fmt.Sprintf("%v, contestant #%v: invalid %v", s.Title(), cKey, strings.ToLower(s.GameType.PriceLabel())))
				} else {
					c.Price = price
				}
			}
			s.Contestants = append(s.Contestants, c)
		}
		s.ContestantCount = len(s.Contestants)
		if rawCount := strings.TrimSpace(v.Get(s.Field("count"))); rawCount != "" {
			n, err := strconv.Atoi(rawCount)
			if err != nil || n < 1 || n > MaxContestants {
				problems = append(problems, fmt.Sprintf("%v: %v", s.Title(), ErrBadCount.Error()))
			} else {
				s.ContestantCount = n
			}
		}
		e.SubEvents = append(e.SubEvents, s)
	}
	if e.NextKey == 0 {
		e.NextKey = 1
	}
	return e.Normalize(), problems, nil
}

// Resized reports whether some sub-event of e, parsed from v, got a contestant count different
// from the number of contestant rows posted in v. Such rows were replaced with blank ones, which
// the user has not seen yet.
func (e Event) Resized(v url.Values) bool {
	for _, s := range e.SubEvents {
		if s.ContestantCount != len(v[s.Field("c")]) {
			return true
		}
	}
	return false
}

type ActionKind int

const (
	ActionRefresh ActionKind = iota
	ActionAddSubEvent
	ActionRemoveSubEvent
	ActionCollapse
	ActionExpand
	ActionSubmit
)

type Action struct {
	Kind ActionKind
	Key  int
}

// ParseAction decodes the value of the button that submitted the builder form, such as
// "add-sub", "collapse:3" or "submit".
func ParseAction(s string) (Action, error) {
	name, rawKey, hasKey := strings.Cut(s, ":")
	var a Action
	switch name {
	case "", "refresh":
		a.Kind = ActionRefresh
	case "add-sub":
		a.Kind = ActionAddSubEvent
	case "remove":
		a.Kind = ActionRemoveSubEvent
	case "collapse":
		a.Kind = ActionCollapse
	case "expand":
		a.Kind = ActionExpand
	case "submit":
		a.Kind = ActionSubmit
	default:
		return Action{}, fmt.Errorf("unknown action %q", name)
	}
	needsKey := a.Kind == ActionRemoveSubEvent || a.Kind == ActionCollapse || a.Kind == ActionExpand
	if needsKey != hasKey {
		return Action{}, fmt.Errorf("bad action %q", s)
	}
	if hasKey {
		k, err := parseKey(rawKey)
		if err != nil {
			return Action{}, fmt.Errorf("action: %w", err)
		}
		a.Key = k
	}
	return a, nil
}

// Apply performs a non-submitting action on the draft.
func (e Event) Apply(a Action) (Event, error) {
	switch a.Kind {
	case ActionRefresh, ActionSubmit:
		return e, nil
	case ActionAddSubEvent:
		return e.AddSubEvent(), nil
	case ActionRemoveSubEvent:
		return e.RemoveSubEvent(a.Key)
	case ActionCollapse:
		return e.WithCollapsed(a.Key, true)
	case ActionExpand:
		return e.WithCollapsed(a.Key, false)
	default:
		panic("bad action")
	}
}
