// Package eventlist contains the read-only views of the event list.
package eventlist

import (
	"context"
	"fmt"

	"github.com/lucke/calcutta-web/internal/calcapi"
	"github.com/lucke/calcutta-web/internal/util/sliceutil"
)

// Filter returns the events with the given status, keeping their order.
func Filter(events []calcapi.Event, status calcapi.Status) []calcapi.Event {
	return sliceutil.Filter(events, func(e calcapi.Event) bool { return e.Status == status })
}

func Count(events []calcapi.Event, status calcapi.Status) int {
	return sliceutil.Count(events, func(e calcapi.Event) bool { return e.Status == status })
}

type API interface {
	ListEvents(ctx context.Context, creds *calcapi.Credentials) ([]calcapi.Event, error)
}

type Archive struct {
	Events []calcapi.Event
}

func (a *Archive) Empty() bool { return len(a.Events) == 0 }

// LoadArchive fetches the closed events.
func LoadArchive(ctx context.Context, api API, creds *calcapi.Credentials) (*Archive, error) {
	events, err := api.ListEvents(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return &Archive{Events: Filter(events, calcapi.StatusClosed)}, nil
}

type Landing struct {
	OpenEvents int
}

// LoadLanding fetches the summary shown on the home page.
func LoadLanding(ctx context.Context, api API, creds *calcapi.Credentials) (*Landing, error) {
	events, err := api.ListEvents(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return &Landing{OpenEvents: Count(events, calcapi.StatusOpen)}, nil
}
