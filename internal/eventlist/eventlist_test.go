package eventlist

import (
	"context"
	"errors"
	"testing"

	"github.com/lucke/calcutta-web/internal/calcapi"
)

type fakeAPI struct {
	events []calcapi.Event
	err    error
}

func (f *fakeAPI) ListEvents(context.Context, *calcapi.Credentials) ([]calcapi.Event, error) {
	return f.events, f.err
}

func TestArchive(t *testing.T) {
	api := &fakeAPI{events: []calcapi.Event{
		{ID: "1", Status: calcapi.StatusClosed, Name: "A"},
		{ID: "2", Status: calcapi.StatusOpen, Name: "B"},
	}}
	a, err := LoadArchive(context.Background(), api, &calcapi.Credentials{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(a.Events) != 1 || a.Events[0].Name != "A" {
		t.Errorf("unexpected archive: %+v", a.Events)
	}
	if a.Empty() {
		t.Errorf("archive must not be empty")
	}

	l, err := LoadLanding(context.Background(), api, &calcapi.Credentials{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.OpenEvents != 1 {
		t.Errorf("got=%d want=1", l.OpenEvents)
	}
}

func TestArchiveEmpty(t *testing.T) {
	a, err := LoadArchive(context.Background(), &fakeAPI{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !a.Empty() {
		t.Errorf("expected empty archive")
	}
	if _, err := LoadArchive(context.Background(), &fakeAPI{err: errors.New("boom")}, nil); err == nil {
		t.Errorf("expected error")
	}
}

func TestFilterKeepsOrder(t *testing.T) {
	events := []calcapi.Event{
		{ID: "3", Status: calcapi.StatusOpen},
		{ID: "1", Status: calcapi.StatusClosed},
		{ID: "2", Status: calcapi.StatusOpen},
	}
	got := Filter(events, calcapi.StatusOpen)
	if len(got) != 2 || got[0].ID != "3" || got[1].ID != "2" {
		t.Errorf("unexpected result: %+v", got)
	}
	if n := Count(events, calcapi.StatusClosed); n != 1 {
		t.Errorf("got=%d want=1", n)
	}
}
