package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lucke/calcutta-web/internal/calcapi"
	"github.com/lucke/calcutta-web/internal/draft"
)

var (
	ErrEmptyDraft   = errors.New("add at least one sub-event")
	ErrNoContestant = errors.New("no contestant chosen")
	ErrNotEditing   = errors.New("draft does not belong to an existing event")
)

type API interface {
	ListEvents(ctx context.Context, creds *calcapi.Credentials) ([]calcapi.Event, error)
	GetEvent(ctx context.Context, creds *calcapi.Credentials, eventID calcapi.ID) (*calcapi.Event, error)
	CreateEvent(ctx context.Context, creds *calcapi.Credentials, req *calcapi.CreateEventRequest) error
	UpdateEvent(ctx context.Context, creds *calcapi.Credentials, eventID calcapi.ID, req *calcapi.UpdateEventRequest) error
	CloseEvent(ctx context.Context, creds *calcapi.Credentials, eventID calcapi.ID) error
	DeclareWinner(ctx context.Context, creds *calcapi.Credentials, eventID calcapi.ID, req *calcapi.WinnerRequest) error
	CloseSubEvent(ctx context.Context, creds *calcapi.Credentials, eventID, subEventID calcapi.ID) (*calcapi.CloseSubEventResponse, error)
	DeclareSubWinner(ctx context.Context, creds *calcapi.Credentials, eventID, subEventID calcapi.ID, req *calcapi.WinnerRequest) error
}

type Service struct {
	api API
	log *slog.Logger
}

func NewService(log *slog.Logger, api API) *Service {
	return &Service{api: api, log: log}
}

func (s *Service) ListEvents(ctx context.Context, creds *calcapi.Credentials) ([]calcapi.Event, error) {
	events, err := s.api.ListEvents(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// EditDraft fetches the event and builds a draft mirroring it.
func (s *Service) EditDraft(ctx context.Context, creds *calcapi.Credentials, eventID calcapi.ID) (draft.Event, error) {
	ev, err := s.api.GetEvent(ctx, creds, eventID)
	if err != nil {
		return draft.Event{}, fmt.Errorf("get event: %w", err)
	}
	return draft.FromEvent(ev), nil
}

func (s *Service) CreateEvent(ctx context.Context, creds *calcapi.Credentials, d draft.Event) error {
	if !d.CanSubmit() {
		return ErrEmptyDraft
	}
	if err := s.api.CreateEvent(ctx, creds, d.CreateRequest()); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	s.log.Info("created event", slog.String("name", d.Name), slog.Int("sub_events", len(d.SubEvents)))
	return nil
}

func (s *Service) UpdateEvent(ctx context.Context, creds *calcapi.Credentials, d draft.Event) error {
	if d.ID.IsZero() {
		return ErrNotEditing
	}
	if !d.CanSubmit() {
		return ErrEmptyDraft
	}
	if err := s.api.UpdateEvent(ctx, creds, d.ID, d.UpdateRequest()); err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	s.log.Info("updated event", slog.String("event_id", d.ID.String()))
	return nil
}

func (s *Service) CloseEvent(ctx context.Context, creds *calcapi.Credentials, eventID calcapi.ID) error {
	if err := s.api.CloseEvent(ctx, creds, eventID); err != nil {
		return fmt.Errorf("close event: %w", err)
	}
	s.log.Info("closed event", slog.String("event_id", eventID.String()))
	return nil
}

func (s *Service) DeclareWinner(ctx context.Context, creds *calcapi.Credentials, eventID, contestantID calcapi.ID) error {
	if contestantID.IsZero() {
		return ErrNoContestant
	}
	if err := s.api.DeclareWinner(ctx, creds, eventID, &calcapi.WinnerRequest{ContestantID: contestantID}); err != nil {
		return fmt.Errorf("declare winner: %w", err)
	}
	s.log.Info("declared winner",
		slog.String("event_id", eventID.String()),
		slog.String("contestant_id", contestantID.String()),
	)
	return nil
}

func (s *Service) DeclareSubWinner(ctx context.Context, creds *calcapi.Credentials, eventID, subEventID, contestantID calcapi.ID) error {
	if contestantID.IsZero() {
		return ErrNoContestant
	}
	req := &calcapi.WinnerRequest{ContestantID: contestantID}
	if err := s.api.DeclareSubWinner(ctx, creds, eventID, subEventID, req); err != nil {
		return fmt.Errorf("declare sub-event winner: %w", err)
	}
	s.log.Info("declared sub-event winner",
		slog.String("event_id", eventID.String()),
		slog.String("sub_event_id", subEventID.String()),
		slog.String("contestant_id", contestantID.String()),
	)
	return nil
}

// CloseSubEvent closes the sub-event and returns the payouts computed by the server.
func (s *Service) CloseSubEvent(ctx context.Context, creds *calcapi.Credentials, eventID, subEventID calcapi.ID) (*Payout, error) {
	rsp, err := s.api.CloseSubEvent(ctx, creds, eventID, subEventID)
	if err != nil {
		return nil, fmt.Errorf("close sub-event: %w", err)
	}
	s.log.Info("closed sub-event",
		slog.String("event_id", eventID.String()),
		slog.String("sub_event_id", subEventID.String()),
	)
	return newPayout(rsp), nil
}
