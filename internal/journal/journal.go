// Package journal records the mutating actions submitted from the web UI. Every form carries a
// token which is claimed before the API call, so the same form cannot be submitted twice.
package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/lucke/calcutta-web/internal/calcapi"
	"github.com/lucke/calcutta-web/internal/util/slogx"
)

var (
	ErrDuplicate = errors.New("this form has already been submitted")
	ErrBadToken  = errors.New("bad form token")
)

type Outcome string

const (
	OutcomePending Outcome = "pending"
	OutcomeDone    Outcome = "done"
	OutcomeFailed  Outcome = "failed"
)

type Entry struct {
	Token      string `gorm:"primaryKey"`
	Kind       string
	Username   string
	Target     string
	Outcome    Outcome
	Message    string
	CreatedAt  time.Time `gorm:"index"`
	FinishedAt *time.Time
}

func (e Entry) Finished() bool { return e.Outcome != OutcomePending }

type DB interface {
	// CreateEntry returns ErrDuplicate if an entry with the same token exists.
	CreateEntry(ctx context.Context, e Entry) error
	FinishEntry(ctx context.Context, token string, outcome Outcome, message string, at time.Time) error
	ListEntries(ctx context.Context, limit int) ([]Entry, error)
	PruneEntries(ctx context.Context, before time.Time) error
}

type Options struct {
	GCInterval  time.Duration `toml:"gc-interval"`
	Retention   time.Duration `toml:"retention"`
	RecentLimit int           `toml:"recent-limit"`
}

func (o *Options) FillDefaults() {
	if o.GCInterval == 0 {
		o.GCInterval = 10 * time.Minute
	}
	if o.Retention == 0 {
		o.Retention = 24 * time.Hour
	}
	if o.RecentLimit == 0 {
		o.RecentLimit = 20
	}
}

type Journal struct {
	db     DB
	o      Options
	log    *slog.Logger
	ctx    context.Context
	cancel func()
	done   chan struct{}
}

func New(log *slog.Logger, db DB, o Options) *Journal {
	o.FillDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	j := &Journal{
		db:     db,
		o:      o,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go j.loop()
	return j
}

func (j *Journal) Close() {
	j.cancel()
	<-j.done
}

const tokenLen = 21

// NewToken generates a token to embed into a form.
func NewToken() (string, error) {
	token, err := gonanoid.New(tokenLen)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return token, nil
}

func validToken(token string) bool {
	if len(token) != tokenLen {
		return false
	}
	for _, c := range []byte(token) {
		ok := ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9') || c == '_' || c == '-'
		if !ok {
			return false
		}
	}
	return true
}

// Claim marks the token as used by an action. Only the first claim of a token succeeds, the
// following ones return ErrDuplicate.
func (j *Journal) Claim(ctx context.Context, token, kind, username, target string) error {
	if !validToken(token) {
		return ErrBadToken
	}
	err := j.db.CreateEntry(ctx, Entry{
		Token:     token,
		Kind:      kind,
		Username:  username,
		Target:    target,
		Outcome:   OutcomePending,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			j.log.Info("duplicate action rejected",
				slog.String("kind", kind),
				slog.String("username", username),
			)
			return ErrDuplicate
		}
		return fmt.Errorf("create entry: %w", err)
	}
	return nil
}

// Finish records the result of a claimed action. Failures to record are only logged.
func (j *Journal) Finish(ctx context.Context, token string, actionErr error) {
	outcome, msg := OutcomeDone, ""
	if actionErr != nil {
		outcome = OutcomeFailed
		msg = calcapi.UserMessage(actionErr, actionErr.Error())
	}
	if err := j.db.FinishEntry(ctx, token, outcome, msg, time.Now().UTC()); err != nil {
		j.log.Warn("could not finish journal entry", slog.String("token", token), slogx.Err(err))
	}
}

// Recent returns the latest entries, newest first.
func (j *Journal) Recent(ctx context.Context) ([]Entry, error) {
	entries, err := j.db.ListEntries(ctx, j.o.RecentLimit)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

func (j *Journal) loop() {
	defer close(j.done)
	ticker := time.NewTicker(j.o.GCInterval)
	defer ticker.Stop()
	for {
		err := j.db.PruneEntries(j.ctx, time.Now().UTC().Add(-j.o.Retention))
		if err != nil && !errors.Is(err, context.Canceled) {
			j.log.Warn("could not prune journal", slogx.Err(err))
		}
		select {
		case <-j.ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
