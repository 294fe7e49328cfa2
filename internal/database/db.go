package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gorilla/sessions"
	"github.com/wader/gormstore/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lucke/calcutta-web/internal/journal"
	"github.com/lucke/calcutta-web/internal/util/slogx"
	"github.com/lucke/calcutta-web/internal/webui"
)

type Options struct {
	Path          string        `toml:"path"`
	Debug         bool          `toml:"debug"`
	SlowThreshold time.Duration `toml:"slow-threshold"`
	BusyTimeout   time.Duration `toml:"busy-timeout"`
	UseWAL        bool          `toml:"use-wal"`
}

func (o *Options) FillDefaults() {
	if o.Path == "" {
		o.Path = "calcutta-web.db"
	}
	if o.SlowThreshold == 0 {
		o.SlowThreshold = 200 * time.Millisecond
	}
	if o.BusyTimeout == 0 {
		o.BusyTimeout = 1 * time.Minute
	}
}

type DB struct {
	db  *gorm.DB
	log *slog.Logger
}

var (
	_ journal.DB                = (*DB)(nil)
	_ webui.SessionStoreFactory = (*DB)(nil)
)

func (d *DB) Close() {
	db, err := d.db.DB()
	if err != nil {
		d.log.Error("could not get underlying db", slogx.Err(err))
		return
	}
	if err := db.Close(); err != nil {
		d.log.Error("could not close db", slogx.Err(err))
	}
}

func buildPath(o Options) string {
	var params []string
	if o.UseWAL {
		params = append(params, "_journal_mode=WAL", "_synchronous=NORMAL")
	}
	params = append(params, fmt.Sprintf("_busy_timeout=%v", o.BusyTimeout.Milliseconds()))
	return o.Path + "?" + strings.Join(params, "&")
}

func New(log *slog.Logger, o Options) (*DB, error) {
	o.FillDefaults()

	log.Info("opening db", slog.String("path", o.Path))
	db, err := gorm.Open(sqlite.Open(buildPath(o)), &gorm.Config{
		Logger: Logger(log, o),
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	d := &DB{db: db, log: log}

	log.Info("migrating db")
	if err := db.AutoMigrate(models...); err != nil {
		d.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}

	log.Info("db opened")
	return d, nil
}

func (d *DB) CreateEntry(ctx context.Context, e journal.Entry) error {
	tx := d.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&e)
	if err := tx.Error; err != nil {
		return fmt.Errorf("create journal entry: %w", err)
	}
	if tx.RowsAffected == 0 {
		return journal.ErrDuplicate
	}
	return nil
}

func (d *DB) FinishEntry(ctx context.Context, token string, outcome journal.Outcome, message string, at time.Time) error {
	err := d.db.WithContext(ctx).Model(&journal.Entry{}).Where("token = ?", token).Updates(map[string]any{
		"outcome":     outcome,
		"message":     message,
		"finished_at": at,
	}).Error
	if err != nil {
		return fmt.Errorf("finish journal entry: %w", err)
	}
	return nil
}

func (d *DB) ListEntries(ctx context.Context, limit int) ([]journal.Entry, error) {
	var entries []journal.Entry
	err := d.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("list journal entries: %w", err)
	}
	return entries, nil
}

func (d *DB) PruneEntries(ctx context.Context, before time.Time) error {
	err := d.db.WithContext(ctx).Delete(&journal.Entry{}, "created_at < ?", before).Error
	if err != nil {
		return fmt.Errorf("prune journal: %w", err)
	}
	return nil
}

func (d *DB) NewSessionStore(ctx context.Context, opts webui.SessionOptions) sessions.Store {
	s := gormstore.NewOptions(d.db, gormstore.Options{TableName: "web_sessions"}, opts.Keys()...)
	s.SessionOpts.MaxAge = int(opts.MaxAge.Seconds())
	s.SessionOpts.HttpOnly = true
	s.SessionOpts.SameSite = opts.SameSite()
	go s.PeriodicCleanup(opts.CleanupInterval, ctx.Done())
	return s
}
