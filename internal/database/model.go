package database

import (
	"github.com/lucke/calcutta-web/internal/journal"
)

// Sessions are migrated by gormstore itself.
var models = []any{
	&journal.Entry{},
}
