package sqlstore

import "github.com/goliatone/go-event-registrations/core"

var _ core.LedgerStore = (*LedgerStore)(nil)
