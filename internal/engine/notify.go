package engine

import (
	"context"

	"github.com/fathomsurvey/fathom/internal/common"
	"github.com/fathomsurvey/fathom/internal/store"
)

// Notifier receives completion events. Delivery is best effort: the engine
// logs failures and moves on, a notification must never fail a finalize.
type Notifier interface {
	SessionCompleted(ctx context.Context, sess *store.Session, report *store.Report) error
}

// logNotifier is the default sink when no webhook or channel is configured.
type logNotifier struct{}

func (logNotifier) SessionCompleted(_ context.Context, sess *store.Session, report *store.Report) error {
	common.Logger().Info("session completed",
		"session_id", sess.ID,
		"report_version", report.Version)
	return nil
}
