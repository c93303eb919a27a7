package consult

import (
	"context"

	"go.uber.org/zap"

	"github.com/ajuntament-olot/pla-usos/internal/model"
)

// Notifier forwards uncataloged-activity inquiries to the review board.
// There is no wired transport yet; the default implementation only records
// that manual follow-up is pending.
type Notifier interface {
	NotifyReviewBoard(ctx context.Context, c model.Consultation) error
}

// LogNotifier is the placeholder Notifier. Every call logs a warning so
// pending reviews remain visible in the operational logs.
type LogNotifier struct{}

// NotifyReviewBoard logs the pending review.
func (LogNotifier) NotifyReviewBoard(ctx context.Context, c model.Consultation) error {
	zap.L().Warn("consult: review board notification not wired, record needs manual follow-up",
		zap.String("consultation_id", c.ID),
		zap.String("dom_code", c.DomCode),
	)
	return nil
}
