package notify

import (
	"github.com/meridianbank/returns-engine/internal/logger"
	"github.com/meridianbank/returns-engine/internal/repository"
)

// Notice kinds queued by the refund engine and manual-review handling.
// Content rendering and delivery are external; the engine only records
// what needs sending.
const (
	KindRefundList        = "refund_daily_list"
	KindRefundSent        = "refund_sent"
	KindMarketsFCA        = "markets_fca"
	KindAdHoc             = "adhoc"
	KindNoEmailReport     = "no_email_report"
	KindNostroNotCredited = "nostro_not_credited"
	KindManualReview      = "manual_review"
)

// Queue records outbound notices against a case.
type Queue struct {
	repo *repository.NoticeRepo
}

func NewQueue(repo *repository.NoticeRepo) *Queue {
	return &Queue{repo: repo}
}

// Enqueue records one notice. Failures are logged and swallowed: a
// notice that cannot be queued never blocks case processing.
func (q *Queue) Enqueue(caseID, kind, recipient, detail string) {
	if q == nil || q.repo == nil {
		return
	}
	if err := q.repo.Append(caseID, kind, recipient, detail); err != nil {
		logger.For("notify").Error("failed to queue notice",
			"case_id", caseID, "kind", kind, "error", err)
		return
	}
	logger.For("notify").Info("notice queued",
		"case_id", caseID, "kind", kind, "recipient", recipient)
}
