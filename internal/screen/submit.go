package screen

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Simplici0/metalrate/internal/apperr"
	"github.com/Simplici0/metalrate/internal/catalog"
	"github.com/Simplici0/metalrate/internal/pricing"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a transient message for the merchant.
type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// SubmitResult describes what happened to a submission. Outcome is nil when
// nothing was sent.
type SubmitResult struct {
	Notice  Notice           `json:"notice"`
	Changes int              `json:"changes"`
	Outcome *pricing.Outcome `json:"outcome,omitempty"`
}

// Submit builds the change set for the locked selection and hands it to the
// price updater. Preconditions that fail are returned as validation errors.
// A failed update is reported in the result, not retried.
func (s *Screen) Submit(ctx context.Context) (SubmitResult, error) {
	selected, sub, err := s.prepare()
	if err != nil {
		return SubmitResult{}, err
	}
	defer s.finish()

	if len(sub.Updates) == 0 {
		return SubmitResult{Notice: Notice{Level: LevelInfo, Message: "no price changes to submit"}}, nil
	}

	outcome, submitErr := s.deps.Updater.UpdatePrices(ctx, sub)
	if s.deps.Recorder != nil {
		if _, err := s.deps.Recorder.Record(ctx, titles(selected), sub, outcome, submitErr); err != nil {
			s.logger.Error("failed to record price submission", zap.Error(err))
		}
	}

	result := SubmitResult{Changes: len(sub.Updates), Outcome: &outcome}
	switch {
	case submitErr != nil:
		s.logger.Error("price submission failed",
			zap.String("collections", joinTitles(selected)),
			zap.Int("changes", len(sub.Updates)),
			zap.Error(submitErr),
		)
		result.Notice = Notice{Level: LevelError, Message: fmt.Sprintf("price update failed: %v", submitErr)}
	case !outcome.OK:
		result.Notice = Notice{Level: LevelError, Message: "price update failed"}
	default:
		s.logger.Info("price submission applied",
			zap.String("collections", joinTitles(selected)),
			zap.Int("changes", len(sub.Updates)),
			zap.Int("updated", outcome.Updated),
		)
		result.Notice = Notice{Level: LevelSuccess, Message: fmt.Sprintf("updated %d variant prices", outcome.Updated)}
	}
	return result, nil
}

// prepare validates the preconditions under the lock and marks the screen as
// submitting.
func (s *Screen) prepare() ([]catalog.Collection, pricing.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.sel.Locked() {
		return nil, pricing.Submission{}, apperr.Validation("selection", "confirm the selection before submitting")
	}
	if s.submitting {
		return nil, pricing.Submission{}, apperr.Validation("submission", "a submission is already in progress")
	}

	selected := s.sel.Filter(s.collections)
	if catalog.Summarize(selected).Empty() {
		return nil, pricing.Submission{}, apperr.Validation("selection", "the selected collections have no products")
	}

	configs := s.deps.Store.Snapshot()
	if bad := invalid(selected, configs); len(bad) > 0 {
		return nil, pricing.Submission{}, apperr.Validation("rate", "set a rate per gram greater than 0 for: %s", joinTitles(bad))
	}

	s.submitting = true
	return selected, pricing.Submission{Updates: s.deps.Builder.Build(selected, configs)}, nil
}

func (s *Screen) finish() {
	s.mu.Lock()
	s.submitting = false
	s.mu.Unlock()
}
