package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vetdocs/triage/internal/model"
)

// confidenceStage derives the processing route from the classification
// confidence. Pure threshold comparison, no I/O.
type confidenceStage struct {
	high float64
	low  float64
}

func (s *confidenceStage) Name() string { return StageConfidence }

func (s *confidenceStage) Validate(rec *model.Record) bool {
	return rec.Classification != nil && rec.Category() != model.CategoryUnknown
}

func (s *confidenceStage) Run(ctx context.Context, rec *model.Record) error {
	confidence := rec.Confidence()

	var route model.Route
	var reason string
	switch {
	case confidence >= s.high:
		route = model.RouteAutoProcess
		reason = fmt.Sprintf("High confidence (%.2f) - safe for auto-processing", confidence)
	case confidence >= s.low:
		route = model.RouteHumanReview
		reason = fmt.Sprintf("Medium confidence (%.2f) - requires human review", confidence)
	default:
		route = model.RouteRejected
		reason = fmt.Sprintf("Low confidence (%.2f) - document discarded", confidence)
	}

	rec.Routing = &model.RoutingDecision{
		Route:          route,
		Reason:         reason,
		RequiresReview: route == model.RouteHumanReview,
		AutoProcessed:  route == model.RouteAutoProcess,
		Rejected:       route == model.RouteRejected,
		Discarded:      route == model.RouteRejected,
	}

	zap.L().Info("confidence decision",
		zap.String("document", rec.OriginalFilename),
		zap.String("route", string(route)),
		zap.String("reason", reason))
	return nil
}
