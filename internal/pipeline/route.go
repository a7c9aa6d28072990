package pipeline

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/vetdocs/triage/internal/model"
	"github.com/vetdocs/triage/internal/router"
)

// routeStage moves the source file into the veteran folder tree. All
// documents are placed regardless of route; low-confidence placements carry
// a review suffix in the filename.
type routeStage struct {
	router *router.Router
}

func (s *routeStage) Name() string { return StageRoute }

func (s *routeStage) Validate(rec *model.Record) bool {
	return rec.Routing != nil && rec.Resolution != nil && rec.SourcePath != ""
}

func (s *routeStage) Run(ctx context.Context, rec *model.Record) error {
	placement, err := s.router.Place(
		rec.SourcePath,
		rec.Category(),
		rec.Resolution.VeteranName,
		rec.Confidence(),
	)
	if err != nil {
		return eris.Wrap(err, "place document")
	}

	rec.Placement = placement
	return nil
}
