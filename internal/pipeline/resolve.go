package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/vetdocs/triage/internal/identity"
	"github.com/vetdocs/triage/internal/model"
	"github.com/vetdocs/triage/internal/store"
)

// resolveStage picks the veteran identity for the document. Candidates are
// tried in priority order (extracted primary name, name list, form field,
// filename) and validated as human names; documents with no valid candidate
// fall back to Unknown_Veteran rather than failing.
type resolveStage struct {
	registry *identity.Registry
	store    store.Store
}

func (s *resolveStage) Name() string { return StageResolve }

func (s *resolveStage) Validate(rec *model.Record) bool {
	return rec.Routing != nil
}

func (s *resolveStage) Run(ctx context.Context, rec *model.Record) error {
	raw, source := s.pickCandidate(rec)

	sanitized := identity.UnknownVeteran
	if raw != "" {
		sanitized = identity.Sanitize(raw)
	} else {
		zap.L().Warn("no valid human name found, using fallback",
			zap.String("document", rec.OriginalFilename))
	}

	canonical, grouped := s.registry.Resolve(sanitized)
	if grouped {
		zap.L().Info("grouping with existing veteran",
			zap.String("document", rec.OriginalFilename),
			zap.String("veteran", canonical))
	}

	if canonical != identity.UnknownVeteran {
		if err := s.store.RegisterIdentity(ctx, canonical); err != nil {
			zap.L().Warn("failed to persist identity",
				zap.String("veteran", canonical), zap.Error(err))
		}
	}

	rec.Resolution = &model.Resolution{
		VeteranName: canonical,
		RawName:     raw,
		NameSource:  source,
		Grouped:     grouped,
	}
	return nil
}

// pickCandidate returns the first valid human name and its source, or
// ("", "fallback") when nothing validates.
func (s *resolveStage) pickCandidate(rec *model.Record) (string, string) {
	ex := rec.Extraction

	if ex != nil {
		if identity.IsValidHumanName(ex.PrimaryName) {
			return ex.PrimaryName, "primary_name"
		}
		if len(ex.Names) > 0 && identity.IsValidHumanName(ex.Names[0]) {
			return ex.Names[0], "names"
		}
		if name := ex.Field("name"); identity.IsValidHumanName(name) {
			return name, "form_field"
		}
	}

	if name := identity.FromFilename(rec.OriginalFilename); identity.IsValidHumanName(name) {
		return name, "filename"
	}

	return "", "fallback"
}
