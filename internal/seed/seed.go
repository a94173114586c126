// Package seed installs the built-in system templates.
package seed

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/iliyamo/checklistpro/internal/metrics"
	"github.com/iliyamo/checklistpro/internal/model"
	"github.com/iliyamo/checklistpro/internal/repository"
	"github.com/iliyamo/checklistpro/internal/service"
)

//go:embed system_templates.json
var systemTemplatesJSON []byte

type entry struct {
	service.TemplatePayload
	Rating *int `json:"rating"`
}

// SystemTemplates decodes the embedded seed set into records ready to be
// stored.  Alternatives given as plain strings are logged and stored with a
// zero price.
func SystemTemplates() ([]*model.Template, error) {
	var entries []entry
	if err := json.Unmarshal(systemTemplatesJSON, &entries); err != nil {
		return nil, fmt.Errorf("decode system templates: %w", err)
	}
	out := make([]*model.Template, 0, len(entries))
	for _, e := range entries {
		if errs := service.ValidateTemplatePayload(e.TemplatePayload); len(errs) > 0 {
			return nil, fmt.Errorf("system template %q: %v", e.Name, errs)
		}
		if n := e.BareAlternatives(); n > 0 {
			slog.Warn("seed template alternatives are plain strings; stored with price 0",
				"template", e.Name, "count", n)
			metrics.DataQualityWarnings.WithLabelValues("bare_alternative").Add(float64(n))
		}
		t := service.SanitizeTemplatePayload(e.TemplatePayload).Template()
		t.Type = model.TemplateTypeSystem
		t.IsPublic = true
		t.Rating = e.Rating
		t.Normalize()
		if errs := t.Validate(); len(errs) > 0 {
			return nil, fmt.Errorf("system template %q: %v", t.Name, errs)
		}
		out = append(out, t)
	}
	return out, nil
}

// Run stores the system templates unless at least one system template
// already exists.  It returns the number of templates inserted.
func Run(ctx context.Context, repo *repository.TemplateRepo) (int, error) {
	existing, err := repo.CountByType(ctx, model.TemplateTypeSystem)
	if err != nil {
		return 0, fmt.Errorf("count system templates: %w", err)
	}
	if existing > 0 {
		slog.Info("system templates already present; skipping seed", "count", existing)
		return 0, nil
	}
	list, err := SystemTemplates()
	if err != nil {
		return 0, err
	}
	for i, t := range list {
		if err := repo.Create(ctx, t); err != nil {
			return i, fmt.Errorf("insert system template %q: %w", t.Name, err)
		}
		metrics.TemplatesCreated.WithLabelValues("seed").Inc()
	}
	slog.Info("seeded system templates", "count", len(list))
	return len(list), nil
}
