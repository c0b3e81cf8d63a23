package pets

import (
	"log/slog"

	"patas/internal/listview"
	listmetrics "patas/internal/listview/metrics"
)

// NewFacade wires the pets collection into a paginated list view.
func NewFacade(service *Service, cfg listview.Config, logger *slog.Logger, m *listmetrics.Metrics) *listview.Facade[Pet] {
	cfg.Collection = "pets"
	return listview.New(
		cfg,
		service.List,
		func(p Pet) string { return p.Name },
		logger,
		listview.WithMetrics[Pet](m),
	)
}
