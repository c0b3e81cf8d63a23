package tutors

import (
	"log/slog"

	"patas/internal/listview"
	listmetrics "patas/internal/listview/metrics"
)

// NewFacade wires the tutors collection into a paginated list view.
func NewFacade(service *Service, cfg listview.Config, logger *slog.Logger, m *listmetrics.Metrics) *listview.Facade[Tutor] {
	cfg.Collection = "tutors"
	return listview.New(
		cfg,
		service.List,
		func(t Tutor) string { return t.Name },
		logger,
		listview.WithMetrics[Tutor](m),
	)
}
