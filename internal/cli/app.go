package cli

import (
	"log/slog"

	"patas/internal/api"
	"patas/internal/listview"
	"patas/internal/pets"
	"patas/internal/platform/config"
	"patas/internal/platform/logger"
	"patas/internal/session"
	"patas/internal/session/store"
	"patas/internal/tutors"
)

// app bundles the wired client core: one session manager, one pipeline,
// and the per-collection services built over it.
type app struct {
	cfg     config.Client
	log     *slog.Logger
	session *session.Manager
	auth    *api.AuthClient
	pets    *pets.Service
	tutors  *tutors.Service
}

func newApp() *app {
	cfg := config.ClientFromEnv()
	cfg.APIURL = resolveAPIURL(cfg.APIURL)
	log := logger.New()

	credentials := store.NewFileStore(cfg.CredentialsFile)
	authClient := api.NewAuthClient(cfg.APIURL, cfg.HTTPTimeout)
	manager := session.NewManager(credentials, authClient, log, session.WithSkew(cfg.TokenSkew))
	client := api.NewClient(cfg.APIURL, cfg.HTTPTimeout, manager, log)

	return &app{
		cfg:     cfg,
		log:     log,
		session: manager,
		auth:    authClient,
		pets:    pets.NewService(client, log),
		tutors:  tutors.NewService(client, log),
	}
}

// listConfig sizes a list facade, letting a flag override the configured
// page size.
func (a *app) listConfig(sizeOverride int) listview.Config {
	size := a.cfg.PageSize
	if sizeOverride > 0 {
		size = sizeOverride
	}
	return listview.Config{
		PageSize:       size,
		SearchPageSize: a.cfg.SearchPageSize,
		MinSearchLen:   a.cfg.MinSearchLen,
	}
}

func (a *app) petFacade(sizeOverride int) *listview.Facade[pets.Pet] {
	return pets.NewFacade(a.pets, a.listConfig(sizeOverride), a.log, nil)
}

func (a *app) tutorFacade(sizeOverride int) *listview.Facade[tutors.Tutor] {
	return tutors.NewFacade(a.tutors, a.listConfig(sizeOverride), a.log, nil)
}
