// Package app builds the storefront object graph from configuration.
package app

import (
	"fmt"

	"github.com/ashendes/neurophoto-storefront/internal/api"
	"github.com/ashendes/neurophoto-storefront/internal/cart"
	"github.com/ashendes/neurophoto-storefront/internal/catalog"
	"github.com/ashendes/neurophoto-storefront/internal/checkout"
	"github.com/ashendes/neurophoto-storefront/internal/config"
	"github.com/ashendes/neurophoto-storefront/internal/history"
	"github.com/ashendes/neurophoto-storefront/internal/store"
	"github.com/ashendes/neurophoto-storefront/internal/telegram"
	"github.com/ashendes/neurophoto-storefront/internal/upload"
	log "github.com/sirupsen/logrus"
)

// App is a wired storefront client
type App struct {
	Config    *config.Config
	Identity  telegram.Identity
	Store     *store.Store
	Client    *api.Client
	Cart      *cart.Store
	Stager    *upload.Stager
	Submitter *upload.Submitter
	Catalog   *catalog.Service
	Checkout  *checkout.Flow
	History   *history.Service
}

// New opens the local store and wires every component. nav is told about
// paid orders; it may be nil.
func New(cfg *config.Config, nav checkout.Navigator) (*App, error) {
	st, err := store.Open(cfg.Store.Path, cfg.Store.SessionID)
	if err != nil {
		return nil, err
	}

	a, err := wire(cfg, st, nav)
	if err != nil {
		st.Close()
		return nil, err
	}

	log.WithFields(log.Fields{
		"backend":     cfg.API.BaseURL,
		"store":       cfg.Store.Path,
		"session":     st.SessionID(),
		"user":        a.Identity.TelegramUserID,
		"upload_mode": cfg.Checkout.UploadMode,
	}).Debug("Storefront ready")
	return a, nil
}

func wire(cfg *config.Config, st *store.Store, nav checkout.Navigator) (*App, error) {
	client := api.New(api.Options{
		BaseURL:       cfg.API.BaseURL,
		OrdersPrefix:  cfg.API.OrdersPrefix,
		InitData:      cfg.Telegram.InitData,
		Timeout:       cfg.API.Timeout,
		RetryCount:    cfg.API.RetryCount,
		MaxConcurrent: cfg.API.MaxConcurrent,
	})

	cartStore, err := cart.New(st)
	if err != nil {
		return nil, err
	}
	stager, err := upload.NewStager(st)
	if err != nil {
		return nil, err
	}
	// emptying the cart drops the photos staged for it
	cartStore.OnClear(stager.Clear)

	submitter := upload.NewSubmitter(stager, client, st)
	identity := telegram.IdentityFrom(cfg.Telegram.InitData)

	flow := checkout.New(checkout.Deps{
		Orders:    client,
		Cart:      cartStore,
		Photos:    stager,
		Submitter: submitter,
		Session:   st,
		Navigator: nav,
	}, checkout.Options{
		Poll: checkout.PollConfig{
			Interval:    cfg.Checkout.PollInterval,
			MaxInterval: cfg.Checkout.PollMaxInterval,
			Timeout:     cfg.Checkout.PollTimeout,
			MaxErrors:   cfg.Checkout.PollMaxErrors,
		},
		UploadMode: cfg.Checkout.UploadMode,
		Identity:   identity,
	})

	return &App{
		Config:    cfg,
		Identity:  identity,
		Store:     st,
		Client:    client,
		Cart:      cartStore,
		Stager:    stager,
		Submitter: submitter,
		Catalog:   catalog.New(client, cartStore),
		Checkout:  flow,
		History:   history.New(client),
	}, nil
}

func (a *App) Close() error {
	if err := a.Store.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	return nil
}
