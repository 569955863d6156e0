// Package app wires configuration, storage and services together for the
// binaries under cmd/.
package app

import (
	"context"

	"gorm.io/gorm"

	"stitchdesk/internal/broker"
	"stitchdesk/internal/config"
	"stitchdesk/internal/db"
	"stitchdesk/internal/events"
	"stitchdesk/internal/logger"
	"stitchdesk/internal/media"
	"stitchdesk/internal/notify"
	"stitchdesk/internal/razorpay"
	"stitchdesk/internal/render"
	"stitchdesk/internal/repository"
	"stitchdesk/internal/service"
)

type App struct {
	Config   config.Config
	DB       *gorm.DB
	Broker   *broker.Client
	Media    *media.Store
	Renderer *render.Renderer
	Services *service.Services
	Subs     *repository.Subscriptions
	Log      *logger.Logger
}

// New opens the database and, when AMQP_URL is set, the broker. A broker
// that cannot be reached is logged and skipped: events are dropped and
// e-mail falls back to SMTP or the log.
func New(cfg config.Config, log *logger.Logger) (*App, error) {
	gdb, err := db.Open(cfg.DSN)
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, DB: gdb, Log: log}

	if cfg.AMQPURL != "" {
		bc, err := broker.Dial(cfg.AMQPURL)
		if err == nil {
			err = bc.DeclareTopology()
			if err != nil {
				bc.Close()
			}
		}
		if err != nil {
			log.Error("broker_unavailable", err, nil)
		} else {
			a.Broker = bc
		}
	}
	if !cfg.Razorpay.Enabled() {
		log.Info("razorpay_disabled", map[string]any{"hint": "set RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET"})
	}

	a.Media = media.NewStore(cfg.MediaDir)
	a.Renderer = render.New(a.Media)
	a.Subs = repository.NewSubscriptions(gdb)

	var emitter events.Emitter = events.Nop{}
	if a.Broker != nil {
		emitter = events.NewBus(a.Broker, log)
	}

	a.Services = service.New(service.Deps{
		Users:         repository.NewUsers(gdb),
		Shops:         repository.NewShops(gdb),
		Customers:     repository.NewCustomers(gdb),
		Measurements:  repository.NewMeasurements(gdb),
		Orders:        repository.NewOrders(gdb),
		Invoices:      repository.NewInvoices(gdb),
		Quotations:    repository.NewQuotations(gdb),
		Catalog:       repository.NewCatalog(gdb),
		Inventory:     repository.NewInventory(gdb),
		Gallery:       repository.NewGallery(gdb),
		Subscriptions: a.Subs,

		Media:    a.Media,
		Mailer:   a.mailer(),
		Events:   emitter,
		Gateway:  razorpay.New(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret, cfg.Razorpay.WebhookSecret, cfg.Razorpay.BaseURL),
		Renderer: a.Renderer,
		Log:      log,

		TrialDays:     cfg.TrialDays,
		Grace:         cfg.Grace(),
		PublicBaseURL: cfg.PublicBaseURL,
	})
	return a, nil
}

// mailer prefers the queue so SMTP latency stays out of requests.
func (a *App) mailer() notify.Sender {
	switch {
	case a.Broker != nil:
		return notify.NewQueueSender(a.Broker)
	case a.Config.SMTP.Enabled():
		return notify.NewSMTPSender(a.Config.SMTP)
	default:
		return notify.LogSender{Log: a.Log}
	}
}

func (a *App) Ping(ctx context.Context) error {
	return db.Ping(ctx, a.DB)
}

func (a *App) Close() {
	a.Broker.Close()
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
