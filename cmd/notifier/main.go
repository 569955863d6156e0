package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"

	"stitchdesk/internal/broker"
	"stitchdesk/internal/config"
	"stitchdesk/internal/logger"
	"stitchdesk/internal/notify"
)

const prefetch = 10

// notifier drains the e-mail queue into SMTP. Messages that cannot be
// decoded, or fail a second time, go to the dead-letter queue.
func main() {
	config.LoadEnv()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.AMQPURL == "" {
		log.Fatal("AMQP_URL is empty (check your .env)")
	}
	lg := logger.New("stitchdesk-notifier")

	bc, err := broker.Dial(cfg.AMQPURL)
	if err != nil {
		log.Fatal("failed to connect broker: ", err)
	}
	defer bc.Close()
	if err := bc.DeclareTopology(); err != nil {
		log.Fatal(err)
	}
	deliveries, err := bc.Consume(broker.NotificationsQueue, "notifier", prefetch)
	if err != nil {
		log.Fatal(err)
	}

	var sender notify.Sender = notify.LogSender{Log: lg}
	if cfg.SMTP.Enabled() {
		sender = notify.NewSMTPSender(cfg.SMTP)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("notifier_start", map[string]any{"queue": broker.NotificationsQueue})
		for {
			select {
			case <-ctx.Done():
				return nil
			case d, ok := <-deliveries:
				if !ok {
					return errors.New("delivery channel closed")
				}
				handle(ctx, lg, sender, d)
			}
		}
	})

	if err := g.Wait(); err != nil {
		lg.Error("notifier_exit", err, nil)
		os.Exit(1)
	}
}

func handle(ctx context.Context, lg *logger.Logger, sender notify.Sender, d amqp.Delivery) {
	var e notify.Email
	err := json.Unmarshal(d.Body, &e)
	if err == nil {
		err = e.Validate()
	}
	if err != nil {
		lg.Error("email_decode", err, map[string]any{"message_id": d.MessageId})
		_ = d.Nack(false, false)
		return
	}
	if err := sender.Send(ctx, e); err != nil {
		requeue := !d.Redelivered
		lg.Error("email_send", err, map[string]any{"to": e.To, "requeue": requeue})
		_ = d.Nack(false, requeue)
		return
	}
	lg.Info("email_sent", map[string]any{"to": e.To, "subject": e.Subject})
	_ = d.Ack(false)
}
