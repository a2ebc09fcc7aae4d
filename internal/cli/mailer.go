package cli

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"sync"
	"syscall"

	"github.com/fjod/go_shop/internal/notification"
	"github.com/spf13/cobra"
)

var mailerDryRun bool

var mailerCmd = &cobra.Command{
	Use:   "mailer",
	Short: "Consume order notifications and deliver them by mail",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if len(cfg.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required for the mailer")
		}

		var mailer notification.Mailer = notification.NewSMTPMailer(notification.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
		if mailerDryRun {
			mailer = notification.LogMailer{}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		consumer := notification.NewConsumer(mailer, cfg.KafkaBrokers...)
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Printf("mailer consuming %s", notification.Topic)
			consumer.Run(ctx)
		}()

		<-ctx.Done()
		log.Println("Shutting down mailer...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		doneChan := make(chan struct{})
		go func() {
			wg.Wait()
			close(doneChan)
		}()

		select {
		case <-doneChan:
			log.Println("Consumer stopped cleanly")
		case <-shutdownCtx.Done():
			log.Println("Consumer didn't stop in time")
		}

		consumer.Close()
		return nil
	},
}

func init() {
	mailerCmd.Flags().BoolVar(&mailerDryRun, "dry-run", false, "log mail instead of sending it")
}
