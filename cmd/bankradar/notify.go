package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/amishk599/bankradar/internal/model"
	"github.com/amishk599/bankradar/internal/notifier"
)

var (
	notifyTo    string
	notifyPhone string
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Notification subcommands",
}

var notifyTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a test digest over every configured channel",
	Long:  "Sends a one-posting digest to --to and/or --phone, and a sample run summary to Slack when a webhook is configured.",
	RunE:  runNotifyTest,
}

func init() {
	notifyTestCmd.Flags().StringVar(&notifyTo, "to", "", "recipient email address")
	notifyTestCmd.Flags().StringVar(&notifyPhone, "phone", "", "recipient phone number (E.164)")
	rootCmd.AddCommand(notifyCmd)
	notifyCmd.AddCommand(notifyTestCmd)
}

func runNotifyTest(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	httpClient := newHTTPClient(cfg)
	channels, _ := buildChannels(cfg, httpClient, logger)
	sub := model.Subscriber{
		ID:         "test",
		Email:      notifyTo,
		FirstName:  "Test",
		Subscribed: true,
		Preferences: model.SubscriberPreference{
			Enabled:     true,
			SMSEnabled:  notifyPhone != "",
			PhoneNumber: notifyPhone,
		}.Normalize(),
	}

	sent := 0
	for _, ch := range channels {
		if !ch.Applies(sub) {
			logger.Info("channel skipped for test recipient", "channel", ch.Name())
			continue
		}
		if err := notifier.SendTestDigest(ctx, ch, sub); err != nil {
			logger.Error("test notification failed", "channel", ch.Name(), "error", err)
			return err
		}
		logger.Info("test notification sent", "channel", ch.Name())
		sent++
	}

	if reporter := buildReporter(cfg, httpClient, logger); reporter != nil {
		sum := model.RunSummary{RunID: uuid.NewString(), Started: time.Now(), Sources: 1, Fetched: 1, Fresh: 1, Queued: 1}
		if err := reporter.Report(ctx, sum); err != nil {
			logger.Error("test slack report failed", "error", err)
			return err
		}
		sent++
	}

	if sent == 0 {
		return fmt.Errorf("no channel applied; pass --to or --phone")
	}
	return nil
}
