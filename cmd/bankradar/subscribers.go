package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amishk599/bankradar/internal/model"
)

var subscribersCmd = &cobra.Command{
	Use:   "subscribers",
	Short: "Manage the local subscriber directory",
}

var (
	subEmail      string
	subFirstName  string
	subSubscribed bool
)

var subscribersAddCmd = &cobra.Command{
	Use:   "add <id>",
	Short: "Create or update a subscriber profile",
	Long:  "Writes the profile fields; saved notification preferences are kept.",
	Args:  cobra.ExactArgs(1),
	RunE:  runSubscribersAdd,
}

var subscribersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List subscribers with notifications switched on",
	Args:  cobra.NoArgs,
	RunE:  runSubscribersList,
}

func init() {
	subscribersAddCmd.Flags().StringVar(&subEmail, "email", "", "email address")
	subscribersAddCmd.Flags().StringVar(&subFirstName, "first-name", "", "first name used in greetings")
	subscribersAddCmd.Flags().BoolVar(&subSubscribed, "subscribed", false, "paid tier")
	subscribersCmd.AddCommand(subscribersAddCmd, subscribersListCmd)
	rootCmd.AddCommand(subscribersCmd)
}

func runSubscribersAdd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	ctx := context.Background()
	st, err := openStorage(ctx, cfg, silentLogger())
	if err != nil {
		return err
	}
	defer st.Close()

	sub, err := st.directory.Get(ctx, args[0])
	switch {
	case errors.Is(err, model.ErrSubscriberNotFound):
		sub = model.Subscriber{ID: args[0], Preferences: model.DefaultPreference()}
	case err != nil:
		return err
	}
	sub.Email = subEmail
	sub.FirstName = subFirstName
	sub.Subscribed = subSubscribed
	if err := st.directory.Upsert(ctx, sub); err != nil {
		return err
	}
	fmt.Printf("saved subscriber %s\n", sub.ID)
	return nil
}

func runSubscribersList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	ctx := context.Background()
	st, err := openStorage(ctx, cfg, silentLogger())
	if err != nil {
		return err
	}
	defer st.Close()

	subs, err := st.directory.ListActive(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%-24s %-32s %-5s %-5s %s\n", "ID", "Email", "Email", "SMS", "Banks")
	fmt.Println(strings.Repeat("─", 80))
	for _, s := range subs {
		banks := strings.Join(s.Preferences.Banks, ",")
		if banks == "" {
			banks = "all"
		}
		fmt.Printf("%-24s %-32s %-5t %-5t %s\n", s.ID, s.Email, s.Preferences.Enabled, s.Preferences.SMSEnabled, banks)
	}
	return nil
}
