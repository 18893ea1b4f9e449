package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/amishk599/bankradar/internal/config"
	"github.com/amishk599/bankradar/internal/store"
)

func TestLoadConfig_MissingDefaultFallsBack(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(config.EnvPath, "")

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Storage.Driver != config.DriverSQLite {
		t.Errorf("driver = %q, want default sqlite", cfg.Storage.Driver)
	}
}

func TestLoadConfig_MissingExplicitPathFails(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected an error for a missing explicit config")
	}
}

func TestBuildChannels(t *testing.T) {
	cfg := config.Default()
	logger := silentLogger()

	channels, nothingFound := buildChannels(cfg, http.DefaultClient, logger)
	if len(channels) != 1 || channels[0].Name() != "log" || nothingFound == nil {
		t.Fatalf("without credentials want only the log channel, got %d channels", len(channels))
	}

	cfg.Notification.ResendAPIKey = "re_test"
	cfg.Notification.TwilioSID = "AC1"
	cfg.Notification.TwilioToken = "tok"
	cfg.Notification.TwilioFrom = "+15550000000"
	channels, nothingFound = buildChannels(cfg, http.DefaultClient, logger)
	var names []string
	for _, ch := range channels {
		names = append(names, ch.Name())
	}
	if len(names) != 2 || names[0] != "email" || names[1] != "sms" {
		t.Errorf("channels = %v, want [email sms]", names)
	}
	if nothingFound == nil {
		t.Error("email channel should send the nothing-found note")
	}
}

func TestOpenStorage_SQLite(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.SQLitePath = filepath.Join(t.TempDir(), "cmd.db")

	st, err := openStorage(context.Background(), cfg, silentLogger())
	if err != nil {
		t.Fatalf("openStorage: %v", err)
	}
	defer st.Close()

	if st.locker != nil {
		t.Error("no redis_url configured, lease should be off")
	}
	if _, ok := st.ledger.(*store.SQLiteStore); !ok {
		t.Errorf("ledger = %T, want *store.SQLiteStore", st.ledger)
	}
	if _, err := os.Stat(cfg.Storage.SQLitePath); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

func TestDryRunStorage_RecordsNothing(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.SQLitePath = filepath.Join(t.TempDir(), "dry.db")

	st, err := dryRunStorage(context.Background(), cfg, silentLogger())
	if err != nil {
		t.Fatalf("dryRunStorage: %v", err)
	}
	defer st.Close()

	if _, ok := st.ledger.(*store.NopStore); !ok {
		t.Errorf("ledger = %T, want *store.NopStore", st.ledger)
	}
	if _, ok := st.directory.(*store.SQLiteStore); !ok {
		t.Errorf("directory = %T, want the real store", st.directory)
	}
}

func TestBuildSources_RespectsEnabledKeys(t *testing.T) {
	cfg := config.Default()
	cfg.Sources = []config.SourceConfig{{Key: "gs", Enabled: true}, {Key: "ms", Enabled: false}}

	sources, err := buildSources(cfg, http.DefaultClient, silentLogger())
	if err != nil {
		t.Fatalf("buildSources: %v", err)
	}
	if len(sources) != 1 || sources[0].Key() != "gs" {
		t.Errorf("sources = %d, want only gs", len(sources))
	}

	cfg.Sources = []config.SourceConfig{{Key: "nope", Enabled: true}}
	if _, err := buildSources(cfg, http.DefaultClient, silentLogger()); err == nil {
		t.Error("expected an error for an unknown source key")
	}
}
