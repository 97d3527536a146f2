package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nalgeon/be"

	"github.com/spachava753/promosweep/gmail"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{gmail.EnvAddress, gmail.EnvUser, gmail.EnvAppPassword, envLabel, envLedger} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("XDG_DATA_HOME", "/custom/data")

	cfg, err := Load("")
	be.Err(t, err, nil)
	be.Equal(t, cfg.Classify.Mailbox, "INBOX")
	be.Equal(t, cfg.Classify.Label, "Promo")
	be.Equal(t, cfg.Classify.Keywords, []string{"deal", "discount", "offer"})
	be.Equal(t, cfg.Classify.PromoDelay, Delay{Min: 2 * time.Second, Max: 5 * time.Second})
	be.Equal(t, cfg.Classify.OtherDelay, Delay{Min: 1 * time.Second, Max: 2 * time.Second})
	be.Equal(t, cfg.Purge.BatchSize, 100)
	be.Equal(t, cfg.Unsubscribe.Mailbox, "Promo")
	be.Equal(t, cfg.Unsubscribe.Ledger, filepath.Join("/custom/data/promosweep", LedgerFileName))
	be.Equal(t, cfg.IMAP.Timeout, 60*time.Second)
	be.Equal(t, cfg.Log.Level, "info")
}

func TestLoad_FromFile(t *testing.T) {
	clearEnv(t)
	cfgPath := filepath.Join(t.TempDir(), "config.toml")
	content := `
[imap]
address = "me@gmail.com"
timeout = "30s"

[classify]
label = "Deals"
keywords = ["sale", "coupon"]

[classify.promo_delay]
min = "0s"
max = "0s"

[purge]
batch_size = 50

[unsubscribe]
ledger = "/tmp/seen.db"
mailto = true

[log]
level = "debug"
`
	be.Err(t, os.WriteFile(cfgPath, []byte(content), 0o644), nil)

	cfg, err := Load(cfgPath)
	be.Err(t, err, nil)
	be.Equal(t, cfg.IMAP.Address, "me@gmail.com")
	be.Equal(t, cfg.IMAP.Timeout, 30*time.Second)
	be.Equal(t, cfg.Classify.Label, "Deals")
	be.Equal(t, cfg.Classify.Keywords, []string{"sale", "coupon"})
	be.Equal(t, cfg.Classify.PromoDelay, Delay{})
	be.Equal(t, cfg.Classify.OtherDelay, Delay{Min: time.Second, Max: 2 * time.Second})
	be.Equal(t, cfg.Purge.BatchSize, 50)
	be.Equal(t, cfg.Purge.Label, "Promo")
	be.Equal(t, cfg.Unsubscribe.Ledger, "/tmp/seen.db")
	be.True(t, cfg.Unsubscribe.Mailto)
	be.Equal(t, cfg.Log.Level, "debug")
}

func TestLoad_NonExistentFile(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("/nonexistent/path/config.toml")
	be.Err(t, err, nil)
	be.Equal(t, cfg.Classify.Label, "Promo")
}

func TestLoad_InvalidTOML(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.toml")
	be.Err(t, os.WriteFile(cfgPath, []byte("not valid [[ toml"), 0o644), nil)

	_, err := Load(cfgPath)
	be.Err(t, err, "failed to parse config")
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(gmail.EnvUser, "user@gmail.com")
	t.Setenv(gmail.EnvAppPassword, "abcd efgh")
	t.Setenv(envLabel, "Junk")
	t.Setenv(envLedger, "/tmp/ledger.json")

	cfg, err := Load("")
	be.Err(t, err, nil)
	be.Equal(t, cfg.IMAP.Address, "user@gmail.com")
	be.Equal(t, cfg.IMAP.AppPassword, "abcdefgh")
	be.Equal(t, cfg.Classify.Label, "Junk")
	be.Equal(t, cfg.Purge.Label, "Junk")
	be.Equal(t, cfg.Unsubscribe.Mailbox, "Junk")
	be.Equal(t, cfg.Unsubscribe.Ledger, "/tmp/ledger.json")

	t.Setenv(gmail.EnvAddress, "primary@gmail.com")
	cfg, err = Load("")
	be.Err(t, err, nil)
	be.Equal(t, cfg.IMAP.Address, "primary@gmail.com")
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	envPath := filepath.Join(t.TempDir(), ".env")
	be.Err(t, os.WriteFile(envPath, []byte("GMAIL_ADDRESS=dotenv@gmail.com\nPROMOSWEEP_LABEL=FromFile\n"), 0o600), nil)
	// godotenv does not override variables that are already set, and an
	// empty value counts as set.
	os.Unsetenv(gmail.EnvAddress)

	err := LoadDotEnv(envPath, filepath.Join(t.TempDir(), "missing.env"))
	be.Err(t, err, nil)
	t.Cleanup(func() { os.Unsetenv(gmail.EnvAddress) })

	be.Equal(t, os.Getenv(gmail.EnvAddress), "dotenv@gmail.com")
	be.Equal(t, os.Getenv(envLabel), "")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	err := cfg.Validate()
	be.Err(t, err, "imap.address is required")
	be.Err(t, err, "imap.app_password is required")

	cfg.IMAP.Address = "me@gmail.com"
	cfg.IMAP.AppPassword = "secret"
	be.Err(t, cfg.Validate(), nil)

	cfg.Classify.Label = " "
	cfg.Purge.Delay = Delay{Min: 5 * time.Second, Max: time.Second}
	err = cfg.Validate()
	be.Err(t, err, "classify.label must not be empty")
	be.True(t, strings.Contains(err.Error(), "purge.delay"))
}

func TestConfigDir(t *testing.T) {
	t.Run("with XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/custom/config")
		be.Equal(t, ConfigDir(), "/custom/config/promosweep")
		be.Equal(t, DefaultPath(), "/custom/config/promosweep/config.toml")
	})
	t.Run("without XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		be.True(t, strings.HasSuffix(ConfigDir(), filepath.Join(".config", "promosweep")))
	})
}

func TestDataDir(t *testing.T) {
	t.Run("with XDG_DATA_HOME", func(t *testing.T) {
		t.Setenv("XDG_DATA_HOME", "/custom/data")
		be.Equal(t, DataDir(), "/custom/data/promosweep")
	})
	t.Run("without XDG_DATA_HOME", func(t *testing.T) {
		t.Setenv("XDG_DATA_HOME", "")
		be.True(t, strings.HasSuffix(DataDir(), filepath.Join(".local", "share", "promosweep")))
	})
}
