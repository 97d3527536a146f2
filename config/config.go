package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/spachava753/promosweep/gmail"
)

const (
	envLabel  = "PROMOSWEEP_LABEL"
	envLedger = "PROMOSWEEP_LEDGER"
)

// DefaultLabel is the Gmail label promotional messages are filed under.
const DefaultLabel = "Promo"

// LedgerFileName is the default ledger file inside DataDir.
const LedgerFileName = "processed_emails.json"

// Config holds all promosweep configuration.
type Config struct {
	IMAP        IMAPConfig        `toml:"imap"`
	Classify    ClassifyConfig    `toml:"classify"`
	Purge       PurgeConfig       `toml:"purge"`
	Unsubscribe UnsubscribeConfig `toml:"unsubscribe"`
	Log         LogConfig         `toml:"log"`
}

// IMAPConfig holds the Gmail account and connection settings.
// The app password is normally supplied through GMAIL_APP_PASSWORD rather
// than the file.
type IMAPConfig struct {
	Address     string        `toml:"address"`
	AppPassword string        `toml:"app_password"`
	Timeout     time.Duration `toml:"timeout"`
}

// Delay is a random pause range between mutating calls.
type Delay struct {
	Min time.Duration `toml:"min"`
	Max time.Duration `toml:"max"`
}

// ClassifyConfig holds settings for the classify command.
type ClassifyConfig struct {
	Mailbox    string   `toml:"mailbox"`
	Label      string   `toml:"label"`
	Keywords   []string `toml:"keywords"`
	PromoDelay Delay    `toml:"promo_delay"`
	OtherDelay Delay    `toml:"other_delay"`
}

// PurgeConfig holds settings for the purge command.
type PurgeConfig struct {
	Label     string `toml:"label"`
	BatchSize int    `toml:"batch_size"`
	Delay     Delay  `toml:"delay"`
}

// UnsubscribeConfig holds settings for the unsubscribe command.
type UnsubscribeConfig struct {
	Mailbox string `toml:"mailbox"`
	Ledger  string `toml:"ledger"`
	Mailto  bool   `toml:"mailto"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `toml:"level"`
}

func defaults() Config {
	return Config{
		IMAP: IMAPConfig{
			Timeout: 60 * time.Second,
		},
		Classify: ClassifyConfig{
			Mailbox:    "INBOX",
			Label:      DefaultLabel,
			Keywords:   []string{"deal", "discount", "offer"},
			PromoDelay: Delay{Min: 2 * time.Second, Max: 5 * time.Second},
			OtherDelay: Delay{Min: 1 * time.Second, Max: 2 * time.Second},
		},
		Purge: PurgeConfig{
			Label:     DefaultLabel,
			BatchSize: 100,
			Delay:     Delay{Min: 1 * time.Second, Max: 2 * time.Second},
		},
		Unsubscribe: UnsubscribeConfig{
			Mailbox: DefaultLabel,
			Ledger:  filepath.Join(DataDir(), LedgerFileName),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Default returns the built-in configuration without reading files or the
// environment.
func Default() *Config {
	cfg := defaults()
	return &cfg
}

// Load reads config from path and applies environment overrides. If path is
// empty or does not exist, the defaults are used.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	cfg.applyEnv(os.LookupEnv)
	return &cfg, nil
}

// LoadDotEnv loads KEY=value pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	creds := gmail.CredentialsFromEnv(lookup)
	if creds.Address != "" {
		c.IMAP.Address = creds.Address
	}
	if creds.AppPassword != "" {
		c.IMAP.AppPassword = creds.AppPassword
	}
	if v := get(envLabel); v != "" {
		c.Classify.Label = v
		c.Purge.Label = v
		c.Unsubscribe.Mailbox = v
	}
	if v := get(envLedger); v != "" {
		c.Unsubscribe.Ledger = v
	}
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.IMAP.Address) == "" {
		errs = append(errs, fmt.Errorf("imap.address is required (or set %s)", gmail.EnvAddress))
	}
	if strings.TrimSpace(c.IMAP.AppPassword) == "" {
		errs = append(errs, fmt.Errorf("imap.app_password is required (or set %s)", gmail.EnvAppPassword))
	}
	if strings.TrimSpace(c.Classify.Label) == "" {
		errs = append(errs, errors.New("classify.label must not be empty"))
	}
	if strings.TrimSpace(c.Purge.Label) == "" {
		errs = append(errs, errors.New("purge.label must not be empty"))
	}
	if c.Purge.BatchSize < 0 {
		errs = append(errs, errors.New("purge.batch_size must not be negative"))
	}
	for name, d := range map[string]Delay{
		"classify.promo_delay": c.Classify.PromoDelay,
		"classify.other_delay": c.Classify.OtherDelay,
		"purge.delay":          c.Purge.Delay,
	} {
		if d.Min < 0 || d.Max < 0 || (d.Max > 0 && d.Max < d.Min) {
			errs = append(errs, fmt.Errorf("%s: invalid range %s..%s", name, d.Min, d.Max))
		}
	}
	return errors.Join(errs...)
}

// DefaultPath returns the config file path inside ConfigDir.
func DefaultPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// ConfigDir returns the promosweep config directory path.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "promosweep")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "promosweep")
}

// DataDir returns the promosweep data directory path.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "promosweep")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "promosweep")
}
