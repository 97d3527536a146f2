package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/spachava753/promosweep/config"
	"github.com/spachava753/promosweep/gmail"
	"github.com/spachava753/promosweep/triage"
)

// version is set via ldflags at build time.
var version = "dev"

type globalFlags struct {
	configPath string
	envFile    string
	logLevel   string
	noDelay    bool
}

// NewRootCmd builds the promosweep command tree.
func NewRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "promosweep",
		Short: "Triage promotional Gmail messages over IMAP",
		Long: `promosweep labels promotional messages, offers their unsubscribe links,
and purges labeled messages together with the trash.

Credentials come from GMAIL_ADDRESS (or GMAIL_USER) and GMAIL_APP_PASSWORD,
a .env file in the working directory, or the [imap] section of the config file.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate(fmt.Sprintf("promosweep %s\n", version))
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file path (default "+config.DefaultPath()+")")
	root.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().BoolVar(&flags.noDelay, "no-delay", false, "skip the random pauses between mutating calls")
	root.AddCommand(newClassifyCmd(flags))
	root.AddCommand(newPurgeCmd(flags))
	root.AddCommand(newUnsubscribeCmd(flags))
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	go func() {
		// After the first signal, the next one gets the default handler.
		<-ctx.Done()
		stop()
	}()
	err := NewRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// setup loads the dotenv file and config and builds the logger.
func (f *globalFlags) setup(cmd *cobra.Command) (*config.Config, *log.Logger, error) {
	if f.envFile != "" {
		if err := config.LoadDotEnv(f.envFile); err != nil {
			return nil, nil, err
		}
	}

	path := f.configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.Log.Level
	if f.logLevel != "" {
		level = f.logLevel
	}
	logger, err := newLogger(cmd.ErrOrStderr(), level)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func newLogger(w io.Writer, level string) (*log.Logger, error) {
	lvl := log.InfoLevel
	if level = strings.TrimSpace(level); level != "" {
		parsed, err := log.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		lvl = parsed
	}
	return log.NewWithOptions(w, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
		Prefix:          "promosweep",
	}), nil
}

// credentials builds IMAP/SMTP credentials from the loaded config.
func credentials(cfg *config.Config) gmail.Credentials {
	return gmail.Credentials{
		Address:     strings.TrimSpace(cfg.IMAP.Address),
		AppPassword: gmail.NormalizeAppPassword(cfg.IMAP.AppPassword),
	}
}

// connect validates the config and opens an authenticated session.
func connect(ctx context.Context, cfg *config.Config, logger *log.Logger) (*gmail.Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	creds := credentials(cfg)
	logger.Debug("connecting", "address", creds.Address)
	sess, err := gmail.Dial(ctx, creds, gmail.WithTimeout(cfg.IMAP.Timeout))
	if err != nil {
		return nil, err
	}
	logger.Info("logged in", "address", creds.Address)
	return sess, nil
}

func logout(sess *gmail.Session, logger *log.Logger) {
	if err := sess.Logout(); err != nil {
		logger.Warn("logout failed", "error", err)
	}
}

func (f *globalFlags) pacer(d config.Delay) triage.Pacer {
	if f.noDelay {
		return triage.Pacer{}
	}
	return triage.Pacer{Min: d.Min, Max: d.Max}
}
