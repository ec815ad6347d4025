package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// configAliases maps flag names to alternative keys accepted in config files.
var configAliases = map[string]string{
	"catalog": "paths.game_csv",
}

type Config struct {
	bind           string
	catalogPath    string
	configFile     string
	coverTimeout   time.Duration
	metrics        bool
	port           int
	prefix         string
	profile        bool
	resultTemplate string
	sessionTimeout time.Duration
	tlsCert        string
	tlsKey         string
	verbose        bool
	version        bool

	logger zerolog.Logger
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.sessionTimeout <= 0 {
		return fmt.Errorf("invalid session timeout (must be positive): %s", c.sessionTimeout)
	}
	if c.coverTimeout <= 0 {
		return fmt.Errorf("invalid cover timeout (must be positive): %s", c.coverTimeout)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

// applyConfigFile fills every flag not already set on the command line or
// through the environment from the given config file.
func applyConfigFile(v *viper.Viper, fs *pflag.FlagSet, path string) error {
	if path == "" {
		return nil
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var errs []error

	fs.VisitAll(func(f *pflag.Flag) {
		if f.Changed || f.Name == "config" {
			return
		}

		key := f.Name
		if !v.InConfig(key) {
			alias, ok := configAliases[key]
			if !ok || !v.InConfig(alias) {
				return
			}
			key = alias
		}

		if err := fs.Set(f.Name, fmt.Sprintf("%v", v.Get(key))); err != nil {
			errs = append(errs, fmt.Errorf("config key %q: %w", key, err))
		}
	})

	return errors.Join(errs...)
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("METAGAME")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "metagame",
		Short:         "Scoreboard and catalog browser for a board game collection, packed in a single webapp.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return applyConfigFile(viper.New(), cmd.Flags(), cfg.configFile)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			cfg.logger = newLogger(cfg, os.Stdout)
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: METAGAME_BIND)")
	fs.StringVar(&cfg.catalogPath, "catalog", "", "path to the game catalog csv (env: METAGAME_CATALOG)")
	fs.StringVarP(&cfg.configFile, "config", "c", "", "path to a toml, yaml or json config file (env: METAGAME_CONFIG)")
	fs.DurationVar(&cfg.coverTimeout, "cover-timeout", 5*time.Second, "time allowed to fetch a cover image for result images (env: METAGAME_COVER_TIMEOUT)")
	fs.BoolVar(&cfg.metrics, "metrics", false, "expose prometheus metrics at /metrics (env: METAGAME_METRICS)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: METAGAME_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: METAGAME_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: METAGAME_PROFILE)")
	fs.StringVar(&cfg.resultTemplate, "result-template", "", "path to a background image for result images (env: METAGAME_RESULT_TEMPLATE)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 6*time.Hour, "time before idle scoreboards are ended (env: METAGAME_SESSION_TIMEOUT)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: METAGAME_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: METAGAME_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: METAGAME_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: METAGAME_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("metagame v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
