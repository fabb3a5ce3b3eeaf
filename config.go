package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind           string
	catalog        string
	maxYear        int
	minYear        int
	port           int
	prefix         string
	profile        bool
	sessionTimeout time.Duration
	tlsCert        string
	tlsKey         string
	verbose        bool
	version        bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if strings.TrimSpace(c.catalog) == "" {
		return errors.New("--catalog must not be empty")
	}
	if c.minYear > c.maxYear {
		return fmt.Errorf("--min-year (%d) cannot be greater than --max-year (%d)", c.minYear, c.maxYear)
	}
	if c.sessionTimeout < 0 {
		return fmt.Errorf("invalid session timeout (must not be negative): %s", c.sessionTimeout)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

// bindEnv lets every flag in fs be set from MOVIEGUESS_<FLAG_NAME>,
// unless it was given explicitly on the command line.
func bindEnv(v *viper.Viper, fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("MOVIEGUESS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

func newCmd(cfg *Config) *cobra.Command {
	v := newViper()

	cmd := &cobra.Command{
		Use:           "movieguess",
		Short:         "Guess the movie from a plot summary with the names filed off.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			bindEnv(v, cmd.Flags())
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	cmd.SetGlobalNormalizationFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	pfs := cmd.PersistentFlags()
	pfs.StringVarP(&cfg.catalog, "catalog", "c", "db.json", "movie catalog: json file, http(s) url, or sqlite database (env: MOVIEGUESS_CATALOG)")
	pfs.IntVar(&cfg.maxYear, "max-year", 2025, "default upper bound of the year range (env: MOVIEGUESS_MAX_YEAR)")
	pfs.IntVar(&cfg.minYear, "min-year", 1927, "default lower bound of the year range (env: MOVIEGUESS_MIN_YEAR)")
	pfs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: MOVIEGUESS_VERBOSE)")

	fs := cmd.Flags()
	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: MOVIEGUESS_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: MOVIEGUESS_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: MOVIEGUESS_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: MOVIEGUESS_PROFILE)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle game sessions are ended (env: MOVIEGUESS_SESSION_TIMEOUT)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: MOVIEGUESS_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: MOVIEGUESS_TLS_KEY)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: MOVIEGUESS_VERSION)")

	cmd.AddCommand(newPlayCmd(cfg))
	cmd.AddCommand(newScrapeCmd(cfg))
	cmd.AddCommand(newJoinCmd(cfg))

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("movieguess v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

func newPlayCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Play in the terminal instead of the browser",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.minYear > cfg.maxYear {
				return fmt.Errorf("--min-year (%d) cannot be greater than --max-year (%d)", cfg.minYear, cfg.maxYear)
			}
			return runTUI(cmd.Context(), cfg)
		},
	}
}

type scrapeConfig struct {
	delay  time.Duration
	output string
	source string
}

func newScrapeCmd(cfg *Config) *cobra.Command {
	sc := &scrapeConfig{}

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Download Best Picture nominees and their plots from Wikipedia",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScrape(cmd.Context(), cfg, sc, newScrapeClient())
		},
	}

	fs := cmd.Flags()
	fs.DurationVar(&sc.delay, "delay", time.Second, "pause between article requests (env: MOVIEGUESS_DELAY)")
	fs.StringVarP(&sc.output, "output", "o", "movie_data", "directory to write one json file per movie to (env: MOVIEGUESS_OUTPUT)")
	fs.StringVar(&sc.source, "source", bestPictureURL, "list page to read nominees from (env: MOVIEGUESS_SOURCE)")

	return cmd
}

type joinConfig struct {
	movies     string
	obfuscated string
	output     string
}

func newJoinCmd(cfg *Config) *cobra.Command {
	jc := &joinConfig{}

	cmd := &cobra.Command{
		Use:   "join",
		Short: "Merge scraped movies with their obfuscated plots into a catalog",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJoin(cmd.Context(), cfg, jc)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&jc.movies, "movies", "movie_data", "directory of scraped movie json files (env: MOVIEGUESS_MOVIES)")
	fs.StringVar(&jc.obfuscated, "obfuscated", "obfuscated_movie_plot", "directory of obfuscated plot json files (env: MOVIEGUESS_OBFUSCATED)")
	fs.StringVarP(&jc.output, "output", "o", "db.json", "catalog to write; .db/.sqlite writes a sqlite database (env: MOVIEGUESS_OUTPUT)")

	return cmd
}
