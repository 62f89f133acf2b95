package main

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eringen/pubstatic"
)

const envPrefix = "PUBSTATIC"

// cli is the state shared by every command.
type cli struct {
	site    string
	cfgFile string
	verbose bool

	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	return (&cli{}).command()
}

// command builds the command tree. A logger set on c beforehand is kept.
func (c *cli) command() *cobra.Command {
	root := &cobra.Command{
		Use:   "pubstatic",
		Short: "A static blog generator that lints posts before publishing",
		Long: `pubstatic turns a directory of dated Markdown posts with YAML front matter
into a static blog. Every post is checked before anything is written.

Quick Start:
  pubstatic init myblog           Create a new site
  pubstatic new "Hello world"     Add a post
  pubstatic lint                  Check all posts
  pubstatic serve --watch         Preview with live reload of content
  pubstatic build                 Write the static site`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.log != nil {
				return nil
			}
			log, err := newLogger(c.verbose)
			if err != nil {
				return err
			}
			c.log = log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = c.log.Sync()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&c.site, "site", "s", ".", "site root directory")
	flags.StringVar(&c.cfgFile, "config", "", "config file (default is <site>/pubstatic.yml)")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		c.initCmd(),
		c.newCmd(),
		c.lintCmd(),
		c.buildCmd(),
		c.serveCmd(),
		c.tagsCmd(),
		versionCmd(),
	)
	return root
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.DisableStacktrace = true
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

// loadConfig reads <site>/.env, the config file, and PUBSTATIC_* overrides.
// Relative paths in the result are resolved against the site root.
func (c *cli) loadConfig() (pubstatic.SiteConfig, error) {
	var cfg pubstatic.SiteConfig

	if err := godotenv.Load(filepath.Join(c.site, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	if c.cfgFile != "" {
		v.SetConfigFile(c.cfgFile)
	} else {
		v.AddConfigPath(c.site)
		v.SetConfigName("pubstatic")
		v.SetConfigType("yaml")
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Unmarshal only sees env values for keys viper knows about.
	for _, key := range configKeys() {
		if err := v.BindEnv(key); err != nil {
			return cfg, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		c.log.Debug("no config file, using defaults", zap.String("site", c.site))
	} else {
		c.log.Debug("using config file", zap.String("path", v.ConfigFileUsed()))
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Normalize(); err != nil {
		return cfg, err
	}
	c.resolvePaths(&cfg)
	// Relative and absolute settings are comparable only once resolved.
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *cli) resolvePaths(cfg *pubstatic.SiteConfig) {
	for _, p := range []*string{&cfg.ContentDir, &cfg.LayoutDir, &cfg.StaticDir, &cfg.OutputDir, &cfg.DatabasePath} {
		if *p == ":memory:" || filepath.IsAbs(*p) {
			continue
		}
		*p = filepath.Join(c.site, *p)
	}
}

// keepDirs are the directories a clean build must never remove: the site
// root and the directory of an explicit config file.
func (c *cli) keepDirs() []string {
	dirs := []string{c.site}
	if c.cfgFile != "" {
		dirs = append(dirs, filepath.Dir(c.cfgFile))
	}
	return dirs
}

// configKeys lists the mapstructure keys of SiteConfig.
func configKeys() []string {
	t := reflect.TypeOf(pubstatic.SiteConfig{})
	keys := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if tag := t.Field(i).Tag.Get("mapstructure"); tag != "" {
			keys = append(keys, tag)
		}
	}
	return keys
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the pubstatic version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pubstatic %s\n", version)
		},
	}
}
