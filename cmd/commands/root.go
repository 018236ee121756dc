package commands

import (
	"context"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ambientlabs/permitory/pkg/config"
	"github.com/ambientlabs/permitory/pkg/keyring"
	"github.com/ambientlabs/permitory/pkg/replay"
	"github.com/ambientlabs/permitory/pkg/verifier"
)

// Context represents root command context shared with its children
type Context struct {
	Context context.Context

	config   *config.Config
	keyring  keyring.Keyring
	store    replay.Store
	verifier *verifier.Verifier
}

// NewRootCommand returns new root command
func NewRootCommand(c *Context, name string) *cobra.Command {
	var (
		level      string
		configFile string
		baseDir    string
		jsonLog    bool
	)

	rootCmd := cobra.Command{
		Use:   name,
		Short: "Create, sign and verify permits for a delegated-key trading program",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) (err error) {
			if cmd.Use == "version" {
				return nil
			}

			conf := config.Default()
			if configFile != "" {
				if err := conf.Read(configFile); err != nil {
					return err
				}
			}

			if baseDir != "" {
				conf.BaseDir = baseDir
			}
			conf.BaseDir = os.ExpandEnv(conf.BaseDir)
			if err := os.MkdirAll(conf.BaseDir, 0770); err != nil {
				return err
			}

			validate := config.Validator()
			if err := validate.Struct(conf); err != nil {
				return err
			}

			if jsonLog {
				log.SetFormatter(&log.JSONFormatter{})
			}

			lv, err := log.ParseLevel(level)
			if err != nil {
				return err
			}
			log.SetLevel(lv)

			store, err := replay.Registry().New(c.Context, conf.Replay.Driver, &conf.Replay.Config, conf)
			if err != nil {
				return err
			}

			kr, err := keyring.Registry().New(c.Context, conf.Keyring.Driver, &conf.Keyring.Config, conf)
			if err != nil {
				return err
			}

			v, err := verifier.FromGlobalConfig(conf, store)
			if err != nil {
				return err
			}

			c.config = conf
			c.keyring = kr
			c.store = store
			c.verifier = v
			return nil
		},
	}

	f := rootCmd.PersistentFlags()

	f.StringVarP(&configFile, "config", "c", "/etc/permitory.yaml", "Config file path")
	f.StringVar(&level, "log", "info", "Log level: [error, warn, info, debug, trace]")
	f.StringVar(&baseDir, "base-dir", "", "Base directory. Takes priority over one specified in config")
	f.BoolVar(&jsonLog, "json-log", false, "Use JSON structured logs")

	return &rootCmd
}
