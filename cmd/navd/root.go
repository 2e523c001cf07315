package main

import (
	"github.com/spf13/cobra"

	"github.com/mchmarny/navd/pkg/config"
	"github.com/mchmarny/navd/pkg/logger"
)

type rootOptions struct {
	configFile string
	envFiles   []string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Server-driven navigation console",
		Long: `navd serves an administrative console whose routes come from the
backend: after sign-in the user's menu tree is fetched once per session,
turned into routes and registered before the first protected page renders.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default is ./navd.yaml, can also use "+config.EnvConfigFile+")")
	cmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", nil, "dotenv files to load before reading config (default is .env)")
	cmd.PersistentFlags().StringVarP(&opts.logLevel, "log-level", "l", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "log format (json, text)")

	cmd.AddCommand(
		newServeCmd(opts),
		newBackendCmd(opts),
		newRoutesCmd(opts),
		newVersionCmd(),
	)

	return cmd
}

// load reads .env files and the config, then installs the default logger.
func (o *rootOptions) load() (*config.Config, error) {
	if err := config.LoadDotEnv(o.envFiles...); err != nil {
		return nil, err
	}

	cfg, err := config.Load(o.configFile)
	if err != nil {
		return nil, err
	}

	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}

	o.setLogger(cfg.Log)
	return cfg, nil
}

func (o *rootOptions) setLogger(c config.LogConfig) {
	logger.SetDefaultLoggerWithFormat(appName, version, c.Format, c.Level)
}
