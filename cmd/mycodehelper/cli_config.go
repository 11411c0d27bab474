package main

import (
	"strings"

	"github.com/spf13/pflag"

	configpkg "github.com/Franzferdinan51/MyCodingHelper/pkg/config"
)

// cliOptions are the flags of the root command.
type cliOptions struct {
	Interactive bool
	File        string
	Output      string
	Analyze     bool
	Codebase    bool
	Format      string
	NoStream    bool
	ConfigFile  string

	Verbose  bool
	LogLevel string
}

func (o *cliOptions) registerPersistent(fs *pflag.FlagSet) {
	fs.BoolVar(&o.Verbose, "verbose", false, "Verbose debug logging")
	fs.StringVar(&o.LogLevel, "log-level", "", "Log level: debug, info, warn, error (default from "+configpkg.EnvLogLevel+")")
}

func (o *cliOptions) register(fs *pflag.FlagSet) {
	fs.BoolVarP(&o.Interactive, "interactive", "i", false, "Start an interactive session")
	fs.StringVarP(&o.File, "file", "f", "", "Analyze a specific file")
	fs.StringVarP(&o.Output, "output", "o", "", "Save the response to a file")
	fs.BoolVarP(&o.Analyze, "analyze", "a", false, "Analyze the current codebase")
	fs.BoolVarP(&o.Codebase, "codebase", "c", false, "Include codebase context in chat prompts")
	fs.StringVar(&o.Format, "format", "", "Output format: "+strings.Join(configpkg.OutputFormats, ", "))
	fs.BoolVar(&o.NoStream, "no-stream", false, "Disable streaming output")
	fs.StringVar(&o.ConfigFile, "config", "", "Config file path or inline JSON")
}

// envFiles are loaded before the environment is read.
var envFiles = []string{".env"}

// loadCLIConfig loads .env, the optional config file and the environment,
// then applies flags.
func loadCLIConfig(opts cliOptions) (configpkg.Config, error) {
	cfg, err := configpkg.Load(configpkg.LoadOptions{
		EnvFiles:   envFiles,
		ConfigFile: opts.ConfigFile,
	})
	if err != nil {
		return configpkg.Config{}, err
	}
	return applyFlags(cfg, opts), nil
}

// applyFlags overrides cfg with explicitly set flags.
func applyFlags(cfg configpkg.Config, opts cliOptions) configpkg.Config {
	if opts.NoStream {
		cfg.Streaming = false
	}
	if format := strings.TrimSpace(opts.Format); format != "" {
		cfg.OutputFormat = format
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		cfg.LogLevel = level
	}
	if opts.Verbose {
		cfg.Verbose = true
		if opts.LogLevel == "" {
			cfg.LogLevel = "debug"
		}
	}
	if strings.EqualFold(cfg.LogLevel, "debug") {
		cfg.Verbose = true
	}
	return configpkg.Normalize(cfg)
}

// logLevel resolves the level for subcommands that do not load the full config.
func (o cliOptions) logLevel() string {
	switch {
	case strings.TrimSpace(o.LogLevel) != "":
		return o.LogLevel
	case o.Verbose:
		return "debug"
	default:
		return configpkg.DefaultLogLevel
	}
}
