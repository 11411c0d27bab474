package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	configpkg "github.com/Franzferdinan51/MyCodingHelper/pkg/config"
	"github.com/Franzferdinan51/MyCodingHelper/pkg/launcher"
	loggerpkg "github.com/Franzferdinan51/MyCodingHelper/pkg/logger"
)

// runner executes external processes for the launcher subcommands.
var runner launcher.Runner = launcher.ExecRunner{}

func newSetupCommand(_ *cliOptions, s stdio) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Interactively configure an AI provider and write a .env file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			wizard := configpkg.NewWizard(s.in, s.out)
			saved, err := wizard.ConfigureEnvFile(path)
			if err != nil {
				return err
			}
			if saved {
				_, _ = fmt.Fprintln(s.out, "Run mycodehelper to start chatting.")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", ".env", "Env file to write")
	return cmd
}

func newInstallCommand(_ *cliOptions, s stdio) *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Check Node.js, install npm dependencies and create .env.example",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := os.Getwd()
			if err != nil {
				return err
			}
			return launcher.QuickInstall(cmd.Context(), runner, dir, s.out)
		},
	}
}

func newStandaloneCommand(opts *cliOptions, s stdio) *cobra.Command {
	var configOnly bool
	cmd := &cobra.Command{
		Use:   "standalone",
		Short: "Run the embedded Node.js chat client without downloading anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appLogger, err := loggerpkg.New(s.err, opts.logLevel())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(s.out, "MyCodeHelper Standalone Launcher v%s\n", launcher.StandaloneVersion)

			env, err := configpkg.NewWizard(s.in, s.out).ConfigureSession(os.Getenv)
			if err != nil {
				return err
			}
			if configOnly {
				return nil
			}

			nodeVersion, err := launcher.CheckNode(cmd.Context(), runner)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(s.out, "Node.js %s detected\n", nodeVersion)

			standalone := &launcher.Standalone{
				Runner: runner,
				Stdio:  launcher.Stdio{In: s.in, Out: s.out, Err: s.err},
				Logger: appLogger,
			}
			return standalone.Run(cmd.Context(), env)
		},
	}
	cmd.Flags().BoolVar(&configOnly, "config", false, "Only configure the AI provider")
	return cmd
}

func newLaunchCommand(opts *cliOptions, s stdio) *cobra.Command {
	var (
		forceSetup bool
		clean      bool
		configOnly bool
		repo       string
		home       string
	)
	cmd := &cobra.Command{
		Use:   "launch",
		Short: "Download the latest release from GitHub and run it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appLogger, err := loggerpkg.New(s.err, opts.logLevel())
			if err != nil {
				return err
			}
			inst, err := launcher.NewInstaller(launcher.InstallerConfig{
				Repo:   repo,
				Home:   home,
				Runner: runner,
				Stdio:  launcher.Stdio{In: s.in, Out: s.out, Err: s.err},
				Logger: appLogger,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(s.out, "MyCodeHelper Launcher")

			if clean {
				_, _ = fmt.Fprintln(s.out, "Cleaning installation...")
				if err := inst.Clean(); err != nil {
					return err
				}
			}
			if configOnly {
				return inst.Reconfigure()
			}
			if forceSetup {
				if err := inst.ResetApp(); err != nil {
					return err
				}
			}
			return inst.Run(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&forceSetup, "setup", false, "Force a fresh download")
	cmd.Flags().BoolVar(&clean, "clean", false, "Remove the launcher directory first")
	cmd.Flags().BoolVar(&configOnly, "config", false, "Reconfigure the AI provider only")
	cmd.Flags().StringVar(&repo, "repo", launcher.DefaultRepo, "GitHub repository to download")
	cmd.Flags().StringVar(&home, "home", "", "Launcher directory (default ~/"+launcher.HomeDirName+")")
	return cmd
}
