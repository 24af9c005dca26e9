package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/artineering-io/mayaboot"
)

var (
	verbosity int

	rootCmd = &cobra.Command{
		Use:   "mayaboot",
		Short: "Bootstrap a Maya module's installer outside a live Maya session",
		Long: `mayaboot runs the drag-and-drop installer bootstrap against a Python
interpreter on this machine (mayapy when available). It puts the module's
scripts directory on the interpreter's search path, imports the installer
module, and invokes its install entry point with the module root.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v DEBUG, -vv TRACE)")

	viper.SetEnvPrefix("MAYABOOT")
	viper.AutomaticEnv()

	installCmd.Flags().String("python", "", "Path to the Python executable to use (default: discover mayapy/python on PATH)")
	installCmd.Flags().String("module", "", "Installer module name (default \"setup\")")
	installCmd.Flags().Bool("no-reload", false, "Skip reloading the installer module if it is already loaded")
	viper.BindPFlag("python", installCmd.Flags().Lookup("python"))
	viper.BindPFlag("module", installCmd.Flags().Lookup("module"))
	viper.BindPFlag("no-reload", installCmd.Flags().Lookup("no-reload"))

	rootCmd.AddCommand(installCmd)
}

// setupLogger configures a console logger from the verbosity count.
func setupLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	switch {
	case verbosity == 1:
		level = zerolog.DebugLevel
	case verbosity >= 2:
		level = zerolog.TraceLevel
	}
	writer := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.Kitchen,
	}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}

var installCmd = &cobra.Command{
	Use:   "install ROOT",
	Short: "Run the installer bootstrap for the module at ROOT",
	Long: `Run the installer bootstrap for the module at ROOT. ROOT is the
directory that would contain install.mel; its scripts subdirectory must hold
the installer module.

The interpreter is discovered on the PATH (mayapy first) unless --python is
given. Flags can also be set through MAYABOOT_* environment variables, e.g.
MAYABOOT_PYTHON or MAYABOOT_MODULE.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := setupLogger()

		root, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("error resolving module root: %v", err)
		}
		if info, err := os.Stat(root); err != nil || !info.IsDir() {
			return fmt.Errorf("module root %s is not a directory", root)
		}

		pythonPath := viper.GetString("python")
		var env *mayaboot.Environment
		if pythonPath != "" {
			env, err = mayaboot.EnvironmentFromExecutable("custom", pythonPath)
		} else {
			env, err = mayaboot.DiscoverEnvironment()
		}
		if err != nil {
			return err
		}
		logger.Info().
			Str("python", env.PythonPath).
			Str("version", env.PythonVersion.String()).
			Msg("using interpreter")

		bridge, err := mayaboot.NewBridge(env, mayaboot.BridgeOptions{Logger: logger})
		if err != nil {
			return err
		}
		defer bridge.Close()

		opts := mayaboot.DefaultOptions()
		opts.Logger = logger
		if m := viper.GetString("module"); m != "" {
			opts.Module = m
		}
		if viper.GetBool("no-reload") {
			opts.AlwaysReload = false
		}

		host := &mayaboot.StaticHost{
			Script: filepath.ToSlash(root) + "/install.mel",
			Interp: bridge,
		}
		base, err := mayaboot.Run(host, opts)
		if err != nil {
			return err
		}
		logger.Info().Str("base", base).Msg("installation bootstrap complete")
		return nil
	},
}
