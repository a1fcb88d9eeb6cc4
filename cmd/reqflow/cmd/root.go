// Package cmd implements the reqflow command line.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/adamwoolhether/reqflow/client"
	"github.com/adamwoolhether/reqflow/config"
	"github.com/adamwoolhether/reqflow/urlbuilder"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configFile string
	envFile    string
	timeout    time.Duration
	headers    []string
	bearer     string
	apiVersion string
	userAgent  string
	verbose    bool
	noColor    bool
}

// NewRootCmd builds a fresh command tree.
func NewRootCmd() *cobra.Command {
	var gf globalFlags

	rootCmd := &cobra.Command{
		Use:   "reqflow",
		Short: "Send HTTP requests through a configurable handler chain.",
		Long: `reqflow builds HTTP requests from flags and sends them through the
same handler chain the library uses: request ids, static headers, bearer
tokens, API versions and throttling, configured from a YAML file,
REQFLOW_* environment variables or flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if gf.noColor {
				color.NoColor = true
			}
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&gf.configFile, "config", "c", "", "YAML config file")
	pf.StringVar(&gf.envFile, "env-file", "", ".env file loaded before reading REQFLOW_* variables")
	pf.DurationVar(&gf.timeout, "timeout", 0, "overall request timeout")
	pf.StringArrayVarP(&gf.headers, "header", "H", nil, `default header "Name: value" (repeatable)`)
	pf.StringVar(&gf.bearer, "bearer", "", "bearer token")
	pf.StringVar(&gf.apiVersion, "api-version", "", "api-version query parameter value")
	pf.StringVar(&gf.userAgent, "user-agent", "", "User-Agent header")
	pf.BoolVarP(&gf.verbose, "verbose", "v", false, "log requests to stderr")
	pf.BoolVar(&gf.noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(newSendCmd(&gf))
	rootCmd.AddCommand(newFetchCmd(&gf))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// Execute runs the command line and exits non-zero on failure.
func Execute(v, bt string) {
	version = v
	buildTime = bt

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		reportError(rootCmd.ErrOrStderr(), err)
		stop()
		os.Exit(exitCode(err))
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "reqflow version %s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "Built: %s\n", buildTime)
		},
	}
}

// settings loads the config file and environment, then applies flags
// the user set explicitly.
func (gf *globalFlags) settings(cmd *cobra.Command) (config.Settings, error) {
	var loadOpts []config.LoaderOption
	if gf.configFile != "" {
		loadOpts = append(loadOpts, config.WithConfigFile(gf.configFile))
	}
	if gf.envFile != "" {
		loadOpts = append(loadOpts, config.WithEnvFile(gf.envFile))
	}

	s, err := config.Load(loadOpts...)
	if err != nil {
		return config.Settings{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("timeout") {
		s.Timeout = gf.timeout
	}
	if flags.Changed("bearer") {
		s.BearerToken = gf.bearer
	}
	if flags.Changed("api-version") {
		s.APIVersion.Value = gf.apiVersion
	}
	if flags.Changed("user-agent") {
		s.UserAgent = gf.userAgent
	}

	for _, h := range gf.headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return config.Settings{}, fmt.Errorf("invalid header %q, want \"Name: value\"", h)
		}
		if s.Headers == nil {
			s.Headers = make(map[string]string)
		}
		s.Headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}

	return s, nil
}

// logger writes text logs to stderr, warnings only unless verbose.
func (gf *globalFlags) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if gf.verbose {
		level = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// client builds a client from the resolved settings.
func (gf *globalFlags) client(cmd *cobra.Command, s config.Settings) (*client.Client, error) {
	opts, err := s.Options()
	if err != nil {
		return nil, err
	}

	opts = append([]client.Option{client.WithLogger(gf.logger(cmd))}, opts...)
	if gf.verbose {
		opts = append(opts, client.WithRequestLogging())
	}

	return client.Build(opts...)
}

// resolveURL joins a relative target onto base. Absolute targets are
// used as is.
func resolveURL(base, target string) (*urlbuilder.Builder, error) {
	if u, err := url.Parse(target); err == nil && u.Scheme != "" {
		return urlbuilder.Parse(target), nil
	}

	if base == "" {
		return nil, fmt.Errorf("relative url %q needs a base_url", target)
	}

	return urlbuilder.Parse(strings.TrimRight(base, "/") + "/" + strings.TrimLeft(target, "/")), nil
}

func statusColor(code int) func(a ...any) string {
	switch {
	case code >= 500:
		return color.New(color.FgRed, color.Bold).SprintFunc()
	case code >= 400:
		return color.New(color.FgRed).SprintFunc()
	case code >= 300:
		return color.New(color.FgYellow).SprintFunc()
	default:
		return color.New(color.FgGreen).SprintFunc()
	}
}
