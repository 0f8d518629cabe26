// Package main provides the server entry point.
package main

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apiconnect "github.com/osa030/playsync/internal/api/connect"
	"github.com/osa030/playsync/internal/app/filter"
	"github.com/osa030/playsync/internal/app/notification"
	"github.com/osa030/playsync/internal/app/player"
	"github.com/osa030/playsync/internal/app/relay"
	"github.com/osa030/playsync/internal/infra/config"
	"github.com/osa030/playsync/internal/infra/logger"
)

var (
	app        = kingpin.New("playsync-server", "playsync playback state server")
	configPath = app.Flag("config", "Path to config file (defaults apply when absent)").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()

	// check-config command
	checkConfigCmd = app.Command("check-config", "Load and validate the config, then exit")

	// list-filters command
	listFiltersCmd = app.Command("list-filters", "List available filters and exit")
)

func init() {
	app.Command("start", "Start the server (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if command == listFiltersCmd.FullCommand() {
		printFilters()
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if command == checkConfigCmd.FullCommand() {
		printConfig(cfg)
		return
	}

	loggerConfig := logger.Config{
		Output: cfg.Log.Output,
		Level:  cfg.Log.Level,
		File:   cfg.Log.File,
	}
	// Command-line flags win over the config file
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = "file"
		loggerConfig.File = *logfile
	}
	closeLog, err := logger.Init(loggerConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer closeLog()

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		closeLog()
		os.Exit(1)
	}
}

// loadConfig reads path, falling back to defaults when it does not exist.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return config.Default(), nil
	}
	return config.Load(path)
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	zlog.Info().Msgf("Config: addr=%s prepare_delay=%v default_duration=%v relays=%d control_token=%t",
		cfg.Server.Addr, cfg.Player.PrepareDelay(), cfg.Player.DefaultDuration(), len(cfg.Relays), cfg.ControlEnabled())

	channel := notification.NewManager(cfg.Notification.HistorySize)
	defer channel.Close()

	relays, err := relay.NewChainFromConfig(cfg.Relays, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create relays")
	}
	defer func() {
		if err := relays.Close(); err != nil {
			zlog.Warn().Msgf("Failed to close relays: %v", err)
		}
	}()
	relays.Attach(channel)

	registry := player.NewRegistry()
	launcher := player.NewLauncher(player.Config{
		PrepareDelay:    cfg.Player.PrepareDelay(),
		DefaultDuration: cfg.Player.DefaultDuration(),
		CommandBuffer:   cfg.Player.CommandBuffer,
	}, registry, channel)
	defer launcher.Close()

	filters, err := filter.NewChainFromConfig(cfg.Filters, registry)
	if err != nil {
		return errors.Wrap(err, "invalid filter config")
	}

	playbackService := apiconnect.NewPlaybackService(registry, launcher, channel,
		apiconnect.WithFilters(filters),
		apiconnect.WithHistory(channel),
	)

	mux := http.NewServeMux()
	apiconnect.Register(mux, playbackService, cfg.Control.Token)

	// Create server with h2c (HTTP/2 cleartext) support
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrCh := make(chan error, 1)
	serverStartedCh := make(chan struct{})

	go func() {
		zlog.Info().Msgf("Starting server: addr=%s", cfg.Server.Addr)
		close(serverStartedCh)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	<-serverStartedCh
	// Give the server a moment to fully initialize
	time.Sleep(100 * time.Millisecond)

	executeHooks(cfg.Server.Hooks.OnStarted, "on_started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		return errors.Wrap(err, "server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// End watch streams first so Shutdown does not wait on them
	playbackService.Close()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Server stopped")

	executeHooks(cfg.Server.Hooks.OnStopped, "on_stopped")

	return nil
}

// printFilters prints available filters.
func printFilters() {
	fmt.Println("Available Filters:")
	registered := filter.GetRegistered()
	for _, name := range slices.Sorted(maps.Keys(registered)) {
		f := registered[name]()
		codes := strings.Join(f.ReturnCodes(), ", ")
		fmt.Printf("  %-30s - %s [codes: %s]\n", f.Name(), f.Description(), codes)
	}
}

// printConfig prints the effective configuration without secrets.
func printConfig(cfg *config.Config) {
	fmt.Println("Effective config:")
	fmt.Printf("  %-28s %s\n", "server.addr", cfg.Server.Addr)
	fmt.Printf("  %-28s %s/%s\n", "log.output/level", cfg.Log.Output, cfg.Log.Level)
	fmt.Printf("  %-28s %t\n", "control.token set", cfg.ControlEnabled())
	fmt.Printf("  %-28s %v\n", "player.prepare_delay", cfg.Player.PrepareDelay())
	fmt.Printf("  %-28s %v\n", "player.default_duration", cfg.Player.DefaultDuration())
	fmt.Printf("  %-28s %d\n", "notification.history_size", cfg.Notification.HistorySize)
	for _, name := range slices.Sorted(maps.Keys(cfg.Filters)) {
		fmt.Printf("  %-28s %t\n", "filters."+name, cfg.Filters[name].Enabled)
	}
	for i, r := range cfg.Relays {
		fmt.Printf("  %-28s %s (%s)\n", fmt.Sprintf("relays[%d]", i), r.Type, cmp.Or(r.Name, r.Type))
	}
}

// executeHooks runs a list of shell commands.
func executeHooks(hooks []string, stage string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Info().Msgf("Executing hook: %s", hook)
		// sh -c allows redirection and pipes
		cmd := exec.Command("sh", "-c", hook)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}
