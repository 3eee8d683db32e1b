// Command game2048 serves the 2048 game.
//
// It supports two modes:
//  1. "server" (default) runs the HTTP server exposing the REST API, the
//     WebSocket stream and an /mcp HTTP endpoint
//  2. "stdio-mcp" runs an MCP stdio server, reusing a running HTTP API or
//     starting an internal one
//
// Settings come from game2048.yaml, GAME2048_* environment variables and a
// .env file; flags given on the command line win.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/game2048/api"
	"github.com/wricardo/game2048/game/config"
	"github.com/wricardo/game2048/game/service"
	"github.com/wricardo/game2048/game/session"
	"github.com/wricardo/game2048/transport/events"
	"github.com/wricardo/game2048/transport/mcp"
	"github.com/wricardo/game2048/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "2048 Game Server"
)

// Command-line flags. Unset flags leave the loaded settings alone.
var (
	settingsFile = flag.String("config", "", "Settings file (default: game2048.yaml in . or $HOME/.game2048)")
	port         = flag.Int("port", 8080, "HTTP server port")
	host         = flag.String("host", "localhost", "HTTP server host")
	variantsDir  = flag.String("variants-dir", "", "Directory containing rule variants")
	storage      = flag.String("storage", config.StorageFile, "Session storage: file, sqlite or memory")
	natsURL      = flag.String("nats", "", "NATS server URL for game events (optional)")
	lang         = flag.String("lang", "fr", "Default message language")
	debug        = flag.Bool("debug", false, "Enable debug logging")
	version      = flag.Bool("version", false, "Show version information")
	ngrokEnabled = flag.Bool("ngrok", false, "Enable ngrok tunnel")
	ngrokAuth    = flag.String("ngrok-auth", "", "Ngrok auth token (or use NGROK_AUTHTOKEN env var)")
	ngrokDomain  = flag.String("ngrok-domain", "", "Custom ngrok domain (optional)")
)

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [MODE]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "%s v%s\n\n", AppName, Version)
		fmt.Fprintf(os.Stderr, "Available modes:\n")
		fmt.Fprintf(os.Stderr, "  server, http     Run HTTP server with API, WebSocket, and MCP endpoint (default)\n")
		fmt.Fprintf(os.Stderr, "  stdio-mcp        Run MCP stdio server\n")
		fmt.Fprintf(os.Stderr, "  mcp-stdio, mcp   Aliases for stdio-mcp\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                          # HTTP server on port 8080\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -storage sqlite -lang en # SQLite sessions, English messages\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s stdio-mcp                # MCP over stdio\n", os.Args[0])
	}
}

// main parses flags, initializes services, and starts the selected mode.
func main() {
	envErr := godotenv.Load()

	flag.Parse()

	if *version {
		fmt.Printf("%s v%s\n", AppName, Version)
		os.Exit(0)
	}

	settings, err := loadSettings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	setupLogging(settings.Debug)

	if envErr == nil {
		log.Info().Msg("loaded environment variables from .env file")
	} else if !os.IsNotExist(envErr) {
		log.Warn().Err(envErr).Msg("failed to load .env file")
	}

	mode := "server"
	if args := flag.Args(); len(args) > 0 {
		mode = args[0]
	}

	log.Info().Str("app", AppName).Str("version", Version).Str("mode", mode).Msg("starting")

	app, err := initializeServices(settings)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize services")
	}
	defer app.Close()

	switch mode {
	case "stdio-mcp", "mcp-stdio", "mcp":
		runStdioMCPWithInternalServer(app)

	case "server", "http":
		runHTTPServer(app, settings)

	default:
		log.Fatal().Str("mode", mode).Msg("unknown mode, use 'server' (default) or 'stdio-mcp'")
	}
}

// loadSettings reads settings and applies the flags that were given
func loadSettings() (*config.Settings, error) {
	settings, err := config.Load(*settingsFile)
	if err != nil {
		return nil, err
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			settings.Port = *port
		case "host":
			settings.Host = *host
		case "variants-dir":
			settings.VariantsDir = *variantsDir
		case "storage":
			settings.Storage = *storage
		case "nats":
			settings.NATSURL = *natsURL
		case "lang":
			settings.DefaultLang = *lang
		case "debug":
			settings.Debug = *debug
		case "ngrok":
			settings.Ngrok = *ngrokEnabled
		case "ngrok-domain":
			settings.NgrokDomain = *ngrokDomain
		}
	})

	return settings, settings.Validate()
}

func setupLogging(debug bool) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	// Logs go to stderr so stdio-mcp keeps stdout for the protocol
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
}

// application bundles the wired services
type application struct {
	service  service.GameService
	sessions *session.Manager
	hub      *websocket.Hub
	closers  []func()
	cancel   context.CancelFunc
}

// Close stops background work and releases connections
func (a *application) Close() {
	a.cancel()
	if err := a.sessions.SaveAllSessions(); err != nil {
		log.Warn().Err(err).Msg("failed to save sessions on shutdown")
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// initializeServices wires variants, session storage, observers and the
// game service, and starts the background session cleanup.
func initializeServices(settings *config.Settings) (*application, error) {
	configManager, err := config.NewManager(settings.VariantsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}
	if settings.DefaultVariant != "" && settings.DefaultVariant != config.DefaultVariant {
		if err := configManager.SetDefault(settings.DefaultVariant); err != nil {
			return nil, fmt.Errorf("failed to set default variant: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	app := &application{cancel: cancel}

	persistence, err := openPersistence(settings, app)
	if err != nil {
		cancel()
		return nil, err
	}

	opts := []session.Option{
		session.WithUndoDepth(settings.UndoDepth),
		session.WithConfigs(configManager),
	}
	if persistence != nil {
		app.sessions = session.NewManagerWithPersistence(persistence, opts...)
		if err := app.sessions.LoadPersistedSessions(); err != nil {
			log.Warn().Err(err).Msg("failed to load persisted sessions")
		}
	} else {
		app.sessions = session.NewManager(opts...)
	}

	app.hub = websocket.NewHub()
	go app.hub.RunContext(ctx)

	observers := []service.Observer{app.hub}
	if settings.NATSURL != "" {
		observer, nc, err := events.Connect(settings.NATSURL)
		if err != nil {
			log.Warn().Err(err).Msg("game events will not be published")
		} else {
			observers = append(observers, observer)
			app.closers = append(app.closers, func() { drain(nc) })
		}
	}

	app.service = service.NewGameService(app.sessions, configManager,
		service.WithObservers(observers...),
		service.WithLanguage(settings.Language()),
	)

	go sessionCleanupRoutine(ctx, app.sessions, settings.SessionTTL, settings.StoreRetention)

	return app, nil
}

// openPersistence returns the configured session store, or nil for memory
func openPersistence(settings *config.Settings, app *application) (session.SessionPersistence, error) {
	var store session.SessionPersistence
	switch settings.Storage {
	case config.StorageMemory:
		log.Info().Msg("sessions kept in memory only")
		return nil, nil

	case config.StorageSQLite:
		sp, err := session.NewSQLitePersistence(settings.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open session database: %w", err)
		}
		app.closers = append(app.closers, func() { sp.Close() })
		log.Info().Str("path", settings.SQLitePath).Msg("sessions stored in sqlite")
		store = sp

	default:
		fp, err := session.NewFilePersistence(settings.DataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to create session persistence: %w", err)
		}
		log.Info().Str("dir", settings.DataDir).Msg("sessions stored as files")
		store = fp
	}

	return session.NewRetryingPersistence(store, settings.SaveRetries, 50*time.Millisecond), nil
}

func drain(nc *nats.Conn) {
	if err := nc.Drain(); err != nil {
		log.Warn().Err(err).Msg("failed to drain nats connection")
	}
}

// sessionCleanupRoutine periodically evicts sessions idle for longer than
// ttl and prunes stored ones idle for longer than retention
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, ttl, retention time.Duration) {
	if ttl <= 0 && retention <= 0 {
		return
	}
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cleanupSessions(manager, ttl, retention)
		}
	}
}

func cleanupSessions(manager *session.Manager, ttl, retention time.Duration) {
	if ttl > 0 {
		manager.CleanupExpiredSessions(ttl)
	}
	if _, err := manager.PruneStored(retention); err != nil {
		log.Warn().Err(err).Msg("failed to prune stored sessions")
	}
}

// newRouter mounts the API and the /mcp endpoint
func newRouter(app *application, baseURL string) http.Handler {
	apiServer := api.NewServer(app.service, app.hub)
	mcpClient := mcp.NewClient(baseURL)

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(response); err != nil {
			log.Debug().Err(err).Msg("failed to write mcp response")
		}
	})
	return mainRouter
}

// runHTTPServer starts the HTTP server and, when enabled, an ngrok tunnel
func runHTTPServer(app *application, settings *config.Settings) {
	addr := settings.Addr()
	mainRouter := newRouter(app, "http://"+addr)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Info().
			Str("api", fmt.Sprintf("http://%s/api", addr)).
			Str("ws", fmt.Sprintf("ws://%s/ws?session=<session_id>", addr)).
			Str("mcp", fmt.Sprintf("http://%s/mcp", addr)).
			Msg("HTTP server listening")

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	ngrokShouldRun := settings.Ngrok
	if envEnabled := os.Getenv("NGROK_ENABLED"); envEnabled == "true" || envEnabled == "1" {
		ngrokShouldRun = true
	}

	if ngrokShouldRun {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, mainRouter, settings.NgrokDomain)
		}()
	}

	sig := <-stop
	log.Info().Str("signal", sig.String()).Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	wg.Wait()
	log.Info().Msg("server stopped")
}

// runNgrok serves handler through an ngrok tunnel until ctx is done
func runNgrok(ctx context.Context, handler http.Handler, domain string) {
	authToken := *ngrokAuth
	if authToken == "" {
		authToken = os.Getenv("NGROK_AUTHTOKEN")
		if authToken == "" {
			authToken = os.Getenv("NGROK_AUTH_TOKEN")
		}
	}
	if authToken == "" {
		log.Warn().Msg("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	if domain == "" {
		domain = os.Getenv("NGROK_DOMAIN")
	}

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		log.Info().Str("domain", domain).Msg("using custom ngrok domain")
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		log.Error().Err(err).Msg("failed to start ngrok tunnel")
		return
	}
	defer func() {
		if err := tun.Close(); err != nil {
			log.Debug().Err(err).Msg("failed to close ngrok tunnel")
		}
	}()

	log.Info().Str("url", tun.URL()).Msg("ngrok tunnel established")

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed {
		log.Warn().Err(err).Msg("ngrok server error")
	}
	log.Info().Msg("ngrok tunnel closed")
}

// externalAPI reports whether a game API answers at baseURL
func externalAPI(baseURL string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/api/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// runStdioMCPWithInternalServer runs an MCP stdio server. It reuses an API
// at http://localhost:8080 when one answers, and otherwise serves the API on
// a random loopback port.
func runStdioMCPWithInternalServer(app *application) {
	baseURL := "http://localhost:8080"

	if externalAPI(baseURL) {
		log.Info().Str("url", baseURL).Msg("using external API server for MCP")
	} else {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			log.Fatal().Err(err).Msg("failed to get available port")
		}
		baseURL = "http://" + listener.Addr().String()

		httpServer := &http.Server{Handler: newRouter(app, baseURL)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("internal HTTP server error")
			}
		}()
		defer httpServer.Close()

		log.Info().Str("url", baseURL).Msg("started internal HTTP server for MCP stdio")
	}

	mcpClient := mcp.NewClient(baseURL)
	log.Info().Msg("MCP stdio server ready")

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		log.Error().Err(err).Msg("MCP stdio server error")
	}
}
