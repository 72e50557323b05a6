// Command minesweeper starts the Minesweeper game server.
//
// It supports two modes:
//  1. "serve" – runs the HTTP server exposing the REST API, WebSocket updates and an /mcp HTTP endpoint
//  2. "mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags (or their environment variables) control host/port, preset, session
// and records storage, logging, and optional ngrok tunneling for external access.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/minesweeper/api"
	"github.com/wricardo/minesweeper/game/config"
	"github.com/wricardo/minesweeper/game/records"
	"github.com/wricardo/minesweeper/game/service"
	"github.com/wricardo/minesweeper/game/session"
	"github.com/wricardo/minesweeper/transport/mcp"
	"github.com/wricardo/minesweeper/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Minesweeper Server"
)

const (
	sessionMaxAge   = 24 * time.Hour
	cleanupInterval = time.Hour
	syncInterval    = 5 * time.Second
	shutdownTimeout = 10 * time.Second
	probeTimeout    = 2 * time.Second
)

var log = logrus.WithField("component", "main")

// serviceOptions selects where presets, sessions and records live
type serviceOptions struct {
	ConfigDir   string
	SessionsDir string
	RecordsDB   string
}

// services holds the wired storage layers behind the game service
type services struct {
	Configs  *config.Manager
	Sessions *session.Manager
	Records  *records.SQLiteStore
	Game     service.GameService
}

// initializeServices wires config, session and record storage into the game
// service. Records stay disabled when no database path is given.
func initializeServices(opts serviceOptions) (*services, error) {
	configManager, err := config.NewManager(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	persistence, err := session.NewFilePersistence(opts.SessionsDir, configManager)
	if err != nil {
		return nil, fmt.Errorf("failed to create session persistence: %w", err)
	}

	sessionManager := session.NewManagerWithPersistence(persistence)
	if err := sessionManager.LoadPersistedSessions(); err != nil {
		log.WithError(err).Warn("failed to load some persisted sessions")
	}

	s := &services{
		Configs:  configManager,
		Sessions: sessionManager,
	}

	if opts.RecordsDB == "" {
		s.Game = service.NewGameService(sessionManager, configManager)
		return s, nil
	}

	store, err := records.Open(opts.RecordsDB)
	if err != nil {
		return nil, fmt.Errorf("failed to open records database: %w", err)
	}
	s.Records = store
	s.Game = service.NewGameServiceWithRecords(sessionManager, configManager, store)
	return s, nil
}

// Close flushes sessions to disk and closes the records database
func (s *services) Close() error {
	err := s.Sessions.SaveAllSessions()
	if s.Records != nil {
		err = multierr.Append(err, s.Records.Close())
	}
	return err
}

// configureLogging sets the level and formatter of the standard logger
func configureLogging(debug bool, format string) error {
	switch format {
	case "", "text":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("unknown log format %q (use text or json)", format)
	}

	if debug {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}
	return nil
}

// runEvery calls fn on every tick until ctx is done
func runEvery(ctx context.Context, interval time.Duration, fn func()) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			fn()
		}
	}
}

// cleanupSessions removes sessions that have not been accessed within maxAge
func cleanupSessions(manager *session.Manager, maxAge time.Duration) {
	if removed := manager.CleanupExpiredSessions(maxAge); removed > 0 {
		log.WithField("removed", removed).Info("cleaned up expired sessions")
	}
}

// syncSessions drops in-memory sessions whose files were deleted
func syncSessions(manager *session.Manager) {
	if pruned := manager.SyncWithPersistence(); pruned > 0 {
		log.WithField("pruned", pruned).Info("filesystem sync pruned orphaned sessions")
	}
}

// mcpHandler answers single JSON-RPC MCP messages posted over HTTP
func mcpHandler(mcpServer *server.MCPServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
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

		response := mcpServer.HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// newHandler mounts the API at the root and the MCP endpoint at /mcp
func newHandler(gameService service.GameService, hub *websocket.Hub, baseURL, staticDir string) http.Handler {
	var opts []api.Option
	if staticDir != "" {
		opts = append(opts, api.WithStaticDir(staticDir))
	}
	mcpClient := mcp.NewClient(baseURL)

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", api.NewServer(gameService, hub, opts...))
	mainRouter.HandleFunc("/mcp", mcpHandler(mcpClient.GetMCPServer()))
	return mainRouter
}

// ngrokOptions configures the optional public tunnel
type ngrokOptions struct {
	AuthToken string
	Domain    string
}

// serveNgrok exposes handler through an ngrok tunnel until ctx is done.
// Tunnel failures are logged and leave the local server running.
func serveNgrok(ctx context.Context, handler http.Handler, opts ngrokOptions) error {
	if opts.AuthToken == "" {
		log.Warn("ngrok enabled but no auth token provided (use --ngrok-auth or NGROK_AUTHTOKEN)")
		return nil
	}

	var tunnel ngrokConfig.Tunnel
	if opts.Domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(opts.Domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(opts.AuthToken))
	if err != nil {
		log.WithError(err).Error("failed to start ngrok tunnel")
		return nil
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.WithError(err).Warn("failed to close ngrok tunnel")
		}
	}()

	url := tun.URL()
	log.WithFields(logrus.Fields{
		"url":       url,
		"api":       url + "/api",
		"websocket": url + "/ws?session=<session_id>",
		"mcp":       url + "/mcp",
	}).Info("ngrok tunnel established")

	if err := http.Serve(tun, handler); err != nil && ctx.Err() == nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Error("ngrok server error")
	}
	log.Info("ngrok tunnel closed")
	return nil
}

// runServe starts the HTTP server, WebSocket hub, housekeeping tickers and
// the optional ngrok tunnel, and stops them all on SIGINT/SIGTERM.
func runServe(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := initializeServices(optionsFromCommand(cmd))
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			log.WithError(err).Warn("failed to close services")
		}
	}()

	addr := net.JoinHostPort(cmd.String("host"), fmt.Sprint(cmd.Int("port")))
	hub := websocket.NewHub()
	handler := newHandler(svc.Game, hub, "http://"+addr, cmd.String("static-dir"))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return hub.Run(gctx)
	})

	g.Go(func() error {
		log.WithFields(logrus.Fields{
			"addr":      addr,
			"api":       "http://" + addr + "/api",
			"websocket": "ws://" + addr + "/ws?session=<session_id>",
			"mcp":       "http://" + addr + "/mcp",
		}).Infof("%s v%s listening", AppName, Version)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return runEvery(gctx, cleanupInterval, func() { cleanupSessions(svc.Sessions, sessionMaxAge) })
	})

	g.Go(func() error {
		return runEvery(gctx, syncInterval, func() { syncSessions(svc.Sessions) })
	})

	if cmd.Bool("ngrok") {
		opts := ngrokOptions{AuthToken: cmd.String("ngrok-auth"), Domain: cmd.String("ngrok-domain")}
		g.Go(func() error {
			return serveNgrok(gctx, handler, opts)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}

// startInternalAPI serves the REST API on a random loopback port and returns
// its base URL with a function stopping it.
func startInternalAPI(ctx context.Context, gameService service.GameService) (string, func(), error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, fmt.Errorf("failed to get available port: %w", err)
	}
	baseURL := "http://" + listener.Addr().String()

	ctx, cancel := context.WithCancel(ctx)
	hub := websocket.NewHub()
	go hub.Run(ctx)

	httpServer := &http.Server{Handler: api.NewServer(gameService, hub)}
	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("internal HTTP server error")
		}
	}()

	stop := func() {
		cancel()
		shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		defer done()
		httpServer.Shutdown(shutdownCtx)
	}
	return baseURL, stop, nil
}

// runMCP serves MCP over stdio. It reuses the API at --api-url when it
// answers, otherwise it starts an internal API backed by local storage.
func runMCP(ctx context.Context, cmd *cli.Command) error {
	externalURL := cmd.String("api-url")
	client := mcp.NewClient(externalURL)

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	err := client.WaitReady(probeCtx)
	cancel()

	if err == nil {
		log.WithField("url", externalURL).Info("MCP stdio server ready (using external HTTP server)")
	} else {
		log.WithField("url", externalURL).Info("no external API server found, starting internal HTTP server")

		svc, err := initializeServices(optionsFromCommand(cmd))
		if err != nil {
			return err
		}
		defer func() {
			if err := svc.Close(); err != nil {
				log.WithError(err).Warn("failed to close services")
			}
		}()

		baseURL, stop, err := startInternalAPI(ctx, svc.Game)
		if err != nil {
			return err
		}
		defer stop()

		client = mcp.NewClient(baseURL)
		if err := client.WaitReady(ctx); err != nil {
			return err
		}
		log.WithField("url", baseURL).Info("MCP stdio server ready (using internal HTTP server)")
	}

	if err := server.ServeStdio(client.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

func optionsFromCommand(cmd *cli.Command) serviceOptions {
	return serviceOptions{
		ConfigDir:   cmd.String("config-dir"),
		SessionsDir: cmd.String("sessions-dir"),
		RecordsDB:   cmd.String("records-db"),
	}
}

// newApp builds the command tree. Global flags apply to every subcommand.
func newApp() *cli.Command {
	return &cli.Command{
		Name:    "minesweeper",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "configs",
				Usage:   "directory containing difficulty presets",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.StringFlag{
				Name:    "sessions-dir",
				Value:   "sessions",
				Usage:   "directory for persisted sessions",
				Sources: cli.EnvVars("SESSIONS_DIR"),
			},
			&cli.StringFlag{
				Name:    "records-db",
				Usage:   "SQLite database for finished game records (disabled when empty)",
				Sources: cli.EnvVars("RECORDS_DB"),
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "enable debug logging",
				Sources: cli.EnvVars("MINES_DEBUG"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Value:   "text",
				Usage:   "log output format: text or json",
				Sources: cli.EnvVars("MINES_LOG_FORMAT"),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			return ctx, configureLogging(cmd.Bool("debug"), cmd.String("log-format"))
		},
		DefaultCommand: "serve",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP server with REST API, WebSocket, and MCP endpoint",
				Action: runServe,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "host",
						Value:   "localhost",
						Usage:   "HTTP server host",
						Sources: cli.EnvVars("MINES_HOST"),
					},
					&cli.IntFlag{
						Name:    "port",
						Aliases: []string{"p"},
						Value:   8080,
						Usage:   "HTTP server port",
						Sources: cli.EnvVars("MINES_PORT"),
					},
					&cli.StringFlag{
						Name:    "static-dir",
						Usage:   "serve a web client from this directory",
						Sources: cli.EnvVars("MINES_STATIC_DIR"),
					},
					&cli.BoolFlag{
						Name:    "ngrok",
						Usage:   "expose the server through an ngrok tunnel",
						Sources: cli.EnvVars("NGROK_ENABLED"),
					},
					&cli.StringFlag{
						Name:    "ngrok-auth",
						Usage:   "ngrok auth token",
						Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
					},
					&cli.StringFlag{
						Name:    "ngrok-domain",
						Usage:   "custom ngrok domain",
						Sources: cli.EnvVars("NGROK_DOMAIN"),
					},
				},
			},
			{
				Name:    "mcp",
				Aliases: []string{"stdio-mcp", "mcp-stdio"},
				Usage:   "run an MCP stdio server backed by an external or internal HTTP API",
				Action:  runMCP,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "api-url",
						Value:   "http://localhost:8080",
						Usage:   "API server to reuse when it is running",
						Sources: cli.EnvVars("MINES_API_URL"),
					},
				},
			},
			{
				Name:  "version",
				Usage: "print version information",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					fmt.Fprintf(cmd.Root().Writer, "%s v%s\n", AppName, Version)
					return nil
				},
			},
		},
	}
}

// main loads .env, then runs the command tree.
func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.WithError(err).Warn("error loading .env file")
	}

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		logrus.WithError(err).Fatal("minesweeper exited")
	}
}
