// Command xiangqi starts the Xiangqi server.
//
// It supports four commands:
//  1. "serve" (default) – runs the WebSocket game server and the HTTP inspection API
//  2. "mcp" – runs an MCP stdio server, spinning up an internal server if none is reachable
//  3. "probe" – connects as a player, logs in and prints everything the server sends
//  4. "bot" – connects as an automated player that accepts invitations and plays them out
//
// Settings come from an optional YAML file, XQ_* environment variables and
// flags, in increasing precedence. ngrok tunneling is available for easy
// external access during development.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/xiangqi/api"
	"github.com/wricardo/xiangqi/bot"
	"github.com/wricardo/xiangqi/client"
	"github.com/wricardo/xiangqi/game/config"
	"github.com/wricardo/xiangqi/game/engine"
	"github.com/wricardo/xiangqi/game/service"
	"github.com/wricardo/xiangqi/game/session"
	"github.com/wricardo/xiangqi/logging"
	"github.com/wricardo/xiangqi/stats"
	"github.com/wricardo/xiangqi/transport/mcp"
	"github.com/wricardo/xiangqi/transport/protocol"
	"github.com/wricardo/xiangqi/transport/websocket"
	"go.uber.org/zap"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Xiangqi Server"
)

// shutdownTimeout bounds graceful HTTP shutdown
const shutdownTimeout = 10 * time.Second

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: error loading .env file: %v\n", err)
	}

	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		os.Exit(1)
	}
}

// newCommand builds the command tree. The root command serves; its flags
// are inherited by every subcommand.
func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "xiangqi",
		Usage:   "networked Xiangqi (Chinese chess) server",
		Version: Version,
		Flags:   append(commonFlags(), serveFlags()...),
		Action:  runServe,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the WebSocket game server and HTTP API",
				Action: runServe,
			},
			{
				Name:  "mcp",
				Usage: "run an MCP stdio server over the HTTP API",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "api-url",
						Usage:   "base URL of a running server; an internal one is started when unreachable",
						Value:   "http://localhost:8080",
						Sources: cli.EnvVars("XQ_API_URL"),
					},
				},
				Action: runMCP,
			},
			{
				Name:  "probe",
				Usage: "log in as a player and print server traffic",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "url", Usage: "WebSocket URL", Value: "ws://localhost:8080/ws"},
					&cli.StringFlag{Name: "username", Usage: "player name", Value: "probe"},
					&cli.StringFlag{Name: "password", Usage: "any non-empty password", Value: "probe"},
					&cli.DurationFlag{Name: "duration", Usage: "stop after this long (0 runs until interrupted)"},
				},
				Action: runProbe,
			},
			{
				Name:  "bot",
				Usage: "log in as an automated player",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "url", Usage: "WebSocket URL", Value: "ws://localhost:8080/ws"},
					&cli.StringFlag{Name: "username", Usage: "player name", Value: "bot"},
					&cli.StringFlag{Name: "password", Usage: "any non-empty password", Value: "bot"},
					&cli.StringFlag{Name: "challenge", Usage: "invite this logged-in player on start"},
					&cli.StringFlag{Name: "strategy", Usage: "greedy or random", Value: "greedy"},
					&cli.IntFlag{Name: "games", Usage: "stop after this many games (0 plays forever)"},
					&cli.DurationFlag{Name: "delay", Usage: "wait before each move"},
					&cli.BoolFlag{Name: "decline", Usage: "decline invitations instead of accepting"},
				},
				Action: runBot,
			},
		},
	}
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "YAML configuration file",
			Sources: cli.EnvVars("XQ_CONFIG"),
		},
		&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
		&cli.StringFlag{Name: "log-format", Usage: "console or json"},
		&cli.StringFlag{Name: "log-file", Usage: "also write logs to this file"},
	}
}

func serveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "host", Usage: "listen host"},
		&cli.IntFlag{Name: "port", Usage: "listen port"},
		&cli.IntFlag{Name: "max-connections", Usage: "maximum concurrent connections"},
		&cli.StringFlag{Name: "redis-url", Usage: "store player stats in Redis (redis://host:port/db)"},
		&cli.StringFlag{Name: "flying-general", Usage: "prevent or penalize"},
		&cli.DurationFlag{Name: "move-timeout", Usage: "end a game when the side to move is idle this long (0 disables)"},
		&cli.BoolFlag{
			Name:    "ngrok",
			Usage:   "enable ngrok tunnel",
			Sources: cli.EnvVars("NGROK_ENABLED"),
		},
		&cli.StringFlag{
			Name:    "ngrok-auth",
			Usage:   "ngrok auth token",
			Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
		},
		&cli.StringFlag{
			Name:    "ngrok-domain",
			Usage:   "custom ngrok domain (optional)",
			Sources: cli.EnvVars("NGROK_DOMAIN"),
		},
	}
}

// loadConfig layers file, environment and flags, then validates
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if cmd.IsSet("host") {
		cfg.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Port = int(cmd.Int("port"))
	}
	if cmd.IsSet("max-connections") {
		cfg.MaxConnections = int(cmd.Int("max-connections"))
	}
	if cmd.IsSet("redis-url") {
		cfg.RedisURL = cmd.String("redis-url")
	}
	if cmd.IsSet("flying-general") {
		cfg.FlyingGeneralPolicy = cmd.String("flying-general")
	}
	if cmd.IsSet("move-timeout") {
		cfg.MoveTimeout = cmd.Duration("move-timeout")
	}
	if cmd.IsSet("log-level") {
		cfg.Log.Level = cmd.String("log-level")
	}
	if cmd.IsSet("log-format") {
		cfg.Log.Format = cmd.String("log-format")
	}
	if cmd.IsSet("log-file") {
		cfg.Log.File = cmd.String("log-file")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setup loads configuration and installs the global logger
func setup(cmd *cli.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	err = logging.Init(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
		Caller: cfg.Log.Level == "debug",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	return cfg, nil
}

// app is one fully wired server
type app struct {
	handler  http.Handler
	hub      *websocket.Hub
	recorder stats.Recorder
	close    func()
}

// newApp wires registry, lobby, connection hub and HTTP API from cfg
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{close: func() {}}

	if cfg.RedisURL != "" {
		rec, err := stats.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		a.recorder = rec
		a.close = func() {
			if err := rec.Close(); err != nil {
				logging.L().Warn("redis_close_failed", zap.Error(err))
			}
		}
	} else {
		a.recorder = stats.NewMemoryRecorder()
	}

	engineOpts := cfg.EngineOptions()
	manager := session.NewManager(
		session.WithLivenessTimeout(cfg.LivenessTimeout),
		session.WithInvitationTTL(cfg.InvitationTTL),
		session.WithMoveTimeout(cfg.MoveTimeout),
		session.WithEngineFactory(func(red, black string) (*engine.Engine, error) {
			return engine.NewEngine(red, black, engineOpts...)
		}),
	)
	lobby := service.NewLobbyService(manager, service.WithRecorder(a.recorder))

	a.hub = websocket.NewHub(lobby, hubOptions(cfg))
	a.handler = api.NewServer(lobby, a.hub,
		api.WithStats(a.recorder),
		api.WithRules(cfg.Rules()))
	return a, nil
}

func hubOptions(cfg *config.Config) websocket.Options {
	opts := websocket.DefaultOptions()
	opts.MaxConnections = cfg.MaxConnections
	opts.LivenessTimeout = cfg.LivenessTimeout
	opts.PingInterval = cfg.PingInterval
	opts.WriteTimeout = cfg.WriteTimeout
	opts.MaintenanceInterval = cfg.MaintenanceInterval
	opts.SendQueueSize = cfg.SendQueueSize
	opts.ChatRate = cfg.ChatRate
	opts.ChatBurst = cfg.ChatBurst
	return opts
}

// runServe starts the HTTP server, the hub loop and optionally an ngrok
// tunnel, and stops them all on SIGINT or SIGTERM.
func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logging.Sync()
	log := logging.L()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	addr := cfg.Addr()
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           a.handler,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Info("server_starting",
		zap.String("version", Version),
		zap.String("addr", addr),
		zap.Int("max_connections", cfg.MaxConnections),
		zap.String("flying_general", string(cfg.Rules().FlyingGeneral)),
		zap.Bool("redis_stats", cfg.RedisURL != ""))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.hub.Run(gctx)
	})

	g.Go(func() error {
		log.Info("http_listening",
			zap.String("api", fmt.Sprintf("http://%s/api", addr)),
			zap.String("ws", fmt.Sprintf("ws://%s/ws", addr)))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if cmd.Bool("ngrok") {
		g.Go(func() error {
			serveNgrok(gctx, cmd.String("ngrok-auth"), cmd.String("ngrok-domain"), a.handler)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("server_stopping")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	log.Info("server_stopped")
	return err
}

// serveNgrok exposes handler through an ngrok tunnel until ctx is done.
// Tunnel failures are logged; the local server keeps running.
func serveNgrok(ctx context.Context, authToken, domain string, handler http.Handler) {
	log := logging.L()
	if authToken == "" {
		log.Warn("ngrok_disabled", zap.String("reason", "no auth token (use --ngrok-auth or NGROK_AUTHTOKEN)"))
		return
	}

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		log.Error("ngrok_listen_failed", zap.Error(err))
		return
	}

	publicURL := tun.URL()
	log.Info("ngrok_tunnel_established",
		zap.String("url", publicURL),
		zap.String("ws", strings.Replace(publicURL, "https://", "wss://", 1)+"/ws"))

	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 15 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(tun); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("ngrok_serve_failed", zap.Error(err))
	}
	log.Info("ngrok_tunnel_closed")
}

// runMCP runs an MCP stdio server. It reuses the server at --api-url when
// reachable and otherwise starts an internal one on a loopback port.
func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logging.Sync()
	log := logging.L()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	baseURL := strings.TrimRight(cmd.String("api-url"), "/")
	if !reachable(ctx, baseURL) {
		log.Info("mcp_starting_internal_server", zap.String("unreachable", baseURL))
		internalURL, err := startInternal(ctx, cfg)
		if err != nil {
			return err
		}
		baseURL = internalURL
	}

	log.Info("mcp_stdio_ready", zap.String("api", baseURL))
	return server.ServeStdio(mcp.NewClient(baseURL).GetMCPServer())
}

// reachable reports whether a server answers /health at baseURL
func reachable(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}

// startInternal serves a fresh app on a random loopback port until ctx ends
// and returns its base URL.
func startInternal(ctx context.Context, cfg *config.Config) (string, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("failed to get available port: %w", err)
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		listener.Close()
		return "", err
	}
	go a.hub.Run(ctx)

	srv := &http.Server{Handler: a.handler, ReadHeaderTimeout: 15 * time.Second}
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.L().Error("internal_server_failed", zap.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		srv.Close()
		a.close()
	}()

	return "http://" + listener.Addr().String(), nil
}

// runProbe logs in and prints every message as one JSON line until the
// connection ends, the duration elapses or the process is interrupted.
func runProbe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logging.Sync()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if d := cmd.Duration("duration"); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	c, err := client.Dial(ctx, cmd.String("url"))
	if err != nil {
		return err
	}
	defer c.Close()

	me, err := c.Login(ctx, cmd.String("username"), cmd.String("password"))
	if err != nil {
		return err
	}
	logging.L().Info("probe_logged_in", zap.String("player_id", me.ID), zap.String("name", me.Name))

	if cfg.HeartbeatInterval > 0 {
		go c.KeepAlive(ctx, cfg.HeartbeatInterval)
	}
	if err := c.Send(ctx, protocol.PlayerListRequest{}); err != nil {
		return err
	}

	out := json.NewEncoder(os.Stdout)
	for {
		ev, err := c.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := out.Encode(ev.Message); err != nil {
			return err
		}
	}
}

// botOptions maps bot flags and the rules policy onto player options
func botOptions(cmd *cli.Command, cfg *config.Config) ([]bot.Option, error) {
	seed := uint64(time.Now().UnixNano())
	var strategy bot.Strategy
	switch cmd.String("strategy") {
	case "", "greedy":
		strategy = bot.NewGreedy(seed)
	case "random":
		strategy = bot.NewRandom(seed)
	default:
		return nil, fmt.Errorf("unknown strategy %q", cmd.String("strategy"))
	}

	opts := []bot.Option{
		bot.WithStrategy(strategy),
		bot.WithRules(cfg.Rules()),
		bot.WithMaxGames(int(cmd.Int("games"))),
		bot.WithMoveDelay(cmd.Duration("delay")),
	}
	if cmd.Bool("decline") {
		opts = append(opts, bot.WithDeclineInvitations())
	}
	return opts, nil
}

// runBot logs in and plays until interrupted or the game limit is reached
func runBot(ctx context.Context, cmd *cli.Command) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logging.Sync()

	opts, err := botOptions(cmd, cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := client.Dial(ctx, cmd.String("url"))
	if err != nil {
		return err
	}
	defer c.Close()

	me, err := c.Login(ctx, cmd.String("username"), cmd.String("password"))
	if err != nil {
		return err
	}
	logging.L().Info("bot_logged_in", zap.String("player_id", me.ID), zap.String("name", me.Name))

	if cfg.HeartbeatInterval > 0 {
		go c.KeepAlive(ctx, cfg.HeartbeatInterval)
	}

	player := bot.NewPlayer(c, opts...)
	if name := cmd.String("challenge"); name != "" {
		if err := player.Challenge(ctx, name); err != nil {
			return err
		}
	}
	err = player.Run(ctx)
	logging.L().Info("bot_stopped", zap.Int("games", player.Finished()))
	return err
}
