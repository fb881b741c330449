// Command namethat starts the name-that-image party game server.
//
// It exposes a REST API for accounts and game management and a WebSocket
// endpoint that runs the live game sessions. Flags control host/port, the
// sqlite database path, an optional Redis session backend, debug logging,
// version output, and optional ngrok tunneling for easy external access
// during development.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	_ "modernc.org/sqlite"

	"github.com/namethat/namethat/api"
	"github.com/namethat/namethat/db"
	"github.com/namethat/namethat/game/session"
	"github.com/namethat/namethat/game/store"
	"github.com/namethat/namethat/transport/websocket"
	"github.com/namethat/namethat/user"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "NameThat Game Server"
)

// Configuration flags control how the server starts and which backends it uses.
var (
	port         = flag.Int("port", 8080, "HTTP server port")
	host         = flag.String("host", "localhost", "HTTP server host")
	dbPath       = flag.String("db", getDatabaseDefault(), "Path to the sqlite database file")
	redisAddr    = flag.String("redis", os.Getenv("REDIS_ADDR"), "Redis address for session storage (empty = in-memory)")
	debug        = flag.Bool("debug", false, "Enable debug logging")
	version      = flag.Bool("version", false, "Show version information")
	ngrokEnabled = flag.Bool("ngrok", false, "Enable ngrok tunnel")
	ngrokAuth    = flag.String("ngrok-auth", "", "Ngrok auth token (or use NGROK_AUTHTOKEN env var)")
	ngrokDomain  = flag.String("ngrok-domain", "", "Custom ngrok domain (optional)")
)

// getDatabaseDefault honors the DATABASE_PATH environment variable and
// falls back to a local file.
func getDatabaseDefault() string {
	if path := os.Getenv("DATABASE_PATH"); path != "" {
		return path
	}
	return "namethat.db"
}

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	} else {
		log.Println("Loaded environment variables from .env file")
	}

	flag.Parse()

	if *version {
		fmt.Printf("%s v%s\n", AppName, Version)
		os.Exit(0)
	}

	if *debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	} else {
		log.SetFlags(log.LstdFlags)
	}

	log.Printf("Starting %s v%s", AppName, Version)

	conn, err := sql.Open("sqlite", *dbPath)
	if err != nil {
		log.Fatalf("Failed to open database %s: %v", *dbPath, err)
	}
	defer conn.Close()
	if err := db.CreateSchema(conn); err != nil {
		log.Fatalf("Failed to create schema: %v", err)
	}

	sessions, cleanup, err := newSessionStore(context.Background())
	if err != nil {
		log.Fatalf("Failed to initialize session store: %v", err)
	}
	defer cleanup()

	hub := websocket.NewHub()
	go hub.Run()

	apiServer := api.NewServer(user.NewStore(conn), store.New(conn), sessions, hub)

	runHTTPServer(apiServer)
}

// newSessionStore picks Redis when an address is configured, otherwise an
// in-memory store that lasts as long as the process.
func newSessionStore(ctx context.Context) (session.Store, func(), error) {
	if *redisAddr == "" {
		log.Println("Using in-memory session store (sessions do not survive restarts)")
		return session.NewMemoryStore(), func() {}, nil
	}

	store, err := session.NewRedisStore(ctx, *redisAddr, os.Getenv("REDIS_PASSWORD"), 0)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("Using Redis session store at %s", *redisAddr)
	return store, func() {
		if err := store.Close(); err != nil {
			log.Printf("Failed to close Redis connection: %v", err)
		}
	}, nil
}

// runHTTPServer serves the API until a shutdown signal arrives. If ngrok
// is enabled (via flag or environment), it also provisions a public tunnel.
func runHTTPServer(handler http.Handler) {
	addr := fmt.Sprintf("%s:%d", *host, *port)

	httpServer := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: WebSocket connections outlive any sane value.
		IdleTimeout: 60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Printf("HTTP server listening on %s", addr)
		log.Printf("REST API: http://%s/api", addr)
		log.Printf("WebSocket: ws://%s/ws/<game_id>", addr)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	ngrokShouldRun := *ngrokEnabled
	if !ngrokShouldRun {
		if envEnabled := os.Getenv("NGROK_ENABLED"); envEnabled == "true" || envEnabled == "1" {
			ngrokShouldRun = true
		}
	}

	if ngrokShouldRun {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, handler)
		}()
	}

	sig := <-stop
	log.Printf("Received signal: %v. Shutting down...", sig)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	wg.Wait()
	log.Println("Server stopped")
}

// runNgrokTunnel exposes the server publicly for playtesting with remote
// friends. It returns when the context is cancelled or the tunnel fails.
func runNgrokTunnel(ctx context.Context, handler http.Handler) {
	authToken := *ngrokAuth
	if authToken == "" {
		authToken = os.Getenv("NGROK_AUTHTOKEN")
	}
	if authToken == "" {
		log.Println("WARNING: Ngrok enabled but no auth token provided (use --ngrok-auth or NGROK_AUTHTOKEN)")
		return
	}

	log.Println("Starting ngrok tunnel...")

	domain := *ngrokDomain
	if domain == "" {
		domain = os.Getenv("NGROK_DOMAIN")
	}

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		log.Printf("Using custom ngrok domain: %s", domain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		log.Printf("Failed to start ngrok tunnel: %v", err)
		return
	}
	defer func() {
		if err := tun.Close(); err != nil {
			log.Printf("Failed to close ngrok tunnel: %v", err)
		}
	}()

	ngrokURL := tun.URL()
	log.Printf("Ngrok tunnel established: %s", ngrokURL)
	log.Printf("  REST API (ngrok): %s/api", ngrokURL)
	log.Printf("  WebSocket (ngrok): %s/ws/<game_id>", ngrokURL)

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed {
		log.Printf("Ngrok server error: %v", err)
	}
	log.Println("Ngrok tunnel closed")
}
