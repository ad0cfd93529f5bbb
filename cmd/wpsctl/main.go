package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	goAuthClient "github.com/MrEthical07/goAuthClient"
	"github.com/MrEthical07/goAuthClient/internal/config"
	"github.com/MrEthical07/goAuthClient/internal/logger"
	"github.com/MrEthical07/goAuthClient/middleware"
	"github.com/MrEthical07/goAuthClient/session"
	"github.com/akamensky/argparse"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

func run() int {
	parser := argparse.NewParser("wpsctl", "Manage a WPS portal session from the command line")
	envFile := parser.String("", "env-file", &argparse.Options{Help: "Read settings from this env file instead of ./.env", Default: ""})

	loginCmd := parser.NewCommand("login", "Authenticate and persist the session")
	username := loginCmd.String("u", "username", &argparse.Options{Help: "Username", Required: true})
	password := loginCmd.String("p", "password", &argparse.Options{Help: "Password; read from WPSCTL_PASSWORD or stdin when empty", Default: ""})

	logoutCmd := parser.NewCommand("logout", "End the session and clear local credentials")
	whoamiCmd := parser.NewCommand("whoami", "Print the cached user")
	statusCmd := parser.NewCommand("status", "Print session state and guard view")
	refreshCmd := parser.NewCommand("refresh", "Re-derive user and permissions from the server")
	serveCmd := parser.NewCommand("serve", "Serve the session over HTTP with metrics")

	if err := parser.Parse(os.Args); err != nil {
		fmt.Print(parser.Usage(err))
		return 2
	}

	settings, err := loadSettings(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 2
	}

	log, err := logger.New(os.Stderr, settings.LogLevel, settings.LogDevelopment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		return 2
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	client, closeBackend, err := buildClient(settings, log, reg)
	if err != nil {
		log.Error("building client failed", zap.Error(err))
		return 1
	}
	defer closeBackend()
	defer client.Close()

	if err := client.Init(ctx); err != nil {
		log.Warn("restoring session failed", zap.Error(err))
	}

	switch {
	case loginCmd.Happened():
		err = runLogin(ctx, client, *username, *password)
	case logoutCmd.Happened():
		client.Logout(ctx)
		fmt.Println("logged out")
	case whoamiCmd.Happened():
		err = runWhoami(ctx, client)
	case statusCmd.Happened():
		err = runStatus(ctx, client)
	case refreshCmd.Happened():
		err = runRefresh(ctx, client)
	case serveCmd.Happened():
		err = runServe(ctx, client, settings.ServeAddr, reg, log)
	}

	if err != nil {
		if msg := goAuthClient.UserMessage(err); msg != "" {
			fmt.Fprintln(os.Stderr, msg)
		}
		log.Debug("command failed", zap.Error(err))
		return 1
	}
	return 0
}

func loadSettings(path string) (*config.Settings, error) {
	if path != "" {
		return config.LoadWithPath(path)
	}
	return config.Load()
}

func buildClient(s *config.Settings, log *zap.Logger, reg prometheus.Registerer) (*goAuthClient.Client, func(), error) {
	b := goAuthClient.New().
		WithConfig(s.Client).
		WithLogger(log)
	if s.Client.Metrics.Enabled {
		b.WithRegisterer(reg)
	}

	closeBackend := func() {}
	if s.UsesRedis() {
		rdb := redis.NewClient(&redis.Options{
			Addr:         s.RedisAddr,
			Password:     s.RedisPassword,
			DB:           s.RedisDB,
			DialTimeout:  s.RedisTimeout(),
			ReadTimeout:  s.RedisTimeout(),
			WriteTimeout: s.RedisTimeout(),
		})
		closeBackend = func() { _ = rdb.Close() }

		backend := session.NewRedisStorage(rdb, s.Client.Session.RedisPrefix, s.Client.Session.RedisTTL)
		ctx, cancel := context.WithTimeout(context.Background(), s.RedisTimeout())
		rtt, err := backend.Ping(ctx)
		cancel()
		if err != nil {
			closeBackend()
			return nil, nil, err
		}
		log.Debug("using redis token store", zap.String("addr", s.RedisAddr), zap.Duration("rtt", rtt))
		b.WithStorage(backend)
	} else {
		backend := session.NewFileStorage(s.SessionFile)
		log.Debug("using file token store", zap.String("path", backend.Path()))
		b.WithStorage(backend)
	}

	c, err := b.Build()
	if err != nil {
		closeBackend()
		return nil, nil, err
	}
	return c, closeBackend, nil
}

func runLogin(ctx context.Context, c *goAuthClient.Client, username, password string) error {
	if password == "" {
		password = os.Getenv("WPSCTL_PASSWORD")
	}
	if password == "" {
		fmt.Fprint(os.Stderr, "Password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	user, err := c.Login(ctx, username, password)
	if err != nil {
		return err
	}
	fmt.Printf("logged in as %s (%d permissions)\n", user.Username, len(user.Permissions))
	return nil
}

func runWhoami(ctx context.Context, c *goAuthClient.Client) error {
	user, ok := c.CurrentUser(ctx)
	if !ok {
		return goAuthClient.ErrNotAuthenticated
	}
	return printJSON(user)
}

type statusReport struct {
	Phase            string    `json:"phase"`
	View             string    `json:"view"`
	Authenticated    bool      `json:"authenticated"`
	Username         string    `json:"username,omitempty"`
	Permissions      []string  `json:"permissions,omitempty"`
	PermissionsStale bool      `json:"permissions_stale"`
	RefreshedAt      time.Time `json:"refreshed_at,omitempty"`
}

func report(ctx context.Context, c *goAuthClient.Client) statusReport {
	snap := c.State()
	out := statusReport{
		Phase:            snap.Phase.String(),
		View:             c.View(ctx).String(),
		Authenticated:    snap.IsAuthenticated,
		PermissionsStale: c.PermissionsStale(),
		RefreshedAt:      snap.RefreshedAt,
	}
	if snap.User != nil {
		out.Username = snap.User.Username
		out.Permissions = snap.User.Permissions
	}
	return out
}

func runStatus(ctx context.Context, c *goAuthClient.Client) error {
	return printJSON(report(ctx, c))
}

func runRefresh(ctx context.Context, c *goAuthClient.Client) error {
	user, err := c.Refresh(ctx)
	if err != nil {
		return err
	}
	return printJSON(user)
}

func runServe(ctx context.Context, c *goAuthClient.Client, addr string, reg *prometheus.Registry, log *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/session", middleware.Guard(c.Guard(), middleware.Handlers{
		Protected: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, report(r.Context(), c))
		}),
		Public: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnauthorized, report(r.Context(), c))
		}),
	}))
	mux.Handle("/admin", middleware.RequireAuthenticated(c.Guard(), "/session")(
		middleware.RequirePermission(c, "system.settings")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, report(r.Context(), c))
		})),
	))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := c.Reconcile(ctx); err != nil {
					log.Warn("reconcile failed", zap.Error(err))
				}
			}
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("serving session", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
