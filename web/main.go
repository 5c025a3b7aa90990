package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oriarh/OpenEMR-EHR-Integration-System/internal/config"
	"github.com/oriarh/OpenEMR-EHR-Integration-System/internal/openemr"
	"github.com/oriarh/OpenEMR-EHR-Integration-System/internal/pkg/idgen"
	"github.com/oriarh/OpenEMR-EHR-Integration-System/internal/pkg/logger"
	"github.com/oriarh/OpenEMR-EHR-Integration-System/internal/pkg/urlutil"
	"github.com/oriarh/OpenEMR-EHR-Integration-System/web/internal/handlers"
	"github.com/oriarh/OpenEMR-EHR-Integration-System/web/internal/middleware"
	"github.com/oriarh/OpenEMR-EHR-Integration-System/web/internal/render"
	"github.com/oriarh/OpenEMR-EHR-Integration-System/web/internal/session"
)

// setupWebLogging configures the global logger for the web service
func setupWebLogging(logLevel, logFormat string) error {
	cfg := logger.Config{
		Level:       logger.ParseLevel(logLevel),
		LogToStderr: true, // Web service always logs to stderr
		Format:      logFormat,
	}

	globalLogger, err := logger.SetupLogger(cfg)
	if err != nil {
		return err
	}

	// Set as default logger so all slog.Info/Warn/Error calls use our configured logger
	slog.SetDefault(globalLogger)

	return nil
}

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// Load proxy configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Set up structured logging (must be done before any logging calls)
	if err = setupWebLogging(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to setup logging: %v\n", err)
		os.Exit(1)
	}

	log := slog.Default().With("component", "web")
	log.Info("starting emrproxy web service",
		slog.String("upstream", cfg.OpenEMR.BaseURL),
		slog.String("site", cfg.OpenEMR.Site))

	// Pin the request ID generator before the first request can mint one.
	// Replicated deployments would pass distinct node IDs here.
	if err := idgen.Initialize(1); err != nil {
		log.Error("failed to initialize id generator", slog.Any("error", err))
		os.Exit(1)
	}

	// Load templates from configured path (defaults to "web/templates")
	templates, err := render.LoadTemplates(cfg.Templates.Path)
	if err != nil {
		log.Error("failed to load templates", slog.Any("error", err))
		os.Exit(1)
	}

	// Log loaded template names for debugging
	render.LogTemplateNames(templates)

	// Get session secret - priority: env var > config file > random
	var sessionSecret []byte
	secretSource := ""

	// 1. Try environment variable first (best for production)
	if envSecret := os.Getenv("SESSION_SECRET"); envSecret != "" {
		sessionSecret, err = base64.StdEncoding.DecodeString(envSecret)
		if err != nil {
			log.Warn("failed to decode SESSION_SECRET env var, trying config", slog.Any("error", err))
		} else {
			secretSource = "environment variable"
		}
	}

	// 2. Try config file if env var not set or failed
	if sessionSecret == nil && cfg.Session.Secret != "" {
		sessionSecret, err = base64.StdEncoding.DecodeString(cfg.Session.Secret)
		if err != nil {
			log.Warn("failed to decode session secret from config", slog.Any("error", err))
		} else {
			secretSource = "config file"
		}
	}

	// 3. Fall back to random generation (dev mode only)
	if sessionSecret == nil {
		log.Warn("no session secret configured, generating random one (sessions won't persist)")
		sessionSecret = make([]byte, 32)
		if _, err := rand.Read(sessionSecret); err != nil {
			log.Error("failed to generate session secret", slog.Any("error", err))
			os.Exit(1)
		}
		secretSource = "random (temporary)"
	}

	if secretSource != "random (temporary)" {
		log.Info("using session secret (sessions will persist across restarts)", slog.String("source", secretSource))
	}

	// Initialize session manager
	sessionMgr := session.NewManager(sessionSecret)

	// Initialize the upstream token manager. Credential problems are config
	// errors and abort startup rather than surfacing later on the first request.
	httpClient := &http.Client{Timeout: cfg.OpenEMR.Timeout()}
	tokens, err := openemr.NewTokenManager(
		urlutil.TokenEndpoint(cfg.OpenEMR.BaseURL, cfg.OpenEMR.Site),
		cfg.OpenEMR.Credentials(),
		openemr.WithHTTPClient(httpClient),
		openemr.WithRefreshBuffer(cfg.OpenEMR.RefreshBuffer()),
	)
	if err != nil {
		log.Error("invalid OpenEMR configuration", slog.Any("error", err))
		os.Exit(1)
	}

	apiBase := urlutil.APIBase(cfg.OpenEMR.BaseURL, cfg.OpenEMR.Site)
	forwarder, err := openemr.NewForwarder(apiBase, tokens,
		openemr.WithForwarderHTTPClient(httpClient))
	if err != nil {
		log.Error("invalid OpenEMR configuration", slog.Any("error", err))
		os.Exit(1)
	}
	patients := openemr.NewPatientAPI(forwarder)

	// Warm the token cache so the first page load doesn't pay for the grant.
	// An unreachable or misbehaving EMR is not fatal here, the next request
	// fetches again.
	warmCtx, cancel := context.WithTimeout(context.Background(), cfg.OpenEMR.Timeout())
	if _, err := tokens.GetToken(warmCtx, false); err != nil {
		log.Warn("could not obtain initial token, will retry on demand", slog.Any("error", err))
	} else {
		log.Info("obtained initial OpenEMR token")
	}
	cancel()

	// Initialize handlers
	h := handlers.New(tokens, patients, sessionMgr, templates,
		apiBase, urlutil.FHIRBase(cfg.OpenEMR.BaseURL, cfg.OpenEMR.Site), log)

	// Create HTTP router
	router := createRouter(h, cfg)

	// Serve Prometheus metrics on a separate listener so the scrape target
	// never shares the public port
	metricsPort := cfg.Server.MetricsPort
	if metricsPort == 0 {
		metricsPort = cfg.Server.Port + 10
	}
	metricsAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, metricsPort)
	go func() {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		log.Info("starting metrics listener", slog.String("address", metricsAddr))
		if err := http.ListenAndServe(metricsAddr, metricsMux); err != nil {
			log.Error("metrics listener failed", slog.Any("error", err))
		}
	}()

	// Start HTTP server
	addr := cfg.Server.Addr()
	log.Info("starting emrproxy web service", slog.String("address", addr))

	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.OpenEMR.Timeout() + 10*time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		log.Error("failed to start server", slog.Any("error", err))
		os.Exit(1)
	}
}

// createRouter sets up the HTTP router with all routes and middleware
func createRouter(h *handlers.Handler, cfg *config.Config) http.Handler {
	router := mux.NewRouter()

	// Per-route metrics run inside the router so the path label comes from
	// the matched route template, not the raw URL
	router.Use(middleware.Metrics)

	// Static files with version path: /static/{version}/...
	// Strip /static/{version}/ prefix and serve from web/static/
	staticDir := http.Dir("web/static")
	router.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Remove version from path (format: {version}/file.ext)
		// Split path and skip the first segment (version)
		parts := strings.SplitN(r.URL.Path, "/", 2)
		if len(parts) == 2 {
			// Rewrite path without version
			r.URL.Path = "/" + parts[1]
		}
		// Set aggressive cache headers for versioned assets
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		http.FileServer(staticDir).ServeHTTP(w, r)
	})))

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods("GET")

	// Version info endpoint
	router.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"version":"%s"}`, render.Version)
	}).Methods("GET")

	// HTML pages
	router.HandleFunc("/", h.Home).Methods("GET")
	router.HandleFunc("/patients", h.PatientsPage).Methods("GET")
	router.HandleFunc("/patients/new", h.PatientNewPage).Methods("GET")
	router.HandleFunc("/patients", h.PatientCreate).Methods("POST")

	// JSON API for browser clients, behind the CORS allow-list. OPTIONS is
	// routed so preflights reach the middleware.
	api := router.PathPrefix("/api").Subrouter()
	api.Use(middleware.CORS(cfg.CORS))
	api.HandleFunc("/patients", h.APIPatientsList).Methods("GET", "OPTIONS")
	api.HandleFunc("/patients", h.APIPatientCreate).Methods("POST", "OPTIONS")

	// Request IDs are assigned outermost so the access log can carry them
	return middleware.RequestID(middleware.LogRequest(router))
}
