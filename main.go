// Command mcpgen turns an OpenAPI 3.x specification into a running MCP
// tool server. Every documented operation becomes an invokable,
// schema-validated tool, and outbound calls carry the credentials of the
// configured authentication strategy.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/apiforge/mcpgen/pkg/auth"
	"github.com/apiforge/mcpgen/pkg/config"
	"github.com/apiforge/mcpgen/pkg/invoke"
	"github.com/apiforge/mcpgen/pkg/server"
	"github.com/apiforge/mcpgen/pkg/source"
	"github.com/apiforge/mcpgen/pkg/spec"
	"github.com/apiforge/mcpgen/pkg/store"
	"github.com/apiforge/mcpgen/pkg/tools"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	specFlag := flag.String("spec", "", "path or URL of the OpenAPI specification")
	baseURL := flag.String("base-url", "", "override base URL for API calls")
	host := flag.String("host", "", "host to bind the MCP server to")
	port := flag.Int("port", 0, "port to bind the MCP server to")
	name := flag.String("name", "", "name of the MCP server")
	authType := flag.String("auth-type", "", "auth strategy: basic, bearer, api_key, or oauth2 (default: spec-declared)")
	useHTTP := flag.Bool("http", false, "serve over streamable HTTP instead of stdio")
	useStdio := flag.Bool("stdio", false, "serve over stdio (the default)")
	summary := flag.Bool("summary", false, "print the synthesized tool set and exit")
	flag.Parse()

	if *useHTTP && *useStdio {
		log.Fatalf("--http and --stdio are mutually exclusive")
	}

	if *specFlag != "" {
		cfg.SpecLocator = *specFlag
	}
	if *baseURL != "" {
		cfg.BaseURL = *baseURL
	}
	if *host != "" {
		cfg.Host = *host
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *name != "" {
		cfg.ServerName = *name
	}
	if *authType != "" {
		cfg.AuthType = *authType
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if cfg.DatabaseURL != "" && cfg.SpecLocator == "" {
		runCatalogMode(cfg)
		return
	}
	runSingleSpec(cfg, *useHTTP, *summary)
}

// generate runs the one-shot pipeline: raw text to a registered tool
// server. Any failure aborts startup; a server is never partially
// assembled.
func generate(cfg *config.Config, raw []byte, formatHint string) (*server.Handle, []tools.Descriptor, error) {
	doc, err := spec.Normalize(raw, formatHint)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("[INFO] Normalized %q: %d operations", doc.Title, len(doc.Operations))

	authCtx, err := auth.Resolve(cfg.AuthOverride(), doc.Security, cfg.Credentials())
	if err != nil {
		return nil, nil, err
	}
	if authCtx.Type != spec.SchemeNone {
		log.Printf("[INFO] Outbound calls use %s authentication", authCtx.Type)
	}

	descs, err := tools.Synthesize(doc, authCtx, cfg.BaseURL)
	if err != nil {
		return nil, nil, err
	}

	serverName := cfg.ServerName
	if serverName == "" && doc.Title != "" {
		serverName = doc.Title
	}
	inv := invoke.New(invoke.WithTimeout(cfg.RequestTimeout))
	handle, err := server.Assemble(server.Config{
		Name:    serverName,
		Version: doc.Version,
		Host:    cfg.Host,
		Port:    cfg.Port,
	}, descs, inv)
	if err != nil {
		return nil, nil, err
	}
	return handle, descs, nil
}

func runSingleSpec(cfg *config.Config, useHTTP, summary bool) {
	fetcher := source.NewFetcher()
	raw, hint, err := fetcher.Fetch(context.Background(), cfg.SpecLocator)
	if err != nil {
		log.Fatalf("Failed to fetch specification: %v", err)
	}

	handle, descs, err := generate(cfg, raw, hint)
	if err != nil {
		log.Fatalf("Generation failed: %v", err)
	}

	if summary {
		tools.PrintSummary(descs)
		return
	}

	if useHTTP {
		log.Printf("Starting MCP server %q on %s", handle.Name(), handle.Addr())
		if err := handle.ServeHTTP("/mcp"); err != nil {
			log.Fatalf("HTTP server error: %v", err)
		}
		return
	}
	if err := handle.ServeStdio(); err != nil {
		log.Fatalf("Stdio server error: %v", err)
	}
}

// catalogState holds the swappable mux for catalog mode so reloads replace
// the whole routing table atomically.
type catalogState struct {
	mu  sync.RWMutex
	mux *http.ServeMux
}

func (cs *catalogState) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cs.mu.RLock()
	mux := cs.mux
	cs.mu.RUnlock()
	if mux == nil {
		http.Error(w, "Server not ready", http.StatusServiceUnavailable)
		return
	}
	mux.ServeHTTP(w, r)
}

func (cs *catalogState) swap(mux *http.ServeMux) {
	cs.mu.Lock()
	cs.mux = mux
	cs.mu.Unlock()
}

func runCatalogMode(cfg *config.Config) {
	catalog, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open spec catalog: %v", err)
	}
	defer catalog.Close()

	state := &catalogState{}

	// Guards lastHash against concurrent /reload requests and the poller.
	var reloadMu sync.Mutex
	var lastHash string

	var reload func() ([]string, error)
	reload = func() ([]string, error) {
		reloadMu.Lock()
		defer reloadMu.Unlock()
		records, err := catalog.GetActive()
		if err != nil {
			return nil, fmt.Errorf("failed to load specs from catalog: %w", err)
		}
		mounted, mux, err := mountRecords(cfg, records, reload)
		if err != nil {
			return nil, err
		}
		state.swap(mux)
		lastHash = recordsHash(records)
		return mounted, nil
	}

	mounted, err := reload()
	if err != nil {
		log.Fatalf("Initial catalog load failed: %v", err)
	}
	log.Printf("Initial load complete. Mounted APIs: %v", mounted)

	if !cfg.DisablePolling {
		currentHash := func() string {
			reloadMu.Lock()
			defer reloadMu.Unlock()
			return lastHash
		}
		startPolling(cfg.PollingInterval, catalog, currentHash, reload)
	}

	srv := &http.Server{
		Addr:         cfg.Host + ":" + fmt.Sprint(cfg.Port),
		Handler:      state,
		ReadTimeout:  240 * time.Second,
		WriteTimeout: 240 * time.Second,
	}

	log.Printf("Starting catalog-driven server on %s", srv.Addr)
	log.Printf("Available endpoints:")
	log.Printf("  GET  /health  - Health check")
	log.Printf("  POST /reload  - Reload specs from the catalog")
	for _, api := range mounted {
		log.Printf("  *    /%s", api)
	}

	if err := serveWithGracefulShutdown(srv); err != nil {
		log.Fatalf("HTTP server error: %v", err)
	}
}

// mountRecords generates one tool server per catalog record and mounts it
// at the record's endpoint path. A record that fails generation is skipped
// with a warning so one broken spec does not take down the rest.
func mountRecords(cfg *config.Config, records []*store.SpecRecord, reloadFunc func() ([]string, error)) ([]string, *http.ServeMux, error) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", server.HandleHealth())
	mux.HandleFunc("/reload", server.HandleReload(reloadFunc))

	var mounted []string
	for _, rec := range records {
		endpoint := strings.Trim(rec.EndpointPath, "/")
		recCfg := catalogRecordConfig(cfg, rec)

		hint := spec.FormatAuto
		if rec.FileFormat != nil {
			hint = *rec.FileFormat
		}
		handle, _, err := generate(recCfg, []byte(rec.SpecContent), hint)
		if err != nil {
			log.Printf("[WARN] Skipping spec %q: %v", rec.Name, err)
			continue
		}

		handler := handle.Handler("/" + endpoint)
		mux.Handle("/"+endpoint, handler)
		mux.Handle("/"+endpoint+"/", handler)
		log.Printf("Mounted %q at /%s", handle.Name(), endpoint)
		mounted = append(mounted, endpoint)
	}
	return mounted, mux, nil
}

// catalogRecordConfig merges a record's stored auth material into the
// process configuration. The record's credential wins over the
// environment's for its own endpoint.
func catalogRecordConfig(cfg *config.Config, rec *store.SpecRecord) *config.Config {
	recCfg := *cfg
	recCfg.ServerName = rec.Name
	if rec.AuthType == nil || rec.Credential == nil || *rec.Credential == "" {
		return &recCfg
	}

	recCfg.AuthType = *rec.AuthType
	switch spec.SchemeType(*rec.AuthType) {
	case spec.SchemeBearer:
		recCfg.BearerToken = *rec.Credential
	case spec.SchemeAPIKey:
		recCfg.APIKey = *rec.Credential
	case spec.SchemeBasic:
		// Stored as user:pass.
		if user, pass, ok := strings.Cut(*rec.Credential, ":"); ok {
			recCfg.BasicUser = user
			recCfg.BasicPass = pass
		}
	}
	return &recCfg
}

// recordsHash fingerprints the active catalog rows for change detection.
func recordsHash(records []*store.SpecRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d", len(records))
	for _, rec := range records {
		fmt.Fprintf(&b, "-%d-%s-%d", rec.ID, rec.Name, len(rec.SpecContent))
		if rec.Credential != nil {
			fmt.Fprintf(&b, "-%d", len(*rec.Credential))
		}
		if rec.UpdatedAt != nil {
			fmt.Fprintf(&b, "-%d", rec.UpdatedAt.UnixNano())
		}
	}
	return b.String()
}

func startPolling(interval time.Duration, catalog *store.Store, currentHash func() string, reload func() ([]string, error)) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	log.Printf("Catalog polling enabled (every %s)", interval)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			records, err := catalog.GetActive()
			if err != nil {
				log.Printf("Catalog polling error: %v", err)
				continue
			}
			if recordsHash(records) == currentHash() {
				continue
			}
			log.Printf("Catalog changes detected, reloading specs...")
			mounted, err := reload()
			if err != nil {
				log.Printf("Failed to reload specs during polling: %v", err)
				continue
			}
			log.Printf("Automatically reloaded %d API specs: %v", len(mounted), mounted)
		}
	}()
}

func serveWithGracefulShutdown(srv *http.Server) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		log.Printf("Received signal %v, initiating graceful shutdown...", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		log.Printf("Server shut down gracefully")
		return nil
	}
}
