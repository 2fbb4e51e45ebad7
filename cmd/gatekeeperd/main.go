// gatekeeperd is the content gateway daemon. It authorizes edge
// requests against on-ledger entitlements, runs the challenge-response
// login rounds, and serves community feeds and creator profiles.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"xdao.co/tokengate/bearer"
	"xdao.co/tokengate/edge"
	"xdao.co/tokengate/entitle"
	"xdao.co/tokengate/feed"
	"xdao.co/tokengate/gateconfig"
	"xdao.co/tokengate/ledger"
	"xdao.co/tokengate/storage"
	"xdao.co/tokengate/storage/grpcstore"
	"xdao.co/tokengate/storage/memory"
	"xdao.co/tokengate/storage/postgres"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("gatekeeperd", flag.ExitOnError)
	configPath := fs.String("config", "gate.json", "path to gateway config")
	_ = fs.Parse(args)

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	cfg, err := gateconfig.LoadFile(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	jwks, err := os.ReadFile(cfg.JWKSPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read jwks: %v\n", err)
		return 2
	}
	verifier, err := bearer.NewVerifier(cfg.Issuer, jwks)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	client := ledger.NewRPCClient(cfg.RPCEndpoint, ledger.WithRetries(cfg.RPCRetries))
	entitlements := entitle.NewResolver(client)

	store, closeStore, err := openStore(cfg.Store, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if closeStore != nil {
		defer func() { _ = closeStore() }()
	}

	authorizer := edge.NewAuthorizer(verifier, entitlements, store, logger)

	mux := http.NewServeMux()
	registerAuthRoutes(mux, logger)
	registerEdgeRoute(mux, authorizer, logger)

	// Post and creator routes need the full store. The grpc backend only
	// replicates visibility records, so the feed falls back to a local
	// in-memory store in that configuration.
	full, ok := store.(storage.Store)
	if !ok {
		full = memory.New()
		logger.Warn("feed_store_fallback", "backend", cfg.Store.Backend)
	}
	feedHandler := feed.NewHandler(feed.NewService(full, entitlements, logger), verifier, logger)
	feedHandler.Register(mux)

	addr := cfg.ListenAddr
	if addr == "" {
		addr = ":8080"
	}
	logger.Info("gatekeeperd_listening", "addr", addr, "store", cfg.Store.Backend)
	if err := http.ListenAndServe(addr, feed.WithCORS(mux)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func openStore(cfg gateconfig.StoreConfig, logger *slog.Logger) (storage.VisibilityStore, func() error, error) {
	switch cfg.Backend {
	case "", "memory":
		return memory.New(), nil, nil
	case "postgres":
		pg, err := postgres.Connect(cfg.DSN, logger)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	case "grpc":
		client, err := grpcstore.Dial(cfg.Target, grpcstore.DialOptions{})
		if err != nil {
			return nil, nil, err
		}
		return client, client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
