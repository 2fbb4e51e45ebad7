// gatestored serves the visibility store over gRPC so that several
// gatekeeper processes can share one backend.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"

	"google.golang.org/grpc"

	"xdao.co/tokengate/storage"
	"xdao.co/tokengate/storage/grpcstore"
	"xdao.co/tokengate/storage/memory"
	"xdao.co/tokengate/storage/postgres"
)

func main() {
	fs := flag.NewFlagSet("gatestored", flag.ExitOnError)
	listen := fs.String("listen", "127.0.0.1:7878", "listen address")
	backend := fs.String("backend", "memory", "store backend (memory|postgres)")
	dsn := fs.String("dsn", "", "postgres DSN (backend=postgres)")

	_ = fs.Parse(os.Args[1:])

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	var store storage.VisibilityStore
	switch *backend {
	case "memory":
		store = memory.New()
	case "postgres":
		pg, err := postgres.Connect(*dsn, logger)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		defer pg.Close()
		store = pg
	default:
		fmt.Fprintf(os.Stderr, "unknown backend %q\n", *backend)
		os.Exit(2)
	}

	lis, err := net.Listen("tcp", *listen)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer lis.Close()

	s := grpc.NewServer()
	grpcstore.RegisterVisibilityServer(s, &grpcstore.Server{Store: store})

	logger.Info("gatestored_listening", "addr", lis.Addr().String(), "backend", *backend)
	if err := s.Serve(lis); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
