// Package gateconfig loads the gateway's JSON configuration.
//
// Example:
//
//	{
//	  "issuer": "https://cognito-idp.us-east-1.amazonaws.com/us-east-1_abc123",
//	  "jwks_path": "/etc/tokengate/jwks.json",
//	  "rpc_endpoint": "https://api.mainnet-beta.solana.com",
//	  "rpc_retries": 0,
//	  "store": {"backend": "memory"}
//	}
package gateconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
)

// Config describes one gateway process.
type Config struct {
	// Issuer is the expected iss claim of access tokens.
	Issuer string `json:"issuer"`
	// JWKSPath points at the JSON Web Key Set used to build the
	// process-wide verification key cache at startup.
	JWKSPath string `json:"jwks_path"`
	// RPCEndpoint is the ledger JSON-RPC node.
	RPCEndpoint string `json:"rpc_endpoint"`
	// RPCRetries bounds ledger RPC retries. Zero means no retry, which is
	// the correct setting for the authorization path.
	RPCRetries int `json:"rpc_retries,omitempty"`
	// Store selects and configures the persistence backend.
	Store StoreConfig `json:"store"`
	// ListenAddr is the HTTP listen address. Defaults to ":8080".
	ListenAddr string `json:"listen_addr,omitempty"`
}

// StoreConfig selects a storage backend.
//
// Backend values:
// - "memory" (default): in-process store, data lost on restart
// - "postgres": DSN required
// - "grpc": Target required, visibility records only
type StoreConfig struct {
	Backend string `json:"backend"`
	DSN     string `json:"dsn,omitempty"`
	Target  string `json:"target,omitempty"`
}

func LoadFile(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, errors.New("gateconfig: empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Issuer == "" {
		return errors.New("gateconfig: issuer is required")
	}
	if u, err := url.Parse(c.Issuer); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("gateconfig: issuer %q is not an absolute URL", c.Issuer)
	}
	if c.JWKSPath == "" {
		return errors.New("gateconfig: jwks_path is required")
	}
	if c.RPCEndpoint == "" {
		return errors.New("gateconfig: rpc_endpoint is required")
	}
	if u, err := url.Parse(c.RPCEndpoint); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("gateconfig: rpc_endpoint %q is not an absolute URL", c.RPCEndpoint)
	}
	if c.RPCRetries < 0 {
		return errors.New("gateconfig: rpc_retries must not be negative")
	}
	switch c.Store.Backend {
	case "", "memory":
	case "postgres":
		if c.Store.DSN == "" {
			return errors.New("gateconfig: postgres store requires dsn")
		}
	case "grpc":
		if c.Store.Target == "" {
			return errors.New("gateconfig: grpc store requires target")
		}
	default:
		return fmt.Errorf("gateconfig: unknown store backend %q", c.Store.Backend)
	}
	return nil
}
