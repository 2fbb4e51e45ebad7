package ledger

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/hashicorp/go-retryablehttp"
)

// RPCClient talks JSON-RPC to a ledger node over HTTP.
//
// By default it never retries: the authorization path treats any fetch
// failure as a denial, and a retry there only adds latency to a request
// that will be denied anyway. The display/listing path constructs its
// client with WithRetries.
type RPCClient struct {
	endpoint     string
	http         *http.Client
	tokenProgram solana.PublicKey
}

// Option configures an RPCClient.
type Option func(*options)

type options struct {
	retries      int
	timeout      time.Duration
	tokenProgram solana.PublicKey
}

// WithRetries allows up to n retries of failed requests. Only the
// non-authorization listing path should use this.
func WithRetries(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.retries = n
		}
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithTokenProgram overrides the token program used for holdings queries.
func WithTokenProgram(program solana.PublicKey) Option {
	return func(o *options) { o.tokenProgram = program }
}

// NewRPCClient builds a client for the given JSON-RPC endpoint.
func NewRPCClient(endpoint string, opts ...Option) *RPCClient {
	o := options{
		timeout:      10 * time.Second,
		tokenProgram: solana.TokenProgramID,
	}
	for _, opt := range opts {
		opt(&o)
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = o.retries
	rc.RetryWaitMin = 100 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.Logger = nil
	rc.HTTPClient.Timeout = o.timeout

	return &RPCClient{
		endpoint:     endpoint,
		http:         rc.StandardClient(),
		tokenProgram: o.tokenProgram,
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcEnvelope struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *RPCClient) call(ctx context.Context, method string, params []any, result any) error {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("%w: marshal %s request: %v", ErrUpstream, method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: build %s request: %v", ErrUpstream, method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUpstream, method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s: http status %d", ErrUpstream, method, resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %s: read response: %v", ErrUpstream, method, err)
	}

	var env rpcEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%w: %s: malformed response: %v", ErrUpstream, method, err)
	}
	if env.Error != nil {
		return fmt.Errorf("%w: %s: node error %d: %s", ErrUpstream, method, env.Error.Code, env.Error.Message)
	}
	if err := json.Unmarshal(env.Result, result); err != nil {
		return fmt.Errorf("%w: %s: malformed result: %v", ErrUpstream, method, err)
	}
	return nil
}

func (c *RPCClient) AccountInfo(ctx context.Context, address string) (*AccountInfo, error) {
	var result struct {
		Value *struct {
			Data  []string `json:"data"`
			Owner string   `json:"owner"`
		} `json:"value"`
	}
	params := []any{address, map[string]any{"encoding": "base64"}}
	if err := c.call(ctx, "getAccountInfo", params, &result); err != nil {
		return nil, err
	}
	if result.Value == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, address)
	}
	if len(result.Value.Data) < 2 || result.Value.Data[1] != "base64" {
		return nil, fmt.Errorf("%w: getAccountInfo: unexpected data encoding", ErrUpstream)
	}
	data, err := base64.StdEncoding.DecodeString(result.Value.Data[0])
	if err != nil {
		return nil, fmt.Errorf("%w: getAccountInfo: bad base64 payload: %v", ErrUpstream, err)
	}
	return &AccountInfo{Owner: result.Value.Owner, Data: data}, nil
}

func (c *RPCClient) MintAuthority(ctx context.Context, mint string) (string, error) {
	var result struct {
		Value *struct {
			Data struct {
				Parsed struct {
					Info struct {
						MintAuthority string `json:"mintAuthority"`
					} `json:"info"`
				} `json:"parsed"`
			} `json:"data"`
		} `json:"value"`
	}
	params := []any{mint, map[string]any{"encoding": "jsonParsed"}}
	if err := c.call(ctx, "getAccountInfo", params, &result); err != nil {
		return "", err
	}
	if result.Value == nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, mint)
	}
	auth := result.Value.Data.Parsed.Info.MintAuthority
	if auth == "" {
		return "", fmt.Errorf("%w: mint %s has no authority", ErrNotFound, mint)
	}
	return auth, nil
}

func (c *RPCClient) TokenAccountsByOwner(ctx context.Context, owner string) ([]TokenBalance, error) {
	var result struct {
		Value []struct {
			Account struct {
				Data struct {
					Parsed struct {
						Info struct {
							Mint        string `json:"mint"`
							TokenAmount struct {
								Amount string `json:"amount"`
							} `json:"tokenAmount"`
						} `json:"info"`
					} `json:"parsed"`
				} `json:"data"`
			} `json:"account"`
		} `json:"value"`
	}
	params := []any{
		owner,
		map[string]any{"programId": c.tokenProgram.String()},
		map[string]any{"encoding": "jsonParsed"},
	}
	if err := c.call(ctx, "getTokenAccountsByOwner", params, &result); err != nil {
		return nil, err
	}

	out := make([]TokenBalance, 0, len(result.Value))
	for _, entry := range result.Value {
		info := entry.Account.Data.Parsed.Info
		amount, err := strconv.ParseUint(info.TokenAmount.Amount, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: getTokenAccountsByOwner: bad amount %q", ErrUpstream, info.TokenAmount.Amount)
		}
		out = append(out, TokenBalance{Mint: info.Mint, Amount: amount})
	}
	return out, nil
}
