package ledger

import "errors"

var (
	// ErrNotFound means the queried address has no account on the ledger.
	ErrNotFound = errors.New("ledger: account not found")
	// ErrUpstream means the RPC node failed or returned a malformed reply.
	ErrUpstream = errors.New("ledger: upstream failure")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
func IsUpstream(err error) bool { return errors.Is(err, ErrUpstream) }
