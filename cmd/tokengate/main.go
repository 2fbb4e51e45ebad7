// tokengate is an inspection CLI for the gateway: it decodes raw ledger
// account blobs, resolves canonical masters and entitlements against a
// live RPC node, and drives the challenge login protocol from the
// command line.
package main

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gagliardetto/solana-go"

	"xdao.co/tokengate/accounts"
	"xdao.co/tokengate/assets"
	"xdao.co/tokengate/entitle"
	"xdao.co/tokengate/ledger"
	"xdao.co/tokengate/wallet"
)

const defaultRPC = "https://api.mainnet-beta.solana.com"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "decode":
		return cmdDecode(args[1:], out, errOut)
	case "subscription":
		return cmdSubscription(args[1:], out, errOut)
	case "resolve":
		return cmdResolve(args[1:], out, errOut)
	case "resource":
		return cmdResource(args[1:], out, errOut)
	case "entitle":
		return cmdEntitle(args[1:], out, errOut)
	case "key":
		return cmdKey(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "tokengate: content gateway inspection CLI")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  tokengate decode [--b64] [--owner <program>] <file>")
	fmt.Fprintln(w, "  tokengate subscription [--b64] <file>")
	fmt.Fprintln(w, "  tokengate resolve --mint <address> [--rpc <url>]")
	fmt.Fprintln(w, "  tokengate resource --key <address> [--rpc <url>]")
	fmt.Fprintln(w, "  tokengate entitle --identity <address> --key <address> [--rpc <url>]")
	fmt.Fprintln(w, "  tokengate key gen [--seed-hex <64hex>] [--name <wallet>] [--store <dir>]")
	fmt.Fprintln(w, "  tokengate key sign --challenge <nonce> [--seed-hex|--key-file|--name]")
	fmt.Fprintln(w, "  tokengate key list [--store <dir>]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - decode reads a raw account blob (or base64 text with --b64)")
	fmt.Fprintln(w, "  - key sign prints the base64 answer for a login challenge")
}

func readBlob(path string, b64 bool) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !b64 {
		return data, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(string(data))
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	return decoded, nil
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func cmdDecode(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("decode", flag.ContinueOnError)
	fs.SetOutput(errOut)
	b64 := fs.Bool("b64", false, "input file is base64 text")
	owner := fs.String("owner", accounts.MetadataProgram.String(), "owning program of the account")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: tokengate decode [--b64] [--owner <program>] <file>")
		return 2
	}
	data, err := readBlob(fs.Arg(0), *b64)
	if err != nil {
		fmt.Fprintf(errOut, "read account: %v\n", err)
		return 1
	}
	program, err := solana.PublicKeyFromBase58(*owner)
	if err != nil {
		fmt.Fprintf(errOut, "invalid --owner: %v\n", err)
		return 2
	}
	record, err := accounts.NewDecoder(program).Decode(data, *owner)
	if err != nil {
		fmt.Fprintf(errOut, "decode: %v\n", err)
		return 1
	}
	_ = printJSON(out, map[string]any{
		"tag":    record.RecordTag().String(),
		"record": record,
	})
	return 0
}

func cmdSubscription(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("subscription", flag.ContinueOnError)
	fs.SetOutput(errOut)
	b64 := fs.Bool("b64", false, "input file is base64 text")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: tokengate subscription [--b64] <file>")
		return 2
	}
	data, err := readBlob(fs.Arg(0), *b64)
	if err != nil {
		fmt.Fprintf(errOut, "read account: %v\n", err)
		return 1
	}
	sub, err := accounts.DefaultDecoder().DecodeSubscription(data)
	if err != nil {
		fmt.Fprintf(errOut, "decode: %v\n", err)
		return 1
	}
	_ = printJSON(out, sub)
	return 0
}

func rpcClient(endpoint string) *ledger.RPCClient {
	return ledger.NewRPCClient(endpoint, ledger.WithTimeout(30*time.Second))
}

func cmdResolve(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("resolve", flag.ContinueOnError)
	fs.SetOutput(errOut)
	mint := fs.String("mint", "", "mint address to resolve")
	rpc := fs.String("rpc", defaultRPC, "ledger RPC endpoint")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *mint == "" {
		fmt.Fprintln(errOut, "usage: tokengate resolve --mint <address> [--rpc <url>]")
		return 2
	}
	resolver := assets.NewResolver(rpcClient(*rpc), accounts.DefaultDecoder())
	master, err := resolver.CanonicalMaster(context.Background(), *mint)
	if err != nil {
		fmt.Fprintf(errOut, "resolve: %v\n", err)
		return 1
	}
	fmt.Fprintln(out, master)
	return 0
}

func cmdResource(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("resource", flag.ContinueOnError)
	fs.SetOutput(errOut)
	key := fs.String("key", "", "metadata account address")
	rpc := fs.String("rpc", defaultRPC, "ledger RPC endpoint")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *key == "" {
		fmt.Fprintln(errOut, "usage: tokengate resource --key <address> [--rpc <url>]")
		return 2
	}
	res, err := entitle.NewResolver(rpcClient(*rpc)).ResourceInfo(context.Background(), *key)
	if err != nil {
		fmt.Fprintf(errOut, "resource: %v\n", err)
		return 1
	}
	_ = printJSON(out, res)
	return 0
}

func cmdEntitle(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("entitle", flag.ContinueOnError)
	fs.SetOutput(errOut)
	identity := fs.String("identity", "", "wallet address")
	key := fs.String("key", "", "metadata account address")
	rpc := fs.String("rpc", defaultRPC, "ledger RPC endpoint")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *identity == "" || *key == "" {
		fmt.Fprintln(errOut, "usage: tokengate entitle --identity <address> --key <address> [--rpc <url>]")
		return 2
	}
	ent, err := entitle.NewResolver(rpcClient(*rpc)).Resolve(context.Background(), *identity, *key)
	if err != nil {
		fmt.Fprintf(errOut, "entitle: %v\n", err)
		return 1
	}
	_ = printJSON(out, ent)
	return 0
}

func cmdKey(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: tokengate key <gen|sign|list> ...")
		return 2
	}
	switch args[0] {
	case "gen":
		fs := flag.NewFlagSet("key gen", flag.ContinueOnError)
		fs.SetOutput(errOut)
		seedHex := fs.String("seed-hex", "", "32-byte ed25519 seed (64 hex chars)")
		name := fs.String("name", "", "store the wallet under this name")
		storeDir := fs.String("store", "", "keystore directory (default ~/.tokengate/keys)")
		overwrite := fs.Bool("overwrite", false, "replace an existing stored wallet")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		var seed []byte
		if *seedHex != "" {
			var err error
			seed, err = wallet.ParseSeedHex(*seedHex)
			if err != nil {
				fmt.Fprintf(errOut, "invalid --seed-hex: %v\n", err)
				return 2
			}
		}
		var kp *wallet.Keypair
		var err error
		if *name != "" {
			store, serr := wallet.Open(*storeDir)
			if serr != nil {
				fmt.Fprintf(errOut, "open keystore: %v\n", serr)
				return 1
			}
			kp, err = store.Create(*name, seed, *overwrite)
		} else if seed != nil {
			kp, err = wallet.FromSeed(seed)
		} else {
			kp, err = wallet.Generate(nil)
		}
		if err != nil {
			fmt.Fprintf(errOut, "generate key: %v\n", err)
			return 1
		}
		fmt.Fprintf(out, "address=%s\n", kp.Address())
		fmt.Fprintf(out, "seed-hex=%s\n", hex.EncodeToString(kp.Seed()))
		return 0
	case "sign":
		fs := flag.NewFlagSet("key sign", flag.ContinueOnError)
		fs.SetOutput(errOut)
		seedHex := fs.String("seed-hex", "", "32-byte ed25519 seed (64 hex chars)")
		keyFile := fs.String("key-file", "", "path to a hex seed file")
		name := fs.String("name", "", "stored wallet name")
		storeDir := fs.String("store", "", "keystore directory (default ~/.tokengate/keys)")
		nonce := fs.String("challenge", "", "challenge nonce to sign")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if *nonce == "" {
			fmt.Fprintln(errOut, "usage: tokengate key sign --challenge <nonce> [--seed-hex|--key-file|--name]")
			return 2
		}
		store, err := wallet.Open(*storeDir)
		if err != nil {
			fmt.Fprintf(errOut, "open keystore: %v\n", err)
			return 1
		}
		kp, err := store.LoadSigner(*seedHex, *keyFile, *name)
		if err != nil {
			fmt.Fprintf(errOut, "load signer: %v\n", err)
			return 1
		}
		fmt.Fprintln(out, kp.SignChallenge(*nonce))
		return 0
	case "list":
		fs := flag.NewFlagSet("key list", flag.ContinueOnError)
		fs.SetOutput(errOut)
		storeDir := fs.String("store", "", "keystore directory (default ~/.tokengate/keys)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		store, err := wallet.Open(*storeDir)
		if err != nil {
			fmt.Fprintf(errOut, "open keystore: %v\n", err)
			return 1
		}
		names, err := store.List()
		if err != nil {
			fmt.Fprintf(errOut, "list wallets: %v\n", err)
			return 1
		}
		for _, name := range names {
			kp, err := store.Load(name)
			if err != nil {
				fmt.Fprintf(errOut, "load %s: %v\n", name, err)
				return 1
			}
			fmt.Fprintf(out, "%s\t%s\n", name, kp.Address())
		}
		return 0
	default:
		fmt.Fprintf(errOut, "unknown key subcommand: %s\n", args[0])
		return 2
	}
}
