package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"dustchain/cmd/internal/passphrase"
	"dustchain/core/types"
	"dustchain/crypto"
)

const (
	rpcURLEnv     = "DUST_RPC_URL"
	rpcTokenEnv   = "DUST_RPC_TOKEN"
	walletPassEnv = "DUST_WALLET_PASS"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type cli struct {
	client *rpcClient
	pass   *passphrase.Source
	stdout io.Writer
	stderr io.Writer
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("dust-cli", flag.ContinueOnError)
	fs.SetOutput(stderr)
	endpoint := fs.String("rpc", envOr(rpcURLEnv, "http://127.0.0.1:8545"), "node JSON-RPC endpoint")
	token := fs.String("token", os.Getenv(rpcTokenEnv), "bearer token for oracle and admin methods")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	rest := fs.Args()
	if len(rest) == 0 {
		printUsage(stderr)
		return 1
	}
	c := &cli{
		client: newRPCClient(*endpoint, *token),
		pass:   passphrase.NewSource(walletPassEnv),
		stdout: stdout,
		stderr: stderr,
	}
	var err error
	switch rest[0] {
	case "generate-key":
		err = c.generateKey(rest[1:])
	case "address":
		err = c.address(rest[1:])
	case "balance":
		err = c.balance(rest[1:])
	case "swap":
		err = c.swap(rest[1:])
	case "call":
		err = c.submit(rest[1:])
	case "query":
		err = c.query(rest[1:])
	default:
		fmt.Fprintf(stderr, "Unknown command %q\n", rest[0])
		printUsage(stderr)
		return 1
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func (c *cli) generateKey(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: dust-cli generate-key <keystore>")
	}
	if _, err := os.Stat(args[0]); err == nil {
		return fmt.Errorf("%s already exists", args[0])
	}
	pass, err := c.pass.Get()
	if err != nil {
		return err
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return err
	}
	if err := crypto.SaveToKeystore(args[0], key, pass); err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, key.PubKey().Address().String())
	return nil
}

func (c *cli) loadKey(path string) (*crypto.PrivateKey, error) {
	pass, err := c.pass.Get()
	if err != nil {
		return nil, err
	}
	return crypto.LoadFromKeystore(path, pass)
}

func (c *cli) address(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: dust-cli address <keystore>")
	}
	key, err := c.loadKey(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, key.PubKey().Address().String())
	return nil
}

func (c *cli) balance(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: dust-cli balance <address>")
	}
	result, err := c.client.call("dust_getBalance", map[string]string{"address": args[0]})
	if err != nil {
		return err
	}
	var bal struct {
		Address string `json:"address"`
		Free    struct {
			Decimal string `json:"decimal"`
		} `json:"free"`
		Held struct {
			Decimal string `json:"decimal"`
		} `json:"held"`
		Nonce uint64 `json:"nonce"`
	}
	if err := json.Unmarshal(result, &bal); err != nil {
		return fmt.Errorf("decode balance: %w", err)
	}
	fmt.Fprintf(c.stdout, "Address: %s\nFree:    %s DUST\nHeld:    %s DUST\nNonce:   %d\n",
		bal.Address, bal.Free.Decimal, bal.Held.Decimal, bal.Nonce)
	return nil
}

func (c *cli) swap(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: dust-cli swap <get <id>|pending [limit]>")
	}
	switch args[0] {
	case "get":
		if len(args) != 2 {
			return fmt.Errorf("usage: dust-cli swap get <id>")
		}
		id, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid swap id: %w", err)
		}
		return c.print(c.client.call("swap_get", map[string]uint64{"id": id}))
	case "pending":
		limit := 25
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid limit: %w", err)
			}
			limit = n
		}
		return c.print(c.client.call("swap_pendingVerifications", map[string]int{"limit": limit}))
	default:
		return fmt.Errorf("unknown swap subcommand %q", args[0])
	}
}

// submit signs name with the keystore key using the sender's next nonce and
// queues it on the node.
func (c *cli) submit(args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return fmt.Errorf("usage: dust-cli call <keystore> <name> [argsJSON]")
	}
	rawArgs := json.RawMessage("{}")
	if len(args) == 3 {
		if !json.Valid([]byte(args[2])) {
			return fmt.Errorf("call arguments must be valid JSON")
		}
		rawArgs = json.RawMessage(args[2])
	}
	key, err := c.loadKey(args[0])
	if err != nil {
		return err
	}
	sender := key.PubKey().Address().String()
	result, err := c.client.call("dust_getBalance", map[string]string{"address": sender})
	if err != nil {
		return fmt.Errorf("fetch nonce: %w", err)
	}
	var account struct {
		Nonce uint64 `json:"nonce"`
	}
	if err := json.Unmarshal(result, &account); err != nil {
		return fmt.Errorf("decode nonce: %w", err)
	}
	call := &types.Call{Name: args[1], Nonce: account.Nonce, Args: rawArgs}
	if err := call.Sign(key.PrivateKey); err != nil {
		return fmt.Errorf("sign call: %w", err)
	}
	return c.print(c.client.call("dust_submitCall", call))
}

func (c *cli) query(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: dust-cli query <method> <paramsJSON>")
	}
	if !json.Valid([]byte(args[1])) {
		return fmt.Errorf("params must be valid JSON")
	}
	return c.print(c.client.call(args[0], json.RawMessage(args[1])))
}

func (c *cli) print(result json.RawMessage, err error) error {
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, result, "", "  "); err != nil {
		fmt.Fprintln(c.stdout, string(result))
		return nil
	}
	fmt.Fprintln(c.stdout, buf.String())
	return nil
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: dust-cli [--rpc URL] [--token JWT] <command> [arguments]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Keystore passphrases are read from "+walletPassEnv+" or prompted for.")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  generate-key <keystore>               - Create a new encrypted account key")
	fmt.Fprintln(w, "  address <keystore>                    - Print the account address of a keystore")
	fmt.Fprintln(w, "  balance <address>                     - Show free and held DUST and the nonce")
	fmt.Fprintln(w, "  swap get <id>                         - Show a swap, live or archived")
	fmt.Fprintln(w, "  swap pending [limit]                  - List swaps awaiting verification")
	fmt.Fprintln(w, "  call <keystore> <name> [argsJSON]     - Sign and submit a call, e.g. swap.maker_swap")
	fmt.Fprintln(w, "  query <method> <paramsJSON>           - Send any JSON-RPC method")
}
