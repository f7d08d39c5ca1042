// Command demo-cli provides tools for interacting with a running engine.
//
// # Commands
//
// keygen: Generate an ed25519 keypair for an owner, provider or oracle.
//
//	demo-cli keygen
//
// add-provider: Grant the provider role (owner key required).
//
//	demo-cli add-provider --engine=http://127.0.0.1:8080 --key=<hex> --provider=<address>
//
// open-batch / close-batch: Drive the batch lifecycle (owner key required).
//
//	demo-cli open-batch --engine=http://127.0.0.1:8080 --key=<hex>
//
// submit: Encode an amount into a demo handle and submit it (provider key).
//
//	demo-cli submit --engine=http://127.0.0.1:8080 --key=<hex> --batch=0 --amount=125000
//
// request: Ask for asynchronous decryption of one slot (provider key).
//
//	demo-cli request --engine=http://127.0.0.1:8080 --key=<hex> --batch=0 --target=<address>
//
// status: Show the batch cursor and all decryption requests.
//
//	demo-cli status --engine=http://127.0.0.1:8080
//
// events: Dump the audit event stream.
//
//	demo-cli events --engine=http://127.0.0.1:8080
package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/kimberlywlcraigv/Payment-Request-Fhe/crypto"
	"github.com/kimberlywlcraigv/Payment-Request-Fhe/oracle"
	"github.com/kimberlywlcraigv/Payment-Request-Fhe/protocol"
	"github.com/kimberlywlcraigv/Payment-Request-Fhe/services"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "keygen":
		err = runKeygen()
	case "add-provider":
		err = runAddProvider(args)
	case "remove-provider":
		err = runRemoveProvider(args)
	case "open-batch":
		err = runOpenBatch(args)
	case "close-batch":
		err = runCloseBatch(args)
	case "submit":
		err = runSubmit(args)
	case "request":
		err = runRequest(args)
	case "status":
		err = runStatus(args)
	case "events":
		err = runEvents(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Usage: demo-cli <command> [flags]

Commands:
  keygen           Generate an ed25519 keypair
  add-provider     Grant the provider role (owner key)
  remove-provider  Revoke the provider role (owner key)
  open-batch       Open a submission batch (owner key)
  close-batch      Close the open batch (owner key)
  submit           Submit an encoded amount (provider key)
  request          Request decryption of one slot (provider key)
  status           Show batch cursor and decryption requests
  events           Dump the audit event stream`)
}

func runKeygen() error {
	pubKey, privKey, err := crypto.GenerateKeyPair()
	if err != nil {
		return err
	}
	fmt.Printf("address:     %s\n", pubKey.String())
	fmt.Printf("private key: %s\n", hex.EncodeToString(privKey.Bytes()))
	return nil
}

// commonFlags adds the flags shared by every signed command.
func commonFlags(fs *flag.FlagSet) (engineURL, keyHex, adminToken *string) {
	engineURL = fs.String("engine", "http://127.0.0.1:8080", "Engine base URL")
	keyHex = fs.String("key", "", "Signing key (hex)")
	adminToken = fs.String("admin-token", "", "Basic auth token for /admin routes (user:pass)")
	return
}

func loadKey(keyHex string) (crypto.PrivateKey, error) {
	if keyHex == "" {
		return nil, fmt.Errorf("--key is required")
	}
	raw, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid key: %w", err)
	}
	return crypto.NewPrivateKeyFromBytes(raw), nil
}

// postSigned signs obj with key and posts the envelope, printing the JSON
// response.
func postSigned[T any](engineURL, path, adminToken string, key crypto.PrivateKey, obj *T) error {
	signed, err := protocol.NewSigned(key, obj)
	if err != nil {
		return err
	}
	body, err := json.Marshal(signed)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, engineURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if adminToken != "" {
		user, pass := splitToken(adminToken)
		req.SetBasicAuth(user, pass)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s (%d): %s", path, resp.StatusCode, bytes.TrimSpace(respBody))
	}
	fmt.Println(string(bytes.TrimSpace(respBody)))
	return nil
}

func splitToken(token string) (user, pass string) {
	for i := 0; i < len(token); i++ {
		if token[i] == ':' {
			return token[:i], token[i+1:]
		}
	}
	return token, ""
}

func runAddProvider(args []string) error {
	fs := flag.NewFlagSet("add-provider", flag.ExitOnError)
	engineURL, keyHex, adminToken := commonFlags(fs)
	provider := fs.String("provider", "", "Provider address to add")
	fs.Parse(args)

	key, err := loadKey(*keyHex)
	if err != nil {
		return err
	}
	if *provider == "" {
		return fmt.Errorf("--provider is required")
	}
	return postSigned(*engineURL, "/admin/providers/add", *adminToken, key,
		&services.ProviderRequest{Provider: *provider})
}

func runRemoveProvider(args []string) error {
	fs := flag.NewFlagSet("remove-provider", flag.ExitOnError)
	engineURL, keyHex, adminToken := commonFlags(fs)
	provider := fs.String("provider", "", "Provider address to remove")
	fs.Parse(args)

	key, err := loadKey(*keyHex)
	if err != nil {
		return err
	}
	if *provider == "" {
		return fmt.Errorf("--provider is required")
	}
	return postSigned(*engineURL, "/admin/providers/remove", *adminToken, key,
		&services.ProviderRequest{Provider: *provider})
}

func runOpenBatch(args []string) error {
	fs := flag.NewFlagSet("open-batch", flag.ExitOnError)
	engineURL, keyHex, adminToken := commonFlags(fs)
	fs.Parse(args)

	key, err := loadKey(*keyHex)
	if err != nil {
		return err
	}
	return postSigned(*engineURL, "/admin/batch/open", *adminToken, key, &struct{}{})
}

func runCloseBatch(args []string) error {
	fs := flag.NewFlagSet("close-batch", flag.ExitOnError)
	engineURL, keyHex, adminToken := commonFlags(fs)
	fs.Parse(args)

	key, err := loadKey(*keyHex)
	if err != nil {
		return err
	}
	return postSigned(*engineURL, "/admin/batch/close", *adminToken, key, &struct{}{})
}

func runSubmit(args []string) error {
	fs := flag.NewFlagSet("submit", flag.ExitOnError)
	engineURL, keyHex, _ := commonFlags(fs)
	batchID := fs.Uint64("batch", 0, "Batch id to submit into")
	amount := fs.Uint64("amount", 0, "Payment amount to encode")
	handleHex := fs.String("handle", "", "Pre-encoded handle (hex), overrides --amount")
	fs.Parse(args)

	key, err := loadKey(*keyHex)
	if err != nil {
		return err
	}

	var handle crypto.CiphertextHandle
	if *handleHex != "" {
		handle, err = crypto.NewCiphertextHandleFromString(*handleHex)
	} else {
		handle, err = oracle.EncodeAmount(*amount)
	}
	if err != nil {
		return err
	}

	return postSigned(*engineURL, "/submit", "", key,
		&services.SubmitRequest{BatchID: *batchID, Handle: handle.String()})
}

func runRequest(args []string) error {
	fs := flag.NewFlagSet("request", flag.ExitOnError)
	engineURL, keyHex, _ := commonFlags(fs)
	batchID := fs.Uint64("batch", 0, "Batch id the slot belongs to")
	target := fs.String("target", "", "Provider address whose slot to decrypt")
	fs.Parse(args)

	key, err := loadKey(*keyHex)
	if err != nil {
		return err
	}
	if *target == "" {
		return fmt.Errorf("--target is required")
	}

	return postSigned(*engineURL, "/request-decryption", "", key,
		&services.DecryptionRequestBody{BatchID: *batchID, TargetProvider: *target})
}

func runStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	engineURL := fs.String("engine", "http://127.0.0.1:8080", "Engine base URL")
	fs.Parse(args)

	if err := printGET(*engineURL + "/batch"); err != nil {
		return err
	}
	return printGET(*engineURL + "/requests")
}

func runEvents(args []string) error {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	engineURL := fs.String("engine", "http://127.0.0.1:8080", "Engine base URL")
	fs.Parse(args)

	return printGET(*engineURL + "/events")
}

func printGET(url string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s (%d): %s", url, resp.StatusCode, bytes.TrimSpace(body))
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, bytes.TrimSpace(body), "", "  "); err != nil {
		fmt.Println(string(body))
		return nil
	}
	fmt.Println(pretty.String())
	return nil
}
