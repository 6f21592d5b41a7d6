package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"encypher.dev/encypher/contentid"
	"encypher.dev/encypher/metadata"
	"encypher.dev/encypher/payload"
	"encypher.dev/encypher/signing"
	"encypher.dev/encypher/target"
	"encypher.dev/encypher/vscodec"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "embed":
		return cmdEmbed(args[1:], out, errOut)
	case "verify":
		return cmdVerify(args[1:], out, errOut)
	case "inspect":
		return cmdInspect(args[1:], out, errOut)
	case "strip":
		return cmdStrip(args[1:], out, errOut)
	case "doc-cid":
		return cmdDocCID(args[1:], out, errOut)
	case "keygen":
		return cmdKeygen(args[1:], out, errOut)
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
	fmt.Fprintln(w, "encypher: embed and verify signed metadata in plain text")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  encypher keygen [--seed-hex <64hex>] [--derive <signer-id>]")
	fmt.Fprintln(w, "  encypher embed --seed-hex <64hex> --signer <id> [--format basic|manifest|cbor_manifest|jumbf|c2pa] [--target whitespace|punctuation|first_letter|last_letter|all_characters] [--timestamp <RFC3339>] [--model-id <id>] [--distribute] <file>")
	fmt.Fprintln(w, "  encypher verify --pubkey <ed25519:...> --signer <id> [--show-payload] <file>")
	fmt.Fprintln(w, "  encypher inspect <file>")
	fmt.Fprintln(w, "  encypher strip <file>")
	fmt.Fprintln(w, "  encypher doc-cid <file>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - --seed-hex must be 32 bytes (64 hex chars) ed25519 seed")
	fmt.Fprintln(w, "  - embed writes the embedded text to stdout")
	fmt.Fprintln(w, "  - pass '-' as the file to read from stdin")
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func parseSeedHex(s string) (ed25519.PrivateKey, error) {
	seed, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("not valid hex: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

func cmdKeygen(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var seedHex string
	var derive string
	fs.StringVar(&seedHex, "seed-hex", "", "Optional ed25519 seed as 64 hex chars (for reproducible demos)")
	fs.StringVar(&derive, "derive", "", "Derive a per-signer seed from the given seed and this signer id")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	var seed []byte
	if seedHex != "" {
		priv, err := parseSeedHex(seedHex)
		if err != nil {
			fmt.Fprintf(errOut, "invalid --seed-hex: %v\n", err)
			return 2
		}
		seed = priv.Seed()
	} else {
		seed = make([]byte, ed25519.SeedSize)
		if _, err := rand.Read(seed); err != nil {
			fmt.Fprintf(errOut, "rand: %v\n", err)
			return 1
		}
	}

	if derive != "" {
		derived, err := signing.DeriveSignerSeed(seed, derive)
		if err != nil {
			fmt.Fprintf(errOut, "derive: %v\n", err)
			return 2
		}
		seed = derived
	}
	priv := ed25519.NewKeyFromSeed(seed)
	issuerKey, err := signing.IssuerKey(priv.Public().(ed25519.PublicKey))
	if err != nil {
		fmt.Fprintf(errOut, "issuer key: %v\n", err)
		return 1
	}

	fmt.Fprintf(out, "Seed-Hex:   %s\n", hex.EncodeToString(seed))
	fmt.Fprintf(out, "Issuer-Key: %s\n", issuerKey)
	return 0
}

func cmdEmbed(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("embed", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var seedHex string
	var signerID string
	var format string
	var targetName string
	var timestamp string
	var modelID string
	var distribute bool
	var skipHardBinding bool

	fs.StringVar(&seedHex, "seed-hex", "", "ed25519 seed as 64 hex chars")
	fs.StringVar(&signerID, "signer", "", "Signer identifier recorded in the payload")
	fs.StringVar(&format, "format", "manifest", "Payload format")
	fs.StringVar(&targetName, "target", "whitespace", "Embedding target class")
	fs.StringVar(&timestamp, "timestamp", "", "RFC3339 timestamp (defaults to now UTC)")
	fs.StringVar(&modelID, "model-id", "", "Model identifier to record")
	fs.BoolVar(&distribute, "distribute", false, "Spread selectors across targets instead of a single run")
	fs.BoolVar(&skipHardBinding, "skip-hard-binding", false, "Omit the content hash from c2pa manifests")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: encypher embed [flags] <file>")
		return 2
	}
	if seedHex == "" {
		fmt.Fprintln(errOut, "missing --seed-hex")
		return 2
	}
	if signerID == "" {
		fmt.Fprintln(errOut, "missing --signer")
		return 2
	}

	priv, err := parseSeedHex(seedHex)
	if err != nil {
		fmt.Fprintf(errOut, "invalid --seed-hex: %v\n", err)
		return 2
	}
	kind, err := target.Parse(targetName)
	if err != nil {
		fmt.Fprintf(errOut, "invalid --target: %v\n", err)
		return 2
	}
	text, err := readInput(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "read %s: %v\n", filepath.Base(fs.Arg(0)), err)
		return 1
	}

	var ts any
	if timestamp != "" {
		ts = timestamp
	} else {
		ts = nowUTC()
	}

	embedded, err := metadata.Embed(string(text), priv, signerID, metadata.EmbedOptions{
		Format:                  payload.Format(format),
		Timestamp:               ts,
		Target:                  kind,
		ModelID:                 modelID,
		DistributeAcrossTargets: distribute,
		SkipHardBinding:         skipHardBinding,
	})
	if err != nil {
		fmt.Fprintf(errOut, "embed: %v\n", err)
		return 1
	}
	_, _ = io.WriteString(out, embedded)
	return 0
}

func cmdVerify(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var pubkey string
	var signerID string
	var showPayload bool
	var skipHardBinding bool

	fs.StringVar(&pubkey, "pubkey", "", "Public key as ed25519:<base64>")
	fs.StringVar(&signerID, "signer", "", "Expected signer id the key belongs to (defaults to the embedded one)")
	fs.BoolVar(&showPayload, "show-payload", false, "Print the payload even when verification fails")
	fs.BoolVar(&skipHardBinding, "skip-hard-binding", false, "Skip the content hash check for c2pa manifests")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: encypher verify [flags] <file>")
		return 2
	}
	if pubkey == "" {
		fmt.Fprintln(errOut, "missing --pubkey")
		return 2
	}

	pub, err := signing.ParseIssuerKey(pubkey)
	if err != nil {
		fmt.Fprintf(errOut, "invalid --pubkey: %v\n", err)
		return 2
	}
	text, err := readInput(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "read %s: %v\n", filepath.Base(fs.Arg(0)), err)
		return 1
	}

	resolve := func(id string) (ed25519.PublicKey, error) {
		if signerID != "" && id != signerID {
			return nil, fmt.Errorf("unknown signer %q", id)
		}
		return pub, nil
	}
	res := metadata.Verify(string(text), resolve, metadata.VerifyOptions{
		ReturnPayloadOnFailure: showPayload,
		SkipHardBinding:        skipHardBinding,
	})

	if res.SignerID != "" {
		fmt.Fprintf(out, "Signer-ID: %s\n", res.SignerID)
	}
	if res.Payload != nil && (showPayload || res.Valid) {
		if b, err := payload.MarshalCanonicalJSON(res.Payload); err == nil {
			fmt.Fprintf(out, "Payload:   %s\n", b)
		}
	}
	if !res.Valid {
		fmt.Fprintln(out, "INVALID")
		return 1
	}
	fmt.Fprintln(out, "VALID")
	return 0
}

func cmdInspect(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: encypher inspect <file>")
		return 2
	}
	text, err := readInput(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "read %s: %v\n", filepath.Base(fs.Arg(0)), err)
		return 1
	}

	ins, ok := metadata.NewConfig().Inspect(string(text))
	if !ok {
		fmt.Fprintln(errOut, "no embedded metadata found")
		return 1
	}
	fmt.Fprintf(out, "Format:       %s\n", ins.Format)
	fmt.Fprintf(out, "Signer-ID:    %s\n", ins.SignerID)
	fmt.Fprintf(out, "Content-CID:  %s\n", ins.ContentCID)
	fmt.Fprintf(out, "Manifest-CID: %s\n", ins.ManifestCID)
	if ins.Payload != nil {
		if b, err := payload.MarshalCanonicalJSON(ins.Payload); err == nil {
			fmt.Fprintf(out, "Payload:      %s\n", b)
		}
	}
	return 0
}

func cmdStrip(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("strip", flag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: encypher strip <file>")
		return 2
	}
	text, err := readInput(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "read %s: %v\n", filepath.Base(fs.Arg(0)), err)
		return 1
	}
	_, _ = io.WriteString(out, vscodec.Strip(string(text)))
	return 0
}

func cmdDocCID(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("doc-cid", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var raw bool
	fs.BoolVar(&raw, "raw", false, "Hash the bytes as-is instead of stripping selectors first")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: encypher doc-cid [--raw] <file>")
		return 2
	}
	b, err := readInput(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "read %s: %v\n", filepath.Base(fs.Arg(0)), err)
		return 1
	}
	if raw {
		_, _ = fmt.Fprintln(out, contentid.ForBytes(b))
		return 0
	}
	_, _ = fmt.Fprintln(out, contentid.ForText(string(b)))
	return 0
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
