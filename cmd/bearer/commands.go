package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"golang.org/x/crypto/ssh"
	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/bearerkit/pkg/bearer"
	"github.com/dmitrymomot/bearerkit/pkg/logger"
	"github.com/dmitrymomot/bearerkit/pkg/mailauth"
	"github.com/dmitrymomot/bearerkit/pkg/xoauth2"
)

// newFlagSet returns a flag set for one command with the key flags attached.
func newFlagSet(name string, kf *keyFlags) *pflag.FlagSet {
	fs := pflag.NewFlagSet("bearer "+name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	if kf != nil {
		fs.StringVar(&kf.publicKey, "public-key", "", "PEM public key file")
		fs.StringVar(&kf.privateKey, "private-key", "", "PEM private key file")
	}
	return fs
}

// parseFlags parses args and prints the flag defaults on --help.
// It reports done when the command should stop without error.
func (a *app) parseFlags(fs *pflag.FlagSet, args []string, usage string) (done bool, err error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintf(a.stdout, "Usage:\n  %s\n\nFlags:\n", usage)
			fs.SetOutput(a.stdout)
			fs.PrintDefaults()
			return true, nil
		}
		return false, usageErrorf("%s: %v", fs.Name(), err)
	}
	return false, nil
}

// argOrStdin returns the single positional argument, reading the first line
// of stdin when it is "-".
func (a *app) argOrStdin(fs *pflag.FlagSet, what string) (string, error) {
	if fs.NArg() != 1 {
		return "", usageErrorf("%s: expected exactly one %s argument", fs.Name(), what)
	}
	arg := fs.Arg(0)
	if arg != "-" {
		return arg, nil
	}

	line, err := bufio.NewReader(a.stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading %s from stdin: %w", what, err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", usageErrorf("%s: empty %s on stdin", fs.Name(), what)
	}
	return line, nil
}

func runSign(ctx context.Context, a *app, args []string) error {
	var (
		kf          keyFlags
		payloadJSON string
		payloadFile string
		createdAt   string
	)
	fs := newFlagSet("sign", &kf)
	fs.StringVar(&payloadJSON, "payload", "", "payload as JSON")
	fs.StringVar(&payloadFile, "payload-file", "", "payload file (.json, .yaml or .yml)")
	fs.StringVar(&createdAt, "created-at", "", "creation time (RFC 3339, default: now)")
	if done, err := a.parseFlags(fs, args, "bearer sign (--payload JSON | --payload-file FILE) [--created-at TIME]"); done || err != nil {
		return err
	}
	if fs.NArg() != 0 {
		return usageErrorf("sign: unexpected argument %q", fs.Arg(0))
	}

	payload, err := readPayload(payloadJSON, payloadFile)
	if err != nil {
		return err
	}

	var opts []bearer.EnvelopeOption
	if createdAt != "" {
		t, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return usageErrorf("sign: --created-at: %v", err)
		}
		opts = append(opts, bearer.WithCreatedAt(t))
	}

	signer, err := a.loadSigner(ctx, kf)
	if err != nil {
		return err
	}
	token, err := signer.Sign(bearer.NewEnvelope(payload, opts...))
	if err != nil {
		return err
	}

	a.log.Info("token signed", logger.Fingerprint(token))
	_, err = fmt.Fprintln(a.stdout, token)
	return err
}

// readPayload parses the payload from a JSON string or a JSON/YAML file.
func readPayload(payloadJSON, payloadFile string) (bearer.Value, error) {
	switch {
	case payloadJSON != "" && payloadFile != "":
		return bearer.Value{}, usageErrorf("sign: --payload and --payload-file are mutually exclusive")
	case payloadJSON != "":
		var v bearer.Value
		if err := json.Unmarshal([]byte(payloadJSON), &v); err != nil {
			return bearer.Value{}, usageErrorf("sign: --payload: %v", err)
		}
		return v, nil
	case payloadFile != "":
		data, err := os.ReadFile(payloadFile)
		if err != nil {
			return bearer.Value{}, fmt.Errorf("reading payload: %w", err)
		}
		switch strings.ToLower(filepath.Ext(payloadFile)) {
		case ".yaml", ".yml":
			var doc any
			if err := yaml.Unmarshal(data, &doc); err != nil {
				return bearer.Value{}, fmt.Errorf("parsing %s: %w", payloadFile, err)
			}
			return bearer.ValueOf(doc)
		default:
			var v bearer.Value
			if err := json.Unmarshal(data, &v); err != nil {
				return bearer.Value{}, fmt.Errorf("parsing %s: %w", payloadFile, err)
			}
			return v, nil
		}
	default:
		return bearer.Value{}, usageErrorf("sign: one of --payload or --payload-file is required")
	}
}

// envelopeView is the printed form of a verified envelope.
type envelopeView struct {
	User      string       `json:"user,omitempty"`
	Payload   bearer.Value `json:"payload"`
	CreatedAt time.Time    `json:"created_at"`
}

// yamlEnvelopeView carries the payload as plain Go values for yaml.v3.
type yamlEnvelopeView struct {
	User      string    `yaml:"user,omitempty"`
	Payload   any       `yaml:"payload"`
	CreatedAt time.Time `yaml:"created_at"`
}

func (a *app) printEnvelope(format, user string, env bearer.Envelope) error {
	switch format {
	case "json":
		enc := json.NewEncoder(a.stdout)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(envelopeView{User: user, Payload: env.Payload(), CreatedAt: env.CreatedAt()})
	case "yaml":
		var payload any
		if err := env.Payload().Decode(&payload); err != nil {
			return err
		}
		enc := yaml.NewEncoder(a.stdout)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(yamlEnvelopeView{User: user, Payload: payload, CreatedAt: env.CreatedAt()})
	default:
		return usageErrorf("unknown output format %q (want json or yaml)", format)
	}
}

func runVerify(ctx context.Context, a *app, args []string) error {
	var (
		kf     keyFlags
		output string
	)
	fs := newFlagSet("verify", &kf)
	fs.StringVarP(&output, "output", "o", "json", "output format: json or yaml")
	if done, err := a.parseFlags(fs, args, "bearer verify [-o json|yaml] TOKEN|-"); done || err != nil {
		return err
	}
	token, err := a.argOrStdin(fs, "token")
	if err != nil {
		return err
	}

	signer, err := a.loadSigner(ctx, kf)
	if err != nil {
		return err
	}
	env, err := signer.Verify(token)
	if err != nil {
		return fmt.Errorf("invalid token: %w", err)
	}
	return a.printEnvelope(output, "", env)
}

func runEncode(_ context.Context, a *app, args []string) error {
	var user string
	fs := newFlagSet("encode", nil)
	fs.StringVarP(&user, "user", "u", "", "user name (required)")
	if done, err := a.parseFlags(fs, args, "bearer encode --user USER TOKEN|-"); done || err != nil {
		return err
	}
	if user == "" {
		return usageErrorf("encode: --user is required")
	}
	token, err := a.argOrStdin(fs, "token")
	if err != nil {
		return err
	}

	tok := xoauth2.New(user, token)
	if err := tok.Validate(); err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.stdout, tok.Encode())
	return err
}

func runDecode(_ context.Context, a *app, args []string) error {
	fs := newFlagSet("decode", nil)
	if done, err := a.parseFlags(fs, args, "bearer decode XOAUTH2|-"); done || err != nil {
		return err
	}
	encoded, err := a.argOrStdin(fs, "XOAUTH2 response")
	if err != nil {
		return err
	}

	tok, err := xoauth2.Decode(encoded)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(a.stdout, "user: %s\nbearer: %s\n", tok.User, tok.Bearer)
	return err
}

func runAuth(ctx context.Context, a *app, args []string) error {
	var (
		kf     keyFlags
		output string
	)
	fs := newFlagSet("auth", &kf)
	fs.StringVarP(&output, "output", "o", "json", "output format: json or yaml")
	if done, err := a.parseFlags(fs, args, "bearer auth [-o json|yaml] XOAUTH2|-"); done || err != nil {
		return err
	}
	encoded, err := a.argOrStdin(fs, "XOAUTH2 response")
	if err != nil {
		return err
	}

	signer, err := a.loadSigner(ctx, kf)
	if err != nil {
		return err
	}
	auth, err := mailauth.New(signer, mailauth.WithLogger(a.log))
	if err != nil {
		return err
	}
	id, err := auth.Authenticate(encoded)
	if err != nil {
		return err
	}
	return a.printEnvelope(output, id.User, id.Envelope)
}

func runKeyInfo(ctx context.Context, a *app, args []string) error {
	var kf keyFlags
	fs := newFlagSet("key-info", &kf)
	if done, err := a.parseFlags(fs, args, "bearer key-info"); done || err != nil {
		return err
	}

	signer, err := a.loadSigner(ctx, kf)
	if err != nil {
		return err
	}
	pub, err := ssh.NewPublicKey(signer.PublicKey())
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(a.stdout, "algorithm: %s\nbits: %d\nfingerprint: %s\ncan_sign: %t\n",
		bearer.Algorithm.Alg(),
		signer.PublicKey().N.BitLen(),
		ssh.FingerprintSHA256(pub),
		signer.CanSign(),
	)
	return err
}

// runDemo walks through the whole flow: sign, verify, wrap and unwrap.
func runDemo(ctx context.Context, a *app, args []string) error {
	var (
		kf   keyFlags
		user string
	)
	fs := newFlagSet("demo", &kf)
	fs.StringVarP(&user, "user", "u", "luke", "user name")
	if done, err := a.parseFlags(fs, args, "bearer demo [--user USER]"); done || err != nil {
		return err
	}

	signer, err := a.loadSigner(ctx, kf)
	if err != nil {
		return err
	}

	payload := bearer.MapValue(map[string]bearer.Value{
		"test":    bearer.IntValue(123),
		"session": bearer.StringValue(uuid.NewString()),
	})
	signed, err := signer.Sign(bearer.NewEnvelope(payload))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "signed:   %s\n", signed)

	env, err := signer.Verify(signed)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "verified: %s at %s\n", env.Payload(), env.CreatedAt().Format(time.RFC3339Nano))

	encoded := xoauth2.Encode(user, signed)
	fmt.Fprintf(a.stdout, "xoauth2:  %s\n", encoded)

	tok, err := xoauth2.Decode(encoded)
	if err != nil {
		return err
	}
	if tok.Bearer != signed {
		return errors.New("decoded bearer does not match the signed token")
	}
	_, err = fmt.Fprintf(a.stdout, "decoded:  user=%s bearer matches\n", tok.User)
	return err
}
