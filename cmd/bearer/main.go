// bearer signs, verifies and wraps bearer tokens for XOAUTH2 mail logins.
//
// Keys are looked up in order: --public-key/--private-key files,
// BEARER_PUBLIC_KEY/BEARER_PRIVATE_KEY (or their *_FILE variants), and
// finally an S3 bucket when BEARER_KEYS_S3_BUCKET is set. A .env file in the working directory,
// or the one named by --env-file, is read first; the process environment
// takes precedence over it.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/dmitrymomot/bearerkit/pkg/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		var usage *usageError
		if errors.As(err, &usage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// usageError marks errors caused by how the command was invoked.
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func usageErrorf(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// app carries what every command needs.
type app struct {
	stdin    io.Reader
	stdout   io.Writer
	stderr   io.Writer
	environ  map[string]string
	settings settings
	log      *slog.Logger
}

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = []command{
	{"sign", "sign a payload and print the bearer token", runSign},
	{"verify", "verify a bearer token and print its envelope", runVerify},
	{"encode", "wrap a bearer token in an XOAUTH2 initial response", runEncode},
	{"decode", "unwrap an XOAUTH2 initial response", runDecode},
	{"auth", "decode an XOAUTH2 response and verify its bearer", runAuth},
	{"key-info", "print the public key size and SSH fingerprint", runKeyInfo},
	{"demo", "sign, verify, encode and decode a sample token", runDemo},
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	global := pflag.NewFlagSet("bearer", pflag.ContinueOnError)
	global.SetInterspersed(false)
	global.SetOutput(io.Discard)
	envFile := global.String("env-file", "", "read variables from this .env file (default: .env if present)")
	help := global.BoolP("help", "h", false, "show help")

	if err := global.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printUsage(stdout, global)
			return nil
		}
		return usageErrorf("%v", err)
	}
	rest := global.Args()
	if *help || len(rest) == 0 {
		printUsage(stdout, global)
		if len(rest) == 0 && !*help {
			return usageErrorf("no command given")
		}
		return nil
	}

	if err := loadEnvFile(*envFile); err != nil {
		return err
	}
	environ := environMap(os.Environ())

	return dispatch(ctx, rest, stdin, stdout, stderr, environ)
}

// dispatch runs one command against an explicit environment.
func dispatch(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, environ map[string]string) error {
	name := args[0]
	for _, cmd := range commands {
		if cmd.name != name {
			continue
		}

		s, err := loadSettings(environ)
		if err != nil {
			return err
		}
		log, err := newLogger(s, stderr)
		if err != nil {
			return err
		}

		a := &app{
			stdin:    stdin,
			stdout:   stdout,
			stderr:   stderr,
			environ:  environ,
			settings: s,
			log:      log.With(slog.String("command", name)),
		}
		return cmd.run(ctx, a, args[1:])
	}
	return usageErrorf("unknown command %q", name)
}

func loadEnvFile(path string) error {
	if path != "" {
		return config.LoadEnv(path)
	}
	if err := config.LoadEnv(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func environMap(environ []string) map[string]string {
	m := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			m[k] = v
		}
	}
	return m
}

func printUsage(w io.Writer, global *pflag.FlagSet) {
	fmt.Fprintf(w, "bearer signs and verifies bearer tokens and wraps them for XOAUTH2 logins.\n\n")
	fmt.Fprintf(w, "Usage:\n  bearer [--env-file FILE] <command> [flags] [args]\n\nCommands:\n")
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-9s %s\n", cmd.name, cmd.summary)
	}
	fmt.Fprintf(w, "\nGlobal flags:\n")
	global.SetOutput(w)
	global.PrintDefaults()
	global.SetOutput(io.Discard)
	fmt.Fprintf(w, "\nRun \"bearer <command> --help\" for command flags.\n")
}
