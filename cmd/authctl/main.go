package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/layer-3/phoneauth/client"
	"github.com/spf13/pflag"
)

const usage = `usage: authctl [flags] <command> [command flags]

commands:
  captcha                       request a challenge and print it
  login --username U [--code C] [--challenge-id ID]
                                log in; without --challenge-id a fresh
                                challenge is requested first
  whoami                        fetch the current profile
  logout                        notify the server and clear the session
  status                        print the local session phase

flags:
`

func main() {
	global := pflag.NewFlagSet("authctl", pflag.ContinueOnError)
	global.SetInterspersed(false)
	server := global.StringP("server", "s", envOr("PHONEAUTH_SERVER", "http://localhost:3001"), "auth server base URL")
	stateDir := global.String("state-dir", defaultStateDir(), "directory holding the persisted session")
	timeout := global.Duration("timeout", client.DefaultTimeout, "per request timeout")
	verbose := global.BoolP("verbose", "v", false, "log debug output to stderr")
	global.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		global.PrintDefaults()
	}

	if err := global.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}
	if global.NArg() == 0 {
		global.Usage()
		os.Exit(2)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	kv, err := client.NewFileKV(*stateDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "authctl: %v\n", err)
		os.Exit(1)
	}

	store := client.New(*server, kv, client.WithTimeout(*timeout), client.WithLogger(logger))

	cmd, args := global.Arg(0), global.Args()[1:]
	if err := run(context.Background(), os.Stdout, store, cmd, args); err != nil {
		fmt.Fprintf(os.Stderr, "authctl: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, out io.Writer, store *client.Store, cmd string, args []string) error {
	switch cmd {
	case "captcha":
		c, err := store.RequestChallenge(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "challenge id: %s\ncode:         %s\n", c.ChallengeID, c.Code)
		return nil

	case "login":
		return login(ctx, out, store, args)

	case "whoami":
		p, err := store.FetchCurrentProfile(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "id:       %d\nusername: %s\nname:     %s\n", p.ID, p.Username, p.DisplayName)
		if p.AvatarInfo != nil {
			fmt.Fprintf(out, "avatar:   %s\n", p.AvatarInfo.AvatarURL)
		}
		return nil

	case "logout":
		store.LogoutBackend(ctx)
		fmt.Fprintln(out, "logged out")
		return nil

	case "status":
		st := store.Snapshot()
		fmt.Fprintf(out, "phase: %s\n", store.Phase())
		if st.Profile != nil {
			fmt.Fprintf(out, "user:  %s (%s)\n", st.Profile.DisplayName, st.Profile.Username)
		}
		return nil

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func login(ctx context.Context, out io.Writer, store *client.Store, args []string) error {
	fs := pflag.NewFlagSet("login", pflag.ContinueOnError)
	username := fs.StringP("username", "u", "", "phone number to log in as")
	code := fs.String("code", "", "one-time code")
	challengeID := fs.String("challenge-id", "", "challenge to answer")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *challengeID == "" {
		c, err := store.RequestChallenge(ctx)
		if err != nil {
			return fmt.Errorf("request challenge: %w", err)
		}
		*challengeID = c.ChallengeID
		if *code == "" {
			*code = c.Code
		}
	}

	start := time.Now()
	outcome, err := store.Login(ctx, *username, *code, *challengeID)
	switch outcome {
	case client.LoginComplete:
		st := store.Snapshot()
		fmt.Fprintf(out, "logged in as %s in %s\n", st.Profile.DisplayName, time.Since(start).Round(time.Millisecond))
		return nil
	case client.LoginPartial:
		fmt.Fprintln(out, "logged in, but the profile could not be loaded; run `authctl whoami` to retry")
		return err
	default:
		return err
	}
}

func envOr(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func defaultStateDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "phoneauth")
	}
	return ".phoneauth"
}
