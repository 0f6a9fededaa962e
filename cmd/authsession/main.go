// Command authsession manages a login session from the terminal.
//
//	authsession register <username> [password]
//	authsession confirm  <username> <code>
//	authsession login    <username> [password]
//	authsession logout
//	authsession status
//	authsession token
//
// Passwords not given as arguments are read from the first line of stdin.
// Configuration comes from AUTHSESSION_* variables and an optional .env file.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/panyam/authsession"
	"github.com/panyam/authsession/config"
	"github.com/panyam/authsession/internal/app"
	"github.com/panyam/authsession/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: authsession [-env file] <register|confirm|login|logout|status|token> [args]")
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("authsession", flag.ContinueOnError)
	flags.SetOutput(stderr)
	envFile := flags.String("env", "", "load configuration from this .env file")
	flags.Usage = func() {
		usage(stderr)
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		return 2
	}
	if flags.NArg() == 0 {
		usage(stderr)
		return 2
	}

	var paths []string
	if *envFile != "" {
		paths = append(paths, *envFile)
	}

	var cleanup func() error
	sessions, err := authsession.InitDefault(func() (*authsession.SessionManager, error) {
		cfg, err := config.Load(paths...)
		if err != nil {
			return nil, err
		}
		logger := logging.FromStrings(cfg.LogLevel, cfg.LogFormat, stderr)
		m, c, err := app.NewSessionManager(ctx, cfg, logger)
		cleanup = c
		return m, err
	})
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	if cleanup != nil {
		defer cleanup()
	}

	cmd, cmdArgs := flags.Arg(0), flags.Args()[1:]
	if err := dispatch(ctx, sessions, cmd, cmdArgs, stdin, stdout); err != nil {
		var perr *authsession.ProviderError
		if errors.As(err, &perr) {
			fmt.Fprintf(stderr, "error: %s: %s\n", perr.Reason, perr.Message)
		} else {
			fmt.Fprintf(stderr, "error: %v\n", err)
		}
		if errors.Is(err, errUsage) {
			usage(stderr)
			return 2
		}
		return 1
	}
	return 0
}

var errUsage = errors.New("wrong number of arguments")

func dispatch(ctx context.Context, sessions *authsession.SessionManager, cmd string, args []string, stdin io.Reader, stdout io.Writer) error {
	switch cmd {
	case "register":
		if len(args) < 1 || len(args) > 2 {
			return errUsage
		}
		password, err := passwordArg(args, stdin)
		if err != nil {
			return err
		}
		result, err := sessions.Register(ctx, args[0], password)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "registered %s (sub %s)\n", args[0], result.UserSub)
		if result.CodeDeliveryDestination != "" {
			fmt.Fprintf(stdout, "confirmation code sent via %s to %s\n", result.CodeDeliveryMedium, result.CodeDeliveryDestination)
		}

	case "confirm":
		if len(args) != 2 {
			return errUsage
		}
		if _, err := sessions.ConfirmRegistration(ctx, args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "confirmed %s\n", args[0])

	case "login":
		if len(args) < 1 || len(args) > 2 {
			return errUsage
		}
		password, err := passwordArg(args, stdin)
		if err != nil {
			return err
		}
		if _, err := sessions.Authenticate(ctx, args[0], password); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "logged in as %s\n", args[0])

	case "logout":
		if err := sessions.SignOut(ctx); err != nil {
			return err
		}
		sessions.WaitForSignOuts()
		fmt.Fprintln(stdout, "logged out")

	case "status":
		if sessions.IsAuthenticated() {
			fmt.Fprintln(stdout, "authenticated")
		} else {
			fmt.Fprintln(stdout, "not authenticated")
		}

	case "token":
		token, ok := sessions.GetAccessToken()
		if !ok {
			return authsession.ErrNotAuthenticated
		}
		fmt.Fprintln(stdout, token)

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

// passwordArg returns args[1] or the first line of stdin
func passwordArg(args []string, stdin io.Reader) (string, error) {
	if len(args) > 1 {
		return args[1], nil
	}
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("password is required")
	}
	return password, nil
}
