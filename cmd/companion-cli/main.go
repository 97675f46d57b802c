// Command companion-cli signs in to the companion API and manages the local
// session.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/healthcompanion/companion/internal/client"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			fmt.Fprintln(os.Stderr, apiErr.Message)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	if len(args) == 0 {
		usage(out)
		return errors.New("missing command")
	}
	cmd, rest := args[0], args[1:]

	app, fs := newApp(cmd, in, out)
	if err := fs.Parse(rest); err != nil {
		return err
	}
	if err := app.open(); err != nil {
		return err
	}

	switch cmd {
	case "signup":
		return app.signup(ctx)
	case "signin":
		return app.signin(ctx)
	case "profile":
		return app.profile(ctx)
	case "update":
		return app.update(ctx)
	case "signout":
		return app.signout()
	default:
		usage(out)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: companion-cli <signup|signin|profile|update|signout> [flags]")
}
