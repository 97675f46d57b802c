package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/healthcompanion/companion/internal/accounts"
	"github.com/healthcompanion/companion/internal/client"
)

// readPassword is replaced in tests to avoid touching the terminal.
var readPassword = readPasswordFrom

// readPasswordFrom reads without echo from a terminal and falls back to one
// line of piped input.
func readPasswordFrom(in io.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		pw, err := term.ReadPassword(int(f.Fd()))
		return string(pw), err
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

type cliApp struct {
	in      io.Reader
	out     io.Writer
	api     *client.Client
	apiURL  string
	session string

	email    string
	name     string
	phone    string
	location string
	dob      string
	gender   string
}

func newApp(cmd string, in io.Reader, out io.Writer) (*cliApp, *flag.FlagSet) {
	a := &cliApp{in: in, out: out}
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringVar(&a.apiURL, "api", envOr("COMPANION_API_URL", "http://localhost:5000/api"), "API base URL")
	fs.StringVar(&a.session, "session", os.Getenv("COMPANION_SESSION_FILE"), "session file path")
	fs.StringVar(&a.email, "email", "", "account email")
	fs.StringVar(&a.name, "name", "", "full name")
	fs.StringVar(&a.phone, "phone", "", "phone number")
	fs.StringVar(&a.location, "location", "", "location")
	fs.StringVar(&a.dob, "dob", "", "date of birth (YYYY-MM-DD)")
	fs.StringVar(&a.gender, "gender", "", "male, female, other or prefer-not-to-say")
	return a, fs
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (a *cliApp) open() error {
	path := a.session
	if path == "" {
		def, err := client.DefaultPath()
		if err != nil {
			return err
		}
		path = def
	}
	a.api = client.New(a.apiURL, client.NewFileStore(path))
	return nil
}

func (a *cliApp) password() (string, error) {
	fmt.Fprint(a.out, "Password: ")
	pw, err := readPassword(a.in)
	fmt.Fprintln(a.out)
	return pw, err
}

func (a *cliApp) signup(ctx context.Context) error {
	pw, err := a.password()
	if err != nil {
		return err
	}
	user, err := a.api.Signup(ctx, accounts.SignupRequest{
		Name:        a.name,
		Email:       a.email,
		Password:    pw,
		Phone:       a.phone,
		Location:    a.location,
		DateOfBirth: a.dob,
		Gender:      a.gender,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Account created for %s\n", user.Email)
	return nil
}

func (a *cliApp) signin(ctx context.Context) error {
	pw, err := a.password()
	if err != nil {
		return err
	}
	user, err := a.api.Signin(ctx, a.email, pw)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Signed in as %s\n", user.Email)
	return nil
}

func (a *cliApp) profile(ctx context.Context) error {
	profile, err := a.api.Profile(ctx)
	if err != nil {
		return err
	}
	return a.print(profile)
}

func (a *cliApp) update(ctx context.Context) error {
	user, err := a.api.UpdateProfile(ctx, accounts.ProfileUpdate{
		Name:        optional(a.name),
		Phone:       optional(a.phone),
		Location:    optional(a.location),
		DateOfBirth: optional(a.dob),
		Gender:      optional(a.gender),
	})
	if err != nil {
		return err
	}
	return a.print(user)
}

func (a *cliApp) signout() error {
	if err := a.api.Signout(); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Signed out")
	return nil
}

func (a *cliApp) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
