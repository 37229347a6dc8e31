package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/userauth-app/authclient/internal/auth"
	"github.com/userauth-app/authclient/internal/client"
	"github.com/userauth-app/authclient/internal/config"
	"github.com/userauth-app/authclient/internal/session"
	"github.com/userauth-app/authclient/internal/tokenstore"
)

// App carries what every command needs. Fields are filled by the root
// command before a subcommand runs.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Out    io.Writer
	In     io.Reader

	// TokenStore overrides the store selected by configuration
	TokenStore tokenstore.Store

	store *session.Store
}

// Session returns the session store, creating it on first use
func (a *App) Session() (*session.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	if a.Config == nil {
		return nil, errors.New("configuration not loaded")
	}

	persist := a.TokenStore
	if persist == nil {
		var err error
		persist, err = tokenstore.Open(tokenstore.Options{
			Kind:           tokenstore.Kind(a.Config.TokenStore.Kind),
			Profile:        a.Config.TokenStore.Profile,
			KeyringService: a.Config.TokenStore.KeyringService,
			FilePath:       a.Config.TokenStore.FilePath,
			RedisAddress:   a.Config.TokenStore.RedisAddress,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open token store: %w", err)
		}
	}

	store, err := session.New(client.Config{
		BaseURL:   a.Config.Client.BaseURL,
		Timeout:   a.Config.Client.Timeout,
		UserAgent: "authctl",
	}, persist, a.Logger)
	if err != nil {
		return nil, err
	}
	a.store = store
	return store, nil
}

// RestoredSession returns the session after bootstrapping it from the
// persisted credential
func (a *App) RestoredSession(ctx context.Context) (*session.Store, auth.Snapshot, error) {
	store, err := a.Session()
	if err != nil {
		return nil, auth.Snapshot{}, err
	}
	snap := session.NewSequencer(store).Run(ctx)
	return store, snap, nil
}

func (a *App) out() io.Writer {
	if a.Out != nil {
		return a.Out
	}
	return os.Stdout
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out(), format, args...)
}

func (a *App) printJSON(v any) error {
	enc := json.NewEncoder(a.out())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readSecret returns value when set, otherwise prompts on an interactive terminal
func (a *App) readSecret(value, prompt, envKey string) (string, error) {
	if value != "" {
		return value, nil
	}
	if envKey != "" {
		if v := os.Getenv(envKey); v != "" {
			return v, nil
		}
	}
	if a.In != nil {
		return "", fmt.Errorf("%s is required in non-interactive mode", strings.ToLower(prompt))
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("%s is required in non-interactive mode", strings.ToLower(prompt))
	}
	fmt.Fprintf(os.Stderr, "%s: ", prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(prompt), err)
	}
	return string(b), nil
}

// requireSignedIn fails unless the snapshot is authenticated
func requireSignedIn(snap auth.Snapshot) error {
	if snap.Status != auth.StatusAuthenticated || snap.User == nil {
		return errors.New("not signed in (run 'authctl login')")
	}
	return nil
}

// describeError turns typed failures into user-facing text
func describeError(err error) error {
	switch auth.KindOf(err) {
	case auth.KindInvalidCredentials:
		return errors.New("invalid email or password")
	case auth.KindRefreshFailed:
		return errors.New("session expired, please sign in again")
	case auth.KindTimeout:
		return fmt.Errorf("server did not answer in time: %w", err)
	case auth.KindNetwork:
		return fmt.Errorf("could not reach server: %w", err)
	}
	return err
}
