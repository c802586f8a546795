// Package cli implements adoptifyctl, a terminal client that keeps its
// Adoptify session in a local SQLite file.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"adoptify-web/internal/apiclient"
	"adoptify-web/internal/authclient"
	"adoptify-web/internal/logger"
	"adoptify-web/internal/model"
	"adoptify-web/internal/service"
	"adoptify-web/internal/session"
	"adoptify-web/internal/upstream"
)

// env is what every subcommand works with once the root has run.
type env struct {
	store     *session.SQLiteStore
	sessions  *service.SessionService
	pets      *service.PetService
	adoptions *service.AdoptionService
	donations *service.DonationService
}

type rootOptions struct {
	server      string
	sessionFile string
	logLevel    string
	timeout     time.Duration

	env *env
}

// defaultServer returns the API URL, checking ADOPTIFY_API_URL first.
func defaultServer() string {
	if s := os.Getenv("ADOPTIFY_API_URL"); s != "" {
		return s
	}
	return "http://localhost:8000"
}

func defaultSessionFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "adoptify-session.db"
	}
	return filepath.Join(home, ".adoptify", "session.db")
}

// Execute runs adoptifyctl with args and always releases the session file.
func Execute(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer, stderr io.Writer) error {
	root, opts := newRootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if closeErr := opts.close(); err == nil {
		err = closeErr
	}
	return err
}

func newRootCmd() (*cobra.Command, *rootOptions) {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "adoptifyctl",
		Short: "Adoptify from the terminal",
		Long:  "adoptifyctl signs in to the Adoptify API and browses pets, favourites, applications and donations.",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.open(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return opts.close()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.server, "server", defaultServer(), "Adoptify API URL (or ADOPTIFY_API_URL env)")
	root.PersistentFlags().StringVar(&opts.sessionFile, "session-file", defaultSessionFile(), "Path of the local session database")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "API request timeout")

	root.AddCommand(
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newWhoamiCmd(opts),
		newPetsCmd(opts),
		newFavouritesCmd(opts),
		newApplyCmd(opts),
		newDonateCmd(opts),
	)

	return root, opts
}

func (o *rootOptions) open(cmd *cobra.Command) error {
	log := logger.New(cmd.ErrOrStderr(), o.logLevel)

	if dir := filepath.Dir(o.sessionFile); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create session directory: %w", err)
		}
	}

	store, err := session.OpenSQLiteStore(cmd.Context(), o.sessionFile)
	if err != nil {
		return err
	}

	api := upstream.New(o.server, o.timeout, log)
	auth := authclient.New(api)
	requests := apiclient.New(api, auth, apiclient.WithLogger(log))
	pets := service.NewPetService(requests)

	o.env = &env{
		store:     store,
		sessions:  service.NewSessionService(auth, requests, nil, log),
		pets:      pets,
		adoptions: service.NewAdoptionService(requests, pets),
		donations: service.NewDonationService(requests),
	}
	return nil
}

func (o *rootOptions) close() error {
	if o.env == nil {
		return nil
	}
	err := o.env.store.Close()
	o.env = nil
	return err
}

// explain turns session errors into instructions for the user.
func explain(err error) error {
	if errors.Is(err, model.ErrSessionExpired) {
		return errors.New("not logged in or session expired; run `adoptifyctl login`")
	}
	var reqErr *model.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.Temporary() {
			return fmt.Errorf("cannot reach the Adoptify API, try again: %w", err)
		}
		if msg := upstream.ErrorMessage(reqErr.Body); msg != "" {
			return fmt.Errorf("%s (HTTP %d)", msg, reqErr.Status)
		}
	}
	return err
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
