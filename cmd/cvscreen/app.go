package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"cvscreen/internal/api"
	"cvscreen/internal/config"
	"cvscreen/internal/querycache"
	"cvscreen/internal/rankview"
	"cvscreen/internal/screening"
	"cvscreen/internal/session"
	"cvscreen/internal/storage"
)

// app wires the full client stack for one command invocation: config,
// credential storage, API client, query cache and mutation orchestrator.
type app struct {
	cfg     config.Config
	store   *storage.Store
	session *session.Manager
	client  *api.Client
	cache   *querycache.Cache
	view    *rankview.View
	orch    *screening.Orchestrator
}

// newApp is a variable so tests can substitute a prebuilt stack.
var newApp = func() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	sess := session.NewManager(store)
	client := api.NewClient(cfg.API.BaseURL, "", cfg.APITimeout())
	if s, err := sess.Load(); err == nil {
		client.SetToken(s.Token)
	} else if !errors.Is(err, session.ErrNoSession) {
		store.Close()
		return nil, err
	}

	cache := querycache.New(client)
	view := rankview.New()

	return &app{
		cfg:     cfg,
		store:   store,
		session: sess,
		client:  client,
		cache:   cache,
		view:    view,
		orch:    screening.New(client, cache, view),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
	}
}

// requireSession fails fast when no session is stored, before any request
// is attempted.
func (a *app) requireSession() error {
	_, err := a.session.Load()
	if errors.Is(err, session.ErrNoSession) {
		return fmt.Errorf("not logged in; run `cvscreen login` first")
	}
	return err
}

// withAuthRetry runs fn, and when it fails with an auth error attempts a
// single token refresh before retrying once. If no refresh is possible the
// stored session is cleared: the client transitions to logged-out rather
// than repeating doomed requests.
func (a *app) withAuthRetry(ctx context.Context, fn func() error) error {
	err := fn()
	var authErr *api.AuthError
	if !errors.As(err, &authErr) {
		return err
	}

	s, loadErr := a.session.Load()
	if loadErr != nil || s.RefreshToken == "" {
		a.forceLogout()
		return err
	}

	tok, refreshErr := a.client.Refresh(ctx, s.RefreshToken)
	if refreshErr != nil {
		a.forceLogout()
		return err
	}
	if saveErr := a.session.Save(session.Session{Token: tok.AccessToken, RefreshToken: tok.RefreshToken}); saveErr != nil {
		return saveErr
	}
	a.client.SetToken(tok.AccessToken)

	err = fn()
	if errors.As(err, &authErr) {
		// The refreshed token was rejected too; give up on the session.
		a.forceLogout()
	}
	return err
}

func (a *app) forceLogout() {
	if err := a.session.Clear(); err != nil {
		printError("could not clear expired session: %v", err)
		return
	}
	printWarning("Session expired; run `cvscreen login` to continue.")
}

// saveSession persists a token response and arms the client with it.
func (a *app) saveSession(tok api.Token) error {
	if err := a.session.Save(session.Session{Token: tok.AccessToken, RefreshToken: tok.RefreshToken}); err != nil {
		return err
	}
	a.client.SetToken(tok.AccessToken)
	return nil
}
