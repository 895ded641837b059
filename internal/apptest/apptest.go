// Package apptest builds applications backed by throwaway databases for tests.
package apptest

import (
	"context"
	_ "embed"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/saltyorg/blogr/internal/app"
	"github.com/saltyorg/blogr/internal/auth"
	"github.com/saltyorg/blogr/internal/config"
	"github.com/saltyorg/blogr/internal/database"
)

//go:embed data.sql
var dataSQL string

// Fixture users created by Seed. Each password equals the username.
var Users = []string{"test", "other"}

// Config returns a configuration pointing at a fresh database file in t's temp dir.
func Config(t testing.TB) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.Database = filepath.Join(t.TempDir(), "blogr.sqlite")
	cfg.LogFile = filepath.Join(t.TempDir(), "blogr.log")
	cfg.PasswordCost = bcrypt.MinCost
	cfg.JanitorSchedule = ""
	cfg.Dev = true
	return cfg
}

// New returns a prepared App whose database holds the schema and fixture data.
func New(t testing.TB, opts ...app.Option) *app.App {
	t.Helper()

	a := app.New(Config(t), opts...)
	require.NoError(t, a.Prepare())

	err := a.Run(context.Background(), func(ctx context.Context) error {
		if err := database.InitSchema(ctx); err != nil {
			return err
		}
		return Seed(ctx)
	})
	require.NoError(t, err)

	return a
}

// Seed inserts the fixture users and posts through the connection carried by ctx.
func Seed(ctx context.Context) error {
	conn, err := database.Get(ctx)
	if err != nil {
		return err
	}

	for _, name := range Users {
		hash, err := auth.HashPassword(name, bcrypt.MinCost)
		if err != nil {
			return err
		}
		if _, err := conn.CreateUser(ctx, name, hash); err != nil {
			return err
		}
	}

	return conn.ExecScript(ctx, dataSQL)
}

// Context returns a fresh application context that is torn down when t ends.
func Context(t testing.TB, a *app.App) context.Context {
	t.Helper()

	ctx, _ := a.Context(context.Background())
	t.Cleanup(func() {
		a.Teardown(ctx, nil)
	})
	return ctx
}
