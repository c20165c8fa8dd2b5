package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/amirasaad/presale/infra/provider/simulated"
	"github.com/amirasaad/presale/internal/fixtures"
	"github.com/amirasaad/presale/pkg/app"
	"github.com/amirasaad/presale/pkg/config"
	"github.com/amirasaad/presale/pkg/domain/presale"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cliHarness struct {
	store  *fixtures.Store
	closed int
}

func (h *cliHarness) open(string) (*app.App, func() error, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a := app.New(&app.Deps{
		Store:   h.store,
		Adapter: simulated.New(simulated.Config{}, logger),
		Logger:  logger,
	}, &config.App{Reconciliation: &config.Reconciliation{Concurrency: 1}})
	return a, func() error { h.closed++; return nil }, nil
}

func noDB(string) (*sql.DB, func() error, error) {
	return nil, nil, errors.New("no database in tests")
}

func (h *cliHarness) exec(t *testing.T, args ...string) (map[string]any, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(h.open, noDB)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		return nil, err
	}
	body := map[string]any{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &body))
	return body, nil
}

func TestCLI_CheckoutProgressReconcile(t *testing.T) {
	h := &cliHarness{store: fixtures.NewStore()}
	project, user := fixtures.Project(), fixtures.User()
	h.store.PutProject(project)
	h.store.PutUser(user)
	round := fixtures.Round(project.ID).WithGoal(presale.GoalReservations, 4).Build()
	h.store.PutRound(round)
	res := fixtures.Reservation(round, user.ID, 1, presale.ReservationPending)
	h.store.PutReservation(res)

	body, err := h.exec(t, "checkout", res.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "confirmed", body["reservationStatus"])
	assert.Equal(t, presale.ProviderSimulated, body["provider"])

	body, err = h.exec(t, "progress", round.ID.String())
	require.NoError(t, err)
	assert.EqualValues(t, 25, body["percent"])

	at := round.DeadlineAt.Add(time.Minute).UTC().Format(time.RFC3339)
	body, err = h.exec(t, "reconcile", "--at", at)
	require.NoError(t, err)
	assert.EqualValues(t, 1, body["processedRounds"])
	assert.EqualValues(t, 1, body["refunds"])

	assert.Equal(t, 3, h.closed)
}

func TestCLI_ArgumentErrors(t *testing.T) {
	h := &cliHarness{store: fixtures.NewStore()}

	_, err := h.exec(t, "checkout", "not-a-uuid")
	require.ErrorContains(t, err, "invalid reservation id")

	_, err = h.exec(t, "progress")
	require.Error(t, err)

	_, err = h.exec(t, "reconcile", "--at", "yesterday")
	require.ErrorContains(t, err, "invalid --at")

	_, err = h.exec(t, "migrate", "up")
	require.ErrorContains(t, err, "no database in tests")

	assert.Equal(t, 1, h.closed, "only reconcile reached the app")
}
