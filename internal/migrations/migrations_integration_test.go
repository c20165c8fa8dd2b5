//go:build integration

package migrations_test

import (
	"context"
	"testing"
	"time"

	"github.com/amirasaad/presale/infra/repository"
	"github.com/amirasaad/presale/internal/migrations"
	"github.com/amirasaad/presale/pkg/domain/presale"
	repo "github.com/amirasaad/presale/pkg/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func startPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()
	container, err := tcpostgres.Run(
		ctx,
		"postgres:15-alpine",
		tcpostgres.WithDatabase("presale"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)
	return db
}

func TestMigrations_UpStoreDown(t *testing.T) {
	db := startPostgres(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, migrations.Up(sqlDB))
	require.NoError(t, migrations.Up(sqlDB), "second run is a no-op")

	version, dirty, err := migrations.Version(sqlDB)
	require.NoError(t, err)
	assert.EqualValues(t, 1, version)
	assert.False(t, dirty)

	project := repository.Project{ID: uuid.New(), Name: "Aurora", Currency: "EUR"}
	user := repository.User{ID: uuid.New(), Email: "buyer@example.com"}
	round := repository.Round{
		ID:               uuid.New(),
		ProjectID:        project.ID,
		GoalType:         string(presale.GoalAmount),
		GoalValue:        decimal.NewFromInt(1000),
		DepositAmount:    decimal.RequireFromString("49.99"),
		SlotsPerPerson:   1,
		DeadlineAt:       time.Now().UTC().Add(-time.Minute),
		Rule:             string(presale.RulePartial),
		PartialThreshold: 0.5,
		Status:           string(presale.RoundOpen),
	}
	reservation := repository.Reservation{
		ID:      uuid.New(),
		RoundID: round.ID,
		UserID:  user.ID,
		Slots:   1,
		Amount:  decimal.RequireFromString("49.99"),
		Status:  string(presale.ReservationPending),
	}
	for _, row := range []any{&project, &user, &round, &reservation} {
		require.NoError(t, db.Create(row).Error)
	}

	store := repository.New(db)
	now := time.Now().UTC()
	due, err := store.GetRounds(ctx, repo.RoundFilter{DueBefore: &now, Statuses: []presale.RoundStatus{presale.RoundOpen}})
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.True(t, due[0].DepositAmount.Equal(decimal.RequireFromString("49.99")))

	tx := &presale.Transaction{
		ReservationID: reservation.ID,
		Provider:      presale.ProviderSimulated,
		Amount:        reservation.Amount,
		Currency:      project.Currency,
		Status:        presale.TransactionSucceeded,
		Metadata:      map[string]string{"reservationId": reservation.ID.String()},
	}
	require.NoError(t, store.CreateTransaction(ctx, tx))

	confirmed := presale.ReservationConfirmed
	updated, err := store.UpdateReservation(ctx, reservation.ID, repo.ReservationUpdate{
		Status:       &confirmed,
		TxID:         &tx.ID,
		FromStatuses: []presale.ReservationStatus{presale.ReservationPending},
	})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, presale.ReservationConfirmed, updated.Status)

	evt := &presale.WebhookEvent{
		ID:            "evt_pg",
		Provider:      presale.ProviderSimulated,
		EventType:     "succeeded",
		Payload:       []byte(`{}`),
		TransactionID: &tx.ID,
		ReceivedAt:    now,
		Status:        presale.WebhookPending,
	}
	_, err = store.UpsertPaymentWebhook(ctx, evt)
	require.NoError(t, err)
	stored, err := store.UpsertPaymentWebhook(ctx, evt)
	require.NoError(t, err)
	assert.Equal(t, "evt_pg", stored.ID)

	orphan := &presale.Transaction{
		ReservationID: uuid.New(),
		Provider:      presale.ProviderSimulated,
		Amount:        decimal.NewFromInt(1),
		Currency:      "EUR",
		Status:        presale.TransactionPending,
	}
	assert.Error(t, store.CreateTransaction(ctx, orphan), "foreign key rejects unknown reservation")

	require.NoError(t, migrations.Down(sqlDB, 0))
	assert.False(t, db.Migrator().HasTable("transactions"))
}
