// Package repository implements pkg/repository.Store on GORM.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amirasaad/presale/pkg/domain/presale"
	"github.com/amirasaad/presale/pkg/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the GORM implementation of repository.Store.
type Store struct {
	db   *gorm.DB
	inTx bool
}

// New creates a Store on the given database handle.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

var _ repository.Store = (*Store)(nil)

// first loads a single row into dest. A missing row is reported as found=false.
func (s *Store) first(ctx context.Context, dest any, query string, args ...any) (bool, error) {
	err := s.db.WithContext(ctx).Where(query, args...).First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, MapGormErrorToDomain(err)
	}
	return true, nil
}

// guardedUpdate applies updates to the row with the given id, restricted to
// rows whose status is one of from. It reports whether a row matched.
func (s *Store) guardedUpdate(
	ctx context.Context,
	model any,
	id any,
	from []string,
	updates map[string]any,
) (bool, error) {
	q := s.db.WithContext(ctx).Model(model).Where("id = ?", id)
	if len(from) > 0 {
		q = q.Where("status IN ?", from)
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return false, MapGormErrorToDomain(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// GetProjectByID implements repository.Store.
func (s *Store) GetProjectByID(ctx context.Context, id uuid.UUID) (*presale.Project, error) {
	var m Project
	found, err := s.first(ctx, &m, "id = ?", id)
	if err != nil || !found {
		return nil, err
	}
	return mapProjectToDomain(&m), nil
}

// GetUserByID implements repository.Store.
func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (*presale.User, error) {
	var m User
	found, err := s.first(ctx, &m, "id = ?", id)
	if err != nil || !found {
		return nil, err
	}
	return mapUserToDomain(&m), nil
}

// GetRoundByID implements repository.Store.
func (s *Store) GetRoundByID(ctx context.Context, id uuid.UUID) (*presale.Round, error) {
	var m Round
	found, err := s.first(ctx, &m, "id = ?", id)
	if err != nil || !found {
		return nil, err
	}
	return mapRoundToDomain(&m), nil
}

// GetRounds implements repository.Store.
func (s *Store) GetRounds(ctx context.Context, filter repository.RoundFilter) ([]*presale.Round, error) {
	q := s.db.WithContext(ctx).Model(&Round{})
	if filter.DueBefore != nil {
		q = q.Where("deadline_at <= ?", *filter.DueBefore)
	}
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", stringsOf(filter.Statuses))
	}
	var rows []Round
	if err := q.Order("deadline_at ASC").Find(&rows).Error; err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	out := make([]*presale.Round, 0, len(rows))
	for i := range rows {
		out = append(out, mapRoundToDomain(&rows[i]))
	}
	return out, nil
}

// UpdateRound implements repository.Store.
func (s *Store) UpdateRound(
	ctx context.Context,
	id uuid.UUID,
	update repository.RoundUpdate,
) (*presale.Round, error) {
	updates := map[string]any{"updated_at": time.Now().UTC()}
	if update.Status != nil {
		updates["status"] = string(*update.Status)
	}
	if update.GroupSlots != nil {
		updates["group_slots"] = *update.GroupSlots
	}
	ok, err := s.guardedUpdate(ctx, &Round{}, id, stringsOf(update.FromStatuses), updates)
	if err != nil || !ok {
		return nil, err
	}
	return s.GetRoundByID(ctx, id)
}

// GetReservationByID implements repository.Store.
func (s *Store) GetReservationByID(ctx context.Context, id uuid.UUID) (*presale.Reservation, error) {
	var m Reservation
	found, err := s.first(ctx, &m, "id = ?", id)
	if err != nil || !found {
		return nil, err
	}
	return mapReservationToDomain(&m), nil
}

// GetReservationsByRoundID implements repository.Store.
func (s *Store) GetReservationsByRoundID(
	ctx context.Context,
	roundID uuid.UUID,
) ([]*presale.Reservation, error) {
	var rows []Reservation
	err := s.db.WithContext(ctx).
		Where("round_id = ?", roundID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	out := make([]*presale.Reservation, 0, len(rows))
	for i := range rows {
		out = append(out, mapReservationToDomain(&rows[i]))
	}
	return out, nil
}

// UpdateReservation implements repository.Store.
func (s *Store) UpdateReservation(
	ctx context.Context,
	id uuid.UUID,
	update repository.ReservationUpdate,
) (*presale.Reservation, error) {
	updates := map[string]any{"updated_at": time.Now().UTC()}
	if update.Status != nil {
		updates["status"] = string(*update.Status)
	}
	if update.TxID != nil {
		updates["tx_id"] = *update.TxID
	}
	ok, err := s.guardedUpdate(ctx, &Reservation{}, id, stringsOf(update.FromStatuses), updates)
	if err != nil || !ok {
		return nil, err
	}
	return s.GetReservationByID(ctx, id)
}

// CreateTransaction implements repository.Store.
func (s *Store) CreateTransaction(ctx context.Context, tx *presale.Transaction) error {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	m := mapTransactionToModel(tx)
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("create transaction: %w", MapGormErrorToDomain(err))
	}
	tx.CreatedAt = m.CreatedAt
	tx.UpdatedAt = m.UpdatedAt
	return nil
}

// GetTransactionByID implements repository.Store.
func (s *Store) GetTransactionByID(ctx context.Context, id uuid.UUID) (*presale.Transaction, error) {
	var m Transaction
	found, err := s.first(ctx, &m, "id = ?", id)
	if err != nil || !found {
		return nil, err
	}
	return mapTransactionToDomain(&m), nil
}

// GetTransactionByReservationID implements repository.Store.
func (s *Store) GetTransactionByReservationID(
	ctx context.Context,
	reservationID uuid.UUID,
) (*presale.Transaction, error) {
	var rows []Transaction
	err := s.db.WithContext(ctx).
		Where("reservation_id = ?", reservationID).
		Order("created_at DESC").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return mapTransactionToDomain(&rows[0]), nil
}

// GetTransactionByExternalID implements repository.Store.
func (s *Store) GetTransactionByExternalID(
	ctx context.Context,
	provider, externalID string,
) (*presale.Transaction, error) {
	var m Transaction
	found, err := s.first(ctx, &m, "provider = ? AND external_id = ?", provider, externalID)
	if err != nil || !found {
		return nil, err
	}
	return mapTransactionToDomain(&m), nil
}

// GetTransactions implements repository.Store.
func (s *Store) GetTransactions(
	ctx context.Context,
	filter repository.TransactionFilter,
) ([]*presale.Transaction, error) {
	q := s.db.WithContext(ctx).Model(&Transaction{})
	if filter.ReservationIDs != nil {
		if len(filter.ReservationIDs) == 0 {
			return nil, nil
		}
		q = q.Where("reservation_id IN ?", filter.ReservationIDs)
	}
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", stringsOf(filter.Statuses))
	}
	var rows []Transaction
	if err := q.Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	out := make([]*presale.Transaction, 0, len(rows))
	for i := range rows {
		out = append(out, mapTransactionToDomain(&rows[i]))
	}
	return out, nil
}

// UpdateTransaction implements repository.Store.
func (s *Store) UpdateTransaction(
	ctx context.Context,
	id uuid.UUID,
	update repository.TransactionUpdate,
) (*presale.Transaction, error) {
	updates := map[string]any{"updated_at": time.Now().UTC()}
	if update.Status != nil {
		updates["status"] = string(*update.Status)
	}
	if update.ExternalID != nil {
		updates["external_id"] = *update.ExternalID
	}
	if update.ClientSecret != nil {
		updates["client_secret"] = *update.ClientSecret
	}
	if update.RawResponse != nil {
		updates["raw_response"] = update.RawResponse
	}
	if update.Metadata != nil {
		updates["metadata"] = JSONMap(update.Metadata)
	}
	if update.PayoutAt != nil {
		updates["payout_at"] = *update.PayoutAt
	}
	ok, err := s.guardedUpdate(ctx, &Transaction{}, id, stringsOf(update.FromStatuses), updates)
	if err != nil || !ok {
		return nil, err
	}
	return s.GetTransactionByID(ctx, id)
}

// GetPaymentWebhookByID implements repository.Store.
func (s *Store) GetPaymentWebhookByID(ctx context.Context, id string) (*presale.WebhookEvent, error) {
	var m PaymentWebhook
	found, err := s.first(ctx, &m, "id = ?", id)
	if err != nil || !found {
		return nil, err
	}
	return mapWebhookToDomain(&m), nil
}

// CreatePaymentWebhook implements repository.Store.
func (s *Store) CreatePaymentWebhook(ctx context.Context, evt *presale.WebhookEvent) error {
	if err := s.db.WithContext(ctx).Create(mapWebhookToModel(evt)).Error; err != nil {
		return fmt.Errorf("create payment webhook: %w", MapGormErrorToDomain(err))
	}
	return nil
}

// UpsertPaymentWebhook implements repository.Store.
func (s *Store) UpsertPaymentWebhook(
	ctx context.Context,
	evt *presale.WebhookEvent,
) (*presale.WebhookEvent, error) {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: append(clause.AssignmentColumns([]string{
			"provider",
			"event_type",
			"payload",
			"received_at",
		}), keepStored("reservation_id"), keepStored("transaction_id")),
	}).Create(mapWebhookToModel(evt)).Error
	if err != nil {
		return nil, fmt.Errorf("upsert payment webhook: %w", MapGormErrorToDomain(err))
	}
	return s.GetPaymentWebhookByID(ctx, evt.ID)
}

// keepStored assigns the incoming value only when the stored column is null.
func keepStored(column string) clause.Assignment {
	return clause.Assignment{
		Column: clause.Column{Name: column},
		Value:  gorm.Expr(fmt.Sprintf("COALESCE(payment_webhooks.%[1]s, excluded.%[1]s)", column)),
	}
}

// UpdatePaymentWebhook implements repository.Store.
func (s *Store) UpdatePaymentWebhook(
	ctx context.Context,
	id string,
	update repository.WebhookUpdate,
) (*presale.WebhookEvent, error) {
	updates := map[string]any{}
	if update.Status != nil {
		updates["status"] = string(*update.Status)
	}
	if update.ProcessedAt != nil {
		updates["processed_at"] = *update.ProcessedAt
	}
	if update.ReservationID != nil {
		updates["reservation_id"] = *update.ReservationID
	}
	if update.TransactionID != nil {
		updates["transaction_id"] = *update.TransactionID
	}
	if len(updates) == 0 {
		return s.GetPaymentWebhookByID(ctx, id)
	}
	ok, err := s.guardedUpdate(ctx, &PaymentWebhook{}, id, stringsOf(update.FromStatuses), updates)
	if err != nil || !ok {
		return nil, err
	}
	return s.GetPaymentWebhookByID(ctx, id)
}
