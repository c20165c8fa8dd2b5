// Package fixtures provides in-memory test doubles and builders for the
// presale entities.
package fixtures

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/amirasaad/presale/pkg/domain"
	"github.com/amirasaad/presale/pkg/domain/presale"
	"github.com/amirasaad/presale/pkg/repository"
	"github.com/google/uuid"
)

// Store is a thread-safe in-memory repository.Store. Status guards are
// honored the same way the SQL store honors them.
type Store struct {
	mu           sync.Mutex
	projects     map[uuid.UUID]*presale.Project
	users        map[uuid.UUID]*presale.User
	rounds       map[uuid.UUID]*presale.Round
	reservations map[uuid.UUID]*presale.Reservation
	transactions map[uuid.UUID]*presale.Transaction
	webhooks     map[string]*presale.WebhookEvent

	// FailOn makes the named method return the error. Keys are method names.
	FailOn map[string]error
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		projects:     make(map[uuid.UUID]*presale.Project),
		users:        make(map[uuid.UUID]*presale.User),
		rounds:       make(map[uuid.UUID]*presale.Round),
		reservations: make(map[uuid.UUID]*presale.Reservation),
		transactions: make(map[uuid.UUID]*presale.Transaction),
		webhooks:     make(map[string]*presale.WebhookEvent),
		FailOn:       make(map[string]error),
	}
}

func (s *Store) fail(method string) error {
	return s.FailOn[method]
}

// Do runs fn against the same store. Writes are not rolled back on error.
func (s *Store) Do(_ context.Context, fn func(repository.Store) error) error {
	if err := s.fail("Do"); err != nil {
		return err
	}
	return fn(s)
}

// PutProject stores a copy of p.
func (s *Store) PutProject(p *presale.Project) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.projects[p.ID] = &cp
}

// PutUser stores a copy of u.
func (s *Store) PutUser(u *presale.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.users[u.ID] = &cp
}

// PutRound stores a copy of r.
func (s *Store) PutRound(r *presale.Round) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rounds[r.ID] = cloneRound(r)
}

// PutReservation stores a copy of r.
func (s *Store) PutReservation(r *presale.Reservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reservations[r.ID] = cloneReservation(r)
}

// PutTransaction stores a copy of tx.
func (s *Store) PutTransaction(tx *presale.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions[tx.ID] = cloneTransaction(tx)
}

// Transactions returns copies of every stored transaction ordered by creation.
func (s *Store) Transactions() []*presale.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*presale.Transaction, 0, len(s.transactions))
	for _, tx := range s.transactions {
		out = append(out, cloneTransaction(tx))
	}
	sortTransactions(out)
	return out
}

// Webhooks returns copies of every stored webhook.
func (s *Store) Webhooks() []*presale.WebhookEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*presale.WebhookEvent, 0, len(s.webhooks))
	for _, w := range s.webhooks {
		out = append(out, cloneWebhook(w))
	}
	return out
}

func (s *Store) GetProjectByID(_ context.Context, id uuid.UUID) (*presale.Project, error) {
	if err := s.fail("GetProjectByID"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (s *Store) GetUserByID(_ context.Context, id uuid.UUID) (*presale.User, error) {
	if err := s.fail("GetUserByID"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (s *Store) GetRoundByID(_ context.Context, id uuid.UUID) (*presale.Round, error) {
	if err := s.fail("GetRoundByID"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rounds[id]
	if !ok {
		return nil, nil
	}
	return cloneRound(r), nil
}

func (s *Store) GetRounds(_ context.Context, filter repository.RoundFilter) ([]*presale.Round, error) {
	if err := s.fail("GetRounds"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*presale.Round
	for _, r := range s.rounds {
		if filter.DueBefore != nil && r.DeadlineAt.After(*filter.DueBefore) {
			continue
		}
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, r.Status) {
			continue
		}
		out = append(out, cloneRound(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeadlineAt.Before(out[j].DeadlineAt) })
	return out, nil
}

func (s *Store) UpdateRound(_ context.Context, id uuid.UUID, u repository.RoundUpdate) (*presale.Round, error) {
	if err := s.fail("UpdateRound"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rounds[id]
	if !ok || !allowed(u.FromStatuses, r.Status) {
		return nil, nil
	}
	if u.Status != nil {
		r.Status = *u.Status
	}
	if u.GroupSlots != nil {
		v := *u.GroupSlots
		r.GroupSlots = &v
	}
	r.UpdatedAt = time.Now().UTC()
	return cloneRound(r), nil
}

func (s *Store) GetReservationByID(_ context.Context, id uuid.UUID) (*presale.Reservation, error) {
	if err := s.fail("GetReservationByID"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	if !ok {
		return nil, nil
	}
	return cloneReservation(r), nil
}

func (s *Store) GetReservationsByRoundID(_ context.Context, roundID uuid.UUID) ([]*presale.Reservation, error) {
	if err := s.fail("GetReservationsByRoundID"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*presale.Reservation
	for _, r := range s.reservations {
		if r.RoundID == roundID {
			out = append(out, cloneReservation(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdateReservation(
	_ context.Context,
	id uuid.UUID,
	u repository.ReservationUpdate,
) (*presale.Reservation, error) {
	if err := s.fail("UpdateReservation"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	if !ok || !allowed(u.FromStatuses, r.Status) {
		return nil, nil
	}
	if u.Status != nil {
		r.Status = *u.Status
	}
	if u.TxID != nil {
		v := *u.TxID
		r.TxID = &v
	}
	r.UpdatedAt = time.Now().UTC()
	return cloneReservation(r), nil
}

func (s *Store) CreateTransaction(_ context.Context, tx *presale.Transaction) error {
	if err := s.fail("CreateTransaction"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.transactions[tx.ID]; exists {
		return domain.ErrAlreadyExists
	}
	cp := cloneTransaction(tx)
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	cp.UpdatedAt = cp.CreatedAt
	s.transactions[tx.ID] = cp
	return nil
}

func (s *Store) GetTransactionByID(_ context.Context, id uuid.UUID) (*presale.Transaction, error) {
	if err := s.fail("GetTransactionByID"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[id]
	if !ok {
		return nil, nil
	}
	return cloneTransaction(tx), nil
}

func (s *Store) GetTransactionByReservationID(
	_ context.Context,
	reservationID uuid.UUID,
) (*presale.Transaction, error) {
	if err := s.fail("GetTransactionByReservationID"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *presale.Transaction
	for _, tx := range s.transactions {
		if tx.ReservationID != reservationID {
			continue
		}
		if latest == nil || tx.CreatedAt.After(latest.CreatedAt) {
			latest = tx
		}
	}
	if latest == nil {
		return nil, nil
	}
	return cloneTransaction(latest), nil
}

func (s *Store) GetTransactionByExternalID(
	_ context.Context,
	provider, externalID string,
) (*presale.Transaction, error) {
	if err := s.fail("GetTransactionByExternalID"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tx := range s.transactions {
		if tx.Provider == provider && tx.ExternalID != nil && *tx.ExternalID == externalID {
			return cloneTransaction(tx), nil
		}
	}
	return nil, nil
}

func (s *Store) GetTransactions(
	_ context.Context,
	filter repository.TransactionFilter,
) ([]*presale.Transaction, error) {
	if err := s.fail("GetTransactions"); err != nil {
		return nil, err
	}
	if filter.ReservationIDs != nil && len(filter.ReservationIDs) == 0 {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*presale.Transaction
	for _, tx := range s.transactions {
		if filter.ReservationIDs != nil && !slices.Contains(filter.ReservationIDs, tx.ReservationID) {
			continue
		}
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, tx.Status) {
			continue
		}
		out = append(out, cloneTransaction(tx))
	}
	sortTransactions(out)
	return out, nil
}

func (s *Store) UpdateTransaction(
	_ context.Context,
	id uuid.UUID,
	u repository.TransactionUpdate,
) (*presale.Transaction, error) {
	if err := s.fail("UpdateTransaction"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[id]
	if !ok || !allowed(u.FromStatuses, tx.Status) {
		return nil, nil
	}
	if u.Status != nil {
		tx.Status = *u.Status
	}
	if u.ExternalID != nil {
		v := *u.ExternalID
		tx.ExternalID = &v
	}
	if u.ClientSecret != nil {
		v := *u.ClientSecret
		tx.ClientSecret = &v
	}
	if u.RawResponse != nil {
		tx.RawResponse = slices.Clone(u.RawResponse)
	}
	if u.Metadata != nil {
		tx.Metadata = maps.Clone(u.Metadata)
	}
	if u.PayoutAt != nil {
		v := *u.PayoutAt
		tx.PayoutAt = &v
	}
	tx.UpdatedAt = time.Now().UTC()
	return cloneTransaction(tx), nil
}

func (s *Store) GetPaymentWebhookByID(_ context.Context, id string) (*presale.WebhookEvent, error) {
	if err := s.fail("GetPaymentWebhookByID"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.webhooks[id]
	if !ok {
		return nil, nil
	}
	return cloneWebhook(w), nil
}

func (s *Store) CreatePaymentWebhook(_ context.Context, evt *presale.WebhookEvent) error {
	if err := s.fail("CreatePaymentWebhook"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.webhooks[evt.ID]; exists {
		return domain.ErrAlreadyExists
	}
	s.webhooks[evt.ID] = cloneWebhook(evt)
	return nil
}

func (s *Store) UpsertPaymentWebhook(_ context.Context, evt *presale.WebhookEvent) (*presale.WebhookEvent, error) {
	if err := s.fail("UpsertPaymentWebhook"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.webhooks[evt.ID]
	if !ok {
		s.webhooks[evt.ID] = cloneWebhook(evt)
		return cloneWebhook(evt), nil
	}
	existing.Provider = evt.Provider
	existing.EventType = evt.EventType
	existing.Payload = slices.Clone(evt.Payload)
	if existing.ReservationID == nil {
		existing.ReservationID = evt.ReservationID
	}
	if existing.TransactionID == nil {
		existing.TransactionID = evt.TransactionID
	}
	existing.ReceivedAt = evt.ReceivedAt
	return cloneWebhook(existing), nil
}

func (s *Store) UpdatePaymentWebhook(
	_ context.Context,
	id string,
	u repository.WebhookUpdate,
) (*presale.WebhookEvent, error) {
	if err := s.fail("UpdatePaymentWebhook"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.webhooks[id]
	if !ok || !allowed(u.FromStatuses, w.Status) {
		return nil, nil
	}
	if u.Status != nil {
		w.Status = *u.Status
	}
	if u.ProcessedAt != nil {
		v := *u.ProcessedAt
		w.ProcessedAt = &v
	}
	if u.ReservationID != nil {
		v := *u.ReservationID
		w.ReservationID = &v
	}
	if u.TransactionID != nil {
		v := *u.TransactionID
		w.TransactionID = &v
	}
	return cloneWebhook(w), nil
}

func allowed[S comparable](from []S, current S) bool {
	return len(from) == 0 || slices.Contains(from, current)
}

func sortTransactions(txs []*presale.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].CreatedAt.Before(txs[j].CreatedAt) })
}

func cloneRound(r *presale.Round) *presale.Round {
	cp := *r
	if r.GroupSlots != nil {
		v := *r.GroupSlots
		cp.GroupSlots = &v
	}
	return &cp
}

func cloneReservation(r *presale.Reservation) *presale.Reservation {
	cp := *r
	if r.TxID != nil {
		v := *r.TxID
		cp.TxID = &v
	}
	return &cp
}

func cloneTransaction(tx *presale.Transaction) *presale.Transaction {
	cp := *tx
	cp.Metadata = maps.Clone(tx.Metadata)
	cp.RawResponse = slices.Clone(tx.RawResponse)
	if tx.ExternalID != nil {
		v := *tx.ExternalID
		cp.ExternalID = &v
	}
	if tx.ClientSecret != nil {
		v := *tx.ClientSecret
		cp.ClientSecret = &v
	}
	return &cp
}

func cloneWebhook(w *presale.WebhookEvent) *presale.WebhookEvent {
	cp := *w
	cp.Payload = slices.Clone(w.Payload)
	return &cp
}

var _ repository.Store = (*Store)(nil)
