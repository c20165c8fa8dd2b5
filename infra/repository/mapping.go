package repository

import (
	"maps"

	"github.com/amirasaad/presale/pkg/domain/presale"
)

func mapProjectToDomain(m *Project) *presale.Project {
	return &presale.Project{
		ID:        m.ID,
		Name:      m.Name,
		Currency:  m.Currency,
		CreatedAt: m.CreatedAt,
	}
}

func mapUserToDomain(m *User) *presale.User {
	return &presale.User{ID: m.ID, Email: m.Email, Name: m.Name}
}

func mapRoundToDomain(m *Round) *presale.Round {
	return &presale.Round{
		ID:               m.ID,
		ProjectID:        m.ProjectID,
		GoalType:         presale.GoalType(m.GoalType),
		GoalValue:        m.GoalValue,
		DepositAmount:    m.DepositAmount,
		SlotsPerPerson:   m.SlotsPerPerson,
		DeadlineAt:       m.DeadlineAt,
		Rule:             presale.Rule(m.Rule),
		PartialThreshold: m.PartialThreshold,
		Status:           presale.RoundStatus(m.Status),
		GroupSlots:       m.GroupSlots,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func mapReservationToDomain(m *Reservation) *presale.Reservation {
	return &presale.Reservation{
		ID:        m.ID,
		RoundID:   m.RoundID,
		UserID:    m.UserID,
		Slots:     m.Slots,
		Amount:    m.Amount,
		Status:    presale.ReservationStatus(m.Status),
		TxID:      m.TxID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func mapTransactionToDomain(m *Transaction) *presale.Transaction {
	return &presale.Transaction{
		ID:            m.ID,
		ReservationID: m.ReservationID,
		Provider:      m.Provider,
		Amount:        m.Amount,
		Currency:      m.Currency,
		Status:        presale.TransactionStatus(m.Status),
		ExternalID:    m.ExternalID,
		Metadata:      maps.Clone(map[string]string(m.Metadata)),
		RawResponse:   m.RawResponse,
		ClientSecret:  m.ClientSecret,
		PayoutAt:      m.PayoutAt,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func mapTransactionToModel(tx *presale.Transaction) *Transaction {
	return &Transaction{
		ID:            tx.ID,
		ReservationID: tx.ReservationID,
		Provider:      tx.Provider,
		Amount:        tx.Amount,
		Currency:      tx.Currency,
		Status:        string(tx.Status),
		ExternalID:    tx.ExternalID,
		Metadata:      JSONMap(maps.Clone(tx.Metadata)),
		RawResponse:   tx.RawResponse,
		ClientSecret:  tx.ClientSecret,
		PayoutAt:      tx.PayoutAt,
		CreatedAt:     tx.CreatedAt,
		UpdatedAt:     tx.UpdatedAt,
	}
}

func mapWebhookToDomain(m *PaymentWebhook) *presale.WebhookEvent {
	return &presale.WebhookEvent{
		ID:            m.ID,
		Provider:      m.Provider,
		EventType:     m.EventType,
		Payload:       m.Payload,
		ReservationID: m.ReservationID,
		TransactionID: m.TransactionID,
		ReceivedAt:    m.ReceivedAt,
		ProcessedAt:   m.ProcessedAt,
		Status:        presale.WebhookStatus(m.Status),
	}
}

func mapWebhookToModel(evt *presale.WebhookEvent) *PaymentWebhook {
	return &PaymentWebhook{
		ID:            evt.ID,
		Provider:      evt.Provider,
		EventType:     evt.EventType,
		Payload:       evt.Payload,
		ReservationID: evt.ReservationID,
		TransactionID: evt.TransactionID,
		ReceivedAt:    evt.ReceivedAt,
		ProcessedAt:   evt.ProcessedAt,
		Status:        string(evt.Status),
	}
}

func stringsOf[S ~string](values []S) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
