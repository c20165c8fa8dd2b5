package repository

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Project represents a project record in the database.
type Project struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"size:255;not null"`
	Currency  string    `gorm:"type:varchar(3);not null"`
	CreatedAt time.Time
}

// User represents a buyer record in the database.
type User struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email string    `gorm:"size:255"`
	Name  string    `gorm:"size:255"`
}

// Round represents a presale round record in the database.
type Round struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ProjectID        uuid.UUID       `gorm:"type:uuid;index;not null"`
	GoalType         string          `gorm:"type:varchar(16);not null"`
	GoalValue        decimal.Decimal `gorm:"type:numeric(20,8);not null"`
	DepositAmount    decimal.Decimal `gorm:"type:numeric(20,8);not null"`
	SlotsPerPerson   int             `gorm:"not null"`
	DeadlineAt       time.Time       `gorm:"index;not null"`
	Rule             string          `gorm:"type:varchar(16);not null"`
	PartialThreshold float64         `gorm:"not null"`
	Status           string          `gorm:"type:varchar(16);index;not null"`
	GroupSlots       *int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Reservation represents a reservation record in the database.
type Reservation struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	RoundID   uuid.UUID       `gorm:"type:uuid;index;not null"`
	UserID    uuid.UUID       `gorm:"type:uuid;index;not null"`
	Slots     int             `gorm:"not null"`
	Amount    decimal.Decimal `gorm:"type:numeric(20,8);not null"`
	Status    string          `gorm:"type:varchar(16);not null"`
	TxID      *uuid.UUID      `gorm:"type:uuid"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Transaction represents a payment attempt record in the database.
type Transaction struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ReservationID uuid.UUID       `gorm:"type:uuid;index;not null"`
	Provider      string          `gorm:"type:varchar(32);not null"`
	Amount        decimal.Decimal `gorm:"type:numeric(20,8);not null"`
	Currency      string          `gorm:"type:varchar(3);not null"`
	Status        string          `gorm:"type:varchar(16);not null"`
	ExternalID    *string         `gorm:"size:255;index"`
	Metadata      JSONMap         `gorm:"type:text"`
	RawResponse   []byte
	ClientSecret  *string `gorm:"size:255"`
	PayoutAt      *time.Time
	CreatedAt     time.Time `gorm:"index"`
	UpdatedAt     time.Time
}

// PaymentWebhook represents a stored webhook delivery. ID is the provider's event id.
type PaymentWebhook struct {
	ID            string `gorm:"size:255;primaryKey"`
	Provider      string `gorm:"type:varchar(32);not null"`
	EventType     string `gorm:"size:128;not null"`
	Payload       []byte
	ReservationID *uuid.UUID `gorm:"type:uuid"`
	TransactionID *uuid.UUID `gorm:"type:uuid"`
	ReceivedAt    time.Time
	ProcessedAt   *time.Time
	Status        string `gorm:"type:varchar(16);not null"`
}

// JSONMap persists a string map as a JSON document.
type JSONMap map[string]string

// Value implements driver.Valuer.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(map[string]string(m))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (m *JSONMap) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported metadata type %T", src)
	}
	if len(data) == 0 {
		*m = nil
		return nil
	}
	out := map[string]string{}
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*m = out
	return nil
}

// Models lists every table managed by the store, in creation order.
func Models() []any {
	return []any{
		&Project{},
		&User{},
		&Round{},
		&Reservation{},
		&Transaction{},
		&PaymentWebhook{},
	}
}
