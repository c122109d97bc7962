package shift

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/registrapos/backend/pkg/db"
	"github.com/registrapos/backend/pkg/db/models"
	"github.com/registrapos/backend/pkg/enums"
	pkgerrors "github.com/registrapos/backend/pkg/errors"
	"github.com/registrapos/backend/pkg/logger"
	"github.com/registrapos/backend/pkg/metrics"
)

// Service defines the lifecycle of a terminal session: open once, record
// payments while open, close once with a physical cash count.
type Service interface {
	Open(ctx context.Context, input OpenSessionInput) (*models.TerminalSession, error)
	Get(ctx context.Context, id uuid.UUID) (*models.TerminalSession, error)
	RecordPayment(ctx context.Context, input RecordPaymentInput) (*models.Payment, error)
	Close(ctx context.Context, input CloseSessionInput) (*ClosureReport, error)
}

type service struct {
	repo    Repository
	client  *db.Client
	logg    *logger.Logger
	metrics *metrics.RegisterMetrics
}

// OpenSessionInput captures the data needed to start a shift.
type OpenSessionInput struct {
	TerminalID     uuid.UUID       `json:"terminal_id"`
	LocationID     uuid.UUID       `json:"location_id"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

// RecordPaymentInput captures one cash-flow event against an open session.
type RecordPaymentInput struct {
	SessionID uuid.UUID              `json:"session_id"`
	OrderID   *uuid.UUID             `json:"order_id"`
	Method    enums.PaymentMethod    `json:"method"`
	Direction enums.PaymentDirection `json:"direction"`
	Type      enums.PaymentType      `json:"type"`
	Amount    decimal.Decimal        `json:"amount"`
}

// CloseSessionInput carries the counted cash for closure. CountedCash is a
// pointer so a missing count is distinguishable from an entered zero.
type CloseSessionInput struct {
	SessionID   uuid.UUID        `json:"session_id"`
	CountedCash *decimal.Decimal `json:"counted_cash"`
}

// NewService wires a session service with its repository and collaborators.
func NewService(repo Repository, client *db.Client, logg *logger.Logger, m *metrics.RegisterMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("session repository required")
	}
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, client: client, logg: logg, metrics: m}, nil
}

func (s *service) Open(ctx context.Context, input OpenSessionInput) (*models.TerminalSession, error) {
	if input.TerminalID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "terminal id is required")
	}
	if input.LocationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "location id is required")
	}
	if input.OpeningBalance.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "opening balance cannot be negative")
	}

	existing, err := s.repo.FindOpenByTerminal(ctx, input.TerminalID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "terminal already has an open session").
			WithDetails(map[string]any{"session_id": existing.ID})
	}

	session := &models.TerminalSession{
		TerminalID:     input.TerminalID,
		LocationID:     input.LocationID,
		OpeningBalance: input.OpeningBalance,
		Status:         enums.SessionStatusOpen,
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithSessionID(ctx, session.ID.String()), "terminal session opened")
	return session, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.TerminalSession, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	return s.repo.GetSession(ctx, id)
}

// RecordPayment posts a payment against an open session. Closed sessions
// reject new payments outright.
func (s *service) RecordPayment(ctx context.Context, input RecordPaymentInput) (*models.Payment, error) {
	if input.SessionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", input.Method))
	}
	if !input.Direction.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment direction %q", input.Direction))
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment type %q", input.Type))
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}

	var payment *models.Payment
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		session, err := repo.GetSession(ctx, input.SessionID)
		if err != nil {
			return err
		}
		if session.Status != enums.SessionStatusOpen {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "session is closed")
		}

		payment = &models.Payment{
			SessionID: session.ID,
			OrderID:   input.OrderID,
			Method:    input.Method,
			Direction: input.Direction,
			Type:      input.Type,
			Amount:    input.Amount,
		}
		return repo.CreatePayment(ctx, payment)
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// Close reconciles and terminates a session. The counted cash is mandatory;
// closing twice is a state conflict. The whole transition runs in one
// transaction so the closure numbers always match the payments they were
// computed from.
func (s *service) Close(ctx context.Context, input CloseSessionInput) (*ClosureReport, error) {
	if input.SessionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	if input.CountedCash == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "counted cash is required to close a session")
	}

	var report ClosureReport
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		session, err := repo.GetSession(ctx, input.SessionID)
		if err != nil {
			return err
		}
		if session.Status != enums.SessionStatusOpen {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "session is already closed")
		}

		payments, err := repo.ListPayments(ctx, session.ID)
		if err != nil {
			return err
		}

		report = Reconcile(*session, payments, *input.CountedCash)

		now := time.Now().UTC()
		counted := *input.CountedCash
		expected := report.ExpectedCash
		difference := report.Difference
		session.Status = enums.SessionStatusClosed
		session.ClosedAt = &now
		session.ClosingBalance = &counted
		session.ExpectedCash = &expected
		session.Difference = &difference
		return repo.UpdateSession(ctx, session)
	})
	if err != nil {
		return nil, err
	}

	outcome := "off"
	if report.Balanced {
		outcome = "balanced"
	}
	s.metrics.IncSessionClosed(outcome)
	s.logg.Info(s.logg.WithSessionID(ctx, input.SessionID.String()), "terminal session closed")
	return &report, nil
}
