package shift

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/registrapos/backend/pkg/db/models"
	"github.com/registrapos/backend/pkg/enums"
)

// ClosureReport is the reconciliation of one session at close time. Expected
// cash and difference are derived here and feed nothing but the closure
// record itself.
type ClosureReport struct {
	SessionID              uuid.UUID                           `json:"session_id"`
	OpeningBalance         decimal.Decimal                     `json:"opening_balance"`
	CashFromSales          decimal.Decimal                     `json:"cash_from_sales"`
	CashFromClientPayments decimal.Decimal                     `json:"cash_from_client_payments"`
	CashToProviders        decimal.Decimal                     `json:"cash_to_providers"`
	ExpectedCash           decimal.Decimal                     `json:"expected_cash"`
	CountedCash            decimal.Decimal                     `json:"counted_cash"`
	Difference             decimal.Decimal                     `json:"difference"`
	Balanced               bool                                `json:"balanced"`
	PaymentMethodTotals    map[enums.PaymentMethod]decimal.Decimal `json:"payment_method_totals"`
	TotalSales             decimal.Decimal                     `json:"total_sales"`
	TicketCount            int                                 `json:"ticket_count"`
	AverageTicket          decimal.Decimal                     `json:"average_ticket"`
}

// Reconcile computes the closure numbers for a session from its payments and
// the physically counted cash. It mutates nothing; the caller persists the
// CLOSED transition.
//
// Expected cash is opening balance plus cash taken in at the register (order
// payments and standalone client payments) minus cash paid out to providers.
// Non-cash methods are totalled per method over all inbound payments; cash is
// reported through the expected-cash breakdown instead.
func Reconcile(session models.TerminalSession, payments []models.Payment, countedCash decimal.Decimal) ClosureReport {
	report := ClosureReport{
		SessionID:              session.ID,
		OpeningBalance:         session.OpeningBalance,
		CashFromSales:          decimal.Zero,
		CashFromClientPayments: decimal.Zero,
		CashToProviders:        decimal.Zero,
		CountedCash:            countedCash,
		PaymentMethodTotals:    map[enums.PaymentMethod]decimal.Decimal{},
		TotalSales:             decimal.Zero,
	}

	tickets := map[uuid.UUID]struct{}{}
	for _, p := range payments {
		if p.OrderID != nil {
			tickets[*p.OrderID] = struct{}{}
		}

		isCash := p.Method == enums.PaymentMethodCash
		switch {
		case isCash && p.Direction == enums.PaymentDirectionIn && p.OrderID != nil:
			report.CashFromSales = report.CashFromSales.Add(p.Amount)
		case isCash && p.Direction == enums.PaymentDirectionIn && p.Type == enums.PaymentTypeClientPayment:
			report.CashFromClientPayments = report.CashFromClientPayments.Add(p.Amount)
		case isCash && p.Direction == enums.PaymentDirectionOut && p.Type == enums.PaymentTypeProviderPayment:
			report.CashToProviders = report.CashToProviders.Add(p.Amount)
		}

		if p.Direction == enums.PaymentDirectionIn {
			report.TotalSales = report.TotalSales.Add(p.Amount)
			if !isCash {
				current, ok := report.PaymentMethodTotals[p.Method]
				if !ok {
					current = decimal.Zero
				}
				report.PaymentMethodTotals[p.Method] = current.Add(p.Amount)
			}
		}
	}

	report.ExpectedCash = session.OpeningBalance.
		Add(report.CashFromSales).
		Add(report.CashFromClientPayments).
		Sub(report.CashToProviders)
	report.Difference = countedCash.Sub(report.ExpectedCash)
	report.Balanced = report.Difference.IsZero()

	report.TicketCount = len(tickets)
	if report.TicketCount > 0 {
		report.AverageTicket = report.TotalSales.DivRound(decimal.NewFromInt(int64(report.TicketCount)), 2)
	} else {
		report.AverageTicket = decimal.Zero
	}

	return report
}
