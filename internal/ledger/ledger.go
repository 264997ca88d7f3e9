// Package ledger folds a stream of client transactions into account balances.
//
// An Engine processes one stream start to finish on a single goroutine. Rows
// are applied strictly in the order given; a row that breaks a rule is
// skipped, reported to the engine's sink, and processing carries on.
package ledger

import (
	"github.com/shopspring/decimal"
)

// TxType is the raw transaction type carried by a row.
type TxType string

const (
	TypeDeposit    TxType = "deposit"
	TypeWithdrawal TxType = "withdrawal"
	TypeDispute    TxType = "dispute"
	TypeResolve    TxType = "resolve"
	TypeChargeback TxType = "chargeback"
)

// RequiresAmount reports whether rows of this type must carry an amount.
func (t TxType) RequiresAmount() bool {
	return t == TypeDeposit || t == TypeWithdrawal
}

// Row is one decoded input record.
type Row struct {
	Type      string
	Client    uint16
	TxID      uint32
	Amount    decimal.Decimal
	HasAmount bool
}

// Transaction is a recorded deposit or withdrawal. ID, Client and Amount never
// change once recorded; Disputed follows the dispute lifecycle.
type Transaction struct {
	ID       uint32
	Client   uint16
	Amount   decimal.Decimal
	Disputed bool
}
