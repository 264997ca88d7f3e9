// Package events defines the outcomes reported while a transaction stream is
// processed, and the sinks that observe them.
//
// Accepted rows are silent. Each rejected row yields exactly one event, and
// the lifecycle of a pass is bracketed by StartOfLogger and ProcessComplete.
package events

import "fmt"

// Kind names an event variant.
type Kind string

const (
	KindStartOfLogger     Kind = "start_of_logger"
	KindProcessComplete   Kind = "process_complete"
	KindExternalErr       Kind = "external_error"
	KindAmountNegative    Kind = "amount_negative"
	KindTxIDExists        Kind = "tx_id_exists"
	KindTxNotFound        Kind = "tx_not_found"
	KindUnrecognisedTx    Kind = "unrecognised_tx"
	KindInsufficientFunds Kind = "insufficient_funds"
	KindTxNotDisputed     Kind = "tx_not_disputed"
	KindUnauthorisedTx    Kind = "unauthorised_tx"
)

// Event is a single outcome. Only the fields meaningful for its Kind are set,
// so two events built by the same constructor with the same arguments compare
// equal with ==.
type Event struct {
	Kind   Kind   `json:"kind"`
	Client uint16 `json:"client,omitempty"`
	TxID   uint32 `json:"tx,omitempty"`
	Row    int    `json:"row,omitempty"`
	TxType string `json:"type,omitempty"`
	Detail string `json:"detail,omitempty"`
}

func StartOfLogger() Event   { return Event{Kind: KindStartOfLogger} }
func ProcessComplete() Event { return Event{Kind: KindProcessComplete} }

// ExternalErr wraps a failure that did not come from ledger rules, such as an
// unreadable source or a row the parser could not decode.
func ExternalErr(detail string) Event {
	return Event{Kind: KindExternalErr, Detail: detail}
}

func AmountNegative(tx uint32) Event { return Event{Kind: KindAmountNegative, TxID: tx} }
func TxIDExists(tx uint32) Event     { return Event{Kind: KindTxIDExists, TxID: tx} }
func TxNotFound(tx uint32) Event     { return Event{Kind: KindTxNotFound, TxID: tx} }
func TxNotDisputed(tx uint32) Event  { return Event{Kind: KindTxNotDisputed, TxID: tx} }

func InsufficientFunds(client uint16, tx uint32) Event {
	return Event{Kind: KindInsufficientFunds, Client: client, TxID: tx}
}

func UnauthorisedTx(client uint16, tx uint32) Event {
	return Event{Kind: KindUnauthorisedTx, Client: client, TxID: tx}
}

// UnrecognisedTx reports a row whose type string is not one of the five known
// transaction types. row is the 0-based data row index.
func UnrecognisedTx(row int, txType string) Event {
	return Event{Kind: KindUnrecognisedTx, Row: row, TxType: txType}
}

// IsRejection reports whether the event stands for a skipped row.
func (e Event) IsRejection() bool {
	switch e.Kind {
	case KindStartOfLogger, KindProcessComplete, KindExternalErr:
		return false
	default:
		return true
	}
}

// Message renders the operator-facing description of the event.
func (e Event) Message() string {
	switch e.Kind {
	case KindStartOfLogger:
		return "event logger created"
	case KindProcessComplete:
		return "process completed"
	case KindExternalErr:
		return e.Detail
	case KindAmountNegative:
		return fmt.Sprintf("transaction %d has a negative amount", e.TxID)
	case KindTxIDExists:
		return fmt.Sprintf("transaction id %d already exists", e.TxID)
	case KindTxNotFound:
		return fmt.Sprintf("transaction %d not found", e.TxID)
	case KindUnrecognisedTx:
		return fmt.Sprintf("row %d: %q is not a recognised transaction type", e.Row, e.TxType)
	case KindInsufficientFunds:
		return fmt.Sprintf("client %d has insufficient funds for transaction %d", e.Client, e.TxID)
	case KindTxNotDisputed:
		return fmt.Sprintf("transaction %d is not under dispute", e.TxID)
	case KindUnauthorisedTx:
		return fmt.Sprintf("client %d cannot reference transaction %d it does not own", e.Client, e.TxID)
	default:
		return string(e.Kind)
	}
}

// Error lets an event travel as an error value.
func (e Event) Error() string {
	return e.Message()
}

func (e Event) String() string {
	return string(e.Kind) + ": " + e.Message()
}
