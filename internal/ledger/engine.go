package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/txengine/internal/events"
	"github.com/congo-pay/txengine/internal/money"
)

// Engine owns the account table and transaction history for one pass. It is
// not safe for concurrent use; run one engine per stream and merge afterwards.
type Engine struct {
	accounts map[uint16]*Account
	history  map[uint32]*Transaction
	sink     events.Sink
	next     int
}

// New creates an empty engine reporting rejections to sink. A nil sink
// discards them.
func New(sink events.Sink) *Engine {
	if sink == nil {
		sink = events.Nop
	}
	return &Engine{
		accounts: make(map[uint16]*Account),
		history:  make(map[uint32]*Transaction),
		sink:     sink,
	}
}

// Apply folds the next row of the stream into the ledger. It returns nil when
// the row is accepted and the reported events.Event when it is rejected; a
// rejection has already been recorded on the sink and leaves state untouched.
func (e *Engine) Apply(row Row) error {
	return e.ApplyAt(e.next, row)
}

// ApplyAt is Apply for hosts that skip rows upstream and need the row index
// reported for an unrecognised type to match the source. Later calls to Apply
// continue from index+1.
func (e *Engine) ApplyAt(index int, row Row) error {
	e.next = index + 1

	t := TxType(row.Type)
	if t.RequiresAmount() && !row.HasAmount {
		return e.report(events.ExternalErr(fmt.Sprintf("row %d: %s %d has no amount", index, row.Type, row.TxID)))
	}

	switch t {
	case TypeDeposit:
		return e.deposit(row)
	case TypeWithdrawal:
		return e.withdraw(row)
	case TypeDispute:
		return e.dispute(row)
	case TypeResolve:
		return e.resolve(row)
	case TypeChargeback:
		return e.chargeback(row)
	default:
		return e.report(events.UnrecognisedTx(index, row.Type))
	}
}

func (e *Engine) deposit(row Row) error {
	amount := money.Round(row.Amount)
	if err := e.checkNew(row.TxID, amount); err != nil {
		return err
	}

	e.account(row.Client).Deposit(amount)
	e.record(row, amount)
	return nil
}

func (e *Engine) withdraw(row Row) error {
	amount := money.Round(row.Amount)
	if err := e.checkNew(row.TxID, amount); err != nil {
		return err
	}

	acct := e.account(row.Client)
	if amount.GreaterThan(acct.Available) {
		return e.report(events.InsufficientFunds(row.Client, row.TxID))
	}

	acct.Withdraw(amount)
	e.record(row, amount)
	return nil
}

// checkNew runs the checks shared by rows that create history. The duplicate
// check comes before any funds check so a replayed id can never spend twice.
func (e *Engine) checkNew(id uint32, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return e.report(events.AmountNegative(id))
	}
	if _, exists := e.history[id]; exists {
		return e.report(events.TxIDExists(id))
	}
	return nil
}

func (e *Engine) dispute(row Row) error {
	tx, ok := e.history[row.TxID]
	if !ok || tx.Client != row.Client {
		return e.report(events.TxNotFound(row.TxID))
	}

	// A transaction already under dispute is held again; there is no guard.
	tx.Disputed = true
	e.account(row.Client).Withhold(tx.Amount)
	return nil
}

func (e *Engine) resolve(row Row) error {
	tx, ok := e.history[row.TxID]
	if !ok || tx.Client != row.Client {
		return e.report(events.TxNotFound(row.TxID))
	}
	if !tx.Disputed {
		return e.report(events.TxNotDisputed(row.TxID))
	}

	e.account(row.Client).ReleaseHeld(tx.Amount)
	tx.Disputed = false
	return nil
}

func (e *Engine) chargeback(row Row) error {
	tx, ok := e.history[row.TxID]
	if !ok {
		return e.report(events.TxNotFound(row.TxID))
	}
	if tx.Client != row.Client {
		return e.report(events.UnauthorisedTx(row.Client, row.TxID))
	}
	if !tx.Disputed {
		return e.report(events.TxNotDisputed(row.TxID))
	}

	acct := e.account(row.Client)
	acct.Charge(tx.Amount)
	acct.Lock()
	tx.Disputed = false
	return nil
}

func (e *Engine) account(client uint16) *Account {
	acct, ok := e.accounts[client]
	if !ok {
		a := NewAccount()
		acct = &a
		e.accounts[client] = acct
	}
	return acct
}

func (e *Engine) record(row Row, amount decimal.Decimal) {
	e.history[row.TxID] = &Transaction{ID: row.TxID, Client: row.Client, Amount: amount}
}

func (e *Engine) report(ev events.Event) error {
	e.sink.Record(ev)
	return ev
}

// Accounts returns a copy of the account table.
func (e *Engine) Accounts() map[uint16]Account {
	out := make(map[uint16]Account, len(e.accounts))
	for id, acct := range e.accounts {
		out[id] = *acct
	}
	return out
}

// Account returns a copy of one client's account.
func (e *Engine) Account(client uint16) (Account, bool) {
	acct, ok := e.accounts[client]
	if !ok {
		return Account{}, false
	}
	return *acct, true
}

// Transaction returns a copy of a recorded transaction.
func (e *Engine) Transaction(id uint32) (Transaction, bool) {
	tx, ok := e.history[id]
	if !ok {
		return Transaction{}, false
	}
	return *tx, true
}

// Len is the number of recorded transactions.
func (e *Engine) Len() int {
	return len(e.history)
}
