package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/congo-pay/txengine/internal/money"
)

// Account holds the balances of one client. Every amount is rounded to
// money.Places before it touches a balance.
type Account struct {
	Available decimal.Decimal
	Held      decimal.Decimal
	Locked    bool
}

// NewAccount returns a zero-balance, unlocked account.
func NewAccount() Account {
	return Account{Available: money.Zero, Held: money.Zero}
}

// Total is available plus held funds.
func (a Account) Total() decimal.Decimal {
	return a.Available.Add(a.Held)
}

// Deposit credits the available balance.
func (a *Account) Deposit(amount decimal.Decimal) {
	a.Available = a.Available.Add(money.Round(amount))
}

// Withdraw debits the available balance. The caller checks funds.
func (a *Account) Withdraw(amount decimal.Decimal) {
	a.Available = a.Available.Sub(money.Round(amount))
}

// Withhold moves funds from available to held.
func (a *Account) Withhold(amount decimal.Decimal) {
	amount = money.Round(amount)
	a.Available = a.Available.Sub(amount)
	a.Held = a.Held.Add(amount)
}

// ReleaseHeld moves funds from held back to available.
func (a *Account) ReleaseHeld(amount decimal.Decimal) {
	amount = money.Round(amount)
	a.Available = a.Available.Add(amount)
	a.Held = a.Held.Sub(amount)
}

// Charge removes funds from held for good.
func (a *Account) Charge(amount decimal.Decimal) {
	a.Held = a.Held.Sub(money.Round(amount))
}

// Lock freezes the account after a chargeback.
func (a *Account) Lock() {
	a.Locked = true
}
