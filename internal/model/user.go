package model

import "time"

// User is an account holding a currency balance and a spend ledger.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Money        int64     `json:"money"`
	TotalSpent   int64     `json:"total_spent"`
	CreatedAt    time.Time `json:"created_at"`
}

// Debit charges a case price against the user.
// TotalSpent always grows by the full price; Money is reduced by at most
// what is available and never pushed below zero by a debit.
func (u *User) Debit(price int64) {
	u.TotalSpent += price
	charge := price
	if u.Money < charge {
		charge = u.Money
	}
	if charge > 0 {
		u.Money -= charge
	}
}
