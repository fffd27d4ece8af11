// Package accounts holds the bank-account collection surfaced by the
// assistant's showAccounts and openAccount tools.
package accounts

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

type Kind string

const (
	KindChecking   Kind = "checking"
	KindSavings    Kind = "savings"
	KindInvestment Kind = "investment"
	KindCredit     Kind = "credit"
)

type Account struct {
	ID            string  `json:"id"`
	Type          Kind    `json:"type"`
	Name          string  `json:"name"`
	Balance       float64 `json:"balance"`
	AccountNumber string  `json:"accountNumber"`

	APY         *float64 `json:"apy,omitempty"`
	Trend       *float64 `json:"trend,omitempty"`
	CreditLimit *float64 `json:"creditLimit,omitempty"`
}

// MaskedNumber returns the display form of the account number (last 4 digits).
func (a Account) MaskedNumber() string {
	n := a.AccountNumber
	if len(n) <= 4 {
		return n
	}
	return "••••" + n[len(n)-4:]
}

// Store abstracts the account collection so the orchestration core stays
// testable without process-wide state.
type Store interface {
	List() []Account
	Add(a Account) (Account, error)
}

type MemoryStore struct {
	mu       sync.RWMutex
	accounts []Account
}

func NewMemoryStore(seed ...Account) *MemoryStore {
	return &MemoryStore{accounts: append([]Account{}, seed...)}
}

// NewSeededStore returns a store preloaded with the demo accounts.
func NewSeededStore() *MemoryStore {
	apy := 2.50
	trend := 12.5
	limit := 10000.0
	return NewMemoryStore(
		Account{ID: "1", Type: KindChecking, Name: "Essential Checking", Balance: 5420.50, AccountNumber: "1234567890"},
		Account{ID: "2", Type: KindSavings, Name: "High-Yield Savings", Balance: 12750.75, AccountNumber: "9876543210", APY: &apy},
		Account{ID: "3", Type: KindInvestment, Name: "Investment Portfolio", Balance: 45680.25, AccountNumber: "5678901234", Trend: &trend},
		Account{ID: "4", Type: KindCredit, Name: "Rewards Credit Card", Balance: 1250.00, AccountNumber: "4321098765", CreditLimit: &limit},
	)
}

func (s *MemoryStore) List() []Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Account{}, s.accounts...)
}

func (s *MemoryStore) Add(a Account) (Account, error) {
	if strings.TrimSpace(a.Name) == "" {
		return Account{}, fmt.Errorf("account name is required")
	}
	switch a.Type {
	case KindChecking, KindSavings, KindInvestment, KindCredit:
	default:
		return Account{}, fmt.Errorf("unknown account type: %q", a.Type)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(a.ID) == "" {
		a.ID = strconv.Itoa(len(s.accounts) + 1)
	}
	for _, existing := range s.accounts {
		if existing.ID == a.ID {
			return Account{}, fmt.Errorf("account %s already exists", a.ID)
		}
	}
	s.accounts = append(s.accounts, a)
	return a, nil
}
