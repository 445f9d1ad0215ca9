// Package account registers users and checks their credentials.
//
// Credentials are stored and compared in plain text.
package account

import (
	"context"
	"strings"
	"sync"

	"github.com/go-faster/errors"
)

var (
	ErrEmailRequired     = errors.New("email required")
	ErrUserExists        = errors.New("user already exists")
	ErrEmailNotFound     = errors.New("email not found")
	ErrIncorrectPassword = errors.New("incorrect password")
)

// Account is a registered user.
type Account struct {
	Email    string
	Password string
}

// RecordSet is the persisted collection of accounts.
type RecordSet interface {
	Load(ctx context.Context) ([]Account, error)
	Replace(ctx context.Context, accounts []Account) error
}

// Registry implements sign-up and login over a RecordSet.
type Registry struct {
	records RecordSet
	mu      sync.Mutex
}

func NewRegistry(records RecordSet) *Registry {
	return &Registry{records: records}
}

func (r *Registry) load(ctx context.Context) ([]Account, error) {
	accounts, err := r.records.Load(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load accounts")
	}
	return accounts, nil
}

// SignUp registers a new account. Emails are unique.
func (r *Registry) SignUp(ctx context.Context, email, password string) (*Account, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, ErrEmailRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	accounts, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	if find(accounts, email) >= 0 {
		return nil, ErrUserExists
	}
	a := Account{Email: email, Password: password}
	if err := r.records.Replace(ctx, append(accounts, a)); err != nil {
		return nil, errors.Wrap(err, "replace accounts")
	}
	return &a, nil
}

// Login checks the password of an existing account.
func (r *Registry) Login(ctx context.Context, email, password string) (*Account, error) {
	accounts, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	i := find(accounts, strings.TrimSpace(email))
	if i < 0 {
		return nil, ErrEmailNotFound
	}
	if accounts[i].Password != password {
		return nil, ErrIncorrectPassword
	}
	return &accounts[i], nil
}

func find(accounts []Account, email string) int {
	if email == "" {
		return -1
	}
	for i, a := range accounts {
		if a.Email == email {
			return i
		}
	}
	return -1
}
