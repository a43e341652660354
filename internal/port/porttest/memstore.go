// Package porttest provides an in-memory port.Store for tests.
package porttest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yourname/debtbook-bot/internal/domain"
	"github.com/yourname/debtbook-bot/internal/port"
)

// MemStore keeps everything in maps guarded by one mutex. InTx restores
// the previous state when fn fails.
type MemStore struct {
	mu sync.Mutex

	nextID   int64
	users    map[int64]domain.User
	debts    map[int64]domain.Debt
	payments map[int64]domain.Payment
	invites  map[int64]domain.Invite
	audit    []domain.AuditEntry
}

func NewMemStore() *MemStore {
	return &MemStore{
		users:    map[int64]domain.User{},
		debts:    map[int64]domain.Debt{},
		payments: map[int64]domain.Payment{},
		invites:  map[int64]domain.Invite{},
	}
}

var _ port.Store = (*MemStore)(nil)

func (m *MemStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *MemStore) InTx(_ context.Context, fn func(tx port.Store) error) error {
	m.mu.Lock()
	snap := m.clone()
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.restore(snap)
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *MemStore) clone() *MemStore {
	c := NewMemStore()
	c.nextID = m.nextID
	for k, v := range m.users {
		c.users[k] = v
	}
	for k, v := range m.debts {
		c.debts[k] = v
	}
	for k, v := range m.payments {
		c.payments[k] = v
	}
	for k, v := range m.invites {
		c.invites[k] = v
	}
	c.audit = append(c.audit, m.audit...)
	return c
}

func (m *MemStore) restore(c *MemStore) {
	m.nextID, m.users, m.debts, m.payments, m.invites, m.audit = c.nextID, c.users, c.debts, c.payments, c.invites, c.audit
}

func (m *MemStore) UpsertTelegramUser(_ context.Context, telegramID int64, username, firstName, lastName *string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, u := range m.users {
		if u.TelegramID == telegramID {
			u.Username, u.FirstName, u.LastName = username, firstName, lastName
			m.users[id] = u
			return id, nil
		}
	}
	id := m.id()
	m.users[id] = domain.User{ID: id, TelegramID: telegramID, Username: username, FirstName: firstName, LastName: lastName}
	return id, nil
}

func (m *MemStore) GetUser(_ context.Context, userID int64) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return domain.User{}, domain.NotFound("user", userID)
	}
	return u, nil
}

func (m *MemStore) CreateDebt(_ context.Context, d domain.Debt) (domain.Debt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d.ID = m.id()
	d.Status = domain.DebtActive
	m.debts[d.ID] = d
	return d, nil
}

func (m *MemStore) GetDebt(_ context.Context, debtID int64) (domain.Debt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.debts[debtID]
	if !ok {
		return domain.Debt{}, domain.NotFound("debt", debtID)
	}
	return d, nil
}

func (m *MemStore) listDebts(keep func(domain.Debt) bool) []domain.Debt {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Debt
	for _, d := range m.debts {
		if keep(d) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *MemStore) ListDebtsByDebtor(_ context.Context, userID int64) ([]domain.Debt, error) {
	return m.listDebts(func(d domain.Debt) bool { return d.DebtorUserID == userID }), nil
}

func (m *MemStore) ListDebtsByCreditor(_ context.Context, userID int64) ([]domain.Debt, error) {
	return m.listDebts(func(d domain.Debt) bool { return d.CreditorUserID != nil && *d.CreditorUserID == userID }), nil
}

func (m *MemStore) ListActiveDebtsWithTerms(_ context.Context) ([]domain.Debt, error) {
	return m.listDebts(func(d domain.Debt) bool {
		return !d.IsClosed() && d.MonthlyPayment != nil && d.DueDay != nil
	}), nil
}

func (m *MemStore) UpdateDebtTerms(_ context.Context, debtID int64, monthly *decimal.Decimal, dueDay *int) (domain.Debt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.debts[debtID]
	if !ok {
		return domain.Debt{}, domain.NotFound("debt", debtID)
	}
	if monthly != nil {
		d.MonthlyPayment = monthly
	}
	if dueDay != nil {
		d.DueDay = dueDay
	}
	m.debts[debtID] = d
	return d, nil
}

func (m *MemStore) SetCreditor(_ context.Context, debtID, creditorUserID int64) (domain.Debt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.debts[debtID]
	if !ok {
		return domain.Debt{}, domain.NotFound("debt", debtID)
	}
	d.CreditorUserID = &creditorUserID
	m.debts[debtID] = d
	return d, nil
}

func (m *MemStore) CloseDebt(_ context.Context, debtID int64, note *string, at time.Time) (domain.Debt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.debts[debtID]
	if !ok || d.IsClosed() {
		return domain.Debt{}, domain.NotFound("debt", debtID)
	}
	d.Status = domain.DebtClosed
	d.ClosedAt = &at
	d.CloseNote = note
	m.debts[debtID] = d
	return d, nil
}

func (m *MemStore) CreatePayment(_ context.Context, debtID int64, amount decimal.Decimal, paidOn time.Time) (domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := domain.Payment{ID: m.id(), DebtID: debtID, Amount: amount, PaymentDate: paidOn}
	m.payments[p.ID] = p
	return p, nil
}

func (m *MemStore) GetPayment(_ context.Context, paymentID int64) (domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[paymentID]
	if !ok {
		return domain.Payment{}, domain.NotFound("payment", paymentID)
	}
	return p, nil
}

func (m *MemStore) ListPayments(_ context.Context, debtID int64, includeDeleted bool) ([]domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Payment
	for _, p := range m.payments {
		if p.DebtID == debtID && (includeDeleted || !p.IsDeleted()) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *MemStore) SoftDeletePayment(_ context.Context, paymentID int64, at time.Time) (domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[paymentID]
	if !ok || p.IsDeleted() {
		return domain.Payment{}, domain.NotFound("payment", paymentID)
	}
	p.DeletedAt = &at
	m.payments[paymentID] = p
	return p, nil
}

func (m *MemStore) ActivePaymentAmounts(_ context.Context, debtID int64) ([]decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []decimal.Decimal
	for _, p := range m.payments {
		if p.DebtID == debtID && !p.IsDeleted() {
			out = append(out, p.Amount)
		}
	}
	return out, nil
}

func (m *MemStore) CreateInvite(_ context.Context, debtID int64, token uuid.UUID, expiresAt time.Time) (domain.Invite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv := domain.Invite{ID: m.id(), DebtID: debtID, Token: token, ExpiresAt: expiresAt}
	m.invites[inv.ID] = inv
	return inv, nil
}

func (m *MemStore) GetInviteByToken(_ context.Context, token uuid.UUID) (domain.Invite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.invites {
		if inv.Token == token {
			return inv, nil
		}
	}
	return domain.Invite{}, domain.NotFound("invite", token)
}

func (m *MemStore) MarkInviteUsed(_ context.Context, inviteID, userID int64, at time.Time) (domain.Invite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invites[inviteID]
	if !ok || inv.IsUsed() {
		return domain.Invite{}, domain.NotFound("invite", inviteID)
	}
	inv.UsedAt = &at
	inv.UsedByUserID = &userID
	m.invites[inviteID] = inv
	return inv, nil
}

func (m *MemStore) InsertAudit(_ context.Context, e domain.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = int64(len(m.audit) + 1)
	m.audit = append(m.audit, e)
	return nil
}

// AuditActions lists audit entries as "entity:action" in insert order.
func (m *MemStore) AuditActions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.audit))
	for _, e := range m.audit {
		out = append(out, e.EntityType+":"+string(e.Action))
	}
	return out
}

// AuditEntries returns a copy of the audit log.
func (m *MemStore) AuditEntries() []domain.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.AuditEntry(nil), m.audit...)
}
