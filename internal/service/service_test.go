package service

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yourname/debtbook-bot/internal/balance"
	"github.com/yourname/debtbook-bot/internal/domain"
	"github.com/yourname/debtbook-bot/internal/planner"
	"github.com/yourname/debtbook-bot/internal/port/porttest"
)

var fixedNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store    *porttest.MemStore
	debts    *Debts
	payments *Payments
	invites  *Invites
	debtor   int64
	creditor int64
	stranger int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := porttest.NewMemStore()
	calc := balance.NewCalculator(store)
	now := func() time.Time { return fixedNow }

	f := &fixture{
		store:    store,
		debts:    NewDebts(store, calc, planner.New(calc), now),
		payments: NewPayments(store, calc, now),
		invites:  NewInvites(store, 24*time.Hour, now),
	}
	ctx := context.Background()
	f.debtor, _ = store.UpsertTelegramUser(ctx, 100, nil, nil, nil)
	f.creditor, _ = store.UpsertTelegramUser(ctx, 200, nil, nil, nil)
	f.stranger, _ = store.UpsertTelegramUser(ctx, 300, nil, nil, nil)
	return f
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func (f *fixture) createDebt(t *testing.T, principal, monthly string, dueDay int) domain.Debt {
	t.Helper()
	m := dec(monthly)
	d, err := f.debts.CreateDebt(context.Background(), CreateDebtInput{
		DebtorUserID: f.debtor,
		Name:         "Car loan",
		Principal:    dec(principal),
		Currency:     "rub",
		Monthly:      &m,
		DueDay:       &dueDay,
	})
	if err != nil {
		t.Fatalf("create debt: %v", err)
	}
	return d
}

func TestCreateDebt_Validation(t *testing.T) {
	f := newFixture(t)
	zero := decimal.Zero
	badDay := 32

	tests := []struct {
		name  string
		in    CreateDebtInput
		field string
	}{
		{"zero principal", CreateDebtInput{DebtorUserID: f.debtor, Principal: decimal.Zero, Currency: "RUB"}, "principal_amount"},
		{"zero monthly", CreateDebtInput{DebtorUserID: f.debtor, Principal: dec("10"), Currency: "RUB", Monthly: &zero}, "monthly_payment"},
		{"bad due day", CreateDebtInput{DebtorUserID: f.debtor, Principal: dec("10"), Currency: "RUB", DueDay: &badDay}, "due_day"},
		{"no currency", CreateDebtInput{DebtorUserID: f.debtor, Principal: dec("10")}, "currency"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.debts.CreateDebt(context.Background(), tt.in)
			var verr *domain.ErrValidation
			if !errors.As(err, &verr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("expected field %s, got %s", tt.field, verr.Field)
			}
		})
	}
	if len(f.store.AuditEntries()) != 0 {
		t.Errorf("expected no audit entries, got %d", len(f.store.AuditEntries()))
	}
}

func TestCreateDebt_AuditsAndNormalizes(t *testing.T) {
	f := newFixture(t)
	d := f.createDebt(t, "2500", "1000", 15)

	if d.Currency != "RUB" {
		t.Errorf("expected upper-cased currency, got %s", d.Currency)
	}
	if got := f.store.AuditActions(); !reflect.DeepEqual(got, []string{"debt:create"}) {
		t.Errorf("unexpected audit trail: %v", got)
	}
	after := f.store.AuditEntries()[0].After
	if after["principal_amount"] != "2500" || after["monthly_payment"] != "1000" {
		t.Errorf("expected decimal snapshot as strings, got %v", after)
	}
}

func TestDetails_BalanceAndPlan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.createDebt(t, "2500", "1000", 15)

	if _, err := f.payments.AddPayment(ctx, d.ID, f.debtor, dec("0.10"), fixedNow); err != nil {
		t.Fatal(err)
	}
	if _, err := f.payments.AddPayment(ctx, d.ID, f.debtor, dec("0.10"), fixedNow); err != nil {
		t.Fatal(err)
	}
	if _, err := f.payments.AddPayment(ctx, d.ID, f.debtor, dec("0.10"), fixedNow); err != nil {
		t.Fatal(err)
	}

	det, err := f.debts.Details(ctx, d.ID, f.debtor, fixedNow)
	if err != nil {
		t.Fatalf("details: %v", err)
	}
	if !det.Balance.Equal(dec("2499.70")) {
		t.Errorf("expected balance 2499.70, got %s", det.Balance)
	}
	if !det.IsDebtor {
		t.Error("expected debtor view")
	}
	if len(det.Plan) != 3 {
		t.Fatalf("expected 3 plan items, got %d", len(det.Plan))
	}
	if !det.Plan[2].Amount.Equal(dec("499.70")) || !det.Plan[2].IsFinal {
		t.Errorf("unexpected settling item: %+v", det.Plan[2])
	}
	if !det.Plan[0].Date.Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected first date: %s", det.Plan[0].Date)
	}
}

func TestDetails_Forbidden(t *testing.T) {
	f := newFixture(t)
	d := f.createDebt(t, "100", "10", 1)

	_, err := f.debts.Details(context.Background(), d.ID, f.stranger, fixedNow)
	var ferr *domain.ErrForbidden
	if !errors.As(err, &ferr) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestDetails_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.debts.Details(context.Background(), 999, f.debtor, fixedNow)
	if !errors.Is(err, domain.ErrDebtNotFound) {
		t.Fatalf("expected ErrDebtNotFound, got %v", err)
	}
}

func TestAddPayment_Rules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.createDebt(t, "1000", "100", 5)

	if _, err := f.payments.AddPayment(ctx, d.ID, f.debtor, dec("-1"), fixedNow); err == nil {
		t.Error("expected validation error for negative amount")
	}
	if _, err := f.payments.AddPayment(ctx, d.ID, f.stranger, dec("10"), fixedNow); err == nil {
		t.Error("expected forbidden for stranger")
	}

	inv, err := f.invites.CreateInvite(ctx, d.ID, f.debtor)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.invites.AcceptInvite(ctx, inv.Token, f.creditor); err != nil {
		t.Fatal(err)
	}
	_, err = f.payments.AddPayment(ctx, d.ID, f.creditor, dec("10"), fixedNow)
	var ferr *domain.ErrForbidden
	if !errors.As(err, &ferr) {
		t.Errorf("expected creditor to be read-only, got %v", err)
	}

	if _, err := f.debts.CloseDebt(ctx, d.ID, f.debtor, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := f.payments.AddPayment(ctx, d.ID, f.debtor, dec("10"), fixedNow); !errors.Is(err, domain.ErrDebtClosed) {
		t.Errorf("expected ErrDebtClosed, got %v", err)
	}
}

func TestDeletePayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.createDebt(t, "1000", "100", 5)

	p, err := f.payments.AddPayment(ctx, d.ID, f.debtor, dec("250"), fixedNow)
	if err != nil {
		t.Fatal(err)
	}
	bal, _ := f.payments.CalculateBalance(ctx, d.ID)
	if !bal.Equal(dec("750")) {
		t.Fatalf("expected 750, got %s", bal)
	}

	deleted, err := f.payments.DeletePayment(ctx, p.ID, f.debtor)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !deleted.IsDeleted() {
		t.Error("expected payment to be marked deleted")
	}
	bal, _ = f.payments.CalculateBalance(ctx, d.ID)
	if !bal.Equal(dec("1000")) {
		t.Errorf("expected balance restored to 1000, got %s", bal)
	}

	_, err = f.payments.DeletePayment(ctx, p.ID, f.debtor)
	var cerr *domain.ErrConflict
	if !errors.As(err, &cerr) {
		t.Errorf("expected conflict on second delete, got %v", err)
	}

	all, _ := f.payments.Payments(ctx, d.ID, f.debtor, true)
	live, _ := f.payments.Payments(ctx, d.ID, f.debtor, false)
	if len(all) != 1 || len(live) != 0 {
		t.Errorf("expected 1 total and 0 live payments, got %d and %d", len(all), len(live))
	}

	want := []string{"debt:create", "payment:create", "payment:delete"}
	if got := f.store.AuditActions(); !reflect.DeepEqual(got, want) {
		t.Errorf("unexpected audit trail: %v", got)
	}
}

func TestUpdateTerms(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.createDebt(t, "1000", "100", 5)

	m := dec("250")
	day := 31
	updated, err := f.debts.UpdateTerms(ctx, d.ID, f.debtor, &m, &day)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.MonthlyPayment.Equal(m) || *updated.DueDay != 31 {
		t.Errorf("terms not applied: %+v", updated)
	}

	bad := 0
	if _, err := f.debts.UpdateTerms(ctx, d.ID, f.debtor, nil, &bad); err == nil {
		t.Error("expected validation error for due day 0")
	}

	entry := f.store.AuditEntries()[len(f.store.AuditEntries())-1]
	if entry.Action != domain.AuditUpdate || entry.Before["monthly_payment"] != "100" || entry.After["monthly_payment"] != "250" {
		t.Errorf("unexpected audit entry: %+v", entry)
	}
}

func TestCloseDebt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.createDebt(t, "1000", "100", 5)

	note := "settled in cash"
	closed, err := f.debts.CloseDebt(ctx, d.ID, f.debtor, &note)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if !closed.IsClosed() || closed.ClosedAt == nil || !closed.ClosedAt.Equal(fixedNow) {
		t.Errorf("unexpected closed debt: %+v", closed)
	}

	if _, err := f.debts.CloseDebt(ctx, d.ID, f.debtor, nil); !errors.Is(err, domain.ErrDebtClosed) {
		t.Errorf("expected ErrDebtClosed, got %v", err)
	}

	det, err := f.debts.Details(ctx, d.ID, f.debtor, fixedNow)
	if err != nil {
		t.Fatal(err)
	}
	if len(det.Plan) != 0 {
		t.Errorf("expected empty plan for closed debt, got %d items", len(det.Plan))
	}
}

func TestInvites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.createDebt(t, "1000", "100", 5)

	if _, err := f.invites.CreateInvite(ctx, d.ID, f.creditor); err == nil {
		t.Error("expected only the debtor to create invites")
	}

	inv, err := f.invites.CreateInvite(ctx, d.ID, f.debtor)
	if err != nil {
		t.Fatalf("create invite: %v", err)
	}
	if !inv.ExpiresAt.Equal(fixedNow.Add(24 * time.Hour)) {
		t.Errorf("unexpected expiry: %s", inv.ExpiresAt)
	}

	if _, err := f.invites.AcceptInvite(ctx, inv.Token, f.debtor); err == nil {
		t.Error("expected debtor to be refused as creditor")
	}

	linked, err := f.invites.AcceptInvite(ctx, inv.Token, f.creditor)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if linked.CreditorUserID == nil || *linked.CreditorUserID != f.creditor {
		t.Errorf("creditor not linked: %+v", linked)
	}

	if _, err := f.invites.AcceptInvite(ctx, inv.Token, f.stranger); err == nil {
		t.Error("expected used invite to be refused")
	}
	if _, err := f.invites.AcceptInvite(ctx, uuid.New(), f.stranger); !errors.Is(err, domain.ErrInviteNotFound) {
		t.Errorf("expected ErrInviteNotFound, got %v", err)
	}

	debts, err := f.debts.UserDebts(ctx, f.creditor)
	if err != nil || len(debts) != 1 || debts[0].ID != d.ID {
		t.Errorf("expected creditor to see the debt, got %v %v", debts, err)
	}

	want := []string{"debt:create", "invite:create", "debt:update", "invite:update"}
	if got := f.store.AuditActions(); !reflect.DeepEqual(got, want) {
		t.Errorf("unexpected audit trail: %v", got)
	}
}

func TestInTxRollback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.createDebt(t, "1000", "100", 5)

	_, err := f.payments.DeletePayment(ctx, 12345, f.debtor)
	if !errors.Is(err, domain.ErrPaymentNotFound) {
		t.Fatalf("expected ErrPaymentNotFound, got %v", err)
	}
	bal, _ := f.payments.CalculateBalance(ctx, d.ID)
	if !bal.Equal(dec("1000")) {
		t.Errorf("expected untouched balance, got %s", bal)
	}
}
