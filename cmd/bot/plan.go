package main

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/yourname/debtbook-bot/internal/balance"
	"github.com/yourname/debtbook-bot/internal/bot"
	"github.com/yourname/debtbook-bot/internal/domain"
	"github.com/yourname/debtbook-bot/internal/planner"
)

var (
	flagPrincipal string
	flagPaid      []string
	flagMonthly   string
	flagDueDay    int
	flagAsOf      string
	flagCurrency  string
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print a repayment plan without touching the database",
	Example: `  debtbook-bot plan --principal 150000 --monthly 10000 --due-day 15
  debtbook-bot plan --principal 2500 --paid 500 --paid 250,50 --monthly 1000 --due-day 31 --as-of 2024-01-31`,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVar(&flagPrincipal, "principal", "", "Principal amount (required)")
	planCmd.Flags().StringArrayVar(&flagPaid, "paid", nil, "Payment already made (repeatable)")
	planCmd.Flags().StringVar(&flagMonthly, "monthly", "", "Monthly installment (required)")
	planCmd.Flags().IntVar(&flagDueDay, "due-day", 0, "Day of month the installment is due, 1..31 (required)")
	planCmd.Flags().StringVar(&flagAsOf, "as-of", "", "Projection date, dd.mm.yyyy or yyyy-mm-dd (default today)")
	planCmd.Flags().StringVar(&flagCurrency, "currency", "RUB", "Currency label")
	_ = planCmd.MarkFlagRequired("principal")
	_ = planCmd.MarkFlagRequired("monthly")
	_ = planCmd.MarkFlagRequired("due-day")
}

func runPlan(cmd *cobra.Command, _ []string) error {
	principal, _, err := bot.ParseAmount(flagPrincipal)
	if err != nil {
		return fmt.Errorf("--principal: %w", err)
	}
	monthly, _, err := bot.ParseAmount(flagMonthly)
	if err != nil {
		return fmt.Errorf("--monthly: %w", err)
	}
	if !monthly.IsPositive() {
		return fmt.Errorf("--monthly must be greater than zero")
	}
	if _, err := bot.ParseDueDay(fmt.Sprint(flagDueDay)); err != nil {
		return fmt.Errorf("--due-day: %w", err)
	}

	paid := make([]decimal.Decimal, 0, len(flagPaid))
	for _, p := range flagPaid {
		v, _, err := bot.ParseAmount(p)
		if err != nil {
			return fmt.Errorf("--paid %q: %w", p, err)
		}
		paid = append(paid, v)
	}

	asOf := time.Now()
	if flagAsOf != "" {
		if asOf, err = bot.ParseDate(flagAsOf); err != nil {
			return fmt.Errorf("--as-of: %w", err)
		}
	}

	dueDay := flagDueDay
	d := domain.Debt{
		PrincipalAmount: principal,
		Currency:        flagCurrency,
		MonthlyPayment:  &monthly,
		DueDay:          &dueDay,
		Status:          domain.DebtActive,
	}
	bal := principal.Sub(balance.Sum(paid))
	printPlan(cmd.OutOrStdout(), d, bal, planner.Project(d, bal, asOf))
	return nil
}

func printPlan(w io.Writer, d domain.Debt, bal decimal.Decimal, plan []planner.PlanItem) {
	fmt.Fprintf(w, "Balance: %s\n", bot.FormatMoney(bal, d.Currency))
	if len(plan) == 0 {
		fmt.Fprintln(w, "Nothing to pay.")
		return
	}
	for i, it := range plan {
		mark := ""
		if it.IsFinal {
			mark = "  final"
		}
		fmt.Fprintf(w, "%3d  %s  %s%s\n", i+1, bot.FormatDate(it.Date), bot.FormatMoney(it.Amount, d.Currency), mark)
	}

	sum := planner.Summarize(plan)
	fmt.Fprintf(w, "\n%d installments, %s total, last on %s\n", sum.Count, bot.FormatMoney(sum.Total, d.Currency), bot.FormatDate(sum.LastDate))
	if sum.Truncated {
		fmt.Fprintf(w, "Not settled within %d months.\n", planner.MaxPlanItems)
	}
}
