package vouchers

import (
	"context"
	"errors"
	"testing"

	"github.com/odyssey-erp/practice-ledger/internal/ledger/shared"
)

func TestValidateEntries(t *testing.T) {
	chart := testChart()
	cases := []struct {
		name    string
		entries []EntryInput
		want    error
		line    int
	}{
		{name: "balanced pair", entries: []EntryInput{debit(acctCash, "5000"), credit(acctCapital, "5000")}},
		{name: "split credit", entries: []EntryInput{debit(acctRent, "300"), credit(acctCash, "100"), credit(acctBank, "200")}},
		{name: "single sided positive still needs balance", entries: []EntryInput{debit(acctCash, "10")}, want: shared.ErrUnbalancedVoucher},
		{name: "empty", entries: nil, want: shared.ErrEmptyVoucher},
		{name: "mixed line", entries: []EntryInput{debit(acctCash, "10"), {AccountID: acctCapital, Debit: d("5"), Credit: d("5")}}, want: shared.ErrMixedOrEmptyLine, line: 1},
		{name: "zero line", entries: []EntryInput{{AccountID: acctCash}}, want: shared.ErrMixedOrEmptyLine},
		{name: "negative debit", entries: []EntryInput{{AccountID: acctCash, Debit: d("-10")}, credit(acctCapital, "-10")}, want: shared.ErrMixedOrEmptyLine},
		{name: "unknown account", entries: []EntryInput{debit(acctCash, "10"), credit(99, "10")}, want: shared.ErrUnknownAccount, line: 1},
		{name: "missing account id", entries: []EntryInput{debit(0, "10"), credit(acctCash, "10")}, want: shared.ErrUnknownAccount},
		{name: "shape checked before accounts", entries: []EntryInput{debit(99, "10"), {AccountID: acctCash}}, want: shared.ErrMixedOrEmptyLine, line: 1},
		{name: "unbalanced", entries: []EntryInput{debit(acctCash, "5000"), credit(acctCapital, "4000")}, want: shared.ErrUnbalancedVoucher},
		{name: "within rounding tolerance", entries: []EntryInput{debit(acctCash, "100.004"), credit(acctCapital, "100")}},
		{name: "at tolerance", entries: []EntryInput{debit(acctCash, "100.005"), credit(acctCapital, "100")}, want: shared.ErrUnbalancedVoucher},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateEntries(context.Background(), tc.entries, chart)
			if tc.want == nil {
				if err != nil {
					t.Fatalf("expected valid entries, got %v", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			var lineErr *shared.LineError
			if errors.As(err, &lineErr) && lineErr.Index != tc.line {
				t.Fatalf("expected line %d, got %d", tc.line, lineErr.Index)
			}
		})
	}
}

func TestValidateEntriesReportsImbalance(t *testing.T) {
	err := ValidateEntries(context.Background(), []EntryInput{debit(acctCash, "5000"), credit(acctCapital, "4000")}, testChart())
	var unbalanced *shared.UnbalancedError
	if !errors.As(err, &unbalanced) {
		t.Fatalf("expected UnbalancedError, got %v", err)
	}
	if !unbalanced.Delta.Equal(d("1000")) {
		t.Fatalf("expected delta 1000, got %s", unbalanced.Delta)
	}
	if !unbalanced.Debit.Equal(d("5000")) || !unbalanced.Credit.Equal(d("4000")) {
		t.Fatalf("unexpected sides %s/%s", unbalanced.Debit, unbalanced.Credit)
	}
}

func TestValidateEntriesPropagatesLookupFailure(t *testing.T) {
	boom := errors.New("db down")
	err := ValidateEntries(context.Background(), []EntryInput{debit(acctCash, "1"), credit(acctBank, "1")}, failingLookup{err: boom})
	if !errors.Is(err, boom) {
		t.Fatalf("expected lookup failure, got %v", err)
	}
	if errors.Is(err, shared.ErrUnknownAccount) {
		t.Fatalf("infrastructure failure must not read as unknown account")
	}
}
