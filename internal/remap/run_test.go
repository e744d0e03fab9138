package remap

import (
	"errors"
	"reflect"
	"testing"

	"github.com/mberg/mpmigrate/internal/table"
)

func sampleTables(t *testing.T) (*table.Table, *table.Table, *table.Table) {
	t.Helper()
	members := mustTable(t, "members",
		[]string{"ID", "email", "memberships"},
		[][]string{
			{"5", "a@x.com", "gold, silver|bronze"},
			{"9", "b@x.com", "gold"},
		})
	subscriptions := mustTable(t, "subscriptions",
		[]string{"id", "user_id", "subscr_id", "product_id", "gateway"},
		[][]string{
			{"31", "9", "sub_abc123", "gold", "stripe-old"},
			{"32", "5", "sub_def456", "silver", "manual"},
		})
	transactions := mustTable(t, "transactions",
		[]string{"id", "user_id", "sub_id", "product_id", "gateway", "amount"},
		[][]string{
			{"71", "5", "31", "gold", "stripe-old", "9.99"},
			{"72", "9", "32", "gold", "stripe-old", "19.99"},
			{"73", "77", "99", "gold", "stripe-old", "0.00"}, // orphaned refs
		})
	return members, subscriptions, transactions
}

func sampleOptions() Options {
	return Options{
		Products: NewValueMap(map[string]string{"gold": "premium"}),
		Gateways: NewValueMap(map[string]string{"stripe-old": "stripe-new"}),
		Members:  TableOptions{Start: 100},
		Subscriptions: TableOptions{
			Start: 500,
		},
		Transactions: TableOptions{Start: 9000},
	}
}

func TestRun_DependencyChain(t *testing.T) {
	members, subscriptions, transactions := sampleTables(t)

	res, err := Run(members, subscriptions, transactions, sampleOptions())
	if err != nil {
		t.Fatal(err)
	}

	// members: 5 -> 100, 9 -> 101
	want := IDMap{"5": "100", "9": "101"}
	if !reflect.DeepEqual(res.Members.IDs, want) {
		t.Errorf("member IDs = %v, want %v", res.Members.IDs, want)
	}

	// subscription user_id resolved against the members map
	subRows := res.Subscriptions.Table.Rows
	if subRows[0][1] != "101" || subRows[1][1] != "100" {
		t.Errorf("subscription user_id = %q, %q, want 101, 100", subRows[0][1], subRows[1][1])
	}
	if subRows[0][0] != "500" || subRows[1][0] != "501" {
		t.Errorf("subscription id = %q, %q, want 500, 501", subRows[0][0], subRows[1][0])
	}

	// transaction refs resolved against both maps; orphans untouched
	txRows := res.Transactions.Table.Rows
	if txRows[0][1] != "100" || txRows[0][2] != "500" {
		t.Errorf("tx row 0 refs = %q, %q, want 100, 500", txRows[0][1], txRows[0][2])
	}
	if txRows[1][1] != "101" || txRows[1][2] != "501" {
		t.Errorf("tx row 1 refs = %q, %q, want 101, 501", txRows[1][1], txRows[1][2])
	}
	if txRows[2][1] != "77" || txRows[2][2] != "99" {
		t.Errorf("orphaned tx refs changed: %v", txRows[2])
	}
	if res.Transactions.UnmappedRefs != 2 {
		t.Errorf("tx UnmappedRefs = %d, want 2", res.Transactions.UnmappedRefs)
	}
}

func TestRun_ValueMappingAndProtection(t *testing.T) {
	members, subscriptions, transactions := sampleTables(t)

	res, err := Run(members, subscriptions, transactions, sampleOptions())
	if err != nil {
		t.Fatal(err)
	}

	if got := res.Members.Table.Rows[0][2]; got != "premium, silver|bronze" {
		t.Errorf("memberships = %q, want separators preserved", got)
	}

	subRows := res.Subscriptions.Table.Rows
	if subRows[0][2] != "sub_abc123" || subRows[1][2] != "sub_def456" {
		t.Errorf("subscr_id changed: %q, %q", subRows[0][2], subRows[1][2])
	}
	if subRows[0][3] != "premium" || subRows[0][4] != "stripe-new" {
		t.Errorf("subscription values = %v", subRows[0])
	}

	txRows := res.Transactions.Table.Rows
	if txRows[0][3] != "premium" || txRows[0][4] != "stripe-new" {
		t.Errorf("transaction values = %v", txRows[0])
	}
	if txRows[0][5] != "9.99" {
		t.Errorf("amount changed: %q", txRows[0][5])
	}
}

func TestRun_InputsNotMutated(t *testing.T) {
	members, subscriptions, transactions := sampleTables(t)

	if _, err := Run(members, subscriptions, transactions, sampleOptions()); err != nil {
		t.Fatal(err)
	}

	if members.Rows[0][0] != "5" {
		t.Errorf("input members mutated: %v", members.Rows[0])
	}
	if subscriptions.Rows[0][1] != "9" {
		t.Errorf("input subscriptions mutated: %v", subscriptions.Rows[0])
	}
	if transactions.Rows[0][2] != "31" {
		t.Errorf("input transactions mutated: %v", transactions.Rows[0])
	}
}

func TestRun_Deterministic(t *testing.T) {
	members, subscriptions, transactions := sampleTables(t)

	first, err := Run(members, subscriptions, transactions, sampleOptions())
	if err != nil {
		t.Fatal(err)
	}
	second, err := Run(members, subscriptions, transactions, sampleOptions())
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(first.Members.Table.Rows, second.Members.Table.Rows) ||
		!reflect.DeepEqual(first.Subscriptions.Table.Rows, second.Subscriptions.Table.Rows) ||
		!reflect.DeepEqual(first.Transactions.Table.Rows, second.Transactions.Table.Rows) {
		t.Error("two runs over identical inputs produced different tables")
	}
}

func TestRun_AllEmpty(t *testing.T) {
	members := mustTable(t, "members", []string{"ID"}, nil)
	subscriptions := mustTable(t, "subscriptions", []string{"id"}, nil)
	transactions := mustTable(t, "transactions", []string{"id"}, nil)

	_, err := Run(members, subscriptions, transactions, Options{})
	if !errors.Is(err, ErrNoInput) {
		t.Fatalf("expected ErrNoInput, got %v", err)
	}
}

func TestRun_OneEmptyTableIsNotFatal(t *testing.T) {
	members, _, transactions := sampleTables(t)
	subscriptions := mustTable(t, "subscriptions", []string{"id", "user_id"}, nil)

	res, err := Run(members, subscriptions, transactions, sampleOptions())
	if err != nil {
		t.Fatal(err)
	}
	if res.Subscriptions.Rows != 0 || res.Subscriptions.Table.Len() != 0 {
		t.Errorf("expected empty subscriptions output, got %d rows", res.Subscriptions.Table.Len())
	}
	if res.Members.Rows != 2 || res.Transactions.Rows != 3 {
		t.Error("populated tables should still be processed")
	}
}

func TestRun_DefaultStartIsOne(t *testing.T) {
	members, subscriptions, transactions := sampleTables(t)

	res, err := Run(members, subscriptions, transactions, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Members.Start != 1 || res.Subscriptions.Start != 1 || res.Transactions.Start != 1 {
		t.Errorf("starts = %d, %d, %d, want 1 each",
			res.Members.Start, res.Subscriptions.Start, res.Transactions.Start)
	}
	if res.Members.Table.Rows[0][0] != "1" {
		t.Errorf("first member ID = %q, want 1", res.Members.Table.Rows[0][0])
	}
}

func TestRun_ColumnOverrides(t *testing.T) {
	members, subscriptions, transactions := sampleTables(t)

	opts := sampleOptions()
	// Point subscriptions' product mapping at a different column; the
	// default product_id column must then pass through unchanged.
	opts.Subscriptions.ProductColumns = []string{"nonexistent"}

	res, err := Run(members, subscriptions, transactions, opts)
	if err != nil {
		t.Fatal(err)
	}
	if got := res.Subscriptions.Table.Rows[0][3]; got != "gold" {
		t.Errorf("product_id = %q, want gold (override should disable default)", got)
	}
}

func TestRun_AssignsRunID(t *testing.T) {
	members, subscriptions, transactions := sampleTables(t)

	res, err := Run(members, subscriptions, transactions, sampleOptions())
	if err != nil {
		t.Fatal(err)
	}
	if res.RunID == "" {
		t.Error("expected a run ID")
	}
}
