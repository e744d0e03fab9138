package remap

import (
	"github.com/google/uuid"

	"github.com/mberg/mpmigrate/internal/table"
)

// Default column sets, applied when configuration does not override them.
// Members carry multi-value membership lists; subscriptions and
// transactions carry per-row product and gateway references.
var (
	DefaultMemberProductColumns = []string{"memberships", "inactive_memberships"}
	DefaultProductColumns       = []string{"product_id", "membership_id", "product_name", "membership", "product"}
	DefaultGatewayColumns       = []string{"gateway_id", "gateway"}
)

// The members export uses "ID" or "id" for its primary key depending on
// the exporting plugin version; the other two tables always use "id".
var (
	memberIDColumns = []string{"ID", "id"}
	plainIDColumns  = []string{"id"}
)

// TableOptions configures one table's pass.
type TableOptions struct {
	// Start is the first new identifier; 0 means 1.
	Start int
	// Column overrides; nil means the defaults for that table.
	ProductColumns []string
	GatewayColumns []string
}

// Options configures a full run. Value maps and per-table options are
// read-only once the run starts.
type Options struct {
	Products ValueMap
	Gateways ValueMap

	Members       TableOptions
	Subscriptions TableOptions
	Transactions  TableOptions
}

// Output is one remapped table together with its summary.
type Output struct {
	Table *table.Table
	TableResult
}

// Result carries the three remapped tables and a run identifier for the
// audit ledger.
type Result struct {
	RunID string

	Members       Output
	Subscriptions Output
	Transactions  Output
}

// Run remaps the three tables in dependency order: members first, then
// subscriptions against the members identifier map, then transactions
// against both. Inputs are not mutated; the outputs are rewritten clones.
// Returns ErrNoInput when every table is empty and a MissingColumnError
// when any table lacks its primary identifier column.
func Run(members, subscriptions, transactions *table.Table, opts Options) (*Result, error) {
	if members.Empty() && subscriptions.Empty() && transactions.Empty() {
		return nil, ErrNoInput
	}

	res := &Result{RunID: uuid.NewString()}

	res.Members.Table = members.Clone()
	mr, err := RunTable(res.Members.Table, Spec{
		IDColumns:      memberIDColumns,
		Start:          startOrDefault(opts.Members.Start),
		ProductColumns: columnsOrDefault(opts.Members.ProductColumns, DefaultMemberProductColumns),
	}, opts.Products, nil)
	if err != nil {
		return nil, err
	}
	res.Members.TableResult = *mr

	res.Subscriptions.Table = subscriptions.Clone()
	sr, err := RunTable(res.Subscriptions.Table, Spec{
		IDColumns:      plainIDColumns,
		Start:          startOrDefault(opts.Subscriptions.Start),
		ForeignKeys:    []ForeignKey{{Column: "user_id", Ref: mr.IDs}},
		ProductColumns: columnsOrDefault(opts.Subscriptions.ProductColumns, DefaultProductColumns),
		GatewayColumns: columnsOrDefault(opts.Subscriptions.GatewayColumns, DefaultGatewayColumns),
	}, opts.Products, opts.Gateways)
	if err != nil {
		return nil, err
	}
	res.Subscriptions.TableResult = *sr

	res.Transactions.Table = transactions.Clone()
	tr, err := RunTable(res.Transactions.Table, Spec{
		IDColumns: plainIDColumns,
		Start:     startOrDefault(opts.Transactions.Start),
		ForeignKeys: []ForeignKey{
			{Column: "user_id", Ref: mr.IDs},
			{Column: "sub_id", Ref: sr.IDs},
		},
		ProductColumns: columnsOrDefault(opts.Transactions.ProductColumns, DefaultProductColumns),
		GatewayColumns: columnsOrDefault(opts.Transactions.GatewayColumns, DefaultGatewayColumns),
	}, opts.Products, opts.Gateways)
	if err != nil {
		return nil, err
	}
	res.Transactions.TableResult = *tr

	return res, nil
}

func startOrDefault(start int) int {
	if start <= 0 {
		return 1
	}
	return start
}

func columnsOrDefault(cols, def []string) []string {
	if cols == nil {
		return def
	}
	return cols
}
