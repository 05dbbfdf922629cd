package analyzer

import (
	"fmt"
	"strings"
)

// WildcardWarning is emitted once when the query uses * or a %...% pattern
const WildcardWarning = "Wildcard detected: SELECT * or '%...%' patterns force full scans and defeat index seeks"

// Heuristic cost ranges: base + uniform(0..span-1)
const (
	scanCostBase   = 30
	scanCostSpan   = 30
	joinCostBase   = 20
	joinCostSpan   = 20
	filterCostBase = 10
	filterCostSpan = 10
	sortCostBase   = 15
	sortCostSpan   = 15
)

// SynthesizePlan builds the heuristic execution plan for the extracted features.
// Operations are emitted as all SCANs, then JOINs, then FILTERs, then at most one SORT.
func SynthesizePlan(features QueryFeatures, reg Registry, rnd Rand) ExecutionPlan {
	b := planBuilder{
		plan: ExecutionPlan{Operations: []PlanOperation{}, Warnings: []string{}},
		seen: make(map[string]bool),
	}

	for _, table := range features.Tables {
		if reg.HasIndexes(table) {
			b.add(OpScan, uniform(rnd, scanCostBase, scanCostSpan), "Index scan on "+table)
		} else {
			b.add(OpScan, uniform(rnd, scanCostBase, scanCostSpan), "Table scan on "+table)
			b.warn(fmt.Sprintf("Table %s has no indexes defined", table))
		}
	}

	for _, pred := range features.JoinPredicates {
		b.add(OpJoin, uniform(rnd, joinCostBase, joinCostSpan), "Join on "+pred)
		for _, col := range joinColumns(pred) {
			if !reg.ColumnIsCovered(col, features.Tables) {
				b.warn(fmt.Sprintf("Join column %s is not covered by an index", col))
			}
		}
	}

	for _, cond := range features.WhereConditions {
		b.add(OpFilter, uniform(rnd, filterCostBase, filterCostSpan), "Filter: "+cond)
		if col := filterColumn(cond); col != "" && !reg.ColumnIsCovered(col, features.Tables) {
			b.warn(fmt.Sprintf("Filter column %s is not covered by an index", col))
		}
	}

	if features.HasOrderBy {
		b.add(OpSort, uniform(rnd, sortCostBase, sortCostSpan), "Sort by "+features.OrderByClause)
		for _, col := range sortColumns(features) {
			if !reg.ColumnIsCovered(col, features.Tables) {
				b.warn(fmt.Sprintf("Sort column %s is not covered by an index", col))
			}
		}
	}

	if features.HasWildcard {
		b.warn(WildcardWarning)
	}
	if funcs := distinct(features.FunctionCalls); len(funcs) > 0 {
		b.warn(fmt.Sprintf("Functions may prevent index usage: %s", strings.Join(funcs, ", ")))
	}

	return b.plan
}

type planBuilder struct {
	plan ExecutionPlan
	seen map[string]bool
}

func (b *planBuilder) add(op OperationType, cost int, description string) {
	b.plan.Operations = append(b.plan.Operations, PlanOperation{
		ID:          len(b.plan.Operations) + 1,
		Type:        op,
		Cost:        cost,
		Description: description,
	})
	b.plan.TotalCost += cost
}

// warn keeps the first occurrence of each message
func (b *planBuilder) warn(msg string) {
	if b.seen[msg] {
		return
	}
	b.seen[msg] = true
	b.plan.Warnings = append(b.plan.Warnings, msg)
}

// checkPlan verifies the structural guarantees callers rely on
func checkPlan(plan ExecutionPlan) error {
	order := map[OperationType]int{OpScan: 0, OpJoin: 1, OpFilter: 2, OpSort: 3}
	sum, last, sorts := 0, 0, 0
	for i, op := range plan.Operations {
		if op.ID != i+1 {
			return fmt.Errorf("operation %d has id %d", i+1, op.ID)
		}
		if op.Cost < 0 {
			return fmt.Errorf("operation %d has negative cost %d", op.ID, op.Cost)
		}
		rank, ok := order[op.Type]
		if !ok || rank < last {
			return fmt.Errorf("operation %d of type %s is out of order", op.ID, op.Type)
		}
		if op.Type == OpSort {
			sorts++
		}
		last = rank
		sum += op.Cost
	}
	if sorts > 1 {
		return fmt.Errorf("plan has %d sort operations", sorts)
	}
	if sum != plan.TotalCost {
		return fmt.Errorf("total cost %d does not match operation sum %d", plan.TotalCost, sum)
	}
	seen := make(map[string]bool, len(plan.Warnings))
	for _, w := range plan.Warnings {
		if seen[w] {
			return fmt.Errorf("duplicate warning %q", w)
		}
		seen[w] = true
	}
	return nil
}

func uniform(rnd Rand, base, span int) int {
	return base + rnd.IntN(span)
}

func distinct(items []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, s := range items {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
