package analyzer

import (
	"fmt"
	"strings"
)

// HighCostThreshold is the total plan cost above which a structural review is suggested
const HighCostThreshold = 100

// unattributedTable stands in when a column is seen but the query names no table
const unattributedTable = "UnknownTable"

// Recommend derives prioritized recommendations from the features, the
// synthesized plan and registry coverage. Columns are attributed to the first
// table of the query; there is no schema binding.
func Recommend(features QueryFeatures, plan ExecutionPlan, reg Registry) []Recommendation {
	recs := recommendations{list: []Recommendation{}}
	owner := attributedTable(features.Tables)

	for _, table := range features.Tables {
		if !reg.HasIndexes(table) {
			recs.add(Recommendation{
				Type:        RecommendIndex,
				Severity:    SeverityHigh,
				Description: fmt.Sprintf("Table %s has no indexes. Create a clustered primary key index on %s", table, table),
				ExampleCode: fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT PK_%s PRIMARY KEY CLUSTERED (Id);", table, indexSuffix(table)),
			})
		}
	}

	for _, pred := range features.JoinPredicates {
		for _, col := range joinColumns(pred) {
			if !reg.ColumnIsCovered(col, features.Tables) {
				recs.add(indexRecommendation(SeverityHigh, owner, col,
					fmt.Sprintf("Create an index on %s.%s to support the join", owner, col)))
			}
		}
	}

	for _, cond := range features.WhereConditions {
		if col := filterColumn(cond); col != "" && !reg.ColumnIsCovered(col, features.Tables) {
			recs.add(indexRecommendation(SeverityMedium, owner, col,
				fmt.Sprintf("Create an index on %s.%s to speed up filtering", owner, col)))
		}
	}

	if features.HasOrderBy {
		for _, col := range sortColumns(features) {
			if !reg.ColumnIsCovered(col, features.Tables) {
				recs.add(indexRecommendation(SeverityMedium, owner, col,
					fmt.Sprintf("Create an index on %s.%s to avoid a sort operation", owner, col)))
			}
		}
	}

	if features.HasWildcard {
		recs.add(Recommendation{
			Type:        RecommendQuery,
			Severity:    SeverityMedium,
			Description: "Avoid leading wildcards in LIKE patterns and SELECT *, they prevent index seeks",
			ExampleCode: "Change: WHERE column LIKE '%value%'\nTo: WHERE column LIKE 'value%'",
		})
	}

	if funcs := distinct(features.FunctionCalls); len(funcs) > 0 {
		recs.add(Recommendation{
			Type:     RecommendQuery,
			Severity: SeverityMedium,
			Description: fmt.Sprintf("Functions (%s) applied to columns can block index usage; compare against the raw column instead",
				strings.Join(funcs, ", ")),
			ExampleCode: "Change: WHERE UPPER(column) = 'VALUE'\nTo: WHERE column = 'value'",
		})
	}

	if plan.TotalCost > HighCostThreshold {
		recs.add(Recommendation{
			Type:        RecommendQuery,
			Severity:    SeverityLow,
			Description: fmt.Sprintf("Estimated plan cost %d exceeds %d. Review the query structure and consider splitting it", plan.TotalCost, HighCostThreshold),
			ExampleCode: "-- Break the query into smaller steps or stage intermediate results\n-- in a temporary table before the final join",
		})
	}

	return recs.list
}

func indexRecommendation(sev Severity, table, column, description string) Recommendation {
	return Recommendation{
		Type:        RecommendIndex,
		Severity:    sev,
		Description: description,
		ExampleCode: fmt.Sprintf("CREATE NONCLUSTERED INDEX IX_%s_%s ON %s(%s);", indexSuffix(table), column, table, column),
	}
}

type recommendations struct {
	list []Recommendation
}

// add drops a record identical in every field to one already present
func (r *recommendations) add(rec Recommendation) {
	for _, existing := range r.list {
		if existing == rec {
			return
		}
	}
	r.list = append(r.list, rec)
}

func attributedTable(tables []string) string {
	if len(tables) == 0 {
		return unattributedTable
	}
	return tables[0]
}

// indexSuffix makes a table name usable inside an index identifier
func indexSuffix(table string) string {
	return strings.NewReplacer(".", "_", " ", "_").Replace(table)
}
