package analyzer

import "encoding/json"

// QueryType classifies a statement by its leading keyword
type QueryType int

const (
	QueryUnknown QueryType = iota
	QuerySelect
	QueryInsert
	QueryUpdate
	QueryDelete
)

// String returns the keyword form of the query type
func (qt QueryType) String() string {
	switch qt {
	case QuerySelect:
		return "SELECT"
	case QueryInsert:
		return "INSERT"
	case QueryUpdate:
		return "UPDATE"
	case QueryDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// MarshalJSON encodes the query type as its keyword
func (qt QueryType) MarshalJSON() ([]byte, error) {
	return json.Marshal(qt.String())
}

// QueryFeatures is the structural summary of one SQL statement.
// It is derived fresh per call and never mutated afterwards.
type QueryFeatures struct {
	QueryType       QueryType `json:"queryType"`
	Tables          []string  `json:"tables"`
	JoinPredicates  []string  `json:"joinPredicates"`
	WhereConditions []string  `json:"whereConditions"`
	OrderByClause   string    `json:"orderByClause,omitempty"`
	OrderByColumns  []string  `json:"orderByColumns"`
	HasOrderBy      bool      `json:"hasOrderBy"`
	HasWildcard     bool      `json:"hasWildcard"`
	FunctionCalls   []string  `json:"functionCalls"`
}

// OperationType is the kind of a synthesized plan step
type OperationType string

const (
	OpScan   OperationType = "SCAN"
	OpJoin   OperationType = "JOIN"
	OpFilter OperationType = "FILTER"
	OpSort   OperationType = "SORT"
)

// PlanOperation is one step of the synthetic execution plan
type PlanOperation struct {
	ID          int           `json:"id"`
	Type        OperationType `json:"type"`
	Cost        int           `json:"cost"`
	Description string        `json:"description"`
}

// ExecutionPlan is the ordered list of operations with their summed cost
type ExecutionPlan struct {
	Operations []PlanOperation `json:"operations"`
	TotalCost  int             `json:"totalCost"`
	Warnings   []string        `json:"warnings"`
}

// RecommendationType groups recommendations by what they ask the user to change
type RecommendationType string

const (
	RecommendIndex      RecommendationType = "index"
	RecommendQuery      RecommendationType = "query"
	RecommendStatistics RecommendationType = "statistics"
)

// Severity ranks a recommendation
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Recommendation is a single optimization hint with example code
type Recommendation struct {
	Type        RecommendationType `json:"type"`
	Severity    Severity           `json:"severity"`
	Description string             `json:"description"`
	ExampleCode string             `json:"code"`
}

// StatisticsSnapshot holds synthetic performance counters.
// Times are in milliseconds and the memory grant in kilobytes.
type StatisticsSnapshot struct {
	EstimatedRows          int `json:"estimatedRows"`
	ActualRows             int `json:"actualRows"`
	EstimatedExecutionTime int `json:"estimatedExecutionTime"`
	ActualExecutionTime    int `json:"actualExecutionTime"`
	MemoryGrant            int `json:"memoryGrant"`
	CPUTime                int `json:"cpuTime"`
	LogicalReads           int `json:"logicalReads"`
}

// Bundle is the complete result of one analysis call
type Bundle struct {
	Features        QueryFeatures      `json:"features"`
	Plan            ExecutionPlan      `json:"plan"`
	Recommendations []Recommendation   `json:"recommendations"`
	Statistics      StatisticsSnapshot `json:"statistics"`
}
