package registry

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"go-sqladvisor/pkg/analyzer"
)

// IndexInfo is one row of INFORMATION_SCHEMA.STATISTICS
type IndexInfo struct {
	TableName  string         `db:"table_name"`
	NonUnique  int            `db:"non_unique"`
	IndexName  string         `db:"index_name"`
	SeqInIndex int            `db:"seq_in_index"`
	ColumnName sql.NullString `db:"column_name"`
}

const indexesQuery = `
	SELECT TABLE_NAME AS table_name, NON_UNIQUE AS non_unique, INDEX_NAME AS index_name,
		SEQ_IN_INDEX AS seq_in_index, COLUMN_NAME AS column_name
	FROM INFORMATION_SCHEMA.STATISTICS
	WHERE TABLE_SCHEMA = COALESCE(NULLIF(?, ''), DATABASE())
	ORDER BY TABLE_NAME, INDEX_NAME = 'PRIMARY' DESC, INDEX_NAME, SEQ_IN_INDEX`

// ConnectMySQL opens and pings a MySQL connection
func ConnectMySQL(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}
	return db, nil
}

// ImportMySQL reads index metadata for schema (the connection's default
// database when empty) and turns it into one card per table
func ImportMySQL(ctx context.Context, db *sqlx.DB, schema string) ([]analyzer.IndexEntry, error) {
	var rows []IndexInfo
	if err := db.SelectContext(ctx, &rows, indexesQuery, schema); err != nil {
		return nil, fmt.Errorf("failed to query indexes: %w", err)
	}
	return BuildDefinitions(rows), nil
}

// BuildDefinitions groups STATISTICS rows by table and index and renders
// CREATE INDEX text for each. Rows must be ordered by table, index, sequence.
func BuildDefinitions(rows []IndexInfo) []analyzer.IndexEntry {
	type index struct {
		name    string
		unique  bool
		columns []string
	}

	var order []string
	byTable := make(map[string][]*index)

	for _, r := range rows {
		// functional key parts have no column name
		col := r.ColumnName.String
		if !r.ColumnName.Valid {
			col = "(expression)"
		}

		indexes, ok := byTable[r.TableName]
		if !ok {
			order = append(order, r.TableName)
		}
		if n := len(indexes); n > 0 && indexes[n-1].name == r.IndexName {
			indexes[n-1].columns = append(indexes[n-1].columns, col)
			continue
		}
		byTable[r.TableName] = append(indexes, &index{
			name:    r.IndexName,
			unique:  r.NonUnique == 0,
			columns: []string{col},
		})
	}

	entries := make([]analyzer.IndexEntry, 0, len(order))
	for _, table := range order {
		var lines []string
		for _, idx := range byTable[table] {
			cols := strings.Join(idx.columns, ", ")
			switch {
			case idx.name == "PRIMARY":
				lines = append(lines, fmt.Sprintf("ALTER TABLE %s ADD PRIMARY KEY (%s);", table, cols))
			case idx.unique:
				lines = append(lines, fmt.Sprintf("CREATE UNIQUE INDEX %s ON %s(%s);", idx.name, table, cols))
			default:
				lines = append(lines, fmt.Sprintf("CREATE INDEX %s ON %s(%s);", idx.name, table, cols))
			}
		}
		entries = append(entries, analyzer.IndexEntry{Table: table, Definition: strings.Join(lines, "\n")})
	}
	return entries
}
