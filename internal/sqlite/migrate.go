package sqlite

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"syscall"
	"time"
)

// migrationsTable records the fingerprint of every schema the database has been migrated to. It lives outside the
// declarative schema and is never diffed.
const migrationsTable = "schema_migrations"

// internalTables excludes SQLite, Litestream and bookkeeping tables from schema diffs.
const internalTables = `
  AND %[1]s.name NOT LIKE 'sqlite_%%'
  AND %[1]s.name NOT LIKE '_litestream_%%'
  AND %[1]s.name <> '` + migrationsTable + `'`

// migrationReport summarises what migrateTo changed.
type migrationReport struct {
	fingerprint string
	skipped     bool
	dropped     []string
	created     int
	migrated    []string
}

// migrateTo ensures that the db schema matches the target schema defined in schema.sql.
//
// The migration is declarative:
//
// 1. Deletes deleted tables,
// 2. Creates new tables,
// 3. Migrates changed tables using 12-step schema migration https://www.sqlite.org/lang_altertable.html#otheralter,
// 4. Synchronises triggers and indexes.
//
// A schema whose fingerprint is already recorded is not diffed again.
//
// Inspired by https://david.rothlis.net/declarative-schema-migration-for-sqlite/
func (db *Database) migrateTo(ctx context.Context, schemaDefinition string) (migrationReport, error) {
	var (
		err    error
		report = migrationReport{fingerprint: schemaFingerprint(schemaDefinition)} //nolint:exhaustruct // filled below.
		start  = time.Now()
	)

	if report.skipped, err = db.isMigrated(ctx, report.fingerprint); err != nil {
		return report, fmt.Errorf("check schema fingerprint: %w", err)
	}
	if report.skipped {
		db.logger.LogAttrs(ctx, slog.LevelDebug, "schema up to date", slog.String("fingerprint", report.fingerprint))
		return report, nil
	}

	closeDatabase, err := db.attachSchemaTargetDatabase(ctx, schemaDefinition)
	if err != nil {
		return report, fmt.Errorf("attach schema target database: %w", err)
	}
	defer closeDatabase()

	// Step 1: Disable foreign key validation temporarily.
	if _, err = db.ReadWrite.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return report, fmt.Errorf("disable foreign key validation: %w", err)
	}
	// Step 12: Re-enable foreign key validation.
	defer func() {
		if _, fkErr := db.ReadWrite.ExecContext(ctx, "PRAGMA foreign_keys = ON"); fkErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "exit to avoid data corruption",
				slog.Any("error", fmt.Errorf("re-enable foreign key validation: %w", fkErr)))
			if killErr := syscall.Kill(syscall.Getpid(), syscall.SIGINT); killErr != nil {
				os.Exit(1)
			}
		}
	}()

	// Step 2: Start transaction.
	var tx *sql.Tx
	if tx, err = db.ReadWrite.BeginTx(ctx, nil); err != nil {
		return report, fmt.Errorf("start transaction: %w", err)
	}
	defer db.rollback(ctx, tx)()

	// Step 3-7 migrate tables.
	if err = db.migrateTables(ctx, tx, &report); err != nil {
		return report, fmt.Errorf("migrate tables: %w", err)
	}

	// Step 8: Recreate indexes and triggers associated with table if needed.
	for _, typ := range []schemaType{schemaTypeTrigger, schemaTypeIndex} {
		if err = db.migrateSchema(ctx, tx, typ); err != nil {
			return report, fmt.Errorf("migrate %ss: %w", typ, err)
		}
	}

	// Step 9: There are no views to recreate.
	// Step 10: Check foreign key constraints.
	if _, err = tx.ExecContext(ctx, "PRAGMA foreign_key_check"); err != nil {
		return report, fmt.Errorf("foreign key check: %w", err)
	}

	if _, err = tx.ExecContext(ctx, "INSERT INTO "+migrationsTable+" (fingerprint) VALUES (?)",
		report.fingerprint); err != nil {
		return report, fmt.Errorf("record schema fingerprint: %w", err)
	}

	// Step 11: Commit transaction from step 2.
	if err = tx.Commit(); err != nil {
		return report, fmt.Errorf("commit transaction: %w", err)
	}

	db.logger.LogAttrs(ctx, slog.LevelInfo, "migrated database",
		slog.String("fingerprint", report.fingerprint),
		slog.Any("dropped_tables", report.dropped),
		slog.Int("created_tables", report.created),
		slog.Any("migrated_tables", report.migrated),
		slog.Duration("duration", time.Since(start)))

	return report, nil
}

func schemaFingerprint(schemaDefinition string) string {
	sum := sha256.Sum256([]byte(schemaDefinition))
	return hex.EncodeToString(sum[:8])
}

// isMigrated creates the bookkeeping table if needed and reports whether fingerprint has been migrated to. Only the
// latest migration counts so that reverting to an earlier schema migrates again.
func (db *Database) isMigrated(ctx context.Context, fingerprint string) (bool, error) {
	if _, err := db.ReadWrite.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+migrationsTable+` (
    id          INTEGER PRIMARY KEY,
    fingerprint TEXT NOT NULL,
    migrated_at TEXT NOT NULL DEFAULT (STRFTIME('%Y-%m-%dT%H:%M:%fZ'))
) STRICT`); err != nil {
		return false, fmt.Errorf("create %s: %w", migrationsTable, err)
	}
	var latest string
	err := db.ReadWrite.QueryRowContext(ctx, `SELECT fingerprint FROM `+migrationsTable+`
ORDER BY id DESC LIMIT 1`).Scan(&latest)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query latest fingerprint: %w", err)
	}
	return latest == fingerprint, nil
}

// attachSchemaTargetDatabase attaches a temporary database initialised with the target schema and returns
// a function to detach the database that must be called after the migration.
func (db *Database) attachSchemaTargetDatabase(ctx context.Context, schemaDefinition string) (func(), error) {
	schemaTargetDataSourceName := fmt.Sprintf("file:%s?mode=memory&cache=shared", rand.Text())
	schemaTargetDatabase, err := sql.Open("sqlite3", schemaTargetDataSourceName)
	if err != nil {
		return nil, fmt.Errorf("open schema target database: %w", err)
	}
	// The attached database keeps the shared in-memory database alive after this connection closes.
	defer func() {
		if closeErr := schemaTargetDatabase.Close(); closeErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to close schema target database",
				slog.Any("error", closeErr))
		}
	}()
	if _, err = schemaTargetDatabase.ExecContext(ctx, schemaDefinition); err != nil {
		return nil, fmt.Errorf("migrate schema target database: %w", err)
	}
	if _, err = db.ReadWrite.ExecContext(ctx, "ATTACH DATABASE ? AS schemaTarget",
		schemaTargetDataSourceName); err != nil {
		return nil, fmt.Errorf("attach schema target database: %w", err)
	}
	return func() {
		if _, detachErr := db.ReadWrite.ExecContext(ctx, "DETACH DATABASE schemaTarget"); detachErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to detach schema target database",
				slog.Any("error", detachErr))
		}
	}, nil
}

// rollback rolls back given transaction.
func (db *Database) rollback(ctx context.Context, tx *sql.Tx) func() {
	return func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to rollback transaction",
				slog.Any("error", fmt.Errorf("rollback transaction: %w", err)))
		}
	}
}

// migrateTables ensures table schema is synchronized between databases.
func (db *Database) migrateTables(ctx context.Context, tx *sql.Tx, report *migrationReport) error {
	var err error

	// Step 3: Remember schema, which also covers the trivial creation and deletion of tables.
	if report.dropped, err = queryColumn(ctx, tx, `SELECT live.name
FROM sqlite_schema AS live
         LEFT JOIN schemaTarget.sqlite_schema AS target ON live.name = target.name AND live.type = target.type
WHERE live.type = 'table'
  AND target.type IS NULL`+fmt.Sprintf(internalTables, "live")); err != nil {
		return fmt.Errorf("query deleted tables: %w", err)
	}
	for _, table := range report.dropped {
		db.logger.LogAttrs(ctx, slog.LevelInfo, "dropping table", slog.String("table", table))
		if _, err = tx.ExecContext(ctx, "DROP TABLE "+table); err != nil {
			return fmt.Errorf("DROP TABLE %s: %w", table, err)
		}
	}

	var newTableSQLs []string
	if newTableSQLs, err = queryColumn(ctx, tx, `SELECT target.sql
FROM sqlite_schema AS live
         RIGHT JOIN schemaTarget.sqlite_schema AS target ON live.name = target.name AND live.type = target.type
WHERE target.type = 'table'
  AND live.type IS NULL`+fmt.Sprintf(internalTables, "target")); err != nil {
		return fmt.Errorf("query new tables: %w", err)
	}
	for _, newTableSQL := range newTableSQLs {
		db.logger.LogAttrs(ctx, slog.LevelInfo, "creating table", slog.String("query", newTableSQL))
		if _, err = tx.ExecContext(ctx, newTableSQL); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	report.created = len(newTableSQLs)

	var changedTables []changedSchema
	if changedTables, err = queryChangedSchemas(ctx, tx, `SELECT live.name, live.sql, target.sql
FROM sqlite_schema AS live
         JOIN schemaTarget.sqlite_schema AS target ON live.name = target.name AND live.type = target.type
WHERE live.type = 'table'
  -- The table rename operation adds double quotes around the table name, so we remove them for this diff.
  AND REPLACE(live.sql, '"', '') <> REPLACE(target.sql, '"', '')`+fmt.Sprintf(internalTables, "live")); err != nil {
		return fmt.Errorf("query changed tables: %w", err)
	}
	for _, table := range changedTables {
		if err = db.rebuildTable(ctx, tx, table); err != nil {
			return fmt.Errorf("rebuild %s: %w", table.name, err)
		}
		report.migrated = append(report.migrated, table.name)
	}
	return nil
}

// rebuildTable runs steps 4 to 7 of the 12-step migration for one changed table.
func (db *Database) rebuildTable(ctx context.Context, tx *sql.Tx, table changedSchema) error {
	logger := db.logger.With(slog.String("table", table.name))
	logger.LogAttrs(ctx, slog.LevelInfo, "migrating table",
		slog.String("live_sql", table.liveSQL),
		slog.String("new_sql", table.newSQL))

	// Step 4: Create table according to new schema on a temporary name.
	tempName := table.name + "_migration_temp"
	tempNameSQL := strings.Replace(table.newSQL, table.name, tempName, 1)
	if _, err := tx.ExecContext(ctx, tempNameSQL); err != nil {
		return fmt.Errorf("create new table to temporary name %s: %w", tempNameSQL, err)
	}

	// Step 5: Copy common columns. Column names are quoted because some may be SQLite keywords.
	commonColumns, err := queryColumn(ctx, tx, `SELECT '"' || target.name || '"'
FROM PRAGMA_TABLE_INFO(:table_name) AS live
JOIN PRAGMA_TABLE_INFO(:table_name, 'schemaTarget') AS target ON target.name = live.name`,
		sql.Named("table_name", table.name))
	if err != nil {
		return fmt.Errorf("query common columns: %w", err)
	}
	common := strings.Join(commonColumns, ", ")

	for _, step := range []struct{ name, query string }{
		{"copy data", fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s", tempName, common, common, table.name)},
		// Step 6.
		{"drop old table", "DROP TABLE " + table.name},
		// Step 7.
		{"rename new table", fmt.Sprintf("ALTER TABLE %s RENAME TO %s", tempName, table.name)},
	} {
		logger.LogAttrs(ctx, slog.LevelInfo, step.name, slog.String("query", step.query))
		if _, err = tx.ExecContext(ctx, step.query); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}
	return nil
}

// queryRows runs query inside tx and scans each row with scan.
func queryRows[T any](
	ctx context.Context,
	tx *sql.Tx,
	scan func(*sql.Rows) (T, error),
	query string,
	args ...any,
) (_ []T, err error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer func() {
		err = errors.Join(err, rows.Close())
	}()
	var results []T
	for rows.Next() {
		var result T
		if result, err = scan(rows); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		results = append(results, result)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return results, nil
}

// queryColumn returns the single string column of every row.
func queryColumn(ctx context.Context, tx *sql.Tx, query string, args ...any) ([]string, error) {
	return queryRows(ctx, tx, func(rows *sql.Rows) (string, error) {
		var s string
		err := rows.Scan(&s)
		return s, err
	}, query, args...)
}

type changedSchema struct {
	name    string
	liveSQL string
	newSQL  string
}

// queryChangedSchemas returns name, live SQL and target SQL of every entity whose definition differs.
func queryChangedSchemas(ctx context.Context, tx *sql.Tx, query string, args ...any) ([]changedSchema, error) {
	return queryRows(ctx, tx, func(rows *sql.Rows) (changedSchema, error) {
		var c changedSchema
		err := rows.Scan(&c.name, &c.liveSQL, &c.newSQL)
		return c, err
	}, query, args...)
}

type schemaType string

const (
	schemaTypeTrigger schemaType = "trigger"
	schemaTypeIndex   schemaType = "index"
)

// migrateSchema ensures all entities of typ are synchronized between databases.
func (db *Database) migrateSchema(ctx context.Context, tx *sql.Tx, typ schemaType) error {
	var (
		err     error
		deleted []string
		keyword = strings.ToUpper(string(typ))
		logger  = db.logger.With(slog.String("schemaType", string(typ)))
	)

	if deleted, err = queryColumn(ctx, tx, `SELECT live.name
FROM sqlite_schema AS live
         LEFT JOIN schemaTarget.sqlite_schema AS target ON live.name = target.name AND live.type = target.type
WHERE live.type = ?
  AND target.type IS NULL
  AND live.name NOT LIKE 'sqlite_%'`, typ); err != nil {
		return fmt.Errorf("query deleted: %w", err)
	}
	for _, name := range deleted {
		dropQuery := fmt.Sprintf("DROP %s %s", keyword, name)
		logger.LogAttrs(ctx, slog.LevelInfo, "dropping", slog.String("query", dropQuery))
		if _, err = tx.ExecContext(ctx, dropQuery); err != nil {
			return fmt.Errorf("drop %s: %w", name, err)
		}
	}

	var created []string
	if created, err = queryColumn(ctx, tx, `SELECT target.sql
FROM sqlite_schema AS live
         RIGHT JOIN schemaTarget.sqlite_schema AS target ON live.name = target.name AND live.type = target.type
WHERE target.type = ?
  AND live.type IS NULL
  AND target.name NOT LIKE 'sqlite_%'`, typ); err != nil {
		return fmt.Errorf("query created: %w", err)
	}
	for _, newSQL := range created {
		logger.LogAttrs(ctx, slog.LevelInfo, "creating", slog.String("query", newSQL))
		if _, err = tx.ExecContext(ctx, newSQL); err != nil {
			return fmt.Errorf("create: %w", err)
		}
	}

	var changedList []changedSchema
	if changedList, err = queryChangedSchemas(ctx, tx, `SELECT live.name, live.sql, target.sql
FROM sqlite_schema AS live
         JOIN schemaTarget.sqlite_schema AS target ON live.name = target.name AND live.type = target.type
WHERE live.type = ?
  AND live.name NOT LIKE 'sqlite_%'
  AND live.sql <> target.sql`, typ); err != nil {
		return fmt.Errorf("query changed: %w", err)
	}
	for _, changed := range changedList {
		logger.LogAttrs(ctx, slog.LevelInfo, "recreating",
			slog.String("name", changed.name),
			slog.String("live_sql", changed.liveSQL),
			slog.String("new_sql", changed.newSQL))
		if _, err = tx.ExecContext(ctx, fmt.Sprintf("DROP %s %s", keyword, changed.name)); err != nil {
			return fmt.Errorf("drop old %s: %w", changed.name, err)
		}
		if _, err = tx.ExecContext(ctx, changed.newSQL); err != nil {
			return fmt.Errorf("create new %s: %w", changed.name, err)
		}
	}
	return nil
}
