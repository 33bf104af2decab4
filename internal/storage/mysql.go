package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/multierr"

	dderrors "github.com/abatilo/duedate/internal/errors"
	"github.com/abatilo/duedate/internal/task"
)

const mysqlSchema = `CREATE TABLE IF NOT EXISTS tasks (
	id            BIGINT       NOT NULL AUTO_INCREMENT PRIMARY KEY,
	name          VARCHAR(500) NOT NULL,
	start_date    DATE         NULL,
	due_date      DATE         NOT NULL,
	section       VARCHAR(200) NOT NULL DEFAULT '',
	assignee      VARCHAR(200) NOT NULL DEFAULT '',
	priority      VARCHAR(20)  NOT NULL,
	progress      VARCHAR(20)  NOT NULL,
	created_at    DATE         NULL,
	last_modified DATE         NULL
)`

const mysqlColumns = `id, name, start_date, due_date, section, assignee, priority, progress, created_at, last_modified`

// MySQLBackend stores tasks in a MySQL "tasks" table, created on open.
type MySQLBackend struct {
	db *sql.DB
}

// OpenMySQL connects using dsn, verifies the connection and creates the
// tasks table if needed.
func OpenMySQL(ctx context.Context, dsn string) (*MySQLBackend, error) {
	cfg, err := mysqlConfig(dsn)
	if err != nil {
		return nil, err
	}
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create mysql connector: %w", err)
	}

	db := sql.OpenDB(connector)
	if err := db.PingContext(ctx); err != nil {
		return nil, multierr.Append(fmt.Errorf("failed to connect to mysql: %w", err), db.Close())
	}
	if _, err := db.ExecContext(ctx, mysqlSchema); err != nil {
		return nil, multierr.Append(fmt.Errorf("failed to create tasks table: %w", err), db.Close())
	}
	return &MySQLBackend{db: db}, nil
}

// mysqlConfig parses dsn and forces DATE columns to scan as UTC time.Time.
func mysqlConfig(dsn string) (*mysql.Config, error) {
	if dsn == "" {
		return nil, errors.New("mysql driver requires a DSN")
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid mysql DSN: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg, nil
}

func (m *MySQLBackend) Load(ctx context.Context) ([]task.Task, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT `+mysqlColumns+` FROM tasks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []task.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (m *MySQLBackend) Insert(ctx context.Context, t task.Task) (task.Task, error) {
	res, err := m.db.ExecContext(ctx,
		`INSERT INTO tasks (name, start_date, due_date, section, assignee, priority, progress, created_at, last_modified)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Name, nullDate(t.StartDate), nullDate(t.DueDate), t.Section, t.Assignee,
		string(t.Priority), string(t.Progress), nullDate(t.CreatedAt), nullDate(t.LastModified),
	)
	if err != nil {
		return task.Task{}, fmt.Errorf("failed to insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return task.Task{}, err
	}
	t.ID = id
	return t, nil
}

func (m *MySQLBackend) Update(ctx context.Context, id int64, apply UpdateFunc) (saved task.Task, err error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return task.Task{}, err
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, tx.Rollback())
		}
	}()

	existing, err := scanTask(tx.QueryRowContext(ctx,
		`SELECT `+mysqlColumns+` FROM tasks WHERE id = ? FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return task.Task{}, dderrors.TaskNotFoundError{ID: id}
	}
	if err != nil {
		return task.Task{}, err
	}

	if saved, err = apply(existing); err != nil {
		return task.Task{}, err
	}
	saved.ID = id
	if _, err = tx.ExecContext(ctx,
		`UPDATE tasks SET name = ?, start_date = ?, due_date = ?, section = ?, assignee = ?,
		 priority = ?, progress = ?, last_modified = ? WHERE id = ?`,
		saved.Name, nullDate(saved.StartDate), nullDate(saved.DueDate), saved.Section, saved.Assignee,
		string(saved.Priority), string(saved.Progress), nullDate(saved.LastModified), saved.ID,
	); err != nil {
		return task.Task{}, fmt.Errorf("failed to update task %d: %w", id, err)
	}
	if err = tx.Commit(); err != nil {
		return task.Task{}, err
	}
	return saved, nil
}

func (m *MySQLBackend) Close() error {
	return m.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (task.Task, error) {
	var (
		t                                   task.Task
		priority, progress                  string
		start, due, createdAt, lastModified sql.NullTime
	)
	if err := row.Scan(&t.ID, &t.Name, &start, &due, &t.Section, &t.Assignee,
		&priority, &progress, &createdAt, &lastModified); err != nil {
		return task.Task{}, err
	}
	t.Priority = task.Priority(priority)
	t.Progress = task.Progress(progress)
	t.StartDate = dateFromNull(start)
	t.DueDate = dateFromNull(due)
	t.CreatedAt = dateFromNull(createdAt)
	t.LastModified = dateFromNull(lastModified)
	return t, nil
}

func nullDate(d task.Date) sql.NullTime {
	return sql.NullTime{Time: d.Time, Valid: !d.IsZero()}
}

func dateFromNull(n sql.NullTime) task.Date {
	if !n.Valid {
		return task.Date{}
	}
	return task.DateOf(n.Time)
}
