package storage

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	dderrors "github.com/abatilo/duedate/internal/errors"
	"github.com/abatilo/duedate/internal/task"
)

// Column names of the project export the CSV backend reads and writes.
const (
	colTaskID        = "Task ID"
	colCreatedAt     = "Created At"
	colCompletedAt   = "Completed At"
	colLastModified  = "Last Modified"
	colName          = "Name"
	colSection       = "Section/Column"
	colAssignee      = "Assignee"
	colAssigneeEmail = "Assignee Email"
	colStartDate     = "Start Date"
	colDueDate       = "Due Date"
	colTags          = "Tags"
	colNotes         = "Notes"
	colProjects      = "Projects"
	colParentTask    = "Parent task"
	colBlockedBy     = "Blocked By (Dependencies)"
	colBlocking      = "Blocking (Dependencies)"
	colPriority      = "Priority"
	colProgress      = "Task Progress"
)

const (
	csvDateLayout      = "02/01/2006"
	csvDateParseLayout = "2/1/2006"
	utf8BOM            = "\ufeff"
	// BOM bytes decoded as Latin-1, left behind by tools that ignore the BOM.
	mojibakeBOM    = "ï»¿"
	lockRetryDelay = 50 * time.Millisecond
)

//nolint:gochecknoglobals // fixed column layout of a new task file
var defaultHeader = []string{
	colTaskID, colCreatedAt, colCompletedAt, colLastModified, colName, colSection,
	colAssignee, colAssigneeEmail, colStartDate, colDueDate, colTags, colNotes,
	colProjects, colParentTask, colBlockedBy, colBlocking, colPriority, colProgress,
}

// CSVBackend stores tasks in a single CSV file, one row per task. Columns it
// doesn't know about are carried through untouched. Writes replace the file
// atomically; a sibling ".lock" file serialises access across processes.
type CSVBackend struct {
	path   string
	logger *zap.Logger
	mu     sync.Mutex
	lock   *flock.Flock
}

// NewCSVBackend creates a backend for the file at path. The file is created on first write.
func NewCSVBackend(path string, logger *zap.Logger) *CSVBackend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSVBackend{
		path:   path,
		logger: logger,
		lock:   flock.New(path + ".lock"),
	}
}

// Path returns the CSV file path.
func (b *CSVBackend) Path() string {
	return b.path
}

// IsInitialized checks if the CSV file exists.
func (b *CSVBackend) IsInitialized() bool {
	info, err := os.Stat(b.path)
	return err == nil && !info.IsDir()
}

// Init writes an empty task file containing only the header row.
func (b *CSVBackend) Init(ctx context.Context, force bool) error {
	if b.IsInitialized() && !force {
		return dderrors.AlreadyInitializedError{Path: b.path}
	}
	return b.withLock(ctx, true, func() error {
		return b.write(newTable(defaultHeader))
	})
}

// Load returns the tasks in file order. Rows without an ID or name, rows
// whose ID isn't an integer, and repeated IDs are skipped.
func (b *CSVBackend) Load(ctx context.Context) ([]task.Task, error) {
	if !b.IsInitialized() {
		return []task.Task{}, nil
	}

	var tasks []task.Task
	err := b.withLock(ctx, false, func() error {
		tb, err := b.read()
		if err != nil {
			return err
		}
		tasks = b.decodeAll(tb)
		return nil
	})
	return tasks, err
}

// Insert appends a row for t with the next unused ID.
func (b *CSVBackend) Insert(ctx context.Context, t task.Task) (task.Task, error) {
	err := b.withLock(ctx, true, func() error {
		tb, err := b.read()
		if err != nil {
			return err
		}
		t.ID = task.NextID(tb.ids())
		row := tb.encode(make([]string, len(tb.header)), t)
		row = tb.set(row, colTaskID, strconv.FormatInt(t.ID, 10))
		row = tb.set(row, colCreatedAt, formatCSVDate(t.CreatedAt))
		tb.rows = append(tb.rows, row)
		return b.write(tb)
	})
	if err != nil {
		return task.Task{}, err
	}
	return t, nil
}

// Update rewrites the mutable columns of the first row with t's ID.
func (b *CSVBackend) Update(ctx context.Context, id int64, apply UpdateFunc) (task.Task, error) {
	var saved task.Task
	err := b.withLock(ctx, true, func() error {
		tb, err := b.read()
		if err != nil {
			return err
		}
		i := tb.find(id)
		if i < 0 {
			return dderrors.TaskNotFoundError{ID: id}
		}
		existing, err := tb.decode(i)
		if err != nil {
			return err
		}
		updated, err := apply(existing)
		if err != nil {
			return err
		}
		tb.rows[i] = tb.encode(tb.rows[i], updated)
		if saved, err = tb.decode(i); err != nil {
			return err
		}
		return b.write(tb)
	})
	if err != nil {
		return task.Task{}, err
	}
	return saved, nil
}

// Close releases the lock file handle.
func (b *CSVBackend) Close() error {
	return b.lock.Close()
}

func (b *CSVBackend) withLock(ctx context.Context, exclusive bool, fn func() error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if exclusive {
		//nolint:gosec // G301: data directory is user-owned
		if err := os.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
			return err
		}
	}

	var (
		locked bool
		err    error
	)
	if exclusive {
		locked, err = b.lock.TryLockContext(ctx, lockRetryDelay)
	} else {
		locked, err = b.lock.TryRLockContext(ctx, lockRetryDelay)
	}
	if err != nil {
		return fmt.Errorf("failed to lock %s: %w", b.path, err)
	}
	if !locked {
		return fmt.Errorf("failed to lock %s", b.path)
	}

	err = fn()
	return multierr.Append(err, b.lock.Unlock())
}

func (b *CSVBackend) read() (*table, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return newTable(defaultHeader), nil
	}
	if err != nil {
		return nil, err
	}
	return readTable(bytes.NewReader(data))
}

func (b *CSVBackend) write(tb *table) (err error) {
	f, err := os.CreateTemp(filepath.Dir(b.path), ".duedate-*.csv")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(f.Name())
		}
	}()

	if err = tb.write(f); err != nil {
		return multierr.Append(err, f.Close())
	}
	if err = f.Sync(); err != nil {
		return multierr.Append(err, f.Close())
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), b.path)
}

func (b *CSVBackend) decodeAll(tb *table) []task.Task {
	tasks := make([]task.Task, 0, len(tb.rows))
	seen := make(map[int64]bool, len(tb.rows))
	for i := range tb.rows {
		t, err := tb.decode(i)
		if err != nil {
			var rowErr RowError
			if errors.As(err, &rowErr) && rowErr.Reason == reasonBlank {
				continue
			}
			b.logger.Warn("skipping task row", zap.String("file", b.path), zap.Error(err))
			continue
		}
		if seen[t.ID] {
			b.logger.Warn("skipping duplicate task id",
				zap.String("file", b.path),
				zap.Int64("id", t.ID),
				zap.Int("row", csvRowNumber(i)),
			)
			continue
		}
		seen[t.ID] = true
		tasks = append(tasks, t)
	}
	return tasks
}

const reasonBlank = "missing task id or name"

// table is a parsed CSV file: its header, a column index and the data rows.
type table struct {
	header []string
	cols   map[string]int
	rows   [][]string
}

func newTable(header []string) *table {
	tb := &table{header: append([]string(nil), header...)}
	tb.reindex()
	return tb
}

func readTable(r io.Reader) (*table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse task file: %w", err)
	}
	if len(records) == 0 {
		return newTable(defaultHeader), nil
	}

	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(strings.TrimPrefix(header[0], utf8BOM), mojibakeBOM)
	}
	tb := newTable(header)
	tb.rows = records[1:]
	tb.ensureColumns(
		colTaskID, colCreatedAt, colLastModified, colName, colSection, colAssignee,
		colStartDate, colDueDate, colPriority, colProgress,
	)
	return tb, nil
}

func (tb *table) reindex() {
	tb.cols = make(map[string]int, len(tb.header))
	for i, name := range tb.header {
		if _, dup := tb.cols[name]; !dup {
			tb.cols[name] = i
		}
	}
}

// ensureColumns appends any missing column to the header. Existing rows are
// padded lazily by set.
func (tb *table) ensureColumns(names ...string) {
	for _, name := range names {
		if _, ok := tb.cols[name]; !ok {
			tb.header = append(tb.header, name)
			tb.cols[name] = len(tb.header) - 1
		}
	}
}

func (tb *table) get(row []string, col string) string {
	i, ok := tb.cols[col]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

func (tb *table) set(row []string, col, value string) []string {
	i, ok := tb.cols[col]
	if !ok {
		return row
	}
	for len(row) <= i {
		row = append(row, "")
	}
	row[i] = value
	return row
}

func (tb *table) ids() []int64 {
	ids := make([]int64, 0, len(tb.rows))
	for _, row := range tb.rows {
		if id, err := strconv.ParseInt(strings.TrimSpace(tb.get(row, colTaskID)), 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

func (tb *table) find(id int64) int {
	want := strconv.FormatInt(id, 10)
	for i, row := range tb.rows {
		if strings.TrimSpace(tb.get(row, colTaskID)) == want && tb.get(row, colName) != "" {
			return i
		}
	}
	return -1
}

func (tb *table) decode(i int) (task.Task, error) {
	row := tb.rows[i]
	rawID := strings.TrimSpace(tb.get(row, colTaskID))
	name := tb.get(row, colName)
	if rawID == "" || name == "" {
		return task.Task{}, RowError{Row: csvRowNumber(i), Reason: reasonBlank}
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return task.Task{}, RowError{Row: csvRowNumber(i), Reason: fmt.Sprintf("invalid task id %q", rawID)}
	}

	return task.Task{
		ID:           id,
		Name:         name,
		StartDate:    parseCSVDate(tb.get(row, colStartDate)),
		DueDate:      parseCSVDate(tb.get(row, colDueDate)),
		Section:      tb.get(row, colSection),
		Assignee:     tb.get(row, colAssignee),
		Priority:     task.Priority(tb.get(row, colPriority)),
		Progress:     task.Progress(tb.get(row, colProgress)),
		CreatedAt:    parseCSVDate(tb.get(row, colCreatedAt)),
		LastModified: parseCSVDate(tb.get(row, colLastModified)),
	}, nil
}

// encode writes the mutable fields of t and its modification date into row.
func (tb *table) encode(row []string, t task.Task) []string {
	row = tb.set(row, colName, t.Name)
	row = tb.set(row, colSection, t.Section)
	row = tb.set(row, colAssignee, t.Assignee)
	row = tb.set(row, colStartDate, formatCSVDate(t.StartDate))
	row = tb.set(row, colDueDate, formatCSVDate(t.DueDate))
	row = tb.set(row, colPriority, string(t.Priority))
	row = tb.set(row, colProgress, string(t.Progress))
	return tb.set(row, colLastModified, formatCSVDate(t.LastModified))
}

func (tb *table) write(w io.Writer) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(tb.header); err != nil {
		return err
	}
	return cw.WriteAll(tb.rows)
}

// csvRowNumber converts a data row index to the 1-based line number in the file.
func csvRowNumber(i int) int {
	return i + 2 //nolint:mnd // header line plus 1-based numbering
}

// parseCSVDate reads a DD/MM/YYYY date. Unparsable values read as no date.
func parseCSVDate(s string) task.Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return task.Date{}
	}
	t, err := time.Parse(csvDateParseLayout, s)
	if err != nil {
		return task.Date{}
	}
	return task.DateOf(t)
}

func formatCSVDate(d task.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.Format(csvDateLayout)
}
