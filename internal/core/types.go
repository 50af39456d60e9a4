package core

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// LabelPrefix is the prefix of positional table labels ("Table 1", "Table 2", ...).
const LabelPrefix = "Table "

// Label returns the positional label for the n-th table (1-based).
func Label(n int) string {
	return LabelPrefix + strconv.Itoa(n)
}

// Layouts used when a time cell is rendered as text.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
)

// HasClock reports whether t carries a time of day.
func HasClock(t time.Time) bool {
	h, m, s := t.Clock()
	return h != 0 || m != 0 || s != 0 || t.Nanosecond() != 0
}

// FormatTime renders a date cell as ISO text, keeping the time of day when
// there is one.
func FormatTime(t time.Time) string {
	if HasClock(t) {
		return t.Format(DateTimeLayout)
	}
	return t.Format(DateLayout)
}

// Table is one tabular dataset extracted from a spreadsheet.
// Cells are heterogeneous: string, float64, bool, time.Time or nil.
type Table struct {
	Title   string   // Human-readable title (LLM or sheet derived)
	Sheet   string   // Source worksheet name
	Range   string   // Source cell range, e.g. "A3:F40"
	Columns []string // Header names
	Rows    [][]any  // Data rows; each row has len(Columns) cells
}

// NumRows returns the number of data rows.
func (t *Table) NumRows() int {
	return len(t.Rows)
}

// Cell returns the cell at (row, col) or nil when out of range.
func (t *Table) Cell(row, col int) any {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return nil
	}
	return t.Rows[row][col]
}

// ColumnIndex returns the position of a column (case-insensitive) or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if strings.EqualFold(c, name) {
			return i
		}
	}
	return -1
}

// TableSet is an ordered mapping from label to table.
// Iteration order is insertion order. The zero value is not usable;
// call NewTableSet.
type TableSet struct {
	labels []string
	tables map[string]*Table
}

// NewTableSet creates an empty TableSet.
func NewTableSet() *TableSet {
	return &TableSet{tables: make(map[string]*Table)}
}

// Relabel assigns positional labels "Table 1".."Table N" to tables in order.
func Relabel(tables []*Table) *TableSet {
	set := NewTableSet()
	for i, t := range tables {
		set.Set(Label(i+1), t)
	}
	return set
}

// Set stores a table under label. A new label is appended to the order;
// an existing label keeps its position.
func (s *TableSet) Set(label string, t *Table) {
	if _, exists := s.tables[label]; !exists {
		s.labels = append(s.labels, label)
	}
	s.tables[label] = t
}

// Get returns the table stored under label.
func (s *TableSet) Get(label string) (*Table, bool) {
	if s == nil {
		return nil, false
	}
	t, ok := s.tables[label]
	return t, ok
}

// Labels returns the labels in order. The slice is a copy.
func (s *TableSet) Labels() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.labels))
	copy(out, s.labels)
	return out
}

// Len returns the number of tables.
func (s *TableSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.labels)
}

// Each calls fn for every table in order, stopping at the first error.
func (s *TableSet) Each(fn func(label string, t *Table) error) error {
	if s == nil {
		return nil
	}
	for _, label := range s.labels {
		if err := fn(label, s.tables[label]); err != nil {
			return err
		}
	}
	return nil
}

// Require returns a *MissingTablesError naming every absent label.
func (s *TableSet) Require(labels ...string) error {
	var missing []string
	for _, label := range labels {
		if _, ok := s.Get(label); !ok {
			missing = append(missing, label)
		}
	}
	if len(missing) > 0 {
		return &MissingTablesError{Labels: missing}
	}
	return nil
}

// Select returns a new TableSet holding the given labels in the given order.
// All labels must be present.
func (s *TableSet) Select(labels ...string) (*TableSet, error) {
	if err := s.Require(labels...); err != nil {
		return nil, err
	}
	out := NewTableSet()
	for _, label := range labels {
		out.Set(label, s.tables[label])
	}
	return out, nil
}

// sameLabels reports whether two sets carry identical labels in identical order.
func sameLabels(a, b *TableSet) bool {
	la, lb := a.Labels(), b.Labels()
	if len(la) != len(lb) {
		return false
	}
	for i := range la {
		if la[i] != lb[i] {
			return false
		}
	}
	return true
}

// Severity grades a validation issue.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Issue is one validation finding.
type Issue struct {
	Table    string   // Table label
	Column   string   // Column name, empty for table-level issues
	Row      int      // 1-based data row, 0 for column/table-level issues
	Severity Severity
	Message  string
}

func (i Issue) String() string {
	loc := i.Table
	if i.Column != "" {
		loc += " / " + i.Column
	}
	if i.Row > 0 {
		loc += fmt.Sprintf(" / row %d", i.Row)
	}
	return fmt.Sprintf("[%s] %s: %s", i.Severity, loc, i.Message)
}

// TableSummary describes one table after validation.
type TableSummary struct {
	Rows        int
	Columns     int
	DroppedRows int
}

// ValidationReport is returned alongside the validated TableSet.
// The orchestrator routes it to display and never interprets it.
type ValidationReport struct {
	Issues    []Issue
	Summaries map[string]TableSummary
}

// NewValidationReport creates an empty report.
func NewValidationReport() *ValidationReport {
	return &ValidationReport{Summaries: make(map[string]TableSummary)}
}

// Add appends an issue.
func (r *ValidationReport) Add(issue Issue) {
	r.Issues = append(r.Issues, issue)
}

// Count returns the number of issues with the given severity.
func (r *ValidationReport) Count(sev Severity) int {
	if r == nil {
		return 0
	}
	n := 0
	for _, i := range r.Issues {
		if i.Severity == sev {
			n++
		}
	}
	return n
}

// ForTable returns the issues recorded for one table label.
func (r *ValidationReport) ForTable(label string) []Issue {
	if r == nil {
		return nil
	}
	var out []Issue
	for _, i := range r.Issues {
		if i.Table == label {
			out = append(out, i)
		}
	}
	return out
}

// Extractor turns a staged spreadsheet into tables, in extraction order.
type Extractor interface {
	Extract(ctx context.Context, path, sourceFilename, apiKey string) ([]*Table, error)
}

// Validator checks tables and may return a modified set plus a report.
type Validator interface {
	Validate(ctx context.Context, tables *TableSet) (*TableSet, *ValidationReport, error)
}

// Transformer produces the final tables for presentation and delivery.
type Transformer interface {
	Transform(ctx context.Context, tables *TableSet) (*TableSet, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, path, sourceFilename, apiKey string) ([]*Table, error)

func (f ExtractorFunc) Extract(ctx context.Context, path, sourceFilename, apiKey string) ([]*Table, error) {
	return f(ctx, path, sourceFilename, apiKey)
}

// ValidatorFunc adapts a function to the Validator interface.
type ValidatorFunc func(ctx context.Context, tables *TableSet) (*TableSet, *ValidationReport, error)

func (f ValidatorFunc) Validate(ctx context.Context, tables *TableSet) (*TableSet, *ValidationReport, error) {
	return f(ctx, tables)
}

// TransformerFunc adapts a function to the Transformer interface.
type TransformerFunc func(ctx context.Context, tables *TableSet) (*TableSet, error)

func (f TransformerFunc) Transform(ctx context.Context, tables *TableSet) (*TableSet, error) {
	return f(ctx, tables)
}

// WarehouseLoader bulk-loads a TableSet. The whole call succeeds or fails.
type WarehouseLoader interface {
	Load(ctx context.Context, tables *TableSet) error
}

// EmailRequest carries the ad hoc fields entered in the email form.
type EmailRequest struct {
	From     string // Sender address
	Password string // Sender SMTP credential
	To       string // Recipient address
	Subject  string
	Body     string // Optional
}

// Missing returns the names of required fields that are empty.
func (r EmailRequest) Missing() []string {
	var missing []string
	if strings.TrimSpace(r.From) == "" {
		missing = append(missing, "sender email")
	}
	if r.Password == "" {
		missing = append(missing, "sender password")
	}
	if strings.TrimSpace(r.To) == "" {
		missing = append(missing, "recipient email")
	}
	if strings.TrimSpace(r.Subject) == "" {
		missing = append(missing, "subject")
	}
	return missing
}

// EmailSender delivers tables as a spreadsheet attachment.
type EmailSender interface {
	Send(ctx context.Context, req EmailRequest, tables *TableSet) error
}

// DeliveryResult reports the outcome of a sink action to the user.
type DeliveryResult struct {
	OK      bool   `json:"ok"`
	Warning bool   `json:"warning"` // Request rejected before any delivery was attempted
	Message string `json:"message"`
}

// Figure is one rendered chart.
type Figure struct {
	Name  string // File name, e.g. "chart-1.png"
	Title string
	PNG   []byte
}

// ChartRenderer renders the chart set for a TableSet.
type ChartRenderer interface {
	Render(tables *TableSet) ([]Figure, error)
}

// Phase is the state of an upload session.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseStaged       Phase = "staged"
	PhaseExtracting   Phase = "extracting"
	PhaseValidating   Phase = "validating"
	PhaseTransforming Phase = "transforming"
	PhaseReady        Phase = "ready"
	PhaseFailed       Phase = "failed"
)

// Running reports whether the pipeline is mid-run in this phase.
func (p Phase) Running() bool {
	switch p {
	case PhaseStaged, PhaseExtracting, PhaseValidating, PhaseTransforming:
		return true
	}
	return false
}

// PhaseFunc observes phase transitions during a pipeline run.
type PhaseFunc func(Phase)

// RunResult is the output of one successful pipeline run.
type RunResult struct {
	Tables   *TableSet
	Report   *ValidationReport
	Duration time.Duration
}
