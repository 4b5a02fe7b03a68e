package ledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
)

var stage1Fields = []string{
	"recipe_id", "article_id", "composer_id", "artifact_path", "status",
	"reason", "diff", "expected_payload", "received_payload", "cost",
	"source_revision",
}

var stage2Fields = append(append([]string{}, stage1Fields...),
	"apply_status", "failure_reason")

// Stage1Path returns the stage-1 ledger file inside a state folder.
func Stage1Path(stateDir string) string {
	return filepath.Join(stateDir, "stage-1-results.csv")
}

// Stage2Path returns the stage-2 ledger file inside a state folder.
func Stage2Path(stateDir string) string {
	return filepath.Join(stateDir, "stage-2-results.csv")
}

// Writer appends outcome rows to a ledger file. It is the single writer for
// its file: concurrent producers must funnel records through one goroutine
// that owns the Writer.
type Writer struct {
	f      *os.File
	csv    *csv.Writer
	fields []string
}

// NewStage1Writer opens (or creates) the stage-1 ledger for appending.
func NewStage1Writer(path string) (*Writer, error) {
	return newWriter(path, stage1Fields)
}

// NewStage2Writer opens (or creates) the stage-2 ledger for appending.
func NewStage2Writer(path string) (*Writer, error) {
	return newWriter(path, stage2Fields)
}

func newWriter(path string, fields []string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	w := &Writer{f: f, csv: csv.NewWriter(f), fields: fields}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat ledger: %w", err)
	}
	if info.Size() == 0 {
		if err := w.writeRow(fields); err != nil {
			f.Close()
			return nil, fmt.Errorf("write ledger header: %w", err)
		}
	}
	return w, nil
}

// writeRow writes one record, flushes it, and syncs the file so the row is
// durable before the call returns.
func (w *Writer) writeRow(row []string) error {
	if err := w.csv.Write(row); err != nil {
		return err
	}
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return err
	}
	return w.f.Sync()
}

// AppendStage1 durably appends one stage-1 outcome.
func (w *Writer) AppendStage1(o Stage1Outcome) error {
	if err := w.writeRow(stage1Row(o)); err != nil {
		return fmt.Errorf("append stage-1 outcome %s: %w", o.RecipeID, err)
	}
	return nil
}

// AppendStage2 durably appends one stage-2 outcome.
func (w *Writer) AppendStage2(o Stage2Outcome) error {
	row := append(stage1Row(o.Stage1), string(o.ApplyStatus), fromNullable(o.FailureReason))
	if err := w.writeRow(row); err != nil {
		return fmt.Errorf("append stage-2 outcome %s: %w", o.Stage1.RecipeID, err)
	}
	return nil
}

// Close closes the underlying file.
func (w *Writer) Close() error {
	return w.f.Close()
}

func stage1Row(o Stage1Outcome) []string {
	return []string{
		o.RecipeID,
		o.ArticleID,
		fromNullable(o.ComposerID),
		o.ArtifactPath,
		string(o.Status),
		fromNullable(o.Reason),
		fromNullable(o.Diff),
		fromNullable(o.ExpectedPayload),
		fromNullable(o.ReceivedPayload),
		strconv.FormatFloat(o.Cost, 'f', -1, 64),
		strconv.FormatInt(o.SourceRevision, 10),
	}
}

// LoadStage1 reads every stage-1 record from path. A missing file yields an
// empty set.
func LoadStage1(path string) ([]Stage1Outcome, error) {
	rows, err := loadRows(path, len(stage1Fields))
	if err != nil {
		return nil, err
	}
	if rows == nil {
		return nil, nil
	}
	out := make([]Stage1Outcome, 0, len(rows))
	for _, row := range rows {
		out = append(out, parseStage1(row))
	}
	return out, nil
}

// LoadStage2 reads every stage-2 record from path. A missing file yields an
// empty set.
func LoadStage2(path string) ([]Stage2Outcome, error) {
	rows, err := loadRows(path, len(stage2Fields))
	if err != nil {
		return nil, err
	}
	if rows == nil {
		return nil, nil
	}
	out := make([]Stage2Outcome, 0, len(rows))
	for _, row := range rows {
		out = append(out, Stage2Outcome{
			Stage1:        parseStage1(row[:len(stage1Fields)]),
			ApplyStatus:   ApplyStatus(row[len(stage1Fields)]),
			FailureReason: toNullable(row[len(stage1Fields)+1]),
		})
	}
	return out, nil
}

func loadRows(path string, width int) ([][]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = width

	// Header row
	if _, err := r.Read(); err == io.EOF {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("read ledger header: %w", err)
	}

	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read ledger row: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseStage1(row []string) Stage1Outcome {
	return Stage1Outcome{
		RecipeID:        row[0],
		ArticleID:       row[1],
		ComposerID:      toNullable(row[2]),
		ArtifactPath:    row[3],
		Status:          Stage1Status(row[4]),
		Reason:          toNullable(row[5]),
		Diff:            toNullable(row[6]),
		ExpectedPayload: toNullable(row[7]),
		ReceivedPayload: toNullable(row[8]),
		Cost:            parseCost(row[9]),
		SourceRevision:  parseRevision(row[10]),
	}
}

// parseCost returns NaN for a malformed cost so callers can log and skip it
// in aggregates without dropping the record.
func parseCost(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func parseRevision(s string) int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func fromNullable(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func toNullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
