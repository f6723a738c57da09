// Package dataset loads HR exports into an immutable record store.
package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/okian/attrition/internal/domain/dedupe"
	"github.com/okian/attrition/internal/domain/model"
)

// ctxCheckEvery bounds how many rows are parsed between context checks.
const ctxCheckEvery = 1024

// Store is an ordered, read-only sequence of employee records.
type Store struct {
	records   []model.EmployeeRecord
	trainable []model.EmployeeRecord
	columns   []string
}

// LoadReport summarizes a Load call.
type LoadReport struct {
	Rows       int `json:"rows"`
	Loaded     int `json:"loaded"`
	Trainable  int `json:"trainable"`
	Skipped    int `json:"skipped"`
	Duplicates int `json:"duplicates"`
	// InvalidValues counts cells in typed columns that did not parse and were
	// read as missing.
	InvalidValues int `json:"invalid_values"`
}

// NewStore builds a Store from already parsed records.
func NewStore(records []model.EmployeeRecord) *Store {
	s := &Store{records: append([]model.EmployeeRecord(nil), records...)}
	for _, r := range s.records {
		if r.Trainable() {
			s.trainable = append(s.trainable, r)
		}
	}
	return s
}

// All returns every loaded record, including untrainable ones.
func (s *Store) All() []model.EmployeeRecord {
	return append([]model.EmployeeRecord(nil), s.records...)
}

// Trainable returns the records carrying both Age and Attrition.
func (s *Store) Trainable() []model.EmployeeRecord {
	return append([]model.EmployeeRecord(nil), s.trainable...)
}

// Len returns the number of loaded records.
func (s *Store) Len() int { return len(s.records) }

// Columns returns the header of the loaded file.
func (s *Store) Columns() []string { return append([]string(nil), s.columns...) }

type loader struct {
	dedupe           dedupe.Deduper
	nulls            map[string]struct{}
	requireTrainable bool
}

func normalizeToken(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// syntheticIDPrefix names rows that carry no EmployeeNumber, keyed by their
// 1-based data row so they cannot collide with numeric employee ids.
const syntheticIDPrefix = "row-"

// Load parses a CSV export with a header row. Attrition and Age columns are
// required. Rows with a column count different from the header are skipped.
func Load(ctx context.Context, r io.Reader, opts ...Option) (*Store, LoadReport, error) {
	l := &loader{requireTrainable: true}
	WithNullTokens("NA", "N/A", "null", "NaN")(l)
	for _, opt := range opts {
		opt(l)
	}
	if l.dedupe == nil {
		l.dedupe = dedupe.NewInMemoryDeduper()
	}
	return l.load(ctx, r)
}

func (l *loader) load(ctx context.Context, r io.Reader) (*Store, LoadReport, error) {
	var report LoadReport

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, report, fmt.Errorf("%w: empty input", ErrDataLoad)
	}
	if err != nil {
		return nil, report, fmt.Errorf("%w: read header: %w", ErrDataLoad, err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}
	for _, required := range []string{model.FieldAttrition, model.FieldAge} {
		if _, ok := index[required]; !ok {
			return nil, report, fmt.Errorf("%w: missing required column %q", ErrDataLoad, required)
		}
	}

	store := &Store{columns: header}
	for {
		if report.Rows%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, report, fmt.Errorf("%w: %w", ErrDataLoad, err)
			}
		}
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		report.Rows++
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				report.Skipped++
				continue
			}
			return nil, report, fmt.Errorf("%w: read row %d: %w", ErrDataLoad, report.Rows, err)
		}
		if len(row) != len(header) {
			report.Skipped++
			continue
		}

		rec, invalid := l.parseRow(header, row)
		report.InvalidValues += invalid
		if rec.EmployeeID == "" {
			rec.EmployeeID = syntheticIDPrefix + strconv.Itoa(report.Rows)
		}
		if l.dedupe.SeenAndRecord(ctx, rec.EmployeeID) {
			report.Duplicates++
			continue
		}

		store.records = append(store.records, rec)
		if rec.Trainable() {
			store.trainable = append(store.trainable, rec)
		}
	}

	report.Loaded = len(store.records)
	report.Trainable = len(store.trainable)
	if l.requireTrainable && report.Trainable == 0 {
		return nil, report, fmt.Errorf("%w: no valid data found", ErrDataLoad)
	}
	return store, report, nil
}

func (l *loader) parseRow(header, row []string) (model.EmployeeRecord, int) {
	var (
		rec     model.EmployeeRecord
		invalid int
	)
	num := func(cell string) *float64 {
		if l.isNull(cell) {
			return nil
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
		if err != nil {
			invalid++
			return nil
		}
		return &v
	}
	str := func(cell string) *string {
		if l.isNull(cell) {
			return nil
		}
		s := strings.TrimSpace(cell)
		return &s
	}

	for i, col := range header {
		cell := row[i]
		switch col {
		case model.FieldEmployeeID:
			rec.EmployeeID = strings.TrimSpace(cell)
		case model.FieldAge:
			rec.Age = num(cell)
			if rec.Age != nil && *rec.Age <= 0 {
				rec.Age = nil
				invalid++
			}
		case model.FieldAttrition:
			switch normalizeToken(cell) {
			case "yes":
				rec.Attrition = model.Bool(true)
			case "no":
				rec.Attrition = model.Bool(false)
			default:
				if !l.isNull(cell) {
					invalid++
				}
			}
		case model.FieldMonthlyIncome:
			rec.MonthlyIncome = num(cell)
		case model.FieldYearsAtCompany:
			rec.YearsAtCompany = num(cell)
		case model.FieldDistanceFromHome:
			rec.DistanceFromHome = num(cell)
		case model.FieldTotalWorkingYears:
			rec.TotalWorkingYears = num(cell)
		case model.FieldJobSatisfaction:
			rec.JobSatisfaction = num(cell)
		case model.FieldEnvironmentSatisfaction:
			rec.EnvironmentSatisfaction = num(cell)
		case model.FieldWorkLifeBalance:
			rec.WorkLifeBalance = num(cell)
		case model.FieldStockOptionLevel:
			rec.StockOptionLevel = num(cell)
		case model.FieldEducation:
			rec.Education = num(cell)
		case model.FieldOverTime:
			rec.OverTime = str(cell)
		case model.FieldDepartment:
			rec.Department = str(cell)
		case model.FieldMaritalStatus:
			rec.MaritalStatus = str(cell)
		case model.FieldJobRole:
			rec.JobRole = str(cell)
		default:
			if rec.Extra == nil {
				rec.Extra = make(map[string]string)
			}
			rec.Extra[col] = cell
		}
	}
	return rec, invalid
}

func (l *loader) isNull(cell string) bool {
	t := normalizeToken(cell)
	if t == "" {
		return true
	}
	_, ok := l.nulls[t]
	return ok
}
