// Package encoding turns employee records into fixed-width feature vectors.
//
// Column order is numeric features, satisfaction features, one one-hot block
// per categorical feature, then binary features. The order is captured in
// Params at fit time and reused for every later transform.
package encoding

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/okian/attrition/internal/domain/model"
	"gonum.org/v1/gonum/stat"
)

// Vector is one encoded record.
type Vector []float64

// Feature layout.
var (
	NumericFeatures = []string{
		model.FieldAge,
		model.FieldMonthlyIncome,
		model.FieldYearsAtCompany,
		model.FieldDistanceFromHome,
		model.FieldTotalWorkingYears,
		model.FieldStockOptionLevel,
		model.FieldEducation,
	}
	SatisfactionFeatures = []string{
		model.FieldJobSatisfaction,
		model.FieldEnvironmentSatisfaction,
		model.FieldWorkLifeBalance,
	}
	CategoricalFeatures = []string{
		model.FieldDepartment,
		model.FieldMaritalStatus,
		model.FieldJobRole,
	}
	BinaryFeatures = []string{
		model.FieldOverTime,
	}
)

// satisfactionMissing is the imputed value of a missing 1-4 rating.
const satisfactionMissing = 0.5

// Numeric holds the standardization of one numeric feature.
type Numeric struct {
	Feature string  `json:"feature"`
	Center  float64 `json:"center"`
	Spread  float64 `json:"spread"`
}

// Categorical holds the fitted category list of one feature, in first-seen order.
type Categorical struct {
	Feature    string   `json:"feature"`
	Categories []string `json:"categories"`
}

// Params is the immutable snapshot produced by Fit.
type Params struct {
	numeric      []Numeric
	satisfaction []string
	categorical  []Categorical
	binary       []string

	names  []string
	source []string
	index  []map[string]int
}

// Fit computes encoding parameters from the training records.
func Fit(records []model.EmployeeRecord) (*Params, error) {
	if len(records) == 0 {
		return nil, ErrInsufficientData
	}

	numeric := make([]Numeric, 0, len(NumericFeatures))
	values := make([]float64, 0, len(records))
	for _, f := range NumericFeatures {
		values = values[:0]
		for i := range records {
			if v, ok := records[i].Number(f); ok && !math.IsNaN(v) && !math.IsInf(v, 0) {
				values = append(values, v)
			}
		}
		numeric = append(numeric, fitNumeric(f, values))
	}

	categorical := make([]Categorical, 0, len(CategoricalFeatures))
	for _, f := range CategoricalFeatures {
		c := Categorical{Feature: f, Categories: []string{}}
		seen := make(map[string]struct{})
		for i := range records {
			v, ok := records[i].Category(f)
			if !ok {
				continue
			}
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			c.Categories = append(c.Categories, v)
		}
		categorical = append(categorical, c)
	}

	return newParams(numeric, append([]string(nil), SatisfactionFeatures...), categorical, append([]string(nil), BinaryFeatures...)), nil
}

func fitNumeric(feature string, values []float64) Numeric {
	n := Numeric{Feature: feature, Spread: 1}
	if len(values) == 0 {
		return n
	}
	n.Center = stat.Mean(values, nil)
	if len(values) > 1 {
		n.Spread = stat.StdDev(values, nil)
	}
	if n.Spread == 0 || math.IsNaN(n.Spread) || math.IsInf(n.Spread, 0) {
		n.Spread = 1
	}
	return n
}

func newParams(numeric []Numeric, satisfaction []string, categorical []Categorical, binary []string) *Params {
	p := &Params{
		numeric:      numeric,
		satisfaction: satisfaction,
		categorical:  categorical,
		binary:       binary,
	}
	for _, n := range numeric {
		p.names = append(p.names, n.Feature)
		p.source = append(p.source, n.Feature)
	}
	for _, s := range satisfaction {
		p.names = append(p.names, s)
		p.source = append(p.source, s)
	}
	p.index = make([]map[string]int, len(categorical))
	for i, c := range categorical {
		p.index[i] = make(map[string]int, len(c.Categories))
		for j, v := range c.Categories {
			p.index[i][v] = j
			p.names = append(p.names, c.Feature+"="+v)
			p.source = append(p.source, c.Feature)
		}
	}
	for _, b := range binary {
		p.names = append(p.names, b)
		p.source = append(p.source, b)
	}
	return p
}

// Width is the length of every vector produced by these parameters.
func (p *Params) Width() int { return len(p.names) }

// FeatureNames returns the column names in vector order.
func (p *Params) FeatureNames() []string { return append([]string(nil), p.names...) }

// SourceFeature returns the raw feature a column was derived from.
func (p *Params) SourceFeature(col int) string {
	if col < 0 || col >= len(p.source) {
		return ""
	}
	return p.source[col]
}

// Numeric returns the fitted standardization of a numeric feature.
func (p *Params) Numeric(feature string) (Numeric, bool) {
	for _, n := range p.numeric {
		if n.Feature == feature {
			return n, true
		}
	}
	return Numeric{}, false
}

// Categories returns the fitted categories of a categorical feature.
func (p *Params) Categories(feature string) []string {
	for _, c := range p.categorical {
		if c.Feature == feature {
			return append([]string(nil), c.Categories...)
		}
	}
	return nil
}

// Transform encodes one record. Missing numeric values are imputed with the
// fitted center; unseen categories produce an all-zero block.
func (p *Params) Transform(rec model.EmployeeRecord) (Vector, error) {
	if p == nil || len(p.names) == 0 {
		return nil, ErrNotFitted
	}

	out := make(Vector, 0, len(p.names))
	for _, n := range p.numeric {
		v, ok := rec.Number(n.Feature)
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			v = n.Center
		}
		out = append(out, (v-n.Center)/n.Spread)
	}
	for _, f := range p.satisfaction {
		v, ok := rec.Number(f)
		if !ok {
			out = append(out, satisfactionMissing)
			continue
		}
		out = append(out, (v-1)/3)
	}
	for i, c := range p.categorical {
		block := make([]float64, len(c.Categories))
		if v, ok := rec.Category(c.Feature); ok {
			if j, known := p.index[i][v]; known {
				block[j] = 1
			}
		}
		out = append(out, block...)
	}
	for _, f := range p.binary {
		s, _ := rec.Category(f)
		if model.IsYes(&s) {
			out = append(out, 1)
		} else {
			out = append(out, 0)
		}
	}

	if err := p.Check(out); err != nil {
		return nil, err
	}
	return out, nil
}

// TransformAll encodes every record.
func (p *Params) TransformAll(records []model.EmployeeRecord) ([]Vector, error) {
	out := make([]Vector, 0, len(records))
	for i := range records {
		v, err := p.Transform(records[i])
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Check verifies that v matches the fitted width.
func (p *Params) Check(v Vector) error {
	if len(v) != p.Width() {
		return fmt.Errorf("%w: got %d, want %d", ErrShapeMismatch, len(v), p.Width())
	}
	return nil
}

type paramsJSON struct {
	Numeric      []Numeric     `json:"numeric"`
	Satisfaction []string      `json:"satisfaction"`
	Categorical  []Categorical `json:"categorical"`
	Binary       []string      `json:"binary"`
}

// MarshalJSON implements json.Marshaler.
func (p *Params) MarshalJSON() ([]byte, error) {
	return json.Marshal(paramsJSON{
		Numeric:      p.numeric,
		Satisfaction: p.satisfaction,
		Categorical:  p.categorical,
		Binary:       p.binary,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Params) UnmarshalJSON(data []byte) error {
	var w paramsJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("%w: %w", ErrEncoding, err)
	}
	for _, n := range w.Numeric {
		if n.Spread == 0 || math.IsNaN(n.Spread) {
			return fmt.Errorf("%w: invalid spread for %s", ErrEncoding, n.Feature)
		}
	}
	*p = *newParams(w.Numeric, w.Satisfaction, w.Categorical, w.Binary)
	return nil
}
