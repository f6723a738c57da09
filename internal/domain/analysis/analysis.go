// Package analysis produces descriptive statistics over a loaded dataset.
package analysis

import (
	"cmp"
	"slices"

	"github.com/okian/attrition/internal/domain/model"
	"gonum.org/v1/gonum/stat"
)

// Group labels.
const (
	AgeUnder30 = "Under 30"
	Age30to39  = "30-39"
	Age40to49  = "40-49"
	Age50Plus  = "50+"

	IncomeUnder3k = "Under $3k"
	Income3kTo5k  = "$3k-$5k"
	Income5kTo8k  = "$5k-$8k"
	IncomeOver8k  = "Over $8k"

	Unknown = "Unknown"
)

var (
	ageGroups       = []string{AgeUnder30, Age30to39, Age40to49, Age50Plus}
	incomeGroups    = []string{IncomeUnder3k, Income3kTo5k, Income5kTo8k, IncomeOver8k}
	educationLabels = []string{"Below College", "College", "Bachelor", "Master", "Doctor"}
	workLifeLabels  = []string{"Poor", "Average", "Good", "Excellent"}
)

// GroupRate is the attrition of one group. Records without a known
// attrition label count towards Total only.
type GroupRate struct {
	Group    string  `json:"group"`
	Total    int     `json:"total"`
	Attrited int     `json:"attrited"`
	Rate     float64 `json:"rate"`
}

// Report breaks attrition down by department, age and income.
type Report struct {
	ByDepartment  []GroupRate `json:"by_department"`
	ByAgeGroup    []GroupRate `json:"by_age_group"`
	ByIncomeGroup []GroupRate `json:"by_income_group"`
}

type counter struct {
	order []string
	total map[string]int
	left  map[string]int
}

func newCounter(groups ...string) *counter {
	c := &counter{total: map[string]int{}, left: map[string]int{}}
	for _, g := range groups {
		c.touch(g)
	}
	return c
}

func (c *counter) touch(g string) {
	if _, ok := c.total[g]; !ok {
		c.order = append(c.order, g)
		c.total[g] = 0
	}
}

func (c *counter) add(g string, attrited bool) {
	c.touch(g)
	c.total[g]++
	if attrited {
		c.left[g]++
	}
}

func (c *counter) rates() []GroupRate {
	out := make([]GroupRate, 0, len(c.order))
	for _, g := range c.order {
		r := GroupRate{Group: g, Total: c.total[g], Attrited: c.left[g]}
		if r.Total > 0 {
			r.Rate = float64(r.Attrited) / float64(r.Total)
		}
		out = append(out, r)
	}
	return out
}

// AgeGroup returns the age bucket label.
func AgeGroup(age float64) string {
	switch {
	case age < 30:
		return AgeUnder30
	case age < 40:
		return Age30to39
	case age < 50:
		return Age40to49
	default:
		return Age50Plus
	}
}

// IncomeGroup returns the monthly income bucket label.
func IncomeGroup(income float64) string {
	switch {
	case income < 3000:
		return IncomeUnder3k
	case income < 5000:
		return Income3kTo5k
	case income < 8000:
		return Income5kTo8k
	default:
		return IncomeOver8k
	}
}

// Comprehensive computes attrition rates per group. Departments keep
// first-seen order; records missing a grouping field fall under Unknown.
func Comprehensive(records []model.EmployeeRecord) Report {
	dept := newCounter()
	age := newCounter(ageGroups...)
	income := newCounter(incomeGroups...)

	for i := range records {
		r := &records[i]
		left := r.Attrition != nil && *r.Attrition

		d, ok := r.Category(model.FieldDepartment)
		if !ok {
			d = Unknown
		}
		dept.add(d, left)

		if r.Age != nil {
			age.add(AgeGroup(*r.Age), left)
		} else {
			age.add(Unknown, left)
		}
		if r.MonthlyIncome != nil {
			income.add(IncomeGroup(*r.MonthlyIncome), left)
		} else {
			income.add(Unknown, left)
		}
	}

	return Report{
		ByDepartment:  dept.rates(),
		ByAgeGroup:    age.rates(),
		ByIncomeGroup: income.rates(),
	}
}

// Bucket is a labelled count.
type Bucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Summary describes a dataset at a glance. Averages are taken over the
// records that carry the field.
type Summary struct {
	Count               int            `json:"count"`
	AttritionCount      int            `json:"attrition_count"`
	AttritionRate       float64        `json:"attrition_rate"`
	AverageAge          float64        `json:"average_age"`
	AverageIncome       float64        `json:"average_income"`
	AverageTenure       float64        `json:"average_tenure"`
	AverageSatisfaction float64        `json:"average_satisfaction"`
	OvertimeRate        float64        `json:"overtime_rate"`
	MaritalCounts       map[string]int `json:"marital_counts"`
	MostCommonMarital   string         `json:"most_common_marital"`
	Education           []Bucket       `json:"education"`
	WorkLife            []Bucket       `json:"work_life"`
}

// Summarize computes a Summary.
func Summarize(records []model.EmployeeRecord) Summary {
	s := Summary{Count: len(records), MaritalCounts: map[string]int{}}
	if len(records) == 0 {
		return s
	}

	var ages, incomes, tenures, sats []float64
	var overtime int
	education := make([]int, len(educationLabels)+1)
	workLife := make([]int, len(workLifeLabels)+1)

	for i := range records {
		r := &records[i]
		if r.Attrition != nil && *r.Attrition {
			s.AttritionCount++
		}
		if model.IsYes(r.OverTime) {
			overtime++
		}
		ages = appendPresent(ages, r.Age)
		incomes = appendPresent(incomes, r.MonthlyIncome)
		tenures = appendPresent(tenures, r.YearsAtCompany)
		sats = appendPresent(sats, r.JobSatisfaction)
		if r.MaritalStatus != nil {
			s.MaritalCounts[*r.MaritalStatus]++
		}
		education[ordinal(r.Education, len(educationLabels))]++
		workLife[ordinal(r.WorkLifeBalance, len(workLifeLabels))]++
	}

	n := float64(len(records))
	s.AttritionRate = float64(s.AttritionCount) / n
	s.OvertimeRate = float64(overtime) / n
	s.AverageAge = mean(ages)
	s.AverageIncome = mean(incomes)
	s.AverageTenure = mean(tenures)
	s.AverageSatisfaction = mean(sats)
	s.MostCommonMarital = mostCommon(s.MaritalCounts)
	s.Education = buckets(educationLabels, education)
	s.WorkLife = buckets(workLifeLabels, workLife)
	return s
}

func appendPresent(dst []float64, p *float64) []float64 {
	if p == nil {
		return dst
	}
	return append(dst, *p)
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}

// ordinal maps a 1..n rating to its slot; anything else lands in slot n.
func ordinal(p *float64, n int) int {
	if p == nil {
		return n
	}
	v := int(*p)
	if float64(v) != *p || v < 1 || v > n {
		return n
	}
	return v - 1
}

func buckets(labels []string, counts []int) []Bucket {
	out := make([]Bucket, 0, len(counts))
	for i, l := range labels {
		out = append(out, Bucket{Label: l, Count: counts[i]})
	}
	if unknown := counts[len(labels)]; unknown > 0 {
		out = append(out, Bucket{Label: Unknown, Count: unknown})
	}
	return out
}

// mostCommon breaks ties alphabetically.
func mostCommon(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		if c := cmp.Compare(counts[b], counts[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	if len(keys) == 0 {
		return ""
	}
	return keys[0]
}
