// Package model contains domain models passed between layers.
package model

import "strings"

// Raw feature names as they appear in HR exports.
const (
	FieldEmployeeID              = "EmployeeNumber"
	FieldAge                     = "Age"
	FieldAttrition               = "Attrition"
	FieldMonthlyIncome           = "MonthlyIncome"
	FieldYearsAtCompany          = "YearsAtCompany"
	FieldDistanceFromHome        = "DistanceFromHome"
	FieldTotalWorkingYears       = "TotalWorkingYears"
	FieldJobSatisfaction         = "JobSatisfaction"
	FieldEnvironmentSatisfaction = "EnvironmentSatisfaction"
	FieldWorkLifeBalance         = "WorkLifeBalance"
	FieldOverTime                = "OverTime"
	FieldStockOptionLevel        = "StockOptionLevel"
	FieldDepartment              = "Department"
	FieldMaritalStatus           = "MaritalStatus"
	FieldJobRole                 = "JobRole"
	FieldEducation               = "Education"
)

// EmployeeRecord is one row of an HR dataset. Nil pointers are missing
// values; they are never read as zero. Columns without a typed field are
// kept in Extra and ignored by scoring.
type EmployeeRecord struct {
	EmployeeID string

	Age                     *float64
	Attrition               *bool
	MonthlyIncome           *float64
	YearsAtCompany          *float64
	DistanceFromHome        *float64
	TotalWorkingYears       *float64
	JobSatisfaction         *float64
	EnvironmentSatisfaction *float64
	WorkLifeBalance         *float64
	StockOptionLevel        *float64
	Education               *float64
	OverTime                *string
	Department              *string
	MaritalStatus           *string
	JobRole                 *string

	Extra map[string]string
}

// Trainable reports whether the record carries both Age and Attrition.
func (r *EmployeeRecord) Trainable() bool {
	return r.Age != nil && r.Attrition != nil
}

// Label returns 1 for attrition, 0 otherwise. ok is false when unknown.
func (r *EmployeeRecord) Label() (label float64, ok bool) {
	if r.Attrition == nil {
		return 0, false
	}
	if *r.Attrition {
		return 1, true
	}
	return 0, true
}

// Number returns a numeric field by name.
func (r *EmployeeRecord) Number(field string) (float64, bool) {
	var p *float64
	switch field {
	case FieldAge:
		p = r.Age
	case FieldMonthlyIncome:
		p = r.MonthlyIncome
	case FieldYearsAtCompany:
		p = r.YearsAtCompany
	case FieldDistanceFromHome:
		p = r.DistanceFromHome
	case FieldTotalWorkingYears:
		p = r.TotalWorkingYears
	case FieldJobSatisfaction:
		p = r.JobSatisfaction
	case FieldEnvironmentSatisfaction:
		p = r.EnvironmentSatisfaction
	case FieldWorkLifeBalance:
		p = r.WorkLifeBalance
	case FieldStockOptionLevel:
		p = r.StockOptionLevel
	case FieldEducation:
		p = r.Education
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Category returns a string field by name.
func (r *EmployeeRecord) Category(field string) (string, bool) {
	var p *string
	switch field {
	case FieldOverTime:
		p = r.OverTime
	case FieldDepartment:
		p = r.Department
	case FieldMaritalStatus:
		p = r.MaritalStatus
	case FieldJobRole:
		p = r.JobRole
	}
	if p == nil {
		return "", false
	}
	return *p, true
}

// Input projects the record onto the single-prediction input.
func (r *EmployeeRecord) Input() RawEmployeeInput {
	return RawEmployeeInput{
		Age:                     r.Age,
		Department:              r.Department,
		MonthlyIncome:           r.MonthlyIncome,
		YearsAtCompany:          r.YearsAtCompany,
		JobSatisfaction:         r.JobSatisfaction,
		WorkLifeBalance:         r.WorkLifeBalance,
		EnvironmentSatisfaction: r.EnvironmentSatisfaction,
		DistanceFromHome:        r.DistanceFromHome,
		OverTime:                r.OverTime,
		StockOptionLevel:        r.StockOptionLevel,
		MaritalStatus:           r.MaritalStatus,
	}
}

// RawEmployeeInput is the fixed field set accepted for single predictions.
type RawEmployeeInput struct {
	Age                     *float64 `json:"age,omitempty"`
	Department              *string  `json:"department,omitempty"`
	MonthlyIncome           *float64 `json:"monthly_income,omitempty"`
	YearsAtCompany          *float64 `json:"years_at_company,omitempty"`
	JobSatisfaction         *float64 `json:"job_satisfaction,omitempty"`
	WorkLifeBalance         *float64 `json:"work_life_balance,omitempty"`
	EnvironmentSatisfaction *float64 `json:"environment_satisfaction,omitempty"`
	DistanceFromHome        *float64 `json:"distance_from_home,omitempty"`
	OverTime                *string  `json:"overtime,omitempty"`
	StockOptionLevel        *float64 `json:"stock_option_level,omitempty"`
	MaritalStatus           *string  `json:"marital_status,omitempty"`
}

// Record lifts the input into an EmployeeRecord so it can be encoded with
// the same parameters as training data. Fields the input lacks stay nil
// and are imputed by the encoder.
func (in RawEmployeeInput) Record() EmployeeRecord {
	return EmployeeRecord{
		Age:                     in.Age,
		MonthlyIncome:           in.MonthlyIncome,
		YearsAtCompany:          in.YearsAtCompany,
		DistanceFromHome:        in.DistanceFromHome,
		JobSatisfaction:         in.JobSatisfaction,
		EnvironmentSatisfaction: in.EnvironmentSatisfaction,
		WorkLifeBalance:         in.WorkLifeBalance,
		StockOptionLevel:        in.StockOptionLevel,
		OverTime:                in.OverTime,
		Department:              in.Department,
		MaritalStatus:           in.MaritalStatus,
	}
}

// IsYes reports whether a Yes/No field is set to yes.
func IsYes(p *string) bool {
	return p != nil && strings.EqualFold(strings.TrimSpace(*p), "yes")
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Str returns a pointer to s.
func Str(s string) *string { return &s }

// Bool returns a pointer to b.
func Bool(b bool) *bool { return &b }
