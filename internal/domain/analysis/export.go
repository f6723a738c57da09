package analysis

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/okian/attrition/internal/domain/model"
	"github.com/okian/attrition/internal/domain/risk"
)

// HighRiskHeader is the header row of the high-risk export.
var HighRiskHeader = []string{"EmployeeID", "Department", "JobRole", "Age", "MonthlyIncome", "RiskScore", "RecommendedAction"}

// HighRiskRow is one exported employee.
type HighRiskRow struct {
	Record     model.EmployeeRecord
	Assessment model.RiskAssessment
}

// WriteHighRiskCSV writes rows in the given order.
func WriteHighRiskCSV(w io.Writer, rows []HighRiskRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(HighRiskHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		r := row.Record
		dept, _ := r.Category(model.FieldDepartment)
		role, _ := r.Category(model.FieldJobRole)
		rec := []string{
			r.EmployeeID,
			dept,
			role,
			formatOptional(r.Age, 0),
			formatOptional(r.MonthlyIncome, 0),
			strconv.FormatFloat(row.Assessment.Score, 'f', 3, 64),
			risk.RecommendedAction(row.Assessment.Level),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %s: %w", r.EmployeeID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatOptional(p *float64, prec int) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', prec, 64)
}
