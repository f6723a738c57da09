// Package types contains shapes shared by the ranking store and the API.
package types

import "github.com/okian/attrition/internal/domain/model"

// Entry is one employee in the risk ranking. Rank is 1-based, highest
// risk first.
type Entry struct {
	Rank       int          `json:"rank"`
	EmployeeID string       `json:"employee_id"`
	Department string       `json:"department,omitempty"`
	JobRole    string       `json:"job_role,omitempty"`
	Score      float64      `json:"score"`
	Level      model.Level  `json:"level"`
	Source     model.Source `json:"source"`
}
