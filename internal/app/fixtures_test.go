package service_test

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/okian/attrition/internal/adapters/storage"
	"github.com/okian/attrition/internal/domain/classifier"
	"github.com/okian/attrition/internal/domain/importance"
)

const csvHeader = "EmployeeNumber,Age,Attrition,Department,MonthlyIncome,YearsAtCompany," +
	"JobSatisfaction,EnvironmentSatisfaction,WorkLifeBalance,DistanceFromHome,OverTime," +
	"StockOptionLevel,MaritalStatus,JobRole,TotalWorkingYears,Education\n"

// employeesCSV builds n rows where every third employee has left. Leavers
// are young, underpaid, work overtime and score HIGH under the rules.
func employeesCSV(n int) string {
	var b strings.Builder
	b.WriteString(csvHeader)
	for i := 1; i <= n; i++ {
		if i%3 == 0 {
			fmt.Fprintf(&b, "E%03d,24,Yes,Sales,%d,1,1,1,1,25,Yes,0,Single,Sales Representative,2,2\n", i, 2000+i*10)
		} else {
			fmt.Fprintf(&b, "E%03d,%d,No,Research & Development,%d,8,4,4,3,3,No,1,Married,Research Scientist,%d,3\n",
				i, 35+i%15, 9000+i*20, 10+i%10)
		}
	}
	return b.String()
}

func quickConfig(epochs int) classifier.Config {
	cfg := classifier.DefaultConfig()
	cfg.Epochs = epochs
	cfg.BatchSize = 16
	cfg.HiddenLayers = []int{8}
	cfg.LearningRate = 0.01
	return cfg
}

type fakeRegistry struct {
	mu     sync.Mutex
	saved  []*classifier.Model
	active *classifier.Model
	imp    importance.Set
	err    error
}

func (r *fakeRegistry) Save(_ context.Context, m *classifier.Model, imp importance.Set) (storage.Version, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return storage.Version{}, r.err
	}
	v := storage.Version{ID: fmt.Sprintf("v%d", len(r.saved)+1), Active: true}
	r.saved = append(r.saved, m)
	r.active, r.imp = m, imp
	return v, nil
}

func (r *fakeRegistry) Active(context.Context) (*classifier.Model, importance.Set, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return nil, nil, storage.ErrNotFound
	}
	return r.active, r.imp, nil
}

func (r *fakeRegistry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.saved)
}
