package dataset_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/okian/attrition/internal/domain/dataset"
	"github.com/okian/attrition/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

const sampleCSV = `EmployeeNumber,Age,Attrition,MonthlyIncome,OverTime,Department,JobSatisfaction,Over18
1,25,Yes,3000,Yes,Sales,1,Y
2,45,No,9000,No,Research & Development,4,Y
3,30,No,5000,No,Sales,NA,Y
`

func TestLoad(t *testing.T) {
	ctx := context.Background()

	Convey("Given a well formed export", t, func() {
		store, report, err := dataset.Load(ctx, strings.NewReader(sampleCSV))

		Convey("Then every row is loaded and trainable", func() {
			So(err, ShouldBeNil)
			So(store.Len(), ShouldEqual, 3)
			So(report.Loaded, ShouldEqual, 3)
			So(report.Trainable, ShouldEqual, 3)
			So(report.Skipped, ShouldEqual, 0)
		})

		Convey("Then values are typed by column", func() {
			recs := store.All()
			So(recs[0].EmployeeID, ShouldEqual, "1")
			So(*recs[0].Age, ShouldEqual, 25)
			So(*recs[0].Attrition, ShouldBeTrue)
			So(*recs[1].Department, ShouldEqual, "Research & Development")
			So(*recs[0].OverTime, ShouldEqual, "Yes")
		})

		Convey("Then null tokens stay missing instead of zero", func() {
			So(store.All()[2].JobSatisfaction, ShouldBeNil)
		})

		Convey("Then unknown columns are retained as extras", func() {
			So(store.All()[0].Extra["Over18"], ShouldEqual, "Y")
			So(store.Columns(), ShouldContain, "Over18")
		})
	})

	Convey("Given a file without an Attrition column", t, func() {
		_, _, err := dataset.Load(ctx, strings.NewReader("Age,MonthlyIncome\n30,4000\n"))

		Convey("Then the load fails", func() {
			So(errors.Is(err, dataset.ErrDataLoad), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "Attrition")
		})
	})

	Convey("Given an empty input", t, func() {
		_, _, err := dataset.Load(ctx, strings.NewReader(""))

		Convey("Then the load fails", func() {
			So(errors.Is(err, dataset.ErrDataLoad), ShouldBeTrue)
		})
	})

	Convey("Given rows with the wrong column count", t, func() {
		in := "Age,Attrition,MonthlyIncome\n30,No,4000\n31,Yes\n40,No,5000,extra\n29,Yes,2500\n"
		store, report, err := dataset.Load(ctx, strings.NewReader(in))

		Convey("Then they are skipped, not fatal", func() {
			So(err, ShouldBeNil)
			So(report.Rows, ShouldEqual, 4)
			So(report.Skipped, ShouldEqual, 2)
			So(store.Len(), ShouldEqual, 2)
		})

		Convey("Then rows without an id get their row number", func() {
			So(store.All()[1].EmployeeID, ShouldEqual, "row-4")
		})
	})

	Convey("Given a row without an id next to an employee numbered like its row", t, func() {
		in := "EmployeeNumber,Age,Attrition\n,30,No\n1,41,Yes\n2,35,No\n"
		store, report, err := dataset.Load(ctx, strings.NewReader(in))

		Convey("Then both employees are kept under distinct ids", func() {
			So(err, ShouldBeNil)
			So(report.Duplicates, ShouldEqual, 0)
			So(store.Len(), ShouldEqual, 3)
			ids := []string{store.All()[0].EmployeeID, store.All()[1].EmployeeID, store.All()[2].EmployeeID}
			So(ids, ShouldResemble, []string{"row-1", "1", "2"})
		})
	})

	Convey("Given rows missing Age or with an invalid label", t, func() {
		in := "EmployeeNumber,Age,Attrition\n1,,Yes\n2,33,Maybe\n3,0,No\n4,41,No\n"
		store, report, err := dataset.Load(ctx, strings.NewReader(in))

		Convey("Then they are kept for display but not trainable", func() {
			So(err, ShouldBeNil)
			So(store.Len(), ShouldEqual, 4)
			So(len(store.Trainable()), ShouldEqual, 1)
			So(report.InvalidValues, ShouldEqual, 2)
		})
	})

	Convey("Given no trainable rows", t, func() {
		in := "Age,Attrition\n,Yes\n30,\n"

		Convey("Then the load fails by default", func() {
			_, _, err := dataset.Load(ctx, strings.NewReader(in))
			So(errors.Is(err, dataset.ErrDataLoad), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "no valid data")
		})

		Convey("Then it succeeds when trainable rows are not required", func() {
			store, _, err := dataset.Load(ctx, strings.NewReader(in), dataset.WithRequireTrainable(false))
			So(err, ShouldBeNil)
			So(store.Len(), ShouldEqual, 2)
		})
	})

	Convey("Given duplicate employee numbers", t, func() {
		in := "EmployeeNumber,Age,Attrition\n7,30,No\n7,50,Yes\n8,40,No\n"
		store, report, err := dataset.Load(ctx, strings.NewReader(in), dataset.WithDeduper(dedupe.NewInMemoryDeduper()))

		Convey("Then the first row wins", func() {
			So(err, ShouldBeNil)
			So(report.Duplicates, ShouldEqual, 1)
			So(store.Len(), ShouldEqual, 2)
			So(*store.All()[0].Age, ShouldEqual, 30)
		})
	})

	Convey("Given custom null tokens", t, func() {
		in := "Age,Attrition,MonthlyIncome\n30,No,missing\n"
		store, report, err := dataset.Load(ctx, strings.NewReader(in), dataset.WithNullTokens("missing"))

		Convey("Then those tokens are read as missing", func() {
			So(err, ShouldBeNil)
			So(store.All()[0].MonthlyIncome, ShouldBeNil)
			So(report.InvalidValues, ShouldEqual, 0)
		})
	})

	Convey("Given a canceled context", t, func() {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, _, err := dataset.Load(cctx, strings.NewReader(sampleCSV))

		Convey("Then the load is aborted", func() {
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}

func TestNewStore(t *testing.T) {
	Convey("Given records built in memory", t, func() {
		store, _, err := dataset.Load(context.Background(), strings.NewReader(sampleCSV))
		So(err, ShouldBeNil)
		copied := dataset.NewStore(store.All())

		Convey("Then trainable rows are derived", func() {
			So(len(copied.Trainable()), ShouldEqual, 3)
		})

		Convey("Then callers cannot mutate the store", func() {
			all := copied.All()
			all[0].EmployeeID = "changed"
			So(copied.All()[0].EmployeeID, ShouldEqual, "1")
		})
	})
}
