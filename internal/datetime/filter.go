package datetime

import (
	"time"

	"streakd/internal/domain"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// dateEnv is what a date filter expression can see, e.g. `weekday != 3 && day % 2 == 0`.
type dateEnv struct {
	Weekday int    `expr:"weekday"`
	Day     int    `expr:"day"`
	Month   int    `expr:"month"`
	Year    int    `expr:"year"`
	YearDay int    `expr:"year_day"`
	Week    int    `expr:"week"`
	Date    string `expr:"date"`
}

func newDateEnv(d time.Time) dateEnv {
	_, week := d.ISOWeek()
	return dateEnv{
		Weekday: int(d.Weekday()),
		Day:     d.Day(),
		Month:   int(d.Month()),
		Year:    d.Year(),
		YearDay: d.YearDay(),
		Week:    week,
		Date:    d.Format("2006-01-02"),
	}
}

// DateFilter is a compiled boolean expression over a calendar date.
type DateFilter struct {
	source  string
	program *vm.Program
}

// CompileDateFilter compiles expression. An empty expression yields a nil filter that
// keeps every date.
func CompileDateFilter(expression string) (*DateFilter, error) {
	if expression == "" {
		return nil, nil
	}
	program, err := expr.Compile(expression, expr.Env(dateEnv{}), expr.AsBool())
	if err != nil {
		return nil, domain.Validationf("invalid date filter %q: %v", expression, err)
	}
	return &DateFilter{source: expression, program: program}, nil
}

// Apply keeps the dates the expression accepts, preserving order.
func (f *DateFilter) Apply(dates []time.Time) ([]time.Time, error) {
	if f == nil {
		return dates, nil
	}
	kept := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		out, err := expr.Run(f.program, newDateEnv(d))
		if err != nil {
			return nil, domain.Validationf("date filter %q failed on %s: %v", f.source, d.Format("2006-01-02"), err)
		}
		if ok, _ := out.(bool); ok {
			kept = append(kept, d)
		}
	}
	return kept, nil
}
