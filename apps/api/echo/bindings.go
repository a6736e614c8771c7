package echoapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
)

const (
	orderingParam = "ordering"
	dateLayout    = "2006-01-02"
)

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads "?ordering=name,-id": a leading "-" sorts descending.
func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// bindListQuery reads the list filters and pagination of a GET /v1/:kind request.
// Malformed numbers and dates are ignored.
func bindListQuery(ctx echo.Context) school.ListQuery {
	q := school.ListQuery{
		Search:    ctx.QueryParam("search"),
		TeacherID: ctx.QueryParam("teacherId"),
		StudentID: ctx.QueryParam("studentId"),
		ClassID:   queryInt(ctx, "classId"),
		LessonID:  queryInt(ctx, "lessonId"),
		Date:      queryDate(ctx, "date"),
		Page: core.Page{
			Number:  queryInt(ctx, "page"),
			PerPage: queryInt(ctx, "perPage"),
		},
	}
	ord := new(Ordering)
	ord.Bind(ctx)
	q.Ordering = ord.Orderings
	return q
}

func queryInt(ctx echo.Context, name string) int {
	n, err := strconv.Atoi(ctx.QueryParam(name))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func queryDate(ctx echo.Context, name string) time.Time {
	val := ctx.QueryParam(name)
	if val == "" {
		return time.Time{}
	}
	if d, err := time.Parse(dateLayout, val); err == nil {
		return d
	}
	if d, err := time.Parse(time.RFC3339, val); err == nil {
		return d
	}
	return time.Time{}
}
