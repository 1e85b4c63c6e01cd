package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/campusrecords/campus/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field != "" {
			ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
		}
	}
}

// semesterParam reads a semester from the path param or query param name.
// An absent optional query semester is 0, meaning every semester.
func semesterParam(ctx echo.Context, name string, required bool) (int, error) {
	raw := ctx.Param(name)
	if raw == "" {
		raw = ctx.QueryParam(name)
	}
	if raw == "" && !required {
		return 0, nil
	}
	sem, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || sem < 1 || sem > 8 {
		return 0, core.NewValidationError(nil, core.FieldError{Field: name, Error: "semester must be between 1 and 8"})
	}
	return sem, nil
}
