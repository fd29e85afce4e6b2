package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/phoenixacademy/resultsportal/core"
)

var (
	orderingParam = "ordering"
	limitParam    = "limit"
)

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads `?ordering=field,-other` ("-" means descending).
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

// bindLimit returns the `?limit=` query param, 0 when absent or invalid.
func bindLimit(ctx echo.Context) int {
	limit, err := strconv.Atoi(ctx.QueryParam(limitParam))
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}

type (
	LoginResponse struct {
		Token string `json:"token"`
	}
)
