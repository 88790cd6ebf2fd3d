package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/controller/paging"
)

// ParamID parses a positive numeric route parameter. Bad ids are reported as 404.
func ParamID(c *fiber.Ctx, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.ErrNotFound
	}

	return id, nil
}

// PageParams reads the page and pageSize query parameters.
func PageParams(c *fiber.Ctx, defaultSize int) paging.Params {
	return paging.Params{
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("pageSize", defaultSize),
	}.Normalize()
}
