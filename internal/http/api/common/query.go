package common

import (
	"strconv"
	"strings"

	"github.com/contentforge/studio/internal/credits"
	"github.com/gin-gonic/gin"
)

// PageFromQuery reads limit and offset query parameters.
func PageFromQuery(c *gin.Context) (credits.Page, error) {
	var page credits.Page
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		v, errParse := strconv.Atoi(raw)
		if errParse != nil {
			return page, credits.ValidationError{Field: "limit", Message: "must be an integer"}
		}
		page.Limit = v
	}
	if raw := strings.TrimSpace(c.Query("offset")); raw != "" {
		v, errParse := strconv.Atoi(raw)
		if errParse != nil {
			return page, credits.ValidationError{Field: "offset", Message: "must be an integer"}
		}
		page.Offset = v
	}
	return credits.NormalizePage(page)
}

// ParseIDParam reads a positive numeric path parameter.
func ParseIDParam(c *gin.Context, name string) (uint64, error) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param(name)), 10, 64)
	if errParse != nil || id == 0 {
		return 0, credits.ValidationError{Field: name, Message: "invalid id"}
	}
	return id, nil
}
