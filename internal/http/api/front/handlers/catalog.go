package handlers

import (
	"errors"
	"net/http"
	"strings"

	dbutil "github.com/contentforge/studio/internal/db"
	"github.com/contentforge/studio/internal/http/api/common"
	"github.com/contentforge/studio/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CatalogHandler serves the reference content catalog.
type CatalogHandler struct {
	db *gorm.DB
}

// NewCatalogHandler constructs a CatalogHandler.
func NewCatalogHandler(db *gorm.DB) *CatalogHandler {
	return &CatalogHandler{db: db}
}

// List returns published items with optional category and search filters.
func (h *CatalogHandler) List(c *gin.Context) {
	page, errPage := common.PageFromQuery(c)
	if errPage != nil {
		common.WriteError(c, errPage)
		return
	}

	q := h.db.WithContext(c.Request.Context()).Model(&models.ContentItem{}).Where("published = ?", true)
	if category := strings.TrimSpace(c.Query("category")); category != "" {
		q = q.Where("category = ?", category)
	}
	if term := strings.TrimSpace(c.Query("q")); term != "" {
		pattern := dbutil.ContainsPattern(h.db, term)
		q = q.Where("("+dbutil.CaseInsensitiveLikeExpr(h.db, "title")+" OR "+dbutil.CaseInsensitiveLikeExpr(h.db, "summary")+")", pattern, pattern)
	}

	var total int64
	if errCount := q.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
		return
	}
	var rows []models.ContentItem
	if errFind := q.Order("views DESC").Order("id DESC").
		Limit(page.Limit).Offset(page.Offset).
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	items := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		items = append(items, gin.H{
			"slug":     row.Slug,
			"title":    row.Title,
			"category": row.Category,
			"summary":  row.Summary,
			"views":    row.Views,
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": total, "limit": page.Limit, "offset": page.Offset})
}

// Get returns one published item by slug.
func (h *CatalogHandler) Get(c *gin.Context) {
	slug := strings.TrimSpace(c.Param("slug"))
	var row models.ContentItem
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("slug = ? AND published = ?", slug, true).
		First(&row).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"slug":       row.Slug,
		"title":      row.Title,
		"category":   row.Category,
		"summary":    row.Summary,
		"body":       row.Body,
		"views":      row.Views,
		"created_at": row.CreatedAt,
	})
}
