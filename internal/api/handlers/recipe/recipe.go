package recipe

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recipe-catalog/internal/api/handlers"
	"recipe-catalog/internal/core/catalog"
	recipeCore "recipe-catalog/internal/core/recipe"
	"recipe-catalog/internal/core/search"
	"recipe-catalog/internal/pkg/common"
)

// Handler 食譜處理程序
type Handler struct {
	catalog *catalog.Service
	engine  *search.Engine
	debug   bool
}

// NewHandler 創建新的食譜處理程序
func NewHandler(catalogSvc *catalog.Service, engine *search.Engine, debug bool) *Handler {
	return &Handler{
		catalog: catalogSvc,
		engine:  engine,
		debug:   debug,
	}
}

// HandleSearch GET /recipes/search?q= 回傳完整食譜
func (h *Handler) HandleSearch(c *gin.Context) {
	query := c.Query("q")
	results := h.engine.Search(c.Request.Context(), query)

	common.LogInfo("搜尋請求完成",
		zap.String("query", query),
		zap.Int("results", len(results)),
	)
	c.JSON(http.StatusOK, gin.H{
		"query":   query,
		"count":   len(results),
		"results": results,
	})
}

// HandleSearchSummaries GET /recipes/summaries?q= 回傳列表預覽
func (h *Handler) HandleSearchSummaries(c *gin.Context) {
	query := c.Query("q")
	summaries := h.engine.SearchSummaries(c.Request.Context(), query)
	c.JSON(http.StatusOK, gin.H{
		"query":     query,
		"count":     len(summaries),
		"summaries": summaries,
	})
}

// HandleList GET /recipes?limit= 列出目錄
func (h *Handler) HandleList(c *gin.Context) {
	summaries, err := h.catalog.ListSummaries(c.Request.Context(), handlers.QueryInt(c, "limit", 0))
	if err != nil {
		handlers.RespondError(c, common.ErrServiceUnavailable.Wrap(err), h.debug)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":     len(summaries),
		"summaries": summaries,
	})
}

// HandleGet GET /recipes/:id
func (h *Handler) HandleGet(c *gin.Context) {
	r, err := h.catalog.GetRecipe(c.Request.Context(), c.Param("id"))
	if err != nil {
		if !errors.Is(err, catalog.ErrNotFound) {
			err = common.ErrServiceUnavailable.Wrap(err)
		}
		handlers.RespondError(c, err, h.debug)
		return
	}
	c.JSON(http.StatusOK, r)
}

// HandleExport GET /recipes/export
func (h *Handler) HandleExport(c *gin.Context) {
	recipes, err := h.catalog.Export(c.Request.Context())
	if err != nil {
		handlers.RespondError(c, common.ErrServiceUnavailable.Wrap(err), h.debug)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":   len(recipes),
		"recipes": recipes,
	})
}

// HandleCreate POST /recipes
func (h *Handler) HandleCreate(c *gin.Context) {
	var r recipeCore.Recipe
	if err := c.ShouldBindJSON(&r); err != nil {
		handlers.RespondError(c, common.ErrInvalidRequest.Wrap(err), h.debug)
		return
	}

	id, err := h.catalog.AddRecipe(c.Request.Context(), &r)
	if err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// HandleClear DELETE /recipes
func (h *Handler) HandleClear(c *gin.Context) {
	if err := h.catalog.Clear(c.Request.Context()); err != nil {
		handlers.RespondError(c, err, h.debug)
		return
	}
	common.LogWarn("目錄已由 API 清空", zap.String("client_ip", c.ClientIP()))
	c.Status(http.StatusNoContent)
}
