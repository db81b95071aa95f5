package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recipe-catalog/internal/core/catalog"
	"recipe-catalog/internal/core/recipe"
	"recipe-catalog/internal/core/search"
	"recipe-catalog/internal/pkg/common"
)

// GenerateRequest 以自然語言描述要生成的食譜
type GenerateRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

// GenerateResponse 生成結果。Saved 為 false 時食譜僅供展示，未寫入目錄
type GenerateResponse struct {
	Recipe *recipe.Recipe `json:"recipe"`
	Saved  bool           `json:"saved"`
	Error  string         `json:"error,omitempty"`
}

// ChatRequest 單次對話訊息
type ChatRequest struct {
	Message string `json:"message" binding:"required"`
}

// ChatResponse 先搜尋目錄，沒有結果時才生成新食譜
type ChatResponse struct {
	Source    string            `json:"source"`
	Summaries []recipe.Summary  `json:"summaries,omitempty"`
	Generated *GenerateResponse `json:"generated,omitempty"`
}

// AIHandler 食譜生成與對話處理器
type AIHandler struct {
	catalog *catalog.Service
	engine  *search.Engine
	debug   bool
}

// NewAIHandler 創建 AI 處理器
func NewAIHandler(catalogSvc *catalog.Service, engine *search.Engine, debug bool) *AIHandler {
	return &AIHandler{
		catalog: catalogSvc,
		engine:  engine,
		debug:   debug,
	}
}

// GenerateRecipe POST /recipes/generate
func (h *AIHandler) GenerateRecipe(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, common.ErrInvalidRequest.Wrap(err), h.debug)
		return
	}

	resp, err := h.generate(c, req.Prompt)
	if err != nil {
		RespondError(c, err, h.debug)
		return
	}
	status := http.StatusCreated
	if !resp.Saved {
		status = http.StatusAccepted
	}
	c.JSON(status, resp)
}

// Chat POST /chat 單次對話：先搜尋，沒有結果才生成
func (h *AIHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, common.ErrInvalidRequest.Wrap(err), h.debug)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		RespondError(c, common.NewFieldValidationError("message", "must not be empty"), h.debug)
		return
	}

	if summaries := h.engine.SearchSummaries(c.Request.Context(), req.Message); len(summaries) > 0 {
		c.JSON(http.StatusOK, ChatResponse{Source: "catalog", Summaries: summaries})
		return
	}

	resp, err := h.generate(c, req.Message)
	if err != nil {
		RespondError(c, err, h.debug)
		return
	}
	c.JSON(http.StatusOK, ChatResponse{Source: "generated", Generated: resp})
}

// generate 生成並儲存；寫入失敗時仍回傳食譜，Saved 為 false
func (h *AIHandler) generate(c *gin.Context, prompt string) (*GenerateResponse, error) {
	r, _, err := h.catalog.GenerateAndSave(c.Request.Context(), prompt)
	switch {
	case err == nil:
		return &GenerateResponse{Recipe: r, Saved: true}, nil
	case r != nil && errors.Is(err, catalog.ErrWriteFailed):
		common.LogWarn("生成的食譜未能儲存", zap.String("titulo", r.Title), zap.Error(err))
		return &GenerateResponse{Recipe: r, Saved: false, Error: common.ErrWriteFailed.Message}, nil
	case ToAPIError(err).Code == common.ErrCodeInternalError:
		return nil, common.ErrAIServiceError.Wrap(err)
	default:
		return nil, err
	}
}
