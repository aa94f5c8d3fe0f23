package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotesync/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotesync/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quotesync/internal/app"
)

// QuoteHandler serves the quote, category, import and export endpoints.
type QuoteHandler struct {
	service *app.QuoteService
}

// NewQuoteHandler creates a quote handler.
func NewQuoteHandler(service *app.QuoteService) *QuoteHandler {
	return &QuoteHandler{service: service}
}

// List handles GET /api/v1/quotes. An empty or "all" category lists everything.
func (h *QuoteHandler) List(c *gin.Context) {
	var req dto.ListQuotesRequest
	if err := dto.BindQueryAndValidate(c, &req); err != nil {
		dto.RespondValidation(c, err)
		return
	}

	offset, err := req.Offset(req.Category)
	if err != nil {
		dto.RespondCode(c, dto.ErrorCodeBadRequest, err.Error())
		return
	}

	quotes := dto.FromQuotes(h.service.List(c.Request.Context(), req.Category))

	c.JSON(http.StatusOK, dto.Paginate(quotes, offset, req.PageLimit(), req.Category))
}

// Create handles POST /api/v1/quotes. The quote is stored before the
// response is written; publishing to the remote continues in the background.
func (h *QuoteHandler) Create(c *gin.Context) {
	var req dto.CreateQuoteRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		dto.RespondValidation(c, err)
		return
	}

	q, err := h.service.Create(c.Request.Context(), req.Text, req.Category)
	if err != nil {
		dto.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.CreateQuoteResponse{
		Quote:   dto.FromQuote(q),
		Message: app.MsgQuoteAdded,
	})
}

// Random handles GET /api/v1/quotes/random and remembers the pick for the session.
func (h *QuoteHandler) Random(c *gin.Context) {
	var req dto.RandomQuoteRequest
	if err := dto.BindQueryAndValidate(c, &req); err != nil {
		dto.RespondValidation(c, err)
		return
	}

	ctx := c.Request.Context()

	q, err := h.service.Random(ctx, req.Category)
	if err != nil {
		dto.RespondError(c, err)
		return
	}

	h.service.RememberLastQuote(ctx, middleware.GetSessionID(c), q)

	c.JSON(http.StatusOK, dto.FromQuote(q))
}

// Last handles GET /api/v1/quotes/last.
func (h *QuoteHandler) Last(c *gin.Context) {
	q, err := h.service.LastQuote(c.Request.Context(), middleware.GetSessionID(c))
	if err != nil {
		dto.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromQuote(q))
}

// Categories handles GET /api/v1/categories.
func (h *QuoteHandler) Categories(c *gin.Context) {
	ctx := c.Request.Context()

	c.JSON(http.StatusOK, dto.CategoriesResponse{
		Categories: h.service.Categories(ctx),
		Selected:   h.service.SelectedCategory(ctx),
	})
}

// SelectCategory handles PUT /api/v1/categories/selected. Any category may be
// selected, including one with no quotes yet.
func (h *QuoteHandler) SelectCategory(c *gin.Context) {
	var req dto.SelectCategoryRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		dto.RespondValidation(c, err)
		return
	}

	ctx := c.Request.Context()
	if err := h.service.SetSelectedCategory(ctx, req.Category); err != nil {
		dto.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.CategoriesResponse{
		Categories: h.service.Categories(ctx),
		Selected:   h.service.SelectedCategory(ctx),
	})
}

// Import handles POST /api/v1/import. The body is the JSON array itself.
func (h *QuoteHandler) Import(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponse(dto.ErrorCodeBadRequest,
				"import payload exceeds "+strconv.FormatInt(tooLarge.Limit, 10)+" bytes"))

			return
		}

		dto.RespondCode(c, dto.ErrorCodeBadRequest, "request body could not be read")

		return
	}

	n, err := h.service.Import(c.Request.Context(), payload)
	if err != nil {
		dto.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ImportResponse{Imported: n, Message: app.MsgQuotesImported})
}

// Export handles GET /api/v1/export as a file download.
func (h *QuoteHandler) Export(c *gin.Context) {
	body, err := h.service.Export(c.Request.Context())
	if err != nil {
		dto.RespondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+h.service.ExportFilename()+`"`)
	c.Data(http.StatusOK, "application/json", body)
}

// ExportToSinks handles POST /api/v1/export, writing to every configured destination.
func (h *QuoteHandler) ExportToSinks(c *gin.Context) {
	locations, err := h.service.ExportToSinks(c.Request.Context())
	if err != nil {
		dto.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ExportLocationsResponse{Locations: locations})
}

// Register mounts the routes on the /api/v1 group.
func (h *QuoteHandler) Register(rg *gin.RouterGroup) {
	quotes := rg.Group("/quotes")
	quotes.GET("", h.List)
	quotes.POST("", h.Create)
	quotes.GET("/random", h.Random)
	quotes.GET("/last", h.Last)

	rg.GET("/categories", h.Categories)
	rg.PUT("/categories/selected", h.SelectCategory)

	rg.POST("/import", h.Import)
	rg.GET("/export", h.Export)
	rg.POST("/export", h.ExportToSinks)
}
