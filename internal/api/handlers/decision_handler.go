package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/elysenoe925-creator/NTS-PROJECT-sub000/internal/domain"
)

// DecisionService is what the handlers need from the service layer.
type DecisionService interface {
	GetDecisions(ctx context.Context, opts domain.DecisionOptions) ([]domain.Decision, error)
	GetStockHealth(ctx context.Context, opts domain.DecisionOptions) (domain.StockHealth, error)
	GetTopReorderItems(ctx context.Context, limit int, opts domain.DecisionOptions) ([]domain.Decision, error)
	Invalidate(ctx context.Context) error
}

type DecisionHandler struct {
	service DecisionService
}

func NewDecisionHandler(service DecisionService) *DecisionHandler {
	return &DecisionHandler{service: service}
}

// parseOptions reads the query string. Unparseable numbers are ignored so the
// engine defaults apply.
func (h *DecisionHandler) parseOptions(c *gin.Context) domain.DecisionOptions {
	var opts domain.DecisionOptions

	if lookback, err := strconv.Atoi(c.Query("lookback")); err == nil && lookback > 0 {
		opts.Lookback = lookback
	}

	if lead, err := strconv.Atoi(c.Query("lead_days")); err == nil && lead > 0 {
		opts.LeadDays = lead
	}

	opts.StoreID = domain.NormalizeStoreID(c.Query("store"))

	if details, err := strconv.ParseBool(c.DefaultQuery("details", "false")); err == nil {
		opts.IncludeDetails = details
	}

	if raw := strings.TrimSpace(c.Query("use_ai")); raw != "" {
		if useAI, err := strconv.ParseBool(raw); err == nil {
			opts.UseAI = &useAI
		}
	}

	return opts
}

func (h *DecisionHandler) GetDecisions(c *gin.Context) {
	opts := h.parseOptions(c)
	decisions, err := h.service.GetDecisions(c.Request.Context(), opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute decisions", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, decisions)
}

func (h *DecisionHandler) GetTopReorderItems(c *gin.Context) {
	opts := h.parseOptions(c)

	limit := 0
	if l, err := strconv.Atoi(c.DefaultQuery("limit", "8")); err == nil && l > 0 {
		limit = l
	}

	items, err := h.service.GetTopReorderItems(c.Request.Context(), limit, opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch top reorder items", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, items)
}

func (h *DecisionHandler) GetStockHealth(c *gin.Context) {
	opts := h.parseOptions(c)
	health, err := h.service.GetStockHealth(c.Request.Context(), opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute stock health", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, health)
}

func (h *DecisionHandler) InvalidateCache(c *gin.Context) {
	if err := h.service.Invalidate(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to invalidate cache", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "invalidated"})
}
