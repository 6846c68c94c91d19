package handlers

import (
	"github.com/gin-gonic/gin"

	"flowdesk/internal/domain/billing"
	"flowdesk/internal/domain/documents/sale"
	"flowdesk/internal/domain/reports"
	"flowdesk/internal/infrastructure/http/v1/dto"
)

// SaleHandler handles /sales and the sales analytics report.
type SaleHandler struct {
	*BaseHandler
	service *sale.Service
	reports *reports.Service
}

// NewSaleHandler creates a new sale handler.
func NewSaleHandler(base *BaseHandler, service *sale.Service, reportService *reports.Service) *SaleHandler {
	return &SaleHandler{BaseHandler: base, service: service, reports: reportService}
}

// RegisterRoutes mounts the sale routes on rg.
func (h *SaleHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/analytics", h.Analytics)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/refund", h.Refund)
}

// List handles GET /sales.
func (h *SaleHandler) List(c *gin.Context) {
	customerID, ok := h.ParseOptionalID(c, "customerId")
	if !ok {
		return
	}
	from, ok := h.ParseTimeQuery(c, "from")
	if !ok {
		return
	}
	to, ok := h.ParseTimeQuery(c, "to")
	if !ok {
		return
	}

	filter := sale.ListFilter{
		ListFilter:    h.ListFilter(c),
		CustomerID:    customerID,
		PaymentMethod: billing.PaymentMethod(c.Query("paymentMethod")),
		Channel:       sale.Channel(c.Query("channel")),
		From:          from,
		To:            to,
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(result, dto.FromSale))
}

// Create handles POST /sales.
func (h *SaleHandler) Create(c *gin.Context) {
	var req dto.CreateSaleRequest
	if !h.BindJSON(c, &req) {
		return
	}
	doc, err := req.ToEntity()
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.Create(c.Request.Context(), doc); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromSale(doc))
}

// Get handles GET /sales/:id.
func (h *SaleHandler) Get(c *gin.Context) {
	docID, ok := h.ParseID(c)
	if !ok {
		return
	}

	doc, err := h.service.GetByID(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromSale(doc))
}

// Refund handles POST /sales/:id/refund.
func (h *SaleHandler) Refund(c *gin.Context) {
	docID, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req dto.RefundSaleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc, err := h.service.Refund(c.Request.Context(), docID, req.Amount, req.Reason)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromSale(doc))
}

// Analytics handles GET /sales/analytics.
func (h *SaleHandler) Analytics(c *gin.Context) {
	var req dto.SalesAnalyticsRequest
	if !h.BindQuery(c, &req) {
		return
	}

	summary, err := h.reports.SalesSummary(c.Request.Context(), req.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, summary)
}
