package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"flowdesk/internal/core/id"
	"flowdesk/internal/domain/billing"
	"flowdesk/internal/domain/documents/invoice"
	"flowdesk/internal/infrastructure/http/v1/dto"
)

// InvoiceHandler handles /invoices.
type InvoiceHandler struct {
	*BaseHandler
	service *invoice.Service
	now     func() time.Time
}

// NewInvoiceHandler creates a new invoice handler.
func NewInvoiceHandler(base *BaseHandler, service *invoice.Service) *InvoiceHandler {
	return &InvoiceHandler{BaseHandler: base, service: service, now: time.Now}
}

// RegisterRoutes mounts the invoice routes on rg.
func (h *InvoiceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.POST("/:id/payments", h.RecordPayment)
	rg.POST("/:id/send", h.Send)
	rg.POST("/:id/remind", h.Remind)
	rg.POST("/:id/cancel", h.Cancel)
}

func (h *InvoiceHandler) toDTO(inv *invoice.Invoice) dto.InvoiceResponse {
	return dto.FromInvoice(inv, h.now())
}

// List handles GET /invoices.
func (h *InvoiceHandler) List(c *gin.Context) {
	customerID, ok := h.ParseOptionalID(c, "customerId")
	if !ok {
		return
	}
	dueBefore, ok := h.ParseTimeQuery(c, "dueBefore")
	if !ok {
		return
	}

	filter := invoice.ListFilter{
		ListFilter:    h.ListFilter(c),
		Status:        invoice.Status(c.Query("status")),
		PaymentStatus: invoice.PaymentStatus(c.Query("paymentStatus")),
		CustomerID:    customerID,
		DueBefore:     dueBefore,
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(result, h.toDTO))
}

// Create handles POST /invoices.
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req dto.CreateInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}
	inv, err := req.ToEntity()
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.Create(c.Request.Context(), inv); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, h.toDTO(inv))
}

// Get handles GET /invoices/:id.
func (h *InvoiceHandler) Get(c *gin.Context) {
	docID, ok := h.ParseID(c)
	if !ok {
		return
	}

	inv, err := h.service.GetByID(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, h.toDTO(inv))
}

// Update handles PUT /invoices/:id.
func (h *InvoiceHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()

	docID, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req dto.UpdateInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	inv, err := h.service.GetByID(ctx, docID)
	if err != nil {
		h.Error(c, err)
		return
	}
	if err := req.ApplyTo(inv); err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.Update(ctx, inv); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, h.toDTO(inv))
}

// RecordPayment handles POST /invoices/:id/payments.
func (h *InvoiceHandler) RecordPayment(c *gin.Context) {
	docID, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req dto.RecordPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	inv, err := h.service.RecordPayment(c.Request.Context(), docID, req.Amount, billing.PaymentMethod(req.Method))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, h.toDTO(inv))
}

// Send handles POST /invoices/:id/send.
func (h *InvoiceHandler) Send(c *gin.Context) {
	h.transition(c, h.service.MarkSent)
}

// Remind handles POST /invoices/:id/remind.
func (h *InvoiceHandler) Remind(c *gin.Context) {
	h.transition(c, h.service.RecordReminder)
}

// Cancel handles POST /invoices/:id/cancel.
func (h *InvoiceHandler) Cancel(c *gin.Context) {
	h.transition(c, h.service.Cancel)
}

func (h *InvoiceHandler) transition(c *gin.Context, fn func(context.Context, id.ID) (*invoice.Invoice, error)) {
	docID, ok := h.ParseID(c)
	if !ok {
		return
	}
	inv, err := fn(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, h.toDTO(inv))
}
