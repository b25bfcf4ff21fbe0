package httpserver

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"pizzaria-checkout/internal/checkout"
	"pizzaria-checkout/internal/domain"
)

type checkoutHandler struct {
	deps   Deps
	logger *log.Logger
}

func (h *checkoutHandler) session(c *gin.Context) (*checkout.Checkout, bool) {
	session, err := h.deps.Sessions.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "checkout session not found"})
		return nil, false
	}
	return session, true
}

func (h *checkoutHandler) create(c *gin.Context) {
	session := h.deps.Sessions.Create()
	c.JSON(http.StatusCreated, session.View())
}

func (h *checkoutHandler) get(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, session.View())
}

type cartItemRequest struct {
	ID             string   `json:"id" binding:"required"`
	Name           string   `json:"name"`
	Size           string   `json:"size"`
	Quantity       int      `json:"quantity"`
	UnitPriceCents int64    `json:"unitPriceCents"`
	Flavors        []string `json:"flavors"`
	HalfFlavor     string   `json:"halfFlavor"`
	Extras         []string `json:"extras"`
	CrustType      string   `json:"crustType"`
}

type quantityRequest struct {
	ID       string `json:"id" binding:"required"`
	Size     string `json:"size"`
	Quantity int    `json:"quantity"`
}

// patchRequest carries partial field updates; only present fields are
// applied, in declaration order.
type patchRequest struct {
	AddItems   []cartItemRequest `json:"addItems"`
	Quantities []quantityRequest `json:"quantities"`

	CustomerName *string `json:"customerName"`
	Phone        *string `json:"phone"`
	CustomerType *string `json:"customerType"`
	CEP          *string `json:"cep"`
	Street       *string `json:"street"`
	Neighborhood *string `json:"neighborhood"`
	Pickup       *bool   `json:"pickup"`
	Notes        *string `json:"notes"`

	Coupon        *string `json:"coupon"`
	PaymentMethod *string `json:"paymentMethod"`
}

func (h *checkoutHandler) patch(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	var req patchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.CustomerType != nil {
		switch domain.CustomerType(*req.CustomerType) {
		case domain.CustomerTypeUndeclared, domain.CustomerTypeExisting, domain.CustomerTypeNew:
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid customerType"})
			return
		}
	}
	if req.PaymentMethod != nil {
		switch domain.PaymentMethod(*req.PaymentMethod) {
		case domain.PaymentPix, domain.PaymentCard, domain.PaymentCash:
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid paymentMethod"})
			return
		}
	}

	for _, it := range req.AddItems {
		session.AddItem(domain.CartItem{
			ID:             it.ID,
			Name:           it.Name,
			Size:           it.Size,
			Quantity:       it.Quantity,
			UnitPriceCents: it.UnitPriceCents,
			Flavors:        it.Flavors,
			HalfFlavor:     it.HalfFlavor,
			Extras:         it.Extras,
			CrustType:      it.CrustType,
		})
	}
	for _, q := range req.Quantities {
		session.SetQuantity(q.ID, q.Size, q.Quantity)
	}

	if req.CustomerName != nil {
		session.SetCustomerName(*req.CustomerName)
	}
	if req.Phone != nil {
		session.SetPhone(*req.Phone)
	}
	if req.CustomerType != nil {
		session.SetCustomerType(domain.CustomerType(*req.CustomerType))
	}
	if req.CEP != nil {
		session.SetCEP(*req.CEP)
	}
	if req.Street != nil {
		session.SetStreet(*req.Street)
	}
	if req.Neighborhood != nil {
		session.SetNeighborhood(*req.Neighborhood)
	}
	if req.Pickup != nil {
		session.SetPickup(*req.Pickup)
	}
	if req.Notes != nil {
		session.SetNotes(*req.Notes)
	}
	if req.Coupon != nil {
		session.ApplyCoupon(*req.Coupon)
	}
	if req.PaymentMethod != nil {
		session.SelectPaymentMethod(domain.PaymentMethod(*req.PaymentMethod))
	}

	c.JSON(http.StatusOK, session.View())
}

func (h *checkoutHandler) advance(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	session.Advance()
	c.JSON(http.StatusOK, session.View())
}

func (h *checkoutHandler) back(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	session.Back()
	c.JSON(http.StatusOK, session.View())
}

type gotoRequest struct {
	Step *int `json:"step" binding:"required"`
}

func (h *checkoutHandler) goTo(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	var req gotoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	step := checkout.Step(*req.Step)
	if step < checkout.StepCart || step > checkout.StepPayment {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid step"})
		return
	}
	session.GoTo(step)
	c.JSON(http.StatusOK, session.View())
}

type paymentRequest struct {
	Force bool `json:"force"`
}

func (h *checkoutHandler) payment(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	var req paymentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}
	_, err := session.CreatePayment(c.Request.Context(), req.Force)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, session.PaymentState())
	case errors.Is(err, checkout.ErrPaymentInFlight):
		c.JSON(http.StatusConflict, session.PaymentState())
	case errors.Is(err, checkout.ErrStaleTotal):
		c.JSON(http.StatusConflict, session.PaymentState())
	default:
		c.JSON(http.StatusBadGateway, session.PaymentState())
	}
}

func (h *checkoutHandler) submit(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	result := session.Submit(c.Request.Context())
	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, result)
}

func (h *checkoutHandler) summary(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	summary, err := session.LastSummary(c.Request.Context())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no order submitted yet"})
			return
		}
		h.logger.Printf("load summary: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load summary"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *checkoutHandler) menu(c *gin.Context) {
	if h.deps.Menu == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "menu backend not configured"})
		return
	}
	raw, err := h.deps.Menu.FetchMenu(c.Request.Context())
	if err != nil {
		h.logger.Printf("fetch menu: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "menu unavailable"})
		return
	}
	c.Data(http.StatusOK, "application/json", raw)
}

func (h *checkoutHandler) orderStatus(c *gin.Context) {
	if h.deps.Status == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "order backend not configured"})
		return
	}
	raw, err := h.deps.Status.FetchOrderStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		h.logger.Printf("fetch order status: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "order status unavailable"})
		return
	}
	c.Data(http.StatusOK, "application/json", raw)
}

func (h *checkoutHandler) cep(c *gin.Context) {
	if h.deps.CEP == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "cep backend not configured"})
		return
	}
	addr, err := h.deps.CEP.Lookup(c.Request.Context(), c.Param("cep"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "cep not found"})
			return
		}
		h.logger.Printf("cep lookup: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "cep lookup unavailable"})
		return
	}
	c.JSON(http.StatusOK, addr)
}
