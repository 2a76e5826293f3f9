package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dtroode/medisupply-security/internal/api/http/apierror"
	"github.com/dtroode/medisupply-security/internal/logger"
	"github.com/dtroode/medisupply-security/internal/model"
)

// CustomerService defines customer operations.
type CustomerService interface {
	Create(ctx context.Context, actor string, in model.CustomerInput) (model.Customer, error)
	Get(ctx context.Context, email string) (model.Customer, error)
	List(ctx context.Context) ([]model.Customer, error)
	Delete(ctx context.Context, actor, email string) error
}

// Customer handles HTTP endpoints for customers.
type Customer struct {
	customerService CustomerService
	contextManager  model.ContextManager
	logger          *logger.Logger
}

// NewCustomer creates a new Customer handler.
func NewCustomer(customerService CustomerService, contextManager model.ContextManager, logger *logger.Logger) *Customer {
	return &Customer{
		customerService: customerService,
		contextManager:  contextManager,
		logger:          logger,
	}
}

// Length and email rules are applied by the service after normalization.
type createCustomerRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required"`
	Phone string `json:"phone" binding:"required,phone"`
}

type createCustomerResponse struct {
	OK            bool   `json:"ok"`
	Message       string `json:"message"`
	CustomerEmail string `json:"customer_email"`
}

type customerResponse struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	CreatedBy string `json:"created_by"`
	CreatedAt string `json:"created_at"`
}

type customerListResponse struct {
	Customers   []customerResponse `json:"customers"`
	Total       int                `json:"total"`
	RequestedBy string             `json:"requested_by"`
}

// Create stores a customer, replacing one with the same email.
func (h *Customer) Create(c *gin.Context) {
	claims, ok := h.claims(c)
	if !ok {
		return
	}

	var req createCustomerRequest
	if !bindJSON(c, &req) {
		return
	}

	customer, err := h.customerService.Create(c.Request.Context(), claims.Subject, model.CustomerInput{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	})
	if err != nil {
		h.fail(c, "create", err)
		return
	}

	c.JSON(http.StatusOK, createCustomerResponse{
		OK:            true,
		Message:       fmt.Sprintf("Customer created by %s", claims.Subject),
		CustomerEmail: customer.Email,
	})
}

// Get returns a single customer by email.
func (h *Customer) Get(c *gin.Context) {
	customer, err := h.customerService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "get", err)
		return
	}

	c.JSON(http.StatusOK, toCustomerResponse(customer))
}

// List returns every customer.
func (h *Customer) List(c *gin.Context) {
	claims, ok := h.claims(c)
	if !ok {
		return
	}

	customers, err := h.customerService.List(c.Request.Context())
	if err != nil {
		h.fail(c, "list", err)
		return
	}

	resp := customerListResponse{
		Customers:   make([]customerResponse, 0, len(customers)),
		Total:       len(customers),
		RequestedBy: claims.Subject,
	}
	for _, customer := range customers {
		resp.Customers = append(resp.Customers, toCustomerResponse(customer))
	}

	c.JSON(http.StatusOK, resp)
}

// Delete removes a customer by email.
func (h *Customer) Delete(c *gin.Context) {
	claims, ok := h.claims(c)
	if !ok {
		return
	}

	email := c.Param("id")
	if err := h.customerService.Delete(c.Request.Context(), claims.Subject, email); err != nil {
		h.fail(c, "delete", err)
		return
	}

	c.JSON(http.StatusOK, okResponse{
		OK:      true,
		Message: fmt.Sprintf("Customer %s deleted by %s", email, claims.Subject),
	})
}

func (h *Customer) claims(c *gin.Context) (model.Claims, bool) {
	claims, ok := h.contextManager.GetClaimsFromContext(c.Request.Context())
	if !ok {
		apierror.Abort(c, model.ErrMissingToken)
	}
	return claims, ok
}

func (h *Customer) fail(c *gin.Context, op string, err error) {
	if status, _ := apierror.Map(err); status >= http.StatusInternalServerError {
		h.logger.Error("Customer handler: request failed",
			"op", op,
			"request_id", c.GetString("request_id"),
			"error", err.Error())
	}
	apierror.Abort(c, err)
}

func toCustomerResponse(customer model.Customer) customerResponse {
	return customerResponse{
		Name:      customer.Name,
		Email:     customer.Email,
		Phone:     customer.Phone,
		CreatedBy: customer.CreatedBy,
		CreatedAt: customer.CreatedAt.UTC().Format(time.RFC3339),
	}
}
