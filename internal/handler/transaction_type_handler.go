package handler

import (
	"net/http"
	"strconv"

	"taxdesk/internal/middleware"
	"taxdesk/internal/service"
	"taxdesk/pkg/response"

	"github.com/gin-gonic/gin"
)

type TransactionTypeHandler struct {
	typeService service.TransactionTypeService
	auth        *middleware.Auth
}

func NewTransactionTypeHandler(typeService service.TransactionTypeService, auth *middleware.Auth) *TransactionTypeHandler {
	return &TransactionTypeHandler{typeService: typeService, auth: auth}
}

func (h *TransactionTypeHandler) RegisterRoutes(router *gin.RouterGroup) {
	types := router.Group("/api/transaction-types")
	{
		types.GET("", h.auth.RequirePermission(service.PermTaxRead), h.ListTypes)
		types.GET("/:id", h.auth.RequirePermission(service.PermTaxRead), h.GetType)
		types.POST("", h.auth.RequirePermission(service.PermTaxTypesWrite), h.CreateType)
		types.PUT("/:id", h.auth.RequirePermission(service.PermTaxTypesWrite), h.UpdateType)
		types.DELETE("/:id", h.auth.RequirePermission(service.PermTaxTypesWrite), h.DeleteType)
	}
}

// ListTypes returns the transaction type catalogue
// @Summary      List transaction types
// @Tags         transaction-types
// @Produce      json
// @Security     BearerAuth
// @Param        taxpayer_category  query  string  false  "INDIVIDUAL or BUSINESS"
// @Param        active             query  bool    false  "Only active entries"
// @Success      200  {object}  response.Response{data=[]service.TransactionTypeResponse}
// @Router       /api/transaction-types [get]
func (h *TransactionTypeHandler) ListTypes(c *gin.Context) {
	activeOnly, _ := strconv.ParseBool(c.DefaultQuery("active", "false"))

	types, err := h.typeService.ListTypes(c.Request.Context(), c.Query("taxpayer_category"), activeOnly)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, types))
}

func (h *TransactionTypeHandler) GetType(c *gin.Context) {
	t, err := h.typeService.GetType(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, t))
}

// CreateType adds a catalogue entry
// @Summary      Create transaction type
// @Tags         transaction-types
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateTransactionTypeRequest  true  "Catalogue entry"
// @Success      201      {object}  response.Response{data=service.TransactionTypeResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/transaction-types [post]
func (h *TransactionTypeHandler) CreateType(c *gin.Context) {
	var req service.CreateTransactionTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	t, err := h.typeService.CreateType(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, t))
}

// UpdateType edits a catalogue entry
// @Summary      Update transaction type
// @Tags         transaction-types
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                                true  "Type ID"
// @Param        payload  body      service.UpdateTransactionTypeRequest  true  "Changes"
// @Success      200      {object}  response.Response{data=service.TransactionTypeResponse}
// @Router       /api/transaction-types/{id} [put]
func (h *TransactionTypeHandler) UpdateType(c *gin.Context) {
	var req service.UpdateTransactionTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	t, err := h.typeService.UpdateType(c.Request.Context(), c.Param("id"), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, t))
}

// DeleteType removes a catalogue entry
// @Summary      Delete transaction type
// @Tags         transaction-types
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Type ID"
// @Success      200  {object}  response.Response
// @Router       /api/transaction-types/{id} [delete]
func (h *TransactionTypeHandler) DeleteType(c *gin.Context) {
	if err := h.typeService.DeleteType(c.Request.Context(), c.Param("id"), middleware.UserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Transaction type deleted successfully"}))
}
