package handler

import (
	"net/http"

	"taxdesk/internal/middleware"
	"taxdesk/internal/service"
	"taxdesk/pkg/pagination"
	"taxdesk/pkg/response"

	"github.com/gin-gonic/gin"
)

type TaxHandler struct {
	taxService service.TaxService
	auth       *middleware.Auth
}

func NewTaxHandler(taxService service.TaxService, auth *middleware.Auth) *TaxHandler {
	return &TaxHandler{taxService: taxService, auth: auth}
}

func (h *TaxHandler) RegisterRoutes(router *gin.RouterGroup) {
	tax := router.Group("/api/tax")
	{
		tax.POST("/calculate", h.auth.RequirePermission(service.PermTaxRead), h.Calculate)

		records := tax.Group("/records")
		records.GET("", h.auth.RequirePermission(service.PermTaxRead), h.ListRecords)
		records.POST("", h.auth.RequirePermission(service.PermTaxWrite), h.CreateRecord)
		records.GET("/:id", h.auth.RequirePermission(service.PermTaxRead), h.GetRecord)
		records.GET("/:id/history", h.auth.RequirePermission(service.PermTaxRead), h.GetRecordHistory)
		records.DELETE("/:id", h.auth.RequirePermission(service.PermTaxWrite), h.DeleteRecord)
		records.PATCH("/:id/compliance", h.auth.RequirePermission(service.PermTaxReview), h.UpdateCompliance)
		records.POST("/:id/compliance-report", h.auth.RequirePermission(service.PermTaxWrite), h.GenerateComplianceReport)
	}
}

// Calculate resolves PPh and PPN for a transaction without storing it
// @Summary      Calculate tax
// @Description  Resolves the PPh rate, PPN applicability and amounts for one payment
// @Tags         tax
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CalculateTaxRequest  true  "Transaction descriptor"
// @Success      200      {object}  response.Response{data=service.CalculationResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/tax/calculate [post]
func (h *TaxHandler) Calculate(c *gin.Context) {
	var req service.CalculateTaxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	res, err := h.taxService.Calculate(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// CreateRecord calculates and stores a tax record
// @Summary      Create tax record
// @Tags         tax
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateTaxRecordRequest  true  "Transaction descriptor and bookkeeping fields"
// @Success      201      {object}  response.Response{data=service.TaxRecordResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/tax/records [post]
func (h *TaxHandler) CreateRecord(c *gin.Context) {
	var req service.CreateTaxRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	record, err := h.taxService.CreateRecord(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, record))
}

// ListRecords returns a filtered page of tax records
// @Summary      List tax records
// @Tags         tax
// @Produce      json
// @Security     BearerAuth
// @Param        taxpayer_category  query  string  false  "INDIVIDUAL or BUSINESS"
// @Param        compliance_status  query  string  false  "PENDING, COMPLIANT, NEEDS_REVIEW, NON_COMPLIANT"
// @Param        transaction_type   query  string  false  "Substring of the transaction type"
// @Param        from               query  string  false  "Created on or after (YYYY-MM-DD)"
// @Param        to                 query  string  false  "Created on or before (YYYY-MM-DD)"
// @Param        page               query  int     false  "Page number (default 1)"
// @Param        limit              query  int     false  "Items per page (default 20)"
// @Success      200  {object}  response.Response{data=object}
// @Router       /api/tax/records [get]
func (h *TaxHandler) ListRecords(c *gin.Context) {
	p := pagination.Parse(c)
	query := service.TaxRecordQuery{
		TaxpayerCategory: c.Query("taxpayer_category"),
		ComplianceStatus: c.Query("compliance_status"),
		TransactionType:  c.Query("transaction_type"),
		From:             c.Query("from"),
		To:               c.Query("to"),
	}

	records, total, err := h.taxService.ListRecords(c.Request.Context(), query, p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, records, p.Meta(total)))
}

// GetRecord returns one tax record
// @Summary      Get tax record
// @Tags         tax
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Record ID"
// @Success      200  {object}  response.Response{data=service.TaxRecordResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/tax/records/{id} [get]
func (h *TaxHandler) GetRecord(c *gin.Context) {
	record, err := h.taxService.GetRecord(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, record))
}

// GetRecordHistory returns the audit trail of a record
// @Summary      Tax record history
// @Tags         tax
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Record ID"
// @Success      200  {object}  response.Response{data=[]service.AuditLogResponse}
// @Router       /api/tax/records/{id}/history [get]
func (h *TaxHandler) GetRecordHistory(c *gin.Context) {
	logs, err := h.taxService.GetRecordHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, logs))
}

// DeleteRecord soft deletes a tax record
// @Summary      Delete tax record
// @Tags         tax
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Record ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/tax/records/{id} [delete]
func (h *TaxHandler) DeleteRecord(c *gin.Context) {
	if err := h.taxService.DeleteRecord(c.Request.Context(), c.Param("id"), middleware.UserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Tax record deleted successfully"}))
}

// UpdateCompliance records a reviewer's compliance decision
// @Summary      Review compliance
// @Tags         tax
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                           true  "Record ID"
// @Param        payload  body      service.UpdateComplianceRequest  true  "New status and note"
// @Success      200      {object}  response.Response{data=service.TaxRecordResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/tax/records/{id}/compliance [patch]
func (h *TaxHandler) UpdateCompliance(c *gin.Context) {
	var req service.UpdateComplianceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	record, err := h.taxService.UpdateComplianceStatus(c.Request.Context(), c.Param("id"), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, record))
}

// GenerateComplianceReport asks the configured language model for a compliance narrative
// @Summary      Generate compliance report
// @Tags         tax
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Record ID"
// @Success      200  {object}  response.Response{data=service.TaxRecordResponse}
// @Failure      503  {object}  response.Response
// @Router       /api/tax/records/{id}/compliance-report [post]
func (h *TaxHandler) GenerateComplianceReport(c *gin.Context) {
	record, err := h.taxService.GenerateComplianceReport(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, record))
}
