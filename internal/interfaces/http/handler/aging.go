package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appar "github.com/arledger/backend/internal/application/ar"
	"github.com/arledger/backend/internal/domain/ar"
)

// AgingHandler handles aging report and snapshot API endpoints
type AgingHandler struct {
	BaseHandler
	agingService *appar.AgingService
}

// NewAgingHandler creates a new AgingHandler
func NewAgingHandler(agingService *appar.AgingService) *AgingHandler {
	return &AgingHandler{
		agingService: agingService,
	}
}

// GetCustomerOutstanding lists a customer's open invoices with aging buckets
func (h *AgingHandler) GetCustomerOutstanding(c *gin.Context) {
	customerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid customer ID format")
		return
	}

	outstanding, err := h.agingService.GetCustomerOutstanding(c.Request.Context(), customerID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, outstanding)
}

// GetCustomerAging returns a customer's current aging position
func (h *AgingHandler) GetCustomerAging(c *gin.Context) {
	customerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid customer ID format")
		return
	}

	aging, err := h.agingService.GetCustomerAging(c.Request.Context(), customerID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, aging)
}

// GetReport generates the per-customer aging report
func (h *AgingHandler) GetReport(c *gin.Context) {
	filter, err := buildAgingReportFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	report, err := h.agingService.GenerateAgingReport(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, report)
}

// GetSummary returns the company-wide aging summary
func (h *AgingHandler) GetSummary(c *gin.Context) {
	summary, err := h.agingService.GetAgingSummary(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, summary)
}

// UpdateCustomerSnapshot recalculates and stores one customer's
// snapshot for the given date (today when omitted)
func (h *AgingHandler) UpdateCustomerSnapshot(c *gin.Context) {
	customerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid customer ID format")
		return
	}

	date := time.Now()
	if dateStr := c.Query("date"); dateStr != "" {
		date, err = parseDateTime(dateStr)
		if err != nil {
			h.BadRequest(c, "Invalid date format")
			return
		}
	}

	snapshot, err := h.agingService.UpdateCustomerAging(c.Request.Context(), customerID, date)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, snapshot)
}

// GetCustomerSnapshots lists a customer's snapshots in a date range
func (h *AgingHandler) GetCustomerSnapshots(c *gin.Context) {
	customerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid customer ID format")
		return
	}

	from, to, err := parseDateRange(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	snapshots, err := h.agingService.GetCustomerSnapshots(c.Request.Context(), customerID, from, to)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, snapshots)
}

// GenerateSnapshots runs the daily snapshot batch for the given date
// (today when omitted)
func (h *AgingHandler) GenerateSnapshots(c *gin.Context) {
	date := time.Now()
	if dateStr := c.Query("date"); dateStr != "" {
		var err error
		date, err = parseDateTime(dateStr)
		if err != nil {
			h.BadRequest(c, "Invalid date format")
			return
		}
	}

	result, err := h.agingService.GenerateDailySnapshots(c.Request.Context(), date)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// GetTrends returns the monthly aging trend series
func (h *AgingHandler) GetTrends(c *gin.Context) {
	months := 6
	if monthsStr := c.Query("months"); monthsStr != "" {
		parsed, err := strconv.Atoi(monthsStr)
		if err != nil {
			h.BadRequest(c, "Invalid months value")
			return
		}
		months = parsed
	}

	trends, err := h.agingService.GetAgingTrends(c.Request.Context(), months)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, trends)
}

func buildAgingReportFilter(c *gin.Context) (appar.AgingReportFilter, error) {
	var filter appar.AgingReportFilter

	if raw := c.Query("customer_ids"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			customerID, err := uuid.Parse(strings.TrimSpace(part))
			if err != nil {
				return filter, err
			}
			filter.CustomerIDs = append(filter.CustomerIDs, customerID)
		}
	}
	if raw := c.Query("risk_band"); raw != "" {
		band := ar.RiskBand(raw)
		filter.RiskBand = &band
	}
	if raw := c.Query("min_outstanding"); raw != "" {
		minOutstanding, err := decimal.NewFromString(raw)
		if err != nil {
			return filter, err
		}
		filter.MinOutstanding = &minOutstanding
	}

	return filter, nil
}

func parseDateRange(c *gin.Context) (time.Time, time.Time, error) {
	to := time.Now()
	from := to.AddDate(0, -3, 0)

	if fromStr := c.Query("from"); fromStr != "" {
		parsed, err := parseDateTime(fromStr)
		if err != nil {
			return from, to, err
		}
		from = parsed
	}
	if toStr := c.Query("to"); toStr != "" {
		parsed, err := parseDateTime(toStr)
		if err != nil {
			return from, to, err
		}
		to = parsed
	}

	return from, to, nil
}
