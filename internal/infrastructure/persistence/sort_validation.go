package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// CommonSortFields contains fields common to most entities
var CommonSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
}

// ReceiptSortFields contains allowed sort fields for payment receipts
var ReceiptSortFields = map[string]bool{
	"id":                 true,
	"created_at":         true,
	"updated_at":         true,
	"receipt_number":     true,
	"customer_id":        true,
	"payment_method":     true,
	"total_amount":       true,
	"allocated_amount":   true,
	"unallocated_amount": true,
	"payment_date":       true,
	"status":             true,
	"workflow_status":    true,
}

// AllocationSortFields contains allowed sort fields for allocations
var AllocationSortFields = map[string]bool{
	"id":                 true,
	"created_at":         true,
	"updated_at":         true,
	"payment_receipt_id": true,
	"invoice_id":         true,
	"customer_id":        true,
	"amount":             true,
	"allocation_date":    true,
	"allocation_type":    true,
	"status":             true,
}

// InvoiceSortFields contains allowed sort fields for invoices
var InvoiceSortFields = map[string]bool{
	"id":                 true,
	"created_at":         true,
	"updated_at":         true,
	"invoice_number":     true,
	"customer_id":        true,
	"total_amount":       true,
	"paid_amount":        true,
	"outstanding_amount": true,
	"due_date":           true,
	"payment_status":     true,
}

// CustomerAccountSortFields contains allowed sort fields for customer accounts
var CustomerAccountSortFields = map[string]bool{
	"id":                true,
	"created_at":        true,
	"updated_at":        true,
	"code":              true,
	"name":              true,
	"customer_type":     true,
	"ar_balance":        true,
	"last_payment_date": true,
}

// CreditProfileSortFields contains allowed sort fields for credit profiles
var CreditProfileSortFields = map[string]bool{
	"id":                true,
	"created_at":        true,
	"updated_at":        true,
	"customer_id":       true,
	"credit_limit":      true,
	"current_balance":   true,
	"available_credit":  true,
	"overdue_amount":    true,
	"days_past_due":     true,
	"credit_status":     true,
	"credit_score":      true,
	"reliability_score": true,
	"next_review_date":  true,
}
