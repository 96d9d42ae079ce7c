package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arledger/backend/internal/domain/ledger"
)

// InvoiceModel is the persistence model for the Invoice aggregate root.
type InvoiceModel struct {
	AggregateModel
	InvoiceNumber     string               `gorm:"type:varchar(50);not null;uniqueIndex"`
	CustomerID        uuid.UUID            `gorm:"type:uuid;not null;index"`
	TotalAmount       decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	PaidAmount        decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	OutstandingAmount decimal.Decimal      `gorm:"type:decimal(18,4);not null;index"`
	DueDate           *time.Time           `gorm:"index"`
	PaymentStatus     ledger.PaymentStatus `gorm:"type:varchar(20);not null;default:'UNPAID';index"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice entity.
func (m *InvoiceModel) ToDomain() *ledger.Invoice {
	return &ledger.Invoice{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		InvoiceNumber:     m.InvoiceNumber,
		CustomerID:        m.CustomerID,
		TotalAmount:       m.TotalAmount,
		PaidAmount:        m.PaidAmount,
		OutstandingAmount: m.OutstandingAmount,
		DueDate:           m.DueDate,
		PaymentStatus:     m.PaymentStatus,
	}
}

// FromDomain populates the persistence model from a domain Invoice entity.
func (m *InvoiceModel) FromDomain(invoice *ledger.Invoice) {
	m.FromDomainAggregateRoot(invoice.BaseAggregateRoot)
	m.InvoiceNumber = invoice.InvoiceNumber
	m.CustomerID = invoice.CustomerID
	m.TotalAmount = invoice.TotalAmount
	m.PaidAmount = invoice.PaidAmount
	m.OutstandingAmount = invoice.OutstandingAmount
	m.DueDate = invoice.DueDate
	m.PaymentStatus = invoice.PaymentStatus
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice.
func InvoiceModelFromDomain(invoice *ledger.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(invoice)
	return m
}

// CustomerAccountModel is the persistence model for the CustomerAccount
// aggregate root.
type CustomerAccountModel struct {
	AggregateModel
	Code            string              `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name            string              `gorm:"type:varchar(200);not null"`
	CustomerType    ledger.CustomerType `gorm:"type:varchar(20);not null;default:'REGULAR'"`
	ARBalance       decimal.Decimal     `gorm:"type:decimal(18,4);not null"`
	LastPaymentDate *time.Time
}

// TableName returns the table name for GORM
func (CustomerAccountModel) TableName() string {
	return "customer_accounts"
}

// ToDomain converts the persistence model to a domain CustomerAccount entity.
func (m *CustomerAccountModel) ToDomain() *ledger.CustomerAccount {
	return &ledger.CustomerAccount{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Code:              m.Code,
		Name:              m.Name,
		CustomerType:      m.CustomerType,
		ARBalance:         m.ARBalance,
		LastPaymentDate:   m.LastPaymentDate,
	}
}

// FromDomain populates the persistence model from a domain CustomerAccount entity.
func (m *CustomerAccountModel) FromDomain(customer *ledger.CustomerAccount) {
	m.FromDomainAggregateRoot(customer.BaseAggregateRoot)
	m.Code = customer.Code
	m.Name = customer.Name
	m.CustomerType = customer.CustomerType
	m.ARBalance = customer.ARBalance
	m.LastPaymentDate = customer.LastPaymentDate
}

// CustomerAccountModelFromDomain creates a new persistence model from a
// domain CustomerAccount.
func CustomerAccountModelFromDomain(customer *ledger.CustomerAccount) *CustomerAccountModel {
	m := &CustomerAccountModel{}
	m.FromDomain(customer)
	return m
}
