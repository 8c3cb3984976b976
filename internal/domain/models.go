package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SyncStatus tags the local copy of a record with how it relates to the
// cloud mirror. It never leaves the device.
type SyncStatus string

const (
	SyncLocal             SyncStatus = "local"
	SyncSynced            SyncStatus = "synced"
	SyncConflictSuspected SyncStatus = "conflict_suspected"
)

// Meta is embedded by every mirrored entity.
type Meta struct {
	ID         int64      `json:"id,omitempty"`
	CompanyID  *int64     `json:"company_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	SyncStatus SyncStatus `json:"sync_status,omitempty"`
}

func (m *Meta) Base() *Meta { return m }

// BelongsTo reports whether the record is scoped to companyID. Records
// without a company never match a scoped read.
func (m *Meta) BelongsTo(companyID int64) bool {
	return m.CompanyID != nil && *m.CompanyID == companyID
}

func CompanyRef(id int64) *int64 {
	return &id
}

type Expense struct {
	Meta
	Category      string          `json:"category" validate:"required,max=80"`
	Description   string          `json:"description,omitempty" validate:"max=500"`
	Amount        decimal.Decimal `json:"amount"`
	ExpenseDate   Date            `json:"expense_date"`
	PaymentMethod string          `json:"payment_method,omitempty" validate:"omitempty,oneof=cash card upi bank cheque other"`
}

type LineItem struct {
	ProductID *int64          `json:"product_id,omitempty"`
	Name      string          `json:"name" validate:"required"`
	Quantity  int             `json:"quantity" validate:"gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Total     decimal.Decimal `json:"total"`
}

type Sale struct {
	Meta
	InvoiceNumber string          `json:"invoice_number" validate:"required,max=40"`
	CustomerName  string          `json:"customer_name,omitempty"`
	SaleDate      Date            `json:"sale_date"`
	Items         []LineItem      `json:"items" validate:"dive"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	Discount      decimal.Decimal `json:"discount"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	PaymentStatus string          `json:"payment_status,omitempty" validate:"omitempty,oneof=paid partial unpaid"`
}

type Purchase struct {
	Meta
	SupplierName  string          `json:"supplier_name" validate:"required,max=120"`
	BillNumber    string          `json:"bill_number,omitempty"`
	PurchaseDate  Date            `json:"purchase_date"`
	Items         []LineItem      `json:"items" validate:"dive"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaymentStatus string          `json:"payment_status,omitempty" validate:"omitempty,oneof=paid partial unpaid"`
}

type Product struct {
	Meta
	Name          string          `json:"name" validate:"required,max=120"`
	SKU           string          `json:"sku,omitempty"`
	Barcode       string          `json:"barcode,omitempty"`
	Category      string          `json:"category,omitempty"`
	Unit          string          `json:"unit,omitempty"`
	SellingPrice  decimal.Decimal `json:"selling_price"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	GSTRate       decimal.Decimal `json:"gst_rate"`
	Stock         int             `json:"stock"`
	ReorderLevel  int             `json:"reorder_level" validate:"gte=0"`
}

type CustomerPayment struct {
	Meta
	SaleID       *int64          `json:"sale_id,omitempty"`
	CustomerName string          `json:"customer_name" validate:"required"`
	Amount       decimal.Decimal `json:"amount"`
	PaymentDate  Date            `json:"payment_date"`
	Method       string          `json:"method" validate:"required,oneof=cash card upi bank cheque other"`
	Reference    string          `json:"reference,omitempty"`
}

type Notification struct {
	Meta
	Kind    string `json:"kind" validate:"required"`
	Title   string `json:"title" validate:"required,max=160"`
	Message string `json:"message"`
	IsRead  bool   `json:"is_read"`
}

const (
	NotificationLowStock     = "low_stock"
	NotificationPayment      = "payment"
	NotificationExportFailed = "export_failed"
	NotificationSystem       = "system"
)

const (
	PaymentStatusPending = "pending"
	PaymentStatusSuccess = "success"
	PaymentStatusFailed  = "failed"
)

type SubscriptionPayment struct {
	Meta
	Plan             string          `json:"plan" validate:"required,oneof=monthly quarterly yearly"`
	Amount           decimal.Decimal `json:"amount"`
	GSTAmount        decimal.Decimal `json:"gst_amount"`
	GatewayCharges   decimal.Decimal `json:"gateway_charges"`
	Discount         decimal.Decimal `json:"discount"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	Currency         string          `json:"currency"`
	Status           string          `json:"status"`
	GatewayOrderID   string          `json:"gateway_order_id,omitempty"`
	GatewayPaymentID string          `json:"gateway_payment_id,omitempty"`
	PeriodStart      *time.Time      `json:"period_start,omitempty"`
	PeriodEnd        *time.Time      `json:"period_end,omitempty"`
	PaidAt           *time.Time      `json:"paid_at,omitempty"`
}

const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
)

const (
	ReportSales     = "sales"
	ReportPurchases = "purchases"
	ReportExpenses  = "expenses"
)

type ScheduledExportConfig struct {
	Meta
	Email        string     `json:"email" validate:"required,email"`
	Frequency    string     `json:"frequency" validate:"required,oneof=daily weekly monthly"`
	ScheduleTime string     `json:"schedule_time" validate:"required,len=5"`
	Timezone     string     `json:"timezone,omitempty"`
	DayOfWeek    *int       `json:"day_of_week,omitempty" validate:"omitempty,gte=0,lte=6"`
	DayOfMonth   *int       `json:"day_of_month,omitempty" validate:"omitempty,gte=1,lte=31"`
	ReportTypes  []string   `json:"report_types" validate:"dive,oneof=sales purchases expenses"`
	IsActive     bool       `json:"is_active"`
	LastRunAt    *time.Time `json:"last_run_at,omitempty"`
}

type Employee struct {
	Meta
	Name          string          `json:"name" validate:"required,max=120"`
	Phone         string          `json:"phone,omitempty"`
	Role          string          `json:"role,omitempty"`
	MonthlySalary decimal.Decimal `json:"monthly_salary"`
	IsActive      bool            `json:"is_active"`
}

type SalaryPayment struct {
	Meta
	EmployeeID  int64           `json:"employee_id" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
	PayDate     Date            `json:"pay_date"`
	PeriodMonth string          `json:"period_month" validate:"required,len=7"`
	Method      string          `json:"method,omitempty"`
	Notes       string          `json:"notes,omitempty"`
}

type EmployeeGoodsPurchase struct {
	Meta
	EmployeeID       int64           `json:"employee_id" validate:"required"`
	ProductID        *int64          `json:"product_id,omitempty"`
	Description      string          `json:"description" validate:"required"`
	Quantity         int             `json:"quantity" validate:"gt=0"`
	Amount           decimal.Decimal `json:"amount"`
	PurchaseDate     Date            `json:"purchase_date"`
	DeductFromSalary bool            `json:"deduct_from_salary"`
}

type BusinessSettings struct {
	Meta
	BusinessName      string          `json:"business_name" validate:"required,max=160"`
	GSTIN             string          `json:"gstin,omitempty" validate:"omitempty,len=15"`
	Address           string          `json:"address,omitempty"`
	Phone             string          `json:"phone,omitempty"`
	Currency          string          `json:"currency"`
	DefaultGSTRate    decimal.Decimal `json:"default_gst_rate"`
	LowStockThreshold int             `json:"low_stock_threshold" validate:"gte=0"`
	InvoicePrefix     string          `json:"invoice_prefix,omitempty"`
	ReceiptFooter     string          `json:"receipt_footer,omitempty"`
}

type Actor struct {
	Username  string
	Role      string
	CompanyID int64
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	CompanyID   int64  `json:"company_id"`
	ExpiresAt   string `json:"expires_at"`
}

// UserAccount is an internal persistence model for auth credentials. It is
// kept in the local store only and never mirrored.
type UserAccount struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Password  string    `json:"password"`
	Role      string    `json:"role"`
	CompanyID int64     `json:"company_id"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type SyncStatusResponse struct {
	CloudAvailable bool   `json:"cloud_available"`
	Online         bool   `json:"online"`
	Mirror         string `json:"mirror"`
	LocalStore     string `json:"local_store"`
}

type PendingRecord struct {
	Store      string     `json:"store"`
	ID         int64      `json:"id"`
	SyncStatus SyncStatus `json:"sync_status"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

type ReconcileResult struct {
	Store  string `json:"store"`
	Pushed int    `json:"pushed"`
	Pulled int    `json:"pulled"`
	Failed int    `json:"failed"`
}
