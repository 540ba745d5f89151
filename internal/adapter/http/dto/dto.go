package dto

// ItemFlags marks the tax categories of a scanned item.
type ItemFlags struct {
	IsAlcohol bool `json:"is_alcohol"`
	IsFood    bool `json:"is_food"`
}

// ScanRequest is the request body for a gateway scan.
type ScanRequest struct {
	PassToken   string    `json:"pass_token" binding:"required,max=128"`
	GatewayID   string    `json:"gateway_id" binding:"required,max=64,safe_id"`
	VenueID     string    `json:"venue_id" binding:"omitempty,max=64,safe_id"`
	Tier        int       `json:"tier" binding:"omitempty,min=1,max=3"`
	RequestID   string    `json:"request_id" binding:"omitempty,max=100,safe_id"`
	AmountCents int64     `json:"amount_cents" binding:"omitempty,gte=0"`
	Flags       ItemFlags `json:"flags"`
}

// ScanResponse is the decision envelope returned for every scan. The HTTP
// status is 200 for both admits and denials; callers branch on Status.
type ScanResponse struct {
	Status           string               `json:"status"`
	Reason           string               `json:"reason,omitempty"`
	Message          string               `json:"message"`
	ReceiptID        string               `json:"receipt_id"`
	VerificationTier int                  `json:"verification_tier,omitempty"`
	IdentityVerified bool                 `json:"identity_verified"`
	Entry            *LedgerEntryResponse `json:"entry,omitempty"`
	Timestamp        string               `json:"timestamp"`
}

// SplitResponse is the per-party revenue breakdown of an entry.
type SplitResponse struct {
	ValidCents     int64 `json:"valid_cents"`
	VendorCents    int64 `json:"vendor_cents"`
	PoolCents      int64 `json:"pool_cents"`
	PromoterCents  int64 `json:"promoter_cents"`
	ExecutiveCents int64 `json:"executive_cents"`
}

// LedgerEntryResponse is the response body for ledger entries.
type LedgerEntryResponse struct {
	ID               string        `json:"id"`
	WalletID         string        `json:"wallet_id"`
	VenueID          string        `json:"venue_id"`
	StationID        string        `json:"station_id,omitempty"`
	Type             string        `json:"type"`
	Status           string        `json:"status"`
	ItemAmountCents  int64         `json:"item_amount_cents"`
	TaxCents         int64         `json:"tax_cents"`
	PlatformFeeCents int64         `json:"platform_fee_cents"`
	Split            SplitResponse `json:"split_breakdown"`
	PreBalanceCents  int64         `json:"pre_balance_cents"`
	PostBalanceCents int64         `json:"post_balance_cents"`
	OriginalEntryID  *string       `json:"original_entry_id,omitempty"`
	CreatedAt        string        `json:"created_at"`
}

// RefundRequest is the request body for refund processing.
type RefundRequest struct {
	OriginalEntryID string `json:"original_entry_id" binding:"required,uuid"`
	Amount          *int64 `json:"amount,omitempty" binding:"omitempty,gt=0"`
	Reason          string `json:"reason" binding:"required,max=255"`
}

// TopupRequest is the request body for wallet topup.
type TopupRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

// CreateWalletRequest is the request body for wallet creation.
type CreateWalletRequest struct {
	UserID string `json:"user_id" binding:"required,uuid"`
}

// WalletResponse is the response body for wallet creation.
type WalletResponse struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	BalanceCents int64  `json:"balance_cents"`
	CreatedAt    string `json:"created_at"`
}

// WalletBalanceResponse is the response for balance query.
type WalletBalanceResponse struct {
	WalletID     string `json:"wallet_id"`
	BalanceCents int64  `json:"balance_cents"`
}

// CreateRevenueProfileRequest is the request body for revenue profile
// creation. The 100%-sum invariant is enforced by the service, not here.
type CreateRevenueProfileRequest struct {
	Name         string  `json:"name" binding:"required,min=1,max=100"`
	ValidPct     float64 `json:"valid_pct" binding:"gte=0,lte=100"`
	VendorPct    float64 `json:"vendor_pct" binding:"gte=0,lte=100"`
	PoolPct      float64 `json:"pool_pct" binding:"gte=0,lte=100"`
	PromoterPct  float64 `json:"promoter_pct" binding:"gte=0,lte=100"`
	ExecutivePct float64 `json:"executive_pct" binding:"gte=0,lte=100"`
}

// RevenueProfileResponse is the response body for revenue profiles.
type RevenueProfileResponse struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	ValidPct     float64 `json:"valid_pct"`
	VendorPct    float64 `json:"vendor_pct"`
	PoolPct      float64 `json:"pool_pct"`
	PromoterPct  float64 `json:"promoter_pct"`
	ExecutivePct float64 `json:"executive_pct"`
	CreatedAt    string  `json:"created_at"`
}

// CreateTaxProfileRequest is the request body for tax profile creation.
type CreateTaxProfileRequest struct {
	Name          string  `json:"name" binding:"required,min=1,max=100"`
	StateTaxPct   float64 `json:"state_tax_pct" binding:"gte=0,lte=100"`
	LocalTaxPct   float64 `json:"local_tax_pct" binding:"gte=0,lte=100"`
	AlcoholTaxPct float64 `json:"alcohol_tax_pct" binding:"gte=0,lte=100"`
	FoodTaxPct    float64 `json:"food_tax_pct" binding:"gte=0,lte=100"`
}

// TaxProfileResponse is the response body for tax profiles.
type TaxProfileResponse struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	StateTaxPct   float64 `json:"state_tax_pct"`
	LocalTaxPct   float64 `json:"local_tax_pct"`
	AlcoholTaxPct float64 `json:"alcohol_tax_pct"`
	FoodTaxPct    float64 `json:"food_tax_pct"`
	CreatedAt     string  `json:"created_at"`
}

// LedgerListResponse wraps a paginated ledger entry list.
type LedgerListResponse struct {
	Items      []LedgerEntryResponse `json:"items"`
	Total      int64                 `json:"total"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"page_size"`
	TotalPages int                   `json:"total_pages"`
}

// LedgerStatsResponse is the response for venue statistics.
type LedgerStatsResponse struct {
	TotalEntries     int64 `json:"total_entries"`
	Admissions       int64 `json:"admissions"`
	Purchases        int64 `json:"purchases"`
	Refunds          int64 `json:"refunds"`
	GrossCents       int64 `json:"gross_cents"`
	TaxCents         int64 `json:"tax_cents"`
	PlatformFeeCents int64 `json:"platform_fee_cents"`
	RefundedCents    int64 `json:"refunded_cents"`
}
