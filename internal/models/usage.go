package models

import "time"

// UsageRecord is one priced unit of model consumption. Records are
// append-only and never mutated after creation.
type UsageRecord struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Timestamp    time.Time `gorm:"not null;index" json:"timestamp"`
	Provider     string    `gorm:"not null;size:64;index" json:"provider"`
	Model        string    `gorm:"not null;size:128;index" json:"model"`
	InputTokens  int       `gorm:"not null" json:"input_tokens"`
	OutputTokens int       `gorm:"not null" json:"output_tokens"`
	TotalTokens  int       `gorm:"not null" json:"total_tokens"`
	InputCost    float64   `gorm:"not null" json:"input_cost"`
	OutputCost   float64   `gorm:"not null" json:"output_cost"`
	TotalCost    float64   `gorm:"not null" json:"total_cost"`
	Subject      string    `gorm:"size:255;index" json:"subject,omitempty"`
	Agent        string    `gorm:"size:128;index" json:"agent,omitempty"`
	Operation    string    `gorm:"size:128" json:"operation,omitempty"`
	RequestID    string    `gorm:"size:64" json:"request_id,omitempty"`
	Metadata     string    `gorm:"type:text" json:"metadata,omitempty"`
}

func (UsageRecord) TableName() string {
	return "usage_records"
}

type RecordUsageParams struct {
	Provider     string
	Model        string
	InputTokens  int
	OutputTokens int
	Subject      string
	Agent        string
	Operation    string
	RequestID    string
	Metadata     string
}

// UsageBreakdown aggregates a slice of the ledger along one dimension.
type UsageBreakdown struct {
	Requests     int     `json:"requests"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TotalTokens  int     `json:"total_tokens"`
	Cost         float64 `json:"cost"`
}

type UsageStats struct {
	TotalRequests          int                       `json:"total_requests"`
	TotalInputTokens       int                       `json:"total_input_tokens"`
	TotalOutputTokens      int                       `json:"total_output_tokens"`
	TotalTokens            int                       `json:"total_tokens"`
	TotalCost              float64                   `json:"total_cost"`
	AvgTokensPerRequest    float64                   `json:"average_tokens_per_request"`
	AvgCostPerRequest      float64                   `json:"average_cost_per_request"`
	ByModel                map[string]UsageBreakdown `json:"by_model"`
	BySubject              map[string]UsageBreakdown `json:"by_subject"`
	ByAgent                map[string]UsageBreakdown `json:"by_agent"`
}

type BudgetStatus struct {
	Enabled     bool    `json:"budget_enabled"`
	Limit       float64 `json:"budget_limit,omitempty"`
	TotalCost   float64 `json:"total_cost"`
	Remaining   float64 `json:"remaining,omitempty"`
	PercentUsed float64 `json:"percent_used,omitempty"`
	Exceeded    bool    `json:"exceeded"`
}
