// Package dto defines the REST API request and response shapes. Amounts cross
// the wire as decimal strings to preserve wei precision.
package dto

import (
	"errors"
	"fmt"
	"time"

	"github.com/feral-file/ff-vesting/internal/domain"
)

// DepositRequest is the body of POST /api/v1/deposits. Duration carries no
// required binding: zero means the full amount vests at start, so the domain
// validation in ToDomain is the gate, not gin.
type DepositRequest struct {
	Beneficiary  string    `json:"beneficiary" binding:"required"`
	Depositor    string    `json:"depositor" binding:"required"`
	Token        string    `json:"token" binding:"required"`
	StartTime    time.Time `json:"start_time" binding:"required"`
	Duration     uint64    `json:"duration"`
	DurationUnit string    `json:"duration_unit" binding:"required"`
	Amount       string    `json:"amount" binding:"required"`
}

// ToDomain validates the request and converts it to the engine's input type
func (r *DepositRequest) ToDomain() (*domain.DepositRequest, error) {
	beneficiary, err := domain.NewAddress(r.Beneficiary)
	if err != nil {
		return nil, fmt.Errorf("beneficiary: %w", err)
	}
	depositor, err := domain.NewAddress(r.Depositor)
	if err != nil {
		return nil, fmt.Errorf("depositor: %w", err)
	}
	token, err := domain.NewAddress(r.Token)
	if err != nil {
		return nil, fmt.Errorf("token: %w", err)
	}
	amount, err := domain.ParseAmount(r.Amount)
	if err != nil {
		return nil, fmt.Errorf("amount: %w", err)
	}

	req := &domain.DepositRequest{
		Beneficiary:  beneficiary,
		Depositor:    depositor,
		Token:        token,
		StartTime:    r.StartTime.UTC(),
		Duration:     r.Duration,
		DurationUnit: domain.DurationUnit(r.DurationUnit),
		Amount:       amount,
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	return req, nil
}

// BatchDepositRequest is the body of POST /api/v1/deposits/batch
type BatchDepositRequest struct {
	Deposits []DepositRequest `json:"deposits" binding:"required"`
}

// Validate checks the batch has at least one element
func (r *BatchDepositRequest) Validate() error {
	if len(r.Deposits) == 0 {
		return errors.New("deposits must not be empty")
	}
	return nil
}

// ReleaseRequest is the body of POST /api/v1/releases
type ReleaseRequest struct {
	Beneficiary string `json:"beneficiary" binding:"required"`
	Token       string `json:"token" binding:"required"`
}

// BatchReleaseRequest is the body of POST /api/v1/releases/batch
type BatchReleaseRequest struct {
	Beneficiary string   `json:"beneficiary" binding:"required"`
	Tokens      []string `json:"tokens" binding:"required"`
}

// Validate checks the batch has at least one token
func (r *BatchReleaseRequest) Validate() error {
	if len(r.Tokens) == 0 {
		return errors.New("tokens must not be empty")
	}
	return nil
}

// DepositResponse reports one accepted deposit
type DepositResponse struct {
	Beneficiary string `json:"beneficiary"`
	Token       string `json:"token"`
	Amount      string `json:"amount"`
}

// BatchDepositResult reports the outcome of one batch deposit element
type BatchDepositResult struct {
	Beneficiary string `json:"beneficiary"`
	Token       string `json:"token"`
	Amount      string `json:"amount"`
	Success     bool   `json:"success"`
	Error       string `json:"error,omitempty"`
}

// BatchDepositResponse is the response of POST /api/v1/deposits/batch
type BatchDepositResponse struct {
	Results []BatchDepositResult `json:"results"`
}

// ReleaseResponse reports a completed release
type ReleaseResponse struct {
	Beneficiary string `json:"beneficiary"`
	Token       string `json:"token"`
	Amount      string `json:"amount"`
}

// BatchReleaseResult reports the outcome of one batch release element
type BatchReleaseResult struct {
	Token   string `json:"token"`
	Amount  string `json:"amount,omitempty"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// BatchReleaseResponse is the response of POST /api/v1/releases/batch
type BatchReleaseResponse struct {
	Beneficiary string               `json:"beneficiary"`
	Results     []BatchReleaseResult `json:"results"`
}

// ReleasableResponse is the response of GET /api/v1/beneficiaries/:address/releasable
type ReleasableResponse struct {
	Beneficiary string `json:"beneficiary"`
	Token       string `json:"token"`
	Amount      string `json:"amount"`
}

// Schedule is the read-only projection of one vesting schedule
type Schedule struct {
	Token            string    `json:"token"`
	TotalAmount      string    `json:"total_amount"`
	ReleasedAmount   string    `json:"released_amount"`
	VestedAmount     string    `json:"vested_amount"`
	ReleasableAmount string    `json:"releasable_amount"`
	StartTime        time.Time `json:"start_time"`
	Duration         uint64    `json:"duration,omitempty"`
	DurationUnit     string    `json:"duration_unit,omitempty"`
}

// ScheduleListResponse is the response of GET /api/v1/beneficiaries/:address/schedules.
// TotalLocked and TotalReleased sum over the listed schedules.
type ScheduleListResponse struct {
	Beneficiary   string     `json:"beneficiary"`
	TotalLocked   string     `json:"total_locked"`
	TotalReleased string     `json:"total_released"`
	Schedules     []Schedule `json:"schedules"`
}

// ScheduleFromView converts a domain view to its wire shape
func ScheduleFromView(view *domain.ScheduleView) Schedule {
	return Schedule{
		Token:            view.Token.String(),
		TotalAmount:      view.TotalAmount.String(),
		ReleasedAmount:   view.ReleasedAmount.String(),
		VestedAmount:     view.VestedAmount.String(),
		ReleasableAmount: view.ReleasableAmount.String(),
		StartTime:        view.StartTime,
		Duration:         view.Duration,
		DurationUnit:     string(view.DurationUnit),
	}
}
