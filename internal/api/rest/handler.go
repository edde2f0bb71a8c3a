package rest

import (
	"context"
	"fmt"
	"math/big"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/feral-file/ff-vesting/internal/api/rest/dto"
	"github.com/feral-file/ff-vesting/internal/domain"
	"github.com/feral-file/ff-vesting/internal/engine"
	"github.com/feral-file/ff-vesting/internal/store"
)

// Executor defines the engine operations the REST layer drives
type Executor interface {
	Deposit(ctx context.Context, req *domain.DepositRequest) error
	CreateMany(ctx context.Context, reqs []*domain.DepositRequest) []engine.DepositResult
	Release(ctx context.Context, beneficiary, token domain.Address) (*big.Int, error)
	ReleaseMany(ctx context.Context, beneficiary domain.Address, tokens []domain.Address) []engine.ReleaseResult
	Releasable(ctx context.Context, beneficiary, token domain.Address) (*big.Int, error)
	Schedules(ctx context.Context, beneficiary, token domain.Address) ([]*domain.ScheduleView, error)
}

// Handler defines the interface for REST API handlers
type Handler interface {
	// CreateDeposit locks tokens into a new vesting schedule
	// POST /api/v1/deposits
	CreateDeposit(c *gin.Context)

	// CreateDeposits applies a batch of deposits, best-effort per element
	// POST /api/v1/deposits/batch
	CreateDeposits(c *gin.Context)

	// CreateRelease pays out the vested portion for a (beneficiary, token) pair
	// POST /api/v1/releases
	CreateRelease(c *gin.Context)

	// CreateReleases releases several tokens for one beneficiary, best-effort per element
	// POST /api/v1/releases/batch
	CreateReleases(c *gin.Context)

	// GetReleasable previews what a release would pay out right now
	// GET /api/v1/beneficiaries/:address/releasable?token=<token>
	GetReleasable(c *gin.Context)

	// ListSchedules returns a beneficiary's schedules with computed amounts
	// GET /api/v1/beneficiaries/:address/schedules?token=<token>
	ListSchedules(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	executor Executor
	store    store.Store
}

// NewHandler creates a new REST API handler
func NewHandler(executor Executor, st store.Store) Handler {
	return &handler{
		executor: executor,
		store:    st,
	}
}

// CreateDeposit locks tokens into a new vesting schedule
func (h *handler) CreateDeposit(c *gin.Context) {
	var req dto.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	domainReq, err := req.ToDomain()
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	if err := h.executor.Deposit(c.Request.Context(), domainReq); err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.DepositResponse{
		Beneficiary: domainReq.Beneficiary.String(),
		Token:       domainReq.Token.String(),
		Amount:      domainReq.Amount.String(),
	})
}

// CreateDeposits applies a batch of deposits sequentially in list order. Each
// element commits or fails on its own; the response reports per-element
// outcomes.
func (h *handler) CreateDeposits(c *gin.Context) {
	var req dto.BatchDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	results := make([]dto.BatchDepositResult, 0, len(req.Deposits))
	var domainReqs []*domain.DepositRequest
	// Elements that fail conversion are reported without reaching the engine
	indexByReq := make(map[*domain.DepositRequest]int)
	for i, deposit := range req.Deposits {
		domainReq, err := deposit.ToDomain()
		results = append(results, dto.BatchDepositResult{
			Beneficiary: deposit.Beneficiary,
			Token:       deposit.Token,
			Amount:      deposit.Amount,
		})
		if err != nil {
			results[i].Error = err.Error()
			continue
		}
		indexByReq[domainReq] = i
		domainReqs = append(domainReqs, domainReq)
	}

	for _, result := range h.executor.CreateMany(c.Request.Context(), domainReqs) {
		i := indexByReq[result.Request]
		if result.Err != nil {
			results[i].Error = result.Err.Error()
			continue
		}
		results[i].Success = true
	}

	c.JSON(http.StatusMultiStatus, dto.BatchDepositResponse{Results: results})
}

// CreateRelease pays out the vested portion for a (beneficiary, token) pair
func (h *handler) CreateRelease(c *gin.Context) {
	var req dto.ReleaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	beneficiary, err := domain.NewAddress(req.Beneficiary)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}
	token, err := domain.NewAddress(req.Token)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	amount, err := h.executor.Release(c.Request.Context(), beneficiary, token)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ReleaseResponse{
		Beneficiary: beneficiary.String(),
		Token:       token.String(),
		Amount:      amount.String(),
	})
}

// CreateReleases releases each listed token for the beneficiary, best-effort
// per element
func (h *handler) CreateReleases(c *gin.Context) {
	var req dto.BatchReleaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	beneficiary, err := domain.NewAddress(req.Beneficiary)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	results := make([]dto.BatchReleaseResult, 0, len(req.Tokens))
	var tokens []domain.Address
	tokenIndex := make(map[domain.Address]int)
	for i, raw := range req.Tokens {
		token, err := domain.NewAddress(raw)
		results = append(results, dto.BatchReleaseResult{Token: raw})
		if err != nil {
			results[i].Error = err.Error()
			continue
		}
		results[i].Token = token.String()
		tokenIndex[token] = i
		tokens = append(tokens, token)
	}

	for _, result := range h.executor.ReleaseMany(c.Request.Context(), beneficiary, tokens) {
		i := tokenIndex[result.Token]
		if result.Err != nil {
			results[i].Error = result.Err.Error()
			continue
		}
		results[i].Success = true
		results[i].Amount = result.Amount.String()
	}

	c.JSON(http.StatusMultiStatus, dto.BatchReleaseResponse{
		Beneficiary: beneficiary.String(),
		Results:     results,
	})
}

// GetReleasable previews what a release would pay out right now
func (h *handler) GetReleasable(c *gin.Context) {
	beneficiary, err := domain.NewAddress(c.Param("address"))
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}
	token, err := domain.NewAddress(c.Query("token"))
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	amount, err := h.executor.Releasable(c.Request.Context(), beneficiary, token)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ReleasableResponse{
		Beneficiary: beneficiary.String(),
		Token:       token.String(),
		Amount:      amount.String(),
	})
}

// ListSchedules returns a beneficiary's schedules with computed amounts
func (h *handler) ListSchedules(c *gin.Context) {
	beneficiary, err := domain.NewAddress(c.Param("address"))
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	var token domain.Address
	if raw := c.Query("token"); raw != "" {
		token, err = domain.NewAddress(raw)
		if err != nil {
			respondValidationError(c, err.Error())
			return
		}
	}

	views, err := h.executor.Schedules(c.Request.Context(), beneficiary, token)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	schedules := make([]dto.Schedule, 0, len(views))
	totalLocked := new(big.Int)
	totalReleased := new(big.Int)
	for _, view := range views {
		schedules = append(schedules, dto.ScheduleFromView(view))
		totalLocked.Add(totalLocked, view.TotalAmount)
		totalReleased.Add(totalReleased, view.ReleasedAmount)
	}

	c.JSON(http.StatusOK, dto.ScheduleListResponse{
		Beneficiary:   beneficiary.String(),
		TotalLocked:   totalLocked.String(),
		TotalReleased: totalReleased.String(),
		Schedules:     schedules,
	})
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	if h.store != nil {
		if err := h.store.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "degraded",
				"service": "ff-vesting-api",
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "ff-vesting-api",
	})
}
