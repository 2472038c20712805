package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	mW "github.com/lumen/credits/internal/middleware"
	"github.com/lumen/credits/internal/services"
	"github.com/lumen/credits/internal/store"
)

const maxLogLimit = 200

// AmountRequest is the body of consume and replenish calls.
// @Description Credit amount request
type AmountRequest struct {
	Amount      int64  `json:"amount" example:"30"`                                       // Credits to move, must be positive
	Description string `json:"description" validate:"max=500" example:"Essay correction"` // Stored verbatim in the audit log
}

// ToolRequest is the optional body of a tool charge.
// @Description Tool usage request
type ToolRequest struct {
	Description string `json:"description" validate:"max=500" example:"Legal essay review"`
}

// ProvisionRequest opens a credit account.
// @Description Account provisioning request
type ProvisionRequest struct {
	AccountID  string `json:"accountId" validate:"required,max=128" example:"student-42"`
	AccessDays int64  `json:"accessDays" validate:"gte=0" example:"45"`
}

type CreditHandler struct {
	service   *services.CreditService
	limiter   *services.RateLimiter
	validator *services.ValidationHelper
}

func NewCreditHandler(service *services.CreditService, limiter *services.RateLimiter) *CreditHandler {
	return &CreditHandler{
		service:   service,
		limiter:   limiter,
		validator: services.NewValidationHelper(),
	}
}

// Consume debits credits for a metered action
// @Summary Consume credits
// @Description Debit the daily allowance first, then the wallet
// @Tags credits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param accountId path string true "Account ID"
// @Param request body AmountRequest true "Amount to consume"
// @Success 200 {object} models.ConsumeResult
// @Failure 400 {object} services.ErrorResponse
// @Failure 402 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Failure 429 {object} services.ErrorResponse
// @Router /credits/{accountId}/consume [post]
func (h *CreditHandler) Consume(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountId")
	if !h.authorize(w, r, accountID, false) {
		return
	}

	var req AmountRequest
	if !h.decode(w, r, &req) {
		return
	}
	if !h.allow(w, r, accountID) {
		return
	}

	result, err := h.service.Consume(r.Context(), accountID, req.Amount, req.Description)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ConsumeTool charges the configured cost of a tool
// @Summary Consume credits for a tool
// @Description Look up the tool's cost and debit it; free tools debit nothing
// @Tags credits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param accountId path string true "Account ID"
// @Param toolId path string true "Tool ID"
// @Param request body ToolRequest false "Usage description"
// @Success 200 {object} models.ConsumeResult
// @Failure 402 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /credits/{accountId}/tools/{toolId} [post]
func (h *CreditHandler) ConsumeTool(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountId")
	toolID := chi.URLParam(r, "toolId")
	if !h.authorize(w, r, accountID, false) {
		return
	}

	var req ToolRequest
	if !h.decodeOptional(w, r, &req) {
		return
	}
	if !h.allow(w, r, accountID) {
		return
	}

	result, err := h.service.ConsumeTool(r.Context(), accountID, toolID, req.Description)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Replenish credits the wallet
// @Summary Replenish wallet
// @Description Add purchased credits to the wallet balance
// @Tags credits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param accountId path string true "Account ID"
// @Param request body AmountRequest true "Amount to credit"
// @Success 200 {object} models.ReplenishResult
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /credits/{accountId}/replenish [post]
func (h *CreditHandler) Replenish(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountId")
	if !h.authorize(w, r, accountID, true) {
		return
	}

	var req AmountRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.service.Replenish(r.Context(), accountID, req.Amount, req.Description)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetBalance returns the wallet balance
// @Summary Get wallet balance
// @Tags credits
// @Produce json
// @Security BearerAuth
// @Param accountId path string true "Account ID"
// @Success 200 {object} object{accountId=string,walletBalance=int64}
// @Failure 404 {object} services.ErrorResponse
// @Router /credits/{accountId}/balance [get]
func (h *CreditHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountId")
	if !h.authorize(w, r, accountID, false) {
		return
	}

	balance, err := h.service.GetBalance(r.Context(), accountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"accountId":     accountID,
		"walletBalance": balance,
	})
}

// GetAccount returns the full credit account
// @Summary Get credit account
// @Tags credits
// @Produce json
// @Security BearerAuth
// @Param accountId path string true "Account ID"
// @Success 200 {object} models.CreditAccount
// @Failure 404 {object} services.ErrorResponse
// @Router /credits/{accountId} [get]
func (h *CreditHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountId")
	if !h.authorize(w, r, accountID, false) {
		return
	}

	account, err := h.service.GetAccount(r.Context(), accountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// GetLogs returns the credit history
// @Summary List credit logs
// @Tags credits
// @Produce json
// @Security BearerAuth
// @Param accountId path string true "Account ID"
// @Param limit query int false "Number of entries (default: 50, max: 200)"
// @Success 200 {object} object{logs=[]models.CreditLog,count=int}
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /credits/{accountId}/logs [get]
func (h *CreditHandler) GetLogs(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountId")
	if !h.authorize(w, r, accountID, false) {
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 || parsed > maxLogLimit {
			services.SendErrorResponse(w, "limit must be between 1 and 200", http.StatusBadRequest, nil)
			return
		}
		limit = parsed
	}

	logs, err := h.service.History(r.Context(), accountID, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"logs":  logs,
		"count": len(logs),
	})
}

// ProvisionAccount opens a credit account
// @Summary Provision credit account
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ProvisionRequest true "Account to open"
// @Success 201 {object} models.CreditAccount
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /admin/accounts [post]
func (h *CreditHandler) ProvisionAccount(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, "", true) {
		return
	}

	var req ProvisionRequest
	if !h.decode(w, r, &req) {
		return
	}

	account, err := h.service.ProvisionAccount(r.Context(), req.AccountID, req.AccessDays)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

// authorize lets admins through and restricts everyone else to their own
// account. adminOnly operations reject non-admins outright.
func (h *CreditHandler) authorize(w http.ResponseWriter, r *http.Request, accountID string, adminOnly bool) bool {
	ctx := r.Context()
	if mW.IsAdmin(ctx) {
		return true
	}
	if !adminOnly && accountID != "" && mW.UserID(ctx) == accountID {
		return true
	}
	log.Printf("[HTTP] Forbidden %s %s for user %q", r.Method, r.URL.Path, mW.UserID(ctx))
	services.SendErrorResponse(w, "Forbidden", http.StatusForbidden, nil)
	return false
}

func (h *CreditHandler) allow(w http.ResponseWriter, r *http.Request, accountID string) bool {
	ok, err := h.limiter.Allow(r.Context(), accountID)
	if err != nil {
		log.Printf("[HTTP] Rate limiter unavailable for %s: %v", accountID, err)
	}
	if !ok {
		w.Header().Set("Retry-After", "60")
		services.WriteErrorResponse(w, http.StatusTooManyRequests, services.ErrorResponse{
			Error: "Too many requests",
			Code:  "rate_limited",
		})
		return false
	}
	return true
}

func (h *CreditHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	return h.decodeBody(w, r, dst, false)
}

// decodeOptional accepts an empty body, whatever its framing, and leaves
// dst at its zero value.
func (h *CreditHandler) decodeOptional(w http.ResponseWriter, r *http.Request, dst any) bool {
	return h.decodeBody(w, r, dst, true)
}

func (h *CreditHandler) decodeBody(w http.ResponseWriter, r *http.Request, dst any, optional bool) bool {
	if r.Body == nil || r.Body == http.NoBody {
		if optional {
			return true
		}
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}

	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return true
		}
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return false
	}
	if err := h.validator.ValidateStruct(dst); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return false
	}
	return true
}

func writeServiceError(w http.ResponseWriter, err error) {
	var insufficient *services.InsufficientBalanceError

	switch {
	case errors.Is(err, services.ErrInvalidAmount):
		services.WriteErrorResponse(w, http.StatusBadRequest, services.ErrorResponse{
			Error: "Amount must be a positive integer",
			Code:  "invalid_amount",
		})
	case errors.Is(err, services.ErrBalanceOverflow):
		services.WriteErrorResponse(w, http.StatusBadRequest, services.ErrorResponse{
			Error: "Amount would overflow the wallet balance",
			Code:  "balance_overflow",
		})
	case errors.As(err, &insufficient):
		services.WriteErrorResponse(w, http.StatusPaymentRequired, services.ErrorResponse{
			Error:     "Insufficient balance, top up your wallet",
			Code:      "insufficient_balance",
			Shortfall: insufficient.Shortfall,
		})
	case errors.Is(err, services.ErrAccountNotFound):
		services.WriteErrorResponse(w, http.StatusNotFound, services.ErrorResponse{
			Error: "Account not found",
			Code:  "not_found",
		})
	case errors.Is(err, services.ErrUnknownTool):
		services.WriteErrorResponse(w, http.StatusNotFound, services.ErrorResponse{
			Error: "Tool not found",
			Code:  "unknown_tool",
		})
	case services.IsRetryable(err):
		w.Header().Set("Retry-After", "1")
		services.WriteErrorResponse(w, http.StatusConflict, services.ErrorResponse{
			Error: "Account is busy, retry shortly",
			Code:  "transient_conflict",
		})
	case errors.Is(err, store.ErrAccountExists):
		services.WriteErrorResponse(w, http.StatusConflict, services.ErrorResponse{
			Error: "Account already exists",
			Code:  "account_exists",
		})
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		services.WriteErrorResponse(w, http.StatusGatewayTimeout, services.ErrorResponse{
			Error: "Request cancelled before commit",
			Code:  "timeout",
		})
	default:
		log.Printf("[HTTP] Unexpected credit error: %v", err)
		services.SendErrorResponse(w, "An Internal Error Occurred", http.StatusInternalServerError, nil)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
