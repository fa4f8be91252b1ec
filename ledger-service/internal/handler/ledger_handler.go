package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/eaglebank/ledger/shared/cqrs"
	"github.com/eaglebank/ledger/shared/middleware"
	"github.com/eaglebank/ledger/shared/models"
	"github.com/eaglebank/ledger/shared/money"
	"github.com/eaglebank/ledger/shared/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// LedgerCommander defines the write-side operations used by LedgerHandler.
type LedgerCommander interface {
	AuthenticateOrRegister(context.Context, cqrs.AuthenticateCommand) (*models.AuthOutcome, error)
	Transfer(context.Context, cqrs.TransferCommand) (*models.TransferOutcome, error)
}

// LedgerQuerier defines the read-side operations used by LedgerHandler.
type LedgerQuerier interface {
	ListAccounts(context.Context, cqrs.ListAccountsQuery) ([]models.AccountListing, error)
}

// TokenIssuer issues a bearer token for an authenticated account.
type TokenIssuer interface {
	Issue(accountName string) (string, error)
}

type LedgerHandler struct {
	commands LedgerCommander
	queries  LedgerQuerier
	tokens   TokenIssuer
	opts     Options
	logger   *slog.Logger
}

// Options tune how outcomes are rendered and guarded.
type Options struct {
	// UniformAuthResponses renders registration and login identically so the
	// response does not reveal whether the name already existed.
	UniformAuthResponses bool
	// RequireTransferAuth makes Transfer demand that the authenticated
	// account (set by middleware.AuthMiddleware) is the sender.
	RequireTransferAuth bool
}

type AuthenticateRequest struct {
	Name        string           `json:"name" validate:"required,max=64"`
	PinNumber   string           `json:"pin_number" validate:"required,max=72"`
	BankBalance *decimal.Decimal `json:"bank_balance"`
}

type AuthenticateResponse struct {
	Message     string `json:"message"`
	BankBalance string `json:"bank_balance"`
	Token       string `json:"token,omitempty"`
}

type TransferRequest struct {
	Sender        string           `json:"sender" validate:"required,max=64"`
	RecipientName string           `json:"recipient_name" validate:"required,max=64"`
	Amount        *decimal.Decimal `json:"amount" validate:"required"`
}

type TransferResponse struct {
	Message          string `json:"message"`
	SenderBalance    string `json:"sender_balance"`
	RecipientBalance string `json:"recipient_balance"`
}

// NewLedgerHandler builds the handler. tokens may be nil, in which case no
// token is returned from Authenticate.
func NewLedgerHandler(commands LedgerCommander, queries LedgerQuerier, tokens TokenIssuer, opts Options, logger *slog.Logger) *LedgerHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LedgerHandler{commands: commands, queries: queries, tokens: tokens, opts: opts, logger: logger}
}

func (h *LedgerHandler) Welcome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Welcome to the Eagle ledger service!"})
}

func (h *LedgerHandler) Authenticate(c *gin.Context) {
	var req AuthenticateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}
	// validator's max counts runes; bcrypt's limit is bytes.
	if len(req.PinNumber) > utils.MaxPinBytes {
		middleware.RespondWithValidationError(c, []middleware.ValidationError{{
			Field:   "PinNumber",
			Message: "Value is too long",
			Type:    "max",
		}})
		return
	}

	cmd := cqrs.AuthenticateCommand{Name: req.Name, Pin: req.PinNumber}
	if req.BankBalance != nil {
		initial, err := money.FromDecimal(*req.BankBalance)
		if err != nil {
			middleware.RespondWithError(c, http.StatusBadRequest, "Invalid initial balance")
			return
		}
		cmd.InitialBalance = &initial
	}

	outcome, err := h.commands.AuthenticateOrRegister(c.Request.Context(), cmd)
	if err != nil {
		h.respondWithLedgerError(c, err, "", "")
		return
	}

	resp := AuthenticateResponse{
		Message:     h.authMessage(outcome, req.Name),
		BankBalance: outcome.Balance.String(),
	}
	if h.tokens != nil {
		token, err := h.tokens.Issue(outcome.Name)
		if err != nil {
			h.logger.Error("Failed to issue token", "name", outcome.Name, "error", err)
			middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to issue token")
			return
		}
		resp.Token = token
	}
	c.JSON(http.StatusOK, resp)
}

// authMessage echoes the name as the caller typed it, not the stored casing.
func (h *LedgerHandler) authMessage(o *models.AuthOutcome, requestName string) string {
	if h.opts.UniformAuthResponses {
		return fmt.Sprintf("Authenticated as %s.", requestName)
	}
	if o.Status == models.AuthRegistered {
		return fmt.Sprintf("User '%s' registered and authenticated with an initial balance of %s.", requestName, o.Balance)
	}
	return fmt.Sprintf("Welcome back, %s!", requestName)
}

func (h *LedgerHandler) ListAccounts(c *gin.Context) {
	listings, err := h.queries.ListAccounts(c.Request.Context(), cqrs.ListAccountsQuery{})
	if err != nil {
		h.logger.Error("Failed to list accounts", "error", err)
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to list accounts")
		return
	}
	c.JSON(http.StatusOK, listings)
}

func (h *LedgerHandler) Transfer(c *gin.Context) {
	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	if h.opts.RequireTransferAuth {
		name, ok := middleware.GetAccountName(c)
		if !ok {
			middleware.RespondWithError(c, http.StatusUnauthorized, "Authorization required")
			return
		}
		if !strings.EqualFold(name, req.Sender) {
			middleware.RespondWithError(c, http.StatusForbidden, "You can only transfer from your own account")
			return
		}
	}

	amount, err := money.FromDecimal(*req.Amount)
	if err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid amount")
		return
	}

	outcome, err := h.commands.Transfer(c.Request.Context(), cqrs.TransferCommand{
		SenderName:    req.Sender,
		RecipientName: req.RecipientName,
		Amount:        amount,
	})
	if err != nil {
		h.respondWithLedgerError(c, err, req.Sender, req.RecipientName)
		return
	}

	c.JSON(http.StatusOK, TransferResponse{
		Message:          "Transfer successful!",
		SenderBalance:    outcome.SenderBalance.String(),
		RecipientBalance: outcome.RecipientBalance.String(),
	})
}

func (h *LedgerHandler) respondWithLedgerError(c *gin.Context, err error, sender, recipient string) {
	switch {
	case errors.Is(err, models.ErrInvalidCredentials):
		middleware.RespondWithError(c, http.StatusUnauthorized, "Invalid credentials.")
	case errors.Is(err, models.ErrSenderNotFound):
		middleware.RespondWithError(c, http.StatusNotFound, fmt.Sprintf("Sender '%s' not found.", sender))
	case errors.Is(err, models.ErrRecipientNotFound):
		middleware.RespondWithError(c, http.StatusNotFound, fmt.Sprintf("Recipient '%s' not found.", recipient))
	case errors.Is(err, models.ErrInsufficientFunds):
		middleware.RespondWithError(c, http.StatusBadRequest, "Insufficient funds.")
	case errors.Is(err, models.ErrPinTooLong):
		middleware.RespondWithError(c, http.StatusBadRequest, "PIN is too long")
	case errors.Is(err, models.ErrInvalidAmount), errors.Is(err, money.ErrInvalid):
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid amount")
	case errors.Is(err, models.ErrDuplicateAccount):
		middleware.RespondWithError(c, http.StatusConflict, "Account is being created, please retry")
	default:
		h.logger.Error("Ledger operation failed", "path", c.FullPath(), "error", err)
		middleware.RespondWithError(c, http.StatusInternalServerError, "Internal server error")
	}
}
