package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"securebank/internal/config"
	"securebank/internal/infrastructure/lock"
	"securebank/internal/repository"
	"securebank/internal/service"
	"securebank/internal/session"
	"securebank/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Handler bundles every service behind the HTTP surface.
type Handler struct {
	authService        *service.AuthService
	accountService     *service.AccountService
	transferService    *service.TransferService
	cardService        *service.CardService
	beneficiaryService *service.BeneficiaryService
	notifService       *service.NotificationService
	sessions           *session.Store
}

func NewHandler(db *gorm.DB, sessions *session.Store, cfg *config.Config) *Handler {
	notifService := service.NewNotificationService(db, cfg)
	return &Handler{
		authService:        service.NewAuthService(db, sessions),
		accountService:     service.NewAccountService(db),
		transferService: service.NewTransferService(
			repository.NewAccountRepository(db),
			service.NewStorageUnitOfWork(db),
			lock.NewAccountLocks(),
			notifService,
			cfg.Business.TransferLockTimeout(),
		),
		cardService:        service.NewCardService(db),
		beneficiaryService: service.NewBeneficiaryService(db),
		notifService:       notifService,
		sessions:           sessions,
	}
}

// ============================================================
// auth
// ============================================================

type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	LastName  string `json:"last_name" binding:"required"`
	FirstName string `json:"first_name" binding:"required"`
	Phone     string `json:"phone"`
}

// Register creates a user with their first account and card.
// POST /api/v1/auth/register
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.authService.Register(c.Request.Context(), &service.RegisterRequest{
		Email:     req.Email,
		Password:  req.Password,
		LastName:  req.LastName,
		FirstName: req.FirstName,
		Phone:     req.Phone,
	})
	if err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			response.BusinessError(c, response.CodeEmailTaken, "email already registered")
			return
		}
		response.ServerError(c, "registration failed")
		return
	}

	response.Success(c, gin.H{
		"user_id": user.ID,
		"email":   user.Email,
	})
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login verifies the credentials and issues a session token.
// POST /api/v1/auth/login
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.BusinessError(c, response.CodeInvalidCredentials, "invalid email or password")
			return
		}
		response.ServerError(c, "login failed")
		return
	}

	response.Success(c, gin.H{
		"session_token": result.Token,
		"user": gin.H{
			"id":         result.User.ID,
			"email":      result.User.Email,
			"last_name":  result.User.LastName,
			"first_name": result.User.FirstName,
		},
	})
}

// Logout invalidates the caller's session token.
// POST /api/v1/auth/logout
func (h *Handler) Logout(c *gin.Context) {
	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	if err := h.authService.Logout(c.Request.Context(), token); err != nil {
		response.ServerError(c, "logout failed")
		return
	}
	response.Success(c, gin.H{"message": "logged out"})
}

// GetProfile returns the caller's profile.
// GET /api/v1/profile
func (h *Handler) GetProfile(c *gin.Context) {
	user, err := h.authService.GetProfile(c.Request.Context(), currentUserID(c))
	if err != nil {
		response.ServerError(c, "failed to load profile")
		return
	}
	response.Success(c, user)
}

type UpdateProfileRequest struct {
	LastName  string `json:"last_name" binding:"required"`
	FirstName string `json:"first_name" binding:"required"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
}

// UpdateProfile updates the caller's contact details.
// PUT /api/v1/profile
func (h *Handler) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	err := h.authService.UpdateProfile(c.Request.Context(), currentUserID(c),
		req.LastName, req.FirstName, req.Phone, req.Address)
	if err != nil {
		response.ServerError(c, "failed to update profile")
		return
	}
	response.Success(c, gin.H{"message": "profile updated"})
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

// ChangePassword rotates the caller's password.
// POST /api/v1/profile/password
func (h *Handler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	err := h.authService.ChangePassword(c.Request.Context(), currentUserID(c), req.OldPassword, req.NewPassword)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.BusinessError(c, response.CodeInvalidCredentials, "current password is incorrect")
			return
		}
		response.ServerError(c, "failed to change password")
		return
	}
	response.Success(c, gin.H{"message": "password changed"})
}

// ============================================================
// accounts
// ============================================================

// ListAccounts returns the caller's accounts, newest first.
// GET /api/v1/accounts
func (h *Handler) ListAccounts(c *gin.Context) {
	accounts, err := h.accountService.ListAccounts(c.Request.Context(), currentUserID(c))
	if err != nil {
		response.ServerError(c, "failed to load accounts")
		return
	}
	response.Success(c, accounts)
}

// ListTransactions returns the latest ledger entries for one of the
// caller's accounts.
// GET /api/v1/accounts/:id/transactions?limit=50
func (h *Handler) ListTransactions(c *gin.Context) {
	accountID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "invalid account id")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	transactions, err := h.accountService.Transactions(c.Request.Context(), currentUserID(c), accountID, limit)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			response.Error(c, response.CodeNotFound, "account not found")
			return
		}
		response.ServerError(c, "failed to load transactions")
		return
	}
	response.Success(c, transactions)
}

// GetStats returns the caller's dashboard aggregates.
// GET /api/v1/stats
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.accountService.GetStats(c.Request.Context(), currentUserID(c))
	if err != nil {
		response.ServerError(c, "failed to load stats")
		return
	}
	response.Success(c, stats)
}

// ============================================================
// transfers
// ============================================================

type TransferRequest struct {
	SourceAccountID int64           `json:"source_account_id" binding:"required"`
	DestIBAN        string          `json:"dest_iban" binding:"required"`
	Amount          decimal.Decimal `json:"amount" binding:"required"`
	Memo            string          `json:"memo"`
}

// Transfer executes an internal transfer from one of the caller's
// accounts to the account addressed by IBAN. Each rejection reason maps
// to its own business code.
// POST /api/v1/transfers
func (h *Handler) Transfer(c *gin.Context) {
	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	result, err := h.transferService.Transfer(c.Request.Context(), currentUserID(c),
		req.SourceAccountID, req.DestIBAN, req.Amount, req.Memo)
	if err != nil {
		code := response.CodeServerError
		switch {
		case errors.Is(err, service.ErrInvalidAmount):
			code = response.CodeInvalidAmount
		case errors.Is(err, service.ErrSourceNotFound):
			code = response.CodeSourceNotFound
		case errors.Is(err, service.ErrDestinationNotFound):
			code = response.CodeDestinationNotFound
		case errors.Is(err, service.ErrAccountBlocked):
			code = response.CodeAccountBlocked
		case errors.Is(err, service.ErrInsufficientFunds):
			code = response.CodeInsufficientFunds
		case errors.Is(err, service.ErrSameAccount):
			code = response.CodeSameAccount
		case errors.Is(err, service.ErrBusy):
			code = response.CodeBusy
		}
		response.BusinessError(c, code, err.Error())
		return
	}

	response.Success(c, result)
}

// ============================================================
// cards
// ============================================================

// ListCards returns the cards attached to the caller's accounts.
// GET /api/v1/cards
func (h *Handler) ListCards(c *gin.Context) {
	cards, err := h.cardService.ListCards(c.Request.Context(), currentUserID(c))
	if err != nil {
		response.ServerError(c, "failed to load cards")
		return
	}
	response.Success(c, cards)
}

// BlockCard blocks one of the caller's cards.
// POST /api/v1/cards/:id/block
func (h *Handler) BlockCard(c *gin.Context) {
	h.setCardStatus(c, h.cardService.BlockCard, "card blocked")
}

// UnblockCard re-activates one of the caller's cards.
// POST /api/v1/cards/:id/unblock
func (h *Handler) UnblockCard(c *gin.Context) {
	h.setCardStatus(c, h.cardService.UnblockCard, "card unblocked")
}

func (h *Handler) setCardStatus(c *gin.Context, op func(ctx context.Context, cardID, ownerID int64) error, okMessage string) {
	cardID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "invalid card id")
		return
	}

	if err := op(c.Request.Context(), cardID, currentUserID(c)); err != nil {
		if errors.Is(err, repository.ErrCardNotFound) {
			response.Error(c, response.CodeNotFound, "card not found")
			return
		}
		response.ServerError(c, "failed to update card")
		return
	}
	response.Success(c, gin.H{"message": okMessage})
}

// ============================================================
// beneficiaries
// ============================================================

// ListBeneficiaries returns the caller's saved transfer destinations.
// GET /api/v1/beneficiaries
func (h *Handler) ListBeneficiaries(c *gin.Context) {
	beneficiaries, err := h.beneficiaryService.List(c.Request.Context(), currentUserID(c))
	if err != nil {
		response.ServerError(c, "failed to load beneficiaries")
		return
	}
	response.Success(c, beneficiaries)
}

type AddBeneficiaryRequest struct {
	LastName  string `json:"last_name" binding:"required"`
	FirstName string `json:"first_name"`
	IBAN      string `json:"iban" binding:"required"`
	Favorite  bool   `json:"favorite"`
}

// AddBeneficiary saves a transfer destination.
// POST /api/v1/beneficiaries
func (h *Handler) AddBeneficiary(c *gin.Context) {
	var req AddBeneficiaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	beneficiary, err := h.beneficiaryService.Add(c.Request.Context(), currentUserID(c),
		req.LastName, req.FirstName, req.IBAN, req.Favorite)
	if err != nil {
		response.ServerError(c, "failed to add beneficiary")
		return
	}
	response.Success(c, beneficiary)
}

// DeleteBeneficiary removes one of the caller's beneficiaries.
// DELETE /api/v1/beneficiaries/:id
func (h *Handler) DeleteBeneficiary(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "invalid beneficiary id")
		return
	}

	if err := h.beneficiaryService.Delete(c.Request.Context(), id, currentUserID(c)); err != nil {
		if errors.Is(err, repository.ErrBeneficiaryNotFound) {
			response.Error(c, response.CodeNotFound, "beneficiary not found")
			return
		}
		response.ServerError(c, "failed to delete beneficiary")
		return
	}
	response.Success(c, gin.H{"message": "beneficiary deleted"})
}

// ============================================================
// notifications
// ============================================================

// ListNotifications returns the caller's latest notifications.
// GET /api/v1/notifications
func (h *Handler) ListNotifications(c *gin.Context) {
	notifications, err := h.notifService.List(c.Request.Context(), currentUserID(c))
	if err != nil {
		response.ServerError(c, "failed to load notifications")
		return
	}
	response.Success(c, notifications)
}

// MarkNotificationRead marks one notification as read.
// POST /api/v1/notifications/:id/read
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "invalid notification id")
		return
	}

	if err := h.notifService.MarkRead(c.Request.Context(), id, currentUserID(c)); err != nil {
		response.ServerError(c, "failed to update notification")
		return
	}
	response.Success(c, gin.H{"message": "notification marked as read"})
}
