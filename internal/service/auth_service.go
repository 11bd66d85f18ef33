package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"securebank/internal/model"
	"securebank/internal/repository"
	"securebank/internal/session"
	"securebank/pkg/idgen"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService struct {
	db       *gorm.DB
	userRepo *repository.UserRepository
	sessions *session.Store
}

func NewAuthService(db *gorm.DB, sessions *session.Store) *AuthService {
	return &AuthService{
		db:       db,
		userRepo: repository.NewUserRepository(db),
		sessions: sessions,
	}
}

type RegisterRequest struct {
	Email     string
	Password  string
	LastName  string
	FirstName string
	Phone     string
}

// Register creates the user together with their first checking account and
// card, all in one transaction: a registered holder always has an account
// to receive transfers on.
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, errors.New("email and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Email:        email,
		PasswordHash: string(hash),
		LastName:     req.LastName,
		FirstName:    req.FirstName,
		Phone:        req.Phone,
		Status:       model.UserStatusActive,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := repository.NewUserRepository(tx).Create(ctx, user); err != nil {
			return err
		}

		account := &model.Account{
			UserID:        user.ID,
			AccountNumber: idgen.GenerateAccountNumber(),
			IBAN:          idgen.GenerateIBAN(),
			AccountType:   model.AccountTypeChecking,
			Balance:       decimal.Zero,
			Currency:      "EUR",
			Status:        model.AccountStatusActive,
		}
		if err := repository.NewAccountRepository(tx).Create(ctx, account); err != nil {
			return fmt.Errorf("failed to create account: %w", err)
		}

		card := &model.Card{
			AccountID:  account.ID,
			CardNumber: idgen.GenerateCardNumber(),
			CardType:   model.CardTypeVisa,
			Holder:     strings.ToUpper(strings.TrimSpace(req.FirstName + " " + req.LastName)),
			ExpiresAt:  time.Now().AddDate(3, 0, 0),
			CVV:        idgen.GenerateCVV(),
			DailyLimit: decimal.NewFromInt(500),
			Status:     model.CardStatusActive,
		}
		if err := repository.NewCardRepository(tx).Create(ctx, card); err != nil {
			return fmt.Errorf("failed to create card: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

type LoginResult struct {
	Token string      `json:"session_token"`
	User  *model.User `json:"user"`
}

// Login verifies the credentials and issues a session token. Unknown email
// and wrong password produce the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if user.Status != model.UserStatusActive {
		return nil, ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if err := s.userRepo.TouchLastLogin(ctx, user.ID); err != nil {
		log.Printf("[AuthService] failed to update last login for user %d: %v", user.ID, err)
	}

	return &LoginResult{Token: token, User: user}, nil
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token)
}

func (s *AuthService) GetProfile(ctx context.Context, userID int64) (*model.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID int64, lastName, firstName, phone, address string) error {
	return s.userRepo.UpdateProfile(ctx, userID, lastName, firstName, phone, address)
}

// ChangePassword swaps the hash after verifying the current password.
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)) != nil {
		return ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return s.userRepo.UpdatePassword(ctx, userID, string(hash))
}
