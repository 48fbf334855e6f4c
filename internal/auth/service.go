package auth

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"retail-backend/internal/apperror"
	"retail-backend/internal/database"
	"retail-backend/internal/models"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var phonePattern = regexp.MustCompile(`^\+?\d+$`)

// RoleDetails is what a registration carries beyond the common fields. The concrete type
// decides the account role.
type RoleDetails interface {
	role() models.Role
}

// OwnerRegistration opens the owner's first store together with the account.
type OwnerRegistration struct {
	StoreName string
	Address   string
}

type StaffRegistration struct{}

func (OwnerRegistration) role() models.Role { return models.RoleOwner }
func (StaffRegistration) role() models.Role { return models.RoleStaff }

type Registration struct {
	Name            string
	Email           string
	Phone           string
	Password        string
	ConfirmPassword string
	Details         RoleDetails
}

type Service struct {
	db         *gorm.DB
	secret     string
	tokenTTL   time.Duration
	logger     *zap.Logger
	bcryptCost int
}

func NewService(db *gorm.DB, secret string, tokenTTL time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, secret: secret, tokenTTL: tokenTTL, logger: logger, bcryptCost: bcrypt.DefaultCost}
}

func (s *Service) validate(reg *Registration) error {
	reg.Name = strings.TrimSpace(reg.Name)
	reg.Email = strings.TrimSpace(strings.ToLower(reg.Email))
	reg.Phone = strings.TrimSpace(reg.Phone)

	if reg.Name == "" || reg.Email == "" || reg.Phone == "" || reg.Password == "" || reg.ConfirmPassword == "" {
		return apperror.InvalidArgument("please fill all required fields")
	}
	if reg.Password != reg.ConfirmPassword {
		return apperror.InvalidArgument("password and confirm password do not match")
	}
	if !phonePattern.MatchString(reg.Phone) {
		return apperror.InvalidArgument("invalid phone number format")
	}

	switch d := reg.Details.(type) {
	case OwnerRegistration:
		if strings.TrimSpace(d.StoreName) == "" || strings.TrimSpace(d.Address) == "" {
			return apperror.InvalidArgument("store name and address are required for owners")
		}
	case StaffRegistration:
	default:
		return apperror.InvalidArgument("role must be either owner or staff")
	}
	return nil
}

// Register creates the account, and for owners their first store, in one transaction.
// The returned store is nil for staff.
func (s *Service) Register(ctx context.Context, reg Registration) (*models.Account, *models.Store, error) {
	if err := s.validate(&reg); err != nil {
		return nil, nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), s.bcryptCost)
	if err != nil {
		return nil, nil, apperror.Internal(err, "could not hash password")
	}

	acc := models.Account{
		Name:         reg.Name,
		Email:        reg.Email,
		Phone:        reg.Phone,
		PasswordHash: string(hash),
		Role:         reg.Details.role(),
	}
	var store *models.Store

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Account{}).Where("email = ?", acc.Email).Count(&count).Error; err != nil {
			return apperror.Internal(err, "could not check email")
		}
		if count > 0 {
			return apperror.Conflict("user already exists")
		}

		if err := tx.Create(&acc).Error; err != nil {
			if database.IsDuplicateKey(err) {
				return apperror.Conflict("user already exists")
			}
			return apperror.Internal(err, "could not create account")
		}

		if owner, ok := reg.Details.(OwnerRegistration); ok {
			store = &models.Store{
				Name:    strings.TrimSpace(owner.StoreName),
				Address: strings.TrimSpace(owner.Address),
				OwnerID: acc.ID,
			}
			if err := tx.Create(store).Error; err != nil {
				return apperror.Internal(err, "could not create store")
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("account registered", zap.Uint("account_id", acc.ID), zap.String("role", string(acc.Role)))
	return &acc, store, nil
}

// Login checks the credentials and issues a token.
func (s *Service) Login(ctx context.Context, email, password string) (string, *models.Account, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	var acc models.Account
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&acc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, apperror.Unauthorized("invalid credentials")
		}
		return "", nil, apperror.Internal(err, "could not load account")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return "", nil, apperror.Unauthorized("invalid credentials")
	}

	token, err := s.IssueToken(&acc)
	if err != nil {
		return "", nil, err
	}
	return token, &acc, nil
}

func (s *Service) IssueToken(acc *models.Account) (string, error) {
	token, err := GenerateToken(s.secret, s.tokenTTL, acc)
	if err != nil {
		return "", apperror.Internal(err, "could not create token")
	}
	return token, nil
}

// Me loads the caller's account and, for attached staff, the store they work at.
func (s *Service) Me(ctx context.Context, accountID uint) (*models.Account, *models.Store, error) {
	var acc models.Account
	if err := s.db.WithContext(ctx).First(&acc, accountID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperror.Unauthorized("account no longer exists")
		}
		return nil, nil, apperror.Internal(err, "could not load account")
	}

	if acc.StoreID == nil {
		return &acc, nil, nil
	}
	var store models.Store
	if err := s.db.WithContext(ctx).First(&store, *acc.StoreID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &acc, nil, nil
		}
		return nil, nil, apperror.Internal(err, "could not load store")
	}
	return &acc, &store, nil
}
