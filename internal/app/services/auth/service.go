package auth

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/bgfactura/invoicing/internal/app/domain/company"
	"github.com/bgfactura/invoicing/internal/app/domain/user"
	"github.com/bgfactura/invoicing/internal/app/storage"
	"github.com/bgfactura/invoicing/internal/app/validation"
	"github.com/bgfactura/invoicing/internal/cache"
	apperrors "github.com/bgfactura/invoicing/internal/errors"
	"github.com/bgfactura/invoicing/internal/logging"
)

const issuer = "invoicer"

// Config controls token signing and password hashing.
type Config struct {
	Secret     []byte
	TokenTTL   time.Duration
	BcryptCost int
}

// Claims is the JWT payload issued at login and registration.
type Claims struct {
	UserID int64  `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// CompanyInput is the company block accepted at registration.
type CompanyInput struct {
	Name      string `json:"name" validate:"required"`
	EIK       string `json:"eik" validate:"required,min=9,max=13"`
	VATNumber string `json:"vatNumber" validate:"omitempty,min=9"`
	Address   string `json:"address"`
	City      string `json:"city"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone"`
}

// RegisterInput is the registration payload.
type RegisterInput struct {
	Email     string        `json:"email" validate:"required,email"`
	Password  string        `json:"password" validate:"required,min=6"`
	FirstName string        `json:"firstName" validate:"required"`
	LastName  string        `json:"lastName" validate:"required"`
	Company   *CompanyInput `json:"company"`
}

// LoginInput is the login payload.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// CompanyPatch carries the company fields a profile update may change.
type CompanyPatch struct {
	Name      *string `json:"name" validate:"omitnil,min=1"`
	EIK       *string `json:"eik" validate:"omitnil,min=9,max=13"`
	VATNumber *string `json:"vatNumber"`
	Address   *string `json:"address"`
	City      *string `json:"city"`
	Email     *string `json:"email" validate:"omitempty,email"`
	Phone     *string `json:"phone"`
	BankName  *string `json:"bankName"`
	IBAN      *string `json:"iban"`
	BIC       *string `json:"bic"`
	Logo      *string `json:"logo"`
}

// Apply copies the set fields onto comp.
func (p CompanyPatch) Apply(comp *company.Company) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&comp.Name, p.Name)
	set(&comp.EIK, p.EIK)
	set(&comp.VATNumber, p.VATNumber)
	set(&comp.Address, p.Address)
	set(&comp.City, p.City)
	set(&comp.Email, p.Email)
	set(&comp.Phone, p.Phone)
	set(&comp.BankName, p.BankName)
	set(&comp.IBAN, p.IBAN)
	set(&comp.BIC, p.BIC)
	set(&comp.Logo, p.Logo)
}

// UpdateProfileInput is the profile update payload.
type UpdateProfileInput struct {
	FirstName *string       `json:"firstName" validate:"omitnil,min=1"`
	LastName  *string       `json:"lastName" validate:"omitnil,min=1"`
	Company   *CompanyPatch `json:"company"`
}

// Session is returned by Register and Login.
type Session struct {
	Token   string
	User    user.User
	Company *company.Company
}

// Profile is a user together with their company, when they have one.
type Profile struct {
	User    user.User
	Company *company.Company
}

// Service handles registration, login, profiles and token verification.
type Service struct {
	users     storage.UserStore
	companies storage.CompanyStore
	scopes    cache.ScopeCache
	cfg       Config
	log       *logging.Logger
	now       func() time.Time
}

// New constructs the auth service. A nil cache disables scope caching.
func New(users storage.UserStore, companies storage.CompanyStore, scopes cache.ScopeCache, cfg Config, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewDefault("auth")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{users: users, companies: companies, scopes: scopes, cfg: cfg, log: log, now: time.Now}
}

// Register creates a user and optionally their company, then issues a token.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Session, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validation.Struct(in); err != nil {
		return Session{}, err
	}

	if _, err := s.users.GetUserByEmail(ctx, in.Email); err == nil {
		return Session{}, apperrors.Conflict("User with this email already exists")
	} else if !errors.Is(err, storage.ErrNotFound) {
		return Session{}, storage.Translate(err, "User", "")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cfg.BcryptCost)
	if err != nil {
		return Session{}, apperrors.Internal("hash password", err)
	}

	usr := user.User{
		Email:        in.Email,
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		IsActive:     true,
	}
	var comp *company.Company
	if in.Company != nil {
		comp = &company.Company{
			Name:      strings.TrimSpace(in.Company.Name),
			EIK:       strings.TrimSpace(in.Company.EIK),
			VATNumber: strings.TrimSpace(in.Company.VATNumber),
			Address:   strings.TrimSpace(in.Company.Address),
			City:      strings.TrimSpace(in.Company.City),
			Email:     strings.TrimSpace(in.Company.Email),
			Phone:     strings.TrimSpace(in.Company.Phone),
		}
	}

	usr, comp, err = s.users.CreateUserWithCompany(ctx, usr, comp)
	if err != nil {
		return Session{}, storage.Translate(err, "User", "User with this email already exists")
	}

	token, err := s.issue(usr)
	if err != nil {
		return Session{}, err
	}
	entry := s.log.WithField("user_id", usr.ID)
	if comp != nil {
		entry = entry.WithField("company_id", comp.ID)
	}
	entry.Info("user registered")
	return Session{Token: token, User: usr, Company: comp}, nil
}

// Login checks credentials and issues a token. Unknown users, inactive users
// and wrong passwords all produce the same error.
func (s *Service) Login(ctx context.Context, in LoginInput) (Session, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validation.Struct(in); err != nil {
		return Session{}, err
	}

	usr, err := s.users.GetUserByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Session{}, apperrors.Unauthorized("Invalid credentials")
		}
		return Session{}, storage.Translate(err, "User", "")
	}
	if !usr.IsActive {
		return Session{}, apperrors.Unauthorized("Invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(usr.PasswordHash), []byte(in.Password)); err != nil {
		return Session{}, apperrors.Unauthorized("Invalid credentials")
	}

	comp, err := s.companyOf(ctx, usr.ID)
	if err != nil {
		return Session{}, err
	}
	token, err := s.issue(usr)
	if err != nil {
		return Session{}, err
	}
	s.log.WithField("user_id", usr.ID).Info("user logged in")
	return Session{Token: token, User: usr, Company: comp}, nil
}

// Profile returns the user with their company.
func (s *Service) Profile(ctx context.Context, userID int64) (Profile, error) {
	usr, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return Profile{}, storage.Translate(err, "User", "")
	}
	comp, err := s.companyOf(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	return Profile{User: usr, Company: comp}, nil
}

// UpdateProfile changes names and, when the user has a company, company fields.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, in UpdateProfileInput) (Profile, error) {
	if err := validation.Struct(in); err != nil {
		return Profile{}, err
	}

	usr, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return Profile{}, storage.Translate(err, "User", "")
	}
	if in.FirstName != nil {
		usr.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		usr.LastName = strings.TrimSpace(*in.LastName)
	}
	if usr.FirstName == "" || usr.LastName == "" {
		return Profile{}, apperrors.Validation("Validation failed").WithDetails("name", "cannot be empty")
	}
	// Keep the stored hash.
	usr.PasswordHash = ""
	usr, err = s.users.UpdateUser(ctx, usr)
	if err != nil {
		return Profile{}, storage.Translate(err, "User", "")
	}

	comp, err := s.companyOf(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	if comp != nil && in.Company != nil {
		in.Company.Apply(comp)
		updated, err := s.companies.UpdateCompany(ctx, *comp)
		if err != nil {
			return Profile{}, storage.Translate(err, "Company", "Company with this EIK already exists")
		}
		comp = &updated
	}
	s.forget(ctx, userID)

	s.log.WithField("user_id", userID).Info("profile updated")
	return Profile{User: usr, Company: comp}, nil
}

// Authenticate verifies a bearer token and resolves the caller's scope. The
// scope is served from the cache when possible.
func (s *Service) Authenticate(ctx context.Context, token string) (cache.Scope, error) {
	claims, err := s.ParseToken(token)
	if err != nil {
		return cache.Scope{}, err
	}
	if s.scopes != nil {
		if scope, ok := s.scopes.Get(ctx, claims.UserID); ok {
			return scope, nil
		}
	}

	usr, err := s.users.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return cache.Scope{}, apperrors.Unauthorized("User not found or inactive")
		}
		return cache.Scope{}, storage.Translate(err, "User", "")
	}
	if !usr.IsActive {
		return cache.Scope{}, apperrors.Unauthorized("User not found or inactive")
	}

	scope := cache.Scope{UserID: usr.ID, Email: usr.Email}
	comp, err := s.companyOf(ctx, usr.ID)
	if err != nil {
		return cache.Scope{}, err
	}
	if comp != nil {
		scope.CompanyID = comp.ID
	}
	if s.scopes != nil {
		s.scopes.Set(ctx, scope)
	}
	return scope, nil
}

// forget drops the cached scope of a user so the next request reloads it.
func (s *Service) forget(ctx context.Context, userID int64) {
	if s.scopes != nil {
		s.scopes.Invalidate(ctx, userID)
	}
}

// ParseToken validates signature, algorithm and expiry.
func (s *Service) ParseToken(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.cfg.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return nil, apperrors.InvalidToken(err)
	}
	if claims.UserID == 0 {
		return nil, apperrors.InvalidToken(errors.New("token has no user id"))
	}
	return claims, nil
}

func (s *Service) issue(usr user.User) (string, error) {
	now := s.now()
	claims := Claims{
		UserID: usr.ID,
		Email:  usr.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatInt(usr.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
	if err != nil {
		return "", apperrors.Internal("sign token", err)
	}
	return signed, nil
}

func (s *Service) companyOf(ctx context.Context, userID int64) (*company.Company, error) {
	comp, err := s.companies.GetCompanyByUser(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storage.Translate(err, "Company", "")
	}
	return &comp, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
