package auth

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/safebank/banking/internal/audit"
	"golang.org/x/crypto/bcrypt"
)

// StoredUser is the repository's view of a credential row, including
// the resolved role and permission sets.
type StoredUser struct {
	ID                 int64
	Email              string
	FullName           string
	Phone              string
	PasswordHash       string
	IsActive           bool
	MustChangePassword bool
	Roles              []string
	Permissions        []string
}

type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*StoredUser, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, u *StoredUser, roleName string) (int64, error)
	UpdatePassword(ctx context.Context, userID int64, passwordHash string, mustChange bool) error
}

type LoginResult struct {
	AccessToken string `json:"access_token"`
	User        *User  `json:"user"`
}

// Service authenticates credentials and mints tokens. It is the only
// component holding the signing key.
type Service struct {
	userRepo       UserRepository
	tokenGenerator TokenGenerator
	recorder       audit.Recorder
	logger         *slog.Logger
	bcryptCost     int
}

func NewService(userRepo UserRepository, tokenGen TokenGenerator, recorder audit.Recorder, logger *slog.Logger, bcryptCost int) *Service {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}
	return &Service{
		userRepo:       userRepo,
		tokenGenerator: tokenGen,
		recorder:       recorder,
		logger:         logger,
		bcryptCost:     bcryptCost,
	}
}

// Authenticate validates credentials and returns a signed access token.
// All credential failures collapse into ErrInvalidCredentials so the
// response cannot be used to enumerate accounts; the audit entry keeps
// the precise kind.
func (s *Service) Authenticate(ctx context.Context, dto LoginDTO) (*LoginResult, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	stored, err := s.userRepo.GetByEmail(ctx, dto.Email)
	if err != nil {
		s.audit(nil, dto.Email, "login", audit.StatusFailure, "unknown email")
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(dto.Password)); err != nil {
		s.audit(&stored.ID, stored.Email, "login", audit.StatusFailure, "password mismatch")
		return nil, ErrInvalidCredentials
	}

	if !stored.IsActive {
		s.audit(&stored.ID, stored.Email, "login", audit.StatusFailure, "user inactive")
		return nil, ErrUserInactive
	}

	if stored.MustChangePassword {
		s.audit(&stored.ID, stored.Email, "login", audit.StatusFailure, "password change required")
		return nil, ErrPasswordChangeRequired
	}

	user := stored.toUser()
	token, err := s.tokenGenerator.GenerateAccessToken(user)
	if err != nil {
		s.logger.Error("token generation failed", "user_id", stored.ID, "error", err)
		return nil, err
	}

	s.audit(&stored.ID, stored.Email, "login", audit.StatusSuccess, "")
	return &LoginResult{AccessToken: token, User: user}, nil
}

// Register creates a customer account. Every self-registered user gets
// the customer role; privileged roles are only granted through the
// admin surface.
func (s *Service) Register(ctx context.Context, dto RegisterDTO) (*User, error) {
	return s.RegisterWithRole(ctx, dto, "customer", false)
}

// RegisterWithRole is the capability the admin surface uses to create
// privileged users without duplicating credential handling. mustChange
// forces a password rotation on first login.
func (s *Service) RegisterWithRole(ctx context.Context, dto RegisterDTO, roleName string, mustChange bool) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	taken, err := s.userRepo.EmailExists(ctx, dto.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), s.bcryptCost)
	if err != nil {
		return nil, err
	}

	stored := &StoredUser{
		Email:              dto.Email,
		FullName:           dto.FullName,
		Phone:              dto.Phone,
		PasswordHash:       string(hash),
		IsActive:           true,
		MustChangePassword: mustChange,
	}
	id, err := s.userRepo.Create(ctx, stored, roleName)
	if err != nil {
		return nil, err
	}
	stored.ID = id

	s.audit(&id, dto.Email, "register", audit.StatusSuccess, "role="+roleName)
	return stored.toUser(), nil
}

// ForcePasswordChange rotates a credential gated by the must-change
// flag. It re-verifies the current password, rejects reuse, applies the
// complexity policy and clears the flag.
func (s *Service) ForcePasswordChange(ctx context.Context, dto ForcePasswordChangeDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}

	stored, err := s.userRepo.GetByEmail(ctx, dto.Email)
	if err != nil {
		s.audit(nil, dto.Email, "force_password_change", audit.StatusFailure, "unknown email")
		return ErrInvalidCredentials
	}

	if !stored.MustChangePassword {
		s.audit(&stored.ID, stored.Email, "force_password_change", audit.StatusFailure, "flag not set")
		return ErrPasswordChangeNotSet
	}

	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(dto.CurrentPassword)); err != nil {
		s.audit(&stored.ID, stored.Email, "force_password_change", audit.StatusFailure, "password mismatch")
		return ErrInvalidCredentials
	}

	if dto.NewPassword == dto.CurrentPassword {
		return ErrPasswordReused
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.NewPassword), s.bcryptCost)
	if err != nil {
		return err
	}

	if err := s.userRepo.UpdatePassword(ctx, stored.ID, string(hash), false); err != nil {
		return err
	}

	s.audit(&stored.ID, stored.Email, "force_password_change", audit.StatusSuccess, "")
	return nil
}

// ValidateAccessToken verifies a presented token and returns its claims.
func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.tokenGenerator.ValidateToken(tokenString)
}

func (s *Service) audit(userID *int64, email, action, status, detail string) {
	s.recorder.Record(audit.Entry{
		UserID:    userID,
		UserEmail: email,
		Service:   audit.ServiceAuth,
		Action:    action,
		Status:    status,
		Details:   detail,
		Timestamp: time.Now(),
	})
}

func (u *StoredUser) toUser() *User {
	return &User{
		ID:          u.ID,
		Email:       u.Email,
		Roles:       u.Roles,
		Permissions: u.Permissions,
	}
}

// CallerFromClaims rebuilds the caller identity from verified claims.
func CallerFromClaims(claims *Claims) *User {
	return &User{
		ID:          claims.UserID,
		Email:       claims.Email,
		Roles:       claims.Roles,
		Permissions: claims.Permissions,
	}
}

// SubjectID parses the numeric subject out of a claim set.
func SubjectID(claims *Claims) int64 {
	if claims.UserID != 0 {
		return claims.UserID
	}
	id, _ := strconv.ParseInt(claims.Subject, 10, 64)
	return id
}
