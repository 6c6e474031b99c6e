package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/hospms/apiserver/internal/mailer"
	"github.com/hospms/apiserver/internal/otp"
	"github.com/hospms/apiserver/internal/store"
	"github.com/hospms/apiserver/internal/token"
	"github.com/hospms/apiserver/types"
)

// otpTTL is how long a verification code stays redeemable.
const otpTTL = 10 * time.Minute

// Auth flow failures. Handlers map each to a distinct response code;
// the frontend branches on them, so they are never collapsed.
var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrDuplicateEmail       = errors.New("email already in use")
	ErrUserNotFound         = errors.New("user not found")
	ErrAlreadyVerified      = errors.New("email already verified")
	ErrInvalidOTP           = errors.New("invalid otp")
	ErrOTPExpired           = errors.New("otp expired")
	ErrEmailDelivery        = errors.New("failed to send otp email")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrVerificationRequired = errors.New("email verification required")
	ErrAccountDeactivated   = errors.New("account deactivated")
)

// AuthUserRepository is the slice of user persistence the auth flow
// needs. Challenge updates are conditional at the store so a verify
// racing a resend can never redeem a stale code.
type AuthUserRepository interface {
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	SetOTP(ctx context.Context, id, code string, expiresAt time.Time) error
	MarkVerified(ctx context.Context, id, code string) error
}

// AuthDoctorRepository creates the doctor profile registered DOCTOR
// accounts get as a side effect.
type AuthDoctorRepository interface {
	Create(ctx context.Context, userID string) (types.Doctor, error)
}

// AuthService orchestrates registration, OTP verification, resend, and
// login. Secrets and transports are fixed at construction.
type AuthService struct {
	users   AuthUserRepository
	doctors AuthDoctorRepository
	mail    mailer.Mailer
	issuer  *token.Issuer
	log     zerolog.Logger

	// now is swapped in tests to pin the clock.
	now func() time.Time
}

func NewAuthService(users AuthUserRepository, doctors AuthDoctorRepository, mail mailer.Mailer, issuer *token.Issuer, log zerolog.Logger) *AuthService {
	return &AuthService{
		users:   users,
		doctors: doctors,
		mail:    mail,
		issuer:  issuer,
		log:     log,
		now:     time.Now,
	}
}

// RegisterInput carries the registration payload after transport
// decoding.
type RegisterInput struct {
	Email    string
	Password string
	FullName string
	Role     string
}

// Register creates an unverified account with a fresh challenge and
// dispatches the code by mail. Mail failure is logged, not fatal: the
// user can always ask for a resend.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (types.PublicUser, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)
	if in.Email == "" || in.Password == "" || in.FullName == "" || in.Role == "" {
		return types.PublicUser{}, fmt.Errorf("%w: missing required fields", ErrInvalidInput)
	}
	role, err := types.ParseRole(in.Role)
	if err != nil {
		return types.PublicUser{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return types.PublicUser{}, ErrDuplicateEmail
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.PublicUser{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return types.PublicUser{}, err
	}

	code, err := otp.Generate()
	if err != nil {
		return types.PublicUser{}, err
	}
	expiresAt := s.now().Add(otpTTL)

	user, err := s.users.Create(ctx, types.User{
		Email:        in.Email,
		FullName:     in.FullName,
		Role:         role,
		PasswordHash: string(hash),
		IsActive:     true,
		IsVerified:   false,
		OTP:          &code,
		OTPExpiresAt: &expiresAt,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return types.PublicUser{}, ErrDuplicateEmail
		}
		return types.PublicUser{}, err
	}

	if role == types.RoleDoctor {
		if _, err := s.doctors.Create(ctx, user.ID); err != nil {
			s.log.Error().Err(err).Str("userId", user.ID).Msg("failed to create doctor profile")
		}
	}

	if result := s.mail.SendOTP(user.Email, code, user.FullName); !result.Success {
		s.log.Error().Err(result.Err).Str("email", user.Email).Msg("failed to send otp email")
	}

	return user.Public(), nil
}

// VerifyOTP redeems a challenge and flips the account to verified.
// A failed check leaves the stored challenge untouched.
func (s *AuthService) VerifyOTP(ctx context.Context, email, code string) (types.PublicUser, error) {
	email = strings.TrimSpace(email)
	if email == "" || code == "" {
		return types.PublicUser{}, fmt.Errorf("%w: email and otp are required", ErrInvalidInput)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.PublicUser{}, ErrUserNotFound
		}
		return types.PublicUser{}, err
	}
	if user.IsVerified {
		return types.PublicUser{}, ErrAlreadyVerified
	}
	if user.OTP == nil || *user.OTP != code {
		return types.PublicUser{}, ErrInvalidOTP
	}
	if user.OTPExpiresAt == nil || !s.now().Before(*user.OTPExpiresAt) {
		return types.PublicUser{}, ErrOTPExpired
	}

	// Conditional on the stored code: if a concurrent resend replaced
	// the challenge between the read above and here, this matches
	// nothing and the stale code is rejected.
	if err := s.users.MarkVerified(ctx, user.ID, code); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.PublicUser{}, ErrInvalidOTP
		}
		return types.PublicUser{}, err
	}
	user.IsVerified = true
	user.OTP = nil
	user.OTPExpiresAt = nil

	if result := s.mail.SendVerificationSuccess(user.Email, user.FullName, user.Role); !result.Success {
		s.log.Error().Err(result.Err).Str("email", user.Email).Msg("failed to send verification success email")
	}

	return user.Public(), nil
}

// ResendOTP replaces the outstanding challenge and mails the new code.
// Unlike Register, a failed send fails the operation: delivering the
// code is the whole point of a resend.
func (s *AuthService) ResendOTP(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if user.IsVerified {
		return ErrAlreadyVerified
	}

	code, err := otp.Generate()
	if err != nil {
		return err
	}
	if err := s.users.SetOTP(ctx, user.ID, code, s.now().Add(otpTTL)); err != nil {
		return err
	}

	if result := s.mail.SendOTP(user.Email, code, user.FullName); !result.Success {
		s.log.Error().Err(result.Err).Str("email", user.Email).Msg("failed to send otp email")
		return ErrEmailDelivery
	}
	return nil
}

// LoginResult is a successful login: a signed session token plus the
// account's public fields.
type LoginResult struct {
	Token string
	User  types.PublicUser
}

// Login authenticates credentials and issues a session token. The
// check order is fixed: existence and password collapse into one
// indistinguishable failure, then verification, then active status.
func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return LoginResult{}, fmt.Errorf("%w: missing credentials", ErrInvalidInput)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}
	if !user.IsVerified {
		return LoginResult{}, ErrVerificationRequired
	}
	if !user.IsActive {
		return LoginResult{}, ErrAccountDeactivated
	}

	tok, err := s.issuer.Issue(user)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Token: tok, User: user.Public()}, nil
}

// WhoAmI re-fetches the account behind previously verified claims.
// Tokens outlive account deletion, so the account may be gone.
func (s *AuthService) WhoAmI(ctx context.Context, userID string) (types.PublicUser, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.PublicUser{}, ErrUserNotFound
		}
		return types.PublicUser{}, err
	}
	return user.Public(), nil
}
