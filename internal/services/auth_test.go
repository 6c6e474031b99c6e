package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/hospms/apiserver/internal/mailer"
	"github.com/hospms/apiserver/internal/store"
	"github.com/hospms/apiserver/internal/token"
	"github.com/hospms/apiserver/types"
)

type memUsers struct {
	byID map[string]*types.User

	// beforeMarkVerified runs just before the conditional update, to
	// interleave a concurrent resend in race tests.
	beforeMarkVerified func()
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[string]*types.User{}}
}

func (m *memUsers) GetByID(_ context.Context, id string) (types.User, error) {
	if u, ok := m.byID[id]; ok {
		return *u, nil
	}
	return types.User{}, store.ErrNotFound
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (types.User, error) {
	for _, u := range m.byID {
		if u.Email == email {
			return *u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *memUsers) Create(_ context.Context, user types.User) (types.User, error) {
	for _, u := range m.byID {
		if u.Email == user.Email {
			return types.User{}, store.ErrDuplicate
		}
	}
	user.ID = uuid.NewString()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	m.byID[user.ID] = &user
	return user, nil
}

func (m *memUsers) SetOTP(_ context.Context, id, code string, expiresAt time.Time) error {
	u, ok := m.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	u.OTP = &code
	u.OTPExpiresAt = &expiresAt
	return nil
}

func (m *memUsers) MarkVerified(_ context.Context, id, code string) error {
	if m.beforeMarkVerified != nil {
		m.beforeMarkVerified()
	}
	u, ok := m.byID[id]
	if !ok || u.IsVerified || u.OTP == nil || *u.OTP != code {
		return store.ErrNotFound
	}
	u.IsVerified = true
	u.OTP = nil
	u.OTPExpiresAt = nil
	return nil
}

type memDoctors struct {
	created []string
	fail    bool
}

func (m *memDoctors) Create(_ context.Context, userID string) (types.Doctor, error) {
	if m.fail {
		return types.Doctor{}, store.ErrNotFound
	}
	m.created = append(m.created, userID)
	return types.Doctor{ID: uuid.NewString(), UserID: userID}, nil
}

type sentMail struct {
	To   string
	Code string
}

type memMailer struct {
	otps      []sentMail
	successes []string
	failSend  bool
}

func (m *memMailer) SendOTP(email, code, _ string) mailer.Result {
	if m.failSend {
		return mailer.Result{Err: context.DeadlineExceeded}
	}
	m.otps = append(m.otps, sentMail{To: email, Code: code})
	return mailer.Result{Success: true}
}

func (m *memMailer) SendVerificationSuccess(email, _ string, _ types.Role) mailer.Result {
	if m.failSend {
		return mailer.Result{Err: context.DeadlineExceeded}
	}
	m.successes = append(m.successes, email)
	return mailer.Result{Success: true}
}

type authFixture struct {
	svc     *AuthService
	users   *memUsers
	doctors *memDoctors
	mail    *memMailer
	issuer  *token.Issuer
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	users := newMemUsers()
	doctors := &memDoctors{}
	mail := &memMailer{}
	issuer := token.NewIssuer([]byte("test-secret"), time.Hour)
	svc := NewAuthService(users, doctors, mail, issuer, zerolog.Nop())
	return &authFixture{svc: svc, users: users, doctors: doctors, mail: mail, issuer: issuer}
}

func (f *authFixture) register(t *testing.T, email, password, role string) types.PublicUser {
	t.Helper()
	user, err := f.svc.Register(context.Background(), RegisterInput{
		Email:    email,
		Password: password,
		FullName: "Test User",
		Role:     role,
	})
	require.NoError(t, err)
	return user
}

func (f *authFixture) lastOTP(t *testing.T, email string) string {
	t.Helper()
	for i := len(f.mail.otps) - 1; i >= 0; i-- {
		if f.mail.otps[i].To == email {
			return f.mail.otps[i].Code
		}
	}
	t.Fatalf("no otp mail sent to %s", email)
	return ""
}

func TestRegister(t *testing.T) {
	f := newAuthFixture(t)

	user := f.register(t, "nurse@hospital.test", "secret123", "RECEPTIONIST")
	require.NotEmpty(t, user.ID)
	require.Equal(t, types.RoleReceptionist, user.Role)
	require.False(t, user.IsVerified)

	stored, err := f.users.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.NotEqual(t, "secret123", stored.PasswordHash)
	require.NotNil(t, stored.OTP)
	require.NotNil(t, stored.OTPExpiresAt)
	require.Len(t, *stored.OTP, 6)
	require.Equal(t, *stored.OTP, f.lastOTP(t, "nurse@hospital.test"))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "nurse@hospital.test", "secret123", "RECEPTIONIST")

	_, err := f.svc.Register(context.Background(), RegisterInput{
		Email:    "nurse@hospital.test",
		Password: "other",
		FullName: "Other",
		Role:     "LAB",
	})
	require.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestRegisterInvalidInput(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Register(context.Background(), RegisterInput{Email: "a@b.test", Password: "x", FullName: "A", Role: "JANITOR"})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.Register(context.Background(), RegisterInput{Email: "a@b.test", Role: "ADMIN"})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestRegisterDoctorCreatesProfile(t *testing.T) {
	f := newAuthFixture(t)
	user := f.register(t, "doc@hospital.test", "secret123", "DOCTOR")
	require.Equal(t, []string{user.ID}, f.doctors.created)
}

func TestRegisterSurvivesSideEffectFailures(t *testing.T) {
	f := newAuthFixture(t)
	f.doctors.fail = true
	f.mail.failSend = true

	user, err := f.svc.Register(context.Background(), RegisterInput{
		Email:    "doc@hospital.test",
		Password: "secret123",
		FullName: "Test User",
		Role:     "DOCTOR",
	})
	require.NoError(t, err)
	require.Empty(t, f.doctors.created)

	// The account exists and a resend can still deliver the code.
	_, err = f.users.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
}

func TestVerifyOTP(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.register(t, "nurse@hospital.test", "secret123", "RECEPTIONIST")
	code := f.lastOTP(t, "nurse@hospital.test")

	_, err := f.svc.VerifyOTP(ctx, "ghost@hospital.test", code)
	require.ErrorIs(t, err, ErrUserNotFound)

	// A wrong code is rejected without touching the stored challenge.
	_, err = f.svc.VerifyOTP(ctx, "nurse@hospital.test", "000000")
	require.ErrorIs(t, err, ErrInvalidOTP)
	stored, err := f.users.GetByEmail(ctx, "nurse@hospital.test")
	require.NoError(t, err)
	require.False(t, stored.IsVerified)
	require.NotNil(t, stored.OTP)

	user, err := f.svc.VerifyOTP(ctx, "nurse@hospital.test", code)
	require.NoError(t, err)
	require.True(t, user.IsVerified)
	require.Equal(t, []string{"nurse@hospital.test"}, f.mail.successes)

	stored, err = f.users.GetByEmail(ctx, "nurse@hospital.test")
	require.NoError(t, err)
	require.True(t, stored.IsVerified)
	require.Nil(t, stored.OTP)
	require.Nil(t, stored.OTPExpiresAt)

	_, err = f.svc.VerifyOTP(ctx, "nurse@hospital.test", code)
	require.ErrorIs(t, err, ErrAlreadyVerified)
}

func TestVerifyOTPExpiryBoundary(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	registeredAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return registeredAt }
	f.register(t, "nurse@hospital.test", "secret123", "RECEPTIONIST")
	code := f.lastOTP(t, "nurse@hospital.test")

	// Exactly at the expiry instant the code is already dead.
	f.svc.now = func() time.Time { return registeredAt.Add(otpTTL) }
	_, err := f.svc.VerifyOTP(ctx, "nurse@hospital.test", code)
	require.ErrorIs(t, err, ErrOTPExpired)

	f.svc.now = func() time.Time { return registeredAt.Add(otpTTL - time.Second) }
	user, err := f.svc.VerifyOTP(ctx, "nurse@hospital.test", code)
	require.NoError(t, err)
	require.True(t, user.IsVerified)
}

func TestVerifyOTPLosesRaceAgainstResend(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.register(t, "nurse@hospital.test", "secret123", "RECEPTIONIST")
	code := f.lastOTP(t, "nurse@hospital.test")

	// A resend lands between the read and the conditional update; the
	// stale code must not verify the account.
	f.users.beforeMarkVerified = func() {
		f.users.beforeMarkVerified = nil
		require.NoError(t, f.svc.ResendOTP(ctx, "nurse@hospital.test"))
	}
	_, err := f.svc.VerifyOTP(ctx, "nurse@hospital.test", code)
	require.ErrorIs(t, err, ErrInvalidOTP)

	stored, err := f.users.GetByEmail(ctx, "nurse@hospital.test")
	require.NoError(t, err)
	require.False(t, stored.IsVerified)

	user, err := f.svc.VerifyOTP(ctx, "nurse@hospital.test", f.lastOTP(t, "nurse@hospital.test"))
	require.NoError(t, err)
	require.True(t, user.IsVerified)
}

func TestResendOTP(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.register(t, "nurse@hospital.test", "secret123", "RECEPTIONIST")
	old := f.lastOTP(t, "nurse@hospital.test")

	require.ErrorIs(t, f.svc.ResendOTP(ctx, "ghost@hospital.test"), ErrUserNotFound)

	require.NoError(t, f.svc.ResendOTP(ctx, "nurse@hospital.test"))
	fresh := f.lastOTP(t, "nurse@hospital.test")

	// The old code is dead even when it never expired.
	if old != fresh {
		_, err := f.svc.VerifyOTP(ctx, "nurse@hospital.test", old)
		require.ErrorIs(t, err, ErrInvalidOTP)
	}

	user, err := f.svc.VerifyOTP(ctx, "nurse@hospital.test", fresh)
	require.NoError(t, err)
	require.True(t, user.IsVerified)

	mailsBefore := len(f.mail.otps)
	require.ErrorIs(t, f.svc.ResendOTP(ctx, "nurse@hospital.test"), ErrAlreadyVerified)
	require.Len(t, f.mail.otps, mailsBefore)
}

func TestResendOTPSurfacesDeliveryFailure(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.register(t, "nurse@hospital.test", "secret123", "RECEPTIONIST")

	f.mail.failSend = true
	require.ErrorIs(t, f.svc.ResendOTP(ctx, "nurse@hospital.test"), ErrEmailDelivery)
}

func TestLoginCheckOrder(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.register(t, "nurse@hospital.test", "secret123", "RECEPTIONIST")

	_, err := f.svc.Login(ctx, "ghost@hospital.test", "secret123")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, "nurse@hospital.test", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	// Unverified wins over anything past the password check, even on
	// an account that is also deactivated.
	_, err = f.svc.Login(ctx, "nurse@hospital.test", "secret123")
	require.ErrorIs(t, err, ErrVerificationRequired)

	stored, err := f.users.GetByEmail(ctx, "nurse@hospital.test")
	require.NoError(t, err)
	f.users.byID[stored.ID].IsActive = false
	_, err = f.svc.Login(ctx, "nurse@hospital.test", "secret123")
	require.ErrorIs(t, err, ErrVerificationRequired)
	f.users.byID[stored.ID].IsActive = true

	_, err = f.svc.VerifyOTP(ctx, "nurse@hospital.test", f.lastOTP(t, "nurse@hospital.test"))
	require.NoError(t, err)

	f.users.byID[stored.ID].IsActive = false

	// A wrong password on a deactivated account must not reveal the
	// deactivation.
	_, err = f.svc.Login(ctx, "nurse@hospital.test", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, "nurse@hospital.test", "secret123")
	require.ErrorIs(t, err, ErrAccountDeactivated)

	f.users.byID[stored.ID].IsActive = true
	result, err := f.svc.Login(ctx, "nurse@hospital.test", "secret123")
	require.NoError(t, err)
	require.Equal(t, "nurse@hospital.test", result.User.Email)

	claims, err := f.issuer.Verify(result.Token)
	require.NoError(t, err)
	require.Equal(t, stored.ID, claims.Subject)
	require.Equal(t, types.RoleReceptionist, claims.Role)
}

func TestWhoAmI(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.register(t, "nurse@hospital.test", "secret123", "RECEPTIONIST")

	got, err := f.svc.WhoAmI(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, user.Email, got.Email)

	_, err = f.svc.WhoAmI(ctx, uuid.NewString())
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestPasswordHashRoundTrip(t *testing.T) {
	f := newAuthFixture(t)
	user := f.register(t, "nurse@hospital.test", "secret123", "RECEPTIONIST")

	stored, err := f.users.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret123")))
}
