package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/hospms/apiserver/internal/mailer"
	"github.com/hospms/apiserver/internal/services"
	"github.com/hospms/apiserver/internal/store"
	"github.com/hospms/apiserver/internal/token"
	"github.com/hospms/apiserver/types"
)

type fakeUserRepo struct {
	byID map[string]*types.User
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (types.User, error) {
	if u, ok := f.byID[id]; ok {
		return *u, nil
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	for _, u := range f.byID {
		if u.Email == email {
			return *u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	user.ID = uuid.NewString()
	f.byID[user.ID] = &user
	return user, nil
}

func (f *fakeUserRepo) SetOTP(_ context.Context, id, code string, expiresAt time.Time) error {
	u, ok := f.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	u.OTP = &code
	u.OTPExpiresAt = &expiresAt
	return nil
}

func (f *fakeUserRepo) MarkVerified(_ context.Context, id, code string) error {
	u, ok := f.byID[id]
	if !ok || u.IsVerified || u.OTP == nil || *u.OTP != code {
		return store.ErrNotFound
	}
	u.IsVerified = true
	u.OTP = nil
	u.OTPExpiresAt = nil
	return nil
}

type fakeDoctorRepo struct{}

func (fakeDoctorRepo) Create(_ context.Context, userID string) (types.Doctor, error) {
	return types.Doctor{ID: uuid.NewString(), UserID: userID}, nil
}

type captureMailer struct {
	codes map[string]string
}

func (m *captureMailer) SendOTP(email, code, _ string) mailer.Result {
	m.codes[email] = code
	return mailer.Result{Success: true}
}

func (m *captureMailer) SendVerificationSuccess(string, string, types.Role) mailer.Result {
	return mailer.Result{Success: true}
}

func newAuthRouter(t *testing.T) (*chi.Mux, *fakeUserRepo, *captureMailer) {
	t.Helper()
	repo := &fakeUserRepo{byID: map[string]*types.User{}}
	mail := &captureMailer{codes: map[string]string{}}
	issuer := token.NewIssuer([]byte("test-secret"), time.Hour)
	auth := services.NewAuthService(repo, fakeDoctorRepo{}, mail, issuer, zerolog.Nop())

	router := chi.NewRouter()
	router.Route("/api/auth", func(r chi.Router) {
		AuthRouter(r, auth, RequireAuth(issuer))
	})
	return router, repo, mail
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAuthFlow(t *testing.T) {
	router, _, mail := newAuthRouter(t)

	rec := postJSON(t, router, "/api/auth/register", RegisterRequest{
		Email:    "doc@hospital.test",
		Password: "secret123",
		FullName: "Doc Test",
		Role:     "DOCTOR",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// Unverified accounts cannot log in; the failure carries the email
	// so the client can offer a resend.
	rec = postJSON(t, router, "/api/auth/login", LoginRequest{Email: "doc@hospital.test", Password: "secret123"})
	require.Equal(t, http.StatusForbidden, rec.Code)
	resp := decodeError(t, rec)
	require.Equal(t, "VERIFICATION_REQUIRED", resp.Code)
	require.Equal(t, "doc@hospital.test", resp.Email)

	rec = postJSON(t, router, "/api/auth/verify-otp", VerifyOTPRequest{Email: "doc@hospital.test", OTP: "000000"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "INVALID_OTP", decodeError(t, rec).Code)

	rec = postJSON(t, router, "/api/auth/verify-otp", VerifyOTPRequest{
		Email: "doc@hospital.test",
		OTP:   mail.codes["doc@hospital.test"],
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = postJSON(t, router, "/api/auth/login", LoginRequest{Email: "doc@hospital.test", Password: "secret123"})
	require.Equal(t, http.StatusOK, rec.Code)
	var login struct {
		Token string           `json:"token"`
		User  types.PublicUser `json:"user"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&login))
	require.NotEmpty(t, login.Token)
	require.True(t, login.User.IsVerified)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	meRec := httptest.NewRecorder()
	router.ServeHTTP(meRec, req)
	require.Equal(t, http.StatusOK, meRec.Code)
	var me struct {
		User types.PublicUser `json:"user"`
	}
	require.NoError(t, json.NewDecoder(meRec.Body).Decode(&me))
	require.Equal(t, "doc@hospital.test", me.User.Email)
}

func TestAuthLoginBadCredentials(t *testing.T) {
	router, _, _ := newAuthRouter(t)

	rec := postJSON(t, router, "/api/auth/register", RegisterRequest{
		Email:    "nurse@hospital.test",
		Password: "secret123",
		FullName: "Nurse Test",
		Role:     "RECEPTIONIST",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// Unknown account and wrong password are indistinguishable.
	rec = postJSON(t, router, "/api/auth/login", LoginRequest{Email: "ghost@hospital.test", Password: "secret123"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "INVALID_CREDENTIALS", decodeError(t, rec).Code)

	rec = postJSON(t, router, "/api/auth/login", LoginRequest{Email: "nurse@hospital.test", Password: "wrong"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "INVALID_CREDENTIALS", decodeError(t, rec).Code)
}

func TestAuthRegisterRejectsDuplicate(t *testing.T) {
	router, repo, _ := newAuthRouter(t)
	repo.byID["existing"] = &types.User{ID: "existing", Email: "nurse@hospital.test"}

	rec := postJSON(t, router, "/api/auth/register", RegisterRequest{
		Email:    "nurse@hospital.test",
		Password: "secret123",
		FullName: "Nurse Test",
		Role:     "RECEPTIONIST",
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "DUPLICATE_EMAIL", decodeError(t, rec).Code)
}

func TestAuthResendOTP(t *testing.T) {
	router, _, mail := newAuthRouter(t)

	rec := postJSON(t, router, "/api/auth/register", RegisterRequest{
		Email:    "lab@hospital.test",
		Password: "secret123",
		FullName: "Lab Test",
		Role:     "LAB",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = postJSON(t, router, "/api/auth/resend-otp", ResendOTPRequest{Email: "lab@hospital.test"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = postJSON(t, router, "/api/auth/verify-otp", VerifyOTPRequest{
		Email: "lab@hospital.test",
		OTP:   mail.codes["lab@hospital.test"],
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = postJSON(t, router, "/api/auth/resend-otp", ResendOTPRequest{Email: "lab@hospital.test"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "ALREADY_VERIFIED", decodeError(t, rec).Code)
}
