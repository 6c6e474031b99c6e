//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"github.com/hospms/apiserver/config"
	"github.com/hospms/apiserver/internal/db"
	"github.com/hospms/apiserver/internal/server"
)

const (
	serverPort = 18080
)

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	root, err := repoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to locate repo root: %v\n", err)
		os.Exit(1)
	}

	if err := dockerCompose(ctx, root, "up", "-d"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start docker compose: %v\n", err)
		os.Exit(1)
	}

	setTestEnv()

	if err := waitForPostgres(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "postgres not ready: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	if err := runMigrations(root); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	srv, err := startServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	if err := waitForHealth(ctx, baseURL+"/api/health"); err != nil {
		fmt.Fprintf(os.Stderr, "server not healthy: %v\n", err)
		_ = srv.Shutdown()
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	code := m.Run()

	_ = srv.Shutdown()
	_ = dockerCompose(context.Background(), root, "down")
	os.Exit(code)
}

func TestAuthLifecycle(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	email := fmt.Sprintf("doctor_%d@example.com", time.Now().UnixNano())
	password := "testpass123!"

	status, body := postJSON(t, baseURL+"/api/auth/register", map[string]string{
		"email":    email,
		"password": password,
		"fullName": "Test Doctor",
		"role":     "DOCTOR",
	}, "")
	if status != http.StatusCreated {
		t.Fatalf("register status %d: %s", status, body)
	}

	// Login before verification must fail and return the email for the
	// resend flow.
	status, body = postJSON(t, baseURL+"/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, "")
	if status != http.StatusForbidden {
		t.Fatalf("pre-verify login status %d: %s", status, body)
	}
	if !strings.Contains(body, "VERIFICATION_REQUIRED") || !strings.Contains(body, email) {
		t.Fatalf("unexpected pre-verify login body: %s", body)
	}

	otp, err := fetchOTP(email)
	if err != nil {
		t.Fatalf("fetch otp: %v", err)
	}

	status, body = postJSON(t, baseURL+"/api/auth/verify-otp", map[string]string{
		"email": email,
		"otp":   "000000",
	}, "")
	if status != http.StatusBadRequest || !strings.Contains(body, "INVALID_OTP") {
		t.Fatalf("wrong-code verify status %d: %s", status, body)
	}

	status, body = postJSON(t, baseURL+"/api/auth/verify-otp", map[string]string{
		"email": email,
		"otp":   otp,
	}, "")
	if status != http.StatusOK {
		t.Fatalf("verify status %d: %s", status, body)
	}

	status, body = postJSON(t, baseURL+"/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, "")
	if status != http.StatusOK {
		t.Fatalf("login status %d: %s", status, body)
	}
	var login struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal([]byte(body), &login); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	if login.Token == "" {
		t.Fatalf("missing token in login response")
	}

	// The doctor role passes its own surface but not the admin surface.
	status, body = getWithToken(t, baseURL+"/api/doctor/dashboard", login.Token)
	if status != http.StatusOK {
		t.Fatalf("doctor dashboard status %d: %s", status, body)
	}

	status, body = getWithToken(t, baseURL+"/api/admin/stats", login.Token)
	if status != http.StatusForbidden || !strings.Contains(body, "INSUFFICIENT_PERMISSIONS") {
		t.Fatalf("admin stats as doctor status %d: %s", status, body)
	}

	status, body = getWithToken(t, baseURL+"/api/admin/stats", "")
	if status != http.StatusUnauthorized || !strings.Contains(body, "NO_TOKEN") {
		t.Fatalf("admin stats without token status %d: %s", status, body)
	}

	// Deactivation locks the account out immediately, token or not.
	if err := deactivateUser(email); err != nil {
		t.Fatalf("deactivate user: %v", err)
	}
	status, body = getWithToken(t, baseURL+"/api/doctor/dashboard", login.Token)
	if status != http.StatusForbidden || !strings.Contains(body, "ACCOUNT_DEACTIVATED") {
		t.Fatalf("dashboard after deactivation status %d: %s", status, body)
	}

	status, body = postJSON(t, baseURL+"/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, "")
	if status != http.StatusForbidden || !strings.Contains(body, "ACCOUNT_DEACTIVATED") {
		t.Fatalf("login after deactivation status %d: %s", status, body)
	}
}

func TestReceptionFlow(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	email := fmt.Sprintf("reception_%d@example.com", time.Now().UnixNano())
	password := "testpass123!"

	token := registerVerifiedUser(t, baseURL, email, password, "RECEPTIONIST")

	status, body := postJSON(t, baseURL+"/api/reception/patients", map[string]string{
		"firstName": "Ada",
		"lastName":  "Lovelace",
		"phone":     "5550100",
		"gender":    "F",
	}, token)
	if status != http.StatusCreated {
		t.Fatalf("create patient status %d: %s", status, body)
	}
	var patient struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal([]byte(body), &patient); err != nil {
		t.Fatalf("decode patient: %v", err)
	}

	status, body = postJSON(t, baseURL+"/api/reception/bills", map[string]any{
		"patientId": patient.ID,
		"items": []map[string]any{
			{"label": "Consultation", "quantity": 1, "unitPrice": 500},
			{"label": "Blood Test", "quantity": 2, "unitPrice": 250},
		},
	}, token)
	if status != http.StatusCreated {
		t.Fatalf("create bill status %d: %s", status, body)
	}
	var bill struct {
		ID    string  `json:"id"`
		Total float64 `json:"total"`
	}
	if err := json.Unmarshal([]byte(body), &bill); err != nil {
		t.Fatalf("decode bill: %v", err)
	}
	if bill.Total != 1000 {
		t.Fatalf("expected bill total 1000, got %v", bill.Total)
	}

	status, body = getWithToken(t, baseURL+"/api/reception/patients?q=Lovelace", token)
	if status != http.StatusOK || !strings.Contains(body, patient.ID) {
		t.Fatalf("search patients status %d: %s", status, body)
	}
}

func registerVerifiedUser(t *testing.T, baseURL, email, password, role string) string {
	t.Helper()

	status, body := postJSON(t, baseURL+"/api/auth/register", map[string]string{
		"email":    email,
		"password": password,
		"fullName": "Test " + role,
		"role":     role,
	}, "")
	if status != http.StatusCreated {
		t.Fatalf("register status %d: %s", status, body)
	}

	otp, err := fetchOTP(email)
	if err != nil {
		t.Fatalf("fetch otp: %v", err)
	}
	status, body = postJSON(t, baseURL+"/api/auth/verify-otp", map[string]string{
		"email": email,
		"otp":   otp,
	}, "")
	if status != http.StatusOK {
		t.Fatalf("verify status %d: %s", status, body)
	}

	status, body = postJSON(t, baseURL+"/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, "")
	if status != http.StatusOK {
		t.Fatalf("login status %d: %s", status, body)
	}
	var login struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal([]byte(body), &login); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	return login.Token
}

func postJSON(t *testing.T, url string, payload any, token string) (int, string) {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, strings.TrimSpace(string(data))
}

func getWithToken(t *testing.T, url, token string) (int, string) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, strings.TrimSpace(string(data))
}

// fetchOTP reads the outstanding code straight from the database, the
// same way an operator would when the mail sink is down.
func fetchOTP(email string) (string, error) {
	conn, err := openDB()
	if err != nil {
		return "", err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var otp sql.NullString
	err = conn.QueryRowContext(ctx, "SELECT otp FROM users WHERE email = $1", email).Scan(&otp)
	if err != nil {
		return "", err
	}
	if !otp.Valid {
		return "", fmt.Errorf("no outstanding otp for %s", email)
	}
	return otp.String, nil
}

func deactivateUser(email string) error {
	conn, err := openDB()
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = conn.ExecContext(ctx, "UPDATE users SET is_active = FALSE, updated_at = NOW() WHERE email = $1", email)
	return err
}

func openDB() (*sql.DB, error) {
	cfg := config.LoadConfig()
	return sql.Open("postgres", db.DSN(cfg))
}

func setTestEnv() {
	_ = os.Setenv("JWT_SECRET", "test-secret")
	_ = os.Setenv("SERVER_PORT", fmt.Sprintf("%d", serverPort))
	_ = os.Setenv("DB_HOST", "localhost")
	_ = os.Setenv("DB_PORT", "5432")
	_ = os.Setenv("DB_USER", "hospms")
	_ = os.Setenv("DB_PASSWORD", "hospms")
	_ = os.Setenv("DB_NAME", "hospms")
	_ = os.Setenv("DB_USE_SSL", "false")
	_ = os.Setenv("SMTP_HOST", "localhost")
	_ = os.Setenv("SMTP_PORT", "1025")
	_ = os.Setenv("SMTP_FROM", "noreply@hospms.test")
	_ = os.Setenv("STORAGE_BACKEND", "minio")
	_ = os.Setenv("MINIO_ENDPOINT", "localhost:9000")
	_ = os.Setenv("MINIO_ACCESS_KEY", "minioadmin")
	_ = os.Setenv("MINIO_SECRET_KEY", "minioadmin")
	_ = os.Setenv("MINIO_BUCKET", "hospms")
}

func startServer() (*server.Server, error) {
	cfg := config.LoadConfig()
	srv, err := server.New(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	go func() {
		_ = srv.Start()
	}()

	return srv, nil
}

func waitForPostgres(ctx context.Context) error {
	conn, err := openDB()
	if err != nil {
		return err
	}
	defer conn.Close()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := conn.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres ping timeout: %w", err)
		case <-ticker.C:
		}
	}
}

func waitForHealth(ctx context.Context, url string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			return fmt.Errorf("health check failed with status")
		case <-ticker.C:
		}
	}
}

func runMigrations(root string) error {
	cfg := config.LoadConfig()
	migrationsPath := filepath.Join(root, "internal", "db", "migrations")
	migrationsURL := "file://" + migrationsPath

	migrator, err := migrate.New(migrationsURL, db.DSN(cfg))
	if err != nil {
		return err
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func dockerCompose(ctx context.Context, root string, args ...string) error {
	composeFile := filepath.Join(root, "development", "docker-compose.yml")
	baseArgs := append([]string{"compose", "-f", composeFile}, args...)
	cmd := exec.CommandContext(ctx, "docker", baseArgs...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found")
		}
		dir = parent
	}
}
