package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dtroode/medisupply-security/internal/service"
)

// HealthChecker reports dependency status.
type HealthChecker interface {
	Check(ctx context.Context) service.HealthReport
}

// BuildInfo is the build metadata injected at link time.
type BuildInfo struct {
	Version string
	Date    string
	Commit  string
}

// Health serves the monitoring endpoints.
type Health struct {
	checker    HealthChecker
	build      BuildInfo
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewHealth creates a new Health handler.
func NewHealth(checker HealthChecker, build BuildInfo, accessTTL, refreshTTL time.Duration) *Health {
	return &Health{checker: checker, build: build, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

type healthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Version   string            `json:"version"`
	Services  map[string]string `json:"services"`
}

type infoResponse struct {
	Name        string       `json:"name"`
	Version     string       `json:"version"`
	BuildDate   string       `json:"build_date"`
	BuildCommit string       `json:"build_commit"`
	Description string       `json:"description"`
	Features    []string     `json:"features"`
	Security    securityInfo `json:"security"`
}

type securityInfo struct {
	EncryptionAlgorithm string `json:"encryption_algorithm"`
	PasswordHashing     string `json:"password_hashing"`
	JWTAlgorithm        string `json:"jwt_algorithm"`
	TokenExpiry         string `json:"token_expiry"`
	RefreshTokenExpiry  string `json:"refresh_token_expiry"`
	RefreshRotation     bool   `json:"refresh_rotation"`
}

// Health reports 200 when every dependency answers and 503 otherwise.
func (h *Health) Health(c *gin.Context) {
	report := h.checker.Check(c.Request.Context())

	status := http.StatusOK
	if !report.Healthy() {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, healthResponse{
		Status:    report.Status,
		Timestamp: report.Timestamp.UTC().Format(time.RFC3339),
		Version:   report.Version,
		Services:  report.Services,
	})
}

// Info describes the service and its security parameters.
func (h *Health) Info(c *gin.Context) {
	c.JSON(http.StatusOK, infoResponse{
		Name:        "MediSupply Security API",
		Version:     h.build.Version,
		BuildDate:   h.build.Date,
		BuildCommit: h.build.Commit,
		Description: "Token-based authentication and field-level encryption of customer data",
		Features: []string{
			"JWT Authentication",
			"Data Encryption",
			"Role-based Access Control",
			"MFA Integration",
			"Audit Logging",
		},
		Security: securityInfo{
			EncryptionAlgorithm: "AES-256-GCM",
			PasswordHashing:     "argon2id",
			JWTAlgorithm:        "HS256",
			TokenExpiry:         h.accessTTL.String(),
			RefreshTokenExpiry:  h.refreshTTL.String(),
			RefreshRotation:     true,
		},
	})
}
