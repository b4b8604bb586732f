package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/classtrack/classtrack-api/internal/models"
	appErrors "github.com/classtrack/classtrack-api/pkg/errors"
)

type studentCredentialReader interface {
	FindByEmail(ctx context.Context, email string) (*models.Student, error)
}

type teacherCredentialReader interface {
	FindByName(ctx context.Context, name string) (*models.Teacher, error)
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

// AuthService authenticates students and teachers against the seeded
// rosters and issues access tokens.
type AuthService struct {
	students  studentCredentialReader
	teachers  teacherCredentialReader
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(students studentCredentialReader, teachers teacherCredentialReader, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AuthService{students: students, teachers: teachers, validator: validate, logger: logger, config: config}
}

// Login validates credentials for the requested role and returns a token.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	var (
		userID int64
		name   string
		hash   string
	)
	switch req.Role {
	case models.RoleStudent:
		student, err := s.students.FindByEmail(ctx, req.Email)
		if err != nil {
			return nil, credentialLookupError(err)
		}
		userID, name, hash = student.ID, student.Name, student.PasswordHash
	case models.RoleTeacher:
		teacher, err := s.teachers.FindByName(ctx, req.Name)
		if err != nil {
			return nil, credentialLookupError(err)
		}
		userID, name, hash = teacher.ID, teacher.Name, teacher.PasswordHash
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown role")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid credentials")
	}

	token, err := s.generateAccessToken(req.Role, userID, name)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	s.logger.Info("login", zap.String("role", req.Role), zap.Int64("user_id", userID))

	return &models.LoginResponse{
		AccessToken: token,
		Role:        req.Role,
		UserID:      userID,
		Name:        name,
	}, nil
}

func credentialLookupError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid credentials")
	}
	return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "credential lookup failed")
}

func (s *AuthService) generateAccessToken(role string, userID int64, name string) (string, error) {
	now := time.Now().UTC()
	claims := &models.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.Expiration)),
		},
		Role:   role,
		UserID: userID,
		Name:   name,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.Secret))
}

// ValidateToken parses and verifies an access token.
func (s *AuthService) ValidateToken(raw string) (*models.JWTClaims, error) {
	claims := &models.JWTClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.config.Secret), nil
	})
	if err != nil || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired token")
	}
	return claims, nil
}
