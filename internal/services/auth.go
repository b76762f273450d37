package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/stitchfolk/patternhub-backend/internal/data/repos"
	types "github.com/stitchfolk/patternhub-backend/internal/domain"
	"github.com/stitchfolk/patternhub-backend/internal/platform/apierr"
	"github.com/stitchfolk/patternhub-backend/internal/platform/ctxutil"
	"github.com/stitchfolk/patternhub-backend/internal/platform/dbctx"
	"github.com/stitchfolk/patternhub-backend/internal/platform/logger"
)

type JWTClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type AuthService interface {
	Register(ctx context.Context, email, password, name string) (*types.AdminUser, error)
	Login(ctx context.Context, email, password string) (string, *types.AdminUser, error)
	// SetContextFromToken verifies the bearer token and stores the admin
	// identity in the request context.
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	// Approve grants catalog access to a pending admin. Reversible through
	// the activity log.
	Approve(ctx context.Context, actorID uuid.UUID, adminID uuid.UUID) (*types.AdminUser, error)
}

type authService struct {
	db        *gorm.DB
	log       *logger.Logger
	admins    repos.AdminUserRepo
	activity  ActivityService
	jwtSecret string
	accessTTL time.Duration
}

func NewAuthService(
	db *gorm.DB,
	baseLog *logger.Logger,
	admins repos.AdminUserRepo,
	activity ActivityService,
	jwtSecret string,
	accessTTL time.Duration,
) AuthService {
	return &authService{
		db:        db,
		log:       baseLog.With("service", "AuthService"),
		admins:    admins,
		activity:  activity,
		jwtSecret: jwtSecret,
		accessTTL: accessTTL,
	}
}

func (as *authService) Register(ctx context.Context, email, password, name string) (*types.AdminUser, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	if email == "" || !strings.Contains(email, "@") {
		return nil, apierr.Validation("invalid_email", fmt.Errorf("a valid email is required"))
	}
	if len(password) < 8 {
		return nil, apierr.Validation("weak_password", fmt.Errorf("password must be at least 8 characters"))
	}

	dbc := dbctx.Context{Ctx: ctx}
	existing, err := as.admins.GetByEmail(dbc, email)
	if err != nil {
		return nil, apierr.Persistence("admin_lookup_failed", err)
	}
	if existing != nil {
		return nil, apierr.Conflict("email_taken", fmt.Errorf("email %s is already registered", email))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apierr.Internal("password_hash_failed", err)
	}

	// New admins start unapproved; an existing admin grants access.
	admin := &types.AdminUser{
		ID:       uuid.New(),
		Email:    email,
		Password: string(hash),
		Name:     name,
		Approved: false,
	}
	if _, err := as.admins.Create(dbc, []*types.AdminUser{admin}); err != nil {
		if isUniqueViolation(err) {
			return nil, apierr.Conflict("email_taken", fmt.Errorf("email %s is already registered", email))
		}
		return nil, apierr.Persistence("admin_create_failed", err)
	}
	return admin, nil
}

func (as *authService) Login(ctx context.Context, email, password string) (string, *types.AdminUser, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	admin, err := as.admins.GetByEmail(dbctx.Context{Ctx: ctx}, email)
	if err != nil {
		return "", nil, apierr.Persistence("admin_lookup_failed", err)
	}
	if admin == nil {
		return "", nil, apierr.Unauthorized("invalid_credentials", fmt.Errorf("invalid email or password"))
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(password)); err != nil {
		return "", nil, apierr.Unauthorized("invalid_credentials", fmt.Errorf("invalid email or password"))
	}
	if !admin.Approved {
		return "", nil, apierr.Unauthorized("not_approved", fmt.Errorf("account is awaiting approval"))
	}

	token, err := as.generateAccessToken(admin)
	if err != nil {
		return "", nil, apierr.Internal("token_generation_failed", err)
	}
	return token, admin, nil
}

func (as *authService) generateAccessToken(admin *types.AdminUser) (string, error) {
	claims := JWTClaims{
		Email: admin.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   admin.ID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(as.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(as.jwtSecret))
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if tokenString == "" {
		return ctx, apierr.Unauthorized("missing_token", fmt.Errorf("no bearer token supplied"))
	}
	parsedToken, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(as.jwtSecret), nil
	})
	if err != nil {
		return ctx, apierr.Unauthorized("invalid_token", err)
	}
	claims, ok := parsedToken.Claims.(*JWTClaims)
	if !ok || !parsedToken.Valid {
		return ctx, apierr.Unauthorized("invalid_token", fmt.Errorf("invalid or expired token"))
	}
	adminID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, apierr.Unauthorized("invalid_token", fmt.Errorf("invalid subject in token: %w", err))
	}

	rd := &ctxutil.RequestData{
		TokenString: tokenString,
		AdminID:     adminID,
		AdminEmail:  claims.Email,
	}
	return ctxutil.WithRequestData(ctx, rd), nil
}

func (as *authService) Approve(ctx context.Context, actorID uuid.UUID, adminID uuid.UUID) (*types.AdminUser, error) {
	dbc := dbctx.Context{Ctx: ctx}
	admin, err := as.admins.GetByID(dbc, adminID)
	if err != nil {
		return nil, apierr.Persistence("admin_lookup_failed", err)
	}
	if admin == nil {
		return nil, apierr.NotFound("admin_not_found", fmt.Errorf("admin %s not found", adminID))
	}
	if admin.Approved {
		return admin, nil
	}

	if err := as.admins.UpdateFields(dbc, adminID, map[string]interface{}{
		"approved": true,
	}); err != nil {
		return nil, apierr.Persistence("admin_approve_failed", err)
	}
	admin.Approved = true

	details, _ := json.Marshal(adminApproveDetails{
		AdminID: adminID.String(),
		Email:   admin.Email,
	})
	as.activity.Record(dbc, RecordInput{
		ActorID:     actorID,
		ActionKind:  types.ActionAdminApprove,
		TargetType:  "admin",
		TargetID:    &adminID,
		Description: fmt.Sprintf("Approved admin %s", admin.Email),
		Details:     details,
	})
	return admin, nil
}
