package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"printshop/internal/models"
	"printshop/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles registration, login and token validation.
type AuthService struct {
	userRepo      repositories.UserRepository
	jwtSecret     []byte
	tokenTTL      time.Duration // Lifetime of customer tokens
	adminTokenTTL time.Duration // Lifetime of admin tokens
	now           func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, jwtSecret string, tokenTTL, adminTokenTTL time.Duration) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 7 * 24 * time.Hour
	}
	if adminTokenTTL <= 0 {
		adminTokenTTL = 24 * time.Hour
	}
	return &AuthService{
		userRepo:      userRepo,
		jwtSecret:     []byte(jwtSecret),
		tokenTTL:      tokenTTL,
		adminTokenTTL: adminTokenTTL,
		now:           time.Now,
	}
}

// RegisterInput is the data needed to create a customer account.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Register creates an active customer account and returns it without the
// password hash.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	existing, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrEmailTaken, models.NormalizeEmail(input.Email))
	}

	hashed, err := hashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Email:     input.Email,
		Password:  hashed,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Role:      models.RoleUser,
		IsActive:  true,
	}
	if _, err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to register user: %w", err)
	}
	user.Password = ""
	return user, nil
}

// Login authenticates a customer or admin and returns a signed token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := s.authenticate(ctx, email, password)
	if err != nil {
		return "", nil, err
	}
	token, err := s.issueToken(user, s.tokenTTL)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// AdminLogin authenticates an active admin, stamps lastLogin and returns a
// short-lived token.
func (s *AuthService) AdminLogin(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := s.authenticate(ctx, email, password)
	if err != nil {
		return "", nil, err
	}
	if user.Role != models.RoleAdmin {
		return "", nil, ErrInvalidCredentials
	}

	now := s.now()
	if err := s.userRepo.Update(ctx, user.ID, models.UserChanges{LastLogin: &now}); err != nil {
		log.Printf("Failed to record last login of %s: %v", user.ID, err)
	} else {
		user.LastLogin = &now
	}

	token, err := s.issueToken(user, s.adminTokenTTL)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (s *AuthService) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	// Unknown email and wrong password look the same to the caller.
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountInactive
	}
	user.Password = ""
	return user, nil
}

func (s *AuthService) issueToken(user *models.User, ttl time.Duration) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"role":    string(user.Role),
		"exp":     now.Add(ttl).Unix(),
		"iat":     now.Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken parses and validates a JWT token, returning the claims if valid.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		log.Printf("Token validation error: %v", err)
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// Identity turns validated claims into the caller identity. Role, permissions
// and activation come from the stored user so revocations apply immediately.
func (s *AuthService) Identity(ctx context.Context, claims jwt.MapClaims) (models.Actor, error) {
	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return models.Actor{}, fmt.Errorf("%w: token has no user", ErrInvalidCredentials)
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return models.Actor{}, err
	}
	if user == nil {
		return models.Actor{}, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}
	return models.Actor{
		UserID:      user.ID,
		Email:       user.Email,
		Role:        user.Role,
		Permissions: user.Permissions,
		IsActive:    user.IsActive,
	}, nil
}
