package auth

import (
	"log/slog"
	"strconv"

	userDatamodel "github.com/VivaainNg/finance-tracker/internal/core/datamodel/user"
)

type ServiceAPI interface {
	Authenticate(dto LoginDTO) (AuthTokens, error)
	Register(dto RegisterDTO) (*User, error)
	RefreshTokens(refreshToken string) (AuthTokens, error)
	ValidateAccessToken(tokenString string) (*Claims, error)
	GetUserByID(userID int64) (*User, error)
}

type RepositoryAPI interface {
	GetByUsername(username string) (*userDatamodel.User, error)
	GetByID(id int64) (*userDatamodel.User, error)
	Create(user *userDatamodel.User) error
}

type Service struct {
	userRepo   RepositoryAPI
	tokens     TokenGeneratorAPI
	bcryptCost int
	logger     *slog.Logger
}

func NewService(userRepo RepositoryAPI, tokens TokenGeneratorAPI, bcryptCost int, logger *slog.Logger) *Service {
	return &Service{
		userRepo:   userRepo,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// Authenticate validates credentials and returns a token pair.
func (s *Service) Authenticate(dto LoginDTO) (AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return AuthTokens{}, err
	}

	record, err := s.userRepo.GetByUsername(dto.Username)
	if err != nil || record == nil {
		return AuthTokens{}, ErrInvalidCredentials
	}

	if !record.IsActive {
		return AuthTokens{}, ErrUserInactive
	}

	if err := VerifyPassword(record.PasswordHash, dto.Password); err != nil {
		return AuthTokens{}, ErrInvalidCredentials
	}

	return s.issueTokens(record.ID, record.Username)
}

// Register creates a new user account with a bcrypt password hash.
func (s *Service) Register(dto RegisterDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if existing, err := s.userRepo.GetByUsername(dto.Username); err == nil && existing != nil {
		return nil, ErrUsernameTaken
	}

	hash, err := HashPassword(dto.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	record := &userDatamodel.User{
		Username:     dto.Username,
		Email:        dto.Email,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.userRepo.Create(record); err != nil {
		s.logger.Error("failed to create user", "error", err, "username", dto.Username)
		return nil, err
	}

	return &User{ID: record.ID, Username: record.Username}, nil
}

// RefreshTokens validates a refresh token and returns a fresh pair.
func (s *Service) RefreshTokens(refreshToken string) (AuthTokens, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return AuthTokens{}, err
	}

	userID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		return AuthTokens{}, ErrInvalidToken
	}

	record, err := s.userRepo.GetByID(userID)
	if err != nil || record == nil {
		return AuthTokens{}, ErrInvalidToken
	}
	if !record.IsActive {
		return AuthTokens{}, ErrUserInactive
	}

	return s.issueTokens(record.ID, record.Username)
}

func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.tokens.ValidateAccessToken(tokenString)
}

func (s *Service) GetUserByID(userID int64) (*User, error) {
	record, err := s.userRepo.GetByID(userID)
	if err != nil || record == nil {
		return nil, ErrInvalidToken
	}
	return &User{ID: record.ID, Username: record.Username}, nil
}

func (s *Service) issueTokens(userID int64, username string) (AuthTokens, error) {
	id := strconv.FormatInt(userID, 10)

	accessToken, err := s.tokens.GenerateAccessToken(id, username)
	if err != nil {
		return AuthTokens{}, err
	}

	refreshToken, err := s.tokens.GenerateRefreshToken(id, username)
	if err != nil {
		return AuthTokens{}, err
	}

	return AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}
