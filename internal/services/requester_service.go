package services

import (
	"context"

	"go.uber.org/zap"

	"ticketing-attachments/internal/authz"
	"ticketing-attachments/internal/entities"
	"ticketing-attachments/internal/repositories"
	apperrors "ticketing-attachments/pkg/errors"
	"ticketing-attachments/pkg/utils"
)

// Requester — аутентифицированный инициатор запроса вместе с его привилегиями.
type Requester struct {
	User *entities.User
	Caps authz.CapabilitySet
}

// RequestMeta — сведения о запросе для журнала аудита.
type RequestMeta struct {
	IP        string
	UserAgent string
	Path      string
	Method    string
}

type RequesterServiceInterface interface {
	// Resolve достает UserID из контекста (его туда кладет auth middleware)
	// и собирает пользователя с привилегиями его роли.
	Resolve(ctx context.Context) (*Requester, error)
}

type RequesterService struct {
	userRepo     repositories.UserRepositoryInterface
	capabilities CapabilityServiceInterface
	logger       *zap.Logger
}

func NewRequesterService(
	userRepo repositories.UserRepositoryInterface,
	capabilities CapabilityServiceInterface,
	logger *zap.Logger,
) RequesterServiceInterface {
	return &RequesterService{
		userRepo:     userRepo,
		capabilities: capabilities,
		logger:       logger,
	}
}

func (s *RequesterService) Resolve(ctx context.Context) (*Requester, error) {
	userID, err := utils.GetUserIDFromCtx(ctx)
	if err != nil {
		return nil, apperrors.NewHttpError(401, apperrors.ErrUnauthorized.Error(), err, nil)
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		s.logger.Warn("RequesterService: пользователь из токена не найден", zap.Uint64("userID", userID), zap.Error(err))
		return nil, apperrors.NewHttpError(401, apperrors.ErrUnauthorized.Error(), err, nil)
	}

	caps := authz.CapabilitySet{}
	if user.RoleID.Valid {
		caps, err = s.capabilities.GetRoleCapabilities(ctx, user.RoleID.Uint64)
		if err != nil {
			return nil, err
		}
	}

	return &Requester{User: user, Caps: caps}, nil
}
