package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ticketing-attachments/internal/authz"
	"ticketing-attachments/internal/repositories"
	apperrors "ticketing-attachments/pkg/errors"
)

// CapabilityServiceInterface отвечает за превращение роли пользователя
// в множество привилегий с кешированием в Redis.
type CapabilityServiceInterface interface {
	GetRoleCapabilities(ctx context.Context, roleID uint64) (authz.CapabilitySet, error)
	InvalidateRoleCache(ctx context.Context, roleID uint64) error
}

type CapabilityService struct {
	roleRepo  repositories.RoleRepositoryInterface
	cacheRepo repositories.CacheRepositoryInterface
	logger    *zap.Logger
	cacheTTL  time.Duration
}

func NewCapabilityService(
	roleRepo repositories.RoleRepositoryInterface,
	cacheRepo repositories.CacheRepositoryInterface,
	logger *zap.Logger,
	cacheTTL time.Duration,
) CapabilityServiceInterface {
	return &CapabilityService{
		roleRepo:  roleRepo,
		cacheRepo: cacheRepo,
		logger:    logger,
		cacheTTL:  cacheTTL,
	}
}

func (s *CapabilityService) GetRoleCapabilities(ctx context.Context, roleID uint64) (authz.CapabilitySet, error) {
	cacheKey := fmt.Sprintf("authz:capabilities:role:%d", roleID)

	// 1. Попытка получить данные из Redis-кеша
	cachedJSON, errGet := s.cacheRepo.Get(ctx, cacheKey)
	if errGet == nil {
		var names []string
		if err := json.Unmarshal([]byte(cachedJSON), &names); err == nil {
			return authz.NewCapabilitySet(names...), nil
		}
		s.logger.Warn("CapabilityService: Ошибка десериализации привилегий из кеша",
			zap.String("key", cacheKey), zap.Uint64("roleID", roleID))
	}

	// 2. Кеша нет — читаем роль из базы
	role, err := s.roleRepo.FindByID(ctx, roleID)
	if err != nil {
		s.logger.Error("CapabilityService: Не удалось получить роль из БД",
			zap.Uint64("roleID", roleID), zap.Error(err))
		return nil, apperrors.ErrInternalServer
	}

	caps := authz.ParseCapabilities(role.Permissions.String)

	// 3. Кешируем обратно; сбой кеша не фатален
	if namesJSON, errMarshal := json.Marshal(caps.Names()); errMarshal == nil {
		if errSet := s.cacheRepo.Set(ctx, cacheKey, string(namesJSON), s.cacheTTL); errSet != nil {
			s.logger.Warn("CapabilityService: Не удалось закешировать привилегии",
				zap.Uint64("roleID", roleID), zap.Error(errSet))
		}
	}

	return caps, nil
}

func (s *CapabilityService) InvalidateRoleCache(ctx context.Context, roleID uint64) error {
	cacheKey := fmt.Sprintf("authz:capabilities:role:%d", roleID)
	return s.cacheRepo.Del(ctx, cacheKey)
}
