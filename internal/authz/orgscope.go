package authz

import (
	"context"
	"strings"
)

// Уровни области видимости пользователя.
const (
	ScopeSelf     = "SELF"
	ScopeSchool   = "SCHOOL"
	ScopeRegion   = "REGION"
	ScopeProvince = "PROVINCE"
	ScopeMinistry = "MINISTRY"
)

// соответствие уровня области типу узла в дереве подразделений
var scopeTargetType = map[string]string{
	ScopeSchool:   "school",
	ScopeRegion:   "region",
	ScopeProvince: "province",
	ScopeMinistry: "ministry",
}

// OrgUnitLookup — минимальный контракт чтения дерева подразделений,
// который нужен проверке области видимости.
type OrgUnitLookup interface {
	FindPathAndType(ctx context.Context, id uint64) (path string, unitType string, err error)
}

// OrgScope проверяет иерархическое вхождение целевого подразделения
// в область видимости наблюдателя по материализованным путям.
type OrgScope struct {
	orgUnits OrgUnitLookup
}

func NewOrgScope(orgUnits OrgUnitLookup) *OrgScope {
	return &OrgScope{orgUnits: orgUnits}
}

// InScope возвращает true, если target находится внутри области видимости
// наблюдателя с данным уровнем. Ошибки чтения дерева трактуются как отказ.
func (s *OrgScope) InScope(ctx context.Context, viewerOrgUnitID uint64, scopeLevel string, targetOrgUnitID uint64) (bool, error) {
	if viewerOrgUnitID == 0 || targetOrgUnitID == 0 {
		return false, nil
	}

	rootPath, err := s.scopeRootPath(ctx, viewerOrgUnitID, scopeLevel)
	if err != nil {
		return false, err
	}
	if rootPath == "" {
		return false, nil
	}

	targetPath, _, err := s.orgUnits.FindPathAndType(ctx, targetOrgUnitID)
	if err != nil {
		return false, err
	}

	return strings.HasPrefix(targetPath, rootPath), nil
}

// scopeRootPath вычисляет путь-корень области: для SELF — путь самого
// наблюдателя, иначе путь ближайшего предка нужного типа (или собственный
// путь, если предок не найден).
func (s *OrgScope) scopeRootPath(ctx context.Context, viewerOrgUnitID uint64, scopeLevel string) (string, error) {
	viewerPath, viewerType, err := s.orgUnits.FindPathAndType(ctx, viewerOrgUnitID)
	if err != nil {
		return "", err
	}

	level := strings.ToUpper(scopeLevel)
	if level == "" {
		level = ScopeSelf
	}
	if level == ScopeSelf {
		return viewerPath, nil
	}

	targetType, ok := scopeTargetType[level]
	if !ok {
		return viewerPath, nil
	}
	if viewerType == targetType {
		return viewerPath, nil
	}

	// идем по предкам справа налево, исключая самого наблюдателя
	ancestors := ancestorIDs(viewerPath)
	for i := len(ancestors) - 1; i >= 0; i-- {
		path, unitType, err := s.orgUnits.FindPathAndType(ctx, ancestors[i])
		if err != nil {
			continue
		}
		if unitType == targetType {
			return path, nil
		}
	}

	return viewerPath, nil
}

// ancestorIDs разбирает путь /00000001/00000002/00000003 в срез id предков
// (без последнего узла — самого владельца пути).
func ancestorIDs(path string) []uint64 {
	parts := strings.Split(path, "/")
	var ids []uint64
	for _, p := range parts {
		if p == "" {
			continue
		}
		var id uint64
		for _, r := range p {
			if r < '0' || r > '9' {
				return ids
			}
			id = id*10 + uint64(r-'0')
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil
	}
	return ids[:len(ids)-1]
}
