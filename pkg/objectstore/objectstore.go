package objectstore

import (
	"context"
	"io"
	"time"
)

// ObjectStorageInterface определяет контракт шлюза к блобовому хранилищу.
// Подписанные ссылки выдаются с ограниченным временем жизни; Delete обязан
// быть идемпотентным, чтобы повторный запуск очистки не падал на уже
// удаленном объекте.
type ObjectStorageInterface interface {
	PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
