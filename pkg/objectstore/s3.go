package objectstore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"ticketing-attachments/pkg/config"
)

type S3Storage struct {
	client        *s3.Client
	presigner     *s3.PresignClient
	bucket        string
	publicBaseURL string
	timeout       time.Duration
}

// NewS3Storage создает шлюз к S3-совместимому хранилищу (MinIO, AWS S3).
func NewS3Storage(cfg config.S3Config) (*S3Storage, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("не удалось собрать конфигурацию AWS SDK: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		// MinIO не понимает virtual-hosted адресацию
		o.UsePathStyle = true
	})

	return &S3Storage{
		client:        client,
		presigner:     s3.NewPresignClient(client),
		bucket:        cfg.Bucket,
		publicBaseURL: cfg.PublicBaseURL,
		timeout:       cfg.Timeout,
	}, nil
}

func (s *S3Storage) PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, func(o *s3.PresignOptions) { o.Expires = ttl })
	if err != nil {
		return "", fmt.Errorf("не удалось подписать PUT для ключа %s: %w", key, err)
	}

	return RewritePresignedURL(req.URL, s.publicBaseURL)
}

func (s *S3Storage) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(o *s3.PresignOptions) { o.Expires = ttl })
	if err != nil {
		return "", fmt.Errorf("не удалось подписать GET для ключа %s: %w", key, err)
	}

	return RewritePresignedURL(req.URL, s.publicBaseURL)
}

func (s *S3Storage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	// Тело ответа привязано к контексту, поэтому отменять его здесь нельзя:
	// поток читается вызывающей стороной уже после возврата. Контекст живет
	// до Close тела, таймаут ограничивает все чтение целиком.
	ctx, cancel := context.WithTimeout(ctx, s.timeout)

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("не удалось получить объект %s: %w", key, err)
	}
	return &cancelOnClose{ReadCloser: out.Body, cancel: cancel}, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

func (s *S3Storage) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	// DeleteObject в S3 идемпотентен: удаление отсутствующего ключа не ошибка
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("не удалось удалить объект %s: %w", key, err)
	}
	return nil
}

// RewritePresignedURL заменяет схему и хост подписанной ссылки на публичный
// адрес. Path и query переносятся байт-в-байт: любое переупорядочивание или
// перекодирование параметров ломает подпись.
func RewritePresignedURL(presigned, publicBaseURL string) (string, error) {
	if publicBaseURL == "" {
		return presigned, nil
	}

	u, err := url.Parse(presigned)
	if err != nil {
		return "", fmt.Errorf("некорректная подписанная ссылка: %w", err)
	}

	pub, err := url.Parse(publicBaseURL)
	if err != nil || pub.Scheme == "" || pub.Host == "" {
		return "", fmt.Errorf("некорректный публичный адрес хранилища: %q", publicBaseURL)
	}

	if !strings.HasPrefix(u.Path, "/") {
		return "", fmt.Errorf("подписанная ссылка без пути: %q", presigned)
	}

	out := pub.Scheme + "://" + pub.Host + u.EscapedPath()
	if u.RawQuery != "" {
		out += "?" + u.RawQuery
	}
	return out, nil
}
