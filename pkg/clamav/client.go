// Пакет clamav реализует клиент протокола clamd INSTREAM: поток байт
// передается кадрами <длина uint32 BE><данные>, нулевая длина — конец.
// Ответ демона: "stream: OK" либо "stream: <сигнатура> FOUND".
package clamav

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"strings"
	"time"
)

const chunkSize = 64 * 1024

// Result — вердикт антивируса по потоку.
type Result struct {
	Infected  bool
	Signature string
}

// ScannerInterface определяет контракт клиента антивирусного демона.
// Ошибка означает сбой связи или протокола (можно повторить попытку);
// положительное срабатывание — это НЕ ошибка, а Result.Infected.
type ScannerInterface interface {
	Scan(ctx context.Context, r io.Reader) (Result, error)
}

type Client struct {
	addr    string
	timeout time.Duration
}

func NewClient(host string, port int, timeout time.Duration) *Client {
	return &Client{
		addr:    net.JoinHostPort(host, fmt.Sprintf("%d", port)),
		timeout: timeout,
	}
}

func (c *Client) Scan(ctx context.Context, r io.Reader) (Result, error) {
	dialer := net.Dialer{Timeout: c.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return Result{}, fmt.Errorf("не удалось подключиться к clamd %s: %w", c.addr, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return Result{}, err
	}

	if _, err := conn.Write([]byte("nINSTREAM\n")); err != nil {
		return Result{}, fmt.Errorf("ошибка отправки команды INSTREAM: %w", err)
	}

	buf := make([]byte, chunkSize)
	var frame [4]byte
	for {
		n, readErr := r.Read(buf)
		if n > 0 {
			binary.BigEndian.PutUint32(frame[:], uint32(n))
			if _, err := conn.Write(frame[:]); err != nil {
				return Result{}, fmt.Errorf("ошибка отправки кадра: %w", err)
			}
			if _, err := conn.Write(buf[:n]); err != nil {
				return Result{}, fmt.Errorf("ошибка отправки данных: %w", err)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return Result{}, fmt.Errorf("ошибка чтения потока вложения: %w", readErr)
		}
	}

	// нулевой кадр — признак конца потока
	binary.BigEndian.PutUint32(frame[:], 0)
	if _, err := conn.Write(frame[:]); err != nil {
		return Result{}, fmt.Errorf("ошибка завершения потока: %w", err)
	}

	resp, err := readLine(conn)
	if err != nil {
		return Result{}, fmt.Errorf("ошибка чтения ответа clamd: %w", err)
	}

	return parseResponse(resp)
}

func readLine(conn net.Conn) (string, error) {
	var sb strings.Builder
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			sb.Write(buf[:n])
			if strings.Contains(sb.String(), "\n") {
				break
			}
		}
		if err != nil {
			if err == io.EOF && sb.Len() > 0 {
				break
			}
			return "", err
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

func parseResponse(text string) (Result, error) {
	// FOUND проверяется первым: имя сигнатуры само может содержать "OK"
	// (например "Win.Trojan.LOKI FOUND")
	switch {
	case strings.HasSuffix(text, " FOUND"):
		sig := strings.TrimSuffix(strings.TrimPrefix(text, "stream:"), "FOUND")
		return Result{Infected: true, Signature: strings.TrimSpace(sig)}, nil
	case strings.HasSuffix(text, " OK") || text == "OK":
		return Result{}, nil
	default:
		return Result{}, fmt.Errorf("неожиданный ответ clamd: %q", text)
	}
}
