package clamav

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClamd поднимает TCP-слушатель, читает кадры INSTREAM и отвечает
// заданной строкой. Возвращает адрес и канал с принятыми байтами.
func fakeClamd(t *testing.T, response string) (host string, port int, received <-chan []byte) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	ch := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		// команда
		cmd := make([]byte, len("nINSTREAM\n"))
		if _, err := io.ReadFull(conn, cmd); err != nil {
			return
		}

		// кадры до нулевого
		var payload []byte
		var frame [4]byte
		for {
			if _, err := io.ReadFull(conn, frame[:]); err != nil {
				return
			}
			n := binary.BigEndian.Uint32(frame[:])
			if n == 0 {
				break
			}
			chunk := make([]byte, n)
			if _, err := io.ReadFull(conn, chunk); err != nil {
				return
			}
			payload = append(payload, chunk...)
		}
		ch <- payload

		conn.Write([]byte(response + "\n"))
	}()

	addr := ln.Addr().String()
	h, p, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	pn, err := strconv.Atoi(p)
	require.NoError(t, err)
	return h, pn, ch
}

func TestScan_Clean(t *testing.T) {
	host, port, received := fakeClamd(t, "stream: OK")
	client := NewClient(host, port, 5*time.Second)

	res, err := client.Scan(context.Background(), strings.NewReader("безобидное содержимое"))
	require.NoError(t, err)
	assert.False(t, res.Infected)

	assert.Equal(t, []byte("безобидное содержимое"), <-received)
}

func TestScan_Infected(t *testing.T) {
	host, port, _ := fakeClamd(t, "stream: Eicar-Test-Signature FOUND")
	client := NewClient(host, port, 5*time.Second)

	res, err := client.Scan(context.Background(), strings.NewReader("X5O!P%@AP"))
	require.NoError(t, err)
	assert.True(t, res.Infected)
	assert.Equal(t, "Eicar-Test-Signature", res.Signature)
}

func TestScan_ProtocolError(t *testing.T) {
	host, port, _ := fakeClamd(t, "stream: INSTREAM size limit exceeded. ERROR")
	client := NewClient(host, port, 5*time.Second)

	_, err := client.Scan(context.Background(), strings.NewReader("payload"))
	assert.Error(t, err)
}

func TestScan_ConnectionRefused(t *testing.T) {
	// порт с закрытым слушателем
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	h, p, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	pn, _ := strconv.Atoi(p)

	client := NewClient(h, pn, time.Second)
	_, err = client.Scan(context.Background(), strings.NewReader("data"))
	assert.Error(t, err)
}

func TestScan_ChunksLargePayload(t *testing.T) {
	host, port, received := fakeClamd(t, "stream: OK")
	client := NewClient(host, port, 5*time.Second)

	payload := strings.Repeat("a", chunkSize+1234)
	res, err := client.Scan(context.Background(), strings.NewReader(payload))
	require.NoError(t, err)
	assert.False(t, res.Infected)
	assert.Len(t, <-received, len(payload))
}

func TestScan_InfectedSignatureContainingOK(t *testing.T) {
	// "OK" внутри имени сигнатуры не должно превращать вердикт в чистый
	host, port, _ := fakeClamd(t, "stream: Win.Trojan.LOKI FOUND")
	client := NewClient(host, port, 5*time.Second)

	res, err := client.Scan(context.Background(), strings.NewReader("payload"))
	require.NoError(t, err)
	assert.True(t, res.Infected)
	assert.Equal(t, "Win.Trojan.LOKI", res.Signature)
}
