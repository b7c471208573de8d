package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ticketing-attachments/internal/entities"
	"ticketing-attachments/pkg/clamav"
	"ticketing-attachments/pkg/config"
)

func testScannerConfig() config.ScannerConfig {
	return config.ScannerConfig{
		PollInterval: time.Second,
		BatchSize:    20,
		MaxAttempts:  3,
		RetryBackoff: time.Millisecond,
		ClaimTTL:     10 * time.Minute,
	}
}

func newScanFixture(scanner *fakeScanner) (*fakeAttachmentRepo, *fakeAuditRepo, *fakeStorage, *ScanService) {
	attachRepo := newFakeAttachmentRepo()
	auditRepo := &fakeAuditRepo{}
	storage := newFakeStorage()
	svc := NewScanService(attachRepo, auditRepo, storage, scanner, testScannerConfig(), zap.NewNop())
	svc.sleep = func(context.Context, time.Duration) error { return nil }
	return attachRepo, auditRepo, storage, svc
}

func enqueue(repo *fakeAttachmentRepo, storage *fakeStorage, id uint64, key string, payload []byte) {
	storage.objects[key] = payload
	repo.claimQueue = append(repo.claimQueue, &entities.Attachment{
		ID:            id,
		TicketID:      10,
		ObjectKey:     key,
		ScannedStatus: entities.ScanStatusScanning,
	})
}

func TestScanService_CleanVerdict(t *testing.T) {
	scanner := &fakeScanner{}
	attachRepo, auditRepo, storage, svc := newScanFixture(scanner)
	enqueue(attachRepo, storage, 1, "tickets/10/a.txt", []byte("доброе вложение"))

	require.NoError(t, svc.RunOnce(context.Background()))

	assert.Equal(t, entities.ScanStatusClean, attachRepo.finishedVerdict[1])
	assert.Contains(t, auditRepo.actions(), entities.AuditActionScanned)
}

func TestScanService_InfectedVerdict(t *testing.T) {
	scanner := &fakeScanner{results: []scanStep{
		{result: clamav.Result{Infected: true, Signature: "Eicar-Signature"}},
	}}
	attachRepo, auditRepo, storage, svc := newScanFixture(scanner)
	enqueue(attachRepo, storage, 1, "tickets/10/virus.exe", []byte("x"))

	require.NoError(t, svc.RunOnce(context.Background()))

	assert.Equal(t, entities.ScanStatusInfected, attachRepo.finishedVerdict[1])
	assert.Equal(t, 1, scanner.calls, "зараженное вложение не пересканируется")
	require.Len(t, auditRepo.entries, 1)
	assert.Equal(t, "Eicar-Signature", auditRepo.entries[0].Diff["signature"])
}

func TestScanService_TransientErrorRetried(t *testing.T) {
	scanner := &fakeScanner{results: []scanStep{
		{err: errors.New("clamd: обрыв соединения")},
		{result: clamav.Result{}},
	}}
	attachRepo, _, storage, svc := newScanFixture(scanner)
	enqueue(attachRepo, storage, 1, "tickets/10/a.txt", []byte("x"))

	require.NoError(t, svc.RunOnce(context.Background()))

	assert.Equal(t, entities.ScanStatusClean, attachRepo.finishedVerdict[1])
	assert.Equal(t, 2, scanner.calls)
}

func TestScanService_ExhaustedAttemptsFailed(t *testing.T) {
	scanner := &fakeScanner{results: []scanStep{
		{err: errors.New("clamd недоступен")},
	}}
	attachRepo, _, storage, svc := newScanFixture(scanner)
	enqueue(attachRepo, storage, 1, "tickets/10/a.txt", []byte("x"))

	require.NoError(t, svc.RunOnce(context.Background()))

	assert.Equal(t, entities.ScanStatusFailed, attachRepo.finishedVerdict[1])
	assert.Equal(t, 3, scanner.calls)
}

func TestScanService_StorageErrorRetriedThenFailed(t *testing.T) {
	scanner := &fakeScanner{}
	attachRepo, _, _, svc := newScanFixture(scanner)
	// объект так и не появился в хранилище
	attachRepo.claimQueue = append(attachRepo.claimQueue, &entities.Attachment{
		ID: 1, TicketID: 10, ObjectKey: "tickets/10/missing.bin",
	})

	require.NoError(t, svc.RunOnce(context.Background()))

	assert.Equal(t, entities.ScanStatusFailed, attachRepo.finishedVerdict[1])
	assert.Zero(t, scanner.calls)
}

func TestScanService_LostClaimVerdictDiscarded(t *testing.T) {
	scanner := &fakeScanner{}
	attachRepo, auditRepo, storage, svc := newScanFixture(scanner)
	enqueue(attachRepo, storage, 1, "tickets/10/a.txt", []byte("x"))
	attachRepo.finishScanOK = false

	require.NoError(t, svc.RunOnce(context.Background()))

	// вердикт отброшен: ни записи вердикта, ни записи аудита
	assert.Empty(t, attachRepo.finishedVerdict)
	assert.Empty(t, auditRepo.actions())
}

func TestScanService_OneFailureDoesNotHaltBatch(t *testing.T) {
	scanner := &fakeScanner{}
	attachRepo, _, storage, svc := newScanFixture(scanner)
	// первый объект отсутствует в хранилище, второй в порядке
	attachRepo.claimQueue = append(attachRepo.claimQueue, &entities.Attachment{
		ID: 1, TicketID: 10, ObjectKey: "tickets/10/missing.bin",
	})
	enqueue(attachRepo, storage, 2, "tickets/10/b.txt", []byte("x"))

	require.NoError(t, svc.RunOnce(context.Background()))

	assert.Equal(t, entities.ScanStatusFailed, attachRepo.finishedVerdict[1])
	assert.Equal(t, entities.ScanStatusClean, attachRepo.finishedVerdict[2])
}

func TestScanService_EmptyQueue(t *testing.T) {
	scanner := &fakeScanner{}
	_, _, _, svc := newScanFixture(scanner)

	require.NoError(t, svc.RunOnce(context.Background()))
	assert.Zero(t, scanner.calls)
}

func TestScanService_ContextCancelledStopsBatch(t *testing.T) {
	scanner := &fakeScanner{}
	attachRepo, _, storage, svc := newScanFixture(scanner)
	enqueue(attachRepo, storage, 1, "tickets/10/a.txt", []byte("x"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := svc.RunOnce(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, attachRepo.finishedVerdict)
}
