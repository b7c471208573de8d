package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"ticketing-attachments/internal/entities"
	"ticketing-attachments/pkg/clamav"
	apperrors "ticketing-attachments/pkg/errors"
)

// --- вложения ---

type fakeAttachmentRepo struct {
	mu          sync.Mutex
	nextID      uint64
	attachments map[uint64]*entities.Attachment

	createErr       error
	finishScanOK    bool
	finishScanErr   error
	staleReleased   int64
	expired         []entities.Attachment
	findExpiredErr  error
	retentionRows   int64
	retentionCalls  []retentionCall
	markDeletedErr  error
	markDeletedIDs  []uint64
	claimQueue      []*entities.Attachment
	claimErr        error
	finishedVerdict map[uint64]string
}

type retentionCall struct {
	ticketID  uint64
	days      int
	expiresAt time.Time
}

func newFakeAttachmentRepo() *fakeAttachmentRepo {
	return &fakeAttachmentRepo{
		nextID:          1,
		attachments:     make(map[uint64]*entities.Attachment),
		finishScanOK:    true,
		finishedVerdict: make(map[uint64]string),
	}
}

func (f *fakeAttachmentRepo) Create(_ context.Context, a *entities.Attachment) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return 0, f.createErr
	}
	id := f.nextID
	f.nextID++
	stored := *a
	stored.ID = id
	f.attachments[id] = &stored
	return id, nil
}

func (f *fakeAttachmentRepo) FindByTicketAndID(_ context.Context, ticketID, id uint64) (*entities.Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attachments[id]
	if !ok || a.TicketID != ticketID {
		return nil, apperrors.ErrNotFound
	}
	clone := *a
	return &clone, nil
}

func (f *fakeAttachmentRepo) FindActiveByTicketID(_ context.Context, ticketID uint64) ([]entities.Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entities.Attachment
	for _, a := range f.attachments {
		if a.TicketID == ticketID && a.Status == entities.AttachmentStatusActive {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeAttachmentRepo) ClaimNextPending(_ context.Context) (*entities.Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	if len(f.claimQueue) == 0 {
		return nil, nil
	}
	a := f.claimQueue[0]
	f.claimQueue = f.claimQueue[1:]
	return a, nil
}

func (f *fakeAttachmentRepo) FinishScan(_ context.Context, id uint64, verdict string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.finishScanErr != nil {
		return false, f.finishScanErr
	}
	if !f.finishScanOK {
		return false, nil
	}
	f.finishedVerdict[id] = verdict
	return true, nil
}

func (f *fakeAttachmentRepo) ReleaseStaleClaims(_ context.Context, _ time.Time) (int64, error) {
	return f.staleReleased, nil
}

func (f *fakeAttachmentRepo) SetRetention(_ context.Context, ticketID uint64, days int, expiresAt time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retentionCalls = append(f.retentionCalls, retentionCall{ticketID: ticketID, days: days, expiresAt: expiresAt})
	return f.retentionRows, nil
}

func (f *fakeAttachmentRepo) FindExpired(_ context.Context, _ time.Time) ([]entities.Attachment, error) {
	if f.findExpiredErr != nil {
		return nil, f.findExpiredErr
	}
	return f.expired, nil
}

func (f *fakeAttachmentRepo) MarkDeleted(_ context.Context, id uint64, _ time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markDeletedErr != nil {
		return false, f.markDeletedErr
	}
	f.markDeletedIDs = append(f.markDeletedIDs, id)
	return true, nil
}

// --- тикеты ---

type fakeTicketRepo struct {
	tickets  map[uint64]*entities.Ticket
	messages map[uint64][]entities.TicketMessage
	closed   []uint64
	closeErr error
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{
		tickets:  make(map[uint64]*entities.Ticket),
		messages: make(map[uint64][]entities.TicketMessage),
	}
}

func (f *fakeTicketRepo) FindByID(_ context.Context, id uint64) (*entities.Ticket, error) {
	t, ok := f.tickets[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	clone := *t
	return &clone, nil
}

func (f *fakeTicketRepo) FindMessagesByTicketID(_ context.Context, ticketID uint64) ([]entities.TicketMessage, error) {
	return f.messages[ticketID], nil
}

func (f *fakeTicketRepo) Close(_ context.Context, id uint64, closedAt time.Time) (bool, error) {
	if f.closeErr != nil {
		return false, f.closeErr
	}
	f.closed = append(f.closed, id)
	if t, ok := f.tickets[id]; ok {
		t.Status = entities.TicketStatusClosed
		t.ClosedAt.SetValid(closedAt)
	}
	return true, nil
}

// --- аудит ---

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []entities.AuditLog
	err     error
}

func (f *fakeAuditRepo) Append(_ context.Context, e *entities.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, *e)
	return nil
}

func (f *fakeAuditRepo) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e.Action)
	}
	return out
}

// --- хранилище объектов ---

type fakeStorage struct {
	mu         sync.Mutex
	objects    map[string][]byte
	presignErr error
	getErr     error
	getErrOnce bool
	deleteErr  error
	deleted    []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte)}
}

func (f *fakeStorage) PresignPut(_ context.Context, key, _ string, _ time.Duration) (string, error) {
	if f.presignErr != nil {
		return "", f.presignErr
	}
	return "https://s3.local/" + key + "?X-Amz-Signature=put", nil
}

func (f *fakeStorage) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	if f.presignErr != nil {
		return "", f.presignErr
	}
	return "https://s3.local/" + key + "?X-Amz-Signature=get", nil
}

func (f *fakeStorage) Get(_ context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		err := f.getErr
		if f.getErrOnce {
			f.getErr = nil
		}
		return nil, err
	}
	data, ok := f.objects[key]
	if !ok {
		return nil, errors.New("объект не найден: " + key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeStorage) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

// --- антивирус ---

type fakeScanner struct {
	mu      sync.Mutex
	results []scanStep
	calls   int
}

type scanStep struct {
	result clamav.Result
	err    error
}

func (f *fakeScanner) Scan(_ context.Context, r io.Reader) (clamav.Result, error) {
	io.Copy(io.Discard, r)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.results) == 0 {
		return clamav.Result{}, nil
	}
	step := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	return step.result, step.err
}

// --- дерево подразделений ---

type fakeOrgTree map[uint64]struct {
	path     string
	unitType string
}

func (f fakeOrgTree) FindPathAndType(_ context.Context, id uint64) (string, string, error) {
	node, ok := f[id]
	if !ok {
		return "", "", apperrors.ErrNotFound
	}
	return node.path, node.unitType, nil
}
