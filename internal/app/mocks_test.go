package app

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	notificationclient "github.com/openctemio/scanledger/internal/infra/notification"
	"github.com/openctemio/scanledger/pkg/domain/notification"
	"github.com/openctemio/scanledger/pkg/domain/shared"
	"github.com/openctemio/scanledger/pkg/domain/user"
	"github.com/openctemio/scanledger/pkg/domain/vulnerability"
)

var errBoom = errors.New("boom")

// =============================================================================
// Finding repository
// =============================================================================

type mockFindingRepo struct {
	mu        sync.Mutex
	findings  map[shared.ID]*vulnerability.Finding
	listErr   error
	updateErr error
	listCalls int
	updates   int
}

func newMockFindingRepo(findings ...*vulnerability.Finding) *mockFindingRepo {
	m := &mockFindingRepo{findings: make(map[shared.ID]*vulnerability.Finding)}
	for _, f := range findings {
		m.findings[f.ID()] = f
	}
	return m
}

func (m *mockFindingRepo) CreateBatch(_ context.Context, findings []*vulnerability.Finding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range findings {
		m.findings[f.ID()] = f
	}
	return nil
}

func (m *mockFindingRepo) CreateBatchInTx(ctx context.Context, _ *sql.Tx, findings []*vulnerability.Finding) error {
	return m.CreateBatch(ctx, findings)
}

func (m *mockFindingRepo) GetByID(_ context.Context, id shared.ID) (*vulnerability.Finding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.findings[id]
	if !ok {
		return nil, vulnerability.NotFoundError(id)
	}
	return f, nil
}

func (m *mockFindingRepo) Update(_ context.Context, f *vulnerability.Finding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	m.findings[f.ID()] = f
	m.updates++
	return nil
}

func (m *mockFindingRepo) ListUnclosed(_ context.Context) ([]*vulnerability.Finding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]*vulnerability.Finding, 0, len(m.findings))
	for _, f := range m.findings {
		if !f.IsClosed() {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *mockFindingRepo) CountByScan(_ context.Context, scanID shared.ID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, f := range m.findings {
		if f.ScanID() == scanID {
			n++
		}
	}
	return n, nil
}

// =============================================================================
// User repository
// =============================================================================

type mockUserRepo struct {
	users      map[shared.ID]*user.User
	listErr    error
	namesErr   error
	namesCalls [][]shared.ID
}

func newMockUserRepo(users ...*user.User) *mockUserRepo {
	m := &mockUserRepo{users: make(map[shared.ID]*user.User)}
	for _, u := range users {
		m.users[u.ID()] = u
	}
	return m
}

func (m *mockUserRepo) Create(_ context.Context, u *user.User) error {
	m.users[u.ID()] = u
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id shared.ID) (*user.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, user.NotFoundError(id)
	}
	return u, nil
}

func (m *mockUserRepo) ListIngestRecipients(_ context.Context) ([]*user.User, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]*user.User, 0, len(m.users))
	for _, u := range m.users {
		if u.IsIngestRecipient() {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *mockUserRepo) GetDisplayNames(_ context.Context, ids []shared.ID) (map[shared.ID]string, error) {
	m.namesCalls = append(m.namesCalls, ids)
	if m.namesErr != nil {
		return nil, m.namesErr
	}
	out := make(map[shared.ID]string, len(ids))
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out[id] = u.DisplayName()
		}
	}
	return out, nil
}

// =============================================================================
// Notifications
// =============================================================================

type mockNotificationRepo struct {
	mu        sync.Mutex
	stored    map[shared.ID]*notification.Notification
	createErr error
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{stored: make(map[shared.ID]*notification.Notification)}
}

func (m *mockNotificationRepo) Create(_ context.Context, n *notification.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.stored[n.ID()] = n
	return nil
}

func (m *mockNotificationRepo) ListByRecipient(_ context.Context, recipientID shared.ID, limit int) ([]*notification.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*notification.Notification, 0)
	for _, n := range m.stored {
		if n.RecipientID() == recipientID && len(out) < limit {
			out = append(out, n)
		}
	}
	return out, nil
}

type mockDispatcher struct {
	mu      sync.Mutex
	sent    []notification.Params
	failFor map[shared.ID]bool
}

func (m *mockDispatcher) Dispatch(_ context.Context, p notification.Params) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor[p.RecipientID] {
		return errBoom
	}
	m.sent = append(m.sent, p)
	return nil
}

type mockEnqueuer struct {
	queued []*notification.Notification
	err    error
}

func (m *mockEnqueuer) EnqueueNotification(_ context.Context, n *notification.Notification) error {
	if m.err != nil {
		return m.err
	}
	m.queued = append(m.queued, n)
	return nil
}

type mockWebhook struct {
	messages []notificationclient.Message
	result   *notificationclient.SendResult
	err      error
}

func (m *mockWebhook) Send(_ context.Context, msg notificationclient.Message) (*notificationclient.SendResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.messages = append(m.messages, msg)
	if m.result != nil {
		return m.result, nil
	}
	return &notificationclient.SendResult{Success: true}, nil
}

func (m *mockWebhook) Provider() string { return "mock" }

// =============================================================================
// Display name cache
// =============================================================================

type mockNameCache struct {
	values map[string]string
	getErr error
	sets   int
}

func newMockNameCache() *mockNameCache {
	return &mockNameCache{values: make(map[string]string)}
}

func (m *mockNameCache) GetMany(_ context.Context, keys []string) (map[string]string, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := m.values[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (m *mockNameCache) SetMany(_ context.Context, entries map[string]string) error {
	for k, v := range entries {
		m.values[k] = v
	}
	m.sets++
	return nil
}

type mockNameResolver struct {
	names map[shared.ID]string
	err   error
}

func (m *mockNameResolver) Resolve(_ context.Context, _ []shared.ID) (map[shared.ID]string, error) {
	return m.names, m.err
}

// =============================================================================
// Fixtures
// =============================================================================

var fixedNow = time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)

// newFinding creates an open finding of sev created ageDays before fixedNow.
func newFinding(sev vulnerability.Severity, ageDays int) *vulnerability.Finding {
	f, err := vulnerability.NewFinding(vulnerability.FindingParams{
		ScanID:     shared.NewID(),
		TemplateID: "tpl-" + string(sev),
		Severity:   sev,
		Host:       "10.0.0.1",
		CreatedAt:  fixedNow.Add(-time.Duration(ageDays) * 24 * time.Hour),
	})
	if err != nil {
		panic(err)
	}
	return f
}

func newUser(name string, notify bool) *user.User {
	u, err := user.New(name+"@example.com", name, notify)
	if err != nil {
		panic(err)
	}
	return u
}
