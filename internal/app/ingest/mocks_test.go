package ingest

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"github.com/openctemio/scanledger/pkg/domain/asset"
	"github.com/openctemio/scanledger/pkg/domain/notification"
	"github.com/openctemio/scanledger/pkg/domain/scan"
	"github.com/openctemio/scanledger/pkg/domain/shared"
	"github.com/openctemio/scanledger/pkg/domain/user"
	"github.com/openctemio/scanledger/pkg/domain/vulnerability"
)

// =============================================================================
// Batch repository
// =============================================================================

type mockBatchRepo struct {
	mu        sync.Mutex
	batches   map[shared.ID]*scan.Batch
	createErr error
	inTx      int
}

func newMockBatchRepo() *mockBatchRepo {
	return &mockBatchRepo{batches: make(map[shared.ID]*scan.Batch)}
}

func (m *mockBatchRepo) Create(_ context.Context, b *scan.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.batches[b.ID] = b
	return nil
}

func (m *mockBatchRepo) CreateInTx(ctx context.Context, _ *sql.Tx, b *scan.Batch) error {
	m.mu.Lock()
	m.inTx++
	m.mu.Unlock()
	return m.Create(ctx, b)
}

func (m *mockBatchRepo) GetByID(_ context.Context, id shared.ID) (*scan.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.batches[id]
	if !ok {
		return nil, scan.ErrBatchNotFound
	}
	return b, nil
}

// =============================================================================
// Finding repository
// =============================================================================

type mockFindingRepo struct {
	mu        sync.Mutex
	findings  []*vulnerability.Finding
	createErr error
}

func (m *mockFindingRepo) CreateBatch(_ context.Context, fs []*vulnerability.Finding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.findings = append(m.findings, fs...)
	return nil
}

func (m *mockFindingRepo) CreateBatchInTx(ctx context.Context, _ *sql.Tx, fs []*vulnerability.Finding) error {
	return m.CreateBatch(ctx, fs)
}

func (m *mockFindingRepo) GetByID(_ context.Context, id shared.ID) (*vulnerability.Finding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.findings {
		if f.ID() == id {
			return f, nil
		}
	}
	return nil, vulnerability.NotFoundError(id)
}

func (m *mockFindingRepo) Update(_ context.Context, _ *vulnerability.Finding) error {
	return nil
}

func (m *mockFindingRepo) ListUnclosed(_ context.Context) ([]*vulnerability.Finding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*vulnerability.Finding
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

func (m *mockFindingRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.findings)
}

// =============================================================================
// Asset repository
// =============================================================================

type assetRow struct {
	id        shared.ID
	host      string
	ip        string
	count     int
	score     int
	sessionID shared.ID
}

// mockAssetRepo behaves like the store: Create is guarded by a unique
// host and the increment is a single locked read-modify-write.
type mockAssetRepo struct {
	mu   sync.Mutex
	rows map[string]*assetRow

	failHosts map[string]error

	// afterGet runs after GetByHost so tests can interleave writers.
	afterGet func(host string)

	creates    int
	increments int
}

func newMockAssetRepo() *mockAssetRepo {
	return &mockAssetRepo{
		rows:      make(map[string]*assetRow),
		failHosts: make(map[string]error),
	}
}

func (m *mockAssetRepo) GetByHost(_ context.Context, host string) (*asset.Asset, error) {
	m.mu.Lock()
	if err, ok := m.failHosts[host]; ok {
		m.mu.Unlock()
		return nil, err
	}
	row, ok := m.rows[host]
	var a *asset.Asset
	if ok {
		a = asset.Reconstitute(row.id, row.host, row.ip, "", row.count, row.score, row.sessionID, now(), now())
	}
	hook := m.afterGet
	m.mu.Unlock()

	if hook != nil {
		hook(host)
	}
	if !ok {
		return nil, asset.NotFoundError(host)
	}
	return a, nil
}

func (m *mockAssetRepo) Create(_ context.Context, a *asset.Asset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[a.FQDNOrIP()]; ok {
		return asset.AlreadyExistsError(a.FQDNOrIP())
	}
	m.creates++
	m.rows[a.FQDNOrIP()] = &assetRow{
		id:        a.ID(),
		host:      a.FQDNOrIP(),
		ip:        a.IPAddress(),
		count:     a.VulnerabilityCount(),
		score:     a.RiskScore(),
		sessionID: a.UploadSessionID(),
	}
	return nil
}

func (m *mockAssetRepo) IncrementVulnerabilityCount(_ context.Context, host string, delta int, sessionID shared.ID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[host]
	if !ok {
		return 0, asset.NotFoundError(host)
	}
	m.increments++
	row.count += delta
	row.sessionID = sessionID
	return row.count, nil
}

func (m *mockAssetRepo) UpdateRiskScore(_ context.Context, host string, score int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[host]
	if !ok {
		return asset.NotFoundError(host)
	}
	row.score = score
	return nil
}

func (m *mockAssetRepo) List(_ context.Context, _ int) ([]*asset.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*asset.Asset, 0, len(m.rows))
	for _, r := range m.rows {
		out = append(out, asset.Reconstitute(r.id, r.host, r.ip, "", r.count, r.score, r.sessionID, now(), now()))
	}
	return out, nil
}

func (m *mockAssetRepo) row(host string) assetRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rows[host]; ok {
		return *r
	}
	return assetRow{}
}

// =============================================================================
// Users, dispatch and side effects
// =============================================================================

type mockUserRepo struct {
	users   []*user.User
	listErr error
}

func (m *mockUserRepo) Create(_ context.Context, u *user.User) error {
	m.users = append(m.users, u)
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id shared.ID) (*user.User, error) {
	for _, u := range m.users {
		if u.ID() == id {
			return u, nil
		}
	}
	return nil, user.NotFoundError(id)
}

func (m *mockUserRepo) ListIngestRecipients(_ context.Context) ([]*user.User, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*user.User
	for _, u := range m.users {
		if u.IsIngestRecipient() {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *mockUserRepo) GetDisplayNames(_ context.Context, ids []shared.ID) (map[shared.ID]string, error) {
	names := make(map[shared.ID]string)
	for _, id := range ids {
		for _, u := range m.users {
			if u.ID() == id {
				names[id] = u.DisplayName()
			}
		}
	}
	return names, nil
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
		return errors.New("queue unavailable")
	}
	m.sent = append(m.sent, p)
	return nil
}

type mockTransactor struct {
	calls int
}

func (m *mockTransactor) Transaction(_ context.Context, fn func(tx *sql.Tx) error) error {
	m.calls++
	return fn(nil)
}

type mockArchiver struct {
	keys []string
	err  error
}

func (m *mockArchiver) Put(_ context.Context, key string, _ []byte, _ string) error {
	if m.err != nil {
		return m.err
	}
	m.keys = append(m.keys, key)
	return nil
}

type mockPublisher struct {
	subjects []string
	payloads [][]byte
}

func (m *mockPublisher) Publish(_ context.Context, subject string, data []byte) error {
	m.subjects = append(m.subjects, subject)
	m.payloads = append(m.payloads, data)
	return nil
}
