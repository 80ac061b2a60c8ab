package services

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/ekaya-inc/claimcheck/pkg/apperrors"
	"github.com/ekaya-inc/claimcheck/pkg/auth"
	"github.com/ekaya-inc/claimcheck/pkg/models"
	"github.com/ekaya-inc/claimcheck/pkg/notify"
	"github.com/ekaya-inc/claimcheck/pkg/repositories"
	"github.com/ekaya-inc/claimcheck/pkg/seo"
)

// ctxAs returns a context authenticated as userID.
func ctxAs(userID string, roles ...string) context.Context {
	claims := &auth.Claims{Roles: roles}
	claims.Subject = userID
	return auth.WithClaims(context.Background(), claims)
}

// ============================================================================
// Claims
// ============================================================================

type mockClaimRepo struct {
	mu     sync.Mutex
	claims map[uuid.UUID]*models.Claim
	logs   []*models.ModerationLog

	getErr        error
	getErrFor     map[uuid.UUID]error
	listErr       error
	updateScoreFn func(id uuid.UUID, score float64) error
	seoUpdates    map[uuid.UUID]seo.Result
	scoreUpdates  int
}

func newMockClaimRepo(claims ...*models.Claim) *mockClaimRepo {
	m := &mockClaimRepo{
		claims:     make(map[uuid.UUID]*models.Claim),
		getErrFor:  make(map[uuid.UUID]error),
		seoUpdates: make(map[uuid.UUID]seo.Result),
	}
	for _, c := range claims {
		m.claims[c.ID] = c
	}
	return m
}

func (m *mockClaimRepo) Create(ctx context.Context, claim *models.Claim) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	claim.ID = uuid.New()
	stored := *claim
	m.claims[claim.ID] = &stored
	return nil
}

func (m *mockClaimRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	if err := m.getErrFor[id]; err != nil {
		return nil, err
	}
	c, ok := m.claims[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockClaimRepo) List(ctx context.Context, filter models.ClaimFilter) ([]*models.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*models.Claim
	for _, c := range m.claims {
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockClaimRepo) UpdateTotalScore(ctx context.Context, id uuid.UUID, score float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateScoreFn != nil {
		if err := m.updateScoreFn(id, score); err != nil {
			return err
		}
	}
	c, ok := m.claims[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	c.TotalScore = score
	m.scoreUpdates++
	return nil
}

func (m *mockClaimRepo) UpdateSEO(ctx context.Context, id uuid.UUID, seoTitle, seoDescription string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seoUpdates[id] = seo.Result{SEOTitle: seoTitle, SEODescription: seoDescription}
	return nil
}

// ApplyTransition mirrors the conditional UPDATE: only a claim still in FromStatus moves.
func (m *mockClaimRepo) ApplyTransition(ctx context.Context, t *repositories.ClaimTransition) (*models.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.claims[t.ClaimID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if c.Status != t.FromStatus {
		return nil, apperrors.ErrConflict
	}

	if t.Title != nil {
		if !c.TitleEdited {
			orig := c.Title
			c.OriginalTitle = &orig
		}
		c.Title = *t.Title
		c.TitleEdited = true
		c.TitleEditedBy = &t.ModeratorID
		reason := t.TitleEditReason
		c.TitleEditReason = &reason
		at := t.At
		c.TitleEditedAt = &at
	}
	if t.Description != nil {
		if !c.DescriptionEdited {
			orig := c.Description
			c.OriginalDescription = &orig
		}
		c.Description = *t.Description
		c.DescriptionEdited = true
		c.DescriptionEditedBy = &t.ModeratorID
		reason := t.DescriptionEditReason
		c.DescriptionEditReason = &reason
	}
	c.Status = t.ToStatus
	if t.Log != nil {
		m.logs = append(m.logs, t.Log)
	}

	cp := *c
	return &cp, nil
}

func (m *mockClaimRepo) status(id uuid.UUID) models.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.claims[id].Status
}

func (m *mockClaimRepo) logCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.logs)
}

// ============================================================================
// Evidence and perspectives
// ============================================================================

type mockEvidenceRepo struct {
	mu        sync.Mutex
	items     map[uuid.UUID]*models.Evidence
	listErr   error
	createErr error
	logs      []*models.ModerationLog
}

func newMockEvidenceRepo(items ...*models.Evidence) *mockEvidenceRepo {
	m := &mockEvidenceRepo{items: make(map[uuid.UUID]*models.Evidence)}
	for _, e := range items {
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		m.items[e.ID] = e
	}
	return m
}

func (m *mockEvidenceRepo) Create(ctx context.Context, e *models.Evidence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	e.ID = uuid.New()
	m.items[e.ID] = e
	return nil
}

func (m *mockEvidenceRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Evidence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.items[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *mockEvidenceRepo) ListByClaim(ctx context.Context, claimID uuid.UUID, status models.Status) ([]*models.Evidence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*models.Evidence
	for _, e := range m.items {
		if e.ClaimID == claimID && (status == "" || e.Status == status) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockEvidenceRepo) ListApprovedByClaim(ctx context.Context, claimID uuid.UUID) ([]*models.Evidence, error) {
	return m.ListByClaim(ctx, claimID, models.StatusApproved)
}

func (m *mockEvidenceRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status models.Status, log *models.ModerationLog) (*models.Evidence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.items[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	e.Status = status
	m.logs = append(m.logs, log)
	cp := *e
	return &cp, nil
}

type mockPerspectiveRepo struct {
	mu      sync.Mutex
	items   map[uuid.UUID]*models.Perspective
	listErr error
	logs    []*models.ModerationLog
}

func newMockPerspectiveRepo(items ...*models.Perspective) *mockPerspectiveRepo {
	m := &mockPerspectiveRepo{items: make(map[uuid.UUID]*models.Perspective)}
	for _, p := range items {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		m.items[p.ID] = p
	}
	return m
}

func (m *mockPerspectiveRepo) Create(ctx context.Context, p *models.Perspective) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = uuid.New()
	m.items[p.ID] = p
	return nil
}

func (m *mockPerspectiveRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Perspective, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockPerspectiveRepo) ListByClaim(ctx context.Context, claimID uuid.UUID, status models.Status) ([]*models.Perspective, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*models.Perspective
	for _, p := range m.items {
		if p.ClaimID == claimID && (status == "" || p.Status == status) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockPerspectiveRepo) ListApprovedByClaim(ctx context.Context, claimID uuid.UUID) ([]*models.Perspective, error) {
	return m.ListByClaim(ctx, claimID, models.StatusApproved)
}

func (m *mockPerspectiveRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status models.Status, log *models.ModerationLog) (*models.Perspective, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	p.Status = status
	m.logs = append(m.logs, log)
	cp := *p
	return &cp, nil
}

// ============================================================================
// Votes, replies, logs
// ============================================================================

type voteKey struct {
	target uuid.UUID
	user   string
}

// mockVoteRepo keeps an in-memory ledger with the same toggle/switch rules as the SQL.
type mockVoteRepo struct {
	mu       sync.Mutex
	votes    map[voteKey]models.VoteType
	counts   map[uuid.UUID][2]int
	owners   map[uuid.UUID]uuid.UUID
	applyErr error
	applied  int
}

func newMockVoteRepo() *mockVoteRepo {
	return &mockVoteRepo{
		votes:  make(map[voteKey]models.VoteType),
		counts: make(map[uuid.UUID][2]int),
		owners: make(map[uuid.UUID]uuid.UUID),
	}
}

func (m *mockVoteRepo) Apply(ctx context.Context, kind models.TargetKind, targetID uuid.UUID, userID string, voteType models.VoteType) (*models.VoteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.applyErr != nil {
		return nil, m.applyErr
	}
	m.applied++

	key := voteKey{targetID, userID}
	c := m.counts[targetID]
	delta := func(v models.VoteType, d int) {
		if v == models.VoteUp {
			c[0] = max(c[0]+d, 0)
		} else {
			c[1] = max(c[1]+d, 0)
		}
	}

	var userVote *models.VoteType
	existing, ok := m.votes[key]
	switch {
	case !ok:
		m.votes[key] = voteType
		delta(voteType, 1)
		userVote = &voteType
	case existing == voteType:
		delete(m.votes, key)
		delta(voteType, -1)
	default:
		m.votes[key] = voteType
		delta(existing, -1)
		delta(voteType, 1)
		userVote = &voteType
	}
	m.counts[targetID] = c

	return &models.VoteResult{
		Upvotes:   c[0],
		Downvotes: c[1],
		UserVote:  userVote,
		ClaimID:   m.owners[targetID],
	}, nil
}

func (m *mockVoteRepo) Get(ctx context.Context, kind models.TargetKind, targetID uuid.UUID, userID string) (*models.Vote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.votes[voteKey{targetID, userID}]
	if !ok {
		return nil, nil
	}
	return &models.Vote{Kind: kind, TargetID: targetID, UserID: userID, VoteType: v}, nil
}

type mockReplyRepo struct {
	created []*models.Reply
}

func (m *mockReplyRepo) Create(ctx context.Context, reply *models.Reply) error {
	reply.ID = uuid.New()
	m.created = append(m.created, reply)
	return nil
}

func (m *mockReplyRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Reply, error) {
	for _, r := range m.created {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockReplyRepo) ListByTarget(ctx context.Context, targetType models.TargetKind, targetID uuid.UUID) ([]*models.Reply, error) {
	var out []*models.Reply
	for _, r := range m.created {
		if r.TargetType == targetType && r.TargetID == targetID {
			out = append(out, r)
		}
	}
	return out, nil
}

type mockLogRepo struct {
	entries []*models.ModerationLog
	limit   int
}

func (m *mockLogRepo) ListByTarget(ctx context.Context, targetType models.TargetKind, targetID uuid.UUID) ([]*models.ModerationLog, error) {
	var out []*models.ModerationLog
	for _, e := range m.entries {
		if e.TargetType == targetType && e.TargetID == targetID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockLogRepo) ListRecent(ctx context.Context, limit int) ([]*models.ModerationLog, error) {
	m.limit = limit
	return m.entries, nil
}

// ============================================================================
// Collaborators
// ============================================================================

type mockScorer struct {
	mu    sync.Mutex
	calls []uuid.UUID
	fn    func(ctx context.Context, claimID uuid.UUID) (*ScoreResult, error)
}

func (m *mockScorer) Recompute(ctx context.Context, claimID uuid.UUID) (*ScoreResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, claimID)
	m.mu.Unlock()
	if m.fn != nil {
		return m.fn(ctx, claimID)
	}
	return &ScoreResult{ClaimID: claimID}, nil
}

func (m *mockScorer) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type mockScoper struct {
	mu       sync.Mutex
	err      error
	acquired int
	released int
}

func (m *mockScoper) WithScope(ctx context.Context) (context.Context, func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, nil, m.err
	}
	m.acquired++
	return ctx, func() {
		m.mu.Lock()
		m.released++
		m.mu.Unlock()
	}, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *recordingNotifier) Notify(ctx context.Context, event notify.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func (n *recordingNotifier) recorded() []notify.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Event(nil), n.events...)
}

type mockGenerator struct {
	mu    sync.Mutex
	calls []seo.Input
	fn    func(in seo.Input) (*seo.Result, error)
}

func (m *mockGenerator) Generate(ctx context.Context, in seo.Input) (*seo.Result, error) {
	m.mu.Lock()
	m.calls = append(m.calls, in)
	m.mu.Unlock()
	if m.fn != nil {
		return m.fn(in)
	}
	return &seo.Result{SEOTitle: "title", SEODescription: "description"}, nil
}

func (m *mockGenerator) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type recordingScheduler struct {
	mu     sync.Mutex
	inputs []seo.Input
}

func (s *recordingScheduler) Schedule(claimID uuid.UUID, in seo.Input) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputs = append(s.inputs, in)
}

var (
	_ repositories.ClaimRepository         = (*mockClaimRepo)(nil)
	_ repositories.EvidenceRepository      = (*mockEvidenceRepo)(nil)
	_ repositories.PerspectiveRepository   = (*mockPerspectiveRepo)(nil)
	_ repositories.VoteRepository          = (*mockVoteRepo)(nil)
	_ repositories.ReplyRepository         = (*mockReplyRepo)(nil)
	_ repositories.ModerationLogRepository = (*mockLogRepo)(nil)
	_ ClaimScoreService                    = (*mockScorer)(nil)
	_ SummaryScheduler                     = (*recordingScheduler)(nil)
	_ seo.Generator                        = (*mockGenerator)(nil)
	_ notify.Notifier                      = (*recordingNotifier)(nil)
)
