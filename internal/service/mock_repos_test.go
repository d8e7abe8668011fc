package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"courtmate/backend/config"
	"courtmate/backend/internal/model"
	"courtmate/backend/internal/repository"
	pkgerrors "courtmate/backend/pkg/errors"
	"courtmate/backend/pkg/geo"
)

var errMockStorage = errors.New("mock: 存储故障")

// ── 内存存储 ──
//
// 所有 mock repository 共享同一个 mockStore。值按拷贝存取，
// 条件更新与数据库中的 WHERE 条件保持一致；事务串行执行，
// fn 返回错误时恢复到事务开始前的快照。

type mockStore struct {
	mu   sync.Mutex
	txMu sync.Mutex
	seq  int
	base time.Time

	users  map[string]model.User
	venues map[string]model.Venue
	slots  map[string]model.Slot
	apps   map[string]model.Application

	failCancelApp map[string]bool // CancelApproved 对这些申请返回故障
	failListApps  bool            // ListBySlotAndStatus 返回故障
}

func newMockStore() *mockStore {
	return &mockStore{
		base:          time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		users:         make(map[string]model.User),
		venues:        make(map[string]model.Venue),
		slots:         make(map[string]model.Slot),
		apps:          make(map[string]model.Application),
		failCancelApp: make(map[string]bool),
	}
}

// nextID 调用方需持有 mu
func (s *mockStore) nextID(prefix string) (string, time.Time) {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq), s.base.Add(time.Duration(s.seq) * time.Second)
}

func (s *mockStore) repository() *repository.Repository {
	return &repository.Repository{
		User:        &mockUserRepo{s},
		Venue:       &mockVenueRepo{s},
		Slot:        &mockSlotRepo{s},
		Application: &mockApplicationRepo{s},
		Tx:          &mockTransactor{s},
	}
}

func cloneStrings(v []string) []string {
	if v == nil {
		return nil
	}
	return append([]string{}, v...)
}

func cloneUser(u model.User) model.User {
	u.Levels = append([]model.UserLevel(nil), u.Levels...)
	u.FavoriteVenues = cloneStrings(u.FavoriteVenues)
	return u
}

func cloneSlot(sl model.Slot) model.Slot {
	sl.Participants = cloneStrings(sl.Participants)
	sl.SimpleLevels = cloneStrings(sl.SimpleLevels)
	return sl
}

// ── Mock Transactor ──

type mockTransactor struct{ s *mockStore }

func (t *mockTransactor) Transaction(_ context.Context, fn func(repo *repository.Repository) error) error {
	t.s.txMu.Lock()
	defer t.s.txMu.Unlock()

	t.s.mu.Lock()
	users := make(map[string]model.User, len(t.s.users))
	for k, v := range t.s.users {
		users[k] = cloneUser(v)
	}
	slots := make(map[string]model.Slot, len(t.s.slots))
	for k, v := range t.s.slots {
		slots[k] = cloneSlot(v)
	}
	apps := make(map[string]model.Application, len(t.s.apps))
	for k, v := range t.s.apps {
		apps[k] = v
	}
	t.s.mu.Unlock()

	if err := fn(t.s.repository()); err != nil {
		t.s.mu.Lock()
		t.s.users, t.s.slots, t.s.apps = users, slots, apps
		t.s.mu.Unlock()
		return err
	}
	return nil
}

// ── Mock UserRepository ──

type mockUserRepo struct{ s *mockStore }

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, u := range m.s.users {
		if u.Account == user.Account {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.UserID == "" {
		user.UserID, user.CreatedAt = m.s.nextID("user")
	}
	if user.Version == 0 {
		user.Version = 1
	}
	m.s.users[user.UserID] = cloneUser(*user)
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if u, ok := m.s.users[id]; ok {
		c := cloneUser(u)
		return &c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByAccount(_ context.Context, account string) (*model.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, u := range m.s.users {
		if u.Account == account {
			c := cloneUser(u)
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) ListByIDs(_ context.Context, ids []string) ([]model.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []model.User
	for _, id := range ids {
		if u, ok := m.s.users[id]; ok {
			result = append(result, cloneUser(u))
		}
	}
	return result, nil
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	cur, ok := m.s.users[user.UserID]
	if !ok || cur.Version != user.Version {
		return pkgerrors.ErrOptimisticLock
	}
	cur.NickName = user.NickName
	cur.AvatarURL = user.AvatarURL
	cur.Gender = user.Gender
	cur.FavoriteVenues = cloneStrings(user.FavoriteVenues)
	cur.Version++
	m.s.users[user.UserID] = cur
	user.Version = cur.Version
	return nil
}

func (m *mockUserRepo) UpsertLevel(_ context.Context, level *model.UserLevel) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	u, ok := m.s.users[level.UserID]
	if !ok {
		return errMockStorage
	}
	u = cloneUser(u)
	for i := range u.Levels {
		if u.Levels[i].Sport == level.Sport {
			u.Levels[i] = *level
			m.s.users[u.UserID] = u
			return nil
		}
	}
	u.Levels = append(u.Levels, *level)
	m.s.users[u.UserID] = u
	return nil
}

// ── Mock VenueRepository ──

type mockVenueRepo struct{ s *mockStore }

func (m *mockVenueRepo) Create(_ context.Context, venue *model.Venue) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if venue.VenueID == "" {
		venue.VenueID, venue.CreatedAt = m.s.nextID("venue")
	}
	m.s.venues[venue.VenueID] = *venue
	return nil
}

func (m *mockVenueRepo) GetByID(_ context.Context, id string) (*model.Venue, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if v, ok := m.s.venues[id]; ok {
		return &v, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockVenueRepo) ListInBox(_ context.Context, box geo.Box, statuses []string) ([]model.Venue, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []model.Venue
	for _, v := range m.s.venues {
		if !box.Contains(geo.Point{Latitude: v.Latitude, Longitude: v.Longitude}) {
			continue
		}
		for _, st := range statuses {
			if v.Status == st {
				result = append(result, v)
				break
			}
		}
	}
	return result, nil
}

func (m *mockVenueRepo) ListByNameInBox(_ context.Context, name string, box geo.Box) ([]model.Venue, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []model.Venue
	for _, v := range m.s.venues {
		if v.Name == name && box.Contains(geo.Point{Latitude: v.Latitude, Longitude: v.Longitude}) {
			result = append(result, v)
		}
	}
	return result, nil
}

// ── Mock SlotRepository ──

type mockSlotRepo struct{ s *mockStore }

func (m *mockSlotRepo) Create(_ context.Context, slot *model.Slot) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if slot.SlotID == "" {
		slot.SlotID, slot.CreatedAt = m.s.nextID("slot")
	}
	if slot.Participants == nil {
		slot.Participants = model.StringArray{}
	}
	if slot.Version == 0 {
		slot.Version = 1
	}
	m.s.slots[slot.SlotID] = cloneSlot(*slot)
	return nil
}

func (m *mockSlotRepo) GetByID(_ context.Context, id string) (*model.Slot, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if sl, ok := m.s.slots[id]; ok {
		c := cloneSlot(sl)
		return &c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSlotRepo) AdmitParticipant(_ context.Context, slotID, userID string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	sl, ok := m.s.slots[slotID]
	if !ok || sl.Status != model.SlotOpen || sl.CurrentCount >= sl.NeedCount || sl.Participants.Contains(userID) {
		return pkgerrors.ErrOptimisticLock
	}
	sl = cloneSlot(sl)
	sl.Participants = append(sl.Participants, userID)
	sl.CurrentCount++
	if sl.CurrentCount >= sl.NeedCount {
		sl.Status = model.SlotFull
	}
	sl.Version++
	m.s.slots[slotID] = sl
	return nil
}

func (m *mockSlotRepo) Cancel(_ context.Context, slotID, hostID, reason string, now time.Time) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	sl, ok := m.s.slots[slotID]
	if !ok || sl.HostID != hostID {
		return pkgerrors.ErrOptimisticLock
	}
	if sl.Status != model.SlotOpen && sl.Status != model.SlotFull {
		return pkgerrors.ErrOptimisticLock
	}
	if sl.Status == model.SlotOpen && !sl.StartAt.After(now) {
		return pkgerrors.ErrOptimisticLock
	}
	sl.Status = model.SlotCancelled
	sl.CancelReason = reason
	sl.CancelledAt = &now
	sl.Version++
	m.s.slots[slotID] = sl
	return nil
}

func matchSlot(sl model.Slot, f repository.SlotFilter) bool {
	if f.Box != nil && !f.Box.Contains(geo.Point{Latitude: sl.VenueLatitude, Longitude: sl.VenueLongitude}) {
		return false
	}
	if f.VenueID != "" && sl.VenueID != f.VenueID {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, st := range f.Statuses {
			if sl.Status == st {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	if f.StartFrom != nil && sl.StartAt.Before(*f.StartFrom) {
		return false
	}
	if f.StartAfter != nil && !sl.StartAt.After(*f.StartAfter) {
		return false
	}
	if f.StartBefore != nil && sl.StartAt.After(*f.StartBefore) {
		return false
	}
	if f.Sport != "" && sl.Sport != f.Sport {
		return false
	}
	if len(f.SimpleLevels) > 0 {
		overlap := false
		for _, lv := range f.SimpleLevels {
			if sl.SimpleLevels.Contains(lv) {
				overlap = true
			}
		}
		if !overlap {
			return false
		}
	}
	if f.Gender != model.GenderAny && sl.Gender != model.GenderAny && sl.Gender != f.Gender {
		return false
	}
	return true
}

func (m *mockSlotRepo) List(_ context.Context, f repository.SlotFilter) ([]model.Slot, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []model.Slot
	for _, sl := range m.s.slots {
		if matchSlot(sl, f) {
			result = append(result, cloneSlot(sl))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartAt.Before(result[j].StartAt) })
	if f.Limit > 0 && len(result) > f.Limit {
		result = result[:f.Limit]
	}
	return result, nil
}

func (m *mockSlotRepo) ListByHost(_ context.Context, hostID string, limit int) ([]model.Slot, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []model.Slot
	for _, sl := range m.s.slots {
		if sl.HostID == hostID {
			result = append(result, cloneSlot(sl))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartAt.After(result[j].StartAt) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *mockSlotRepo) ListByIDs(_ context.Context, ids []string, limit int) ([]model.Slot, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []model.Slot
	for _, id := range ids {
		if sl, ok := m.s.slots[id]; ok {
			result = append(result, cloneSlot(sl))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartAt.After(result[j].StartAt) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *mockSlotRepo) CountByVenue(_ context.Context, venueID string) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var n int64
	for _, sl := range m.s.slots {
		if sl.VenueID == venueID {
			n++
		}
	}
	return n, nil
}

func (m *mockSlotRepo) CountOpenByVenues(_ context.Context, venueIDs []string, now time.Time) (map[string]int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	counts := make(map[string]int64, len(venueIDs))
	for _, id := range venueIDs {
		for _, sl := range m.s.slots {
			if sl.VenueID == id && sl.Status == model.SlotOpen && sl.StartAt.After(now) {
				counts[id]++
			}
		}
	}
	return counts, nil
}

// ── Mock ApplicationRepository ──

type mockApplicationRepo struct{ s *mockStore }

func (m *mockApplicationRepo) Create(_ context.Context, app *model.Application) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	// 与部分唯一索引一致：同一 (slot, applicant) 至多一条未终结申请
	for _, a := range m.s.apps {
		if a.SlotID == app.SlotID && a.ApplicantID == app.ApplicantID && a.Status.IsLive() {
			return gorm.ErrDuplicatedKey
		}
	}
	app.ApplicationID, app.CreatedAt = m.s.nextID("app")
	m.s.apps[app.ApplicationID] = *app
	return nil
}

func (m *mockApplicationRepo) GetByID(_ context.Context, id string) (*model.Application, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if a, ok := m.s.apps[id]; ok {
		return &a, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockApplicationRepo) MarkReviewed(_ context.Context, id string, to model.ApplicationStatus, reviewerID, reason string, now time.Time) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	a, ok := m.s.apps[id]
	if !ok || a.Status != model.ApplicationPending {
		return pkgerrors.ErrOptimisticLock
	}
	a.Status = to
	a.Reason = reason
	a.ReviewedAt = &now
	a.ReviewedBy = &reviewerID
	m.s.apps[id] = a
	return nil
}

func (m *mockApplicationRepo) CancelApproved(_ context.Context, id string, now time.Time) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.failCancelApp[id] {
		return errMockStorage
	}
	a, ok := m.s.apps[id]
	if !ok || a.Status != model.ApplicationApproved {
		return pkgerrors.ErrOptimisticLock
	}
	a.Status = model.ApplicationCancelled
	a.CancelledAt = &now
	m.s.apps[id] = a
	return nil
}

func (m *mockApplicationRepo) ListBySlotAndStatus(_ context.Context, slotID string, status model.ApplicationStatus) ([]model.Application, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.failListApps {
		return nil, errors.New("connection reset")
	}
	var result []model.Application
	for _, a := range m.s.apps {
		if a.SlotID == slotID && a.Status == status {
			if u, ok := m.s.users[a.ApplicantID]; ok {
				c := cloneUser(u)
				a.Applicant = &c
			}
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (m *mockApplicationRepo) GetLatestBySlotAndApplicant(_ context.Context, slotID, applicantID string) (*model.Application, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var latest *model.Application
	for _, a := range m.s.apps {
		if a.SlotID == slotID && a.ApplicantID == applicantID {
			if latest == nil || a.CreatedAt.After(latest.CreatedAt) {
				c := a
				latest = &c
			}
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return latest, nil
}

func (m *mockApplicationRepo) ListApprovedSlotIDs(_ context.Context, applicantID string, limit int) ([]string, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var apps []model.Application
	for _, a := range m.s.apps {
		if a.ApplicantID == applicantID && a.Status == model.ApplicationApproved {
			apps = append(apps, a)
		}
	}
	sort.Slice(apps, func(i, j int) bool { return apps[i].CreatedAt.After(apps[j].CreatedAt) })
	var ids []string
	for _, a := range apps {
		if limit > 0 && len(ids) >= limit {
			break
		}
		ids = append(ids, a.SlotID)
	}
	return ids, nil
}

func (m *mockApplicationRepo) CountPendingBySlots(_ context.Context, slotIDs []string) (map[string]int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	counts := make(map[string]int64, len(slotIDs))
	for _, id := range slotIDs {
		for _, a := range m.s.apps {
			if a.SlotID == id && a.Status == model.ApplicationPending {
				counts[id]++
			}
		}
	}
	return counts, nil
}

// ── Mock EventPublisher ──

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (p *recordingPublisher) PublishJSON(_ context.Context, key string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	return p.err
}

func (p *recordingPublisher) count(key string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, k := range p.keys {
		if k == key {
			n++
		}
	}
	return n
}

// ── 测试夹具 ──

// testNow 所有服务测试使用的固定时间
var testNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func testConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:       "test-secret-key-at-least-32-bytes!!",
			Issuer:          "courtmate-test",
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 7 * 24 * time.Hour,
		},
		Slot: config.SlotConfig{
			DefaultRadius:      5000,
			MaxRadius:          50000,
			NearbyLimit:        50,
			MySlotsLimit:       100,
			CascadeConcurrency: 4,
			ApplyRateLimit:     20,
			ApplyRateWindow:    time.Minute,
		},
	}
}

// testEnv 串联约球局引擎与申请准入，共享同一份内存存储
type testEnv struct {
	store  *mockStore
	repo   *repository.Repository
	events *recordingPublisher
	slots  *slotService
	apps   *applicationService
	query  *queryService
}

func setupTestEnv() *testEnv {
	store := newMockStore()
	repo := store.repository()
	events := &recordingPublisher{}
	logger := zap.NewNop()

	slots := newSlotService(testConfig(), repo, events, logger)
	slots.now = fixedNow
	apps := newApplicationService(repo, slots, events, logger)
	apps.now = fixedNow
	query := newQueryService(testConfig(), repo, logger)
	query.now = fixedNow

	return &testEnv{store: store, repo: repo, events: events, slots: slots, apps: apps, query: query}
}

func (e *testEnv) addUser(id, simple string, ntrp *float64) {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	e.store.users[id] = model.User{
		UserID:         id,
		Account:        "acct-" + id,
		NickName:       "昵称-" + id,
		Rating:         5.0,
		CreditScore:    100,
		FavoriteVenues: []string{},
		Levels: []model.UserLevel{
			{UserID: id, Sport: model.SportTennis, Simple: simple, NTRP: ntrp, LastUpdated: testNow},
		},
		VersionedModel: model.VersionedModel{Version: 1},
	}
}

func (e *testEnv) addVenue(id, name string, lat, lng float64) {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	e.store.venues[id] = model.Venue{
		VenueID:      id,
		Name:         name,
		Latitude:     lat,
		Longitude:    lng,
		CourtTotal:   1,
		CourtSurface: "hardCourt",
		Status:       model.VenueVerified,
	}
}

// addSlot 直接写入一条约球局，start 相对 testNow
func (e *testEnv) addSlot(id, hostID string, needCount int, start time.Duration) {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	e.store.slots[id] = model.Slot{
		SlotID:         id,
		Sport:          model.SportTennis,
		StartAt:        testNow.Add(start),
		Duration:       120,
		VenueID:        "venue-1",
		VenueName:      "中央公园网球场",
		VenueLatitude:  31.2304,
		VenueLongitude: 121.4737,
		SimpleLevels:   model.StringArray{"中级"},
		NeedCount:      needCount,
		CostType:       model.CostFree,
		Participants:   model.StringArray{},
		Status:         model.SlotOpen,
		HostID:         hostID,
		VersionedModel: model.VersionedModel{Version: 1},
	}
}

func (e *testEnv) slot(id string) model.Slot {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	return cloneSlot(e.store.slots[id])
}

func (e *testEnv) app(id string) model.Application {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	return e.store.apps[id]
}

func (e *testEnv) setSlotStatus(id string, status model.SlotStatus) {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	sl := e.store.slots[id]
	sl.Status = status
	e.store.slots[id] = sl
}
