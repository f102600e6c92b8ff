package scheduling

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BruksfildServices01/erms-api/internal/audit"
	domain "github.com/BruksfildServices01/erms-api/internal/domain/scheduling"
	"github.com/BruksfildServices01/erms-api/internal/httperr"
	"github.com/BruksfildServices01/erms-api/internal/models"
	"github.com/BruksfildServices01/erms-api/internal/session"
	"github.com/BruksfildServices01/erms-api/internal/timezone"
)

// fakeRepo is an in-memory Repository. Atomic serializes transactions and
// restores a snapshot when fn fails.
type fakeRepo struct {
	txMu sync.Mutex
	mu   sync.Mutex

	users        map[uint]models.User
	requests     map[uint]models.RepairRequest
	availability map[uint]models.Availability
	assignments  []models.Assignment
	reports      []models.ServiceReport
	nextID       uint

	failSaveAvailability error
	// locks records row locks in the order transactions took them.
	locks []string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:        map[uint]models.User{},
		requests:     map[uint]models.RepairRequest{},
		availability: map[uint]models.Availability{},
		nextID:       100,
	}
}

func (r *fakeRepo) addUser(u models.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.Status == "" {
		u.Status = models.UserStatusActive
	}
	r.users[u.ID] = u
}

func (r *fakeRepo) addRequest(id, requester uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests[id] = models.RepairRequest{ID: id, UserID: requester, DeviceName: "Printer"}
}

func (r *fakeRepo) setAvailability(techID uint, available bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.availability[techID] = models.Availability{ID: r.nextID, UserID: techID, IsAvailable: available}
}

func (r *fakeRepo) availabilityOf(techID uint) (models.Availability, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	av, ok := r.availability[techID]
	return av, ok
}

func (r *fakeRepo) assignmentCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.assignments)
}

func (r *fakeRepo) ListTechnicians(context.Context) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.User
	for _, u := range r.users {
		if u.RoleID == models.RoleTechnician && u.Status == models.UserStatusActive {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeRepo) GetUser(_ context.Context, id uint) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, httperr.ErrBusiness("technician_not_found")
	}
	return &u, nil
}

func (r *fakeRepo) GetRepairRequest(_ context.Context, id uint) (*models.RepairRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, httperr.ErrBusiness("repair_request_not_found")
	}
	return &req, nil
}

func (r *fakeRepo) GetAvailability(_ context.Context, techID uint) (*models.Availability, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	av, ok := r.availability[techID]
	if !ok {
		return nil, nil
	}
	return &av, nil
}

func (r *fakeRepo) ListAvailability(context.Context) ([]models.Availability, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Availability, 0, len(r.availability))
	for _, av := range r.availability {
		out = append(out, av)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (r *fakeRepo) ListAssignments(_ context.Context, f domain.AssignmentFilter) ([]models.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Assignment
	for _, a := range r.assignments {
		if f.TechnicianID != 0 && a.TechnicianID != f.TechnicianID {
			continue
		}
		if f.RepairRequestID != 0 && a.RepairRequestID != f.RepairRequestID {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AssignedAt.Equal(out[j].AssignedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].AssignedAt.After(out[j].AssignedAt)
	})
	return out, nil
}

func (r *fakeRepo) Atomic(ctx context.Context, fn func(tx domain.Tx) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	r.mu.Lock()
	avSnap := make(map[uint]models.Availability, len(r.availability))
	for k, v := range r.availability {
		avSnap[k] = v
	}
	asSnap := append([]models.Assignment(nil), r.assignments...)
	rpSnap := append([]models.ServiceReport(nil), r.reports...)
	idSnap := r.nextID
	r.mu.Unlock()

	if err := fn(&fakeTx{r: r}); err != nil {
		r.mu.Lock()
		r.availability = avSnap
		r.assignments = asSnap
		r.reports = rpSnap
		r.nextID = idSnap
		r.mu.Unlock()
		return err
	}
	return nil
}

type fakeTx struct {
	r *fakeRepo
}

func (t *fakeTx) lock(name string, id uint) {
	t.r.mu.Lock()
	defer t.r.mu.Unlock()
	t.r.locks = append(t.r.locks, fmt.Sprintf("%s:%d", name, id))
}

func (t *fakeTx) LockRepairRequest(ctx context.Context, id uint) (*models.RepairRequest, error) {
	t.lock("request", id)
	return t.r.GetRepairRequest(ctx, id)
}

func (t *fakeTx) LockAvailability(ctx context.Context, techID uint) (*models.Availability, error) {
	t.lock("technician", techID)
	if _, err := t.r.GetUser(ctx, techID); err != nil {
		return nil, err
	}
	return t.r.GetAvailability(ctx, techID)
}

func (t *fakeTx) SaveAvailability(_ context.Context, av *models.Availability) error {
	t.r.mu.Lock()
	defer t.r.mu.Unlock()
	if t.r.failSaveAvailability != nil {
		return t.r.failSaveAvailability
	}
	if av.ID == 0 {
		t.r.nextID++
		av.ID = t.r.nextID
	}
	t.r.availability[av.UserID] = *av
	return nil
}

func (t *fakeTx) CreateAssignment(_ context.Context, a *models.Assignment) error {
	t.r.mu.Lock()
	defer t.r.mu.Unlock()
	t.r.nextID++
	a.ID = t.r.nextID
	t.r.assignments = append(t.r.assignments, *a)
	return nil
}

func (t *fakeTx) ListAssignmentsForRequest(ctx context.Context, reqID uint) ([]models.Assignment, error) {
	return t.r.ListAssignments(ctx, domain.AssignmentFilter{RepairRequestID: reqID})
}

func (t *fakeTx) ServiceReportExists(_ context.Context, assignmentID uint) (bool, error) {
	t.r.mu.Lock()
	defer t.r.mu.Unlock()
	for _, sr := range t.r.reports {
		if sr.AssignmentID == assignmentID {
			return true, nil
		}
	}
	return false, nil
}

func (t *fakeTx) CreateServiceReport(_ context.Context, sr *models.ServiceReport) error {
	t.r.mu.Lock()
	defer t.r.mu.Unlock()
	t.r.nextID++
	sr.ID = t.r.nextID
	t.r.reports = append(t.r.reports, *sr)
	return nil
}

// fakeLookup reads straight from the repo and records stored records.
type fakeLookup struct {
	repo   *fakeRepo
	fail   map[uint]error
	mu     sync.Mutex
	stored []models.Availability
}

func (l *fakeLookup) Lookup(ctx context.Context, techID uint) (*models.Availability, error) {
	if err, ok := l.fail[techID]; ok {
		return nil, err
	}
	return l.repo.GetAvailability(ctx, techID)
}

func (l *fakeLookup) Store(_ context.Context, av models.Availability) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stored = append(l.stored, av)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events [][]string
}

func (p *recordingPublisher) Publish(_ context.Context, collections ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, collections)
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

var errLookup = errors.New("lookup failed")

var (
	adminSession = session.New(1, models.RoleAdmin)
	callTime     = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
)

func newAuditDispatcher() *audit.Dispatcher {
	return audit.NewDispatcher(audit.SinkFunc(func(audit.Event) error { return nil }), zap.NewNop())
}

type fixture struct {
	repo      *fakeRepo
	lookup    *fakeLookup
	publisher *recordingPublisher
	assign    *AssignTechnician
	report    *SubmitServiceReport
	update    *UpdateAvailability
}

func newFixture() *fixture {
	repo := newFakeRepo()
	lookup := &fakeLookup{repo: repo}
	pub := &recordingPublisher{}
	disp := newAuditDispatcher()
	clock := timezone.FixedClock(callTime)

	return &fixture{
		repo:      repo,
		lookup:    lookup,
		publisher: pub,
		assign:    NewAssignTechnician(repo, lookup, pub, disp, clock, 0, zap.NewNop()),
		report:    NewSubmitServiceReport(repo, lookup, pub, disp, clock, 0, zap.NewNop()),
		update:    NewUpdateAvailability(repo, lookup, pub, disp, clock, 0),
	}
}

func technician(id uint, first, last string) models.User {
	return models.User{ID: id, FirstName: first, LastName: last, RoleID: models.RoleTechnician}
}
