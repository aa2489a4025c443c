package service

import (
	"alcyxob/fitcoach/internal/domain"
	"alcyxob/fitcoach/internal/push"
	"alcyxob/fitcoach/internal/repository"
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- clock ---

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock(day string) *fakeClock {
	t, err := time.Parse("2006-01-02 15:04", day+" 10:00")
	if err != nil {
		panic(err)
	}
	return &fakeClock{t: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func quietLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- users ---

type fakeUsers struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]domain.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: map[primitive.ObjectID]domain.User{}}
}

func (f *fakeUsers) add(u domain.User) *domain.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	f.users[u.ID] = u
	return &u
}

func (f *fakeUsers) Create(_ context.Context, u *domain.User) (primitive.ObjectID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}
	u.ID = primitive.NewObjectID()
	f.users[u.ID] = *u
	return u.ID, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (f *fakeUsers) AddStudentIDToCoach(_ context.Context, coachID, studentID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.users[coachID]
	if !ok || !c.IsCoach() {
		return repository.ErrNotFound
	}
	for _, id := range c.StudentIDs {
		if id == studentID {
			return nil
		}
	}
	c.StudentIDs = append(c.StudentIDs, studentID)
	f.users[coachID] = c
	return nil
}

func (f *fakeUsers) GetStudentsByCoachID(_ context.Context, coachID primitive.ObjectID) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.User{}
	for _, u := range f.users {
		if u.CoachedBy(coachID) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeUsers) SetCoachForStudent(_ context.Context, studentID, coachID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.users[studentID]
	if !ok {
		return repository.ErrNotFound
	}
	s.CoachID = &coachID
	f.users[studentID] = s
	return nil
}

func (f *fakeUsers) SetTelegramChatID(_ context.Context, userID primitive.ObjectID, chatID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.TelegramChatID = &chatID
	f.users[userID] = u
	return nil
}

// --- weekly summaries ---

type fakeSummaries struct {
	mu          sync.Mutex
	rows        []domain.WeeklySummary
	createErr   error
	completeErr error
}

func (f *fakeSummaries) Create(_ context.Context, s *domain.WeeklySummary) (primitive.ObjectID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return primitive.NilObjectID, f.createErr
	}
	if err := s.CheckIntegrity(); err != nil {
		return primitive.NilObjectID, err
	}
	s.ID = primitive.NewObjectID()
	f.rows = append(f.rows, *s)
	return s.ID, nil
}

func (f *fakeSummaries) insert(s domain.WeeklySummary) domain.WeeklySummary {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s.ID.IsZero() {
		s.ID = primitive.NewObjectID()
	}
	f.rows = append(f.rows, s)
	return s
}

func (f *fakeSummaries) index(id primitive.ObjectID) int {
	for i := range f.rows {
		if f.rows[i].ID == id {
			return i
		}
	}
	return -1
}

func (f *fakeSummaries) GetByID(_ context.Context, id primitive.ObjectID) (*domain.WeeklySummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.index(id)
	if i < 0 {
		return nil, repository.ErrNotFound
	}
	s := f.rows[i]
	return &s, nil
}

func (f *fakeSummaries) GetLatestByStudent(_ context.Context, studentID primitive.ObjectID) (*domain.WeeklySummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *domain.WeeklySummary
	for i := range f.rows {
		r := f.rows[i]
		if r.StudentID != studentID {
			continue
		}
		if latest == nil || !r.CreatedAt.Before(latest.CreatedAt) {
			latest = &r
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	return latest, nil
}

func (f *fakeSummaries) ListByStudent(_ context.Context, studentID primitive.ObjectID) ([]domain.WeeklySummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.WeeklySummary{}
	for _, r := range f.rows {
		if r.StudentID == studentID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeSummaries) ListByCoach(_ context.Context, coachID primitive.ObjectID, completed *bool) ([]domain.WeeklySummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.WeeklySummary{}
	for _, r := range f.rows {
		if r.CoachID != coachID {
			continue
		}
		if completed != nil && r.TaskCompleted != *completed {
			continue
		}
		out = append(out, r)
	}
	// Insertion order on purpose: the service must sort.
	return out, nil
}

func (f *fakeSummaries) ListDueOn(_ context.Context, day time.Time) ([]domain.WeeklySummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.WeeklySummary{}
	for _, r := range f.rows {
		if r.NextAllowedDate.Equal(domain.DateOf(day)) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeSummaries) MarkComplete(_ context.Context, id, coachID primitive.ObjectID, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.completeErr != nil {
		return false, f.completeErr
	}
	i := f.index(id)
	if i < 0 || f.rows[i].CoachID != coachID {
		return false, repository.ErrNotFound
	}
	if f.rows[i].TaskCompleted {
		return false, nil
	}
	f.rows[i].TaskCompleted = true
	f.rows[i].TaskCompletedAt = &at
	f.rows[i].ViewedByCoach = true
	f.rows[i].ViewedAt = &at
	return true, nil
}

func (f *fakeSummaries) update(id, coachID primitive.ObjectID, fn func(*domain.WeeklySummary)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.index(id)
	if i < 0 || f.rows[i].CoachID != coachID {
		return repository.ErrNotFound
	}
	fn(&f.rows[i])
	return nil
}

func (f *fakeSummaries) MarkViewed(_ context.Context, id, coachID primitive.ObjectID, at time.Time) error {
	return f.update(id, coachID, func(s *domain.WeeklySummary) {
		if !s.ViewedByCoach {
			s.ViewedByCoach = true
			s.ViewedAt = &at
		}
	})
}

func (f *fakeSummaries) SetFeedback(_ context.Context, id, coachID primitive.ObjectID, feedback string, at time.Time) error {
	return f.update(id, coachID, func(s *domain.WeeklySummary) {
		s.CoachFeedback = &feedback
		s.CoachFeedbackSentAt = &at
	})
}

func (f *fakeSummaries) SetPrivateNotes(_ context.Context, id, coachID primitive.ObjectID, notes *string) error {
	return f.update(id, coachID, func(s *domain.WeeklySummary) { s.CoachPrivateNotes = notes })
}

func (f *fakeSummaries) SetPublicObservation(_ context.Context, id, coachID primitive.ObjectID, text string, at time.Time) error {
	return f.update(id, coachID, func(s *domain.WeeklySummary) {
		s.CoachPublicObservation = &text
		s.CoachPublicObservationSentAt = &at
	})
}

// --- sequences and slots ---

type fakeSequences struct {
	mu     sync.Mutex
	values map[string]int64
}

func (f *fakeSequences) Next(_ context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.values == nil {
		f.values = map[string]int64{}
	}
	f.values[key]++
	return f.values[key], nil
}

type fakeSlots struct {
	mu    sync.Mutex
	slots map[primitive.ObjectID]time.Time
}

func (f *fakeSlots) Claim(_ context.Context, studentID primitive.ObjectID, today, next time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.slots == nil {
		f.slots = map[primitive.ObjectID]time.Time{}
	}
	if cur, ok := f.slots[studentID]; ok && cur.After(today) {
		return repository.ErrSlotTaken
	}
	f.slots[studentID] = next
	return nil
}

func (f *fakeSlots) Release(_ context.Context, studentID primitive.ObjectID, claimed, reopenOn time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cur, ok := f.slots[studentID]; ok && cur.Equal(claimed) {
		f.slots[studentID] = reopenOn
	}
	return nil
}

// --- notifications ---

type fakeNotifications struct {
	mu        sync.Mutex
	entries   []domain.NotificationEntry
	recordErr error
}

func (f *fakeNotifications) Record(_ context.Context, coachID, studentID primitive.ObjectID, cat domain.Category, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordErr != nil {
		return f.recordErr
	}
	for _, e := range f.entries {
		if e.CoachID == coachID && e.StudentID == studentID && e.Category == cat && !e.IsViewed {
			return nil
		}
	}
	f.entries = append(f.entries, domain.NotificationEntry{
		ID: primitive.NewObjectID(), CoachID: coachID, StudentID: studentID, Category: cat, CreatedAt: at,
	})
	return nil
}

func (f *fakeNotifications) CountUnviewed(_ context.Context, coachID, studentID primitive.ObjectID) (domain.Counts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var c domain.Counts
	for _, e := range f.entries {
		if e.CoachID == coachID && e.StudentID == studentID && !e.IsViewed {
			c.Add(e.Category, 1)
		}
	}
	return c, nil
}

func (f *fakeNotifications) CountUnviewedByCoach(_ context.Context, coachID primitive.ObjectID) (map[primitive.ObjectID]domain.Counts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[primitive.ObjectID]domain.Counts{}
	for _, e := range f.entries {
		if e.CoachID == coachID && !e.IsViewed {
			c := out[e.StudentID]
			c.Add(e.Category, 1)
			out[e.StudentID] = c
		}
	}
	return out, nil
}

func (f *fakeNotifications) MarkViewed(_ context.Context, coachID, studentID primitive.ObjectID, cat domain.Category, at time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for i := range f.entries {
		e := &f.entries[i]
		if e.CoachID == coachID && e.StudentID == studentID && e.Category == cat && !e.IsViewed {
			e.IsViewed = true
			e.ViewedAt = &at
			n++
		}
	}
	return n, nil
}

// --- plans, photos, messages ---

type fakePlans struct {
	mu    sync.Mutex
	plans []domain.Plan
}

func (f *fakePlans) Create(_ context.Context, p *domain.Plan) (primitive.ObjectID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.ID = primitive.NewObjectID()
	f.plans = append(f.plans, *p)
	return p.ID, nil
}

func (f *fakePlans) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Plan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.plans {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakePlans) ListByStudent(_ context.Context, studentID primitive.ObjectID, kind domain.PlanKind) ([]domain.Plan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Plan{}
	for _, p := range f.plans {
		if p.StudentID == studentID && (kind == "" || p.Kind == kind) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePlans) ListActive(_ context.Context, studentID primitive.ObjectID, kind domain.PlanKind) ([]domain.Plan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Plan{}
	for _, p := range f.plans {
		if p.StudentID == studentID && p.Kind == kind && p.IsActive {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].ActivatedAt, out[j].ActivatedAt
		if a == nil || b == nil {
			return a != nil
		}
		return a.After(*b)
	})
	return out, nil
}

func (f *fakePlans) DeactivateOthers(_ context.Context, studentID primitive.ObjectID, kind domain.PlanKind, keepID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.plans {
		p := &f.plans[i]
		if p.StudentID == studentID && p.Kind == kind && p.ID != keepID {
			p.IsActive = false
		}
	}
	return nil
}

func (f *fakePlans) Activate(_ context.Context, id primitive.ObjectID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.plans {
		if f.plans[i].ID == id {
			f.plans[i].IsActive = true
			f.plans[i].ActivatedAt = &at
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakePlans) active(studentID primitive.ObjectID, kind domain.PlanKind) []domain.Plan {
	out, _ := f.ListActive(context.Background(), studentID, kind)
	return out
}

type fakePhotos struct {
	mu        sync.Mutex
	photos    []domain.Photo
	createErr error
}

func (f *fakePhotos) Create(_ context.Context, p *domain.Photo) (primitive.ObjectID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return primitive.NilObjectID, f.createErr
	}
	p.ID = primitive.NewObjectID()
	f.photos = append(f.photos, *p)
	return p.ID, nil
}

func (f *fakePhotos) ListByStudent(_ context.Context, studentID primitive.ObjectID) ([]domain.Photo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Photo{}
	for _, p := range f.photos {
		if p.StudentID == studentID {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeMessages struct {
	mu   sync.Mutex
	msgs []domain.Message
}

func (f *fakeMessages) Create(_ context.Context, m *domain.Message) (primitive.ObjectID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m.ID = primitive.NewObjectID()
	f.msgs = append(f.msgs, *m)
	return m.ID, nil
}

func (f *fakeMessages) ListConversation(_ context.Context, coachID, studentID primitive.ObjectID, limit int64) ([]domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Message{}
	for _, m := range f.msgs {
		if m.CoachID == coachID && m.StudentID == studentID {
			out = append(out, m)
		}
	}
	if limit > 0 && int64(len(out)) > limit {
		out = out[int64(len(out))-limit:]
	}
	return out, nil
}

// --- storage and push ---

type fakeStorage struct {
	mu        sync.Mutex
	objects   map[string][]byte
	uploadErr error
}

func (f *fakeStorage) UploadObject(_ context.Context, key string, body io.Reader, _ int64, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[key] = data
	return f.PublicURL(key), nil
}

func (f *fakeStorage) PublicURL(key string) string { return "https://cdn.test/" + key }

func (f *fakeStorage) GeneratePresignedDownloadURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://signed.test/" + key + "?sig=1", nil
}

func (f *fakeStorage) DeleteObject(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *fakeStorage) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.objects))
	for k := range f.objects {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type pushed struct {
	To  primitive.ObjectID
	Msg push.Message
}

type recordingPusher struct {
	mu   sync.Mutex
	sent []pushed
}

func (r *recordingPusher) Notify(_ context.Context, userID primitive.ObjectID, msg push.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, pushed{To: userID, Msg: msg})
}

func (r *recordingPusher) to(id primitive.ObjectID) []push.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []push.Message
	for _, p := range r.sent {
		if p.To == id {
			out = append(out, p.Msg)
		}
	}
	return out
}

// --- fixtures ---

func pngPhoto(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.NRGBA{R: 10, G: 120, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func boolPtr(b bool) *bool { return &b }

func validForm() domain.SummaryForm {
	return domain.SummaryForm{
		Weight:        "80",
		FollowedDiet:  boolPtr(true),
		MissedWorkout: boolPtr(false),
	}
}

// world wires every service over the same fakes.
type world struct {
	clock         *fakeClock
	users         *fakeUsers
	summaries     *fakeSummaries
	sequences     *fakeSequences
	slots         *fakeSlots
	notifications *fakeNotifications
	plans         *fakePlans
	photos        *fakePhotos
	messages      *fakeMessages
	storage       *fakeStorage
	pusher        *recordingPusher

	coach   *domain.User
	student *domain.User
}

func newWorld(day string) *world {
	w := &world{
		clock:         newClock(day),
		users:         newFakeUsers(),
		summaries:     &fakeSummaries{},
		sequences:     &fakeSequences{},
		slots:         &fakeSlots{},
		notifications: &fakeNotifications{},
		plans:         &fakePlans{},
		photos:        &fakePhotos{},
		messages:      &fakeMessages{},
		storage:       &fakeStorage{},
		pusher:        &recordingPusher{},
	}
	w.coach = w.users.add(domain.User{Name: "Coach Rita", Email: "rita@example.com", Role: domain.RoleCoach})
	w.student = w.addStudent("Ana", "ana@example.com")
	return w
}

func (w *world) addStudent(name, email string) *domain.User {
	coachID := w.coach.ID
	return w.users.add(domain.User{Name: name, Email: email, Role: domain.RoleStudent, CoachID: &coachID})
}

func (w *world) summaryService() SummaryService {
	return NewSummaryService(SummaryDeps{
		Users:         w.users,
		Summaries:     w.summaries,
		Slots:         w.slots,
		Sequences:     w.sequences,
		Notifications: w.notifications,
		Storage:       w.storage,
		Pusher:        w.pusher,
		Log:           quietLog(),
	}, SummaryOptions{
		Cooldown:       7 * 24 * time.Hour,
		ObservationTTL: 7 * 24 * time.Hour,
		Now:            w.clock.Now,
	})
}

func (w *world) reviewService() ReviewService {
	return NewReviewService(w.users, w.summaries, w.clock.Now, quietLog())
}

func (w *world) feedbackService() FeedbackService {
	return NewFeedbackService(w.summaries, w.pusher, w.clock.Now, quietLog())
}

func (w *world) notificationService() NotificationService {
	return NewNotificationService(w.users, w.notifications, w.clock.Now, quietLog())
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
