package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"constitution-gpt/internal/model"
)

type fakeUserStore struct {
	mu     sync.Mutex
	nextID uint
	users  map[uint]*model.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[uint]*model.User{}}
}

func (f *fakeUserStore) Create(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	user.ID = f.nextID
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

func (f *fakeUserStore) find(match func(*model.User) bool) *model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if match(u) {
			cp := *u
			return &cp
		}
	}
	return nil
}

func (f *fakeUserStore) GetByUsername(_ context.Context, username string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.Username == username }), nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.Email == email }), nil
}

func (f *fakeUserStore) GetByUsernameOrEmail(_ context.Context, username, email string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.Username == username || u.Email == email }), nil
}

func (f *fakeUserStore) GetByID(_ context.Context, id uint) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.ID == id }), nil
}

func (f *fakeUserStore) ListByIDs(_ context.Context, ids []uint) ([]model.User, error) {
	var out []model.User
	for _, id := range ids {
		if u := f.find(func(u *model.User) bool { return u.ID == id }); u != nil {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeUserStore) ListLawyers(_ context.Context, city string, verifiedOnly bool) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.User
	for _, u := range f.users {
		if u.Role != model.RoleLawyer || (verifiedOnly && !u.IsVerified) {
			continue
		}
		if city != "" && u.City != city {
			continue
		}
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (f *fakeUserStore) SetVerified(_ context.Context, id uint, verified bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok || u.Role != model.RoleLawyer {
		return false, nil
	}
	u.IsVerified = verified
	return true, nil
}

func (f *fakeUserStore) UpdatePasswordHash(_ context.Context, id uint, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return errors.New("missing user")
	}
	u.PasswordHash = hash
	return nil
}

// fakeSessionStore mimics the storage-level compare-and-delete.
type fakeSessionStore struct {
	mu        sync.Mutex
	rows      map[string]model.RefreshSession
	createErr error
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{rows: map[string]model.RefreshSession{}}
}

func (f *fakeSessionStore) Create(_ context.Context, s *model.RefreshSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if _, exists := f.rows[s.Token]; exists {
		return errors.New("duplicate token")
	}
	f.rows[s.Token] = *s
	return nil
}

func (f *fakeSessionStore) DeleteByToken(_ context.Context, token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[token]; !ok {
		return false, nil
	}
	delete(f.rows, token)
	return true, nil
}

func (f *fakeSessionStore) DeleteByUserID(_ context.Context, userID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, v := range f.rows {
		if v.UserID == userID {
			delete(f.rows, k)
		}
	}
	return nil
}

func (f *fakeSessionStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

type fakeReviewStore struct {
	mu   sync.Mutex
	rows []model.Review
}

func (f *fakeReviewStore) Create(_ context.Context, r *model.Review) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r.ID = uint(len(f.rows) + 1)
	f.rows = append(f.rows, *r)
	return nil
}

func (f *fakeReviewStore) ExistsForPair(_ context.Context, lawyerID, userID uint) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.LawyerID == lawyerID && r.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeReviewStore) ListByLawyerID(_ context.Context, lawyerID uint) ([]model.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Review
	for _, r := range f.rows {
		if r.LawyerID == lawyerID {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeAppointmentStore struct {
	mu   sync.Mutex
	rows map[uint]*model.Appointment
}

func newFakeAppointmentStore() *fakeAppointmentStore {
	return &fakeAppointmentStore{rows: map[uint]*model.Appointment{}}
}

func (f *fakeAppointmentStore) Create(_ context.Context, a *model.Appointment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a.ID = uint(len(f.rows) + 1)
	cp := *a
	f.rows[a.ID] = &cp
	return nil
}

func (f *fakeAppointmentStore) GetByID(_ context.Context, id uint) (*model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAppointmentStore) list(match func(*model.Appointment) bool) []model.Appointment {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Appointment
	for _, a := range f.rows {
		if match(a) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeAppointmentStore) ListByUserID(_ context.Context, userID uint) ([]model.Appointment, error) {
	return f.list(func(a *model.Appointment) bool { return a.UserID == userID }), nil
}

func (f *fakeAppointmentStore) ListByLawyerID(_ context.Context, lawyerID uint) ([]model.Appointment, error) {
	return f.list(func(a *model.Appointment) bool { return a.LawyerID == lawyerID }), nil
}

func (f *fakeAppointmentStore) TransitionStatus(_ context.Context, id uint, from, to model.AppointmentStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.rows[id]
	if !ok || a.Status != from {
		return false, nil
	}
	a.Status = to
	return true, nil
}

type fakeDirectMessageStore struct {
	mu        sync.Mutex
	rows      []model.DirectMessage
	createErr error
	now       time.Time
}

func (f *fakeDirectMessageStore) Create(_ context.Context, m *model.DirectMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.now = f.now.Add(time.Minute)
	m.ID = uint(len(f.rows) + 1)
	m.CreatedAt = f.now
	f.rows = append(f.rows, *m)
	return nil
}

func (f *fakeDirectMessageStore) GetByID(_ context.Context, id uint) (*model.DirectMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.rows {
		if m.ID == id {
			cp := m
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeDirectMessageStore) ListConversation(_ context.Context, a, b uint) ([]model.DirectMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.DirectMessage
	for _, m := range f.rows {
		if (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeDirectMessageStore) ListInvolving(_ context.Context, userID uint) ([]model.DirectMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.DirectMessage
	for i := len(f.rows) - 1; i >= 0; i-- {
		if m := f.rows[i]; m.SenderID == userID || m.ReceiverID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeDirectMessageStore) MarkRead(_ context.Context, receiverID, senderID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if f.rows[i].ReceiverID == receiverID && f.rows[i].SenderID == senderID {
			f.rows[i].IsRead = true
		}
	}
	return nil
}

type fakeAttachmentStore struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newFakeAttachmentStore() *fakeAttachmentStore {
	return &fakeAttachmentStore{files: map[string][]byte{}}
}

func (f *fakeAttachmentStore) Save(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[key] = b
	return nil
}

func (f *fakeAttachmentStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.files[key]
	if !ok {
		return nil, errors.New("missing file")
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (f *fakeAttachmentStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, key)
	return nil
}
