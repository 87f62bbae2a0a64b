package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/opentutorials-org/otu-sync/internal/errs"
	"github.com/opentutorials-org/otu-sync/internal/model"
	"github.com/opentutorials-org/otu-sync/internal/repository"
)

// memStore mimics the Postgres schema: primary keys, user-scoped writes and
// the tombstone triggers (page plain insert, folder and alarm upsert).
type memStore struct {
	mu sync.Mutex

	pages      map[string]model.Page
	pageTomb   map[string]bool
	folders    map[string]model.Folder
	folderTomb map[string]bool
	alarms     map[string]model.Alarm
	alarmTomb  map[string]bool
	jobs       []model.Job
	nextJobID  int64

	calls []string
	fail  map[string]error // keyed by call, e.g. "page.update p1"

	findDelay time.Duration // widens the job find/insert window
}

func newMemStore() *memStore {
	return &memStore{
		pages:      map[string]model.Page{},
		pageTomb:   map[string]bool{},
		folders:    map[string]model.Folder{},
		folderTomb: map[string]bool{},
		alarms:     map[string]model.Alarm{},
		alarmTomb:  map[string]bool{},
		fail:       map[string]error{},
	}
}

func (m *memStore) stores() Stores {
	return Stores{
		Pages:   pageStore{m},
		Folders: folderStore{m},
		Alarms:  alarmStore{m},
		Jobs:    jobStore{m},
	}
}

// record logs a call and returns its injected failure, if any. Caller holds mu.
func (m *memStore) record(call string) error {
	m.calls = append(m.calls, call)
	return m.fail[call]
}

func (m *memStore) callsWithPrefix(prefix string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, c := range m.calls {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

func (m *memStore) jobsFor(userID uuid.UUID, pageID string) []model.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Job
	for _, j := range m.jobs {
		if j.UserID == userID && j.Payload == pageID && j.JobName == model.JobEmbedding {
			out = append(out, j)
		}
	}
	return out
}

func uniqueViolation(table string) error {
	return &errs.StoreError{Op: "insert", Table: table, Code: errs.CodeUniqueViolation, Err: errors.New("duplicate key value violates unique constraint")}
}

type pageStore struct{ m *memStore }

var _ repository.PageRepository = pageStore{}

func (s pageStore) Exists(_ context.Context, id string) (bool, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if err := s.m.record("page.exists " + id); err != nil {
		return false, err
	}
	_, ok := s.m.pages[id]
	return ok, nil
}

func (s pageStore) Insert(_ context.Context, p model.Page) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if err := s.m.record("page.insert " + p.ID); err != nil {
		return err
	}
	if _, ok := s.m.pages[p.ID]; ok {
		return uniqueViolation("page")
	}
	s.m.pages[p.ID] = p
	return nil
}

func (s pageStore) Update(_ context.Context, p model.Page) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if err := s.m.record("page.update " + p.ID); err != nil {
		return err
	}
	if cur, ok := s.m.pages[p.ID]; ok && cur.UserID == p.UserID {
		s.m.pages[p.ID] = p
	}
	return nil
}

func (s pageStore) Delete(_ context.Context, userID uuid.UUID, id string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if err := s.m.record("page.delete " + id); err != nil {
		return err
	}
	cur, ok := s.m.pages[id]
	if !ok || cur.UserID != userID {
		return nil
	}
	if s.m.pageTomb[id] {
		return uniqueViolation("page_deleted")
	}
	delete(s.m.pages, id)
	s.m.pageTomb[id] = true
	return nil
}

func (s pageStore) CancelDelete(_ context.Context, _ uuid.UUID, id string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if err := s.m.record("page.cancel_delete " + id); err != nil {
		return err
	}
	delete(s.m.pageTomb, id)
	return nil
}

type folderStore struct{ m *memStore }

var _ repository.FolderRepository = folderStore{}

func (s folderStore) Exists(_ context.Context, id string) (bool, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if err := s.m.record("folder.exists " + id); err != nil {
		return false, err
	}
	_, ok := s.m.folders[id]
	return ok, nil
}

func (s folderStore) Insert(_ context.Context, f model.Folder) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if err := s.m.record("folder.insert " + f.ID); err != nil {
		return err
	}
	if _, ok := s.m.folders[f.ID]; ok {
		return uniqueViolation("folder")
	}
	s.m.folders[f.ID] = f
	return nil
}

func (s folderStore) Update(_ context.Context, f model.Folder) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if err := s.m.record("folder.update " + f.ID); err != nil {
		return err
	}
	if cur, ok := s.m.folders[f.ID]; ok && cur.UserID == f.UserID {
		s.m.folders[f.ID] = f
	}
	return nil
}

func (s folderStore) Delete(_ context.Context, userID uuid.UUID, id string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if err := s.m.record("folder.delete " + id); err != nil {
		return err
	}
	if cur, ok := s.m.folders[id]; ok && cur.UserID == userID {
		delete(s.m.folders, id)
		s.m.folderTomb[id] = true
	}
	return nil
}

func (s folderStore) CancelDelete(_ context.Context, _ uuid.UUID, id string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if err := s.m.record("folder.cancel_delete " + id); err != nil {
		return err
	}
	delete(s.m.folderTomb, id)
	return nil
}

type alarmStore struct{ m *memStore }

var _ repository.AlarmRepository = alarmStore{}

func (s alarmStore) Exists(_ context.Context, id string) (bool, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if err := s.m.record("alarm.exists " + id); err != nil {
		return false, err
	}
	_, ok := s.m.alarms[id]
	return ok, nil
}

func (s alarmStore) Insert(_ context.Context, a model.Alarm) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if err := s.m.record("alarm.insert " + a.ID); err != nil {
		return err
	}
	if _, ok := s.m.alarms[a.ID]; ok {
		return uniqueViolation("alarm")
	}
	s.m.alarms[a.ID] = a
	return nil
}

func (s alarmStore) Update(_ context.Context, a model.Alarm) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if err := s.m.record("alarm.update " + a.ID); err != nil {
		return err
	}
	if cur, ok := s.m.alarms[a.ID]; ok && cur.UserID == a.UserID {
		s.m.alarms[a.ID] = a
	}
	return nil
}

func (s alarmStore) Delete(_ context.Context, userID uuid.UUID, id string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if err := s.m.record("alarm.delete " + id); err != nil {
		return err
	}
	if cur, ok := s.m.alarms[id]; ok && cur.UserID == userID {
		delete(s.m.alarms, id)
		s.m.alarmTomb[id] = true
	}
	return nil
}

type jobStore struct{ m *memStore }

var _ repository.JobRepository = jobStore{}

func (s jobStore) FindByPayload(_ context.Context, userID uuid.UUID, name, payload string) ([]model.Job, error) {
	time.Sleep(s.m.findDelay)
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if err := s.m.record("job.find " + payload); err != nil {
		return nil, err
	}
	var out []model.Job
	for _, j := range s.m.jobs {
		if j.UserID == userID && j.JobName == name && j.Payload == payload {
			out = append(out, j)
		}
	}
	return out, nil
}

func (s jobStore) Insert(_ context.Context, j model.Job) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if err := s.m.record("job.insert " + j.Payload); err != nil {
		return err
	}
	s.m.nextJobID++
	j.ID = s.m.nextJobID
	s.m.jobs = append(s.m.jobs, j)
	return nil
}

func (s jobStore) Reschedule(_ context.Context, userID uuid.UUID, name, payload, status string, at time.Time) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if err := s.m.record("job.reschedule " + payload); err != nil {
		return err
	}
	for i, j := range s.m.jobs {
		if j.UserID == userID && j.JobName == name && j.Payload == payload {
			s.m.jobs[i].Status, s.m.jobs[i].ScheduledTime = status, at
		}
	}
	return nil
}

func (s jobStore) DeleteByPayload(_ context.Context, userID uuid.UUID, name, payload string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if err := s.m.record("job.delete " + payload); err != nil {
		return err
	}
	kept := s.m.jobs[:0]
	for _, j := range s.m.jobs {
		if !(j.UserID == userID && j.JobName == name && j.Payload == payload) {
			kept = append(kept, j)
		}
	}
	s.m.jobs = kept
	return nil
}

// rec builds a client record with id, updated_at and extra key/value pairs.
func rec(id string, updatedAt int64, kv ...any) model.Record {
	r := model.Record{"id": id, "updated_at": updatedAt}
	for i := 0; i+1 < len(kv); i += 2 {
		r[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return r
}
