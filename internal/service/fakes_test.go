package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"omniops/internal/cache"
	"omniops/internal/formbuilder"
	"omniops/internal/inference"
	"omniops/internal/model"
)

var errStoreDown = errors.New("connection refused")

type fakeItemStore struct {
	mu        sync.Mutex
	items     map[string]model.Item
	seq       int
	listCalls int
	failWrite error
}

func newFakeItemStore(items ...model.Item) *fakeItemStore {
	s := &fakeItemStore{items: map[string]model.Item{}}
	for _, it := range items {
		s.items[it.ID] = it
	}
	return s
}

func (s *fakeItemStore) List(context.Context) ([]model.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	out := make([]model.Item, 0, len(s.items))
	for _, it := range s.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *fakeItemStore) Insert(_ context.Context, it *model.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrite != nil {
		return s.failWrite
	}
	s.seq++
	it.ID = fmt.Sprintf("00000000-0000-0000-0000-%012d", s.seq)
	it.CreatedAt = time.Unix(int64(1700000000+s.seq), 0)
	s.items[it.ID] = *it
	return nil
}

func (s *fakeItemStore) UpdateStatus(_ context.Context, id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrite != nil {
		return s.failWrite
	}
	it, ok := s.items[id]
	if !ok {
		return pgx.ErrNoRows
	}
	it.Status = status
	s.items[id] = it
	return nil
}

func (s *fakeItemStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrite != nil {
		return s.failWrite
	}
	if _, ok := s.items[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(s.items, id)
	return nil
}

func (s *fakeItemStore) stored(id string) (model.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	return it, ok
}

// failingGenerator 模拟推理接口不可用：总是返回离线模板
type failingGenerator struct {
	calls []string
}

func (g *failingGenerator) Generate(_ context.Context, prompt, instruction string) inference.Result {
	g.calls = append(g.calls, instruction)
	return inference.Result{Text: inference.Fallback(prompt, instruction), Fallback: true, Reason: "network"}
}

type publishedEvent struct {
	key     string
	payload any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, key string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{key: key, payload: payload})
	return p.err
}

func (p *recordingPublisher) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.key)
	}
	return out
}

type fakeDrafts struct {
	mu     sync.Mutex
	drafts map[string][]byte
}

func newFakeDrafts() *fakeDrafts { return &fakeDrafts{drafts: map[string][]byte{}} }

// 和 Redis 实现一样按 JSON 存
func (d *fakeDrafts) Save(_ context.Context, b *formbuilder.Builder) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	raw, err := json.Marshal(b)
	if err != nil {
		return err
	}
	d.drafts[b.ID] = raw
	return nil
}

func (d *fakeDrafts) Load(_ context.Context, id string) (*formbuilder.Builder, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	raw, ok := d.drafts[id]
	if !ok {
		return nil, cache.ErrDraftNotFound
	}
	var b formbuilder.Builder
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (d *fakeDrafts) Delete(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.drafts, id)
	return nil
}

type fakeFormStore struct {
	mu      sync.Mutex
	forms   map[string]model.Form
	inserts int
	gets    int
	err     error
}

func newFakeFormStore() *fakeFormStore { return &fakeFormStore{forms: map[string]model.Form{}} }

func (s *fakeFormStore) Insert(_ context.Context, title string, fields []model.Field) (*model.Form, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inserts++
	if s.err != nil {
		return nil, s.err
	}
	f := model.Form{
		ID:        fmt.Sprintf("11111111-0000-0000-0000-%012d", s.inserts),
		Title:     title,
		Fields:    fields,
		CreatedAt: time.Now(),
	}
	s.forms[f.ID] = f
	return &f, nil
}

func (s *fakeFormStore) Get(_ context.Context, id string) (*model.Form, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	f, ok := s.forms[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &f, nil
}

func (s *fakeFormStore) List(context.Context) ([]model.Form, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Form, 0, len(s.forms))
	for _, f := range s.forms {
		out = append(out, f)
	}
	return out, nil
}

func (s *fakeFormStore) Count(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.forms), s.err
}

type memFormCache struct {
	mu    sync.Mutex
	forms map[string]model.Form
}

func newMemFormCache() *memFormCache { return &memFormCache{forms: map[string]model.Form{}} }

func (c *memFormCache) Get(_ context.Context, id string) (*model.Form, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.forms[id]
	if !ok {
		return nil, false
	}
	return &f, true
}

func (c *memFormCache) Set(_ context.Context, f *model.Form) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.forms[f.ID] = *f
}

type fakeSubmissionStore struct {
	mu    sync.Mutex
	subs  []model.Submission
	forms *fakeFormStore
	err   error
}

func (s *fakeSubmissionStore) Insert(_ context.Context, formID string, data map[string]any) (*model.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	sub := model.Submission{
		ID:        fmt.Sprintf("22222222-0000-0000-0000-%012d", len(s.subs)+1),
		FormID:    formID,
		Data:      data,
		CreatedAt: time.Unix(int64(1700000000+len(s.subs)), 0),
	}
	s.subs = append(s.subs, sub)
	return &sub, nil
}

func (s *fakeSubmissionStore) join(sub model.Submission) model.SubmissionWithForm {
	out := model.SubmissionWithForm{Submission: sub}
	if f, err := s.forms.Get(context.Background(), sub.FormID); err == nil {
		out.FormTitle = &f.Title
		out.FormFields = f.Fields
	}
	return out
}

func (s *fakeSubmissionStore) ListWithForms(context.Context) ([]model.SubmissionWithForm, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]model.SubmissionWithForm, 0, len(s.subs))
	for i := len(s.subs) - 1; i >= 0; i-- {
		out = append(out, s.join(s.subs[i]))
	}
	return out, nil
}

func (s *fakeSubmissionStore) GetWithForm(_ context.Context, id string) (*model.SubmissionWithForm, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		if sub.ID == id {
			j := s.join(sub)
			return &j, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *fakeSubmissionStore) Count(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs), nil
}

type memDeduper struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newMemDeduper() *memDeduper { return &memDeduper{seen: map[string]bool{}} }

func (d *memDeduper) AcquireOnce(_ context.Context, scope, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	k := scope + ":" + key
	if d.seen[k] {
		return false
	}
	d.seen[k] = true
	return true
}

func (d *memDeduper) Release(_ context.Context, scope, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, scope+":"+key)
}

