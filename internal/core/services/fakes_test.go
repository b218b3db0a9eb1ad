package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/slackpanel/internal/core/domain"
	"github.com/custodia-labs/slackpanel/internal/core/ports/driven"
)

// --- Fake source client ---

type fakeSource struct {
	mu sync.Mutex

	// records maps kind/date to that day's analytics.
	records  map[string][]domain.Record
	fetchErr map[string]error
	fetches  map[string]int

	details     map[string]domain.Detail
	detailErr   map[string]error
	detailCalls []string
	inFlight    int
	maxInFlight int

	entities map[domain.EntityKind][]domain.Entity
	listErr  error
	labels   map[string]string

	identities map[domain.CredentialRole]*domain.Identity
	authErr    map[domain.CredentialRole]error
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		records:    map[string][]domain.Record{},
		fetchErr:   map[string]error{},
		fetches:    map[string]int{},
		details:    map[string]domain.Detail{},
		detailErr:  map[string]error{},
		entities:   map[domain.EntityKind][]domain.Entity{},
		identities: map[domain.CredentialRole]*domain.Identity{},
		authErr:    map[domain.CredentialRole]error{},
	}
}

func dayKey(kind domain.EntityKind, date string) string {
	return string(kind) + "/" + date
}

func (f *fakeSource) setDay(kind domain.EntityKind, date string, recs ...domain.Record) {
	f.records[dayKey(kind, date)] = recs
}

func (f *fakeSource) TestAuth(_ context.Context, role domain.CredentialRole) (*domain.Identity, error) {
	if err := f.authErr[role]; err != nil {
		return nil, err
	}
	if id, ok := f.identities[role]; ok {
		return id, nil
	}
	return &domain.Identity{OK: true, TeamID: "T1", Team: "acme"}, nil
}

func (f *fakeSource) ListEntities(_ context.Context, kind domain.EntityKind) ([]domain.Entity, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.entities[kind], nil
}

func (f *fakeSource) GetEntityDetail(_ context.Context, _ domain.EntityKind, id string) (domain.Detail, error) {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.detailCalls = append(f.detailCalls, id)
	f.mu.Unlock()

	time.Sleep(time.Millisecond)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--
	if err := f.detailErr[id]; err != nil {
		return nil, err
	}
	if d, ok := f.details[id]; ok {
		return d, nil
	}
	return domain.Detail{"id": id}, nil
}

func (f *fakeSource) FetchDailyAnalytics(_ context.Context, start, _ time.Time, kind domain.EntityKind) ([]domain.Record, error) {
	key := dayKey(kind, start.Format(domain.DateLayout))

	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches[key]++
	if err := f.fetchErr[key]; err != nil {
		return nil, err
	}
	return f.records[key], nil
}

func (f *fakeSource) ProfileFieldLabels(_ context.Context) (map[string]string, error) {
	return f.labels, nil
}

func (f *fakeSource) totalFetches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.fetches {
		n += c
	}
	return n
}

// --- Fake blob store ---

const fakeBlobPrefix = "mem://store/"

type fakeBlobStore struct {
	mu       sync.Mutex
	files    map[string][]domain.EnrichedRecord
	writes   map[string]int
	deleted  []string
	existErr error
	writeErr error
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{
		files:  map[string][]domain.EnrichedRecord{},
		writes: map[string]int{},
	}
}

func (b *fakeBlobStore) rel(path string) string {
	return strings.TrimPrefix(path, fakeBlobPrefix)
}

func (b *fakeBlobStore) Exists(_ context.Context, path string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.existErr != nil {
		return false, b.existErr
	}
	_, ok := b.files[b.rel(path)]
	return ok, nil
}

func (b *fakeBlobStore) Write(_ context.Context, path string, records []domain.EnrichedRecord) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.writeErr != nil {
		return "", b.writeErr
	}
	b.files[path] = records
	b.writes[path]++
	return fakeBlobPrefix + path, nil
}

func (b *fakeBlobStore) Read(_ context.Context, path string) ([]domain.EnrichedRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	recs, ok := b.files[b.rel(path)]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrNotFound)
	}
	return recs, nil
}

func (b *fakeBlobStore) Delete(_ context.Context, path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.files, b.rel(path))
	b.deleted = append(b.deleted, path)
}

func (b *fakeBlobStore) ResolveFullPath(path string) string {
	return fakeBlobPrefix + path
}

// --- Fake uploader ---

type uploadCall struct {
	recordType domain.RecordType
	groupKey   string
	files      []string
	payloads   []domain.Payload
}

type fakeUploader struct {
	mu     sync.Mutex
	reader driven.RecordReader
	calls  []uploadCall

	// failures counts how many calls per record type fail before succeeding; -1 fails forever.
	failures map[domain.RecordType]int
}

func newFakeUploader(reader driven.RecordReader) *fakeUploader {
	return &fakeUploader{reader: reader, failures: map[domain.RecordType]int{}}
}

func (u *fakeUploader) Upload(ctx context.Context, files []string, opts driven.UploadOptions) (*driven.UploadResult, error) {
	call := uploadCall{recordType: opts.RecordType, groupKey: opts.GroupKey, files: files}
	for _, f := range files {
		recs, err := u.reader.Read(ctx, f)
		if err != nil {
			return nil, err
		}
		for _, r := range recs {
			if p := opts.Transform(r, opts.Heavy); p != nil {
				call.payloads = append(call.payloads, p)
			}
		}
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls = append(u.calls, call)

	switch n := u.failures[opts.RecordType]; {
	case n < 0:
		return nil, fmt.Errorf("%s batch rejected", opts.RecordType)
	case n > 0:
		u.failures[opts.RecordType] = n - 1
		return nil, fmt.Errorf("%s batch rejected", opts.RecordType)
	}
	return &driven.UploadResult{Files: len(files), Records: len(call.payloads), Batches: 1}, nil
}

func (u *fakeUploader) callsFor(rt domain.RecordType) []uploadCall {
	u.mu.Lock()
	defer u.mu.Unlock()
	var out []uploadCall
	for _, c := range u.calls {
		if c.recordType == rt {
			out = append(out, c)
		}
	}
	return out
}

// noSleep is a Sleeper that returns immediately.
func noSleep(context.Context, time.Duration) {}

var (
	_ driven.SourceClient        = (*fakeSource)(nil)
	_ driven.ProfileFieldLabeler = (*fakeSource)(nil)
	_ driven.BlobStore           = (*fakeBlobStore)(nil)
	_ driven.Uploader            = (*fakeUploader)(nil)
)
