package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/atinyakov/go-qr-expiry/internal/app/service"
	"github.com/atinyakov/go-qr-expiry/internal/artifact"
	"github.com/atinyakov/go-qr-expiry/internal/clock"
	"github.com/atinyakov/go-qr-expiry/internal/encoder"
	"github.com/atinyakov/go-qr-expiry/internal/mocks"
	"github.com/atinyakov/go-qr-expiry/internal/storage"
)

const baseURL = "http://localhost:8080"

// payloadEncoder returns the payload itself, so tests can read back what was encoded.
type payloadEncoder struct {
	err error
}

func (e payloadEncoder) Encode(payload string) ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	return []byte(payload), nil
}

func (payloadEncoder) Extension() string { return "png" }

type memArtifacts struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemArtifacts() *memArtifacts {
	return &memArtifacts{files: map[string][]byte{}}
}

func (a *memArtifacts) Put(_ context.Context, name string, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.files[name] = data
	return nil
}

func (a *memArtifacts) Get(_ context.Context, name string) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	b, ok := a.files[name]
	if !ok {
		return nil, artifact.ErrNotFound
	}
	return b, nil
}

func kolkata(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	return loc
}

type fixture struct {
	svc   *service.CodeService
	clock *clock.Fixed
	arts  *memArtifacts
	store *storage.MemoryStorage
}

func newFixture(t *testing.T, now time.Time) fixture {
	t.Helper()

	c := clock.NewFixed(now, kolkata(t))
	store, err := storage.CreateMemoryStorage(c)
	require.NoError(t, err)

	arts := newMemArtifacts()
	svc := service.NewCodeService(store, c, payloadEncoder{}, arts, service.IssuerConfig{BaseURL: baseURL}, zap.NewNop())
	return fixture{svc: svc, clock: c, arts: arts, store: store}
}

func TestIssueThenResolve(t *testing.T) {
	f := newFixture(t, time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	issued, err := f.svc.Issue(ctx, "https://example.com/page", "2024-02-01T09:30")
	require.NoError(t, err)

	assert.Equal(t, "/generated_codes/qrcode_"+issued.ID+".png", issued.ArtifactPath)
	assert.True(t, issued.ExpiresAt.Equal(time.Date(2024, 2, 1, 4, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-02-01T09:30", issued.ExpiresAt.Format(clock.Layout))

	payload, err := f.arts.Get(ctx, "qrcode_"+issued.ID+".png")
	require.NoError(t, err)
	assert.Equal(t, baseURL+"/validate?doc_id="+issued.ID, string(payload))

	target, err := f.svc.Resolve(ctx, issued.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/page", target)
}

func TestIssue_InvalidRequest(t *testing.T) {
	f := newFixture(t, time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))

	tests := []struct {
		name    string
		target  string
		expires string
		msg     string
	}{
		{name: "empty url", target: "", expires: "2030-01-01T10:00", msg: service.MsgMissingInput},
		{name: "blank url", target: "   ", expires: "2030-01-01T10:00", msg: service.MsgMissingInput},
		{name: "empty expiration", target: "https://example.com", expires: "", msg: service.MsgMissingInput},
		{name: "seconds", target: "https://example.com", expires: "2030-01-01T10:00:00", msg: service.MsgInvalidFormat},
		{name: "date only", target: "https://example.com", expires: "2030-01-01", msg: service.MsgInvalidFormat},
		{name: "with zone", target: "https://example.com", expires: "2030-01-01T10:00Z", msg: service.MsgInvalidFormat},
		{name: "garbage", target: "https://example.com", expires: "tomorrow", msg: service.MsgInvalidFormat},
		{name: "past", target: "https://example.com", expires: "2020-01-01T10:00", msg: service.MsgPastExpiration},
		{name: "relative url", target: "/local/path", expires: "2030-01-01T10:00", msg: service.MsgInvalidURL},
		{name: "unsupported scheme", target: "ftp://example.com", expires: "2030-01-01T10:00", msg: service.MsgInvalidURL},
		{name: "past wins over bad url", target: "nope", expires: "2020-01-01T10:00", msg: service.MsgPastExpiration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Issue(context.Background(), tt.target, tt.expires)
			require.Error(t, err)
			assert.ErrorIs(t, err, service.ErrInvalidRequest)
			assert.Equal(t, tt.msg, err.Error())
		})
	}

	active, err := f.store.ListActive(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Empty(t, active, "rejected requests must not write records")
	assert.Empty(t, f.arts.files)
}

func TestIssue_ExpirationEqualToNowIsPast(t *testing.T) {
	// 2030-01-01T10:00 in Kolkata.
	f := newFixture(t, time.Date(2030, 1, 1, 4, 30, 0, 0, time.UTC))

	_, err := f.svc.Issue(context.Background(), "https://example.com", "2030-01-01T10:00")
	assert.ErrorIs(t, err, service.ErrInvalidRequest)

	f.clock.Advance(-time.Minute)
	_, err = f.svc.Issue(context.Background(), "https://example.com", "2030-01-01T10:00")
	assert.NoError(t, err)
}

func TestIssue_InputZoneDiffersFromCanonical(t *testing.T) {
	c := clock.NewFixed(time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC), kolkata(t))
	store, err := storage.CreateMemoryStorage(c)
	require.NoError(t, err)

	svc := service.NewCodeService(store, c, payloadEncoder{}, newMemArtifacts(),
		service.IssuerConfig{BaseURL: baseURL, InputZone: time.UTC}, zap.NewNop())

	issued, err := svc.Issue(context.Background(), "https://example.com", "2030-01-01T10:00")
	require.NoError(t, err)

	assert.True(t, issued.ExpiresAt.Equal(time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2030-01-01 15:30", issued.ExpiresAt.Format("2006-01-02 15:04"))
}

func TestResolve_UnknownIsNotFound(t *testing.T) {
	f := newFixture(t, time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))

	for _, now := range []time.Time{
		time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2200, 1, 1, 0, 0, 0, 0, time.UTC),
	} {
		f.clock.Set(now)
		_, err := f.svc.Resolve(context.Background(), "nonexistent-id")
		assert.ErrorIs(t, err, service.ErrNotFound)
		assert.NotErrorIs(t, err, service.ErrExpired)
		assert.Equal(t, service.MsgInvalidCode, err.Error())
	}
}

func TestResolve_MissingID(t *testing.T) {
	f := newFixture(t, time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))

	_, err := f.svc.Resolve(context.Background(), " ")
	assert.ErrorIs(t, err, service.ErrInvalidRequest)
	assert.Equal(t, service.MsgMissingDocumentID, err.Error())
}

func TestResolve_ExpiredStaysExpired(t *testing.T) {
	f := newFixture(t, time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	issued, err := f.svc.Issue(ctx, "https://example.com", "2024-01-15T18:00")
	require.NoError(t, err)

	// 18:00 IST is 12:30 UTC.
	f.clock.Set(time.Date(2024, 1, 15, 12, 30, 0, 0, time.UTC))
	for i := 0; i < 5; i++ {
		_, err = f.svc.Resolve(ctx, issued.ID)
		assert.ErrorIs(t, err, service.ErrExpired)
		assert.Equal(t, service.MsgExpired, err.Error())
		f.clock.Advance(time.Hour)
	}
}

func TestIssue_IDsAreUnique(t *testing.T) {
	f := newFixture(t, time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	const trials = 10000
	seen := make(map[string]struct{}, trials)
	for i := 0; i < trials; i++ {
		issued, err := f.svc.Issue(ctx, fmt.Sprintf("https://example.com/%d", i), "2099-01-01T00:00")
		require.NoError(t, err)
		_, dup := seen[issued.ID]
		require.False(t, dup, "duplicate id %s", issued.ID)
		seen[issued.ID] = struct{}{}
	}
	assert.Len(t, seen, trials)
}

func TestTimeZoneRoundTrip(t *testing.T) {
	loc := kolkata(t)
	f := newFixture(t, time.Date(2029, 12, 31, 0, 0, 0, 0, loc))
	ctx := context.Background()

	issued, err := f.svc.Issue(ctx, "https://example.com", "2030-01-01T10:00")
	require.NoError(t, err)
	assert.True(t, issued.ExpiresAt.Equal(time.Date(2030, 1, 1, 4, 30, 0, 0, time.UTC)))

	// One minute before expiry on the canonical wall clock.
	f.clock.Set(time.Date(2030, 1, 1, 9, 59, 0, 0, loc))
	target, err := f.svc.Resolve(ctx, issued.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", target)

	// One minute after the equivalent UTC instant. A naive comparison of
	// 04:31 against 10:00 would still call this active.
	f.clock.Set(time.Date(2030, 1, 1, 4, 31, 0, 0, time.UTC))
	_, err = f.svc.Resolve(ctx, issued.ID)
	assert.ErrorIs(t, err, service.ErrExpired)

	// 09:59 UTC is long past 04:30 UTC.
	f.clock.Set(time.Date(2030, 1, 1, 9, 59, 0, 0, time.UTC))
	_, err = f.svc.Resolve(ctx, issued.ID)
	assert.ErrorIs(t, err, service.ErrExpired)
}

func TestScenario_IssueResolveExpire(t *testing.T) {
	loc := kolkata(t)
	c := clock.NewFixed(time.Date(2024, 6, 1, 0, 0, 0, 0, loc), loc)
	store, err := storage.CreateMemoryStorage(c)
	require.NoError(t, err)
	dir, err := artifact.NewDir(t.TempDir())
	require.NoError(t, err)

	svc := service.NewCodeService(store, c, encoder.NewQR(), dir, service.IssuerConfig{BaseURL: baseURL}, zap.NewNop())
	ctx := context.Background()

	issued, err := svc.Issue(ctx, "https://example.com", "2099-01-01T00:00")
	require.NoError(t, err)
	assert.Contains(t, issued.ArtifactPath, issued.ID)

	img, err := dir.Get(ctx, "qrcode_"+issued.ID+".png")
	require.NoError(t, err)
	assert.NotEmpty(t, img)

	target, err := svc.Resolve(ctx, issued.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", target)

	c.Set(time.Date(2100, 1, 1, 0, 0, 0, 0, loc))
	_, err = svc.Resolve(ctx, issued.ID)
	assert.ErrorIs(t, err, service.ErrExpired)

	_, err = svc.Resolve(ctx, "nonexistent-id")
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = svc.Issue(ctx, "", "2030-01-01T10:00")
	assert.ErrorIs(t, err, service.ErrInvalidRequest)
}

func TestActive(t *testing.T) {
	f := newFixture(t, time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	short, err := f.svc.Issue(ctx, "https://short.com", "2024-01-15T18:00")
	require.NoError(t, err)
	long, err := f.svc.Issue(ctx, "https://long.com", "2099-01-01T00:00")
	require.NoError(t, err)

	active, err := f.svc.Active(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	f.clock.Set(time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC))
	active, err = f.svc.Active(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, long.ID, active[0].ID)
	assert.NotEqual(t, short.ID, active[0].ID)

	assert.NoError(t, f.svc.PingContext(ctx))
}

func TestStoreUnavailable(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	c := clock.NewFixed(time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC), nil)

	core, logs := observer.New(zap.ErrorLevel)
	svc := service.NewCodeService(store, c, payloadEncoder{}, newMemArtifacts(),
		service.IssuerConfig{BaseURL: baseURL, StoreTimeout: 20 * time.Millisecond}, zap.New(core))
	ctx := context.Background()

	t.Run("create fails", func(t *testing.T) {
		store.EXPECT().Create(gomock.Any(), "https://example.com", gomock.Any()).
			Return(storage.Record{}, fmt.Errorf("%w: connection refused", storage.ErrUnavailable))

		_, err := svc.Issue(ctx, "https://example.com", "2030-01-01T10:00")
		assert.ErrorIs(t, err, service.ErrStoreUnavailable)
		assert.Equal(t, service.MsgStoreUnavailable, err.Error())

		var se *service.Error
		require.True(t, errors.As(err, &se))
		assert.ErrorIs(t, se.Err, storage.ErrUnavailable)
	})

	t.Run("create times out", func(t *testing.T) {
		store.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, _ string, _ time.Time) (storage.Record, error) {
				<-ctx.Done()
				return storage.Record{}, ctx.Err()
			})

		_, err := svc.Issue(ctx, "https://example.com", "2030-01-01T10:00")
		assert.ErrorIs(t, err, service.ErrStoreUnavailable)
	})

	t.Run("get fails", func(t *testing.T) {
		store.EXPECT().Get(gomock.Any(), "some-id").
			Return(storage.Record{}, errors.New("i/o timeout"))

		_, err := svc.Resolve(ctx, "some-id")
		assert.ErrorIs(t, err, service.ErrStoreUnavailable)
		assert.NotErrorIs(t, err, service.ErrNotFound)
	})

	t.Run("list fails", func(t *testing.T) {
		store.EXPECT().ListActive(gomock.Any(), gomock.Any()).
			Return(nil, errors.New("i/o timeout"))

		_, err := svc.Active(ctx)
		assert.ErrorIs(t, err, service.ErrStoreUnavailable)
	})

	assert.NotZero(t, logs.Len())
}

func TestIssue_EncoderFailureIsInternal(t *testing.T) {
	c := clock.NewFixed(time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC), nil)
	store, err := storage.CreateMemoryStorage(c)
	require.NoError(t, err)

	svc := service.NewCodeService(store, c, payloadEncoder{err: errors.New("too long")}, newMemArtifacts(),
		service.IssuerConfig{BaseURL: baseURL}, zap.NewNop())

	_, err = svc.Issue(context.Background(), "https://example.com", "2030-01-01T10:00")
	require.Error(t, err)

	var se *service.Error
	assert.False(t, errors.As(err, &se))
}

func TestResolverURL(t *testing.T) {
	assert.Equal(t, "http://host/validate?doc_id=abc", service.ResolverURL("http://host/", "abc"))
	assert.Equal(t, "http://host/validate?doc_id=a%26b", service.ResolverURL("http://host", "a&b"))
}
