package entitlement_test

import (
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nikolayk812/artesano/internal/catalog"
	"github.com/nikolayk812/artesano/internal/domain"
	"github.com/nikolayk812/artesano/internal/entitlement"
	"github.com/nikolayk812/artesano/internal/repository/memory"
	"github.com/nikolayk812/artesano/internal/security"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	courseID   = uuid.MustParse("00000000-0000-0000-0000-00000000c001")
	lesson1    = uuid.MustParse("00000000-0000-0000-0000-0000000001e1")
	lesson2    = uuid.MustParse("00000000-0000-0000-0000-0000000001e2")
	discardLog = slog.New(slog.NewTextHandler(io.Discard, nil))
)

type fixture struct {
	store       *memory.Store
	provisioner *entitlement.Provisioner
	shift       *atomic.Int64
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	store := memory.NewStore()
	shift := &atomic.Int64{}
	clock := func() time.Time { return time.Now().UTC().Add(time.Duration(shift.Load())) }

	courses := []domain.Course{{
		ID:     courseID,
		Title:  "Panadería Básica",
		Level:  "principiante",
		Price:  domain.NewMoney(decimal.NewFromInt(2500), domain.ARS),
		Active: true,
		Lessons: []domain.Lesson{
			{ID: lesson2, Title: "Amasado", Position: 2},
			{ID: lesson1, Title: "Ingredientes", Position: 1},
		},
	}}

	p, err := entitlement.NewProvisioner(
		store,
		catalog.NewStatic(nil, courses),
		security.NewLogger(store, discardLog),
		entitlement.Config{GrantTTL: 365 * 24 * time.Hour, ClientURL: "https://shop.test/"},
		discardLog,
		entitlement.WithClock(clock),
	)
	require.NoError(t, err)

	return fixture{store: store, provisioner: p, shift: shift}
}

func TestIssue(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	orderID := uuid.New()

	issued, err := f.provisioner.Issue(ctx, "  Ana@Example.COM ", courseID, orderID)
	require.NoError(t, err)

	assert.True(t, issued.Created)
	assert.Equal(t, "ana@example.com", issued.Grant.Email)
	assert.Len(t, issued.Grant.Token, 64)
	assert.Equal(t, "https://shop.test/acceder-curso.html?token="+issued.Grant.Token, issued.Link)
	assert.WithinDuration(t, time.Now().Add(365*24*time.Hour), issued.Grant.ExpiresAt, time.Minute)

	again, err := f.provisioner.Issue(ctx, "ana@example.com", courseID, orderID)
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, issued.Grant.ID, again.Grant.ID)
	assert.Equal(t, issued.Grant.Token, again.Grant.Token)

	other, err := f.provisioner.Issue(ctx, "ana@example.com", courseID, uuid.New())
	require.NoError(t, err)
	assert.True(t, other.Created)
	assert.NotEqual(t, issued.Grant.Token, other.Grant.Token)
}

func TestIssueConcurrentlyCreatesOneGrant(t *testing.T) {
	f := newFixture(t)
	orderID := uuid.New()

	var (
		wg      sync.WaitGroup
		created atomic.Int32
	)

	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()

			issued, err := f.provisioner.Issue(t.Context(), "ana@example.com", courseID, orderID)
			assert.NoError(t, err)
			if issued.Created {
				created.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())
}

func TestIssueValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.provisioner.Issue(t.Context(), " ", courseID, uuid.New())
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.provisioner.Issue(t.Context(), "ana@example.com", uuid.Nil, uuid.New())
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name        string
		tokenFunc   func(t *testing.T, f fixture) string
		wantValid   bool
		wantMessage string
		wantEvents  int
	}{
		{
			name: "fresh grant: valid",
			tokenFunc: func(t *testing.T, f fixture) string {
				return f.issue(t).Grant.Token
			},
			wantValid: true,
		},
		{
			name:        "unknown token: invalid",
			tokenFunc:   func(*testing.T, fixture) string { return strings.Repeat("a", 64) },
			wantMessage: "Invalid or expired access token",
			wantEvents:  1,
		},
		{
			name: "deactivated grant: invalid",
			tokenFunc: func(t *testing.T, f fixture) string {
				issued := f.issue(t)
				require.NoError(t, f.store.DeactivateGrant(issued.Grant.ID))
				return issued.Grant.Token
			},
			wantMessage: "Invalid or expired access token",
			wantEvents:  1,
		},
		{
			name: "expired grant: invalid",
			tokenFunc: func(t *testing.T, f fixture) string {
				issued := f.issue(t)
				f.shift.Store(int64(366 * 24 * time.Hour))
				return issued.Grant.Token
			},
			wantMessage: "Access has expired",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := t.Context()

			token := tt.tokenFunc(t, f)

			v, err := f.provisioner.Verify(ctx, token)
			require.NoError(t, err)

			assert.Equal(t, tt.wantValid, v.Valid)
			assert.Equal(t, tt.wantMessage, v.Message)

			events, err := f.store.SearchSecurityEvents(ctx, domain.SecurityEventFilter{
				Kinds: []domain.SecurityEventKind{domain.EventUnauthorizedAccess},
			})
			require.NoError(t, err)
			assert.Len(t, events, tt.wantEvents)

			if !tt.wantValid {
				return
			}

			assert.Equal(t, courseID, v.Course.ID)
			require.Len(t, v.Course.Lessons, 2)
			assert.Equal(t, "Ingredientes", v.Course.Lessons[0].Title, "lessons ordered by position")
			require.NotNil(t, v.Grant.LastAccessAt)

			stored, err := f.store.GetGrantByToken(ctx, token)
			require.NoError(t, err)
			assert.NotNil(t, stored.LastAccessAt)
		})
	}
}

func TestVerifyEmptyToken(t *testing.T) {
	f := newFixture(t)

	_, err := f.provisioner.Verify(t.Context(), "")
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestLesson(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	token := f.issue(t).Grant.Token

	lesson, err := f.provisioner.Lesson(ctx, token, lesson2)
	require.NoError(t, err)
	assert.Equal(t, "Amasado", lesson.Title)

	_, err = f.provisioner.Lesson(ctx, token, uuid.New())
	require.ErrorIs(t, err, domain.ErrLessonNotFound)

	_, err = f.provisioner.Lesson(ctx, strings.Repeat("b", 64), lesson1)
	require.ErrorIs(t, err, domain.ErrInvalidAccess)
}

func TestUpdateProgress(t *testing.T) {
	tests := []struct {
		name      string
		progress  int
		completed bool
		want      entitlement.Progress
	}{
		{name: "partial", progress: 40, want: entitlement.Progress{Progress: 40}},
		{name: "negative clamped", progress: -5, want: entitlement.Progress{Progress: 0}},
		{name: "over 100 clamped and completed", progress: 150, want: entitlement.Progress{Progress: 100, Completed: true}},
		{name: "exactly 100 completes", progress: 100, want: entitlement.Progress{Progress: 100, Completed: true}},
		{name: "completion asserted early", progress: 80, completed: true, want: entitlement.Progress{Progress: 80, Completed: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := t.Context()
			token := f.issue(t).Grant.Token

			got, err := f.provisioner.UpdateProgress(ctx, token, tt.progress, tt.completed)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			stored, err := f.store.GetGrantByToken(ctx, token)
			require.NoError(t, err)
			assert.Equal(t, tt.want.Progress, stored.Progress)
			assert.Equal(t, tt.want.Completed, stored.Completed)
		})
	}
}

func TestUpdateProgressExpired(t *testing.T) {
	f := newFixture(t)
	token := f.issue(t).Grant.Token
	f.shift.Store(int64(400 * 24 * time.Hour))

	_, err := f.provisioner.UpdateProgress(t.Context(), token, 50, false)
	require.ErrorIs(t, err, domain.ErrInvalidAccess)
	require.ErrorIs(t, err, domain.ErrAuth)
}

func TestCoursesForEmail(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	active := f.issue(t)

	revoked, err := f.provisioner.Issue(ctx, "ana@example.com", courseID, uuid.New())
	require.NoError(t, err)
	require.NoError(t, f.store.DeactivateGrant(revoked.Grant.ID))

	orphan, err := f.provisioner.Issue(ctx, "ana@example.com", uuid.New(), uuid.New())
	require.NoError(t, err)
	require.True(t, orphan.Created)

	_, err = f.provisioner.Issue(ctx, "luis@example.com", courseID, uuid.New())
	require.NoError(t, err)

	courses, err := f.provisioner.CoursesForEmail(ctx, "ANA@example.com")
	require.NoError(t, err)

	require.Len(t, courses, 1)
	assert.Equal(t, active.Grant.ID, courses[0].Grant.ID)
	assert.Equal(t, "Panadería Básica", courses[0].Course.Title)

	f.shift.Store(int64(400 * 24 * time.Hour))

	courses, err = f.provisioner.CoursesForEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Empty(t, courses)
}

func (f fixture) issue(t *testing.T) entitlement.Issued {
	t.Helper()

	issued, err := f.provisioner.Issue(t.Context(), "ana@example.com", courseID, uuid.New())
	require.NoError(t, err)

	return issued
}
