package bot

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wooix/ideabot/internal/draftstore"
	"github.com/wooix/ideabot/internal/issue"
	"github.com/wooix/ideabot/internal/refine"
	"github.com/wooix/ideabot/internal/tracker"
)

type fakeRefiner struct {
	result *refine.Result
	err    error
	calls  int
}

func (f *fakeRefiner) Refine(ctx context.Context, idea string) (*refine.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type trackerCall struct {
	Title     string
	Body      string
	Phase     int
	TypeLabel string
}

type fakeTracker struct {
	mu      sync.Mutex
	created *tracker.CreatedIssue
	err     error
	calls   []trackerCall
}

func (f *fakeTracker) Create(ctx context.Context, title, body string, phase int, typeLabel string) (*tracker.CreatedIssue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, trackerCall{Title: title, Body: body, Phase: phase, TypeLabel: typeLabel})
	if f.err != nil {
		return nil, f.err
	}
	return f.created, nil
}

func (f *fakeTracker) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func darkModeResult() *refine.Result {
	return &refine.Result{
		Type:     issue.TypeFeature,
		Title:    "다크 모드 토글 추가",
		Phase:    2,
		Priority: issue.PriorityP1,
		Fields: map[string]string{
			"goal":       "다크 모드 지원",
			"tasks":      "- [ ] 토글 컴포넌트 추가",
			"acceptance": "설정에서 전환 가능",
		},
	}
}

func newTestController(refiner Refiner, trk Tracker) (*Controller, *draftstore.Store) {
	store := draftstore.New()
	logger := slog.New(slog.DiscardHandler)
	return NewController(store, refiner, trk, nil, logger), store
}

func TestIdeaToCreatedIssue(t *testing.T) {
	refiner := &fakeRefiner{result: darkModeResult()}
	trk := &fakeTracker{created: &tracker.CreatedIssue{Number: "42", URL: "https://github.com/wooix/claude-blog-app/issues/42"}}
	ctrl, store := newTestController(refiner, trk)
	ctx := context.Background()

	reply := ctrl.HandleIdea(ctx, 7, "add dark mode toggle")

	require.NotNil(t, reply.Offer, "preview must offer the three actions")
	assert.Contains(t, reply.Text, "✨ [feat] 다크 모드 토글 추가")
	assert.Contains(t, reply.Text, "Phase 2 · P1")

	d, ok := store.Get(7)
	require.True(t, ok)
	assert.Equal(t, "add dark mode toggle", d.OriginalText)

	done := ctrl.HandleAction(ctx, 7, ActionCreate, reply.Offer.DraftID)

	require.Equal(t, 1, trk.callCount())
	call := trk.calls[0]
	assert.Equal(t, "[feat] 다크 모드 토글 추가", call.Title)
	assert.Equal(t, 2, call.Phase)
	assert.Equal(t, "feat", call.TypeLabel)
	assert.Contains(t, call.Body, "다크 모드 지원")

	assert.Contains(t, done.Text, "#42")
	assert.Contains(t, done.Text, "https://github.com/wooix/claude-blog-app/issues/42")

	_, ok = store.Get(7)
	assert.False(t, ok, "draft removed after successful create")
}

func TestDoubleSubmissionLastWriteWins(t *testing.T) {
	refiner := &fakeRefiner{result: darkModeResult()}
	ctrl, store := newTestController(refiner, &fakeTracker{})
	ctx := context.Background()

	first := ctrl.HandleIdea(ctx, 7, "first idea")
	refiner.result = &refine.Result{Type: issue.TypeFix, Title: "두번째", Priority: issue.PriorityP2, Phase: 1}
	second := ctrl.HandleIdea(ctx, 7, "second idea")

	require.NotNil(t, first.Offer)
	require.NotNil(t, second.Offer)
	assert.NotEqual(t, first.Offer.DraftID, second.Offer.DraftID)

	d, ok := store.Get(7)
	require.True(t, ok)
	assert.Equal(t, "두번째", d.Title)
	assert.Equal(t, second.Offer.DraftID, d.ID)
	assert.Equal(t, 1, store.Len(), "at most one draft per owner")
}

func TestRefinementFailureLeavesStateUntouched(t *testing.T) {
	refiner := &fakeRefiner{result: darkModeResult()}
	ctrl, store := newTestController(refiner, &fakeTracker{})
	ctx := context.Background()

	ctrl.HandleIdea(ctx, 7, "good idea")
	existing, _ := store.Get(7)

	refiner.err = &refine.Failure{Reason: "engine call"}
	reply := ctrl.HandleIdea(ctx, 7, "bad idea")

	assert.Nil(t, reply.Offer)
	assert.Contains(t, reply.Text, "오류")

	d, ok := store.Get(7)
	require.True(t, ok, "prior draft survives a refinement failure")
	assert.Equal(t, existing.ID, d.ID)
}

func TestCreateWithoutDraft(t *testing.T) {
	trk := &fakeTracker{}
	ctrl, _ := newTestController(&fakeRefiner{}, trk)

	reply := ctrl.HandleAction(context.Background(), 7, ActionCreate, "")

	assert.Contains(t, reply.Text, "초안을 찾을 수 없습니다")
	assert.Zero(t, trk.callCount(), "no external call without a draft")
}

func TestCreateWithStaleDraftID(t *testing.T) {
	refiner := &fakeRefiner{result: darkModeResult()}
	trk := &fakeTracker{created: &tracker.CreatedIssue{Number: "1", URL: "u/1"}}
	ctrl, store := newTestController(refiner, trk)
	ctx := context.Background()

	first := ctrl.HandleIdea(ctx, 7, "first")
	second := ctrl.HandleIdea(ctx, 7, "second")

	reply := ctrl.HandleAction(ctx, 7, ActionCreate, first.Offer.DraftID)

	assert.Contains(t, reply.Text, "초안을 찾을 수 없습니다")
	assert.Zero(t, trk.callCount())

	d, ok := store.Get(7)
	require.True(t, ok, "current draft is untouched by the stale button")
	assert.Equal(t, second.Offer.DraftID, d.ID)
}

func TestCancelWithStaleDraftID(t *testing.T) {
	refiner := &fakeRefiner{result: darkModeResult()}
	trk := &fakeTracker{}
	ctrl, store := newTestController(refiner, trk)
	ctx := context.Background()

	first := ctrl.HandleIdea(ctx, 7, "first")
	second := ctrl.HandleIdea(ctx, 7, "second")

	reply := ctrl.HandleAction(ctx, 7, ActionCancel, first.Offer.DraftID)

	assert.Contains(t, reply.Text, "초안을 찾을 수 없습니다")

	d, ok := store.Get(7)
	require.True(t, ok, "stale cancel must not remove the current draft")
	assert.Equal(t, second.Offer.DraftID, d.ID)
	assert.Zero(t, trk.callCount())
}

func TestReviseWithStaleDraftID(t *testing.T) {
	refiner := &fakeRefiner{result: darkModeResult()}
	ctrl, store := newTestController(refiner, &fakeTracker{})
	ctx := context.Background()

	first := ctrl.HandleIdea(ctx, 7, "first")
	second := ctrl.HandleIdea(ctx, 7, "second")

	reply := ctrl.HandleAction(ctx, 7, ActionRevise, first.Offer.DraftID)

	assert.Contains(t, reply.Text, "초안을 찾을 수 없습니다")

	d, ok := store.Get(7)
	require.True(t, ok, "stale revise must not remove the current draft")
	assert.Equal(t, second.Offer.DraftID, d.ID)
}

func TestCancelClearsAndNeverCallsTracker(t *testing.T) {
	refiner := &fakeRefiner{result: darkModeResult()}
	trk := &fakeTracker{}
	ctrl, store := newTestController(refiner, trk)
	ctx := context.Background()

	reply := ctrl.HandleIdea(ctx, 7, "idea")
	require.NotNil(t, reply.Offer)

	got := ctrl.HandleAction(ctx, 7, ActionCancel, reply.Offer.DraftID)

	assert.Contains(t, got.Text, "취소")
	_, ok := store.Get(7)
	assert.False(t, ok)
	assert.Zero(t, trk.callCount())

	// Cancel with nothing pending is still a clean no-op.
	again := ctrl.HandleAction(ctx, 7, ActionCancel, "")
	assert.Contains(t, again.Text, "취소")
	assert.Zero(t, trk.callCount())
}

func TestReviseClearsDraftAndPrompts(t *testing.T) {
	refiner := &fakeRefiner{result: darkModeResult()}
	ctrl, store := newTestController(refiner, &fakeTracker{})
	ctx := context.Background()

	ctrl.HandleIdea(ctx, 7, "idea")
	reply := ctrl.HandleAction(ctx, 7, ActionRevise, "")

	assert.Contains(t, reply.Text, "입력")
	_, ok := store.Get(7)
	assert.False(t, ok, "revise discards the draft; fields are not reused")
}

func TestTrackerFailureRetainsDraftForRetry(t *testing.T) {
	refiner := &fakeRefiner{result: darkModeResult()}
	trk := &fakeTracker{err: &tracker.CreateFailure{Detail: "rate limited"}}
	ctrl, store := newTestController(refiner, trk)
	ctx := context.Background()

	reply := ctrl.HandleIdea(ctx, 7, "idea")
	failed := ctrl.HandleAction(ctx, 7, ActionCreate, reply.Offer.DraftID)

	assert.Contains(t, failed.Text, "rate limited")

	d, ok := store.Get(7)
	require.True(t, ok, "draft retained after tracker failure")

	// Second create retries the same draft without a new idea.
	trk.err = nil
	trk.created = &tracker.CreatedIssue{Number: "43", URL: "u/43"}
	retried := ctrl.HandleAction(ctx, 7, ActionCreate, d.ID)

	assert.Contains(t, retried.Text, "#43")
	assert.Equal(t, 2, trk.callCount())
	_, ok = store.Get(7)
	assert.False(t, ok)
}

func TestTrackerFailureDetailTruncated(t *testing.T) {
	long := make([]rune, 500)
	for i := range long {
		long[i] = 'x'
	}
	trk := &fakeTracker{err: &tracker.CreateFailure{Detail: string(long)}}
	refiner := &fakeRefiner{result: darkModeResult()}
	ctrl, _ := newTestController(refiner, trk)
	ctx := context.Background()

	reply := ctrl.HandleIdea(ctx, 7, "idea")
	failed := ctrl.HandleAction(ctx, 7, ActionCreate, reply.Offer.DraftID)

	assert.Less(t, len(failed.Text), 400, "raw detail is bounded in the user message")
}

func TestUnknownActionChangesNothing(t *testing.T) {
	refiner := &fakeRefiner{result: darkModeResult()}
	trk := &fakeTracker{}
	ctrl, store := newTestController(refiner, trk)
	ctx := context.Background()

	reply := ctrl.HandleIdea(ctx, 7, "idea")
	ctrl.HandleAction(ctx, 7, "explode", reply.Offer.DraftID)

	d, ok := store.Get(7)
	require.True(t, ok)
	assert.Equal(t, reply.Offer.DraftID, d.ID)
	assert.Zero(t, trk.callCount())
}

func TestEmptyIdeaIgnored(t *testing.T) {
	refiner := &fakeRefiner{result: darkModeResult()}
	ctrl, store := newTestController(refiner, &fakeTracker{})

	reply := ctrl.HandleIdea(context.Background(), 7, "   \n ")

	assert.Empty(t, reply.Text)
	assert.Nil(t, reply.Offer)
	assert.Zero(t, refiner.calls)
	assert.Zero(t, store.Len())
}

func TestOwnersIsolated(t *testing.T) {
	refiner := &fakeRefiner{result: darkModeResult()}
	trk := &fakeTracker{created: &tracker.CreatedIssue{Number: "1", URL: "u/1"}}
	ctrl, store := newTestController(refiner, trk)
	ctx := context.Background()

	ctrl.HandleIdea(ctx, 1, "mine")
	ctrl.HandleIdea(ctx, 2, "yours")
	require.Equal(t, 2, store.Len())

	ctrl.HandleAction(ctx, 1, ActionCancel, "")

	_, ok := store.Get(1)
	assert.False(t, ok)
	_, ok = store.Get(2)
	assert.True(t, ok)
}
