package upload

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/HaiFongPan/fmbot/internal/filemoon"
)

// MockAPI mocks the remote upload endpoints
type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) SubmitRemoteUpload(ctx context.Context, sourceURL string, folderID int64) (string, error) {
	args := m.Called(ctx, sourceURL, folderID)
	return args.String(0), args.Error(1)
}

func (m *MockAPI) GetUploadStatus(ctx context.Context, fileCode string) (*filemoon.UploadStatus, error) {
	args := m.Called(ctx, fileCode)
	status, _ := args.Get(0).(*filemoon.UploadStatus)
	return status, args.Error(1)
}

func record(status string, progress int) *filemoon.UploadStatus {
	return &filemoon.UploadStatus{
		Msg:     "OK",
		Records: []filemoon.StatusRecord{{Status: status, Progress: filemoon.FlexInt(progress)}},
	}
}

type recorder struct {
	mu    sync.Mutex
	texts []string
}

func (r *recorder) render(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
	return nil
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.texts...)
}

func newTestMonitor(api API) (*Monitor, *int) {
	m := NewMonitor(api, time.Second)
	waits := 0
	m.wait = func(ctx context.Context, d time.Duration) error {
		waits++
		return ctx.Err()
	}
	return m, &waits
}

func newJob(code string) *Job {
	return &Job{FileCode: code, State: StateSubmitted}
}

func TestRenderBar(t *testing.T) {
	assert.Equal(t, "▒▒▒▒▒▒▒▒▒▒ 0%", RenderBar(0, false))
	assert.Equal(t, "██████████ 100%", RenderBar(100, false))
	assert.Equal(t, "██████████ 100% (Completed)", RenderBar(100, true))
	assert.Equal(t, "██████▒▒▒▒ 55%", RenderBar(55, false))
	assert.Equal(t, "██▒▒▒▒▒▒▒▒ 25%", RenderBar(25, false))
	assert.Equal(t, "████▒▒▒▒▒▒ 35%", RenderBar(35, false))
	assert.Equal(t, "████████▒▒ 85%", RenderBar(85, false))
	assert.Equal(t, "█▒▒▒▒▒▒▒▒▒ 14%", RenderBar(14, false))
	assert.Equal(t, "▒▒▒▒▒▒▒▒▒▒ 0%", RenderBar(-5, false))

	for p := 0; p <= 100; p++ {
		bar := RenderBar(p, false)
		filled := strings.Count(bar, "█")
		empty := strings.Count(bar, "▒")
		want := p / 10
		if rem := p % 10; rem > 5 || (rem == 5 && want%2 == 1) {
			want++
		}
		assert.Equal(t, want, filled, "percent %d", p)
		assert.Equal(t, 10, filled+empty, "percent %d", p)
	}
}

func TestWatch_WorkingThenCompleted(t *testing.T) {
	api := &MockAPI{}
	api.On("GetUploadStatus", mock.Anything, "abc").Return(record("WORKING", 10), nil).Once()
	api.On("GetUploadStatus", mock.Anything, "abc").Return(record("working", 55), nil).Once()
	api.On("GetUploadStatus", mock.Anything, "abc").Return(record("COMPLETED", 100), nil).Once()

	m, waits := newTestMonitor(api)
	rec := &recorder{}
	job := newJob("abc")

	require.NoError(t, m.Watch(context.Background(), job, rec.render))

	texts := rec.all()
	require.Len(t, texts, 3)
	assert.Equal(t, "⏳ Upload in progress... FileId: abc\n█▒▒▒▒▒▒▒▒▒ 10%", texts[0])
	assert.Equal(t, "⏳ Upload in progress... FileId: abc\n██████▒▒▒▒ 55%", texts[1])
	assert.Equal(t, "✅ Upload completed successfully for file: abc\n██████████ 100% (Completed)", texts[2])

	assert.Equal(t, StateCompleted, job.State)
	assert.Equal(t, 3, *waits)
	api.AssertNumberOfCalls(t, "GetUploadStatus", 3)
}

func TestWatch_WorkingThenError(t *testing.T) {
	api := &MockAPI{}
	api.On("GetUploadStatus", mock.Anything, "abc").Return(record("WORKING", 20), nil).Once()
	api.On("GetUploadStatus", mock.Anything, "abc").Return(record("ERROR", 0), nil).Once()

	m, _ := newTestMonitor(api)
	rec := &recorder{}
	job := newJob("abc")

	require.NoError(t, m.Watch(context.Background(), job, rec.render))

	texts := rec.all()
	require.Len(t, texts, 2)
	// failure keeps the last known progress
	assert.Equal(t, "❌ Upload failed for file: abc\n██▒▒▒▒▒▒▒▒ 20%", texts[1])
	assert.Equal(t, StateFailed, job.State)
	api.AssertNumberOfCalls(t, "GetUploadStatus", 2)
}

func TestWatch_CompletedWithoutOK(t *testing.T) {
	api := &MockAPI{}
	status := record("COMPLETED", 40)
	status.Msg = "partial"
	api.On("GetUploadStatus", mock.Anything, "abc").Return(status, nil).Once()

	m, _ := newTestMonitor(api)
	rec := &recorder{}
	job := newJob("abc")

	require.NoError(t, m.Watch(context.Background(), job, rec.render))
	assert.Equal(t, []string{"❌ Upload failed for file: abc\n████▒▒▒▒▒▒ 40%"}, rec.all())
	assert.Equal(t, StateFailed, job.State)
}

func TestWatch_EmptyRecordsMeansCompleted(t *testing.T) {
	api := &MockAPI{}
	api.On("GetUploadStatus", mock.Anything, "abc").Return(&filemoon.UploadStatus{Msg: "OK"}, nil).Once()

	m, _ := newTestMonitor(api)
	rec := &recorder{}
	job := newJob("abc")

	require.NoError(t, m.Watch(context.Background(), job, rec.render))
	assert.Equal(t, []string{"✅ Upload completed successfully for file: abc\n██████████ 100% (Completed)"}, rec.all())
	assert.Equal(t, 100, job.Progress)
}

func TestWatch_IdenticalTextRenderedOnce(t *testing.T) {
	api := &MockAPI{}
	api.On("GetUploadStatus", mock.Anything, "abc").Return(record("WORKING", 30), nil).Twice()
	api.On("GetUploadStatus", mock.Anything, "abc").Return(record("QUEUED", 30), nil).Once()
	api.On("GetUploadStatus", mock.Anything, "abc").Return(record("WORKING", 10), nil).Once()
	api.On("GetUploadStatus", mock.Anything, "abc").Return(&filemoon.UploadStatus{Msg: "OK"}, nil).Once()

	m, _ := newTestMonitor(api)
	rec := &recorder{}
	job := newJob("abc")

	require.NoError(t, m.Watch(context.Background(), job, rec.render))

	texts := rec.all()
	// the unknown status is skipped and the regressed progress stays at 30
	require.Len(t, texts, 2)
	assert.Contains(t, texts[0], "30%")
	assert.Contains(t, texts[1], "(Completed)")
	api.AssertNumberOfCalls(t, "GetUploadStatus", 5)
}

func TestWatch_StatusErrorIsTerminal(t *testing.T) {
	api := &MockAPI{}
	api.On("GetUploadStatus", mock.Anything, "abc").
		Return(nil, &filemoon.Error{Op: "remote/status", Kind: filemoon.KindTransport, Message: "502 Bad Gateway"}).Once()

	m, _ := newTestMonitor(api)
	rec := &recorder{}
	job := newJob("abc")

	require.NoError(t, m.Watch(context.Background(), job, rec.render))
	assert.Equal(t, []string{"❌ Failed to check upload status: 502 Bad Gateway"}, rec.all())
	assert.Equal(t, StateFailed, job.State)
	api.AssertNumberOfCalls(t, "GetUploadStatus", 1)
}

func TestWatch_Cancelled(t *testing.T) {
	api := &MockAPI{}
	m := NewMonitor(api, time.Hour)
	rec := &recorder{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.Watch(ctx, newJob("abc"), rec.render)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rec.all())
	api.AssertNotCalled(t, "GetUploadStatus", mock.Anything, mock.Anything)
}

func TestSubmit(t *testing.T) {
	api := &MockAPI{}
	api.On("SubmitRemoteUpload", mock.Anything, "https://example.com/a.mp4", int64(7)).Return("code1", nil).Once()
	api.On("SubmitRemoteUpload", mock.Anything, "https://example.com/bad", int64(7)).
		Return("", &filemoon.Error{Op: "remote/add", Kind: filemoon.KindProtocol, Message: "Invalid URL"}).Once()

	m, _ := newTestMonitor(api)

	job, err := m.Submit(context.Background(), "https://example.com/a.mp4", 7)
	require.NoError(t, err)
	assert.Equal(t, "code1", job.FileCode)
	assert.Equal(t, StateSubmitted, job.State)
	assert.Equal(t, "File added to remote upload queue with code: code1", job.QueuedText())

	job, err = m.Submit(context.Background(), "https://example.com/bad", 7)
	assert.Nil(t, job)
	assert.EqualError(t, err, "Invalid URL")
	assert.Equal(t, 0, m.Active())
	api.AssertNotCalled(t, "GetUploadStatus", mock.Anything, mock.Anything)
}

func TestStartAndWait(t *testing.T) {
	api := &MockAPI{}
	api.On("GetUploadStatus", mock.Anything, "j1").Return(&filemoon.UploadStatus{Msg: "OK"}, nil).Once()
	api.On("GetUploadStatus", mock.Anything, "j2").Return(record("ERROR", 0), nil).Once()

	m, _ := newTestMonitor(api)
	m.wait = func(ctx context.Context, d time.Duration) error { return nil }

	rec1, rec2 := &recorder{}, &recorder{}
	job1, job2 := newJob("j1"), newJob("j2")
	m.Start(context.Background(), job1, rec1.render)
	m.Start(context.Background(), job2, rec2.render)
	m.Wait()

	assert.Equal(t, StateCompleted, job1.State)
	assert.Equal(t, StateFailed, job2.State)
	assert.Len(t, rec1.all(), 1)
	assert.Len(t, rec2.all(), 1)
	assert.Equal(t, 0, m.Active())
}

func TestRenderFailureIsRetriedWithSameText(t *testing.T) {
	api := &MockAPI{}
	api.On("GetUploadStatus", mock.Anything, "abc").Return(record("WORKING", 50), nil).Twice()
	api.On("GetUploadStatus", mock.Anything, "abc").Return(&filemoon.UploadStatus{Msg: "OK"}, nil).Once()

	m, _ := newTestMonitor(api)
	calls := 0
	render := func(ctx context.Context, text string) error {
		calls++
		if calls == 1 {
			return errors.New("edit failed")
		}
		return nil
	}

	require.NoError(t, m.Watch(context.Background(), newJob("abc"), render))
	assert.Equal(t, 3, calls)
}
