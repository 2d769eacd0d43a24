// Package upload tracks remote "upload by URL" jobs from submission until
// they reach a terminal state.
package upload

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/HaiFongPan/fmbot/internal/filemoon"
)

// DefaultPollInterval is the fixed delay between two status polls
const DefaultPollInterval = 3 * time.Second

const barCells = 10

const (
	queuedFormat      = "File added to remote upload queue with code: %s"
	workingFormat     = "⏳ Upload in progress... FileId: %s\n%s"
	completedFormat   = "✅ Upload completed successfully for file: %s\n%s"
	failedFormat      = "❌ Upload failed for file: %s\n%s"
	checkFailedFormat = "❌ Failed to check upload status: %s"
)

// State is the lifecycle state of a Job
type State int

const (
	StateSubmitted State = iota
	StateWorking
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateSubmitted:
		return "submitted"
	case StateWorking:
		return "working"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further polling happens in this state
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Job is one remote upload. Its fields are mutated only by the poll loop
// watching it.
type Job struct {
	ID           uuid.UUID
	FileCode     string
	FolderID     int64
	State        State
	Progress     int
	LastRendered string
	SubmittedAt  time.Time
}

// QueuedText is the first message shown for a freshly submitted job
func (j *Job) QueuedText() string {
	return fmt.Sprintf(queuedFormat, j.FileCode)
}

// RenderFunc publishes the current status text of a job
type RenderFunc func(ctx context.Context, text string) error

// API is the subset of the filemoon client used for remote uploads
type API interface {
	SubmitRemoteUpload(ctx context.Context, sourceURL string, folderID int64) (string, error)
	GetUploadStatus(ctx context.Context, fileCode string) (*filemoon.UploadStatus, error)
}

// Monitor submits remote uploads and runs one poll loop per job
type Monitor struct {
	api      API
	interval time.Duration
	wait     func(ctx context.Context, d time.Duration) error

	wg     sync.WaitGroup
	mu     sync.Mutex
	active map[uuid.UUID]*Job
}

// NewMonitor creates a monitor polling every interval
func NewMonitor(api API, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Monitor{
		api:      api,
		interval: interval,
		wait:     sleepContext,
		active:   make(map[uuid.UUID]*Job),
	}
}

// Submit queues a remote upload. No job exists when submission fails.
func (m *Monitor) Submit(ctx context.Context, sourceURL string, folderID int64) (*Job, error) {
	fileCode, err := m.api.SubmitRemoteUpload(ctx, sourceURL, folderID)
	if err != nil {
		return nil, err
	}

	job := &Job{
		ID:          uuid.New(),
		FileCode:    fileCode,
		FolderID:    folderID,
		State:       StateSubmitted,
		SubmittedAt: time.Now(),
	}

	logrus.WithFields(logrus.Fields{
		"job_id":    job.ID,
		"file_code": fileCode,
		"folder_id": folderID,
	}).Info("Remote upload submitted")

	return job, nil
}

// Start runs Watch for job in its own goroutine
func (m *Monitor) Start(ctx context.Context, job *Job, render RenderFunc) {
	m.mu.Lock()
	m.active[job.ID] = job
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer func() {
			m.mu.Lock()
			delete(m.active, job.ID)
			m.mu.Unlock()
		}()

		if err := m.Watch(ctx, job, render); err != nil && !errors.Is(err, context.Canceled) {
			logrus.WithFields(logrus.Fields{"job_id": job.ID, "error": err}).Warn("Upload monitor stopped")
		}
	}()
}

// Wait blocks until every loop started with Start has returned
func (m *Monitor) Wait() {
	m.wg.Wait()
}

// Active returns the number of jobs currently being polled
func (m *Monitor) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// Watch polls the job's status until it reaches a terminal state, rendering
// every change in poll order. It returns ctx.Err() when cancelled first.
func (m *Monitor) Watch(ctx context.Context, job *Job, render RenderFunc) error {
	log := logrus.WithFields(logrus.Fields{"job_id": job.ID, "file_code": job.FileCode})

	if job.State.Terminal() {
		return nil
	}
	job.State = StateWorking

	for {
		if err := m.wait(ctx, m.interval); err != nil {
			return err
		}

		status, err := m.api.GetUploadStatus(ctx, job.FileCode)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.WithError(err).Error("Error checking upload status")
			job.State = StateFailed
			m.emit(ctx, job, render, fmt.Sprintf(checkFailedFormat, err.Error()))
			return nil
		}

		text, ok := advance(job, status)
		if !ok {
			log.Debug("Skipping unknown upload status")
			continue
		}

		m.emit(ctx, job, render, text)
		if job.State.Terminal() {
			log.WithField("state", job.State).Info("Remote upload finished")
			return nil
		}
	}
}

// emit renders text unless it is identical to the last rendered text
func (m *Monitor) emit(ctx context.Context, job *Job, render RenderFunc, text string) {
	if text == job.LastRendered {
		return
	}
	if err := render(ctx, text); err != nil {
		logrus.WithFields(logrus.Fields{"job_id": job.ID, "error": err}).Warn("Failed to render upload status")
		return
	}
	job.LastRendered = text
}

// advance applies one status response to job and returns the text to
// render. ok is false when the tick should be skipped.
func advance(job *Job, status *filemoon.UploadStatus) (string, bool) {
	if len(status.Records) == 0 {
		// no record left means the job finished before we looked
		job.State = StateCompleted
		job.Progress = 100
		return fmt.Sprintf(completedFormat, job.FileCode, RenderBar(100, true)), true
	}

	record := status.Records[0]
	progress := clampPercent(int(record.Progress))
	if progress > job.Progress {
		job.Progress = progress
	}

	switch strings.ToUpper(strings.TrimSpace(record.Status)) {
	case "WORKING":
		job.State = StateWorking
		return fmt.Sprintf(workingFormat, job.FileCode, RenderBar(job.Progress, false)), true
	case "COMPLETED":
		if status.Msg == "OK" {
			job.State = StateCompleted
			job.Progress = 100
			return fmt.Sprintf(completedFormat, job.FileCode, RenderBar(100, true)), true
		}
		job.State = StateFailed
		return fmt.Sprintf(failedFormat, job.FileCode, RenderBar(job.Progress, false)), true
	case "ERROR":
		job.State = StateFailed
		return fmt.Sprintf(failedFormat, job.FileCode, RenderBar(job.Progress, false)), true
	default:
		return "", false
	}
}

// RenderBar draws a ten cell progress bar followed by the percentage
func RenderBar(percent int, completed bool) string {
	percent = clampPercent(percent)
	// halves round to even: 25% fills two cells, 35% fills four
	filled := int(math.RoundToEven(barCells * float64(percent) / 100))

	bar := strings.Repeat("█", filled) + strings.Repeat("▒", barCells-filled)
	if completed {
		return fmt.Sprintf("%s %d%% (Completed)", bar, percent)
	}
	return fmt.Sprintf("%s %d%%", bar, percent)
}

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
