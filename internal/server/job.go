package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tubepull/tubepull/internal/core/extractor"
)

// JobStatus represents the current state of an extraction job
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Job is one queued album extraction. Long playlists take minutes, so the
// extension queues them instead of holding an HTTP request open.
type Job struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Status    JobStatus `json:"status"`
	Progress  float64   `json:"progress"` // percent
	Tracks    int       `json:"tracks"`   // tracks finished or skipped
	Total     int       `json:"total"`    // playlist size (0 until known)
	Filename  string    `json:"filename,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ctx    context.Context
	cancel context.CancelFunc
}

// ExtractFunc runs an album extraction for a job, reporting per-track
// progress. The extractor satisfies it.
type ExtractFunc func(ctx context.Context, url string, progress extractor.ProgressFunc) (*extractor.AlbumResult, error)

// JobQueue runs album extractions on a bounded worker pool.
type JobQueue struct {
	jobs          map[string]*Job
	mu            sync.RWMutex
	queue         chan *Job
	maxConcurrent int
	outputDir     string
	extractFn     ExtractFunc
	wg            sync.WaitGroup
	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
	closed        bool
}

// NewJobQueue creates a job queue. Finished ZIPs are moved into outputDir.
func NewJobQueue(maxConcurrent int, outputDir string, extractFn ExtractFunc) *JobQueue {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}

	return &JobQueue{
		jobs:          make(map[string]*Job),
		queue:         make(chan *Job, 100),
		maxConcurrent: maxConcurrent,
		outputDir:     outputDir,
		extractFn:     extractFn,
		stopCleanup:   make(chan struct{}),
	}
}

// Start begins the worker pool and the cleanup routine.
func (jq *JobQueue) Start() {
	for i := 0; i < jq.maxConcurrent; i++ {
		jq.wg.Add(1)
		go jq.worker()
	}

	// Finished jobs older than an hour are dropped every 10 minutes
	jq.cleanupTicker = time.NewTicker(10 * time.Minute)
	go jq.cleanupLoop()
}

// Stop gracefully shuts down the job queue. Subsequent AddJob calls fail.
func (jq *JobQueue) Stop() {
	jq.mu.Lock()
	if jq.closed {
		jq.mu.Unlock()
		return
	}
	jq.closed = true
	close(jq.queue)
	jq.mu.Unlock()

	close(jq.stopCleanup)
	if jq.cleanupTicker != nil {
		jq.cleanupTicker.Stop()
	}
	jq.wg.Wait()
}

func (jq *JobQueue) worker() {
	defer jq.wg.Done()

	for job := range jq.queue {
		jq.processJob(job)
	}
}

func (jq *JobQueue) processJob(job *Job) {
	if job.ctx.Err() != nil {
		jq.update(job.ID, func(j *Job) { j.Status = JobStatusCancelled })
		return
	}
	jq.update(job.ID, func(j *Job) { j.Status = JobStatusRunning })

	progressFn := func(done, total int) {
		jq.update(job.ID, func(j *Job) {
			j.Tracks = done
			j.Total = total
			if total > 0 {
				j.Progress = float64(done) / float64(total) * 100
			}
		})
	}

	result, err := jq.extractFn(job.ctx, job.URL, progressFn)
	if err != nil {
		if job.ctx.Err() == context.Canceled {
			jq.update(job.ID, func(j *Job) {
				j.Status = JobStatusCancelled
				j.Error = "cancelled by user"
			})
		} else {
			jq.update(job.ID, func(j *Job) {
				j.Status = JobStatusFailed
				j.Error = err.Error()
			})
		}
		return
	}

	dest := filepath.Join(jq.outputDir, result.Filename)
	if err := moveFile(result.FilePath, dest); err != nil {
		result.Cleanup()
		jq.update(job.ID, func(j *Job) {
			j.Status = JobStatusFailed
			j.Error = err.Error()
		})
		return
	}
	result.Cleanup()

	jq.update(job.ID, func(j *Job) {
		j.Status = JobStatusCompleted
		j.Progress = 100
		j.Filename = result.Filename
	})
}

func (jq *JobQueue) cleanupLoop() {
	for {
		select {
		case <-jq.cleanupTicker.C:
			jq.cleanupOldJobs()
		case <-jq.stopCleanup:
			return
		}
	}
}

func (jq *JobQueue) cleanupOldJobs() {
	jq.mu.Lock()
	defer jq.mu.Unlock()

	cutoff := time.Now().Add(-1 * time.Hour)
	for id, job := range jq.jobs {
		if job.finished() && job.UpdatedAt.Before(cutoff) {
			delete(jq.jobs, id)
		}
	}
}

func (j *Job) finished() bool {
	switch j.Status {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// AddJob creates and queues a new album extraction job.
func (jq *JobQueue) AddJob(url string) (*Job, error) {
	ctx, cancel := context.WithCancel(context.Background())

	job := &Job{
		ID:        uuid.NewString(),
		URL:       url,
		Status:    JobStatusQueued,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
	}

	// The lock is held across the send so Stop can't close the channel
	// between the closed check and the enqueue
	jq.mu.Lock()
	defer jq.mu.Unlock()

	if jq.closed {
		cancel()
		return nil, fmt.Errorf("job queue is stopped")
	}
	jq.jobs[job.ID] = job

	select {
	case jq.queue <- job:
		return job, nil
	default:
		delete(jq.jobs, job.ID)
		cancel()
		return nil, fmt.Errorf("job queue is full")
	}
}

// GetJob returns a copy of the job, or nil if unknown.
func (jq *JobQueue) GetJob(id string) *Job {
	jq.mu.RLock()
	defer jq.mu.RUnlock()

	if job, ok := jq.jobs[id]; ok {
		jobCopy := *job
		return &jobCopy
	}
	return nil
}

// GetAllJobs returns copies of all known jobs.
func (jq *JobQueue) GetAllJobs() []*Job {
	jq.mu.RLock()
	defer jq.mu.RUnlock()

	jobs := make([]*Job, 0, len(jq.jobs))
	for _, job := range jq.jobs {
		jobCopy := *job
		jobs = append(jobs, &jobCopy)
	}
	return jobs
}

// CancelJob cancels a queued or running job.
func (jq *JobQueue) CancelJob(id string) bool {
	jq.mu.Lock()
	defer jq.mu.Unlock()

	job, ok := jq.jobs[id]
	if !ok || job.finished() {
		return false
	}
	job.cancel()
	job.Status = JobStatusCancelled
	job.UpdatedAt = time.Now()
	return true
}

// RemoveJob removes a finished job by ID.
func (jq *JobQueue) RemoveJob(id string) bool {
	jq.mu.Lock()
	defer jq.mu.Unlock()

	job, ok := jq.jobs[id]
	if !ok || !job.finished() {
		return false
	}
	delete(jq.jobs, id)
	return true
}

// ClearHistory removes all finished jobs and reports how many were dropped.
func (jq *JobQueue) ClearHistory() int {
	jq.mu.Lock()
	defer jq.mu.Unlock()

	count := 0
	for id, job := range jq.jobs {
		if job.finished() {
			delete(jq.jobs, id)
			count++
		}
	}
	return count
}

func (jq *JobQueue) update(id string, fn func(*Job)) {
	jq.mu.Lock()
	defer jq.mu.Unlock()

	if job, ok := jq.jobs[id]; ok {
		fn(job)
		job.UpdatedAt = time.Now()
	}
}

// moveFile moves src to dst, falling back to copy+remove across filesystems
// (temp and output dirs are often separate mounts in containers).
func moveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("failed to move %s: %w", filepath.Base(src), err)
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
