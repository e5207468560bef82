package usecase

import (
	"log/slog"
	"sync"

	"hermes/config"
	"hermes/internal/domain"
	"hermes/internal/port"
)

// JobManager runs at most one background indexing job per process and
// exposes its state machine (idle -> indexing -> done | error) to the
// serving surface. A finished or failed job can be superseded by a new
// one.
type JobManager struct {
	mu       sync.Mutex
	state    domain.JobState
	repoPath string
	summary  *domain.IndexSummary
	message  string
}

// JobStatus is a snapshot of the job state machine.
type JobStatus struct {
	State    domain.JobState      `json:"state"`
	RepoPath string               `json:"repo_path,omitempty"`
	Summary  *domain.IndexSummary `json:"summary,omitempty"`
	Message  string               `json:"message,omitempty"`
}

func NewJobManager() *JobManager {
	return &JobManager{state: domain.JobIdle}
}

// Start launches a background build. It returns domain.ErrJobInFlight when
// an indexing job is already running; onDone (optional) fires after a
// successful build.
func (m *JobManager) Start(repoPath string, cfg *config.Config, embedder port.Embedder, onDone func(*domain.IndexSummary)) error {
	m.mu.Lock()
	if m.state == domain.JobIndexing {
		m.mu.Unlock()
		return domain.ErrJobInFlight
	}
	m.state = domain.JobIndexing
	m.repoPath = repoPath
	m.summary = nil
	m.message = ""
	m.mu.Unlock()

	go func() {
		summary, err := BuildIndex(repoPath, cfg, embedder)

		m.mu.Lock()
		if err != nil {
			m.state = domain.JobError
			m.message = err.Error()
			m.mu.Unlock()
			slog.Error("indexing_failed", "repo", repoPath, "error", err)
			return
		}
		m.state = domain.JobDone
		m.summary = summary
		m.mu.Unlock()

		if onDone != nil {
			onDone(summary)
		}
	}()

	return nil
}

// Status returns the current snapshot. Summary is present only in state
// done, message only in state error.
func (m *JobManager) Status() JobStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	status := JobStatus{State: m.state}
	if m.state != domain.JobIdle {
		status.RepoPath = m.repoPath
	}
	switch m.state {
	case domain.JobDone:
		status.Summary = m.summary
	case domain.JobError:
		status.Message = m.message
	}
	return status
}
