package domain

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus is the persisted name of a JobState.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// CancelledByUserReason is recorded on jobs cancelled directly or through their schedule.
const CancelledByUserReason = "Cancelled by user"

// JobState is a closed set: Pending, Completed or Failed.
type JobState interface {
	Status() JobStatus
	isJobState()
}

type Pending struct{}

type Completed struct {
	At time.Time
}

type Failed struct {
	Reason string
	At     time.Time
}

func (Pending) Status() JobStatus   { return JobStatusPending }
func (Completed) Status() JobStatus { return JobStatusCompleted }
func (Failed) Status() JobStatus    { return JobStatusFailed }

func (Pending) isJobState()   {}
func (Completed) isJobState() {}
func (Failed) isJobState()    {}

// RestoreJobState rebuilds a state from its persisted columns.
func RestoreJobState(status JobStatus, errorMessage string, at time.Time) (JobState, error) {
	switch status {
	case JobStatusPending, "":
		return Pending{}, nil
	case JobStatusCompleted:
		return Completed{At: at}, nil
	case JobStatusFailed:
		return Failed{Reason: errorMessage, At: at}, nil
	default:
		return nil, Validationf("unknown job status %q", status)
	}
}

// CommitJob is one requested backdated commit.
type CommitJob struct {
	ID            string
	UserID        string
	Repository    string
	RepositoryURL string
	FilePath      string
	Message       string
	// TargetTime is the author/committer time written into the commit.
	TargetTime time.Time
	Content    string

	// ScheduledTime is nil for jobs that are not scheduled.
	ScheduledTime *time.Time
	State         JobState
	ProcessedAt   *time.Time

	BulkScheduleID string
	RetryOf        string

	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64
}

type NewCommitJobParams struct {
	UserID         string
	Repository     string
	RepositoryURL  string
	FilePath       string
	Message        string
	TargetTime     time.Time
	Content        string
	ScheduledTime  *time.Time
	BulkScheduleID string
	RetryOf        string
}

func NewCommitJob(p NewCommitJobParams, now time.Time) *CommitJob {
	var scheduled *time.Time
	if p.ScheduledTime != nil {
		t := p.ScheduledTime.UTC()
		scheduled = &t
	}
	return &CommitJob{
		ID:             uuid.New().String(),
		UserID:         p.UserID,
		Repository:     p.Repository,
		RepositoryURL:  p.RepositoryURL,
		FilePath:       p.FilePath,
		Message:        p.Message,
		TargetTime:     p.TargetTime,
		Content:        p.Content,
		ScheduledTime:  scheduled,
		State:          Pending{},
		BulkScheduleID: p.BulkScheduleID,
		RetryOf:        p.RetryOf,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (j *CommitJob) IsScheduled() bool {
	return j.ScheduledTime != nil
}

func (j *CommitJob) Status() JobStatus {
	if j.State == nil {
		return JobStatusPending
	}
	return j.State.Status()
}

func (j *CommitJob) IsPending() bool {
	return j.Status() == JobStatusPending
}

// ErrorMessage is the failure reason, empty unless the job failed.
func (j *CommitJob) ErrorMessage() string {
	if f, ok := j.State.(Failed); ok {
		return f.Reason
	}
	return ""
}

func (j *CommitJob) OwnedBy(userID string) bool {
	return userID != "" && j.UserID == userID
}

// MarkProcessing stamps ProcessedAt. It is a visibility marker, not a lock.
func (j *CommitJob) MarkProcessing(now time.Time) error {
	if !j.IsPending() {
		return Conflictf("commit job %s is already %s", j.ID, j.Status())
	}
	t := now.UTC()
	j.ProcessedAt = &t
	j.UpdatedAt = now
	return nil
}

func (j *CommitJob) Complete(now time.Time) error {
	if !j.IsPending() {
		return Conflictf("commit job %s is already %s", j.ID, j.Status())
	}
	j.State = Completed{At: now}
	j.UpdatedAt = now
	return nil
}

func (j *CommitJob) Fail(reason string, now time.Time) error {
	if !j.IsPending() {
		return Conflictf("commit job %s is already %s", j.ID, j.Status())
	}
	if reason == "" {
		reason = "Unknown error during commit processing"
	}
	j.State = Failed{Reason: reason, At: now}
	j.UpdatedAt = now
	return nil
}

func (j *CommitJob) Cancel(now time.Time) error {
	return j.Fail(CancelledByUserReason, now)
}

// Clone returns a deep copy so stores never share mutable state with callers.
func (j *CommitJob) Clone() *CommitJob {
	c := *j
	if j.ScheduledTime != nil {
		t := *j.ScheduledTime
		c.ScheduledTime = &t
	}
	if j.ProcessedAt != nil {
		t := *j.ProcessedAt
		c.ProcessedAt = &t
	}
	return &c
}
