package model

const (
	// IdentityNotFound is the sentinel the model returns when it cannot
	// determine the student id or name from the submission.
	IdentityNotFound = "NOT_FOUND"
	// IdentityError is the sentinel recorded when scoring failed outright.
	IdentityError = "ERROR"
)

// ScoringResult is the normalized output of one LLM scoring call. It is
// transient: workers copy it into the StudentTask record.
type ScoringResult struct {
	StudentID   string `json:"nim"`
	StudentName string `json:"student_name"`
	Score       *int   `json:"score"`
	Evaluation  string `json:"evaluation"`
	Error       bool   `json:"error"`
}

// HasIdentity reports whether both identity fields carry real values
// (neither sentinel).
func (r ScoringResult) HasIdentity() bool {
	return r.realIdentity(r.StudentID) && r.realIdentity(r.StudentName)
}

// MissingStudentID reports whether the student id is absent or a sentinel.
func (r ScoringResult) MissingStudentID() bool {
	return !r.realIdentity(r.StudentID)
}

// MissingStudentName reports whether the student name is absent or a sentinel.
func (r ScoringResult) MissingStudentName() bool {
	return !r.realIdentity(r.StudentName)
}

func (ScoringResult) realIdentity(v string) bool {
	return v != "" && v != IdentityNotFound && v != IdentityError
}

// ErrorResult builds an error-flagged ScoringResult carrying the failure
// description in the evaluation field, matching how per-student errors are
// surfaced in the final report.
func ErrorResult(message string) ScoringResult {
	return ScoringResult{
		StudentID:   IdentityError,
		StudentName: IdentityError,
		Score:       nil,
		Evaluation:  message,
		Error:       true,
	}
}

// ProgressSnapshot is a best-effort, in-memory view of a job's progress read
// by polling endpoints. Durable Job/StudentTask records remain the source of
// truth; consumers must tolerate a missing snapshot.
type ProgressSnapshot struct {
	Status   JobStatus `json:"status"`
	Message  string    `json:"message"`
	Current  int       `json:"current"`
	Total    int       `json:"total"`
	Progress float64   `json:"progress"`
}

// NewProgressSnapshot computes the percent field from current/total.
func NewProgressSnapshot(status JobStatus, message string, current, total int) ProgressSnapshot {
	var pct float64
	if total > 0 {
		pct = float64(current) / float64(total) * 100
	}
	return ProgressSnapshot{
		Status:   status,
		Message:  message,
		Current:  current,
		Total:    total,
		Progress: pct,
	}
}
