// Package types defines the data model shared across core components:
// documents, standardized info, embedding bundles, match results, and
// queue jobs. Struct shape follows the authorization engine's
// pkg/types convention (small behavior methods alongside plain data).
package types

import "time"

// DocKind distinguishes a candidate résumé from a job description.
type DocKind string

const (
	KindCV DocKind = "cv"
	KindJD DocKind = "jd"
)

// SkillsCount and RespCount are the fixed bundle shape from the data
// model; any deviation is a programmer error, not a runtime condition.
const (
	SkillsCount = 20
	RespCount   = 10
	VectorDim   = 768
)

// StandardizedInfo is produced by the out-of-scope LLM standardizer and
// re-normalized defensively by the core before embedding.
type StandardizedInfo struct {
	JobTitle        string            `json:"job_title"`
	ExperienceYears int               `json:"experience_years"`
	Skills          []string          `json:"skills"`
	Responsibilities []string         `json:"responsibilities"`
	ContactInfo     map[string]string `json:"contact_info,omitempty"`
	Extra           map[string]any    `json:"extra,omitempty"`
}

// Bundle is the fixed-shape (20, 10, 1, 1) collection of unit-norm
// vectors representing one document. Vectors are float64 so that
// storage and retrieval are IEEE-754 lossless round trips.
type Bundle struct {
	SkillVectors           [][]float64 `json:"skill_vectors"`
	ResponsibilityVectors  [][]float64 `json:"responsibility_vectors"`
	ExperienceVector       []float64   `json:"experience_vector"`
	JobTitleVector         []float64   `json:"job_title_vector"`
	ModelVersion           string      `json:"model_version"`
}

// DocumentRecord is the `documents` collection entry: raw text and file
// metadata for one document id.
type DocumentRecord struct {
	ID         string    `json:"id"`
	Kind       DocKind   `json:"kind"`
	Filename   string    `json:"filename"`
	Format     string    `json:"format"`
	RawText    string    `json:"raw_text"`
	UploadedAt time.Time `json:"uploaded_at"`
	FileURI    string    `json:"file_uri,omitempty"`
	Mime       string    `json:"mime,omitempty"`
}

// StructuredRecord is the `structured` collection entry.
type StructuredRecord struct {
	ID      string            `json:"id"`
	Kind    DocKind           `json:"kind"`
	Payload StandardizedInfo  `json:"payload"`
	Side    map[string]any    `json:"side,omitempty"`
}

// Assignment is one matched pair between a JD item and a CV item.
type Assignment struct {
	JDIndex    int     `json:"jd_index"`
	CVIndex    int     `json:"cv_index"`
	Similarity float64 `json:"similarity"`
}

// MatchResult is the in-memory-only output of C3 for one (CV, JD) pair.
type MatchResult struct {
	CVID        string `json:"cv_id"`
	JDID        string `json:"jd_id"`
	Overall     float64 `json:"overall"`
	Skills      float64 `json:"skills_score"`
	Responsibilities float64 `json:"responsibilities_score"`
	Title       float64 `json:"title_score"`
	Experience  float64 `json:"experience_score"`

	SkillAssignments []Assignment `json:"skill_assignments"`
	RespAssignments  []Assignment `json:"responsibility_assignments"`

	UnmatchedJDSkills []int `json:"unmatched_jd_skills,omitempty"`
	UnmatchedJDResp   []int `json:"unmatched_jd_responsibilities,omitempty"`

	Explanation string        `json:"explanation"`
	Duration    time.Duration `json:"duration"`
}

// Priority is the queue priority class.
type Priority int

// PriorityNormal is the zero value so a caller that never sets a
// priority hint defaults to Normal, matching the submission default.
const (
	PriorityNormal Priority = iota
	PriorityLow
	PriorityHigh
	PriorityUrgent
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityUrgent:
		return "urgent"
	default:
		return "unknown"
	}
}

// JobStatus is the lifecycle state of a queued application job.
type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// ApplicationData is the payload a caller submits for ingestion.
type ApplicationData struct {
	ApplicationID string         `json:"application_id"`
	ApplicantID   string         `json:"applicant_id"`
	JDToken       string         `json:"jd_token"`
	FileURI       string         `json:"file_uri"`
	Filename      string         `json:"filename"`
	Format        string         `json:"format"`
	PriorityHint  Priority       `json:"priority_hint"`
	Extra         map[string]any `json:"extra,omitempty"`
}

// Job is one queue entry tracked end-to-end by C5.
type Job struct {
	JobID       string          `json:"job_id"`
	Application ApplicationData `json:"application_data"`
	Priority    Priority        `json:"priority"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Status      JobStatus       `json:"status"`
	Result      *IngestResult   `json:"result,omitempty"`
	Error       *JobError       `json:"error,omitempty"`
	RetryCount  int             `json:"retry_count"`
	MaxRetries  int             `json:"max_retries"`
}

// JobError is the serializable form of a coreerr.Error attached to a job.
type JobError struct {
	Kind    string `json:"kind"`
	Step    string `json:"step,omitempty"`
	Message string `json:"message"`
}

// IngestResult records what C4 produced for a completed job.
type IngestResult struct {
	DocumentID string `json:"document_id"`
}
