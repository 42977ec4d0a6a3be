package httpapi

import (
	"net/http"
	"strconv"

	"github.com/alphacv/matchcore/internal/match"
	"github.com/alphacv/matchcore/pkg/coreerr"
	"github.com/alphacv/matchcore/pkg/types"
	"github.com/gin-gonic/gin"
)

// submitApplicationRequest is the wire shape of submit_application.
type submitApplicationRequest struct {
	ApplicationID string        `json:"application_id,omitempty"`
	ApplicantID  string         `json:"applicant_id"`
	JDToken      string         `json:"jd_token"`
	FileURI      string         `json:"file_uri"`
	Filename     string         `json:"filename"`
	Format       string         `json:"format"`
	PriorityHint string         `json:"priority_hint"`
	Extra        map[string]any `json:"extra,omitempty"`
}

var priorityByName = map[string]types.Priority{
	"low": types.PriorityLow, "normal": types.PriorityNormal,
	"high": types.PriorityHigh, "urgent": types.PriorityUrgent,
}

// submitApplication handles submit_application(application_data) -> job_id.
func (s *Server) submitApplication(c *gin.Context) {
	var req submitApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "message": err.Error()})
		return
	}

	priority := types.PriorityNormal
	if p, ok := priorityByName[req.PriorityHint]; ok {
		priority = p
	}

	jobID, err := s.queue.Submit(types.ApplicationData{
		ApplicationID: req.ApplicationID,
		ApplicantID:  req.ApplicantID,
		JDToken:      req.JDToken,
		FileURI:      req.FileURI,
		Filename:     req.Filename,
		Format:       req.Format,
		PriorityHint: priority,
		Extra:        req.Extra,
	})
	if err != nil {
		writeCoreErr(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"job_id": jobID})
}

// getApplicationStatus handles get_application_status(job_id).
func (s *Server) getApplicationStatus(c *gin.Context) {
	jobID := c.Param("job_id")
	job, queuePos, eta, ok := s.queue.GetStatus(jobID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "unknown job id"})
		return
	}
	resp := gin.H{
		"status":     job.Status,
		"created_at": job.CreatedAt,
		"started_at": job.StartedAt,
	}
	if job.CompletedAt != nil {
		resp["completed_at"] = job.CompletedAt
	}
	if job.Result != nil {
		resp["result"] = job.Result
	}
	if job.Error != nil {
		resp["error"] = job.Error
	}
	if job.Status == types.JobQueued {
		resp["queue_position"] = queuePos
		resp["eta_seconds"] = eta.Seconds()
	}
	c.JSON(http.StatusOK, resp)
}

// matchRequest is the wire shape of match(jd_ref, cv_refs|all, weights?, top_alternatives?).
type matchRequest struct {
	JDID            string   `json:"jd_id"`
	CVIDs           []string `json:"cv_ids,omitempty"`
	All             bool     `json:"all,omitempty"`
	Weights         *weights `json:"weights,omitempty"`
	TopK            int      `json:"top_k,omitempty"`
	TopAlternatives bool     `json:"top_alternatives,omitempty"`
}

type weights struct {
	Skills           float64 `json:"skills"`
	Responsibilities float64 `json:"responsibilities"`
	Title            float64 `json:"title"`
	Experience       float64 `json:"experience"`
}

// match handles match(jd_ref, cv_refs|all, weights?, top_alternatives?).
func (s *Server) match(c *gin.Context) {
	var req matchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "message": err.Error()})
		return
	}

	ctx := c.Request.Context()
	jdBundle, err := s.store.GetBundle(ctx, req.JDID, types.KindJD)
	if err != nil {
		writeCoreErr(c, err)
		return
	}
	jdInfo, err := s.store.GetStructured(ctx, req.JDID, types.KindJD)
	if err != nil {
		writeCoreErr(c, err)
		return
	}

	w := match.DefaultWeights()
	if req.Weights != nil {
		w = match.Weights{
			Skills: req.Weights.Skills, Responsibilities: req.Weights.Responsibilities,
			Title: req.Weights.Title, Experience: req.Weights.Experience,
		}
		if sum := w.Skills + w.Responsibilities + w.Title + w.Experience; sum > 0 {
			w = match.Weights{
				Skills: w.Skills / sum, Responsibilities: w.Responsibilities / sum,
				Title: w.Title / sum, Experience: w.Experience / sum,
			}
		} else {
			w = match.DefaultWeights()
		}
	}

	cvIDs := req.CVIDs
	if req.All {
		entries, err := s.store.Scroll(ctx, types.KindCV)
		if err != nil {
			writeCoreErr(c, err)
			return
		}
		cvIDs = make([]string, 0, len(entries))
		for _, e := range entries {
			cvIDs = append(cvIDs, e.ID)
		}
	}

	candidates := make([]match.CandidateInput, 0, len(cvIDs))
	for _, cvID := range cvIDs {
		bundle, err := s.store.GetBundle(ctx, cvID, types.KindCV)
		if err != nil {
			continue
		}
		info, err := s.store.GetStructured(ctx, cvID, types.KindCV)
		if err != nil {
			continue
		}
		candidates = append(candidates, match.CandidateInput{CVID: cvID, Bundle: bundle, Info: info.Payload})
	}

	ranked, err := s.matcher.Rank(ctx, req.JDID, jdBundle, jdInfo.Payload, candidates, w, req.TopK)
	if err != nil {
		writeCoreErr(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"jd_id":             req.JDID,
		"normalized_weights": w,
		"candidates":        ranked,
	})
}

// similarDocuments handles the administrative scroll-with-similarity
// query: given a stored document id, rank other documents of the same
// kind by title-vector similarity via the auxiliary semantic index.
func (s *Server) similarDocuments(c *gin.Context) {
	id := c.Query("id")
	kind := types.DocKind(c.Query("kind"))
	if id == "" || (kind != types.KindCV && kind != types.KindJD) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "message": "id and kind=cv|jd are required"})
		return
	}

	k := 5
	if raw := c.Query("k"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			k = n
		}
	}

	entries, err := s.store.SimilarDocuments(c.Request.Context(), id, kind, k)
	if err != nil {
		writeCoreErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "kind": kind, "similar": entries})
}

// systemMetrics handles system_metrics() for operators.
func (s *Server) systemMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"queue": s.queue.SystemMetrics()})
}

// control handles control(action) for operators: pause, resume,
// scale_up, scale_down, reset_circuit_breaker, drain.
func (s *Server) control(c *gin.Context) {
	var req struct {
		Action string `json:"action"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input"})
		return
	}

	if req.Action == "reset_circuit_breaker" {
		s.limiter.ResetCircuitBreaker()
	}
	if err := s.queue.Control(req.Action); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func writeCoreErr(c *gin.Context, err error) {
	kind, ok := coreerr.KindOf(err)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal", "message": err.Error()})
		return
	}
	status := http.StatusInternalServerError
	switch kind {
	case coreerr.KindInvalidInput:
		status = http.StatusBadRequest
	case coreerr.KindNotFound:
		status = http.StatusNotFound
	case coreerr.KindShape:
		status = http.StatusUnprocessableEntity
	case coreerr.KindOverloaded:
		status = http.StatusServiceUnavailable
	case coreerr.KindRateLimited, coreerr.KindCircuitOpen:
		status = http.StatusTooManyRequests
	case coreerr.KindUpstream, coreerr.KindTransient:
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"error": string(kind), "message": err.Error()})
}
