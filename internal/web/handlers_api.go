package web

import (
	"net/http"
	"time"

	"github.com/JonMunkholm/sheetflow/internal/core"
)

// SessionState is the JSON view of an upload session. The credential is
// reported only as present or absent.
type SessionState struct {
	Phase         core.Phase     `json:"phase"`
	FileName      string         `json:"file_name,omitempty"`
	Error         string         `json:"error,omitempty"`
	Tables        []string       `json:"tables"`
	Issues        map[string]int `json:"issues"`
	DurationMS    int64          `json:"duration_ms,omitempty"`
	HasCredential bool           `json:"has_credential"`
	UploadedAt    *time.Time     `json:"uploaded_at,omitempty"`
}

// handleSessionState returns the caller's session as JSON.
func (s *Server) handleSessionState(w http.ResponseWriter, r *http.Request) {
	sess := s.service.Session(s.sessionID(w, r))

	state := SessionState{
		Phase:         sess.Phase,
		FileName:      sess.FileName,
		Error:         sess.Error,
		Tables:        []string{},
		HasCredential: sess.HasCredential(),
		Issues: map[string]int{
			string(core.SeverityInfo):    sess.Report.Count(core.SeverityInfo),
			string(core.SeverityWarning): sess.Report.Count(core.SeverityWarning),
			string(core.SeverityError):   sess.Report.Count(core.SeverityError),
		},
	}
	if sess.Ready() {
		state.Tables = sess.Tables.Labels()
		state.DurationMS = sess.Duration.Milliseconds()
	}
	if !sess.UploadedAt.IsZero() {
		at := sess.UploadedAt
		state.UploadedAt = &at
	}

	writeJSON(w, r, http.StatusOK, state)
}

// handleUploadQueueStatus returns the current state of the upload limiter.
func (s *Server) handleUploadQueueStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.service.UploadLimiterStatus())
}
