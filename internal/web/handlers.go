package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/JonMunkholm/sheetflow/internal/core"
	"github.com/JonMunkholm/sheetflow/internal/logging"
	"github.com/JonMunkholm/sheetflow/internal/web/templates"
)

// multipartMemory is how much of a multipart body is held in memory before
// spilling to disk.
const multipartMemory = 8 << 20

// multipartOverhead allows for form fields and boundaries on top of the file.
const multipartOverhead = 1 << 20

// allowedExtensions are the workbook formats the extractor can open.
var allowedExtensions = map[string]bool{
	".xlsx": true,
	".xlsm": true,
}

// handleIndex renders the main page with the selected table preview.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sid := s.sessionID(w, r)
	s.renderPage(w, r, sid, r.URL.Query().Get("table"))
}

// renderPage renders the full page for the session.
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, sid, selected string, flashes ...templates.Flash) {
	sess := s.service.Session(sid)
	data := templates.PageData{
		Session:          sess,
		Flashes:          flashes,
		WarehouseEnabled: s.service.WarehouseEnabled(),
		EmailTables:      s.service.EmailTables(),
		MaxFileSize:      s.cfg.Upload.MaxFileSize,
	}

	if sess.Ready() {
		label, tbl, err := s.service.Preview(sid, selected)
		if errors.Is(err, core.ErrUnknownTable) {
			data.Flashes = append(data.Flashes, templates.Flash{
				Kind: templates.FlashWarning,
				Text: fmt.Sprintf("Table %q does not exist; showing the first table.", selected),
			})
			label, tbl, err = s.service.Preview(sid, "")
		}
		if err == nil {
			data.Selected = label
			data.Table = tbl
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Page(data).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render page", "error", err)
	}
}

// handlePreview returns the selected table as an HTMX partial. Other clients
// are redirected to the full page.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	sid := s.sessionID(w, r)
	label, tbl, err := s.service.Preview(sid, r.URL.Query().Get("table"))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	if !isHTMX(r) {
		http.Redirect(w, r, "/?table="+url.QueryEscape(label), http.StatusSeeOther)
		return
	}

	sess := s.service.Session(sid)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Preview(label, tbl, sess.Report.ForTable(label)).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render preview", "error", err)
	}
}

// UploadResponse is the JSON body returned to API clients after an upload.
type UploadResponse struct {
	OK         bool     `json:"ok"`
	Warning    bool     `json:"warning,omitempty"`
	Message    string   `json:"message"`
	Tables     []string `json:"tables,omitempty"`
	DurationMS int64    `json:"duration_ms,omitempty"`
}

// handleUpload runs the pipeline on the posted workbook.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	sid := s.sessionID(w, r)
	ctx := WithRequestMetadata(r)

	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			s.respondError(w, r, errFileTooLarge, http.StatusRequestEntityTooLarge)
			return
		}
		s.respondError(w, r, fmt.Errorf("invalid upload form: %w", err), http.StatusBadRequest)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, errNoFile, http.StatusBadRequest)
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedExtensions[ext] {
		err := fmt.Errorf("%w: %q", errUnsupportedType, ext)
		s.respondError(w, r, err, statusFor(err))
		return
	}
	if header.Size > maxSize {
		s.respondError(w, r, errFileTooLarge, http.StatusRequestEntityTooLarge)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, r, fmt.Errorf("read upload: %w", err), http.StatusBadRequest)
		return
	}

	result, err := s.service.Upload(ctx, sid, header.Filename, data, r.FormValue("api_key"))

	var flash templates.Flash
	resp := UploadResponse{}
	status := http.StatusOK
	switch {
	case err == nil:
		resp.OK = true
		resp.Tables = result.Tables.Labels()
		resp.DurationMS = result.Duration.Milliseconds()
		resp.Message = fmt.Sprintf("Processed %d tables from %s in %s.",
			result.Tables.Len(), header.Filename, result.Duration.Round(time.Millisecond))
		flash = templates.Flash{Kind: templates.FlashSuccess, Text: resp.Message}

	case errors.Is(err, core.ErrMissingCredential):
		resp.Warning = true
		resp.Message = "Please provide a valid API key before processing the file."
		status = http.StatusBadRequest
		flash = templates.Flash{Kind: templates.FlashWarning, Text: resp.Message}

	case errors.Is(err, core.ErrSuperseded):
		resp.Warning = true
		resp.Message = "A newer upload for this session replaced this one."
		status = statusFor(err)
		flash = templates.Flash{Kind: templates.FlashWarning, Text: resp.Message}

	case errors.Is(err, core.ErrTooManyUploads), r.Context().Err() != nil:
		s.respondError(w, r, err, statusFor(err))
		return

	default:
		resp.Message = "Error occurred: " + err.Error()
		status = statusFor(err)
		flash = templates.Flash{Kind: templates.FlashError, Text: resp.Message}
	}

	if wantsJSON(r) {
		writeJSON(w, r, status, resp)
		return
	}
	s.renderPage(w, r, sid, "", flash)
}

// handleHealthz reports liveness.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
