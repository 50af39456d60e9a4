package web

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/sheetflow/internal/core"
	"github.com/JonMunkholm/sheetflow/internal/logging"
	"github.com/JonMunkholm/sheetflow/internal/web/templates"
	"github.com/JonMunkholm/sheetflow/internal/workbook"
)

// DownloadName is the file name of the full workbook download.
const DownloadName = "tables.xlsx"

// handleWarehouse loads the published tables into the warehouse.
func (s *Server) handleWarehouse(w http.ResponseWriter, r *http.Request) {
	sid := s.sessionID(w, r)
	res := s.service.LoadWarehouse(WithRequestMetadata(r), sid)
	s.respondDelivery(w, r, sid, res)
}

// handleEmail mails the configured table subset.
func (s *Server) handleEmail(w http.ResponseWriter, r *http.Request) {
	sid := s.sessionID(w, r)
	if err := r.ParseForm(); err != nil {
		s.respondError(w, r, fmt.Errorf("invalid email form: %w", err), http.StatusBadRequest)
		return
	}

	req := core.EmailRequest{
		From:     r.PostFormValue("from"),
		Password: r.PostFormValue("password"),
		To:       r.PostFormValue("to"),
		Subject:  r.PostFormValue("subject"),
		Body:     r.PostFormValue("body"),
	}
	res := s.service.SendEmail(WithRequestMetadata(r), sid, req)
	s.respondDelivery(w, r, sid, res)
}

// respondDelivery reports a sink result. Delivery outcomes are not HTTP
// errors: the request itself succeeded.
func (s *Server) respondDelivery(w http.ResponseWriter, r *http.Request, sid string, res core.DeliveryResult) {
	flash := templates.Flash{Kind: templates.FlashError, Text: res.Message}
	switch {
	case res.OK:
		flash.Kind = templates.FlashSuccess
	case res.Warning:
		flash.Kind = templates.FlashWarning
	}

	switch {
	case wantsJSON(r):
		writeJSON(w, r, http.StatusOK, res)
	case isHTMX(r):
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := templates.FlashList([]templates.Flash{flash}).Render(r.Context(), w); err != nil {
			logging.FromContext(r.Context()).Error("render flash", "error", err)
		}
	default:
		s.renderPage(w, r, sid, "", flash)
	}
}

// handleCharts renders the chart gallery.
func (s *Server) handleCharts(w http.ResponseWriter, r *http.Request) {
	sid := s.sessionID(w, r)
	figs, err := s.service.Charts(sid)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Charts(figs).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render charts", "error", err)
	}
}

// handleChartImage serves one chart as a PNG. Charts are numbered from 1.
func (s *Server) handleChartImage(w http.ResponseWriter, r *http.Request) {
	sid := s.sessionID(w, r)
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil {
		s.respondError(w, r, errUnknownChart, http.StatusNotFound)
		return
	}

	figs, err := s.service.Charts(sid)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	if n < 1 || n > len(figs) {
		s.respondError(w, r, fmt.Errorf("%w: %d", errUnknownChart, n), http.StatusNotFound)
		return
	}

	fig := figs[n-1]
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", fig.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(fig.PNG)))
	if _, err := w.Write(fig.PNG); err != nil {
		logging.FromContext(r.Context()).Warn("write chart", "error", err)
	}
}

// handleDownload streams every published table as one workbook.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	sid := s.sessionID(w, r)
	tables, err := s.service.ReadyTables(sid)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	data, err := workbook.Bytes(tables)
	if err != nil {
		s.respondError(w, r, fmt.Errorf("build workbook: %w", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", workbook.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", DownloadName))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if _, err := w.Write(data); err != nil {
		logging.FromContext(r.Context()).Warn("write workbook", "error", err)
	}
}
