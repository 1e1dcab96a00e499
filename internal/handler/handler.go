// Package handler exposes the grading pipeline over HTTP.
package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ksalako/gradelab/internal/llm"
	"github.com/ksalako/gradelab/internal/model"
	"github.com/ksalako/gradelab/internal/report"
	"github.com/ksalako/gradelab/internal/service"
)

// maxUploadBytes caps one multipart grading request.
const maxUploadBytes = 32 << 20

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	svc    *service.Service
	grader llm.Grader
}

// New creates a new Handler.
func New(svc *service.Service, grader llm.Grader) *Handler {
	return &Handler{svc: svc, grader: grader}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/grade", h.handleGrade)
	r.Get("/healthz", h.handleHealthz)
}

// gradeResponse is the JSON body for format=json requests.
type gradeResponse struct {
	Results    []model.GradingResult `json:"results"`
	Statistics model.BatchStatistics `json:"statistics"`
}

func (h *Handler) handleGrade(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid multipart request: "+err.Error(), http.StatusBadRequest)
		return
	}

	cfg, err := parseConfig(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	uploads := r.MultipartForm.File["files"]
	if len(uploads) == 0 {
		http.Error(w, "no files uploaded", http.StatusBadRequest)
		return
	}

	files := make([]service.File, 0, len(uploads))
	for _, fh := range uploads {
		src, err := fh.Open()
		if err != nil {
			http.Error(w, fmt.Sprintf("open upload %q: %v", fh.Filename, err), http.StatusBadRequest)
			return
		}
		data, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			http.Error(w, fmt.Sprintf("read upload %q: %v", fh.Filename, err), http.StatusBadRequest)
			return
		}
		files = append(files, service.File{Name: fh.Filename, Data: data})
	}

	results := h.svc.GradeBatch(r.Context(), files, cfg)

	format := r.FormValue("format")
	if format == "" {
		format = "json"
	}
	switch format {
	case "json":
		w.Header().Set("Content-Type", "application/json")
		resp := gradeResponse{Results: results, Statistics: model.ComputeStatistics(results)}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			slog.Error("encode response", "error", err)
		}
	case "xlsx":
		data, err := report.Excel(results)
		if err != nil {
			slog.Error("excel export failed", "error", err)
			http.Error(w, "report generation failed", http.StatusInternalServerError)
			return
		}
		name := fmt.Sprintf("grading_report_%d.xlsx", time.Now().Unix())
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
		_, _ = w.Write(data)
	case "csv":
		data, err := report.CSV(results)
		if err != nil {
			slog.Error("csv export failed", "error", err)
			http.Error(w, "report generation failed", http.StatusInternalServerError)
			return
		}
		name := fmt.Sprintf("grading_report_%d.csv", time.Now().Unix())
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
		_, _ = w.Write(data)
	default:
		http.Error(w, "unknown format: "+format, http.StatusBadRequest)
	}
}

// parseConfig reads the grading parameters from form fields. Missing
// fields fall back to defaults (100 marks, multi-question detection on).
func parseConfig(r *http.Request) (model.GradingConfig, error) {
	cfg := model.GradingConfig{
		TotalMarks:              100,
		DetectMultipleQuestions: true,
	}

	if v := r.FormValue("total_marks"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid total_marks %q", v)
		}
		cfg.TotalMarks = n
	}
	if v := r.FormValue("criteria"); v != "" {
		if err := json.Unmarshal([]byte(v), &cfg.Criteria); err != nil {
			return cfg, fmt.Errorf("criteria must be a JSON object of name to marks: %v", err)
		}
	}
	cfg.Instructions = r.FormValue("instructions")
	if v := r.FormValue("detect_multiple_questions"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid detect_multiple_questions %q", v)
		}
		cfg.DetectMultipleQuestions = b
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := h.grader.Ping(r.Context()); err != nil {
		slog.Error("provider ping failed", "error", err)
		http.Error(w, "llm provider unreachable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
