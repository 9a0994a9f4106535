package httptransport

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/entity"
	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/repository"
	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/service"
	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/storage"
	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/upload"
)

// multipart framing on top of the file itself
const formOverhead = 1 << 20

type Handler struct {
	jobSvc *service.JobService
	store  storage.Store
	log    zerolog.Logger
}

func NewHandler(jobSvc *service.JobService, store storage.Store, log zerolog.Logger) *Handler {
	return &Handler{jobSvc: jobSvc, store: store, log: log}
}

type processResp struct {
	Success        bool   `json:"success"`
	Status         string `json:"status"`
	FileID         string `json:"file_id"`
	EstimatedTime  int    `json:"estimated_time"` // seconds
	IntensityLevel string `json:"intensity_level"`
	ModelUsed      string `json:"model_used"`
}

type statusResp struct {
	FileID   string `json:"file_id"`
	Progress int    `json:"progress"`
	Stage    string `json:"stage"`
	Message  string `json:"message"`
}

type resultResp struct {
	Success          bool   `json:"success"`
	FileID           string `json:"file_id"`
	OriginalFile     string `json:"original_file"`
	EnhancedFile     string `json:"enhanced_file"`
	IntensityLevel   string `json:"intensity_level"`
	ModelUsed        string `json:"model_used"`
	ModelDescription string `json:"model_description"`
}

type cancelResp struct {
	Success bool   `json:"success"`
	FileID  string `json:"file_id"`
	Status  string `json:"status"`
}

type healthResp struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (h *Handler) tooLargeMessage() string {
	return fmt.Sprintf("File too large. Maximum size is %dMB.", h.jobSvc.MaxUploadBytes()>>20)
}

// ProcessAudio godoc
// @Summary Submit audio for enhancement
// @Description Stores the upload, queues an enhancement job and returns its id.
// @Tags enhance
// @Accept multipart/form-data
// @Produce json
// @Param audio formData file true "audio file (mp3, wav, flac, ogg, aac, aiff; max 50MB)"
// @Param intensity formData int false "noise reduction intensity 1-10 (default 5)"
// @Success 202 {object} processResp
// @Failure 400 {object} apiError
// @Failure 413 {object} apiError
// @Failure 500 {object} apiError
// @Router /api/process [post]
func (h *Handler) ProcessAudio(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.jobSvc.MaxUploadBytes()+formOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeErr(w, http.StatusRequestEntityTooLarge, h.tooLargeMessage())
			return
		}
		writeErr(w, http.StatusBadRequest, "No audio file provided")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, hdr, err := r.FormFile("audio")
	if err != nil {
		// a part sent with an empty filename is parsed as a plain value
		if _, ok := r.MultipartForm.Value["audio"]; ok {
			writeErr(w, http.StatusBadRequest, "No file selected")
			return
		}
		writeErr(w, http.StatusBadRequest, "No audio file provided")
		return
	}
	defer file.Close()

	if hdr.Filename == "" {
		writeErr(w, http.StatusBadRequest, "No file selected")
		return
	}

	intensity := entity.DefaultIntensity
	if raw := strings.TrimSpace(r.FormValue("intensity")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeErr(w, http.StatusBadRequest, "Invalid intensity")
			return
		}
		intensity = v
	}

	res, err := h.jobSvc.CreateJob(r.Context(), service.CreateJobRequest{
		Filename:    hdr.Filename,
		ContentType: hdr.Header.Get("Content-Type"),
		Size:        hdr.Size,
		Body:        file,
		Intensity:   intensity,
	})
	if err != nil {
		var verr *upload.ValidationError
		if errors.As(err, &verr) {
			if verr.Reason == upload.ReasonTooLarge {
				writeErr(w, http.StatusRequestEntityTooLarge, h.tooLargeMessage())
				return
			}
			writeErr(w, http.StatusBadRequest, verr.Message)
			return
		}
		h.log.Error().Err(err).Str("req_file", hdr.Filename).Msg("create job")
		writeErr(w, http.StatusInternalServerError, "Processing failed: "+err.Error())
		return
	}

	j := res.Job
	writeJSON(w, http.StatusAccepted, processResp{
		Success:        true,
		Status:         string(entity.StatusProcessing),
		FileID:         j.ID.String(),
		EstimatedTime:  int(res.EstimatedTime.Seconds()),
		IntensityLevel: string(j.Tier),
		ModelUsed:      j.Model,
	})
}

// GetStatus godoc
// @Summary Poll job progress
// @Tags enhance
// @Produce json
// @Param id path string true "file id (uuid)"
// @Success 200 {object} statusResp
// @Failure 400 {object} apiError
// @Failure 404 {object} apiError
// @Router /api/status/{id} [get]
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	j, err := h.jobSvc.GetJob(r.Context(), id)
	if err != nil {
		h.jobError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, statusResp{
		FileID:   j.ID.String(),
		Progress: j.Progress,
		Stage:    string(j.Status),
		Message:  j.Message,
	})
}

// GetResult godoc
// @Summary Fetch artifact references of a completed job
// @Description Returns original and enhanced file names. The job record is discarded afterwards.
// @Tags enhance
// @Produce json
// @Param id path string true "file id (uuid)"
// @Success 200 {object} resultResp
// @Failure 400 {object} apiError
// @Failure 404 {object} apiError
// @Failure 409 {object} apiError
// @Router /api/result/{id} [get]
func (h *Handler) GetResult(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	j, err := h.jobSvc.GetResult(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrJobNotComplete) && j != nil && j.Status == entity.StatusError {
			writeErr(w, http.StatusConflict, j.Message)
			return
		}
		h.jobError(w, err)
		return
	}

	model := j.Tier.Model()
	writeJSON(w, http.StatusOK, resultResp{
		Success:          true,
		FileID:           j.ID.String(),
		OriginalFile:     j.OriginalFile,
		EnhancedFile:     j.EnhancedFile,
		IntensityLevel:   string(j.Tier),
		ModelUsed:        j.Model,
		ModelDescription: model.Description,
	})
}

// CancelJob godoc
// @Summary Cancel a job
// @Description Moves an unfinished job to the error state and stops its worker.
// @Tags enhance
// @Produce json
// @Param id path string true "file id (uuid)"
// @Success 200 {object} cancelResp
// @Failure 400 {object} apiError
// @Failure 404 {object} apiError
// @Failure 409 {object} apiError
// @Router /api/jobs/{id} [delete]
func (h *Handler) CancelJob(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.jobSvc.Cancel(r.Context(), id); err != nil {
		h.jobError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cancelResp{Success: true, FileID: id.String(), Status: service.CancelledMessage})
}

// GetAudio godoc
// @Summary Stream an audio artifact
// @Tags audio
// @Produce octet-stream
// @Param kind path string true "uploads or processed"
// @Param filename path string true "artifact file name"
// @Success 200 {file} file
// @Failure 404 {object} apiError
// @Router /api/audio/{kind}/{filename} [get]
func (h *Handler) GetAudio(w http.ResponseWriter, r *http.Request) {
	kind := entity.ArtifactKind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		writeErr(w, http.StatusNotFound, "File not found")
		return
	}
	h.serveArtifact(w, r, kind, chi.URLParam(r, "filename"), false)
}

// Download godoc
// @Summary Download an enhanced file
// @Tags audio
// @Produce octet-stream
// @Param filename path string true "enhanced file name"
// @Success 200 {file} file
// @Failure 404 {object} apiError
// @Router /api/download/{filename} [get]
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	h.serveArtifact(w, r, entity.KindProcessed, chi.URLParam(r, "filename"), true)
}

// Health godoc
// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} healthResp
// @Router /api/health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResp{Status: "healthy", Message: "Voice Enhancer AI is running"})
}

func (h *Handler) serveArtifact(w http.ResponseWriter, r *http.Request, kind entity.ArtifactKind, name string, attachment bool) {
	f, info, err := h.store.Open(r.Context(), kind, name)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) && !errors.Is(err, storage.ErrInvalidName) {
			h.log.Error().Err(err).Str("kind", string(kind)).Str("file", name).Msg("open artifact")
		}
		writeErr(w, http.StatusNotFound, "File not found")
		return
	}
	defer f.Close()

	ct := info.ContentType
	if ct == "" {
		ct = storage.ContentTypeFor(name)
	}
	w.Header().Set("Content-Type", ct)
	if attachment {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", entity.DownloadName(name)))
	}
	http.ServeContent(w, r, name, info.ModTime, f)
}

func (h *Handler) jobError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeErr(w, http.StatusNotFound, "job not found")
	case errors.Is(err, entity.ErrJobTerminal):
		writeErr(w, http.StatusConflict, "job already finished")
	case errors.Is(err, service.ErrJobNotComplete):
		writeErr(w, http.StatusConflict, "job not complete")
	default:
		h.log.Error().Err(err).Msg("job lookup")
		writeErr(w, http.StatusInternalServerError, "Internal server error")
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}
