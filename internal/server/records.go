package server

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/spelldeck/spelldeck/internal/model"
	"github.com/spelldeck/spelldeck/internal/resolver"
	"github.com/spelldeck/spelldeck/internal/study"
)

type wordInput struct {
	Word     string `json:"word" validate:"required,excludesall=/\\"`
	Sentence string `json:"sentence"`
}

type createRecordRequest struct {
	Grade          string      `json:"grade" validate:"omitempty,oneof=P1 P2 P3 P4 P5 P6"`
	Term           string      `json:"term"`
	SpellingNumber string      `json:"spelling_number"`
	Title          string      `json:"title"`
	SourceImage    string      `json:"source_image"`
	Words          []wordInput `json:"words" validate:"required,min=1,dive"`
	Enrich         bool        `json:"enrich"`
	Force          bool        `json:"force"`
}

type recordResponse struct {
	Success bool              `json:"success"`
	Data    model.StudyRecord `json:"data"`
}

type recordsResponse struct {
	Success bool                `json:"success"`
	Data    []model.StudyRecord `json:"data"`
}

type duplicateResponse struct {
	Success   bool          `json:"success"`
	Error     string        `json:"error"`
	Duplicate duplicateInfo `json:"duplicate"`
}

func (s *Server) listRecords(w http.ResponseWriter, r *http.Request) {
	uid := UserIDFromContext(r.Context())

	records, err := s.deps.Records.ListRecords(r.Context(), uid)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if grade := r.URL.Query().Get("grade"); grade != "" {
		records = filterRecords(records, func(rec model.StudyRecord) bool {
			return rec.Grade == grade
		})
	}
	if term := r.URL.Query().Get("term"); term != "" {
		records = filterRecords(records, func(rec model.StudyRecord) bool {
			return rec.Term == term
		})
	}
	if records == nil {
		records = []model.StudyRecord{}
	}
	writeJSON(w, http.StatusOK, recordsResponse{Success: true, Data: records})
}

func filterRecords(in []model.StudyRecord, keep func(model.StudyRecord) bool) []model.StudyRecord {
	out := in[:0:0]
	for _, rec := range in {
		if keep(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// createRecord saves a confirmed scan, enriching its words first when asked.
// Enrichment failures fall back to default word details.
func (s *Server) createRecord(w http.ResponseWriter, r *http.Request) {
	uid := UserIDFromContext(r.Context())

	var req createRecordRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	items := make([]model.WordItem, 0, len(req.Words))
	for _, wi := range req.Words {
		items = append(items, model.WordItem{TargetWord: wi.Word, Sentence: wi.Sentence})
	}

	if req.Enrich && s.deps.AI != nil && s.deps.AI.Configured() {
		grade := req.Grade
		if grade == "" {
			grade = model.DefaultGrade
		}
		enriched, err := s.deps.AI.EnrichBatch(r.Context(), items, grade)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		items = enriched
	}

	rec, err := s.deps.Records.CreateRecord(r.Context(), uid, study.Draft{
		Grade:          req.Grade,
		Term:           req.Term,
		SpellingNumber: req.SpellingNumber,
		Title:          req.Title,
		SourceImage:    req.SourceImage,
		Items:          items,
		Force:          req.Force,
	})
	if err != nil {
		var dup *study.DuplicateError
		if errors.As(err, &dup) {
			writeJSON(w, http.StatusConflict, duplicateResponse{
				Error:     err.Error(),
				Duplicate: duplicateInfo{Record: dup.Record, Similarity: dup.Similarity},
			})
			return
		}
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, recordResponse{Success: true, Data: rec})
}

func (s *Server) getRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := s.deps.Records.GetRecord(r.Context(), UserIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recordResponse{Success: true, Data: rec})
}

// deleteRecord also drops the record's words from the user's image cache,
// since the cached URLs point at removed objects.
func (s *Server) deleteRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, id := UserIDFromContext(ctx), chi.URLParam(r, "id")

	rec, err := s.deps.Records.GetRecord(ctx, user, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.deps.Records.DeleteRecord(ctx, user, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	if s.deps.Images != nil {
		s.deps.Images.Forget(user, rec.Words()...)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type mediaResponse struct {
	Success bool              `json:"success"`
	Data    []model.WordMedia `json:"data"`
}

func (s *Server) recordMedia(w http.ResponseWriter, r *http.Request) {
	media, err := s.deps.Records.RecordMedia(r.Context(), UserIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if media == nil {
		media = []model.WordMedia{}
	}
	writeJSON(w, http.StatusOK, mediaResponse{Success: true, Data: media})
}

type imageResponse struct {
	Success bool `json:"success"`
	resolver.Result
}

type placeholderResponse struct {
	Success     bool   `json:"success"`
	Error       string `json:"error"`
	Placeholder bool   `json:"placeholder"`
	Pending     bool   `json:"pending,omitempty"`
}

// wordImage resolves the illustration of one word of a record. When no
// image can be produced the client shows a placeholder.
func (s *Server) wordImage(w http.ResponseWriter, r *http.Request) {
	uid := UserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")
	word, err := url.PathUnescape(chi.URLParam(r, "word"))
	if err != nil {
		s.writeError(w, r, errInvalidBody)
		return
	}

	rec, err := s.deps.Records.GetRecord(r.Context(), uid, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	item, ok := rec.Item(word)
	if !ok {
		s.writeError(w, r, study.ErrNotFound)
		return
	}

	res, err := s.deps.Images.Resolve(r.Context(), resolver.Request{UserID: uid, RecordID: id, Item: item})
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, imageResponse{Success: true, Result: res})
	case errors.Is(err, resolver.ErrInFlight):
		writeJSON(w, http.StatusConflict, placeholderResponse{Error: err.Error(), Placeholder: true, Pending: true})
	case errors.Is(err, resolver.ErrPlaceholder):
		s.logger.Warn("showing placeholder image", "record", id, "word", item.TargetWord, "err", err)
		writeJSON(w, http.StatusBadGateway, placeholderResponse{Error: err.Error(), Placeholder: true})
	default:
		s.writeError(w, r, err)
	}
}
