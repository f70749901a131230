package app

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"dental-screen/internal/domain/entity"
	"dental-screen/internal/domain/port"
)

// ErrNotFound запись не найдена или принадлежит другому пользователю
var ErrNotFound = errors.New("No encontrado")

const displayLayout = "02/01/2006, 15:04:05"

// HistoryItem анализ в списке истории. Время в часовом поясе отображения.
type HistoryItem struct {
	ID               int                      `json:"id"`
	AnalysisID       int64                    `json:"analysis_id"`
	PerUserIndex     int                      `json:"per_user_index"`
	CreatedAt        string                   `json:"created_at"`
	CreatedAtDisplay string                   `json:"created_at_display"`
	ImageFilename    string                   `json:"image_filename"`
	ModelUsed        string                   `json:"model_used"`
	Confidence       float64                  `json:"confidence"`
	TotalDetections  int                      `json:"total_detections"`
	Caries           int                      `json:"caries"`
	Retenido         int                      `json:"retenido"`
	Perdida          int                      `json:"perdida"`
	Total            int                      `json:"total"`
	Osea             int                      `json:"osea"`
	TeethFDI         map[entity.Finding][]int `json:"teeth_fdi"`
	ReportText       string                   `json:"report_text,omitempty"`
	ImageBase64      *string                  `json:"image_base64"`
}

// HistoryService выдаёт и удаляет сохранённые анализы пользователя
type HistoryService struct {
	repo     port.HistoryRepository
	location *time.Location
	logger   zerolog.Logger
}

// NewHistoryService создаёт сервис. Время показывается со сдвигом offsetHours от UTC.
func NewHistoryService(repo port.HistoryRepository, offsetHours int, logger zerolog.Logger) *HistoryService {
	return &HistoryService{
		repo:     repo,
		location: time.FixedZone("display", offsetHours*3600),
		logger:   logger,
	}
}

// List возвращает анализы пользователя, новые первыми
func (s *HistoryService) List(ctx context.Context, userID int64) ([]HistoryItem, error) {
	records, err := s.repo.ListAnalyses(ctx, userID)
	if err != nil {
		return nil, err
	}

	items := make([]HistoryItem, 0, len(records))
	for _, r := range records {
		items = append(items, s.item(r))
	}
	return items, nil
}

func (s *HistoryService) item(r entity.HistoryRecord) HistoryItem {
	teeth := map[entity.Finding][]int{}
	if r.TeethFDIJSON != "" {
		if err := json.Unmarshal([]byte(r.TeethFDIJSON), &teeth); err != nil {
			s.logger.Warn().Err(err).Int64("analysis_id", r.ID).Msg("broken teeth_fdi_json")
			teeth = map[entity.Finding][]int{}
		}
	}

	local := r.CreatedAt.In(s.location)
	item := HistoryItem{
		ID:               r.PerUserIndex,
		AnalysisID:       r.ID,
		PerUserIndex:     r.PerUserIndex,
		CreatedAt:        local.Format(time.RFC3339),
		CreatedAtDisplay: local.Format(displayLayout),
		ImageFilename:    r.ImageFilename,
		ModelUsed:        r.ModelUsed,
		Confidence:       r.Confidence,
		TotalDetections:  r.TotalDetections,
		Caries:           r.CariesCount,
		Retenido:         r.ImpactedCount,
		Perdida:          r.BoneLossCount,
		Total:            r.TotalDetections,
		Osea:             r.BoneLossCount,
		TeethFDI:         teeth,
		ReportText:       r.ReportText,
	}
	if item.ID == 0 {
		item.ID = int(r.ID)
	}
	if r.ImageBase64 != "" {
		img := r.ImageBase64
		item.ImageBase64 = &img
	}
	return item
}

// Delete удаляет анализ пользователя по его ID в базе
func (s *HistoryService) Delete(ctx context.Context, userID, analysisID int64) error {
	ok, err := s.repo.DeleteAnalysis(ctx, userID, analysisID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	s.logger.Info().Int64("user_id", userID).Int64("analysis_id", analysisID).Msg("analysis deleted")
	return nil
}
