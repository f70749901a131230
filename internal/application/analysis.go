package app

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"dental-screen/internal/domain/entity"
	"dental-screen/internal/domain/finding"
	"dental-screen/internal/domain/port"
	"dental-screen/internal/domain/xray"
)

// sharedDetectTimeout предел для детекции, общей для нескольких запросов
const sharedDetectTimeout = 2 * time.Minute

var (
	// ErrDetector детектор недоступен или нарушил контракт. Пустым результатом не заменяется.
	ErrDetector = errors.New("detector failure")
	// ErrInvalidConfidence порог вне диапазона (0, 1]
	ErrInvalidConfidence = errors.New("El umbral de confianza debe estar entre 0 y 1")
)

// AnalysisRequest входные данные одного анализа
type AnalysisRequest struct {
	Data        []byte
	Filename    string // пустое имя: файл без расширения, проверка расширения пропускается
	Confidence  float64
	ReturnImage bool
	Save        bool
	UserID      int64
}

// AnalysisOutput результат анализа принятого снимка
type AnalysisOutput struct {
	Admission   xray.AdmissionResult
	Result      *entity.AnalysisResult
	Model       string
	Confidence  float64
	Annotated   []byte // PNG, заполнен при ReturnImage или Save
	Cached      bool
	HistoryID   int64
	PerUserIdx  int
	ProcessedIn time.Duration
}

// ImageBase64 аннотированный снимок в base64 или пустая строка
func (o *AnalysisOutput) ImageBase64() string {
	if len(o.Annotated) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(o.Annotated)
}

// AnalysisService проводит снимок через приём, детектор и агрегацию находок
type AnalysisService struct {
	classifier *xray.Classifier
	detector   port.Detector
	annotator  port.Annotator
	cache      port.ResultCache
	history    port.HistoryRepository
	logger     zerolog.Logger
}

// NewAnalysisService создаёт сервис анализа. cache, annotator и history могут быть nil.
func NewAnalysisService(
	classifier *xray.Classifier,
	detector port.Detector,
	annotator port.Annotator,
	resultCache port.ResultCache,
	history port.HistoryRepository,
	logger zerolog.Logger,
) *AnalysisService {
	return &AnalysisService{
		classifier: classifier,
		detector:   detector,
		annotator:  annotator,
		cache:      resultCache,
		history:    history,
		logger:     logger,
	}
}

// DetectorName название модели для ответов API
func (s *AnalysisService) DetectorName() string {
	if s.detector == nil {
		return ""
	}
	return s.detector.Name()
}

// Analyze проверяет снимок и запускает детектор. Отказ приёма возвращается как *xray.Rejected.
func (s *AnalysisService) Analyze(ctx context.Context, req AnalysisRequest) (*AnalysisOutput, error) {
	start := time.Now()

	if req.Confidence <= 0 || req.Confidence > 1 {
		return nil, ErrInvalidConfidence
	}
	if s.detector == nil {
		return nil, fmt.Errorf("%w: detector is not configured", ErrDetector)
	}

	var adm xray.Admission
	if req.Filename == "" {
		adm = s.classifier.AdmitContent(req.Data)
	} else {
		adm = s.classifier.Admit(req.Data, req.Filename)
	}
	if rej, ok := adm.(*xray.Rejected); ok {
		return nil, rej
	}
	acc := adm.(*xray.Accepted)

	var (
		result *entity.AnalysisResult
		cached bool
		err    error
	)
	if s.cache != nil {
		// Результат достаётся всем одинаковым запросам в полёте, поэтому
		// отмена первого из них не должна обрывать детекцию.
		result, cached, err = s.cache.Do(ResultKey(req.Data, req.Confidence), func() (*entity.AnalysisResult, error) {
			shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedDetectTimeout)
			defer cancel()
			return s.detect(shared, acc, req.Confidence)
		})
	} else {
		result, err = s.detect(ctx, acc, req.Confidence)
	}
	if err != nil {
		return nil, err
	}

	out := &AnalysisOutput{
		Admission:  adm.Result(),
		Result:     result,
		Model:      s.detector.Name(),
		Confidence: req.Confidence,
		Cached:     cached,
	}

	if (req.ReturnImage || req.Save) && s.annotator != nil {
		png, err := s.annotator.Annotate(acc.Raster, result.Detections)
		if err != nil {
			// Без картинки ответ остаётся полезным.
			s.logger.Warn().Err(err).Msg("failed to annotate image")
		} else {
			out.Annotated = png
		}
	}

	if req.Save && req.UserID != 0 && s.history != nil {
		rec, err := s.historyRecord(req, out)
		if err != nil {
			return nil, err
		}
		if err := s.history.SaveAnalysis(ctx, rec); err != nil {
			return nil, fmt.Errorf("save analysis: %w", err)
		}
		out.HistoryID = rec.ID
		out.PerUserIdx = rec.PerUserIndex
	}

	out.ProcessedIn = time.Since(start)
	s.logger.Info().
		Int("total", result.Summary.Total).
		Bool("cached", cached).
		Bool("saved", out.HistoryID != 0).
		Dur("took", out.ProcessedIn).
		Msg("analysis finished")

	return out, nil
}

// ResultKey ключ кэша: содержимое файла и порог детектора.
func ResultKey(data []byte, threshold float64) string {
	h := sha256.New()
	h.Write(data)
	h.Write([]byte(strconv.FormatFloat(threshold, 'g', -1, 64)))
	return hex.EncodeToString(h.Sum(nil))
}

func (s *AnalysisService) detect(ctx context.Context, acc *xray.Accepted, threshold float64) (*entity.AnalysisResult, error) {
	start := time.Now()
	raws, err := s.detector.Detect(ctx, acc.Raster, threshold)
	if err != nil {
		s.logger.Error().Err(err).Str("detector", s.detector.Name()).Msg("detection failed")
		return nil, fmt.Errorf("%w: %v", ErrDetector, err)
	}
	s.logger.Debug().Dur("took", time.Since(start)).Int("raw", len(raws)).Msg("detection finished")

	dets, err := finding.Map(raws, acc.Raster.Width, acc.Raster.Height)
	if err != nil {
		s.logger.Error().Err(err).Msg("detector returned unknown class")
		return nil, fmt.Errorf("%w: %v", ErrDetector, err)
	}
	return finding.Aggregate(dets), nil
}

// StoredResult тело results_json в истории: итог анализа вместе с данными приёма.
type StoredResult struct {
	*entity.AnalysisResult
	Admission xray.AdmissionResult `json:"admission"`
	Model     string               `json:"model"`
}

func (s *AnalysisService) historyRecord(req AnalysisRequest, out *AnalysisOutput) (*entity.HistoryRecord, error) {
	results, err := json.Marshal(StoredResult{AnalysisResult: out.Result, Admission: out.Admission, Model: out.Model})
	if err != nil {
		return nil, fmt.Errorf("marshal results: %w", err)
	}
	teeth, err := json.Marshal(out.Result.TeethByFinding)
	if err != nil {
		return nil, fmt.Errorf("marshal teeth: %w", err)
	}

	perClass := out.Result.Summary.PerClass
	return &entity.HistoryRecord{
		UserID:          req.UserID,
		ImageFilename:   req.Filename,
		ImageBase64:     out.ImageBase64(),
		ModelUsed:       out.Model,
		Confidence:      req.Confidence,
		TotalDetections: out.Result.Summary.Total,
		CariesCount:     perClass[entity.FindingCaries],
		ImpactedCount:   perClass[entity.FindingImpacted],
		BoneLossCount:   perClass[entity.FindingBoneLoss],
		ResultsJSON:     string(results),
		TeethFDIJSON:    string(teeth),
		ReportText:      out.Result.ReportText,
	}, nil
}
