package xray

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Gate отдельная проверка конвейера приёма.
type Gate string

const (
	GateExtension      Gate = "extension"
	GateDisguisedPDF   Gate = "disguised_pdf"
	GateDecode         Gate = "decode"
	GateSize           Gate = "size"
	GateMeanSaturation Gate = "mean_saturation"
	GateStrongColor    Gate = "strong_color"
	GatePhotoLike      Gate = "photo_like"
	GateColorCoverage  Gate = "color_coverage"
	GateContrast       Gate = "contrast"
	GateDrawing        Gate = "drawing"
	GateIntensity      Gate = "intensity_pattern"
)

// Тексты отказов показываются пользователю как есть.
const (
	MsgPDFFile          = "Archivo PDF detectado. Por favor exporta el PDF como imagen (JPG/PNG) antes de subirlo."
	MsgVideoFile        = "Se detectó un archivo de video. Sube una imagen de radiografía."
	MsgUnsupportedType  = "Tipo de archivo no soportado. Solo se aceptan imágenes: JPG, JPEG, PNG, BMP, TIFF."
	MsgDisguisedPDF     = "El archivo parece ser un PDF disfrazado de imagen. Exporta la radiografía como imagen real."
	MsgCorrupt          = "El archivo está corrupto o no es una imagen válida."
	MsgTooLarge         = "La imagen es demasiado grande (%dx%dpx). Máximo %dx%dpx."
	MsgMeanSaturated    = "La saturación de color es demasiado alta. Las radiografías dentales se presentan en escala de grises."
	MsgStrongColor      = "La imagen contiene demasiados píxeles con color intenso. Las radiografías dentales no tienen colores fuertes."
	MsgPhotoLike        = "La imagen tiene saturación media y muchos píxeles a color; parece una fotografía, no una radiografía dental."
	MsgColorCoverage    = "La imagen contiene demasiados píxeles a color. Las radiografías dentales reales se presentan en escala de grises."
	MsgLowContrast      = "La imagen tiene muy poco contraste para ser una radiografía dental útil."
	MsgDrawing          = "La imagen parece ser un dibujo en blanco y negro (cómic o ilustración), no una radiografía dental."
	MsgIntensityPattern = "La imagen no presenta el patrón de intensidades típico de una radiografía dental."
)

var (
	validExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".tiff", ".tif"}
	videoExtensions = []string{".mp4", ".avi", ".mov", ".wmv"}
	pdfMagic        = []byte("%PDF")
)

// Admission результат приёма: *Accepted или *Rejected.
type Admission interface {
	Result() AdmissionResult
	admission()
}

// Accepted снимок прошёл все проверки.
type Accepted struct {
	Confidence  float64
	Orientation Orientation
	Stats       PixelStatistics
	Raster      *Raster // декодированный снимок для детектора
	Format      string
}

// Rejected снимок отклонён первой сработавшей проверкой.
type Rejected struct {
	Gate   Gate
	Reason string
	Metric float64 // значение, на котором сработал порог
}

func (*Accepted) admission() {}
func (*Rejected) admission() {}

// Error позволяет передавать отказ через error и разбирать его errors.As.
func (r *Rejected) Error() string { return r.Reason }

// AdmissionResult плоское представление результата приёма для ответа API.
type AdmissionResult struct {
	Accepted             bool    `json:"accepted"`
	Reason               *string `json:"reason"`
	XrayConfidence       float64 `json:"xray_confidence"`
	IsPanoramicLike      bool    `json:"is_panoramic_like"`
	PanoramicAspectRatio float64 `json:"panoramic_aspect_ratio"`
	Advisory             string  `json:"advisory,omitempty"`
}

func (a *Accepted) Result() AdmissionResult {
	return AdmissionResult{
		Accepted:             true,
		XrayConfidence:       a.Confidence,
		IsPanoramicLike:      a.Orientation.PanoramicLike,
		PanoramicAspectRatio: a.Orientation.AspectRatio,
		Advisory:             a.Orientation.Message,
	}
}

func (r *Rejected) Result() AdmissionResult {
	reason := r.Reason
	return AdmissionResult{
		Reason:         &reason,
		XrayConfidence: r.Metric,
	}
}

// Classifier упорядоченный набор жёстких проверок. Первая сработавшая проверка
// определяет причину отказа, остальные не выполняются.
type Classifier struct {
	MaxSide               int
	MaxMeanSaturation     float64
	MaxStrongColorRatio   float64
	PhotoMeanSaturation   float64
	PhotoMediumColorRatio float64
	MaxMediumColorRatio   float64
	MinGrayStd            float64
	DrawingMaxMidRatio    float64
	DrawingExtremeRatio   float64
	MinDarkRatio          float64
	MinBrightRatio        float64
	MidToneWeight         float64

	logger zerolog.Logger
}

// NewClassifier создаёт классификатор с откалиброванными порогами.
func NewClassifier(logger zerolog.Logger) *Classifier {
	return &Classifier{
		MaxSide:               10000,
		MaxMeanSaturation:     0.10,
		MaxStrongColorRatio:   0.10,
		PhotoMeanSaturation:   0.05,
		PhotoMediumColorRatio: 0.40,
		MaxMediumColorRatio:   0.45,
		MinGrayStd:            12,
		DrawingMaxMidRatio:    0.25,
		DrawingExtremeRatio:   0.30,
		MinDarkRatio:          0.01,
		MinBrightRatio:        0.002,
		MidToneWeight:         50,
		logger:                logger,
	}
}

// Admit прогоняет загруженный файл через все проверки.
func (c *Classifier) Admit(data []byte, filename string) Admission {
	if rej := checkExtension(filename); rej != nil {
		return c.reject(rej)
	}
	return c.AdmitContent(data)
}

// AdmitContent пропускает проверку расширения: для источников без имени файла.
func (c *Classifier) AdmitContent(data []byte) Admission {
	if bytes.HasPrefix(data, pdfMagic) {
		return c.reject(&Rejected{Gate: GateDisguisedPDF, Reason: MsgDisguisedPDF})
	}

	// Размеры читаем из заголовка, чтобы не декодировать гигантские файлы целиком.
	// Поэтому файл с огромными размерами в заголовке и битым телом получает
	// отказ по размеру, а не по декодированию. После полного декодирования
	// размер проверяется ещё раз по растру.
	cfg, _, err := DecodeConfig(data)
	if err != nil {
		return c.reject(&Rejected{Gate: GateDecode, Reason: MsgCorrupt})
	}
	if rej := c.checkSize(cfg.Width, cfg.Height); rej != nil {
		return c.reject(rej)
	}

	start := time.Now()
	raster, format, err := Decode(data)
	if err != nil {
		return c.reject(&Rejected{Gate: GateDecode, Reason: MsgCorrupt})
	}
	if rej := c.checkSize(raster.Width, raster.Height); rej != nil {
		return c.reject(rej)
	}
	c.logger.Debug().Dur("took", time.Since(start)).Str("format", format).Msg("image decoded")

	adm := c.Classify(raster)
	if acc, ok := adm.(*Accepted); ok {
		acc.Format = format
	}
	return adm
}

// Classify применяет проверки по статистикам пикселей к уже декодированному растру.
func (c *Classifier) Classify(r *Raster) Admission {
	start := time.Now()
	stats := ComputeStatistics(r)
	c.logger.Debug().
		Dur("took", time.Since(start)).
		Int("pixels", stats.Pixels).
		Float64("mean_saturation", stats.MeanSaturation).
		Float64("gray_std", stats.GrayStd).
		Msg("pixel statistics computed")

	if rej := c.checkColor(stats); rej != nil {
		return c.reject(rej)
	}
	if rej := c.checkGray(stats); rej != nil {
		return c.reject(rej)
	}

	acc := &Accepted{
		Confidence:  stats.GrayStd + stats.MidRatio*c.MidToneWeight,
		Orientation: AdviseOrientation(r.Width, r.Height),
		Stats:       stats,
		Raster:      r,
	}
	c.logger.Info().
		Float64("xray_confidence", acc.Confidence).
		Bool("panoramic_like", acc.Orientation.PanoramicLike).
		Float64("aspect_ratio", acc.Orientation.AspectRatio).
		Msg("image admitted")
	return acc
}

func (c *Classifier) reject(r *Rejected) *Rejected {
	c.logger.Info().Str("gate", string(r.Gate)).Float64("metric", r.Metric).Msg("image rejected")
	return r
}

func checkExtension(filename string) *Rejected {
	ext := strings.ToLower(filepath.Ext(filename))
	if hasExtension(validExtensions, ext) {
		return nil
	}

	switch {
	case ext == ".pdf":
		return &Rejected{Gate: GateExtension, Reason: MsgPDFFile}
	case hasExtension(videoExtensions, ext):
		return &Rejected{Gate: GateExtension, Reason: MsgVideoFile}
	default:
		return &Rejected{Gate: GateExtension, Reason: MsgUnsupportedType}
	}
}

func hasExtension(list []string, ext string) bool {
	for _, e := range list {
		if e == ext {
			return true
		}
	}
	return false
}

// Нижней границы размера нет: обрезанные и маленькие снимки принимаются.
func (c *Classifier) checkSize(width, height int) *Rejected {
	if width > c.MaxSide || height > c.MaxSide {
		return &Rejected{
			Gate:   GateSize,
			Reason: fmt.Sprintf(MsgTooLarge, width, height, c.MaxSide, c.MaxSide),
		}
	}
	return nil
}

func (c *Classifier) checkColor(s PixelStatistics) *Rejected {
	switch {
	case s.MeanSaturation > c.MaxMeanSaturation:
		return &Rejected{Gate: GateMeanSaturation, Reason: MsgMeanSaturated, Metric: s.MeanSaturation}
	case s.StrongColorRatio > c.MaxStrongColorRatio:
		return &Rejected{Gate: GateStrongColor, Reason: MsgStrongColor, Metric: s.StrongColorRatio}
	case s.MeanSaturation > c.PhotoMeanSaturation && s.MediumColorRatio > c.PhotoMediumColorRatio:
		return &Rejected{Gate: GatePhotoLike, Reason: MsgPhotoLike, Metric: s.MediumColorRatio}
	case s.MediumColorRatio > c.MaxMediumColorRatio:
		return &Rejected{Gate: GateColorCoverage, Reason: MsgColorCoverage, Metric: s.MediumColorRatio}
	}
	return nil
}

func (c *Classifier) checkGray(s PixelStatistics) *Rejected {
	if s.GrayStd < c.MinGrayStd {
		return &Rejected{Gate: GateContrast, Reason: MsgLowContrast, Metric: s.GrayStd}
	}

	// Комиксы и штриховые рисунки: мало полутонов, много чистого чёрного или белого.
	if s.MidRatio < c.DrawingMaxMidRatio &&
		(s.DarkRatio > c.DrawingExtremeRatio || s.BrightRatio > c.DrawingExtremeRatio) {
		return &Rejected{Gate: GateDrawing, Reason: MsgDrawing, Metric: s.MidRatio}
	}

	// На настоящем снимке есть и очень тёмные, и очень светлые участки.
	if s.DarkRatio < c.MinDarkRatio || s.BrightRatio < c.MinBrightRatio {
		return &Rejected{Gate: GateIntensity, Reason: MsgIntensityPattern, Metric: s.DarkRatio + s.BrightRatio}
	}

	return nil
}
