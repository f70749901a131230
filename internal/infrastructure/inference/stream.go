package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"dental-screen/internal/domain/entity"
	"dental-screen/internal/domain/port"
)

// StreamDetector держит websocket-соединение с сервисом модели.
// Кадр уходит бинарным сообщением, ответ приходит JSON-массивом находок.
// Запросы выполняются по одному: протокол не сопоставляет ответы запросам.
type StreamDetector struct {
	serverURL string
	model     string
	timeout   time.Duration
	dialer    *websocket.Dialer
	logger    zerolog.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

// streamResult находка в ответе сервиса. Label это имя класса, например "Caries".
type streamResult struct {
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	Box        []float64 `json:"box"`
}

// NewStreamDetector создаёт детектор для ws://host/ws. Соединение открывается при первом запросе.
func NewStreamDetector(host, model string, timeout time.Duration, logger zerolog.Logger) *StreamDetector {
	u := url.URL{Scheme: "ws", Host: host, Path: "/ws"}
	return &StreamDetector{
		serverURL: u.String(),
		model:     model,
		timeout:   timeout,
		dialer:    websocket.DefaultDialer,
		logger:    logger,
	}
}

func (d *StreamDetector) Name() string { return d.model }

func (d *StreamDetector) Detect(ctx context.Context, img image.Image, threshold float64) ([]entity.RawDetection, error) {
	data, err := encodePNG(img)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	conn, err := d.connect(ctx)
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(d.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	conn.SetWriteDeadline(deadline)
	conn.SetReadDeadline(deadline)

	if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		d.drop()
		return nil, fmt.Errorf("send frame: %w", err)
	}

	_, message, err := conn.ReadMessage()
	if err != nil {
		d.drop()
		return nil, fmt.Errorf("read result: %w", err)
	}

	var results []streamResult
	if err := json.Unmarshal(message, &results); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}

	raws := make([]entity.RawDetection, 0, len(results))
	for _, r := range results {
		if r.Confidence < threshold {
			continue
		}
		if len(r.Box) != 4 {
			return nil, fmt.Errorf("malformed box for %q: %d values", r.Label, len(r.Box))
		}
		raws = append(raws, entity.RawDetection{
			Box:        entity.BoundingBox{X1: r.Box[0], Y1: r.Box[1], X2: r.Box[2], Y2: r.Box[3]},
			Confidence: r.Confidence,
			// Неизвестная метка даёт -1, дальше это ошибка контракта детектора.
			ClassID: entity.Finding(r.Label).ClassID(),
		})
	}
	return raws, nil
}

func (d *StreamDetector) connect(ctx context.Context) (*websocket.Conn, error) {
	if d.conn != nil {
		return d.conn, nil
	}

	d.logger.Info().Str("url", d.serverURL).Msg("connecting to detector server")
	conn, _, err := d.dialer.DialContext(ctx, d.serverURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial detector: %w", err)
	}
	d.logger.Info().Msg("connected to detector server")

	d.conn = conn
	return conn, nil
}

// drop закрывает сломанное соединение, следующий запрос откроет новое
func (d *StreamDetector) drop() {
	if d.conn != nil {
		d.conn.Close()
		d.conn = nil
	}
	d.logger.Warn().Msg("detector connection lost")
}

// Close закрывает соединение
func (d *StreamDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil {
		return nil
	}
	err := d.conn.Close()
	d.conn = nil
	return err
}

var _ port.Detector = (*StreamDetector)(nil)
