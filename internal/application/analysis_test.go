package app

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"dental-screen/internal/domain/entity"
	"dental-screen/internal/domain/xray"
	"dental-screen/internal/infrastructure/cache"
	"dental-screen/internal/infrastructure/storage"
)

type fakeDetector struct {
	DetectFunc func(ctx context.Context, img image.Image, threshold float64) ([]entity.RawDetection, error)
	calls      atomic.Int32
}

func (f *fakeDetector) Detect(ctx context.Context, img image.Image, threshold float64) ([]entity.RawDetection, error) {
	f.calls.Add(1)
	return f.DetectFunc(ctx, img, threshold)
}

func (f *fakeDetector) Name() string { return "fake.pt" }

type fakeAnnotator struct {
	AnnotateFunc func(img image.Image, dets []entity.Detection) ([]byte, error)
}

func (f *fakeAnnotator) Annotate(img image.Image, dets []entity.Detection) ([]byte, error) {
	return f.AnnotateFunc(img, dets)
}

func staticDetector(raws ...entity.RawDetection) *fakeDetector {
	return &fakeDetector{DetectFunc: func(context.Context, image.Image, float64) ([]entity.RawDetection, error) {
		return raws, nil
	}}
}

// radiograph панорамный градиент, который проходит все проверки приёма
func radiograph(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 512, 256))
	for y := 0; y < 256; y++ {
		for x := 0; x < 512; x++ {
			img.Pix[y*img.Stride+x] = uint8(x * 255 / 511)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newUser(t *testing.T, store *storage.SQLiteStore, email string) *entity.User {
	t.Helper()
	u := &entity.User{Email: email, PasswordHash: "x", IsActive: true}
	require.NoError(t, store.CreateUser(context.Background(), u))
	return u
}

var twoFindings = []entity.RawDetection{
	{Box: entity.BoundingBox{X1: 10, Y1: 10, X2: 50, Y2: 50}, Confidence: 0.9, ClassID: 0},
	{Box: entity.BoundingBox{X1: 400, Y1: 200, X2: 450, Y2: 250}, Confidence: 0.6, ClassID: 2},
}

func TestAnalysisService_Analyze(t *testing.T) {
	det := staticDetector(twoFindings...)
	svc := NewAnalysisService(xray.NewClassifier(zerolog.Nop()), det, nil, nil, nil, zerolog.Nop())

	out, err := svc.Analyze(context.Background(), AnalysisRequest{
		Data:       radiograph(t),
		Filename:   "pano.png",
		Confidence: 0.25,
	})
	require.NoError(t, err)
	require.True(t, out.Admission.Accepted)
	require.True(t, out.Admission.IsPanoramicLike)
	require.Equal(t, "fake.pt", out.Model)
	require.Equal(t, 2, out.Result.Summary.Total)
	require.Equal(t, 1, out.Result.Summary.PerClass[entity.FindingCaries])
	require.Equal(t, 0, out.Result.Summary.PerClass[entity.FindingImpacted])
	require.Equal(t, 1, out.Result.Summary.PerClass[entity.FindingBoneLoss])
	require.Equal(t, 11, out.Result.Detections[0].FDI)
	require.Equal(t, 36, out.Result.Detections[1].FDI)
	require.Empty(t, out.Annotated)
	require.Empty(t, out.ImageBase64())
	require.False(t, out.Cached)
}

func TestAnalysisService_RejectionSkipsDetector(t *testing.T) {
	det := staticDetector()
	svc := NewAnalysisService(xray.NewClassifier(zerolog.Nop()), det, nil, nil, nil, zerolog.Nop())

	_, err := svc.Analyze(context.Background(), AnalysisRequest{
		Data:       []byte("%PDF-1.7"),
		Filename:   "scan.jpg",
		Confidence: 0.25,
	})

	var rej *xray.Rejected
	require.ErrorAs(t, err, &rej)
	require.Equal(t, xray.GateDisguisedPDF, rej.Gate)
	require.Zero(t, det.calls.Load())
}

func TestAnalysisService_WithoutFilenameSkipsExtensionGate(t *testing.T) {
	svc := NewAnalysisService(xray.NewClassifier(zerolog.Nop()), staticDetector(), nil, nil, nil, zerolog.Nop())

	out, err := svc.Analyze(context.Background(), AnalysisRequest{Data: radiograph(t), Confidence: 0.5})
	require.NoError(t, err)
	require.Zero(t, out.Result.Summary.Total)
	require.Contains(t, out.Result.ReportText, "Sin hallazgos significativos")
}

func TestAnalysisService_InvalidConfidence(t *testing.T) {
	svc := NewAnalysisService(xray.NewClassifier(zerolog.Nop()), staticDetector(), nil, nil, nil, zerolog.Nop())

	for _, conf := range []float64{0, -0.1, 1.01} {
		_, err := svc.Analyze(context.Background(), AnalysisRequest{Data: radiograph(t), Filename: "a.png", Confidence: conf})
		require.ErrorIs(t, err, ErrInvalidConfidence, "%v", conf)
	}
}

func TestAnalysisService_DetectorFailures(t *testing.T) {
	failing := &fakeDetector{DetectFunc: func(context.Context, image.Image, float64) ([]entity.RawDetection, error) {
		return nil, errors.New("connection refused")
	}}
	svc := NewAnalysisService(xray.NewClassifier(zerolog.Nop()), failing, nil, nil, nil, zerolog.Nop())

	_, err := svc.Analyze(context.Background(), AnalysisRequest{Data: radiograph(t), Filename: "a.png", Confidence: 0.25})
	require.ErrorIs(t, err, ErrDetector)
	require.Contains(t, err.Error(), "connection refused")

	unknown := staticDetector(entity.RawDetection{Box: entity.BoundingBox{X2: 10, Y2: 10}, Confidence: 0.9, ClassID: 5})
	svc = NewAnalysisService(xray.NewClassifier(zerolog.Nop()), unknown, nil, nil, nil, zerolog.Nop())

	_, err = svc.Analyze(context.Background(), AnalysisRequest{Data: radiograph(t), Filename: "a.png", Confidence: 0.25})
	require.ErrorIs(t, err, ErrDetector)
	require.Contains(t, err.Error(), "cls_5")

	svc = NewAnalysisService(xray.NewClassifier(zerolog.Nop()), nil, nil, nil, nil, zerolog.Nop())
	_, err = svc.Analyze(context.Background(), AnalysisRequest{Data: radiograph(t), Filename: "a.png", Confidence: 0.25})
	require.ErrorIs(t, err, ErrDetector)
}

func TestAnalysisService_CacheReusesResult(t *testing.T) {
	det := staticDetector(twoFindings...)
	rc := cache.NewResultCache(true, time.Minute, zerolog.Nop())
	svc := NewAnalysisService(xray.NewClassifier(zerolog.Nop()), det, nil, rc, nil, zerolog.Nop())
	data := radiograph(t)

	first, err := svc.Analyze(context.Background(), AnalysisRequest{Data: data, Filename: "a.png", Confidence: 0.25})
	require.NoError(t, err)
	require.False(t, first.Cached)

	second, err := svc.Analyze(context.Background(), AnalysisRequest{Data: data, Filename: "b.png", Confidence: 0.25})
	require.NoError(t, err)
	require.True(t, second.Cached)
	require.Equal(t, first.Result, second.Result)
	require.EqualValues(t, 1, det.calls.Load())

	// Другой порог даёт другой ключ.
	_, err = svc.Analyze(context.Background(), AnalysisRequest{Data: data, Filename: "a.png", Confidence: 0.5})
	require.NoError(t, err)
	require.EqualValues(t, 2, det.calls.Load())
}

func TestAnalysisService_CanceledCallerDoesNotFailSharedDetection(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	det := &fakeDetector{DetectFunc: func(ctx context.Context, _ image.Image, _ float64) ([]entity.RawDetection, error) {
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return twoFindings, nil
	}}
	rc := cache.NewResultCache(true, time.Minute, zerolog.Nop())
	svc := NewAnalysisService(xray.NewClassifier(zerolog.Nop()), det, nil, rc, nil, zerolog.Nop())
	data := radiograph(t)

	ctxA, cancelA := context.WithCancel(context.Background())
	defer cancelA()

	doneA := make(chan struct{})
	go func() {
		defer close(doneA)
		_, _ = svc.Analyze(ctxA, AnalysisRequest{Data: data, Filename: "a.png", Confidence: 0.25})
	}()
	<-started

	type outcome struct {
		out *AnalysisOutput
		err error
	}
	doneB := make(chan outcome, 1)
	go func() {
		out, err := svc.Analyze(context.Background(), AnalysisRequest{Data: data, Filename: "b.png", Confidence: 0.25})
		doneB <- outcome{out, err}
	}()

	// Второй запрос промахнулся мимо кэша и ждёт общую детекцию.
	require.Eventually(t, func() bool { return rc.Stats().Misses >= 3 }, time.Second, time.Millisecond)

	cancelA()
	close(release)
	<-doneA

	b := <-doneB
	require.NoError(t, b.err)
	require.Equal(t, 2, b.out.Result.Summary.Total)
	require.EqualValues(t, 1, det.calls.Load())
}

func TestAnalysisService_AnnotateAndSave(t *testing.T) {
	store := newStore(t)
	user := newUser(t, store, "doctor@clinica.pe")

	ann := &fakeAnnotator{AnnotateFunc: func(_ image.Image, dets []entity.Detection) ([]byte, error) {
		require.Len(t, dets, 2)
		return []byte("png"), nil
	}}
	svc := NewAnalysisService(xray.NewClassifier(zerolog.Nop()), staticDetector(twoFindings...), ann, nil, store, zerolog.Nop())

	req := AnalysisRequest{Data: radiograph(t), Filename: "pano.png", Confidence: 0.25, Save: true, UserID: user.ID}
	out, err := svc.Analyze(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, []byte("png"), out.Annotated)
	require.NotZero(t, out.HistoryID)
	require.Equal(t, 1, out.PerUserIdx)

	out, err = svc.Analyze(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 2, out.PerUserIdx)

	records, err := store.ListAnalyses(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	rec := records[0]
	require.Equal(t, "pano.png", rec.ImageFilename)
	require.Equal(t, "fake.pt", rec.ModelUsed)
	require.Equal(t, 2, rec.TotalDetections)
	require.Equal(t, 1, rec.CariesCount)
	require.Equal(t, 1, rec.BoneLossCount)
	require.Equal(t, "cG5n", rec.ImageBase64)
	require.Contains(t, rec.ResultsJSON, `"admission"`)
	require.Contains(t, rec.TeethFDIJSON, "Caries")
}

func TestAnalysisService_AnnotationFailureIsNotFatal(t *testing.T) {
	ann := &fakeAnnotator{AnnotateFunc: func(image.Image, []entity.Detection) ([]byte, error) {
		return nil, errors.New("boom")
	}}
	svc := NewAnalysisService(xray.NewClassifier(zerolog.Nop()), staticDetector(twoFindings...), ann, nil, nil, zerolog.Nop())

	out, err := svc.Analyze(context.Background(), AnalysisRequest{Data: radiograph(t), Filename: "a.png", Confidence: 0.25, ReturnImage: true})
	require.NoError(t, err)
	require.Empty(t, out.Annotated)
	require.Equal(t, 2, out.Result.Summary.Total)
}

func TestResultKey(t *testing.T) {
	a := ResultKey([]byte("img"), 0.25)
	require.Len(t, a, 64)
	require.Equal(t, a, ResultKey([]byte("img"), 0.25))
	require.NotEqual(t, a, ResultKey([]byte("img"), 0.3))
	require.NotEqual(t, a, ResultKey([]byte("img2"), 0.25))
}
