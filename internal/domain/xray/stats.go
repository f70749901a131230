package xray

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Пороги, на которых считаются доли пикселей. Калибровочные константы,
// подобраны эмпирически.
const (
	StrongSaturationLevel = 0.35 // «ярко окрашенный» пиксель
	MediumSaturationLevel = 0.20 // «заметно окрашенный» пиксель
	DarkLevel             = 50   // серый < 50: тёмный
	BrightLevel           = 200  // серый > 200: светлый
)

// PixelStatistics снимок статистик растра. Неизменяем.
type PixelStatistics struct {
	Pixels           int
	MeanSaturation   float64 // 0..1
	StrongColorRatio float64 // доля пикселей с насыщенностью > 0.35
	MediumColorRatio float64 // доля пикселей с насыщенностью > 0.20
	GrayMean         float64
	GrayStd          float64 // стандартное отклонение по генеральной совокупности
	DarkRatio        float64 // серый < 50
	MidRatio         float64 // серый в [50, 200]
	BrightRatio      float64 // серый > 200
}

var levels = func() []float64 {
	l := make([]float64, 256)
	for i := range l {
		l[i] = float64(i)
	}
	return l
}()

// ComputeStatistics считает насыщенность и яркостные доли за один проход по растру.
// Насыщенность берётся как 8-битный канал S пространства HSV, серый как яркость
// ITU-R 601 с округлением в фиксированной точке.
func ComputeStatistics(r *Raster) PixelStatistics {
	var satHist, grayHist [256]float64

	pix := r.Pix
	n := 0
	for i := 0; i+2 < len(pix); i += 3 {
		red, green, blue := int(pix[i]), int(pix[i+1]), int(pix[i+2])

		hi := max(red, green, blue)
		lo := min(red, green, blue)
		s := 0
		if hi > 0 {
			s = 255 * (hi - lo) / hi
		}
		satHist[s]++

		gray := (19595*red + 38470*green + 7471*blue + 0x8000) >> 16
		grayHist[gray]++
		n++
	}

	if n == 0 {
		return PixelStatistics{}
	}

	total := float64(n)
	grayMean, grayStd := stat.PopMeanStdDev(levels, grayHist[:])

	return PixelStatistics{
		Pixels:           n,
		MeanSaturation:   stat.Mean(levels, satHist[:]) / 255,
		StrongColorRatio: saturationAbove(&satHist, StrongSaturationLevel) / total,
		MediumColorRatio: saturationAbove(&satHist, MediumSaturationLevel) / total,
		GrayMean:         grayMean,
		GrayStd:          grayStd,
		DarkRatio:        floats.Sum(grayHist[:DarkLevel]) / total,
		MidRatio:         floats.Sum(grayHist[DarkLevel:BrightLevel+1]) / total,
		BrightRatio:      floats.Sum(grayHist[BrightLevel+1:]) / total,
	}
}

// saturationAbove считает пиксели, у которых S/255 строго больше порога.
func saturationAbove(hist *[256]float64, level float64) float64 {
	var count float64
	for i, c := range hist {
		if float64(i)/255 > level {
			count += c
		}
	}
	return count
}
