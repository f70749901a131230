package xray

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeStatistics_Gradient(t *testing.T) {
	s := ComputeStatistics(gradientRaster(256, 4))

	require.Equal(t, 1024, s.Pixels)
	require.Zero(t, s.MeanSaturation)
	require.Zero(t, s.StrongColorRatio)
	require.InDelta(t, 127.5, s.GrayMean, 1e-9)
	require.InDelta(t, 73.9, s.GrayStd, 0.1)
	require.InDelta(t, 50.0/256, s.DarkRatio, 1e-12)
	require.InDelta(t, 151.0/256, s.MidRatio, 1e-12)
	require.InDelta(t, 55.0/256, s.BrightRatio, 1e-12)
	require.InDelta(t, 1.0, s.DarkRatio+s.MidRatio+s.BrightRatio, 1e-12)
}

func TestComputeStatistics_SaturationUsesEightBitChannel(t *testing.T) {
	// 255*(255-0)/255 = 255, 255*(100-50)/100 = 127.
	r := NewRaster(2, 1)
	r.SetRGB(0, 0, 255, 0, 0)
	r.SetRGB(1, 0, 100, 50, 50)

	s := ComputeStatistics(r)
	require.InDelta(t, (255.0+127.0)/2/255, s.MeanSaturation, 1e-12)
	require.InDelta(t, 1.0, s.StrongColorRatio, 1e-12)
	require.InDelta(t, 1.0, s.MediumColorRatio, 1e-12)
}

func TestComputeStatistics_Empty(t *testing.T) {
	require.Equal(t, PixelStatistics{}, ComputeStatistics(NewRaster(0, 0)))
}

func TestAdviseOrientation(t *testing.T) {
	cases := []struct {
		width, height int
		panoramic     bool
	}{
		{140, 100, true},
		{400, 100, true},
		{2000, 1000, true},
		{139, 100, false},
		{401, 100, false},
		{100, 100, false},
		{100, 300, false},
	}
	for _, tc := range cases {
		o := AdviseOrientation(tc.width, tc.height)
		require.Equal(t, tc.panoramic, o.PanoramicLike, "%dx%d", tc.width, tc.height)
		require.Equal(t, tc.panoramic, o.Message == "", "%dx%d", tc.width, tc.height)
	}

	o := AdviseOrientation(100, 100)
	require.Equal(t, "Relación ancho/alto 1.00:1 (podría no ser panorámica).", o.Message)
}
