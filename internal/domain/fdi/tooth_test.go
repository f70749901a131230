package fdi

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValid(t *testing.T) {
	for _, code := range []int{11, 18, 21, 28, 31, 38, 41, 48} {
		require.True(t, Valid(code), code)
	}
	for _, code := range []int{0, 10, 19, 20, 49, 51, 9, -11, 110} {
		require.False(t, Valid(code), code)
	}
}

func TestLookup(t *testing.T) {
	tooth, err := Lookup(36)
	require.NoError(t, err)
	require.Equal(t, 3, tooth.Quadrant)
	require.Equal(t, "Inferior Izquierdo", tooth.QuadrantName)
	require.Equal(t, "Primer Molar", tooth.ToothName)
	require.Equal(t, "Primer Molar Inferior Izquierdo", tooth.FullName)
	require.Equal(t, "Diente 36 - Primer Molar del cuadrante Inferior Izquierdo", tooth.Description)
	require.Equal(t, "Permanente", tooth.ToothType)

	_, err = Lookup(50)
	require.True(t, errors.Is(err, ErrInvalidCode))
}

func TestChart(t *testing.T) {
	chart := Chart()
	require.Equal(t, 32, chart.TotalPermanentTeeth)
	require.Len(t, chart.Quadrants, 4)
	require.Equal(t, []int{41, 42, 43, 44, 45, 46, 47, 48}, chart.Quadrants[4].Teeth)
	require.Equal(t, "Tercer Molar", chart.ToothPositions[8])

	tooth, err := Lookup(18)
	require.NoError(t, err)
	require.Equal(t, "Tercer Molar (Muela del Juicio)", tooth.ToothName)
}
