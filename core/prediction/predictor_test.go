package prediction

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image/png"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeChart(t *testing.T, s string) (int, int) {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(s)
	require.NoError(t, err)
	require.NotEmpty(t, raw)
	cfg, err := png.DecodeConfig(bytes.NewReader(raw))
	require.NoError(t, err)
	return cfg.Width, cfg.Height
}

func TestPredictor_LinearHistory(t *testing.T) {
	p := NewPredictor()
	res, err := p.Predict([]float64{1, 2, 3}, []float64{6.0, 6.5, 7.0})
	require.NoError(t, err)
	assert.InDelta(t, 7.5, res.Prediction, 1e-9)
	assert.Equal(t, 2, res.Degree)
	assert.False(t, res.Clamped())

	w, h := decodeChart(t, res.Chart)
	assert.Equal(t, DefaultWidth, w)
	assert.Equal(t, DefaultHeight, h)
}

func TestPredictor_ClampsHigh(t *testing.T) {
	res, err := NewPredictor().Predict([]float64{1, 2, 3}, []float64{2, 5, 9})
	require.NoError(t, err)
	assert.InDelta(t, 14, res.Raw, 1e-9)
	assert.Equal(t, MaxCPI, res.Prediction)
	assert.True(t, res.Clamped())
}

func TestPredictor_ClampsLow(t *testing.T) {
	res, err := NewPredictor().Predict([]float64{1, 2, 3}, []float64{8, 4, 1})
	require.NoError(t, err)
	assert.InDelta(t, -1, res.Raw, 1e-9)
	assert.Equal(t, MinCPI, res.Prediction)
	assert.True(t, res.Clamped())
	decodeChart(t, res.Chart)
}

func TestPredictor_SinglePoint(t *testing.T) {
	res, err := NewPredictor().Predict([]float64{1}, []float64{8.0})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Degree)
	assert.InDelta(t, 8.0, res.Prediction, 1e-12)
	decodeChart(t, res.Chart)
}

func TestPredictor_AllMaxScores(t *testing.T) {
	// The y axis would collapse to [10, 10] without widening.
	res, err := NewPredictor().Predict([]float64{1, 2, 3}, []float64{10, 10, 10})
	require.NoError(t, err)
	assert.InDelta(t, MaxCPI, res.Prediction, 1e-9)
	decodeChart(t, res.Chart)
}

func TestNewPlot_WidensFlatRange(t *testing.T) {
	p := newPlot([]float64{1, 2, 3}, []float64{10, 10, 10}, Polynomial{10}, 4, 10)
	assert.Equal(t, 9.0, p.minY)
	assert.Equal(t, MaxCPI, p.maxY)

	lo, hi := p.band()
	assert.Less(t, lo, p.minY)
	assert.Greater(t, hi, p.maxY)
}

func TestPredictor_SteepCurveRendersInTime(t *testing.T) {
	cases := []struct {
		name     string
		sem, cpi []float64
	}{
		{"near duplicate semesters", []float64{1, 1.000001, 2}, []float64{6, 7, 8}},
		{"tighter duplicate semesters", []float64{1, 1.000000000001, 2}, []float64{6, 7, 8}},
		{"huge outlier", []float64{1, 2, 3}, []float64{5, 1e12, 6}},
	}
	p := NewPredictor(WithSize(200, 400))
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			type outcome struct {
				res Result
				err error
			}
			done := make(chan outcome, 1)
			go func() {
				res, err := p.Predict(c.sem, c.cpi)
				done <- outcome{res, err}
			}()

			select {
			case out := <-done:
				if errors.Is(out.err, ErrDegenerateFit) {
					return
				}
				require.NoError(t, out.err)
				assert.GreaterOrEqual(t, out.res.Prediction, MinCPI)
				assert.LessOrEqual(t, out.res.Prediction, MaxCPI)
				decodeChart(t, out.res.Chart)
			case <-time.After(10 * time.Second):
				t.Fatal("chart rendering did not finish")
			}
		})
	}
}

func TestClipCurve(t *testing.T) {
	t.Run("inside", func(t *testing.T) {
		runs := clipCurve([]float64{1, 2, 3}, []float64{5, 6, 7}, 0, 10)
		require.Len(t, runs, 1)
		assert.Equal(t, []point{{1, 5}, {2, 6}, {3, 7}}, runs[0])
	})

	t.Run("crossing", func(t *testing.T) {
		runs := clipCurve([]float64{0, 1, 2}, []float64{5, 15, 5}, 0, 10)
		require.Len(t, runs, 2)
		assert.Equal(t, []point{{0, 5}, {0.5, 10}}, runs[0])
		assert.Equal(t, []point{{1.5, 10}, {2, 5}}, runs[1])
	})

	t.Run("through band", func(t *testing.T) {
		runs := clipCurve([]float64{0, 1}, []float64{-10, 20}, 0, 10)
		require.Len(t, runs, 1)
		require.Len(t, runs[0], 2)
		assert.InDelta(t, 1.0/3, runs[0][0].x, 1e-12)
		assert.Equal(t, 0.0, runs[0][0].y)
		assert.InDelta(t, 2.0/3, runs[0][1].x, 1e-12)
		assert.Equal(t, 10.0, runs[0][1].y)
	})

	t.Run("outside", func(t *testing.T) {
		assert.Empty(t, clipCurve([]float64{1, 2, 3}, []float64{1e12, 2e12, 3e12}, 0, 10))
	})

	t.Run("non-finite breaks the curve", func(t *testing.T) {
		runs := clipCurve([]float64{1, 2, 3, 4, 5}, []float64{5, 6, math.Inf(1), 7, 8}, 0, 10)
		require.Len(t, runs, 2)
		assert.Equal(t, []point{{1, 5}, {2, 6}}, runs[0])
		assert.Equal(t, []point{{4, 7}, {5, 8}}, runs[1])
	})
}

func TestPredictor_OutOfRangeHistory(t *testing.T) {
	res, err := NewPredictor().Predict([]float64{1, 2, 3, 4}, []float64{-1, 3, 12, 5})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Prediction, MinCPI)
	assert.LessOrEqual(t, res.Prediction, MaxCPI)
	decodeChart(t, res.Chart)
}

func TestPredictor_WithSize(t *testing.T) {
	res, err := NewPredictor(WithSize(300, 600)).Predict([]float64{1, 2}, []float64{7, 8})
	require.NoError(t, err)
	w, h := decodeChart(t, res.Chart)
	assert.Equal(t, 300, w)
	assert.Equal(t, 600, h)

	p := NewPredictor(WithSize(0, -1))
	assert.Equal(t, DefaultWidth, p.width)
	assert.Equal(t, DefaultHeight, p.height)
}

func TestPredictor_Deterministic(t *testing.T) {
	p := NewPredictor()
	sem := []float64{1, 2, 3, 4, 5}
	cpi := []float64{7.1, 7.4, 7.2, 7.9, 8.3}
	a, err := p.Predict(sem, cpi)
	require.NoError(t, err)
	b, err := p.Predict(sem, cpi)
	require.NoError(t, err)
	assert.Equal(t, a.Prediction, b.Prediction)
	assert.Equal(t, a.Chart, b.Chart)
}

func TestPredictor_RangeProperty(t *testing.T) {
	p := NewPredictor(WithSize(200, 400))
	histories := [][]float64{
		{0, 0},
		{10, 0},
		{0, 10},
		{5, 9.5, 3},
		{9.9, 9.8, 9.95, 10},
		{1, 1, 1, 9},
		{3, 8, 2, 9, 1},
	}
	for _, cpi := range histories {
		sem := make([]float64, len(cpi))
		for i := range sem {
			sem[i] = float64(i + 1)
		}
		res, err := p.Predict(sem, cpi)
		require.NoError(t, err, "cpi %v", cpi)
		assert.GreaterOrEqual(t, res.Prediction, MinCPI, "cpi %v", cpi)
		assert.LessOrEqual(t, res.Prediction, MaxCPI, "cpi %v", cpi)
		assert.NotEmpty(t, res.Chart)
	}
}

func TestPredictor_InvalidInput(t *testing.T) {
	p := NewPredictor()
	cases := []struct {
		name     string
		sem, cpi []float64
	}{
		{"empty", nil, nil},
		{"mismatch", []float64{1, 2}, []float64{5}},
		{"nan", []float64{1, 2}, []float64{5, math.NaN()}},
		{"inf", []float64{1, math.Inf(1)}, []float64{5, 6}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := p.Predict(c.sem, c.cpi)
			assert.True(t, errors.Is(err, ErrInvalidInput), "got %v", err)
		})
	}
}

func TestPredictor_Concurrent(t *testing.T) {
	p := NewPredictor(WithSize(200, 400))
	sem := []float64{1, 2, 3, 4}
	cpi := []float64{6, 6.8, 7.1, 7.7}
	want, err := p.Predict(sem, cpi)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := p.Predict(sem, cpi)
			if err != nil {
				errs <- err
				return
			}
			if res.Prediction != want.Prediction || res.Chart != want.Chart {
				errs <- errors.New("concurrent result differs")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestCanvas_CloseIsIdempotent(t *testing.T) {
	cv := openCanvas()
	_, err := cv.Write([]byte("png"))
	require.NoError(t, err)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("png")), cv.Base64())
	assert.NoError(t, cv.Close())
	assert.NoError(t, cv.Close())
}
