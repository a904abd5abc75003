package plot

import (
	"bytes"
	"image/png"
	"math"
	"testing"
	"time"

	"github.com/relabs-tech/gesture_controller/internal/imu"
)

func TestRenderDrawsTraces(t *testing.T) {
	var vals [imu.NumChannels][]float64
	vals[0] = []float64{-1, 0, 1, 0, -1}
	vals[4] = []float64{100}

	img, err := Render(vals, 320, 240, "gesture 3")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if img.Bounds().Dx() != 320 || img.Bounds().Dy() != 240 {
		t.Fatalf("bounds = %v", img.Bounds())
	}

	found := false
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y && !found; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.RGBAAt(x, y) == axisColors[0] {
				found = true
				break
			}
		}
	}
	if !found {
		t.Error("acc_x trace not drawn")
	}
}

func TestRenderTooSmall(t *testing.T) {
	var vals [imu.NumChannels][]float64
	if _, err := Render(vals, 10, 10, ""); err == nil {
		t.Error("expected size error")
	}
}

func TestEncodePNG(t *testing.T) {
	var vals [imu.NumChannels][]float64
	for i := range vals {
		vals[i] = []float64{float64(i), float64(-i)}
	}
	var buf bytes.Buffer
	if err := EncodePNG(&buf, vals, 200, 150, "sample"); err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
	if img.Bounds().Dx() != 200 {
		t.Errorf("width = %d", img.Bounds().Dx())
	}
}

func TestRenderExtremeValues(t *testing.T) {
	tests := map[string][]float64{
		"max float span": {-math.MaxFloat64, 0, math.MaxFloat64},
		"near max":       {-1e308, 0, 1e308},
		"non-finite":     {math.NaN(), 1, math.Inf(1), 2, math.Inf(-1)},
		"all non-finite": {math.NaN(), math.Inf(1)},
		"constant":       {5, 5, 5},
	}
	for name, v := range tests {
		t.Run(name, func(t *testing.T) {
			var vals [imu.NumChannels][]float64
			vals[0], vals[5] = v, v

			done := make(chan error, 1)
			go func() {
				_, err := Render(vals, 200, 150, name)
				done <- err
			}()
			select {
			case err := <-done:
				if err != nil {
					t.Fatalf("Render: %v", err)
				}
			case <-time.After(5 * time.Second):
				t.Fatal("Render did not return")
			}
		})
	}
}
