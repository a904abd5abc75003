package classifier

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/relabs-tech/gesture_controller/internal/config"
)

func TestArgmax(t *testing.T) {
	tests := []struct {
		scores []float64
		want   int
	}{
		{nil, -1},
		{[]float64{0.3}, 0},
		{[]float64{0.1, 0.7, 0.2}, 1},
		{[]float64{-3, -1, -2}, 1},
		{[]float64{1, 1}, 0},
		{[]float64{math.NaN(), 0.2, 0.1}, 1},
		{[]float64{math.NaN(), math.NaN()}, -1},
	}
	for _, tt := range tests {
		if got := Argmax(tt.scores); got != tt.want {
			t.Errorf("Argmax(%v) = %d, want %d", tt.scores, got, tt.want)
		}
	}
}

const tinyModel = `{
  "mean": [0, 0],
  "std": [1, 2],
  "layers": [
    {"weights": [[1, 0], [0, 1], [-1, -1]], "bias": [0, 0, 0], "activation": "relu"},
    {"weights": [[1, 0, 0], [0, 1, 0], [0, 0, 1]], "bias": [0, 0, 0.5]}
  ]
}`

func writeModel(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestMLPForward(t *testing.T) {
	m, err := LoadMLP(writeModel(t, tinyModel))
	if err != nil {
		t.Fatalf("LoadMLP: %v", err)
	}
	if m.InputSize() != 2 || m.Classes() != 3 {
		t.Fatalf("InputSize=%d Classes=%d", m.InputSize(), m.Classes())
	}

	// x = (3, 8/2=4) -> relu(3, 4, -7) = (3, 4, 0) -> (3, 4, 0.5)
	p, err := m.Predict(context.Background(), []float64{3, 8})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	want := []float64{3, 4, 0.5}
	for i := range want {
		if math.Abs(p.Scores[i]-want[i]) > 1e-9 {
			t.Fatalf("scores = %v, want %v", p.Scores, want)
		}
	}
	if p.Class != 1 {
		t.Errorf("Class = %d, want 1", p.Class)
	}

	// (-1, -0.5) -> relu(-1, -0.5, 1.5) -> (0, 0, 2)
	p, err = m.Predict(context.Background(), []float64{-1, -1})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if p.Class != 2 {
		t.Errorf("Class = %d, want 2 (scores %v)", p.Class, p.Scores)
	}

	if _, err := m.Predict(context.Background(), []float64{1, 2, 3}); err == nil {
		t.Error("expected input size error")
	}
	if _, err := m.Predict(context.Background(), []float64{math.NaN(), 0}); err == nil {
		t.Error("expected error for NaN scores")
	}
}

func TestLoadMLPInvalid(t *testing.T) {
	tests := map[string]string{
		"no layers":     `{"layers": []}`,
		"ragged":        `{"layers": [{"weights": [[1, 2], [3]], "bias": [0, 0]}]}`,
		"bias mismatch": `{"layers": [{"weights": [[1, 2]], "bias": [0, 0]}]}`,
		"chain":         `{"layers": [{"weights": [[1]], "bias": [0]}, {"weights": [[1, 1]], "bias": [0]}]}`,
		"activation":    `{"layers": [{"weights": [[1]], "bias": [0], "activation": "softplus"}]}`,
		"mean":          `{"mean": [1, 2], "layers": [{"weights": [[1]], "bias": [0]}]}`,
		"json":          `{"layers": `,
	}
	for name, content := range tests {
		if _, err := LoadMLP(writeModel(t, content)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestOpenSelectsPredictor(t *testing.T) {
	cfg := config.Default()
	if _, err := Open(cfg); err == nil {
		t.Error("expected error with neither model nor command")
	}

	cfg.ModelPath = writeModel(t, tinyModel)
	p, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer p.Close()
	if _, ok := p.(*MLP); !ok {
		t.Errorf("Open returned %T, want *MLP", p)
	}
}

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not found")
	}
}

func TestProcessPredict(t *testing.T) {
	requireShell(t)
	p, err := StartProcess(`sh -c 'while read l; do echo "{\"class\": 2, \"scores\": [0.1, 0.2, 0.7]}"; done'`, 5*time.Second)
	if err != nil {
		t.Fatalf("StartProcess: %v", err)
	}
	defer p.Close()

	for i := 0; i < 2; i++ {
		pred, err := p.Predict(context.Background(), []float64{1, 2, 3})
		if err != nil {
			t.Fatalf("Predict: %v", err)
		}
		if pred.Class != 2 || len(pred.Scores) != 3 {
			t.Errorf("pred = %+v", pred)
		}
	}
}

func TestProcessScoresOnlyReply(t *testing.T) {
	requireShell(t)
	p, err := StartProcess(`sh -c 'while read l; do echo "{\"scores\": [0.9, 0.05, 0.05]}"; done'`, 5*time.Second)
	if err != nil {
		t.Fatalf("StartProcess: %v", err)
	}
	defer p.Close()

	pred, err := p.Predict(context.Background(), []float64{0})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if pred.Class != 0 {
		t.Errorf("Class = %d, want 0", pred.Class)
	}
}

func TestProcessRestartsAfterTimeout(t *testing.T) {
	requireShell(t)
	// the first child never answers; every later one does
	marker := filepath.Join(t.TempDir(), "started")
	cmd := fmt.Sprintf(`sh -c 'if [ -e %[1]s ]; then while read l; do echo "{\"class\": 1}"; done; else touch %[1]s; exec sleep 30; fi'`, marker)
	p, err := StartProcess(cmd, 200*time.Millisecond)
	if err != nil {
		t.Fatalf("StartProcess: %v", err)
	}
	defer p.Close()

	if _, err := p.Predict(context.Background(), []float64{1}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	for i := 0; i < 3; i++ {
		pred, err := p.Predict(context.Background(), []float64{1})
		if err != nil {
			t.Fatalf("call %d after timeout: %v", i, err)
		}
		if pred.Class != 1 {
			t.Errorf("call %d: class = %d, want 1", i, pred.Class)
		}
	}
}

func TestProcessRestartsAfterExit(t *testing.T) {
	requireShell(t)
	// answers once, then exits
	p, err := StartProcess(`sh -c 'read l; echo "{\"class\": 4}"'`, 5*time.Second)
	if err != nil {
		t.Fatalf("StartProcess: %v", err)
	}
	defer p.Close()

	pred, err := p.Predict(context.Background(), []float64{1})
	if err != nil || pred.Class != 4 {
		t.Fatalf("first call: pred=%+v err=%v", pred, err)
	}
	// the child is gone, so this call fails and the next one restarts it
	if _, err := p.Predict(context.Background(), []float64{1}); err == nil {
		t.Fatal("expected error from exited child")
	}
	pred, err = p.Predict(context.Background(), []float64{1})
	if err != nil || pred.Class != 4 {
		t.Errorf("call after restart: pred=%+v err=%v", pred, err)
	}
}

func TestProcessClosed(t *testing.T) {
	requireShell(t)
	p, err := StartProcess(`sh -c 'cat > /dev/null'`, time.Second)
	if err != nil {
		t.Fatalf("StartProcess: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := p.Predict(context.Background(), []float64{1}); !errors.Is(err, ErrProcessClosed) {
		t.Errorf("err = %v, want ErrProcessClosed", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestStartProcessBadCommand(t *testing.T) {
	if _, err := StartProcess("", time.Second); err == nil {
		t.Error("expected error for empty command")
	}
	if _, err := StartProcess("/nonexistent/classifier", time.Second); err == nil {
		t.Error("expected error for missing binary")
	}
}
