package app

import (
	"context"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/gesture_controller/internal/classifier"
	"github.com/relabs-tech/gesture_controller/internal/config"
	"github.com/relabs-tech/gesture_controller/internal/dataset"
	"github.com/relabs-tech/gesture_controller/internal/features"
)

// ClassifyFile predicts the gesture stored in a saved sample file.
func ClassifyFile(ctx context.Context, model classifier.Predictor, points int, path string) (classifier.Prediction, error) {
	vals, err := dataset.LoadSample(path)
	if err != nil {
		return classifier.Prediction{}, err
	}
	feats, err := features.Interpolate(vals, points)
	if err != nil {
		return classifier.Prediction{}, fmt.Errorf("%s: %w", path, err)
	}
	return model.Predict(ctx, feats)
}

// ClassifyReport is the outcome of classifying a batch of files.
type ClassifyReport struct {
	Files   int
	Failed  int
	Labeled int // files with a known label from the index
	Correct int
}

// Accuracy over the labelled files, or 0 when none were labelled.
func (r ClassifyReport) Accuracy() float64 {
	if r.Labeled == 0 {
		return 0
	}
	return float64(r.Correct) / float64(r.Labeled)
}

// ClassifyFiles writes one "path<TAB>predicted[<TAB>label]" line per file.
// labels maps sample paths to their recorded label and may be nil.
func ClassifyFiles(ctx context.Context, model classifier.Predictor, points int, paths []string, labels map[string]int, w io.Writer) ClassifyReport {
	var rep ClassifyReport
	for _, path := range paths {
		rep.Files++
		pred, err := ClassifyFile(ctx, model, points, path)
		if err != nil {
			rep.Failed++
			log.Errorf("classify %s: %v", path, err)
			continue
		}
		label, ok := labels[path]
		if !ok {
			fmt.Fprintf(w, "%s\t%d\n", path, pred.Class)
			continue
		}
		rep.Labeled++
		if label == pred.Class {
			rep.Correct++
		}
		fmt.Fprintf(w, "%s\t%d\t%d\n", path, pred.Class, label)
	}
	return rep
}

// RunClassify classifies sample files, or every file in the label index
// when paths is empty, and reports accuracy against the recorded labels.
func RunClassify(ctx context.Context, paths []string, w io.Writer) error {
	cfg := config.Get()

	model, err := classifier.Open(cfg)
	if err != nil {
		return err
	}
	defer model.Close()

	store := dataset.NewStore(cfg.DataRootDir, cfg.DataDirName, cfg.IndexFile)
	labels := map[string]int{}
	entries, err := dataset.ReadIndex(store.IndexPath())
	switch {
	case err == nil:
		for _, e := range entries {
			labels[e.Path] = e.Label
		}
	case len(paths) == 0:
		return err
	default:
		log.Debugf("no label index: %v", err)
	}

	if len(paths) == 0 {
		for _, e := range entries {
			paths = append(paths, e.Path)
		}
	}

	rep := ClassifyFiles(ctx, model, cfg.FeaturePoints, paths, labels, w)
	log.Infof("classified %d files (%d failed)", rep.Files-rep.Failed, rep.Failed)
	if rep.Labeled > 0 {
		log.Infof("accuracy %.1f%% (%d/%d labelled)", 100*rep.Accuracy(), rep.Correct, rep.Labeled)
	}
	if rep.Failed == rep.Files && rep.Files > 0 {
		return fmt.Errorf("all %d files failed", rep.Files)
	}
	return nil
}
