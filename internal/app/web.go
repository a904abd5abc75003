package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/gesture_controller/internal/config"
	"github.com/relabs-tech/gesture_controller/internal/imu"
	"github.com/relabs-tech/gesture_controller/internal/plot"
)

const (
	plotWidth  = 640
	plotHeight = 480
)

// webState caches the latest bus messages for the HTTP API.
type webState struct {
	mu             sync.RWMutex
	lastPrediction PredictionMessage
	havePrediction bool
	lastSample     SampleMessage
	haveSample     bool
	lastValues     [imu.NumChannels][]float64
	lastTitle      string
	haveValues     bool
	label          int
	haveLabel      bool
}

type webServer struct {
	cfg   *config.Config
	pub   Publisher
	hub   *liveHub
	state webState
}

func newWebServer(cfg *config.Config, pub Publisher) *webServer {
	return &webServer{cfg: cfg, pub: pub, hub: newLiveHub()}
}

// subscribe hooks the server up to the prediction, sample and label topics.
func (s *webServer) subscribe() error {
	if err := s.pub.Subscribe(s.cfg.TopicPrediction, s.onPrediction); err != nil {
		return err
	}
	if err := s.pub.Subscribe(s.cfg.TopicSample, s.onSample); err != nil {
		return err
	}
	return s.pub.Subscribe(s.cfg.TopicLabel, s.onLabel)
}

func (s *webServer) onPrediction(payload []byte) {
	var m PredictionMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		log.Warnf("web: prediction unmarshal error: %v", err)
		return
	}
	s.state.mu.Lock()
	s.state.lastPrediction, s.state.havePrediction = m, true
	s.state.lastValues, s.state.haveValues = m.Values, true
	s.state.lastTitle = fmt.Sprintf("predicted gesture %d  (%d readings, %.2fs)", m.Class, m.Count, m.DurationSec)
	s.state.mu.Unlock()

	s.hub.broadcast(LiveMessage{Type: "prediction", Data: m})
}

func (s *webServer) onSample(payload []byte) {
	var m SampleMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		log.Warnf("web: sample unmarshal error: %v", err)
		return
	}
	s.state.mu.Lock()
	s.state.lastSample, s.state.haveSample = m, true
	s.state.lastValues, s.state.haveValues = m.Values, true
	s.state.lastTitle = fmt.Sprintf("recorded label %d  (%d readings, %.2fs)", m.Label, m.Count, m.DurationSec)
	s.state.mu.Unlock()

	s.hub.broadcast(LiveMessage{Type: "sample", Data: m})
}

func (s *webServer) onLabel(payload []byte) {
	var m LabelMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		log.Warnf("web: label unmarshal error: %v", err)
		return
	}
	s.state.mu.Lock()
	s.state.label, s.state.haveLabel = m.Label, true
	s.state.mu.Unlock()

	s.hub.broadcast(LiveMessage{Type: "label", Data: m})
}

func (s *webServer) routes(staticDir string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/prediction", s.handlePrediction)
	mux.HandleFunc("/api/sample", s.handleSample)
	mux.HandleFunc("/api/sample.png", s.handleSamplePlot)
	mux.HandleFunc("/api/label", s.handleLabel)
	mux.HandleFunc("/ws", s.hub.HandleWS)
	if staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	}
	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnf("json encode error: %v", err)
	}
}

func (s *webServer) handlePrediction(w http.ResponseWriter, r *http.Request) {
	s.state.mu.RLock()
	defer s.state.mu.RUnlock()

	if !s.state.havePrediction {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, s.state.lastPrediction)
}

func (s *webServer) handleSample(w http.ResponseWriter, r *http.Request) {
	s.state.mu.RLock()
	defer s.state.mu.RUnlock()

	if !s.state.haveSample {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, s.state.lastSample)
}

func (s *webServer) handleSamplePlot(w http.ResponseWriter, r *http.Request) {
	s.state.mu.RLock()
	vals, title, ok := s.state.lastValues, s.state.lastTitle, s.state.haveValues
	s.state.mu.RUnlock()

	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}

	var buf bytes.Buffer
	if err := plot.EncodePNG(&buf, vals, plotWidth, plotHeight, title); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

// handleLabel reports the recorder label (GET) or publishes a new one
// (POST, JSON body {"label": n} or form value label=n).
func (s *webServer) handleLabel(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.state.mu.RLock()
		label, ok := s.state.label, s.state.haveLabel
		s.state.mu.RUnlock()
		if !ok {
			label = s.cfg.GestureLabel
		}
		writeJSON(w, LabelMessage{Label: label})

	case http.MethodPost:
		msg, err := parseLabelRequest(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		// retained so a recorder started later picks it up
		if err := s.pub.Publish(s.cfg.TopicLabel, true, msg); err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		log.Infof("web: label set to %d", msg.Label)
		writeJSON(w, msg)

	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func parseLabelRequest(r *http.Request) (LabelMessage, error) {
	var msg LabelMessage
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			return msg, fmt.Errorf("bad label body: %w", err)
		}
	} else {
		n, err := strconv.Atoi(r.FormValue("label"))
		if err != nil {
			return msg, fmt.Errorf("bad label %q", r.FormValue("label"))
		}
		msg.Label = n
	}
	if msg.Label < 0 {
		return msg, fmt.Errorf("label must be >= 0, got %d", msg.Label)
	}
	return msg, nil
}

// RunWeb serves the live gesture dashboard backed by the MQTT bus.
func RunWeb() error {
	cfg := config.Get()
	if cfg.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required for the web server")
	}

	pub, err := ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDWeb)
	if err != nil {
		return err
	}
	defer pub.Close()

	srv := newWebServer(cfg, pub)
	if err := srv.subscribe(); err != nil {
		return err
	}

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Infof("web server listening on %s", addr)
	return http.ListenAndServe(addr, srv.routes("web"))
}
