package app

import (
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/gesture_controller/internal/imu"
)

func newTestWeb(t *testing.T) (*webServer, *fakePublisher, *httptest.Server) {
	t.Helper()
	cfg := testConfig(t)
	cfg.GestureLabel = 7
	pub := newFakePublisher()
	srv := newWebServer(cfg, pub)
	if err := srv.subscribe(); err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(srv.routes(""))
	t.Cleanup(ts.Close)
	return srv, pub, ts
}

func testPrediction() PredictionMessage {
	var vals [imu.NumChannels][]float64
	for i := range vals {
		vals[i] = []float64{0, float64(i), 0}
	}
	return PredictionMessage{Class: 2, Count: 3, DurationSec: 0.4, Values: vals}
}

func TestWebPredictionAndPlot(t *testing.T) {
	srv, pub, ts := newTestWeb(t)

	for _, path := range []string{"/api/prediction", "/api/sample", "/api/sample.png"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("%s before data: status %d", path, resp.StatusCode)
		}
	}

	pub.deliver(t, srv.cfg.TopicPrediction, testPrediction())

	resp, err := http.Get(ts.URL + "/api/prediction")
	if err != nil {
		t.Fatal(err)
	}
	var got PredictionMessage
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got.Class != 2 || got.Count != 3 {
		t.Errorf("prediction = %+v", got)
	}

	resp, err = http.Get(ts.URL + "/api/sample.png")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Fatalf("Content-Type = %q", ct)
	}
	img, err := png.Decode(resp.Body)
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
	if img.Bounds().Dx() != plotWidth || img.Bounds().Dy() != plotHeight {
		t.Errorf("plot bounds = %v", img.Bounds())
	}
}

func TestWebLabel(t *testing.T) {
	srv, pub, ts := newTestWeb(t)

	var lm LabelMessage
	resp, err := http.Get(ts.URL + "/api/label")
	if err != nil {
		t.Fatal(err)
	}
	json.NewDecoder(resp.Body).Decode(&lm)
	resp.Body.Close()
	if lm.Label != 7 {
		t.Errorf("default label = %d, want 7", lm.Label)
	}

	resp, err = http.Post(ts.URL+"/api/label", "application/json", strings.NewReader(`{"label": 4}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST json status %d", resp.StatusCode)
	}

	resp, err = http.PostForm(ts.URL+"/api/label", url.Values{"label": {"6"}})
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST form status %d", resp.StatusCode)
	}

	msgs := pub.on(srv.cfg.TopicLabel)
	if len(msgs) != 2 || !msgs[0].retained {
		t.Fatalf("label publishes = %+v", msgs)
	}
	json.Unmarshal(msgs[1].payload, &lm)
	if lm.Label != 6 {
		t.Errorf("published label = %d, want 6", lm.Label)
	}

	// the retained label comes back over the bus
	pub.deliver(t, srv.cfg.TopicLabel, LabelMessage{Label: 6})
	resp, err = http.Get(ts.URL + "/api/label")
	if err != nil {
		t.Fatal(err)
	}
	json.NewDecoder(resp.Body).Decode(&lm)
	resp.Body.Close()
	if lm.Label != 6 {
		t.Errorf("label after bus update = %d, want 6", lm.Label)
	}

	for _, body := range []string{`{"label": -2}`, `{"label": "x"}`} {
		resp, err := http.Post(ts.URL+"/api/label", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("POST %s: status %d, want 400", body, resp.StatusCode)
		}
	}

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/label", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("DELETE status %d", resp.StatusCode)
	}
}

func TestWebLiveFeed(t *testing.T) {
	srv, pub, ts := newTestWeb(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for srv.hub.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	pub.deliver(t, srv.cfg.TopicPrediction, testPrediction())

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg struct {
		Type string            `json:"type"`
		Data PredictionMessage `json:"data"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if msg.Type != "prediction" || msg.Data.Class != 2 {
		t.Errorf("live message = %+v", msg)
	}

	conn.Close()
	deadline = time.Now().Add(2 * time.Second)
	for srv.hub.count() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never unregistered")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
