package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"flight_delay_tracker/internal/infra/config"

	"github.com/sirupsen/logrus"
)

func TestInit(t *testing.T) {
	tests := []struct {
		cfg       config.AppConfig
		wantLevel logrus.Level
		wantJSON  bool
	}{
		{config.AppConfig{LogLevel: "debug", Environment: "development"}, logrus.DebugLevel, false},
		{config.AppConfig{LogLevel: "warn", Environment: "production"}, logrus.WarnLevel, true},
		{config.AppConfig{LogLevel: "loud", Environment: "Staging"}, logrus.InfoLevel, true},
	}
	for _, tt := range tests {
		cfg := tt.cfg
		Init(&cfg)
		if Log.GetLevel() != tt.wantLevel {
			t.Errorf("%+v: level = %v, want %v", tt.cfg, Log.GetLevel(), tt.wantLevel)
		}
		f, ok := Log.Formatter.(utcFormatter)
		if !ok {
			t.Fatalf("%+v: formatter = %T, want utcFormatter", tt.cfg, Log.Formatter)
		}
		_, isJSON := f.Formatter.(*logrus.JSONFormatter)
		if isJSON != tt.wantJSON {
			t.Errorf("%+v: JSON formatter = %v, want %v", tt.cfg, isJSON, tt.wantJSON)
		}
	}

	if got := Component("scheduler").Data["component"]; got != "scheduler" {
		t.Errorf("Component() field = %v", got)
	}
}

func TestConfigure_JSONInUTC(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	configure(l, &buf, "info", "production")

	local := time.FixedZone("EST", -5*60*60)
	l.WithTime(time.Date(2026, 10, 14, 5, 30, 0, 0, local)).WithField("request_id", 7).Info("Closed flight request")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["message"] != "Closed flight request" {
		t.Errorf("message = %v", entry["message"])
	}
	if ts, _ := entry["time"].(string); !strings.HasPrefix(ts, "2026-10-14T10:30:00.000Z") {
		t.Errorf("time = %q, want UTC", ts)
	}
	if entry["request_id"] != float64(7) {
		t.Errorf("request_id = %v", entry["request_id"])
	}
}
