package database

import (
	"path/filepath"
	"testing"
)

func setupDB(t *testing.T) {
	t.Helper()
	if err := InitDB(filepath.Join(t.TempDir(), "bot.db")); err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	t.Cleanup(func() {
		if err := CloseDB(); err != nil {
			t.Errorf("CloseDB failed: %v", err)
		}
	})
}

func TestMetricRoundTrip(t *testing.T) {
	setupDB(t)

	if err := SaveMetric("events_handled_total", 42); err != nil {
		t.Fatalf("SaveMetric failed: %v", err)
	}
	got, err := GetMetric("events_handled_total")
	if err != nil {
		t.Fatalf("GetMetric failed: %v", err)
	}
	if got != 42 {
		t.Errorf("GetMetric = %f, want 42", got)
	}

	// Upsert replaces the previous value.
	if err := SaveMetric("events_handled_total", 43); err != nil {
		t.Fatalf("SaveMetric failed: %v", err)
	}
	got, err = GetMetric("events_handled_total")
	if err != nil {
		t.Fatalf("GetMetric failed: %v", err)
	}
	if got != 43 {
		t.Errorf("GetMetric after upsert = %f, want 43", got)
	}
}

func TestGetMetricMissing(t *testing.T) {
	setupDB(t)

	got, err := GetMetric("never_saved")
	if err != nil {
		t.Fatalf("GetMetric failed: %v", err)
	}
	if got != 0 {
		t.Errorf("GetMetric = %f, want 0 for missing metric", got)
	}
}

func TestLabeledMetricRoundTrip(t *testing.T) {
	setupDB(t)

	if err := SaveMetricWithLabel("commands_total", "intent", "lookup", 7); err != nil {
		t.Fatalf("SaveMetricWithLabel failed: %v", err)
	}
	if err := SaveMetricWithLabel("commands_total", "intent", "set_alert", 3); err != nil {
		t.Fatalf("SaveMetricWithLabel failed: %v", err)
	}

	got, err := GetMetricsWithLabels("commands_total")
	if err != nil {
		t.Fatalf("GetMetricsWithLabels failed: %v", err)
	}
	if got["intent"]["lookup"] != 7 || got["intent"]["set_alert"] != 3 {
		t.Errorf("labeled metrics = %v, want lookup=7 set_alert=3", got)
	}

	// Labeled rows do not leak into the unlabeled read.
	plain, err := GetMetric("commands_total")
	if err != nil {
		t.Fatalf("GetMetric failed: %v", err)
	}
	if plain != 0 {
		t.Errorf("unlabeled read = %f, want 0", plain)
	}
}
