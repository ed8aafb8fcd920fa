// Vtour - 360° Virtual Tour Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vtour

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/vtour/scenes", "200"))
	RecordAPIRequest("GET", "/api/vtour/scenes", "200", 15*time.Millisecond)
	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/vtour/scenes", "200"))
	if after-before != 1 {
		t.Errorf("api_requests_total delta = %v, want 1", after-before)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	if got := testutil.ToFloat64(APIActiveRequests); got != before+1 {
		t.Errorf("active after inc = %v, want %v", got, before+1)
	}
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != before {
		t.Errorf("active after dec = %v, want %v", got, before)
	}
}

func sampleCount(t *testing.T, operation, status string) uint64 {
	t.Helper()
	obs, err := BackendRequestDuration.GetMetricWithLabelValues(operation, status)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues: %v", err)
	}
	var m dto.Metric
	if err := obs.(interface{ Write(*dto.Metric) error }).Write(&m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

func TestRecordBackendRequest(t *testing.T) {
	tests := []struct {
		status int
		label  string
	}{
		{200, "200"},
		{404, "404"},
		{0, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			before := sampleCount(t, "list_hotspots", tt.label)
			RecordBackendRequest("list_hotspots", tt.status, 20*time.Millisecond)
			if got := sampleCount(t, "list_hotspots", tt.label); got != before+1 {
				t.Errorf("sample count = %d, want %d", got, before+1)
			}
		})
	}
}

func TestCollectorsRegistered(t *testing.T) {
	HotspotSaves.WithLabelValues("success")
	PlacementRejections.WithLabelValues("info", "click_armed")
	if n := testutil.CollectAndCount(HotspotSaves); n < 1 {
		t.Errorf("hotspot_saves_total series = %d", n)
	}
	if n := testutil.CollectAndCount(PlacementRejections); n < 1 {
		t.Errorf("placement rejection series = %d", n)
	}
}
