package telemetry

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestInitWithoutEndpointIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), Options{ServiceName: "rating-enrich"})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestInitRejectsEndpointWithoutHost(t *testing.T) {
	if _, err := Init(context.Background(), Options{ServiceName: "rating-enrich", Endpoint: "http://"}); err == nil {
		t.Fatal("expected error for endpoint without host")
	}
}

func TestInitAcceptsBareHostPort(t *testing.T) {
	shutdown, err := Init(context.Background(), Options{
		ServiceName: "rating-enrich",
		Version:     "test",
		Endpoint:    "127.0.0.1:4318",
		SampleRatio: 1,
	})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = shutdown(ctx)
}

func TestSamplerFor(t *testing.T) {
	cases := []struct {
		ratio float64
		want  string
	}{
		{ratio: 1, want: "AlwaysOnSampler"},
		{ratio: 2, want: "AlwaysOnSampler"},
		{ratio: 0, want: "AlwaysOffSampler"},
		{ratio: 0.25, want: "TraceIDRatioBased{0.25}"},
	}
	for _, tc := range cases {
		if got := samplerFor(tc.ratio).Description(); !strings.Contains(got, "root:"+tc.want) {
			t.Errorf("samplerFor(%v) = %s, want root %s", tc.ratio, got, tc.want)
		}
	}
}
