package stats

import (
	"math"
	"testing"
)

func TestSweepSummarize(t *testing.T) {
	summary := SweepSummary{
		ID:       "sweep-1",
		Seeds:    []int64{1, 2, 3, 4},
		RunIDs:   []string{"r1", "r2", "r3", "r4"},
		Percents: []float64{8.33, 50, 91.67, 50},
	}
	summary.Summarize(100.0 / 12)

	wantMean := (8.33 + 50 + 91.67 + 50) / 4
	if math.Abs(summary.MeanPercent-wantMean) > 1e-9 {
		t.Fatalf("unexpected mean: got=%f want=%f", summary.MeanPercent, wantMean)
	}
	if summary.StdPercent <= 0 {
		t.Fatalf("expected positive std, got %f", summary.StdPercent)
	}
	if summary.BestPercent != 91.67 || summary.BestRunID != "r3" {
		t.Fatalf("unexpected best: %f %s", summary.BestPercent, summary.BestRunID)
	}
	if summary.WorstPercent != 8.33 {
		t.Fatalf("unexpected worst: %f", summary.WorstPercent)
	}
	if summary.AboveBaseline != 3 {
		t.Fatalf("unexpected above baseline count: got=%d want=3", summary.AboveBaseline)
	}
}

func TestSweepSummarizeSingleAndEmpty(t *testing.T) {
	single := SweepSummary{RunIDs: []string{"r1"}, Percents: []float64{41.5}}
	single.Summarize(100.0 / 12)
	if single.MeanPercent != 41.5 || single.StdPercent != 0 || single.BestRunID != "r1" {
		t.Fatalf("unexpected single summary: %+v", single)
	}

	var empty SweepSummary
	empty.Summarize(100.0 / 12)
	if empty.MeanPercent != 0 || empty.BestRunID != "" || empty.AboveBaseline != 0 {
		t.Fatalf("unexpected empty summary: %+v", empty)
	}
}

func TestWriteReadAndListSweepSummaries(t *testing.T) {
	base := t.TempDir()
	a := SweepSummary{ID: "sweep-a", StartedAtUTC: "2026-02-27T00:00:00Z", Seeds: []int64{1}, RunIDs: []string{"r1"}, Percents: []float64{25}}
	b := SweepSummary{ID: "sweep-b", StartedAtUTC: "2026-02-28T00:00:00Z", Seeds: []int64{2}, RunIDs: []string{"r2"}, Percents: []float64{75}}
	a.Summarize(100.0 / 12)
	b.Summarize(100.0 / 12)
	if err := WriteSweepSummary(base, a); err != nil {
		t.Fatalf("write a: %v", err)
	}
	if err := WriteSweepSummary(base, b); err != nil {
		t.Fatalf("write b: %v", err)
	}

	read, ok, err := ReadSweepSummary(base, "sweep-a")
	if err != nil {
		t.Fatalf("read a: %v", err)
	}
	if !ok || read.MeanPercent != 25 {
		t.Fatalf("unexpected sweep a: ok=%t %+v", ok, read)
	}
	if _, ok, err := ReadSweepSummary(base, "missing"); err != nil || ok {
		t.Fatalf("expected missing sweep; ok=%t err=%v", ok, err)
	}

	list, err := ListSweepSummaries(base)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "sweep-b" || list[1].ID != "sweep-a" {
		t.Fatalf("unexpected list ordering: %+v", list)
	}
}

func TestWriteSweepSummaryRequiresID(t *testing.T) {
	if err := WriteSweepSummary(t.TempDir(), SweepSummary{}); err == nil {
		t.Fatal("expected missing id error")
	}
}
