package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"ksinn/internal/melody"
	"ksinn/internal/result"
	"ksinn/internal/train"
)

func TestConsoleCheckpoint(t *testing.T) {
	var out bytes.Buffer
	c := &Console{Out: &out}
	if err := c.Checkpoint(train.Checkpoint{Accumulative: 1230001, PercentCorrect: 87.5, ErrorPercent: 0.12345}); err != nil {
		t.Fatalf("checkpoint: %v", err)
	}
	want := "Iterations: 1,230,001     Correct: 87.50%     Error:  0.12345%\n"
	if out.String() != want {
		t.Fatalf("unexpected checkpoint line:\ngot=%q\nwant=%q", out.String(), want)
	}
}

func TestConsoleInteractiveRewritesLine(t *testing.T) {
	var out bytes.Buffer
	c := &Console{Out: &out, Interactive: true}
	for _, n := range []int{1, 10001} {
		if err := c.Checkpoint(train.Checkpoint{Accumulative: n, PercentCorrect: 8.33, ErrorPercent: 7.5}); err != nil {
			t.Fatalf("checkpoint: %v", err)
		}
	}
	if err := c.BeginFinal(); err != nil {
		t.Fatalf("begin final: %v", err)
	}

	got := out.String()
	if strings.Count(got, "\r") != 2 {
		t.Fatalf("expected two carriage returns, got %q", got)
	}
	if !strings.HasSuffix(got, "Error:  7.50000%\nPerforming final test...\n") {
		t.Fatalf("expected progress line closed before final test, got %q", got)
	}
}

func TestConsoleIteration(t *testing.T) {
	var out bytes.Buffer
	c := &Console{Out: &out}
	if err := c.Iteration(result.NewOutcome(1, 1, 0.0025)); err != nil {
		t.Fatalf("iteration: %v", err)
	}
	want := strings.Join([]string{
		verboseSeparator,
		"answer:\tC#/Db",
		"\t|\tnet's guess:\tC#/Db",
		"\t|\terr:\t 0.25000  +",
		"",
	}, "\n")
	if out.String() != want {
		t.Fatalf("unexpected verbose block:\ngot=%q\nwant=%q", out.String(), want)
	}
}

func TestConsoleFinal(t *testing.T) {
	var out bytes.Buffer
	c := &Console{Out: &out}
	if err := c.Final(result.NewOutcome(7, 0, 0.1)); err != nil {
		t.Fatalf("final: %v", err)
	}
	if err := c.Final(result.NewOutcome(11, 11, 0.1)); err != nil {
		t.Fatalf("final: %v", err)
	}
	want := "answer: C\tnet's guess: G  \nanswer: B\tnet's guess: B +\n"
	if out.String() != want {
		t.Fatalf("unexpected final lines:\ngot=%q\nwant=%q", out.String(), want)
	}
}

func TestConsoleRejectsInvalidPitchClass(t *testing.T) {
	var out bytes.Buffer
	c := &Console{Out: &out}
	if err := c.Final(result.NewOutcome(12, 0, 0)); !errors.Is(err, melody.ErrInvalidPitchClass) {
		t.Fatalf("expected invalid pitch class, got %v", err)
	}
	if err := c.Iteration(result.NewOutcome(0, -1, 0)); !errors.Is(err, melody.ErrInvalidPitchClass) {
		t.Fatalf("expected invalid pitch class, got %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("expected nothing written, got %q", out.String())
	}
}

func TestConsoleSummary(t *testing.T) {
	var out bytes.Buffer
	c := &Console{Out: &out}
	if err := c.Summary(train.Result{PercentCorrect: 91.6667, Accumulative: 10000012, Seed: 42, SnapshotID: "abc"}); err != nil {
		t.Fatalf("summary: %v", err)
	}
	want := "Correct: 91.67% after 10,000,012 iterations (seed 42)\nSaved snapshot abc\n"
	if out.String() != want {
		t.Fatalf("unexpected summary:\ngot=%q\nwant=%q", out.String(), want)
	}
}
