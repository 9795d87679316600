package cli

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func fixedProgress(buf *bytes.Buffer) *SimpleProgress {
	p := NewProgressReporter(buf, "Exporting").(*SimpleProgress)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	calls := 0
	p.now = func() time.Time {
		calls++
		return start.Add(time.Duration(calls-1) * time.Second)
	}
	return p
}

func TestSimpleProgressRender(t *testing.T) {
	buf := &bytes.Buffer{}
	p := fixedProgress(buf)

	p.Start(200)
	p.Update(100)

	out := buf.String()
	if !strings.Contains(out, "Exporting:") {
		t.Errorf("missing label: %q", out)
	}
	if !strings.Contains(out, "50.0% (100/200)") {
		t.Errorf("missing percentage: %q", out)
	}

	p.Finish()
	if !strings.Contains(buf.String(), "100.0% (200/200)") {
		t.Errorf("Finish did not complete the bar: %q", buf.String())
	}
	if !strings.HasSuffix(buf.String(), "\n") {
		t.Error("Finish should end the line")
	}
}

func TestSimpleProgressClampsOvershoot(t *testing.T) {
	buf := &bytes.Buffer{}
	p := fixedProgress(buf)

	p.Start(10)
	p.Update(25)
	if p.current != 10 {
		t.Errorf("current = %d, want 10", p.current)
	}
}

func TestSimpleProgressZeroTotal(t *testing.T) {
	buf := &bytes.Buffer{}
	p := fixedProgress(buf)

	p.Start(0)
	p.Update(0)
	p.Finish()

	if strings.TrimSpace(buf.String()) != "" {
		t.Errorf("expected no bar for an empty journal, got %q", buf.String())
	}
}

func TestSimpleProgressError(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewProgressReporter(buf, "")

	p.Start(100)
	p.Error(errors.New("journal unavailable"))

	out := buf.String()
	if !strings.Contains(out, "Progress:") || !strings.Contains(out, "journal unavailable") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestSimpleProgressConcurrent(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewProgressReporter(buf, "Exporting")
	p.Start(1000)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(start int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				p.Update(int64(start*100 + j))
			}
		}(i)
	}
	wg.Wait()
	p.Finish()

	if buf.Len() == 0 {
		t.Error("expected progress output")
	}
}
