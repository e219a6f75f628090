package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordCall(t *testing.T) {
	before := testutil.ToFloat64(ExternalCalls.WithLabelValues("test_op", "error"))
	RecordCall("test_op", 10*time.Millisecond, errors.New("boom"))
	RecordCall("test_op", 10*time.Millisecond, nil)

	if got := testutil.ToFloat64(ExternalCalls.WithLabelValues("test_op", "error")); got != before+1 {
		t.Errorf("error calls = %v, want %v", got, before+1)
	}
	if got := testutil.ToFloat64(ExternalCalls.WithLabelValues("test_op", "success")); got < 1 {
		t.Errorf("success calls = %v, want >= 1", got)
	}
}

func TestRecordRunFinished(t *testing.T) {
	before := testutil.ToFloat64(RunsFinished.WithLabelValues("abandoned"))
	RecordRunFinished("abandoned", time.Now().Add(-time.Second))
	RecordRunFinished("abandoned", time.Time{})

	if got := testutil.ToFloat64(RunsFinished.WithLabelValues("abandoned")); got != before+2 {
		t.Errorf("finished = %v, want %v", got, before+2)
	}
}

func TestRecordInterview(t *testing.T) {
	before := testutil.ToFloat64(Interviews.WithLabelValues("aborted"))
	RecordInterview("aborted", time.Second)
	if got := testutil.ToFloat64(Interviews.WithLabelValues("aborted")); got != before+1 {
		t.Errorf("interviews = %v, want %v", got, before+1)
	}
}
