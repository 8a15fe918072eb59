package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	// Register should be safe to call multiple times
	Register()
	Register()

	assert.NotPanics(t, func() {
		IncHTTP("test_endpoint")
	})
	assert.Equal(t, float64(1), testutil.ToFloat64(httpRequests.WithLabelValues("test_endpoint")))
}

func TestWizardRecorder(t *testing.T) {
	var w Wizard

	w.Transition("notes", "confirmation")
	w.Transition("notes", "confirmation")
	assert.Equal(t, float64(2), testutil.ToFloat64(transitions.WithLabelValues("notes", "confirmation")))

	w.LoaderError("services")
	assert.Equal(t, float64(1), testutil.ToFloat64(loaderErrors.WithLabelValues("services")))

	w.Submission("Ana Souza", 120*time.Millisecond, nil)
	w.Submission("Ana Souza", 80*time.Millisecond, errors.New("insert failed"))
	assert.Equal(t, float64(1), testutil.ToFloat64(appointmentsCreated.WithLabelValues("Ana Souza")))
	assert.Equal(t, 2, testutil.CollectAndCount(submissionDuration))
}
