package observability

import "time"

// ObserveJob wraps a single job execution and records its duration and
// outcome. result must be one of done|retry|failed.
func (p *Prom) ObserveJob(jobType string, fn func() (result string, err error)) error {
	p.JobsInFlight.Inc()
	defer p.JobsInFlight.Dec()

	start := time.Now()
	result, err := fn()

	if result == "" {
		result = "done"
		if err != nil {
			result = "failed"
		}
	}

	p.JobDuration.WithLabelValues(jobType, result).Observe(time.Since(start).Seconds())
	p.JobResults.WithLabelValues(jobType, result).Inc()

	return err
}
