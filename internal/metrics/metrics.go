package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Simple Prometheus-style metrics for HTTP requests, the job queue, and the
// recap saga. This is intentionally minimal and in-memory only.

var (
	mu             sync.RWMutex
	requestsTotal  = make(map[reqKey]int64)
	latencyMsSum   = make(map[latKey]int64)
	latencyMsCount = make(map[latKey]int64)

	jobsProcessed        = make(map[string]int64)
	sagaCompensations    = make(map[string]int64)
	recapNotifications   = make(map[string]int64)
	retentionJobsDeleted = make(map[string]int64)
)

type reqKey struct {
	Method string
	Path   string
	Status int
}

type latKey struct {
	Method string
	Path   string
}

// RecordRequest increments request counter and records latency.
func RecordRequest(method, path string, status int, latencyMs int64) {
	mu.Lock()
	defer mu.Unlock()

	rk := reqKey{Method: method, Path: path, Status: status}
	requestsTotal[rk]++

	lk := latKey{Method: method, Path: path}
	latencyMsSum[lk] += latencyMs
	latencyMsCount[lk]++
}

// RecordJobProcessed counts duration-extraction jobs by terminal status.
func RecordJobProcessed(status string) {
	mu.Lock()
	defer mu.Unlock()
	jobsProcessed[status]++
}

// RecordSagaCompensation counts compensating actions by the step they undo.
func RecordSagaCompensation(step string) {
	mu.Lock()
	defer mu.Unlock()
	sagaCompensations[step]++
}

// RecordRecapNotification counts best-effort recap server calls by outcome.
func RecordRecapNotification(success bool) {
	mu.Lock()
	defer mu.Unlock()
	s := "false"
	if success {
		s = "true"
	}
	recapNotifications[s]++
}

// RecordRetentionJobs increments the counter of jobs deleted by TTL for a
// given terminal status.
func RecordRetentionJobs(status string, deleted int64) {
	if deleted <= 0 {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	retentionJobsDeleted[status] += deleted
}

// Export renders all counters in Prometheus text exposition format.
func Export() string {
	mu.RLock()
	defer mu.RUnlock()

	var b strings.Builder

	b.WriteString("# TYPE reverie_http_requests_total counter\n")
	for _, k := range sortedReqKeys() {
		fmt.Fprintf(&b, "reverie_http_requests_total{method=%q,path=%q,status=\"%d\"} %d\n",
			k.Method, k.Path, k.Status, requestsTotal[k])
	}

	b.WriteString("# TYPE reverie_http_latency_ms_sum counter\n")
	for _, k := range sortedLatKeys() {
		fmt.Fprintf(&b, "reverie_http_latency_ms_sum{method=%q,path=%q} %d\n",
			k.Method, k.Path, latencyMsSum[k])
		fmt.Fprintf(&b, "reverie_http_latency_ms_count{method=%q,path=%q} %d\n",
			k.Method, k.Path, latencyMsCount[k])
	}

	b.WriteString("# TYPE reverie_jobs_processed_total counter\n")
	for _, status := range sortedKeys(jobsProcessed) {
		fmt.Fprintf(&b, "reverie_jobs_processed_total{status=%q} %d\n", status, jobsProcessed[status])
	}

	b.WriteString("# TYPE reverie_saga_compensations_total counter\n")
	for _, step := range sortedKeys(sagaCompensations) {
		fmt.Fprintf(&b, "reverie_saga_compensations_total{step=%q} %d\n", step, sagaCompensations[step])
	}

	b.WriteString("# TYPE reverie_recap_notifications_total counter\n")
	for _, success := range sortedKeys(recapNotifications) {
		fmt.Fprintf(&b, "reverie_recap_notifications_total{success=%q} %d\n", success, recapNotifications[success])
	}

	b.WriteString("# TYPE reverie_retention_jobs_deleted_total counter\n")
	for _, status := range sortedKeys(retentionJobsDeleted) {
		fmt.Fprintf(&b, "reverie_retention_jobs_deleted_total{status=%q} %d\n", status, retentionJobsDeleted[status])
	}

	return b.String()
}

// Reset clears all counters. Only used from tests.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	requestsTotal = make(map[reqKey]int64)
	latencyMsSum = make(map[latKey]int64)
	latencyMsCount = make(map[latKey]int64)
	jobsProcessed = make(map[string]int64)
	sagaCompensations = make(map[string]int64)
	recapNotifications = make(map[string]int64)
	retentionJobsDeleted = make(map[string]int64)
}

func sortedReqKeys() []reqKey {
	keys := make([]reqKey, 0, len(requestsTotal))
	for k := range requestsTotal {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Method != keys[j].Method {
			return keys[i].Method < keys[j].Method
		}
		if keys[i].Path != keys[j].Path {
			return keys[i].Path < keys[j].Path
		}
		return keys[i].Status < keys[j].Status
	})
	return keys
}

func sortedLatKeys() []latKey {
	keys := make([]latKey, 0, len(latencyMsSum))
	for k := range latencyMsSum {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Method != keys[j].Method {
			return keys[i].Method < keys[j].Method
		}
		return keys[i].Path < keys[j].Path
	})
	return keys
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
