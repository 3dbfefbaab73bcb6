package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	usersRegisteredTotal    atomic.Uint64
	quotationsCreatedTotal  atomic.Uint64
	quotationsDeletedTotal  atomic.Uint64
	documentsUploadedTotal  atomic.Uint64
	documentsDeletedTotal   atomic.Uint64
	documentsRejectedTotal  atomic.Uint64
	storageReclaimFailTotal atomic.Uint64

	statusChanges = newLabeledCounter()

	uploadSize      = newHistogram([]float64{64 << 10, 256 << 10, 1 << 20, 4 << 20, 10 << 20})
	requestDuration = newHistogram([]float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500})
)

func IncUserRegistered()       { usersRegisteredTotal.Add(1) }
func IncQuotationCreated()     { quotationsCreatedTotal.Add(1) }
func IncQuotationDeleted()     { quotationsDeletedTotal.Add(1) }
func IncDocumentDeleted()      { documentsDeletedTotal.Add(1) }
func IncDocumentRejected()     { documentsRejectedTotal.Add(1) }
func IncStorageReclaimFailed() { storageReclaimFailTotal.Add(1) }

// IncStatusChange counts a review that moved a quotation to status.
func IncStatusChange(status string) {
	statusChanges.Inc(status)
}

// ObserveDocumentUploaded records a stored upload and its size in bytes.
func ObserveDocumentUploaded(size int64) {
	documentsUploadedTotal.Add(1)
	if size < 0 {
		size = 0
	}
	uploadSize.Observe(float64(size))
}

// ObserveRequestDurationMs records an HTTP request duration in milliseconds.
func ObserveRequestDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	requestDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "users_registered_total", "Total user registrations", usersRegisteredTotal.Load())
	writeCounter(&buf, "quotations_created_total", "Total quotations created", quotationsCreatedTotal.Load())
	writeCounter(&buf, "quotations_deleted_total", "Total quotations deleted", quotationsDeletedTotal.Load())
	writeLabeledCounter(&buf, "quotation_status_changes_total", "Quotation reviews by resulting status", "status", statusChanges.Snapshot())
	writeCounter(&buf, "documents_uploaded_total", "Total documents stored", documentsUploadedTotal.Load())
	writeCounter(&buf, "documents_deleted_total", "Total documents deleted", documentsDeletedTotal.Load())
	writeCounter(&buf, "documents_rejected_total", "Uploads rejected by type, size, or policy", documentsRejectedTotal.Load())
	writeCounter(&buf, "storage_reclaim_failures_total", "Stored objects that could not be removed", storageReclaimFailTotal.Load())
	writeHistogram(&buf, "document_upload_bytes", "Size of stored uploads in bytes", uploadSize.Snapshot())
	writeHistogram(&buf, "http_request_duration_ms", "HTTP request duration in milliseconds", requestDuration.Snapshot())
	return buf.String()
}

type labeledCounter struct {
	mu     sync.Mutex
	values map[string]uint64
}

func newLabeledCounter() *labeledCounter {
	return &labeledCounter{values: make(map[string]uint64)}
}

func (l *labeledCounter) Inc(label string) {
	l.mu.Lock()
	l.values[label]++
	l.mu.Unlock()
}

func (l *labeledCounter) Snapshot() map[string]uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]uint64, len(l.values))
	for k, v := range l.values {
		out[k] = v
	}
	return out
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

// Observe records value in the first bucket whose bound contains it.
// Cumulative counts are computed at render time.
func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			return
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeLabeledCounter(buf *bytes.Buffer, name, help, label string, values map[string]uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(buf, "%s{%s=%q} %d\n", name, label, k, values[k])
	}
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
