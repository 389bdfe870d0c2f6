package fixtures

import (
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/mux"
)

// telemetryLayout mirrors the compact timestamp format of the grading endpoint
const telemetryLayout = "20060102_1504"

// Edit is one change to a student's code size
type Edit struct {
	At     time.Time
	Change int64
}

// Trend is one record of the telemetry response
type Trend struct {
	Timestamp  string `json:"timestamp"`
	TotalSize  int64  `json:"total_size"`
	SizeChange int64  `json:"size_change"`
}

// AssignmentDoc is the assignment metadata document. Either naming of the
// start and end fields may be set.
type AssignmentDoc struct {
	ID            string  `json:"id"`
	Name          string  `json:"name,omitempty"`
	StartDateTime *string `json:"startDateTime,omitempty"`
	KickoffDate   *string `json:"kickoffDate,omitempty"`
	EndDateTime   *string `json:"endDateTime,omitempty"`
	DeadlineDate  *string `json:"deadlineDate,omitempty"`
}

// FakeEndpoint serves telemetry and assignment metadata from memory. Raw,
// when set, is returned verbatim instead of bucketing Edits.
type FakeEndpoint struct {
	mu          sync.Mutex
	edits       []Edit
	raw         []Trend
	assignments map[string]AssignmentDoc
	status      int
	delay       time.Duration
	requests    int
	location    *time.Location
}

// NewFakeEndpoint creates an endpoint that formats timestamps in UTC
func NewFakeEndpoint() *FakeEndpoint {
	return &FakeEndpoint{
		assignments: make(map[string]AssignmentDoc),
		status:      http.StatusOK,
		location:    time.UTC,
	}
}

// AddEdits appends activity
func (f *FakeEndpoint) AddEdits(edits ...Edit) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, edits...)
}

// SetRaw makes the endpoint return exactly these records
func (f *FakeEndpoint) SetRaw(trends []Trend) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.raw = trends
}

// SetAssignment registers assignment metadata
func (f *FakeEndpoint) SetAssignment(doc AssignmentDoc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assignments[doc.ID] = doc
}

// SetWindow registers an assignment using the startDateTime/endDateTime naming
func (f *FakeEndpoint) SetWindow(id string, start, end time.Time) {
	s := start.UTC().Format(time.RFC3339)
	e := end.UTC().Format(time.RFC3339)
	f.SetAssignment(AssignmentDoc{ID: id, Name: "Assignment " + id, StartDateTime: &s, EndDateTime: &e})
}

// SetStatus forces every telemetry response to the given status code
func (f *FakeEndpoint) SetStatus(code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = code
}

// SetDelay delays every telemetry response
func (f *FakeEndpoint) SetDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay = d
}

// Requests returns how many telemetry requests were served
func (f *FakeEndpoint) Requests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests
}

// Router exposes the endpoint routes
func (f *FakeEndpoint) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)
	r.HandleFunc("/graph_data/interval/{minutes:[0-9]+}", f.handleTrends).Methods(http.MethodGet)
	r.HandleFunc("/assignments/{id}", f.handleAssignment).Methods(http.MethodGet)

	return r
}

func (f *FakeEndpoint) handleTrends(w http.ResponseWriter, r *http.Request) {
	minutes, _ := strconv.Atoi(mux.Vars(r)["minutes"])

	f.mu.Lock()
	f.requests++
	status := f.status
	delay := f.delay
	var trends []Trend
	if f.raw != nil {
		trends = append(trends, f.raw...)
	} else {
		trends = bucket(f.edits, time.Duration(minutes)*time.Minute, f.location)
	}
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	if status != http.StatusOK {
		http.Error(w, http.StatusText(status), status)
		return
	}
	writeJSON(w, map[string][]Trend{"trends": trends})
}

func (f *FakeEndpoint) handleAssignment(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	doc, ok := f.assignments[mux.Vars(r)["id"]]
	f.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, doc)
}

// bucket sums edits per bucket and reports the running total at each
// non-empty bucket
func bucket(edits []Edit, width time.Duration, loc *time.Location) []Trend {
	if width <= 0 {
		width = time.Minute
	}
	sorted := append([]Edit(nil), edits...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].At.Before(sorted[j].At) })

	var trends []Trend
	var total int64
	for _, e := range sorted {
		key := e.At.Truncate(width).In(loc).Format(telemetryLayout)
		total += e.Change
		if total < 0 {
			total = 0
		}
		if n := len(trends); n > 0 && trends[n-1].Timestamp == key {
			trends[n-1].TotalSize = total
			trends[n-1].SizeChange += e.Change
			continue
		}
		trends = append(trends, Trend{Timestamp: key, TotalSize: total, SizeChange: e.Change})
	}
	return trends
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	data, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// SteadyEdits produces n edits spaced step apart, each adding size bytes
// with every fifth edit deleting half as much
func SteadyEdits(start time.Time, n int, step time.Duration, size int64) []Edit {
	edits := make([]Edit, 0, n)
	for i := 0; i < n; i++ {
		change := size
		if i%5 == 4 {
			change = -size / 2
		}
		edits = append(edits, Edit{At: start.Add(time.Duration(i) * step), Change: change})
	}
	return edits
}
