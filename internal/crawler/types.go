package crawler

import "time"

// ArticleData is the transient result of extracting one page. It has no
// identity until it is ingested.
type ArticleData struct {
	Title       string
	Content     string
	Author      string
	PublishedAt time.Time
	SourceURL   string
	Description string
	Keywords    string
	ImageURL    string
	WordCount   int
}

// MediaRecord is one publisher outlet, keyed by its full hostname.
// At most one row exists per domain; ingestion reuses the existing row.
type MediaRecord struct {
	ID          int64
	Domain      string
	Country     string
	Region      string
	PageRank    int
	LLMRank     int
	HNCitations int
	SignalScore float64
	LastUpdated time.Time
}

// ReporterRecord is one byline, keyed by (domain, tagged reporter). The
// empty author string is a valid key: unbylined articles from a domain all
// share one anonymous reporter row.
type ReporterRecord struct {
	ID             int64
	Domain         string
	TaggedReporter string
	Country        string
	RelevanceTier  string
}

// ArticleRecord is a stored article. It references its media and reporter
// rows by id and is never updated or deleted by this pipeline.
type ArticleRecord struct {
	ID             int64
	Title          string
	Content        string
	URL            string
	PublishedAt    time.Time
	ReporterID     int64
	MediaID        int64
	SentimentScore float64
	Description    string
	Keywords       string
	ImageURL       string
	WordCount      int
}

// RunStatus describes the lifecycle of one batch run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// RunCounters aggregates per-run outcomes.
type RunCounters struct {
	URLs      int `json:"urls"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Run is the bookkeeping record for one batch submitted through the API.
type Run struct {
	ID         string      `json:"run_id"`
	Status     RunStatus   `json:"status"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
	Counters   RunCounters `json:"counters"`
	ArticleIDs []int64     `json:"article_ids,omitempty"`
}
