package job

// Summary is the result of one run, shaped like the scheduler-facing response.
type Summary struct {
	StatusCode     int             `json:"statusCode"`
	Body           string          `json:"body"`
	DocumentStatus string          `json:"JSON file status"`
	CollectionSize int             `json:"collectionSize"`
	Records        []RecordOutcome `json:"records"`
}

// RecordOutcome tells whether one record reached the row store.
type RecordOutcome struct {
	ID    string `json:"id"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}
