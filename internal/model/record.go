package model

// Record is one raw input row: a social-media post with its identifier,
// original timestamp string, and untouched text.
type Record struct {
	ID   string `json:"id"`
	Time string `json:"time"`
	Text string `json:"text"`
}

// CleanedRecord is a Record plus its normalized text. Records map one-to-one
// to CleanedRecords; the cleaner never drops or reorders rows.
type CleanedRecord struct {
	Record
	CleanText string `json:"clean_text"`
}
