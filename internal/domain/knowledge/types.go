package knowledge

import "github.com/google/uuid"

// Entry is one question/answer point in the knowledge collection.
type Entry struct {
	ID         uuid.UUID `json:"id"`
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	Confidence float64   `json:"confidence"`
}

// QAPair is the raw input to ingestion before an identity is assigned.
type QAPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Match pairs an entry with its similarity score, ranked descending.
type Match struct {
	Entry Entry   `json:"entry"`
	Score float64 `json:"score"`
}
