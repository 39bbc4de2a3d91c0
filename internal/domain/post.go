package domain

import "time"

// Rating and confidence bounds for sentiment scores.
const (
	MinRating     = 1.0
	MaxRating     = 5.0
	MinConfidence = 0.0
	MaxConfidence = 1.0
)

// NeutralSentiment is used whenever the model output cannot be parsed.
var NeutralSentiment = Sentiment{Rating: 3, Confidence: 0.5}

// Sentiment is a model-assigned tone score for an article.
type Sentiment struct {
	Rating     float64 `json:"rating"`
	Confidence float64 `json:"confidence"`
}

// Clamp forces both values into their valid ranges.
func (s Sentiment) Clamp() Sentiment {
	return Sentiment{
		Rating:     clamp(s.Rating, MinRating, MaxRating),
		Confidence: clamp(s.Confidence, MinConfidence, MaxConfidence),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Post is a generated social-media draft for one article.
type Post struct {
	Content   string     `json:"content"`
	SourceURL string     `json:"sourceUrl"`
	Title     string     `json:"title"`
	Sentiment *Sentiment `json:"sentiment,omitempty"`
}

// PostRecord is the persisted trace of a published post.
type PostRecord struct {
	ID        string    `json:"id" bson:"_id"`
	Content   string    `json:"content" bson:"content"`
	URL       string    `json:"url" bson:"url"`
	Title     string    `json:"title" bson:"title"`
	Platform  string    `json:"platform" bson:"platform"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// RecordField names a PostRecord attribute usable in existence lookups.
type RecordField string

const (
	FieldURL      RecordField = "url"
	FieldTitle    RecordField = "title"
	FieldPlatform RecordField = "platform"
)

// Value returns the record's value for field.
func (r PostRecord) Value(field RecordField) (string, bool) {
	switch field {
	case FieldURL:
		return r.URL, true
	case FieldTitle:
		return r.Title, true
	case FieldPlatform:
		return r.Platform, true
	default:
		return "", false
	}
}

// PublishStatus classifies the outcome of a publish attempt.
type PublishStatus string

const (
	PublishStatusPublished          PublishStatus = "published"
	PublishStatusCredentialsExpired PublishStatus = "credentials_expired"
	PublishStatusFailed             PublishStatus = "failed"
)

// PublishResult reports what the social network answered.
type PublishResult struct {
	OK         bool
	Status     PublishStatus
	Detail     string
	HTTPStatus int
}
