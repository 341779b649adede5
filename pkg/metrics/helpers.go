package metrics

import (
	"time"
)

// Статусы отправки отзыва для FeedbackSubmissions
const (
	SubmissionCreated          = "created"
	SubmissionRejected         = "rejected"
	SubmissionGenerationFailed = "generation_failed"
	SubmissionStorageFailed    = "storage_failed"
)

func RecordKafkaMessageProduced(service, topic string, duration time.Duration) {
	KafkaMessagesProduced.WithLabelValues(service, topic).Inc()
	KafkaProduceDuration.WithLabelValues(service, topic).Observe(duration.Seconds())
}

func RecordKafkaError(service, topic, operation string) {
	KafkaErrors.WithLabelValues(service, topic, operation).Inc()
}

type KafkaProduceTimer struct {
	service string
	topic   string
	start   time.Time
}

func NewKafkaProduceTimer(service, topic string) *KafkaProduceTimer {
	return &KafkaProduceTimer{
		service: service,
		topic:   topic,
		start:   time.Now(),
	}
}

func (kt *KafkaProduceTimer) Success() {
	RecordKafkaMessageProduced(kt.service, kt.topic, time.Since(kt.start))
}

func (kt *KafkaProduceTimer) Error() {
	RecordKafkaError(kt.service, kt.topic, "produce")
}

type DbOperation string

const (
	DbOpSelect    DbOperation = "select"
	DbOpInsert    DbOperation = "insert"
	DbOpUpdate    DbOperation = "update"
	DbOpDelete    DbOperation = "delete"
	DbOpAggregate DbOperation = "aggregate"
)

type DbTimer struct {
	service   string
	operation DbOperation
	table     string
	start     time.Time
}

func NewDbTimer(service string, op DbOperation, table string) *DbTimer {
	return &DbTimer{
		service:   service,
		operation: op,
		table:     table,
		start:     time.Now(),
	}
}

// Done фиксирует длительность запроса и, если err != nil, ошибку БД
func (dt *DbTimer) Done(err error) {
	DbQueryDuration.WithLabelValues(dt.service, string(dt.operation), dt.table).Observe(time.Since(dt.start).Seconds())
	if err != nil {
		RecordDbError(dt.service, dt.operation)
	}
}

func RecordDbError(service string, op DbOperation) {
	DbErrors.WithLabelValues(service, string(op)).Inc()
}

type CompletionTimer struct {
	service string
	model   string
	start   time.Time
}

func NewCompletionTimer(service, model string) *CompletionTimer {
	return &CompletionTimer{service: service, model: model, start: time.Now()}
}

func (ct *CompletionTimer) Done(err error) {
	CompletionDuration.WithLabelValues(ct.service, ct.model).Observe(time.Since(ct.start).Seconds())
	if err != nil {
		CompletionErrors.WithLabelValues(ct.service, ct.model).Inc()
	}
}

func RecordSubmission(status string) {
	FeedbackSubmissions.WithLabelValues(status).Inc()
}

func RecordRating(rating int) {
	FeedbackRating.Observe(float64(rating))
}

func RecordMalformedCompletion(marker string) {
	MalformedCompletions.WithLabelValues(marker).Inc()
}
