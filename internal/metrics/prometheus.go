package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PipelineDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "triage_pipeline_duration_seconds",
			Help:    "Pipeline operation duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"operation"},
	)

	PipelineTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_pipeline_operations_total",
			Help: "Total pipeline operations by engine and status",
		},
		[]string{"operation", "engine", "status"},
	)

	EngineFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_engine_fallbacks_total",
			Help: "Generative operations that fell back to the rule engine",
		},
		[]string{"operation", "reason"},
	)

	InquiriesSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_inquiries_submitted_total",
			Help: "Inquiries created, by channel",
		},
		[]string{"channel"},
	)

	InquiryUrgency = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_inquiry_urgency_total",
			Help: "Classified urgency levels at submission",
		},
		[]string{"level"},
	)

	AnswersGenerated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "triage_answers_generated_total",
			Help: "Draft answer packages generated",
		},
	)

	AnswersApproved = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "triage_answers_approved_total",
			Help: "Answers approved by staff",
		},
	)

	AnswersSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_answers_sent_total",
			Help: "Approved answers sent, by channel",
		},
		[]string{"channel"},
	)

	RetrievalResults = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "triage_retrieval_results_count",
			Help:    "Ranked results returned per retrieval call",
			Buckets: []float64{0, 1, 2, 3, 5, 10},
		},
		[]string{"corpus"},
	)

	LLMTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_llm_tokens_used_total",
			Help: "Total LLM tokens used",
		},
		[]string{"model", "type"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	KnowledgeSourcesSynced = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_knowledge_sync_total",
			Help: "Knowledge sources examined by sync, by outcome",
		},
		[]string{"outcome"},
	)
)

func Init() {
	prometheus.MustRegister(PipelineDuration)
	prometheus.MustRegister(PipelineTotal)
	prometheus.MustRegister(EngineFallbacks)
	prometheus.MustRegister(InquiriesSubmitted)
	prometheus.MustRegister(InquiryUrgency)
	prometheus.MustRegister(AnswersGenerated)
	prometheus.MustRegister(AnswersApproved)
	prometheus.MustRegister(AnswersSent)
	prometheus.MustRegister(RetrievalResults)
	prometheus.MustRegister(LLMTokensUsed)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(KnowledgeSourcesSynced)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
