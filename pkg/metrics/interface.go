package metrics

// Provider define o contrato para envio de métricas.
// Isso permite trocar Datadog por outro backend sem alterar o pipeline.
type Provider interface {
	Count(name string, value float64, tags []string) error
	Gauge(name string, value float64, tags []string) error
	Histogram(name string, value float64, tags []string) error
}

// MetricType define os tipos suportados.
type MetricType string

const (
	TypeCount     MetricType = "count"
	TypeGauge     MetricType = "gauge"
	TypeHistogram MetricType = "histogram"
)

// MetricDefinition armazena os metadados da métrica (nome real, tipo).
type MetricDefinition struct {
	Name string
	Type MetricType
}

// IDs das métricas emitidas pelo classificador.
const (
	ImageReceived   = "image_received"
	ImageClassified = "image_classified"
	ImageMoved      = "image_moved"
	ImageFailed     = "image_failed"
	ImageDuplicate  = "image_duplicate"
	ClassifyLatency = "classify_latency_ms"
	ProcessLatency  = "process_latency_ms"
	LabelCount      = "label_count"
)

// Definitions é o catálogo padrão de métricas do pipeline.
var Definitions = map[string]MetricDefinition{
	ImageReceived:   {Name: "image.received", Type: TypeCount},
	ImageClassified: {Name: "image.classified", Type: TypeCount},
	ImageMoved:      {Name: "image.moved", Type: TypeCount},
	ImageFailed:     {Name: "image.failed", Type: TypeCount},
	ImageDuplicate:  {Name: "image.duplicate", Type: TypeCount},
	ClassifyLatency: {Name: "rekognition.latency_ms", Type: TypeHistogram},
	ProcessLatency:  {Name: "image.process_latency_ms", Type: TypeHistogram},
	LabelCount:      {Name: "rekognition.labels", Type: TypeGauge},
}
