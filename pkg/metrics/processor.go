package metrics

import (
	"fmt"
	"sort"
)

// Recorder traduz IDs de métricas para chamadas tipadas no Provider.
type Recorder struct {
	definitions map[string]MetricDefinition
	provider    Provider
	baseTags    []string
}

// NewRecorder cria um Recorder com o catálogo informado. Um catálogo nil usa
// Definitions; um provider nil descarta tudo.
func NewRecorder(defs map[string]MetricDefinition, provider Provider, baseTags ...string) *Recorder {
	if defs == nil {
		defs = Definitions
	}
	return &Recorder{
		definitions: defs,
		provider:    provider,
		baseTags:    baseTags,
	}
}

// Record envia o valor para a métrica identificada por id.
// As tags são formatadas como "chave:valor", em ordem alfabética.
func (r *Recorder) Record(id string, value float64, tags map[string]string) error {
	if r == nil || r.provider == nil {
		return nil
	}

	def, exists := r.definitions[id]
	if !exists {
		return fmt.Errorf("métrica não definida: %s", id)
	}

	finalTags := make([]string, 0, len(r.baseTags)+len(tags))
	finalTags = append(finalTags, r.baseTags...)
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		finalTags = append(finalTags, fmt.Sprintf("%s:%s", k, tags[k]))
	}

	switch def.Type {
	case TypeCount:
		return r.provider.Count(def.Name, value, finalTags)
	case TypeGauge:
		return r.provider.Gauge(def.Name, value, finalTags)
	case TypeHistogram:
		return r.provider.Histogram(def.Name, value, finalTags)
	default:
		return fmt.Errorf("tipo de métrica desconhecido: %s", def.Type)
	}
}

// Incr é um atalho para Record(id, 1, tags).
func (r *Recorder) Incr(id string, tags map[string]string) error {
	return r.Record(id, 1, tags)
}
