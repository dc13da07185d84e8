package metrics

import "sync"

// Sample é uma métrica registrada pelo Recorder.
type Sample struct {
	Type  MetricType
	Name  string
	Value float64
	Tags  []string
}

// Recorder guarda as métricas em memória. Usado em testes e no runtime local.
type Recorder struct {
	mu      sync.Mutex
	samples []Sample
}

func (r *Recorder) record(t MetricType, name string, value float64, tags []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, Sample{Type: t, Name: name, Value: value, Tags: append([]string(nil), tags...)})
	return nil
}

func (r *Recorder) Count(name string, value float64, tags []string) error {
	return r.record(TypeCount, name, value, tags)
}

func (r *Recorder) Gauge(name string, value float64, tags []string) error {
	return r.record(TypeGauge, name, value, tags)
}

func (r *Recorder) Histogram(name string, value float64, tags []string) error {
	return r.record(TypeHistogram, name, value, tags)
}

// Samples retorna uma cópia das métricas registradas.
func (r *Recorder) Samples() []Sample {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sample(nil), r.samples...)
}

// Find retorna as amostras com o nome informado.
func (r *Recorder) Find(name string) []Sample {
	var out []Sample
	for _, s := range r.Samples() {
		if s.Name == name {
			out = append(out, s)
		}
	}
	return out
}
