package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/raywall/cat-wrangler/dyndb"
	"github.com/raywall/cat-wrangler/pkg/classifier"
	"github.com/raywall/cat-wrangler/pkg/logger"
	"github.com/raywall/cat-wrangler/pkg/metrics"
	"github.com/raywall/cat-wrangler/pkg/record"
	"github.com/raywall/cat-wrangler/pkg/s3key"
	"github.com/raywall/cat-wrangler/pkg/storage"
	"github.com/rs/zerolog"
)

// ObjectStore é o subconjunto de storage.Store usado pelo pipeline.
type ObjectStore interface {
	CheckBucket(ctx context.Context, bucket string) error
	GetObject(ctx context.Context, bucket, key string) (*storage.Object, error)
	Move(ctx context.Context, srcBucket, dstBucket, key string) (string, error)
}

// RecordTable é o subconjunto de dyndb.Table usado pelo pipeline.
type RecordTable interface {
	Put(ctx context.Context, fields dyndb.Fields) error
	Update(ctx context.Context, fields dyndb.Fields, opts ...dyndb.UpdateOption) (map[string]types.AttributeValue, error)
}

// ImageClassifier classifica o conteúdo de uma imagem.
type ImageClassifier interface {
	Classify(ctx context.Context, image []byte) (*classifier.Result, error)
}

var (
	_ ObjectStore     = (*storage.Store)(nil)
	_ RecordTable     = (*dyndb.Table)(nil)
	_ ImageClassifier = (*classifier.Classifier)(nil)
)

// Buckets são os buckets de origem, destino e falha.
type Buckets struct {
	Source string
	Dest   string
	Fail   string
}

// Outcome é o resultado do processamento de uma imagem.
type Outcome struct {
	Key      record.TableKey
	Status   record.OpStatus
	IsCat    bool
	Labels   map[string]float64
	Location string
	Debug    bool
	Duration time.Duration
}

// Pipeline executa o fluxo de classificação de uma imagem enviada ao bucket de origem.
type Pipeline struct {
	store      ObjectStore
	table      RecordTable
	classifier ImageClassifier
	buckets    Buckets
	ttl        time.Duration
	now        func() time.Time
	metrics    *metrics.Recorder
	logger     zerolog.Logger
	logOutput  io.Writer
}

// Option configura o Pipeline.
type Option func(*Pipeline)

// WithTTL define a validade dos registros (atributo ttl). Zero desativa.
func WithTTL(d time.Duration) Option {
	return func(p *Pipeline) { p.ttl = d }
}

// WithClock substitui o relógio usado para timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithMetrics define o Recorder de métricas.
func WithMetrics(r *metrics.Recorder) Option {
	return func(p *Pipeline) { p.metrics = r }
}

// WithLogger define o logger base e o writer para onde ele escreve.
// O writer é necessário para duplicar as linhas das invocações de debug.
func WithLogger(l zerolog.Logger, out io.Writer) Option {
	return func(p *Pipeline) {
		p.logger = l
		p.logOutput = out
	}
}

// New cria o Pipeline. Todos os buckets são obrigatórios.
func New(store ObjectStore, table RecordTable, c ImageClassifier, buckets Buckets, opts ...Option) (*Pipeline, error) {
	for name, v := range map[string]string{"source": buckets.Source, "dest": buckets.Dest, "fail": buckets.Fail} {
		if v == "" {
			return nil, &dyndb.ConfigurationError{Field: name + "_bucket", Reason: "bucket name is required"}
		}
	}

	p := &Pipeline{
		store:      store,
		table:      table,
		classifier: c,
		buckets:    buckets,
		now:        time.Now,
		logger:     zerolog.New(io.Discard),
		logOutput:  io.Discard,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// ValidateBuckets confere se os três buckets existem e estão acessíveis.
func (p *Pipeline) ValidateBuckets(ctx context.Context) error {
	var errs []error
	for _, b := range []string{p.buckets.Source, p.buckets.Dest, p.buckets.Fail} {
		if err := p.store.CheckBucket(ctx, b); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("pipeline: bucket validation: %w", errors.Join(errs...))
	}
	return nil
}

// Process classifica o objeto sourceKey do bucket de origem.
//
// O registro nasce pending e termina success ou fail numa única transição.
// Chaves duplicadas retornam dyndb.ErrAlreadyExists sem tocar no registro.
func (p *Pipeline) Process(ctx context.Context, sourceKey string) (*Outcome, error) {
	start := p.now()
	base := p.logger.With().
		Str("correlation_id", CorrelationID(ctx)).
		Str("s3_key", sourceKey).
		Logger()

	key, err := s3key.Decode(sourceKey)
	if err != nil {
		base.Error().Err(err).Msg("chave do objeto inválida")
		p.record(metrics.ImageFailed, "decode")
		return nil, err
	}

	inv := p.newInvocation(base, key, sourceKey)
	_ = p.metrics.Incr(metrics.ImageReceived, map[string]string{"debug": strconv.FormatBool(key.IsDebug)})

	pending := record.ClassificationRecord{
		ImgFprint:   inv.tableKey.ImgFprint,
		BatchID:     inv.tableKey.BatchID,
		ClientID:    key.ClientID,
		S3ImgKey:    inv.location,
		OpStatus:    record.StatusPending,
		CurrentDate: key.CurrentDate,
		UploadTS:    key.UploadTS,
	}
	if p.ttl > 0 {
		pending.TTL = start.Add(p.ttl).Unix()
	}

	if err := p.table.Put(ctx, pending.CreationFields()); err != nil {
		if errors.Is(err, dyndb.ErrAlreadyExists) {
			inv.logger.Warn().Msg("registro já existe, evento ignorado")
			p.record(metrics.ImageDuplicate, "put")
			return nil, err
		}
		inv.logger.Error().Err(err).Msg("falha ao criar registro")
		p.record(metrics.ImageFailed, "put")
		return nil, err
	}
	inv.logger.Info().Str("batch_id", pending.BatchID).Msg("registro pending criado")

	outcome, err := p.classifyAndMove(ctx, inv)
	if err != nil {
		inv.logger.Error().Err(err).Str("s3img_key", inv.location).Msg("falha no processamento, marcando registro como fail")
		fields := record.OutcomeFields(inv.tableKey, record.StatusFail, inv.location)
		if _, uerr := p.table.Update(ctx, fields, dyndb.WhenEquals(record.FieldOpStatus, string(record.StatusPending))); uerr != nil {
			inv.logger.Error().Err(uerr).Msg("falha ao marcar registro como fail")
			err = errors.Join(err, uerr)
		}
		outcome = &Outcome{Key: inv.tableKey, Status: record.StatusFail, Location: inv.location}
		p.record(metrics.ImageFailed, "process")
	}
	outcome.Debug = key.IsDebug
	outcome.Duration = p.now().Sub(start)

	inv.logger.Info().
		Str("op_status", string(outcome.Status)).
		Dur("latency", outcome.Duration).
		Msg("processamento concluído")
	_ = p.metrics.Record(metrics.ProcessLatency, float64(outcome.Duration.Milliseconds()), map[string]string{"op_status": string(outcome.Status)})

	if key.IsDebug {
		if lerr := p.writeLogs(ctx, inv); lerr != nil {
			p.logger.Error().Err(lerr).Str("s3_key", sourceKey).Msg("falha ao gravar logs de debug")
			err = errors.Join(err, lerr)
		}
	}
	return outcome, err
}

func (p *Pipeline) classifyAndMove(ctx context.Context, inv *invocation) (*Outcome, error) {
	obj, err := p.store.GetObject(ctx, p.buckets.Source, inv.sourceKey)
	if err != nil {
		return nil, err
	}
	inv.logger.Debug().Int("bytes", len(obj.Body)).Msg("imagem obtida")

	started := p.now()
	res, err := p.classifier.Classify(ctx, obj.Body)
	if err != nil {
		return nil, fmt.Errorf("pipeline: classify: %w", err)
	}
	_ = p.metrics.Record(metrics.ClassifyLatency, float64(p.now().Sub(started).Milliseconds()), nil)
	_ = p.metrics.Record(metrics.LabelCount, float64(len(res.Labels)), nil)

	labels := res.Confidence()
	inv.logger.Info().
		Bool("rek_iscat", res.IsMatch).
		Int("status_code", res.StatusCode).
		Int("labels", len(labels)).
		Msg("imagem classificada")

	fields := record.ClassificationFields(inv.tableKey, res.Timestamp, res.IsMatch, labels, res.Raw)
	if name := obj.Metadata[storage.MetadataFileName]; name != "" {
		fields[record.FieldFileName] = name
	}
	if _, err := p.table.Update(ctx, fields); err != nil {
		return nil, err
	}
	_ = p.metrics.Incr(metrics.ImageClassified, map[string]string{"is_cat": strconv.FormatBool(res.IsMatch)})

	dst, status := p.buckets.Dest, record.StatusSuccess
	if res.StatusCode != http.StatusOK {
		dst, status = p.buckets.Fail, record.StatusFail
	}

	loc, err := p.store.Move(ctx, p.buckets.Source, dst, inv.sourceKey)
	if err != nil {
		return nil, err
	}
	inv.location = loc
	inv.logger.Info().Str("s3img_key", loc).Msg("imagem movida")
	_ = p.metrics.Incr(metrics.ImageMoved, map[string]string{"bucket": dst})

	if _, err := p.table.Update(ctx, record.OutcomeFields(inv.tableKey, status, loc),
		dyndb.WhenEquals(record.FieldOpStatus, string(record.StatusPending))); err != nil {
		return nil, err
	}

	return &Outcome{
		Key:      inv.tableKey,
		Status:   status,
		IsCat:    res.IsMatch,
		Labels:   labels,
		Location: loc,
	}, nil
}

func (p *Pipeline) writeLogs(ctx context.Context, inv *invocation) error {
	logs, err := inv.collector.JSON()
	if err != nil {
		return fmt.Errorf("pipeline: encode logs: %w", err)
	}
	if _, err := p.table.Update(ctx, record.LogFields(inv.tableKey, logs)); err != nil {
		return err
	}
	return nil
}

func (p *Pipeline) record(id, stage string) {
	_ = p.metrics.Incr(id, map[string]string{"stage": stage})
}

// invocation é o estado de uma única execução de Process.
type invocation struct {
	key       s3key.Key
	tableKey  record.TableKey
	sourceKey string
	location  string
	logger    zerolog.Logger
	collector *logger.Collector
}

func (p *Pipeline) newInvocation(base zerolog.Logger, key s3key.Key, sourceKey string) *invocation {
	inv := &invocation{
		key:       key,
		tableKey:  key.TableKey(),
		sourceKey: sourceKey,
		location:  storage.Location(p.buckets.Source, sourceKey),
		logger:    base.With().Str("img_fprint", key.ImgFprint).Logger(),
	}
	if key.IsDebug {
		inv.collector = logger.NewCollector()
		inv.logger = inv.logger.Output(zerolog.MultiLevelWriter(p.logOutput, inv.collector))
	}
	return inv
}
