package transport

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"
	"github.com/raywall/cat-wrangler/dyndb"
	"github.com/raywall/cat-wrangler/pkg/pipeline"
	"github.com/rs/zerolog"
)

// ErrNoRecords indica um evento S3 sem registros.
var ErrNoRecords = errors.New("transport: s3 event without records")

// Processor é o contrato do pipeline usado pelos adaptadores de runtime.
type Processor interface {
	ValidateBuckets(ctx context.Context) error
	Process(ctx context.Context, sourceKey string) (*pipeline.Outcome, error)
}

var _ Processor = (*pipeline.Pipeline)(nil)

// S3EventHandler adapta notificações do S3 para o pipeline.
type S3EventHandler struct {
	proc   Processor
	logger zerolog.Logger
}

// NewS3EventHandler cria uma nova instância do adaptador
func NewS3EventHandler(proc Processor, logger zerolog.Logger) *S3EventHandler {
	return &S3EventHandler{
		proc:   proc,
		logger: logger.With().Str("component", "s3_event_handler").Logger(),
	}
}

// Handle processa todos os registros do evento, em ordem.
// Um registro com falha não interrompe os demais; os erros são agregados.
func (h *S3EventHandler) Handle(ctx context.Context, evt events.S3Event) error {
	start := time.Now()

	// Correlation ID: request id da Lambda quando disponível
	corrID := ""
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		corrID = lc.AwsRequestID
	}
	if corrID == "" {
		corrID = uuid.NewString()
	}

	logger := h.logger.With().Str("correlation_id", corrID).Logger()
	ctx = logger.WithContext(ctx)
	ctx = pipeline.WithCorrelationID(ctx, corrID)

	if len(evt.Records) == 0 {
		logger.Warn().Msg("evento sem registros")
		return ErrNoRecords
	}

	if err := h.proc.ValidateBuckets(ctx); err != nil {
		logger.Error().Err(err).Msg("validação de buckets falhou")
		return err
	}

	var (
		errs       []error
		duplicates int
	)
	for _, rec := range evt.Records {
		key, err := objectKey(rec)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		_, err = h.proc.Process(ctx, key)
		switch {
		case errors.Is(err, dyndb.ErrAlreadyExists):
			// entrega repetida do S3: o registro já foi criado por outra invocação
			duplicates++
			logger.Info().Str("s3_key", key).Msg("evento duplicado ignorado")
		case err != nil:
			errs = append(errs, fmt.Errorf("transport: %s: %w", key, err))
		}
	}

	logger.Info().
		Int("records", len(evt.Records)).
		Int("duplicates", duplicates).
		Int("errors", len(errs)).
		Int64("latency_ms", time.Since(start).Milliseconds()).
		Msg("s3 event completed")

	return errors.Join(errs...)
}

// objectKey retorna a chave decodificada. As notificações do S3 codificam a
// chave como query string (espaço vira "+").
func objectKey(rec events.S3EventRecord) (string, error) {
	if rec.S3.Object.URLDecodedKey != "" {
		return rec.S3.Object.URLDecodedKey, nil
	}
	key, err := url.QueryUnescape(rec.S3.Object.Key)
	if err != nil {
		return "", fmt.Errorf("transport: decode key %q: %w", rec.S3.Object.Key, err)
	}
	return key, nil
}
