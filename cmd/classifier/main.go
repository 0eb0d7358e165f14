package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/raywall/cat-wrangler/dyndb"
	"github.com/raywall/cat-wrangler/envloader"
	"github.com/raywall/cat-wrangler/pkg/awsconf"
	"github.com/raywall/cat-wrangler/pkg/classifier"
	"github.com/raywall/cat-wrangler/pkg/config"
	"github.com/raywall/cat-wrangler/pkg/logger"
	"github.com/raywall/cat-wrangler/pkg/metrics"
	"github.com/raywall/cat-wrangler/pkg/observability"
	"github.com/raywall/cat-wrangler/pkg/pipeline"
	"github.com/raywall/cat-wrangler/pkg/record"
	"github.com/raywall/cat-wrangler/pkg/rules"
	"github.com/raywall/cat-wrangler/pkg/storage"
	"github.com/raywall/cat-wrangler/pkg/transport"
	"github.com/rs/zerolog"
)

var (
	// Variáveis injetáveis para mocking
	lambdaStarter = lambda.Start
	pollerStarter = func(ctx context.Context, p *transport.SQSPoller) error { return p.Start(ctx) }
	awsLoader     = awsconf.Load
)

func main() {
	if err := run(context.Background(), os.LookupEnv); err != nil {
		log.Fatalf("FATAL: %v", err)
	}
}

// run contém a lógica principal testável
func run(ctx context.Context, lookup envloader.LookupFunc) error {
	// 1. Configuração
	cfg, err := config.LoadFunctionFrom(lookup)
	if err != nil {
		return err
	}

	// 2. Observabilidade
	out := logger.Output(cfg.Logging)
	lg := logger.Configure(cfg.Logging).With().Str("service", "cat-wrangler").Logger()

	provider, err := observability.SetupMetrics(cfg.Metrics, "service:cat-wrangler")
	if err != nil {
		return err
	}

	// 3. Clientes AWS e pipeline (Boot Time)
	awsCfg, err := awsLoader(ctx, cfg.Region)
	if err != nil {
		return fmt.Errorf("falha ao carregar configuração AWS: %w", err)
	}

	p, err := buildPipeline(cfg, awsCfg, metrics.NewRecorder(nil, provider), lg, out)
	if err != nil {
		return err
	}
	handler := transport.NewS3EventHandler(p, lg)

	// 4. Seleciona Runtime Strategy
	switch cfg.Runtime {
	case config.RuntimeLambda:
		lambdaStarter(func(ctx context.Context, evt events.S3Event) error {
			defer func() { _ = observability.Flush(provider) }()
			return handler.Handle(ctx, evt)
		})
		return nil
	case config.RuntimeLocal:
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		poller := transport.NewSQSPoller(sqs.NewFromConfig(awsCfg), cfg.QueueURL, handler, lg)
		return pollerStarter(ctx, poller)
	default:
		return fmt.Errorf("runtime desconhecido: %s", cfg.Runtime)
	}
}

func buildPipeline(cfg *config.FunctionConfig, awsCfg aws.Config, rec *metrics.Recorder, lg zerolog.Logger, out io.Writer) (*pipeline.Pipeline, error) {
	enc, err := record.NewEncoder()
	if err != nil {
		return nil, err
	}
	table, err := dyndb.NewTable(dynamodb.NewFromConfig(awsCfg), enc, record.TableConfig(cfg.TableName))
	if err != nil {
		return nil, err
	}

	rm, err := rules.NewRuleManager()
	if err != nil {
		return nil, err
	}
	verdict, err := rm.Compile(cfg.Rekognition.VerdictExpr, cfg.Rekognition.Label)
	if err != nil {
		return nil, err
	}
	lg.Info().Str("verdict", verdict.Expression()).Str("pattern", cfg.Rekognition.Label).Msg("veredito compilado")

	cls := classifier.New(rekognition.NewFromConfig(awsCfg), verdict,
		classifier.WithMaxLabels(cfg.Rekognition.MaxLabels),
		classifier.WithMinConfidence(cfg.Rekognition.MinConfidence),
	)

	return pipeline.New(
		storage.New(s3.NewFromConfig(awsCfg)),
		table,
		cls,
		pipeline.Buckets{Source: cfg.Buckets.Source, Dest: cfg.Buckets.Dest, Fail: cfg.Buckets.Fail},
		pipeline.WithTTL(cfg.RecordTTL),
		pipeline.WithMetrics(rec),
		pipeline.WithLogger(lg, out),
	)
}
