package transport

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// SQSClient define a interface necessária para o poller (permite Mocking)
type SQSClient interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// EventHandler processa um evento S3.
type EventHandler interface {
	Handle(ctx context.Context, evt events.S3Event) error
}

// SQSPoller consome notificações S3 entregues numa fila SQS (runtime local).
type SQSPoller struct {
	client      SQSClient
	queueURL    string
	handler     EventHandler
	logger      zerolog.Logger
	retryDelay  time.Duration
	waitSeconds int32
	maxMessages int32
}

// NewSQSPoller cria uma nova instância do poller
func NewSQSPoller(client SQSClient, queueURL string, handler EventHandler, logger zerolog.Logger) *SQSPoller {
	return &SQSPoller{
		client:      client,
		queueURL:    queueURL,
		handler:     handler,
		logger:      logger.With().Str("component", "sqs_poller").Logger(),
		retryDelay:  5 * time.Second,
		waitSeconds: 20, // Long polling
		maxMessages: 10,
	}
}

// Start inicia o consumo da fila (bloqueante). Retorna nil quando ctx é cancelado.
func (s *SQSPoller) Start(ctx context.Context) error {
	if s.queueURL == "" {
		return errors.New("transport: sqs queue url is required")
	}

	s.logger.Info().Str("queue", s.queueURL).Msg("consumindo notificações do S3 via SQS")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("parando consumo SQS")
			return nil
		default:
			out, err := s.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
				QueueUrl:            aws.String(s.queueURL),
				MaxNumberOfMessages: s.maxMessages,
				WaitTimeSeconds:     s.waitSeconds,
			})
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.Error().Err(err).Dur("retry_in", s.retryDelay).Msg("erro no SQS, retentando")
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(s.retryDelay):
				}
				continue
			}

			for _, msg := range out.Messages {
				s.handleMessage(ctx, msg)
			}
		}
	}
}

// handleMessage remove a mensagem apenas quando o evento foi processado.
// Mensagens com falha ficam na fila para nova tentativa ou DLQ.
func (s *SQSPoller) handleMessage(ctx context.Context, msg types.Message) {
	logger := s.logger.With().Str("message_id", aws.ToString(msg.MessageId)).Logger()

	var evt events.S3Event
	if err := json.Unmarshal([]byte(aws.ToString(msg.Body)), &evt); err != nil {
		logger.Error().Err(err).Msg("mensagem não é um evento S3")
		return
	}

	if len(evt.Records) == 0 {
		// s3:TestEvent enviado na criação da notificação
		logger.Info().Msg("evento sem registros descartado")
	} else if err := s.handler.Handle(ctx, evt); err != nil {
		logger.Error().Err(err).Msg("falha ao processar evento, mensagem mantida na fila")
		return
	}

	if _, err := s.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(s.queueURL),
		ReceiptHandle: msg.ReceiptHandle,
	}); err != nil {
		logger.Error().Err(err).Msg("falha ao remover mensagem")
	}
}
