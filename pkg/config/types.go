package config

import "time"

// Runtimes suportados pela função de classificação.
const (
	RuntimeLambda = "lambda"
	RuntimeLocal  = "local"
)

// FunctionConfig é a configuração da função de classificação, lida do ambiente.
type FunctionConfig struct {
	Region  string `env:"AWS_REGION" validate:"required"`
	Runtime string `env:"RUNTIME" envDefault:"lambda" validate:"required,oneof=lambda local"`
	// QueueURL é a fila SQS que recebe as notificações do bucket quando Runtime=local.
	QueueURL    string        `env:"SQS_QUEUE_URL" validate:"required_if=Runtime local"`
	TableName   string        `env:"DYNAMODB_TABLE_NAME" validate:"required"`
	RecordTTL   time.Duration `env:"DYNAMODB_TTL" envDefault:"72h" validate:"gte=0"`
	Buckets     BucketsConf
	Rekognition RekognitionConf
	Logging     LoggingConf
	Metrics     MetricsConf
}

// BucketsConf agrupa os buckets de origem, destino e falha.
type BucketsConf struct {
	Source string `env:"S3BUCKET_SOURCE" validate:"required"`
	Dest   string `env:"S3BUCKET_DEST" validate:"required"`
	Fail   string `env:"S3BUCKET_FAIL" validate:"required"`
}

// RekognitionConf controla o DetectLabels e o veredito.
type RekognitionConf struct {
	Label         string  `env:"REKOGNITION_LABEL" envDefault:"cat" validate:"required"`
	MinConfidence float32 `env:"REKOGNITION_MIN_CONFIDENCE" envDefault:"75" validate:"gt=0,lte=100"`
	MaxLabels     int32   `env:"REKOGNITION_MAX_LABELS" envDefault:"10" validate:"gt=0,lte=1000"`
	// VerdictExpr é uma expressão CEL opcional; vazio usa "pattern in labels".
	VerdictExpr string `env:"VERDICT_EXPR"`
}

// ClientConfig é a configuração do cliente de linha de comando.
type ClientConfig struct {
	Region       string `env:"AWS_REGION" validate:"required"`
	SourceBucket string `env:"S3BUCKET_SOURCE" validate:"required"`
	TableName    string `env:"DYNAMODB_TABLE_NAME" validate:"required"`
	FunctionName string `env:"FUNC_BULKIMG_ANALYSER_NAME"`
	LogsDir      string `env:"CATWRANGLER_LOGS_DIR" envDefault:"logs" validate:"required"`
	ConfigDir    string `env:"CATWRANGLER_CONFIG_DIR" envDefault:"config" validate:"required"`
	Logging      LoggingConf
}

type LoggingConf struct {
	Enabled bool   `env:"LOG_ENABLED" envDefault:"true"`
	Level   string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=trace debug info warn error"`
	Format  string `env:"LOG_FORMAT" envDefault:"json" validate:"oneof=json console"`
}

type MetricsConf struct {
	Datadog DatadogConf
}

type DatadogConf struct {
	Enabled   bool   `env:"DD_ENABLED"`
	Addr      string `env:"DD_AGENT_HOST" envDefault:"localhost:8125" validate:"required_if=Enabled true"`
	Namespace string `env:"DD_NAMESPACE" envDefault:"catwrangler."`
}
