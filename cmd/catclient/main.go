package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/raywall/cat-wrangler/dyndb"
	"github.com/raywall/cat-wrangler/pkg/awsconf"
	"github.com/raywall/cat-wrangler/pkg/client"
	"github.com/raywall/cat-wrangler/pkg/config"
	"github.com/raywall/cat-wrangler/pkg/logger"
	"github.com/raywall/cat-wrangler/pkg/params"
	"github.com/raywall/cat-wrangler/pkg/record"
	"github.com/raywall/cat-wrangler/pkg/storage"
	"github.com/raywall/cat-wrangler/pkg/uploader"
)

const usage = `Uso: catclient -secretsfile <ssm|secretsmanager:<id>|arquivo> [-debug] <comando> [<args>]

Comandos:
  bulkanalyse  -folder DIR                 envia as imagens da pasta
  result       -batchid ID -imgfprint FP   resultado de uma imagem
  bulkresults  -batchfile FILE             resultados de um lote
  batchstatus  -batchid ID                 op_status de todas as imagens do lote

Exemplos:
  catclient -secretsfile ssm -debug bulkanalyse -folder bulk_uploads/
  catclient -secretsfile ssm result -batchid 1744370618 -imgfprint f54c84046c5a...
  catclient -secretsfile dev.env bulkresults -batchfile logs/catwrangler900_batch-1744377772.json
`

// errUsage indica argumentos inválidos (exit code 2).
var errUsage = errors.New("uso inválido")

var (
	// Variáveis injetáveis para mocking
	awsLoader  = awsconf.Load
	appFactory = newApp
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		os.Exit(1)
	}
}

type command struct {
	name      string
	debug     bool
	secrets   string
	folder    string
	batchID   string
	imgFprint string
	batchFile string
}

func parseArgs(args []string) (*command, error) {
	cmd := &command{}

	global := flag.NewFlagSet("catclient", flag.ContinueOnError)
	global.SetOutput(io.Discard)
	global.StringVar(&cmd.secrets, "secretsfile", "", "ssm, secretsmanager:<id> ou arquivo de segredos no diretório config")
	global.BoolVar(&cmd.debug, "debug", false, "modo debug")
	if err := global.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	if cmd.secrets == "" {
		return nil, fmt.Errorf("%w: flag -secretsfile é obrigatória", errUsage)
	}
	if global.NArg() == 0 {
		return nil, fmt.Errorf("%w: comando esperado", errUsage)
	}

	cmd.name = global.Arg(0)
	sub := flag.NewFlagSet(cmd.name, flag.ContinueOnError)
	sub.SetOutput(io.Discard)

	var required []string
	switch cmd.name {
	case "bulkanalyse":
		sub.StringVar(&cmd.folder, "folder", "", "pasta com as imagens")
		required = []string{"folder"}
	case "result":
		sub.StringVar(&cmd.batchID, "batchid", "", "batch id, ex.: 1744370618")
		sub.StringVar(&cmd.imgFprint, "imgfprint", "", "fingerprint da imagem")
		required = []string{"batchid", "imgfprint"}
	case "bulkresults":
		sub.StringVar(&cmd.batchFile, "batchfile", "", "arquivo do lote em logs/")
		required = []string{"batchfile"}
	case "batchstatus":
		sub.StringVar(&cmd.batchID, "batchid", "", "batch id, ex.: 1744370618")
		required = []string{"batchid"}
	default:
		return nil, fmt.Errorf("%w: comando desconhecido %q", errUsage, cmd.name)
	}

	if err := sub.Parse(global.Args()[1:]); err != nil {
		return nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	for _, name := range required {
		if sub.Lookup(name).Value.String() == "" {
			return nil, fmt.Errorf("%w: flag -%s é obrigatória para %s", errUsage, name, cmd.name)
		}
	}
	return cmd, nil
}

// run contém a lógica principal testável
func run(ctx context.Context, args []string, stdout io.Writer) error {
	cmd, err := parseArgs(args)
	if err != nil {
		return err
	}

	// 1. Segredos -> ambiente
	values, err := config.LoadSecrets(ctx, cmd.secrets, secretSources())
	if err != nil {
		return fmt.Errorf("falha ao carregar segredos: %w", err)
	}
	if err := config.Export(values); err != nil {
		return err
	}

	// 2. Configuração
	cfg, err := config.LoadClient(os.LookupEnv)
	if err != nil {
		return err
	}
	if cmd.debug {
		cfg.Logging.Level = "debug"
	}
	lg := logger.Configure(cfg.Logging).With().Str("command", cmd.name).Logger()
	fmt.Fprintln(stdout, "Variáveis de ambiente carregadas")

	clientID, err := client.LoadClientID(cfg.ConfigDir)
	if err != nil {
		return err
	}

	app, err := appFactory(ctx, cfg, client.Options{
		ClientID: clientID,
		LogsDir:  cfg.LogsDir,
		Debug:    cmd.debug,
		Color:    true,
		Out:      stdout,
		Logger:   lg,
	})
	if err != nil {
		return err
	}

	// 3. Executa o comando
	switch cmd.name {
	case "bulkanalyse":
		_, err = app.BulkAnalyse(ctx, cmd.folder)
	case "result":
		err = app.Result(ctx, cmd.batchID, cmd.imgFprint)
	case "bulkresults":
		_, err = app.BulkResults(ctx, cmd.batchFile)
	case "batchstatus":
		_, err = app.BatchStatus(ctx, cmd.batchID)
	}
	return err
}

func secretSources() config.SecretSources {
	configDir := os.Getenv("CATWRANGLER_CONFIG_DIR")
	if configDir == "" {
		configDir = "config"
	}
	return config.SecretSources{
		SSM: func(ctx context.Context) (params.SSMClient, error) {
			cfg, err := awsLoader(ctx, os.Getenv("AWS_REGION"))
			if err != nil {
				return nil, err
			}
			return ssm.NewFromConfig(cfg), nil
		},
		Secrets: func(ctx context.Context) (params.SecretsClient, error) {
			cfg, err := awsLoader(ctx, os.Getenv("AWS_REGION"))
			if err != nil {
				return nil, err
			}
			return secretsmanager.NewFromConfig(cfg), nil
		},
		SSMPrefix: os.Getenv("SSM_PREFIX"),
		ConfigDir: configDir,
	}
}

func newApp(ctx context.Context, cfg *config.ClientConfig, opts client.Options) (*client.App, error) {
	awsCfg, err := awsLoader(ctx, cfg.Region)
	if err != nil {
		return nil, fmt.Errorf("falha ao carregar configuração AWS: %w", err)
	}

	enc, err := record.NewEncoder()
	if err != nil {
		return nil, err
	}
	table, err := dyndb.NewTable(dynamodb.NewFromConfig(awsCfg), enc, record.TableConfig(cfg.TableName))
	if err != nil {
		return nil, err
	}

	up := uploader.New(storage.New(s3.NewFromConfig(awsCfg)), cfg.SourceBucket, opts.ClientID,
		uploader.WithDebug(opts.Debug),
		uploader.WithLogger(opts.Logger),
	)
	return client.New(up, table, opts), nil
}
