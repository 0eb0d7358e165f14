package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/raywall/cat-wrangler/pkg/params"
	"gopkg.in/yaml.v3"
)

// DefaultSSMPrefix é o caminho padrão dos parâmetros do cliente no SSM.
const DefaultSSMPrefix = "/stablecaps/dev/cat-wrangler"

// ClientParamNames são os parâmetros que o cliente lê do SSM.
// Credenciais da AWS nunca são lidas daqui.
var ClientParamNames = []string{
	"AWS_REGION",
	"FUNC_BULKIMG_ANALYSER_NAME",
	"S3BUCKET_SOURCE",
	"DYNAMODB_TABLE_NAME",
}

const (
	sourceSSM            = "ssm"
	sourceSecretsManager = "secretsmanager:"
)

// SecretSources fornece os clientes e caminhos usados por LoadSecrets.
// Os clientes são criados sob demanda, apenas quando a fonte os exige.
type SecretSources struct {
	SSM       func(ctx context.Context) (params.SSMClient, error)
	Secrets   func(ctx context.Context) (params.SecretsClient, error)
	SSMPrefix string
	ConfigDir string
}

// LoadSecrets lê os valores de configuração da fonte indicada:
//   - "ssm": parâmetros ClientParamNames sob SSMPrefix
//   - "secretsmanager:<id>": segredo JSON
//   - qualquer outro valor: arquivo (YAML ou dotenv), relativo a ConfigDir
func LoadSecrets(ctx context.Context, source string, src SecretSources) (map[string]string, error) {
	switch {
	case source == "":
		return nil, fmt.Errorf("config: secrets source is required")
	case source == sourceSSM:
		if src.SSM == nil {
			return nil, fmt.Errorf("config: ssm client not available")
		}
		client, err := src.SSM(ctx)
		if err != nil {
			return nil, err
		}
		prefix := src.SSMPrefix
		if prefix == "" {
			prefix = DefaultSSMPrefix
		}
		return params.FetchParameters(ctx, client, prefix, ClientParamNames)
	case strings.HasPrefix(source, sourceSecretsManager):
		id := strings.TrimPrefix(source, sourceSecretsManager)
		if id == "" || src.Secrets == nil {
			return nil, fmt.Errorf("config: invalid secrets manager source %q", source)
		}
		client, err := src.Secrets(ctx)
		if err != nil {
			return nil, err
		}
		return params.FetchSecret(ctx, client, id)
	default:
		return ReadSecretsFile(resolvePath(source, src.ConfigDir))
	}
}

func resolvePath(source, dir string) string {
	if _, err := os.Stat(source); err == nil || dir == "" || filepath.IsAbs(source) {
		return source
	}
	return filepath.Join(dir, source)
}

// ReadSecretsFile lê um arquivo YAML (.yaml/.yml) ou dotenv.
func ReadSecretsFile(path string) (map[string]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read secrets file: %w", err)
		}
		var raw map[string]any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("config: parse secrets file %s: %w", path, err)
		}
		values := make(map[string]string, len(raw))
		for k, v := range raw {
			switch v.(type) {
			case nil:
				continue
			case map[string]any, []any:
				return nil, fmt.Errorf("config: secrets file %s: key %s must be a scalar", path, k)
			}
			values[k] = fmt.Sprint(v)
		}
		return values, nil
	default:
		values, err := godotenv.Read(path)
		if err != nil {
			return nil, fmt.Errorf("config: read secrets file: %w", err)
		}
		return values, nil
	}
}

// Export grava os valores no ambiente do processo, sobrescrevendo os existentes.
func Export(values map[string]string) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := os.Setenv(k, values[k]); err != nil {
			return fmt.Errorf("config: export %s: %w", k, err)
		}
	}
	return nil
}
