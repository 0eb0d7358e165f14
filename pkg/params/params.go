// Package params lê parâmetros de configuração do SSM Parameter Store e do
// Secrets Manager.
package params

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/goccy/go-json"
)

// Interfaces para abstrair o SDK da AWS (Permite Mocking)
type SSMClient interface {
	GetParameters(ctx context.Context, params *ssm.GetParametersInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersOutput, error)
}

type SecretsClient interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

var (
	_ SSMClient     = (*ssm.Client)(nil)
	_ SecretsClient = (*secretsmanager.Client)(nil)
)

// maxPerCall é o limite de nomes do GetParameters.
const maxPerCall = 10

// MissingParametersError lista os parâmetros que não existem no SSM.
type MissingParametersError struct {
	Names []string
}

func (e *MissingParametersError) Error() string {
	return fmt.Sprintf("params: parameters not found: %s", strings.Join(e.Names, ", "))
}

// FetchParameters lê "<prefix>/<name>" para cada nome, com descriptografia,
// e retorna os valores indexados pelo nome curto.
func FetchParameters(ctx context.Context, client SSMClient, prefix string, names []string) (map[string]string, error) {
	prefix = strings.TrimSuffix(prefix, "/")
	values := make(map[string]string, len(names))
	var missing []string

	for start := 0; start < len(names); start += maxPerCall {
		end := start + maxPerCall
		if end > len(names) {
			end = len(names)
		}

		full := make([]string, 0, end-start)
		for _, n := range names[start:end] {
			full = append(full, prefix+"/"+n)
		}

		out, err := client.GetParameters(ctx, &ssm.GetParametersInput{
			Names:          full,
			WithDecryption: aws.Bool(true),
		})
		if err != nil {
			return nil, fmt.Errorf("params: ssm get parameters: %w", err)
		}

		for _, p := range out.Parameters {
			name := strings.TrimPrefix(aws.ToString(p.Name), prefix+"/")
			values[name] = aws.ToString(p.Value)
		}
		missing = append(missing, out.InvalidParameters...)
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &MissingParametersError{Names: missing}
	}
	return values, nil
}

// FetchSecret lê um segredo em formato JSON (objeto) e retorna seus campos
// como strings.
func FetchSecret(ctx context.Context, client SecretsClient, secretID string) (map[string]string, error) {
	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		return nil, fmt.Errorf("params: get secret %s: %w", secretID, err)
	}
	if out.SecretString == nil {
		return nil, fmt.Errorf("params: secret %s has no string value", secretID)
	}

	var data map[string]any
	dec := json.NewDecoder(strings.NewReader(*out.SecretString))
	dec.UseNumber()
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("params: secret %s is not a JSON object: %w", secretID, err)
	}

	values := make(map[string]string, len(data))
	for k, v := range data {
		if v == nil {
			continue
		}
		values[k] = fmt.Sprint(v)
	}
	return values, nil
}
