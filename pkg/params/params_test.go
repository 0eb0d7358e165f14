package params

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSSM struct {
	store map[string]string
	calls int
}

func (m *mockSSM) GetParameters(ctx context.Context, params *ssm.GetParametersInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersOutput, error) {
	m.calls++
	if !aws.ToBool(params.WithDecryption) {
		return nil, errors.New("decryption expected")
	}
	out := &ssm.GetParametersOutput{}
	for _, n := range params.Names {
		if v, ok := m.store[n]; ok {
			out.Parameters = append(out.Parameters, types.Parameter{Name: aws.String(n), Value: aws.String(v)})
		} else {
			out.InvalidParameters = append(out.InvalidParameters, n)
		}
	}
	return out, nil
}

type mockSecrets struct {
	GetSecretValueFn func(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

func (m *mockSecrets) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	return m.GetSecretValueFn(ctx, params, optFns...)
}

func TestFetchParameters(t *testing.T) {
	prefix := "/stablecaps/dev/cat-wrangler"
	client := &mockSSM{store: map[string]string{
		prefix + "/AWS_REGION":          "eu-west-1",
		prefix + "/S3BUCKET_SOURCE":     "cats-src",
		prefix + "/DYNAMODB_TABLE_NAME": "cats",
	}}

	t.Run("all present", func(t *testing.T) {
		got, err := FetchParameters(context.Background(), client, prefix+"/", []string{"AWS_REGION", "S3BUCKET_SOURCE", "DYNAMODB_TABLE_NAME"})
		require.NoError(t, err)
		assert.Equal(t, map[string]string{
			"AWS_REGION":          "eu-west-1",
			"S3BUCKET_SOURCE":     "cats-src",
			"DYNAMODB_TABLE_NAME": "cats",
		}, got)
	})

	t.Run("missing parameter", func(t *testing.T) {
		_, err := FetchParameters(context.Background(), client, prefix, []string{"AWS_REGION", "FUNC_BULKIMG_ANALYSER_NAME"})
		var me *MissingParametersError
		require.ErrorAs(t, err, &me)
		assert.Equal(t, []string{prefix + "/FUNC_BULKIMG_ANALYSER_NAME"}, me.Names)
	})

	t.Run("chunks of ten", func(t *testing.T) {
		store := map[string]string{}
		names := make([]string, 0, 23)
		for i := 0; i < 23; i++ {
			n := fmt.Sprintf("P%02d", i)
			names = append(names, n)
			store["/p/"+n] = n
		}
		c := &mockSSM{store: store}
		got, err := FetchParameters(context.Background(), c, "/p", names)
		require.NoError(t, err)
		assert.Len(t, got, 23)
		assert.Equal(t, 3, c.calls)
	})
}

func TestFetchSecret(t *testing.T) {
	t.Run("json object", func(t *testing.T) {
		client := &mockSecrets{GetSecretValueFn: func(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
			assert.Equal(t, "cat-wrangler/dev", aws.ToString(params.SecretId))
			return &secretsmanager.GetSecretValueOutput{
				SecretString: aws.String(`{"AWS_REGION":"eu-west-1","REKOGNITION_MAX_LABELS":10,"DEBUG":true,"EMPTY":null}`),
			}, nil
		}}

		got, err := FetchSecret(context.Background(), client, "cat-wrangler/dev")
		require.NoError(t, err)
		assert.Equal(t, map[string]string{
			"AWS_REGION":             "eu-west-1",
			"REKOGNITION_MAX_LABELS": "10",
			"DEBUG":                  "true",
		}, got)
	})

	t.Run("not json", func(t *testing.T) {
		client := &mockSecrets{GetSecretValueFn: func(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
			return &secretsmanager.GetSecretValueOutput{SecretString: aws.String("plain")}, nil
		}}
		_, err := FetchSecret(context.Background(), client, "x")
		assert.ErrorContains(t, err, "not a JSON object")
	})

	t.Run("binary secret", func(t *testing.T) {
		client := &mockSecrets{GetSecretValueFn: func(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
			return &secretsmanager.GetSecretValueOutput{SecretBinary: []byte{1}}, nil
		}}
		_, err := FetchSecret(context.Background(), client, "x")
		assert.Error(t, err)
	})
}
