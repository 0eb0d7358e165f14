package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/raywall/cat-wrangler/pkg/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookup(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func functionEnv() map[string]string {
	return map[string]string{
		"AWS_REGION":          "eu-west-1",
		"DYNAMODB_TABLE_NAME": "cats",
		"S3BUCKET_SOURCE":     "src",
		"S3BUCKET_DEST":       "dest",
		"S3BUCKET_FAIL":       "fail",
	}
}

func TestLoadFunctionFrom(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := LoadFunctionFrom(lookup(functionEnv()))
		require.NoError(t, err)

		assert.Equal(t, RuntimeLambda, cfg.Runtime)
		assert.Equal(t, 72*time.Hour, cfg.RecordTTL)
		assert.Equal(t, "cat", cfg.Rekognition.Label)
		assert.Equal(t, float32(75), cfg.Rekognition.MinConfidence)
		assert.Equal(t, int32(10), cfg.Rekognition.MaxLabels)
		assert.Equal(t, "info", cfg.Logging.Level)
		assert.True(t, cfg.Logging.Enabled)
		assert.False(t, cfg.Metrics.Datadog.Enabled)
		assert.Equal(t, "fail", cfg.Buckets.Fail)
	})

	t.Run("local runtime requires a queue", func(t *testing.T) {
		env := functionEnv()
		env["RUNTIME"] = "local"
		_, err := LoadFunctionFrom(lookup(env))
		assert.ErrorContains(t, err, "QueueURL")

		env["SQS_QUEUE_URL"] = "https://sqs.eu-west-1.amazonaws.com/123/cats"
		cfg, err := LoadFunctionFrom(lookup(env))
		require.NoError(t, err)
		assert.Equal(t, RuntimeLocal, cfg.Runtime)
	})

	t.Run("structural errors", func(t *testing.T) {
		env := functionEnv()
		delete(env, "S3BUCKET_FAIL")
		env["RUNTIME"] = "ecs"
		env["LOG_LEVEL"] = "verbose"
		env["REKOGNITION_MIN_CONFIDENCE"] = "150"

		_, err := LoadFunctionFrom(lookup(env))
		require.Error(t, err)
		for _, field := range []string{"Fail", "Runtime", "Level", "MinConfidence"} {
			assert.Contains(t, err.Error(), field)
		}
	})

	t.Run("zero ttl disables expiry", func(t *testing.T) {
		env := functionEnv()
		env["DYNAMODB_TTL"] = "0"
		cfg, err := LoadFunctionFrom(lookup(env))
		require.NoError(t, err)
		assert.Zero(t, cfg.RecordTTL)

		env["DYNAMODB_TTL"] = "-1h"
		_, err = LoadFunctionFrom(lookup(env))
		assert.ErrorContains(t, err, "RecordTTL")
	})

	t.Run("conversion error", func(t *testing.T) {
		env := functionEnv()
		env["DYNAMODB_TTL"] = "forever"
		_, err := LoadFunctionFrom(lookup(env))
		assert.ErrorContains(t, err, "DYNAMODB_TTL")
	})
}

func TestLoadClient(t *testing.T) {
	cfg, err := LoadClient(lookup(map[string]string{
		"AWS_REGION":          "eu-west-1",
		"S3BUCKET_SOURCE":     "src",
		"DYNAMODB_TABLE_NAME": "cats",
	}))
	require.NoError(t, err)
	assert.Equal(t, "logs", cfg.LogsDir)
	assert.Equal(t, "config", cfg.ConfigDir)

	_, err = LoadClient(lookup(map[string]string{"AWS_REGION": "eu-west-1"}))
	assert.ErrorContains(t, err, "SourceBucket")
}

type fakeSSM struct{ values map[string]string }

func (f *fakeSSM) GetParameters(ctx context.Context, in *ssm.GetParametersInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersOutput, error) {
	out := &ssm.GetParametersOutput{}
	for _, n := range in.Names {
		if v, ok := f.values[n]; ok {
			out.Parameters = append(out.Parameters, types.Parameter{Name: aws.String(n), Value: aws.String(v)})
		} else {
			out.InvalidParameters = append(out.InvalidParameters, n)
		}
	}
	return out, nil
}

type fakeSecrets struct{ body string }

func (f *fakeSecrets) GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	return &secretsmanager.GetSecretValueOutput{SecretString: aws.String(f.body)}, nil
}

func TestLoadSecrets(t *testing.T) {
	ctx := context.Background()

	t.Run("ssm", func(t *testing.T) {
		values := map[string]string{}
		for _, n := range ClientParamNames {
			values[DefaultSSMPrefix+"/"+n] = "v-" + n
		}
		src := SecretSources{SSM: func(context.Context) (params.SSMClient, error) { return &fakeSSM{values: values}, nil }}

		got, err := LoadSecrets(ctx, "ssm", src)
		require.NoError(t, err)
		assert.Equal(t, "v-S3BUCKET_SOURCE", got["S3BUCKET_SOURCE"])
		assert.Len(t, got, len(ClientParamNames))
	})

	t.Run("ssm missing parameter", func(t *testing.T) {
		src := SecretSources{
			SSMPrefix: "/other",
			SSM:       func(context.Context) (params.SSMClient, error) { return &fakeSSM{}, nil },
		}
		_, err := LoadSecrets(ctx, "ssm", src)
		var me *params.MissingParametersError
		assert.ErrorAs(t, err, &me)
	})

	t.Run("ssm client error", func(t *testing.T) {
		boom := errors.New("no credentials")
		src := SecretSources{SSM: func(context.Context) (params.SSMClient, error) { return nil, boom }}
		_, err := LoadSecrets(ctx, "ssm", src)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("secrets manager", func(t *testing.T) {
		src := SecretSources{Secrets: func(context.Context) (params.SecretsClient, error) {
			return &fakeSecrets{body: `{"AWS_REGION":"eu-west-1"}`}, nil
		}}
		got, err := LoadSecrets(ctx, "secretsmanager:cat-wrangler/dev", src)
		require.NoError(t, err)
		assert.Equal(t, "eu-west-1", got["AWS_REGION"])

		_, err = LoadSecrets(ctx, "secretsmanager:", src)
		assert.Error(t, err)
	})

	t.Run("dotenv file in config dir", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "dev.env"), []byte("AWS_REGION=eu-west-1\n# comment\nS3BUCKET_SOURCE=\"cats-src\"\n"), 0o600))

		got, err := LoadSecrets(ctx, "dev.env", SecretSources{ConfigDir: dir})
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"AWS_REGION": "eu-west-1", "S3BUCKET_SOURCE": "cats-src"}, got)
	})

	t.Run("yaml file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "dev.yaml")
		require.NoError(t, os.WriteFile(path, []byte("AWS_REGION: eu-west-1\nREKOGNITION_MAX_LABELS: 12\nEMPTY:\n"), 0o600))

		got, err := LoadSecrets(ctx, path, SecretSources{})
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"AWS_REGION": "eu-west-1", "REKOGNITION_MAX_LABELS": "12"}, got)
	})

	t.Run("yaml with nested value", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yml")
		require.NoError(t, os.WriteFile(path, []byte("buckets:\n  source: x\n"), 0o600))
		_, err := ReadSecretsFile(path)
		assert.ErrorContains(t, err, "scalar")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadSecrets(ctx, "nope.env", SecretSources{ConfigDir: t.TempDir()})
		assert.Error(t, err)
	})

	t.Run("empty source", func(t *testing.T) {
		_, err := LoadSecrets(ctx, "", SecretSources{})
		assert.Error(t, err)
	})
}

func TestExport(t *testing.T) {
	t.Setenv("CW_EXPORT_TEST", "old")
	require.NoError(t, Export(map[string]string{"CW_EXPORT_TEST": "new"}))
	assert.Equal(t, "new", os.Getenv("CW_EXPORT_TEST"))
}
