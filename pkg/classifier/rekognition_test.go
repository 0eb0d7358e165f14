package classifier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/goccy/go-json"
	"github.com/raywall/cat-wrangler/pkg/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRekognition struct {
	DetectLabelsFn func(ctx context.Context, params *rekognition.DetectLabelsInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectLabelsOutput, error)
}

func (m *mockRekognition) DetectLabels(ctx context.Context, params *rekognition.DetectLabelsInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectLabelsOutput, error) {
	return m.DetectLabelsFn(ctx, params, optFns...)
}

func verdict(t *testing.T) *rules.Verdict {
	t.Helper()
	rm, err := rules.NewRuleManager()
	require.NoError(t, err)
	v, err := rm.Compile("", "cat")
	require.NoError(t, err)
	return v
}

func labelsOutput(names ...string) *rekognition.DetectLabelsOutput {
	out := &rekognition.DetectLabelsOutput{LabelModelVersion: aws.String("3.0")}
	for _, n := range names {
		out.Labels = append(out.Labels, types.Label{Name: aws.String(n), Confidence: aws.Float32(90)})
	}
	return out
}

func TestClassify(t *testing.T) {
	fixed := time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("match", func(t *testing.T) {
		var got *rekognition.DetectLabelsInput
		client := &mockRekognition{
			DetectLabelsFn: func(ctx context.Context, params *rekognition.DetectLabelsInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectLabelsOutput, error) {
				got = params
				return labelsOutput("Cat", "Pet", "Mammal"), nil
			},
		}

		c := New(client, verdict(t), WithClock(func() time.Time { return fixed }))
		res, err := c.Classify(context.Background(), []byte("img"))
		require.NoError(t, err)

		assert.Equal(t, int32(10), aws.ToInt32(got.MaxLabels))
		assert.Equal(t, float32(75), aws.ToFloat32(got.MinConfidence))
		assert.Equal(t, []byte("img"), got.Image.Bytes)

		assert.True(t, res.IsMatch)
		assert.Equal(t, 200, res.StatusCode)
		assert.Equal(t, fixed.Unix(), res.Timestamp)
		assert.Len(t, res.Labels, 3)
		assert.Equal(t, 90.0, res.Confidence()["Cat"])

		var raw map[string]any
		require.NoError(t, json.Unmarshal([]byte(res.Raw), &raw))
		assert.Contains(t, raw, "Labels")
		assert.Equal(t, "3.0", raw["LabelModelVersion"])
	})

	t.Run("no match", func(t *testing.T) {
		client := &mockRekognition{
			DetectLabelsFn: func(ctx context.Context, params *rekognition.DetectLabelsInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectLabelsOutput, error) {
				return labelsOutput("Dog"), nil
			},
		}
		res, err := New(client, verdict(t), WithMaxLabels(5), WithMinConfidence(50)).Classify(context.Background(), []byte("img"))
		require.NoError(t, err)
		assert.False(t, res.IsMatch)
	})

	t.Run("service error", func(t *testing.T) {
		boom := errors.New("throttled")
		client := &mockRekognition{
			DetectLabelsFn: func(ctx context.Context, params *rekognition.DetectLabelsInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectLabelsOutput, error) {
				return nil, boom
			},
		}
		_, err := New(client, verdict(t)).Classify(context.Background(), []byte("img"))
		assert.ErrorIs(t, err, boom)
	})

	t.Run("empty image", func(t *testing.T) {
		_, err := New(&mockRekognition{}, verdict(t)).Classify(context.Background(), nil)
		assert.Error(t, err)
	})
}

func TestParseResponseTime(t *testing.T) {
	valid := map[string]int64{
		"Mon, 01 Jan 2023 12:00:00 GMT": 1672574400,
		"Thu, 01 Jan 1970 00:00:00 GMT": 0,
		"Fri, 01 Jan 2100 00:00:00 GMT": 4102444800,
		"Sun, 01 Jan 2023 12:00:00 UTC": 1672574400,
		"Sun, 01 Jan 2023 12:00:00":     1672574400,
		"Sun, 01 Jan 2023 12:00:00 XYZ": 1672574400,
		"Sun, 01 Jan 2023 07:00:00 EST": 1672574400,
		"Sat, 01 Jul 2023 08:00:00 EDT": 1688212800,
	}
	for in, want := range valid {
		t.Run(in, func(t *testing.T) {
			got, err := ParseResponseTime(in)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}

	for _, in := range []string{"", "invalid date string", "Mon, 32 Jan 2023 12:00:00 GMT", "2023-01-01T12:00:00Z"} {
		_, err := ParseResponseTime(in)
		assert.Error(t, err, in)
	}
}
