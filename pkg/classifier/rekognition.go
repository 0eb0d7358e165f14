// Package classifier envia imagens ao Amazon Rekognition e decide, a partir
// dos rótulos retornados, se a imagem corresponde ao rótulo procurado.
package classifier

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsmiddleware "github.com/aws/aws-sdk-go-v2/aws/middleware"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/goccy/go-json"
	"github.com/raywall/cat-wrangler/pkg/rules"
)

// RekognitionClient interface para Mock
type RekognitionClient interface {
	DetectLabels(ctx context.Context, params *rekognition.DetectLabelsInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectLabelsOutput, error)
}

var _ RekognitionClient = (*rekognition.Client)(nil)

// Defaults do DetectLabels.
const (
	DefaultMaxLabels     int32   = 10
	DefaultMinConfidence float32 = 75
)

// Label é um rótulo detectado.
type Label struct {
	Name       string  `json:"Name"`
	Confidence float64 `json:"Confidence"`
}

// Result é o resultado de uma classificação.
type Result struct {
	Labels     []Label
	IsMatch    bool
	StatusCode int
	// Timestamp é o horário da resposta (header Date), em epoch segundos.
	Timestamp int64
	// Raw é a resposta serializada em JSON, gravada em rek_resp.
	Raw string
}

// Confidence retorna os rótulos como mapa nome -> confiança.
func (r *Result) Confidence() map[string]float64 {
	m := make(map[string]float64, len(r.Labels))
	for _, l := range r.Labels {
		m[l.Name] = l.Confidence
	}
	return m
}

// Classifier chama o DetectLabels e aplica o veredito.
type Classifier struct {
	client        RekognitionClient
	verdict       *rules.Verdict
	maxLabels     int32
	minConfidence float32
	now           func() time.Time
}

// Option configura o Classifier.
type Option func(*Classifier)

// WithMaxLabels define o número máximo de rótulos retornados.
func WithMaxLabels(n int32) Option {
	return func(c *Classifier) {
		if n > 0 {
			c.maxLabels = n
		}
	}
}

// WithMinConfidence define a confiança mínima dos rótulos retornados.
func WithMinConfidence(v float32) Option {
	return func(c *Classifier) {
		if v > 0 {
			c.minConfidence = v
		}
	}
}

// WithClock substitui o relógio usado quando a resposta não traz Date.
func WithClock(now func() time.Time) Option {
	return func(c *Classifier) { c.now = now }
}

// New cria o Classifier.
func New(client RekognitionClient, verdict *rules.Verdict, opts ...Option) *Classifier {
	c := &Classifier{
		client:        client,
		verdict:       verdict,
		maxLabels:     DefaultMaxLabels,
		minConfidence: DefaultMinConfidence,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type rawResponse struct {
	Labels            []Label          `json:"Labels"`
	LabelModelVersion string           `json:"LabelModelVersion,omitempty"`
	ResponseMetadata  responseMetadata `json:"ResponseMetadata"`
}

type responseMetadata struct {
	RequestID      string `json:"RequestId,omitempty"`
	HTTPStatusCode int    `json:"HTTPStatusCode"`
	Date           string `json:"Date,omitempty"`
}

// Classify envia os bytes da imagem e retorna os rótulos e o veredito.
func (c *Classifier) Classify(ctx context.Context, image []byte) (*Result, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("classifier: empty image")
	}

	out, err := c.client.DetectLabels(ctx, &rekognition.DetectLabelsInput{
		Image:         &types.Image{Bytes: image},
		MaxLabels:     aws.Int32(c.maxLabels),
		MinConfidence: aws.Float32(c.minConfidence),
	})
	if err != nil {
		return nil, fmt.Errorf("classifier: detect labels: %w", err)
	}

	res := &Result{StatusCode: http.StatusOK, Timestamp: c.now().Unix()}
	meta := responseMetadata{HTTPStatusCode: http.StatusOK}

	if raw, ok := awsmiddleware.GetRawResponse(out.ResultMetadata).(*smithyhttp.Response); ok && raw != nil && raw.Response != nil {
		res.StatusCode = raw.StatusCode
		meta.HTTPStatusCode = raw.StatusCode
		if date := raw.Header.Get("Date"); date != "" {
			meta.Date = date
			if ts, err := ParseResponseTime(date); err == nil {
				res.Timestamp = ts
			}
		}
	}
	if id, ok := awsmiddleware.GetRequestIDMetadata(out.ResultMetadata); ok {
		meta.RequestID = id
	}

	for _, l := range out.Labels {
		res.Labels = append(res.Labels, Label{
			Name:       aws.ToString(l.Name),
			Confidence: float64(aws.ToFloat32(l.Confidence)),
		})
	}

	res.IsMatch, err = c.verdict.Evaluate(res.Confidence())
	if err != nil {
		return nil, fmt.Errorf("classifier: verdict: %w", err)
	}

	body, err := json.Marshal(rawResponse{
		Labels:            res.Labels,
		LabelModelVersion: aws.ToString(out.LabelModelVersion),
		ResponseMetadata:  meta,
	})
	if err != nil {
		return nil, fmt.Errorf("classifier: encode response: %w", err)
	}
	res.Raw = string(body)

	return res, nil
}
