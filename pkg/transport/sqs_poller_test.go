package transport

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/raywall/cat-wrangler/dyndb"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const queueURL = "https://sqs.eu-west-1.amazonaws.com/123/cat-wrangler-events"

// --- Mocks ---

type MockSQSClient struct {
	mock.Mock
}

func (m *MockSQSClient) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sqs.ReceiveMessageOutput), args.Error(1)
}

func (m *MockSQSClient) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	args := m.Called(ctx, params)
	return nil, args.Error(1)
}

// MockEventHandler Thread-Safe
type MockEventHandler struct {
	mu   sync.Mutex
	Keys []string
	Err  error
}

func (m *MockEventHandler) Handle(ctx context.Context, evt events.S3Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range evt.Records {
		m.Keys = append(m.Keys, r.S3.Object.URLDecodedKey)
	}
	return m.Err
}

func (m *MockEventHandler) Handled() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Keys...)
}

const s3Body = `{"Records":[{"eventSource":"aws:s3","eventName":"ObjectCreated:Put","s3":{"bucket":{"name":"src"},"object":{"key":"fp/c/batch-1/d/my+cat.jpg","size":10}}}]}`

func message(body, handle string) types.Message {
	return types.Message{Body: stringPtr(body), ReceiptHandle: stringPtr(handle), MessageId: stringPtr("id-" + handle)}
}

func runPoller(t *testing.T, client *MockSQSClient, handler EventHandler) {
	t.Helper()
	poller := NewSQSPoller(client, queueURL, handler, zerolog.Nop())
	poller.retryDelay = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- poller.Start(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
}

// --- Tests ---

func TestSQSPoller_DeletesOnSuccess(t *testing.T) {
	client := new(MockSQSClient)
	handler := &MockEventHandler{}

	client.On("ReceiveMessage", mock.Anything, mock.Anything).Return(&sqs.ReceiveMessageOutput{
		Messages: []types.Message{message(s3Body, "handle_ok")},
	}, nil).Once()
	client.On("ReceiveMessage", mock.Anything, mock.Anything).Return(&sqs.ReceiveMessageOutput{}, nil).After(5 * time.Millisecond).Maybe()
	client.On("DeleteMessage", mock.Anything, mock.Anything).Return(nil, nil)

	runPoller(t, client, handler)

	assert.Equal(t, []string{"fp/c/batch-1/d/my cat.jpg"}, handler.Handled())
	client.AssertCalled(t, "DeleteMessage", mock.Anything, &sqs.DeleteMessageInput{
		QueueUrl:      stringPtr(queueURL),
		ReceiptHandle: stringPtr("handle_ok"),
	})
}

func TestSQSPoller_KeepsFailedMessages(t *testing.T) {
	client := new(MockSQSClient)
	handler := &MockEventHandler{Err: errors.New("classification failed")}

	client.On("ReceiveMessage", mock.Anything, mock.Anything).Return(&sqs.ReceiveMessageOutput{
		Messages: []types.Message{
			message(s3Body, "handle_fail"),
			message("not json", "handle_garbage"),
		},
	}, nil).Once()
	client.On("ReceiveMessage", mock.Anything, mock.Anything).Return(&sqs.ReceiveMessageOutput{}, nil).After(5 * time.Millisecond).Maybe()

	runPoller(t, client, handler)

	assert.Len(t, handler.Handled(), 1)
	client.AssertNotCalled(t, "DeleteMessage", mock.Anything, mock.Anything)
}

func TestSQSPoller_DeletesDuplicateDeliveries(t *testing.T) {
	client := new(MockSQSClient)
	proc := &fakeProcessor{errs: map[string]error{"fp/c/batch-1/d/my cat.jpg": dyndb.ErrAlreadyExists}}
	handler := NewS3EventHandler(proc, zerolog.Nop())

	client.On("ReceiveMessage", mock.Anything, mock.Anything).Return(&sqs.ReceiveMessageOutput{
		Messages: []types.Message{message(s3Body, "handle_dup")},
	}, nil).Once()
	client.On("ReceiveMessage", mock.Anything, mock.Anything).Return(&sqs.ReceiveMessageOutput{}, nil).After(5 * time.Millisecond).Maybe()
	client.On("DeleteMessage", mock.Anything, mock.Anything).Return(nil, nil)

	runPoller(t, client, handler)

	assert.Equal(t, []string{"fp/c/batch-1/d/my cat.jpg"}, proc.keys)
	client.AssertCalled(t, "DeleteMessage", mock.Anything, &sqs.DeleteMessageInput{
		QueueUrl:      stringPtr(queueURL),
		ReceiptHandle: stringPtr("handle_dup"),
	})
}

func TestSQSPoller_DiscardsTestEvents(t *testing.T) {
	client := new(MockSQSClient)
	handler := &MockEventHandler{}

	client.On("ReceiveMessage", mock.Anything, mock.Anything).Return(&sqs.ReceiveMessageOutput{
		Messages: []types.Message{message(`{"Service":"Amazon S3","Event":"s3:TestEvent"}`, "handle_test")},
	}, nil).Once()
	client.On("ReceiveMessage", mock.Anything, mock.Anything).Return(&sqs.ReceiveMessageOutput{}, nil).After(5 * time.Millisecond).Maybe()
	client.On("DeleteMessage", mock.Anything, mock.Anything).Return(nil, nil)

	runPoller(t, client, handler)

	assert.Empty(t, handler.Handled())
	client.AssertNumberOfCalls(t, "DeleteMessage", 1)
}

func TestSQSPoller_RetriesReceiveErrors(t *testing.T) {
	client := new(MockSQSClient)
	client.On("ReceiveMessage", mock.Anything, mock.Anything).Return(nil, errors.New("throttled")).Once()
	client.On("ReceiveMessage", mock.Anything, mock.Anything).Return(&sqs.ReceiveMessageOutput{}, nil).After(5 * time.Millisecond).Maybe()

	runPoller(t, client, &MockEventHandler{})

	assert.GreaterOrEqual(t, len(client.Calls), 2)
}

func TestSQSPoller_RequiresQueue(t *testing.T) {
	err := NewSQSPoller(new(MockSQSClient), "", &MockEventHandler{}, zerolog.Nop()).Start(context.Background())
	assert.Error(t, err)
}

func stringPtr(s string) *string {
	return &s
}
