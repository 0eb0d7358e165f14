package batch

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/raywall/cat-wrangler/dyndb"
	"github.com/raywall/cat-wrangler/pkg/record"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	items map[record.TableKey]map[string]types.AttributeValue
	errs  map[record.TableKey]error
	calls []record.TableKey
}

func (f *fakeReader) Get(ctx context.Context, hashValue, sortValue any) (map[string]types.AttributeValue, error) {
	key := record.TableKey{BatchID: hashValue.(string), ImgFprint: sortValue.(string)}
	f.calls = append(f.calls, key)
	if err, ok := f.errs[key]; ok {
		return nil, err
	}
	if item, ok := f.items[key]; ok {
		return item, nil
	}
	return nil, dyndb.ErrNotFound
}

func item(batchID, fp string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		record.FieldBatchID:   &types.AttributeValueMemberN{Value: batchID},
		record.FieldImgFprint: &types.AttributeValueMemberS{Value: fp},
		record.FieldOpStatus:  &types.AttributeValueMemberS{Value: "success"},
		record.FieldRekIsCat:  &types.AttributeValueMemberS{Value: "true"},
	}
}

func TestNormalize(t *testing.T) {
	for _, in := range []string{"batch-456", "456", " 456 ", "0456"} {
		key, err := Normalize(in, "abc")
		require.NoError(t, err, in)
		assert.Equal(t, record.TableKey{BatchID: "456", ImgFprint: "abc"}, key)
	}

	for _, in := range []string{"invalid-format", "batch-", "", "batch-4.5", "batch-batch-1"} {
		_, err := Normalize(in, "abc")
		var ve *dyndb.ValidationError
		require.ErrorAs(t, err, &ve, in)
		assert.Equal(t, record.FieldBatchID, ve.Field)
	}

	_, err := Normalize("456", "")
	var ve *dyndb.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, record.FieldImgFprint, ve.Field)
}

func TestLookup(t *testing.T) {
	reader := &fakeReader{items: map[record.TableKey]map[string]types.AttributeValue{
		{BatchID: "456", ImgFprint: "abc"}: item("456", "abc"),
	}}
	n := NewNormalizer(reader, zerolog.Nop())

	t.Run("prefixed and bare ids find the same record", func(t *testing.T) {
		a, err := n.Lookup(context.Background(), "batch-456", "abc")
		require.NoError(t, err)
		b, err := n.Lookup(context.Background(), "456", "abc")
		require.NoError(t, err)
		assert.Equal(t, a, b)
		assert.Equal(t, record.StatusSuccess, a.OpStatus)
	})

	t.Run("invalid id fails without a read", func(t *testing.T) {
		before := len(reader.calls)
		_, err := n.Lookup(context.Background(), "invalid-format", "abc")
		var ve *dyndb.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Len(t, reader.calls, before)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := n.Lookup(context.Background(), "batch-1", "zzz")
		assert.ErrorIs(t, err, dyndb.ErrNotFound)
	})
}

func TestLookupMany(t *testing.T) {
	boom := errors.New("throttled")
	reader := &fakeReader{
		items: map[record.TableKey]map[string]types.AttributeValue{
			{BatchID: "456", ImgFprint: "a"}: item("456", "a"),
			{BatchID: "456", ImgFprint: "c"}: item("456", "c"),
		},
		errs: map[record.TableKey]error{
			{BatchID: "456", ImgFprint: "e"}: boom,
		},
	}
	n := NewNormalizer(reader, zerolog.Nop())

	t.Run("one malformed id is skipped", func(t *testing.T) {
		report := n.LookupMany(context.Background(), []Entry{
			{BatchID: "batch-456", ImgFprint: "a", OriginalFileName: "tom.jpg"},
			{BatchID: "invalid-format", ImgFprint: "b", OriginalFileName: "bad.jpg"},
			{BatchID: "batch-456", ImgFprint: "c"},
		})

		require.Len(t, report.Results, 3)
		assert.Equal(t, StatusInvalid, report.Results[1].Status)

		found := report.Found()
		require.Len(t, found, 2)
		assert.Equal(t, "a", found[0].Record.ImgFprint)
		assert.Equal(t, "tom.jpg", found[0].FileName())
		assert.Equal(t, "c", found[1].Record.ImgFprint)
		assert.Equal(t, NotAvailable, found[1].FileName())
	})

	t.Run("every failure kind is reported", func(t *testing.T) {
		report := n.LookupMany(context.Background(), []Entry{
			{BatchID: "456", ImgFprint: "d"},
			{BatchID: "", ImgFprint: "x"},
			{BatchID: "batch-456", ImgFprint: "e"},
			{BatchID: "456", ImgFprint: "a"},
		})

		statuses := make([]Status, 0, len(report.Results))
		for _, r := range report.Results {
			statuses = append(statuses, r.Status)
		}
		assert.Equal(t, []Status{StatusNotFound, StatusMissing, StatusFailed, StatusFound}, statuses)
		assert.ErrorIs(t, report.Results[2].Err, boom)
		assert.Equal(t, 1, report.Count(StatusFound))
	})

	t.Run("cancelled context stops reading", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		before := len(reader.calls)

		report := n.LookupMany(ctx, []Entry{{BatchID: "456", ImgFprint: "a"}})
		assert.Equal(t, StatusFailed, report.Results[0].Status)
		assert.ErrorIs(t, report.Results[0].Err, context.Canceled)
		assert.Len(t, reader.calls, before)
	})

	t.Run("missing entry names the absent field", func(t *testing.T) {
		report := n.LookupMany(context.Background(), []Entry{
			{BatchID: "", ImgFprint: "x"},
			{BatchID: "456", ImgFprint: ""},
		})

		var ve *dyndb.ValidationError
		require.ErrorAs(t, report.Results[0].Err, &ve)
		assert.Equal(t, record.FieldBatchID, ve.Field)
		require.ErrorAs(t, report.Results[1].Err, &ve)
		assert.Equal(t, record.FieldImgFprint, ve.Field)
	})
}

func TestLookupMany_LogsCancellationOnce(t *testing.T) {
	var buf bytes.Buffer
	reader := &fakeReader{}
	n := NewNormalizer(reader, zerolog.New(&buf))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := n.LookupMany(ctx, []Entry{
		{BatchID: "456", ImgFprint: "a"},
		{BatchID: "456", ImgFprint: "b"},
		{BatchID: "456", ImgFprint: "c"},
	})

	assert.Equal(t, 3, report.Count(StatusFailed))
	assert.Empty(t, reader.calls)
	assert.Equal(t, 1, strings.Count(buf.String(), "busca interrompida"))
	assert.Contains(t, buf.String(), `"remaining":3`)
}
