package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	id "signup/pkg/domain"
	audit "signup/pkg/platform/audit"
)

type recordingProducer struct {
	records []*kgo.Record
	err     error
}

func (p *recordingProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		p.records = append(p.records, r)
		results = append(results, kgo.ProduceResult{Record: r, Err: p.err})
	}
	return results
}

func TestStore_Append(t *testing.T) {
	producer := &recordingProducer{}
	store := New(producer, "signup.audit")

	regID := id.MustNewRegistrationID()
	event := audit.Event{
		Category:       audit.CategoryCompliance,
		Timestamp:      time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC),
		RegistrationID: regID,
		Action:         audit.ActionInitialInfoCompleted,
		ClientID:       "web",
	}
	require.NoError(t, store.Append(context.Background(), event))

	require.Len(t, producer.records, 1)
	record := producer.records[0]
	assert.Equal(t, "signup.audit", record.Topic)
	assert.Equal(t, regID.String(), string(record.Key))
	assert.Contains(t, record.Headers, kgo.RecordHeader{Key: "action", Value: []byte(audit.ActionInitialInfoCompleted)})

	var decoded audit.Event
	require.NoError(t, json.Unmarshal(record.Value, &decoded))
	assert.Equal(t, event, decoded)
}

func TestStore_AppendPropagatesProduceError(t *testing.T) {
	producer := &recordingProducer{err: errors.New("leader not available")}
	store := New(producer, "signup.audit")

	err := store.Append(context.Background(), audit.Event{
		RegistrationID: id.MustNewRegistrationID(),
		Action:         audit.ActionRegistrationStarted,
	})
	require.ErrorContains(t, err, "leader not available")
}
