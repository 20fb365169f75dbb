//go:build integration

package audit_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"nearhelp/internal/audit"
	"nearhelp/pkg/testutil/containers"
)

const testTopic = "nearhelp.help-request-audit.test"

type KafkaSinkSuite struct {
	suite.Suite
	kafka *containers.KafkaContainer
	sink  *audit.KafkaSink
}

func TestKafkaSinkSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaSinkSuite))
}

func (s *KafkaSinkSuite) SetupSuite() {
	s.kafka = containers.NewKafkaContainer(s.T())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sink, err := audit.NewKafkaSink(ctx, []string{s.kafka.Broker}, testTopic)
	s.Require().NoError(err)
	s.sink = sink
	s.T().Cleanup(sink.Close)
}

func (s *KafkaSinkSuite) TestAppendProducesKeyedRecord() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	event := audit.Event{
		Timestamp:     time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		HelpRequestID: "helprequest0000000001",
		UserID:        "supporter-1",
		Action:        audit.ActionVerificationSucceeded,
		RequestID:     "req-123",
	}
	s.Require().NoError(s.sink.Append(ctx, event))

	record := s.consumeOne(ctx)
	s.Equal([]byte("helprequest0000000001"), record.Key)

	var payload map[string]any
	require.NoError(s.T(), json.Unmarshal(record.Value, &payload))
	s.Equal("proximity_verification_succeeded", payload["action"])
	s.Equal("helprequest0000000001", payload["helpRequestId"])
	s.Equal("supporter-1", payload["userId"])
	s.Equal("req-123", payload["requestId"])
}

func (s *KafkaSinkSuite) consumeOne(ctx context.Context) *kgo.Record {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(s.kafka.Broker),
		kgo.ConsumeTopics(testTopic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer client.Close()

	for {
		fetches := client.PollFetches(ctx)
		s.Require().NoError(fetches.Err())
		if records := fetches.Records(); len(records) > 0 {
			return records[0]
		}
	}
}
