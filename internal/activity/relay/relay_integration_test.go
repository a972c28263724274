//go:build integration

package relay_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	activitymodels "dealflow/internal/activity/models"
	"dealflow/internal/activity/publisher"
	"dealflow/internal/activity/relay"
	activitystore "dealflow/internal/activity/store"
	"dealflow/internal/workflow/models"
	workflowstore "dealflow/internal/workflow/store"
	id "dealflow/pkg/domain"
	"dealflow/pkg/testutil/containers"
)

// RelayIntegrationSuite runs the outbox from Postgres through Redpanda.
type RelayIntegrationSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	redpanda *containers.RedpandaContainer
	ctx      context.Context
}

func TestRelayIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RelayIntegrationSuite))
}

func (s *RelayIntegrationSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.redpanda = mgr.GetRedpanda(s.T())
	s.ctx = context.Background()
}

func (s *RelayIntegrationSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(s.ctx, "outbox", "activity_log", "transaction_documents",
		"conditions", "transaction_steps", "property_profiles", "transactions"))
}

func (s *RelayIntegrationSuite) TestOutboxReachesTopic() {
	now := time.Now().UTC().Truncate(time.Microsecond)
	txn, err := models.NewTransaction(id.NewTransactionID(), id.NewUserID(), id.NewClientID(),
		models.TransactionTypeSale, "sale-standard", models.KeyDates{}, now)
	s.Require().NoError(err)
	step := id.NewStepID()
	txn.CurrentStepID = &step
	s.Require().NoError(workflowstore.NewPostgres(s.postgres.DB).CreateTransaction(s.ctx, txn))

	activity := activitystore.NewPostgres(s.postgres.DB)
	entry := &models.ActivityEntry{
		ID:            id.NewActivityID(),
		TransactionID: txn.ID,
		UserID:        txn.OwnerID,
		Type:          models.ActivityTransactionCreated,
		Metadata:      map[string]string{"template_id": "sale-standard"},
		CreatedAt:     now,
	}
	s.Require().NoError(activity.Append(s.ctx, entry))

	seen, err := activity.HasEntry(s.ctx, txn.ID, models.ActivityTransactionCreated, "template_id", "sale-standard")
	s.Require().NoError(err)
	s.True(seen)

	topic := "dealflow.activity." + txn.ID.String()
	client, err := kgo.NewClient(kgo.SeedBrokers(s.redpanda.Brokers...))
	s.Require().NoError(err)
	defer client.Close()
	pub := publisher.NewKafka(client, topic, nil)
	s.Require().NoError(pub.EnsureTopic(s.ctx, 1, 1))
	s.Require().NoError(pub.EnsureTopic(s.ctx, 1, 1), "existing topic is not an error")

	n, err := relay.New(activity, pub).Drain(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, n)

	n, err = relay.New(activity, pub).Drain(s.ctx)
	s.Require().NoError(err)
	s.Zero(n, "published rows are not relayed twice")

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.redpanda.Brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	ctx, cancel := context.WithTimeout(s.ctx, 15*time.Second)
	defer cancel()
	fetches := consumer.PollFetches(ctx)
	s.Require().NoError(fetches.Err())
	records := fetches.Records()
	s.Require().Len(records, 1)
	s.Equal(txn.ID.String(), string(records[0].Key))

	var evt activitymodels.Event
	s.Require().NoError(json.Unmarshal(records[0].Value, &evt))
	s.Equal("transaction_created", evt.Type)
	s.Equal(txn.OwnerID.String(), evt.UserID)
}
