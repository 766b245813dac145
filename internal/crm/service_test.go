package crm

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conversly/lead-response/internal/loaders"
	"github.com/Conversly/lead-response/internal/types"
)

type fakeStore struct {
	customers     map[string]*types.Customer
	stages        []byte
	hasPipeline   bool
	notifications []types.Notification
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		customers:   map[string]*types.Customer{},
		stages:      []byte(`[{"id":1,"name":"New","entities":[{"entity_id":7,"entity_type":"default_customers","sort":0}]},{"id":2,"name":"Won"}]`),
		hasPipeline: true,
	}
}

func (f *fakeStore) GetChatbot(_ context.Context, chatbotID string) (*types.Chatbot, error) {
	if chatbotID != "bot-1" {
		return nil, loaders.ErrNotFound
	}
	return &types.Chatbot{ChatbotID: chatbotID, OrganizationID: "org-1"}, nil
}

func (f *fakeStore) GetCustomer(_ context.Context, _, email string) (*types.Customer, error) {
	c, ok := f.customers[email]
	if !ok {
		return nil, loaders.ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) UpsertCustomer(_ context.Context, orgID, email string, data map[string]any) (string, error) {
	c, ok := f.customers[email]
	if !ok {
		c = &types.Customer{ID: "42", OrganizationID: orgID, Email: email, CustomData: map[string]any{}}
		f.customers[email] = c
	}
	for k, v := range data {
		c.CustomData[k] = v
	}
	return c.ID, nil
}

func (f *fakeStore) UpdateDefaultPipeline(_ context.Context, _ string, fn loaders.StageMutator) (bool, error) {
	if !f.hasPipeline {
		return false, loaders.ErrPipelineNotFound
	}
	out, changed, err := fn(f.stages)
	if err != nil || !changed {
		return false, err
	}
	f.stages = out
	return true, nil
}

func (f *fakeStore) CreateNotification(_ context.Context, n types.Notification) error {
	f.notifications = append(f.notifications, n)
	return nil
}

func firstStageEntities(t *testing.T, raw []byte) []map[string]any {
	t.Helper()
	var stages []struct {
		Entities []map[string]any `json:"entities"`
	}
	require.NoError(t, json.Unmarshal(raw, &stages))
	require.NotEmpty(t, stages)
	return stages[0].Entities
}

func TestAddToFirstStageIsIdempotent(t *testing.T) {
	raw := []byte(`[{"id":1,"name":"New"}]`)

	once, changed, err := addToFirstStage(raw, "42")
	require.NoError(t, err)
	assert.True(t, changed)

	twice, changed, err := addToFirstStage(once, "42")
	require.NoError(t, err)
	assert.False(t, changed)

	entities := firstStageEntities(t, twice)
	require.Len(t, entities, 1)
	assert.Equal(t, float64(42), entities[0]["entity_id"])
	assert.Equal(t, EntityType, entities[0]["entity_type"])
}

func TestAddToFirstStageKeepsOtherFields(t *testing.T) {
	raw := []byte(`[{"id":1,"name":"New","color":"red","entities":[]}]`)
	out, _, err := addToFirstStage(raw, "abc")
	require.NoError(t, err)

	var stages []map[string]any
	require.NoError(t, json.Unmarshal(out, &stages))
	assert.Equal(t, "red", stages[0]["color"])
	assert.Equal(t, "abc", firstStageEntities(t, out)[0]["entity_id"])
}

func TestAddToFirstStageWithoutStages(t *testing.T) {
	_, _, err := addToFirstStage([]byte(`[]`), "1")
	assert.ErrorIs(t, err, ErrNoStages)
}

func TestSaveLead(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	ctx := context.Background()

	_, err := svc.SaveLead(ctx, "bot-1", "jane@acme.org", map[string]any{"name": "A"})
	require.NoError(t, err)
	_, err = svc.SaveLead(ctx, "bot-1", "jane@acme.org", map[string]any{"phone": "555"})
	require.NoError(t, err)

	data := store.customers["jane@acme.org"].CustomData
	assert.Equal(t, "A", data["name"])
	assert.Equal(t, "555", data["phone"])

	_, err = svc.SaveLead(ctx, "missing", "jane@acme.org", nil)
	assert.ErrorIs(t, err, loaders.ErrNotFound)
}

func TestQueueForSupport(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	ctx := context.Background()
	_, err := svc.SaveLead(ctx, "bot-1", "jane@acme.org", map[string]any{"name": "Jane"})
	require.NoError(t, err)

	c := Contact{ChatbotID: "bot-1", Email: "jane@acme.org", Name: "Jane"}
	require.NoError(t, svc.QueueForSupport(ctx, c))
	require.NoError(t, svc.QueueForSupport(ctx, c))

	entities := firstStageEntities(t, store.stages)
	assert.Len(t, entities, 2)
	require.Len(t, store.notifications, 2)
	assert.Equal(t, "Support Request (Pipeline)", store.notifications[0].Title)
	assert.Equal(t, "Jane added to support pipeline.", store.notifications[0].Message)
	assert.Equal(t, "org-1", store.notifications[0].OrganizationID)
}

func TestQueueForSupportFailures(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	ctx := context.Background()

	err := svc.QueueForSupport(ctx, Contact{ChatbotID: "bot-1", Email: "nobody@acme.org"})
	assert.ErrorIs(t, err, ErrCustomerNotFound)

	_, _ = svc.SaveLead(ctx, "bot-1", "jane@acme.org", nil)
	store.hasPipeline = false
	err = svc.QueueForSupport(ctx, Contact{ChatbotID: "bot-1", Email: "jane@acme.org"})
	assert.ErrorIs(t, err, loaders.ErrPipelineNotFound)
	assert.Empty(t, store.notifications)
}

func TestRequestCallback(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)

	err := svc.RequestCallback(context.Background(), Contact{ChatbotID: "bot-1", UserID: "u-1", Email: "jane@acme.org"})
	require.NoError(t, err)

	require.Len(t, store.notifications, 1)
	n := store.notifications[0]
	assert.Equal(t, NotificationCall, n.Type)
	assert.Equal(t, "Urgent Callback: jane@acme.org", n.Title)
	assert.Equal(t, "User has requested an immediate callback via chat. Phone: N/A", n.Message)
	assert.Equal(t, "u-1", n.Data["user_id"])
}
