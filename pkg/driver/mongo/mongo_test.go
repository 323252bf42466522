package mongo

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/dmitrymomot/dbgate/pkg/driver"
)

func TestToRecord(t *testing.T) {
	t.Parallel()

	raw, err := bson.Marshal(bson.D{
		{Key: "ok", Value: 1.0},
		{Key: "cursor", Value: bson.D{
			{Key: "firstBatch", Value: bson.A{bson.D{{Key: "name", Value: "Ada"}}}},
		}},
	})
	require.NoError(t, err)

	rec, err := toRecord(raw)
	require.NoError(t, err)
	assert.Equal(t, 1.0, rec["ok"])

	cursor, ok := rec["cursor"].(map[string]any)
	require.True(t, ok)
	batch, ok := cursor["firstBatch"].([]any)
	require.True(t, ok)
	require.Len(t, batch, 1)
	assert.Equal(t, "Ada", batch[0].(map[string]any)["name"])
}

func TestClassify(t *testing.T) {
	t.Parallel()

	auth := classify(mongo.CommandError{Code: codeAuthenticationFailed, Message: "Authentication failed."})
	assert.ErrorIs(t, auth, driver.ErrAuthFailed)

	plain := errors.New("boom")
	assert.Equal(t, plain, classify(plain))
	assert.NoError(t, classify(nil))
}

func TestClientOptions(t *testing.T) {
	t.Parallel()
	d := New(DefaultConfig())

	opts := d.ClientOptions(driver.Target{Host: "db1", Port: 27017}, driver.Credentials{Username: "app", Password: "pw"})
	assert.Equal(t, []string{"db1:27017"}, opts.Hosts)
	require.NotNil(t, opts.Auth)
	assert.Equal(t, "app", opts.Auth.Username)
	assert.Equal(t, "admin", opts.Auth.AuthSource)
	assert.Equal(t, Name, d.Name())
}
