package directory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallet_ledger/internal/dbtest"
	"wallet_ledger/internal/domain"
)

func newTestDirectory(t *testing.T) *SQLDirectory {
	t.Helper()
	gdb := dbtest.Open(t)

	users := []domain.User{
		{Username: "amina", Name: "Amina", Email: "Amina@example.com", Phone: "+221700000001", Password: "x", Role: domain.RoleUser},
		{Username: "moussa", Name: "Moussa", Email: "moussa@example.com", Phone: "+221700000002", Password: "x", Role: domain.RoleAdmin},
	}
	require.NoError(t, gdb.Create(&users).Error)
	require.NoError(t, gdb.Create(&domain.Delivery{
		ID: "d-1", Type: domain.DeliveryTypeOffer, SenderID: users[0].ID, ReceiverID: users[1].ID, FromCity: "Dakar", ToCity: "Paris",
	}).Error)

	return NewSQLDirectory(dbtest.SQLX(t, gdb))
}

func TestGetUser(t *testing.T) {
	d := newTestDirectory(t)
	ctx := context.Background()

	u, err := d.GetUser(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "moussa", u.Username)
	assert.True(t, u.IsAdmin())
	assert.Empty(t, u.Password, "password hash is never selected")

	_, err = d.GetUser(ctx, 99)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestFindByContact(t *testing.T) {
	d := newTestDirectory(t)
	ctx := context.Background()

	u, err := d.FindByContact(ctx, "amina@EXAMPLE.com")
	require.NoError(t, err)
	assert.Equal(t, uint(1), u.ID)

	u, err = d.FindByContact(ctx, "+221700000002")
	require.NoError(t, err)
	assert.Equal(t, uint(2), u.ID)

	_, err = d.FindByContact(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	_, err = d.FindByContact(ctx, " ")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestListUsers(t *testing.T) {
	d := newTestDirectory(t)

	users, err := d.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "amina", users[0].Username)
}

func TestGetDelivery(t *testing.T) {
	d := newTestDirectory(t)
	ctx := context.Background()

	del, err := d.GetDelivery(ctx, "d-1")
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryTypeOffer, del.Type)
	assert.Equal(t, "Dakar", del.FromCity)

	payer, recipient, ok := del.Parties()
	assert.True(t, ok)
	assert.Equal(t, del.ReceiverID, payer)
	assert.Equal(t, del.SenderID, recipient)

	_, err = d.GetDelivery(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrDeliveryNotFound)
}
