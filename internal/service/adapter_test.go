package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"winshirt-sync/internal/model"
	"winshirt-sync/internal/notify"
	"winshirt-sync/internal/repository"
)

func productID(p *model.Product) int64 { return p.ID }

func TestFetchAllOfflineEmptyMirror(t *testing.T) {
	env := newTestEnv(t)
	env.offline()

	lotteries, err := NewLotteryAdapter(env.deps).FetchAll(context.Background(), false)
	require.NoError(t, err)
	assert.NotNil(t, lotteries)
	assert.Empty(t, lotteries)
}

func TestFetchAllOfflineReturnsMirror(t *testing.T) {
	env := newTestEnv(t)
	env.offline()
	env.setMirror(t, model.TableProducts, `[{"id":2,"name":"Tee","price":"20"},{"id":5,"name":"Hoodie","price":"45","secondaryImage":"b.png"}]`)

	products, err := NewProductAdapter(env.deps).FetchAll(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, int64(2), products[0].ID)
	assert.Equal(t, "Hoodie", products[1].Name)
	assert.Equal(t, "b.png", products[1].SecondaryImage)
	assert.True(t, products[1].Price.Equal(decimal.NewFromInt(45)))
}

func TestFetchAllOfflineMalformedMirror(t *testing.T) {
	env := newTestEnv(t)
	env.offline()
	env.setMirror(t, model.TableProducts, `{"not":"a list"}`)

	products, err := NewProductAdapter(env.deps).FetchAll(context.Background(), false)
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestReadinessFromSnakeCaseMirror(t *testing.T) {
	env := newTestEnv(t)
	env.offline()
	env.setMirror(t, model.TableLotteries, `[{"id":1,"status":"active","current_participants":5,"target_participants":5}]`)

	lottery, err := NewLotteryAdapter(env.deps).FetchByID(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, IsReadyForDraw(&lottery, testNow))
}

func TestFetchAllOnlineOverwritesMirror(t *testing.T) {
	env := newTestEnv(t)
	env.setMirror(t, model.TableProducts, `[{"id":9,"name":"Stale","price":"1"}]`)
	env.remote.Seed(model.TableProducts,
		repository.Row{"id": int64(1), "name": "Tee", "price": "20", "secondary_image": "tee-back.png"},
		repository.Row{"id": int64(2), "name": "Hoodie", "price": "45", "linked_lotteries": []any{int64(3)}},
	)

	products, err := NewProductAdapter(env.deps).FetchAll(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, products, 2)

	rows := env.mirrorRows(t, model.TableProducts)
	require.Len(t, rows, 2)
	assert.Equal(t, "tee-back.png", rows[0]["secondaryImage"])
	assert.NotContains(t, rows[0], "secondary_image")
	assert.Contains(t, rows[1], "linkedLotteries")

	status, ok, err := env.deps.Status.Get(context.Background(), model.TableProducts)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, status.Success)
	require.NotNil(t, status.LastSync)
	assert.True(t, status.LastSync.Equal(testNow))
}

func TestFetchAllRemoteFailureFallsBackToMirror(t *testing.T) {
	env := newTestEnv(t)
	env.setMirror(t, model.TableProducts, `[{"id":4,"name":"Cached","price":"10"}]`)
	env.remote.Seed(model.TableProducts, repository.Row{"id": int64(1), "name": "Fresh", "price": "20"})
	env.remote.FailNext(repository.OpSelect, errors.New("connection reset"))

	products, err := NewProductAdapter(env.deps).FetchAll(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Cached", products[0].Name)
	assert.True(t, env.hasNotification(notify.Warning))

	status, ok, err := env.deps.Status.Get(context.Background(), model.TableProducts)
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, status.Success)
	assert.Contains(t, status.Error, "connection reset")
}

func TestFetchAllQuarantinesInvalidRows(t *testing.T) {
	env := newTestEnv(t)
	env.remote.Seed(model.TableLotteries,
		repository.Row{"id": int64(1), "title": "Bike", "status": "active"},
		repository.Row{"id": int64(2), "title": "Car", "status": "exploded"},
		repository.Row{"id": int64(3), "status": "active"},
	)

	lotteries, err := NewLotteryAdapter(env.deps).FetchAll(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, lotteries, 1)
	assert.Equal(t, "Bike", lotteries[0].Title)

	status, _, err := env.deps.Status.Get(context.Background(), model.TableLotteries)
	require.NoError(t, err)
	assert.Equal(t, 2, status.Quarantined)
}

func TestFetchAllAssemblesChildren(t *testing.T) {
	env := newTestEnv(t)
	env.remote.Seed(model.TableLotteries,
		repository.Row{"id": int64(1), "title": "Bike", "status": "completed", "current_participants": int64(2), "target_participants": int64(2)},
		repository.Row{"id": int64(2), "title": "Car", "status": "active"},
	)
	env.remote.Seed(model.TableLotteryParticipants,
		repository.Row{"id": int64(11), "lottery_id": int64(1), "name": "Ana"},
		repository.Row{"id": int64(10), "lottery_id": int64(1), "name": "Bo"},
	)
	env.remote.Seed(model.TableLotteryWinners,
		repository.Row{"id": int64(1), "lottery_id": int64(1), "participant_id": int64(11), "name": "Ana", "drawn_at": "2025-02-01T10:00:00Z"},
	)

	lotteries, err := NewLotteryAdapter(env.deps).FetchAll(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, lotteries, 2)

	bike := lotteries[0]
	require.Len(t, bike.Participants, 2)
	assert.Equal(t, int64(10), bike.Participants[0].ID)
	require.NotNil(t, bike.Winner)
	assert.Equal(t, "Ana", bike.Winner.Name)

	assert.Empty(t, lotteries[1].Participants)
	assert.Nil(t, lotteries[1].Winner)

	rows := env.mirrorRows(t, model.TableLotteries)
	assert.Len(t, rows[0]["participants"], 2)
}

func TestFetchAllChildFailureSettlesEmpty(t *testing.T) {
	env := newTestEnv(t)
	env.remote.Seed(model.TableLotteries, repository.Row{"id": int64(1), "title": "Bike", "status": "active"})
	env.remote.Seed(model.TableLotteryParticipants, repository.Row{"lottery_id": int64(1), "name": "Ana"})
	env.remote.Seed(model.TableLotteryWinners, repository.Row{"lottery_id": int64(1), "name": "Ana"})
	// parent select succeeds, the participants query fails
	env.remote.FailNext(repository.OpSelect, nil)
	env.remote.FailNext(repository.OpSelect, errors.New("timeout"))

	lotteries, err := NewLotteryAdapter(env.deps).FetchAll(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, lotteries, 1)
	assert.Empty(t, lotteries[0].Participants)
	assert.NotNil(t, lotteries[0].Winner)
}

func TestCreateOnlineWritesBack(t *testing.T) {
	env := newTestEnv(t)
	env.setMirror(t, model.TableProducts, `[{"id":1,"name":"Tee","price":"20"}]`)
	env.remote.Seed(model.TableProducts, repository.Row{"id": int64(1), "name": "Tee", "price": "20"})

	created, err := NewProductAdapter(env.deps).Create(context.Background(), model.Product{
		Name:           "Hoodie",
		Price:          decimal.NewFromInt(45),
		SecondaryImage: "back.png",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), created.ID)

	assert.Equal(t, []int64{1, 2}, mirrorIDs(t, env, model.TableProducts, productID))
	rows := env.remoteRows(t, model.TableProducts)
	require.Len(t, rows, 2)
	assert.Equal(t, "back.png", rows[1]["secondary_image"])
	assert.True(t, env.hasNotification(notify.Success))
}

func TestCreateValidationMakesNoNetworkCall(t *testing.T) {
	env := newTestEnv(t)

	_, err := NewProductAdapter(env.deps).Create(context.Background(), model.Product{Name: "", Price: decimal.NewFromInt(10)})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "name")
	assert.Zero(t, env.remote.Calls())
	assert.True(t, env.hasNotification(notify.Error))
}

func TestCreateOfflineAssignsNextID(t *testing.T) {
	env := newTestEnv(t)
	env.offline()
	products := NewProductAdapter(env.deps)

	first, err := products.Create(context.Background(), model.Product{Name: "Tee", Price: decimal.NewFromInt(20)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.ID)

	env.setMirror(t, model.TableProducts, `[{"id":3,"name":"A","price":"1"},{"id":7,"name":"B","price":"1"}]`)
	next, err := products.Create(context.Background(), model.Product{Name: "Cap", Price: decimal.NewFromInt(12)})
	require.NoError(t, err)
	assert.Equal(t, int64(8), next.ID)
	assert.Equal(t, []int64{3, 7, 8}, mirrorIDs(t, env, model.TableProducts, productID))
	assert.True(t, env.hasNotification(notify.Info))
}

func TestCreateRemoteFailureLeavesMirror(t *testing.T) {
	env := newTestEnv(t)
	env.setMirror(t, model.TableProducts, `[{"id":1,"name":"Tee","price":"20"}]`)
	env.remote.FailNext(repository.OpInsert, errors.New("disk full"))

	_, err := NewProductAdapter(env.deps).Create(context.Background(), model.Product{Name: "Cap", Price: decimal.NewFromInt(12)})
	var re *RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "insert", re.Op)
	assert.Equal(t, []int64{1}, mirrorIDs(t, env, model.TableProducts, productID))
	assert.True(t, env.hasNotification(notify.Error))
}

func TestRemoteWriteReportsStaleMirror(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.remote.Seed(model.TableProducts, repository.Row{"id": int64(1), "name": "Tee", "price": "20"})
	env.deps.Mirror = &failingTableStore{MemoryStore: env.store, table: model.TableProducts}
	products := NewProductAdapter(env.deps)

	created, err := products.Create(ctx, model.Product{Name: "Cap", Price: decimal.NewFromInt(12)})
	require.NoError(t, err)
	assert.Equal(t, int64(2), created.ID)
	assert.True(t, env.hasNotification(notify.Warning))

	status, ok, err := env.deps.Status.Get(ctx, model.TableProducts)
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, status.Success)
	assert.Contains(t, status.Error, "mirror disk full")

	_, err = products.ToggleFeatured(ctx, 1, true)
	require.NoError(t, err)
	assert.Len(t, env.remoteRows(t, model.TableProducts), 2)
}

func TestUpdateOnlineReplacesAndPreservesChildren(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.remote.Seed(model.TableLotteries, repository.Row{"id": int64(1), "title": "Bike", "status": "active", "target_participants": int64(10)})
	env.remote.Seed(model.TableLotteryParticipants, repository.Row{"id": int64(1), "lottery_id": int64(1), "name": "Ana"})

	lotteries := NewLotteryAdapter(env.deps)
	before, err := lotteries.FetchByID(ctx, 1)
	require.NoError(t, err)
	require.Len(t, before.Participants, 1)

	edit := before
	edit.Title = "Mountain bike"
	edit.Participants = nil
	updated, err := lotteries.Update(ctx, edit)
	require.NoError(t, err)
	assert.Equal(t, "Mountain bike", updated.Title)
	assert.Len(t, updated.Participants, 1)

	env.offline()
	cached, err := lotteries.FetchAll(ctx, false)
	require.NoError(t, err)
	require.Len(t, cached, 1)
	assert.Equal(t, "Mountain bike", cached[0].Title)
	assert.Len(t, cached[0].Participants, 1)
}

func TestUpdateUnknownID(t *testing.T) {
	env := newTestEnv(t)
	products := NewProductAdapter(env.deps)
	p := model.Product{ID: 42, Name: "Ghost", Price: decimal.NewFromInt(5)}

	_, err := products.Update(context.Background(), p)
	assert.ErrorIs(t, err, ErrNotFound)

	env.offline()
	_, err = products.Update(context.Background(), p)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, env.hasNotification(notify.Warning))
}

func TestUpdateOfflineReplacesMirrorEntry(t *testing.T) {
	env := newTestEnv(t)
	env.offline()
	env.setMirror(t, model.TableProducts, `[{"id":1,"name":"Tee","price":"20"},{"id":2,"name":"Cap","price":"8"}]`)

	out, err := NewProductAdapter(env.deps).Update(context.Background(), model.Product{ID: 2, Name: "Snapback", Price: decimal.NewFromInt(9)})
	require.NoError(t, err)
	assert.Equal(t, "Snapback", out.Name)

	rows := env.mirrorRows(t, model.TableProducts)
	require.Len(t, rows, 2)
	assert.Equal(t, "Snapback", rows[1]["name"])
}

func TestDeleteRemovesFromMirror(t *testing.T) {
	ctx := context.Background()

	t.Run("online", func(t *testing.T) {
		env := newTestEnv(t)
		env.setMirror(t, model.TableProducts, `[{"id":1,"name":"Tee","price":"20"},{"id":2,"name":"Cap","price":"8"}]`)
		env.remote.Seed(model.TableProducts, repository.Row{"id": int64(1), "name": "Tee"}, repository.Row{"id": int64(2), "name": "Cap"})

		require.NoError(t, NewProductAdapter(env.deps).Delete(ctx, 1))
		assert.Equal(t, []int64{2}, mirrorIDs(t, env, model.TableProducts, productID))
		assert.Len(t, env.remoteRows(t, model.TableProducts), 1)
	})

	t.Run("remote failure", func(t *testing.T) {
		env := newTestEnv(t)
		env.setMirror(t, model.TableProducts, `[{"id":1,"name":"Tee","price":"20"}]`)
		env.remote.FailNext(repository.OpDelete, errors.New("locked"))

		err := NewProductAdapter(env.deps).Delete(ctx, 1)
		var re *RemoteError
		require.ErrorAs(t, err, &re)
		assert.Empty(t, mirrorIDs(t, env, model.TableProducts, productID))
	})

	t.Run("offline", func(t *testing.T) {
		env := newTestEnv(t)
		env.offline()
		env.setMirror(t, model.TableProducts, `[{"id":1,"name":"Tee","price":"20"},{"id":2,"name":"Cap","price":"8"}]`)

		require.NoError(t, NewProductAdapter(env.deps).Delete(ctx, 2))
		assert.Equal(t, []int64{1}, mirrorIDs(t, env, model.TableProducts, productID))
	})
}

func TestDeleteRemovesChildrenFirst(t *testing.T) {
	env := newTestEnv(t)
	env.remote.Seed(model.TableLotteries, repository.Row{"id": int64(1), "title": "Bike", "status": "active"})
	env.remote.Seed(model.TableLotteryParticipants,
		repository.Row{"lottery_id": int64(1), "name": "Ana"},
		repository.Row{"lottery_id": int64(2), "name": "Other"},
	)

	require.NoError(t, NewLotteryAdapter(env.deps).Delete(context.Background(), 1))
	assert.Empty(t, env.remoteRows(t, model.TableLotteries))
	participants := env.remoteRows(t, model.TableLotteryParticipants)
	require.Len(t, participants, 1)
	assert.Equal(t, "Other", participants[0]["name"])
}

func TestDeleteChildFailureDoesNotAbort(t *testing.T) {
	env := newTestEnv(t)
	env.remote.Seed(model.TableOrders, repository.Row{"id": int64(1), "client_name": "Ana"})
	env.remote.FailNext(repository.OpDelete, errors.New("child table locked"))

	require.NoError(t, NewOrderAdapter(env.deps).Delete(context.Background(), 1))
	assert.Empty(t, env.remoteRows(t, model.TableOrders))
}

func TestPushMirrorUpsertsByID(t *testing.T) {
	env := newTestEnv(t)
	env.setMirror(t, model.TableLotteries, `[{"id":4,"title":"Bike","status":"active","participants":[{"id":2,"lotteryId":4,"name":"Ana"}]}]`)

	pushed, err := NewLotteryAdapter(env.deps).PushMirror(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, pushed)

	lotteries := env.remoteRows(t, model.TableLotteries)
	require.Len(t, lotteries, 1)
	id, _ := repository.RowID(lotteries[0])
	assert.Equal(t, int64(4), id)
	participants := env.remoteRows(t, model.TableLotteryParticipants)
	require.Len(t, participants, 1)
	lotteryID, _ := repository.RowID(repository.Row{"id": participants[0]["lottery_id"]})
	assert.Equal(t, int64(4), lotteryID)
}
