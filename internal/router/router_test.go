package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"winshirt-sync/internal/handler"
	"winshirt-sync/internal/middleware"
	"winshirt-sync/internal/mirror"
	"winshirt-sync/internal/model"
	"winshirt-sync/internal/notify"
	"winshirt-sync/internal/repository"
	"winshirt-sync/internal/service"
)

const adminKey = "test-admin-key"

type apiEnv struct {
	remote *repository.MemoryRemote
	store  *mirror.MemoryStore
	feed   *notify.Feed
	srv    http.Handler
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	remote := repository.NewMemoryRemote()
	store := mirror.NewMemoryStore()
	feed := notify.NewFeed(50)
	probe := service.NewProbe(remote, model.TableLotteries, zerolog.Nop())
	status := mirror.NewStatusBook(store)

	catalog := service.NewCatalog(service.Deps{
		Remote:   remote,
		Mirror:   store,
		Probe:    probe,
		Notifier: feed,
		Status:   status,
		Logger:   zerolog.Nop(),
	})

	srv := New(Config{
		Logger:     zerolog.Nop(),
		Handler:    handler.New(probe, store, "winshirt-sync", "test"),
		Lotteries:  handler.NewLotteryHandler(catalog.Lotteries),
		Products:   handler.NewProductHandler(catalog.Products),
		Orders:     handler.NewOrderHandler(catalog.Orders, catalog.Checkout),
		Clients:    handler.NewClientHandler(catalog.Clients),
		Visuals:    handler.NewVisualHandler(catalog.Visuals),
		Categories: handler.NewCategoryHandler(catalog.Categories),
		AdminHandler: handler.NewAdminHandler(handler.AdminConfig{
			Backup:     catalog.Backup,
			Status:     status,
			Resync:     service.NewResyncScheduler(probe, service.ResyncConfig{}, zerolog.Nop(), catalog.Tables()...),
			Remote:     remote,
			Mirror:     store,
			RemoteType: "memory",
			MirrorType: "memory",
		}),
		NotificationHandler: handler.NewNotificationHandler(feed),
		AdminMiddleware:     middleware.RequireAdmin(middleware.AuthConfig{AdminKey: adminKey}),
	})

	return &apiEnv{remote: remote, store: store, feed: feed, srv: srv}
}

func (e *apiEnv) do(t *testing.T, method, path string, body any, admin bool) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if admin {
		req.Header.Set("X-Admin-Key", adminKey)
	}
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

type envelope[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details []struct {
			Field string `json:"field"`
		} `json:"details"`
	} `json:"error"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func (e *apiEnv) createLottery(t *testing.T, title string, target int) model.Lottery {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/v1/lotteries", map[string]any{
		"title":              title,
		"value":              "120",
		"targetParticipants": target,
	}, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[model.Lottery](t, rec).Data
}

func TestHealthAndStatus(t *testing.T) {
	e := newAPIEnv(t)

	rec := e.do(t, http.MethodGet, "/api/v1/health", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = e.do(t, http.MethodGet, "/api/v1/ready", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	ready := decode[handler.ReadyResponse](t, rec).Data
	assert.True(t, ready.Ready)
	assert.True(t, ready.Online)

	e.remote.SetOffline(true)
	rec = e.do(t, http.MethodGet, "/api/v1/ready", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	ready = decode[handler.ReadyResponse](t, rec).Data
	assert.True(t, ready.Ready)
	assert.False(t, ready.Online)

	rec = e.do(t, http.MethodGet, "/api/status", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "degraded", decode[handler.StatusResponse](t, rec).Data.Status)
}

func TestWritesRequireAdmin(t *testing.T) {
	e := newAPIEnv(t)

	rec := e.do(t, http.MethodPost, "/api/v1/lotteries", map[string]any{"title": "Hoodie"}, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/v1/lotteries", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/v1/orders", nil, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/v1/admin/sync", nil, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLotteryLifecycleThroughCheckout(t *testing.T) {
	e := newAPIEnv(t)
	lottery := e.createLottery(t, "Summer tee", 2)
	assert.Equal(t, model.LotteryActive, lottery.Status)

	rec := e.do(t, http.MethodPost, "/api/v1/products", map[string]any{
		"name":            "Classic tee",
		"price":           "25",
		"linkedLotteries": []int64{lottery.ID},
	}, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	product := decode[model.Product](t, rec).Data

	rec = e.do(t, http.MethodPost, "/api/v1/lotteries/"+fmt.Sprint(lottery.ID)+"/draw", nil, true)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "NOT_READY", decode[any](t, rec).Error.Code)

	rec = e.do(t, http.MethodPost, "/api/v1/orders", map[string]any{
		"clientName":  "Ana",
		"clientEmail": "ana@example.com",
		"items":       []map[string]any{{"productId": product.ID, "quantity": 2}},
		"shipping":    map[string]any{"address": "1 Rue Neuve", "cost": "15"},
	}, false)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	receipt := decode[service.Receipt](t, rec).Data
	assert.Equal(t, "65", receipt.Order.Total.String())
	assert.Len(t, receipt.Tickets, 2)
	assert.Equal(t, 1, receipt.Client.OrderCount)

	rec = e.do(t, http.MethodGet, "/api/v1/lotteries/"+fmt.Sprint(lottery.ID)+"/ready", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	readiness := decode[handler.LotteryReadyResponse](t, rec).Data
	assert.True(t, readiness.Ready)
	assert.Equal(t, 2, readiness.CurrentParticipants)

	rec = e.do(t, http.MethodPost, "/api/v1/lotteries/"+fmt.Sprint(lottery.ID)+"/draw", nil, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	drawn := decode[model.Lottery](t, rec).Data
	assert.Equal(t, model.LotteryCompleted, drawn.Status)
	require.NotNil(t, drawn.Winner)
	assert.Equal(t, "Ana", drawn.Winner.Name)

	rec = e.do(t, http.MethodPost, "/api/v1/lotteries/"+fmt.Sprint(lottery.ID)+"/relaunch", nil, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	relaunched := decode[model.Lottery](t, rec).Data
	assert.NotEqual(t, lottery.ID, relaunched.ID)
	assert.Equal(t, 0, relaunched.CurrentParticipants)
}

func TestOfflineReadsServeMirror(t *testing.T) {
	e := newAPIEnv(t)
	created := e.createLottery(t, "Winter hoodie", 10)

	e.remote.SetOffline(true)
	rec := e.do(t, http.MethodGet, "/api/v1/lotteries", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]model.Lottery](t, rec).Data
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)
}

func TestErrorMapping(t *testing.T) {
	e := newAPIEnv(t)

	rec := e.do(t, http.MethodGet, "/api/v1/lotteries/999", nil, false)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/v1/lotteries/abc", nil, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/v1/products", map[string]any{"name": " ", "price": "0"}, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[any](t, rec)
	assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
	assert.NotEmpty(t, body.Error.Details)

	rec = e.do(t, http.MethodPost, "/api/v1/categories", map[string]any{"name": "Retro"}, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	category := decode[model.VisualCategory](t, rec).Data

	rec = e.do(t, http.MethodPost, "/api/v1/visuals", map[string]any{
		"name":       "Sunset",
		"image":      "sunset.png",
		"categoryId": category.ID,
	}, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Retro", decode[model.Visual](t, rec).Data.CategoryName)

	rec = e.do(t, http.MethodDelete, "/api/v1/categories/"+fmt.Sprint(category.ID), nil, true)
	assert.Equal(t, http.StatusConflict, rec.Code)

	e.remote.FailNext(repository.OpUpdate, fmt.Errorf("connection reset"))
	rec = e.do(t, http.MethodPost, "/api/v1/categories", map[string]any{"name": "Neon"}, true)
	require.Equal(t, http.StatusCreated, rec.Code)
	neon := decode[model.VisualCategory](t, rec).Data
	rec = e.do(t, http.MethodPut, "/api/v1/categories/"+fmt.Sprint(neon.ID), map[string]any{"name": "Neon 2"}, true)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestBackupRestoreAndClear(t *testing.T) {
	e := newAPIEnv(t)
	e.createLottery(t, "Backup tee", 5)

	rec := e.do(t, http.MethodGet, "/api/v1/admin/backup", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "winshirt-backup-")
	var snap map[string][]map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.Len(t, snap[model.TableLotteries], 1)
	assert.Equal(t, "Backup tee", snap[model.TableLotteries][0]["title"])

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/restore", bytes.NewBufferString(`[1,2]`))
	req.Header.Set("X-Admin-Key", adminKey)
	bad := httptest.NewRecorder()
	e.srv.ServeHTTP(bad, req)
	assert.Equal(t, http.StatusBadRequest, bad.Code)

	rec = e.do(t, http.MethodPost, "/api/v1/admin/clear", nil, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/v1/admin/clear?confirm=true", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	keys, err := e.store.Keys(t.Context())
	require.NoError(t, err)
	assert.Empty(t, keys)

	payload, err := json.Marshal(snap)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/admin/restore", bytes.NewReader(payload))
	req.Header.Set("X-Admin-Key", adminKey)
	restored := httptest.NewRecorder()
	e.srv.ServeHTTP(restored, req)
	require.Equal(t, http.StatusOK, restored.Code, restored.Body.String())
	report := decode[service.ImportReport](t, restored).Data
	assert.Equal(t, 1, report.Restored[model.TableLotteries])
}

func TestAdminSyncAndNotifications(t *testing.T) {
	e := newAPIEnv(t)
	e.createLottery(t, "Synced tee", 3)

	rec := e.do(t, http.MethodGet, "/api/v1/lotteries?refresh=true", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/v1/admin/sync", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	statuses := decode[[]model.SyncStatus](t, rec).Data
	require.NotEmpty(t, statuses)
	assert.Equal(t, model.TableLotteries, statuses[0].Table)
	assert.True(t, statuses[0].Success)

	rec = e.do(t, http.MethodPost, "/api/v1/admin/resync", nil, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = e.do(t, http.MethodGet, "/api/v1/admin/stats", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/v1/admin/users", nil, true)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/v1/notifications?limit=5", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	notes := decode[[]notify.Notification](t, rec).Data
	assert.NotEmpty(t, notes)
}

func TestOrderDeliveryHistoryNewestFirst(t *testing.T) {
	e := newAPIEnv(t)

	rec := e.do(t, http.MethodPost, "/api/v1/products", map[string]any{"name": "Polo", "price": "30"}, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	product := decode[model.Product](t, rec).Data

	rec = e.do(t, http.MethodPost, "/api/v1/orders", map[string]any{
		"clientName":  "Bo",
		"clientEmail": "bo@example.com",
		"items":       []map[string]any{{"productId": product.ID, "quantity": 1, "price": "0.01"}},
	}, false)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decode[service.Receipt](t, rec).Data.Order
	assert.Equal(t, "30", order.Total.String())

	events := "/api/v1/orders/" + fmt.Sprint(order.ID) + "/delivery/events"
	for _, ev := range []map[string]any{
		{"status": "in_transit", "date": "2025-03-02T10:00:00Z", "location": "Lyon"},
		{"status": "preparing", "date": "2025-03-01T10:00:00Z", "location": "Paris"},
		{"status": "out_for_delivery", "date": "2025-03-03T08:00:00Z", "location": "Nice"},
	} {
		rec = e.do(t, http.MethodPost, events, ev, true)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	locations := func(o model.Order) []string {
		require.NotNil(t, o.Delivery)
		out := make([]string, 0, len(o.Delivery.History))
		for _, ev := range o.Delivery.History {
			out = append(out, ev.Location)
		}
		return out
	}

	rec = e.do(t, http.MethodGet, "/api/v1/orders/"+fmt.Sprint(order.ID), nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"Nice", "Lyon", "Paris"}, locations(decode[model.Order](t, rec).Data))

	rec = e.do(t, http.MethodGet, "/api/v1/orders", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]model.Order](t, rec).Data
	require.Len(t, list, 1)
	assert.Equal(t, []string{"Nice", "Lyon", "Paris"}, locations(list[0]))
}
