package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/craftbay/internal/constants"
	"github.com/craftbay/internal/http/response"
	"github.com/craftbay/internal/models"
	"github.com/craftbay/internal/provider"
	"github.com/craftbay/internal/repository"
	"github.com/craftbay/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupOrderHandlerTest(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:order_handler_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.City{},
		&models.Order{},
		&models.OrderHistory{},
		&models.WalletAccount{},
		&models.WalletTransaction{},
		&models.PlatformProfit{},
		&models.Notification{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	clock := service.SystemClock()
	walletSvc := service.NewWalletService(repository.NewWalletRepository(db), clock)
	notificationSvc := service.NewNotificationService(repository.NewNotificationRepository(db), nil, clock)
	lifecycle := service.NewOrderLifecycleService(
		repository.NewOrderRepository(db),
		repository.NewOrderHistoryRepository(db),
		repository.NewCityRepository(db),
		repository.NewPlatformProfitRepository(db),
		walletSvc,
		notificationSvc,
		nil,
		clock,
		48*time.Hour,
	)

	h := New(&provider.Container{
		WalletService:       walletSvc,
		NotificationService: notificationSvc,
		OrderLifecycle:      lifecycle,
	})

	engine := gin.New()
	orders := engine.Group("/api/v1/orders")
	{
		orders.GET("/:id", h.GetOrder)
		orders.GET("/:id/history", h.ListOrderHistory)
		orders.POST("/:id/start-work", h.StartWork)
		orders.POST("/:id/cancel", h.Cancel)
	}
	return engine, db
}

func createHandlerOrder(t *testing.T, db *gorm.DB, mutate func(*models.Order)) *models.Order {
	t.Helper()
	now := time.Now()
	order := &models.Order{
		OrderNo:             fmt.Sprintf("CB-HTTP-%d", time.Now().UnixNano()),
		BuyerID:             1,
		SellerID:            2,
		Status:              constants.OrderStatusPending,
		PriceApprovalStatus: constants.PriceApprovalNone,
		Currency:            "CNY",
		TotalPrice:          models.NewMoneyFromInt(100),
		DepositStatus:       constants.DepositStatusUnpaid,
		PaymentStatus:       constants.PaymentStatusUnpaid,
		PaymentProof:        "proofs/full.jpg",
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if mutate != nil {
		mutate(order)
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	return order
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var resp response.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	return resp
}

func TestOrderHandlerGetOrder(t *testing.T) {
	engine, db := setupOrderHandlerTest(t)
	order := createHandlerOrder(t, db, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/orders/%d", order.ID), nil)
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("unexpected http status: %d", w.Code)
	}
	resp := decodeResponse(t, w)
	if resp.StatusCode != response.CodeOK {
		t.Fatalf("unexpected status code: %d (%s)", resp.StatusCode, resp.Msg)
	}
}

func TestOrderHandlerGetOrderNotFound(t *testing.T) {
	engine, _ := setupOrderHandlerTest(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/987654", nil)
	engine.ServeHTTP(w, req)

	resp := decodeResponse(t, w)
	if resp.StatusCode != response.CodeNotFound {
		t.Fatalf("expected not found code, got %d", resp.StatusCode)
	}
}

func TestOrderHandlerInvalidTransitionConflict(t *testing.T) {
	engine, db := setupOrderHandlerTest(t)
	order := createHandlerOrder(t, db, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/orders/%d/start-work", order.ID), nil)
	req.Header.Set("X-Actor-ID", "2")
	req.Header.Set("X-Actor-Role", constants.ActorRoleSeller)
	engine.ServeHTTP(w, req)

	resp := decodeResponse(t, w)
	if resp.StatusCode != response.CodeConflict {
		t.Fatalf("expected conflict code, got %d (%s)", resp.StatusCode, resp.Msg)
	}
}

func TestOrderHandlerCancelWithActorHeaders(t *testing.T) {
	engine, db := setupOrderHandlerTest(t)
	order := createHandlerOrder(t, db, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/orders/%d/cancel", order.ID), nil)
	req.Header.Set("X-Actor-ID", "1")
	req.Header.Set("X-Actor-Role", constants.ActorRoleBuyer)
	engine.ServeHTTP(w, req)

	resp := decodeResponse(t, w)
	if resp.StatusCode != response.CodeOK {
		t.Fatalf("cancel failed: %d (%s)", resp.StatusCode, resp.Msg)
	}

	var reloaded models.Order
	if err := db.First(&reloaded, order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if reloaded.Status != constants.OrderStatusCancelled {
		t.Fatalf("unexpected status: %s", reloaded.Status)
	}

	history, err := repository.NewOrderHistoryRepository(db).ListByOrder(order.ID)
	if err != nil {
		t.Fatalf("list history failed: %v", err)
	}
	if len(history) != 1 || history[0].ActionType != constants.ActionCancel {
		t.Fatalf("unexpected history: %+v", history)
	}
	if history[0].ActionBy == nil || *history[0].ActionBy != 1 {
		t.Fatalf("actor not recorded: %+v", history[0].ActionBy)
	}
}
