package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/craftbay/internal/constants"
	"github.com/craftbay/internal/models"
	"github.com/craftbay/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// stubClock 可拨动的测试时钟
type stubClock struct {
	t time.Time
}

func (c *stubClock) Now() time.Time {
	return c.t
}

func (c *stubClock) Advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func setupLifecycleTest(t *testing.T) (*OrderLifecycleService, *gorm.DB, *stubClock) {
	t.Helper()
	dsn := fmt.Sprintf("file:lifecycle_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
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

	clock := &stubClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	walletSvc := NewWalletService(repository.NewWalletRepository(db), clock)
	notificationSvc := NewNotificationService(repository.NewNotificationRepository(db), nil, clock)
	svc := NewOrderLifecycleService(
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
	return svc, db, clock
}

func createLifecycleOrder(t *testing.T, db *gorm.DB, mutate func(*models.Order)) *models.Order {
	t.Helper()
	now := time.Now()
	order := &models.Order{
		OrderNo:             fmt.Sprintf("CB-%d", time.Now().UnixNano()),
		BuyerID:             1,
		SellerID:            2,
		Status:              constants.OrderStatusPending,
		PriceApprovalStatus: constants.PriceApprovalNone,
		Currency:            "CNY",
		TotalPrice:          models.NewMoneyFromInt(300),
		DeliveryFee:         models.NewMoneyFromInt(20),
		DepositAmount:       models.ZeroMoney(),
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

func TestOrderLifecycleHappyPath(t *testing.T) {
	svc, db, _ := setupLifecycleTest(t)
	city := models.City{
		Name:                     "杭州",
		DefaultCommissionPercent: models.NewMoneyFromInt(10),
		DeliveryFee:              models.NewMoneyFromInt(20),
		IsActive:                 true,
	}
	if err := db.Create(&city).Error; err != nil {
		t.Fatalf("create city failed: %v", err)
	}
	order := createLifecycleOrder(t, db, func(o *models.Order) {
		o.CityID = &city.ID
		o.PaymentStatus = constants.PaymentStatusPaid
	})

	admin := ActorContext{ActorID: 9, Role: constants.ActorRoleAdmin}
	seller := ActorContext{ActorID: 2, Role: constants.ActorRoleSeller}
	courier := ActorContext{ActorID: 7, Role: constants.ActorRoleDelivery}

	if _, err := svc.ApproveByAdmin(order.ID, admin); err != nil {
		t.Fatalf("approve by admin failed: %v", err)
	}
	deadline := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	if _, err := svc.ApproveBySeller(order.ID, seller, SellerApproveInput{
		Address:            "杭州市西湖区 1 号",
		CompletionDeadline: &deadline,
	}); err != nil {
		t.Fatalf("approve by seller failed: %v", err)
	}
	if _, err := svc.StartWork(order.ID, seller); err != nil {
		t.Fatalf("start work failed: %v", err)
	}
	if _, err := svc.CompleteWork(order.ID, seller); err != nil {
		t.Fatalf("complete work failed: %v", err)
	}
	updated, err := svc.PickUpByDelivery(order.ID, courier)
	if err != nil {
		t.Fatalf("pick up failed: %v", err)
	}
	if updated.DeliveryPersonID == nil || *updated.DeliveryPersonID != 7 {
		t.Fatalf("delivery person not recorded: %+v", updated.DeliveryPersonID)
	}
	if _, err := svc.MarkAsDelivered(order.ID, courier); err != nil {
		t.Fatalf("mark delivered failed: %v", err)
	}
	final, err := svc.MarkAsCompleted(order.ID, admin)
	if err != nil {
		t.Fatalf("mark completed failed: %v", err)
	}

	if final.Status != constants.OrderStatusCompleted {
		t.Fatalf("unexpected final status: %s", final.Status)
	}
	if final.PlatformCommissionAmount.String() != "30.00" {
		t.Fatalf("unexpected commission: %s", final.PlatformCommissionAmount.String())
	}
	if final.BuyerTotal.String() != "320.00" {
		t.Fatalf("unexpected buyer total: %s", final.BuyerTotal.String())
	}
	if final.SellerNetAmount.String() != "270.00" {
		t.Fatalf("unexpected seller net: %s", final.SellerNetAmount.String())
	}
	if final.CompletedAt == nil {
		t.Fatal("completed_at not set")
	}

	history, err := svc.ListHistory(order.ID)
	if err != nil {
		t.Fatalf("list history failed: %v", err)
	}
	wantActions := []string{
		constants.ActionApproveByAdmin,
		constants.ActionApproveBySeller,
		constants.ActionStartWork,
		constants.ActionCompleteWork,
		constants.ActionPickUpByDelivery,
		constants.ActionMarkAsDelivered,
		constants.ActionMarkAsCompleted,
	}
	if len(history) != len(wantActions) {
		t.Fatalf("expected %d history entries, got %d", len(wantActions), len(history))
	}
	for i, entry := range history {
		if entry.ActionType != wantActions[i] {
			t.Fatalf("history[%d]: expected %s, got %s", i, wantActions[i], entry.ActionType)
		}
	}

	var sellerAccount models.WalletAccount
	if err := db.Where("user_id = ?", order.SellerID).First(&sellerAccount).Error; err != nil {
		t.Fatalf("seller wallet not found: %v", err)
	}
	if sellerAccount.Balance.String() != "270.00" {
		t.Fatalf("unexpected seller balance: %s", sellerAccount.Balance.String())
	}

	var profit models.PlatformProfit
	if err := db.Where("order_id = ?", order.ID).First(&profit).Error; err != nil {
		t.Fatalf("platform profit not recorded: %v", err)
	}
	if profit.Amount.String() != "30.00" {
		t.Fatalf("unexpected profit amount: %s", profit.Amount.String())
	}
}

func TestOrderLifecycleInvalidTransitionLeavesOrderUntouched(t *testing.T) {
	svc, db, _ := setupLifecycleTest(t)
	order := createLifecycleOrder(t, db, nil)

	seller := ActorContext{ActorID: 2, Role: constants.ActorRoleSeller}
	if _, err := svc.StartWork(order.ID, seller); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	var reloaded models.Order
	if err := db.First(&reloaded, order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if reloaded.Status != constants.OrderStatusPending {
		t.Fatalf("status should stay pending, got %s", reloaded.Status)
	}
	if reloaded.WorkStartedAt != nil {
		t.Fatal("work_started_at should stay nil")
	}

	history, err := svc.ListHistory(order.ID)
	if err != nil {
		t.Fatalf("list history failed: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("rejected transition must not write history, got %d entries", len(history))
	}
}

func TestApproveByAdminRequiresPaymentEvidence(t *testing.T) {
	svc, db, _ := setupLifecycleTest(t)
	order := createLifecycleOrder(t, db, func(o *models.Order) {
		o.PaymentProof = ""
	})

	admin := ActorContext{ActorID: 9, Role: constants.ActorRoleAdmin}
	if _, err := svc.ApproveByAdmin(order.ID, admin); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestApproveByAdminRestoresPreviousStatus(t *testing.T) {
	svc, db, _ := setupLifecycleTest(t)
	pastDeadline := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)
	order := createLifecycleOrder(t, db, func(o *models.Order) {
		o.Status = constants.OrderStatusPending
		o.PreviousStatus = constants.OrderStatusReadyForDelivery
		o.RequiresDeposit = true
		o.DepositAmount = models.NewMoneyFromInt(100)
		o.DepositStatus = constants.DepositStatusPaid
		o.RemainingPaymentProof = "proofs/remaining.jpg"
		o.PaymentProof = ""
		o.CompletionDeadline = &pastDeadline
	})

	admin := ActorContext{ActorID: 9, Role: constants.ActorRoleAdmin}
	updated, err := svc.ApproveByAdmin(order.ID, admin)
	if err != nil {
		t.Fatalf("approve by admin failed: %v", err)
	}
	if updated.Status != constants.OrderStatusReadyForDelivery {
		t.Fatalf("expected restored status, got %s", updated.Status)
	}
	if updated.PaymentStatus != constants.PaymentStatusPaid {
		t.Fatalf("payment should be confirmed, got %s", updated.PaymentStatus)
	}
	if updated.PreviousStatus != "" {
		t.Fatalf("previous_status should be cleared, got %s", updated.PreviousStatus)
	}
	if updated.CompletionDeadline != nil {
		t.Fatal("payment deadline should be cleared after confirmation")
	}
}

func TestApproveBySellerRequiresAddressAndDeadline(t *testing.T) {
	svc, db, _ := setupLifecycleTest(t)
	order := createLifecycleOrder(t, db, func(o *models.Order) {
		o.Status = constants.OrderStatusAdminApproved
	})

	seller := ActorContext{ActorID: 2, Role: constants.ActorRoleSeller}
	deadline := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	if _, err := svc.ApproveBySeller(order.ID, seller, SellerApproveInput{
		Address:            "",
		CompletionDeadline: &deadline,
	}); !errors.Is(err, ErrMissingRequired) {
		t.Fatalf("expected ErrMissingRequired for empty address, got %v", err)
	}
	if _, err := svc.ApproveBySeller(order.ID, seller, SellerApproveInput{
		Address: "某地址",
	}); !errors.Is(err, ErrMissingRequired) {
		t.Fatalf("expected ErrMissingRequired for nil deadline, got %v", err)
	}
}

func TestCompleteWorkOpensRemainingPaymentWindow(t *testing.T) {
	svc, db, clock := setupLifecycleTest(t)
	order := createLifecycleOrder(t, db, func(o *models.Order) {
		o.Status = constants.OrderStatusInProgress
		o.RequiresDeposit = true
		o.DepositAmount = models.NewMoneyFromInt(100)
		o.DepositStatus = constants.DepositStatusPaid
		o.PaymentStatus = constants.PaymentStatusUnpaid
		o.PaymentProof = ""
		o.IsLate = true
		o.LateReason = "之前逾期"
	})

	seller := ActorContext{ActorID: 2, Role: constants.ActorRoleSeller}
	updated, err := svc.CompleteWork(order.ID, seller)
	if err != nil {
		t.Fatalf("complete work failed: %v", err)
	}
	if updated.Status != constants.OrderStatusReadyForDelivery {
		t.Fatalf("unexpected status: %s", updated.Status)
	}
	if updated.IsLate {
		t.Fatal("late flag should be cleared on completion")
	}
	if updated.CompletionDeadline == nil {
		t.Fatal("remaining payment deadline not set")
	}
	want := clock.Now().Add(48 * time.Hour)
	if !updated.CompletionDeadline.Equal(want) {
		t.Fatalf("expected deadline %s, got %s", want, updated.CompletionDeadline)
	}
}

func TestPickUpRequiresRemainingPaymentSettled(t *testing.T) {
	svc, db, _ := setupLifecycleTest(t)
	order := createLifecycleOrder(t, db, func(o *models.Order) {
		o.Status = constants.OrderStatusReadyForDelivery
		o.RequiresDeposit = true
		o.DepositAmount = models.NewMoneyFromInt(100)
		o.DepositStatus = constants.DepositStatusPaid
		o.PaymentStatus = constants.PaymentStatusUnpaid
	})

	courier := ActorContext{ActorID: 7, Role: constants.ActorRoleDelivery}
	if _, err := svc.PickUpByDelivery(order.ID, courier); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition before remaining payment, got %v", err)
	}

	if err := db.Model(&models.Order{}).Where("id = ?", order.ID).
		Update("payment_status", constants.PaymentStatusPaid).Error; err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}
	updated, err := svc.PickUpByDelivery(order.ID, courier)
	if err != nil {
		t.Fatalf("pick up failed after payment: %v", err)
	}
	if updated.Status != constants.OrderStatusOutForDelivery {
		t.Fatalf("unexpected status: %s", updated.Status)
	}
}

func TestCancelPermissions(t *testing.T) {
	svc, db, _ := setupLifecycleTest(t)
	buyer := ActorContext{ActorID: 1, Role: constants.ActorRoleBuyer}
	admin := ActorContext{ActorID: 9, Role: constants.ActorRoleAdmin}

	pending := createLifecycleOrder(t, db, nil)
	if _, err := svc.Cancel(pending.ID, buyer, "不想要了"); err != nil {
		t.Fatalf("buyer cancel pending failed: %v", err)
	}

	delivered := createLifecycleOrder(t, db, func(o *models.Order) {
		o.Status = constants.OrderStatusDelivered
	})
	if _, err := svc.Cancel(delivered.ID, buyer, ""); !errors.Is(err, ErrCancelNotAllowed) {
		t.Fatalf("expected ErrCancelNotAllowed for buyer, got %v", err)
	}
	if _, err := svc.Cancel(delivered.ID, admin, "纠纷处理"); err != nil {
		t.Fatalf("admin cancel delivered failed: %v", err)
	}

	completed := createLifecycleOrder(t, db, func(o *models.Order) {
		o.Status = constants.OrderStatusCompleted
	})
	if _, err := svc.Cancel(completed.ID, admin, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for completed, got %v", err)
	}
}

func TestSuspendDefaultsCourierReason(t *testing.T) {
	svc, db, _ := setupLifecycleTest(t)
	order := createLifecycleOrder(t, db, func(o *models.Order) {
		o.Status = constants.OrderStatusOutForDelivery
	})

	courier := ActorContext{ActorID: 7, Role: constants.ActorRoleDelivery}
	updated, err := svc.Suspend(order.ID, courier, "  ")
	if err != nil {
		t.Fatalf("suspend failed: %v", err)
	}
	if updated.Status != constants.OrderStatusSuspended {
		t.Fatalf("unexpected status: %s", updated.Status)
	}
	if updated.SuspensionReason != constants.SuspensionReasonCourier {
		t.Fatalf("unexpected suspension reason: %s", updated.SuspensionReason)
	}
}

func TestApproveProposedPriceBecomesBasePrice(t *testing.T) {
	svc, db, _ := setupLifecycleTest(t)
	proposed := models.NewMoneyFromDecimal(decimal.NewFromInt(260))
	order := createLifecycleOrder(t, db, func(o *models.Order) {
		o.PriceApprovalStatus = constants.PriceApprovalPending
		o.BuyerProposedPrice = &proposed
	})

	seller := ActorContext{ActorID: 2, Role: constants.ActorRoleSeller}
	updated, err := svc.ApproveProposedPrice(order.ID, seller)
	if err != nil {
		t.Fatalf("approve proposed price failed: %v", err)
	}
	if updated.TotalPrice.String() != "260.00" {
		t.Fatalf("unexpected total price: %s", updated.TotalPrice.String())
	}
	if updated.PriceApprovalStatus != constants.PriceApprovalApproved {
		t.Fatalf("unexpected approval status: %s", updated.PriceApprovalStatus)
	}
	if updated.Status != constants.OrderStatusPending {
		t.Fatalf("status should not change, got %s", updated.Status)
	}
}

func TestRejectProposedPriceRefundsDeposit(t *testing.T) {
	svc, db, _ := setupLifecycleTest(t)
	proposed := models.NewMoneyFromDecimal(decimal.NewFromInt(260))
	order := createLifecycleOrder(t, db, func(o *models.Order) {
		o.PriceApprovalStatus = constants.PriceApprovalPending
		o.BuyerProposedPrice = &proposed
		o.RequiresDeposit = true
		o.DepositAmount = models.NewMoneyFromInt(50)
		o.DepositStatus = constants.DepositStatusPaid
	})

	seller := ActorContext{ActorID: 2, Role: constants.ActorRoleSeller}
	updated, err := svc.RejectProposedPrice(order.ID, seller)
	if err != nil {
		t.Fatalf("reject proposed price failed: %v", err)
	}
	if updated.Status != constants.OrderStatusCancelled {
		t.Fatalf("unexpected status: %s", updated.Status)
	}
	if updated.DepositStatus != constants.DepositStatusRefunded {
		t.Fatalf("deposit should be refunded, got %s", updated.DepositStatus)
	}

	var buyerAccount models.WalletAccount
	if err := db.Where("user_id = ?", order.BuyerID).First(&buyerAccount).Error; err != nil {
		t.Fatalf("buyer wallet not found: %v", err)
	}
	if buyerAccount.Balance.String() != "50.00" {
		t.Fatalf("unexpected buyer balance: %s", buyerAccount.Balance.String())
	}

	var txn models.WalletTransaction
	reference := fmt.Sprintf("order:%d:%s", order.ID, constants.WalletTxnTypeDepositRefund)
	if err := db.Where("reference = ?", reference).First(&txn).Error; err != nil {
		t.Fatalf("refund transaction not found: %v", err)
	}
	if txn.Type != constants.WalletTxnTypeDepositRefund || txn.Direction != constants.WalletTxnDirectionIn {
		t.Fatalf("unexpected refund transaction: %+v", txn)
	}
}

func TestMarkAsCompletedSurvivesProfitRecordFailure(t *testing.T) {
	svc, db, _ := setupLifecycleTest(t)
	override := models.NewMoneyFromInt(10)
	order := createLifecycleOrder(t, db, func(o *models.Order) {
		o.Status = constants.OrderStatusDelivered
		o.CommissionPercentOverride = &override
		o.PaymentStatus = constants.PaymentStatusPaid
	})

	// 审计表不可用时订单完成仍须提交
	if err := db.Migrator().DropTable(&models.PlatformProfit{}); err != nil {
		t.Fatalf("drop table failed: %v", err)
	}

	admin := ActorContext{ActorID: 9, Role: constants.ActorRoleAdmin}
	final, err := svc.MarkAsCompleted(order.ID, admin)
	if err != nil {
		t.Fatalf("mark completed failed: %v", err)
	}
	if final.Status != constants.OrderStatusCompleted {
		t.Fatalf("unexpected final status: %s", final.Status)
	}
	if final.SellerNetAmount.String() != "270.00" {
		t.Fatalf("unexpected seller net: %s", final.SellerNetAmount.String())
	}

	var sellerAccount models.WalletAccount
	if err := db.Where("user_id = ?", order.SellerID).First(&sellerAccount).Error; err != nil {
		t.Fatalf("seller wallet not found: %v", err)
	}
	if sellerAccount.Balance.String() != "270.00" {
		t.Fatalf("unexpected seller balance: %s", sellerAccount.Balance.String())
	}

	history, err := svc.ListHistory(order.ID)
	if err != nil {
		t.Fatalf("list history failed: %v", err)
	}
	if len(history) != 1 || history[0].ActionType != constants.ActionMarkAsCompleted {
		t.Fatalf("unexpected history: %+v", history)
	}
}

func TestRejectProposedPriceRefundFailureLeavesOrderUntouched(t *testing.T) {
	svc, db, _ := setupLifecycleTest(t)
	proposed := models.NewMoneyFromDecimal(decimal.NewFromInt(260))
	order := createLifecycleOrder(t, db, func(o *models.Order) {
		o.PriceApprovalStatus = constants.PriceApprovalPending
		o.BuyerProposedPrice = &proposed
		o.RequiresDeposit = true
		o.DepositAmount = models.NewMoneyFromInt(50)
		o.DepositStatus = constants.DepositStatusPaid
	})

	// 退款写不进钱包流水时整个拒绝操作必须回滚
	if err := db.Migrator().DropTable(&models.WalletTransaction{}); err != nil {
		t.Fatalf("drop table failed: %v", err)
	}

	seller := ActorContext{ActorID: 2, Role: constants.ActorRoleSeller}
	if _, err := svc.RejectProposedPrice(order.ID, seller); err == nil {
		t.Fatal("expected reject to fail when refund cannot be recorded")
	}

	var reloaded models.Order
	if err := db.First(&reloaded, order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if reloaded.Status != constants.OrderStatusPending {
		t.Fatalf("status should stay pending, got %s", reloaded.Status)
	}
	if reloaded.PriceApprovalStatus != constants.PriceApprovalPending {
		t.Fatalf("price approval should stay pending_approval, got %s", reloaded.PriceApprovalStatus)
	}
	if reloaded.DepositStatus != constants.DepositStatusPaid {
		t.Fatalf("deposit should stay paid, got %s", reloaded.DepositStatus)
	}
	if reloaded.CancelledAt != nil {
		t.Fatal("cancelled_at must stay nil")
	}

	history, err := svc.ListHistory(order.ID)
	if err != nil {
		t.Fatalf("list history failed: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("failed reject must not write history, got %d entries", len(history))
	}
}
