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

func setupWalletServiceTest(t *testing.T) (*WalletService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:wallet_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.WalletAccount{},
		&models.WalletTransaction{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	return NewWalletService(repository.NewWalletRepository(db), SystemClock()), db
}

func TestWalletServiceRechargeCreatesAccount(t *testing.T) {
	svc, _ := setupWalletServiceTest(t)

	account, txn, err := svc.Recharge(WalletRechargeInput{
		UserID: 101,
		Amount: models.NewMoneyFromInt(120),
		Remark: "测试充值",
	})
	if err != nil {
		t.Fatalf("recharge failed: %v", err)
	}
	if account.Balance.String() != "120.00" {
		t.Fatalf("unexpected balance: %s", account.Balance.String())
	}
	if txn == nil || txn.Type != constants.WalletTxnTypeRecharge || txn.Direction != constants.WalletTxnDirectionIn {
		t.Fatalf("unexpected transaction: %+v", txn)
	}
	if txn.BalanceBefore.String() != "0.00" || txn.BalanceAfter.String() != "120.00" {
		t.Fatalf("unexpected balance trail: %s -> %s", txn.BalanceBefore.String(), txn.BalanceAfter.String())
	}
}

func TestWalletServiceRechargeRejectsNonPositive(t *testing.T) {
	svc, _ := setupWalletServiceTest(t)

	if _, _, err := svc.Recharge(WalletRechargeInput{
		UserID: 102,
		Amount: models.ZeroMoney(),
	}); !errors.Is(err, ErrWalletInvalidAmount) {
		t.Fatalf("expected ErrWalletInvalidAmount, got %v", err)
	}
}

func TestWalletServiceAdminAdjustInsufficient(t *testing.T) {
	svc, _ := setupWalletServiceTest(t)

	if _, _, err := svc.AdminAdjustBalance(WalletAdjustInput{
		UserID: 103,
		Delta:  models.NewMoneyFromDecimal(decimal.NewFromInt(-50)),
		Remark: "扣减测试",
	}); !errors.Is(err, ErrWalletInsufficientBalance) {
		t.Fatalf("expected ErrWalletInsufficientBalance, got %v", err)
	}

	account, err := svc.GetAccount(103)
	if err != nil {
		t.Fatalf("get account failed: %v", err)
	}
	if !account.Balance.Decimal.IsZero() {
		t.Fatalf("balance should stay zero, got %s", account.Balance.String())
	}
}

func TestWalletServiceCreditIdempotentByReference(t *testing.T) {
	svc, db := setupWalletServiceTest(t)
	reference := "order:900:settlement_credit"

	credit := func() (*models.WalletTransaction, error) {
		var txn *models.WalletTransaction
		err := db.Transaction(func(tx *gorm.DB) error {
			var creditErr error
			_, txn, creditErr = svc.CreditInTx(tx, WalletCreditInput{
				UserID:    104,
				Amount:    models.NewMoneyFromInt(270),
				TxnType:   constants.WalletTxnTypeSettlementCredit,
				Reference: reference,
			})
			return creditErr
		})
		return txn, err
	}

	first, err := credit()
	if err != nil {
		t.Fatalf("first credit failed: %v", err)
	}
	second, err := credit()
	if err != nil {
		t.Fatalf("second credit failed: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same transaction, got %d and %d", first.ID, second.ID)
	}

	account, err := svc.GetAccount(104)
	if err != nil {
		t.Fatalf("get account failed: %v", err)
	}
	if account.Balance.String() != "270.00" {
		t.Fatalf("balance credited twice: %s", account.Balance.String())
	}

	var count int64
	if err := db.Model(&models.WalletTransaction{}).Where("reference = ?", reference).Count(&count).Error; err != nil {
		t.Fatalf("count transactions failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly 1 transaction, got %d", count)
	}
}

func TestWalletServiceDebitInTx(t *testing.T) {
	svc, db := setupWalletServiceTest(t)

	if _, _, err := svc.Recharge(WalletRechargeInput{
		UserID: 105,
		Amount: models.NewMoneyFromInt(100),
	}); err != nil {
		t.Fatalf("recharge failed: %v", err)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		_, _, debitErr := svc.DebitInTx(tx, WalletDebitInput{
			UserID:    105,
			Amount:    models.NewMoneyFromInt(40),
			TxnType:   constants.WalletTxnTypeAdminAdjust,
			Reference: "debit:105:1",
		})
		return debitErr
	})
	if err != nil {
		t.Fatalf("debit failed: %v", err)
	}

	account, err := svc.GetAccount(105)
	if err != nil {
		t.Fatalf("get account failed: %v", err)
	}
	if account.Balance.String() != "60.00" {
		t.Fatalf("unexpected balance: %s", account.Balance.String())
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		_, _, debitErr := svc.DebitInTx(tx, WalletDebitInput{
			UserID:    105,
			Amount:    models.NewMoneyFromInt(500),
			TxnType:   constants.WalletTxnTypeAdminAdjust,
			Reference: "debit:105:2",
		})
		return debitErr
	})
	if !errors.Is(err, ErrWalletInsufficientBalance) {
		t.Fatalf("expected ErrWalletInsufficientBalance, got %v", err)
	}
}
