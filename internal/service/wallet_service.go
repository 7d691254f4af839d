package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/craftbay/internal/constants"
	"github.com/craftbay/internal/models"
	"github.com/craftbay/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// WalletService 钱包服务。引擎侧只通过 CreditInTx/DebitInTx 动账，
// 余额的读-改-写全部发生在持锁事务里。
type WalletService struct {
	walletRepo repository.WalletRepository
	clock      Clock
}

// WalletRechargeInput 用户充值输入
type WalletRechargeInput struct {
	UserID   uint
	Amount   models.Money
	Currency string
	Remark   string
}

// WalletAdjustInput 管理员余额调整输入
type WalletAdjustInput struct {
	UserID   uint
	Delta    models.Money
	Currency string
	Remark   string
}

// WalletCreditInput 事务内入账输入
type WalletCreditInput struct {
	UserID    uint
	Amount    models.Money
	Currency  string
	TxnType   string
	Reference string
	Remark    string
	OrderID   *uint
}

// WalletDebitInput 事务内出账输入
type WalletDebitInput struct {
	UserID    uint
	Amount    models.Money
	Currency  string
	TxnType   string
	Reference string
	Remark    string
	OrderID   *uint
}

// NewWalletService 创建钱包服务
func NewWalletService(walletRepo repository.WalletRepository, clock Clock) *WalletService {
	if clock == nil {
		clock = SystemClock()
	}
	return &WalletService{
		walletRepo: walletRepo,
		clock:      clock,
	}
}

// GetAccount 获取钱包账户（不存在时自动创建）
func (s *WalletService) GetAccount(userID uint) (*models.WalletAccount, error) {
	if userID == 0 {
		return nil, ErrWalletAccountNotFound
	}
	return s.getOrCreateAccount(userID)
}

// ListTransactions 查询钱包流水
func (s *WalletService) ListTransactions(filter repository.WalletTransactionListFilter) ([]models.WalletTransaction, int64, error) {
	return s.walletRepo.ListTransactions(filter)
}

// Recharge 用户充值余额
func (s *WalletService) Recharge(input WalletRechargeInput) (*models.WalletAccount, *models.WalletTransaction, error) {
	if input.UserID == 0 {
		return nil, nil, ErrWalletAccountNotFound
	}
	amount := input.Amount.Decimal.Round(2)
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, nil, ErrWalletInvalidAmount
	}
	reference := s.buildWalletReference("recharge", input.UserID)
	remark := cleanWalletRemark(input.Remark, "用户充值")
	currency := normalizeWalletCurrency(input.Currency)
	return s.changeBalance(input.UserID, amount, constants.WalletTxnTypeRecharge, nil, reference, remark, currency)
}

// AdminAdjustBalance 管理员增减用户余额
func (s *WalletService) AdminAdjustBalance(input WalletAdjustInput) (*models.WalletAccount, *models.WalletTransaction, error) {
	if input.UserID == 0 {
		return nil, nil, ErrWalletAccountNotFound
	}
	delta := input.Delta.Decimal.Round(2)
	if delta.IsZero() {
		return nil, nil, ErrWalletInvalidAmount
	}
	reference := s.buildWalletReference("admin_adjust", input.UserID)
	remark := cleanWalletRemark(input.Remark, "管理员调整余额")
	currency := normalizeWalletCurrency(input.Currency)
	return s.changeBalance(input.UserID, delta, constants.WalletTxnTypeAdminAdjust, nil, reference, remark, currency)
}

// CreditInTx 在事务内执行钱包入账并写入唯一参考号流水。
// 同一参考号重复调用直接返回已有流水，不会二次入账。
func (s *WalletService) CreditInTx(tx *gorm.DB, input WalletCreditInput) (*models.WalletAccount, *models.WalletTransaction, error) {
	if tx == nil {
		return nil, nil, ErrOrderUpdateFailed
	}
	if input.UserID == 0 {
		return nil, nil, ErrWalletAccountNotFound
	}
	amount := input.Amount.Decimal.Round(2)
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, nil, ErrWalletInvalidAmount
	}
	reference := strings.TrimSpace(input.Reference)
	if reference == "" {
		return nil, nil, ErrWalletTransactionCreateFailed
	}
	remark := cleanWalletRemark(input.Remark, "钱包入账")
	now := s.clock.Now()
	repo := s.walletRepo.WithTx(tx)

	exists, err := repo.GetTransactionByReference(reference)
	if err != nil {
		return nil, nil, err
	}
	if exists != nil {
		account, accountErr := repo.GetAccountByUserID(input.UserID)
		if accountErr != nil {
			return nil, nil, accountErr
		}
		return account, exists, nil
	}

	account, err := s.ensureAccountForUpdate(repo, input.UserID, now)
	if err != nil {
		return nil, nil, err
	}
	before := account.Balance.Decimal.Round(2)
	after := before.Add(amount).Round(2)
	account.Balance = models.NewMoneyFromDecimal(after)
	account.UpdatedAt = now
	if err := repo.UpdateAccount(account); err != nil {
		return nil, nil, ErrWalletAccountUpdateFailed
	}

	txn := &models.WalletTransaction{
		UserID:        input.UserID,
		OrderID:       input.OrderID,
		Type:          input.TxnType,
		Direction:     constants.WalletTxnDirectionIn,
		Amount:        models.NewMoneyFromDecimal(amount),
		BalanceBefore: models.NewMoneyFromDecimal(before),
		BalanceAfter:  models.NewMoneyFromDecimal(after),
		Currency:      normalizeWalletCurrency(input.Currency),
		Reference:     reference,
		Remark:        remark,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := repo.CreateTransaction(txn); err != nil {
		return nil, nil, ErrWalletTransactionCreateFailed
	}
	return account, txn, nil
}

// DebitInTx 在事务内执行钱包出账并写入唯一参考号流水。
// 余额不足返回 ErrWalletInsufficientBalance，整个事务回滚。
func (s *WalletService) DebitInTx(tx *gorm.DB, input WalletDebitInput) (*models.WalletAccount, *models.WalletTransaction, error) {
	if tx == nil {
		return nil, nil, ErrOrderUpdateFailed
	}
	if input.UserID == 0 {
		return nil, nil, ErrWalletAccountNotFound
	}
	amount := input.Amount.Decimal.Round(2)
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, nil, ErrWalletInvalidAmount
	}
	reference := strings.TrimSpace(input.Reference)
	if reference == "" {
		return nil, nil, ErrWalletTransactionCreateFailed
	}
	remark := cleanWalletRemark(input.Remark, "钱包出账")
	now := s.clock.Now()
	repo := s.walletRepo.WithTx(tx)

	exists, err := repo.GetTransactionByReference(reference)
	if err != nil {
		return nil, nil, err
	}
	if exists != nil {
		account, accountErr := repo.GetAccountByUserID(input.UserID)
		if accountErr != nil {
			return nil, nil, accountErr
		}
		return account, exists, nil
	}

	account, err := s.ensureAccountForUpdate(repo, input.UserID, now)
	if err != nil {
		return nil, nil, err
	}
	before := account.Balance.Decimal.Round(2)
	after := before.Sub(amount).Round(2)
	if after.LessThan(decimal.Zero) {
		return nil, nil, ErrWalletInsufficientBalance
	}
	account.Balance = models.NewMoneyFromDecimal(after)
	account.UpdatedAt = now
	if err := repo.UpdateAccount(account); err != nil {
		return nil, nil, ErrWalletAccountUpdateFailed
	}

	txn := &models.WalletTransaction{
		UserID:        input.UserID,
		OrderID:       input.OrderID,
		Type:          input.TxnType,
		Direction:     constants.WalletTxnDirectionOut,
		Amount:        models.NewMoneyFromDecimal(amount),
		BalanceBefore: models.NewMoneyFromDecimal(before),
		BalanceAfter:  models.NewMoneyFromDecimal(after),
		Currency:      normalizeWalletCurrency(input.Currency),
		Reference:     reference,
		Remark:        remark,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := repo.CreateTransaction(txn); err != nil {
		return nil, nil, ErrWalletTransactionCreateFailed
	}
	return account, txn, nil
}

func (s *WalletService) changeBalance(userID uint, delta decimal.Decimal, txnType string, orderID *uint, reference, remark, currency string) (*models.WalletAccount, *models.WalletTransaction, error) {
	var accountResult *models.WalletAccount
	var txnResult *models.WalletTransaction
	if err := models.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.walletRepo.WithTx(tx)
		now := s.clock.Now()
		account, err := s.ensureAccountForUpdate(repo, userID, now)
		if err != nil {
			return err
		}

		before := account.Balance.Decimal.Round(2)
		after := before.Add(delta).Round(2)
		if after.LessThan(decimal.Zero) {
			return ErrWalletInsufficientBalance
		}
		direction := constants.WalletTxnDirectionIn
		amount := delta.Round(2)
		if delta.LessThan(decimal.Zero) {
			direction = constants.WalletTxnDirectionOut
			amount = delta.Abs().Round(2)
		}

		account.Balance = models.NewMoneyFromDecimal(after)
		account.UpdatedAt = now
		if err := repo.UpdateAccount(account); err != nil {
			return ErrWalletAccountUpdateFailed
		}

		txn := &models.WalletTransaction{
			UserID:        userID,
			OrderID:       orderID,
			Type:          txnType,
			Direction:     direction,
			Amount:        models.NewMoneyFromDecimal(amount),
			BalanceBefore: models.NewMoneyFromDecimal(before),
			BalanceAfter:  models.NewMoneyFromDecimal(after),
			Currency:      normalizeWalletCurrency(currency),
			Reference:     strings.TrimSpace(reference),
			Remark:        remark,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := repo.CreateTransaction(txn); err != nil {
			return ErrWalletTransactionCreateFailed
		}

		accountResult = account
		txnResult = txn
		return nil
	}); err != nil {
		return nil, nil, err
	}
	return accountResult, txnResult, nil
}

func (s *WalletService) getOrCreateAccount(userID uint) (*models.WalletAccount, error) {
	account, err := s.walletRepo.GetAccountByUserID(userID)
	if err != nil {
		return nil, err
	}
	if account != nil {
		return account, nil
	}
	now := s.clock.Now()
	account = &models.WalletAccount{
		UserID:    userID,
		Balance:   models.NewMoneyFromDecimal(decimal.Zero),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.walletRepo.CreateAccount(account); err != nil {
		created, queryErr := s.walletRepo.GetAccountByUserID(userID)
		if queryErr == nil && created != nil {
			return created, nil
		}
		return nil, ErrWalletAccountCreateFailed
	}
	return account, nil
}

func (s *WalletService) ensureAccountForUpdate(repo *repository.GormWalletRepository, userID uint, now time.Time) (*models.WalletAccount, error) {
	account, err := repo.GetAccountByUserIDForUpdate(userID)
	if err != nil {
		return nil, err
	}
	if account != nil {
		return account, nil
	}
	account = &models.WalletAccount{
		UserID:    userID,
		Balance:   models.NewMoneyFromDecimal(decimal.Zero),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.CreateAccount(account); err != nil {
		created, queryErr := repo.GetAccountByUserIDForUpdate(userID)
		if queryErr == nil && created != nil {
			return created, nil
		}
		return nil, ErrWalletAccountCreateFailed
	}
	return account, nil
}

func (s *WalletService) buildWalletReference(prefix string, id uint) string {
	normalized := strings.TrimSpace(prefix)
	if normalized == "" {
		normalized = "wallet"
	}
	return fmt.Sprintf("%s:%d:%d", normalized, id, s.clock.Now().UnixNano())
}

func normalizeWalletCurrency(currency string) string {
	normalized := strings.ToUpper(strings.TrimSpace(currency))
	if normalized == "" {
		return constants.SiteCurrencyDefault
	}
	return normalized
}

func cleanWalletRemark(raw string, fallback string) string {
	remark := strings.TrimSpace(raw)
	if remark == "" {
		return fallback
	}
	return remark
}

func buildOrderWalletReference(orderID uint, action string) string {
	action = strings.TrimSpace(action)
	if action == "" {
		action = "wallet"
	}
	return fmt.Sprintf("order:%d:%s", orderID, action)
}
