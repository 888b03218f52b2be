package usecase_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"smartephone/internal/domain/model"
	"smartephone/internal/domain/payment"
	"smartephone/internal/infra/catalog"
	repo "smartephone/internal/repository"
	"smartephone/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// =====================
// TxManager / TxRepos
// =====================

// WithinTx の中で渡す repos を固定して unit テストを回す
type txManagerMock struct {
	repos repo.TxRepos
	calls int
}

func (m *txManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	m.calls++
	return fn(m.repos)
}

type txReposMock struct {
	orders repo.OrderRepository
	events repo.OrderEventRepository
	carts  repo.CartRepository
}

func (r *txReposMock) Orders() repo.OrderRepository      { return r.orders }
func (r *txReposMock) Events() repo.OrderEventRepository { return r.events }
func (r *txReposMock) Carts() repo.CartRepository        { return r.carts }

// =====================
// Repository mocks
// =====================

type userRepoMock struct{ mock.Mock }

func (m *userRepoMock) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *userRepoMock) FindByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *userRepoMock) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *userRepoMock) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *userRepoMock) IncrementTokenVersion(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

var _ repo.UserRepository = (*userRepoMock)(nil)

type cartRepoMock struct{ mock.Mock }

func (m *cartRepoMock) FindByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	args := m.Called(ctx, userID)
	c, _ := args.Get(0).(model.Cart)
	return c, args.Error(1)
}

func (m *cartRepoMock) Save(ctx context.Context, userID int64, lines []model.CartLine) (model.Cart, error) {
	args := m.Called(ctx, userID, lines)
	c, _ := args.Get(0).(model.Cart)
	return c, args.Error(1)
}

func (m *cartRepoMock) Clear(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

var _ repo.CartRepository = (*cartRepoMock)(nil)

type orderRepoMock struct{ mock.Mock }

func (m *orderRepoMock) Create(ctx context.Context, order *model.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *orderRepoMock) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *orderRepoMock) FindByRef(ctx context.Context, ref string) (model.Order, error) {
	args := m.Called(ctx, ref)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *orderRepoMock) ListByUserID(ctx context.Context, userID int64) ([]model.Order, error) {
	args := m.Called(ctx, userID)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Error(1)
}

func (m *orderRepoMock) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	args := m.Called(ctx, f)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Get(1).(int64), args.Error(2)
}

func (m *orderRepoMock) MarkPaid(ctx context.Context, ref string, paidAt time.Time, createdAfter time.Time) (bool, error) {
	args := m.Called(ctx, ref, paidAt, createdAfter)
	return args.Bool(0), args.Error(1)
}

func (m *orderRepoMock) Transition(ctx context.Context, orderID int64, to model.OrderStatus, ch repo.StatusChange) (bool, error) {
	args := m.Called(ctx, orderID, to, ch)
	return args.Bool(0), args.Error(1)
}

func (m *orderRepoMock) FindExpiredUnpaid(ctx context.Context, cutoff time.Time, limit int) ([]model.Order, error) {
	args := m.Called(ctx, cutoff, limit)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Error(1)
}

var _ repo.OrderRepository = (*orderRepoMock)(nil)

type eventRepoMock struct{ mock.Mock }

func (m *eventRepoMock) Create(ctx context.Context, event model.OrderEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *eventRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderEvent, error) {
	args := m.Called(ctx, orderID)
	events, _ := args.Get(0).([]model.OrderEvent)
	return events, args.Error(1)
}

var _ repo.OrderEventRepository = (*eventRepoMock)(nil)

// =====================
// その他の部品
// =====================

type linkCreatorMock struct{ mock.Mock }

func (m *linkCreatorMock) CreateLink(ctx context.Context, in payment.LinkRequest) (payment.Link, error) {
	args := m.Called(ctx, in)
	l, _ := args.Get(0).(payment.Link)
	return l, args.Error(1)
}

type parserMock struct{ mock.Mock }

func (m *parserMock) Parse(body []byte, signature string) (payment.Event, error) {
	args := m.Called(body, signature)
	ev, _ := args.Get(0).(payment.Event)
	return ev, args.Error(1)
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type fixedRefs struct{ ref string }

func (r fixedRefs) NewRef() string { return r.ref }

// ハッシュは "hashed:" + 平文
type fakeHasher struct{}

func (fakeHasher) Hash(plain string) (string, error) { return "hashed:" + plain, nil }
func (fakeHasher) Verify(plain, hashed string) bool  { return hashed == "hashed:"+plain }

type fakeIssuer struct{}

func (fakeIssuer) Issue(user model.User, now time.Time) (string, time.Time, error) {
	return "token-" + string(user.Role) + "-" + strconv.Itoa(user.TokenVersion), now.Add(time.Hour), nil
}

// validatorは何も弾かない
type passValidator struct{}

func (passValidator) ValidateRegister(ctx context.Context, username, email, password string) error {
	return nil
}
func (passValidator) ValidateLogin(ctx context.Context, email, password string) error { return nil }
func (passValidator) ValidatePassword(ctx context.Context, password string) error     { return nil }

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// テスト用カタログ。1は色・容量あり、2は選択肢なし
func newTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New([]model.Product{
		{ID: 1, Name: "Phone One", Brand: "Acme", Price: 1000, Colors: []string{"Black", "White"}, Storage: []string{"128GB", "256GB"}},
		{ID: 2, Name: "Phone Two", Brand: "Acme", Price: 500},
	})
	require.NoError(t, err)
	return c
}

// HTTPErrorのstatusとmessageを確認する
func assertHTTPError(t *testing.T, err error, status int, msgContains string) {
	t.Helper()
	require.Error(t, err)
	he, ok := usecase.AsHTTPError(err)
	require.True(t, ok, "expected HTTPError, got %T: %v", err, err)
	assert.Equal(t, status, he.Status)
	if msgContains != "" {
		assert.Contains(t, he.Message, msgContains)
	}
}
