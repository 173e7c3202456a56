package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/unkn0wn-root/batchload"
)

func seed(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	require.NoError(t, Migrate(ctx, db))
	for _, q := range []string{
		`INSERT INTO categories (id, slug, name) VALUES (1, 'fruit', 'Fruit'), (2, 'dairy', 'Dairy')`,
		`INSERT INTO products (id, sku, name, category_id, price_cents) VALUES
			(10, 'APL', 'Apple', 1, 50),
			(11, 'BAN', 'Banana', 1, 30),
			(12, 'MLK', 'Milk', 2, 120)`,
		`INSERT INTO orders (id, number, customer_id, product_id, quantity) VALUES
			(100, 'ORD-100', 7, 10, 3),
			(101, 'ORD-101', 7, 12, 1),
			(102, 'ORD-102', 8, 11, 6)`,
	} {
		db.MustExecContext(ctx, q)
	}
	return db
}

func newScope(t *testing.T) *batchload.Scope {
	t.Helper()
	s := batchload.NewScope(context.Background(), batchload.ScopeOptions{Wait: 10 * time.Millisecond})
	t.Cleanup(s.Close)
	return s
}

func TestCustomerOrdersBatchesEveryLevel(t *testing.T) {
	db := seed(t)
	scope := newScope(t)
	l, err := NewLoaders(scope, db)
	require.NoError(t, err)

	got, err := CustomerOrders(context.Background(), l, []int64{7, 8, 9})
	require.NoError(t, err)

	require.Len(t, got[7], 2)
	assert.Equal(t, "ORD-100", got[7][0].Order.Number)
	assert.Equal(t, "Apple", got[7][0].Product.Name)
	assert.Equal(t, "Fruit", got[7][0].Category.Name)
	assert.Equal(t, "Dairy", got[7][1].Category.Name)
	require.Len(t, got[8], 1)
	assert.Equal(t, "Banana", got[8][0].Product.Name)
	assert.NotNil(t, got[9])
	assert.Empty(t, got[9])

	// one fetch per loader touched
	for _, s := range scope.Stats() {
		switch s.Loader {
		case "order.byCustomerID", "product.byID", "category.byID":
			assert.Equal(t, uint64(1), s.Batches, s.Loader)
		}
	}
}

func TestLoadersSearchAndLookupByField(t *testing.T) {
	db := seed(t)
	l, err := NewLoaders(newScope(t), db)
	require.NoError(t, err)
	ctx := context.Background()

	p, ok, err := l.Products.ByField().Load(ctx, "MLK")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(12), p.ID)

	rows, err := l.Products.Search().Load(ctx, "an")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Banana", rows[0].Name)

	fruit, ok := l.Products.Relation("CategoryID")
	require.True(t, ok)
	rows, err = fruit.Load(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Apple", rows[0].Name)
}

func TestRenameProductRefreshesLoaders(t *testing.T) {
	db := seed(t)
	l, err := NewLoaders(newScope(t), db)
	require.NoError(t, err)
	ctx := context.Background()

	before, _, err := l.Products.ByID().Load(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "Apple", before.Name)
	found, err := l.Products.Search().Load(ctx, "Gala")
	require.NoError(t, err)
	assert.Empty(t, found)

	updated, err := RenameProduct(ctx, db, l, 10, "Gala Apple")
	require.NoError(t, err)
	assert.Equal(t, "Gala Apple", updated.Name)

	after, _, err := l.Products.ByID().Load(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "Gala Apple", after.Name)
	bySKU, _, err := l.Products.ByField().Load(ctx, "APL")
	require.NoError(t, err)
	assert.Equal(t, "Gala Apple", bySKU.Name)
	found, err = l.Products.Search().Load(ctx, "Gala")
	require.NoError(t, err)
	assert.Len(t, found, 1)

	_, err = RenameProduct(ctx, db, l, 999, "ghost")
	assert.Error(t, err)
}
