// Package catalog wires the loader sets of the admin catalog: products, orders
// and categories stored in SQL.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/unkn0wn-root/batchload"
	"github.com/unkn0wn-root/batchload/source/sqlstore"
)

const Schema = `
CREATE TABLE IF NOT EXISTS categories (
	id   INTEGER PRIMARY KEY,
	slug TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS products (
	id          INTEGER PRIMARY KEY,
	sku         TEXT NOT NULL UNIQUE,
	name        TEXT NOT NULL,
	category_id INTEGER NOT NULL REFERENCES categories(id),
	price_cents INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS orders (
	id          INTEGER PRIMARY KEY,
	number      TEXT NOT NULL UNIQUE,
	customer_id INTEGER NOT NULL,
	product_id  INTEGER NOT NULL REFERENCES products(id),
	quantity    INTEGER NOT NULL
);`

// Migrate creates the catalog tables.
func Migrate(ctx context.Context, db sqlx.ExecerContext) error {
	for _, stmt := range strings.Split(Schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("catalog: migrate: %w", err)
		}
	}
	return nil
}

type Category struct {
	ID   int64  `db:"id"`
	Slug string `db:"slug"`
	Name string `db:"name"`
}

type Product struct {
	ID         int64  `db:"id"`
	SKU        string `db:"sku"`
	Name       string `db:"name"`
	CategoryID int64  `db:"category_id"`
	PriceCents int64  `db:"price_cents"`
}

type Order struct {
	ID         int64  `db:"id"`
	Number     string `db:"number"`
	CustomerID int64  `db:"customer_id"`
	ProductID  int64  `db:"product_id"`
	Quantity   int    `db:"quantity"`
}

const (
	categoryCols = `SELECT id, slug, name FROM categories`
	productCols  = `SELECT id, sku, name, category_id, price_cents FROM products`
	orderCols    = `SELECT id, number, customer_id, product_id, quantity FROM orders`
)

// Loaders is the per-request loader set of the catalog.
type Loaders struct {
	Categories *batchload.Entity[int64, string, Category]
	Products   *batchload.Entity[int64, string, Product]
	Orders     *batchload.Entity[int64, string, Order]
}

// NewLoaders builds every catalog loader inside scope.
func NewLoaders(scope *batchload.Scope, db sqlstore.DB) (*Loaders, error) {
	categories, err := batchload.NewEntity(scope, batchload.EntityOptions[int64, string, Category]{
		Entity:       "category",
		IDOf:         func(c Category) int64 { return c.ID },
		FetchByID:    sqlstore.In[int64, Category](db, categoryCols+` WHERE id IN (?)`),
		FieldOf:      func(c Category) string { return c.Slug },
		FetchByField: sqlstore.In[string, Category](db, categoryCols+` WHERE slug IN (?)`),
		Search:       sqlstore.Like[Category](db, categoryCols+` WHERE name LIKE ? ESCAPE '\' OR slug LIKE ? ESCAPE '\' ORDER BY name LIMIT 50`),
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: categories: %w", err)
	}

	products, err := batchload.NewEntity(scope, batchload.EntityOptions[int64, string, Product]{
		Entity:       "product",
		IDOf:         func(p Product) int64 { return p.ID },
		FetchByID:    sqlstore.In[int64, Product](db, productCols+` WHERE id IN (?)`),
		FieldOf:      func(p Product) string { return p.SKU },
		FetchByField: sqlstore.In[string, Product](db, productCols+` WHERE sku IN (?)`),
		Search:       sqlstore.Like[Product](db, productCols+` WHERE name LIKE ? ESCAPE '\' OR sku LIKE ? ESCAPE '\' ORDER BY name LIMIT 50`),
		Relations: []batchload.Relation[int64, Product]{{
			Name:  "CategoryID",
			Fetch: sqlstore.In[int64, Product](db, productCols+` WHERE category_id IN (?) ORDER BY name`),
			KeyOf: func(p Product) int64 { return p.CategoryID },
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: products: %w", err)
	}

	orders, err := batchload.NewEntity(scope, batchload.EntityOptions[int64, string, Order]{
		Entity:       "order",
		IDOf:         func(o Order) int64 { return o.ID },
		FetchByID:    sqlstore.In[int64, Order](db, orderCols+` WHERE id IN (?)`),
		FieldOf:      func(o Order) string { return o.Number },
		FetchByField: sqlstore.In[string, Order](db, orderCols+` WHERE number IN (?)`),
		Search:       sqlstore.Like[Order](db, orderCols+` WHERE number LIKE ? ESCAPE '\' ORDER BY id DESC LIMIT 50`),
		Relations: []batchload.Relation[int64, Order]{
			{
				Name:  "CustomerID",
				Fetch: sqlstore.In[int64, Order](db, orderCols+` WHERE customer_id IN (?) ORDER BY id`),
				KeyOf: func(o Order) int64 { return o.CustomerID },
			},
			{
				Name:  "ProductID",
				Fetch: sqlstore.In[int64, Order](db, orderCols+` WHERE product_id IN (?) ORDER BY id`),
				KeyOf: func(o Order) int64 { return o.ProductID },
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: orders: %w", err)
	}

	return &Loaders{Categories: categories, Products: products, Orders: orders}, nil
}

// RenameProduct updates a product's name and refreshes the request's loaders:
// the id and sku entries are replaced with the new row, and product searches are
// dropped since the name is what they match.
func RenameProduct(ctx context.Context, db sqlx.ExtContext, l *Loaders, id int64, name string) (Product, error) {
	res, err := db.ExecContext(ctx, db.Rebind(`UPDATE products SET name = ? WHERE id = ?`), name, id)
	if err != nil {
		return Product{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return Product{}, fmt.Errorf("catalog: product %d not found", id)
	}

	var p Product
	if err := sqlx.GetContext(ctx, db, &p, db.Rebind(productCols+` WHERE id = ?`), id); err != nil {
		return Product{}, err
	}

	l.Products.ClearByID(p.ID)
	l.Products.ClearByField(p.SKU)
	l.Products.Search().ClearAll()
	if rel, ok := l.Products.Relation("CategoryID"); ok {
		rel.Clear(p.CategoryID)
	}
	l.Products.Prime(p)
	return p, nil
}

// OrderLine is an order joined with its product and category, as the admin list shows it.
type OrderLine struct {
	Order    Order
	Product  Product
	Category Category
}

// CustomerOrders resolves the order lines of several customers. Each level is one
// LoadMany through the scope's loaders, so N customers cost three queries, not 1+2N.
func CustomerOrders(ctx context.Context, l *Loaders, customers []int64) (map[int64][]OrderLine, error) {
	byCustomer, ok := l.Orders.Relation("CustomerID")
	if !ok {
		return nil, fmt.Errorf("catalog: orders have no CustomerID relation")
	}
	orders, err := byCustomer.LoadMany(ctx, customers)
	if err != nil {
		return nil, err
	}

	var productIDs []int64
	for _, rows := range orders {
		for _, o := range rows {
			productIDs = append(productIDs, o.ProductID)
		}
	}
	products, missing, err := l.Products.ByID().LoadMany(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("catalog: products %v not found", missing)
	}

	categoryIDs := make([]int64, 0, len(products))
	for _, p := range products {
		categoryIDs = append(categoryIDs, p.CategoryID)
	}
	categories, _, err := l.Categories.ByID().LoadMany(ctx, categoryIDs)
	if err != nil {
		return nil, err
	}

	out := make(map[int64][]OrderLine, len(orders))
	for c, rows := range orders {
		lines := make([]OrderLine, 0, len(rows))
		for _, o := range rows {
			p := products[o.ProductID]
			lines = append(lines, OrderLine{Order: o, Product: p, Category: categories[p.CategoryID]})
		}
		out[c] = lines
	}
	return out, nil
}
