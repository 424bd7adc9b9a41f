package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

// NewOrderID produces store-assigned ids like ORD-3F2A9C41.
func NewOrderID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "ORD-" + strings.ToUpper(raw[:8])
}

const orderColumns = `id, product_id, product_name, quantity, customer_name, email, contact,
	province, city, barangay, address_details, package_size, item_category,
	payment_method, payment_status, shipping_status, COALESCE(tracking_number, ''),
	amount_cents, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.ProductID, &o.ProductName, &o.Quantity, &o.CustomerName,
		&o.Email, &o.Contact, &o.Province, &o.City, &o.Barangay, &o.AddressDetails,
		&o.PackageSize, &o.ItemCategory, &o.PaymentMethod, &o.PaymentStatus,
		&o.ShippingStatus, &o.TrackingNumber, &o.AmountCents, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func (r *Repo) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, name, description, price_cents, stock, size, category,
		COALESCE(image_url, ''), created_at, updated_at FROM products ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.Stock,
			&p.Size, &p.Category, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) GetProduct(ctx context.Context, id string) (Product, error) {
	var p Product
	err := r.DB.QueryRow(ctx, `SELECT id, name, description, price_cents, stock, size, category,
		COALESCE(image_url, ''), created_at, updated_at FROM products WHERE id=$1`, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.Stock,
			&p.Size, &p.Category, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

// CreateOrder inserts a Pending/Pending order and decrements product stock
// in the same transaction. The stock row is locked so concurrent orders
// cannot oversell.
func (r *Repo) CreateOrder(ctx context.Context, in CreateOrderInput) (Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		name, size, category string
		stock, price         int
	)
	err = tx.QueryRow(ctx, `SELECT name, stock, price_cents, size, category
		FROM products WHERE id=$1 FOR UPDATE`, in.ProductID).
		Scan(&name, &stock, &price, &size, &category)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, fmt.Errorf("product %s: %w", in.ProductID, ErrNotFound)
	}
	if err != nil {
		return Order{}, err
	}
	if in.Quantity <= 0 {
		return Order{}, fmt.Errorf("invalid quantity %d", in.Quantity)
	}
	if stock < in.Quantity {
		return Order{}, fmt.Errorf("product %s: need %d, have %d: %w",
			in.ProductID, in.Quantity, stock, ErrOutOfStock)
	}

	if _, err := tx.Exec(ctx, `UPDATE products SET stock = stock - $2, updated_at = now()
		WHERE id=$1`, in.ProductID, in.Quantity); err != nil {
		return Order{}, err
	}

	o := Order{
		ID:             NewOrderID(),
		ProductID:      in.ProductID,
		ProductName:    name,
		Quantity:       in.Quantity,
		CustomerName:   in.CustomerName,
		Email:          in.Email,
		Contact:        in.Contact,
		Province:       in.Province,
		City:           in.City,
		Barangay:       in.Barangay,
		AddressDetails: in.AddressDetails,
		PackageSize:    size,
		ItemCategory:   category,
		PaymentMethod:  in.PaymentMethod,
		PaymentStatus:  PaymentPending,
		ShippingStatus: ShippingPending,
		AmountCents:    price * in.Quantity,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO orders(id, product_id, product_name, quantity, customer_name, email, contact,
			province, city, barangay, address_details, package_size, item_category,
			payment_method, payment_status, shipping_status, amount_cents)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		RETURNING created_at, updated_at`,
		o.ID, o.ProductID, o.ProductName, o.Quantity, o.CustomerName, o.Email, o.Contact,
		o.Province, o.City, o.Barangay, o.AddressDetails, o.PackageSize, o.ItemCategory,
		o.PaymentMethod, o.PaymentStatus, o.ShippingStatus, o.AmountCents).
		Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	return o, nil
}

func (r *Repo) ListOrders(ctx context.Context, f Filter) ([]Order, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.PaymentStatus != "" && f.PaymentStatus != "all" {
		add("payment_status = $%d", f.PaymentStatus)
	}
	if f.ShippingStatus != "" && f.ShippingStatus != "all" {
		add("shipping_status = $%d", f.ShippingStatus)
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf(
			"(id ILIKE $%d OR customer_name ILIKE $%d OR tracking_number ILIKE $%d)", n, n, n))
	}

	q := `SELECT ` + orderColumns + ` FROM orders`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC"

	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *Repo) GetOrder(ctx context.Context, id string) (Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	return o, err
}

// UpdateOrderStatus applies a partial status patch under a row lock.
// Transitions are validated per axis; Shipped requires a tracking number
// either in the patch or already on the record.
func (r *Repo) UpdateOrderStatus(ctx context.Context, id string, patch StatusPatch) (Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o, err := scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}

	o, err = applyPatch(o, patch)
	if err != nil {
		return Order{}, err
	}

	err = tx.QueryRow(ctx, `UPDATE orders
		SET payment_status=$2, shipping_status=$3, tracking_number=NULLIF($4, ''), updated_at=now()
		WHERE id=$1 RETURNING updated_at`,
		o.ID, o.PaymentStatus, o.ShippingStatus, o.TrackingNumber).Scan(&o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	return o, nil
}

// RecordBookingReport stores a dispatch-run summary for audit. The payload
// is kept verbatim so the report survives summary shape changes.
func (r *Repo) RecordBookingReport(ctx context.Context, payload json.RawMessage, reportedAt time.Time) error {
	_, err := r.DB.Exec(ctx, `INSERT INTO booking_reports(id, payload, reported_at)
		VALUES ($1, $2, $3)`, uuid.NewString(), payload, reportedAt)
	return err
}
