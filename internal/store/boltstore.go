package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/boltdb/bolt"
	"github.com/google/uuid"
)

// Bucket names used by BoltStore. Orders are keyed by an 8-byte
// big-endian sequence number so that a reverse cursor walk yields
// newest-first ordering without a separate index.
var (
	bucketOrders      = []byte("orders")
	bucketRegions     = []byte("regions")
	bucketCollections = []byte("payment_collections")
	bucketPayments    = []byte("payments")
)

// BoltStore is a Store backed by a single BoltDB file. It suits
// single-instance deployments that need orders to survive a restart
// without running an external database.
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt opens (or creates) the database file at path and ensures all
// buckets exist.
func OpenBolt(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bolt: open %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketOrders, bucketRegions, bucketCollections, bucketPayments} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("bolt: create buckets: %w", err)
	}
	return &BoltStore{db: db}, nil
}

// Close releases the database file lock.
func (b *BoltStore) Close() error {
	return b.db.Close()
}

// CreateOrder assigns an id and creation time and persists the order
// under the next bucket sequence number.
func (b *BoltStore) CreateOrder(_ context.Context, in CreateOrderInput) (Order, error) {
	order := Order{
		ID:              "order_" + uuid.NewString(),
		DisplayID:       in.DisplayID,
		Email:           in.Email,
		CurrencyCode:    in.CurrencyCode,
		Status:          in.Status,
		RegionID:        in.RegionID,
		ShippingAddress: in.ShippingAddress,
		BillingAddress:  in.BillingAddress,
		Items:           in.Items,
		ShippingMethods: in.ShippingMethods,
		Metadata:        in.Metadata,
		CreatedAt:       time.Now().UTC(),
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketOrders)
		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		encoded, err := json.Marshal(order)
		if err != nil {
			return err
		}
		return bucket.Put(seqKey(seq), encoded)
	})
	if err != nil {
		return Order{}, fmt.Errorf("bolt: create order: %w", err)
	}
	return order, nil
}

// GetOrder scans the orders bucket for the given id.
func (b *BoltStore) GetOrder(_ context.Context, id string) (Order, error) {
	var found *Order
	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketOrders).ForEach(func(_, v []byte) error {
			var order Order
			if err := json.Unmarshal(v, &order); err != nil {
				return err
			}
			if order.ID == id {
				found = &order
			}
			return nil
		})
	})
	if err != nil {
		return Order{}, fmt.Errorf("bolt: get order: %w", err)
	}
	if found == nil {
		return Order{}, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	return *found, nil
}

// UpdateOrder applies the non-nil fields of in to the stored order.
func (b *BoltStore) UpdateOrder(_ context.Context, id string, in UpdateOrderInput) (Order, error) {
	var updated Order
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketOrders)
		cursor := bucket.Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			var order Order
			if err := json.Unmarshal(v, &order); err != nil {
				return err
			}
			if order.ID != id {
				continue
			}
			if in.Status != nil {
				order.Status = *in.Status
			}
			if len(in.Metadata) > 0 {
				if order.Metadata == nil {
					order.Metadata = make(map[string]string)
				}
				for mk, mv := range in.Metadata {
					order.Metadata[mk] = mv
				}
			}
			encoded, err := json.Marshal(order)
			if err != nil {
				return err
			}
			if err := bucket.Put(k, encoded); err != nil {
				return err
			}
			updated = order
			return nil
		}
		return fmt.Errorf("order %s: %w", id, ErrNotFound)
	})
	if err != nil {
		return Order{}, err
	}
	return updated, nil
}

// ListOrders walks the orders bucket, backwards for NewestFirst, and
// returns up to Limit orders plus the total stored count.
func (b *BoltStore) ListOrders(_ context.Context, filter ListOrdersFilter) ([]Order, int, error) {
	var result []Order
	total := 0
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketOrders)
		total = bucket.Stats().KeyN

		cursor := bucket.Cursor()
		next := cursor.Next
		k, v := cursor.First()
		if filter.NewestFirst {
			next = cursor.Prev
			k, v = cursor.Last()
		}
		for ; k != nil; k, v = next() {
			if filter.Limit > 0 && len(result) >= filter.Limit {
				break
			}
			var order Order
			if err := json.Unmarshal(v, &order); err != nil {
				return err
			}
			result = append(result, order)
		}
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("bolt: list orders: %w", err)
	}
	return result, total, nil
}

// ListRegions returns all regions in insertion order.
func (b *BoltStore) ListRegions(_ context.Context) ([]Region, error) {
	var result []Region
	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRegions).ForEach(func(_, v []byte) error {
			var region Region
			if err := json.Unmarshal(v, &region); err != nil {
				return err
			}
			result = append(result, region)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("bolt: list regions: %w", err)
	}
	return result, nil
}

// CreateRegion persists a region under the next sequence number. When a
// region with the same id already exists the stored record is returned
// unchanged, so seeding is safe to run repeatedly.
func (b *BoltStore) CreateRegion(_ context.Context, region Region) (Region, error) {
	if region.ID == "" {
		region.ID = "reg_" + uuid.NewString()
	}
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketRegions)
		var existing *Region
		if err := bucket.ForEach(func(_, v []byte) error {
			var r Region
			if err := json.Unmarshal(v, &r); err != nil {
				return err
			}
			if r.ID == region.ID {
				existing = &r
			}
			return nil
		}); err != nil {
			return err
		}
		if existing != nil {
			region = *existing
			return nil
		}
		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		encoded, err := json.Marshal(region)
		if err != nil {
			return err
		}
		return bucket.Put(seqKey(seq), encoded)
	})
	if err != nil {
		return Region{}, fmt.Errorf("bolt: create region: %w", err)
	}
	return region, nil
}

// CreatePaymentCollection persists a payment collection.
func (b *BoltStore) CreatePaymentCollection(_ context.Context, pc PaymentCollection) (PaymentCollection, error) {
	if pc.ID == "" {
		pc.ID = "paycol_" + uuid.NewString()
	}
	if pc.CreatedAt.IsZero() {
		pc.CreatedAt = time.Now().UTC()
	}
	if err := b.putSequenced(bucketCollections, pc); err != nil {
		return PaymentCollection{}, fmt.Errorf("bolt: create payment collection: %w", err)
	}
	return pc, nil
}

// CreatePayment persists a captured payment record.
func (b *BoltStore) CreatePayment(_ context.Context, p Payment) (Payment, error) {
	if p.ID == "" {
		p.ID = "pay_" + uuid.NewString()
	}
	if p.CapturedAt.IsZero() {
		p.CapturedAt = time.Now().UTC()
	}
	if err := b.putSequenced(bucketPayments, p); err != nil {
		return Payment{}, fmt.Errorf("bolt: create payment: %w", err)
	}
	return p, nil
}

// ListPayments returns the payments linked to orderID.
func (b *BoltStore) ListPayments(_ context.Context, orderID string) ([]Payment, error) {
	var result []Payment
	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPayments).ForEach(func(_, v []byte) error {
			var p Payment
			if err := json.Unmarshal(v, &p); err != nil {
				return err
			}
			if p.OrderID == orderID {
				result = append(result, p)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("bolt: list payments: %w", err)
	}
	return result, nil
}

func (b *BoltStore) putSequenced(bucketName []byte, record any) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketName)
		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		encoded, err := json.Marshal(record)
		if err != nil {
			return err
		}
		return bucket.Put(seqKey(seq), encoded)
	})
}

func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}

var _ Store = (*BoltStore)(nil)
