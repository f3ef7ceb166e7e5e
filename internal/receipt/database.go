package receipt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.etcd.io/bbolt"
)

const (
	receiptBucketName    = "receipts"
	phoneIndexBucketName = "phone_index"
	campaignBucketName   = "campaigns"
)

// DB defines the persistence sink for the pipeline: keyed receipt writes
// with a phone-number secondary index, plus the campaign collection that
// feeds the brand name set.
type DB interface {
	// SaveReceipt saves a receipt and indexes it under the guest's phone
	// number in one transaction.
	SaveReceipt(receipt *Receipt) error

	// GetReceipt retrieves a receipt by ID
	GetReceipt(id string) (*Receipt, error)

	// ListReceipts returns all receipts
	ListReceipts() ([]*Receipt, error)

	// ListReceiptsByPhone returns the receipts submitted from one phone number
	ListReceiptsByPhone(phone string) ([]*Receipt, error)

	// DeleteReceipt removes a receipt and its index entry
	DeleteReceipt(id string) error

	// SaveCampaign saves a campaign record
	SaveCampaign(campaign *Campaign) error

	// ListCampaigns returns all campaigns
	ListCampaigns() ([]*Campaign, error)

	// DeleteCampaign removes a campaign
	DeleteCampaign(id string) error

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{receiptBucketName, phoneIndexBucketName, campaignBucketName} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// SaveReceipt writes the receipt and its phone-index entry atomically.
func (b *BoltDB) SaveReceipt(receipt *Receipt) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(receiptBucketName))
		data, err := json.Marshal(receipt)
		if err != nil {
			return fmt.Errorf("marshaling receipt: %w", err)
		}
		if err := bucket.Put([]byte(receipt.ID), data); err != nil {
			return err
		}
		if receipt.GuestPhoneNumber == "" {
			return nil
		}
		return addToPhoneIndex(tx, receipt.GuestPhoneNumber, receipt.ID)
	})
}

func addToPhoneIndex(tx *bbolt.Tx, phone, id string) error {
	bucket := tx.Bucket([]byte(phoneIndexBucketName))
	ids, err := decodePhoneIndex(bucket.Get([]byte(phone)))
	if err != nil {
		return err
	}
	for _, existing := range ids {
		if existing == id {
			return nil
		}
	}
	ids = append(ids, id)
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("marshaling phone index: %w", err)
	}
	return bucket.Put([]byte(phone), data)
}

func decodePhoneIndex(data []byte) ([]string, error) {
	if data == nil {
		return []string{}, nil
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("unmarshaling phone index: %w", err)
	}
	return ids, nil
}

// GetReceipt retrieves a receipt by ID
func (b *BoltDB) GetReceipt(id string) (*Receipt, error) {
	var receipt *Receipt
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(receiptBucketName))
		data := bucket.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("receipt not found: %s", id)
		}
		return json.Unmarshal(data, &receipt)
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// ListReceipts returns all receipts
func (b *BoltDB) ListReceipts() ([]*Receipt, error) {
	receipts := make([]*Receipt, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(receiptBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var receipt Receipt
			if err := json.Unmarshal(v, &receipt); err != nil {
				return fmt.Errorf("unmarshaling receipt: %w", err)
			}
			receipts = append(receipts, &receipt)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return receipts, nil
}

// ListReceiptsByPhone resolves the phone index to full receipt records.
func (b *BoltDB) ListReceiptsByPhone(phone string) ([]*Receipt, error) {
	receipts := make([]*Receipt, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		ids, err := decodePhoneIndex(tx.Bucket([]byte(phoneIndexBucketName)).Get([]byte(phone)))
		if err != nil {
			return err
		}
		bucket := tx.Bucket([]byte(receiptBucketName))
		for _, id := range ids {
			data := bucket.Get([]byte(id))
			if data == nil {
				// Index entry for a deleted receipt; skip it.
				continue
			}
			var receipt Receipt
			if err := json.Unmarshal(data, &receipt); err != nil {
				return fmt.Errorf("unmarshaling receipt: %w", err)
			}
			receipts = append(receipts, &receipt)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipts, nil
}

// DeleteReceipt removes a receipt and its phone-index entry.
func (b *BoltDB) DeleteReceipt(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(receiptBucketName))
		data := bucket.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("receipt not found: %s", id)
		}
		var receipt Receipt
		if err := json.Unmarshal(data, &receipt); err != nil {
			return fmt.Errorf("unmarshaling receipt: %w", err)
		}
		if err := bucket.Delete([]byte(id)); err != nil {
			return err
		}
		if receipt.GuestPhoneNumber == "" {
			return nil
		}
		return removeFromPhoneIndex(tx, receipt.GuestPhoneNumber, id)
	})
}

func removeFromPhoneIndex(tx *bbolt.Tx, phone, id string) error {
	bucket := tx.Bucket([]byte(phoneIndexBucketName))
	ids, err := decodePhoneIndex(bucket.Get([]byte(phone)))
	if err != nil {
		return err
	}
	kept := ids[:0]
	for _, existing := range ids {
		if existing != id {
			kept = append(kept, existing)
		}
	}
	if len(kept) == 0 {
		return bucket.Delete([]byte(phone))
	}
	data, err := json.Marshal(kept)
	if err != nil {
		return fmt.Errorf("marshaling phone index: %w", err)
	}
	return bucket.Put([]byte(phone), data)
}

// SaveCampaign saves a campaign record
func (b *BoltDB) SaveCampaign(campaign *Campaign) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(campaignBucketName))
		data, err := json.Marshal(campaign)
		if err != nil {
			return fmt.Errorf("marshaling campaign: %w", err)
		}
		return bucket.Put([]byte(campaign.ID), data)
	})
}

// ListCampaigns returns all campaigns
func (b *BoltDB) ListCampaigns() ([]*Campaign, error) {
	campaigns := make([]*Campaign, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(campaignBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var campaign Campaign
			if err := json.Unmarshal(v, &campaign); err != nil {
				return fmt.Errorf("unmarshaling campaign: %w", err)
			}
			campaigns = append(campaigns, &campaign)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return campaigns, nil
}

// DeleteCampaign removes a campaign
func (b *BoltDB) DeleteCampaign(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(campaignBucketName)).Delete([]byte(id))
	})
}

// BrandNames builds the brand name set from the campaign collection: each
// campaign contributes its brand name, keyed by the lowercase form. Called
// fresh on every parse so new campaigns take effect immediately.
func (b *BoltDB) BrandNames(ctx context.Context) (map[string]string, error) {
	campaigns, err := b.ListCampaigns()
	if err != nil {
		return nil, fmt.Errorf("listing campaigns: %w", err)
	}
	brands := make(map[string]string, len(campaigns))
	for _, c := range campaigns {
		name := strings.TrimSpace(c.BrandName)
		if name == "" {
			continue
		}
		brands[strings.ToLower(name)] = name
	}
	return brands, nil
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
