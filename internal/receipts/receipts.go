package receipts

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/DGouron/billed/internal/domain/bills"
)

var (
	ErrReceiptNotFound = errors.New("receipt not found")
	ErrReceiptEmpty    = errors.New("receipt content is empty")
)

const bucketName = "receipts"

// URLPrefix is the route prefix receipt file URLs are built from.
const URLPrefix = "/api/receipts/"

// Vault stores uploaded receipt images in a bbolt bucket keyed by a
// generated storage key. The stored value is the file name followed by a
// NUL byte and the raw content, so the original name survives round trips.
type Vault struct {
	db *bbolt.DB
}

func NewVault(path string) (*Vault, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bbolt.Open: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(bucketName)); err != nil {
			return fmt.Errorf("tx.CreateBucketIfNotExists: %w", err)
		}

		return nil
	})
	if err != nil {
		db.Close() //nolint:errcheck

		return nil, err
	}

	return &Vault{db: db}, nil
}

func (v *Vault) Close() error {
	if err := v.db.Close(); err != nil {
		return fmt.Errorf("db.Close: %w", err)
	}

	return nil
}

// Put validates the file extension rule and stores the content. It returns
// the storage key and the file URL to attach to a bill.
func (v *Vault) Put(fileName string, content []byte) (key, fileURL string, err error) {
	if err := bills.ValidateReceiptName(fileName); err != nil {
		return "", "", err
	}

	if len(content) == 0 {
		return "", "", ErrReceiptEmpty
	}

	key = uuid.NewString()

	value := make([]byte, 0, len(fileName)+1+len(content))
	value = append(value, []byte(fileName)...)
	value = append(value, 0)
	value = append(value, content...)

	err = v.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket([]byte(bucketName)).Put([]byte(key), value); err != nil {
			return fmt.Errorf("bucket.Put: %w", err)
		}

		return nil
	})
	if err != nil {
		return "", "", err
	}

	return key, URLPrefix + key, nil
}

// Get returns the stored file name and content for a key.
func (v *Vault) Get(key string) (fileName string, content []byte, err error) {
	err = v.db.View(func(tx *bbolt.Tx) error {
		value := tx.Bucket([]byte(bucketName)).Get([]byte(key))
		if value == nil {
			return ErrReceiptNotFound
		}

		sep := -1

		for i, b := range value {
			if b == 0 {
				sep = i

				break
			}
		}

		if sep < 0 {
			return ErrReceiptNotFound
		}

		fileName = string(value[:sep])
		content = make([]byte, len(value)-sep-1)
		copy(content, value[sep+1:])

		return nil
	})
	if err != nil {
		return "", nil, err
	}

	return fileName, content, nil
}

// Has reports whether a key is present in the vault.
func (v *Vault) Has(key string) (bool, error) {
	var found bool

	err := v.db.View(func(tx *bbolt.Tx) error {
		found = tx.Bucket([]byte(bucketName)).Get([]byte(key)) != nil

		return nil
	})
	if err != nil {
		return false, fmt.Errorf("db.View: %w", err)
	}

	return found, nil
}

func (v *Vault) Delete(key string) error {
	err := v.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket([]byte(bucketName)).Delete([]byte(key)); err != nil {
			return fmt.Errorf("bucket.Delete: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

// ContentType maps a stored file name to its image content type.
func ContentType(fileName string) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".png":
		return "image/png"
	default:
		return "image/jpeg"
	}
}

// KeyFromURL extracts the storage key from a receipt file URL. Returns an
// empty string when the URL does not point into the vault.
func KeyFromURL(fileURL string) string {
	if !strings.HasPrefix(fileURL, URLPrefix) {
		return ""
	}

	return strings.TrimPrefix(fileURL, URLPrefix)
}
