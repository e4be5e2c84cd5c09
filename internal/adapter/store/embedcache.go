package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"

	"go.etcd.io/bbolt"
)

var (
	bucketRows = []byte("rows")
	bucketMeta = []byte("meta")

	keyModel = []byte("model")
	keyRows  = []byte("row_count")
)

// EmbeddingCache persists one dense vector per row in a bbolt file. Rows are
// keyed by position so their order matches the documented ordering of the
// collection they were computed for (catalogue order for symbols, sorted-ID
// order for queries). A cache is only accepted when both the embedding model
// and the row count match; anything else is a miss that triggers
// recomputation.

// LoadMatrix reads a cached matrix. It returns ok=false when the file is
// absent, was written for a different model, or holds a different number of
// rows than wantRows.
func LoadMatrix(path, model string, wantRows int) ([][]float32, bool, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, false, nil
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{ReadOnly: true})
	if err != nil {
		return nil, false, fmt.Errorf("failed to open embedding cache: %w", err)
	}
	defer db.Close()

	var matrix [][]float32
	ok := false

	err = db.View(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		rows := tx.Bucket(bucketRows)
		if meta == nil || rows == nil {
			return nil
		}

		if string(meta.Get(keyModel)) != model {
			return nil
		}
		count := int(binary.BigEndian.Uint64(padCount(meta.Get(keyRows))))
		if count != wantRows {
			return nil
		}

		matrix = make([][]float32, 0, count)
		for i := 0; i < count; i++ {
			data := rows.Get(itob(uint64(i)))
			if data == nil {
				matrix = nil
				return nil
			}
			var row []float32
			if err := json.Unmarshal(data, &row); err != nil {
				matrix = nil
				return nil
			}
			matrix = append(matrix, row)
		}
		ok = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return matrix, ok, nil
}

// SaveMatrix writes a matrix to path in a single transaction, replacing any
// previous contents. The write happens exactly once per successful full
// computation; partially computed batches are never persisted.
func SaveMatrix(path, model string, matrix [][]float32) error {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return fmt.Errorf("failed to open embedding cache: %w", err)
	}
	defer db.Close()

	return db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketRows, bucketMeta} {
			if tx.Bucket(name) != nil {
				if err := tx.DeleteBucket(name); err != nil {
					return err
				}
			}
		}

		rows, err := tx.CreateBucket(bucketRows)
		if err != nil {
			return err
		}
		meta, err := tx.CreateBucket(bucketMeta)
		if err != nil {
			return err
		}

		for i, row := range matrix {
			data, err := json.Marshal(row)
			if err != nil {
				return err
			}
			if err := rows.Put(itob(uint64(i)), data); err != nil {
				return err
			}
		}

		if err := meta.Put(keyModel, []byte(model)); err != nil {
			return err
		}
		return meta.Put(keyRows, itob(uint64(len(matrix))))
	})
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// padCount guards against a missing or short row_count value.
func padCount(b []byte) []byte {
	if len(b) == 8 {
		return b
	}
	return make([]byte, 8)
}
