// Package docnum issues human-readable document numbers like REQ/2026/08/0007.
// Counters are persisted per prefix and month so numbers survive restarts.
package docnum

import (
	"context"
	"fmt"
	"time"

	"arka-asset-api/internal/store"
)

// Func returns a unique document number for a prefix at a point in time.
// The workflow core treats it as opaque.
type Func func(ctx context.Context, prefix string, date time.Time) (string, error)

// Document number prefixes.
const (
	PrefixRequest      = "REQ"
	PrefixLoan         = "LOAN"
	PrefixReturn       = "RET"
	PrefixHandover     = "HO"
	PrefixDismantle    = "DSM"
	PrefixInstallation = "INS"
	PrefixMaintenance  = "MNT"
	PrefixAsset        = "AST"
)

// New returns a Func backed by the store's sequences collection.
func New(s store.Store) Func {
	return func(ctx context.Context, prefix string, date time.Time) (string, error) {
		var number string
		err := s.Update(ctx, []string{store.Sequences}, func(tx store.Tx) error {
			var err error
			number, err = NextInTx(tx, prefix, date)
			return err
		})
		if err != nil {
			return "", err
		}
		return number, nil
	}
}

// NextInTx issues the next number inside an already open transaction that
// holds the sequences collection. Workflows that number several documents
// atomically with other writes use this instead of a Func.
func NextInTx(tx store.Tx, prefix string, date time.Time) (string, error) {
	bucket := fmt.Sprintf("%s/%04d/%02d", prefix, date.Year(), date.Month())
	counters := map[string]int{}
	if err := tx.Get(store.Sequences, &counters); err != nil {
		return "", err
	}
	counters[bucket]++
	if err := tx.Put(store.Sequences, counters); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%04d", bucket, counters[bucket]), nil
}
