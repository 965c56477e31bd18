package ledger

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/paywalled/paid-content/pkg/paidcontent"
)

// rawItem is the loosely-typed shape of a persisted record. Older registry
// files predate price terms, blob pointers and access logs; every field that
// later schemas added is optional here and defaulted by migrateRecord.
type rawItem struct {
	ID          string                                 `json:"id"`
	Title       string                                 `json:"title"`
	Description string                                 `json:"description"`
	Owner       string                                 `json:"owner"`
	Tags        []string                               `json:"tags"`
	PreviewText string                                 `json:"preview_text"`
	Price       *paidcontent.PriceTerms                `json:"price"`
	Blob        *rawBlobPointer                        `json:"blob"`
	AccessLog   map[string]paidcontent.AccessRecord    `json:"access_log"`
	CreatedAt   time.Time                              `json:"created_at"`
}

type rawBlobPointer struct {
	ContentRef string                      `json:"content_ref"`
	Backend    string                      `json:"backend"`
	Epochs     int                         `json:"epochs"`
	Certified  bool                        `json:"certified"`
	Status     string                      `json:"status"`
	Encryption *paidcontent.BlobEncryption `json:"encryption"`
}

// migrateRecord turns a raw decoded record into the canonical item shape,
// defaulting every missing substructure field-by-field so registries written
// by older schemas remain loadable. This is required behavior, not a
// convenience.
func migrateRecord(id string, data json.RawMessage) (*paidcontent.Item, error) {
	var raw rawItem
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding record: %w", err)
	}

	item := &paidcontent.Item{
		ID:          raw.ID,
		Title:       raw.Title,
		Description: raw.Description,
		Owner:       raw.Owner,
		Tags:        raw.Tags,
		PreviewText: raw.PreviewText,
		AccessLog:   raw.AccessLog,
		CreatedAt:   raw.CreatedAt,
	}

	// The map key is authoritative for records persisted before the id was
	// duplicated into the record body.
	if item.ID == "" {
		item.ID = id
	}
	if raw.Price != nil {
		item.Price = *raw.Price
	}
	if item.AccessLog == nil {
		item.AccessLog = make(map[string]paidcontent.AccessRecord)
	}

	item.Blob = migrateBlobPointer(item.ID, raw.Blob)
	return item, nil
}

func migrateBlobPointer(id string, raw *rawBlobPointer) paidcontent.BlobPointer {
	if raw == nil {
		// Pre-storage-network record: nothing was pushed remotely.
		return paidcontent.BlobPointer{
			ContentRef: id,
			Status:     paidcontent.BlobStatusLocalOnly,
		}
	}

	ptr := paidcontent.BlobPointer{
		ContentRef: raw.ContentRef,
		Backend:    raw.Backend,
		Epochs:     raw.Epochs,
		Certified:  raw.Certified,
		Status:     paidcontent.BlobStatus(raw.Status),
		Encryption: raw.Encryption,
	}
	if ptr.ContentRef == "" {
		ptr.ContentRef = id
	}
	switch ptr.Status {
	case paidcontent.BlobStatusPending, paidcontent.BlobStatusSuccess,
		paidcontent.BlobStatusFailed, paidcontent.BlobStatusLocalOnly:
	default:
		ptr.Status = paidcontent.BlobStatusLocalOnly
	}
	return ptr
}
