// Package ledger provides the durable registry of item metadata. A Registry
// keeps the canonical in-memory map and delegates persistence to an injected
// Store that loads and saves the whole registry document; every mutating
// call results in one full rewrite.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/paywalled/paid-content/pkg/paidcontent"
)

// Store persists the registry as one document of raw records. Load returns
// the decoded-but-unmigrated records; Save rewrites the whole document.
type Store interface {
	Load(ctx context.Context) (map[string]json.RawMessage, error)
	Save(ctx context.Context, records map[string]json.RawMessage) error
}

// Registry implements paidcontent.Ledger. The mutex serializes the whole
// load-mutate-persist cycle so concurrent mutations cannot lose updates on
// the rewrite-everything persistence format.
type Registry struct {
	mu    sync.RWMutex
	store Store
	items map[string]*paidcontent.Item
}

// New creates a Registry backed by the given store and eagerly loads it,
// migrating every stored record to the canonical item shape.
func New(ctx context.Context, store Store) (*Registry, error) {
	raw, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading registry: %w", err)
	}

	items := make(map[string]*paidcontent.Item, len(raw))
	for id, rec := range raw {
		item, err := migrateRecord(id, rec)
		if err != nil {
			return nil, fmt.Errorf("migrating record %s: %w", id, err)
		}
		items[id] = item
	}

	return &Registry{store: store, items: items}, nil
}

// Create registers an item under its caller-supplied id. The id is the
// storage collaborator's content reference; the ledger assigns nothing.
func (r *Registry) Create(ctx context.Context, item *paidcontent.Item) error {
	if item.ID == "" {
		return fmt.Errorf("item id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[item.ID]; exists {
		return fmt.Errorf("item %s already registered", item.ID)
	}

	stored := cloneItem(item)
	if stored.AccessLog == nil {
		stored.AccessLog = make(map[string]paidcontent.AccessRecord)
	}
	r.items[item.ID] = stored

	if err := r.persist(ctx); err != nil {
		delete(r.items, item.ID)
		return err
	}
	return nil
}

// Get returns a copy of the item or ErrItemNotFound.
func (r *Registry) Get(ctx context.Context, id string) (*paidcontent.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return nil, paidcontent.ErrItemNotFound
	}
	return cloneItem(item), nil
}

// List returns all items, newest first.
func (r *Registry) List(ctx context.Context) ([]*paidcontent.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*paidcontent.Item, 0, len(r.items))
	for _, item := range r.items {
		result = append(result, cloneItem(item))
	}
	sortNewestFirst(result)
	return result, nil
}

// ListByOwner returns the items owned by the given identity, newest first.
func (r *Registry) ListByOwner(ctx context.Context, owner string) ([]*paidcontent.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*paidcontent.Item
	for _, item := range r.items {
		if item.Owner == owner {
			result = append(result, cloneItem(item))
		}
	}
	sortNewestFirst(result)
	return result, nil
}

// Search matches the query case-insensitively against title and tags.
func (r *Registry) Search(ctx context.Context, query string) ([]*paidcontent.Item, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*paidcontent.Item
	for _, item := range r.items {
		if matchesQuery(item, q) {
			result = append(result, cloneItem(item))
		}
	}
	sortNewestFirst(result)
	return result, nil
}

// RecordAccess upserts one audit entry for the requester. Repeat accesses
// overwrite the previous entry rather than accumulating a list.
func (r *Registry) RecordAccess(ctx context.Context, id, requester string, rec paidcontent.AccessRecord) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return false, nil
	}

	prev, hadPrev := item.AccessLog[requester]
	item.AccessLog[requester] = rec

	if err := r.persist(ctx); err != nil {
		if hadPrev {
			item.AccessLog[requester] = prev
		} else {
			delete(item.AccessLog, requester)
		}
		return false, err
	}
	return true, nil
}

// Delete removes the ledger entry. It says nothing about the remote blob.
func (r *Registry) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return false, nil
	}
	delete(r.items, id)

	if err := r.persist(ctx); err != nil {
		r.items[id] = item
		return false, err
	}
	return true, nil
}

// persist rewrites the whole registry document. Callers hold the write lock.
func (r *Registry) persist(ctx context.Context) error {
	records := make(map[string]json.RawMessage, len(r.items))
	for id, item := range r.items {
		data, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("encoding item %s: %w", id, err)
		}
		records[id] = data
	}
	if err := r.store.Save(ctx, records); err != nil {
		return fmt.Errorf("saving registry: %w", err)
	}
	return nil
}

func sortNewestFirst(items []*paidcontent.Item) {
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}

func matchesQuery(item *paidcontent.Item, q string) bool {
	if strings.Contains(strings.ToLower(item.Title), q) {
		return true
	}
	for _, tag := range item.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

// cloneItem copies an item deeply enough that callers cannot mutate the
// registry's state through the returned pointer.
func cloneItem(item *paidcontent.Item) *paidcontent.Item {
	out := *item
	if item.Tags != nil {
		out.Tags = append([]string(nil), item.Tags...)
	}
	if item.AccessLog != nil {
		out.AccessLog = make(map[string]paidcontent.AccessRecord, len(item.AccessLog))
		for k, v := range item.AccessLog {
			out.AccessLog[k] = v
		}
	}
	if item.Blob.Encryption != nil {
		enc := *item.Blob.Encryption
		enc.IV = append([]byte(nil), item.Blob.Encryption.IV...)
		out.Blob.Encryption = &enc
	}
	return &out
}
