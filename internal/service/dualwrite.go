package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"hisabkitab/backend/internal/domain"
	"hisabkitab/backend/internal/mirror"
	"hisabkitab/backend/internal/store"
	"hisabkitab/backend/internal/xid"
)

// record is satisfied by a pointer to any entity embedding domain.Meta.
type record[T any] interface {
	*T
	Base() *domain.Meta
}

// Backends is what every collection shares.
type Backends struct {
	Local        store.LocalStore
	Cloud        mirror.Mirror
	Connectivity *mirror.Connectivity
	CloudTimeout time.Duration
	Logger       logrus.FieldLogger
	Now          func() time.Time
}

type CollectionOptions[T any] struct {
	Name    string
	OrderBy string
	Desc    bool
	Less    func(a, b *T) bool
}

// Collection is the local-first, cloud-mirrored store of one entity type.
// The local store is written unconditionally; the cloud mirror is read when
// reachable and written best-effort.
type Collection[T any, P record[T]] struct {
	name    string
	orderBy string
	desc    bool
	less    func(a, b *T) bool
	fields  map[string]bool

	local   store.LocalStore
	cloud   mirror.Mirror
	conn    *mirror.Connectivity
	timeout time.Duration
	logger  logrus.FieldLogger
	now     func() time.Time
}

func NewCollection[T any, P record[T]](b Backends, opts CollectionOptions[T]) *Collection[T, P] {
	cloud := b.Cloud
	if cloud == nil {
		cloud = mirror.Disabled{}
	}
	timeout := b.CloudTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	logger := b.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	now := b.Now
	if now == nil {
		now = time.Now
	}
	return &Collection[T, P]{
		name:    opts.Name,
		orderBy: opts.OrderBy,
		desc:    opts.Desc,
		less:    opts.Less,
		fields:  jsonFields(reflect.TypeFor[T]()),
		local:   b.Local,
		cloud:   cloud,
		conn:    b.Connectivity,
		timeout: timeout,
		logger:  logger.WithField("store", opts.Name),
		now:     now,
	}
}

func (c *Collection[T, P]) Name() string { return c.name }

// Reachable is true when the mirror has credentials and the device is online.
func (c *Collection[T, P]) Reachable() bool {
	return c.cloud.Available() && c.conn.Online()
}

func (c *Collection[T, P]) GetAll(ctx context.Context, companyID *int64) ([]T, error) {
	if !c.Reachable() {
		return c.localAll(ctx, companyID)
	}

	items, err := c.cloudSelect(ctx, mirror.Filter{CompanyID: companyID, OrderBy: c.orderBy, Desc: c.desc})
	if err != nil {
		c.logger.WithField("op", "getAll").WithError(err).Warn("cloud read failed, serving local store")
		return c.localAll(ctx, companyID)
	}

	c.refreshLocal(ctx, items)
	c.sort(items)
	return items, nil
}

func (c *Collection[T, P]) GetByID(ctx context.Context, id int64, companyID *int64) (*T, error) {
	if c.Reachable() {
		items, err := c.cloudSelect(ctx, mirror.Filter{CompanyID: companyID, ID: &id})
		switch {
		case err != nil:
			c.logger.WithFields(logrus.Fields{"op": "getById", "id": id}).WithError(err).Warn("cloud read failed, serving local store")
		case len(items) > 0:
			c.refreshLocal(ctx, items[:1])
			return &items[0], nil
		}
	}

	item, err := store.Get[T](ctx, c.local, c.name, id)
	if err != nil {
		return nil, err
	}
	if companyID != nil && !P(item).Base().BelongsTo(*companyID) {
		return nil, store.ErrNotFound
	}
	return item, nil
}

func (c *Collection[T, P]) Create(ctx context.Context, item T) (T, error) {
	var zero T
	meta := P(&item).Base()
	now := c.now().UTC()
	meta.CreatedAt = now
	meta.UpdatedAt = now

	if c.Reachable() {
		row, err := cloudRow(item)
		if err != nil {
			return zero, err
		}
		delete(row, "id")

		created, err := c.cloudInsert(ctx, row)
		if err == nil {
			if err := c.put(ctx, created); err != nil {
				return zero, err
			}
			return created, nil
		}
		c.logger.WithField("op", "create").WithError(err).Warn("cloud insert failed, keeping local copy only")
	}

	meta.ID = xid.LocalID()
	meta.SyncStatus = domain.SyncLocal
	if err := c.put(ctx, item); err != nil {
		return zero, err
	}
	return item, nil
}

// Update merges patch into the locally cached record. A record that only
// exists in the cloud is reported as store.ErrNotFound.
func (c *Collection[T, P]) Update(ctx context.Context, id int64, patch map[string]any, companyID *int64) (T, error) {
	return c.UpdateChecked(ctx, id, patch, companyID, nil)
}

// UpdateChecked is Update with validate run on the merged record before
// anything is written.
func (c *Collection[T, P]) UpdateChecked(ctx context.Context, id int64, patch map[string]any, companyID *int64, validate func(any) error) (T, error) {
	var zero T
	existing, err := store.Get[T](ctx, c.local, c.name, id)
	if err != nil {
		return zero, err
	}
	if companyID != nil && !P(existing).Base().BelongsTo(*companyID) {
		return zero, store.ErrNotFound
	}

	now := c.now().UTC()
	merged, err := mergePatch(*existing, patch, c.fields)
	if err != nil {
		return zero, err
	}
	meta := P(&merged).Base()
	prev := P(existing).Base()
	meta.ID = id
	meta.CompanyID = prev.CompanyID
	meta.CreatedAt = prev.CreatedAt
	meta.UpdatedAt = now
	meta.SyncStatus = domain.SyncLocal

	if validate != nil {
		if err := validate(&merged); err != nil {
			return zero, err
		}
	}
	if err := c.put(ctx, merged); err != nil {
		return zero, err
	}

	if !c.Reachable() {
		return merged, nil
	}
	var push map[string]any
	if prev.SyncStatus == domain.SyncSynced {
		push, err = cloudPatch(merged, patch)
	} else {
		// Earlier edits never reached the cloud, so the whole record goes.
		push, err = cloudRow(merged)
		delete(push, "id")
	}
	if err != nil {
		return zero, err
	}
	if _, err := c.cloudUpdate(ctx, id, push); err != nil {
		c.logger.WithFields(logrus.Fields{"op": "update", "id": id}).WithError(err).Warn("cloud update failed, change kept locally")
		return merged, nil
	}

	meta.SyncStatus = domain.SyncSynced
	if err := c.put(ctx, merged); err != nil {
		c.logger.WithFields(logrus.Fields{"op": "update", "id": id}).WithError(err).Warn("failed to mark record synced")
	}
	return merged, nil
}

// Delete removes the local copy; its outcome alone decides the result. The
// cloud delete is best-effort and there is no tombstone, so a record deleted
// while offline comes back on the next cloud read.
func (c *Collection[T, P]) Delete(ctx context.Context, id int64, companyID *int64) error {
	existing, err := store.Get[T](ctx, c.local, c.name, id)
	switch {
	case err == nil:
		if companyID != nil && !P(existing).Base().BelongsTo(*companyID) {
			return store.ErrNotFound
		}
	case errors.Is(err, store.ErrNotFound):
		existing = nil
	default:
		return err
	}

	if err := c.local.DeleteByID(ctx, c.name, id); err != nil {
		return err
	}
	if !c.Reachable() {
		return nil
	}

	if existing == nil && companyID != nil {
		// Not cached locally: only delete in the cloud if the row is ours.
		rows, err := c.cloudSelect(ctx, mirror.Filter{CompanyID: companyID, ID: &id})
		if err != nil || len(rows) == 0 {
			return nil
		}
	}
	if err := c.cloudDelete(ctx, id); err != nil {
		c.logger.WithFields(logrus.Fields{"op": "delete", "id": id}).WithError(err).Warn("cloud delete failed")
	}
	return nil
}

// Pending lists local records that are not known to match the cloud.
func (c *Collection[T, P]) Pending(ctx context.Context, companyID *int64) ([]T, error) {
	items, err := c.localAll(ctx, companyID)
	if err != nil {
		return nil, err
	}
	out := items[:0]
	for i := range items {
		switch P(&items[i]).Base().SyncStatus {
		case domain.SyncLocal, domain.SyncConflictSuspected:
			out = append(out, items[i])
		}
	}
	return out, nil
}

// Reconcile settles every pending record with the cloud, last write by
// updated_at wins. Records missing from the cloud are inserted under their
// local id.
func (c *Collection[T, P]) Reconcile(ctx context.Context, companyID *int64) (domain.ReconcileResult, error) {
	result := domain.ReconcileResult{Store: c.name}
	if !c.Reachable() {
		return result, mirror.ErrUnavailable
	}

	pending, err := c.Pending(ctx, companyID)
	if err != nil {
		return result, err
	}

	for i := range pending {
		item := pending[i]
		meta := P(&item).Base()
		log := c.logger.WithFields(logrus.Fields{"op": "reconcile", "id": meta.ID})

		remote, err := c.cloudSelect(ctx, mirror.Filter{ID: &meta.ID})
		if err != nil {
			log.WithError(err).Warn("cloud lookup failed")
			result.Failed++
			continue
		}

		if len(remote) > 0 && P(&remote[0]).Base().UpdatedAt.After(meta.UpdatedAt) {
			if err := c.put(ctx, remote[0]); err != nil {
				return result, err
			}
			result.Pulled++
			continue
		}

		row, err := cloudRow(item)
		if err != nil {
			return result, err
		}
		var synced T
		if len(remote) == 0 {
			synced, err = c.cloudInsert(ctx, row)
		} else {
			delete(row, "id")
			synced, err = c.cloudUpdate(ctx, meta.ID, row)
		}
		if err != nil {
			log.WithError(err).Warn("cloud push failed")
			result.Failed++
			continue
		}
		if err := c.put(ctx, synced); err != nil {
			return result, err
		}
		result.Pushed++
	}
	return result, nil
}

func (c *Collection[T, P]) localAll(ctx context.Context, companyID *int64) ([]T, error) {
	items, err := store.All[T](ctx, c.local, c.name)
	if err != nil {
		return nil, err
	}
	if companyID != nil {
		filtered := items[:0]
		for i := range items {
			if P(&items[i]).Base().BelongsTo(*companyID) {
				filtered = append(filtered, items[i])
			}
		}
		items = filtered
	}
	c.sort(items)
	return items, nil
}

// refreshLocal writes cloud rows back into the local store. A local copy
// with unpushed edits newer than the cloud row is kept and flagged instead.
func (c *Collection[T, P]) refreshLocal(ctx context.Context, items []T) {
	for i := range items {
		meta := P(&items[i]).Base()
		existing, err := store.Get[T](ctx, c.local, c.name, meta.ID)
		if err == nil {
			prev := P(existing).Base()
			if prev.SyncStatus != domain.SyncSynced && prev.SyncStatus != "" && prev.UpdatedAt.After(meta.UpdatedAt) {
				prev.SyncStatus = domain.SyncConflictSuspected
				if err := c.put(ctx, *existing); err != nil {
					c.logger.WithFields(logrus.Fields{"op": "refresh", "id": meta.ID}).WithError(err).Warn("failed to flag local conflict")
				}
				continue
			}
		}
		if err := c.put(ctx, items[i]); err != nil {
			c.logger.WithFields(logrus.Fields{"op": "refresh", "id": meta.ID}).WithError(err).Warn("failed to cache cloud row")
		}
	}
}

func (c *Collection[T, P]) put(ctx context.Context, item T) error {
	return store.Save(ctx, c.local, c.name, P(&item).Base().ID, item)
}

func (c *Collection[T, P]) sort(items []T) {
	if c.less == nil {
		return
	}
	sort.SliceStable(items, func(i, j int) bool { return c.less(&items[i], &items[j]) })
}

func (c *Collection[T, P]) cloudSelect(ctx context.Context, filter mirror.Filter) ([]T, error) {
	cctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	rows, err := c.cloud.Select(cctx, c.name, filter)
	if err != nil {
		return nil, err
	}
	items := make([]T, 0, len(rows))
	for _, raw := range rows {
		item, err := decodeSynced[T, P](raw)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (c *Collection[T, P]) cloudInsert(ctx context.Context, row map[string]any) (T, error) {
	cctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.cloud.Insert(cctx, c.name, row)
	if err != nil {
		var zero T
		return zero, err
	}
	return decodeSynced[T, P](raw)
}

func (c *Collection[T, P]) cloudUpdate(ctx context.Context, id int64, patch map[string]any) (T, error) {
	cctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.cloud.Update(cctx, c.name, id, patch)
	if err != nil {
		var zero T
		return zero, err
	}
	return decodeSynced[T, P](raw)
}

func (c *Collection[T, P]) cloudDelete(ctx context.Context, id int64) error {
	cctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.cloud.Delete(cctx, c.name, id)
}

func decodeSynced[T any, P record[T]](raw json.RawMessage) (T, error) {
	var item T
	if err := json.Unmarshal(raw, &item); err != nil {
		return item, fmt.Errorf("decode cloud row: %w", err)
	}
	meta := P(&item).Base()
	if meta.ID == 0 {
		return item, errors.New("cloud row without id")
	}
	meta.SyncStatus = domain.SyncSynced
	return item, nil
}

// protectedFields never change through a patch.
var protectedFields = map[string]bool{
	"id":          true,
	"company_id":  true,
	"created_at":  true,
	"sync_status": true,
}

func toMap(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	out := map[string]any{}
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// cloudRow is the record as the mirror stores it, without local bookkeeping.
func cloudRow(item any) (map[string]any, error) {
	row, err := toMap(item)
	if err != nil {
		return nil, err
	}
	delete(row, "sync_status")
	return row, nil
}

// mergePatch applies patch over existing. Keys that are not JSON fields of
// T are rejected; the mirror would refuse the column anyway.
func mergePatch[T any](existing T, patch map[string]any, fields map[string]bool) (T, error) {
	var merged T
	base, err := toMap(existing)
	if err != nil {
		return merged, err
	}
	for k, v := range patch {
		if !fields[k] {
			return merged, fmt.Errorf("%w: unknown field %q", store.ErrInvalidInput, k)
		}
		if protectedFields[k] {
			continue
		}
		base[k] = v
	}
	raw, err := json.Marshal(base)
	if err != nil {
		return merged, err
	}
	if err := json.Unmarshal(raw, &merged); err != nil {
		return merged, fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
	}
	return merged, nil
}

// cloudPatch carries the patched fields in their normalised form plus the
// new updated_at.
func cloudPatch(merged any, patch map[string]any) (map[string]any, error) {
	normalized, err := toMap(merged)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(patch)+1)
	for k, v := range patch {
		if protectedFields[k] {
			continue
		}
		if nv, ok := normalized[k]; ok {
			out[k] = nv
		} else if isZeroJSON(v) {
			// omitempty dropped it; the cleared value still has to reach the cloud.
			out[k] = v
		}
	}
	out["updated_at"] = normalized["updated_at"]
	return out, nil
}

func isZeroJSON(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case bool:
		return !x
	case float64:
		return x == 0
	case json.Number:
		return x.String() == "0"
	}
	return false
}

// jsonFields lists the JSON names of a struct type, embedded structs
// included.
func jsonFields(t reflect.Type) map[string]bool {
	out := map[string]bool{}
	collectJSONFields(t, out)
	return out
}

func collectJSONFields(t reflect.Type, out map[string]bool) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")
		if f.Anonymous && name == "" {
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				collectJSONFields(ft, out)
				continue
			}
		}
		if !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}
		out[name] = true
	}
}
