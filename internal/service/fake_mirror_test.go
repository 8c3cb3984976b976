package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"sync"

	"hisabkitab/backend/internal/mirror"
)

var errCloudDown = errors.New("cloud down")

// fakeMirror is an in-memory cloud. Setting fail makes every call error and
// hang makes every call block until its context ends.
type fakeMirror struct {
	mu     sync.Mutex
	rows   map[string]map[int64]json.RawMessage
	nextID int64
	fail   bool
	hang   bool
	calls  int
}

func newFakeMirror() *fakeMirror {
	return &fakeMirror{rows: map[string]map[int64]json.RawMessage{}, nextID: 100}
}

func (f *fakeMirror) Available() bool { return true }

func (f *fakeMirror) enter(ctx context.Context) error {
	f.mu.Lock()
	f.calls++
	fail, hang := f.fail, f.hang
	f.mu.Unlock()
	if hang {
		<-ctx.Done()
		return ctx.Err()
	}
	if fail {
		return errCloudDown
	}
	return nil
}

func (f *fakeMirror) setFail(v bool) {
	f.mu.Lock()
	f.fail = v
	f.mu.Unlock()
}

func (f *fakeMirror) seed(table string, row map[string]any) int64 {
	raw, _ := f.Insert(context.Background(), table, row)
	var head struct {
		ID int64 `json:"id"`
	}
	_ = json.Unmarshal(raw, &head)
	return head.ID
}

func (f *fakeMirror) row(table string, id int64) (map[string]any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.rows[table][id]
	if !ok {
		return nil, false
	}
	out := map[string]any{}
	_ = json.Unmarshal(raw, &out)
	return out, true
}

func (f *fakeMirror) Select(ctx context.Context, table string, filter mirror.Filter) ([]json.RawMessage, error) {
	if err := f.enter(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	ids := make([]int64, 0, len(f.rows[table]))
	for id := range f.rows[table] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]json.RawMessage, 0, len(ids))
	for _, id := range ids {
		raw := f.rows[table][id]
		var head struct {
			CompanyID *int64 `json:"company_id"`
		}
		_ = json.Unmarshal(raw, &head)
		if filter.ID != nil && *filter.ID != id {
			continue
		}
		if filter.CompanyID != nil && (head.CompanyID == nil || *head.CompanyID != *filter.CompanyID) {
			continue
		}
		out = append(out, raw)
	}
	return out, nil
}

func (f *fakeMirror) Insert(ctx context.Context, table string, row map[string]any) (json.RawMessage, error) {
	if err := f.enter(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	copied := make(map[string]any, len(row)+1)
	for k, v := range row {
		copied[k] = v
	}
	var id int64
	switch v := copied["id"].(type) {
	case json.Number:
		id, _ = v.Int64()
	case int64:
		id = v
	case int:
		id = int64(v)
	}
	if id == 0 {
		f.nextID++
		id = f.nextID
	}
	copied["id"] = id

	raw, err := json.Marshal(copied)
	if err != nil {
		return nil, err
	}
	if f.rows[table] == nil {
		f.rows[table] = map[int64]json.RawMessage{}
	}
	f.rows[table][id] = raw
	return raw, nil
}

func (f *fakeMirror) Update(ctx context.Context, table string, id int64, patch map[string]any) (json.RawMessage, error) {
	if err := f.enter(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	raw, ok := f.rows[table][id]
	if !ok {
		return nil, &mirror.APIError{Status: http.StatusNotFound, Message: "no row matched"}
	}
	current := map[string]any{}
	_ = json.Unmarshal(raw, &current)
	for k, v := range patch {
		current[k] = v
	}
	current["id"] = id
	updated, err := json.Marshal(current)
	if err != nil {
		return nil, err
	}
	f.rows[table][id] = updated
	return updated, nil
}

func (f *fakeMirror) Delete(ctx context.Context, table string, id int64) error {
	if err := f.enter(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows[table], id)
	return nil
}

func (f *fakeMirror) Ping(ctx context.Context) error {
	return f.enter(ctx)
}
