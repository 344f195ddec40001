package valkey

import (
	"context"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"
)

const formKeyPrefix = "form:"

// FormStore implements ports.FormStore as one Valkey hash per form key.
type FormStore struct {
	client valkey.Client
	ttl    time.Duration
}

// NewFormStore creates a form store. ttl <= 0 keeps entries forever.
func NewFormStore(client valkey.Client, ttl time.Duration) *FormStore {
	return &FormStore{client: client, ttl: ttl}
}

// Merge overwrites only the given fields and leaves the rest of the form
// untouched.
func (f *FormStore) Merge(ctx context.Context, formKey string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	key := formKeyPrefix + formKey

	fv := f.client.B().Hset().Key(key).FieldValue()
	for k, v := range fields {
		fv = fv.FieldValue(k, v)
	}
	cmds := valkey.Commands{fv.Build()}
	if f.ttl > 0 {
		cmds = append(cmds, f.client.B().Expire().Key(key).Seconds(int64(f.ttl/time.Second)).Build())
	}
	for _, resp := range f.client.DoMulti(ctx, cmds...) {
		if err := resp.Error(); err != nil {
			return fmt.Errorf("merge form %s: %w", formKey, err)
		}
	}
	return nil
}

// Load returns every stored field of a form. An unknown key yields an empty map.
func (f *FormStore) Load(ctx context.Context, formKey string) (map[string]string, error) {
	m, err := f.client.Do(ctx, f.client.B().Hgetall().Key(formKeyPrefix+formKey).Build()).AsStrMap()
	if err != nil {
		return nil, fmt.Errorf("load form %s: %w", formKey, err)
	}
	return m, nil
}
