package botdb

import (
	"errors"
	"reflect"

	"github.com/yndnr/botvault/internal/core/domain"
	"github.com/yndnr/botvault/internal/storage/jsonfile"
)

// SaveToJSONStorage stores value as a keyed sub-document of the database
// file. Keys of the database schema are refused.
func (d *Database) SaveToJSONStorage(key string, value any) error {
	if key == "" {
		return domain.ErrInvalidArgument.WithDetails("empty storage key")
	}
	if isNil(value) {
		return domain.ErrInvalidArgument.WithDetails("nil value for storage key " + key)
	}
	return d.mapStorageErr(d.file.SaveKey(key, value))
}

// DeleteFromJSONStorage removes a keyed sub-document.
func (d *Database) DeleteFromJSONStorage(key string) error {
	if key == "" {
		return domain.ErrInvalidArgument.WithDetails("empty storage key")
	}
	return d.mapStorageErr(d.file.DeleteKey(key))
}

// JSONStorage returns a copy of the keyed sub-documents.
func (d *Database) JSONStorage() map[string][]byte {
	extra := d.file.Extra()
	out := make(map[string][]byte, len(extra))
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func (d *Database) mapStorageErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, jsonfile.ErrClosed):
		return domain.ErrDatabaseClosed
	case errors.Is(err, jsonfile.ErrReservedKey):
		return domain.ErrInvalidArgument.WithCause(err)
	default:
		return err
	}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
