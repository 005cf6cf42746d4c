package gateway

import (
	"fmt"
	"reflect"
)

// identityFields are reset on clone so storage assigns fresh values.
var identityFields = map[string]bool{
	"ID":        true,
	"CreatedAt": true,
	"UpdatedAt": true,
}

// cloneStripped returns a copy of the entity with identity fields zeroed.
// The entity must be a non-nil pointer to a struct.
func cloneStripped(entity Entity) (Entity, error) {
	v := reflect.ValueOf(entity)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("clone: entity must be a non-nil struct pointer, got %T", entity)
	}

	src := v.Elem()
	clone := reflect.New(src.Type())
	clone.Elem().Set(src)

	for name := range identityFields {
		field := clone.Elem().FieldByName(name)
		if field.IsValid() && field.CanSet() {
			field.Set(reflect.Zero(field.Type()))
		}
	}

	return clone.Interface().(Entity), nil
}
