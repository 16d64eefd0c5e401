package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// keySet maps each key an object may carry to the key set of its value.
// A nil set leaves the value's keys unchecked.
type keySet map[string]keySet

var (
	optimizedKeys = keysOf(reflect.TypeOf(Record{}))
	legacyKeys    = keysOf(reflect.TypeOf(LegacyRecord{}))
)

func keysOf(t reflect.Type) keySet {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}

	keys := keySet{}
	for i := range t.NumField() {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		keys[name] = keysOf(t.Field(i).Type)
	}
	return keys
}

// checkKeys walks raw and rejects keys outside allowed and keys repeated
// within one object. encoding/json folds case when filling structs, so
// without this "V" would stand in for "v".
func checkKeys(raw string, allowed keySet) error {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	return walkValue(dec, allowed, "")
}

func walkValue(dec *json.Decoder, allowed keySet, path string) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return nil
	}

	switch delim {
	case '[':
		for dec.More() {
			if err := walkValue(dec, nil, path); err != nil {
				return err
			}
		}
	case '{':
		seen := map[string]struct{}{}
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return err
			}
			key, ok := tok.(string)
			if !ok {
				return errors.New("object key is not a string")
			}
			if _, dup := seen[key]; dup {
				return fmt.Errorf("duplicate key %q", path+key)
			}
			seen[key] = struct{}{}

			child, known := allowed[key]
			if allowed != nil && !known {
				return fmt.Errorf("unknown key %q", path+key)
			}
			if err := walkValue(dec, child, path+key+"."); err != nil {
				return err
			}
		}
	}

	// closing delimiter
	_, err = dec.Token()
	return err
}
