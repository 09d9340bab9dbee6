package endpoint

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
)

// maxFieldLen bounds the byte length of any single decoded parameter value.
const maxFieldLen = 16 * 1024

// Unmarshal populates dst (a non-nil pointer to a struct) from the request.
//
// Supported sources, selected by struct tag:
//   - `path:"name"`   — r.PathValue
//   - `query:"name"`  — r.URL.Query
//   - `cookie:"name"` — r.Cookie
//
// An empty tag name defaults to the lowercased field name. Fields without a
// recognized tag are left untouched. Supported field types are string, int,
// int64 and bool. Missing parameters leave the field at its zero value;
// unparseable values produce a 400 error.
func Unmarshal(r *http.Request, dst any) error {
	if r == nil {
		return Error(http.StatusInternalServerError, "", errors.New("endpoint: decode: nil request"))
	}
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return Error(http.StatusInternalServerError, "", errors.New("endpoint: decode: dst must be a non-nil pointer"))
	}
	root := v.Elem()
	if root.Kind() != reflect.Struct {
		return Error(http.StatusInternalServerError, "", errors.New("endpoint: decode: dst must point to a struct"))
	}

	q := url.Values{}
	if r.URL != nil {
		q = r.URL.Query()
	}

	t := root.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		raw, ok := lookupValue(r, q, field)
		if !ok || raw == "" {
			continue
		}
		if len(raw) > maxFieldLen {
			return Error(http.StatusBadRequest, fmt.Sprintf("parameter %q too long", field.Name), nil)
		}
		if err := setField(root.Field(i), raw); err != nil {
			return Error(http.StatusBadRequest, fmt.Sprintf("invalid parameter %q", field.Name), err)
		}
	}
	return nil
}

func lookupValue(r *http.Request, q url.Values, field reflect.StructField) (string, bool) {
	if name, ok := tagName(field, "path"); ok {
		return r.PathValue(name), true
	}
	if name, ok := tagName(field, "query"); ok {
		return q.Get(name), true
	}
	if name, ok := tagName(field, "cookie"); ok {
		c, err := r.Cookie(name)
		if err != nil {
			return "", true
		}
		return c.Value, true
	}
	return "", false
}

func tagName(field reflect.StructField, tag string) (string, bool) {
	val, ok := field.Tag.Lookup(tag)
	if !ok {
		return "", false
	}
	if val == "-" {
		return "", false
	}
	name, _, _ := strings.Cut(val, ",")
	if name == "" {
		name = strings.ToLower(field.Name)
	}
	return name, true
}

func setField(fv reflect.Value, raw string) error {
	switch fv.Kind() {
	case reflect.String:
		fv.SetString(raw)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return err
		}
		fv.SetInt(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		fv.SetBool(b)
	default:
		return fmt.Errorf("unsupported field type %s", fv.Kind())
	}
	return nil
}
