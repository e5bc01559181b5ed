package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Optional* fields distinguish "absent" from "explicitly null" in PATCH bodies.

type OptionalUUID struct {
	Set   bool
	Value *uuid.UUID
}

func (o *OptionalUUID) UnmarshalJSON(data []byte) error {
	o.Set = true
	data = bytes.TrimSpace(data)
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		o.Value = nil
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	o.Value = &id
	return nil
}

type OptionalString struct {
	Set   bool
	Value *string
}

func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	data = bytes.TrimSpace(data)
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		o.Value = nil
		return nil
	}
	o.Value = &s
	return nil
}

// Or returns the trimmed value, or def when unset or null.
func (o OptionalString) Or(def string) string {
	if o.Value == nil {
		return def
	}
	return *o.Value
}

type OptionalFloat64 struct {
	Set   bool
	Value *float64
}

func (o *OptionalFloat64) UnmarshalJSON(data []byte) error {
	o.Set = true
	data = bytes.TrimSpace(data)
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err == nil {
		o.Value = &v
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		o.Value = nil
		return nil
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return err
	}
	o.Value = &f
	return nil
}

type OptionalInt struct {
	Set   bool
	Value *int
}

func (o *OptionalInt) UnmarshalJSON(data []byte) error {
	var f OptionalFloat64
	if err := f.UnmarshalJSON(data); err != nil {
		return err
	}
	o.Set = true
	if f.Value == nil {
		o.Value = nil
		return nil
	}
	v := int(*f.Value)
	if float64(v) != *f.Value {
		return fmt.Errorf("expected an integer, got %v", *f.Value)
	}
	o.Value = &v
	return nil
}

type OptionalBool struct {
	Set   bool
	Value *bool
}

func (o *OptionalBool) UnmarshalJSON(data []byte) error {
	o.Set = true
	data = bytes.TrimSpace(data)
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var v bool
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

type OptionalDate struct {
	Set   bool
	Value *time.Time
}

func (o *OptionalDate) UnmarshalJSON(data []byte) error {
	o.Set = true
	var d Date
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	if d.IsZero() {
		o.Value = nil
		return nil
	}
	t := d.Time
	o.Value = &t
	return nil
}

type OptionalJSON struct {
	Set   bool
	Value *json.RawMessage
}

func (o *OptionalJSON) UnmarshalJSON(data []byte) error {
	o.Set = true
	data = bytes.TrimSpace(data)
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var raw json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	cp := make(json.RawMessage, len(raw))
	copy(cp, raw)
	o.Value = &cp
	return nil
}

// Date accepts "2006-01-02" as well as RFC 3339 timestamps.
type Date struct {
	time.Time
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

func (d *Date) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if string(data) == "null" {
		d.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if strings.TrimSpace(s) == "" {
		d.Time = time.Time{}
		return nil
	}
	t, err := ParseDate(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format("2006-01-02"))
}

// Ptr returns nil for the zero date.
func (d *Date) Ptr() *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

// patchSet collects column updates from optional fields.
type patchSet map[string]any

func (p patchSet) setUUID(col string, o OptionalUUID) {
	if o.Set {
		if o.Value == nil {
			p[col] = nil
		} else {
			p[col] = *o.Value
		}
	}
}

func (p patchSet) setString(col string, o OptionalString) {
	if o.Set {
		p[col] = o.Or("")
	}
}

func (p patchSet) setFloat(col string, o OptionalFloat64) {
	if o.Set {
		if o.Value == nil {
			p[col] = nil
		} else {
			p[col] = *o.Value
		}
	}
}

func (p patchSet) setInt(col string, o OptionalInt) {
	if o.Set {
		v := 0
		if o.Value != nil {
			v = *o.Value
		}
		p[col] = v
	}
}

func (p patchSet) setDate(col string, o OptionalDate) {
	if o.Set {
		if o.Value == nil {
			p[col] = nil
		} else {
			p[col] = *o.Value
		}
	}
}
