package pointers

import "time"

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }

func String(v string) *string     { return &v }
func Time(v time.Time) *time.Time { return &v }
func Bool(v bool) *bool           { return &v }
