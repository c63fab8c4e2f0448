package xdata

import (
	"net/url"
	"time"
)

var timestampKey = NewScalarKey[int64]("timestamp")

// TimeConverter is always registered; it stores a time.Time as Unix
// milliseconds under the key "timestamp".
var TimeConverter = NewConverter[time.Time](
	"xdata.date",
	func(t time.Time) (*Record, error) {
		rec := NewRecord()
		Set(rec, timestampKey, t.UnixMilli())
		return rec, nil
	},
	func(rec *Record) (time.Time, error) {
		ms, err := Get(rec, timestampKey)
		if err != nil {
			return time.Time{}, err
		}
		return time.UnixMilli(ms).UTC(), nil
	},
)

var urlStringKey = NewScalarKey[string]("url_string")

// URLConverter is always registered; it stores a *url.URL via its string
// form under the key "url_string". The type name follows the Go
// import-path convention rather than a canonical class name.
var URLConverter = NewConverter[*url.URL](
	"net/url.URL",
	func(u *url.URL) (*Record, error) {
		rec := NewRecord()
		Set(rec, urlStringKey, u.String())
		return rec, nil
	},
	func(rec *Record) (*url.URL, error) {
		s, err := Get(rec, urlStringKey)
		if err != nil {
			return nil, err
		}
		return url.Parse(s)
	},
)
