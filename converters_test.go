package xdata

import (
	"net/url"
	"testing"
	"time"
)

func TestTimeConverter_RoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	rec, err := TimeConverter.toRecord(now)
	if err != nil {
		t.Fatalf("toRecord: %v", err)
	}
	got, err := TimeConverter.fromRecord(rec)
	if err != nil {
		t.Fatalf("fromRecord: %v", err)
	}
	gotTime := got.(time.Time)
	if !gotTime.Equal(now) {
		t.Fatalf("time = %v, wanted %v", gotTime, now)
	}
}

func TestTimeConverter_TruncatesSubMillisecondPrecision(t *testing.T) {
	withNanos := time.Date(2026, 3, 5, 12, 0, 0, 123456, time.UTC)
	rec, err := TimeConverter.toRecord(withNanos)
	if err != nil {
		t.Fatalf("toRecord: %v", err)
	}
	got, err := TimeConverter.fromRecord(rec)
	if err != nil {
		t.Fatalf("fromRecord: %v", err)
	}
	gotTime := got.(time.Time)
	if gotTime.UnixMilli() != withNanos.UnixMilli() {
		t.Fatalf("unix millis = %d, wanted %d", gotTime.UnixMilli(), withNanos.UnixMilli())
	}
}

func TestURLConverter_RoundTrip(t *testing.T) {
	u, err := url.Parse("https://example.com/path?q=1")
	if err != nil {
		t.Fatalf("url.Parse: %v", err)
	}
	rec, err := URLConverter.toRecord(u)
	if err != nil {
		t.Fatalf("toRecord: %v", err)
	}
	got, err := URLConverter.fromRecord(rec)
	if err != nil {
		t.Fatalf("fromRecord: %v", err)
	}
	gotURL := got.(*url.URL)
	if gotURL.String() != u.String() {
		t.Fatalf("url = %q, wanted %q", gotURL.String(), u.String())
	}
}

func TestTimeConverter_TypeNameIsStable(t *testing.T) {
	if TimeConverter.TypeName() != "xdata.date" {
		t.Fatalf("TypeName() = %q, wanted xdata.date", TimeConverter.TypeName())
	}
}

func TestURLConverter_TypeNameIsStable(t *testing.T) {
	if URLConverter.TypeName() != "net/url.URL" {
		t.Fatalf("TypeName() = %q, wanted net/url.URL", URLConverter.TypeName())
	}
}
