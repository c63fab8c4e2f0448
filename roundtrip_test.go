package xdata

import (
	"bytes"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/klauspost/compress/gzip"
)

func recompress(w io.Writer, payload []byte) error {
	gz := gzip.NewWriter(w)
	if _, err := gz.Write(payload); err != nil {
		gz.Close()
		return err
	}
	return gz.Close()
}

var (
	boolKey      = NewScalarKey[bool]("bool")
	byteKey      = NewScalarKey[byte]("byte")
	charKey      = NewScalarKey[Char]("char")
	shortKey     = NewScalarKey[int16]("short")
	intKey       = NewScalarKey[int32]("int")
	longKey      = NewScalarKey[int64]("long")
	floatKey     = NewScalarKey[float32]("float")
	doubleKey    = NewScalarKey[float64]("double")
	stringKey    = NewScalarKey[string]("string")
	stringListKy = NewListKey[string]("string_list")
)

func TestRoundTrip_Primitives(t *testing.T) {
	root := NewRecord()
	Set(root, boolKey, true)
	Set(root, byteKey, byte(0x05))
	Set(root, charKey, Char('ö'))
	Set(root, shortKey, int16(13))
	Set(root, intKey, int32(67567))
	Set(root, longKey, int64(786783647846876879))
	Set(root, floatKey, float32(42.24))
	Set(root, doubleKey, math.Pi)
	Set(root, stringKey, "blafasel")
	SetList(root, stringListKy, []string{"abc", "def", "ghi"})

	var buf bytes.Buffer
	if err := Store(&buf, root); err != nil {
		t.Fatalf("Store: %v", err)
	}
	loaded, err := Load(&buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if v, err := Get(loaded, boolKey); err != nil || v != true {
		t.Fatalf("bool = (%v, %v), wanted (true, nil)", v, err)
	}
	if v, err := Get(loaded, byteKey); err != nil || v != 0x05 {
		t.Fatalf("byte = (%v, %v), wanted (5, nil)", v, err)
	}
	if v, err := Get(loaded, charKey); err != nil || v != Char('ö') {
		t.Fatalf("char = (%v, %v), wanted (ö, nil)", v, err)
	}
	if v, err := Get(loaded, shortKey); err != nil || v != 13 {
		t.Fatalf("short = (%v, %v), wanted (13, nil)", v, err)
	}
	if v, err := Get(loaded, intKey); err != nil || v != 67567 {
		t.Fatalf("int = (%v, %v), wanted (67567, nil)", v, err)
	}
	if v, err := Get(loaded, longKey); err != nil || v != 786783647846876879 {
		t.Fatalf("long = (%v, %v), wanted (786783647846876879, nil)", v, err)
	}
	if v, err := Get(loaded, floatKey); err != nil || v != float32(42.24) {
		t.Fatalf("float = (%v, %v), wanted (42.24, nil)", v, err)
	}
	if v, err := Get(loaded, doubleKey); err != nil || v != math.Pi {
		t.Fatalf("double = (%v, %v), wanted (pi, nil)", v, err)
	}
	if v, err := Get(loaded, stringKey); err != nil || v != "blafasel" {
		t.Fatalf("string = (%v, %v), wanted (blafasel, nil)", v, err)
	}
	if v, err := GetList(loaded, stringListKy); err != nil || len(v) != 3 || v[0] != "abc" || v[2] != "ghi" {
		t.Fatalf("string_list = (%v, %v), wanted ([abc def ghi], nil)", v, err)
	}
}

type Car struct {
	Wheels    int32
	HP        float64
	BuildDate int64
}

var carMarshaller = NewConverter[*Car](
	"xdata.test.car",
	func(c *Car) (*Record, error) {
		rec := NewRecord()
		Set(rec, NewScalarKey[int32]("wheels"), c.Wheels)
		Set(rec, NewScalarKey[float64]("hp"), c.HP)
		Set(rec, NewScalarKey[int64]("buildDate"), c.BuildDate)
		return rec, nil
	},
	func(rec *Record) (*Car, error) {
		wheels, err := Get(rec, NewScalarKey[int32]("wheels"))
		if err != nil {
			return nil, err
		}
		hp, err := Get(rec, NewScalarKey[float64]("hp"))
		if err != nil {
			return nil, err
		}
		buildDate, err := Get(rec, NewScalarKey[int64]("buildDate"))
		if err != nil {
			return nil, err
		}
		return &Car{Wheels: wheels, HP: hp, BuildDate: buildDate}, nil
	},
)

var carAKey = NewScalarKey[*Car]("car a")
var carBKey = NewScalarKey[*Car]("car b")
var carCKey = NewScalarKey[*Car]("car c")

func TestRoundTrip_SharedReference(t *testing.T) {
	car := &Car{Wheels: 4, HP: 180.5, BuildDate: 1234567890}

	root := NewRecord()
	Set(root, carAKey, car)
	Set(root, carBKey, car)
	Set(root, carCKey, car)

	var buf bytes.Buffer
	if err := Store(&buf, root, WithConverters(carMarshaller)); err != nil {
		t.Fatalf("Store: %v", err)
	}

	payload := decompressForTest(t, buf.Bytes())
	nRecords, nRefs := countTags(payload)
	if nRecords != 2 { // root record + the one Car record
		t.Fatalf("found %d RECORD tags, wanted 2 (root + one Car)", nRecords)
	}
	if nRefs != 2 {
		t.Fatalf("found %d REFERENCE tags, wanted 2", nRefs)
	}

	loaded, err := Load(bytes.NewReader(buf.Bytes()), WithConverters(carMarshaller))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	a, err := Get(loaded, carAKey)
	if err != nil {
		t.Fatalf("car a: %v", err)
	}
	b, err := Get(loaded, carBKey)
	if err != nil {
		t.Fatalf("car b: %v", err)
	}
	c, err := Get(loaded, carCKey)
	if err != nil {
		t.Fatalf("car c: %v", err)
	}
	for _, got := range []*Car{a, b, c} {
		if *got != *car {
			t.Fatalf("car = %+v, wanted %+v", got, car)
		}
	}
}

// countTags scans a decompressed xdata payload (skipping the magic) and
// counts RECORD and REFERENCE tag bytes structurally, verifying structural
// sharing by walking tags directly rather than trusting decode.
func countTags(payload []byte) (records, refs int) {
	d := makeByteDecoder(payload[len(magicBytes):])
	var walk func() error
	walk = func() error {
		tb, err := d.Byte()
		if err != nil {
			return err
		}
		switch valueTag(tb) {
		case tagValueNull:
			return nil
		case tagValuePrimitive:
			_, err := readPrimitive(&d)
			return err
		case tagValueList:
			n, err := d.Int32()
			if err != nil {
				return err
			}
			for i := int32(0); i < n; i++ {
				if err := walk(); err != nil {
					return err
				}
			}
			return nil
		case tagValueRecord:
			records++
			n, err := d.Int32()
			if err != nil {
				return err
			}
			for i := int32(0); i < n; i++ {
				if _, err := readKeyString(&d); err != nil {
					return err
				}
				if err := walk(); err != nil {
					return err
				}
			}
			return nil
		case tagValueReference:
			refs++
			_, err := d.Int64()
			return err
		default:
			return errors.New("unknown tag")
		}
	}
	_ = walk()
	return
}

func decompressForTest(t *testing.T, gzipped []byte) []byte {
	t.Helper()
	buf, err := decompressAll(bytes.NewReader(gzipped))
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	return buf
}

func TestRoundTrip_ChecksumTamper(t *testing.T) {
	root := NewRecord()
	Set(root, stringKey, "hello")

	var buf bytes.Buffer
	if err := Store(&buf, root, WithChecksum(true)); err != nil {
		t.Fatalf("Store: %v", err)
	}

	ok, err := Validate(bytes.NewReader(buf.Bytes()))
	if err != nil || !ok {
		t.Fatalf("Validate before tamper = (%v, %v), wanted (true, nil)", ok, err)
	}

	payload := decompressForTest(t, buf.Bytes())
	if len(payload) <= 34 {
		t.Fatalf("payload too short to tamper with: %d bytes", len(payload))
	}
	payload[34] ^= 0xFF

	var tampered bytes.Buffer
	if err := recompress(&tampered, payload); err != nil {
		t.Fatalf("recompress: %v", err)
	}

	ok, err = Validate(bytes.NewReader(tampered.Bytes()))
	if err != nil {
		t.Fatalf("Validate after tamper: %v", err)
	}
	if ok {
		t.Fatalf("Validate after tamper = true, wanted false")
	}

	_, err = Load(bytes.NewReader(tampered.Bytes()), WithChecksumPolicy(ChecksumRequired))
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("Load with Required policy err = %v, wanted ErrChecksumMismatch", err)
	}
}

func TestRoundTrip_MissingConverter(t *testing.T) {
	root := NewRecord()
	Set(root, carAKey, &Car{Wheels: 4})

	var buf bytes.Buffer
	err := Store(&buf, root)
	if !errors.Is(err, ErrNoConverter) {
		t.Fatalf("Store without converter err = %v, wanted ErrNoConverter", err)
	}

	buf.Reset()
	if err := Store(&buf, root, WithIgnoreMissing(true)); err != nil {
		t.Fatalf("Store with ignoreMissing: %v", err)
	}
	loaded, err := Load(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	raw, ok := loaded.getRaw("car a")
	if !ok || raw != nil {
		t.Fatalf("car a = %v, wanted nil (slot present but null)", raw)
	}
}

func TestRoundTrip_ListOfLists(t *testing.T) {
	carsOfCars := NewListKey[[]*Car]("carsofcars")
	root := NewRecord()
	SetList(root, carsOfCars, [][]*Car{{{Wheels: 4, HP: 180.5, BuildDate: 99}}})

	var buf bytes.Buffer
	if err := Store(&buf, root, WithConverters(carMarshaller)); err != nil {
		t.Fatalf("Store: %v", err)
	}
	loaded, err := Load(bytes.NewReader(buf.Bytes()), WithConverters(carMarshaller))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got, err := GetList(loaded, carsOfCars)
	if err != nil {
		t.Fatalf("GetList: %v", err)
	}
	if len(got) != 1 || len(got[0]) != 1 || got[0][0].Wheels != 4 || got[0][0].HP != 180.5 {
		t.Fatalf("carsofcars = %+v, wanted [[{4 180.5 99}]]", got)
	}
}

func TestRoundTrip_MandatoryAbsent(t *testing.T) {
	root := NewRecord()
	var buf bytes.Buffer
	if err := Store(&buf, root); err != nil {
		t.Fatalf("Store: %v", err)
	}
	loaded, err := Load(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	absentKey := NewOptionalScalarKey("absent", int32(42))
	_, err = GetMandatory(loaded, absentKey)
	if !errors.Is(err, ErrMissingKey) {
		t.Fatalf("GetMandatory on absent key err = %v, wanted ErrMissingKey", err)
	}

	v, err := Get(loaded, absentKey)
	if err != nil || v != 42 {
		t.Fatalf("Get on absent key with default = (%v, %v), wanted (42, nil)", v, err)
	}
}

func TestRoundTrip_AbsentNonNullableListIsEmpty(t *testing.T) {
	root := NewRecord()
	var buf bytes.Buffer
	if err := Store(&buf, root); err != nil {
		t.Fatalf("Store: %v", err)
	}
	loaded, err := Load(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got, err := GetList(loaded, NewListKey[string]("missing_list"))
	if err != nil {
		t.Fatalf("GetList: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("GetList on absent non-nullable key = %v, wanted empty", got)
	}
}

func TestRoundTrip_DeepNesting(t *testing.T) {
	const depth = 100000
	const leafKey = "leaf"
	const nextKey = "next"

	root := NewRecord()
	cur := root
	for i := 0; i < depth; i++ {
		child := NewRecord()
		Set(child, NewScalarKey[int32](leafKey), int32(i))
		cur.setRaw(nextKey, child)
		cur = child
	}

	var buf bytes.Buffer
	if err := Store(&buf, root); err != nil {
		t.Fatalf("Store: %v", err)
	}
	loaded, err := Load(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	cur = loaded
	for i := 0; i < depth; i++ {
		raw, ok := cur.getRaw(nextKey)
		if !ok {
			t.Fatalf("depth %d: missing %q", i, nextKey)
		}
		child, ok := raw.(*Record)
		if !ok {
			t.Fatalf("depth %d: %q is %T, wanted *Record", i, nextKey, raw)
		}
		v, err := Get(child, NewScalarKey[int32](leafKey))
		if err != nil || v != int32(i) {
			t.Fatalf("depth %d: leaf = (%v, %v), wanted (%d, nil)", i, v, err, i)
		}
		cur = child
	}
}

func TestRoundTrip_MissingConverterOnRead(t *testing.T) {
	root := NewRecord()
	Set(root, carAKey, &Car{Wheels: 4, HP: 180.5})

	var buf bytes.Buffer
	if err := Store(&buf, root, WithConverters(carMarshaller)); err != nil {
		t.Fatalf("Store: %v", err)
	}

	// Without the Car converter registered the type name cannot resolve.
	_, err := Load(bytes.NewReader(buf.Bytes()))
	if !errors.Is(err, ErrNoConverter) {
		t.Fatalf("Load without converter err = %v, wanted ErrNoConverter", err)
	}

	loaded, err := Load(bytes.NewReader(buf.Bytes()), WithIgnoreMissing(true))
	if err != nil {
		t.Fatalf("Load with ignoreMissing: %v", err)
	}
	raw, ok := loaded.getRaw("car a")
	if !ok {
		t.Fatalf("car a slot missing")
	}
	rec, ok := raw.(*Record)
	if !ok {
		t.Fatalf("car a = %T, wanted the raw *Record", raw)
	}
	name, ok := rec.getRaw(metaClassNameKey)
	if !ok || name != any("xdata.test.car") {
		t.Fatalf("_meta_classname = (%v, %v), wanted xdata.test.car", name, ok)
	}
	wheels, err := Get(rec, NewScalarKey[int32]("wheels"))
	if err != nil || wheels != 4 {
		t.Fatalf("wheels = (%v, %v), wanted (4, nil)", wheels, err)
	}
}
