package dbtypes

import (
	"encoding/json"
	"testing"
)

func TestJSONTextScan(t *testing.T) {
	var j JSONText
	if err := j.Scan(`{"a":1}`); err != nil {
		t.Fatalf("scan string: %v", err)
	}
	if string(j) != `{"a":1}` {
		t.Fatalf("unexpected value %s", j)
	}

	src := []byte(`{"b":2}`)
	if err := j.Scan(src); err != nil {
		t.Fatalf("scan bytes: %v", err)
	}
	src[2] = 'x'
	if string(j) != `{"b":2}` {
		t.Fatalf("scan must copy driver bytes, got %s", j)
	}

	if err := j.Scan(nil); err != nil || j != nil {
		t.Fatalf("scan nil: %v %v", j, err)
	}
	if err := j.Scan(42); err == nil {
		t.Fatal("expected error for unsupported type")
	}
}

func TestJSONTextValueIsString(t *testing.T) {
	v, err := JSONText(`{"c":3}`).Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	if s, ok := v.(string); !ok || s != `{"c":3}` {
		t.Fatalf("expected string driver value, got %#v", v)
	}
	if v, _ := JSONText(nil).Value(); v != nil {
		t.Fatalf("expected nil driver value, got %#v", v)
	}
}

func TestJSONTextEmbedsInJSON(t *testing.T) {
	wrapper := struct {
		Data JSONText `json:"data"`
	}{Data: JSONText(`{"d":4}`)}
	out, err := json.Marshal(wrapper)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"data":{"d":4}}` {
		t.Fatalf("unexpected json %s", out)
	}
}
