package ledger

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestNormalizeSymbolList_Array(t *testing.T) {
	got, err := normalizeSymbolList(json.RawMessage(`["btc","eth","sol"]`))
	if err != nil {
		t.Fatalf("normalizeSymbolList: %v", err)
	}
	want := []string{"BTC", "ETH", "SOL"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestNormalizeSymbolList_NumericKeyedMap(t *testing.T) {
	// Keys must sort numerically, not lexically: 2 < 10.
	raw := json.RawMessage(`{"0":"btc","2":"sol","10":"doge","1":"eth"}`)
	got, err := normalizeSymbolList(raw)
	if err != nil {
		t.Fatalf("normalizeSymbolList: %v", err)
	}
	want := []string{"BTC", "ETH", "SOL", "DOGE"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestNormalizeSymbolList_NumericKeyedMapSkipsEmpty(t *testing.T) {
	raw := json.RawMessage(`{"0":"btc","1":"","2":"eth"}`)
	got, err := normalizeSymbolList(raw)
	if err != nil {
		t.Fatalf("normalizeSymbolList: %v", err)
	}
	want := []string{"BTC", "ETH"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestNormalizeSymbolList_KeyMapExcludesLength(t *testing.T) {
	raw := json.RawMessage(`{"btc":true,"eth":true,"length":2}`)
	got, err := normalizeSymbolList(raw)
	if err != nil {
		t.Fatalf("normalizeSymbolList: %v", err)
	}
	want := []string{"BTC", "ETH"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestNormalizeSymbolList_Null(t *testing.T) {
	got, err := normalizeSymbolList(json.RawMessage(`null`))
	if err != nil {
		t.Fatalf("normalizeSymbolList: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty slice, got %v", got)
	}
}

func TestNormalizeSymbolList_UnknownShape(t *testing.T) {
	if _, err := normalizeSymbolList(json.RawMessage(`42`)); err == nil {
		t.Fatal("expected error for scalar shape")
	}
}
