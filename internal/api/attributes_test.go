package api

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestParseAttributes(t *testing.T) {
	tests := []struct {
		name       string
		in         any
		wantNames  []string
		wantSource AttributeSource
		wantErr    bool
	}{
		{"comma string", "mark_price, mark_iv,,greeks.delta", []string{"mark_price", "mark_iv", "greeks.delta"}, SourceList, false},
		{"single column range", [][]string{{"mark_price"}, {"mark_iv"}}, []string{"mark_price", "mark_iv"}, SourceRange, false},
		{"row range with blanks", [][]string{{"mark_price", "", "bid_iv"}}, []string{"mark_price", "bid_iv"}, SourceRange, false},
		{"flat slice", []string{"last_price"}, []string{"last_price"}, SourceRange, false},
		{"number", 42, nil, SourceList, true},
		{"nil", nil, nil, SourceList, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAttributes(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAttributes) {
					t.Errorf("expected ErrInvalidAttributes, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got.Names, tt.wantNames) {
				t.Errorf("Names = %v, want %v", got.Names, tt.wantNames)
			}
			if got.Source != tt.wantSource {
				t.Errorf("Source = %v, want %v", got.Source, tt.wantSource)
			}
		})
	}
}

func TestAttributeList_String(t *testing.T) {
	a := AttributesFromString(" mark_price ,greeks.vega")
	if got := a.String(); got != "mark_price,greeks.vega" {
		t.Errorf("String() = %q", got)
	}
	if a.Len() != 2 {
		t.Errorf("Len() = %d, want 2", a.Len())
	}
}

func TestSelectAttributes(t *testing.T) {
	raw := json.RawMessage(tickerResult)

	t.Run("scalars in order", func(t *testing.T) {
		got, err := SelectAttributes(raw, AttributesFromString("mark_iv,instrument_name,greeks.delta,last_price"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []any{55.3, "BTC-27DEC24-60000-P", -0.41, nil}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("array index", func(t *testing.T) {
		got, err := SelectAttributes(json.RawMessage(`{"levels":[[1,2],[3,4]]}`), AttributesFromString("levels.1.0"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got[0] != 3.0 {
			t.Errorf("got %v, want 3", got[0])
		}
	})

	t.Run("missing attribute", func(t *testing.T) {
		_, err := SelectAttributes(raw, AttributesFromString("mark_price,no_such_field"))
		if !errors.Is(err, ErrAttributeNotFound) {
			t.Errorf("expected ErrAttributeNotFound, got %v", err)
		}
	})

	t.Run("path through a scalar", func(t *testing.T) {
		_, err := SelectAttributes(raw, AttributesFromString("mark_price.value"))
		if !errors.Is(err, ErrAttributeNotFound) {
			t.Errorf("expected ErrAttributeNotFound, got %v", err)
		}
	})

	t.Run("object is not a value", func(t *testing.T) {
		_, err := SelectAttributes(raw, AttributesFromString("greeks"))
		if !errors.Is(err, ErrAttributeNotValue) {
			t.Errorf("expected ErrAttributeNotValue, got %v", err)
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		if _, err := SelectAttributes(json.RawMessage(`{`), AttributesFromString("a")); err == nil {
			t.Error("expected decode error")
		}
	})
}
