package money

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestFromFloat(t *testing.T) {
	tests := []struct {
		name    string
		input   float64
		want    string
		wantErr bool
	}{
		{"two decimals", 19.99, "19.99", false},
		{"whole number", 100, "100", false},
		{"one cent", 0.01, "0.01", false},
		{"zero", 0, "0", false},
		{"eight decimals", 0.12345678, "0.12345678", false},
		{"too many decimals", 0.1 + 0.2, "", true},
		{"negative", -5, "", true},
		{"NaN", math.NaN(), "", true},
		{"+Inf", math.Inf(1), "", true},
		{"-Inf", math.Inf(-1), "", true},
		{"too large", 1e13, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromFloat(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAmount) {
					t.Fatalf("FromFloat(%v) error = %v, want ErrInvalidAmount", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("FromFloat(%v) unexpected error: %v", tt.input, err)
			}
			if got.String() != tt.want {
				t.Errorf("FromFloat(%v) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"19.99", "19.99", false},
		{"19.990", "19.99", false},
		{"0.00000001", "0.00000001", false},
		{"999999999999.99", "999999999999.99", false},
		{"0.000000001", "", true},
		{"1000000000000", "", true},
		{"-1.00", "", true},
		{"abc", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAmount) {
					t.Fatalf("Parse(%q) error = %v, want ErrInvalidAmount", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.input, err)
			}
			if !got.Equal(MustParse(tt.want)) {
				t.Errorf("Parse(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseNumber(t *testing.T) {
	got, err := ParseNumber(json.Number("19.99"))
	if err != nil {
		t.Fatalf("ParseNumber failed: %v", err)
	}
	if got.String() != "19.99" {
		t.Errorf("Expected 19.99, got %s", got)
	}

	if _, err := ParseNumber(""); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("Expected ErrInvalidAmount for empty number, got %v", err)
	}
}

func TestAmount_RoundTripIsStable(t *testing.T) {
	// Rendering and re-parsing many times must never drift.
	for _, s := range []string{"19.99", "0.01", "123456789.12345678", "7"} {
		a := MustParse(s)
		for i := 0; i < 100; i++ {
			data, err := json.Marshal(a)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			var back Amount
			if err := json.Unmarshal(data, &back); err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}

			v, err := back.Value()
			if err != nil {
				t.Fatalf("Value failed: %v", err)
			}
			var scanned Amount
			if err := scanned.Scan(v); err != nil {
				t.Fatalf("Scan failed: %v", err)
			}
			a = scanned
		}
		if a.String() != s {
			t.Errorf("Round trip drifted: started with %s, ended with %s", s, a)
		}
	}
}

func TestAmount_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Amount Amount `json:"amount"`
	}{MustParse("19.99")})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `{"amount":"19.99"}` {
		t.Errorf("Unexpected JSON: %s", data)
	}
}

func TestAmount_UnmarshalJSONNumber(t *testing.T) {
	var a Amount
	if err := json.Unmarshal([]byte(`19.99`), &a); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if a.String() != "19.99" {
		t.Errorf("Expected 19.99, got %s", a)
	}
}

func TestAmount_UnmarshalJSONBounds(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{`"19.99"`, "19.99", false},
		{`0.00000001`, "0.00000001", false},
		{`"-4"`, "", true},
		{`-0.5`, "", true},
		{`"0.000000001"`, "", true},
		{`1e13`, "", true},
		{`"abc"`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			a := MustParse("7")
			err := json.Unmarshal([]byte(tt.input), &a)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAmount) {
					t.Fatalf("Unmarshal(%s) error = %v, want ErrInvalidAmount", tt.input, err)
				}
				if a.String() != "7" {
					t.Errorf("Rejected input overwrote the amount: %s", a)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unmarshal(%s) unexpected error: %v", tt.input, err)
			}
			if a.String() != tt.want {
				t.Errorf("Unmarshal(%s) = %s, want %s", tt.input, a, tt.want)
			}
		})
	}
}

func TestAmount_ScanNumericText(t *testing.T) {
	var a Amount
	if err := a.Scan([]byte("19.99000000")); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if !a.Equal(MustParse("19.99")) {
		t.Errorf("Expected 19.99, got %s", a)
	}

	if err := a.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) failed: %v", err)
	}
	if !a.IsZero() {
		t.Errorf("Expected zero after Scan(nil), got %s", a)
	}
}

func TestAmount_Arithmetic(t *testing.T) {
	a := MustParse("10.10")
	b := MustParse("0.20")

	if got := a.Sub(b); !got.Equal(MustParse("9.9")) {
		t.Errorf("Sub: got %s, want 9.9", got)
	}
	if got := a.Add(b); !got.Equal(MustParse("10.3")) {
		t.Errorf("Add: got %s, want 10.3", got)
	}
	if got := b.Sub(a); !got.IsNegative() {
		t.Errorf("Expected negative difference, got %s", got)
	}
	if got := Max(b.Sub(a), Zero()); !got.IsZero() {
		t.Errorf("Max with zero: got %s, want 0", got)
	}
	if a.Cmp(b) != 1 || b.Cmp(a) != -1 || a.Cmp(a) != 0 {
		t.Error("Cmp returned unexpected ordering")
	}
}
