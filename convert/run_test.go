package convert

import (
	"reflect"
	"testing"
)

func TestParseSizes(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []int
		wantErr bool
	}{
		{"single size", "12", []int{12}, false},
		{"multiple sizes", "10,12,16", []int{10, 12, 16}, false},
		{"unsorted input is sorted", "16,10,12", []int{10, 12, 16}, false},
		{"duplicates removed", "12,12,10", []int{10, 12}, false},
		{"spaces tolerated", " 10 , 12 ", []int{10, 12}, false},
		{"empty parts skipped", "10,,12,", []int{10, 12}, false},
		{"boundaries accepted", "6,72", []int{6, 72}, false},
		{"below range", "5", nil, true},
		{"above range", "73", nil, true},
		{"not a number", "ten", nil, true},
		{"nothing usable", ",,", nil, true},
		{"empty string", "", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSizes(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseSizes(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseSizes(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
