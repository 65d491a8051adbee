package main

import (
	"testing"
)

func TestClassesCommand(t *testing.T) {
	tests := []struct {
		heap        string
		wantErr     bool
		wantRows    int
		wantContain []string
	}{
		{heap: "default", wantRows: 27, wantContain: []string{"kalloc.16", "kalloc.32768", "27 classes"}},
		{heap: "data", wantRows: 21, wantContain: []string{"kalloc.1664", "21 classes"}},
		{heap: "var", wantRows: 22, wantContain: []string{"24576", "32768"}},
		{heap: "bogus", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.heap, func(t *testing.T) {
			resetFlags(t)
			classesHeap = tt.heap

			output, err := captureOutput(t, runClasses)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("runClasses() error = %v", err)
			}
			assertContains(t, output, tt.wantContain)

			jsonOut = true
			output, err = captureOutput(t, runClasses)
			if err != nil {
				t.Fatalf("runClasses() JSON error = %v", err)
			}
			var rows []ClassInfo
			assertJSON(t, output, &rows)
			if len(rows) != tt.wantRows {
				t.Errorf("got %d rows, want %d", len(rows), tt.wantRows)
			}
		})
	}
}
