package serialport

import (
	"io"
	"strings"
	"testing"
)

func TestReaderSourceLines(t *testing.T) {
	src := NewReaderSource(io.NopCloser(strings.NewReader("1;2;3\r\n\r\nlast")))

	want := []string{"1;2;3", "", "last"}
	for _, w := range want {
		line, err := src.ReadLine()
		if err != nil {
			t.Fatalf("ReadLine: %v", err)
		}
		if line != w {
			t.Errorf("line = %q, want %q", line, w)
		}
	}
	if _, err := src.ReadLine(); err != io.EOF {
		t.Errorf("err = %v, want io.EOF", err)
	}
	if err := src.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
