package core

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestDecodeCSV(t *testing.T) {
	tests := []struct {
		name      string
		input     []byte
		header    []string
		rows      [][]string
		delimiter rune
		repaired  int
	}{
		{
			name:      "utf-8",
			input:     []byte("matricula,nombre,grupo\nA001,José Pérez,1A\n"),
			header:    []string{"matricula", "nombre", "grupo"},
			rows:      [][]string{{"A001", "José Pérez", "1A"}},
			delimiter: ',',
		},
		{
			name:      "windows-1252 bytes",
			input:     []byte("matr\xedcula,nombre\nA001,Jos\xe9 P\xe9rez\n"),
			header:    []string{"matrícula", "nombre"},
			rows:      [][]string{{"A001", "José Pérez"}},
			delimiter: ',',
		},
		{
			name:      "semicolon delimiter",
			input:     []byte("matricula;nombre;grupo\nA001;Núñez, Ana;1A\n"),
			header:    []string{"matricula", "nombre", "grupo"},
			rows:      [][]string{{"A001", "Núñez, Ana", "1A"}},
			delimiter: ';',
		},
		{
			name:      "tab delimiter",
			input:     []byte("matricula\tnombre\nA001\tAna\n"),
			header:    []string{"matricula", "nombre"},
			rows:      [][]string{{"A001", "Ana"}},
			delimiter: '\t',
		},
		{
			name:      "utf-8 bom",
			input:     []byte("\xef\xbb\xbfmatricula,nombre\nA001,Ana\n"),
			header:    []string{"matricula", "nombre"},
			rows:      [][]string{{"A001", "Ana"}},
			delimiter: ',',
		},
		{
			name:      "double-encoded cells repaired per field",
			input:     []byte("matricula,nombre\nA001,JosÃ© PÃ©rez\nA002,Ana\n"),
			header:    []string{"matricula", "nombre"},
			rows:      [][]string{{"A001", "José Pérez"}, {"A002", "Ana"}},
			delimiter: ',',
			repaired:  1,
		},
		{
			name:      "blank rows dropped",
			input:     []byte("matricula,nombre\n\nA001,Ana\n , \n"),
			header:    []string{"matricula", "nombre"},
			rows:      [][]string{{"A001", "Ana"}},
			delimiter: ',',
		},
		{
			name:      "ragged rows and lazy quotes",
			input:     []byte("matricula,nombre,grupo\nA001,Ana \"la\" Gómez\nA002,Luis,2B,extra\n"),
			header:    []string{"matricula", "nombre", "grupo"},
			rows:      [][]string{{"A001", "Ana \"la\" Gómez"}, {"A002", "Luis", "2B", "extra"}},
			delimiter: ',',
		},
		{
			name:      "crlf line endings",
			input:     []byte("matricula,nombre\r\nA001,Ana\r\n"),
			header:    []string{"matricula", "nombre"},
			rows:      [][]string{{"A001", "Ana"}},
			delimiter: ',',
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := DecodeCSV(tt.input)
			if err != nil {
				t.Fatalf("DecodeCSV failed: %v", err)
			}
			if !reflect.DeepEqual(doc.Header, tt.header) {
				t.Errorf("Header = %q, want %q", doc.Header, tt.header)
			}
			if !reflect.DeepEqual(doc.Rows, tt.rows) {
				t.Errorf("Rows = %q, want %q", doc.Rows, tt.rows)
			}
			if doc.Delimiter != tt.delimiter {
				t.Errorf("Delimiter = %q, want %q", doc.Delimiter, tt.delimiter)
			}
			if doc.Repaired != tt.repaired {
				t.Errorf("Repaired = %d, want %d", doc.Repaired, tt.repaired)
			}
			if len(doc.Lines) != len(doc.Rows) {
				t.Errorf("len(Lines) = %d, want %d", len(doc.Lines), len(doc.Rows))
			}
		})
	}
}

func TestDecodeCSV_LineNumbers(t *testing.T) {
	doc, err := DecodeCSV([]byte("matricula,nombre\nA001,Ana\n\nA002,Luis\n"))
	if err != nil {
		t.Fatalf("DecodeCSV failed: %v", err)
	}
	want := []int{2, 4}
	if !reflect.DeepEqual(doc.Lines, want) {
		t.Errorf("Lines = %v, want %v", doc.Lines, want)
	}
}

func TestDecodeCSV_Empty(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
	}{
		{"nil", nil},
		{"whitespace", []byte("  \n\n")},
		{"bom only", []byte("\xef\xbb\xbf")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCSV(tt.input)
			if !errors.Is(err, ErrEmptyFile) {
				t.Errorf("error = %v, want ErrEmptyFile", err)
			}
		})
	}
}

func TestParseUTF8CSV_KeepsCells(t *testing.T) {
	text := "\uFEFFmatricula,nombre\nA001,Jos\uFFFD Lopez\nA002,JosÃ© literal\n"

	doc, err := ParseUTF8CSV(text)
	if err != nil {
		t.Fatalf("ParseUTF8CSV failed: %v", err)
	}
	if want := []string{"matricula", "nombre"}; !reflect.DeepEqual(doc.Header, want) {
		t.Errorf("Header = %q, want %q", doc.Header, want)
	}
	want := [][]string{{"A001", "Jos\uFFFD Lopez"}, {"A002", "JosÃ© literal"}}
	if !reflect.DeepEqual(doc.Rows, want) {
		t.Errorf("Rows = %q, want %q", doc.Rows, want)
	}
	if doc.Repaired != 0 {
		t.Errorf("Repaired = %d, want 0", doc.Repaired)
	}

	if _, err := ParseUTF8CSV("\uFEFF \n"); !errors.Is(err, ErrEmptyFile) {
		t.Errorf("blank input error = %v, want ErrEmptyFile", err)
	}
}

func TestSniffDelimiter(t *testing.T) {
	tests := []struct {
		line string
		want rune
	}{
		{"a,b,c", ','},
		{"a;b;c", ';'},
		{"a\tb", '\t'},
		{`"a;b",c`, ','},
		{"single", ','},
	}
	for _, tt := range tests {
		if got := sniffDelimiter(tt.line + "\nx"); got != tt.want {
			t.Errorf("sniffDelimiter(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, []string{"matricula", "nombre"}, [][]string{{"A001", "Núñez, Ana"}}, true)
	if err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "\uFEFF") {
		t.Error("output does not start with a BOM")
	}
	want := "\uFEFFmatricula,nombre\nA001,\"Núñez, Ana\"\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}

	doc, err := DecodeCSV(buf.Bytes())
	if err != nil {
		t.Fatalf("DecodeCSV of written output failed: %v", err)
	}
	if doc.Header[0] != "matricula" || doc.Rows[0][1] != "Núñez, Ana" {
		t.Errorf("decoded = %q / %q", doc.Header, doc.Rows)
	}
}

func TestWriteCSV_NoBOM(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, []string{"a"}, nil, false); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}
	if buf.String() != "a\n" {
		t.Errorf("output = %q, want %q", buf.String(), "a\n")
	}
}
