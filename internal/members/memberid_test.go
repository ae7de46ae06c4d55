package members

import (
	"fmt"
	"strconv"
	"testing"
	"time"
)

func TestMonthLetterShiftedMapping(t *testing.T) {
	// The mapping indexes the alphabet by month number, so January is B
	// and December is M. Issued cards depend on this.
	if got := MonthLetter(time.January); got != 'B' {
		t.Fatalf("January letter = %c, want B", got)
	}
	if got := MonthLetter(time.December); got != 'M' {
		t.Fatalf("December letter = %c, want M", got)
	}

	seen := map[byte]bool{}
	for m := time.January; m <= time.December; m++ {
		letter := MonthLetter(m)
		if seen[letter] {
			t.Fatalf("letter %c repeats", letter)
		}
		seen[letter] = true
	}
}

func TestBucket(t *testing.T) {
	got := Bucket(time.Date(2020, time.October, 21, 12, 0, 0, 0, time.UTC))
	if got != "K20" {
		t.Fatalf("bucket = %s, want K20", got)
	}
	// Single digit years keep their leading zero.
	got = Bucket(time.Date(2009, time.January, 1, 0, 0, 0, 0, time.UTC))
	if got != "B09" {
		t.Fatalf("bucket = %s, want B09", got)
	}
}

func TestChecksum(t *testing.T) {
	body := "B200001"
	sum := 0
	for _, c := range []byte(body) {
		sum += int(c)
	}
	want := (sum * sum) % 99
	if got := Checksum(body); got != want {
		t.Fatalf("Checksum(%s) = %d, want %d", body, got, want)
	}
}

func TestFormatIDShape(t *testing.T) {
	id := FormatID("B20", 1)

	if id[:3] != "B20" {
		t.Fatalf("prefix = %s, want B20", id[:3])
	}
	if id[3:7] != "0001" {
		t.Fatalf("sequence = %s, want 0001", id[3:7])
	}

	checkLen := int(id[len(id)-1] - '0')
	check := id[len(id)-1-checkLen : len(id)-1]
	if got := strconv.Itoa(Checksum("B200001")); got != check {
		t.Fatalf("checksum digits = %s, want %s", check, got)
	}
}

func TestVerifyID(t *testing.T) {
	for seq := 1; seq <= 200; seq++ {
		id := FormatID("C21", seq)
		if !VerifyID(id) {
			t.Fatalf("id %s failed its own checksum", id)
		}
	}

	if VerifyID("") {
		t.Fatal("empty id verified")
	}
	if VerifyID("B20") {
		t.Fatal("truncated id verified")
	}

	// Flip a sequence digit; the checksum must notice.
	id := FormatID("B20", 42)
	tampered := id[:4] + flipDigit(id[4]) + id[5:]
	if VerifyID(tampered) {
		t.Fatalf("tampered id %s verified", tampered)
	}
}

func TestFormatIDDistinctSequences(t *testing.T) {
	seen := map[string]bool{}
	for seq := 1; seq <= 500; seq++ {
		id := FormatID("M23", seq)
		if seen[id] {
			t.Fatalf("duplicate id %s at sequence %d", id, seq)
		}
		seen[id] = true
	}
}

func flipDigit(b byte) string {
	if b == '9' {
		return "8"
	}
	return fmt.Sprintf("%c", b+1)
}
