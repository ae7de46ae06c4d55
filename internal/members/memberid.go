package members

import (
	"fmt"
	"strconv"
	"time"
)

// Member ids look like B2000450451: one month letter, a two digit year, a
// zero-padded sequence number within that letter/year bucket, the checksum
// value and finally the checksum's digit count. The month letter indexes the
// alphabet by month number without adjustment (Jan=B .. Dec=M); issued cards
// carry these ids, so the shifted mapping is kept as is.

const (
	// seqWidth is the zero-padded width of the per-bucket sequence number.
	seqWidth = 4
	// checksumMod keeps the checksum within two digits.
	checksumMod = 99
)

// MonthLetter maps a month to its bucket letter.
func MonthLetter(m time.Month) byte {
	return byte('A' + int(m))
}

// Bucket returns the letter+year prefix ids created on d share.
func Bucket(d time.Time) string {
	return fmt.Sprintf("%c%02d", MonthLetter(d.Month()), d.Year()%100)
}

// Checksum computes the self-check value over an id body: the sum of the
// character code points, squared, modulo 99.
func Checksum(body string) int {
	sum := 0
	for _, c := range []byte(body) {
		sum += int(c)
	}
	return (sum * sum) % checksumMod
}

// FormatID builds a complete member id from a bucket prefix and a sequence
// number already reserved for it.
func FormatID(bucket string, seq int) string {
	body := fmt.Sprintf("%s%0*d", bucket, seqWidth, seq)
	check := strconv.Itoa(Checksum(body))
	return body + check + strconv.Itoa(len(check))
}

// VerifyID reports whether an id's embedded checksum matches its body.
func VerifyID(id string) bool {
	if len(id) < 2 {
		return false
	}
	checkLen := int(id[len(id)-1] - '0')
	if checkLen < 1 || checkLen > 2 || len(id) < checkLen+2 {
		return false
	}
	body := id[:len(id)-1-checkLen]
	check := id[len(id)-1-checkLen : len(id)-1]
	got, err := strconv.Atoi(check)
	if err != nil {
		return false
	}
	return got == Checksum(body) && len(strconv.Itoa(got)) == checkLen
}
