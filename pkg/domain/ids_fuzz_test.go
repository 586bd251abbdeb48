package domain

import (
	"testing"

	"github.com/google/uuid"
)

// FuzzParseConventionID checks that parsing never panics on arbitrary input
// and never returns both a usable id and an error.
func FuzzParseConventionID(f *testing.F) {
	f.Add("")
	f.Add(uuid.NewString())
	f.Add(uuid.Nil.String())
	f.Add("not-a-uuid")
	f.Add("'; DROP TABLE conventions;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))

	f.Fuzz(func(t *testing.T, input string) {
		parsed, err := ParseConventionID(input)
		if err == nil && parsed.IsNil() {
			t.Fatalf("ParseConventionID(%q) returned the nil id without an error", input)
		}
		if err != nil && !parsed.IsNil() {
			t.Fatalf("ParseConventionID(%q) returned both an id and an error", input)
		}
	})
}
